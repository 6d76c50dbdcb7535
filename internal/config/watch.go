package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the project config file when it changes on disk, so a
// long-running chat session picks up tuning changes without a restart.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}

	mu  sync.RWMutex
	cfg *Config
}

// NewWatcher starts watching the project config at path. The initial config
// must be supplied; reload failures keep the last good config.
func NewWatcher(path string, initial *Config) (*Watcher, error) {
	w := &Watcher{
		path: path,
		done: make(chan struct{}),
		cfg:  initial,
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		// Continue without live reload.
		return w, nil
	}
	w.watcher = fw

	// Watch the directory, not the file: editors replace files on save,
	// which drops a direct file watch.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		w.watcher = nil
		return w, nil
	}

	go w.watch()

	return w, nil
}

func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			// Rerun the full merge: a project-file edit must not wipe out
			// user-config or environment settings.
			if cfg, err := Load(); err == nil {
				w.mu.Lock()
				w.cfg = cfg
				w.mu.Unlock()
			}
		case <-w.watcher.Errors:
			// Ignore errors, keep watching.
		}
	}
}

// Current returns the most recently loaded config.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
