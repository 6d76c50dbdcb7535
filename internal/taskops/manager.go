// Package taskops applies status and deletion changes to the store, batch
// style: each referenced task gets its own outcome so one bad ID never
// aborts the rest of the batch.
package taskops

import (
	"context"
	"fmt"
	"time"

	"github.com/antavlouros/tempo/internal/store"
	"github.com/antavlouros/tempo/pkg/models"
)

// Manager executes status updates and deletions.
type Manager struct {
	store store.Store
}

// New creates a manager.
func New(s store.Store) *Manager {
	return &Manager{store: s}
}

// StatusUpdate pairs a task ID with the status it should move to.
type StatusUpdate struct {
	ID     string
	Status models.TaskStatus
}

// Outcome reports what happened to one task in a batch.
type Outcome struct {
	ID  string
	Err error
}

// OK reports whether the operation succeeded for this task.
func (o Outcome) OK() bool { return o.Err == nil }

// UpdateStatuses applies each update independently. Any status in the
// allowed set may move to any other; there is no transition ordering.
func (m *Manager) UpdateStatuses(ctx context.Context, updates []StatusUpdate) []Outcome {
	outcomes := make([]Outcome, 0, len(updates))
	for _, u := range updates {
		var err error
		if !u.Status.Valid() {
			err = fmt.Errorf("%w: %q", store.ErrInvalidStatus, u.Status)
		} else {
			err = m.store.UpdateStatus(ctx, u.ID, u.Status)
		}
		outcomes = append(outcomes, Outcome{ID: u.ID, Err: err})
	}
	return outcomes
}

// Delete removes each task independently. Tasks that depended on a deleted
// task lose the edge but are kept.
func (m *Manager) Delete(ctx context.Context, ids []string) []Outcome {
	outcomes := make([]Outcome, 0, len(ids))
	for _, id := range ids {
		outcomes = append(outcomes, Outcome{ID: id, Err: m.store.Delete(ctx, id)})
	}
	return outcomes
}

// InferOverdue moves pending tasks whose scheduled moment has passed to
// over_deadline. Done and on_work tasks are left alone. Returns the IDs
// that changed.
func (m *Manager) InferOverdue(ctx context.Context, now time.Time) ([]string, error) {
	tasks, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}

	var changed []string
	for _, task := range tasks {
		if task.Status != models.StatusPending {
			continue
		}
		at, ok := task.ScheduledAt(now.Location())
		if !ok || !at.Before(now) {
			continue
		}
		if err := m.store.UpdateStatus(ctx, task.ID, models.StatusOverDeadline); err != nil {
			return changed, fmt.Errorf("mark %s over deadline: %w", task.ID, err)
		}
		changed = append(changed, task.ID)
	}
	return changed, nil
}
