// Package resolve maps the ways a user points at tasks to concrete task
// IDs: literal IDs in the message, positional indexes against the last
// listing, free-text semantic references, and time windows around now.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/antavlouros/tempo/internal/embedding"
	"github.com/antavlouros/tempo/internal/store"
	"github.com/antavlouros/tempo/pkg/models"
)

// ErrNoMatch indicates no stored task plausibly matched the reference.
var ErrNoMatch = errors.New("no matching task")

// AmbiguousError reports that several stored tasks matched a semantic
// reference about equally well. Candidates are ordered best first.
type AmbiguousError struct {
	Candidates []models.SearchResult
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("reference is ambiguous between %d tasks", len(e.Candidates))
}

// Resolver resolves user references against the store.
type Resolver struct {
	store    store.Store
	embedder embedding.Embedder
	topK     int
	// margin is the score band below the best match within which other
	// candidates count as equally plausible.
	margin float64
}

// New creates a resolver.
func New(s store.Store, emb embedding.Embedder, topK int, margin float64) *Resolver {
	if topK <= 0 {
		topK = 5
	}
	return &Resolver{store: s, embedder: emb, topK: topK, margin: margin}
}

var uuidPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// ExtractIDs returns the task IDs that appear literally in the text, in
// order of appearance, verified against the store. Unknown IDs are skipped.
func (r *Resolver) ExtractIDs(ctx context.Context, text string) ([]string, error) {
	raw := uuidPattern.FindAllString(text, -1)
	if len(raw) == 0 {
		return nil, nil
	}

	var ids []string
	seen := make(map[string]bool)
	for _, id := range raw {
		id = strings.ToLower(id)
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := r.store.Get(ctx, id); err != nil {
			if errors.Is(err, store.ErrTaskNotFound) {
				continue
			}
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseIndexes parses a 1-based index expression like "1-3,5" against a
// listing of n tasks. Returns the zero-based indexes in ascending order
// without duplicates. Out-of-range indexes are an error.
func ParseIndexes(expr string, n int) ([]int, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty index expression")
	}

	seen := make(map[int]bool)
	var indexes []int
	add := func(i int) error {
		if i < 1 || i > n {
			return fmt.Errorf("index %d out of range 1..%d", i, n)
		}
		if !seen[i] {
			seen[i] = true
			indexes = append(indexes, i-1)
		}
		return nil
	}

	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, fmt.Errorf("bad range start %q", lo)
			}
			end, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, fmt.Errorf("bad range end %q", hi)
			}
			if end < start {
				return nil, fmt.Errorf("descending range %q", part)
			}
			for i := start; i <= end; i++ {
				if err := add(i); err != nil {
					return nil, err
				}
			}
			continue
		}
		i, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad index %q", part)
		}
		if err := add(i); err != nil {
			return nil, err
		}
	}

	if len(indexes) == 0 {
		return nil, fmt.Errorf("no indexes in %q", expr)
	}
	return indexes, nil
}

// Semantic resolves a free-text reference to a single stored task. When
// several candidates score within the margin of the best, an AmbiguousError
// carrying all of them is returned instead of guessing.
func (r *Resolver) Semantic(ctx context.Context, text string) (*models.Task, error) {
	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed reference: %w", err)
	}

	results, err := r.store.VectorSearch(ctx, vec, r.topK)
	if err != nil {
		return nil, fmt.Errorf("search reference: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoMatch
	}

	best := results[0]
	var contenders []models.SearchResult
	for _, res := range results {
		if best.Score-res.Score <= r.margin {
			contenders = append(contenders, res)
		}
	}
	if len(contenders) > 1 {
		return nil, &AmbiguousError{Candidates: contenders}
	}

	task := best.Task
	return &task, nil
}

// Near returns tasks whose scheduled moment falls within radius of now,
// boundary inclusive. Unscheduled tasks never match.
func (r *Resolver) Near(ctx context.Context, now time.Time, radius time.Duration) ([]*models.Task, error) {
	tasks, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}

	var near []*models.Task
	for _, task := range tasks {
		at, ok := task.ScheduledAt(now.Location())
		if !ok {
			continue
		}
		delta := at.Sub(now)
		if delta < 0 {
			delta = -delta
		}
		if delta <= radius {
			near = append(near, task)
		}
	}
	return near, nil
}
