// Package collision flags new tasks that semantically duplicate tasks
// already in the store, so the user confirms before a near-copy is saved.
package collision

import (
	"context"
	"fmt"

	"github.com/antavlouros/tempo/internal/store"
	"github.com/antavlouros/tempo/pkg/models"
)

// Detector checks draft tasks against the stored corpus.
type Detector struct {
	store     store.Store
	threshold float64
	topK      int
}

// Report describes the outcome of a collision check for one draft.
type Report struct {
	// Collides is true when the best match scored at or above the
	// detector threshold.
	Collides bool
	// Matches are the nearest stored tasks, best first. Populated even
	// when Collides is false so callers can surface near-misses.
	Matches []models.SearchResult
}

// New creates a detector. threshold is the cosine similarity at or above
// which a draft counts as a duplicate; topK caps how many matches a report
// carries.
func New(s store.Store, threshold float64, topK int) *Detector {
	if topK <= 0 {
		topK = 5
	}
	return &Detector{store: s, threshold: threshold, topK: topK}
}

// Check searches the store for tasks similar to the draft's embedding.
func (d *Detector) Check(ctx context.Context, draftEmbedding []float32) (Report, error) {
	if len(draftEmbedding) == 0 {
		return Report{}, fmt.Errorf("draft has no embedding")
	}

	matches, err := d.store.VectorSearch(ctx, draftEmbedding, d.topK)
	if err != nil {
		return Report{}, fmt.Errorf("collision search: %w", err)
	}

	report := Report{Matches: matches}
	if len(matches) > 0 && matches[0].Score >= d.threshold {
		report.Collides = true
	}
	return report, nil
}
