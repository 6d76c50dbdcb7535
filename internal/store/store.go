// Package store persists the task graph. Tasks are nodes, dependencies are
// edges, and each task carries the embedding of its descriptive text so the
// matching layers can search semantically without re-embedding the corpus.
package store

import (
	"context"
	"errors"

	"github.com/antavlouros/tempo/pkg/models"
)

// Sentinel errors returned by Store implementations.
var (
	// ErrTaskNotFound indicates the referenced task ID does not exist.
	ErrTaskNotFound = errors.New("task not found")
	// ErrDependencyCycle indicates an edge would make the graph cyclic.
	ErrDependencyCycle = errors.New("dependency would create a cycle")
	// ErrMissingEmbedding indicates a write that requires an embedding
	// arrived without one.
	ErrMissingEmbedding = errors.New("task embedding is required")
	// ErrInvalidStatus indicates a status outside the allowed set.
	ErrInvalidStatus = errors.New("invalid task status")
)

// TaskFields carries a partial update. Nil fields are left untouched.
// Changing the description requires a fresh Embedding, since the stored
// vector must always reflect the current text.
type TaskFields struct {
	Description *string
	Date        *string
	Time        *string
	Status      *models.TaskStatus
	Embedding   []float32
}

// Store is the persistence contract for the task graph.
type Store interface {
	// Add inserts a new task. The task must carry an embedding.
	Add(ctx context.Context, task *models.Task) error
	// Get returns a single task with its dependency IDs populated.
	Get(ctx context.Context, id string) (*models.Task, error)
	// List returns all tasks with dependency IDs populated, ordered by
	// creation time.
	List(ctx context.Context) ([]*models.Task, error)
	// Update applies a partial update to a task.
	Update(ctx context.Context, id string, fields TaskFields) error
	// UpdateStatus changes only the status of a task.
	UpdateStatus(ctx context.Context, id string, status models.TaskStatus) error
	// Delete removes a task and every dependency edge touching it, in
	// either direction. Tasks that depended on it are kept.
	Delete(ctx context.Context, id string) error

	// AddDependency records that taskID depends on dependsOnID. Rejects
	// the edge with ErrDependencyCycle if it would make the graph cyclic.
	AddDependency(ctx context.Context, taskID, dependsOnID string) error
	// RemoveDependency drops a single edge. Missing edges are not an error.
	RemoveDependency(ctx context.Context, taskID, dependsOnID string) error
	// Dependents returns the IDs of tasks that depend on the given task.
	Dependents(ctx context.Context, id string) ([]string, error)

	// VectorSearch ranks all stored tasks by cosine similarity to the
	// query vector, descending, returning at most topK results.
	VectorSearch(ctx context.Context, query []float32, topK int) ([]models.SearchResult, error)

	// Stats reports aggregate counts for diagnostics.
	Stats(ctx context.Context) (models.StoreStats, error)

	Close() error
}
