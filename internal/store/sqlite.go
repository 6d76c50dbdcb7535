package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/antavlouros/tempo/internal/embedding"
	"github.com/antavlouros/tempo/internal/graph"
	"github.com/antavlouros/tempo/pkg/models"
)

// SQLiteStore implements Store on a local SQLite file.
// WAL mode is enabled for concurrent reads.
type SQLiteStore struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// Open opens the task database at the given path, creating parent
// directories and applying migrations as needed.
func Open(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &SQLiteStore{conn: conn, path: path}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the path to the database file.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

const migrationV1Tasks = `
CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	date        TEXT NOT NULL DEFAULT '',
	time        TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	embedding   TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS dependencies (
	task_id    TEXT NOT NULL REFERENCES tasks(id),
	depends_on TEXT NOT NULL REFERENCES tasks(id),
	PRIMARY KEY (task_id, depends_on)
);

CREATE INDEX IF NOT EXISTS idx_dependencies_depends_on ON dependencies(depends_on);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
`

// migrate applies all pending schema migrations.
func (s *SQLiteStore) migrate() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Tasks},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}

	return nil
}

// transaction runs fn inside a transaction, rolling back on error.
func (s *SQLiteStore) transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Add inserts a new task and its outgoing dependency edges. A task new to
// the graph cannot be depended on yet, so the only cycle an insert can
// introduce is a self-edge; beyond that only the targets' existence is
// checked.
func (s *SQLiteStore) Add(ctx context.Context, task *models.Task) error {
	if !task.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, task.Status)
	}
	if len(task.Embedding) == 0 {
		return ErrMissingEmbedding
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	for _, depID := range task.DependsOn {
		if depID == task.ID {
			return fmt.Errorf("task %s depends on itself: %w", task.ID, ErrDependencyCycle)
		}
	}

	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	embJSON, err := json.Marshal(task.Embedding)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (id, description, date, time, status, embedding, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			task.ID, task.Description, task.Date, task.Time, string(task.Status),
			string(embJSON), formatTime(task.CreatedAt), formatTime(task.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}

		for _, depID := range task.DependsOn {
			if err := insertEdge(ctx, tx, task.ID, depID); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertEdge(ctx context.Context, tx *sql.Tx, taskID, dependsOnID string) error {
	var exists int
	err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks WHERE id = ?", dependsOnID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check dependency target: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("dependency target %s: %w", dependsOnID, ErrTaskNotFound)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO dependencies (task_id, depends_on) VALUES (?, ?)`,
		taskID, dependsOnID,
	)
	if err != nil {
		return fmt.Errorf("insert dependency: %w", err)
	}
	return nil
}

// Get returns a single task with dependency IDs populated.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.conn.QueryRowContext(ctx, `
		SELECT id, description, date, time, status, embedding, created_at, updated_at
		FROM tasks WHERE id = ?`, id)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %s: %w", id, ErrTaskNotFound)
	}
	if err != nil {
		return nil, err
	}

	deps, err := s.dependencyIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	task.DependsOn = deps
	return task, nil
}

// List returns all tasks ordered by creation time, dependency IDs populated.
func (s *SQLiteStore) List(ctx context.Context) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listLocked(ctx)
}

func (s *SQLiteStore) listLocked(ctx context.Context) ([]*models.Task, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, description, date, time, status, embedding, created_at, updated_at
		FROM tasks ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	byID := make(map[string]*models.Task)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
		byID[task.ID] = task
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	edgeRows, err := s.conn.QueryContext(ctx, "SELECT task_id, depends_on FROM dependencies")
	if err != nil {
		return nil, fmt.Errorf("list dependencies: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var taskID, dependsOn string
		if err := edgeRows.Scan(&taskID, &dependsOn); err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		if task, ok := byID[taskID]; ok {
			task.DependsOn = append(task.DependsOn, dependsOn)
		}
	}
	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("list dependencies: %w", err)
	}

	return tasks, nil
}

// Update applies a partial update. A description change must arrive with a
// fresh embedding so the stored vector keeps matching the text.
func (s *SQLiteStore) Update(ctx context.Context, id string, fields TaskFields) error {
	if fields.Description != nil && len(fields.Embedding) == 0 {
		return ErrMissingEmbedding
	}
	if fields.Status != nil && !fields.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, *fields.Status)
	}

	var sets []string
	var args []any
	if fields.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *fields.Description)
	}
	if fields.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, *fields.Date)
	}
	if fields.Time != nil {
		sets = append(sets, "time = ?")
		args = append(args, *fields.Time)
	}
	if fields.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*fields.Status))
	}
	if len(fields.Embedding) > 0 {
		embJSON, err := json.Marshal(fields.Embedding)
		if err != nil {
			return fmt.Errorf("marshal embedding: %w", err)
		}
		sets = append(sets, "embedding = ?")
		args = append(args, string(embJSON))
	}
	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(time.Now().UTC()))
	args = append(args, id)

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.conn.ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("task %s: %w", id, ErrTaskNotFound)
	}
	return nil
}

// UpdateStatus changes only the status of a task.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status models.TaskStatus) error {
	return s.Update(ctx, id, TaskFields{Status: &status})
}

// Delete removes a task and every edge touching it. Dependent tasks simply
// lose the edge; they are never deleted in cascade.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM dependencies WHERE task_id = ? OR depends_on = ?", id, id); err != nil {
			return fmt.Errorf("delete dependencies: %w", err)
		}

		res, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("task %s: %w", id, ErrTaskNotFound)
		}
		return nil
	})
}

// AddDependency records that taskID depends on dependsOnID, rejecting edges
// that would make the graph cyclic.
func (s *SQLiteStore) AddDependency(ctx context.Context, taskID, dependsOnID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.listLocked(ctx)
	if err != nil {
		return err
	}

	g := graph.New()
	if err := g.Build(tasks); err != nil {
		return fmt.Errorf("load graph: %w", err)
	}
	if g.GetTask(taskID) == nil {
		return fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
	}
	if g.GetTask(dependsOnID) == nil {
		return fmt.Errorf("task %s: %w", dependsOnID, ErrTaskNotFound)
	}
	if err := g.AddEdge(taskID, dependsOnID); err != nil {
		if err == graph.ErrCycleDetected {
			return fmt.Errorf("%s -> %s: %w", taskID, dependsOnID, ErrDependencyCycle)
		}
		return err
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO dependencies (task_id, depends_on) VALUES (?, ?)`,
		taskID, dependsOnID,
	)
	if err != nil {
		return fmt.Errorf("insert dependency: %w", err)
	}
	return nil
}

// RemoveDependency drops a single edge. Missing edges are not an error.
func (s *SQLiteStore) RemoveDependency(ctx context.Context, taskID, dependsOnID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.ExecContext(ctx,
		"DELETE FROM dependencies WHERE task_id = ? AND depends_on = ?", taskID, dependsOnID)
	if err != nil {
		return fmt.Errorf("remove dependency: %w", err)
	}
	return nil
}

// Dependents returns the IDs of tasks that depend on the given task.
func (s *SQLiteStore) Dependents(ctx context.Context, id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.QueryContext(ctx,
		"SELECT task_id FROM dependencies WHERE depends_on = ? ORDER BY task_id", id)
	if err != nil {
		return nil, fmt.Errorf("query dependents: %w", err)
	}
	defer rows.Close()

	var dependents []string
	for rows.Next() {
		var taskID string
		if err := rows.Scan(&taskID); err != nil {
			return nil, fmt.Errorf("scan dependent: %w", err)
		}
		dependents = append(dependents, taskID)
	}
	return dependents, rows.Err()
}

// VectorSearch ranks all tasks by cosine similarity to the query vector.
// The corpus is small enough that a brute-force scan in memory beats
// maintaining an index.
func (s *SQLiteStore) VectorSearch(ctx context.Context, query []float32, topK int) ([]models.SearchResult, error) {
	s.mu.RLock()
	tasks, err := s.listLocked(ctx)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(tasks))
	for i, task := range tasks {
		vectors[i] = task.Embedding
	}

	ranked := embedding.TopK(query, vectors, topK)
	results := make([]models.SearchResult, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, models.SearchResult{
			Task:  *tasks[r.Index],
			Score: r.Score,
		})
	}
	return results, nil
}

// Stats reports aggregate counts for diagnostics.
func (s *SQLiteStore) Stats(ctx context.Context) (models.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.StoreStats{ByStatus: make(map[models.TaskStatus]int)}

	rows, err := s.conn.QueryContext(ctx, "SELECT status, COUNT(*) FROM tasks GROUP BY status")
	if err != nil {
		return stats, fmt.Errorf("query task counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return stats, fmt.Errorf("scan task count: %w", err)
		}
		stats.ByStatus[models.TaskStatus(status)] = count
		stats.Tasks += count
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("query task counts: %w", err)
	}

	row := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM dependencies")
	if err := row.Scan(&stats.Dependencies); err != nil {
		return stats, fmt.Errorf("count dependencies: %w", err)
	}

	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var task models.Task
	var status, embJSON, createdAt, updatedAt string

	err := row.Scan(&task.ID, &task.Description, &task.Date, &task.Time,
		&status, &embJSON, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	task.Status = models.TaskStatus(status)
	if err := json.Unmarshal([]byte(embJSON), &task.Embedding); err != nil {
		return nil, fmt.Errorf("unmarshal embedding for %s: %w", task.ID, err)
	}
	if t, err := parseTime(createdAt); err == nil {
		task.CreatedAt = t
	}
	if t, err := parseTime(updatedAt); err == nil {
		task.UpdatedAt = t
	}
	return &task, nil
}

func (s *SQLiteStore) dependencyIDs(ctx context.Context, id string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT depends_on FROM dependencies WHERE task_id = ? ORDER BY depends_on", id)
	if err != nil {
		return nil, fmt.Errorf("query dependencies: %w", err)
	}
	defer rows.Close()

	var deps []string
	for rows.Next() {
		var depID string
		if err := rows.Scan(&depID); err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		deps = append(deps, depID)
	}
	return deps, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
