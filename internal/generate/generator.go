// Package generate turns a natural-language request into stored tasks. The
// model proposes drafts, invalid drafts are dropped with a reason, and each
// survivor passes the collision gate before it is committed.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/antavlouros/tempo/internal/collision"
	"github.com/antavlouros/tempo/internal/embedding"
	"github.com/antavlouros/tempo/internal/llm"
	"github.com/antavlouros/tempo/internal/store"
	"github.com/antavlouros/tempo/pkg/models"
)

// Draft is one task as proposed by the model, before it has an identity or
// an embedding. DependsOn holds zero-based indexes into the same batch.
type Draft struct {
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	DependsOn   []int  `json:"depends_on"`
}

// Dropped records a draft that failed validation and why.
type Dropped struct {
	Draft  Draft
	Reason string
}

// Flagged records a draft held back by the collision gate together with
// everything needed to commit it later: its reserved id, its embedding, the
// stored tasks it resembles, the ids of its prerequisites, and the ids of
// already-committed siblings whose dependency edge waits on it.
type Flagged struct {
	Draft      Draft
	ID         string
	Embedding  []float32
	Matches    []models.SearchResult
	DependsOn  []string
	Dependents []string
}

// Result is the outcome of one generation run.
type Result struct {
	Committed []*models.Task
	Flagged   []Flagged
	Dropped   []Dropped
}

// Generator drives the model and the collision gate.
type Generator struct {
	completer llm.Completer
	embedder  embedding.Embedder
	store     store.Store
	detector  *collision.Detector
	retry     llm.RetryPolicy
}

// New creates a generator.
func New(completer llm.Completer, emb embedding.Embedder, s store.Store, det *collision.Detector, retry llm.RetryPolicy) *Generator {
	return &Generator{
		completer: completer,
		embedder:  emb,
		store:     s,
		detector:  det,
		retry:     retry,
	}
}

// Generate asks the model for drafts, validates them, and walks the
// survivors in dependency order, checking and committing one draft at a
// time so a draft duplicating a sibling committed earlier in the same batch
// is flagged too. Colliding drafts come back in Result.Flagged for the
// caller to confirm or discard; a committed draft whose prerequisite was
// flagged gets that edge restored by CommitFlagged.
func (g *Generator) Generate(ctx context.Context, request string) (Result, error) {
	drafts, err := g.proposeDrafts(ctx, request)
	if err != nil {
		return Result{}, err
	}

	valid, dropped := validateDrafts(drafts)
	result := Result{Dropped: dropped}
	if len(valid) == 0 {
		return result, nil
	}

	ids := make([]string, len(valid))
	for i := range valid {
		ids[i] = uuid.NewString()
	}

	flaggedAt := make(map[int]int) // valid index -> index into result.Flagged
	for _, i := range commitOrder(valid) {
		draft := valid[i]
		vec, err := g.embedDraft(ctx, draft)
		if err != nil {
			return result, err
		}

		report, err := g.detector.Check(ctx, vec)
		if err != nil {
			return result, err
		}

		// Prerequisites held at the gate cannot be edge targets yet.
		var deps []string
		var held []int
		for _, dep := range draft.DependsOn {
			if fi, ok := flaggedAt[dep]; ok {
				held = append(held, fi)
				continue
			}
			deps = append(deps, ids[dep])
		}

		if report.Collides {
			log.Printf("[generate] draft %q collides with %s (score %.3f)",
				draft.Description, report.Matches[0].Task.ID, report.Matches[0].Score)
			for _, fi := range held {
				deps = append(deps, result.Flagged[fi].ID)
			}
			result.Flagged = append(result.Flagged, Flagged{
				Draft:     draft,
				ID:        ids[i],
				Embedding: vec,
				Matches:   report.Matches,
				DependsOn: deps,
			})
			flaggedAt[i] = len(result.Flagged) - 1
			continue
		}

		task := &models.Task{
			ID:          ids[i],
			Description: strings.TrimSpace(draft.Description),
			Date:        draft.Date,
			Time:        draft.Time,
			Status:      models.StatusPending,
			DependsOn:   deps,
			Embedding:   vec,
		}
		if err := g.store.Add(ctx, task); err != nil {
			return result, fmt.Errorf("store task %q: %w", task.Description, err)
		}
		for _, fi := range held {
			result.Flagged[fi].Dependents = append(result.Flagged[fi].Dependents, task.ID)
		}
		result.Committed = append(result.Committed, task)
	}
	return result, nil
}

// CommitFlagged stores drafts the user confirmed despite the collision
// warning. The gate is not consulted again. The slice must come from
// Generate, which orders it dependencies first; edges deferred at
// generation time are restored here.
func (g *Generator) CommitFlagged(ctx context.Context, flagged []Flagged) ([]*models.Task, error) {
	var committed []*models.Task
	for _, f := range flagged {
		task := &models.Task{
			ID:          f.ID,
			Description: strings.TrimSpace(f.Draft.Description),
			Date:        f.Draft.Date,
			Time:        f.Draft.Time,
			Status:      models.StatusPending,
			DependsOn:   f.DependsOn,
			Embedding:   f.Embedding,
		}
		if err := g.store.Add(ctx, task); err != nil {
			return committed, fmt.Errorf("store task %q: %w", task.Description, err)
		}
		for _, dep := range f.Dependents {
			if err := g.store.AddDependency(ctx, dep, task.ID); err != nil {
				return committed, fmt.Errorf("restore dependency on %q: %w", task.Description, err)
			}
		}
		committed = append(committed, task)
	}
	return committed, nil
}

func (g *Generator) proposeDrafts(ctx context.Context, request string) ([]Draft, error) {
	var raw string
	err := llm.Do(ctx, g.retry, func(ctx context.Context) error {
		var err error
		raw, err = g.completer.Complete(ctx, generateSystemPrompt, request)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("generate tasks: %w", err)
	}

	doc, err := llm.ExtractJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("generate tasks: %w", err)
	}

	var drafts []Draft
	if err := json.Unmarshal([]byte(doc), &drafts); err != nil {
		// Some responses wrap the array in an object.
		var wrapped struct {
			Tasks []Draft `json:"tasks"`
		}
		if err2 := json.Unmarshal([]byte(doc), &wrapped); err2 != nil {
			return nil, fmt.Errorf("parse drafts: %w", err)
		}
		drafts = wrapped.Tasks
	}
	return drafts, nil
}

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// validateDrafts keeps drafts that are well formed and whose positional
// dependencies are in range and acyclic. Bad drafts are dropped, never
// repaired; dropping a draft also drops edges pointing at it.
func validateDrafts(drafts []Draft) (valid []Draft, dropped []Dropped) {
	keep := make([]bool, len(drafts))
	for i, draft := range drafts {
		if reason := draftProblem(draft, len(drafts), i); reason != "" {
			dropped = append(dropped, Dropped{Draft: draft, Reason: reason})
			continue
		}
		keep[i] = true
	}

	if cycle := findCycle(drafts, keep); cycle >= 0 {
		keep[cycle] = false
		dropped = append(dropped, Dropped{
			Draft:  drafts[cycle],
			Reason: "dependency cycle within the batch",
		})
		// One removal can leave further cycles.
		for {
			next := findCycle(drafts, keep)
			if next < 0 {
				break
			}
			keep[next] = false
			dropped = append(dropped, Dropped{
				Draft:  drafts[next],
				Reason: "dependency cycle within the batch",
			})
		}
	}

	// Remap surviving drafts' dependency indexes to the compacted slice.
	newIndex := make(map[int]int)
	for i := range drafts {
		if keep[i] {
			newIndex[i] = len(valid)
			valid = append(valid, drafts[i])
		}
	}
	for i := range valid {
		var deps []int
		for _, dep := range valid[i].DependsOn {
			if mapped, ok := newIndex[dep]; ok {
				deps = append(deps, mapped)
			}
		}
		valid[i].DependsOn = deps
	}
	return valid, dropped
}

func draftProblem(draft Draft, total, self int) string {
	if strings.TrimSpace(draft.Description) == "" {
		return "empty description"
	}
	if draft.Date != "" && !datePattern.MatchString(draft.Date) {
		return fmt.Sprintf("malformed date %q", draft.Date)
	}
	if draft.Time != "" && !timePattern.MatchString(draft.Time) {
		return fmt.Sprintf("malformed time %q", draft.Time)
	}
	for _, dep := range draft.DependsOn {
		if dep < 0 || dep >= total {
			return fmt.Sprintf("dependency index %d out of range", dep)
		}
		if dep == self {
			return "task depends on itself"
		}
	}
	return ""
}

// findCycle returns the index of a draft on a dependency cycle among kept
// drafts, or -1 when the kept set is acyclic.
func findCycle(drafts []Draft, keep []bool) int {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	colors := make([]int, len(drafts))

	var visit func(i int) int
	visit = func(i int) int {
		colors[i] = gray
		for _, dep := range drafts[i].DependsOn {
			if dep < 0 || dep >= len(drafts) || !keep[dep] {
				continue
			}
			switch colors[dep] {
			case gray:
				return i
			case white:
				if bad := visit(dep); bad >= 0 {
					return bad
				}
			}
		}
		colors[i] = black
		return -1
	}

	for i := range drafts {
		if keep[i] && colors[i] == white {
			if bad := visit(i); bad >= 0 {
				return bad
			}
		}
	}
	return -1
}

// commitOrder topologically sorts draft indexes, dependencies first. The
// drafts are already validated acyclic.
func commitOrder(drafts []Draft) []int {
	visited := make([]bool, len(drafts))
	var order []int

	var visit func(i int)
	visit = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true
		for _, dep := range drafts[i].DependsOn {
			visit(dep)
		}
		order = append(order, i)
	}

	for i := range drafts {
		visit(i)
	}
	return order
}

func (g *Generator) embedDraft(ctx context.Context, draft Draft) ([]float32, error) {
	pending := models.Task{
		Description: strings.TrimSpace(draft.Description),
		Date:        draft.Date,
		Time:        draft.Time,
	}

	var vec []float32
	err := llm.Do(ctx, g.retry, func(ctx context.Context) error {
		var err error
		vec, err = g.embedder.Embed(ctx, pending.EmbedText())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("embed draft %q: %w", draft.Description, err)
	}
	return vec, nil
}
