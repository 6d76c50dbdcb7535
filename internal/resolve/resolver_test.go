package resolve

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/antavlouros/tempo/internal/store"
	"github.com/antavlouros/tempo/pkg/models"
)

// fakeEmbedder returns canned vectors keyed by text.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f *fakeEmbedder) Name() string { return "fake" }

func openTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func addTask(t *testing.T, s store.Store, id, desc string, vec []float32) {
	t.Helper()
	err := s.Add(context.Background(), &models.Task{
		ID:          id,
		Description: desc,
		Status:      models.StatusPending,
		Embedding:   vec,
	})
	if err != nil {
		t.Fatalf("Add %s failed: %v", id, err)
	}
}

func TestParseIndexes(t *testing.T) {
	tests := []struct {
		expr string
		n    int
		want []int
	}{
		{"1", 5, []int{0}},
		{"1-3", 5, []int{0, 1, 2}},
		{"1-3,5", 5, []int{0, 1, 2, 4}},
		{"2, 4", 5, []int{1, 3}},
		{"3,3,3", 5, []int{2}},
	}
	for _, tt := range tests {
		got, err := ParseIndexes(tt.expr, tt.n)
		if err != nil {
			t.Errorf("ParseIndexes(%q) failed: %v", tt.expr, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseIndexes(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestParseIndexesErrors(t *testing.T) {
	for _, expr := range []string{"", "0", "6", "1-9", "3-1", "a", "1-b", ","} {
		if _, err := ParseIndexes(expr, 5); err == nil {
			t.Errorf("ParseIndexes(%q) succeeded, want error", expr)
		}
	}
}

func TestExtractIDsVerifiesAgainstStore(t *testing.T) {
	s := openTestStore(t)
	known := "3f2504e0-4f89-41d3-9a0c-0305e82c3301"
	addTask(t, s, known, "known task", []float32{1})

	r := New(s, &fakeEmbedder{}, 5, 0.05)
	text := "mark " + known + " done, and also 99999999-9999-4999-9999-999999999999"
	ids, err := r.ExtractIDs(context.Background(), text)
	if err != nil {
		t.Fatalf("ExtractIDs failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != known {
		t.Errorf("ids = %v, want [%s]", ids, known)
	}
}

func TestExtractIDsNoIDs(t *testing.T) {
	s := openTestStore(t)
	r := New(s, &fakeEmbedder{}, 5, 0.05)
	ids, err := r.ExtractIDs(context.Background(), "the dentist one")
	if err != nil {
		t.Fatalf("ExtractIDs failed: %v", err)
	}
	if ids != nil {
		t.Errorf("ids = %v, want nil", ids)
	}
}

func TestSemanticSingleClearMatch(t *testing.T) {
	s := openTestStore(t)
	addTask(t, s, "dentist", "dentist appointment", []float32{1, 0, 0})
	addTask(t, s, "groceries", "buy groceries", []float32{0, 1, 0})

	emb := &fakeEmbedder{vectors: map[string][]float32{
		"the dentist one": {0.99, 0.05, 0},
	}}
	r := New(s, emb, 5, 0.05)

	task, err := r.Semantic(context.Background(), "the dentist one")
	if err != nil {
		t.Fatalf("Semantic failed: %v", err)
	}
	if task.ID != "dentist" {
		t.Errorf("resolved %s, want dentist", task.ID)
	}
}

func TestSemanticAmbiguous(t *testing.T) {
	s := openTestStore(t)
	// Two nearly identical tasks; any query near them is ambiguous.
	addTask(t, s, "call-mom", "call mom", []float32{1, 0, 0})
	addTask(t, s, "call-dad", "call dad", []float32{0.999, 0.01, 0})

	emb := &fakeEmbedder{vectors: map[string][]float32{
		"the call": {1, 0, 0},
	}}
	r := New(s, emb, 5, 0.05)

	_, err := r.Semantic(context.Background(), "the call")
	var ambiguous *AmbiguousError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("err = %v, want AmbiguousError", err)
	}
	if len(ambiguous.Candidates) != 2 {
		t.Errorf("candidates = %d, want 2", len(ambiguous.Candidates))
	}
	if ambiguous.Candidates[0].Score < ambiguous.Candidates[1].Score {
		t.Error("candidates not ordered best first")
	}
}

func TestSemanticEmptyStore(t *testing.T) {
	s := openTestStore(t)
	r := New(s, &fakeEmbedder{}, 5, 0.05)

	_, err := r.Semantic(context.Background(), "anything")
	if !errors.Is(err, ErrNoMatch) {
		t.Errorf("err = %v, want ErrNoMatch", err)
	}
}

func TestNearBoundaryInclusive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	onEdge := &models.Task{
		ID: "edge", Description: "exactly one hour out",
		Date: "2025-03-10", Time: "13:00",
		Status: models.StatusPending, Embedding: []float32{1},
	}
	outside := &models.Task{
		ID: "outside", Description: "just past the window",
		Date: "2025-03-10", Time: "13:01",
		Status: models.StatusPending, Embedding: []float32{1},
	}
	past := &models.Task{
		ID: "past", Description: "half an hour ago",
		Date: "2025-03-10", Time: "11:30",
		Status: models.StatusPending, Embedding: []float32{1},
	}
	unscheduled := &models.Task{
		ID: "floating", Description: "no schedule",
		Status: models.StatusPending, Embedding: []float32{1},
	}
	for _, task := range []*models.Task{onEdge, outside, past, unscheduled} {
		if err := s.Add(ctx, task); err != nil {
			t.Fatalf("Add %s failed: %v", task.ID, err)
		}
	}

	r := New(s, &fakeEmbedder{}, 5, 0.05)
	near, err := r.Near(ctx, now, time.Hour)
	if err != nil {
		t.Fatalf("Near failed: %v", err)
	}

	got := make(map[string]bool)
	for _, task := range near {
		got[task.ID] = true
	}
	if !got["edge"] {
		t.Error("task exactly on the boundary excluded")
	}
	if !got["past"] {
		t.Error("recent past task excluded")
	}
	if got["outside"] {
		t.Error("task past the window included")
	}
	if got["floating"] {
		t.Error("unscheduled task included")
	}
}
