package graph

import (
	"errors"
	"testing"

	"github.com/antavlouros/tempo/pkg/models"
)

func task(id string, deps ...string) *models.Task {
	return &models.Task{
		ID:          id,
		Description: "task " + id,
		Status:      models.StatusPending,
		DependsOn:   deps,
	}
}

func TestBuildSimpleChain(t *testing.T) {
	g := New()
	err := g.Build([]*models.Task{
		task("a"),
		task("b", "a"),
		task("c", "b"),
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(g.nodes) != 3 {
		t.Errorf("nodes = %d, want 3", len(g.nodes))
	}
	if deps := g.edges["c"]; len(deps) != 1 || deps[0] != "b" {
		t.Errorf("edges[c] = %v", deps)
	}
}

func TestBuildDetectsCycle(t *testing.T) {
	g := New()
	err := g.Build([]*models.Task{
		task("a", "c"),
		task("b", "a"),
		task("c", "b"),
	})
	if !errors.Is(err, ErrCycleDetected) {
		t.Errorf("err = %v, want ErrCycleDetected", err)
	}
}

func TestBuildRejectsUnknownDependency(t *testing.T) {
	g := New()
	err := g.Build([]*models.Task{task("a", "ghost")})
	if err == nil {
		t.Error("expected error for unknown dependency")
	}
}

func TestAddEdgeRejectsCycle(t *testing.T) {
	g := New()
	if err := g.Build([]*models.Task{task("a"), task("b", "a")}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if err := g.AddEdge("a", "b"); !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("err = %v, want ErrCycleDetected", err)
	}
	// The rejected edge must not linger.
	if deps := g.edges["a"]; len(deps) != 0 {
		t.Errorf("edges[a] = %v, want empty", deps)
	}
}

func TestAddEdgeRejectsSelfLoop(t *testing.T) {
	g := New()
	if err := g.Build([]*models.Task{task("a")}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := g.AddEdge("a", "a"); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("err = %v, want ErrCycleDetected", err)
	}
}

func TestGetTask(t *testing.T) {
	g := New()
	if err := g.Build([]*models.Task{task("a")}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := g.GetTask("a"); got == nil || got.ID != "a" {
		t.Errorf("GetTask(a) = %v", got)
	}
	if got := g.GetTask("ghost"); got != nil {
		t.Errorf("GetTask(ghost) = %v, want nil", got)
	}
}
