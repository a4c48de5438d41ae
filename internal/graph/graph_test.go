package graph

import (
	"errors"
	"sort"
	"testing"

	"github.com/ShayCichocki/squad/pkg/models"
)

func task(id string, deps ...string) *models.Task {
	return &models.Task{ID: id, DependsOn: deps}
}

func TestBuild_UnknownDependency(t *testing.T) {
	g := New()
	err := g.Build([]*models.Task{task("a", "missing")})
	if err == nil {
		t.Fatal("Build() error = nil, want unknown dependency error")
	}
}

func TestBuild_CycleDetected(t *testing.T) {
	g := New()
	err := g.Build([]*models.Task{
		task("a", "b"),
		task("b", "c"),
		task("c", "a"),
	})
	if !errors.Is(err, ErrCycleDetected) {
		t.Errorf("Build() error = %v, want ErrCycleDetected", err)
	}
}

func TestBuild_SelfDependency(t *testing.T) {
	g := New()
	err := g.Build([]*models.Task{task("a", "a")})
	if !errors.Is(err, ErrCycleDetected) {
		t.Errorf("Build() error = %v, want ErrCycleDetected", err)
	}
}

func TestTopologicalSort(t *testing.T) {
	g := New()
	if err := g.Build([]*models.Task{
		task("c", "b"),
		task("b", "a"),
		task("a"),
	}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("TopologicalSort() error = %v", err)
	}
	if len(order) != 3 {
		t.Fatalf("TopologicalSort() length = %d, want 3", len(order))
	}

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	if pos["a"] > pos["b"] || pos["b"] > pos["c"] {
		t.Errorf("TopologicalSort() = %v, want a before b before c", order)
	}
}

func TestReady_Waves(t *testing.T) {
	g := New()
	if err := g.Build([]*models.Task{
		task("a"),
		task("b"),
		task("c", "a", "b"),
	}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	ready := g.Ready()
	sort.Strings(ready)
	if len(ready) != 2 || ready[0] != "a" || ready[1] != "b" {
		t.Fatalf("Ready() = %v, want [a b]", ready)
	}

	g.MarkComplete("a")
	ready = g.Ready()
	if len(ready) != 1 || ready[0] != "b" {
		t.Fatalf("Ready() after a = %v, want [b]", ready)
	}

	g.MarkComplete("b")
	ready = g.Ready()
	if len(ready) != 1 || ready[0] != "c" {
		t.Fatalf("Ready() after a,b = %v, want [c]", ready)
	}

	g.MarkComplete("c")
	if ready := g.Ready(); len(ready) != 0 {
		t.Errorf("Ready() after all complete = %v, want empty", ready)
	}
}

func TestTaskAndDependencies(t *testing.T) {
	g := New()
	want := task("a")
	if err := g.Build([]*models.Task{want, task("b", "a")}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if got := g.Task("a"); got != want {
		t.Errorf("Task(a) = %v, want %v", got, want)
	}
	if got := g.Task("missing"); got != nil {
		t.Errorf("Task(missing) = %v, want nil", got)
	}
	if deps := g.Dependencies("b"); len(deps) != 1 || deps[0] != "a" {
		t.Errorf("Dependencies(b) = %v, want [a]", deps)
	}
}
