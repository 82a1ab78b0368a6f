package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nicsuzor/aops/pkg/models"
)

func graphOf(tasks ...*models.Task) map[string]*models.Task {
	out := make(map[string]*models.Task, len(tasks))
	for _, t := range tasks {
		out[t.ID] = t
	}
	return out
}

func node(id string, deps ...string) *models.Task {
	return &models.Task{ID: id, DependsOn: deps}
}

func TestRecomputeDiamond(t *testing.T) {
	// d depends on b and c, both depend on a. Finishing a unblocks
	// b, c and (transitively) d; d itself unblocks nothing.
	all := graphOf(
		node("a"),
		node("b", "a"),
		node("c", "a"),
		node("d", "b", "c"),
	)

	w := NewWeightResolver(models.WeightConfig{}).Recompute(all)
	want := map[string]int{"a": 3, "b": 1, "c": 1, "d": 0}
	for id, n := range want {
		if w[id] != n {
			t.Errorf("weight[%s] = %d, want %d", id, w[id], n)
		}
	}
}

func TestRecomputeCountsEachTaskOnce(t *testing.T) {
	// d is downstream of a via two paths; it must count once.
	all := graphOf(
		node("a"),
		node("b", "a"),
		node("c", "a"),
		node("d", "b", "c"),
	)
	w := NewWeightResolver(models.WeightConfig{}).Recompute(all)
	if w["a"] != 3 {
		t.Fatalf("weight[a] = %d, want 3 (diamond counted twice?)", w["a"])
	}
}

func TestRecomputeSoftEdges(t *testing.T) {
	a := node("a")
	b := &models.Task{ID: "b", SoftDependsOn: []string{"a"}}

	withSoft := NewWeightResolver(models.WeightConfig{IncludeSoft: true}).Recompute(graphOf(a, b))
	if withSoft["a"] != 1 {
		t.Errorf("with soft edges weight[a] = %d, want 1", withSoft["a"])
	}

	withoutSoft := NewWeightResolver(models.WeightConfig{}).Recompute(graphOf(a, b))
	if withoutSoft["a"] != 0 {
		t.Errorf("without soft edges weight[a] = %d, want 0", withoutSoft["a"])
	}
}

func TestRecomputeTerminatesOnSoftCycle(t *testing.T) {
	a := &models.Task{ID: "a", SoftDependsOn: []string{"b"}}
	b := &models.Task{ID: "b", SoftDependsOn: []string{"a"}}

	w := NewWeightResolver(models.WeightConfig{IncludeSoft: true}).Recompute(graphOf(a, b))
	// Each unblocks the other, never itself.
	if w["a"] != 1 || w["b"] != 1 {
		t.Errorf("weights = %v, want a=1 b=1", w)
	}
}

func TestValidateAcyclic(t *testing.T) {
	ok := graphOf(node("a"), node("b", "a"), node("c", "b"))
	if err := ValidateAcyclic(ok); err != nil {
		t.Fatalf("acyclic graph rejected: %v", err)
	}

	cyclic := graphOf(node("a", "c"), node("b", "a"), node("c", "b"))
	err := ValidateAcyclic(cyclic)
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("err = %v, want ErrCycleDetected", err)
	}
	if !strings.Contains(err.Error(), "->") {
		t.Errorf("cycle error %q should name the path", err)
	}
}

func TestValidateAcyclicIgnoresSoftEdges(t *testing.T) {
	a := &models.Task{ID: "a", SoftDependsOn: []string{"b"}}
	b := &models.Task{ID: "b", SoftDependsOn: []string{"a"}}
	if err := ValidateAcyclic(graphOf(a, b)); err != nil {
		t.Fatalf("soft cycle rejected: %v", err)
	}
}

func TestValidateAcyclicSelfLoop(t *testing.T) {
	if err := ValidateAcyclic(graphOf(node("a", "a"))); !errors.Is(err, ErrCycleDetected) {
		t.Fatal("self-dependency should be a cycle")
	}
}

func TestSortReadyOrder(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(id string, p models.Priority, weight int, created time.Time) *models.Task {
		return &models.Task{ID: id, Title: id, Priority: p, DownstreamWeight: weight, Created: created}
	}

	tasks := []*models.Task{
		mk("w5", models.P2, 5, base),
		mk("w1", models.P1, 1, base),
		mk("w9", models.P2, 9, base),
	}
	sortReady(tasks)

	// Priority dominates weight: the P1 task leads even at weight 1.
	wantOrder := []string{"w1", "w9", "w5"}
	for i, id := range wantOrder {
		if tasks[i].ID != id {
			t.Fatalf("position %d = %s, want %s (full order %v)", i, tasks[i].ID, id, taskIDs(tasks))
		}
	}
}

func TestSortReadyInsertionTiebreak(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	older := &models.Task{ID: "zz", Title: "zz", Priority: models.P2, Created: base}
	newer := &models.Task{ID: "aa", Title: "aa", Priority: models.P2, Created: base.Add(time.Minute)}

	tasks := []*models.Task{newer, older}
	sortReady(tasks)
	if tasks[0].ID != "zz" {
		t.Fatalf("older task should sort first, got %v", taskIDs(tasks))
	}
}

func taskIDs(tasks []*models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}
