package core

import (
	"fmt"
	"testing"

	"github.com/nicsuzor/aops/pkg/models"
	"pgregory.net/rapid"
)

// genDAG draws a random acyclic dependency graph: edges only point from
// higher-numbered tasks to lower-numbered ones.
func genDAG(t *rapid.T) map[string]*models.Task {
	n := rapid.IntRange(1, 20).Draw(t, "taskCount")
	all := make(map[string]*models.Task, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("T-%03d", i)
		task := &models.Task{ID: id}
		if i > 0 {
			depCount := rapid.IntRange(0, i).Draw(t, fmt.Sprintf("depCount%d", i))
			seen := make(map[int]bool)
			for d := 0; d < depCount; d++ {
				j := rapid.IntRange(0, i-1).Draw(t, fmt.Sprintf("dep%d_%d", i, d))
				if seen[j] {
					continue
				}
				seen[j] = true
				task.DependsOn = append(task.DependsOn, fmt.Sprintf("T-%03d", j))
			}
		}
		all[id] = task
	}
	return all
}

// TestPropertyWeightBounds verifies that every downstream weight is
// within [0, n-1] and that generated DAGs always validate as acyclic.
func TestPropertyWeightBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		all := genDAG(t)
		if err := ValidateAcyclic(all); err != nil {
			t.Fatalf("generated DAG rejected: %v", err)
		}

		weights := NewWeightResolver(models.WeightConfig{}).Recompute(all)
		for id, w := range weights {
			if w < 0 || w >= len(all) {
				t.Fatalf("weight[%s] = %d out of range for %d tasks", id, w, len(all))
			}
		}
	})
}

// TestPropertyWeightMonotonicUnderNewDependent verifies that adding a
// fresh task depending on an existing one never decreases any existing
// task's weight, and increases the direct dependency's weight by at
// least one.
func TestPropertyWeightMonotonicUnderNewDependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		all := genDAG(t)
		resolver := NewWeightResolver(models.WeightConfig{})
		before := resolver.Recompute(all)

		target := fmt.Sprintf("T-%03d", rapid.IntRange(0, len(all)-1).Draw(t, "target"))
		all["T-new"] = &models.Task{ID: "T-new", DependsOn: []string{target}}
		after := resolver.Recompute(all)

		for id, w := range before {
			if after[id] < w {
				t.Fatalf("weight[%s] dropped from %d to %d after adding a dependent", id, w, after[id])
			}
		}
		if after[target] < before[target]+1 {
			t.Fatalf("weight[%s] = %d, want at least %d", target, after[target], before[target]+1)
		}
	})
}

// TestPropertyCycleAlwaysDetected closes a random DAG into a cycle and
// verifies the validator rejects it.
func TestPropertyCycleAlwaysDetected(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		all := genDAG(t)
		if len(all) < 2 {
			return
		}
		// Edge from the sink end back to the source closes a cycle as
		// long as a forward path exists; force one to be sure.
		first := "T-000"
		last := fmt.Sprintf("T-%03d", len(all)-1)
		all[last].DependsOn = append(all[last].DependsOn, first)
		all[first].DependsOn = append(all[first].DependsOn, last)

		if err := ValidateAcyclic(all); err == nil {
			t.Fatal("cyclic graph accepted")
		}
	})
}
