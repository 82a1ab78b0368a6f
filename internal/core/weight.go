package core

import (
	"fmt"
	"sort"

	"github.com/nicsuzor/aops/pkg/models"
)

// WeightResolver computes downstream weight: how many tasks become
// unblocked, directly or transitively, by finishing a given task. It
// walks the inverse dependency edges (blocks / soft_blocks) breadth
// first.
type WeightResolver struct {
	// includeSoft controls whether soft edges contribute to weight.
	// Soft dependency graphs may cycle legally either way; the visited
	// set guarantees termination.
	includeSoft bool
}

// NewWeightResolver creates a resolver with the given soft-edge policy.
func NewWeightResolver(cfg models.WeightConfig) *WeightResolver {
	return &WeightResolver{includeSoft: cfg.IncludeSoft}
}

// Recompute returns the downstream weight of every task in the graph.
func (r *WeightResolver) Recompute(all map[string]*models.Task) map[string]int {
	// Inverse adjacency: for each edge A depends_on B, B blocks A.
	blocks := make(map[string][]string, len(all))
	for id, t := range all {
		for _, dep := range t.DependsOn {
			blocks[dep] = append(blocks[dep], id)
		}
		if r.includeSoft {
			for _, dep := range t.SoftDependsOn {
				blocks[dep] = append(blocks[dep], id)
			}
		}
	}

	weights := make(map[string]int, len(all))
	for id := range all {
		weights[id] = bfsCount(id, blocks)
	}
	return weights
}

// bfsCount counts the nodes reachable from start along the blocks
// edges, excluding start itself.
func bfsCount(start string, blocks map[string][]string) int {
	visited := map[string]bool{start: true}
	queue := append([]string(nil), blocks[start]...)
	count := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		count++
		queue = append(queue, blocks[id]...)
	}
	return count
}

// ValidateAcyclic rejects any cycle in the hard dependency edges with
// ErrCycleDetected. Soft edges are not checked — they are allowed to
// cycle.
func ValidateAcyclic(all map[string]*models.Task) error {
	const (
		white = 0 // unvisited
		grey  = 1 // on the current DFS path
		black = 2 // finished
	)
	color := make(map[string]int, len(all))

	var visit func(id string, path []string) error
	visit = func(id string, path []string) error {
		color[id] = grey
		path = append(path, id)
		t := all[id]
		if t != nil {
			for _, dep := range t.DependsOn {
				switch color[dep] {
				case grey:
					return fmt.Errorf("%w: %s -> %s", ErrCycleDetected, joinPath(path), dep)
				case white:
					if err := visit(dep, path); err != nil {
						return err
					}
				}
			}
		}
		color[id] = black
		return nil
	}

	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if color[id] == white {
			if err := visit(id, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func joinPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += " -> "
		}
		out += p
	}
	return out
}

// sortReady orders tasks by (priority ASC, downstream weight DESC,
// created ASC, title ASC, id ASC). Priority dominates; weight only
// breaks ties within a priority band. The id tiebreak makes the order
// total.
func sortReady(tasks []*models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.DownstreamWeight != b.DownstreamWeight {
			return a.DownstreamWeight > b.DownstreamWeight
		}
		if !a.Created.Equal(b.Created) {
			return a.Created.Before(b.Created)
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})
}
