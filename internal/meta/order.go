package meta

import (
	"fmt"
	"slices"
	"strings"
)

// DependencyCycleError is returned by Order when calculators read each
// other's keys in a cycle.
type DependencyCycleError struct {
	// Path is the cycle as a key sequence, e.g. [a b a].
	Path []Key
}

// Error implements the error interface.
func (e *DependencyCycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, k := range e.Path {
		parts[i] = string(k)
	}
	return fmt.Sprintf("calculator dependency cycle: %s", strings.Join(parts, " → "))
}

// Order returns calcs arranged so that a calculator reading key K runs
// after the calculator writing K. Reading one's own key is allowed and
// creates no dependency. Among calculators with no constraint between
// them, the input order is kept.
//
// Two calculators writing the same key is an error; so is a cycle.
func Order(calcs []Calculator) ([]Calculator, error) {
	writer := make(map[Key]int, len(calcs))
	for i, c := range calcs {
		if j, dup := writer[c.Key()]; dup {
			return nil, fmt.Errorf("meta: key %q written by calculators %d and %d", c.Key(), j, i)
		}
		writer[c.Key()] = i
	}

	// graph: writer index → reader indices
	graph := make([][]int, len(calcs))
	indegree := make([]int, len(calcs))
	for i, c := range calcs {
		for _, k := range c.Requires().Keys() {
			w, ok := writer[k]
			if !ok || w == i {
				continue
			}
			graph[w] = append(graph[w], i)
			indegree[i]++
		}
	}

	ordered := make([]Calculator, 0, len(calcs))
	done := make([]bool, len(calcs))
	for len(ordered) < len(calcs) {
		next := -1
		for i := range calcs {
			if !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			return nil, &DependencyCycleError{Path: findCycle(calcs, graph, done)}
		}
		done[next] = true
		ordered = append(ordered, calcs[next])
		for _, r := range graph[next] {
			indegree[r]--
		}
	}
	return ordered, nil
}

// findCycle walks predecessors among the unfinished nodes. Each of them
// still has an unfinished writer, so the walk must revisit a node.
func findCycle(calcs []Calculator, graph [][]int, done []bool) []Key {
	predecessor := func(n int) int {
		for w, readers := range graph {
			if !done[w] && slices.Contains(readers, n) {
				return w
			}
		}
		return -1
	}

	seen := make(map[int]int)
	var path []int
	for cur := slices.Index(done, false); cur >= 0; cur = predecessor(cur) {
		if at, ok := seen[cur]; ok {
			path = append(path[at:], cur)
			break
		}
		seen[cur] = len(path)
		path = append(path, cur)
	}
	slices.Reverse(path)

	keys := make([]Key, len(path))
	for i, n := range path {
		keys[i] = calcs[n].Key()
	}
	return keys
}
