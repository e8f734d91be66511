package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/puzzlebox/internal/ir"
)

// CycleWarning represents a potential re-trigger loop between puzzles.
//
// Cycles are warnings, not errors, because they may be intentional:
//   - A puzzle that re-arms itself to poll a timer
//   - Two switches that flip each other on alternate ticks
type CycleWarning struct {
	Path    []uint32 `json:"path"`    // Cycle path: [100, 101, 100]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles performs static dependency analysis on a script's puzzles.
//
// Puzzle A depends on puzzle B when one of B's results writes a state key
// that A's criteria read, so B firing can re-queue A. The algorithm:
//  1. Build puzzle → puzzles-it-may-trigger graph from results and criteria
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a potential cycle warning
//
// A DAG (no cycles) returns an empty warning list. Warnings are ordered by
// the smallest puzzle key in each cycle.
func AnalyzeCycles(script *ir.Script) []CycleWarning {
	if script == nil || len(script.Puzzles) == 0 {
		return []CycleWarning{}
	}

	graph := buildDependencyGraph(script.Puzzles)
	sccs := tarjanSCC(graph)

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	slices.SortFunc(warnings, func(a, b CycleWarning) int {
		return int(slices.Min(a.Path)) - int(slices.Min(b.Path))
	})
	return warnings
}

// dependencyGraph maps puzzle key → puzzle keys that could be re-queued.
// nodes keeps script order so traversal is deterministic.
type dependencyGraph struct {
	nodes []uint32
	edges map[uint32][]uint32
}

// buildDependencyGraph constructs the puzzle dependency graph.
//
// For each puzzle:
//   - Collect the state keys its results write
//   - Find all puzzles whose criteria read one of those keys
//   - Add edges: this_puzzle → triggered_puzzles
func buildDependencyGraph(puzzles []ir.Puzzle) dependencyGraph {
	graph := dependencyGraph{edges: make(map[uint32][]uint32, len(puzzles))}

	// state key → puzzles reading it
	readers := make(map[uint32][]uint32)
	for _, p := range puzzles {
		for _, group := range p.Criteria {
			for _, entry := range group {
				readers[entry.Key] = appendUnique(readers[entry.Key], p.Key)
				if entry.ArgumentIsKey {
					k := uint32(entry.Argument)
					readers[k] = appendUnique(readers[k], p.Key)
				}
			}
		}
	}

	for _, p := range puzzles {
		if _, seen := graph.edges[p.Key]; !seen {
			graph.nodes = append(graph.nodes, p.Key)
			graph.edges[p.Key] = []uint32{}
		}
		for _, action := range p.Results {
			key, ok := writtenKey(action)
			if !ok {
				continue
			}
			for _, r := range readers[key] {
				graph.edges[p.Key] = appendUnique(graph.edges[p.Key], r)
			}
		}
	}

	return graph
}

// writtenKey reports the state key a result writes, directly or through the
// effect it starts.
func writtenKey(action ir.Action) (uint32, bool) {
	switch a := action.(type) {
	case ir.Assign:
		return a.Key, true
	case ir.Add:
		return a.Key, true
	case ir.Random:
		return a.Key, true
	case ir.Timer:
		return a.Key, true
	case ir.Music:
		return a.Key, true
	case ir.AnimPlay:
		return a.Key, true
	}
	return 0, false
}

func appendUnique(s []uint32, v uint32) []uint32 {
	if slices.Contains(s, v) {
		return s
	}
	return append(s, v)
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node uint32, graph dependencyGraph) bool {
	return slices.Contains(graph.edges[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, where each SCC is a list of puzzle keys.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph dependencyGraph) [][]uint32 {
	var (
		index   = 0
		stack   []uint32
		indices = make(map[uint32]int)
		lowlink = make(map[uint32]int)
		onStack = make(map[uint32]bool)
		sccs    [][]uint32
	)

	var strongConnect func(uint32)
	strongConnect = func(v uint32) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and emit an SCC
		if lowlink[v] == indices[v] {
			var scc []uint32
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range graph.nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
//
// For self-loops, the path is [key, key]. For multi-node cycles, the path
// starts at the smallest key and follows edges back to it.
func cycleSCCToWarning(scc []uint32, graph dependencyGraph) CycleWarning {
	if len(scc) == 1 {
		key := scc[0]
		return CycleWarning{
			Path:    []uint32{key, key},
			Message: fmt.Sprintf("Self-triggering puzzle detected: %d → %d", key, key),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, graph)
	parts := make([]string, len(path))
	for i, k := range path {
		parts[i] = fmt.Sprint(k)
	}
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Potential cycle detected: %s", strings.Join(parts, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath builds a cycle path from an SCC by following edges
// between SCC members until it returns to the start node.
func reconstructCyclePath(scc []uint32, graph dependencyGraph) []uint32 {
	if len(scc) == 0 {
		return []uint32{}
	}

	members := make(map[uint32]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := slices.Min(scc)
	current := start
	path := []uint32{current}
	visited := make(map[uint32]bool)

	for {
		visited[current] = true

		next, found := uint32(0), false
		for _, neighbor := range graph.edges[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next, found = neighbor, true
				break
			}
		}
		if !found {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
