package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/loadplan/internal/ir"
)

// CycleWarning describes a cycle in the association graph of a metamodel.
//
// Cycles are legal mapping metadata (self-referencing hierarchies,
// bidirectional associations). The plan builder closes them with a join back
// to the already visited space; the warning tells the mapping author where
// that will happen.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["Employee", "Employee"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // always "info"
}

// AnalyzeCycles finds cycles in the association graph of m.
//
// The algorithm:
//  1. Build descriptor → target edges from association attributes,
//     inherited attributes included
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop
//
// Nodes are visited in metamodel order and edges in declared attribute
// order, so the result is deterministic. Dangling targets are ignored;
// Validate reports them.
func AnalyzeCycles(m *ir.Metamodel) []CycleWarning {
	warnings := []CycleWarning{}
	if m == nil || m.Len() == 0 {
		return warnings
	}

	graph := buildAssociationGraph(m)
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	return warnings
}

// associationGraph maps descriptor key → target keys, plus the node order.
type associationGraph struct {
	nodes []string
	edges map[string][]string
}

func buildAssociationGraph(m *ir.Metamodel) associationGraph {
	g := associationGraph{edges: make(map[string][]string)}
	for _, d := range m.Descriptors() {
		g.nodes = append(g.nodes, d.Key)
		attrs, err := m.Attributes(d.Key)
		if err != nil {
			attrs = d.Attributes
		}
		targets := []string{}
		for _, a := range attrs {
			if !a.IsAssociation() {
				continue
			}
			if _, ok := m.Lookup(a.Target); !ok {
				continue
			}
			targets = append(targets, a.Target)
		}
		g.edges[d.Key] = targets
	}
	return g
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, g associationGraph) bool {
	for _, neighbor := range g.edges[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, each in discovery order (the SCC root first).
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(g associationGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and emit an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			// popped in reverse discovery order
			for i, j := 0, len(scc)-1; i < j; i, j = i+1, j-1 {
				scc[i], scc[j] = scc[j], scc[i]
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range g.nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
func cycleSCCToWarning(scc []string, g associationGraph) CycleWarning {
	if len(scc) == 1 {
		key := scc[0]
		return CycleWarning{
			Path:    []string{key, key},
			Message: fmt.Sprintf("Self-referencing association: %s → %s", key, key),
			Level:   "info",
		}
	}

	path := reconstructCyclePath(scc, g)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Association cycle: %s", strings.Join(path, " → ")),
		Level:   "info",
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: depth-first search from the first node of the SCC, restricted to
// SCC members, until an edge leads back to the start. The path begins and
// ends with the start node.
func reconstructCyclePath(scc []string, g associationGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	parent := make(map[string]string)
	visited := map[string]bool{start: true}
	var last string

	var search func(string) bool
	search = func(v string) bool {
		for _, w := range g.edges[v] {
			if !sccSet[w] {
				continue
			}
			if w == start {
				last = v
				return true
			}
			if visited[w] {
				continue
			}
			visited[w] = true
			parent[w] = v
			if search(w) {
				return true
			}
		}
		return false
	}
	if !search(start) {
		return []string{start}
	}

	// Walk parents back from the closing node, then reverse.
	path := []string{start}
	for v := last; v != start; v = parent[v] {
		path = append(path, v)
	}
	path = append(path, start)
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
