package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/tinypy/internal/ir"
)

// CycleWarning represents a recursive call chain between functions.
//
// Tiny functions have no conditionals, so any call cycle that is reached
// never terminates. Cycles are still warnings because an unreached function
// is harmless.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning"
}

// AnalyzeCalls performs static cycle analysis on the call graph of a
// high-level module.
//
// The algorithm:
//  1. Build function → callee graph from non-builtin calls to functions the
//     module defines
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a cycle warning
//
// Warnings come out in a stable order determined by function order.
func AnalyzeCalls(mod *ir.Node) []CycleWarning {
	g := buildCallGraph(mod)
	if len(g.order) == 0 {
		return []CycleWarning{}
	}

	var warnings []CycleWarning
	for _, scc := range tarjanSCC(g) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], g)) {
			warnings = append(warnings, cycleSCCToWarning(scc, g))
		}
	}
	return warnings
}

// callGraph maps function name → functions it calls, in call order.
type callGraph struct {
	order []string
	edges map[string][]string
}

func buildCallGraph(mod *ir.Node) callGraph {
	g := callGraph{edges: map[string][]string{}}
	if mod == nil || mod.Kind != ir.KindModule {
		return g
	}

	funcs := mod.Children(0)
	defined := make(map[string]bool, len(funcs))
	for _, fn := range funcs {
		defined[fn.StringAttr("fn_name")] = true
	}

	for _, fn := range funcs {
		name := fn.StringAttr("fn_name")
		if _, seen := g.edges[name]; !seen {
			g.order = append(g.order, name)
			g.edges[name] = []string{}
		}
		ir.Walk(fn, func(n *ir.Node) bool {
			if n.Kind == ir.KindCall && !n.BoolAttr("builtin") {
				callee := n.StringAttr("func")
				if defined[callee] && !slices.Contains(g.edges[name], callee) {
					g.edges[name] = append(g.edges[name], callee)
				}
			}
			return true
		})
	}
	return g
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, g callGraph) bool {
	return slices.Contains(g.edges[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
func tarjanSCC(g callGraph) [][]string {
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
			// Start the reported cycle at the SCC member declared first.
			slices.SortStableFunc(scc, func(a, b string) int {
				return slices.Index(g.order, a) - slices.Index(g.order, b)
			})
			sccs = append(sccs, scc)
		}
	}

	for _, node := range g.order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

func cycleSCCToWarning(scc []string, g callGraph) CycleWarning {
	if len(scc) == 1 {
		name := scc[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("Self-recursive function: %s → %s", name, name),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, g)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Recursive call cycle: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at first node in SCC, follow edges to other SCC members,
// continue until we return to start node.
func reconstructCyclePath(scc []string, g callGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range g.edges[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
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
