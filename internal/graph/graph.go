package graph

import (
	"slices"

	"github.com/junioryono/chaindi/internal/reflection"
	"github.com/junioryono/chaindi/internal/registry"
)

// Edge is one dependency of a registration: the parameter that asks for it
// and the registration serving it.
type Edge struct {
	To        registry.Registration
	Parameter reflection.Parameter
}

// DependencyGraph is the static dependency structure between registrations,
// built from their constructor parameters. Nodes are registrations rather than
// keys: the same key may be served by different registrations in different scopes.
//
// A DependencyGraph is not safe for concurrent mutation.
type DependencyGraph struct {
	nodes []registry.Registration
	index map[registry.Registration]int
	edges map[registry.Registration][]Edge
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		index: make(map[registry.Registration]int),
		edges: make(map[registry.Registration][]Edge),
	}
}

// AddNode adds reg and reports whether it was new.
func (g *DependencyGraph) AddNode(reg registry.Registration) bool {
	if _, ok := g.index[reg]; ok {
		return false
	}
	g.index[reg] = len(g.nodes)
	g.nodes = append(g.nodes, reg)
	return true
}

// AddEdge records that from depends on to through param. Both are added as
// nodes if needed.
func (g *DependencyGraph) AddEdge(from, to registry.Registration, param reflection.Parameter) {
	g.AddNode(from)
	g.AddNode(to)
	g.edges[from] = append(g.edges[from], Edge{To: to, Parameter: param})
}

// Nodes returns the registrations in insertion order.
func (g *DependencyGraph) Nodes() []registry.Registration {
	return slices.Clone(g.nodes)
}

// Dependencies returns the outgoing edges of reg in parameter order.
func (g *DependencyGraph) Dependencies(reg registry.Registration) []Edge {
	return slices.Clone(g.edges[reg])
}

// Dependents returns the registrations that depend on reg.
func (g *DependencyGraph) Dependents(reg registry.Registration) []registry.Registration {
	var out []registry.Registration
	for _, from := range g.nodes {
		for _, e := range g.edges[from] {
			if e.To == reg {
				out = append(out, from)
				break
			}
		}
	}
	return out
}

// Size returns the number of nodes.
func (g *DependencyGraph) Size() int {
	return len(g.nodes)
}

// TopologicalSort returns the nodes with every dependency before its
// dependents. It fails with a *CycleError when the graph is cyclic.
func (g *DependencyGraph) TopologicalSort() ([]registry.Registration, error) {
	// Kahn's algorithm over the reversed edges: a node is ready once all of
	// its dependencies have been emitted.
	pending := make([]int, len(g.nodes))
	for i, n := range g.nodes {
		pending[i] = len(g.edges[n])
	}

	var queue []registry.Registration
	for i, n := range g.nodes {
		if pending[i] == 0 {
			queue = append(queue, n)
		}
	}

	result := make([]registry.Registration, 0, len(g.nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		for _, dependent := range g.nodes {
			for _, e := range g.edges[dependent] {
				if e.To != current {
					continue
				}
				i := g.index[dependent]
				pending[i]--
				if pending[i] == 0 {
					queue = append(queue, dependent)
				}
			}
		}
	}

	if len(result) != len(g.nodes) {
		return nil, &CycleError{Path: g.FindCycle()}
	}
	return result, nil
}

// FindCycle returns the nodes of one cycle in dependency order, starting
// from the earliest inserted node on it, or nil when the graph is acyclic.
func (g *DependencyGraph) FindCycle() []registry.Registration {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[registry.Registration]int, len(g.nodes))
	var stack []registry.Registration

	var visit func(n registry.Registration) []registry.Registration
	visit = func(n registry.Registration) []registry.Registration {
		state[n] = visiting
		stack = append(stack, n)

		for _, e := range g.edges[n] {
			switch state[e.To] {
			case visiting:
				start := slices.Index(stack, e.To)
				return slices.Clone(stack[start:])
			case unvisited:
				if cycle := visit(e.To); cycle != nil {
					return cycle
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[n] = done
		return nil
	}

	for _, n := range g.nodes {
		if state[n] == unvisited {
			if cycle := visit(n); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// IsAcyclic reports whether the graph has no cycles.
func (g *DependencyGraph) IsAcyclic() bool {
	return g.FindCycle() == nil
}

// Roots returns the nodes nothing depends on.
func (g *DependencyGraph) Roots() []registry.Registration {
	depended := make(map[registry.Registration]bool)
	for _, edges := range g.edges {
		for _, e := range edges {
			depended[e.To] = true
		}
	}

	var roots []registry.Registration
	for _, n := range g.nodes {
		if !depended[n] {
			roots = append(roots, n)
		}
	}
	return roots
}

// Depths returns, for every node, the length of its longest dependency
// chain. Leaves have depth 0. Nodes on a cycle are omitted.
func (g *DependencyGraph) Depths() map[registry.Registration]int {
	sorted, err := g.TopologicalSort()
	if err != nil {
		return nil
	}

	depths := make(map[registry.Registration]int, len(sorted))
	for _, n := range sorted {
		d := 0
		for _, e := range g.edges[n] {
			d = max(d, depths[e.To]+1)
		}
		depths[n] = d
	}
	return depths
}
