package graph

import (
	"fmt"
	"io"
	"strings"

	"github.com/junioryono/chaindi/internal/reflection"
	"github.com/junioryono/chaindi/internal/registry"
)

// Visualizer renders a dependency graph.
type Visualizer struct {
	graph *DependencyGraph
}

// NewVisualizer creates a new graph visualizer
func NewVisualizer(graph *DependencyGraph) *Visualizer {
	return &Visualizer{graph: graph}
}

// WriteDOT writes the graph in Graphviz DOT format. Node IDs follow
// insertion order, so the output is stable for a given graph.
func (v *Visualizer) WriteDOT(w io.Writer) error {
	var b strings.Builder

	b.WriteString("digraph dependencies {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	for i, reg := range v.graph.nodes {
		fmt.Fprintf(&b, "  n%d [label=%q, fillcolor=%q, style=filled];\n",
			i, v.formatNodeLabel(reg), nodeColor(reg))
	}

	for i, from := range v.graph.nodes {
		for _, e := range v.graph.edges[from] {
			fmt.Fprintf(&b, "  n%d -> n%d;\n", i, v.graph.index[e.To])
		}
	}

	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteText writes the nodes grouped by dependency depth, leaves first.
func (v *Visualizer) WriteText(w io.Writer) error {
	var b strings.Builder

	b.WriteString("Dependency Graph:\n")
	b.WriteString("=================\n\n")

	depths := v.graph.Depths()
	if depths == nil {
		fmt.Fprintf(&b, "Warning: %v\n", &CycleError{Path: v.graph.FindCycle()})
		for _, reg := range v.graph.nodes {
			v.writeNodeDetails(&b, reg, "  ")
		}
	} else {
		maxDepth := 0
		for _, d := range depths {
			maxDepth = max(maxDepth, d)
		}

		for depth := 0; depth <= maxDepth && len(v.graph.nodes) > 0; depth++ {
			fmt.Fprintf(&b, "Level %d:\n", depth)
			b.WriteString("--------\n")
			for _, reg := range v.graph.nodes {
				if depths[reg] == depth {
					v.writeNodeDetails(&b, reg, "  ")
				}
			}
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "Total nodes: %d\n", v.graph.Size())
	fmt.Fprintf(&b, "Total edges: %d\n", v.countEdges())

	_, err := io.WriteString(w, b.String())
	return err
}

// formatNodeLabel creates a label for a node
func (v *Visualizer) formatNodeLabel(reg registry.Registration) string {
	label := reg.Key().String()
	if impl := reg.ImplementationType(); impl != nil && impl != reg.ServiceType() {
		label += "\n" + reflection.FormatType(impl)
	}
	return fmt.Sprintf("%s\n%s, %s", label, reg.Kind(), reg.Multiplicity())
}

func nodeColor(reg registry.Registration) string {
	switch {
	case reg.Kind() == registry.KindInstance:
		return "lightgray"
	case reg.Multiplicity() == registry.Shared:
		return "lightblue"
	default:
		return "lightyellow"
	}
}

func (v *Visualizer) writeNodeDetails(b *strings.Builder, reg registry.Registration, indent string) {
	fmt.Fprintf(b, "%s%s (%s)\n", indent, reg, reg.Multiplicity())

	if edges := v.graph.edges[reg]; len(edges) > 0 {
		deps := make([]string, len(edges))
		for i, e := range edges {
			deps[i] = e.To.Key().String()
		}
		fmt.Fprintf(b, "%s  Dependencies: [%s]\n", indent, strings.Join(deps, ", "))
	}
}

func (v *Visualizer) countEdges() int {
	count := 0
	for _, edges := range v.graph.edges {
		count += len(edges)
	}
	return count
}
