package graph

import (
	"fmt"
	"strings"

	"github.com/junioryono/chaindi/internal/registry"
)

// CycleError reports registrations that depend on each other in a cycle.
type CycleError struct {
	Path []registry.Registration
}

func (e *CycleError) Error() string {
	var b strings.Builder
	b.WriteString("dependency cycle detected:\n\n")

	for _, reg := range e.Path {
		b.WriteString(fmt.Sprintf("    %s\n", reg.Key()))
		b.WriteString("      ↓\n")
	}
	if len(e.Path) > 0 {
		b.WriteString(fmt.Sprintf("    %s (cycle)\n", e.Path[0].Key()))
	}

	return b.String()
}
