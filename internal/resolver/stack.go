package resolver

import (
	"reflect"

	"github.com/junioryono/chaindi/internal/registry"
)

// Stack is the registry of a scope followed by its ancestors' registries,
// innermost first. A key registered in an inner registry shadows the same
// key further out.
type Stack struct {
	registries []*registry.Registry
}

// NewStack puts own in front of parent's registries. parent may be nil.
func NewStack(own *registry.Registry, parent *Stack) *Stack {
	regs := []*registry.Registry{own}
	if parent != nil {
		regs = append(regs, parent.registries...)
	}
	return &Stack{registries: regs}
}

// Registries returns the registries, innermost first.
func (s *Stack) Registries() []*registry.Registry {
	return s.registries
}

// Contains reports whether any registry in the stack serves key exactly.
func (s *Stack) Contains(key registry.Key) bool {
	for _, r := range s.registries {
		if r.Contains(key) {
			return true
		}
	}
	return false
}

// All returns the visible registrations of serviceType, outermost scope
// first and in registration order within a scope.
func (s *Stack) All(serviceType reflect.Type) []registry.Registration {
	seen := make(map[registry.Key]bool)
	var layers [][]registry.Registration

	for _, r := range s.registries {
		var layer []registry.Registration
		for _, reg := range r.GetAll(serviceType) {
			if seen[reg.Key()] {
				continue
			}
			seen[reg.Key()] = true
			layer = append(layer, reg)
		}
		layers = append(layers, layer)
	}

	var all []registry.Registration
	for i := len(layers) - 1; i >= 0; i-- {
		all = append(all, layers[i]...)
	}
	return all
}

// Named returns the visible named registrations of serviceType.
func (s *Stack) Named(serviceType reflect.Type) []registry.Registration {
	var named []registry.Registration
	for _, reg := range s.All(serviceType) {
		if reg.Name() != "" {
			named = append(named, reg)
		}
	}
	return named
}
