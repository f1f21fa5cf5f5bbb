package resolver

import (
	"reflect"

	"github.com/junioryono/chaindi/internal/registry"
)

// Path is the immutable chain of registrations currently being resolved,
// ordered caller to callee. The nil *Path is the empty path.
type Path struct {
	reg    registry.Registration
	parent *Path
	depth  int
}

// IsEmpty reports whether no resolution is in progress.
func (p *Path) IsEmpty() bool {
	return p == nil
}

// Len returns the number of registrations on the path.
func (p *Path) Len() int {
	if p == nil {
		return 0
	}
	return p.depth
}

// Append returns a new path with reg as the innermost entry. p is unchanged.
func (p *Path) Append(reg registry.Registration) *Path {
	return &Path{reg: reg, parent: p, depth: p.Len() + 1}
}

// Last returns the innermost registration, or nil for the empty path.
func (p *Path) Last() registry.Registration {
	if p == nil {
		return nil
	}
	return p.reg
}

// Contains reports whether the path holds a registration matching reg.
func (p *Path) Contains(reg registry.Registration) bool {
	for n := p; n != nil; n = n.parent {
		if registry.Matches(n.reg, reg) {
			return true
		}
	}
	return false
}

// Registrations returns the path entries, outermost first.
func (p *Path) Registrations() []registry.Registration {
	regs := make([]registry.Registration, p.Len())
	for n := p; n != nil; n = n.parent {
		regs[n.depth-1] = n.reg
	}
	return regs
}

// Keys returns the keys of the path entries, outermost first.
func (p *Path) Keys() []registry.Key {
	regs := p.Registrations()
	keys := make([]registry.Key, len(regs))
	for i, reg := range regs {
		keys[i] = reg.Key()
	}
	return keys
}

// Frames renders the path for error reports.
func (p *Path) Frames() []ResolutionFrame {
	regs := p.Registrations()
	if len(regs) == 0 {
		return nil
	}

	frames := make([]ResolutionFrame, len(regs))
	for i, reg := range regs {
		frames[i] = ResolutionFrame{
			ServiceType:        reg.ServiceType(),
			Name:               reg.Name(),
			ImplementationType: reg.ImplementationType(),
			Multiplicity:       reg.Multiplicity(),
		}
	}
	return frames
}

// Request describes what is being asked for in the context of what is
// already being resolved.
type Request struct {
	ServiceType reflect.Type
	Name        string
	Path        *Path

	// ExactName disables the fallback from a missing named registration to
	// the unnamed one, so the request reaches the scope that owns the name.
	ExactName bool
}

// NewRequest creates a request for serviceType and name on path.
func NewRequest(serviceType reflect.Type, name string, path *Path) Request {
	return Request{ServiceType: serviceType, Name: name, Path: path}
}

// Key returns the registry key of the request.
func (r Request) Key() registry.Key {
	return registry.Key{ServiceType: r.ServiceType, Name: r.Name}
}

// WithExactName returns a copy of the request that only matches its own name.
func (r Request) WithExactName() Request {
	r.ExactName = true
	return r
}

// WithoutName returns a copy of the request for the unnamed registration.
func (r Request) WithoutName() Request {
	r.Name = ""
	return r
}

// Result is the outcome flowing back out of the resolver chain. A failed
// result carries no object, only the path at the point of failure.
type Result struct {
	Success bool
	Object  any
	Path    *Path
}

// Succeeded creates a successful result.
func Succeeded(object any, path *Path) Result {
	return Result{Success: true, Object: object, Path: path}
}

// Failed creates a failed result.
func Failed(path *Path) Result {
	return Result{Path: path}
}
