package chaindi

import (
	"errors"
	"io"
	"log/slog"
	"reflect"

	"github.com/junioryono/chaindi/internal/graph"
	"github.com/junioryono/chaindi/internal/registry"
	"github.com/junioryono/chaindi/internal/resolver"
)

// Validate checks the registrations visible from c without constructing
// anything: every registration must select a constructor, every required
// parameter must be served, and, when cycles are reported, no registrations
// may depend on each other in a cycle. All problems are joined.
//
// Dependencies decided at run time are not checked: named-instance
// dictionaries, the injected Resolver, registeredName parameters, and
// anything a constructor resolves on its own.
func (c *Container) Validate() error {
	if c.disposed.Load() {
		return ErrContainerDisposed
	}

	g, errs := c.dependencyGraph()

	if cycle := g.FindCycle(); cycle != nil && c.opts.ThrowOnCircularDependencies {
		var path *resolver.Path
		for _, reg := range cycle {
			path = path.Append(reg)
		}
		errs = append(errs, &CircularDependencyError{
			ServiceType: cycle[0].ServiceType(),
			Name:        cycle[0].Name(),
			Chain:       path.Frames(),
		})
	}

	if err := errors.Join(errs...); err != nil {
		c.logger.Warn("validation failed", slog.Any("error", err))
		return err
	}
	return nil
}

// WriteDependencyGraph writes the static dependency graph of the
// registrations visible from c in Graphviz DOT format.
func (c *Container) WriteDependencyGraph(w io.Writer) error {
	if c.disposed.Load() {
		return ErrContainerDisposed
	}

	g, _ := c.dependencyGraph()
	return graph.NewVisualizer(g).WriteDOT(w)
}

type scopedRegistration struct {
	reg   registry.Registration
	level int
}

// dependencyGraph builds the graph reachable from the registrations visible
// from c. A dependency is looked up the way the resolver chain would: in the
// scope that owns the dependent registration, then outward.
func (c *Container) dependencyGraph() (*graph.DependencyGraph, []error) {
	g := graph.NewDependencyGraph()
	registries := c.stack.Registries()

	var queue []scopedRegistration
	seen := make(map[registry.Key]bool)
	for level, r := range registries {
		for _, reg := range r.GetAll(nil) {
			if seen[reg.Key()] {
				continue
			}
			seen[reg.Key()] = true
			queue = append(queue, scopedRegistration{reg: reg, level: level})
		}
	}

	var errs []error
	processed := make(map[registry.Registration]bool)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if processed[current.reg] {
			continue
		}
		processed[current.reg] = true
		g.AddNode(current.reg)

		adapter, err := current.reg.Adapter(c.selector)
		if err != nil {
			errs = append(errs, &ResolutionError{
				ServiceType: current.reg.ServiceType(),
				Name:        current.reg.Name(),
				Cause:       err,
			})
			continue
		}

		for _, p := range adapter.Parameters() {
			if c.resolvedAtRuntime(p.Type, p.Name) {
				continue
			}

			dep, level, found := lookup(registries[current.level:], registry.Key{ServiceType: p.Type, Name: p.Name})
			if !found {
				if p.Optional || c.opts.MakeAllResolutionOptional ||
					(c.opts.ResolveUnregisteredTypes && c.selector.CanConstruct(p.Type)) {
					continue
				}
				errs = append(errs, &ResolutionError{
					ServiceType: p.Type,
					Name:        p.Name,
					Cause:       ErrServiceNotFound,
					Stack:       (*resolver.Path)(nil).Append(current.reg).Frames(),
				})
				continue
			}
			if dep == nil {
				continue
			}

			g.AddEdge(current.reg, dep, p)
			queue = append(queue, scopedRegistration{reg: dep, level: current.level + level})
		}
	}

	return g, errs
}

// resolvedAtRuntime reports whether a parameter is answered by a proxy
// rather than a registration.
func (c *Container) resolvedAtRuntime(t reflect.Type, name string) bool {
	switch {
	case t == resolverType && c.opts.SelfRegisterAResolver:
		return true
	case t.Kind() == reflect.String && name == RegisteredName:
		return true
	case t.Kind() == reflect.Map && c.opts.SupportResolvingNamedInstanceDictionaries:
		return !c.stack.Contains(registry.Key{ServiceType: t, Name: name})
	}
	return false
}

// lookup finds the registration serving key in registries, innermost first,
// with the named-then-unnamed fallback of each scope. An open generic match
// is reported as found with a nil registration.
func lookup(registries []*registry.Registry, key registry.Key) (registry.Registration, int, bool) {
	for i, r := range registries {
		if reg, ok := r.Get(key); ok {
			return reg, i, true
		}
		if r.Contains(key) {
			return nil, i, true
		}
		if key.Name == "" {
			continue
		}
		if reg, ok := r.Get(key.WithoutName()); ok {
			return reg, i, true
		}
		if r.Contains(key.WithoutName()) {
			return nil, i, true
		}
	}
	return nil, 0, false
}
