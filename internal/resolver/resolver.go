package resolver

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/junioryono/chaindi/internal/reflection"
	"github.com/junioryono/chaindi/internal/registry"
)

// Resolver turns requests into objects. Implementations are chained: each
// proxy adds one behavior and delegates to the next resolver.
//
// A failed Result with a nil error means nothing could satisfy the request;
// outer resolvers may recover from it. A non-nil error is final.
type Resolver interface {
	Resolve(req Request) (Result, error)

	// GetRegistration performs the lookup step alone, without construction.
	GetRegistration(req Request) (registry.Registration, error)
}

// HasCircularDependency reports whether reg is already being resolved on path.
func HasCircularDependency(reg registry.Registration, path *Path) bool {
	return reg != nil && path.Contains(reg)
}

// CheckCircularDependency returns a CircularDependencyError when reg is
// already being resolved on path.
func CheckCircularDependency(reg registry.Registration, path *Path) error {
	if !HasCircularDependency(reg, path) {
		return nil
	}

	return &CircularDependencyError{
		ServiceType: reg.ServiceType(),
		Name:        reg.Name(),
		Chain:       path.Frames(),
	}
}

// Creator invokes factory adapters, resolving their parameters in
// declaration order through the chain it is bound to.
type Creator struct {
	resolver Resolver
	optional bool
}

// NewCreator creates an unbound creator. optional makes every unresolved
// parameter fall back to its zero value.
func NewCreator(optional bool) *Creator {
	return &Creator{optional: optional}
}

// Bind sets the resolver parameters are requested from.
func (c *Creator) Bind(r Resolver) {
	c.resolver = r
}

// Create resolves the adapter's parameters on path and executes it.
// reg is the registration being constructed and is already the last entry of path.
func (c *Creator) Create(adapter reflection.FactoryAdapter, path *Path, reg registry.Registration) (any, error) {
	params := adapter.Parameters()
	if len(params) == 0 {
		return adapter.Execute(nil)
	}

	if c.resolver == nil {
		return nil, fmt.Errorf("creator for %s is not bound to a resolver", reg)
	}

	args := make([]reflect.Value, len(params))
	for i, p := range params {
		arg, err := c.resolveParameter(p, path)
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}

	return adapter.Execute(args)
}

func (c *Creator) resolveParameter(p reflection.Parameter, path *Path) (reflect.Value, error) {
	req := NewRequest(p.Type, p.Name, path)
	optional := c.optional || p.Optional

	res, err := c.resolver.Resolve(req)
	if err != nil {
		if optional && IsNotFound(err) && !IsCircularDependency(err) {
			return reflect.Zero(p.Type), nil
		}
		return reflect.Value{}, err
	}

	if !res.Success || res.Object == nil {
		if optional || res.Success {
			return reflect.Zero(p.Type), nil
		}
		return reflect.Value{}, NotFound(req)
	}

	v := reflect.ValueOf(res.Object)
	if !v.Type().AssignableTo(p.Type) {
		return reflect.Value{}, &ResolutionError{
			ServiceType: p.Type,
			Name:        p.Name,
			Cause: fmt.Errorf("resolved %s is not assignable to %s",
				reflection.FormatType(v.Type()), reflection.FormatType(p.Type)),
			Stack: path.Frames(),
		}
	}

	return v, nil
}

// CoreResolver looks up a registration in one registry and constructs it.
type CoreResolver struct {
	registry  *registry.Registry
	selector  *reflection.ConstructorSelector
	creator   *Creator
	onCreated func(reg registry.Registration, instance any)
	logger    *slog.Logger
}

// NewCoreResolver creates the innermost resolver of a chain.
func NewCoreResolver(
	reg *registry.Registry,
	selector *reflection.ConstructorSelector,
	creator *Creator,
	onCreated func(registry.Registration, any),
	logger *slog.Logger,
) *CoreResolver {
	if reg == nil {
		panic("registry cannot be nil")
	}
	if selector == nil {
		panic("selector cannot be nil")
	}

	return &CoreResolver{
		registry:  reg,
		selector:  selector,
		creator:   creator,
		onCreated: onCreated,
		logger:    logger,
	}
}

// GetRegistration returns the registration for the request's key, falling
// back from a named key to the unnamed one unless the request asks for its
// exact name. Nil means not found.
func (r *CoreResolver) GetRegistration(req Request) (registry.Registration, error) {
	reg, err := r.registry.Lookup(req.Key())
	if err != nil || reg != nil || req.Name == "" || req.ExactName {
		return reg, err
	}

	return r.registry.Lookup(req.Key().WithoutName())
}

func (r *CoreResolver) Resolve(req Request) (Result, error) {
	reg, err := r.GetRegistration(req)
	if err != nil {
		return Failed(req.Path), wrap(req, req.Path, err)
	}
	if reg == nil {
		return Failed(req.Path), nil
	}

	path := req.Path.Append(reg)

	adapter, err := reg.Adapter(r.selector)
	if err != nil {
		return Failed(path), wrap(req, path, err)
	}

	instance, err := r.creator.Create(adapter, path, reg)
	if err != nil {
		return Failed(path), wrap(req, path, err)
	}

	if reg.Kind() == registry.KindType {
		r.logger.Debug("service created",
			slog.String("service", reg.Key().String()),
			slog.String("implementation", reflection.FormatType(reg.ImplementationType())))

		if r.onCreated != nil {
			r.onCreated(reg, instance)
		}
	}

	return Succeeded(instance, path), nil
}

// wrap attaches request context to err unless it already carries it.
func wrap(req Request, path *Path, err error) error {
	var (
		resErr   *ResolutionError
		circular *CircularDependencyError
		dictKey  *UnsupportedDictionaryKeyError
	)
	if errors.As(err, &resErr) || errors.As(err, &circular) || errors.As(err, &dictKey) {
		return err
	}

	return &ResolutionError{
		ServiceType: req.ServiceType,
		Name:        req.Name,
		Cause:       err,
		Stack:       path.Frames(),
	}
}
