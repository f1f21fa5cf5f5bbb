package chaindi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/junioryono/chaindi/internal/cache"
	"github.com/junioryono/chaindi/internal/lifetime"
	"github.com/junioryono/chaindi/internal/reflection"
	"github.com/junioryono/chaindi/internal/registry"
	"github.com/junioryono/chaindi/internal/resolver"
)

// Resolver is the resolution capability of a container. A constructor that
// takes a Resolver while being resolved receives a handle bound to the
// current resolution path, so cycles through the handle are still detected.
type Resolver interface {
	// Resolve returns the instance registered for serviceType under name.
	Resolve(serviceType reflect.Type, name string) (any, error)

	// TryResolve is Resolve without the error.
	TryResolve(serviceType reflect.Type, name string) (any, bool)

	// ResolveAll returns one instance per visible registration of serviceType.
	ResolveAll(serviceType reflect.Type) ([]any, error)
}

// Registrar is the registration capability of a container.
type Registrar interface {
	AddRegistrations(regs ...Registration) error
	HasRegistration(serviceType reflect.Type, name string) bool
}

var (
	resolverType  = reflect.TypeFor[Resolver]()
	registrarType = reflect.TypeFor[Registrar]()
)

var (
	_ Resolver  = (*Container)(nil)
	_ Registrar = (*Container)(nil)
	_ Resolver  = (*pathResolver)(nil)
)

// Container owns a registry, an instance cache, and the resolver chains that
// serve requests from them. Containers are safe for concurrent use.
type Container struct {
	id     string
	parent *Container
	opts   Options
	logger *slog.Logger

	registry *registry.Registry
	cache    *cache.Cache
	selector *reflection.ConstructorSelector
	stack    *resolver.Stack
	chains   resolver.Chains
	disposer *lifetime.Disposer

	disposed atomic.Bool
}

// Statistics is a snapshot of a container's counters.
type Statistics struct {
	Registrations     int
	CachedInstances   int
	CacheHits         int64
	CacheMisses       int64
	DisposedInstances int64
	FailedDisposals   int64
}

// New creates a root container with regs registered. A nil opts means
// DefaultOptions().
func New(opts *Options, regs ...Registration) (*Container, error) {
	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}

	selector := reflection.NewConstructorSelector(nil, o.UseNonPublicConstructors)
	if err := selector.AddConstructors(o.Constructors...); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	return newContainer(nil, o, selector, regs)
}

// NewChild creates a container that falls back to c for anything it cannot
// resolve itself. The child shares c's options and constructor catalog but
// has its own registry and cache.
func (c *Container) NewChild(regs ...Registration) (*Container, error) {
	if c.disposed.Load() {
		return nil, ErrContainerDisposed
	}
	return newContainer(c, c.opts, c.selector, regs)
}

func newContainer(parent *Container, opts Options, selector *reflection.ConstructorSelector, regs []Registration) (*Container, error) {
	id := uuid.NewString()

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With(slog.String("container", id))

	c := &Container{
		id:       id,
		parent:   parent,
		opts:     opts,
		logger:   logger,
		registry: registry.New(),
		cache:    cache.New(),
		selector: selector,
		disposer: lifetime.New(logger, opts.OnServiceDisposed),
	}

	var parentStack *resolver.Stack
	if parent != nil {
		parentStack = parent.stack
	}
	c.stack = resolver.NewStack(c.registry, parentStack)

	cfg := resolver.Config{
		Registry: c.registry,
		Cache:    c.cache,
		Selector: selector,
		Stack:    c.stack,
		SelfType: resolverType,
		NewSelfHandle: func(path *resolver.Path) any {
			return &pathResolver{c: c, path: path}
		},
		OnCreated:                   c.onCreated,
		Discard:                     c.disposer.Discard,
		Logger:                      logger,
		UseInstanceCache:            opts.UseInstanceCache,
		ThrowOnCircularDependencies: opts.ThrowOnCircularDependencies,
		SupportNamedDictionaries:    opts.SupportResolvingNamedInstanceDictionaries,
		SelfReference:               opts.SelfRegisterAResolver,
		ResolveUnregisteredTypes:    opts.ResolveUnregisteredTypes,
		MakeAllResolutionOptional:   opts.MakeAllResolutionOptional,
	}
	if parent != nil {
		cfg.Parent = parent.ancestor
	}
	c.chains = resolver.NewFactory(cfg).Build()

	var all []Registration
	if opts.SelfRegisterAResolver {
		all = append(all, registry.NewInstanceRegistration(resolverType, c, registry.Options{}))
	}
	if opts.SelfRegisterTheRegistry {
		all = append(all, registry.NewInstanceRegistration(registrarType, c, registry.Options{}))
	}
	all = append(all, regs...)

	if err := c.AddRegistrations(all...); err != nil {
		return nil, err
	}

	logger.Debug("container created",
		slog.Bool("child", parent != nil),
		slog.Int("registrations", c.registry.Len()))

	return c, nil
}

// ID returns the unique identifier of the container.
func (c *Container) ID() string {
	return c.id
}

// Parent returns the container c falls back to, or nil for a root container.
func (c *Container) Parent() *Container {
	return c.parent
}

// IsDisposed reports whether Close has been called.
func (c *Container) IsDisposed() bool {
	return c.disposed.Load()
}

// Resolve returns the instance registered for serviceType under name. A
// named request without an exact registration is served by the unnamed one.
func (c *Container) Resolve(serviceType reflect.Type, name string) (any, error) {
	return c.resolve(serviceType, name, nil)
}

// TryResolve returns the instance registered for serviceType under name and
// whether one could be produced.
func (c *Container) TryResolve(serviceType reflect.Type, name string) (any, bool) {
	return c.tryResolve(serviceType, name, nil)
}

// ResolveAll returns one instance per registration of serviceType visible
// from c. Registrations of ancestors come first; a key registered in c
// shadows the same key in its ancestors.
func (c *Container) ResolveAll(serviceType reflect.Type) ([]any, error) {
	return c.resolveAll(serviceType, nil)
}

func (c *Container) resolve(serviceType reflect.Type, name string, path *resolver.Path) (any, error) {
	if c.disposed.Load() {
		return nil, ErrContainerDisposed
	}
	if serviceType == nil {
		return nil, ErrServiceTypeNil
	}

	return c.resolveRequest(resolver.NewRequest(serviceType, name, path))
}

func (c *Container) resolveRequest(req resolver.Request) (any, error) {
	res, err := c.chains.Leaf.Resolve(req)
	if err == nil && !res.Success {
		err = resolver.NotFound(req)
	}

	if err != nil {
		if c.opts.MakeAllResolutionOptional && IsNotFound(err) && !IsCircularDependency(err) {
			return reflect.Zero(req.ServiceType).Interface(), nil
		}
		return nil, err
	}

	return res.Object, nil
}

func (c *Container) tryResolve(serviceType reflect.Type, name string, path *resolver.Path) (any, bool) {
	if c.disposed.Load() || serviceType == nil {
		return nil, false
	}

	res, err := c.chains.Leaf.Resolve(resolver.NewRequest(serviceType, name, path))
	if err != nil || !res.Success {
		return nil, false
	}
	return res.Object, true
}

func (c *Container) resolveAll(serviceType reflect.Type, path *resolver.Path) ([]any, error) {
	if c.disposed.Load() {
		return nil, ErrContainerDisposed
	}
	if serviceType == nil {
		return nil, ErrServiceTypeNil
	}

	regs := c.stack.All(serviceType)
	instances := make([]any, 0, len(regs))
	for _, reg := range regs {
		instance, err := c.resolveRequest(resolver.NewRequest(serviceType, reg.Name(), path).WithExactName())
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}

	return instances, nil
}

// AddRegistrations validates and stores regs. Registering a key that c has
// already resolved and cached fails with StaleRegistrationError; otherwise a
// later registration of a key replaces the earlier one. Every registration
// is attempted and the failures are joined.
func (c *Container) AddRegistrations(regs ...Registration) error {
	if c.disposed.Load() {
		return ErrContainerDisposed
	}

	var errs []error
	for _, reg := range regs {
		if err := c.registry.Add(reg, c.rejectCached); err != nil {
			errs = append(errs, err)
			continue
		}
		c.logger.Debug("registered service", slog.String("registration", reg.String()))
	}

	return errors.Join(errs...)
}

func (c *Container) rejectCached(key registry.Key) error {
	if c.cache.Contains(key) {
		return StaleRegistrationError{Key: key}
	}
	return nil
}

// HasRegistration reports whether c or one of its ancestors has a
// registration for exactly serviceType and name. Nothing is resolved.
func (c *Container) HasRegistration(serviceType reflect.Type, name string) bool {
	if c.disposed.Load() || serviceType == nil {
		return false
	}
	return c.stack.Contains(registry.Key{ServiceType: serviceType, Name: name})
}

// IsCached reports whether c holds a cached instance for serviceType. The
// empty name matches a cached instance under any name.
func (c *Container) IsCached(serviceType reflect.Type, name string) bool {
	return c.cache.Has(serviceType, name)
}

// Stats returns a snapshot of the container's counters.
func (c *Container) Stats() Statistics {
	cs := c.cache.Stats()
	ds := c.disposer.Stats()
	return Statistics{
		Registrations:     c.registry.Len(),
		CachedInstances:   cs.Entries,
		CacheHits:         cs.Hits,
		CacheMisses:       cs.Misses,
		DisposedInstances: ds.DisposedInstances,
		FailedDisposals:   ds.FailedInstances,
	}
}

// Close disposes the cached instances c owns and makes c unusable. Only
// registrations of c itself are disposed, newest first; ancestors and
// children are left alone. Close is idempotent.
func (c *Container) Close() error {
	return c.CloseContext(context.Background())
}

// CloseContext is Close with a context passed to Close(ctx) disposables.
func (c *Container) CloseContext(ctx context.Context) error {
	if !c.disposed.CompareAndSwap(false, true) {
		return nil
	}

	err := c.disposer.DisposeInstances(ctx, c.registry, c.cache)
	if err != nil {
		c.logger.Warn("container closed with disposal failures", slog.Any("error", err))
	} else {
		c.logger.Debug("container closed")
	}

	return err
}

// ancestor hands c's ancestor chain to a child falling back to c.
func (c *Container) ancestor() (resolver.Resolver, error) {
	if c.disposed.Load() {
		return nil, ErrParentDisposed
	}
	return c.chains.Ancestor, nil
}

func (c *Container) onCreated(reg registry.Registration, instance any) {
	if c.opts.OnServiceCreated != nil {
		c.opts.OnServiceCreated(reg, instance)
	}
}

// pathResolver is the Resolver handed to constructors mid-resolution. It
// resolves on behalf of c with the path of the construction that received it.
type pathResolver struct {
	c    *Container
	path *resolver.Path
}

func (r *pathResolver) Resolve(serviceType reflect.Type, name string) (any, error) {
	return r.c.resolve(serviceType, name, r.path)
}

func (r *pathResolver) TryResolve(serviceType reflect.Type, name string) (any, bool) {
	return r.c.tryResolve(serviceType, name, r.path)
}

func (r *pathResolver) ResolveAll(serviceType reflect.Type) ([]any, error) {
	return r.c.resolveAll(serviceType, r.path)
}
