package resolver

import (
	"encoding"
	"log/slog"
	"reflect"

	"github.com/junioryono/chaindi/internal/cache"
	"github.com/junioryono/chaindi/internal/reflection"
	"github.com/junioryono/chaindi/internal/registry"
)

// RegisteredName is the parameter name that injects the name of the
// registration being constructed into a string parameter.
const RegisteredName = "registeredName"

var (
	stringType          = reflect.TypeFor[string]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// SelfReferenceProxy substitutes a path-aware handle when a constructor asks
// for the resolver itself, so calls made through the handle keep the
// ambient resolution path.
type SelfReferenceProxy struct {
	inner     Resolver
	selfType  reflect.Type
	newHandle func(*Path) any
}

func NewSelfReferenceProxy(inner Resolver, selfType reflect.Type, newHandle func(*Path) any) *SelfReferenceProxy {
	return &SelfReferenceProxy{inner: inner, selfType: selfType, newHandle: newHandle}
}

func (p *SelfReferenceProxy) GetRegistration(req Request) (registry.Registration, error) {
	return p.inner.GetRegistration(req)
}

func (p *SelfReferenceProxy) Resolve(req Request) (Result, error) {
	if req.ServiceType != p.selfType || req.Path.IsEmpty() {
		return p.inner.Resolve(req)
	}
	return Succeeded(p.newHandle(req.Path), req.Path), nil
}

// NamedDictionaryProxy synthesizes map[K]V from the named registrations of V.
// K must be a string kind or implement encoding.TextUnmarshaler through its
// pointer. Maps with an explicit registration pass through.
type NamedDictionaryProxy struct {
	inner  Resolver
	source *Stack
}

func NewNamedDictionaryProxy(inner Resolver, source *Stack) *NamedDictionaryProxy {
	return &NamedDictionaryProxy{inner: inner, source: source}
}

func (p *NamedDictionaryProxy) GetRegistration(req Request) (registry.Registration, error) {
	return p.inner.GetRegistration(req)
}

func (p *NamedDictionaryProxy) Resolve(req Request) (Result, error) {
	if req.ServiceType == nil || req.ServiceType.Kind() != reflect.Map || p.source.Contains(req.Key()) {
		return p.inner.Resolve(req)
	}

	mapType := req.ServiceType
	keyType := mapType.Key()
	parseKey, ok := keyParser(keyType)
	if !ok {
		return Failed(req.Path), &UnsupportedDictionaryKeyError{DictionaryType: mapType, KeyType: keyType}
	}

	dict := reflect.MakeMap(mapType)
	for _, reg := range p.source.Named(mapType.Elem()) {
		res, err := p.inner.Resolve(NewRequest(mapType.Elem(), reg.Name(), req.Path).WithExactName())
		if err != nil {
			return Failed(req.Path), err
		}
		if !res.Success {
			continue
		}

		key, err := parseKey(reg.Name())
		if err != nil {
			return Failed(req.Path), &ResolutionError{
				ServiceType: mapType,
				Name:        req.Name,
				Cause:       err,
				Stack:       req.Path.Frames(),
			}
		}

		value := reflect.Zero(mapType.Elem())
		if res.Object != nil {
			value = reflect.ValueOf(res.Object)
		}
		dict.SetMapIndex(key, value)
	}

	return Succeeded(dict.Interface(), req.Path), nil
}

// keyParser returns the conversion from a registration name to a key of type t.
func keyParser(t reflect.Type) (func(string) (reflect.Value, error), bool) {
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return func(name string) (reflect.Value, error) {
			k := reflect.New(t)
			if err := k.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(name)); err != nil {
				return reflect.Value{}, err
			}
			return k.Elem(), nil
		}, true
	}

	if t.Kind() == reflect.String {
		return func(name string) (reflect.Value, error) {
			return reflect.ValueOf(name).Convert(t), nil
		}, true
	}

	return nil, false
}

// RegisteredNameProxy answers string requests named RegisteredName with the
// name of the innermost registration on the path.
type RegisteredNameProxy struct {
	inner Resolver
}

func NewRegisteredNameProxy(inner Resolver) *RegisteredNameProxy {
	return &RegisteredNameProxy{inner: inner}
}

func (p *RegisteredNameProxy) GetRegistration(req Request) (registry.Registration, error) {
	return p.inner.GetRegistration(req)
}

func (p *RegisteredNameProxy) Resolve(req Request) (Result, error) {
	if req.ServiceType != stringType || req.Name != RegisteredName || req.Path.IsEmpty() {
		return p.inner.Resolve(req)
	}
	return Succeeded(req.Path.Last().Name(), req.Path), nil
}

// CircularDependencyProxy fails requests whose registration is already on the path.
type CircularDependencyProxy struct {
	inner Resolver
}

func NewCircularDependencyProxy(inner Resolver) *CircularDependencyProxy {
	return &CircularDependencyProxy{inner: inner}
}

func (p *CircularDependencyProxy) GetRegistration(req Request) (registry.Registration, error) {
	return p.inner.GetRegistration(req)
}

func (p *CircularDependencyProxy) Resolve(req Request) (Result, error) {
	reg, err := p.inner.GetRegistration(req)
	if err != nil {
		return Failed(req.Path), wrap(req, req.Path, err)
	}

	if err := CheckCircularDependency(reg, req.Path); err != nil {
		return Failed(req.Path), err
	}

	return p.inner.Resolve(req)
}

// UnregisteredServiceProxy constructs a requested type directly when nothing
// in the inner chain can provide it.
type UnregisteredServiceProxy struct {
	inner    Resolver
	registry *registry.Registry
	selector *reflection.ConstructorSelector
	logger   *slog.Logger
}

func NewUnregisteredServiceProxy(
	inner Resolver,
	reg *registry.Registry,
	selector *reflection.ConstructorSelector,
	logger *slog.Logger,
) *UnregisteredServiceProxy {
	return &UnregisteredServiceProxy{inner: inner, registry: reg, selector: selector, logger: logger}
}

func (p *UnregisteredServiceProxy) GetRegistration(req Request) (registry.Registration, error) {
	return p.inner.GetRegistration(req)
}

func (p *UnregisteredServiceProxy) Resolve(req Request) (Result, error) {
	res, err := p.inner.Resolve(req)
	if err != nil || res.Success || !p.selector.CanConstruct(req.ServiceType) {
		return res, err
	}

	implicit := registry.NewImplicitRegistration(req.ServiceType)
	if err := implicit.Validate(); err != nil {
		return res, nil
	}

	p.logger.Debug("resolving unregistered type", slog.String("service", reflection.FormatType(req.ServiceType)))

	p.registry.AddImplicit(implicit)
	res, err = p.inner.Resolve(req)
	if err != nil || !res.Success {
		p.registry.Remove(implicit)
	}
	return res, err
}

// FallbackProxy hands requests its inner chain cannot satisfy to the parent
// scope's complete resolver.
type FallbackProxy struct {
	inner  Resolver
	parent func() (Resolver, error)
	logger *slog.Logger
}

func NewFallbackProxy(inner Resolver, parent func() (Resolver, error), logger *slog.Logger) *FallbackProxy {
	return &FallbackProxy{inner: inner, parent: parent, logger: logger}
}

func (p *FallbackProxy) GetRegistration(req Request) (registry.Registration, error) {
	return p.inner.GetRegistration(req)
}

func (p *FallbackProxy) Resolve(req Request) (Result, error) {
	res, err := p.inner.Resolve(req)
	if err != nil || res.Success {
		return res, err
	}

	parent, err := p.parent()
	if err != nil {
		return Failed(req.Path), wrap(req, req.Path, err)
	}

	p.logger.Debug("falling back to parent", slog.String("service", req.Key().String()))
	return parent.Resolve(req)
}

// CachingProxy serves Shared instances from the scope's cache. A resolution
// that holds no construction waits for one already in flight; a nested one
// never waits, it builds its own instance and keeps whichever is cached
// first. The cache is only written while the registration is still the one
// its scope stores under the key.
type CachingProxy struct {
	inner    Resolver
	cache    *cache.Cache
	registry *registry.Registry
	discard  func(registry.Registration, any)
}

func NewCachingProxy(inner Resolver, c *cache.Cache, reg *registry.Registry, discard func(registry.Registration, any)) *CachingProxy {
	if discard == nil {
		discard = func(registry.Registration, any) {}
	}
	return &CachingProxy{inner: inner, cache: c, registry: reg, discard: discard}
}

func (p *CachingProxy) GetRegistration(req Request) (registry.Registration, error) {
	return p.inner.GetRegistration(req)
}

func (p *CachingProxy) Resolve(req Request) (Result, error) {
	reg, err := p.inner.GetRegistration(req)
	if err != nil {
		return Failed(req.Path), wrap(req, req.Path, err)
	}
	if reg == nil || !reg.Cacheable() {
		return p.inner.Resolve(req)
	}

	if instance, ok := p.cache.TryGet(reg); ok {
		return Succeeded(instance, req.Path), nil
	}

	// Only a request with an empty path blocks on the construction lock;
	// nested requests try it and build unlocked when it is taken. A
	// registration already on the path is never locked.
	mu := p.cache.Lock(reg)
	var locked bool
	switch {
	case req.Path.IsEmpty():
		mu.Lock()
		locked = true
	case !req.Path.Contains(reg):
		locked = mu.TryLock()
	}

	if locked {
		defer mu.Unlock()
		if instance, ok := p.cache.TryGet(reg); ok {
			return Succeeded(instance, req.Path), nil
		}
	}

	res, err := p.inner.Resolve(req)
	if err != nil || !res.Success {
		return res, err
	}

	var (
		cached any
		loaded bool
	)
	current := p.registry.IfCurrent(reg, func() {
		cached, loaded = p.cache.GetOrAdd(reg, res.Object)
	})

	if !current {
		// Replaced while being built; serve the registration now in place.
		p.discard(reg, res.Object)
		return p.Resolve(req)
	}
	if loaded && !sameObject(cached, res.Object) {
		p.discard(reg, res.Object)
	}

	res.Object = cached
	return res, nil
}

func sameObject(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() || va.Type() != vb.Type() {
		return false
	}
	return va.Comparable() && va.Equal(vb)
}
