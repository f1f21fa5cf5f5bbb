package resolver

import (
	"log/slog"
	"reflect"

	"github.com/junioryono/chaindi/internal/cache"
	"github.com/junioryono/chaindi/internal/reflection"
	"github.com/junioryono/chaindi/internal/registry"
)

// Config carries what the factory needs to assemble one scope's chains.
type Config struct {
	Registry *registry.Registry
	Cache    *cache.Cache
	Selector *reflection.ConstructorSelector
	Stack    *Stack

	// Parent returns the parent scope's ancestor chain. Nil for a root scope.
	Parent func() (Resolver, error)

	// SelfType is the resolver service type answered by the self-reference proxy.
	SelfType      reflect.Type
	NewSelfHandle func(*Path) any

	OnCreated func(reg registry.Registration, instance any)

	// Discard releases an instance that was built but lost the race to be cached.
	Discard func(reg registry.Registration, instance any)

	Logger *slog.Logger

	UseInstanceCache            bool
	ThrowOnCircularDependencies bool
	SupportNamedDictionaries    bool
	SelfReference               bool
	ResolveUnregisteredTypes    bool
	MakeAllResolutionOptional   bool
}

// Chains are the two resolver chains of a scope. Leaf serves calls made on
// the scope itself; Ancestor serves child scopes falling back to it and
// never auto-resolves unregistered types.
type Chains struct {
	Leaf     Resolver
	Ancestor Resolver
}

// Factory assembles resolver chains from a Config.
type Factory struct {
	cfg Config
}

// NewFactory creates a resolver factory.
func NewFactory(cfg Config) *Factory {
	if cfg.Registry == nil {
		panic("registry cannot be nil")
	}
	if cfg.Selector == nil {
		panic("selector cannot be nil")
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.New()
	}
	if cfg.Stack == nil {
		cfg.Stack = NewStack(cfg.Registry, nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	return &Factory{cfg: cfg}
}

// Build creates both chains of the scope.
func (f *Factory) Build() Chains {
	return Chains{
		Leaf:     f.build(true),
		Ancestor: f.build(false),
	}
}

// build links the chain inside out:
// self-reference, named dictionary, registered name, circular,
// unregistered (leaf only), fallback, caching, core.
func (f *Factory) build(leaf bool) Resolver {
	cfg := f.cfg
	creator := NewCreator(cfg.MakeAllResolutionOptional)

	var r Resolver = NewCoreResolver(cfg.Registry, cfg.Selector, creator, cfg.OnCreated, cfg.Logger)

	if cfg.UseInstanceCache {
		r = NewCachingProxy(r, cfg.Cache, cfg.Registry, cfg.Discard)
	}

	if cfg.Parent != nil {
		r = NewFallbackProxy(r, cfg.Parent, cfg.Logger)
	}

	if leaf && cfg.ResolveUnregisteredTypes {
		r = NewUnregisteredServiceProxy(r, cfg.Registry, cfg.Selector, cfg.Logger)
	}

	if cfg.ThrowOnCircularDependencies {
		r = NewCircularDependencyProxy(r)
	}

	r = NewRegisteredNameProxy(r)

	if cfg.SupportNamedDictionaries {
		r = NewNamedDictionaryProxy(r, cfg.Stack)
	}

	if cfg.SelfReference && cfg.SelfType != nil && cfg.NewSelfHandle != nil {
		r = NewSelfReferenceProxy(r, cfg.SelfType, cfg.NewSelfHandle)
	}

	creator.Bind(r)
	return r
}
