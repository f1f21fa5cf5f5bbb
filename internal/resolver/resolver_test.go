package resolver_test

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/junioryono/chaindi/internal/cache"
	"github.com/junioryono/chaindi/internal/reflection"
	"github.com/junioryono/chaindi/internal/registry"
	"github.com/junioryono/chaindi/internal/resolver"
	"github.com/junioryono/chaindi/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	iface1Type = reflect.TypeFor[testutil.IInterface1]()
	class1Type = reflect.TypeFor[*testutil.Class1]()
	altType    = reflect.TypeFor[*testutil.Class1Alt]()
	simpleType = reflect.TypeFor[*testutil.VerySimpleClass]()
	depType    = reflect.TypeFor[*testutil.ClassWithDependency]()
	circAType  = reflect.TypeFor[*testutil.CircularServiceA]()
	circBType  = reflect.TypeFor[*testutil.CircularServiceB]()
)

// Self is the resolver service type answered with a path-aware handle.
type Self interface {
	Path() *resolver.Path
}

type selfHandle struct {
	path *resolver.Path
}

func (h *selfHandle) Path() *resolver.Path { return h.path }

// NamedThing records the name it was registered under.
type NamedThing struct {
	Name string
}

type NamedThingParams struct {
	reflection.In

	Name string `name:"registeredName"`
}

func NewNamedThing(p NamedThingParams) *NamedThing {
	return &NamedThing{Name: p.Name}
}

// NeedsSelf captures the handle injected mid-resolution.
type NeedsSelf struct {
	Self Self
}

func NewNeedsSelf(self Self) *NeedsSelf {
	return &NeedsSelf{Self: self}
}

type scope struct {
	registry *registry.Registry
	cache    *cache.Cache
	stack    *resolver.Stack
	chains   resolver.Chains
	selector *reflection.ConstructorSelector
	created  []registry.Registration
	mu       sync.Mutex
}

func (s *scope) createdCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

func newScope(t *testing.T, parent *scope, configure func(*resolver.Config)) *scope {
	t.Helper()

	selector := reflection.NewConstructorSelector(nil, false)
	require.NoError(t, selector.AddConstructors(
		testutil.NewClass1,
		testutil.NewClass1Alt,
		testutil.NewClassWithDependency,
		testutil.NewClassWithTwoDependencies,
		testutil.NewCircularServiceA,
		testutil.NewCircularServiceB,
		testutil.NewSelfDependent,
		NewNamedThing,
		NewNeedsSelf,
	))

	s := &scope{
		registry: registry.New(),
		cache:    cache.New(),
		selector: selector,
	}

	var parentStack *resolver.Stack
	if parent != nil {
		parentStack = parent.stack
	}
	s.stack = resolver.NewStack(s.registry, parentStack)

	cfg := resolver.Config{
		Registry: s.registry,
		Cache:    s.cache,
		Selector: selector,
		Stack:    s.stack,
		SelfType: reflect.TypeFor[Self](),
		NewSelfHandle: func(p *resolver.Path) any {
			return &selfHandle{path: p}
		},
		OnCreated: func(reg registry.Registration, _ any) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.created = append(s.created, reg)
		},
		UseInstanceCache:            true,
		ThrowOnCircularDependencies: true,
		SupportNamedDictionaries:    true,
		SelfReference:               true,
	}
	if parent != nil {
		cfg.Parent = func() (resolver.Resolver, error) {
			return parent.chains.Ancestor, nil
		}
	}
	if configure != nil {
		configure(&cfg)
	}

	s.chains = resolver.NewFactory(cfg).Build()
	return s
}

func (s *scope) add(t *testing.T, regs ...registry.Registration) {
	t.Helper()
	for _, reg := range regs {
		require.NoError(t, s.registry.Add(reg, nil))
	}
}

func (s *scope) resolve(serviceType reflect.Type, name string) (resolver.Result, error) {
	return s.chains.Leaf.Resolve(resolver.NewRequest(serviceType, name, nil))
}

func typeReg(service, impl reflect.Type, name string) *registry.TypeRegistration {
	return registry.NewTypeRegistration(service, impl, registry.Options{Name: name})
}

func TestResolve_TypeRegistrationWithDependency(t *testing.T) {
	t.Parallel()

	s := newScope(t, nil, nil)
	s.add(t,
		typeReg(iface1Type, class1Type, ""),
		typeReg(depType, depType, ""),
	)

	res, err := s.resolve(depType, "")
	require.NoError(t, err)
	require.True(t, res.Success)

	svc := res.Object.(*testutil.ClassWithDependency)
	require.NotNil(t, svc.Dep)
	assert.IsType(t, &testutil.Class1{}, svc.Dep)

	// The dependency is shared with direct resolution.
	direct, err := s.resolve(iface1Type, "")
	require.NoError(t, err)
	assert.Same(t, svc.Dep, direct.Object)
}

func TestResolve_SharedIsIdempotentAndNotifiesOnce(t *testing.T) {
	t.Parallel()

	s := newScope(t, nil, nil)
	s.add(t, typeReg(iface1Type, class1Type, ""))

	first, err := s.resolve(iface1Type, "")
	require.NoError(t, err)
	second, err := s.resolve(iface1Type, "")
	require.NoError(t, err)

	assert.Same(t, first.Object, second.Object)
	assert.Equal(t, 1, s.createdCount())
	assert.True(t, s.cache.Has(iface1Type, ""))
}

func TestResolve_InstancePerResolution(t *testing.T) {
	t.Parallel()

	s := newScope(t, nil, nil)
	s.add(t, registry.NewTypeRegistration(iface1Type, class1Type, registry.Options{
		Multiplicity: registry.InstancePerResolution,
	}))

	first, err := s.resolve(iface1Type, "")
	require.NoError(t, err)
	second, err := s.resolve(iface1Type, "")
	require.NoError(t, err)

	assert.NotSame(t, first.Object, second.Object)
	assert.Equal(t, 2, s.createdCount())
	assert.False(t, s.cache.Has(iface1Type, ""))
}

func TestResolve_InstanceAndFactoryDoNotNotify(t *testing.T) {
	t.Parallel()

	s := newScope(t, nil, nil)
	instance := testutil.NewClass1()
	s.add(t,
		registry.NewInstanceRegistration(iface1Type, instance, registry.Options{}),
		registry.NewFactoryRegistration(simpleType, func() *testutil.VerySimpleClass {
			return &testutil.VerySimpleClass{Value: 7}
		}, registry.Options{}),
	)

	res, err := s.resolve(iface1Type, "")
	require.NoError(t, err)
	assert.Same(t, instance, res.Object)

	res, err = s.resolve(simpleType, "")
	require.NoError(t, err)
	assert.Equal(t, 7, res.Object.(*testutil.VerySimpleClass).Value)

	assert.Equal(t, 0, s.createdCount())
}

func TestResolve_CircularDependency(t *testing.T) {
	t.Parallel()

	s := newScope(t, nil, nil)
	s.add(t,
		typeReg(circAType, circAType, ""),
		typeReg(circBType, circBType, ""),
	)

	_, err := s.resolve(circAType, "")
	require.Error(t, err)
	assert.True(t, resolver.IsCircularDependency(err))

	var circular *resolver.CircularDependencyError
	require.True(t, errors.As(err, &circular))
	assert.Equal(t, circAType, circular.ServiceType)
	require.Len(t, circular.Chain, 2)
	assert.Equal(t, circAType, circular.Chain[0].ServiceType)
	assert.Equal(t, circBType, circular.Chain[1].ServiceType)

	// Nothing was cached for the failed graph.
	assert.Equal(t, 0, s.cache.Len())
}

func TestResolve_AcyclicDiamondIsNotCircular(t *testing.T) {
	t.Parallel()

	s := newScope(t, nil, nil)
	s.add(t,
		typeReg(iface1Type, class1Type, ""),
		typeReg(simpleType, simpleType, ""),
		typeReg(reflect.TypeFor[*testutil.ClassWithTwoDependencies](), reflect.TypeFor[*testutil.ClassWithTwoDependencies](), ""),
	)

	res, err := s.resolve(reflect.TypeFor[*testutil.ClassWithTwoDependencies](), "")
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestResolve_NamedFallsBackToUnnamedButNotViceVersa(t *testing.T) {
	t.Parallel()

	s := newScope(t, nil, nil)
	s.add(t, typeReg(iface1Type, class1Type, ""))

	res, err := s.resolve(iface1Type, "missing")
	require.NoError(t, err)
	assert.True(t, res.Success)

	other := newScope(t, nil, nil)
	other.add(t, typeReg(iface1Type, class1Type, "only"))

	res, err = other.resolve(iface1Type, "")
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestResolve_NameScopingIndependence(t *testing.T) {
	t.Parallel()

	s := newScope(t, nil, nil)
	s.add(t,
		typeReg(iface1Type, class1Type, "one"),
		typeReg(iface1Type, altType, "two"),
	)

	one, err := s.resolve(iface1Type, "one")
	require.NoError(t, err)
	two, err := s.resolve(iface1Type, "two")
	require.NoError(t, err)

	assert.IsType(t, &testutil.Class1{}, one.Object)
	assert.IsType(t, &testutil.Class1Alt{}, two.Object)
	assert.NotSame(t, one.Object, two.Object)
}

func TestResolve_ChildOverridesParent(t *testing.T) {
	t.Parallel()

	parent := newScope(t, nil, nil)
	parent.add(t, typeReg(iface1Type, class1Type, ""))

	child := newScope(t, parent, nil)
	child.add(t, typeReg(iface1Type, altType, ""))

	fromChild, err := child.resolve(iface1Type, "")
	require.NoError(t, err)
	fromParent, err := parent.resolve(iface1Type, "")
	require.NoError(t, err)

	assert.IsType(t, &testutil.Class1Alt{}, fromChild.Object)
	assert.IsType(t, &testutil.Class1{}, fromParent.Object)
}

func TestResolve_SameTypeInBothScopesCachesIndependently(t *testing.T) {
	t.Parallel()

	parent := newScope(t, nil, nil)
	parent.add(t, typeReg(iface1Type, class1Type, ""))

	child := newScope(t, parent, nil)
	child.add(t, typeReg(iface1Type, class1Type, ""))

	fromChild, err := child.resolve(iface1Type, "")
	require.NoError(t, err)
	fromParent, err := parent.resolve(iface1Type, "")
	require.NoError(t, err)

	assert.NotSame(t, fromChild.Object, fromParent.Object)
}

func TestResolve_FallbackUsesParentCache(t *testing.T) {
	t.Parallel()

	parent := newScope(t, nil, nil)
	parent.add(t, typeReg(iface1Type, class1Type, ""))
	child := newScope(t, parent, nil)

	fromChild, err := child.resolve(iface1Type, "")
	require.NoError(t, err)
	fromParent, err := parent.resolve(iface1Type, "")
	require.NoError(t, err)

	assert.Same(t, fromParent.Object, fromChild.Object)
	assert.Equal(t, 0, child.cache.Len())
	assert.Equal(t, 1, parent.cache.Len())
}

func TestResolve_FallbackToDisposedParent(t *testing.T) {
	t.Parallel()

	parent := newScope(t, nil, nil)
	child := newScope(t, parent, func(cfg *resolver.Config) {
		cfg.Parent = func() (resolver.Resolver, error) {
			return nil, resolver.ErrParentDisposed
		}
	})

	_, err := child.resolve(iface1Type, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, resolver.ErrParentDisposed)
}

func TestResolve_UnregisteredTypes(t *testing.T) {
	t.Parallel()

	enable := func(cfg *resolver.Config) { cfg.ResolveUnregisteredTypes = true }

	t.Run("disabled by default", func(t *testing.T) {
		s := newScope(t, nil, nil)
		res, err := s.resolve(simpleType, "")
		require.NoError(t, err)
		assert.False(t, res.Success)
	})

	t.Run("constructs the requested type", func(t *testing.T) {
		s := newScope(t, nil, enable)
		s.add(t, typeReg(iface1Type, class1Type, ""))

		res, err := s.resolve(depType, "")
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.NotNil(t, res.Object.(*testutil.ClassWithDependency).Dep)

		again, err := s.resolve(depType, "")
		require.NoError(t, err)
		assert.Same(t, res.Object, again.Object)
	})

	t.Run("interfaces are not auto-resolved", func(t *testing.T) {
		s := newScope(t, nil, enable)
		res, err := s.resolve(iface1Type, "")
		require.NoError(t, err)
		assert.False(t, res.Success)
	})

	t.Run("failed construction leaves no registration", func(t *testing.T) {
		s := newScope(t, nil, enable)

		_, err := s.resolve(depType, "")
		require.Error(t, err)
		assert.True(t, resolver.IsNotFound(err))
		assert.False(t, s.registry.Contains(registry.Key{ServiceType: depType}))
	})

	t.Run("parent registration wins over auto-resolution", func(t *testing.T) {
		parent := newScope(t, nil, nil)
		registered := &testutil.VerySimpleClass{Value: 42}
		parent.add(t, registry.NewInstanceRegistration(simpleType, registered, registry.Options{}))

		child := newScope(t, parent, enable)
		res, err := child.resolve(simpleType, "")
		require.NoError(t, err)
		assert.Same(t, registered, res.Object)
	})

	t.Run("does not leak into ancestor chain", func(t *testing.T) {
		s := newScope(t, nil, enable)
		res, err := s.chains.Ancestor.Resolve(resolver.NewRequest(simpleType, "", nil))
		require.NoError(t, err)
		assert.False(t, res.Success)
	})
}

func TestResolve_NamedDictionary(t *testing.T) {
	t.Parallel()

	t.Run("string keys", func(t *testing.T) {
		s := newScope(t, nil, nil)
		s.add(t,
			typeReg(iface1Type, class1Type, "one"),
			typeReg(iface1Type, altType, "two"),
			typeReg(iface1Type, class1Type, "three"),
			typeReg(iface1Type, class1Type, ""),
		)

		res, err := s.resolve(reflect.TypeFor[map[string]testutil.IInterface1](), "")
		require.NoError(t, err)
		dict := res.Object.(map[string]testutil.IInterface1)

		require.Len(t, dict, 3)
		assert.IsType(t, &testutil.Class1{}, dict["one"])
		assert.IsType(t, &testutil.Class1Alt{}, dict["two"])
		assert.IsType(t, &testutil.Class1{}, dict["three"])
	})

	t.Run("empty", func(t *testing.T) {
		s := newScope(t, nil, nil)
		res, err := s.resolve(reflect.TypeFor[map[string]testutil.IInterface1](), "")
		require.NoError(t, err)
		dict := res.Object.(map[string]testutil.IInterface1)
		assert.NotNil(t, dict)
		assert.Empty(t, dict)
	})

	t.Run("enum keys", func(t *testing.T) {
		s := newScope(t, nil, nil)
		s.add(t,
			typeReg(iface1Type, class1Type, string(testutil.Red)),
			typeReg(iface1Type, altType, string(testutil.Blue)),
		)

		res, err := s.resolve(reflect.TypeFor[map[testutil.Color]testutil.IInterface1](), "")
		require.NoError(t, err)
		dict := res.Object.(map[testutil.Color]testutil.IInterface1)
		assert.Len(t, dict, 2)
		assert.Contains(t, dict, testutil.Red)
		assert.Contains(t, dict, testutil.Blue)
	})

	t.Run("child shadows parent", func(t *testing.T) {
		parent := newScope(t, nil, nil)
		parent.add(t,
			typeReg(iface1Type, class1Type, "one"),
			typeReg(iface1Type, class1Type, "two"),
		)
		child := newScope(t, parent, nil)
		child.add(t, typeReg(iface1Type, altType, "two"))

		res, err := child.resolve(reflect.TypeFor[map[string]testutil.IInterface1](), "")
		require.NoError(t, err)
		dict := res.Object.(map[string]testutil.IInterface1)
		require.Len(t, dict, 2)
		assert.IsType(t, &testutil.Class1{}, dict["one"])
		assert.IsType(t, &testutil.Class1Alt{}, dict["two"])
	})

	t.Run("unsupported key", func(t *testing.T) {
		s := newScope(t, nil, nil)
		_, err := s.resolve(reflect.TypeFor[map[int]testutil.IInterface1](), "")
		require.Error(t, err)

		var keyErr *resolver.UnsupportedDictionaryKeyError
		require.True(t, errors.As(err, &keyErr))
		assert.Equal(t, reflect.TypeFor[int](), keyErr.KeyType)
	})

	t.Run("explicit registration wins", func(t *testing.T) {
		s := newScope(t, nil, nil)
		explicit := map[int]testutil.IInterface1{1: testutil.NewClass1()}
		s.add(t, registry.NewInstanceRegistration(reflect.TypeFor[map[int]testutil.IInterface1](), explicit, registry.Options{}))

		res, err := s.resolve(reflect.TypeFor[map[int]testutil.IInterface1](), "")
		require.NoError(t, err)
		assert.Equal(t, explicit, res.Object)
	})

	t.Run("disabled", func(t *testing.T) {
		s := newScope(t, nil, func(cfg *resolver.Config) { cfg.SupportNamedDictionaries = false })
		s.add(t, typeReg(iface1Type, class1Type, "one"))

		res, err := s.resolve(reflect.TypeFor[map[string]testutil.IInterface1](), "")
		require.NoError(t, err)
		assert.False(t, res.Success)
	})
}

func TestResolve_RegisteredNameInjection(t *testing.T) {
	t.Parallel()

	s := newScope(t, nil, nil)
	thingType := reflect.TypeFor[*NamedThing]()
	s.add(t,
		typeReg(thingType, thingType, "alpha"),
		typeReg(thingType, thingType, "beta"),
	)

	alpha, err := s.resolve(thingType, "alpha")
	require.NoError(t, err)
	beta, err := s.resolve(thingType, "beta")
	require.NoError(t, err)

	assert.Equal(t, "alpha", alpha.Object.(*NamedThing).Name)
	assert.Equal(t, "beta", beta.Object.(*NamedThing).Name)

	// Outside a resolution the special name is an ordinary lookup.
	res, err := s.resolve(reflect.TypeFor[string](), resolver.RegisteredName)
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestResolve_SelfReferenceCarriesPath(t *testing.T) {
	t.Parallel()

	s := newScope(t, nil, nil)
	needsType := reflect.TypeFor[*NeedsSelf]()
	s.add(t, typeReg(needsType, needsType, ""))

	res, err := s.resolve(needsType, "")
	require.NoError(t, err)

	handle := res.Object.(*NeedsSelf).Self
	require.NotNil(t, handle)
	require.Equal(t, 1, handle.Path().Len())
	assert.Equal(t, needsType, handle.Path().Last().ServiceType())

	// Resolving through the handle's path sees the cycle.
	_, err = s.chains.Leaf.Resolve(resolver.NewRequest(needsType, "", handle.Path()))
	assert.True(t, resolver.IsCircularDependency(err))
}

func TestResolve_OptionalMode(t *testing.T) {
	t.Parallel()

	s := newScope(t, nil, func(cfg *resolver.Config) { cfg.MakeAllResolutionOptional = true })
	s.add(t, typeReg(depType, depType, ""))

	res, err := s.resolve(depType, "")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Nil(t, res.Object.(*testutil.ClassWithDependency).Dep)
}

func TestResolve_MissingDependencyReportsPath(t *testing.T) {
	t.Parallel()

	s := newScope(t, nil, nil)
	s.add(t, typeReg(depType, depType, ""))

	_, err := s.resolve(depType, "")
	require.Error(t, err)
	assert.True(t, resolver.IsNotFound(err))

	stack, ok := resolver.GetResolutionStack(err)
	require.True(t, ok)
	require.Len(t, stack, 1)
	assert.Equal(t, depType, stack[0].ServiceType)
	assert.Contains(t, err.Error(), "IInterface1")
}

func TestResolve_ConstructorFailure(t *testing.T) {
	t.Parallel()

	s := newScope(t, nil, nil)
	failing := reflect.TypeFor[*testutil.FailingService]()
	s.add(t, registry.NewTypeRegistration(failing, failing, registry.Options{
		Constructors: []any{testutil.NewFailingService},
	}))

	_, err := s.resolve(failing, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, testutil.ErrConstructor)
	assert.False(t, s.cache.Has(failing, ""))
}

func TestResolve_CircularDetectionDisabledStillResolvesAcyclic(t *testing.T) {
	t.Parallel()

	s := newScope(t, nil, func(cfg *resolver.Config) { cfg.ThrowOnCircularDependencies = false })
	s.add(t,
		typeReg(iface1Type, class1Type, ""),
		typeReg(depType, depType, ""),
	)

	res, err := s.resolve(depType, "")
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestResolve_NoCacheBuildsEveryTime(t *testing.T) {
	t.Parallel()

	s := newScope(t, nil, func(cfg *resolver.Config) { cfg.UseInstanceCache = false })
	s.add(t, typeReg(iface1Type, class1Type, ""))

	first, err := s.resolve(iface1Type, "")
	require.NoError(t, err)
	second, err := s.resolve(iface1Type, "")
	require.NoError(t, err)

	assert.NotSame(t, first.Object, second.Object)
}

func TestResolve_ConcurrentSharedConstructionHappensOnce(t *testing.T) {
	t.Parallel()

	s := newScope(t, nil, nil)
	s.add(t, typeReg(iface1Type, class1Type, ""))

	const workers = 32
	results := make([]any, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := s.resolve(iface1Type, "")
			assert.NoError(t, err)
			results[i] = res.Object
		}(i)
	}
	wg.Wait()

	for _, r := range results[1:] {
		assert.Same(t, results[0], r)
	}
	assert.Equal(t, 1, s.createdCount())
}

func TestResolve_NestedResolutionDoesNotWaitOnConstruction(t *testing.T) {
	t.Parallel()

	s := newScope(t, nil, nil)
	dep := typeReg(iface1Type, class1Type, "")
	s.add(t, dep, typeReg(depType, depType, ""))

	// Another resolution is constructing dep.
	mu := s.cache.Lock(dep)
	mu.Lock()
	defer mu.Unlock()

	done := make(chan resolver.Result, 1)
	go func() {
		res, err := s.resolve(depType, "")
		assert.NoError(t, err)
		done <- res
	}()

	select {
	case res := <-done:
		require.True(t, res.Success)
		cached, ok := s.cache.TryGet(dep)
		require.True(t, ok)
		assert.Same(t, cached, res.Object.(*testutil.ClassWithDependency).Dep)
	case <-time.After(5 * time.Second):
		t.Fatal("nested resolution waited on a construction in flight")
	}
}

func TestResolve_ReplacedRegistrationIsNotCached(t *testing.T) {
	t.Parallel()

	s := newScope(t, nil, nil)
	s.add(t, typeReg(iface1Type, class1Type, ""))

	var once sync.Once
	entered := make(chan struct{})
	release := make(chan struct{})
	s.add(t, registry.NewFactoryRegistration(depType, func(dep testutil.IInterface1) *testutil.ClassWithDependency {
		once.Do(func() { close(entered) })
		<-release
		return &testutil.ClassWithDependency{Dep: dep}
	}, registry.Options{}))

	// Resolve dep's dependency first so only the outer construction is in flight.
	first, err := s.resolve(iface1Type, "")
	require.NoError(t, err)
	require.IsType(t, &testutil.Class1{}, first.Object)

	done := make(chan resolver.Result, 1)
	go func() {
		res, err := s.resolve(depType, "")
		assert.NoError(t, err)
		done <- res
	}()
	<-entered

	factory, ok := s.registry.Get(registry.Key{ServiceType: depType})
	require.True(t, ok)
	rebuilt := registry.NewFactoryRegistration(depType, func() *testutil.ClassWithDependency {
		return &testutil.ClassWithDependency{}
	}, registry.Options{})
	require.NoError(t, s.registry.Add(rebuilt, nil))
	close(release)

	res := <-done
	require.True(t, res.Success)
	assert.Nil(t, res.Object.(*testutil.ClassWithDependency).Dep)

	_, ok = s.cache.TryGet(factory)
	assert.False(t, ok)
	cached, ok := s.cache.TryGet(rebuilt)
	require.True(t, ok)
	assert.Same(t, res.Object, cached)
}

func TestResolve_ExactNameReachesParent(t *testing.T) {
	t.Parallel()

	parent := newScope(t, nil, nil)
	parent.add(t, typeReg(iface1Type, class1Type, "x"))

	child := newScope(t, parent, nil)
	child.add(t, typeReg(iface1Type, altType, ""))

	loose, err := child.resolve(iface1Type, "x")
	require.NoError(t, err)
	assert.IsType(t, &testutil.Class1Alt{}, loose.Object)

	exact, err := child.chains.Leaf.Resolve(resolver.NewRequest(iface1Type, "x", nil).WithExactName())
	require.NoError(t, err)
	require.True(t, exact.Success)
	assert.IsType(t, &testutil.Class1{}, exact.Object)

	fromParent, err := parent.resolve(iface1Type, "x")
	require.NoError(t, err)
	assert.Same(t, fromParent.Object, exact.Object)
}

func TestResolve_OpenGeneric(t *testing.T) {
	t.Parallel()

	s := newScope(t, nil, nil)
	s.add(t, registry.NewOpenGenericRegistration(
		reflect.TypeFor[testutil.IGenericService[int]](),
		reflect.TypeFor[*testutil.GenericService[int]](),
		registry.Options{Constructors: []any{
			testutil.NewGenericService[int],
			testutil.NewGenericService[*testutil.VerySimpleClass],
		}},
	))

	res, err := s.resolve(reflect.TypeFor[testutil.IGenericService[*testutil.VerySimpleClass]](), "")
	require.NoError(t, err)
	assert.IsType(t, &testutil.GenericService[*testutil.VerySimpleClass]{}, res.Object)

	again, err := s.resolve(reflect.TypeFor[testutil.IGenericService[*testutil.VerySimpleClass]](), "")
	require.NoError(t, err)
	assert.Same(t, res.Object, again.Object)
	assert.Equal(t, 1, s.createdCount())
}

func TestPath(t *testing.T) {
	t.Parallel()

	var empty *resolver.Path
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, 0, empty.Len())
	assert.Nil(t, empty.Last())
	assert.Empty(t, empty.Registrations())

	a := typeReg(iface1Type, class1Type, "")
	b := typeReg(depType, depType, "")

	one := empty.Append(a)
	two := one.Append(b)

	assert.True(t, empty.IsEmpty())
	assert.Equal(t, 1, one.Len())
	assert.Equal(t, 2, two.Len())
	assert.Equal(t, []registry.Registration{a, b}, two.Registrations())
	assert.Same(t, b, two.Last())
	assert.Equal(t, []registry.Key{a.Key(), b.Key()}, two.Keys())

	assert.True(t, two.Contains(a))
	assert.False(t, one.Contains(b))

	// Same service, different implementation: not a match.
	assert.False(t, one.Contains(typeReg(iface1Type, altType, "")))
	// Same service and implementation: a match.
	assert.True(t, one.Contains(typeReg(iface1Type, class1Type, "")))
	// Different name: not a match.
	assert.False(t, one.Contains(typeReg(iface1Type, class1Type, "x")))

	assert.True(t, resolver.HasCircularDependency(a, two))
	assert.NoError(t, resolver.CheckCircularDependency(typeReg(simpleType, simpleType, ""), two))
}

func TestRequest_WithoutName(t *testing.T) {
	t.Parallel()

	req := resolver.NewRequest(iface1Type, "n", nil)
	assert.Equal(t, registry.Key{ServiceType: iface1Type, Name: "n"}, req.Key())
	assert.Equal(t, "", req.WithoutName().Name)
	assert.Equal(t, "n", req.Name)

	exact := req.WithExactName()
	assert.True(t, exact.ExactName)
	assert.False(t, req.ExactName)
}
