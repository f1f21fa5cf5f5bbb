package registry

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/junioryono/chaindi/internal/reflection"
	"github.com/puzpuzpuz/xsync/v3"
)

// Multiplicity determines whether a registration yields one instance per
// scope or a fresh instance per resolution.
type Multiplicity int

const (
	// Shared reuses one instance for the life of the owning scope.
	Shared Multiplicity = iota

	// InstancePerResolution creates a new instance on every resolve.
	InstancePerResolution
)

// String returns the string representation of the Multiplicity.
func (m Multiplicity) String() string {
	switch m {
	case Shared:
		return "Shared"
	case InstancePerResolution:
		return "InstancePerResolution"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// IsValid checks if the multiplicity is a known value.
func (m Multiplicity) IsValid() bool {
	return m == Shared || m == InstancePerResolution
}

// Kind names the registration variant.
type Kind int

const (
	KindType Kind = iota
	KindOpenGeneric
	KindInstance
	KindFactory
)

func (k Kind) String() string {
	switch k {
	case KindType:
		return "type"
	case KindOpenGeneric:
		return "open-generic"
	case KindInstance:
		return "instance"
	case KindFactory:
		return "factory"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Registration describes how to produce an instance for a service type and
// optional name. Its identity never changes after creation.
type Registration interface {
	Key() Key
	ServiceType() reflect.Type
	Name() string

	// ImplementationType is the concrete type produced, or nil when unknown.
	ImplementationType() reflect.Type

	Multiplicity() Multiplicity
	Cacheable() bool
	DisposeWithContainer() bool
	Kind() Kind

	// Validate reports an InvalidRegistrationError when the registration is unusable.
	Validate() error

	// Adapter returns the factory adapter producing instances of this registration.
	Adapter(selector *reflection.ConstructorSelector) (reflection.FactoryAdapter, error)

	String() string
}

// Options are the settings shared by all registration variants.
type Options struct {
	Name         string
	Multiplicity Multiplicity
	NotCacheable bool

	// DisposeWithContainer overrides the variant's default when set.
	DisposeWithContainer *bool

	// Constructors are candidate constructors for type and open generic registrations.
	Constructors []any
}

// base holds the attributes common to all registration variants.
type base struct {
	serviceType  reflect.Type
	name         string
	multiplicity Multiplicity
	notCacheable bool
	dispose      *bool
	errs         []error
}

func newBase(serviceType reflect.Type, opts Options) base {
	return base{
		serviceType:  serviceType,
		name:         opts.Name,
		multiplicity: opts.Multiplicity,
		notCacheable: opts.NotCacheable,
		dispose:      opts.DisposeWithContainer,
	}
}

func (b *base) Key() Key                   { return Key{ServiceType: b.serviceType, Name: b.name} }
func (b *base) ServiceType() reflect.Type  { return b.serviceType }
func (b *base) Name() string               { return b.name }
func (b *base) Multiplicity() Multiplicity { return b.multiplicity }

func (b *base) Cacheable() bool {
	return b.multiplicity == Shared && !b.notCacheable
}

func (b *base) disposeOr(def bool) bool {
	if b.dispose != nil {
		return *b.dispose
	}
	return def
}

func (b *base) fail(format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
}

// validate checks the invariants every variant shares.
func (b *base) validate(disposeWithContainer bool) []error {
	errs := slices.Clone(b.errs)

	if b.serviceType == nil {
		errs = append(errs, fmt.Errorf("service type cannot be nil"))
	}

	if !b.multiplicity.IsValid() {
		errs = append(errs, fmt.Errorf("invalid multiplicity %v", b.multiplicity))
	}

	if disposeWithContainer && !b.Cacheable() {
		errs = append(errs, fmt.Errorf("an instance that is never cached cannot be disposed with its container"))
	}

	return errs
}

func (b *base) invalid(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return InvalidRegistrationError{Key: b.Key(), Cause: errors.Join(errs...)}
}

// TypeRegistration produces instances by invoking a constructor of its
// implementation type with recursively resolved arguments.
type TypeRegistration struct {
	base
	implType     reflect.Type
	constructors []reflection.FactoryAdapter
}

// NewTypeRegistration maps serviceType onto implType.
func NewTypeRegistration(serviceType, implType reflect.Type, opts Options) *TypeRegistration {
	r := &TypeRegistration{
		base:     newBase(serviceType, opts),
		implType: implType,
	}

	if len(opts.Constructors) > 0 {
		analyzer := reflection.New()
		for _, c := range opts.Constructors {
			adapter, err := reflection.NewFuncAdapter(analyzer, c)
			if err != nil {
				r.fail("constructor %T: %w", c, err)
				continue
			}
			r.constructors = append(r.constructors, adapter)
		}
	}

	return r
}

func (r *TypeRegistration) ImplementationType() reflect.Type { return r.implType }
func (r *TypeRegistration) Kind() Kind                       { return KindType }
func (r *TypeRegistration) DisposeWithContainer() bool       { return r.disposeOr(r.Cacheable()) }

func (r *TypeRegistration) String() string {
	return fmt.Sprintf("%s -> %s", r.Key(), reflection.FormatType(r.implType))
}

func (r *TypeRegistration) Validate() error {
	errs := r.validate(r.DisposeWithContainer())

	switch {
	case r.implType == nil:
		errs = append(errs, fmt.Errorf("implementation type cannot be nil"))
	case r.serviceType != nil && !r.implType.AssignableTo(r.serviceType):
		errs = append(errs, fmt.Errorf("%s is not assignable to %s",
			reflection.FormatType(r.implType), reflection.FormatType(r.serviceType)))
	}

	for _, c := range r.constructors {
		if r.implType != nil && !c.ResultType().AssignableTo(r.implType) {
			errs = append(errs, fmt.Errorf("constructor %s returns %s, not %s",
				c, reflection.FormatType(c.ResultType()), reflection.FormatType(r.implType)))
		}
	}

	return r.invalid(errs)
}

func (r *TypeRegistration) Adapter(selector *reflection.ConstructorSelector) (reflection.FactoryAdapter, error) {
	if len(r.constructors) > 0 {
		return selector.Select(r.implType, r.constructors)
	}
	return selector.SelectConstructor(r.implType)
}

// NewImplicitRegistration treats t as its own implementation; it backs
// auto-resolution of unregistered types.
func NewImplicitRegistration(t reflect.Type) *TypeRegistration {
	return NewTypeRegistration(t, t, Options{})
}

// OpenGenericRegistration maps a generic service family onto a generic
// implementation family. Closed instantiations of the implementation are
// provided as constructors.
type OpenGenericRegistration struct {
	base
	implPrototype reflect.Type
	serviceFamily reflection.Family
	implFamily    reflection.Family
	constructors  []reflection.FactoryAdapter
	closed        *xsync.MapOf[reflect.Type, *TypeRegistration]
	opts          Options
}

// NewOpenGenericRegistration registers the family of servicePrototype to be
// served by the family of implPrototype. Prototypes are any instantiation of
// the respective generic types.
func NewOpenGenericRegistration(servicePrototype, implPrototype reflect.Type, opts Options) *OpenGenericRegistration {
	r := &OpenGenericRegistration{
		base:          newBase(servicePrototype, opts),
		implPrototype: implPrototype,
		closed:        xsync.NewMapOf[reflect.Type, *TypeRegistration](),
		opts:          opts,
	}

	var ok bool
	if r.serviceFamily, _, ok = reflection.GenericFamily(servicePrototype); !ok {
		r.fail("%s is not a generic instantiation", reflection.FormatType(servicePrototype))
	}
	if r.implFamily, _, ok = reflection.GenericFamily(implPrototype); !ok {
		r.fail("%s is not a generic instantiation", reflection.FormatType(implPrototype))
	}

	analyzer := reflection.New()
	for _, c := range opts.Constructors {
		adapter, err := reflection.NewFuncAdapter(analyzer, c)
		if err != nil {
			r.fail("constructor %T: %w", c, err)
			continue
		}
		r.constructors = append(r.constructors, adapter)
	}

	return r
}

func (r *OpenGenericRegistration) ImplementationType() reflect.Type { return r.implPrototype }
func (r *OpenGenericRegistration) Kind() Kind                       { return KindOpenGeneric }
func (r *OpenGenericRegistration) DisposeWithContainer() bool       { return r.disposeOr(r.Cacheable()) }

func (r *OpenGenericRegistration) String() string {
	return fmt.Sprintf("%s -> %s", r.serviceFamily, r.implFamily)
}

// Validate checks the open relationship once: the implementation prototype
// must satisfy the service prototype.
func (r *OpenGenericRegistration) Validate() error {
	errs := r.validate(r.DisposeWithContainer())

	if r.implPrototype == nil {
		errs = append(errs, fmt.Errorf("implementation prototype cannot be nil"))
	} else if r.serviceType != nil && !r.implPrototype.AssignableTo(r.serviceType) {
		errs = append(errs, fmt.Errorf("%s does not satisfy %s",
			r.implFamily, r.serviceFamily))
	}

	if len(r.constructors) == 0 && len(r.errs) == 0 {
		errs = append(errs, fmt.Errorf("at least one instantiation constructor is required"))
	}

	for _, c := range r.constructors {
		if !reflection.InFamily(c.ResultType(), r.implFamily) {
			errs = append(errs, fmt.Errorf("constructor %s returns %s, which is not a %s",
				c, reflection.FormatType(c.ResultType()), r.implFamily))
		}
	}

	return r.invalid(errs)
}

func (r *OpenGenericRegistration) Adapter(*reflection.ConstructorSelector) (reflection.FactoryAdapter, error) {
	return nil, fmt.Errorf("open generic registration %s must be closed before construction", r)
}

// Close substitutes the type arguments of closedService into the
// implementation family. The closed registration is memoized per closed
// service type so its identity stays stable.
func (r *OpenGenericRegistration) Close(closedService reflect.Type) (*TypeRegistration, error) {
	if closed, ok := r.closed.Load(closedService); ok {
		return closed, nil
	}

	args, ok := reflection.TypeArguments(closedService)
	if !ok || !reflection.InFamily(closedService, r.serviceFamily) {
		return nil, fmt.Errorf("%s is not a member of %s", reflection.FormatType(closedService), r.serviceFamily)
	}

	var implType reflect.Type
	var candidates []any
	for i, c := range r.constructors {
		if implArgs, _ := reflection.TypeArguments(c.ResultType()); implArgs == args {
			implType = c.ResultType()
			candidates = append(candidates, r.opts.Constructors[i])
		}
	}

	if implType == nil {
		return nil, reflection.NoUsableConstructorError{Type: closedService}
	}

	opts := r.opts
	opts.Constructors = candidates
	closed := NewTypeRegistration(closedService, implType, opts)

	actual, _ := r.closed.LoadOrStore(closedService, closed)
	return actual, nil
}

// Instantiations returns the closed registrations produced by Close so far.
func (r *OpenGenericRegistration) Instantiations() []*TypeRegistration {
	var closed []*TypeRegistration
	r.closed.Range(func(_ reflect.Type, reg *TypeRegistration) bool {
		closed = append(closed, reg)
		return true
	})
	return closed
}

// InstanceRegistration wraps a pre-built object. It is always Shared and
// always cacheable: the registration is its own cache entry.
type InstanceRegistration struct {
	base
	instance any
}

// NewInstanceRegistration wraps instance as serviceType.
func NewInstanceRegistration(serviceType reflect.Type, instance any, opts Options) *InstanceRegistration {
	return &InstanceRegistration{
		base:     newBase(serviceType, opts),
		instance: instance,
	}
}

func (r *InstanceRegistration) ImplementationType() reflect.Type { return reflect.TypeOf(r.instance) }
func (r *InstanceRegistration) Kind() Kind                       { return KindInstance }
func (r *InstanceRegistration) DisposeWithContainer() bool       { return r.disposeOr(false) }
func (r *InstanceRegistration) Instance() any                    { return r.instance }

func (r *InstanceRegistration) String() string {
	return fmt.Sprintf("%s = instance of %s", r.Key(), reflection.FormatType(r.ImplementationType()))
}

func (r *InstanceRegistration) Validate() error {
	errs := r.validate(r.DisposeWithContainer())

	if r.multiplicity != Shared {
		errs = append(errs, fmt.Errorf("instance registrations are always Shared, got %v", r.multiplicity))
	}

	if r.notCacheable {
		errs = append(errs, fmt.Errorf("instance registrations cannot be made non-cacheable"))
	}

	if r.instance == nil {
		errs = append(errs, fmt.Errorf("instance cannot be nil"))
	} else if r.serviceType != nil && !reflect.TypeOf(r.instance).AssignableTo(r.serviceType) {
		errs = append(errs, fmt.Errorf("%s is not assignable to %s",
			reflection.FormatType(reflect.TypeOf(r.instance)), reflection.FormatType(r.serviceType)))
	}

	return r.invalid(errs)
}

func (r *InstanceRegistration) Adapter(*reflection.ConstructorSelector) (reflection.FactoryAdapter, error) {
	return reflection.NewInstanceAdapter(r.instance), nil
}

// FactoryRegistration wraps a user-supplied callable. Its parameters are
// resolved like a constructor's; a parameterless factory runs immediately.
type FactoryRegistration struct {
	base
	adapter reflection.FactoryAdapter
}

// NewFactoryRegistration wraps fn, a function returning serviceType or (serviceType, error).
func NewFactoryRegistration(serviceType reflect.Type, fn any, opts Options) *FactoryRegistration {
	r := &FactoryRegistration{base: newBase(serviceType, opts)}

	adapter, err := reflection.NewFuncAdapter(reflection.New(), fn)
	if err != nil {
		r.fail("factory %T: %w", fn, err)
		return r
	}

	r.adapter = adapter
	return r
}

// NewCallbackRegistration wraps a parameterless Go callback producing serviceType.
func NewCallbackRegistration(serviceType reflect.Type, name string, fn func() (any, error), opts Options) *FactoryRegistration {
	r := &FactoryRegistration{base: newBase(serviceType, opts)}
	if fn == nil {
		r.fail("callback cannot be nil")
		return r
	}

	r.adapter = reflection.NewCallAdapter(serviceType, name, fn)
	return r
}

// ImplementationType is unknown for factories: the callable decides.
func (r *FactoryRegistration) ImplementationType() reflect.Type { return nil }
func (r *FactoryRegistration) Kind() Kind                       { return KindFactory }
func (r *FactoryRegistration) DisposeWithContainer() bool       { return r.disposeOr(r.Cacheable()) }

func (r *FactoryRegistration) String() string {
	if r.adapter == nil {
		return fmt.Sprintf("%s = factory", r.Key())
	}
	return fmt.Sprintf("%s = factory %s", r.Key(), r.adapter)
}

func (r *FactoryRegistration) Validate() error {
	errs := r.validate(r.DisposeWithContainer())

	if r.adapter != nil && r.serviceType != nil && !r.adapter.ResultType().AssignableTo(r.serviceType) {
		errs = append(errs, fmt.Errorf("factory returns %s, which is not assignable to %s",
			reflection.FormatType(r.adapter.ResultType()), reflection.FormatType(r.serviceType)))
	}

	return r.invalid(errs)
}

func (r *FactoryRegistration) Adapter(*reflection.ConstructorSelector) (reflection.FactoryAdapter, error) {
	if r.adapter == nil {
		return nil, r.Validate()
	}
	return r.adapter, nil
}

// Matches reports whether two registrations occupy the same place in a
// resolution path: equal keys, and for typed registrations also equal
// implementation types, so that distinct implementations bound to one service
// are not taken for a cycle.
func Matches(a, b Registration) bool {
	if a == b {
		return true
	}

	if a == nil || b == nil || a.Key() != b.Key() {
		return false
	}

	if a.Kind() == KindType && b.Kind() == KindType {
		return a.ImplementationType() == b.ImplementationType()
	}

	return true
}
