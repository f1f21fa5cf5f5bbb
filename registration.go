package chaindi

import (
	"reflect"

	"github.com/junioryono/chaindi/internal/registry"
)

// Registration is a rule for producing instances of a service type under an
// optional name. Build one with Type, TypeOf, Instance, Factory, or
// OpenGeneric.
type Registration = registry.Registration

// Multiplicity controls how many instances a registration yields per container.
type Multiplicity = registry.Multiplicity

const (
	// Shared registrations yield one instance per container.
	Shared = registry.Shared

	// InstancePerResolution registrations yield a new instance per request.
	InstancePerResolution = registry.InstancePerResolution
)

// RegistrationOption configures a registration.
type RegistrationOption interface {
	apply(*registry.Options)
}

// registrationOptionFunc adapts a function to RegistrationOption.
type registrationOptionFunc func(*registry.Options)

func (f registrationOptionFunc) apply(opts *registry.Options) {
	f(opts)
}

// Named registers the service under name. The empty name is the unnamed registration.
func Named(name string) RegistrationOption {
	return registrationOptionFunc(func(opts *registry.Options) {
		opts.Name = name
	})
}

// WithMultiplicity sets the registration's multiplicity. The default is Shared.
func WithMultiplicity(m Multiplicity) RegistrationOption {
	return registrationOptionFunc(func(opts *registry.Options) {
		opts.Multiplicity = m
	})
}

// NotCacheable keeps a Shared registration out of the instance cache.
func NotCacheable() RegistrationOption {
	return registrationOptionFunc(func(opts *registry.Options) {
		opts.NotCacheable = true
	})
}

// DisposeWithContainer overrides whether the cached instance is closed with
// its container. Only cacheable registrations may be disposed.
func DisposeWithContainer(dispose bool) RegistrationOption {
	return registrationOptionFunc(func(opts *registry.Options) {
		opts.DisposeWithContainer = &dispose
	})
}

// WithConstructors supplies candidate constructors for a type or open
// generic registration. For open generics, pass one constructor per closed
// instantiation.
func WithConstructors(constructors ...any) RegistrationOption {
	return registrationOptionFunc(func(opts *registry.Options) {
		opts.Constructors = append(opts.Constructors, constructors...)
	})
}

func buildOptions(opts []RegistrationOption) registry.Options {
	var o registry.Options
	for _, opt := range opts {
		if opt != nil {
			opt.apply(&o)
		}
	}
	return o
}

// Type maps the service type TService onto the implementation type TImpl.
//
// Example:
//
//	chaindi.Type[Logger, *ConsoleLogger]()
//	chaindi.Type[*UserService, *UserService](chaindi.WithConstructors(NewUserService))
func Type[TService, TImpl any](opts ...RegistrationOption) Registration {
	return TypeOf(reflect.TypeFor[TService](), reflect.TypeFor[TImpl](), opts...)
}

// TypeOf is the reflect.Type form of Type.
func TypeOf(serviceType, implType reflect.Type, opts ...RegistrationOption) Registration {
	return registry.NewTypeRegistration(serviceType, implType, buildOptions(opts))
}

// Instance registers a pre-built value for T. Instances are always Shared and
// are not closed with the container unless DisposeWithContainer(true) is given.
func Instance[T any](instance T, opts ...RegistrationOption) Registration {
	return registry.NewInstanceRegistration(reflect.TypeFor[T](), any(instance), buildOptions(opts))
}

// Factory registers fn as the producer of T. fn returns a value assignable
// to T, optionally followed by an error; its parameters are resolved like a
// constructor's.
//
// Example:
//
//	chaindi.Factory[*sql.DB](func(cfg *Config) (*sql.DB, error) {
//	    return sql.Open("postgres", cfg.DSN)
//	})
func Factory[T any](fn any, opts ...RegistrationOption) Registration {
	return registry.NewFactoryRegistration(reflect.TypeFor[T](), fn, buildOptions(opts))
}

// OpenGeneric maps the generic family of servicePrototype onto the generic
// family of implPrototype. Prototypes are any instantiation of the two
// generic types; WithConstructors supplies the closed instantiations that
// can be built.
//
// Example:
//
//	chaindi.OpenGeneric(
//	    reflect.TypeFor[Repository[any]](),
//	    reflect.TypeFor[*SQLRepository[any]](),
//	    chaindi.WithConstructors(NewSQLRepository[User], NewSQLRepository[Order]),
//	)
func OpenGeneric(servicePrototype, implPrototype reflect.Type, opts ...RegistrationOption) Registration {
	return registry.NewOpenGenericRegistration(servicePrototype, implPrototype, buildOptions(opts))
}
