// Package chaindi provides a dependency injection container whose resolution
// engine is a chain of small resolvers, each adding one behavior before it
// delegates to the next.
//
// # Overview
//
// A Container owns a registry of registrations and a cache of the shared
// instances it has built. Containers form a tree: a child resolves what it
// can on its own and hands everything else to its parent, so per-request or
// per-job scopes can override services without touching the root.
//
// The library provides:
//   - Type, instance, factory, and open generic registrations
//   - Shared and instance-per-resolution multiplicity
//   - Named registrations with fallback to the unnamed one
//   - Circular dependency detection with the full resolution path
//   - Named-instance dictionaries (map[string]T, map[Enum]T)
//   - Optional auto-resolution of unregistered concrete types
//   - Disposal of cached instances when a container is closed
//   - Thread-safe resolution
//
// # Basic Usage
//
// Register services, create a container, and resolve:
//
//	c, err := chaindi.New(nil,
//	    chaindi.Type[Logger, *ConsoleLogger](),
//	    chaindi.Type[*UserService, *UserService](chaindi.WithConstructors(NewUserService)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	users, err := chaindi.Resolve[*UserService](c)
//
// # Constructors
//
// A type registration is built by calling a constructor of its
// implementation type. Constructors are plain functions returning the
// implementation, optionally followed by an error:
//
//	func NewUserService(db *Database, logger Logger) *UserService
//	func NewDatabase(cfg *Config) (*Database, error)
//
// When several constructors are known, the one with the most parameters
// wins. Two public constructors with the same number of parameters are
// ambiguous. Struct types without a known constructor are built from their
// zero value.
//
// Constructors can be attached to one registration with WithConstructors or
// made known to the whole container through Options.Constructors.
//
// # Parameter Objects (In)
//
// Constructors that need names or optional dependencies take a single struct
// embedding chaindi.In:
//
//	type ServiceParams struct {
//	    chaindi.In
//
//	    Database *Database
//	    Logger   Logger `optional:"true"`
//	    Cache    Cache  `name:"redis"`
//	    Self     string `name:"registeredName"`
//	}
//
// A string field named "registeredName" receives the name of the
// registration being constructed.
//
// # Named Services
//
//	chaindi.Type[Cache, *RedisCache](chaindi.Named("redis"))
//	chaindi.Type[Cache, *MemoryCache](chaindi.Named("memory"))
//
//	cache, err := chaindi.ResolveNamed[Cache](c, "redis")
//	all, err := chaindi.ResolveDictionary[string, Cache](c)
//
// A named request that has no exact match is served by the unnamed
// registration of the same type. An unnamed request never picks a named
// registration.
//
// # Child Containers
//
//	child, err := c.NewChild(chaindi.Type[Clock, *FrozenClock]())
//	defer child.Close()
//
// Each container caches its own shared instances. Closing a child disposes
// only what the child built.
//
// # Validation
//
// Validate checks the registrations without constructing anything, and
// WriteDependencyGraph renders them in Graphviz DOT format:
//
//	if err := c.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Web Frameworks
//
// The chi, gin, echo, and fiber subpackages create a child container per
// request and resolve handlers from it.
//
// # Error Handling
//
// Resolution failures are reported as *ResolutionError with the path of
// registrations that led to the failure. Cycles are reported as
// *CircularDependencyError. Registration problems surface immediately from
// New, NewChild, and AddRegistrations as InvalidRegistrationError or
// StaleRegistrationError.
package chaindi
