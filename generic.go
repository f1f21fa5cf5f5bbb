package chaindi

import (
	"fmt"
	"reflect"
)

// Resolve resolves the unnamed service of type T.
//
// Example:
//
//	logger, err := chaindi.Resolve[Logger](c)
//	if err != nil {
//	    // Handle error
//	}
func Resolve[T any](r Resolver) (T, error) {
	return ResolveNamed[T](r, "")
}

// ResolveNamed resolves the service of type T registered under name,
// falling back to the unnamed registration.
//
// Example:
//
//	cache, err := chaindi.ResolveNamed[Cache](c, "redis")
func ResolveNamed[T any](r Resolver, name string) (T, error) {
	var zero T

	if r == nil {
		return zero, fmt.Errorf("resolver cannot be nil")
	}

	serviceType := reflect.TypeFor[T]()
	service, err := r.Resolve(serviceType, name)
	if err != nil {
		return zero, err
	}

	return cast[T](serviceType, service)
}

// TryResolve resolves the unnamed service of type T and reports whether it
// could be produced.
func TryResolve[T any](r Resolver) (T, bool) {
	var zero T

	if r == nil {
		return zero, false
	}

	service, ok := r.TryResolve(reflect.TypeFor[T](), "")
	if !ok {
		return zero, false
	}

	result, ok := service.(T)
	return result, ok
}

// MustResolve resolves the unnamed service of type T and panics on failure.
// Use it where a missing service is fatal, such as application startup.
//
// Example:
//
//	logger := chaindi.MustResolve[Logger](c)
func MustResolve[T any](r Resolver) T {
	service, err := Resolve[T](r)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve service: %v", err))
	}

	return service
}

// ResolveAll resolves one instance of T per visible registration of T.
//
// Example:
//
//	handlers, err := chaindi.ResolveAll[http.Handler](c)
func ResolveAll[T any](r Resolver) ([]T, error) {
	if r == nil {
		return nil, fmt.Errorf("resolver cannot be nil")
	}

	serviceType := reflect.TypeFor[T]()
	services, err := r.ResolveAll(serviceType)
	if err != nil {
		return nil, err
	}

	results := make([]T, 0, len(services))
	for _, service := range services {
		result, err := cast[T](serviceType, service)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, nil
}

// ResolveDictionary resolves the named registrations of V keyed by their
// names. K is a string type or an enum type whose pointer implements
// encoding.TextUnmarshaler. Requires SupportResolvingNamedInstanceDictionaries
// unless map[K]V is registered explicitly.
//
// Example:
//
//	caches, err := chaindi.ResolveDictionary[string, Cache](c)
func ResolveDictionary[K comparable, V any](r Resolver) (map[K]V, error) {
	return Resolve[map[K]V](r)
}

func cast[T any](serviceType reflect.Type, service any) (T, error) {
	var zero T

	// Optional resolution yields nil for interface types.
	if service == nil {
		return zero, nil
	}

	result, ok := service.(T)
	if !ok {
		return zero, TypeMismatchError{
			Expected: serviceType,
			Actual:   reflect.TypeOf(service),
		}
	}

	return result, nil
}
