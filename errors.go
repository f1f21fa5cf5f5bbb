package chaindi

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/junioryono/chaindi/internal/lifetime"
	"github.com/junioryono/chaindi/internal/reflection"
	"github.com/junioryono/chaindi/internal/registry"
	"github.com/junioryono/chaindi/internal/resolver"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// Resolution errors wrap these; test for them with errors.Is.

var (
	// Resolution errors.
	ErrServiceNotFound = resolver.ErrServiceNotFound
	ErrServiceTypeNil  = errors.New("service type cannot be nil")

	// Lifecycle errors.
	ErrContainerDisposed     = errors.New("container has been disposed")
	ErrParentDisposed        = resolver.ErrParentDisposed
	ErrContainerNotInContext = errors.New("no container found in context")
)

// ========================================
// Typed Errors for Rich Context
// ========================================

type (
	// ResolutionError reports a request nothing could satisfy, with the
	// resolution path that led to it.
	ResolutionError = resolver.ResolutionError

	// ResolutionFrame is one registration of a resolution path.
	ResolutionFrame = resolver.ResolutionFrame

	// CircularDependencyError reports a registration that depends on itself.
	CircularDependencyError = resolver.CircularDependencyError

	// UnsupportedDictionaryKeyError reports a named-instance dictionary whose
	// key is neither a string nor an enum.
	UnsupportedDictionaryKeyError = resolver.UnsupportedDictionaryKeyError

	// InvalidRegistrationError reports a registration that failed validation.
	InvalidRegistrationError = registry.InvalidRegistrationError

	// StaleRegistrationError reports an attempt to register a key the
	// container has already resolved and cached.
	StaleRegistrationError = registry.StaleRegistrationError

	AmbiguousConstructorError  = reflection.AmbiguousConstructorError
	NoUsableConstructorError   = reflection.NoUsableConstructorError
	ConstructorInvocationError = reflection.ConstructorInvocationError
	ConstructorPanicError      = reflection.ConstructorPanicError

	// DisposalError collects the Close failures of one container close.
	DisposalError = lifetime.DisposalError
)

var _ error = TypeMismatchError{}

// TypeMismatchError indicates a resolved value could not be converted to the requested type.
type TypeMismatchError struct {
	Expected reflect.Type
	Actual   reflect.Type
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s",
		reflection.FormatType(e.Expected), reflection.FormatType(e.Actual))
}

// IsNotFound reports whether err means a service could not be found.
func IsNotFound(err error) bool {
	return resolver.IsNotFound(err)
}

// IsCircularDependency reports whether err is or wraps a CircularDependencyError.
func IsCircularDependency(err error) bool {
	return resolver.IsCircularDependency(err)
}

// IsDisposed reports whether err comes from using a closed container or
// falling back to a closed parent.
func IsDisposed(err error) bool {
	return errors.Is(err, ErrContainerDisposed) || errors.Is(err, ErrParentDisposed)
}

// GetResolutionStack returns the resolution path carried by err, if any.
func GetResolutionStack(err error) ([]ResolutionFrame, bool) {
	return resolver.GetResolutionStack(err)
}
