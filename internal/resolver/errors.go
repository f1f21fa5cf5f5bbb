package resolver

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/junioryono/chaindi/internal/reflection"
	"github.com/junioryono/chaindi/internal/registry"
)

// ErrServiceNotFound is the cause of a ResolutionError when nothing could satisfy a request.
var ErrServiceNotFound = errors.New("service not found")

// ErrParentDisposed is returned when a child falls back to a parent scope that has been closed.
var ErrParentDisposed = errors.New("parent container has been disposed")

// ResolutionError represents an error during service resolution.
type ResolutionError struct {
	ServiceType reflect.Type
	Name        string
	Cause       error
	Stack       []ResolutionFrame // Resolution path at the point of failure
}

// ResolutionFrame represents one registration in a resolution path.
type ResolutionFrame struct {
	ServiceType        reflect.Type
	Name               string
	ImplementationType reflect.Type
	Multiplicity       registry.Multiplicity
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	var msg strings.Builder

	key := registry.Key{ServiceType: e.ServiceType, Name: e.Name}
	msg.WriteString(fmt.Sprintf("failed to resolve %s", key))

	if e.Cause != nil {
		msg.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Stack) > 0 {
		msg.WriteString("\n\nResolution path:")
		for i, frame := range e.Stack {
			msg.WriteString(fmt.Sprintf("\n  %d. %s", i+1, frame.String()))
		}
	}

	return msg.String()
}

// Unwrap returns the underlying cause.
func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// String formats a resolution frame.
func (f ResolutionFrame) String() string {
	key := registry.Key{ServiceType: f.ServiceType, Name: f.Name}
	if f.ImplementationType != nil && f.ImplementationType != f.ServiceType {
		return fmt.Sprintf("%s -> %s (%s)", key, reflection.FormatType(f.ImplementationType), f.Multiplicity)
	}
	return fmt.Sprintf("%s (%s)", key, f.Multiplicity)
}

// CircularDependencyError represents a registration that is already an
// ancestor of itself in the active resolution path.
type CircularDependencyError struct {
	ServiceType reflect.Type
	Name        string
	Chain       []ResolutionFrame
}

// Error implements the error interface.
func (e *CircularDependencyError) Error() string {
	var msg strings.Builder

	key := registry.Key{ServiceType: e.ServiceType, Name: e.Name}
	msg.WriteString(fmt.Sprintf("circular dependency detected for %s", key))

	if len(e.Chain) > 0 {
		msg.WriteString("\nDependency chain: ")
		for i, f := range e.Chain {
			if i > 0 {
				msg.WriteString(" -> ")
			}
			msg.WriteString(registry.Key{ServiceType: f.ServiceType, Name: f.Name}.String())
		}
		msg.WriteString(" -> " + key.String())
	}

	return msg.String()
}

// UnsupportedDictionaryKeyError represents a named-instance dictionary
// request whose key type is neither string nor an enum.
type UnsupportedDictionaryKeyError struct {
	DictionaryType reflect.Type
	KeyType        reflect.Type
}

// Error implements the error interface.
func (e *UnsupportedDictionaryKeyError) Error() string {
	return fmt.Sprintf("cannot resolve %s: named-instance dictionaries must be keyed by string or an enum, not %s",
		reflection.FormatType(e.DictionaryType), reflection.FormatType(e.KeyType))
}

// IsResolutionError checks if an error is a ResolutionError.
func IsResolutionError(err error) bool {
	var target *ResolutionError
	return errors.As(err, &target)
}

// IsCircularDependency checks if an error is a CircularDependencyError.
func IsCircularDependency(err error) bool {
	var target *CircularDependencyError
	return errors.As(err, &target)
}

// IsNotFound checks if an error reports a service that could not be found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrServiceNotFound)
}

// GetResolutionStack extracts the resolution path from an error if available.
func GetResolutionStack(err error) ([]ResolutionFrame, bool) {
	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		return resErr.Stack, true
	}
	return nil, false
}

// NotFound builds the error reported when req cannot be satisfied.
func NotFound(req Request) error {
	return &ResolutionError{
		ServiceType: req.ServiceType,
		Name:        req.Name,
		Cause:       ErrServiceNotFound,
		Stack:       req.Path.Frames(),
	}
}
