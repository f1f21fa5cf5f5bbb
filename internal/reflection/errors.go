package reflection

import (
	"fmt"
	"reflect"
	"strings"
)

// AmbiguousConstructorError indicates that more than one constructor of the
// highest arity is eligible for a type.
type AmbiguousConstructorError struct {
	Type       reflect.Type
	Arity      int
	Candidates []string
}

func (e AmbiguousConstructorError) Error() string {
	return fmt.Sprintf("ambiguous constructors for %s: %d candidates take %d parameters [%s]",
		FormatType(e.Type), len(e.Candidates), e.Arity, strings.Join(e.Candidates, ", "))
}

// NoUsableConstructorError indicates that no eligible constructor exists for a type.
type NoUsableConstructorError struct {
	Type reflect.Type

	// Rejected is the number of known constructors excluded for being non-public.
	Rejected int
}

func (e NoUsableConstructorError) Error() string {
	if e.Rejected > 0 {
		return fmt.Sprintf("no usable constructor for %s (%d non-public constructors ignored)",
			FormatType(e.Type), e.Rejected)
	}
	return fmt.Sprintf("no usable constructor for %s", FormatType(e.Type))
}

// ConstructorInvocationError wraps an error returned by a constructor or factory.
type ConstructorInvocationError struct {
	Constructor reflect.Type
	Parameters  []reflect.Type
	Cause       error
}

func (e ConstructorInvocationError) Error() string {
	paramStrs := make([]string, len(e.Parameters))
	for i, p := range e.Parameters {
		paramStrs[i] = FormatType(p)
	}
	return fmt.Sprintf("failed to invoke %s with parameters [%s]: %v",
		FormatType(e.Constructor), strings.Join(paramStrs, ", "), e.Cause)
}

func (e ConstructorInvocationError) Unwrap() error {
	return e.Cause
}

// ConstructorPanicError indicates a constructor panicked during invocation.
type ConstructorPanicError struct {
	Constructor reflect.Type
	Panic       any
	Stack       []byte
}

func (e ConstructorPanicError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("constructor %s panicked: %v", FormatType(e.Constructor), e.Panic))

	if len(e.Stack) > 0 {
		b.WriteString("\n\nStack trace:\n")
		b.Write(e.Stack)
	}

	return b.String()
}

// FormatType formats a reflect.Type for error messages.
func FormatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	if t.Name() != "" {
		return shortName(t.Name())
	}

	switch t.Kind() {
	case reflect.Pointer:
		return "*" + FormatType(t.Elem())
	case reflect.Slice:
		return "[]" + FormatType(t.Elem())
	case reflect.Map:
		return "map[" + FormatType(t.Key()) + "]" + FormatType(t.Elem())
	case reflect.Func:
		return t.String()
	default:
		return t.String()
	}
}

// shortName trims package paths from the type arguments of a generic name.
func shortName(name string) string {
	open := strings.IndexByte(name, '[')
	if open < 0 {
		return name
	}

	var b strings.Builder
	b.WriteString(name[:open])

	segment := open
	for i := open; i < len(name); i++ {
		switch c := name[i]; c {
		case '[', ']', ',', ' ', '*':
			b.WriteString(trimPackage(name[segment:i]))
			b.WriteByte(c)
			segment = i + 1
		}
	}
	b.WriteString(trimPackage(name[segment:]))

	return b.String()
}

func trimPackage(s string) string {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}
