package reflection

import (
	"reflect"
	"strings"
)

// Family identifies all instantiations of one generic type.
// Go cannot instantiate generics at run time, so an open generic definition
// is represented by the family of its compiled instantiations.
type Family struct {
	PkgPath string
	Name    string
	Pointer bool
}

func (f Family) String() string {
	prefix := ""
	if f.Pointer {
		prefix = "*"
	}
	return prefix + f.Name + "[...]"
}

// GenericFamily splits an instantiated generic type into its family and the
// rendered type-argument list. Pointers to generic types are supported one
// level deep.
func GenericFamily(t reflect.Type) (Family, string, bool) {
	if t == nil {
		return Family{}, "", false
	}

	pointer := false
	if t.Kind() == reflect.Pointer {
		pointer = true
		t = t.Elem()
	}

	name := t.Name()
	open := strings.IndexByte(name, '[')
	if open <= 0 || !strings.HasSuffix(name, "]") {
		return Family{}, "", false
	}

	return Family{
		PkgPath: t.PkgPath(),
		Name:    name[:open],
		Pointer: pointer,
	}, name[open+1 : len(name)-1], true
}

// TypeArguments returns the rendered type-argument list of an instantiated generic type.
func TypeArguments(t reflect.Type) (string, bool) {
	_, args, ok := GenericFamily(t)
	return args, ok
}

// InFamily reports whether t is an instantiation belonging to family.
func InFamily(t reflect.Type, family Family) bool {
	f, _, ok := GenericFamily(t)
	return ok && f == family
}
