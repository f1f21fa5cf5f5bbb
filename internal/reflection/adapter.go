package reflection

import (
	"fmt"
	"reflect"
	"runtime"
	"runtime/debug"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Parameter is a single dependency declared by a factory adapter.
type Parameter struct {
	Type     reflect.Type
	Name     string
	Optional bool
}

// FactoryAdapter abstracts over "a constructor" and "a delegate": something
// with a declared parameter list that produces an object when executed.
type FactoryAdapter interface {
	// Parameters returns the dependencies in declaration order.
	Parameters() []Parameter

	// ResultType is the static type of the produced object.
	ResultType() reflect.Type

	// Public reports whether the adapter counts as a public constructor.
	Public() bool

	// Execute invokes the factory with one argument per parameter.
	Execute(args []reflect.Value) (any, error)

	String() string
}

// funcAdapter wraps a constructor function.
type funcAdapter struct {
	info   *ConstructorInfo
	fn     reflect.Value
	params []Parameter
	public bool
	name   string
}

// NewFuncAdapter analyzes fn and wraps it as a FactoryAdapter.
func NewFuncAdapter(analyzer *Analyzer, fn any) (FactoryAdapter, error) {
	info, err := analyzer.Analyze(fn)
	if err != nil {
		return nil, err
	}

	params := make([]Parameter, len(info.Parameters))
	for i, p := range info.Parameters {
		params[i] = Parameter{Type: p.Type, Name: p.Name, Optional: p.Optional}
	}

	val := reflect.ValueOf(fn)
	name, public := funcVisibility(val)

	return &funcAdapter{
		info:   info,
		fn:     val,
		params: params,
		public: public,
		name:   name,
	}, nil
}

func (f *funcAdapter) Parameters() []Parameter  { return f.params }
func (f *funcAdapter) ResultType() reflect.Type { return f.info.ResultType }
func (f *funcAdapter) Public() bool             { return f.public }
func (f *funcAdapter) String() string           { return f.name }

func (f *funcAdapter) Execute(args []reflect.Value) (result any, err error) {
	if len(args) != len(f.params) {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", f.name, len(f.params), len(args))
	}

	defer func() {
		if r := recover(); r != nil {
			err = ConstructorPanicError{
				Constructor: f.info.Type,
				Panic:       r,
				Stack:       debug.Stack(),
			}
		}
	}()

	in := args
	if f.info.IsParamObject {
		in = []reflect.Value{f.buildParamObject(args)}
	}

	out := f.fn.Call(in)
	if f.info.HasErrorReturn && !out[1].IsNil() {
		return nil, ConstructorInvocationError{
			Constructor: f.info.Type,
			Parameters:  f.parameterTypes(),
			Cause:       out[1].Interface().(error),
		}
	}

	return out[0].Interface(), nil
}

// buildParamObject populates the In struct from resolved arguments.
func (f *funcAdapter) buildParamObject(args []reflect.Value) reflect.Value {
	structType := f.info.ParamType
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}

	structPtr := reflect.New(structType)
	structValue := structPtr.Elem()
	for i, p := range f.info.Parameters {
		structValue.Field(p.Index).Set(args[i])
	}

	if f.info.ParamType.Kind() == reflect.Pointer {
		return structPtr
	}
	return structValue
}

func (f *funcAdapter) parameterTypes() []reflect.Type {
	types := make([]reflect.Type, len(f.params))
	for i, p := range f.params {
		types[i] = p.Type
	}
	return types
}

// instanceAdapter returns a pre-built object.
type instanceAdapter struct {
	value any
	t     reflect.Type
}

// NewInstanceAdapter wraps a pre-built value.
func NewInstanceAdapter(value any) FactoryAdapter {
	return &instanceAdapter{value: value, t: reflect.TypeOf(value)}
}

func (a *instanceAdapter) Parameters() []Parameter              { return nil }
func (a *instanceAdapter) ResultType() reflect.Type             { return a.t }
func (a *instanceAdapter) Public() bool                         { return true }
func (a *instanceAdapter) Execute([]reflect.Value) (any, error) { return a.value, nil }
func (a *instanceAdapter) String() string                       { return "instance of " + FormatType(a.t) }

// zeroValueAdapter is the synthesized parameterless constructor of a struct
// or pointer-to-struct type.
type zeroValueAdapter struct {
	t reflect.Type
}

// NewZeroValueAdapter returns the parameterless constructor for t, or nil if
// t is neither a struct nor a pointer to a struct.
func NewZeroValueAdapter(t reflect.Type) FactoryAdapter {
	if !ZeroConstructible(t) {
		return nil
	}
	return &zeroValueAdapter{t: t}
}

// ZeroConstructible reports whether t has a synthesized parameterless constructor.
func ZeroConstructible(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

func (a *zeroValueAdapter) Parameters() []Parameter  { return nil }
func (a *zeroValueAdapter) ResultType() reflect.Type { return a.t }
func (a *zeroValueAdapter) Public() bool             { return true }
func (a *zeroValueAdapter) String() string           { return "new(" + FormatType(a.t) + ")" }

func (a *zeroValueAdapter) Execute([]reflect.Value) (any, error) {
	if a.t.Kind() == reflect.Pointer {
		return reflect.New(a.t.Elem()).Interface(), nil
	}
	return reflect.New(a.t).Elem().Interface(), nil
}

// callAdapter wraps a parameterless Go callback.
type callAdapter struct {
	t    reflect.Type
	fn   func() (any, error)
	name string
}

// NewCallAdapter wraps fn, which produces a value of type t without parameters.
func NewCallAdapter(t reflect.Type, name string, fn func() (any, error)) FactoryAdapter {
	return &callAdapter{t: t, fn: fn, name: name}
}

func (a *callAdapter) Parameters() []Parameter  { return nil }
func (a *callAdapter) ResultType() reflect.Type { return a.t }
func (a *callAdapter) Public() bool             { return true }
func (a *callAdapter) String() string           { return a.name }

func (a *callAdapter) Execute([]reflect.Value) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ConstructorPanicError{Constructor: a.t, Panic: r, Stack: debug.Stack()}
		}
	}()

	result, err = a.fn()
	if err != nil {
		return nil, ConstructorInvocationError{Constructor: a.t, Cause: err}
	}
	return result, nil
}

// funcVisibility names a function and decides whether it is a public
// constructor. Named package-level functions follow Go export rules; closures
// and method values count as public.
func funcVisibility(fn reflect.Value) (string, bool) {
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return fn.Type().String(), true
	}

	full := f.Name()
	name := full
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}

	if strings.Contains(name, ".func") || strings.HasPrefix(name, "(") || strings.HasPrefix(name, "func") {
		return full, true
	}

	r, _ := utf8.DecodeRuneInString(name)
	return full, unicode.IsUpper(r)
}
