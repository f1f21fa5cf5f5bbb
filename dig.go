package chaindi

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/junioryono/chaindi/internal/registry"
	"go.uber.org/dig"
)

var errDigExtraction = errors.New("dig did not provide the requested value")

// FromDig registers T to be served by an existing dig container. The value
// is looked up in dig on first resolution. Values owned by dig are not
// closed with the chaindi container unless DisposeWithContainer(true) is given.
//
// Example:
//
//	dc := dig.New()
//	_ = dc.Provide(NewLegacyMailer)
//
//	c, err := chaindi.New(nil, chaindi.FromDig[*LegacyMailer](dc))
func FromDig[T any](dc *dig.Container, opts ...RegistrationOption) Registration {
	return FromDigNamed[T](dc, "", opts...)
}

// FromDigNamed is FromDig for a value provided to dig with dig.Name(digName).
// The chaindi registration name is set with Named as usual.
func FromDigNamed[T any](dc *dig.Container, digName string, opts ...RegistrationOption) Registration {
	serviceType := reflect.TypeFor[T]()

	o := registry.Options{DisposeWithContainer: new(bool)}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(&o)
		}
	}

	label := "dig " + serviceType.String()
	if digName != "" {
		label += fmt.Sprintf(" (name %q)", digName)
	}

	if dc == nil {
		return registry.NewCallbackRegistration(serviceType, label, nil, o)
	}

	return registry.NewCallbackRegistration(serviceType, label, func() (any, error) {
		return extractFromDig(dc, serviceType, digName)
	}, o)
}

// extractFromDig asks dc for one value by invoking a function that takes a
// synthesized dig.In struct with a single field of serviceType.
func extractFromDig(dc *dig.Container, serviceType reflect.Type, digName string) (any, error) {
	field := reflect.StructField{
		Name: "Service",
		Type: serviceType,
	}
	if digName != "" {
		field.Tag = reflect.StructTag(fmt.Sprintf(`name:"%s"`, digName))
	}

	paramType := reflect.StructOf([]reflect.StructField{
		{
			Name:      "In",
			Type:      reflect.TypeOf(dig.In{}),
			Anonymous: true,
		},
		field,
	})

	errorType := reflect.TypeOf((*error)(nil)).Elem()

	var result any
	fnType := reflect.FuncOf([]reflect.Type{paramType}, []reflect.Type{errorType}, false)
	fn := reflect.MakeFunc(fnType, func(args []reflect.Value) []reflect.Value {
		if len(args) > 0 && args[0].IsValid() {
			if service := args[0].FieldByName("Service"); service.IsValid() {
				result = service.Interface()
				return []reflect.Value{reflect.Zero(errorType)}
			}
		}
		return []reflect.Value{reflect.ValueOf(&errDigExtraction).Elem()}
	})

	if err := dc.Invoke(fn.Interface()); err != nil {
		return nil, err
	}

	return result, nil
}
