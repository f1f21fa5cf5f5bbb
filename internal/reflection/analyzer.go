package reflection

import (
	"fmt"
	"reflect"

	"github.com/puzpuzpuz/xsync/v3"
)

// In marks a parameter object. A constructor that accepts a single struct
// embedding In has each exported field of that struct resolved as a separate
// dependency.
type In struct{}

var (
	inType  = reflect.TypeOf((*In)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// Analyzer performs reflection-based analysis of constructor functions.
// Results depend only on the function type, so they are cached by type.
type Analyzer struct {
	cache *xsync.MapOf[reflect.Type, *ConstructorInfo]
}

// ConstructorInfo contains analyzed information about a constructor function.
type ConstructorInfo struct {
	Type           reflect.Type
	Parameters     []ParameterInfo
	IsParamObject  bool         // Single In-embedding struct parameter
	ParamType      reflect.Type // The parameter object type, pointer or struct
	ResultType     reflect.Type
	HasErrorReturn bool
}

// ParameterInfo describes a constructor parameter or a field of an In struct.
type ParameterInfo struct {
	Type      reflect.Type
	FieldName string // Field name for In structs
	Name      string // From name:"..." tag
	Optional  bool   // From optional:"true" tag
	Index     int    // Parameter index or field index
}

// TagInfo contains parsed struct tag information.
type TagInfo struct {
	Optional bool
	Name     string
	Ignore   bool
}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{
		cache: xsync.NewMapOf[reflect.Type, *ConstructorInfo](),
	}
}

// Analyze analyzes a constructor function and extracts dependency information.
func (a *Analyzer) Analyze(constructor any) (*ConstructorInfo, error) {
	if constructor == nil {
		return nil, fmt.Errorf("constructor cannot be nil")
	}

	val := reflect.ValueOf(constructor)
	if val.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %s", FormatType(val.Type()))
	}

	if val.IsNil() {
		return nil, fmt.Errorf("constructor cannot be nil")
	}

	typ := val.Type()
	if cached, ok := a.cache.Load(typ); ok {
		return cached, nil
	}

	if typ.IsVariadic() {
		return nil, fmt.Errorf("variadic constructor %s is not supported", FormatType(typ))
	}

	info := &ConstructorInfo{Type: typ}

	if err := a.analyzeParameters(info); err != nil {
		return nil, fmt.Errorf("failed to analyze parameters: %w", err)
	}

	if err := a.analyzeReturns(info); err != nil {
		return nil, fmt.Errorf("failed to analyze returns: %w", err)
	}

	actual, _ := a.cache.LoadOrStore(typ, info)
	return actual, nil
}

// analyzeParameters analyzes function parameters or In struct fields.
func (a *Analyzer) analyzeParameters(info *ConstructorInfo) error {
	fnType := info.Type

	if fnType.NumIn() == 1 && hasEmbeddedIn(fnType.In(0)) {
		info.IsParamObject = true
		info.ParamType = fnType.In(0)
		return a.analyzeParamObject(info)
	}

	info.Parameters = make([]ParameterInfo, fnType.NumIn())
	for i := 0; i < fnType.NumIn(); i++ {
		info.Parameters[i] = ParameterInfo{
			Type:  fnType.In(i),
			Index: i,
		}
	}

	return nil
}

// analyzeParamObject analyzes an In struct's fields.
func (a *Analyzer) analyzeParamObject(info *ConstructorInfo) error {
	structType := info.ParamType
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}

	params := make([]ParameterInfo, 0, structType.NumField())
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)

		if !field.IsExported() {
			continue
		}

		if field.Anonymous && field.Type == inType {
			continue
		}

		tagInfo := ParseFieldTags(field.Tag)
		if tagInfo.Ignore {
			continue
		}

		params = append(params, ParameterInfo{
			Type:      field.Type,
			FieldName: field.Name,
			Name:      tagInfo.Name,
			Optional:  tagInfo.Optional,
			Index:     i,
		})
	}

	info.Parameters = params
	return nil
}

// analyzeReturns accepts T or (T, error).
func (a *Analyzer) analyzeReturns(info *ConstructorInfo) error {
	fnType := info.Type

	switch {
	case fnType.NumOut() == 1:
	case fnType.NumOut() == 2 && fnType.Out(1) == errType:
		info.HasErrorReturn = true
	default:
		return fmt.Errorf("constructor %s must return T or (T, error)", FormatType(fnType))
	}

	if fnType.Out(0) == errType {
		return fmt.Errorf("constructor %s only returns error", FormatType(fnType))
	}

	info.ResultType = fnType.Out(0)
	return nil
}

// CacheSize returns the number of cached analyses.
func (a *Analyzer) CacheSize() int {
	return a.cache.Size()
}

// ParseFieldTags parses struct field tags for parameter object annotations.
func ParseFieldTags(tag reflect.StructTag) TagInfo {
	info := TagInfo{}

	if val, ok := tag.Lookup("optional"); ok {
		info.Optional = val == "true"
	}

	if val, ok := tag.Lookup("name"); ok {
		info.Name = val
	}

	if val, ok := tag.Lookup("inject"); ok && val == "-" {
		info.Ignore = true
	}

	return info
}

// hasEmbeddedIn checks if a struct (or pointer to struct) embeds In.
func hasEmbeddedIn(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return false
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous && field.Type == inType {
			return true
		}
	}

	return false
}
