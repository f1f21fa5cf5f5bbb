package reflection_test

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/junioryono/chaindi/internal/reflection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test types
type Database struct {
	ConnectionString string
}

type Logger interface {
	Log(msg string)
}

type ConsoleLogger struct{}

func (c *ConsoleLogger) Log(msg string) {}

type UserService struct {
	DB     *Database
	Logger Logger
}

// Test constructors
func NewDatabase(connStr string) *Database {
	return &Database{ConnectionString: connStr}
}

func NewUserService(db *Database, logger Logger) *UserService {
	return &UserService{DB: db, Logger: logger}
}

func NewUserServiceWithError(db *Database) (*UserService, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	return &UserService{DB: db}, nil
}

func newUserServiceInternal(db *Database, logger Logger) *UserService {
	return &UserService{DB: db, Logger: logger}
}

// In parameter object
type ServiceParams struct {
	reflection.In

	Database *Database
	Logger   Logger    `optional:"true"`
	Cache    *Database `name:"cache"`
	Skipped  string    `inject:"-"`
	private  int
}

func NewServiceWithParams(params ServiceParams) *UserService {
	return &UserService{
		DB:     params.Database,
		Logger: params.Logger,
	}
}

func NewServiceWithParamsPointer(params *ServiceParams) *UserService {
	return &UserService{DB: params.Cache}
}

func TestAnalyzer_SimpleConstructor(t *testing.T) {
	analyzer := reflection.New()

	info, err := analyzer.Analyze(NewDatabase)
	require.NoError(t, err, "Failed to analyze constructor")

	assert.False(t, info.IsParamObject, "Expected IsParamObject to be false")
	assert.False(t, info.HasErrorReturn)

	require.Len(t, info.Parameters, 1, "Expected 1 parameter")
	assert.Equal(t, reflect.TypeOf(""), info.Parameters[0].Type, "Expected string parameter type")
	assert.Equal(t, reflect.TypeOf((*Database)(nil)), info.ResultType, "Expected *Database result type")
}

func TestAnalyzer_ConstructorWithMultipleParams(t *testing.T) {
	analyzer := reflection.New()

	info, err := analyzer.Analyze(NewUserService)
	require.NoError(t, err, "Failed to analyze constructor")

	require.Len(t, info.Parameters, 2, "Expected 2 parameters")
	assert.Equal(t, reflect.TypeOf((*Database)(nil)), info.Parameters[0].Type, "Expected first parameter to be *Database")
	assert.Equal(t, reflect.TypeOf((*Logger)(nil)).Elem(), info.Parameters[1].Type, "Expected second parameter to be Logger interface")
}

func TestAnalyzer_ConstructorWithError(t *testing.T) {
	analyzer := reflection.New()

	info, err := analyzer.Analyze(NewUserServiceWithError)
	require.NoError(t, err, "Failed to analyze constructor")

	assert.True(t, info.HasErrorReturn, "Expected HasErrorReturn to be true")
	assert.Equal(t, reflect.TypeOf((*UserService)(nil)), info.ResultType)
}

func TestAnalyzer_ParamObject(t *testing.T) {
	analyzer := reflection.New()

	for _, ctor := range []any{NewServiceWithParams, NewServiceWithParamsPointer} {
		info, err := analyzer.Analyze(ctor)
		require.NoError(t, err, "Failed to analyze param object constructor")

		assert.True(t, info.IsParamObject, "Expected IsParamObject to be true")
		require.Len(t, info.Parameters, 3, "Expected In, unexported and ignored fields to be skipped")

		byField := map[string]reflection.ParameterInfo{}
		for _, p := range info.Parameters {
			byField[p.FieldName] = p
		}

		assert.False(t, byField["Database"].Optional)
		assert.True(t, byField["Logger"].Optional, "Expected Logger to be optional")
		assert.Equal(t, "cache", byField["Cache"].Name, "Expected Cache to be named")
		assert.NotContains(t, byField, "Skipped")
	}
}

func TestAnalyzer_InvalidConstructors(t *testing.T) {
	analyzer := reflection.New()

	var nilFunc func() *Database

	tests := []struct {
		name string
		fn   any
	}{
		{name: "nil", fn: nil},
		{name: "nil func", fn: nilFunc},
		{name: "not a function", fn: 42},
		{name: "no return", fn: func() {}},
		{name: "only error", fn: func() error { return nil }},
		{name: "second return not error", fn: func() (int, string) { return 0, "" }},
		{name: "too many returns", fn: func() (int, string, error) { return 0, "", nil }},
		{name: "variadic", fn: func(...int) *Database { return nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := analyzer.Analyze(tt.fn)
			assert.Error(t, err)
		})
	}
}

func TestAnalyzer_CachesByFunctionType(t *testing.T) {
	analyzer := reflection.New()

	info1, err := analyzer.Analyze(NewUserService)
	require.NoError(t, err)
	info2, err := analyzer.Analyze(NewUserService)
	require.NoError(t, err)
	assert.Same(t, info1, info2, "Expected same cached instance")

	// Different functions with the same signature share an analysis.
	info3, err := analyzer.Analyze(newUserServiceInternal)
	require.NoError(t, err)
	assert.Same(t, info1, info3)
	assert.Equal(t, 1, analyzer.CacheSize())
}

func TestAnalyzer_ConcurrentAnalysis(t *testing.T) {
	analyzer := reflection.New()

	constructors := []any{
		NewDatabase,
		NewUserService,
		NewUserServiceWithError,
		NewServiceWithParams,
	}

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for _, constructor := range constructors {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(c any) {
				defer wg.Done()
				if _, err := analyzer.Analyze(c); err != nil {
					errs <- err
				}
			}(constructor)
		}
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err, "Concurrent analysis error")
	}

	assert.Equal(t, len(constructors), analyzer.CacheSize(), "Expected cache size to match")
}

func TestParseFieldTags(t *testing.T) {
	type tagged struct {
		A int `name:"a" optional:"true"`
		B int `inject:"-"`
		C int `optional:"false"`
	}

	typ := reflect.TypeOf(tagged{})

	a := reflection.ParseFieldTags(typ.Field(0).Tag)
	assert.Equal(t, reflection.TagInfo{Name: "a", Optional: true}, a)

	b := reflection.ParseFieldTags(typ.Field(1).Tag)
	assert.True(t, b.Ignore)

	c := reflection.ParseFieldTags(typ.Field(2).Tag)
	assert.False(t, c.Optional)
}

type Box[T any] struct {
	V T
}

func TestFormatType(t *testing.T) {
	tests := []struct {
		typ  reflect.Type
		want string
	}{
		{typ: nil, want: "<nil>"},
		{typ: reflect.TypeOf(0), want: "int"},
		{typ: reflect.TypeOf((*Database)(nil)), want: "*Database"},
		{typ: reflect.TypeOf((*Logger)(nil)).Elem(), want: "Logger"},
		{typ: reflect.TypeOf(map[string]*Database{}), want: "map[string]*Database"},
		{typ: reflect.TypeOf(Box[*Database]{}), want: "Box[*Database]"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, reflection.FormatType(tt.typ))
	}
}
