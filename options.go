package chaindi

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Options configure a container and the resolver chains it builds.
// The zero value disables every optional behavior; DefaultOptions returns
// the recommended settings.
type Options struct {
	// UseNonPublicConstructors lets constructor selection pick unexported
	// constructor functions.
	UseNonPublicConstructors bool

	// ResolveUnregisteredTypes builds concrete types that have no
	// registration, using their known constructors.
	ResolveUnregisteredTypes bool

	// UseInstanceCache caches Shared instances per container.
	UseInstanceCache bool

	// ThrowOnCircularDependencies reports cycles as CircularDependencyError.
	ThrowOnCircularDependencies bool

	// SupportResolvingNamedInstanceDictionaries synthesizes map[K]V from the
	// named registrations of V.
	SupportResolvingNamedInstanceDictionaries bool

	// SelfRegisterAResolver registers the container as a Resolver and hands
	// constructors that ask for one a handle that keeps the resolution path.
	SelfRegisterAResolver bool

	// SelfRegisterTheRegistry registers the container as a Registrar.
	SelfRegisterTheRegistry bool

	// MakeAllResolutionOptional returns zero values instead of not-found errors.
	MakeAllResolutionOptional bool

	// Constructors are made known to constructor selection for every type
	// they return.
	Constructors []any

	// Logger receives debug records about creation, fallback, and disposal.
	// Nil discards them.
	Logger *slog.Logger

	// OnServiceCreated is called once per newly constructed instance of a
	// type registration. Cache hits, instances, and factories do not trigger it.
	OnServiceCreated func(reg Registration, instance any)

	// OnServiceDisposed is called for every instance the container tries to
	// dispose, with the error its Close returned.
	OnServiceDisposed func(instance any, err error)
}

// DefaultOptions returns the recommended container settings.
func DefaultOptions() Options {
	return Options{
		UseInstanceCache:                          true,
		ThrowOnCircularDependencies:               true,
		SupportResolvingNamedInstanceDictionaries: true,
		SelfRegisterAResolver:                     true,
		SelfRegisterTheRegistry:                   true,
	}
}

// Environment variables read by OptionsFromEnv.
const (
	EnvUseNonPublicConstructors    = "CHAINDI_USE_NON_PUBLIC_CONSTRUCTORS"
	EnvResolveUnregisteredTypes    = "CHAINDI_RESOLVE_UNREGISTERED_TYPES"
	EnvUseInstanceCache            = "CHAINDI_USE_INSTANCE_CACHE"
	EnvThrowOnCircularDependencies = "CHAINDI_THROW_ON_CIRCULAR_DEPENDENCIES"
	EnvSupportNamedDictionaries    = "CHAINDI_SUPPORT_NAMED_DICTIONARIES"
	EnvSelfRegisterResolver        = "CHAINDI_SELF_REGISTER_RESOLVER"
	EnvSelfRegisterRegistrar       = "CHAINDI_SELF_REGISTER_REGISTRAR"
	EnvMakeAllResolutionOptional   = "CHAINDI_MAKE_ALL_RESOLUTION_OPTIONAL"
	EnvLogLevel                    = "CHAINDI_LOG_LEVEL"
)

// OptionsFromEnv starts from DefaultOptions and applies CHAINDI_* variables
// read from the given .env files and the process environment. The process
// environment wins over the files. Without files, a missing ".env" is not an
// error. The process environment itself is never modified.
//
// CHAINDI_LOG_LEVEL (debug, info, warn, error) installs a text logger on
// standard error.
func OptionsFromEnv(files ...string) (Options, error) {
	opts := DefaultOptions()

	values, err := readEnvFiles(files)
	if err != nil {
		return opts, err
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	}

	flags := []struct {
		key   string
		field *bool
	}{
		{EnvUseNonPublicConstructors, &opts.UseNonPublicConstructors},
		{EnvResolveUnregisteredTypes, &opts.ResolveUnregisteredTypes},
		{EnvUseInstanceCache, &opts.UseInstanceCache},
		{EnvThrowOnCircularDependencies, &opts.ThrowOnCircularDependencies},
		{EnvSupportNamedDictionaries, &opts.SupportResolvingNamedInstanceDictionaries},
		{EnvSelfRegisterResolver, &opts.SelfRegisterAResolver},
		{EnvSelfRegisterRegistrar, &opts.SelfRegisterTheRegistry},
		{EnvMakeAllResolutionOptional, &opts.MakeAllResolutionOptional},
	}

	var errs []error
	for _, f := range flags {
		v, ok := lookup(f.key)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.key, err))
			continue
		}
		*f.field = b
	}

	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvLogLevel, err))
		} else {
			opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		}
	}

	return opts, errors.Join(errs...)
}

func readEnvFiles(files []string) (map[string]string, error) {
	if len(files) > 0 {
		values, err := godotenv.Read(files...)
		if err != nil {
			return nil, fmt.Errorf("reading env files: %w", err)
		}
		return values, nil
	}

	values, err := godotenv.Read()
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading .env: %w", err)
	}
	return values, nil
}
