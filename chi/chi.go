// Package dichi provides chaindi integration for the Chi router.
//
// ScopeMiddleware gives every request its own child container, and Handle
// resolves controllers from it.
//
// Example usage:
//
//	root, _ := chaindi.New(nil,
//	    chaindi.Type[*UserController, *UserController](chaindi.WithConstructors(NewUserController)),
//	)
//
//	r := chi.NewRouter()
//	r.Use(dichi.ScopeMiddleware(root))
//
//	r.Get("/users/{id}", dichi.Handle((*UserController).GetByID))
package dichi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/junioryono/chaindi"
)

// Config holds the configuration for the scope middleware.
type Config struct {
	// ErrorHandler is called when creating the request container fails.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(http.ResponseWriter, *http.Request, error)

	// CloseErrorHandler is called when closing the request container fails.
	// If nil, errors are logged using slog.
	CloseErrorHandler func(error)

	// Registrations returns extra registrations for the request container.
	Registrations func(*http.Request) []chaindi.Registration

	// Middlewares are functions that run after the request container is created.
	// They can be used to initialize request context, set user data, etc.
	Middlewares []func(*chaindi.Container, *http.Request) error
}

// Option configures the scope middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for request container failures.
func WithErrorHandler(h func(http.ResponseWriter, *http.Request, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithCloseErrorHandler sets the error handler for close failures.
func WithCloseErrorHandler(h func(error)) Option {
	return func(c *Config) {
		c.CloseErrorHandler = h
	}
}

// WithRegistrations adds per-request registrations. They shadow the root
// container's registrations of the same key for that request only.
func WithRegistrations(fn func(*http.Request) []chaindi.Registration) Option {
	return func(c *Config) {
		c.Registrations = fn
	}
}

// WithMiddleware adds a middleware function that runs after the request
// container is created. Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(*chaindi.Container, *http.Request) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		CloseErrorHandler: func(err error) {
			slog.Error("failed to close request container", "error", err)
		},
	}
}

// ScopeMiddleware creates a Chi middleware that creates a child of root for
// each request. The child is attached to the request context and can be
// retrieved using chaindi.FromContext.
//
// Besides the configured registrations, the child serves the current
// *http.Request and, when routed by Chi, its *chi.Context. Route parameters
// are filled in by the router after the middleware runs, so read them from
// the *chi.Context when handling, not while constructing.
//
// The child is closed when the request completes. Shared instances built by
// the child are disposed with it; those built by root are not.
func ScopeMiddleware(root *chaindi.Container, opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			regs := []chaindi.Registration{chaindi.Instance(r)}
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				regs = append(regs, chaindi.Instance(rctx))
			}
			if cfg.Registrations != nil {
				regs = append(regs, cfg.Registrations(r)...)
			}

			scope, err := root.NewChild(regs...)
			if err != nil {
				cfg.ErrorHandler(w, r, err)
				return
			}

			defer func() {
				if err := scope.Close(); err != nil {
					cfg.CloseErrorHandler(err)
				}
			}()

			// Attach the request container to the request context
			r = r.WithContext(chaindi.WithContainer(r.Context(), scope))

			// Run middlewares
			for _, mw := range cfg.Middlewares {
				if err := mw(scope, r); err != nil {
					cfg.ErrorHandler(w, r, err)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(http.ResponseWriter, *http.Request, any)

	// ScopeErrorHandler is called when the request container is missing.
	ScopeErrorHandler func(http.ResponseWriter, *http.Request, error)

	// ResolutionErrorHandler is called when service resolution fails.
	ResolutionErrorHandler func(http.ResponseWriter, *http.Request, error)
}

// HandlerOption configures the Handle wrapper.
type HandlerOption func(*HandlerConfig)

// WithPanicRecovery enables or disables panic recovery in the handler.
func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

// WithPanicHandler sets the handler for panics.
func WithPanicHandler(h func(http.ResponseWriter, *http.Request, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithScopeErrorHandler sets the error handler for a missing request container.
func WithScopeErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ScopeErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for service resolution failures.
func WithResolutionErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicRecovery: false,
		PanicHandler: func(w http.ResponseWriter, r *http.Request, v any) {
			slog.Error("panic in handler", "panic", v)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		ScopeErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("failed to get container from context", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		ResolutionErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("failed to resolve controller", "error", err)
			status := http.StatusInternalServerError
			if chaindi.IsNotFound(err) {
				status = http.StatusNotImplemented
			}
			http.Error(w, http.StatusText(status), status)
		},
	}
}

// Handle wraps a controller method for type-safe resolution from the request
// container. The controller type T is resolved from the container attached
// to the request context.
//
// The method signature should be: func(T, http.ResponseWriter, *http.Request)
//
// Example:
//
//	r.Get("/users/{id}", dichi.Handle((*UserController).GetByID))
func Handle[T any](method func(T, http.ResponseWriter, *http.Request), opts ...HandlerOption) http.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					cfg.PanicHandler(w, r, v)
				}
			}()
		}

		scope, err := chaindi.FromContext(r.Context())
		if err != nil {
			cfg.ScopeErrorHandler(w, r, err)
			return
		}

		controller, err := chaindi.Resolve[T](scope)
		if err != nil {
			cfg.ResolutionErrorHandler(w, r, err)
			return
		}

		method(controller, w, r)
	}
}
