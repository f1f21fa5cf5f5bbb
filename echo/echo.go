// Package diecho provides chaindi integration for the Echo web framework.
//
// Example usage:
//
//	root, _ := chaindi.New(nil, chaindi.Type[*AuthService, *AuthService]())
//
//	e := echo.New()
//	e.Use(diecho.ScopeMiddleware(root,
//	    diecho.WithRegistrations(func(echo.Context) []chaindi.Registration {
//	        return []chaindi.Registration{chaindi.Factory[*UserController](NewUserController)}
//	    }),
//	))
//
//	e.GET("/users/:id", diecho.Handle((*UserController).GetByID))
package diecho

import (
	"log/slog"
	"net/http"

	"github.com/junioryono/chaindi"
	"github.com/labstack/echo/v4"
)

// Config holds the configuration for the scope middleware.
type Config struct {
	// ErrorHandler is called when creating the request container fails.
	// If nil, the error is returned as a 500 echo.HTTPError.
	ErrorHandler func(echo.Context, error) error

	// CloseErrorHandler is called when closing the request container fails.
	// If nil, errors are logged using slog.
	CloseErrorHandler func(error)

	// Registrations returns extra registrations for the request container.
	Registrations func(echo.Context) []chaindi.Registration

	// Middlewares are functions that run after the request container is created.
	Middlewares []func(*chaindi.Container, echo.Context) error
}

// Option configures the scope middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for request container failures.
func WithErrorHandler(h func(echo.Context, error) error) Option {
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

// WithRegistrations adds per-request registrations.
func WithRegistrations(fn func(echo.Context) []chaindi.Registration) Option {
	return func(c *Config) {
		c.Registrations = fn
	}
}

// WithMiddleware adds a middleware function that runs after the request
// container is created, in the order added.
func WithMiddleware(mw func(*chaindi.Container, echo.Context) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error").SetInternal(err)
		},
		CloseErrorHandler: func(err error) {
			slog.Error("failed to close request container", "error", err)
		},
	}
}

// ScopeMiddleware creates an Echo middleware that creates a child of root
// for each request. The child serves the echo.Context of the request.
//
// The child is closed when the request completes.
func ScopeMiddleware(root *chaindi.Container, opts ...Option) echo.MiddlewareFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			regs := []chaindi.Registration{chaindi.Instance(c)}
			if cfg.Registrations != nil {
				regs = append(regs, cfg.Registrations(c)...)
			}

			scope, err := root.NewChild(regs...)
			if err != nil {
				return cfg.ErrorHandler(c, err)
			}

			defer func() {
				if err := scope.Close(); err != nil {
					cfg.CloseErrorHandler(err)
				}
			}()

			c.SetRequest(c.Request().WithContext(chaindi.WithContainer(c.Request().Context(), scope)))

			for _, mw := range cfg.Middlewares {
				if err := mw(scope, c); err != nil {
					return cfg.ErrorHandler(c, err)
				}
			}

			return next(c)
		}
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(echo.Context, any) error

	// ScopeErrorHandler is called when the request container is missing.
	ScopeErrorHandler func(echo.Context, error) error

	// ResolutionErrorHandler is called when service resolution fails.
	ResolutionErrorHandler func(echo.Context, error) error
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
func WithPanicHandler(h func(echo.Context, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithScopeErrorHandler sets the error handler for a missing request container.
func WithScopeErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ScopeErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for service resolution failures.
func WithResolutionErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler: func(c echo.Context, v any) error {
			slog.Error("panic in handler", "panic", v)
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
		ScopeErrorHandler: func(c echo.Context, err error) error {
			slog.Error("failed to get container from context", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
		ResolutionErrorHandler: func(c echo.Context, err error) error {
			slog.Error("failed to resolve controller", "error", err)
			status := http.StatusInternalServerError
			if chaindi.IsNotFound(err) {
				status = http.StatusNotImplemented
			}
			return echo.NewHTTPError(status, http.StatusText(status))
		},
	}
}

// Handle wraps a controller method for type-safe resolution from the request
// container.
//
// Example:
//
//	e.GET("/users/:id", diecho.Handle((*UserController).GetByID))
func Handle[T any](method func(T, echo.Context) error, opts ...HandlerOption) echo.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c echo.Context) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		scope, scopeErr := chaindi.FromContext(c.Request().Context())
		if scopeErr != nil {
			return cfg.ScopeErrorHandler(c, scopeErr)
		}

		controller, resolveErr := chaindi.Resolve[T](scope)
		if resolveErr != nil {
			return cfg.ResolutionErrorHandler(c, resolveErr)
		}

		return method(controller, c)
	}
}
