// Package digin provides chaindi integration for the Gin web framework.
//
// ScopeMiddleware gives every request its own child container, and Handle
// resolves controllers from it.
//
// Example usage:
//
//	root, _ := chaindi.New(nil, chaindi.Type[*AuthService, *AuthService]())
//
//	g := gin.New()
//	g.Use(digin.ScopeMiddleware(root,
//	    digin.WithRegistrations(func(*gin.Context) []chaindi.Registration {
//	        return []chaindi.Registration{chaindi.Factory[*UserController](NewUserController)}
//	    }),
//	))
//
//	g.GET("/users/:id", digin.Handle((*UserController).GetByID))
package digin

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junioryono/chaindi"
)

// Config holds the configuration for the scope middleware.
type Config struct {
	// ErrorHandler is called when creating the request container fails.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(*gin.Context, error)

	// CloseErrorHandler is called when closing the request container fails.
	// If nil, errors are logged using slog.
	CloseErrorHandler func(error)

	// Registrations returns extra registrations for the request container.
	Registrations func(*gin.Context) []chaindi.Registration

	// Middlewares are functions that run after the request container is created.
	Middlewares []func(*chaindi.Container, *gin.Context) error
}

// Option configures the scope middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for request container failures.
func WithErrorHandler(h func(*gin.Context, error)) Option {
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
func WithRegistrations(fn func(*gin.Context) []chaindi.Registration) Option {
	return func(c *Config) {
		c.Registrations = fn
	}
}

// WithMiddleware adds a middleware function that runs after the request
// container is created. Multiple middlewares are executed in the order they are added.
//
// Example:
//
//	digin.ScopeMiddleware(root,
//	    digin.WithMiddleware(func(scope *chaindi.Container, c *gin.Context) error {
//	        session := chaindi.MustResolve[*Session](scope)
//	        session.UserID = c.GetHeader("X-User")
//	        return nil
//	    }),
//	)
func WithMiddleware(mw func(*chaindi.Container, *gin.Context) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c *gin.Context, err error) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Internal Server Error",
			})
		},
		CloseErrorHandler: func(err error) {
			slog.Error("failed to close request container", "error", err)
		},
	}
}

// ScopeMiddleware creates a gin.HandlerFunc that creates a child of root for
// each request. The child serves the *gin.Context and *http.Request of the
// request, is attached to the request context, and is closed when the
// handler chain returns.
func ScopeMiddleware(root *chaindi.Container, opts ...Option) gin.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		regs := []chaindi.Registration{chaindi.Instance(c), chaindi.Instance(c.Request)}
		if cfg.Registrations != nil {
			regs = append(regs, cfg.Registrations(c)...)
		}

		scope, err := root.NewChild(regs...)
		if err != nil {
			cfg.ErrorHandler(c, err)
			return
		}

		defer func() {
			if err := scope.Close(); err != nil {
				cfg.CloseErrorHandler(err)
			}
		}()

		c.Request = c.Request.WithContext(chaindi.WithContainer(c.Request.Context(), scope))

		for _, mw := range cfg.Middlewares {
			if err := mw(scope, c); err != nil {
				cfg.ErrorHandler(c, err)
				return
			}
		}

		c.Next()
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(*gin.Context, any)

	// ScopeErrorHandler is called when the request container is missing.
	ScopeErrorHandler func(*gin.Context, error)

	// ResolutionErrorHandler is called when service resolution fails.
	ResolutionErrorHandler func(*gin.Context, error)
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
func WithPanicHandler(h func(*gin.Context, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithScopeErrorHandler sets the error handler for a missing request container.
func WithScopeErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ScopeErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for service resolution failures.
func WithResolutionErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler: func(c *gin.Context, v any) {
			slog.Error("panic in handler", "panic", v)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Internal Server Error",
			})
		},
		ScopeErrorHandler: func(c *gin.Context, err error) {
			slog.Error("failed to get container from context", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Internal Server Error",
			})
		},
		ResolutionErrorHandler: func(c *gin.Context, err error) {
			slog.Error("failed to resolve controller", "error", err)
			status := http.StatusInternalServerError
			if chaindi.IsNotFound(err) {
				status = http.StatusNotImplemented
			}
			c.AbortWithStatusJSON(status, gin.H{"error": http.StatusText(status)})
		},
	}
}

// Handle wraps a controller method for type-safe resolution from the request
// container.
//
// Example:
//
//	g.GET("/users/:id", digin.Handle((*UserController).GetByID))
func Handle[T any](method func(T, *gin.Context), opts ...HandlerOption) gin.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					cfg.PanicHandler(c, v)
				}
			}()
		}

		scope, err := chaindi.FromContext(c.Request.Context())
		if err != nil {
			cfg.ScopeErrorHandler(c, err)
			return
		}

		controller, err := chaindi.Resolve[T](scope)
		if err != nil {
			cfg.ResolutionErrorHandler(c, err)
			return
		}

		method(controller, c)
	}
}
