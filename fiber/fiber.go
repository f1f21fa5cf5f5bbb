// Package difiber provides chaindi integration for the Fiber web framework.
//
// Example usage:
//
//	root, _ := chaindi.New(nil, chaindi.Type[*AuthService, *AuthService]())
//
//	app := fiber.New()
//	app.Use(difiber.ScopeMiddleware(root,
//	    difiber.WithRegistrations(func(*fiber.Ctx) []chaindi.Registration {
//	        return []chaindi.Registration{chaindi.Factory[*UserController](NewUserController)}
//	    }),
//	))
//
//	app.Get("/users/:id", difiber.Handle((*UserController).GetByID))
package difiber

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/junioryono/chaindi"
)

// containerKey is the fiber.Ctx.Locals key of the request container.
const containerKey = "chaindi_container"

// Config holds the configuration for the scope middleware.
type Config struct {
	// ErrorHandler is called when creating the request container fails.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(*fiber.Ctx, error) error

	// CloseErrorHandler is called when closing the request container fails.
	// If nil, errors are logged using slog.
	CloseErrorHandler func(error)

	// Registrations returns extra registrations for the request container.
	Registrations func(*fiber.Ctx) []chaindi.Registration

	// Middlewares are functions that run after the request container is created.
	Middlewares []func(*chaindi.Container, *fiber.Ctx) error
}

// Option configures the scope middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for request container failures.
func WithErrorHandler(h func(*fiber.Ctx, error) error) Option {
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
func WithRegistrations(fn func(*fiber.Ctx) []chaindi.Registration) Option {
	return func(c *Config) {
		c.Registrations = fn
	}
}

// WithMiddleware adds a middleware function that runs after the request
// container is created, in the order added.
func WithMiddleware(mw func(*chaindi.Container, *fiber.Ctx) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return errorJSON(c, fiber.ErrInternalServerError)
		},
		CloseErrorHandler: func(err error) {
			slog.Error("failed to close request container", "error", err)
		},
	}
}

// ScopeMiddleware creates a Fiber middleware that creates a child of root
// for each request. The child serves the *fiber.Ctx of the request and is
// stored both in fiber.Ctx.Locals and in the user context.
//
// The child is closed when the rest of the handler chain returns. A
// *fiber.Ctx is recycled after the request, so nothing resolved from the
// child may outlive it.
func ScopeMiddleware(root *chaindi.Container, opts ...Option) fiber.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *fiber.Ctx) error {
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

		c.SetUserContext(chaindi.WithContainer(c.UserContext(), scope))
		c.Locals(containerKey, scope)

		for _, mw := range cfg.Middlewares {
			if err := mw(scope, c); err != nil {
				return cfg.ErrorHandler(c, err)
			}
		}

		return c.Next()
	}
}

// FromContext returns the request container stored by ScopeMiddleware.
func FromContext(c *fiber.Ctx) (*chaindi.Container, error) {
	scope, ok := c.Locals(containerKey).(*chaindi.Container)
	if !ok || scope == nil {
		return nil, chaindi.ErrContainerNotInContext
	}
	if scope.IsDisposed() {
		return nil, chaindi.ErrContainerDisposed
	}
	return scope, nil
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(*fiber.Ctx, any) error

	// ScopeErrorHandler is called when the request container is missing.
	ScopeErrorHandler func(*fiber.Ctx, error) error

	// ResolutionErrorHandler is called when service resolution fails.
	ResolutionErrorHandler func(*fiber.Ctx, error) error
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
func WithPanicHandler(h func(*fiber.Ctx, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithScopeErrorHandler sets the error handler for a missing request container.
func WithScopeErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ScopeErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for service resolution failures.
func WithResolutionErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func errorJSON(c *fiber.Ctx, e *fiber.Error) error {
	return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler: func(c *fiber.Ctx, v any) error {
			slog.Error("panic in handler", "panic", v)
			return errorJSON(c, fiber.ErrInternalServerError)
		},
		ScopeErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("failed to get container from context", "error", err)
			return errorJSON(c, fiber.ErrInternalServerError)
		},
		ResolutionErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("failed to resolve controller", "error", err)
			if chaindi.IsNotFound(err) {
				return errorJSON(c, fiber.ErrNotImplemented)
			}
			return errorJSON(c, fiber.ErrInternalServerError)
		},
	}
}

// Handle wraps a controller method for type-safe resolution from the request
// container.
//
// Example:
//
//	app.Get("/users/:id", difiber.Handle((*UserController).GetByID))
func Handle[T any](method func(T, *fiber.Ctx) error, opts ...HandlerOption) fiber.Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *fiber.Ctx) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		scope, scopeErr := FromContext(c)
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
