package chaindi

import "context"

type containerContextKey struct{}

// WithContainer returns a copy of ctx carrying c.
func WithContainer(ctx context.Context, c *Container) context.Context {
	return context.WithValue(ctx, containerContextKey{}, c)
}

// FromContext returns the container carried by ctx.
//
// Example:
//
//	func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
//	    c, err := chaindi.FromContext(r.Context())
//	    if err != nil {
//	        http.Error(w, err.Error(), http.StatusInternalServerError)
//	        return
//	    }
//	    users := chaindi.MustResolve[*UserService](c)
//	}
func FromContext(ctx context.Context) (*Container, error) {
	if ctx == nil {
		return nil, ErrContainerNotInContext
	}

	c, ok := ctx.Value(containerContextKey{}).(*Container)
	if !ok || c == nil {
		return nil, ErrContainerNotInContext
	}

	if c.IsDisposed() {
		return nil, ErrContainerDisposed
	}

	return c, nil
}
