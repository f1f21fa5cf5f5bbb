package lifetime

import "context"

// Closer is the disposal capability the disposer invokes.
//
// Instances are disposable if they implement Closer or one of the other
// compatible Close signatures:
//
//   - Close() error
//   - Close()
//   - Close(context.Context)
type Closer interface {
	Close(ctx context.Context) error
}

// GetCloser returns the disposal capability of val, or nil if it has none.
func GetCloser(val any) Closer {
	switch c := val.(type) {
	case Closer:
		return c
	case closerNoContextWithError:
		return closerNoContextWithErrorWrapper{c}
	case closerWithContextNoError:
		return closerWithContextNoErrorWrapper{c}
	case closerNoContextNoError:
		return closerNoContextNoErrorWrapper{c}
	default:
		return nil
	}
}

type closerNoContextWithError interface {
	Close() error
}

type closerWithContextNoError interface {
	Close(ctx context.Context)
}

type closerNoContextNoError interface {
	Close()
}

type closerNoContextWithErrorWrapper struct {
	c closerNoContextWithError
}

func (w closerNoContextWithErrorWrapper) Close(context.Context) error {
	return w.c.Close()
}

type closerWithContextNoErrorWrapper struct {
	c closerWithContextNoError
}

func (w closerWithContextNoErrorWrapper) Close(ctx context.Context) error {
	w.c.Close(ctx)
	return nil
}

type closerNoContextNoErrorWrapper struct {
	c closerNoContextNoError
}

func (w closerNoContextNoErrorWrapper) Close(context.Context) error {
	w.c.Close()
	return nil
}

// CloseFunc adapts a function to Closer.
type CloseFunc func(context.Context) error

func (f CloseFunc) Close(ctx context.Context) error {
	return f(ctx)
}
