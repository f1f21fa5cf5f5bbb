package chaindi

import "context"

// Disposable is implemented by services that release resources when the
// container that cached them is closed. A plain Close() method without a
// result is honored as well.
//
// Example:
//
//	type DatabaseConnection struct {
//	    conn *sql.DB
//	}
//
//	func (dc *DatabaseConnection) Close() error {
//	    return dc.conn.Close()
//	}
type Disposable interface {
	Close() error
}

// DisposableWithContext is implemented by services whose cleanup honors a
// context. Close receives the context given to CloseContext.
//
// Example:
//
//	func (dc *DatabaseConnection) Close(ctx context.Context) error {
//	    done := make(chan error, 1)
//	    go func() {
//	        done <- dc.conn.Close()
//	    }()
//
//	    select {
//	    case err := <-done:
//	        return err
//	    case <-ctx.Done():
//	        return ctx.Err()
//	    }
//	}
type DisposableWithContext interface {
	Close(ctx context.Context) error
}
