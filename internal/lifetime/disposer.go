package lifetime

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync/atomic"

	"github.com/junioryono/chaindi/internal/cache"
	"github.com/junioryono/chaindi/internal/reflection"
	"github.com/junioryono/chaindi/internal/registry"
)

// DisposalError collects the failures of one disposal pass.
type DisposalError struct {
	Failures []DisposalFailure
}

// DisposalFailure is one instance whose Close returned an error.
type DisposalFailure struct {
	Key      registry.Key
	Instance any
	Err      error
}

func (e *DisposalError) Error() string {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("failed to dispose %d instance(s)", len(e.Failures)))
	for _, f := range e.Failures {
		msg.WriteString(fmt.Sprintf("\n  %s (%s): %v", f.Key, reflection.FormatType(reflect.TypeOf(f.Instance)), f.Err))
	}
	return msg.String()
}

// Unwrap returns the individual disposal errors.
func (e *DisposalError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Statistics tracks disposer metrics.
type Statistics struct {
	DisposedInstances int64
	FailedInstances   int64
}

// Disposer closes the cached instances a scope owns.
type Disposer struct {
	logger    *slog.Logger
	onDispose func(instance any, err error)

	stats struct {
		disposed atomic.Int64
		failed   atomic.Int64
	}
}

// New creates a disposer. onDispose may be nil.
func New(logger *slog.Logger, onDispose func(instance any, err error)) *Disposer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Disposer{logger: logger, onDispose: onDispose}
}

// DisposeInstances closes every cached instance whose registration belongs to
// reg and is both cacheable and marked DisposeWithContainer, newest first.
// Instances without a disposal capability are skipped. Every instance is
// attempted; failures are reported together as a *DisposalError.
func (d *Disposer) DisposeInstances(ctx context.Context, reg *registry.Registry, c *cache.Cache) error {
	entries := c.Snapshot()

	var failures []DisposalFailure
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if !e.Registration.DisposeWithContainer() || !e.Registration.Cacheable() || !reg.HasRegistration(e.Registration) {
			continue
		}

		if err := d.dispose(ctx, e.Registration, e.Instance); err != nil {
			failures = append(failures, DisposalFailure{Key: e.Registration.Key(), Instance: e.Instance, Err: err})
		}
	}

	if len(failures) > 0 {
		return &DisposalError{Failures: failures}
	}
	return nil
}

// Discard closes an instance of reg that was built but never cached, when the
// scope would have disposed it had it been cached. Instances of instance
// registrations are shared with the caller and never closed here.
func (d *Disposer) Discard(reg registry.Registration, instance any) {
	if reg.Kind() == registry.KindInstance || !reg.DisposeWithContainer() {
		return
	}
	_ = d.dispose(context.Background(), reg, instance)
}

func (d *Disposer) dispose(ctx context.Context, reg registry.Registration, instance any) error {
	closer := GetCloser(instance)
	if closer == nil {
		return nil
	}

	err := closer.Close(ctx)
	if d.onDispose != nil {
		d.onDispose(instance, err)
	}

	if err != nil {
		d.stats.failed.Add(1)
		d.logger.Warn("failed to dispose instance",
			slog.String("service", reg.Key().String()),
			slog.Any("error", err))
		return err
	}

	d.stats.disposed.Add(1)
	d.logger.Debug("disposed instance", slog.String("service", reg.Key().String()))
	return nil
}

// Stats returns a snapshot of the disposer counters.
func (d *Disposer) Stats() Statistics {
	return Statistics{
		DisposedInstances: d.stats.disposed.Load(),
		FailedInstances:   d.stats.failed.Load(),
	}
}
