package lifetime_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/junioryono/chaindi/internal/cache"
	"github.com/junioryono/chaindi/internal/lifetime"
	"github.com/junioryono/chaindi/internal/registry"
	"github.com/junioryono/chaindi/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var disposableType = reflect.TypeFor[*testutil.TestDisposable]()

func ptr[T any](v T) *T { return &v }

func cached(t *testing.T, r *registry.Registry, c *cache.Cache, reg registry.Registration, instance any) {
	t.Helper()
	require.NoError(t, r.Add(reg, nil))
	c.Add(reg, instance)
}

func TestGetCloser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("Close() error", func(t *testing.T) {
		d := testutil.NewTestDisposable()
		closer := lifetime.GetCloser(d)
		require.NotNil(t, closer)
		require.NoError(t, closer.Close(ctx))
		assert.True(t, d.IsDisposed())
	})

	t.Run("Close(ctx) error", func(t *testing.T) {
		d := testutil.NewTestContextDisposable()
		closer := lifetime.GetCloser(d)
		require.NotNil(t, closer)
		require.NoError(t, closer.Close(ctx))
		assert.True(t, d.WasDisposedWithContext())
	})

	t.Run("Close()", func(t *testing.T) {
		q := &testutil.TestQuietCloser{}
		closer := lifetime.GetCloser(q)
		require.NotNil(t, closer)
		require.NoError(t, closer.Close(ctx))
		assert.True(t, q.IsClosed())
	})

	t.Run("not disposable", func(t *testing.T) {
		assert.Nil(t, lifetime.GetCloser(&testutil.VerySimpleClass{}))
	})
}

func TestDisposer_DisposesEligibleInstancesNewestFirst(t *testing.T) {
	t.Parallel()

	r := registry.New()
	c := cache.New()
	log := &testutil.DisposalLog{}

	first := testutil.NewLoggedDisposable("first", log)
	second := testutil.NewLoggedDisposable("second", log)
	cached(t, r, c, registry.NewTypeRegistration(disposableType, disposableType, registry.Options{Name: "first"}), first)
	cached(t, r, c, registry.NewTypeRegistration(disposableType, disposableType, registry.Options{Name: "second"}), second)

	var notified []any
	d := lifetime.New(nil, func(instance any, err error) {
		notified = append(notified, instance)
	})

	require.NoError(t, d.DisposeInstances(context.Background(), r, c))
	assert.Equal(t, []string{"second", "first"}, log.IDs())
	assert.Len(t, notified, 2)
	assert.Equal(t, int64(2), d.Stats().DisposedInstances)
}

func TestDisposer_SkipsIneligible(t *testing.T) {
	t.Parallel()

	r := registry.New()
	c := cache.New()

	kept := testutil.NewTestDisposable()
	cached(t, r, c, registry.NewTypeRegistration(disposableType, disposableType, registry.Options{
		Name:                 "kept",
		DisposeWithContainer: ptr(false),
	}), kept)

	instance := testutil.NewTestDisposable()
	cached(t, r, c, registry.NewInstanceRegistration(disposableType, instance, registry.Options{Name: "instance"}), instance)

	// Cached here but registered in another scope.
	foreign := testutil.NewTestDisposable()
	c.Add(registry.NewTypeRegistration(disposableType, disposableType, registry.Options{Name: "foreign"}), foreign)

	plain := &testutil.VerySimpleClass{}
	simpleType := reflect.TypeFor[*testutil.VerySimpleClass]()
	cached(t, r, c, registry.NewTypeRegistration(simpleType, simpleType, registry.Options{}), plain)

	d := lifetime.New(nil, nil)
	require.NoError(t, d.DisposeInstances(context.Background(), r, c))

	assert.False(t, kept.IsDisposed())
	assert.False(t, instance.IsDisposed())
	assert.False(t, foreign.IsDisposed())
	assert.Equal(t, int64(0), d.Stats().DisposedInstances)
}

func TestDisposer_InstanceRegistrationOptIn(t *testing.T) {
	t.Parallel()

	r := registry.New()
	c := cache.New()

	instance := testutil.NewTestDisposable()
	cached(t, r, c, registry.NewInstanceRegistration(disposableType, instance, registry.Options{
		DisposeWithContainer: ptr(true),
	}), instance)

	require.NoError(t, lifetime.New(nil, nil).DisposeInstances(context.Background(), r, c))
	assert.True(t, instance.IsDisposed())
}

func TestDisposer_CollectsFailures(t *testing.T) {
	t.Parallel()

	r := registry.New()
	c := cache.New()

	bad := testutil.NewTestDisposableWithError(testutil.ErrDisposal)
	good := testutil.NewTestDisposable()
	cached(t, r, c, registry.NewTypeRegistration(disposableType, disposableType, registry.Options{Name: "bad"}), bad)
	cached(t, r, c, registry.NewTypeRegistration(disposableType, disposableType, registry.Options{Name: "good"}), good)

	d := lifetime.New(nil, nil)
	err := d.DisposeInstances(context.Background(), r, c)
	require.Error(t, err)

	var disposalErr *lifetime.DisposalError
	require.True(t, errors.As(err, &disposalErr))
	require.Len(t, disposalErr.Failures, 1)
	assert.Equal(t, "bad", disposalErr.Failures[0].Key.Name)
	assert.ErrorIs(t, err, testutil.ErrDisposal)

	assert.True(t, good.IsDisposed())
	assert.Equal(t, int64(1), d.Stats().FailedInstances)
	assert.Equal(t, int64(1), d.Stats().DisposedInstances)
}

func TestDisposer_Discard(t *testing.T) {
	t.Parallel()

	d := lifetime.New(nil, nil)

	built := testutil.NewTestDisposable()
	d.Discard(registry.NewTypeRegistration(disposableType, disposableType, registry.Options{}), built)
	assert.True(t, built.IsDisposed())

	perResolution := testutil.NewTestDisposable()
	d.Discard(registry.NewTypeRegistration(disposableType, disposableType, registry.Options{
		Multiplicity: registry.InstancePerResolution,
	}), perResolution)
	assert.False(t, perResolution.IsDisposed())

	shared := testutil.NewTestDisposable()
	d.Discard(registry.NewInstanceRegistration(disposableType, shared, registry.Options{
		DisposeWithContainer: ptr(true),
	}), shared)
	assert.False(t, shared.IsDisposed())

	assert.Equal(t, int64(1), d.Stats().DisposedInstances)
}
