package chaindi_test

import (
	"strings"
	"testing"

	"github.com/junioryono/chaindi"
	"github.com/junioryono/chaindi/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainer_Validate(t *testing.T) {
	t.Parallel()

	t.Run("complete graph", func(t *testing.T) {
		t.Parallel()

		c := newContainer(t, nil,
			chaindi.Type[testutil.IInterface1, *testutil.Class1](),
			chaindi.Type[*testutil.VerySimpleClass, *testutil.VerySimpleClass](),
			chaindi.Type[*testutil.ClassWithTwoDependencies, *testutil.ClassWithTwoDependencies](),
			chaindi.Type[*Lazy, *Lazy](),
			chaindi.Type[*Labeled, *Labeled](chaindi.Named("x")),
		)

		assert.NoError(t, c.Validate())
	})

	t.Run("missing dependency", func(t *testing.T) {
		t.Parallel()

		c := newContainer(t, nil,
			chaindi.Type[*testutil.ClassWithTwoDependencies, *testutil.ClassWithTwoDependencies](),
			chaindi.Type[*testutil.VerySimpleClass, *testutil.VerySimpleClass](),
		)

		err := c.Validate()
		require.Error(t, err)
		assert.True(t, chaindi.IsNotFound(err))

		stack, ok := chaindi.GetResolutionStack(err)
		require.True(t, ok)
		require.Len(t, stack, 1)
		assert.Equal(t, "*testutil.ClassWithTwoDependencies", stack[0].ServiceType.String())

		// Nothing was constructed.
		assert.Zero(t, c.Stats().CachedInstances)
	})

	t.Run("missing dependency is fine when optional", func(t *testing.T) {
		t.Parallel()

		c := newContainer(t, func(o *chaindi.Options) { o.MakeAllResolutionOptional = true },
			chaindi.Type[*testutil.ClassWithDependency, *testutil.ClassWithDependency](),
		)

		assert.NoError(t, c.Validate())
	})

	t.Run("cycle", func(t *testing.T) {
		t.Parallel()

		c := newContainer(t, nil,
			chaindi.Type[*testutil.CircularServiceA, *testutil.CircularServiceA](),
			chaindi.Type[*testutil.CircularServiceB, *testutil.CircularServiceB](),
		)

		err := c.Validate()
		require.Error(t, err)
		assert.True(t, chaindi.IsCircularDependency(err))

		circ := testutil.AssertErrorType[*chaindi.CircularDependencyError](t, err)
		assert.Len(t, circ.Chain, 2)
	})

	t.Run("ambiguous constructor", func(t *testing.T) {
		t.Parallel()

		c := newContainer(t, nil,
			chaindi.Type[*testutil.ClassWithDependency, *testutil.ClassWithDependency](chaindi.WithConstructors(
				testutil.NewClassWithDependency,
				func(dep testutil.IInterface1) *testutil.ClassWithDependency {
					return &testutil.ClassWithDependency{Dep: dep}
				},
			)),
		)

		var ambiguous chaindi.AmbiguousConstructorError
		assert.ErrorAs(t, c.Validate(), &ambiguous)
	})

	t.Run("child dependencies resolve outward only", func(t *testing.T) {
		t.Parallel()

		parent := newContainer(t, nil,
			chaindi.Type[*testutil.ClassWithDependency, *testutil.ClassWithDependency](),
		)
		child, err := parent.NewChild(chaindi.Type[testutil.IInterface1, *testutil.Class1]())
		require.NoError(t, err)
		defer child.Close()

		// The parent's registration cannot see the child's dependency.
		assert.True(t, chaindi.IsNotFound(child.Validate()))

		require.NoError(t, parent.AddRegistrations(chaindi.Type[testutil.IInterface1, *testutil.Class1Alt]()))
		assert.NoError(t, child.Validate())
	})

	t.Run("closed", func(t *testing.T) {
		t.Parallel()

		c := newContainer(t, nil)
		require.NoError(t, c.Close())
		assert.ErrorIs(t, c.Validate(), chaindi.ErrContainerDisposed)
	})
}

func TestContainer_WriteDependencyGraph(t *testing.T) {
	t.Parallel()

	c := newContainer(t, nil,
		chaindi.Type[testutil.IInterface1, *testutil.Class1](),
		chaindi.Type[*testutil.ClassWithDependency, *testutil.ClassWithDependency](),
	)

	var b strings.Builder
	require.NoError(t, c.WriteDependencyGraph(&b))

	out := b.String()
	assert.Contains(t, out, "digraph dependencies {")
	assert.Contains(t, out, "ClassWithDependency")
	assert.Contains(t, out, "IInterface1")
	assert.Contains(t, out, " -> ")
}
