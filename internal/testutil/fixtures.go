package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ErrorTestCase is a table entry for an action expected to fail.
type ErrorTestCase[S any] struct {
	Name      string
	Setup     func(t *testing.T) S
	Action    func(subject S) error
	WantError error
	CheckErr  func(t *testing.T, err error)
}

// RunErrorTestCases runs each case as a parallel subtest.
func RunErrorTestCases[S any](t *testing.T, cases []ErrorTestCase[S]) {
	t.Helper()

	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()

			err := tc.Action(tc.Setup(t))

			require.Error(t, err)
			if tc.WantError != nil {
				assert.ErrorIs(t, err, tc.WantError)
			}
			if tc.CheckErr != nil {
				tc.CheckErr(t, err)
			}
		})
	}
}
