package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProjectReference(t *testing.T) {
	testCases := []struct {
		input       string
		expected    ProjectReference
		expectError bool
	}{
		{input: "acme/widget", expected: ProjectReference{Owner: "acme", Repo: "widget"}},
		{input: "EmaSuriano/gatsby-starter-mate", expected: ProjectReference{Owner: "EmaSuriano", Repo: "gatsby-starter-mate"}},
		{input: "acme", expectError: true},
		{input: "acme/", expectError: true},
		{input: "/widget", expectError: true},
		{input: "acme/widget/extra", expectError: true},
		{input: "", expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			ref, err := ParseProjectReference(tc.input)
			if tc.expectError {
				assert.Error(t, err)
				assert.False(t, IsProjectReference(tc.input))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ref)
			assert.Equal(t, tc.input, ref.String())
		})
	}
}

func TestPullStateFromCombined(t *testing.T) {
	assert.Equal(t, PullStateSuccess, PullStateFromCombined("success"))
	assert.Equal(t, PullStatePending, PullStateFromCombined("pending"))
	assert.Equal(t, PullStateError, PullStateFromCombined("failure"))
	assert.Equal(t, PullStateUnknown, PullStateFromCombined("error"))
	assert.Equal(t, PullStateUnknown, PullStateFromCombined(""))
}

func TestExceeds(t *testing.T) {
	limit := 3
	assert.False(t, Exceeds(nil, 100))
	assert.False(t, Exceeds(&limit, 3))
	assert.True(t, Exceeds(&limit, 4))
}
