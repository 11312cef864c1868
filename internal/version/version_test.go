package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestShortAndFull verifies the short form is contained in the full form.
func TestShortAndFull(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, Short())
	require.True(t, strings.Contains(Full(), Short()))
	require.Contains(t, Full(), "commit:")
}
