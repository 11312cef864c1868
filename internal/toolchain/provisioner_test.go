package toolchain

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/release-matrix/internal/domain/release"
)

// TestExecProvisioner covers success, failure classification, and the empty template.
func TestExecProvisioner(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("test shells out to sh")
	}

	ctx := context.Background()

	// Success.
	p := NewExecProvisioner([]string{"sh", "-c", "true"})
	require.NoError(t, p.Provision(ctx, "x86_64-apple-darwin"))

	// Failure wraps ProvisionError with the triple attached.
	p = NewExecProvisioner([]string{"sh", "-c", "echo no such target >&2; exit 1"})
	err := p.Provision(ctx, "aarch64-apple-darwin")
	require.Error(t, err)

	var provisionErr *release.ProvisionError
	require.True(t, errors.As(err, &provisionErr))
	require.Equal(t, "aarch64-apple-darwin", provisionErr.Triple)
	require.Contains(t, provisionErr.Error(), "no such target")

	// Empty template.
	p = NewExecProvisioner(nil)
	require.Error(t, p.Provision(ctx, "x86_64-apple-darwin"))
}

// TestNoop verifies the pre-provisioned host path.
func TestNoop(t *testing.T) {
	t.Parallel()

	require.NoError(t, Noop{}.Provision(context.Background(), "anything"))
}
