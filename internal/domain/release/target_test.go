package release

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestUniversalConstituents verifies the per-platform constituent table.
func TestUniversalConstituents(t *testing.T) {
	t.Parallel()

	archs, ok := UniversalConstituents(PlatformMacOS)
	require.True(t, ok)
	require.Equal(t, []Arch{ArchX64, ArchARM64}, archs)

	_, ok = UniversalConstituents(PlatformLinux)
	require.False(t, ok)

	_, ok = UniversalConstituents(PlatformWindows)
	require.False(t, ok)
}

// TestDefaultTriple checks the triple table and its unsupported combinations.
func TestDefaultTriple(t *testing.T) {
	t.Parallel()

	triple, ok := DefaultTriple(PlatformMacOS, ArchARM64)
	require.True(t, ok)
	require.Equal(t, "aarch64-apple-darwin", triple)

	triple, ok = DefaultTriple(PlatformLinux, ArchX64)
	require.True(t, ok)
	require.Equal(t, "x86_64-unknown-linux-gnu", triple)

	_, ok = DefaultTriple(PlatformMacOS, ArchUniversal)
	require.False(t, ok)
}

// TestArtifactName covers revision inclusion and the Windows suffix.
func TestArtifactName(t *testing.T) {
	t.Parallel()

	spec := TargetSpec{Platform: PlatformWindows, Arch: ArchX64}
	require.Equal(t, "app-win-rev1-windows-x64.exe", spec.ArtifactName("app-win", "rev1"))

	spec = TargetSpec{Platform: PlatformMacOS, Arch: ArchUniversal}
	require.Equal(t, "app-macos-universal", spec.ArtifactName("app", ""))
}

// TestAllSucceeded verifies the merge gate over constituent results.
func TestAllSucceeded(t *testing.T) {
	t.Parallel()

	ok := BuildResult{Status: StatusSuccess}
	bad := BuildResult{Status: StatusFailed}

	require.True(t, AllSucceeded([]BuildResult{ok, ok}))
	require.False(t, AllSucceeded([]BuildResult{ok, bad}))
	require.False(t, AllSucceeded(nil))
}
