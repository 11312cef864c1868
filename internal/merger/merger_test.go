package merger

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/release-matrix/internal/domain/release"
)

// writeThin writes a minimal thin executable for the given architecture and
// returns a successful BuildResult pointing at it.
func writeThin(t *testing.T, dir string, arch release.Arch, payload []byte) release.BuildResult {
	t.Helper()

	info, ok := archTable[arch]
	require.True(t, ok)

	header := make([]byte, thinHeaderMin)
	binary.LittleEndian.PutUint32(header[0:4], thinMagic64)
	binary.LittleEndian.PutUint32(header[4:8], info.cpuType)
	binary.LittleEndian.PutUint32(header[8:12], info.cpuSubtype)

	path := filepath.Join(dir, "thin-"+string(arch))
	require.NoError(t, os.WriteFile(path, append(header, payload...), 0o755))

	return release.BuildResult{
		Job:          release.BuildJob{Arch: arch},
		Status:       release.StatusSuccess,
		ArtifactPath: path,
	}
}

// macosRequest returns a two-slice merge request for the given inputs.
func macosRequest(inputs ...release.BuildResult) release.MergeRequest {
	return release.MergeRequest{
		Platform:   release.PlatformMacOS,
		Inputs:     inputs,
		OutputName: "app-macos-universal",
	}
}

// TestMerge_ProducesValidContainer merges two slices and walks the container
// header verifying identifiers, alignment, and verbatim slice bytes.
func TestMerge_ProducesValidContainer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	x64 := writeThin(t, dir, release.ArchX64, []byte("x64 payload"))
	arm := writeThin(t, dir, release.ArchARM64, []byte("arm payload, longer one"))

	path, err := New(dir).Merge(context.Background(), macosRequest(x64, arm))
	require.NoError(t, err)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)

	require.Equal(t, fatMagic, binary.BigEndian.Uint32(contents[0:4]))
	require.Equal(t, uint32(2), binary.BigEndian.Uint32(contents[4:8]))

	wantOrder := []release.Arch{release.ArchX64, release.ArchARM64}
	inputsByArch := map[release.Arch]release.BuildResult{
		release.ArchX64:   x64,
		release.ArchARM64: arm,
	}

	for i, arch := range wantOrder {
		entry := contents[fatHeaderSize+i*fatArchSize:]
		info := archTable[arch]

		require.Equal(t, info.cpuType, binary.BigEndian.Uint32(entry[0:4]))
		require.Equal(t, info.cpuSubtype, binary.BigEndian.Uint32(entry[4:8]))

		offset := binary.BigEndian.Uint32(entry[8:12])
		size := binary.BigEndian.Uint32(entry[12:16])
		align := binary.BigEndian.Uint32(entry[16:20])

		require.Equal(t, info.align, align)
		require.Zero(t, offset%(1<<align), "slice %s not aligned", arch)

		original, readErr := os.ReadFile(inputsByArch[arch].ArtifactPath)
		require.NoError(t, readErr)
		require.Equal(t, original, contents[offset:offset+size], "slice %s not copied verbatim", arch)
	}
}

// TestMerge_Deterministic merges the same inputs twice and requires
// byte-identical outputs.
func TestMerge_Deterministic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	x64 := writeThin(t, dir, release.ArchX64, []byte("slice a"))
	arm := writeThin(t, dir, release.ArchARM64, []byte("slice b"))

	first, err := New(filepath.Join(dir, "out1")).Merge(context.Background(), macosRequest(x64, arm))
	require.NoError(t, err)

	second, err := New(filepath.Join(dir, "out2")).Merge(context.Background(), macosRequest(x64, arm))
	require.NoError(t, err)

	firstBytes, err := os.ReadFile(first)
	require.NoError(t, err)

	secondBytes, err := os.ReadFile(second)
	require.NoError(t, err)

	require.Equal(t, firstBytes, secondBytes)
}

// TestMerge_OrderIndependentContents verifies both slices are present and
// intact regardless of input order, even though the byte layout may differ.
func TestMerge_OrderIndependentContents(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	x64 := writeThin(t, dir, release.ArchX64, []byte("x"))
	arm := writeThin(t, dir, release.ArchARM64, []byte("a"))

	path, err := New(dir).Merge(context.Background(), macosRequest(arm, x64))
	require.NoError(t, err)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, uint32(2), binary.BigEndian.Uint32(contents[4:8]))

	// First entry is arm64 this time.
	entry := contents[fatHeaderSize:]
	require.Equal(t, archTable[release.ArchARM64].cpuType, binary.BigEndian.Uint32(entry[0:4]))
}

// TestMerge_RejectsDuplicateArchitecture covers the dedup precondition.
func TestMerge_RejectsDuplicateArchitecture(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := writeThin(t, dir, release.ArchX64, []byte("one"))
	second := writeThin(t, dir, release.ArchX64, []byte("two"))
	second.ArtifactPath = first.ArtifactPath

	_, err := New(dir).Merge(context.Background(), macosRequest(first, second))
	require.Error(t, err)

	mergeErr, ok := release.AsMergeError(err)
	require.True(t, ok)
	require.Equal(t, release.MergeDuplicateArchitecture, mergeErr.Kind)
}

// TestMerge_RejectsFailedInput ensures a failed constituent never merges.
func TestMerge_RejectsFailedInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	x64 := writeThin(t, dir, release.ArchX64, []byte("ok"))
	failed := release.BuildResult{
		Job:    release.BuildJob{Arch: release.ArchARM64},
		Status: release.StatusFailed,
	}

	_, err := New(dir).Merge(context.Background(), macosRequest(x64, failed))
	require.Error(t, err)

	mergeErr, ok := release.AsMergeError(err)
	require.True(t, ok)
	require.Equal(t, release.MergeMissingInput, mergeErr.Kind)

	// No artifact is produced.
	_, err = os.Stat(filepath.Join(dir, "app-macos-universal"))
	require.Error(t, err)
}

// TestMerge_RejectsInvalidFormat covers garbage, arch mismatch, and
// already-universal inputs.
func TestMerge_RejectsInvalidFormat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	arm := writeThin(t, dir, release.ArchARM64, []byte("fine"))

	// Garbage bytes.
	garbage := filepath.Join(dir, "garbage")
	require.NoError(t, os.WriteFile(garbage, []byte("#!/bin/sh\necho hi\n"), 0o755))

	bad := release.BuildResult{
		Job:          release.BuildJob{Arch: release.ArchX64},
		Status:       release.StatusSuccess,
		ArtifactPath: garbage,
	}

	_, err := New(dir).Merge(context.Background(), macosRequest(bad, arm))
	mergeErr, ok := release.AsMergeError(err)
	require.True(t, ok)
	require.Equal(t, release.MergeInvalidBinaryFormat, mergeErr.Kind)

	// Declared x64 but built arm64.
	mismatched := writeThin(t, dir, release.ArchARM64, []byte("wrong"))
	mismatched.Job.Arch = release.ArchX64

	_, err = New(dir).Merge(context.Background(), macosRequest(mismatched, arm))
	mergeErr, ok = release.AsMergeError(err)
	require.True(t, ok)
	require.Equal(t, release.MergeInvalidBinaryFormat, mergeErr.Kind)

	// A universal binary cannot be an input.
	x64 := writeThin(t, dir, release.ArchX64, []byte("thin"))

	universal, err := New(dir).Merge(context.Background(), macosRequest(x64, arm))
	require.NoError(t, err)

	recursive := release.BuildResult{
		Job:          release.BuildJob{Arch: release.ArchX64},
		Status:       release.StatusSuccess,
		ArtifactPath: universal,
	}

	_, err = New(dir).Merge(context.Background(), macosRequest(recursive, arm))
	mergeErr, ok = release.AsMergeError(err)
	require.True(t, ok)
	require.Equal(t, release.MergeInvalidBinaryFormat, mergeErr.Kind)
}
