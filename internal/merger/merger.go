package merger

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/oshokin/release-matrix/internal/domain/release"
	"github.com/oshokin/release-matrix/internal/logger"
)

// DefaultFileMode is applied to merged artifacts so they stay executable.
const DefaultFileMode os.FileMode = 0o755

// Merger combines single-architecture binaries into universal artifacts.
type Merger struct {
	// outputDir is where merged artifacts are written.
	outputDir string
}

// New returns a merger writing artifacts into outputDir.
func New(outputDir string) *Merger {
	return &Merger{outputDir: outputDir}
}

// Merge validates the request and writes the universal artifact, returning
// its path. All failures are MergeError; on failure no artifact is produced.
//
// Output bytes are deterministic for identical inputs in identical order.
// Slice offsets are assigned in input order, so reordering logically distinct
// inputs changes the byte layout but not program behavior: the loader selects
// a slice by architecture identifier, not by position.
func (m *Merger) Merge(ctx context.Context, req release.MergeRequest) (string, error) {
	slices, err := loadInputs(req.Inputs)
	if err != nil {
		return "", err
	}

	contents, err := assemble(slices)
	if err != nil {
		return "", err
	}

	if err = os.MkdirAll(m.outputDir, 0o750); err != nil {
		return "", &release.MergeError{
			Kind:   release.MergeMissingInput,
			Detail: fmt.Sprintf("create output directory: %v", err),
		}
	}

	path := filepath.Join(m.outputDir, req.OutputName)
	if err = os.WriteFile(path, contents, DefaultFileMode); err != nil {
		return "", &release.MergeError{
			Kind:   release.MergeMissingInput,
			Detail: fmt.Sprintf("write merged artifact: %v", err),
		}
	}

	logger.InfoKV(ctx, "Merged universal artifact",
		"platform", req.Platform,
		"slices", len(slices),
		"path", path,
		"size", len(contents))

	return path, nil
}

// slice is one validated input binary with its container identity.
type slice struct {
	arch release.Arch
	info archInfo
	data []byte
}

// loadInputs checks merge preconditions and reads every input binary:
// all inputs present and successful, each a valid thin executable for its
// declared architecture, and no two inputs declaring the same architecture.
func loadInputs(inputs []release.BuildResult) ([]slice, error) {
	if len(inputs) == 0 {
		return nil, &release.MergeError{
			Kind:   release.MergeMissingInput,
			Detail: "no inputs",
		}
	}

	seen := make(map[release.Arch]struct{}, len(inputs))
	slices := make([]slice, 0, len(inputs))

	for _, input := range inputs {
		arch := input.Job.Arch

		if !input.Succeeded() || input.ArtifactPath == "" {
			return nil, &release.MergeError{
				Kind:   release.MergeMissingInput,
				Detail: fmt.Sprintf("constituent %s did not produce a binary", arch),
			}
		}

		if _, ok := seen[arch]; ok {
			return nil, &release.MergeError{
				Kind:   release.MergeDuplicateArchitecture,
				Detail: string(arch),
			}
		}

		seen[arch] = struct{}{}

		data, err := os.ReadFile(input.ArtifactPath)
		if err != nil {
			return nil, &release.MergeError{
				Kind:   release.MergeMissingInput,
				Detail: fmt.Sprintf("read %s input: %v", arch, err),
			}
		}

		if err = inspectThin(data, arch); err != nil {
			return nil, err
		}

		slices = append(slices, slice{arch: arch, info: archTable[arch], data: data})
	}

	return slices, nil
}

// assemble builds the universal container: a big-endian header enumerating
// each slice's architecture identifier, offset, and size, followed by the
// slices themselves copied verbatim at their alignment boundaries.
func assemble(slices []slice) ([]byte, error) {
	offset := uint64(fatHeaderSize + len(slices)*fatArchSize)
	offsets := make([]uint64, len(slices))

	for i, s := range slices {
		offset = alignUp(offset, s.info.align)
		offsets[i] = offset
		offset += uint64(len(s.data))
	}

	if offset > math.MaxUint32 {
		return nil, &release.MergeError{
			Kind:   release.MergeInvalidBinaryFormat,
			Detail: fmt.Sprintf("container size %d exceeds 32-bit offsets", offset),
		}
	}

	out := make([]byte, offset)
	binary.BigEndian.PutUint32(out[0:4], fatMagic)
	binary.BigEndian.PutUint32(out[4:8], uint32(len(slices)))

	for i, s := range slices {
		entry := out[fatHeaderSize+i*fatArchSize:]
		binary.BigEndian.PutUint32(entry[0:4], s.info.cpuType)
		binary.BigEndian.PutUint32(entry[4:8], s.info.cpuSubtype)
		binary.BigEndian.PutUint32(entry[8:12], uint32(offsets[i]))
		binary.BigEndian.PutUint32(entry[12:16], uint32(len(s.data)))
		binary.BigEndian.PutUint32(entry[16:20], s.info.align)

		copy(out[offsets[i]:], s.data)
	}

	return out, nil
}
