package merger

import (
	"encoding/binary"
	"fmt"

	"github.com/oshokin/release-matrix/internal/domain/release"
)

// Universal (fat) container constants. The fat header and its architecture
// table are big-endian on disk regardless of the slices' own byte order.
const (
	// fatMagic opens a 32-bit universal container.
	fatMagic uint32 = 0xcafebabe
	// fatHeaderSize is magic + architecture count.
	fatHeaderSize = 8
	// fatArchSize is one architecture table entry:
	// cputype, cpusubtype, offset, size, align.
	fatArchSize = 20
)

// Thin slice constants. Both supported architectures are little-endian
// 64-bit, so their headers start with the same magic byte sequence.
const (
	// thinMagic64 opens a 64-bit single-architecture executable
	// (read little-endian from the file's first four bytes).
	thinMagic64 uint32 = 0xfeedfacf
	// thinHeaderMin is the minimum prefix needed to identify a slice:
	// magic, cputype, cpusubtype.
	thinHeaderMin = 12
)

// archInfo carries the container-level identity and alignment of one
// supported slice architecture.
type archInfo struct {
	// cpuType is the container architecture identifier.
	cpuType uint32
	// cpuSubtype narrows the identifier; the loader matches on both.
	cpuSubtype uint32
	// align is the slice alignment exponent: offsets are multiples of 2^align.
	align uint32
}

// archTable maps supported slice architectures to their container identity.
// Alignment follows platform convention: 2^12 (page size) for x64,
// 2^14 for arm64.
var archTable = map[release.Arch]archInfo{
	release.ArchX64:   {cpuType: 0x01000007, cpuSubtype: 0x00000003, align: 12},
	release.ArchARM64: {cpuType: 0x0100000c, cpuSubtype: 0x00000000, align: 14},
}

// inspectThin validates that data is a single-architecture executable for the
// declared architecture. A fat input is rejected: merging merged binaries is
// always a caller mistake.
func inspectThin(data []byte, declared release.Arch) error {
	info, ok := archTable[declared]
	if !ok {
		return &release.MergeError{
			Kind:   release.MergeInvalidBinaryFormat,
			Detail: fmt.Sprintf("architecture %q cannot appear in a universal binary", declared),
		}
	}

	if len(data) < thinHeaderMin {
		return &release.MergeError{
			Kind:   release.MergeInvalidBinaryFormat,
			Detail: fmt.Sprintf("%d bytes is too short for an executable header", len(data)),
		}
	}

	if be := binary.BigEndian.Uint32(data[:4]); be == fatMagic {
		return &release.MergeError{
			Kind:   release.MergeInvalidBinaryFormat,
			Detail: "input is already a universal binary",
		}
	}

	if magic := binary.LittleEndian.Uint32(data[:4]); magic != thinMagic64 {
		return &release.MergeError{
			Kind:   release.MergeInvalidBinaryFormat,
			Detail: fmt.Sprintf("unrecognized magic %#08x", magic),
		}
	}

	if cpuType := binary.LittleEndian.Uint32(data[4:8]); cpuType != info.cpuType {
		return &release.MergeError{
			Kind: release.MergeInvalidBinaryFormat,
			Detail: fmt.Sprintf("declared architecture %s but header says cputype %#08x",
				declared, cpuType),
		}
	}

	return nil
}

// alignUp rounds offset up to the next multiple of 2^exponent.
func alignUp(offset uint64, exponent uint32) uint64 {
	mask := uint64(1)<<exponent - 1
	return (offset + mask) &^ mask
}
