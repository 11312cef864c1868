package release

import "fmt"

// Platform identifies an operating system a release is built for.
type Platform string

// Supported release platforms.
const (
	PlatformLinux   Platform = "linux"
	PlatformWindows Platform = "windows"
	PlatformMacOS   Platform = "macos"
)

// Arch identifies the CPU architecture of a release artifact.
// ArchUniversal marks a target whose artifact must run on every
// constituent architecture of its platform.
type Arch string

// Supported architectures.
const (
	ArchX64       Arch = "x64"
	ArchARM64     Arch = "arm64"
	ArchUniversal Arch = "universal"
)

// TargetSpec declares one entry of the release matrix. It is an immutable
// value and is used as a map key, so it contains only comparable fields.
type TargetSpec struct {
	// Platform is the operating system this target is built for.
	Platform Platform
	// Arch is the architecture, or ArchUniversal for a merged multi-arch artifact.
	Arch Arch
	// Triple is the toolchain triple for single-arch targets.
	// Universal targets derive constituent triples from DefaultTriple.
	Triple string
}

// Name returns a stable identifier like "macos-universal", used for job
// naming, sandbox naming, and report keys.
func (s TargetSpec) Name() string {
	return fmt.Sprintf("%s-%s", s.Platform, s.Arch)
}

// ArtifactName returns the published filename for this target.
// The revision is omitted when empty. Windows artifacts get the ".exe" suffix.
func (s TargetSpec) ArtifactName(project, revision string) string {
	name := fmt.Sprintf("%s-%s-%s", project, s.Platform, s.Arch)
	if revision != "" {
		name = fmt.Sprintf("%s-%s-%s-%s", project, revision, s.Platform, s.Arch)
	}

	if s.Platform == PlatformWindows {
		name += ".exe"
	}

	return name
}

// KnownPlatform reports whether the platform is one this orchestrator supports.
func KnownPlatform(p Platform) bool {
	switch p {
	case PlatformLinux, PlatformWindows, PlatformMacOS:
		return true
	default:
		return false
	}
}

// KnownArch reports whether the architecture is one this orchestrator supports.
func KnownArch(a Arch) bool {
	switch a {
	case ArchX64, ArchARM64, ArchUniversal:
		return true
	default:
		return false
	}
}

// UniversalConstituents returns the ordered set of architectures a universal
// artifact for the platform is merged from. The second return is false when
// the platform has no universal distribution format.
func UniversalConstituents(p Platform) ([]Arch, bool) {
	// Parameterized per platform rather than hardcoded to two architectures,
	// so additional universal-capable platforms only need a table entry.
	switch p {
	case PlatformMacOS:
		return []Arch{ArchX64, ArchARM64}, true
	default:
		return nil, false
	}
}

// DefaultTriple returns the conventional toolchain triple for a platform and
// architecture pair. The second return is false for unsupported combinations
// (including ArchUniversal, which never maps to a single triple).
func DefaultTriple(p Platform, a Arch) (string, bool) {
	switch p {
	case PlatformLinux:
		switch a {
		case ArchX64:
			return "x86_64-unknown-linux-gnu", true
		case ArchARM64:
			return "aarch64-unknown-linux-gnu", true
		}
	case PlatformWindows:
		switch a {
		case ArchX64:
			return "x86_64-pc-windows-msvc", true
		case ArchARM64:
			return "aarch64-pc-windows-msvc", true
		}
	case PlatformMacOS:
		switch a {
		case ArchX64:
			return "x86_64-apple-darwin", true
		case ArchARM64:
			return "aarch64-apple-darwin", true
		}
	}

	return "", false
}
