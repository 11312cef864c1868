package release

import (
	"errors"
	"fmt"
)

// ProvisionError reports that the toolchain for a triple could not be
// installed or activated. Fatal to the affected job only.
type ProvisionError struct {
	// Triple is the toolchain triple that failed to provision.
	Triple string
	// Err is the underlying cause.
	Err error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision toolchain %s: %v", e.Triple, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// BuildError reports a nonzero compiler exit or a missing expected output.
// Fatal to the affected job only; recorded, not retried.
type BuildError struct {
	// Triple is the toolchain triple the job was building for.
	Triple string
	// ExitCode is the compiler exit code, meaningful when Err is nil.
	ExitCode int
	// Err is the underlying cause when the failure was not a compiler exit.
	Err error
}

func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("build %s: %v", e.Triple, e.Err)
	}

	return fmt.Sprintf("build %s: compiler exited with code %d", e.Triple, e.ExitCode)
}

func (e *BuildError) Unwrap() error { return e.Err }

// MergeErrorKind classifies merge failures.
type MergeErrorKind string

// Merge failure kinds.
const (
	// MergeMissingInput: a constituent is absent or did not succeed.
	MergeMissingInput MergeErrorKind = "missing input"
	// MergeDuplicateArchitecture: two inputs declare the same architecture.
	MergeDuplicateArchitecture MergeErrorKind = "duplicate architecture"
	// MergeInvalidBinaryFormat: an input is not a recognizable
	// single-architecture executable.
	MergeInvalidBinaryFormat MergeErrorKind = "invalid binary format"
)

// MergeError reports why a universal artifact could not be produced.
// Fatal to the affected TargetSpec; never degraded to a partial artifact.
type MergeError struct {
	// Kind classifies the failure.
	Kind MergeErrorKind
	// Detail narrows the failure down to a specific input or byte range.
	Detail string
}

func (e *MergeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("merge: %s", e.Kind)
	}

	return fmt.Sprintf("merge: %s: %s", e.Kind, e.Detail)
}

// AsMergeError unwraps err into a MergeError when possible.
func AsMergeError(err error) (*MergeError, bool) {
	var mergeErr *MergeError
	if errors.As(err, &mergeErr) {
		return mergeErr, true
	}

	return nil, false
}

// PublishErrorKind classifies publish failures.
type PublishErrorKind string

// Publish failure kinds.
const (
	// PublishUnreachable: the blob store could not be reached.
	PublishUnreachable PublishErrorKind = "store unreachable"
	// PublishNameCollision: the store rejected the name. The bundled
	// filesystem store overwrites by label and never raises this, but a
	// collaborator may.
	PublishNameCollision PublishErrorKind = "name collision"
)

// PublishError reports a failed upload. Fatal to that artifact's publication,
// independent of other artifacts.
type PublishError struct {
	// Kind classifies the failure.
	Kind PublishErrorKind
	// Name is the blob store key that failed.
	Name string
	// Err is the underlying cause.
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s: %s: %v", e.Name, e.Kind, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
