package release

import "fmt"

// BuildJob compiles the source tree for one (platform, architecture) pair.
// Jobs are created by the scheduler when expanding a TargetSpec and are owned
// exclusively by it; they are never shared between goroutines.
type BuildJob struct {
	// Spec is the matrix entry this job was expanded from.
	Spec TargetSpec
	// Arch is the concrete architecture this job builds.
	// Equal to Spec.Arch for single-arch specs, a constituent otherwise.
	Arch Arch
	// Triple is the toolchain triple passed to the compiler.
	Triple string
	// WorkDir is the isolated working directory, filled in at dispatch time.
	WorkDir string
	// OutputPath is the expected compiler output inside WorkDir, relative.
	OutputPath string
}

// Name returns a stable identifier for the job, unique within a run.
func (j BuildJob) Name() string {
	return fmt.Sprintf("%s-%s-%s", j.Spec.Platform, j.Spec.Arch, j.Arch)
}

// Status is the terminal state of a build job.
type Status string

// Build job terminal states.
const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// BuildResult is the immutable outcome of one BuildJob.
type BuildResult struct {
	// Job is the build job this result belongs to.
	Job BuildJob
	// Status is success or failed.
	Status Status
	// ArtifactPath is the collected binary on the local filesystem, set on success.
	ArtifactPath string
	// Err describes the failure, set when Status is StatusFailed.
	Err error
}

// Succeeded reports whether the job produced its artifact.
func (r BuildResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// AllSucceeded reports whether every result in the slice is successful.
// An empty slice is not a success: a universal target with no constituent
// results has nothing to merge.
func AllSucceeded(results []BuildResult) bool {
	if len(results) == 0 {
		return false
	}

	for _, r := range results {
		if !r.Succeeded() {
			return false
		}
	}

	return true
}

// MergeRequest asks the merger to combine single-architecture binaries,
// built from the same source revision, into one universal artifact.
// It is only constructed when every input succeeded.
type MergeRequest struct {
	// Platform is the universal-capable platform the inputs belong to.
	Platform Platform
	// Inputs are the constituent build results, one per architecture,
	// in matrix expansion order.
	Inputs []BuildResult
	// OutputName is the filename of the merged artifact.
	OutputName string
}

// PublishedArtifact is the terminal entity handed to the blob store.
type PublishedArtifact struct {
	// Name is the blob store key.
	Name string
	// Path is the local file that was uploaded.
	Path string
	// PlatformLabel is the human-readable label, e.g. "macos-universal".
	PlatformLabel string
}
