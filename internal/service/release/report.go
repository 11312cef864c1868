package release

import (
	"fmt"
	"strings"

	domain "github.com/oshokin/release-matrix/internal/domain/release"
)

// EntryStatus is the terminal outcome of one matrix target.
type EntryStatus string

// Target outcomes, from the failure taxonomy: a target either publishes or
// reports which stage killed it.
const (
	StatusPublished     EntryStatus = "published"
	StatusBuildFailed   EntryStatus = "build failed"
	StatusMergeFailed   EntryStatus = "merge failed"
	StatusPublishFailed EntryStatus = "publish failed"
)

// Entry is the per-target line of the run report.
type Entry struct {
	// Target is the matrix entry this outcome belongs to.
	Target domain.TargetSpec
	// Status is the terminal outcome.
	Status EntryStatus
	// Artifact is set when Status is StatusPublished.
	Artifact *domain.PublishedArtifact
	// Err explains the failure for non-published entries.
	Err error
}

// Report is the per-TargetSpec status of a whole run, in matrix order.
type Report struct {
	// Entries holds one outcome per declared target.
	Entries []Entry
}

// OK reports whether every target published successfully.
func (r *Report) OK() bool {
	for _, e := range r.Entries {
		if e.Status != StatusPublished {
			return false
		}
	}

	return true
}

// Failed returns the entries that did not publish.
func (r *Report) Failed() []Entry {
	var failed []Entry

	for _, e := range r.Entries {
		if e.Status != StatusPublished {
			failed = append(failed, e)
		}
	}

	return failed
}

// Summary renders a human-readable per-target status listing.
func (r *Report) Summary() string {
	var builder strings.Builder

	for i, e := range r.Entries {
		if i > 0 {
			builder.WriteString("\n")
		}

		builder.WriteString(e.Target.Name())
		builder.WriteString(": ")
		builder.WriteString(string(e.Status))

		if e.Err != nil {
			builder.WriteString(fmt.Sprintf(" (%v)", e.Err))
		}
	}

	return builder.String()
}
