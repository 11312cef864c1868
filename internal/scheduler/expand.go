package scheduler

import (
	"github.com/oshokin/release-matrix/internal/domain/release"
)

// Expand turns one matrix entry into its build jobs: a single-architecture
// spec yields exactly one job, a universal spec yields one job per
// constituent architecture of its platform, in constituent-table order.
func Expand(spec release.TargetSpec) []release.BuildJob {
	if spec.Arch != release.ArchUniversal {
		return []release.BuildJob{{
			Spec:   spec,
			Arch:   spec.Arch,
			Triple: spec.Triple,
		}}
	}

	constituents, ok := release.UniversalConstituents(spec.Platform)
	if !ok {
		// Config validation rejects these; an empty expansion keeps the
		// invariant that the merge is never attempted.
		return nil
	}

	jobs := make([]release.BuildJob, 0, len(constituents))

	for _, arch := range constituents {
		triple, _ := release.DefaultTriple(spec.Platform, arch)
		jobs = append(jobs, release.BuildJob{
			Spec:   spec,
			Arch:   arch,
			Triple: triple,
		})
	}

	return jobs
}
