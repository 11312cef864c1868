package release

import (
	"context"
	"errors"

	"github.com/oshokin/release-matrix/internal/config"
	domain "github.com/oshokin/release-matrix/internal/domain/release"
	"github.com/oshokin/release-matrix/internal/logger"
)

// errNoBuildResults is returned when a target expanded into no build jobs.
var errNoBuildResults = errors.New("no build results for target")

// jobScheduler dispatches the expanded build matrix. Results are complete:
// every constituent of every target has a terminal BuildResult.
type jobScheduler interface {
	Schedule(ctx context.Context, targets []domain.TargetSpec) map[domain.TargetSpec][]domain.BuildResult
}

// binaryMerger produces a universal artifact from constituent binaries.
type binaryMerger interface {
	Merge(ctx context.Context, req domain.MergeRequest) (string, error)
}

// artifactPublisher uploads final artifacts and the release manifest.
type artifactPublisher interface {
	Publish(ctx context.Context, artifactPath, name, label string) (*domain.PublishedArtifact, error)
	WriteManifest(ctx context.Context) error
}

// service drives one release run: schedule, merge, publish, report.
type service struct {
	// cfg is the validated matrix configuration.
	cfg *config.Config
	// revision is the source revision identifier from the trigger.
	revision string
	// scheduler, merger, and publisher are the pipeline stages.
	scheduler jobScheduler
	merger    binaryMerger
	publisher artifactPublisher
}

// newService wires the pipeline stages together.
func newService(cfg *config.Config, revision string, scheduler jobScheduler, merger binaryMerger, publisher artifactPublisher) *service {
	return &service{
		cfg:       cfg,
		revision:  revision,
		scheduler: scheduler,
		merger:    merger,
		publisher: publisher,
	}
}

// run executes the pipeline for every declared target and returns the full
// report. Failures are isolated per target: siblings of a failed target are
// still merged and published.
func (s *service) run(ctx context.Context) *Report {
	specs := s.cfg.TargetSpecs()

	logger.InfoKV(ctx, "Starting release run",
		"project", s.cfg.Project,
		"revision", s.revision,
		"targets", len(specs))

	results := s.scheduler.Schedule(ctx, specs)

	report := &Report{Entries: make([]Entry, 0, len(specs))}

	for _, spec := range specs {
		report.Entries = append(report.Entries, s.finishTarget(ctx, spec, results[spec]))
	}

	if anyPublished(report) {
		if err := s.publisher.WriteManifest(ctx); err != nil {
			logger.ErrorKV(ctx, "Failed to write release manifest", "error", err)
		}
	}

	return report
}

// finishTarget takes one target's terminal build results through the merge
// and publish stages.
func (s *service) finishTarget(ctx context.Context, spec domain.TargetSpec, results []domain.BuildResult) Entry {
	artifactName := spec.ArtifactName(s.cfg.Project, s.revision)

	if len(results) == 0 {
		return Entry{Target: spec, Status: StatusBuildFailed, Err: errNoBuildResults}
	}

	var artifactPath string

	if spec.Arch == domain.ArchUniversal {
		// The merge is attempted if and only if every constituent
		// succeeded; a partial universal artifact is never produced.
		if !domain.AllSucceeded(results) {
			return Entry{Target: spec, Status: StatusBuildFailed, Err: firstFailure(results)}
		}

		path, err := s.merger.Merge(ctx, domain.MergeRequest{
			Platform:   spec.Platform,
			Inputs:     results,
			OutputName: artifactName,
		})
		if err != nil {
			return Entry{Target: spec, Status: StatusMergeFailed, Err: err}
		}

		artifactPath = path
	} else {
		result := results[0]
		if !result.Succeeded() {
			return Entry{Target: spec, Status: StatusBuildFailed, Err: result.Err}
		}

		artifactPath = result.ArtifactPath
	}

	artifact, err := s.publisher.Publish(ctx, artifactPath, artifactName, spec.Name())
	if err != nil {
		return Entry{Target: spec, Status: StatusPublishFailed, Err: err}
	}

	return Entry{Target: spec, Status: StatusPublished, Artifact: artifact}
}

// firstFailure returns the first failed result's error.
func firstFailure(results []domain.BuildResult) error {
	for _, r := range results {
		if !r.Succeeded() {
			return r.Err
		}
	}

	return nil
}

// anyPublished reports whether at least one target published.
func anyPublished(report *Report) bool {
	for _, e := range report.Entries {
		if e.Status == StatusPublished {
			return true
		}
	}

	return false
}
