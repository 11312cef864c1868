package release

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/oshokin/release-matrix/internal/config"
	"github.com/oshokin/release-matrix/internal/logger"
	"github.com/oshokin/release-matrix/internal/merger"
	"github.com/oshokin/release-matrix/internal/publisher"
	"github.com/oshokin/release-matrix/internal/sandbox"
	"github.com/oshokin/release-matrix/internal/scheduler"
	"github.com/oshokin/release-matrix/internal/toolchain"
)

// Options contains inputs for the release run entry point.
type Options struct {
	// ConfigPath is an optional path to the matrix configuration.
	ConfigPath string
	// Revision is the source revision identifier carried by the trigger.
	Revision string
	// ShouldRun is the trigger's path-filter verdict: false means only
	// non-source files changed and the run is skipped.
	ShouldRun bool
}

var (
	// errReleaseRunning indicates another release run holds the run marker.
	errReleaseRunning = errors.New("a release run is already in progress")
	// errRunFailed indicates at least one target did not publish.
	errRunFailed = errors.New("release run failed")
)

// Run executes one full release: schedule the build matrix, merge universal
// targets, publish artifacts, and report per-target status. The returned
// error is non-nil when any target failed, even though sibling targets may
// have published successfully.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "release-matrix")

	if !opts.ShouldRun {
		logger.Info(ctx, "Trigger filtered out this revision, nothing to do")
		return nil
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	if IsReleaseRunningNow(ctx) {
		return errReleaseRunning
	}

	if err = writeMarker(); err != nil {
		return fmt.Errorf("write run marker: %w", err)
	}

	defer removeMarker()

	svc, cleanup, err := buildService(cfg, opts.Revision)
	if err != nil {
		return err
	}

	defer cleanup()

	report := svc.run(ctx)

	logger.Infof(ctx, "Release run finished:\n%s", report.Summary())

	if !report.OK() {
		return fmt.Errorf("%w: %d of %d targets did not publish",
			errRunFailed, len(report.Failed()), len(report.Entries))
	}

	return nil
}

// buildService wires the real collaborators from the configuration.
// The cleanup removes the artifact staging area.
func buildService(cfg *config.Config, revision string) (*service, func(), error) {
	staging, err := os.MkdirTemp("", "release-matrix-staging-")
	if err != nil {
		return nil, nil, fmt.Errorf("create staging directory: %w", err)
	}

	cleanup := func() {
		_ = os.RemoveAll(staging)
	}

	var provisioner toolchain.Provisioner = toolchain.Noop{}
	if len(cfg.ProvisionCommand) > 0 {
		provisioner = toolchain.NewExecProvisioner(cfg.ProvisionCommand)
	}

	sched := scheduler.New(scheduler.Options{
		Sandboxes:    sandbox.NewLocalFactory(cfg.SourceDir),
		Provisioner:  provisioner,
		BuildCommand: cfg.BuildCommand,
		OutputPath:   cfg.OutputPath,
		CollectDir:   staging,
	})

	svc := newService(
		cfg,
		revision,
		sched,
		merger.New(staging),
		publisher.New(publisher.NewFileStore(cfg.PublishDir), revision),
	)

	return svc, cleanup, nil
}
