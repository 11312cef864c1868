package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/oshokin/release-matrix/internal/domain/release"
	"github.com/oshokin/release-matrix/internal/logger"
	"github.com/oshokin/release-matrix/internal/sandbox"
	"github.com/oshokin/release-matrix/internal/toolchain"
)

// triplePlaceholder is replaced with the job's triple in command and path templates.
const triplePlaceholder = "{triple}"

// artifactFileMode keeps collected binaries executable.
const artifactFileMode os.FileMode = 0o755

// Options configures a Scheduler.
type Options struct {
	// Sandboxes creates the isolated environment for each build job.
	Sandboxes sandbox.Factory
	// Provisioner activates the toolchain before each job's compile.
	Provisioner toolchain.Provisioner
	// BuildCommand is the compiler invocation template.
	BuildCommand []string
	// OutputPath is the expected compiler output, relative to the sandbox
	// root, as a template.
	OutputPath string
	// CollectDir is where job artifacts are copied out of their sandboxes.
	CollectDir string
}

// Scheduler expands the release matrix into build jobs and dispatches them
// across isolated sandboxes.
type Scheduler struct {
	opts Options
}

// New returns a scheduler with the given collaborators.
func New(opts Options) *Scheduler {
	return &Scheduler{opts: opts}
}

// Schedule expands every target, runs all build jobs in parallel, and joins
// on completion before returning. Each TargetSpec maps to its results in
// expansion order, every one terminal. A job's failure is recorded in its
// result and never cancels sibling jobs; cancelling ctx abandons outstanding
// jobs, which then report as failed.
func (s *Scheduler) Schedule(ctx context.Context, targets []release.TargetSpec) map[release.TargetSpec][]release.BuildResult {
	aggregated := make(map[release.TargetSpec][]release.BuildResult, len(targets))

	var wg sync.WaitGroup

	for _, spec := range targets {
		jobs := Expand(spec)
		results := make([]release.BuildResult, len(jobs))
		aggregated[spec] = results

		logger.InfoKV(ctx, "Dispatching target",
			"target", spec.Name(),
			"jobs", len(jobs))

		for i, job := range jobs {
			wg.Add(1)

			go func(slot int, job release.BuildJob) {
				defer wg.Done()

				// Each slot is written by exactly one goroutine,
				// so the slice needs no locking.
				results[slot] = s.runJob(ctx, job)
			}(i, job)
		}
	}

	// Join on every constituent of every target before results are
	// handed to the merge and publish stages.
	wg.Wait()

	return aggregated
}

// runJob provisions the toolchain, compiles inside a fresh sandbox, and
// collects the output binary. All failures are folded into the result.
func (s *Scheduler) runJob(ctx context.Context, job release.BuildJob) release.BuildResult {
	failed := func(err error) release.BuildResult {
		logger.WarnKV(ctx, "Build job failed", "job", job.Name(), "error", err)

		return release.BuildResult{Job: job, Status: release.StatusFailed, Err: err}
	}

	if err := s.opts.Provisioner.Provision(ctx, job.Triple); err != nil {
		return failed(err)
	}

	sb, err := s.opts.Sandboxes.New(job.Name())
	if err != nil {
		return failed(&release.BuildError{Triple: job.Triple, Err: err})
	}

	defer func() {
		_ = sb.Destroy()
	}()

	if local, ok := sb.(*sandbox.Local); ok {
		job.WorkDir = local.Root()
	}

	job.OutputPath = expand(s.opts.OutputPath, job.Triple)

	command := expandAll(s.opts.BuildCommand, job.Triple)

	logger.DebugKV(ctx, "Compiling", "job", job.Name(), "command", strings.Join(command, " "))

	result, err := sb.Run(ctx, command[0], command[1:]...)
	if err != nil {
		return failed(&release.BuildError{Triple: job.Triple, Err: err})
	}

	if result.ExitCode != 0 {
		logger.DebugKV(ctx, "Compiler stderr", "job", job.Name(), "stderr", result.Stderr)

		return failed(&release.BuildError{Triple: job.Triple, ExitCode: result.ExitCode})
	}

	contents, err := sb.ReadFile(job.OutputPath)
	if err != nil {
		return failed(&release.BuildError{
			Triple: job.Triple,
			Err:    fmt.Errorf("missing expected output %s: %w", job.OutputPath, err),
		})
	}

	artifactPath, err := s.collect(job, contents)
	if err != nil {
		return failed(&release.BuildError{Triple: job.Triple, Err: err})
	}

	logger.InfoKV(ctx, "Build job succeeded", "job", job.Name(), "artifact", artifactPath)

	return release.BuildResult{
		Job:          job,
		Status:       release.StatusSuccess,
		ArtifactPath: artifactPath,
	}
}

// collect copies the job's binary out of its sandbox so the artifact
// survives sandbox destruction.
func (s *Scheduler) collect(job release.BuildJob, contents []byte) (string, error) {
	if err := os.MkdirAll(s.opts.CollectDir, 0o750); err != nil {
		return "", fmt.Errorf("create collect directory: %w", err)
	}

	path := filepath.Join(s.opts.CollectDir, job.Name())
	if err := os.WriteFile(path, contents, artifactFileMode); err != nil {
		return "", fmt.Errorf("collect artifact: %w", err)
	}

	return path, nil
}

// expand substitutes the triple placeholder in a single template string.
func expand(template, triple string) string {
	return strings.ReplaceAll(template, triplePlaceholder, triple)
}

// expandAll substitutes the triple placeholder in every template argument.
func expandAll(templates []string, triple string) []string {
	out := make([]string, 0, len(templates))
	for _, t := range templates {
		out = append(out, expand(t, triple))
	}

	return out
}
