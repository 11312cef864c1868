package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/release-matrix/internal/domain/release"
	"github.com/oshokin/release-matrix/internal/sandbox"
	"github.com/oshokin/release-matrix/internal/toolchain"
)

// fakeSandbox emulates a compile: a successful run materializes the expected
// output file inside the sandbox.
type fakeSandbox struct {
	// exitCode is returned from Run.
	exitCode int
	// runErr makes Run fail before producing an exit code.
	runErr error
	// skipOutput simulates a compiler that exits zero without writing output.
	skipOutput bool
	// files holds the sandbox's visible filesystem.
	files map[string][]byte
	// lastCommand records the most recent Run invocation.
	lastCommand []string
	// destroyed flags sandbox teardown.
	destroyed bool
}

func (s *fakeSandbox) Run(_ context.Context, name string, args ...string) (*sandbox.RunResult, error) {
	s.lastCommand = append([]string{name}, args...)

	if s.runErr != nil {
		return nil, s.runErr
	}

	if s.exitCode == 0 && !s.skipOutput {
		// The fake compiler drops its binary at the templated output path.
		for _, arg := range args {
			if strings.HasPrefix(arg, "out/") {
				s.files[arg] = []byte("binary for " + arg)
			}
		}
	}

	return &sandbox.RunResult{ExitCode: s.exitCode, Stderr: "synthetic stderr"}, nil
}

func (s *fakeSandbox) ReadFile(path string) ([]byte, error) {
	contents, ok := s.files[path]
	if !ok {
		return nil, errors.New("no such file: " + path)
	}

	return contents, nil
}

func (s *fakeSandbox) Destroy() error {
	s.destroyed = true
	return nil
}

// fakeFactory creates fakeSandboxes, failing jobs whose name contains one of
// the configured markers.
type fakeFactory struct {
	// failExit marks job names whose compile exits nonzero.
	failExit string
	// mu guards created.
	mu sync.Mutex
	// created tracks every sandbox handed out, keyed by job name.
	created map[string]*fakeSandbox
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{created: map[string]*fakeSandbox{}}
}

func (f *fakeFactory) New(name string) (sandbox.Sandbox, error) {
	sb := &fakeSandbox{files: map[string][]byte{}}
	if f.failExit != "" && strings.Contains(name, f.failExit) {
		sb.exitCode = 101
	}

	f.mu.Lock()
	f.created[name] = sb
	f.mu.Unlock()

	return sb, nil
}

// testScheduler wires a scheduler with fakes and a temp collect dir.
func testScheduler(t *testing.T, factory *fakeFactory) *Scheduler {
	t.Helper()

	return New(Options{
		Sandboxes:    factory,
		Provisioner:  toolchain.Noop{},
		BuildCommand: []string{"compiler", "--target", "{triple}", "-o", "out/{triple}/app"},
		OutputPath:   "out/{triple}/app",
		CollectDir:   t.TempDir(),
	})
}

// TestExpand covers single-arch and universal fan-out.
func TestExpand(t *testing.T) {
	t.Parallel()

	single := release.TargetSpec{
		Platform: release.PlatformLinux,
		Arch:     release.ArchX64,
		Triple:   "x86_64-unknown-linux-gnu",
	}

	jobs := Expand(single)
	require.Len(t, jobs, 1)
	require.Equal(t, single.Triple, jobs[0].Triple)
	require.Equal(t, release.ArchX64, jobs[0].Arch)

	universal := release.TargetSpec{Platform: release.PlatformMacOS, Arch: release.ArchUniversal}

	jobs = Expand(universal)
	require.Len(t, jobs, 2)
	require.Equal(t, release.ArchX64, jobs[0].Arch)
	require.Equal(t, "x86_64-apple-darwin", jobs[0].Triple)
	require.Equal(t, release.ArchARM64, jobs[1].Arch)
	require.Equal(t, "aarch64-apple-darwin", jobs[1].Triple)
}

// TestSchedule_AllSucceed verifies 1:1 mapping for single-arch targets, the
// fan-out count for universal targets, and that every result is terminal.
func TestSchedule_AllSucceed(t *testing.T) {
	t.Parallel()

	factory := newFakeFactory()
	sched := testScheduler(t, factory)

	targets := []release.TargetSpec{
		{Platform: release.PlatformLinux, Arch: release.ArchX64, Triple: "x86_64-unknown-linux-gnu"},
		{Platform: release.PlatformWindows, Arch: release.ArchX64, Triple: "x86_64-pc-windows-msvc"},
		{Platform: release.PlatformMacOS, Arch: release.ArchUniversal},
	}

	results := sched.Schedule(context.Background(), targets)
	require.Len(t, results, 3)

	require.Len(t, results[targets[0]], 1)
	require.Len(t, results[targets[1]], 1)
	require.Len(t, results[targets[2]], 2)

	for _, specResults := range results {
		for _, r := range specResults {
			require.True(t, r.Succeeded())
			require.NotEmpty(t, r.ArtifactPath)
		}
	}

	// The compile command had its triple substituted in.
	sb := factory.created["macos-universal-arm64"]
	require.NotNil(t, sb)
	require.Contains(t, sb.lastCommand, "aarch64-apple-darwin")

	// Every sandbox was torn down after its job.
	for name, created := range factory.created {
		require.True(t, created.destroyed, "sandbox %s not destroyed", name)
	}

	// One sandbox per job: no sharing between jobs.
	require.Len(t, factory.created, 4)
}

// TestSchedule_FailureIsolation forces one constituent to fail and verifies
// the sibling job and the other targets are unaffected.
func TestSchedule_FailureIsolation(t *testing.T) {
	t.Parallel()

	factory := newFakeFactory()
	factory.failExit = "arm64"
	sched := testScheduler(t, factory)

	linux := release.TargetSpec{
		Platform: release.PlatformLinux,
		Arch:     release.ArchX64,
		Triple:   "x86_64-unknown-linux-gnu",
	}
	macos := release.TargetSpec{Platform: release.PlatformMacOS, Arch: release.ArchUniversal}

	results := sched.Schedule(context.Background(), []release.TargetSpec{linux, macos})

	// The unrelated target still succeeded.
	require.True(t, release.AllSucceeded(results[linux]))

	// Within the universal target, x64 succeeded and arm64 failed.
	macosResults := results[macos]
	require.Len(t, macosResults, 2)
	require.True(t, macosResults[0].Succeeded())
	require.False(t, macosResults[1].Succeeded())

	var buildErr *release.BuildError
	require.True(t, errors.As(macosResults[1].Err, &buildErr))
	require.Equal(t, 101, buildErr.ExitCode)
}

// TestSchedule_MissingOutputIsBuildError covers a compiler that exits zero
// without producing the expected file.
func TestSchedule_MissingOutputIsBuildError(t *testing.T) {
	t.Parallel()

	factory := newFakeFactory()
	sched := testScheduler(t, factory)

	spec := release.TargetSpec{
		Platform: release.PlatformLinux,
		Arch:     release.ArchARM64,
		Triple:   "aarch64-unknown-linux-gnu",
	}

	// The compile "succeeds" but writes nothing.
	sched.opts.Sandboxes = factoryFunc(func(string) (sandbox.Sandbox, error) {
		return &fakeSandbox{files: map[string][]byte{}, skipOutput: true}, nil
	})

	results := sched.Schedule(context.Background(), []release.TargetSpec{spec})
	result := results[spec][0]

	require.False(t, result.Succeeded())

	var buildErr *release.BuildError
	require.True(t, errors.As(result.Err, &buildErr))
	require.Contains(t, buildErr.Error(), "missing expected output")
}

// TestSchedule_ProvisionFailureStaysLocal verifies a provisioning failure is
// recorded on the job without touching siblings.
func TestSchedule_ProvisionFailureStaysLocal(t *testing.T) {
	t.Parallel()

	factory := newFakeFactory()
	sched := testScheduler(t, factory)
	sched.opts.Provisioner = provisionerFunc(func(_ context.Context, triple string) error {
		if triple == "aarch64-apple-darwin" {
			return &release.ProvisionError{Triple: triple, Err: errors.New("mirror offline")}
		}

		return nil
	})

	macos := release.TargetSpec{Platform: release.PlatformMacOS, Arch: release.ArchUniversal}
	results := sched.Schedule(context.Background(), []release.TargetSpec{macos})

	macosResults := results[macos]
	require.True(t, macosResults[0].Succeeded())
	require.False(t, macosResults[1].Succeeded())

	var provisionErr *release.ProvisionError
	require.True(t, errors.As(macosResults[1].Err, &provisionErr))
}

// factoryFunc adapts a function to sandbox.Factory.
type factoryFunc func(name string) (sandbox.Sandbox, error)

func (f factoryFunc) New(name string) (sandbox.Sandbox, error) {
	return f(name)
}

// provisionerFunc adapts a function to toolchain.Provisioner.
type provisionerFunc func(ctx context.Context, triple string) error

func (f provisionerFunc) Provision(ctx context.Context, triple string) error {
	return f(ctx, triple)
}
