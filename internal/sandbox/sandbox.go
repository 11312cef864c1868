package sandbox

import "context"

// RunResult captures the outcome of one command execution inside a sandbox.
type RunResult struct {
	// ExitCode is the command's exit code.
	ExitCode int
	// Stderr holds the trailing portion of standard error, for diagnostics.
	Stderr string
}

// Sandbox is an isolated execution environment for a single build job.
// Implementations guarantee that environment variables, working directories,
// and intermediate compiler state never leak between sandboxes.
type Sandbox interface {
	// Run executes a command inside the sandbox and blocks until it exits.
	// A non-nil error means the command could not be started or was
	// interrupted; a nonzero exit code is reported via RunResult.
	Run(ctx context.Context, name string, args ...string) (*RunResult, error)

	// ReadFile returns the contents of a file, path relative to the
	// sandbox root.
	ReadFile(path string) ([]byte, error)

	// Destroy releases the sandbox and everything in it.
	Destroy() error
}

// Factory creates sandboxes. Backends can be local processes, containers,
// or remote workers; the scheduler only sees this interface.
type Factory interface {
	// New creates a sandbox seeded with the source tree.
	// The name must be unique within a run.
	New(name string) (Sandbox, error)
}
