package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
)

// stderrTailLimit caps the amount of standard error kept for diagnostics.
const stderrTailLimit = 4 * 1024

// errPathEscapesSandbox is returned when a read path points outside the root.
var errPathEscapesSandbox = errors.New("path escapes sandbox root")

// LocalFactory creates process sandboxes backed by per-job temporary
// directories. Each sandbox gets its own copy of the seed tree and a scrubbed
// environment, so compiler state from one job cannot leak into another.
type LocalFactory struct {
	// seedDir is the source tree copied into every new sandbox.
	seedDir string
	// baseDir is where sandbox roots are created. Empty means the
	// system temporary directory.
	baseDir string
}

// NewLocalFactory returns a factory seeding sandboxes from the given source tree.
func NewLocalFactory(seedDir string) *LocalFactory {
	return &LocalFactory{seedDir: seedDir}
}

// New creates a sandbox and copies the seed tree into it.
func (f *LocalFactory) New(name string) (Sandbox, error) {
	root, err := os.MkdirTemp(f.baseDir, "sandbox-"+name+"-")
	if err != nil {
		return nil, fmt.Errorf("create sandbox root: %w", err)
	}

	if f.seedDir != "" {
		if err = copyTree(f.seedDir, root); err != nil {
			_ = os.RemoveAll(root)
			return nil, fmt.Errorf("seed sandbox: %w", err)
		}
	}

	return &Local{root: root}, nil
}

// Local is a sandbox backed by a temporary directory on the host.
// Commands run with the sandbox root as both working directory and HOME.
type Local struct {
	// root is the sandbox's private directory tree.
	root string
}

// Root returns the sandbox's private directory.
func (s *Local) Root() string {
	return s.root
}

// Run executes a command with the sandbox root as working directory and a
// minimal environment: only PATH is inherited from the host.
func (s *Local) Run(ctx context.Context, name string, args ...string) (*RunResult, error) {
	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = s.root
	cmd.Env = []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + s.root,
		"TMPDIR=" + s.root,
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &RunResult{
				ExitCode: exitErr.ExitCode(),
				Stderr:   tail(stderr.Bytes()),
			}, nil
		}

		return nil, fmt.Errorf("run %s: %w", name, err)
	}

	return &RunResult{ExitCode: 0, Stderr: tail(stderr.Bytes())}, nil
}

// ReadFile returns a file relative to the sandbox root, rejecting paths that
// would escape it.
func (s *Local) ReadFile(path string) ([]byte, error) {
	if !filepath.IsLocal(path) {
		return nil, fmt.Errorf("%s: %w", path, errPathEscapesSandbox)
	}

	return os.ReadFile(filepath.Join(s.root, path))
}

// Destroy removes the sandbox directory and everything in it.
func (s *Local) Destroy() error {
	return os.RemoveAll(s.root)
}

// copyTree copies a directory tree, preserving file modes. Symlinks are
// skipped: build inputs are expected to be plain files.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		target := filepath.Join(dst, rel)

		info, err := entry.Info()
		if err != nil {
			return err
		}

		switch {
		case entry.IsDir():
			if rel == "." {
				return nil
			}

			return os.MkdirAll(target, info.Mode().Perm())
		case entry.Type()&fs.ModeSymlink != 0:
			return nil
		default:
			return copyFile(path, target, info.Mode().Perm())
		}
	})
}

// copyFile copies one regular file with the given permissions.
func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close()
	}()

	out, err := os.OpenFile(filepath.Clean(dst), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}

// tail returns the last portion of the buffer as a string.
func tail(b []byte) string {
	if len(b) > stderrTailLimit {
		b = b[len(b)-stderrTailLimit:]
	}

	return string(b)
}
