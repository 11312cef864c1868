package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/oshokin/release-matrix/internal/domain/release"
)

// triplePlaceholder is replaced with the target triple in command templates.
const triplePlaceholder = "{triple}"

// Provisioner installs or activates the compiler toolchain for a target triple.
type Provisioner interface {
	Provision(ctx context.Context, triple string) error
}

// ExecProvisioner provisions toolchains by running a configured host command,
// e.g. ["rustup", "target", "add", "{triple}"].
type ExecProvisioner struct {
	// command is the template with the triple placeholder.
	command []string
}

// errEmptyCommand is returned when the provision command template is empty.
var errEmptyCommand = errors.New("provision command is empty")

// NewExecProvisioner returns a provisioner running the given command template.
func NewExecProvisioner(command []string) *ExecProvisioner {
	return &ExecProvisioner{command: command}
}

// Provision runs the configured command with the triple substituted in.
// Failures wrap release.ProvisionError so the scheduler can classify them.
func (p *ExecProvisioner) Provision(ctx context.Context, triple string) error {
	if len(p.command) == 0 {
		return &release.ProvisionError{Triple: triple, Err: errEmptyCommand}
	}

	args := make([]string, 0, len(p.command))
	for _, arg := range p.command {
		args = append(args, strings.ReplaceAll(arg, triplePlaceholder, triple))
	}

	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &release.ProvisionError{
			Triple: triple,
			Err:    fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())),
		}
	}

	return nil
}

// Noop is a provisioner for hosts whose toolchains are already installed.
type Noop struct{}

// Provision always succeeds.
func (Noop) Provision(context.Context, string) error {
	return nil
}
