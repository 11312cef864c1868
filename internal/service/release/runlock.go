package release

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	ps "github.com/mitchellh/go-ps"

	"github.com/oshokin/release-matrix/internal/logger"
)

const (
	// MarkerFilename marks that a release run is in progress, to avoid two
	// runs publishing over each other.
	MarkerFilename = "release-matrix-run-marker.bin"

	// markerLifetime is the period after which a run marker is considered
	// stale. Builds are slow, so it is generous.
	markerLifetime = 30 * time.Minute

	// baseExecutable is the orchestrator's own binary name, used to find
	// abandoned runs behind stale markers.
	baseExecutable = "release-matrix"
)

// IsReleaseRunningNow checks presence of a run marker and attempts recovery
// if it looks stale.
func IsReleaseRunningNow(ctx context.Context) bool {
	logger.Info(ctx, "Checking for the presence of a run marker")

	fileInfo, err := os.Stat(MarkerFilename)
	if err == nil {
		if time.Since(fileInfo.ModTime()) <= markerLifetime {
			return true
		}

		logger.Info(ctx, "The run marker is too old, attempting cleanup")

		if err = terminateProcessByName(orchestratorExecutable()); err != nil {
			return true
		}

		if err = os.Remove(MarkerFilename); err != nil {
			return true
		}

		return false
	}

	if errors.Is(err, os.ErrNotExist) {
		logger.Info(ctx, "Run marker not found, continuing")
		return false
	}

	logger.Infof(ctx, "Unable to read run marker: %v", err)

	return false
}

// writeMarker creates the run marker with this process's PID.
func writeMarker() error {
	return os.WriteFile(MarkerFilename, fmt.Appendf(nil, "%d\n", os.Getpid()), 0o600)
}

// removeMarker deletes the run marker, tolerating its absence.
func removeMarker() {
	if err := os.Remove(MarkerFilename); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warnf(context.Background(), "Unable to remove run marker: %v", err)
	}
}

// terminateProcessByName tries to kill other processes with the provided
// executable name.
func terminateProcessByName(processName string) error {
	processList, err := ps.Processes()
	if err != nil {
		return err
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() != processName {
			continue
		}

		var runningProcess *os.Process

		runningProcess, err = os.FindProcess(process.Pid())
		if err != nil {
			return err
		}

		if err = runningProcess.Kill(); err != nil {
			return err
		}
	}

	return nil
}

// orchestratorExecutable returns this binary's name with the platform suffix.
func orchestratorExecutable() string {
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") {
		return baseExecutable + ".exe"
	}

	return baseExecutable
}
