package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/release-matrix/internal/logger"
	"github.com/oshokin/release-matrix/internal/service/release"
	"github.com/oshokin/release-matrix/internal/version"
)

var (
	// configPath to the release matrix YAML file.
	configPath string

	// logLevel is the minimum level for run logs.
	logLevel string

	// skipRun marks a trigger whose path filter found no source changes.
	skipRun bool

	// rootCmd represents the base command for orchestrating a release.
	rootCmd = &cobra.Command{
		Use:   "release-matrix [revision]",
		Short: "Build the release matrix and publish artifacts",
		Long: "Compile the source tree for every target in the release matrix, " +
			"merge universal targets into multi-architecture binaries, and publish " +
			"the results to the artifact store.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling: a terminated run abandons
			// outstanding jobs without partial merges or publishes.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			var revision string
			if len(args) > 0 {
				revision = args[0]
			}

			options := &release.Options{
				ConfigPath: configPath,
				Revision:   revision,
				ShouldRun:  !skipRun,
			}

			return release.Run(ctx, options)
		},
	}
)

// Execute runs the release-matrix CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the release matrix file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "log level: debug, info, warn, error")
	rootCmd.Flags().BoolVar(&skipRun, "skip", false, "skip the run (path filter found only non-source changes)")
}
