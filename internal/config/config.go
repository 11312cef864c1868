package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/release-matrix/internal/domain/release"
)

// Target is one declarative entry of the release matrix.
type Target struct {
	// Platform is the operating system: linux, windows, or macos.
	Platform string `yaml:"platform"`
	// Arch is x64, arm64, or universal.
	Arch string `yaml:"arch"`
	// Triple overrides the default toolchain triple for single-arch targets.
	Triple string `yaml:"triple,omitempty"`
}

// Config holds the release matrix and the command templates used to
// provision toolchains and invoke the compiler. The placeholder "{triple}"
// in command templates and the output path is replaced per build job.
type Config struct {
	// Project is the base name of published artifacts.
	Project string `yaml:"project"`
	// SourceDir is the checked-out source tree seeded into each sandbox.
	SourceDir string `yaml:"source_dir"`
	// PublishDir is the root of the filesystem blob store.
	PublishDir string `yaml:"publish_dir"`
	// ProvisionCommand installs the toolchain for a triple. Optional: when
	// empty, toolchains are assumed to be pre-provisioned on the host.
	ProvisionCommand []string `yaml:"provision_command,omitempty"`
	// BuildCommand compiles the source tree for a triple.
	BuildCommand []string `yaml:"build_command"`
	// OutputPath is the compiler output, relative to the sandbox root.
	OutputPath string `yaml:"output_path"`
	// Targets is the ordered release matrix.
	Targets []Target `yaml:"targets"`
}

const (
	// DefaultConfigFilename is the default filename for the release matrix.
	DefaultConfigFilename = "release-matrix.yaml"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errProjectRequired is returned when the project name is missing.
	errProjectRequired = errors.New("project name must be provided")
	// errBuildCommandRequired is returned when the build command is missing.
	errBuildCommandRequired = errors.New("build command must be provided")
	// errOutputPathRequired is returned when the output path is missing.
	errOutputPathRequired = errors.New("output path must be provided")
	// errNoTargets is returned when the matrix is empty.
	errNoTargets = errors.New("at least one target must be declared")
)

// DefaultPath returns the config location: the file in the current directory
// when present, otherwise the XDG config home location.
func DefaultPath() string {
	if _, err := os.Stat(DefaultConfigFilename); err == nil {
		return DefaultConfigFilename
	}

	path, err := xdg.ConfigFile(filepath.Join("release-matrix", DefaultConfigFilename))
	if err != nil {
		return DefaultConfigFilename
	}

	return path
}

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read matrix config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal matrix config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal matrix config: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write matrix config: %w", err)
	}

	return nil
}

// Validate checks required fields, fills defaults, and rejects matrix entries
// this orchestrator cannot build.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Project == "" {
		return errProjectRequired
	}

	if len(cfg.BuildCommand) == 0 {
		return errBuildCommandRequired
	}

	if cfg.OutputPath == "" {
		return errOutputPathRequired
	}

	if len(cfg.Targets) == 0 {
		return errNoTargets
	}

	if cfg.SourceDir == "" {
		cfg.SourceDir = "."
	}

	if cfg.PublishDir == "" {
		cfg.PublishDir = "dist"
	}

	seen := make(map[string]struct{}, len(cfg.Targets))

	for i := range cfg.Targets {
		if err := validateTarget(&cfg.Targets[i]); err != nil {
			return fmt.Errorf("target %d: %w", i+1, err)
		}

		key := cfg.Targets[i].Platform + "/" + cfg.Targets[i].Arch
		if _, ok := seen[key]; ok {
			return fmt.Errorf("target %d: duplicate matrix entry %s", i+1, key)
		}

		seen[key] = struct{}{}
	}

	return nil
}

// validateTarget checks one matrix entry and fills its default triple.
func validateTarget(target *Target) error {
	platform := release.Platform(strings.ToLower(strings.TrimSpace(target.Platform)))
	if !release.KnownPlatform(platform) {
		return fmt.Errorf("unknown platform %q", target.Platform)
	}

	arch := release.Arch(strings.ToLower(strings.TrimSpace(target.Arch)))
	if !release.KnownArch(arch) {
		return fmt.Errorf("unknown architecture %q", target.Arch)
	}

	target.Platform = string(platform)
	target.Arch = string(arch)

	if arch == release.ArchUniversal {
		if _, ok := release.UniversalConstituents(platform); !ok {
			return fmt.Errorf("platform %q has no universal distribution format", platform)
		}

		// Universal targets derive constituent triples during expansion.
		return nil
	}

	if target.Triple == "" {
		triple, ok := release.DefaultTriple(platform, arch)
		if !ok {
			return fmt.Errorf("no default triple for %s/%s, set one explicitly", platform, arch)
		}

		target.Triple = triple
	}

	return nil
}

// TargetSpecs converts the validated matrix into domain value objects,
// preserving declaration order.
func (c *Config) TargetSpecs() []release.TargetSpec {
	specs := make([]release.TargetSpec, 0, len(c.Targets))
	for _, t := range c.Targets {
		specs = append(specs, release.TargetSpec{
			Platform: release.Platform(t.Platform),
			Arch:     release.Arch(t.Arch),
			Triple:   t.Triple,
		})
	}

	return specs
}
