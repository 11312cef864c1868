package publisher

import (
	"context"
	"crypto"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/release-matrix/internal/domain/release"
	"github.com/oshokin/release-matrix/internal/logger"
	"github.com/oshokin/release-matrix/internal/version"

	// Ensure SHA512 is available for checksum calculation.
	_ "crypto/sha512"
)

const (
	// ManifestName is the blob store key of the release manifest.
	ManifestName = "release-manifest.yaml"

	// DefaultFileMode keeps published binaries executable.
	DefaultFileMode os.FileMode = 0o755

	// DefaultChecksumFunction is used to hash published artifacts.
	DefaultChecksumFunction crypto.Hash = crypto.SHA512
)

// Manifest describes a published release: every artifact name with its
// base64-encoded checksum, keyed to the source revision.
type Manifest struct {
	// VersionNumber is the orchestrator version that produced the release.
	VersionNumber string `yaml:"version"`
	// Revision is the source revision the artifacts were built from.
	Revision string `yaml:"revision,omitempty"`
	// Files maps artifact names to their base64-encoded checksums.
	Files map[string]string `yaml:"files"`
}

// Publisher uploads release artifacts to the blob store and accumulates the
// release manifest.
type Publisher struct {
	// store is the external blob storage collaborator.
	store BlobStore
	// manifest accumulates published artifact checksums.
	manifest *Manifest
	// mu protects the manifest map; artifacts may publish concurrently.
	mu sync.Mutex
}

// New returns a publisher uploading to the provided store.
func New(store BlobStore, revision string) *Publisher {
	return &Publisher{
		store: store,
		manifest: &Manifest{
			VersionNumber: version.Short(),
			Revision:      revision,
			Files:         make(map[string]string),
		},
	}
}

// Publish uploads one artifact under its name with the human-readable
// platform label, records its checksum in the manifest, and returns the
// terminal PublishedArtifact. Failures are PublishError and leave sibling
// artifacts unaffected.
func (p *Publisher) Publish(ctx context.Context, artifactPath, name, label string) (*release.PublishedArtifact, error) {
	contents, err := os.ReadFile(filepath.Clean(artifactPath))
	if err != nil {
		return nil, &release.PublishError{
			Kind: release.PublishUnreachable,
			Name: name,
			Err:  fmt.Errorf("read artifact: %w", err),
		}
	}

	if err = p.store.Upload(ctx, name, contents); err != nil {
		return nil, &release.PublishError{
			Kind: release.PublishUnreachable,
			Name: name,
			Err:  err,
		}
	}

	checksum, err := fileChecksum(contents)
	if err != nil {
		return nil, &release.PublishError{
			Kind: release.PublishUnreachable,
			Name: name,
			Err:  err,
		}
	}

	p.mu.Lock()
	p.manifest.Files[name] = checksum
	p.mu.Unlock()

	logger.InfoKV(ctx, "Published artifact",
		"name", name,
		"label", label,
		"size", len(contents))

	return &release.PublishedArtifact{
		Name:          name,
		Path:          artifactPath,
		PlatformLabel: label,
	}, nil
}

// WriteManifest uploads the accumulated release manifest. Call it once after
// all artifacts have been published.
func (p *Publisher) WriteManifest(ctx context.Context) error {
	p.mu.Lock()
	contents, err := yaml.Marshal(p.manifest)
	p.mu.Unlock()

	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if err = p.store.Upload(ctx, ManifestName, contents); err != nil {
		return &release.PublishError{
			Kind: release.PublishUnreachable,
			Name: ManifestName,
			Err:  err,
		}
	}

	return nil
}

// fileChecksum returns the base64-encoded checksum of the contents.
func fileChecksum(contents []byte) (string, error) {
	if !DefaultChecksumFunction.Available() {
		return "", fmt.Errorf("checksum function %v unavailable", DefaultChecksumFunction)
	}

	hasher := DefaultChecksumFunction.New()
	if _, err := hasher.Write(contents); err != nil {
		return "", fmt.Errorf("calculate checksum: %w", err)
	}

	return base64.StdEncoding.EncodeToString(hasher.Sum(nil)), nil
}
