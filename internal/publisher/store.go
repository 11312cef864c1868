package publisher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// BlobStore is the external artifact storage collaborator, keyed by name.
// Re-uploading under the same name overwrites, by collaborator contract.
type BlobStore interface {
	Upload(ctx context.Context, name string, contents []byte) error
}

// FileStore is a BlobStore backed by a local directory, useful for releases
// staged to a folder that is synced elsewhere.
type FileStore struct {
	// root is the directory holding uploaded blobs.
	root string
}

// NewFileStore returns a store writing blobs under root.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Upload writes the blob, overwriting any previous content under the name.
func (s *FileStore) Upload(_ context.Context, name string, contents []byte) error {
	if err := os.MkdirAll(s.root, 0o750); err != nil {
		return fmt.Errorf("create store root: %w", err)
	}

	path := filepath.Join(s.root, filepath.Base(name))
	if err := os.WriteFile(path, contents, DefaultFileMode); err != nil {
		return fmt.Errorf("write blob %s: %w", name, err)
	}

	return nil
}
