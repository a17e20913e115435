package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalBlobStore implements BlobStore on the local filesystem. Keys are
// paths relative to the root directory; an absolute key is used as is.
type LocalBlobStore struct {
	rootPath string
}

// NewLocalBlobStore creates a new LocalBlobStore with the given root directory.
func NewLocalBlobStore(rootPath string) *LocalBlobStore {
	return &LocalBlobStore{rootPath: rootPath}
}

func (s *LocalBlobStore) path(key string) string {
	if filepath.IsAbs(key) {
		return key
	}
	return filepath.Join(s.rootPath, key)
}

// Put writes the content to a temp file next to the target and renames it
// into place, so an interrupted save leaves the previous document intact.
func (s *LocalBlobStore) Put(ctx context.Context, key string, reader io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath := s.path(key)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempName := tempFile.Name()
	defer tempFile.Close()

	if _, err := io.Copy(tempFile, reader); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempName, fullPath); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("failed to rename temp file to %s: %w", fullPath, err)
	}

	return nil
}

// Get opens the blob for reading.
func (s *LocalBlobStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath := s.path(key)
	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open blob %s: %w", key, err)
	}
	return file, nil
}
