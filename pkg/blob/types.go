package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Get when no blob exists under the key.
var ErrNotFound = errors.New("blob not found")

// BlobStore holds whole documents addressed by key.
type BlobStore interface {
	// Put replaces the content stored under key. Readers never observe a
	// partially written blob.
	Put(ctx context.Context, key string, reader io.Reader) error

	// Get opens the content stored under key. It returns an error wrapping
	// ErrNotFound if the key has never been written.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}
