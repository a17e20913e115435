package blob

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalBlobStore(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalBlobStore(tmpDir)
	ctx := context.Background()

	// 1. Put creates intermediate directories
	key := "maps/campus.json"
	content := `{"nodes":{}}`
	if err := store.Put(ctx, key, strings.NewReader(content)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	expectedPath := filepath.Join(tmpDir, key)
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Errorf("File was not created at expected path: %s", expectedPath)
	}

	// 2. Get returns what was written
	reader, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	data, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		t.Fatalf("Failed to read from reader: %v", err)
	}
	if string(data) != content {
		t.Errorf("Get content mismatch. Got %s, want %s", string(data), content)
	}

	// 3. Put overwrites and leaves no temp files behind
	if err := store.Put(ctx, key, strings.NewReader("{}")); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(expectedPath))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the blob in its directory, found %d entries", len(entries))
	}
}

func TestLocalBlobStore_GetMissing(t *testing.T) {
	store := NewLocalBlobStore(t.TempDir())

	_, err := store.Get(context.Background(), "missing.json")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocalBlobStore_AbsoluteKey(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalBlobStore("/nonexistent-root")
	key := filepath.Join(dir, "graph.json")

	if err := store.Put(context.Background(), key, strings.NewReader("x")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := os.Stat(key); err != nil {
		t.Errorf("absolute key should be written in place: %v", err)
	}
}

func TestLocalBlobStore_CancelledContext(t *testing.T) {
	store := NewLocalBlobStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Put(ctx, "a.json", strings.NewReader("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
