package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewSQLiteStore(t *testing.T) {
	// Create a temp directory for the test db
	tmpDir, err := os.MkdirTemp("", "mapgraph-store-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "graph.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file was not created at %s", dbPath)
	}

	// Verify the three tables through sqlite_master
	for _, want := range []string{"nodes", "edges", "special_places"} {
		var tableName string
		err = store.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", want).Scan(&tableName)
		if err != nil {
			t.Fatalf("failed to query sqlite_master for %s table: %v", want, err)
		}
		if tableName != want {
			t.Errorf("expected table %q to exist, but it was not found", want)
		}
	}

	// Verify the edges foreign keys point at nodes(name)
	rows, err := store.db.Query("PRAGMA foreign_key_list('edges')")
	if err != nil {
		t.Fatalf("failed to query foreign_key_list: %v", err)
	}
	defer rows.Close()

	fromCols := map[string]bool{}
	for rows.Next() {
		var id, seq int
		var table, from, to, onUpdate, onDelete, match string
		if err := rows.Scan(&id, &seq, &table, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			t.Fatalf("scanning foreign key row failed: %v", err)
		}
		if table != "nodes" || to != "name" {
			t.Errorf("unexpected foreign key %s -> %s(%s)", from, table, to)
		}
		fromCols[from] = true
	}
	if !fromCols["node_from"] || !fromCols["node_to"] {
		t.Errorf("expected foreign keys on node_from and node_to, got %v", fromCols)
	}

	// Verify foreign keys are enforced on this connection
	var fk int
	if err := store.db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("failed to read foreign_keys pragma: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}
}

func TestNewSQLiteStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "graph.db")

	first, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Migrations are idempotent.
	second, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopening failed: %v", err)
	}
	second.Close()
}
