package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/rmax-ai/mapgraph/pkg/geometry"
	"github.com/rmax-ai/mapgraph/pkg/graph"
)

// SQLiteStore is the relational GraphStore. Each call commits before it
// returns; there is no explicit save step.
type SQLiteStore struct {
	db *sql.DB
}

var _ GraphStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at dbPath.
// It enables WAL mode and foreign key enforcement.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	// PRAGMAs are per connection; a single connection keeps foreign_keys on
	// for every statement and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// migrate creates the three graph tables if they don't exist.
func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS nodes (
		name TEXT PRIMARY KEY,
		x REAL,
		y REAL
	);

	CREATE TABLE IF NOT EXISTS edges (
		node_from TEXT,
		node_to TEXT,
		weight REAL,
		PRIMARY KEY (node_from, node_to),
		FOREIGN KEY (node_from) REFERENCES nodes(name),
		FOREIGN KEY (node_to) REFERENCES nodes(name)
	);

	CREATE TABLE IF NOT EXISTS special_places (
		id TEXT PRIMARY KEY,
		custom_name TEXT,
		x REAL,
		y REAL
	);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create graph tables: %w", err)
	}

	return nil
}

// Load reads the three tables in insertion (rowid) order.
func (s *SQLiteStore) Load(ctx context.Context) (*graph.Snapshot, error) {
	snap := graph.NewSnapshot()
	pos := make(map[string]geometry.Point)

	rows, err := s.db.QueryContext(ctx, `SELECT name, x, y FROM nodes ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	for rows.Next() {
		var n graph.Node
		if err := rows.Scan(&n.ID, &n.Pos.X, &n.Pos.Y); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		snap.AddNode(n)
		pos[n.ID] = n.Pos
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("failed to read nodes: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT node_from, node_to, weight FROM edges ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	for rows.Next() {
		var e graph.Edge
		if err := rows.Scan(&e.From, &e.To, &e.Weight); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		// The schema has no kind column.
		e.Kind = graph.KindFor(geometry.ModeForWeight(pos[e.From], pos[e.To], e.Weight))
		snap.AddEdge(e)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("failed to read edges: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT id, custom_name, x, y FROM special_places ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query special places: %w", err)
	}
	for rows.Next() {
		var p graph.SpecialPlace
		if err := rows.Scan(&p.ID, &p.Name, &p.Pos.X, &p.Pos.Y); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan special place: %w", err)
		}
		snap.AddPlace(p)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("failed to read special places: %w", err)
	}

	return snap, nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}

// SaveAll replaces every row in a single transaction.
func (s *SQLiteStore) SaveAll(ctx context.Context, snap *graph.Snapshot) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM edges`,
			`DELETE FROM nodes`,
			`DELETE FROM special_places`,
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to clear tables: %w", err)
			}
		}
		for _, n := range snap.Nodes {
			if err := insertNode(ctx, tx, n); err != nil {
				return err
			}
		}
		for _, e := range snap.Edges {
			if err := insertEdge(ctx, tx, e); err != nil {
				return err
			}
		}
		for _, p := range snap.Places {
			if err := insertPlace(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

// InsertNode stores the node and any edges passed with it atomically.
func (s *SQLiteStore) InsertNode(ctx context.Context, node graph.Node, edges ...graph.Edge) error {
	if len(edges) == 0 {
		return insertNode(ctx, s.db, node)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertNode(ctx, tx, node); err != nil {
			return err
		}
		for _, e := range edges {
			if err := insertEdge(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteNode removes incident edges first so the foreign keys hold, then the node.
func (s *SQLiteStore) DeleteNode(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE node_from = ? OR node_to = ?`, id, id); err != nil {
			return fmt.Errorf("failed to delete edges of node %s: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE name = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete node %s: %w", id, err)
		}
		return expectRow(res, "node "+id)
	})
}

// InsertEdge stores an edge; a missing endpoint surfaces as ErrMissingEndpoint.
func (s *SQLiteStore) InsertEdge(ctx context.Context, edge graph.Edge) error {
	return insertEdge(ctx, s.db, edge)
}

// DeleteEdge removes exactly from -> to.
func (s *SQLiteStore) DeleteEdge(ctx context.Context, from, to string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM edges WHERE node_from = ? AND node_to = ?`, from, to)
	if err != nil {
		return fmt.Errorf("failed to delete edge %s->%s: %w", from, to, err)
	}
	return expectRow(res, "edge "+from+"->"+to)
}

// EdgeWeight reads the stored weight of from -> to.
func (s *SQLiteStore) EdgeWeight(ctx context.Context, from, to string) (float64, bool, error) {
	var w float64
	err := s.db.QueryRowContext(ctx, `SELECT weight FROM edges WHERE node_from = ? AND node_to = ?`, from, to).Scan(&w)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get edge weight: %w", err)
	}
	return w, true, nil
}

// InsertPlace stores a special place.
func (s *SQLiteStore) InsertPlace(ctx context.Context, place graph.SpecialPlace) error {
	return insertPlace(ctx, s.db, place)
}

// DeletePlace removes a special place.
func (s *SQLiteStore) DeletePlace(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM special_places WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete special place %s: %w", id, err)
	}
	return expectRow(res, "special place "+id)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertNode(ctx context.Context, db execer, n graph.Node) error {
	if _, err := db.ExecContext(ctx, `INSERT INTO nodes (name, x, y) VALUES (?, ?, ?)`, n.ID, n.Pos.X, n.Pos.Y); err != nil {
		return fmt.Errorf("failed to insert node %s: %w", n.ID, classify(err))
	}
	return nil
}

func insertEdge(ctx context.Context, db execer, e graph.Edge) error {
	_, err := db.ExecContext(ctx, `INSERT INTO edges (node_from, node_to, weight) VALUES (?, ?, ?)`, e.From, e.To, e.Weight)
	if err != nil {
		return fmt.Errorf("failed to insert edge %s->%s: %w", e.From, e.To, classify(err))
	}
	return nil
}

func insertPlace(ctx context.Context, db execer, p graph.SpecialPlace) error {
	_, err := db.ExecContext(ctx, `INSERT INTO special_places (id, custom_name, x, y) VALUES (?, ?, ?, ?)`, p.ID, p.Name, p.Pos.X, p.Pos.Y)
	if err != nil {
		return fmt.Errorf("failed to insert special place %s: %w", p.ID, classify(err))
	}
	return nil
}

// classify maps constraint violations onto the package sentinels.
func classify(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintForeignKey:
		return ErrMissingEndpoint
	case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
		return ErrConflict
	}
	return err
}

func expectRow(res sql.Result, what string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
