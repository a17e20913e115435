package editor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/mapgraph/pkg/graph"
	"github.com/rmax-ai/mapgraph/pkg/store"
)

func sequence(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSQLite(t *testing.T) store.GraphStore {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	return st
}

// openModel opens a model with predictable ids (N1, N2, ... and SP_1, ...).
func openModel(t *testing.T, st store.GraphStore, opts ...Option) *Model {
	t.Helper()
	base := []Option{
		WithLogger(quietLogger()),
		WithIDs(sequence("N"), sequence("SP_")),
	}
	m, err := Open(context.Background(), st, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

// recorder is an Observer that keeps every notification.
type recorder struct {
	modes    []string
	warnings []string
}

func (r *recorder) ModeChanged(mode Mode, enabled bool) {
	r.modes = append(r.modes, fmt.Sprintf("%s=%v", mode, enabled))
}

func (r *recorder) Warn(msg string) {
	r.warnings = append(r.warnings, msg)
}

// faultyStore injects failures into a real store.
type faultyStore struct {
	store.GraphStore

	fail         map[string]error
	loadOverride *graph.Snapshot
	hideWeights  bool
}

func newFaulty(inner store.GraphStore) *faultyStore {
	return &faultyStore{GraphStore: inner, fail: make(map[string]error)}
}

func (f *faultyStore) Load(ctx context.Context) (*graph.Snapshot, error) {
	if err := f.fail["Load"]; err != nil {
		return nil, err
	}
	if f.loadOverride != nil {
		return f.loadOverride.Clone(), nil
	}
	return f.GraphStore.Load(ctx)
}

func (f *faultyStore) InsertNode(ctx context.Context, n graph.Node, edges ...graph.Edge) error {
	if err := f.fail["InsertNode"]; err != nil {
		return err
	}
	return f.GraphStore.InsertNode(ctx, n, edges...)
}

func (f *faultyStore) DeleteNode(ctx context.Context, id string) error {
	if err := f.fail["DeleteNode"]; err != nil {
		return err
	}
	return f.GraphStore.DeleteNode(ctx, id)
}

func (f *faultyStore) InsertEdge(ctx context.Context, e graph.Edge) error {
	if err := f.fail["InsertEdge"]; err != nil {
		return err
	}
	return f.GraphStore.InsertEdge(ctx, e)
}

func (f *faultyStore) DeleteEdge(ctx context.Context, from, to string) error {
	if err := f.fail["DeleteEdge"]; err != nil {
		return err
	}
	return f.GraphStore.DeleteEdge(ctx, from, to)
}

func (f *faultyStore) EdgeWeight(ctx context.Context, from, to string) (float64, bool, error) {
	if f.hideWeights {
		return 0, false, nil
	}
	return f.GraphStore.EdgeWeight(ctx, from, to)
}

func (f *faultyStore) InsertPlace(ctx context.Context, sp graph.SpecialPlace) error {
	if err := f.fail["InsertPlace"]; err != nil {
		return err
	}
	return f.GraphStore.InsertPlace(ctx, sp)
}

func (f *faultyStore) SaveAll(ctx context.Context, snap *graph.Snapshot) error {
	if err := f.fail["SaveAll"]; err != nil {
		return err
	}
	return f.GraphStore.SaveAll(ctx, snap)
}

// requireStored checks that the store holds the same graph as the model.
func requireStored(t *testing.T, m *Model) {
	t.Helper()
	got, err := m.store.Load(context.Background())
	require.NoError(t, err)
	snap := m.Snapshot()
	require.Empty(t, graph.Diff(&snap, got))
}
