package store_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/mapgraph/pkg/geometry"
	"github.com/rmax-ai/mapgraph/pkg/graph"
	"github.com/rmax-ai/mapgraph/pkg/store"
	"github.com/rmax-ai/mapgraph/pkg/store/storetest"
)

func TestDocumentStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Opener {
		path := filepath.Join(t.TempDir(), "graph.json")
		return func() store.GraphStore {
			return store.OpenDocument(path, store.WithAutosave(true))
		}
	})
}

func TestDocumentStore_MissingFileIsEmpty(t *testing.T) {
	st := store.OpenDocument(filepath.Join(t.TempDir(), "nested", "graph.json"))

	snap, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Nodes)
	assert.Empty(t, snap.Edges)
}

func TestDocumentStore_ExplicitSave(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graph.json")
	st := store.OpenDocument(path)

	_, err := st.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, st.InsertNode(ctx, graph.Node{ID: "NA", Pos: geometry.Pt(1, 2)}))

	// Nothing is written until SaveAll.
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	snap, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Nodes, "reload drops unsaved changes")

	want := graph.NewSnapshot()
	want.AddNode(graph.Node{ID: "NA", Pos: geometry.Pt(1, 2)})
	require.NoError(t, st.SaveAll(ctx, want))

	got, err := store.OpenDocument(path).Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, graph.Diff(want, got))
}

func TestDocumentStore_LegacyFormats(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graph.json")
	legacy := `{
		"nodes": {
			"N0": [0, 0],
			"N1": {"pos": [30, 40]},
			"N2": {"position": [60, 80], "attributes": {"floor": 2}}
		},
		"edges": [
			{"from": "N0", "to": "N1", "weight": 0.5},
			{"from": "N1", "to": "N2", "weight": 0.3}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	st := store.OpenDocument(path)
	snap, err := st.Load(ctx)
	require.NoError(t, err)

	require.Len(t, snap.Nodes, 3)
	assert.Equal(t, "N0", snap.Nodes[0].ID)
	assert.Equal(t, geometry.Pt(30, 40), snap.Nodes[1].Pos)
	assert.Equal(t, geometry.Pt(60, 80), snap.Nodes[2].Pos)

	e, ok := snap.Edge("N0", "N1")
	require.True(t, ok)
	assert.Equal(t, graph.EdgeNormal, e.Kind)
	e, ok = snap.Edge("N1", "N2")
	require.True(t, ok)
	assert.Equal(t, graph.EdgeCar, e.Kind, "kind is inferred from the weight")

	// Saving upgrades every node to the record form and keeps attributes.
	require.NoError(t, st.SaveAll(ctx, snap))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Nodes map[string]struct {
			Position   []float64      `json:"position"`
			Attributes map[string]any `json:"attributes"`
		} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, []float64{0, 0}, doc.Nodes["N0"].Position)
	assert.NotNil(t, doc.Nodes["N0"].Attributes)
	assert.Equal(t, float64(2), doc.Nodes["N2"].Attributes["floor"])
}

func TestDocumentStore_RejectsBadPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"nodes": {"N0": [1, 2, 3]}, "edges": []}`), 0o644))

	_, err := store.OpenDocument(path).Load(context.Background())
	assert.Error(t, err)
}
