// Package storetest holds the behavioural suite every GraphStore backend
// must pass.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/mapgraph/pkg/geometry"
	"github.com/rmax-ai/mapgraph/pkg/graph"
	"github.com/rmax-ai/mapgraph/pkg/store"
)

// Opener returns a new handle on the same underlying storage each time it
// is called, so a test can write through one handle and read through a
// fresh one. Per-entity calls must be durable for the suite to pass.
type Opener func() store.GraphStore

// Sample returns a small graph: A(0,0) -> B(30,40) normal, B -> C car,
// one special place.
func Sample() *graph.Snapshot {
	a, b, c := geometry.Pt(0, 0), geometry.Pt(30, 40), geometry.Pt(-60, 80)
	s := graph.NewSnapshot()
	s.AddNode(graph.Node{ID: "NA", Pos: a})
	s.AddNode(graph.Node{ID: "NB", Pos: b})
	s.AddNode(graph.Node{ID: "NC", Pos: c})
	s.AddEdge(graph.Edge{From: "NA", To: "NB", Weight: geometry.ComputeWeight(a, b, geometry.WeightNormal), Kind: graph.EdgeNormal})
	s.AddEdge(graph.Edge{From: "NB", To: "NC", Weight: geometry.ComputeWeight(b, c, geometry.WeightCar), Kind: graph.EdgeCar})
	s.AddPlace(graph.SpecialPlace{ID: "SP_gate", Name: "Gate", Pos: geometry.Pt(12.5, -3)})
	return s
}

// Run executes the suite. newOpener is called once per subtest so each
// subtest starts from empty storage.
func Run(t *testing.T, newOpener func(t *testing.T) Opener) {
	ctx := context.Background()

	open := func(t *testing.T, o Opener) store.GraphStore {
		st := o()
		t.Cleanup(func() { st.Close() })
		return st
	}

	t.Run("empty load", func(t *testing.T) {
		st := open(t, newOpener(t))
		snap, err := st.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, snap.Nodes)
		assert.Empty(t, snap.Edges)
		assert.Empty(t, snap.Places)
	})

	t.Run("save all round trip", func(t *testing.T) {
		o := newOpener(t)
		want := Sample()

		require.NoError(t, open(t, o).SaveAll(ctx, want))

		got, err := open(t, o).Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, graph.Diff(want, got))

		e, ok := got.Edge("NB", "NC")
		require.True(t, ok)
		assert.Equal(t, graph.EdgeCar, e.Kind)
	})

	t.Run("save all replaces content", func(t *testing.T) {
		o := newOpener(t)
		st := open(t, o)
		require.NoError(t, st.SaveAll(ctx, Sample()))

		smaller := graph.NewSnapshot()
		smaller.AddNode(graph.Node{ID: "NZ", Pos: geometry.Pt(1, 1)})
		require.NoError(t, st.SaveAll(ctx, smaller))

		got, err := open(t, o).Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, graph.Diff(smaller, got))
	})

	t.Run("per entity round trip", func(t *testing.T) {
		o := newOpener(t)
		st := open(t, o)
		want := Sample()
		_, err := st.Load(ctx)
		require.NoError(t, err)

		for _, n := range want.Nodes {
			require.NoError(t, st.InsertNode(ctx, n))
		}
		for _, e := range want.Edges {
			require.NoError(t, st.InsertEdge(ctx, e))
		}
		for _, p := range want.Places {
			require.NoError(t, st.InsertPlace(ctx, p))
		}

		got, err := open(t, o).Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, graph.Diff(want, got))
	})

	t.Run("insertion order survives reload", func(t *testing.T) {
		o := newOpener(t)
		st := open(t, o)
		_, err := st.Load(ctx)
		require.NoError(t, err)

		// Ids are deliberately out of lexical order.
		for i, id := range []string{"Nz", "Nb", "Nm"} {
			require.NoError(t, st.InsertNode(ctx, graph.Node{ID: id, Pos: geometry.Pt(float64(10*i), 0)}))
		}
		for _, e := range [][2]string{{"Nm", "Nz"}, {"Nz", "Nb"}, {"Nb", "Nm"}} {
			require.NoError(t, st.InsertEdge(ctx, graph.Edge{From: e[0], To: e[1], Weight: 0.1, Kind: graph.EdgeNormal}))
		}
		for _, id := range []string{"SP_y", "SP_c"} {
			require.NoError(t, st.InsertPlace(ctx, graph.SpecialPlace{ID: id, Name: id}))
		}

		want := order{
			nodes:  []string{"Nz", "Nb", "Nm"},
			edges:  []string{"Nm->Nz", "Nz->Nb", "Nb->Nm"},
			places: []string{"SP_y", "SP_c"},
		}
		got, err := open(t, o).Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, orderOf(got))

		// A node deleted and inserted again moves to the end.
		require.NoError(t, st.DeleteNode(ctx, "Nz"))
		require.NoError(t, st.InsertNode(ctx, graph.Node{ID: "Nz", Pos: geometry.Pt(0, 0)}))
		got, err = open(t, o).Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Nb", "Nm", "Nz"}, orderOf(got).nodes)
		assert.Equal(t, []string{"Nb->Nm"}, orderOf(got).edges)

		// SaveAll keeps the order it is given.
		require.NoError(t, st.SaveAll(ctx, got))
		again, err := open(t, o).Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, orderOf(got), orderOf(again))
	})

	t.Run("delete node cascades", func(t *testing.T) {
		o := newOpener(t)
		st := open(t, o)
		require.NoError(t, st.SaveAll(ctx, Sample()))
		_, err := st.Load(ctx)
		require.NoError(t, err)

		require.NoError(t, st.DeleteNode(ctx, "NB"))

		got, err := open(t, o).Load(ctx)
		require.NoError(t, err)
		assert.Len(t, got.Nodes, 2)
		assert.Empty(t, got.Edges, "both edges touched NB")
		assert.Len(t, got.Places, 1)
	})

	t.Run("insert node with edges", func(t *testing.T) {
		o := newOpener(t)
		st := open(t, o)
		want := Sample()
		require.NoError(t, st.SaveAll(ctx, want))
		_, err := st.Load(ctx)
		require.NoError(t, err)
		require.NoError(t, st.DeleteNode(ctx, "NB"))

		nb, _ := want.Node("NB")
		require.NoError(t, st.InsertNode(ctx, nb, want.Edges...))

		got, err := open(t, o).Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, graph.Diff(want, got))
	})

	t.Run("edge needs both endpoints", func(t *testing.T) {
		st := open(t, newOpener(t))
		_, err := st.Load(ctx)
		require.NoError(t, err)
		require.NoError(t, st.InsertNode(ctx, graph.Node{ID: "NA"}))

		err = st.InsertEdge(ctx, graph.Edge{From: "NA", To: "ghost", Weight: 1})
		assert.ErrorIs(t, err, store.ErrMissingEndpoint)

		snap, err := st.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, snap.Edges)
	})

	t.Run("duplicate identities conflict", func(t *testing.T) {
		st := open(t, newOpener(t))
		require.NoError(t, st.SaveAll(ctx, Sample()))
		_, err := st.Load(ctx)
		require.NoError(t, err)

		assert.ErrorIs(t, st.InsertNode(ctx, graph.Node{ID: "NA"}), store.ErrConflict)
		assert.ErrorIs(t, st.InsertEdge(ctx, graph.Edge{From: "NA", To: "NB"}), store.ErrConflict)
		assert.ErrorIs(t, st.InsertPlace(ctx, graph.SpecialPlace{ID: "SP_gate", Name: "x"}), store.ErrConflict)

		// The reverse direction is a different edge.
		assert.NoError(t, st.InsertEdge(ctx, graph.Edge{From: "NB", To: "NA", Weight: 0.5}))
	})

	t.Run("deleting missing rows", func(t *testing.T) {
		st := open(t, newOpener(t))
		require.NoError(t, st.SaveAll(ctx, Sample()))
		_, err := st.Load(ctx)
		require.NoError(t, err)

		assert.ErrorIs(t, st.DeleteNode(ctx, "ghost"), store.ErrNotFound)
		assert.ErrorIs(t, st.DeleteEdge(ctx, "NB", "NA"), store.ErrNotFound)
		assert.ErrorIs(t, st.DeletePlace(ctx, "ghost"), store.ErrNotFound)
	})

	t.Run("edge weight lookup is directed", func(t *testing.T) {
		st := open(t, newOpener(t))
		require.NoError(t, st.SaveAll(ctx, Sample()))
		_, err := st.Load(ctx)
		require.NoError(t, err)

		w, ok, err := st.EdgeWeight(ctx, "NA", "NB")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 0.5, w)

		_, ok, err = st.EdgeWeight(ctx, "NB", "NA")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, st.DeleteEdge(ctx, "NA", "NB"))
		_, ok, err = st.EdgeWeight(ctx, "NA", "NB")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("delete place", func(t *testing.T) {
		o := newOpener(t)
		st := open(t, o)
		require.NoError(t, st.SaveAll(ctx, Sample()))
		_, err := st.Load(ctx)
		require.NoError(t, err)

		require.NoError(t, st.DeletePlace(ctx, "SP_gate"))

		got, err := open(t, o).Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, got.Places)
		assert.Len(t, got.Nodes, 3)
	})
}

type order struct {
	nodes, edges, places []string
}

func orderOf(s *graph.Snapshot) order {
	var o order
	for _, n := range s.Nodes {
		o.nodes = append(o.nodes, n.ID)
	}
	for _, e := range s.Edges {
		o.edges = append(o.edges, e.From+"->"+e.To)
	}
	for _, p := range s.Places {
		o.places = append(o.places, p.ID)
	}
	return o
}
