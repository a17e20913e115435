package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/mapgraph/pkg/geometry"
)

func sampleSnapshot() *Snapshot {
	s := NewSnapshot()
	s.AddNode(Node{ID: "A", Pos: geometry.Pt(0, 0)})
	s.AddNode(Node{ID: "B", Pos: geometry.Pt(30, 40)})
	s.AddEdge(Edge{From: "A", To: "B", Weight: 0.5, Kind: EdgeNormal})
	s.AddPlace(SpecialPlace{ID: "SP_1", Name: "Gate", Pos: geometry.Pt(5, 5)})
	return s
}

func TestSnapshot_Lookups(t *testing.T) {
	s := sampleSnapshot()

	n, ok := s.Node("B")
	require.True(t, ok)
	assert.Equal(t, geometry.Pt(30, 40), n.Pos)

	_, ok = s.Edge("B", "A")
	assert.False(t, ok, "edges are directed")

	e, ok := s.Edge("A", "B")
	require.True(t, ok)
	assert.True(t, e.Touches("A"))
	assert.False(t, e.Touches("C"))

	p, ok := s.Place("SP_1")
	require.True(t, ok)
	assert.Equal(t, "Gate", p.Name)
}

func TestSnapshot_CloneIsIndependent(t *testing.T) {
	s := sampleSnapshot()
	s.Selection = []string{"A"}
	c := s.Clone()

	c.Nodes[0].Pos = geometry.Pt(99, 99)
	c.Edges[0].Weight = 7
	c.Places[0].Name = "Other"
	c.Selection[0] = "B"

	assert.Equal(t, geometry.Pt(0, 0), s.Nodes[0].Pos)
	assert.Equal(t, 0.5, s.Edges[0].Weight)
	assert.Equal(t, "Gate", s.Places[0].Name)
	assert.Equal(t, "A", s.Selection[0])
}

func TestDiff(t *testing.T) {
	want := sampleSnapshot()

	got := want.Clone()
	got.Nodes[0], got.Nodes[1] = got.Nodes[1], got.Nodes[0]
	got.CarMode = true
	assert.Empty(t, Diff(want, got), "order and modes are ignored")

	got = want.Clone()
	got.Edges[0].Weight = 0.3
	got.Places = nil
	got.AddNode(Node{ID: "C"})
	assert.Equal(t, []string{
		"edge A->B weight 0.3, want 0.5",
		"place SP_1 missing",
		"unexpected node C",
	}, Diff(want, got))
}
