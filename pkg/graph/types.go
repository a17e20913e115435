// Package graph defines the entities of a map annotation graph: nodes,
// directed weighted edges and named special places, plus the Snapshot that
// carries them in insertion order.
package graph

import (
	"github.com/rmax-ai/mapgraph/pkg/geometry"
)

// EdgeKind records which weight formula produced an edge.
type EdgeKind string

const (
	EdgeNormal EdgeKind = "normal"
	EdgeCar    EdgeKind = "car"
)

// KindFor maps a weight mode onto the edge kind it produces.
func KindFor(mode geometry.WeightMode) EdgeKind {
	if mode == geometry.WeightCar {
		return EdgeCar
	}
	return EdgeNormal
}

// Node is a user-placed point on the map.
type Node struct {
	ID  string         `json:"id"`
	Pos geometry.Point `json:"pos"`
}

// Edge is a directed, weighted connection between two nodes.
// The ordered pair (From, To) identifies it.
type Edge struct {
	From   string   `json:"from"`
	To     string   `json:"to"`
	Weight float64  `json:"weight"`
	Kind   EdgeKind `json:"kind"`
}

// Key returns the ordered endpoint pair.
func (e Edge) Key() EdgeKey {
	return EdgeKey{From: e.From, To: e.To}
}

// Touches reports whether id is one of the edge's endpoints.
func (e Edge) Touches(id string) bool {
	return e.From == id || e.To == id
}

// EdgeKey is the identity of an edge.
type EdgeKey struct {
	From string
	To   string
}

// SpecialPlace is a named marker that is not part of the node/edge graph.
type SpecialPlace struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Pos  geometry.Point `json:"pos"`
}

// Snapshot is a read-only copy of the editor state. Nodes and places keep
// insertion order, edges keep creation order.
type Snapshot struct {
	Nodes  []Node         `json:"nodes"`
	Edges  []Edge         `json:"edges"`
	Places []SpecialPlace `json:"special_places"`

	SpecialPlaceMode bool     `json:"special_place_mode"`
	CarMode          bool     `json:"car_mode"`
	Selection        []string `json:"selection,omitempty"`
	UndoDepth        int      `json:"undo_depth"`
}

// NewSnapshot creates an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Nodes:  make([]Node, 0),
		Edges:  make([]Edge, 0),
		Places: make([]SpecialPlace, 0),
	}
}

// AddNode appends a node.
func (s *Snapshot) AddNode(n Node) {
	s.Nodes = append(s.Nodes, n)
}

// AddEdge appends an edge.
func (s *Snapshot) AddEdge(e Edge) {
	s.Edges = append(s.Edges, e)
}

// AddPlace appends a special place.
func (s *Snapshot) AddPlace(p SpecialPlace) {
	s.Places = append(s.Places, p)
}

// Node looks up a node by id.
func (s *Snapshot) Node(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Place looks up a special place by id.
func (s *Snapshot) Place(id string) (SpecialPlace, bool) {
	for _, p := range s.Places {
		if p.ID == id {
			return p, true
		}
	}
	return SpecialPlace{}, false
}

// Edge looks up an edge by its ordered endpoints.
func (s *Snapshot) Edge(from, to string) (Edge, bool) {
	for _, e := range s.Edges {
		if e.From == from && e.To == to {
			return e, true
		}
	}
	return Edge{}, false
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	c.Nodes = append(make([]Node, 0, len(s.Nodes)), s.Nodes...)
	c.Edges = append(make([]Edge, 0, len(s.Edges)), s.Edges...)
	c.Places = append(make([]SpecialPlace, 0, len(s.Places)), s.Places...)
	if s.Selection != nil {
		c.Selection = append([]string(nil), s.Selection...)
	}
	return &c
}
