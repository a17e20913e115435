package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/rmax-ai/mapgraph/pkg/blob"
	"github.com/rmax-ai/mapgraph/pkg/geometry"
	"github.com/rmax-ai/mapgraph/pkg/graph"
)

// document is the on-disk layout of a graph file.
type document struct {
	Nodes  map[string]docNode  `json:"nodes"`
	Edges  []docEdge           `json:"edges"`
	Places map[string]docPlace `json:"special_places,omitempty"`
}

// Nodes and places sit in JSON objects, so each carries its position in
// insertion order. Entries without one (older files) sort first, by id.
type docNode struct {
	Position   [2]float64     `json:"position"`
	Attributes map[string]any `json:"attributes"`
	Seq        int            `json:"seq,omitempty"`
}

// UnmarshalJSON accepts the record form, the older record form keyed by
// "pos", and the legacy bare [x, y] pair.
func (n *docNode) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var pair []float64
		if err := json.Unmarshal(trimmed, &pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("node position needs 2 coordinates, got %d", len(pair))
		}
		n.Position = [2]float64{pair[0], pair[1]}
		n.Attributes = map[string]any{}
		return nil
	}

	var rec struct {
		Position   []float64      `json:"position"`
		Pos        []float64      `json:"pos"`
		Attributes map[string]any `json:"attributes"`
		Seq        int            `json:"seq"`
	}
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return err
	}
	p := rec.Position
	if p == nil {
		p = rec.Pos
	}
	if len(p) != 2 {
		return fmt.Errorf("node position needs 2 coordinates, got %d", len(p))
	}
	n.Position = [2]float64{p[0], p[1]}
	n.Attributes = rec.Attributes
	n.Seq = rec.Seq
	if n.Attributes == nil {
		n.Attributes = map[string]any{}
	}
	return nil
}

type docEdge struct {
	From   string         `json:"from"`
	To     string         `json:"to"`
	Weight float64        `json:"weight"`
	Kind   graph.EdgeKind `json:"kind,omitempty"`
}

type docPlace struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Seq  int     `json:"seq,omitempty"`
}

// DocumentOption configures a DocumentStore.
type DocumentOption func(*DocumentStore)

// WithAutosave makes every per-entity call rewrite the document.
func WithAutosave(enabled bool) DocumentOption {
	return func(s *DocumentStore) {
		s.autosave = enabled
	}
}

// DocumentStore keeps the whole graph as one JSON document. Per-entity
// calls update an in-memory copy of the document; it is written on SaveAll,
// or on every call when autosave is enabled.
type DocumentStore struct {
	blobs    blob.BlobStore
	key      string
	autosave bool

	mirror *graph.Snapshot
	attrs  map[string]map[string]any
}

var _ GraphStore = (*DocumentStore)(nil)

// NewDocumentStore stores the document under key in blobs.
func NewDocumentStore(blobs blob.BlobStore, key string, opts ...DocumentOption) *DocumentStore {
	s := &DocumentStore{
		blobs: blobs,
		key:   key,
		attrs: make(map[string]map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenDocument is NewDocumentStore over the local file at path.
func OpenDocument(path string, opts ...DocumentOption) *DocumentStore {
	return NewDocumentStore(blob.NewLocalBlobStore(filepath.Dir(path)), filepath.Base(path), opts...)
}

// Load reads the document. A missing document is an empty graph.
func (s *DocumentStore) Load(ctx context.Context) (*graph.Snapshot, error) {
	r, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			s.mirror = graph.NewSnapshot()
			s.attrs = make(map[string]map[string]any)
			return s.mirror.Clone(), nil
		}
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer r.Close()

	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", s.key, err)
	}

	snap, attrs := fromDocument(&doc)
	s.mirror = snap
	s.attrs = attrs
	return snap.Clone(), nil
}

func fromDocument(doc *document) (*graph.Snapshot, map[string]map[string]any) {
	snap := graph.NewSnapshot()
	attrs := make(map[string]map[string]any, len(doc.Nodes))

	ids := make([]string, 0, len(doc.Nodes))
	for id := range doc.Nodes {
		ids = append(ids, id)
	}
	sortBySeq(ids, func(id string) int { return doc.Nodes[id].Seq })
	pos := make(map[string]geometry.Point, len(ids))
	for _, id := range ids {
		n := doc.Nodes[id]
		p := geometry.Pt(n.Position[0], n.Position[1])
		snap.AddNode(graph.Node{ID: id, Pos: p})
		pos[id] = p
		if len(n.Attributes) > 0 {
			attrs[id] = n.Attributes
		}
	}

	for _, e := range doc.Edges {
		kind := e.Kind
		if kind == "" {
			kind = graph.KindFor(geometry.ModeForWeight(pos[e.From], pos[e.To], e.Weight))
		}
		snap.AddEdge(graph.Edge{From: e.From, To: e.To, Weight: e.Weight, Kind: kind})
	}

	placeIDs := make([]string, 0, len(doc.Places))
	for id := range doc.Places {
		placeIDs = append(placeIDs, id)
	}
	sortBySeq(placeIDs, func(id string) int { return doc.Places[id].Seq })
	for _, id := range placeIDs {
		p := doc.Places[id]
		snap.AddPlace(graph.SpecialPlace{ID: id, Name: p.Name, Pos: geometry.Pt(p.X, p.Y)})
	}

	return snap, attrs
}

func sortBySeq(ids []string, seq func(string) int) {
	sort.Slice(ids, func(i, j int) bool {
		si, sj := seq(ids[i]), seq(ids[j])
		if si != sj {
			return si < sj
		}
		return ids[i] < ids[j]
	})
}

func (s *DocumentStore) toDocument(snap *graph.Snapshot) *document {
	doc := &document{
		Nodes:  make(map[string]docNode, len(snap.Nodes)),
		Edges:  make([]docEdge, 0, len(snap.Edges)),
		Places: make(map[string]docPlace, len(snap.Places)),
	}
	for i, n := range snap.Nodes {
		a := s.attrs[n.ID]
		if a == nil {
			a = map[string]any{}
		}
		doc.Nodes[n.ID] = docNode{Position: [2]float64{n.Pos.X, n.Pos.Y}, Attributes: a, Seq: i + 1}
	}
	for _, e := range snap.Edges {
		doc.Edges = append(doc.Edges, docEdge{From: e.From, To: e.To, Weight: e.Weight, Kind: e.Kind})
	}
	for i, p := range snap.Places {
		doc.Places[p.ID] = docPlace{Name: p.Name, X: p.Pos.X, Y: p.Pos.Y, Seq: i + 1}
	}
	return doc
}

func (s *DocumentStore) write(ctx context.Context, snap *graph.Snapshot) error {
	data, err := json.MarshalIndent(s.toDocument(snap), "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := s.blobs.Put(ctx, s.key, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// SaveAll writes snap as the whole document.
func (s *DocumentStore) SaveAll(ctx context.Context, snap *graph.Snapshot) error {
	next := graph.NewSnapshot()
	next.Nodes = append(next.Nodes, snap.Nodes...)
	next.Edges = append(next.Edges, snap.Edges...)
	next.Places = append(next.Places, snap.Places...)
	if err := s.write(ctx, next); err != nil {
		return err
	}
	s.mirror = next
	return nil
}

// mutate applies fn to a copy of the mirror, writes it if autosave is on,
// and only then replaces the mirror.
func (s *DocumentStore) mutate(ctx context.Context, fn func(*graph.Snapshot) error) error {
	if s.mirror == nil {
		if _, err := s.Load(ctx); err != nil {
			return err
		}
	}
	next := s.mirror.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if s.autosave {
		if err := s.write(ctx, next); err != nil {
			return err
		}
	}
	s.mirror = next
	return nil
}

// InsertNode adds the node and edges to the document.
func (s *DocumentStore) InsertNode(ctx context.Context, node graph.Node, edges ...graph.Edge) error {
	return s.mutate(ctx, func(snap *graph.Snapshot) error {
		if _, ok := snap.Node(node.ID); ok {
			return fmt.Errorf("node %s: %w", node.ID, ErrConflict)
		}
		snap.AddNode(node)
		for _, e := range edges {
			if err := addEdge(snap, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteNode drops the node and every edge touching it.
func (s *DocumentStore) DeleteNode(ctx context.Context, id string) error {
	return s.mutate(ctx, func(snap *graph.Snapshot) error {
		if _, ok := snap.Node(id); !ok {
			return fmt.Errorf("node %s: %w", id, ErrNotFound)
		}
		nodes := snap.Nodes[:0]
		for _, n := range snap.Nodes {
			if n.ID != id {
				nodes = append(nodes, n)
			}
		}
		snap.Nodes = nodes
		edges := snap.Edges[:0]
		for _, e := range snap.Edges {
			if !e.Touches(id) {
				edges = append(edges, e)
			}
		}
		snap.Edges = edges
		return nil
	})
}

// InsertEdge adds an edge between two stored nodes.
func (s *DocumentStore) InsertEdge(ctx context.Context, edge graph.Edge) error {
	return s.mutate(ctx, func(snap *graph.Snapshot) error {
		return addEdge(snap, edge)
	})
}

func addEdge(snap *graph.Snapshot, e graph.Edge) error {
	_, okFrom := snap.Node(e.From)
	_, okTo := snap.Node(e.To)
	if !okFrom || !okTo {
		return fmt.Errorf("edge %s->%s: %w", e.From, e.To, ErrMissingEndpoint)
	}
	if _, ok := snap.Edge(e.From, e.To); ok {
		return fmt.Errorf("edge %s->%s: %w", e.From, e.To, ErrConflict)
	}
	snap.AddEdge(e)
	return nil
}

// DeleteEdge drops exactly from -> to.
func (s *DocumentStore) DeleteEdge(ctx context.Context, from, to string) error {
	return s.mutate(ctx, func(snap *graph.Snapshot) error {
		for i, e := range snap.Edges {
			if e.From == from && e.To == to {
				snap.Edges = append(snap.Edges[:i], snap.Edges[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("edge %s->%s: %w", from, to, ErrNotFound)
	})
}

// EdgeWeight reads the weight from the in-memory document.
func (s *DocumentStore) EdgeWeight(ctx context.Context, from, to string) (float64, bool, error) {
	if s.mirror == nil {
		if _, err := s.Load(ctx); err != nil {
			return 0, false, err
		}
	}
	e, ok := s.mirror.Edge(from, to)
	return e.Weight, ok, nil
}

// InsertPlace adds a special place.
func (s *DocumentStore) InsertPlace(ctx context.Context, place graph.SpecialPlace) error {
	return s.mutate(ctx, func(snap *graph.Snapshot) error {
		if _, ok := snap.Place(place.ID); ok {
			return fmt.Errorf("special place %s: %w", place.ID, ErrConflict)
		}
		snap.AddPlace(place)
		return nil
	})
}

// DeletePlace drops a special place.
func (s *DocumentStore) DeletePlace(ctx context.Context, id string) error {
	return s.mutate(ctx, func(snap *graph.Snapshot) error {
		for i, p := range snap.Places {
			if p.ID == id {
				snap.Places = append(snap.Places[:i], snap.Places[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("special place %s: %w", id, ErrNotFound)
	})
}

// Close is a no-op; unsaved changes are not flushed implicitly.
func (s *DocumentStore) Close() error {
	return nil
}
