// Package editor holds the graph editing core: the Model that owns nodes,
// edges and special places, its undo log, and the Controller that maps
// pointer gestures onto model operations.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/rmax-ai/mapgraph/pkg/geometry"
	"github.com/rmax-ai/mapgraph/pkg/graph"
	"github.com/rmax-ai/mapgraph/pkg/history"
	"github.com/rmax-ai/mapgraph/pkg/store"
)

// Mode is a toggle that changes how later gestures are interpreted.
type Mode string

const (
	ModeSpecialPlace Mode = "place"
	ModeCar          Mode = "car"
)

// Observer receives notifications that are not results of the call that
// triggered them.
type Observer interface {
	ModeChanged(mode Mode, enabled bool)
	Warn(msg string)
}

// Tolerances are hit-test distances in scene units.
type Tolerances struct {
	Node  float64
	Place float64
	Edge  float64
}

// DefaultTolerances matches the editor's pointer targets.
var DefaultTolerances = Tolerances{Node: 10, Place: 15, Edge: 5}

type Option func(*Model)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		m.logger = logger
	}
}

func WithObserver(o Observer) Option {
	return func(m *Model) {
		m.observer = o
	}
}

// WithTolerances overrides hit-test distances. Non-positive fields keep
// their defaults.
func WithTolerances(t Tolerances) Option {
	return func(m *Model) {
		if t.Node > 0 {
			m.tol.Node = t.Node
		}
		if t.Place > 0 {
			m.tol.Place = t.Place
		}
		if t.Edge > 0 {
			m.tol.Edge = t.Edge
		}
	}
}

// WithUndoLimit bounds the undo log; 0 means unbounded.
func WithUndoLimit(n int) Option {
	return func(m *Model) {
		m.log = history.NewLog(n)
	}
}

// WithIDs replaces the node and special place id generators.
func WithIDs(nodeID, placeID func() string) Option {
	return func(m *Model) {
		m.nodeID = nodeID
		m.placeID = placeID
	}
}

func newNodeID() string {
	return "N" + uuid.NewString()[:6]
}

func newPlaceID() string {
	return "SP_" + uuid.NewString()[:8]
}

// Model owns the editable graph. Every mutation writes the store first and
// changes memory only after the store accepted it, then records an undo
// entry.
//
// A Model is not safe for concurrent use. Callers sharing one across
// goroutines must hold a mutex around every method call.
type Model struct {
	store    store.GraphStore
	log      *history.Log
	logger   *slog.Logger
	observer Observer
	tol      Tolerances

	nodeID  func() string
	placeID func() string

	nodes  []graph.Node
	edges  []graph.Edge
	places []graph.SpecialPlace

	specialPlaceMode bool
	carMode          bool
	selection        []string
}

// Open loads the graph held by st. The model takes ownership of st and
// releases it on Close.
func Open(ctx context.Context, st store.GraphStore, opts ...Option) (*Model, error) {
	m := &Model{
		store:   st,
		log:     history.NewLog(0),
		logger:  slog.Default(),
		tol:     DefaultTolerances,
		nodeID:  newNodeID,
		placeID: newPlaceID,
	}
	for _, opt := range opts {
		opt(m)
	}

	snap, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}
	m.nodes = append(m.nodes, snap.Nodes...)
	m.places = append(m.places, snap.Places...)
	for _, e := range snap.Edges {
		_, okFrom := m.node(e.From)
		_, okTo := m.node(e.To)
		if okFrom && okTo {
			m.edges = append(m.edges, e)
			continue
		}
		m.warn(fmt.Sprintf("dropping stored edge %s->%s: missing endpoint", e.From, e.To))
		if err := st.DeleteEdge(ctx, e.From, e.To); err != nil && !errors.Is(err, store.ErrNotFound) {
			m.logger.Error("Failed to delete dangling edge", "from", e.From, "to", e.To, "error", err)
		}
	}

	m.logger.Info("Graph loaded", "nodes", len(m.nodes), "edges", len(m.edges), "special_places", len(m.places))
	m.observe("load", nil)
	return m, nil
}

// Close releases the store.
func (m *Model) Close() error {
	return m.store.Close()
}

// Tolerances returns the hit-test distances in use.
func (m *Model) Tolerances() Tolerances {
	return m.tol
}

// UndoDepth returns the number of undoable actions.
func (m *Model) UndoDepth() int {
	return m.log.Len()
}

// SpecialPlaceMode reports whether primary clicks place special places.
func (m *Model) SpecialPlaceMode() bool {
	return m.specialPlaceMode
}

// CarMode reports whether new edges get the car weight.
func (m *Model) CarMode() bool {
	return m.carMode
}

func (m *Model) setObserver(o Observer) {
	m.observer = o
}

// warn reports a persistence inconsistency that the operation recovered from.
func (m *Model) warn(msg string) {
	m.logger.Warn("Persistence inconsistency", "detail", msg)
	if m.observer != nil {
		m.observer.Warn(msg)
	}
}

// AddNode places a node at p and returns its id. A node already at exactly
// p is rejected, as is a position with a NaN or infinite coordinate.
func (m *Model) AddNode(ctx context.Context, p geometry.Point) (id string, err error) {
	defer func() { m.observe("add_node", err) }()

	if !p.IsFinite() {
		return "", reject(ErrBadPosition, "node position %v", p)
	}
	for _, n := range m.nodes {
		if n.Pos == p {
			return "", reject(ErrNodeAtPosition, "node %s is already at %v", n.ID, p)
		}
	}

	id = m.nodeID()
	for _, taken := m.node(id); taken; _, taken = m.node(id) {
		id = m.nodeID()
	}
	n := graph.Node{ID: id, Pos: p}

	if err := m.store.InsertNode(ctx, n); err != nil {
		return "", fmt.Errorf("failed to persist node: %w", err)
	}
	m.nodes = append(m.nodes, n)
	m.log.Push(history.AddNode{Node: n})

	m.logger.Debug("Node added", "id", id, "pos", p)
	return id, nil
}

// SelectOrConnect buffers id as an edge endpoint. When a second distinct
// node is buffered the edge first -> second is created and the buffer is
// cleared whether or not creation succeeded.
func (m *Model) SelectOrConnect(ctx context.Context, id string) (*graph.Edge, error) {
	if _, ok := m.node(id); !ok {
		return nil, reject(ErrMissingNode, "node %s does not exist", id)
	}
	for _, sel := range m.selection {
		if sel == id {
			return nil, nil
		}
	}
	m.selection = append(m.selection, id)
	if len(m.selection) < 2 {
		return nil, nil
	}

	from, to := m.selection[0], m.selection[1]
	m.selection = nil
	e, err := m.CreateEdge(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Selection returns the buffered endpoint ids.
func (m *Model) Selection() []string {
	return append([]string(nil), m.selection...)
}

// CancelSelection clears the endpoint buffer.
func (m *Model) CancelSelection() {
	m.selection = nil
}

// CreateEdge connects from -> to with a weight computed from the endpoint
// positions and the current car mode.
func (m *Model) CreateEdge(ctx context.Context, from, to string) (e graph.Edge, err error) {
	defer func() { m.observe("create_edge", err) }()

	if from == to {
		return graph.Edge{}, reject(ErrSelfLoop, "node %s cannot connect to itself", from)
	}
	a, ok := m.node(from)
	if !ok {
		return graph.Edge{}, reject(ErrMissingNode, "node %s does not exist", from)
	}
	b, ok := m.node(to)
	if !ok {
		return graph.Edge{}, reject(ErrMissingNode, "node %s does not exist", to)
	}
	if _, exists := m.edge(from, to); exists {
		return graph.Edge{}, reject(ErrDuplicateEdge, "edge %s->%s already exists", from, to)
	}
	if a.Pos == b.Pos {
		return graph.Edge{}, reject(ErrDegenerateEdge, "nodes %s and %s share position %v", from, to, a.Pos)
	}

	mode := geometry.WeightNormal
	if m.carMode {
		mode = geometry.WeightCar
	}
	e = graph.Edge{
		From:   from,
		To:     to,
		Weight: geometry.ComputeWeight(a.Pos, b.Pos, mode),
		Kind:   graph.KindFor(mode),
	}

	if err := m.store.InsertEdge(ctx, e); err != nil {
		return graph.Edge{}, fmt.Errorf("failed to persist edge: %w", err)
	}
	m.edges = append(m.edges, e)
	m.log.Push(history.AddEdge{Edge: e})

	m.logger.Debug("Edge created", "from", from, "to", to, "weight", e.Weight, "kind", e.Kind)
	return e, nil
}

// RemoveNode deletes a node and every edge touching it.
func (m *Model) RemoveNode(ctx context.Context, id string) (err error) {
	defer func() { m.observe("remove_node", err) }()

	n, ok := m.node(id)
	if !ok {
		return reject(ErrNotFound, "node %s does not exist", id)
	}
	incident := m.incidentEdges(id)

	if err := m.store.DeleteNode(ctx, id); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to delete node: %w", err)
		}
		m.warn(fmt.Sprintf("node %s was not in the store", id))
	}
	m.dropNode(id)
	m.log.Push(history.RemoveNode{Node: n, Edges: incident})

	m.logger.Debug("Node removed", "id", id, "edges", len(incident))
	return nil
}

// RemoveEdge deletes exactly from -> to. The weight recorded for undo is
// read from the store; if the store has no such row the removal proceeds
// with a warning and a zero weight.
func (m *Model) RemoveEdge(ctx context.Context, from, to string) (err error) {
	defer func() { m.observe("remove_edge", err) }()

	e, ok := m.edge(from, to)
	if !ok {
		return reject(ErrNotFound, "edge %s->%s does not exist", from, to)
	}

	weight, stored, err := m.store.EdgeWeight(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to read edge weight: %w", err)
	}
	if !stored {
		m.warn(fmt.Sprintf("edge %s->%s has no stored weight, undo will restore weight 0", from, to))
		weight = 0
	}

	if err := m.store.DeleteEdge(ctx, from, to); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to delete edge: %w", err)
		}
		m.warn(fmt.Sprintf("edge %s->%s was not in the store", from, to))
	}
	m.dropEdge(from, to)

	e.Weight = weight
	m.log.Push(history.RemoveEdge{Edge: e})

	m.logger.Debug("Edge removed", "from", from, "to", to, "weight", weight)
	return nil
}

// FindClosestNode returns the node nearest to p whose squared distance is
// strictly below tol². Ties go to the node added first.
func (m *Model) FindClosestNode(p geometry.Point, tol float64) (string, bool) {
	best, bestDist := "", tol*tol
	for _, n := range m.nodes {
		if d := geometry.SquaredDistance(p, n.Pos); d < bestDist {
			best, bestDist = n.ID, d
		}
	}
	return best, best != ""
}

// FindClickedEdge returns the first edge, in creation order, that p lies on.
func (m *Model) FindClickedEdge(p geometry.Point) (graph.Edge, bool) {
	for _, e := range m.edges {
		a, okA := m.node(e.From)
		b, okB := m.node(e.To)
		if !okA || !okB {
			continue
		}
		if geometry.IsOnSegment(p, a.Pos, b.Pos, m.tol.Edge) {
			return e, true
		}
	}
	return graph.Edge{}, false
}

// AddSpecialPlace adds a named marker at p. The name is trimmed and must
// not be empty.
func (m *Model) AddSpecialPlace(ctx context.Context, p geometry.Point, name string) (id string, err error) {
	defer func() { m.observe("add_special_place", err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return "", reject(ErrEmptyName, "special place needs a name")
	}
	if !p.IsFinite() {
		return "", reject(ErrBadPosition, "special place position %v", p)
	}

	id = m.placeID()
	for _, taken := m.place(id); taken; _, taken = m.place(id) {
		id = m.placeID()
	}
	sp := graph.SpecialPlace{ID: id, Name: name, Pos: p}

	if err := m.store.InsertPlace(ctx, sp); err != nil {
		return "", fmt.Errorf("failed to persist special place: %w", err)
	}
	m.places = append(m.places, sp)
	m.log.Push(history.AddPlace{Place: sp})

	m.logger.Debug("Special place added", "id", id, "name", name, "pos", p)
	return id, nil
}

// RemoveSpecialPlace deletes a special place.
func (m *Model) RemoveSpecialPlace(ctx context.Context, id string) (err error) {
	defer func() { m.observe("remove_special_place", err) }()

	sp, ok := m.place(id)
	if !ok {
		return reject(ErrNotFound, "special place %s does not exist", id)
	}

	if err := m.store.DeletePlace(ctx, id); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to delete special place: %w", err)
		}
		m.warn(fmt.Sprintf("special place %s was not in the store", id))
	}
	m.dropPlace(id)
	m.log.Push(history.RemovePlace{Place: sp})

	m.logger.Debug("Special place removed", "id", id, "name", sp.Name)
	return nil
}

// FindClosestSpecialPlace is FindClosestNode for special places.
func (m *Model) FindClosestSpecialPlace(p geometry.Point, tol float64) (string, bool) {
	best, bestDist := "", tol*tol
	for _, sp := range m.places {
		if d := geometry.SquaredDistance(p, sp.Pos); d < bestDist {
			best, bestDist = sp.ID, d
		}
	}
	return best, best != ""
}

// SetSpecialPlaceMode sets the flag and reports whether it changed.
func (m *Model) SetSpecialPlaceMode(on bool) bool {
	if m.specialPlaceMode == on {
		return false
	}
	m.specialPlaceMode = on
	m.modeChanged(ModeSpecialPlace, on)
	return true
}

// SetCarMode sets the flag and reports whether it changed.
func (m *Model) SetCarMode(on bool) bool {
	if m.carMode == on {
		return false
	}
	m.carMode = on
	m.modeChanged(ModeCar, on)
	return true
}

func (m *Model) modeChanged(mode Mode, on bool) {
	m.logger.Debug("Mode changed", "mode", mode, "enabled", on)
	if m.observer != nil {
		m.observer.ModeChanged(mode, on)
	}
}

// Snapshot copies the current state.
func (m *Model) Snapshot() graph.Snapshot {
	return graph.Snapshot{
		Nodes:            append(make([]graph.Node, 0, len(m.nodes)), m.nodes...),
		Edges:            append(make([]graph.Edge, 0, len(m.edges)), m.edges...),
		Places:           append(make([]graph.SpecialPlace, 0, len(m.places)), m.places...),
		SpecialPlaceMode: m.specialPlaceMode,
		CarMode:          m.carMode,
		Selection:        m.Selection(),
		UndoDepth:        m.log.Len(),
	}
}

// Save writes the whole graph to the store. Stores that commit every call
// already hold it; the document store without autosave needs this.
func (m *Model) Save(ctx context.Context) (err error) {
	defer func() { m.observe("save", err) }()

	snap := m.Snapshot()
	if err := m.store.SaveAll(ctx, &snap); err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}
	m.logger.Info("Graph saved", "nodes", len(snap.Nodes), "edges", len(snap.Edges), "special_places", len(snap.Places))
	return nil
}

func (m *Model) node(id string) (graph.Node, bool) {
	for _, n := range m.nodes {
		if n.ID == id {
			return n, true
		}
	}
	return graph.Node{}, false
}

func (m *Model) edge(from, to string) (graph.Edge, bool) {
	for _, e := range m.edges {
		if e.From == from && e.To == to {
			return e, true
		}
	}
	return graph.Edge{}, false
}

func (m *Model) place(id string) (graph.SpecialPlace, bool) {
	for _, sp := range m.places {
		if sp.ID == id {
			return sp, true
		}
	}
	return graph.SpecialPlace{}, false
}

func (m *Model) incidentEdges(id string) []graph.Edge {
	var out []graph.Edge
	for _, e := range m.edges {
		if e.Touches(id) {
			out = append(out, e)
		}
	}
	return out
}

// dropNode removes the node, its edges and any selection of it.
func (m *Model) dropNode(id string) {
	nodes := m.nodes[:0]
	for _, n := range m.nodes {
		if n.ID != id {
			nodes = append(nodes, n)
		}
	}
	m.nodes = nodes

	edges := m.edges[:0]
	for _, e := range m.edges {
		if !e.Touches(id) {
			edges = append(edges, e)
		}
	}
	m.edges = edges

	sel := m.selection[:0]
	for _, s := range m.selection {
		if s != id {
			sel = append(sel, s)
		}
	}
	m.selection = sel
}

func (m *Model) dropEdge(from, to string) {
	for i, e := range m.edges {
		if e.From == from && e.To == to {
			m.edges = append(m.edges[:i], m.edges[i+1:]...)
			return
		}
	}
}

func (m *Model) dropPlace(id string) {
	for i, sp := range m.places {
		if sp.ID == id {
			m.places = append(m.places[:i], m.places[i+1:]...)
			return
		}
	}
}
