package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/rmax-ai/mapgraph/pkg/graph"
	"github.com/rmax-ai/mapgraph/pkg/history"
	"github.com/rmax-ai/mapgraph/pkg/store"
)

// Undo reverses the newest logged action and returns its record. If the
// reversal fails the record goes back on the log and nothing is changed.
//
// Edges are restored only when both endpoints exist at undo time, so an
// edge whose other endpoint was removed by a later action that is no
// longer on the log (dropped by the undo limit) stays gone.
func (m *Model) Undo(ctx context.Context) (r history.Record, err error) {
	defer func() { m.observe("undo", err) }()

	r, ok := m.log.Pop()
	if !ok {
		return nil, reject(ErrNothingToUndo, "no action to undo")
	}
	if err := m.reverse(ctx, r); err != nil {
		m.log.Restore(r)
		return nil, err
	}

	m.logger.Debug("Action undone", "kind", r.Kind(), "remaining", m.log.Len())
	return r, nil
}

func (m *Model) reverse(ctx context.Context, r history.Record) error {
	switch rec := r.(type) {
	case history.AddNode:
		return m.undoAddNode(ctx, rec.Node)
	case history.RemoveNode:
		return m.undoRemoveNode(ctx, rec.Node, rec.Edges)
	case history.AddEdge:
		return m.undoAddEdge(ctx, rec.Edge)
	case history.RemoveEdge:
		return m.undoRemoveEdge(ctx, rec.Edge)
	case history.AddPlace:
		return m.undoAddPlace(ctx, rec.Place)
	case history.RemovePlace:
		return m.undoRemovePlace(ctx, rec.Place)
	default:
		m.logger.Error("Cannot reverse action record", "type", fmt.Sprintf("%T", r))
		return fmt.Errorf("%w: %T", ErrUnknownRecord, r)
	}
}

func (m *Model) undoAddNode(ctx context.Context, n graph.Node) error {
	if _, ok := m.node(n.ID); !ok {
		m.warn(fmt.Sprintf("node %s was already gone", n.ID))
		return nil
	}
	if err := m.store.DeleteNode(ctx, n.ID); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to delete node: %w", err)
		}
		m.warn(fmt.Sprintf("node %s was not in the store", n.ID))
	}
	m.dropNode(n.ID)
	return nil
}

func (m *Model) undoRemoveNode(ctx context.Context, n graph.Node, edges []graph.Edge) error {
	if _, ok := m.node(n.ID); ok {
		m.warn(fmt.Sprintf("node %s already exists", n.ID))
		return nil
	}

	var restore []graph.Edge
	for _, e := range edges {
		if !m.endpointsExist(e, n.ID) {
			m.warn(fmt.Sprintf("edge %s->%s not restored: endpoint missing", e.From, e.To))
			continue
		}
		if _, exists := m.edge(e.From, e.To); exists {
			continue
		}
		restore = append(restore, e)
	}

	if err := m.store.InsertNode(ctx, n, restore...); err != nil {
		return fmt.Errorf("failed to restore node: %w", err)
	}
	m.nodes = append(m.nodes, n)
	m.edges = append(m.edges, restore...)
	return nil
}

// endpointsExist reports whether both ends of e exist, treating pending as
// existing.
func (m *Model) endpointsExist(e graph.Edge, pending string) bool {
	for _, id := range []string{e.From, e.To} {
		if id == pending {
			continue
		}
		if _, ok := m.node(id); !ok {
			return false
		}
	}
	return true
}

func (m *Model) undoAddEdge(ctx context.Context, e graph.Edge) error {
	if _, ok := m.edge(e.From, e.To); !ok {
		m.warn(fmt.Sprintf("edge %s->%s was already gone", e.From, e.To))
		return nil
	}
	if err := m.store.DeleteEdge(ctx, e.From, e.To); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to delete edge: %w", err)
		}
		m.warn(fmt.Sprintf("edge %s->%s was not in the store", e.From, e.To))
	}
	m.dropEdge(e.From, e.To)
	return nil
}

func (m *Model) undoRemoveEdge(ctx context.Context, e graph.Edge) error {
	if !m.endpointsExist(e, "") {
		m.warn(fmt.Sprintf("edge %s->%s not restored: endpoint missing", e.From, e.To))
		return nil
	}
	if _, exists := m.edge(e.From, e.To); exists {
		return nil
	}
	if err := m.store.InsertEdge(ctx, e); err != nil {
		return fmt.Errorf("failed to restore edge: %w", err)
	}
	m.edges = append(m.edges, e)
	return nil
}

func (m *Model) undoAddPlace(ctx context.Context, sp graph.SpecialPlace) error {
	if _, ok := m.place(sp.ID); !ok {
		m.warn(fmt.Sprintf("special place %s was already gone", sp.ID))
		return nil
	}
	if err := m.store.DeletePlace(ctx, sp.ID); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to delete special place: %w", err)
		}
		m.warn(fmt.Sprintf("special place %s was not in the store", sp.ID))
	}
	m.dropPlace(sp.ID)
	return nil
}

func (m *Model) undoRemovePlace(ctx context.Context, sp graph.SpecialPlace) error {
	if _, ok := m.place(sp.ID); ok {
		m.warn(fmt.Sprintf("special place %s already exists", sp.ID))
		return nil
	}
	if err := m.store.InsertPlace(ctx, sp); err != nil {
		return fmt.Errorf("failed to restore special place: %w", err)
	}
	m.places = append(m.places, sp)
	return nil
}
