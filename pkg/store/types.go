package store

import (
	"context"
	"errors"

	"github.com/rmax-ai/mapgraph/pkg/graph"
)

// Backend names accepted by configuration.
const (
	BackendSQLite   = "sqlite"
	BackendDocument = "document"
	BackendRedis    = "redis"
)

var (
	// ErrNotFound is returned when a delete targets a row that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrMissingEndpoint is returned when an edge references a node the
	// store does not hold. Such an edge is never persisted.
	ErrMissingEndpoint = errors.New("edge endpoint does not exist")

	// ErrConflict is returned when an insert reuses an existing identity.
	ErrConflict = errors.New("already exists")
)

// GraphStore persists the editor graph. Every mutating call is durable when
// it returns nil, except for the document store with autosave disabled,
// which becomes durable on the next SaveAll.
type GraphStore interface {
	// Load reads the whole graph. An empty store yields an empty snapshot.
	Load(ctx context.Context) (*graph.Snapshot, error)

	// SaveAll replaces the stored graph with the nodes, edges and places of snap.
	SaveAll(ctx context.Context, snap *graph.Snapshot) error

	// InsertNode stores a node, and optionally edges incident to it, in one commit.
	InsertNode(ctx context.Context, node graph.Node, edges ...graph.Edge) error

	// DeleteNode removes a node and every edge touching it in one commit.
	DeleteNode(ctx context.Context, id string) error

	// InsertEdge stores an edge. Both endpoints must already be stored.
	InsertEdge(ctx context.Context, edge graph.Edge) error

	// DeleteEdge removes the edge from -> to.
	DeleteEdge(ctx context.Context, from, to string) error

	// EdgeWeight returns the stored weight of from -> to. The bool is false
	// if no such edge is stored.
	EdgeWeight(ctx context.Context, from, to string) (float64, bool, error)

	// InsertPlace stores a special place.
	InsertPlace(ctx context.Context, place graph.SpecialPlace) error

	// DeletePlace removes a special place.
	DeletePlace(ctx context.Context, id string) error

	// Close releases the underlying connection or file handles.
	Close() error
}
