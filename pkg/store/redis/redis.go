package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/rmax-ai/mapgraph/pkg/geometry"
	"github.com/rmax-ai/mapgraph/pkg/graph"
	"github.com/rmax-ai/mapgraph/pkg/store"
)

// DefaultPrefix namespaces the keys of one graph.
const DefaultPrefix = "mapgraph"

// edgeSep joins the endpoints of an edge into a hash field. Node ids are
// generated and never contain it.
const edgeSep = "\x1f"

// Store is a GraphStore over three redis hashes:
//
//	<prefix>:nodes   id -> {"x":..,"y":..,"seq":..}
//	<prefix>:edges   from\x1fto -> {"from":..,"to":..,"weight":..,"kind":..,"seq":..}
//	<prefix>:places  id -> {"name":..,"x":..,"y":..,"seq":..}
//	<prefix>:seq     counter handing out seq values
//
// seq records insertion order, which hashes do not keep. Multi-key changes
// run in WATCH/MULTI/EXEC so they commit together.
type Store struct {
	client *redis.Client
	prefix string
}

var _ store.GraphStore = (*Store)(nil)

// New wraps client. Close closes the client.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Dial connects to addr and checks the connection.
func Dial(ctx context.Context, addr, prefix string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return New(client, prefix), nil
}

func (s *Store) nodesKey() string  { return s.prefix + ":nodes" }
func (s *Store) edgesKey() string  { return s.prefix + ":edges" }
func (s *Store) placesKey() string { return s.prefix + ":places" }
func (s *Store) seqKey() string    { return s.prefix + ":seq" }

func edgeField(from, to string) string {
	return from + edgeSep + to
}

type nodeValue struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Seq int64   `json:"seq,omitempty"`
}

type edgeValue struct {
	graph.Edge
	Seq int64 `json:"seq,omitempty"`
}

type placeValue struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Seq  int64   `json:"seq,omitempty"`
}

// nextSeq reserves n consecutive seq values and returns the first.
func (s *Store) nextSeq(ctx context.Context, n int) (int64, error) {
	last, err := s.client.IncrBy(ctx, s.seqKey(), int64(n)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to INCRBY %s: %w", s.seqKey(), err)
	}
	return last - int64(n) + 1, nil
}

// ordered returns the keys of raw sorted by seq, then by key. Values
// written without a seq sort first.
func ordered(raw map[string]string, seqs map[string]int64) []string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		si, sj := seqs[keys[i]], seqs[keys[j]]
		if si != sj {
			return si < sj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Load reads the three hashes, each in insertion order.
func (s *Store) Load(ctx context.Context) (*graph.Snapshot, error) {
	snap := graph.NewSnapshot()

	rawNodes, err := s.client.HGetAll(ctx, s.nodesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to HGETALL %s: %w", s.nodesKey(), err)
	}
	nodes := make(map[string]nodeValue, len(rawNodes))
	seqs := make(map[string]int64, len(rawNodes))
	for id, data := range rawNodes {
		var v nodeValue
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal node %s: %w", id, err)
		}
		nodes[id] = v
		seqs[id] = v.Seq
	}
	pos := make(map[string]geometry.Point, len(rawNodes))
	for _, id := range ordered(rawNodes, seqs) {
		n := graph.Node{ID: id, Pos: geometry.Pt(nodes[id].X, nodes[id].Y)}
		snap.AddNode(n)
		pos[id] = n.Pos
	}

	rawEdges, err := s.client.HGetAll(ctx, s.edgesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to HGETALL %s: %w", s.edgesKey(), err)
	}
	edges := make(map[string]graph.Edge, len(rawEdges))
	seqs = make(map[string]int64, len(rawEdges))
	for field, data := range rawEdges {
		var v edgeValue
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal edge %q: %w", field, err)
		}
		edges[field] = v.Edge
		seqs[field] = v.Seq
	}
	for _, field := range ordered(rawEdges, seqs) {
		e := edges[field]
		if e.Kind == "" {
			e.Kind = graph.KindFor(geometry.ModeForWeight(pos[e.From], pos[e.To], e.Weight))
		}
		snap.AddEdge(e)
	}

	rawPlaces, err := s.client.HGetAll(ctx, s.placesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to HGETALL %s: %w", s.placesKey(), err)
	}
	places := make(map[string]placeValue, len(rawPlaces))
	seqs = make(map[string]int64, len(rawPlaces))
	for id, data := range rawPlaces {
		var v placeValue
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal special place %s: %w", id, err)
		}
		places[id] = v
		seqs[id] = v.Seq
	}
	for _, id := range ordered(rawPlaces, seqs) {
		v := places[id]
		snap.AddPlace(graph.SpecialPlace{ID: id, Name: v.Name, Pos: geometry.Pt(v.X, v.Y)})
	}

	return snap, nil
}

// SaveAll replaces the three hashes in one MULTI/EXEC and restarts the
// seq counter after the last entity written.
func (s *Store) SaveAll(ctx context.Context, snap *graph.Snapshot) error {
	nodes, err := encodeNodes(snap.Nodes, 1)
	if err != nil {
		return err
	}
	edges, err := encodeEdges(snap.Edges, int64(len(snap.Nodes))+1)
	if err != nil {
		return err
	}
	seq := int64(len(snap.Nodes) + len(snap.Edges))
	places := make(map[string]any, len(snap.Places))
	for _, p := range snap.Places {
		seq++
		data, err := json.Marshal(placeValue{Name: p.Name, X: p.Pos.X, Y: p.Pos.Y, Seq: seq})
		if err != nil {
			return fmt.Errorf("failed to marshal special place %s: %w", p.ID, err)
		}
		places[p.ID] = data
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.nodesKey(), s.edgesKey(), s.placesKey())
		p.Set(ctx, s.seqKey(), seq, 0)
		if len(nodes) > 0 {
			p.HSet(ctx, s.nodesKey(), nodes)
		}
		if len(edges) > 0 {
			p.HSet(ctx, s.edgesKey(), edges)
		}
		if len(places) > 0 {
			p.HSet(ctx, s.placesKey(), places)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}
	return nil
}

// encodeNodes numbers nodes from first on.
func encodeNodes(nodes []graph.Node, first int64) (map[string]any, error) {
	out := make(map[string]any, len(nodes))
	for i, n := range nodes {
		data, err := json.Marshal(nodeValue{X: n.Pos.X, Y: n.Pos.Y, Seq: first + int64(i)})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal node %s: %w", n.ID, err)
		}
		out[n.ID] = data
	}
	return out, nil
}

func encodeEdges(edges []graph.Edge, first int64) (map[string]any, error) {
	out := make(map[string]any, len(edges))
	for i, e := range edges {
		data, err := json.Marshal(edgeValue{Edge: e, Seq: first + int64(i)})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal edge %s->%s: %w", e.From, e.To, err)
		}
		out[edgeField(e.From, e.To)] = data
	}
	return out, nil
}

// InsertNode stores the node and its edges together. Every edge endpoint
// other than the node itself must already be stored.
func (s *Store) InsertNode(ctx context.Context, node graph.Node, edges ...graph.Edge) error {
	seq, err := s.nextSeq(ctx, 1+len(edges))
	if err != nil {
		return err
	}
	nodeData, err := encodeNodes([]graph.Node{node}, seq)
	if err != nil {
		return err
	}
	edgeData, err := encodeEdges(edges, seq+1)
	if err != nil {
		return err
	}

	return s.watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, s.nodesKey(), node.ID).Result()
		if err != nil {
			return fmt.Errorf("failed to HEXISTS node %s: %w", node.ID, err)
		}
		if exists {
			return fmt.Errorf("node %s: %w", node.ID, store.ErrConflict)
		}
		for _, e := range edges {
			for _, end := range []string{e.From, e.To} {
				if end == node.ID {
					continue
				}
				ok, err := tx.HExists(ctx, s.nodesKey(), end).Result()
				if err != nil {
					return fmt.Errorf("failed to HEXISTS node %s: %w", end, err)
				}
				if !ok {
					return fmt.Errorf("edge %s->%s: %w", e.From, e.To, store.ErrMissingEndpoint)
				}
			}
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, s.nodesKey(), nodeData)
			if len(edgeData) > 0 {
				p.HSet(ctx, s.edgesKey(), edgeData)
			}
			return nil
		})
		return err
	}, s.nodesKey(), s.edgesKey())
}

// DeleteNode removes the node and every edge touching it.
func (s *Store) DeleteNode(ctx context.Context, id string) error {
	return s.watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, s.nodesKey(), id).Result()
		if err != nil {
			return fmt.Errorf("failed to HEXISTS node %s: %w", id, err)
		}
		if !exists {
			return fmt.Errorf("node %s: %w", id, store.ErrNotFound)
		}
		fields, err := tx.HKeys(ctx, s.edgesKey()).Result()
		if err != nil {
			return fmt.Errorf("failed to HKEYS %s: %w", s.edgesKey(), err)
		}
		var incident []string
		for _, f := range fields {
			from, to, _ := strings.Cut(f, edgeSep)
			if from == id || to == id {
				incident = append(incident, f)
			}
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HDel(ctx, s.nodesKey(), id)
			if len(incident) > 0 {
				p.HDel(ctx, s.edgesKey(), incident...)
			}
			return nil
		})
		return err
	}, s.nodesKey(), s.edgesKey())
}

// InsertEdge stores an edge between two stored nodes.
func (s *Store) InsertEdge(ctx context.Context, edge graph.Edge) error {
	seq, err := s.nextSeq(ctx, 1)
	if err != nil {
		return err
	}
	data, err := json.Marshal(edgeValue{Edge: edge, Seq: seq})
	if err != nil {
		return fmt.Errorf("failed to marshal edge %s->%s: %w", edge.From, edge.To, err)
	}
	field := edgeField(edge.From, edge.To)

	return s.watch(ctx, func(tx *redis.Tx) error {
		for _, end := range []string{edge.From, edge.To} {
			ok, err := tx.HExists(ctx, s.nodesKey(), end).Result()
			if err != nil {
				return fmt.Errorf("failed to HEXISTS node %s: %w", end, err)
			}
			if !ok {
				return fmt.Errorf("edge %s->%s: %w", edge.From, edge.To, store.ErrMissingEndpoint)
			}
		}
		exists, err := tx.HExists(ctx, s.edgesKey(), field).Result()
		if err != nil {
			return fmt.Errorf("failed to HEXISTS edge: %w", err)
		}
		if exists {
			return fmt.Errorf("edge %s->%s: %w", edge.From, edge.To, store.ErrConflict)
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, s.edgesKey(), field, data)
			return nil
		})
		return err
	}, s.nodesKey(), s.edgesKey())
}

// DeleteEdge removes exactly from -> to.
func (s *Store) DeleteEdge(ctx context.Context, from, to string) error {
	n, err := s.client.HDel(ctx, s.edgesKey(), edgeField(from, to)).Result()
	if err != nil {
		return fmt.Errorf("failed to HDEL edge %s->%s: %w", from, to, err)
	}
	if n == 0 {
		return fmt.Errorf("edge %s->%s: %w", from, to, store.ErrNotFound)
	}
	return nil
}

// EdgeWeight reads the stored weight of from -> to.
func (s *Store) EdgeWeight(ctx context.Context, from, to string) (float64, bool, error) {
	data, err := s.client.HGet(ctx, s.edgesKey(), edgeField(from, to)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to HGET edge %s->%s: %w", from, to, err)
	}
	var e edgeValue
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return 0, false, fmt.Errorf("failed to unmarshal edge %s->%s: %w", from, to, err)
	}
	return e.Weight, true, nil
}

// InsertPlace stores a special place.
func (s *Store) InsertPlace(ctx context.Context, place graph.SpecialPlace) error {
	seq, err := s.nextSeq(ctx, 1)
	if err != nil {
		return err
	}
	data, err := json.Marshal(placeValue{Name: place.Name, X: place.Pos.X, Y: place.Pos.Y, Seq: seq})
	if err != nil {
		return fmt.Errorf("failed to marshal special place %s: %w", place.ID, err)
	}
	ok, err := s.client.HSetNX(ctx, s.placesKey(), place.ID, data).Result()
	if err != nil {
		return fmt.Errorf("failed to HSETNX special place %s: %w", place.ID, err)
	}
	if !ok {
		return fmt.Errorf("special place %s: %w", place.ID, store.ErrConflict)
	}
	return nil
}

// DeletePlace removes a special place.
func (s *Store) DeletePlace(ctx context.Context, id string) error {
	n, err := s.client.HDel(ctx, s.placesKey(), id).Result()
	if err != nil {
		return fmt.Errorf("failed to HDEL special place %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("special place %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// watch runs fn under WATCH on keys and retries a few times if another
// client touched them before EXEC.
func (s *Store) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	const maxRetries = 3
	var err error
	for i := 0; i < maxRetries; i++ {
		err = s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("transaction on %s kept conflicting: %w", strings.Join(keys, ","), err)
}
