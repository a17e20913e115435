package graph

import (
	"fmt"
	"sort"
)

// Diff lists the differences between the persisted content of two
// snapshots: node positions, edge endpoints and weights, place names and
// positions. Order, mode flags, selection and undo depth are ignored, so an
// empty result means a store round-trip preserved the graph.
func Diff(want, got *Snapshot) []string {
	var out []string

	wantNodes := make(map[string]Node, len(want.Nodes))
	for _, n := range want.Nodes {
		wantNodes[n.ID] = n
	}
	gotNodes := make(map[string]Node, len(got.Nodes))
	for _, n := range got.Nodes {
		gotNodes[n.ID] = n
	}
	for id, w := range wantNodes {
		g, ok := gotNodes[id]
		switch {
		case !ok:
			out = append(out, fmt.Sprintf("node %s missing", id))
		case g.Pos != w.Pos:
			out = append(out, fmt.Sprintf("node %s at %v, want %v", id, g.Pos, w.Pos))
		}
	}
	for id := range gotNodes {
		if _, ok := wantNodes[id]; !ok {
			out = append(out, fmt.Sprintf("unexpected node %s", id))
		}
	}

	wantEdges := make(map[EdgeKey]Edge, len(want.Edges))
	for _, e := range want.Edges {
		wantEdges[e.Key()] = e
	}
	gotEdges := make(map[EdgeKey]Edge, len(got.Edges))
	for _, e := range got.Edges {
		gotEdges[e.Key()] = e
	}
	for k, w := range wantEdges {
		g, ok := gotEdges[k]
		switch {
		case !ok:
			out = append(out, fmt.Sprintf("edge %s->%s missing", k.From, k.To))
		case g.Weight != w.Weight:
			out = append(out, fmt.Sprintf("edge %s->%s weight %v, want %v", k.From, k.To, g.Weight, w.Weight))
		}
	}
	for k := range gotEdges {
		if _, ok := wantEdges[k]; !ok {
			out = append(out, fmt.Sprintf("unexpected edge %s->%s", k.From, k.To))
		}
	}

	wantPlaces := make(map[string]SpecialPlace, len(want.Places))
	for _, p := range want.Places {
		wantPlaces[p.ID] = p
	}
	gotPlaces := make(map[string]SpecialPlace, len(got.Places))
	for _, p := range got.Places {
		gotPlaces[p.ID] = p
	}
	for id, w := range wantPlaces {
		g, ok := gotPlaces[id]
		switch {
		case !ok:
			out = append(out, fmt.Sprintf("place %s missing", id))
		case g.Name != w.Name || g.Pos != w.Pos:
			out = append(out, fmt.Sprintf("place %s is %q at %v, want %q at %v", id, g.Name, g.Pos, w.Name, w.Pos))
		}
	}
	for id := range gotPlaces {
		if _, ok := wantPlaces[id]; !ok {
			out = append(out, fmt.Sprintf("unexpected place %s", id))
		}
	}

	sort.Strings(out)
	return out
}
