// Package history records reversible editor mutations.
//
// Each Record carries exactly what is needed to reverse the mutation it
// describes. The set of record types is closed: only this package can add
// one, so a reversal switch over the cases is exhaustive.
package history

import (
	"github.com/rmax-ai/mapgraph/pkg/graph"
)

// Record is one reversible mutation.
type Record interface {
	// Kind names the mutation for status messages and logs.
	Kind() string

	sealed()
}

// AddNode reverses by deleting Node.
type AddNode struct {
	Node graph.Node
}

// RemoveNode reverses by reinserting Node and those Edges whose endpoints
// both exist at undo time.
type RemoveNode struct {
	Node  graph.Node
	Edges []graph.Edge
}

// AddEdge reverses by deleting the ordered pair of Edge.
type AddEdge struct {
	Edge graph.Edge
}

// RemoveEdge reverses by reinserting Edge with its original weight.
type RemoveEdge struct {
	Edge graph.Edge
}

// AddPlace reverses by deleting Place.
type AddPlace struct {
	Place graph.SpecialPlace
}

// RemovePlace reverses by reinserting Place.
type RemovePlace struct {
	Place graph.SpecialPlace
}

func (AddNode) Kind() string     { return "add_node" }
func (RemoveNode) Kind() string  { return "remove_node" }
func (AddEdge) Kind() string     { return "add_edge" }
func (RemoveEdge) Kind() string  { return "remove_edge" }
func (AddPlace) Kind() string    { return "add_special_place" }
func (RemovePlace) Kind() string { return "remove_special_place" }

func (AddNode) sealed()     {}
func (RemoveNode) sealed()  {}
func (AddEdge) sealed()     {}
func (RemoveEdge) sealed()  {}
func (AddPlace) sealed()    {}
func (RemovePlace) sealed() {}

// Log is a LIFO stack of records, optionally bounded. When full, pushing
// drops the oldest record. Log is not safe for concurrent use.
type Log struct {
	records []Record
	limit   int
}

// NewLog creates a log holding at most limit records; 0 means unbounded.
func NewLog(limit int) *Log {
	if limit < 0 {
		limit = 0
	}
	return &Log{limit: limit}
}

// Push appends r. It reports whether an old record was dropped to make room.
func (l *Log) Push(r Record) bool {
	l.records = append(l.records, r)
	if l.limit > 0 && len(l.records) > l.limit {
		copy(l.records, l.records[1:])
		l.records[len(l.records)-1] = nil
		l.records = l.records[:len(l.records)-1]
		return true
	}
	return false
}

// Pop removes and returns the newest record.
func (l *Log) Pop() (Record, bool) {
	if len(l.records) == 0 {
		return nil, false
	}
	last := len(l.records) - 1
	r := l.records[last]
	l.records[last] = nil
	l.records = l.records[:last]
	return r, true
}

// Peek returns the newest record without removing it.
func (l *Log) Peek() (Record, bool) {
	if len(l.records) == 0 {
		return nil, false
	}
	return l.records[len(l.records)-1], true
}

// Restore puts r back on top after a failed reversal. Unlike Push it never
// drops anything, so a log that was full before Pop is full again.
func (l *Log) Restore(r Record) {
	l.records = append(l.records, r)
}

// Len returns the number of records.
func (l *Log) Len() int {
	return len(l.records)
}

// Limit returns the configured bound, 0 if unbounded.
func (l *Log) Limit() int {
	return l.limit
}

// Clear drops every record.
func (l *Log) Clear() {
	clear(l.records)
	l.records = l.records[:0]
}
