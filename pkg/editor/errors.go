package editor

import (
	"errors"
	"fmt"
)

// Reason classifies a rejected operation.
type Reason string

const (
	ReasonDuplicateEdge  Reason = "duplicate_edge"
	ReasonMissingNode    Reason = "missing_node"
	ReasonSelfLoop       Reason = "self_loop"
	ReasonDegenerateEdge Reason = "degenerate_edge"
	ReasonEmptyName      Reason = "empty_name"
	ReasonNodeAtPosition Reason = "node_at_position"
	ReasonBadPosition    Reason = "invalid_position"
	ReasonNotFound       Reason = "not_found"
	ReasonNothingToUndo  Reason = "nothing_to_undo"
)

// Rejection is returned when an operation's preconditions do not hold.
// The model is unchanged. Match with errors.Is against the Err* values or
// extract the reason with errors.As.
type Rejection struct {
	Reason Reason
}

func (r *Rejection) Error() string {
	return string(r.Reason)
}

var (
	ErrDuplicateEdge  = &Rejection{Reason: ReasonDuplicateEdge}
	ErrMissingNode    = &Rejection{Reason: ReasonMissingNode}
	ErrSelfLoop       = &Rejection{Reason: ReasonSelfLoop}
	ErrDegenerateEdge = &Rejection{Reason: ReasonDegenerateEdge}
	ErrEmptyName      = &Rejection{Reason: ReasonEmptyName}
	ErrNodeAtPosition = &Rejection{Reason: ReasonNodeAtPosition}
	ErrBadPosition    = &Rejection{Reason: ReasonBadPosition}
	ErrNotFound       = &Rejection{Reason: ReasonNotFound}
	ErrNothingToUndo  = &Rejection{Reason: ReasonNothingToUndo}
)

// ErrUnknownRecord aborts an undo whose record has no reversal. The record
// stays on the log.
var ErrUnknownRecord = errors.New("unknown action record")

func reject(base *Rejection, format string, args ...any) error {
	return fmt.Errorf("%w: %s", base, fmt.Sprintf(format, args...))
}

// ReasonOf returns the rejection reason carried by err, if any.
func ReasonOf(err error) (Reason, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Reason, true
	}
	return "", false
}
