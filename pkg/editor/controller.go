package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rmax-ai/mapgraph/pkg/geometry"
	"github.com/rmax-ai/mapgraph/pkg/graph"
	"github.com/rmax-ai/mapgraph/pkg/history"
)

type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
)

func (b Button) String() string {
	if b == ButtonSecondary {
		return "secondary"
	}
	return "primary"
}

// Modifiers is a bit set of held keys.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
)

type StatusLevel string

const (
	StatusInfo  StatusLevel = "info"
	StatusWarn  StatusLevel = "warn"
	StatusError StatusLevel = "error"
)

// Status is one message for the status line.
type Status struct {
	Level   StatusLevel
	Message string
}

// PlacePrompt asks the presentation layer for a special place name. Answer
// it with OnPlaceNamed.
type PlacePrompt struct {
	Pos geometry.Point
}

// Update is what every gesture returns: the state to render and the
// messages produced on the way.
type Update struct {
	Snapshot graph.Snapshot
	Statuses []Status
	Prompt   *PlacePrompt
}

// Controller maps pointer gestures onto Model operations:
//
//	primary click                  add node, or prompt for a special place name
//	secondary click                select / connect the nearest node
//	shift + secondary click        remove special place, else edge, else node
//
// Like the Model it is not safe for concurrent use.
type Controller struct {
	model   *Model
	logger  *slog.Logger
	pending []Status
}

// NewController drives m and registers itself as m's observer.
func NewController(m *Model, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{model: m, logger: logger}
	m.setObserver(c)
	return c
}

// Model returns the driven model.
func (c *Controller) Model() *Model {
	return c.model
}

// Close releases the model's store.
func (c *Controller) Close() error {
	return c.model.Close()
}

// ModeChanged implements Observer.
func (c *Controller) ModeChanged(mode Mode, enabled bool) {
	state := "off"
	if enabled {
		state = "on"
	}
	name := "car mode"
	if mode == ModeSpecialPlace {
		name = "special place mode"
	}
	c.info("%s %s", name, state)
}

// Warn implements Observer.
func (c *Controller) Warn(msg string) {
	c.pending = append(c.pending, Status{Level: StatusWarn, Message: msg})
}

func (c *Controller) info(format string, args ...any) {
	c.pending = append(c.pending, Status{Level: StatusInfo, Message: fmt.Sprintf(format, args...)})
}

func (c *Controller) fail(op string, err error) {
	var rej *Rejection
	switch {
	case errors.As(err, &rej):
		c.pending = append(c.pending, Status{Level: StatusWarn, Message: err.Error()})
	case errors.Is(err, ErrUnknownRecord):
		c.logger.Error("Undo aborted", "error", err)
		c.pending = append(c.pending, Status{Level: StatusError, Message: err.Error()})
	default:
		c.logger.Error("Operation failed", "op", op, "error", err)
		c.pending = append(c.pending, Status{Level: StatusError, Message: fmt.Sprintf("%s failed: %v", op, err)})
	}
}

func (c *Controller) flush(prompt *PlacePrompt) Update {
	u := Update{
		Snapshot: c.model.Snapshot(),
		Statuses: c.pending,
		Prompt:   prompt,
	}
	c.pending = nil
	return u
}

// OnClickAt handles a click at scene position p.
func (c *Controller) OnClickAt(ctx context.Context, p geometry.Point, button Button, mods Modifiers) Update {
	switch {
	case button == ButtonPrimary && c.model.SpecialPlaceMode():
		c.info("name the special place at %v", p)
		return c.flush(&PlacePrompt{Pos: p})
	case button == ButtonPrimary:
		c.addNode(ctx, p)
	case mods&ModShift != 0:
		c.removeAt(ctx, p)
	default:
		c.selectAt(ctx, p)
	}
	return c.flush(nil)
}

func (c *Controller) addNode(ctx context.Context, p geometry.Point) {
	id, err := c.model.AddNode(ctx, p)
	if err != nil {
		c.fail("add node", err)
		return
	}
	c.info("added node %s at %v", id, p)
}

func (c *Controller) selectAt(ctx context.Context, p geometry.Point) {
	id, ok := c.model.FindClosestNode(p, c.model.Tolerances().Node)
	if !ok {
		c.info("no node near %v", p)
		return
	}
	e, err := c.model.SelectOrConnect(ctx, id)
	if err != nil {
		c.fail("connect", err)
		return
	}
	if e == nil {
		c.info("selected node %s", id)
		return
	}
	c.info("created %s edge %s->%s weight %v", e.Kind, e.From, e.To, e.Weight)
}

// removeAt removes the special place under p, else the edge, else the node.
func (c *Controller) removeAt(ctx context.Context, p geometry.Point) {
	tol := c.model.Tolerances()

	if id, ok := c.model.FindClosestSpecialPlace(p, tol.Place); ok {
		if err := c.model.RemoveSpecialPlace(ctx, id); err != nil {
			c.fail("remove special place", err)
			return
		}
		c.info("removed special place %s", id)
		return
	}
	if e, ok := c.model.FindClickedEdge(p); ok {
		if err := c.model.RemoveEdge(ctx, e.From, e.To); err != nil {
			c.fail("remove edge", err)
			return
		}
		c.info("removed edge %s->%s", e.From, e.To)
		return
	}
	if id, ok := c.model.FindClosestNode(p, tol.Node); ok {
		if err := c.model.RemoveNode(ctx, id); err != nil {
			c.fail("remove node", err)
			return
		}
		c.info("removed node %s", id)
		return
	}
	c.info("nothing to remove near %v", p)
}

// OnPlaceNamed completes a PlacePrompt.
func (c *Controller) OnPlaceNamed(ctx context.Context, prompt PlacePrompt, name string) Update {
	id, err := c.model.AddSpecialPlace(ctx, prompt.Pos, name)
	if err != nil {
		c.fail("add special place", err)
		return c.flush(nil)
	}
	c.info("added special place %s (%s)", id, name)
	return c.flush(nil)
}

// OnModeToggle flips mode.
func (c *Controller) OnModeToggle(ctx context.Context, mode Mode) Update {
	switch mode {
	case ModeSpecialPlace:
		c.model.SetSpecialPlaceMode(!c.model.SpecialPlaceMode())
	case ModeCar:
		c.model.SetCarMode(!c.model.CarMode())
	default:
		c.pending = append(c.pending, Status{Level: StatusWarn, Message: fmt.Sprintf("unknown mode %q", mode)})
	}
	return c.flush(nil)
}

// OnUndoRequested reverses the newest action.
func (c *Controller) OnUndoRequested(ctx context.Context) Update {
	r, err := c.model.Undo(ctx)
	if err != nil {
		c.fail("undo", err)
		return c.flush(nil)
	}
	c.info("undid %s", describe(r))
	return c.flush(nil)
}

// OnSaveRequested writes the whole graph to the store.
func (c *Controller) OnSaveRequested(ctx context.Context) Update {
	if err := c.model.Save(ctx); err != nil {
		c.fail("save", err)
		return c.flush(nil)
	}
	c.info("saved")
	return c.flush(nil)
}

// OnCancelSelection drops a half-built edge.
func (c *Controller) OnCancelSelection() Update {
	c.model.CancelSelection()
	c.info("selection cleared")
	return c.flush(nil)
}

func describe(r history.Record) string {
	switch rec := r.(type) {
	case history.AddNode:
		return fmt.Sprintf("add node %s", rec.Node.ID)
	case history.RemoveNode:
		return fmt.Sprintf("remove node %s (%d edges)", rec.Node.ID, len(rec.Edges))
	case history.AddEdge:
		return fmt.Sprintf("add edge %s->%s", rec.Edge.From, rec.Edge.To)
	case history.RemoveEdge:
		return fmt.Sprintf("remove edge %s->%s", rec.Edge.From, rec.Edge.To)
	case history.AddPlace:
		return fmt.Sprintf("add special place %s", rec.Place.Name)
	case history.RemovePlace:
		return fmt.Sprintf("remove special place %s", rec.Place.Name)
	default:
		return r.Kind()
	}
}
