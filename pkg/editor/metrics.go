package editor

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

var (
	// OperationsTotal counts model operations by outcome.
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapgraph_operations_total",
			Help: "Total number of graph editor operations",
		},
		[]string{"op", "outcome"},
	)

	// Entities tracks how many nodes, edges and special places are loaded.
	Entities = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mapgraph_entities",
			Help: "Current number of graph entities by kind",
		},
		[]string{"kind"},
	)

	// UndoDepth tracks the number of undoable actions.
	UndoDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mapgraph_undo_depth",
			Help: "Number of actions on the undo log",
		},
	)
)

func init() {
	prometheus.MustRegister(OperationsTotal)
	prometheus.MustRegister(Entities)
	prometheus.MustRegister(UndoDepth)
}

func outcomeOf(err error) string {
	var r *Rejection
	switch {
	case err == nil:
		return outcomeOK
	case errors.As(err, &r):
		return outcomeRejected
	default:
		return outcomeError
	}
}

func (m *Model) observe(op string, err error) {
	OperationsTotal.WithLabelValues(op, outcomeOf(err)).Inc()
	Entities.WithLabelValues("node").Set(float64(len(m.nodes)))
	Entities.WithLabelValues("edge").Set(float64(len(m.edges)))
	Entities.WithLabelValues("special_place").Set(float64(len(m.places)))
	UndoDepth.Set(float64(m.log.Len()))
}
