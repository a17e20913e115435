package editor

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/mapgraph/pkg/geometry"
)

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	m := openModel(t, newSQLite(t))

	okBefore := testutil.ToFloat64(OperationsTotal.WithLabelValues("add_node", outcomeOK))
	rejBefore := testutil.ToFloat64(OperationsTotal.WithLabelValues("add_node", outcomeRejected))

	a, err := m.AddNode(ctx, geometry.Pt(0, 0))
	require.NoError(t, err)
	b, err := m.AddNode(ctx, geometry.Pt(30, 40))
	require.NoError(t, err)
	_, err = m.AddNode(ctx, geometry.Pt(0, 0))
	require.Error(t, err)
	_, err = m.CreateEdge(ctx, a, b)
	require.NoError(t, err)

	assert.Equal(t, okBefore+2, testutil.ToFloat64(OperationsTotal.WithLabelValues("add_node", outcomeOK)))
	assert.Equal(t, rejBefore+1, testutil.ToFloat64(OperationsTotal.WithLabelValues("add_node", outcomeRejected)))
	assert.Equal(t, 2.0, testutil.ToFloat64(Entities.WithLabelValues("node")))
	assert.Equal(t, 1.0, testutil.ToFloat64(Entities.WithLabelValues("edge")))
	assert.Equal(t, 3.0, testutil.ToFloat64(UndoDepth))

	_, err = m.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, testutil.ToFloat64(Entities.WithLabelValues("edge")))
	assert.Equal(t, 2.0, testutil.ToFloat64(UndoDepth))
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, outcomeOK, outcomeOf(nil))
	assert.Equal(t, outcomeRejected, outcomeOf(reject(ErrNotFound, "x")))
	assert.Equal(t, outcomeError, outcomeOf(ErrUnknownRecord))
}
