package graphbuild

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainanalytics/internal/model"
)

func flow(from, to string, usd int64) model.Flow {
	return model.Flow{From: from, To: to, TxCount: 1, AmountUSDSum: decimal.NewFromInt(usd)}
}

func TestBuild_EmptyWindow(t *testing.T) {
	_, err := Build(nil)
	require.Error(t, err)
	assert.True(t, model.IsFatal(err))
	var e *model.Error
	require.True(t, model.AsError(err, &e))
	assert.Equal(t, model.KindEmptyWindow, e.Kind)
}

func TestBuild_DuplicateFlow(t *testing.T) {
	_, err := Build([]model.Flow{flow("A", "B", 10), flow("A", "B", 20)})
	require.Error(t, err)
	var e *model.Error
	require.True(t, model.AsError(err, &e))
	assert.Equal(t, model.KindDuplicateFlow, e.Kind)
}

func TestBuild_TriangleCycle(t *testing.T) {
	g, err := Build([]model.Flow{
		flow("A", "B", 10000),
		flow("B", "C", 12000),
		flow("C", "A", 11000),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, g.NodeCount())
	assert.ElementsMatch(t, []string{"B"}, g.Successors("A"))

	// Node volume is sum of incident edges (in+out), spec §3/§4.2.
	attrsA := g.NodeAttrs("A")
	require.NotNil(t, attrsA)
	assert.True(t, attrsA.TotalVolumeUSD.Equal(decimal.NewFromInt(10000+11000)))
}
