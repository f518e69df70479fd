package features

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"chainanalytics/internal/model"
	"chainanalytics/internal/store"
)

func openTestGateway(t *testing.T) *store.Gateway {
	t.Helper()
	gw, err := store.Open(store.Options{Driver: "sqlite", DSN: "file::memory:?cache=shared", Automigrate: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })
	return gw
}

func TestBuilder_TriangleScenario(t *testing.T) {
	gw := openTestGateway(t)

	transfers := []model.Transfer{
		{TxID: "1", BlockTimestampMs: 1_700_000_000_000, FromAddress: "A", ToAddress: "B", AssetSymbol: "USDT", Amount: decimal.NewFromInt(100), AmountUSD: decimal.NewFromInt(100)},
		{TxID: "2", BlockTimestampMs: 1_700_000_100_000, FromAddress: "B", ToAddress: "C", AssetSymbol: "USDT", Amount: decimal.NewFromInt(90), AmountUSD: decimal.NewFromInt(90)},
		{TxID: "3", BlockTimestampMs: 1_700_000_200_000, FromAddress: "C", ToAddress: "A", AssetSymbol: "USDT", Amount: decimal.NewFromInt(80), AmountUSD: decimal.NewFromInt(80)},
	}
	require.NoError(t, gw.InsertTransfers("ethereum", transfers, 10))

	window := model.Window{Start: 0, End: 1_800_000_000_000}
	flows, err := gw.WindowedPairwiseFlows("ethereum", window.Start, window.End)
	require.NoError(t, err)

	p := store.Partition{Network: "ethereum", WindowDays: 7, ProcessingDate: "2026-07-29"}
	require.NoError(t, gw.ReplaceFlows(p, flows))

	b := NewBuilder(gw, Thresholds{SmallTxUSD: decimal.NewFromInt(10), ChunkSize: 10})
	vectors, err := b.Build(context.Background(), "ethereum", window, p)
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	for _, v := range vectors {
		require.Equal(t, int64(1), v.DegreeIn)
		require.Equal(t, int64(1), v.DegreeOut)
		require.True(t, v.TotalVolumeUSD.GreaterThan(decimal.Zero))
	}
}

func TestMoments_FromRawSums(t *testing.T) {
	xs := []float64{10, 20, 30, 40, 50}
	var n int64
	var s1, s2, s3, s4 float64
	for _, x := range xs {
		n++
		s1 += x
		s2 += x * x
		s3 += x * x * x
		s4 += x * x * x * x
	}
	m := FromRawSums(n, s1, s2, s3, s4)
	require.InDelta(t, 30, s1/float64(n), 0.001)
	require.True(t, m.StdDev > 0)
}

func TestShannonEntropyBits_Uniform(t *testing.T) {
	counts := make([]int64, 24)
	for i := range counts {
		counts[i] = 1
	}
	h := ShannonEntropyBits(counts)
	require.InDelta(t, 4.58, h, 0.01) // log2(24)
	require.InDelta(t, 0.0, RegularityScore(h), 0.01)
}

func TestStructuringScore_Amplifies(t *testing.T) {
	score := StructuringScore(6, 10)
	require.InDelta(t, 0.9, score, 0.001) // 0.6 * 1.5
}
