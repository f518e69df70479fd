package store

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"chainanalytics/internal/model"
)

func openTestGateway(t *testing.T) *Gateway {
	t.Helper()
	gw, err := Open(Options{Driver: "sqlite", DSN: "file::memory:?cache=shared", Automigrate: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })
	return gw
}

func TestGateway_TransferFlowRoundTrip(t *testing.T) {
	gw := openTestGateway(t)

	transfers := []model.Transfer{
		{TxID: "0x1", EventIndex: 0, EdgeIndex: 0, BlockHeight: 100, BlockTimestampMs: 1_700_000_000_000,
			FromAddress: "0xA", ToAddress: "0xB", AssetSymbol: "USDT",
			Amount: decimal.NewFromInt(100), AmountUSD: decimal.NewFromInt(100)},
		{TxID: "0x2", EventIndex: 0, EdgeIndex: 0, BlockHeight: 101, BlockTimestampMs: 1_700_000_100_000,
			FromAddress: "0xA", ToAddress: "0xB", AssetSymbol: "USDT",
			Amount: decimal.NewFromInt(50), AmountUSD: decimal.NewFromInt(50)},
		{TxID: "0x3", EventIndex: 0, EdgeIndex: 0, BlockHeight: 102, BlockTimestampMs: 1_700_000_200_000,
			FromAddress: "0xB", ToAddress: "0xA", AssetSymbol: "USDT",
			Amount: decimal.NewFromInt(10), AmountUSD: decimal.NewFromInt(10)},
	}
	require.NoError(t, gw.InsertTransfers("ethereum", transfers, 10))

	flows, err := gw.WindowedPairwiseFlows("ethereum", 0, 1_800_000_000_000)
	require.NoError(t, err)
	require.Len(t, flows, 2)

	p := Partition{Network: "ethereum", WindowDays: 7, ProcessingDate: "2026-07-29"}
	require.NoError(t, gw.ReplaceFlows(p, flows))

	loaded, err := gw.LoadFlows(p)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	var ab model.Flow
	for _, f := range loaded {
		if f.From == "0xA" && f.To == "0xB" {
			ab = f
		}
	}
	require.Equal(t, int64(2), ab.TxCount)
	require.True(t, ab.AmountUSDSum.Equal(decimal.NewFromInt(150)))
	require.True(t, ab.IsBidirectional)
}

func TestGateway_EmptyPartitionIsEmptyWindow(t *testing.T) {
	gw := openTestGateway(t)
	p := Partition{Network: "ethereum", WindowDays: 7, ProcessingDate: "2026-07-29"}
	_, err := gw.LoadFlows(p)
	require.Error(t, err)
	var e *model.Error
	require.True(t, model.AsError(err, &e))
	require.Equal(t, model.KindEmptyWindow, e.Kind)
}

func TestGateway_FeatureRoundTrip(t *testing.T) {
	gw := openTestGateway(t)
	p := Partition{Network: "ethereum", WindowDays: 7, ProcessingDate: "2026-07-29"}

	features := []model.FeatureVector{{
		Address: "0xA", Network: "ethereum", WindowDays: 7, ProcessingDate: "2026-07-29",
		TotalInUSD: decimal.NewFromInt(10), TotalOutUSD: decimal.NewFromInt(20),
		DominantFlowDirection: model.FlowOutgoing,
	}}
	require.NoError(t, gw.ReplaceFeatures(p, features))

	loaded, err := gw.LoadFeatures(p)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, model.FlowOutgoing, loaded[0].DominantFlowDirection)
	require.True(t, loaded[0].TotalOutUSD.Equal(decimal.NewFromInt(20)))
}

func TestGateway_CyclePatternRoundTrip(t *testing.T) {
	gw := openTestGateway(t)
	p := Partition{Network: "ethereum", WindowDays: 7, ProcessingDate: "2026-07-29"}

	addrs := []string{"0xA", "0xB", "0xC"}
	header := model.NewHeader(model.PatternCycle, addrs, []string{"member", "member", "member"}, 1_700_000_000_000)
	header.Network, header.WindowDays, header.ProcessingDate = p.Network, p.WindowDays, p.ProcessingDate

	patterns := []model.CyclePattern{{
		PatternHeader: header, CyclePath: addrs, CycleLength: 3, CycleVolumeUSD: decimal.NewFromInt(300),
	}}
	require.NoError(t, gw.ReplaceCyclePatterns(p, patterns))

	loaded, err := gw.LoadCyclePatterns(p)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, header.PatternID, loaded[0].PatternID)
	require.Equal(t, addrs, loaded[0].CyclePath)

	headers, err := gw.LoadAllPatternHeaders(p)
	require.NoError(t, err)
	require.Len(t, headers, 1)
}

func TestGateway_AlertRoundTrip(t *testing.T) {
	gw := openTestGateway(t)
	p := Partition{Network: "ethereum", WindowDays: 7, ProcessingDate: "2026-07-29"}

	alert := model.Alert{
		AlertID: model.AlertID("0xA", "structuring", "2026-07-29"),
		Address: "0xA", Network: p.Network, WindowDays: p.WindowDays, ProcessingDate: p.ProcessingDate,
		TypologyType: "structuring", ConfidenceScore: 0.8, Severity: model.SeverityHigh,
		VolumeUSD: decimal.NewFromInt(5000), RiskIndicators: []string{"round_amounts"},
	}
	require.NoError(t, gw.ReplaceAlerts(p, []model.Alert{alert}))

	loaded, err := gw.LoadAlerts(p)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, alert.AlertID, loaded[0].AlertID)
	require.Equal(t, []string{"round_amounts"}, loaded[0].RiskIndicators)
}

func TestGateway_AddressLabelUpsertAndFraud(t *testing.T) {
	gw := openTestGateway(t)
	require.NoError(t, gw.UpsertAddressLabels([]model.AddressLabel{
		{Network: "ethereum", Address: "0xBAD", TrustLevel: model.TrustUnknown, AddressType: model.AddressMixer},
	}))
	labels, err := gw.LoadAddressLabels("ethereum")
	require.NoError(t, err)
	require.Len(t, labels, 1)
	require.True(t, labels[0].IsFraudulent())
}
