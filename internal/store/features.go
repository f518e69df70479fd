package store

import (
	"gorm.io/gorm"

	"chainanalytics/internal/model"
)

// ReplaceFeatures deletes the partition's existing feature rows and
// inserts the given set inside one transaction (spec §4.5/§6).
func (gw *Gateway) ReplaceFeatures(p Partition, features []model.FeatureVector) error {
	return gw.db.Transaction(func(tx *gorm.DB) error {
		if err := p.where(tx).Delete(&FeatureRow{}).Error; err != nil {
			return model.NewError(model.KindTransientDB, "store", "delete feature partition", err)
		}
		if len(features) == 0 {
			return nil
		}
		rows := make([]FeatureRow, 0, len(features))
		for _, f := range features {
			rows = append(rows, featureToRow(p, f))
		}
		if err := tx.CreateInBatches(rows, 500).Error; err != nil {
			return model.NewError(model.KindTransientDB, "store", "insert features", err)
		}
		return nil
	})
}

// LoadFeatures reads back every feature row in a partition, the input the
// structural-pattern and typology detectors consume (spec §4.7 steps 4/5).
func (gw *Gateway) LoadFeatures(p Partition) ([]model.FeatureVector, error) {
	var rows []FeatureRow
	if err := p.where(gw.db).Find(&rows).Error; err != nil {
		return nil, model.NewError(model.KindTransientDB, "store", "load features", err)
	}
	out := make([]model.FeatureVector, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowToFeature(r))
	}
	return out, nil
}

func featureToRow(p Partition, f model.FeatureVector) FeatureRow {
	return FeatureRow{
		Network: p.Network, WindowDays: p.WindowDays, ProcessingDate: p.ProcessingDate,
		Address: f.Address,

		TotalInUSD: f.TotalInUSD, TotalOutUSD: f.TotalOutUSD, NetFlowUSD: f.NetFlowUSD,
		TotalVolumeUSD: f.TotalVolumeUSD, AvgTxUSD: f.AvgTxUSD, MedianTxUSD: f.MedianTxUSD,
		MaxTxUSD: f.MaxTxUSD, MinTxUSD: f.MinTxUSD,

		DegreeIn: f.DegreeIn, DegreeOut: f.DegreeOut, DegreeTotal: f.DegreeTotal,
		UniqueCounterparties: f.UniqueCounterparties, UniqueSendersCount: f.UniqueSendersCount,
		UniqueRecipientsCount: f.UniqueRecipientsCount,

		AmountVariance: f.AmountVariance, VolumeStd: f.VolumeStd, VolumeCV: f.VolumeCV,
		AmountSkewness: f.AmountSkewness, AmountKurtosis: f.AmountKurtosis,

		ActivityDays: f.ActivityDays, ActivitySpanDays: f.ActivitySpanDays,
		AvgDailyVolumeUSD: f.AvgDailyVolumeUSD, PeakHour: f.PeakHour, PeakDay: f.PeakDay,
		HourlyEntropy: f.HourlyEntropy, DailyEntropy: f.DailyEntropy, RegularityScore: f.RegularityScore,
		BurstFactor: f.BurstFactor, WeekendTransactionRatio: f.WeekendTransactionRatio,
		NightTransactionRatio: f.NightTransactionRatio, ConsistencyScore: f.ConsistencyScore,
		IsNewAddress: f.IsNewAddress,
		HourlyActivity: toJSON(f.HourlyActivity), DailyActivity: toJSON(f.DailyActivity),

		ReciprocityRatio: f.ReciprocityRatio, FlowConcentration: f.FlowConcentration,
		FlowDiversity: f.FlowDiversity, CounterpartyConcentration: f.CounterpartyConcentration,
		ConcentrationRatio: f.ConcentrationRatio, InOutRatio: f.InOutRatio, FlowAsymmetry: f.FlowAsymmetry,
		DominantFlowDirection: string(f.DominantFlowDirection), FlowDirectionEntropy: f.FlowDirectionEntropy,
		CounterpartyOverlapRatio: f.CounterpartyOverlapRatio,

		RoundNumberRatio: f.RoundNumberRatio, UnusualTimingScore: f.UnusualTimingScore,
		StructuringScore: f.StructuringScore, SmallTransactionRatio: f.SmallTransactionRatio,

		PageRank: f.PageRank, Betweenness: f.Betweenness, Closeness: f.Closeness,
		ClusteringCoefficient: f.ClusteringCoefficient, KCore: f.KCore, CommunityID: f.CommunityID,
		CentralityScore: f.CentralityScore, Degree: f.Degree,

		Khop1Count: f.Khop1Count, Khop1VolumeUSD: f.Khop1VolumeUSD,
		Khop2Count: f.Khop2Count, Khop2VolumeUSD: f.Khop2VolumeUSD,
		Khop3Count: f.Khop3Count, Khop3VolumeUSD: f.Khop3VolumeUSD,

		FlowReciprocityEntropy: f.FlowReciprocityEntropy, CounterpartyStability: f.CounterpartyStability,
		FlowBurstiness: f.FlowBurstiness, TransactionRegularity: f.TransactionRegularity,
		AmountPredictability: f.AmountPredictability,

		TxInCount: f.TxInCount, TxOutCount: f.TxOutCount, TxTotalCount: f.TxTotalCount,
	}
}

func rowToFeature(r FeatureRow) model.FeatureVector {
	return model.FeatureVector{
		Address: r.Address, Network: r.Network, WindowDays: r.WindowDays, ProcessingDate: r.ProcessingDate,

		TotalInUSD: r.TotalInUSD, TotalOutUSD: r.TotalOutUSD, NetFlowUSD: r.NetFlowUSD,
		TotalVolumeUSD: r.TotalVolumeUSD, AvgTxUSD: r.AvgTxUSD, MedianTxUSD: r.MedianTxUSD,
		MaxTxUSD: r.MaxTxUSD, MinTxUSD: r.MinTxUSD,

		DegreeIn: r.DegreeIn, DegreeOut: r.DegreeOut, DegreeTotal: r.DegreeTotal,
		UniqueCounterparties: r.UniqueCounterparties, UniqueSendersCount: r.UniqueSendersCount,
		UniqueRecipientsCount: r.UniqueRecipientsCount,

		AmountVariance: r.AmountVariance, VolumeStd: r.VolumeStd, VolumeCV: r.VolumeCV,
		AmountSkewness: r.AmountSkewness, AmountKurtosis: r.AmountKurtosis,

		ActivityDays: r.ActivityDays, ActivitySpanDays: r.ActivitySpanDays,
		AvgDailyVolumeUSD: r.AvgDailyVolumeUSD, PeakHour: r.PeakHour, PeakDay: r.PeakDay,
		HourlyEntropy: r.HourlyEntropy, DailyEntropy: r.DailyEntropy, RegularityScore: r.RegularityScore,
		BurstFactor: r.BurstFactor, WeekendTransactionRatio: r.WeekendTransactionRatio,
		NightTransactionRatio: r.NightTransactionRatio, ConsistencyScore: r.ConsistencyScore,
		IsNewAddress: r.IsNewAddress,
		HourlyActivity: fromJSONInt64Array24(r.HourlyActivity), DailyActivity: fromJSONInt64Array7(r.DailyActivity),

		ReciprocityRatio: r.ReciprocityRatio, FlowConcentration: r.FlowConcentration,
		FlowDiversity: r.FlowDiversity, CounterpartyConcentration: r.CounterpartyConcentration,
		ConcentrationRatio: r.ConcentrationRatio, InOutRatio: r.InOutRatio, FlowAsymmetry: r.FlowAsymmetry,
		DominantFlowDirection: model.DominantFlowDirection(r.DominantFlowDirection), FlowDirectionEntropy: r.FlowDirectionEntropy,
		CounterpartyOverlapRatio: r.CounterpartyOverlapRatio,

		RoundNumberRatio: r.RoundNumberRatio, UnusualTimingScore: r.UnusualTimingScore,
		StructuringScore: r.StructuringScore, SmallTransactionRatio: r.SmallTransactionRatio,

		PageRank: r.PageRank, Betweenness: r.Betweenness, Closeness: r.Closeness,
		ClusteringCoefficient: r.ClusteringCoefficient, KCore: r.KCore, CommunityID: r.CommunityID,
		CentralityScore: r.CentralityScore, Degree: r.Degree,

		Khop1Count: r.Khop1Count, Khop1VolumeUSD: r.Khop1VolumeUSD,
		Khop2Count: r.Khop2Count, Khop2VolumeUSD: r.Khop2VolumeUSD,
		Khop3Count: r.Khop3Count, Khop3VolumeUSD: r.Khop3VolumeUSD,

		FlowReciprocityEntropy: r.FlowReciprocityEntropy, CounterpartyStability: r.CounterpartyStability,
		FlowBurstiness: r.FlowBurstiness, TransactionRegularity: r.TransactionRegularity,
		AmountPredictability: r.AmountPredictability,

		TxInCount: r.TxInCount, TxOutCount: r.TxOutCount, TxTotalCount: r.TxTotalCount,
	}
}
