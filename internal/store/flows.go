package store

import (
	"gorm.io/gorm"

	"chainanalytics/internal/model"
)

// ReplaceFlows deletes the partition's existing flows and inserts the
// given set inside one transaction, the "delete-then-insert" idempotent
// re-run contract of spec §4.5/§6.
func (gw *Gateway) ReplaceFlows(p Partition, flows []model.Flow) error {
	return gw.db.Transaction(func(tx *gorm.DB) error {
		if err := p.where(tx).Delete(&FlowRow{}).Error; err != nil {
			return model.NewError(model.KindTransientDB, "store", "delete flow partition", err)
		}
		if len(flows) == 0 {
			return nil
		}
		rows := make([]FlowRow, 0, len(flows))
		for _, f := range flows {
			rows = append(rows, FlowRow{
				Network: p.Network, WindowDays: p.WindowDays, ProcessingDate: p.ProcessingDate,
				FromAddress: f.From, ToAddress: f.To,
				TxCount: f.TxCount, AmountSum: f.AmountSum, AmountUSDSum: f.AmountUSDSum,
				FirstSeenTimestamp: f.FirstSeenTimestamp, LastSeenTimestamp: f.LastSeenTimestamp,
				UniqueAssets: f.UniqueAssets, DominantAsset: f.DominantAsset,
				HourlyPattern: toJSON(f.HourlyPattern), WeeklyPattern: toJSON(f.WeeklyPattern),
				ReciprocityRatio: f.ReciprocityRatio, IsBidirectional: f.IsBidirectional,
			})
		}
		if err := tx.CreateInBatches(rows, 1000).Error; err != nil {
			return model.NewError(model.KindTransientDB, "store", "insert flows", err)
		}
		return nil
	})
}

// LoadFlows reads back every flow in a partition, the input the graph
// builder (internal/graphbuild) consumes (spec §4.2/§4.7 step 3).
func (gw *Gateway) LoadFlows(p Partition) ([]model.Flow, error) {
	var rows []FlowRow
	if err := p.where(gw.db).Find(&rows).Error; err != nil {
		return nil, model.NewError(model.KindTransientDB, "store", "load flows", err)
	}
	out := make([]model.Flow, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Flow{
			From: r.FromAddress, To: r.ToAddress,
			TxCount: r.TxCount, AmountSum: r.AmountSum, AmountUSDSum: r.AmountUSDSum,
			FirstSeenTimestamp: r.FirstSeenTimestamp, LastSeenTimestamp: r.LastSeenTimestamp,
			UniqueAssets: r.UniqueAssets, DominantAsset: r.DominantAsset,
			HourlyPattern: fromJSONInt64Array24(r.HourlyPattern), WeeklyPattern: fromJSONInt64Array7(r.WeeklyPattern),
			ReciprocityRatio: r.ReciprocityRatio, IsBidirectional: r.IsBidirectional,
		})
	}
	if len(out) == 0 {
		return nil, model.NewError(model.KindEmptyWindow, "store", "no flows in partition", nil)
	}
	return out, nil
}
