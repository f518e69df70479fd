package store

import (
	"gorm.io/gorm"

	"chainanalytics/internal/model"
)

// ReplaceAlerts deletes and reinserts the partition's alerts (spec
// §4.5/§4.6).
func (gw *Gateway) ReplaceAlerts(p Partition, alerts []model.Alert) error {
	return gw.db.Transaction(func(tx *gorm.DB) error {
		if err := p.where(tx).Delete(&AlertRow{}).Error; err != nil {
			return model.NewError(model.KindTransientDB, "store", "delete alert partition", err)
		}
		if len(alerts) == 0 {
			return nil
		}
		rows := make([]AlertRow, 0, len(alerts))
		for _, a := range alerts {
			rows = append(rows, AlertRow{
				Network: a.Network, WindowDays: a.WindowDays, ProcessingDate: a.ProcessingDate,
				AlertID: a.AlertID, Address: a.Address, TypologyType: a.TypologyType,
				ConfidenceScore: a.ConfidenceScore, Severity: string(a.Severity),
				SuspectedAddressType: a.SuspectedAddressType, Description: a.Description,
				VolumeUSD: a.VolumeUSD, Evidence: toJSON(a.Evidence),
				RiskIndicators: toJSON(a.RiskIndicators), RelatedAddresses: toJSON(a.RelatedAddresses),
			})
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}

func (gw *Gateway) LoadAlerts(p Partition) ([]model.Alert, error) {
	var rows []AlertRow
	if err := p.where(gw.db).Find(&rows).Error; err != nil {
		return nil, model.NewError(model.KindTransientDB, "store", "load alerts", err)
	}
	out := make([]model.Alert, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Alert{
			AlertID: r.AlertID, Address: r.Address, Network: r.Network,
			WindowDays: r.WindowDays, ProcessingDate: r.ProcessingDate,
			TypologyType: r.TypologyType, ConfidenceScore: r.ConfidenceScore,
			Severity: model.Severity(r.Severity), SuspectedAddressType: r.SuspectedAddressType,
			Description: r.Description, VolumeUSD: r.VolumeUSD,
			Evidence: fromJSONMap(r.Evidence), RiskIndicators: fromJSONStrings(r.RiskIndicators),
			RelatedAddresses: fromJSONStrings(r.RelatedAddresses),
		})
	}
	return out, nil
}

// ReplaceAlertClusters deletes and reinserts the partition's alert
// clusters (spec §4.6 "same_entity" clustering).
func (gw *Gateway) ReplaceAlertClusters(p Partition, clusters []model.AlertCluster) error {
	return gw.db.Transaction(func(tx *gorm.DB) error {
		if err := p.where(tx).Delete(&AlertClusterRow{}).Error; err != nil {
			return model.NewError(model.KindTransientDB, "store", "delete cluster partition", err)
		}
		if len(clusters) == 0 {
			return nil
		}
		rows := make([]AlertClusterRow, 0, len(clusters))
		for _, c := range clusters {
			rows = append(rows, AlertClusterRow{
				Network: p.Network, WindowDays: p.WindowDays, ProcessingDate: p.ProcessingDate,
				ClusterID: c.ClusterID, ClusterType: c.ClusterType, PrimaryAlertID: c.PrimaryAlertID,
				RelatedAlertIDs: toJSON(c.RelatedAlertIDs), AddressesInvolved: toJSON(c.AddressesInvolved),
				TotalAlerts: c.TotalAlerts, TotalVolumeUSD: c.TotalVolumeUSD,
				SeverityMax: string(c.SeverityMax), ConfidenceAvg: c.ConfidenceAvg,
			})
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}

func (gw *Gateway) LoadAlertClusters(p Partition) ([]model.AlertCluster, error) {
	var rows []AlertClusterRow
	if err := p.where(gw.db).Find(&rows).Error; err != nil {
		return nil, model.NewError(model.KindTransientDB, "store", "load alert clusters", err)
	}
	out := make([]model.AlertCluster, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.AlertCluster{
			ClusterID: r.ClusterID, ClusterType: r.ClusterType, PrimaryAlertID: r.PrimaryAlertID,
			RelatedAlertIDs: fromJSONStrings(r.RelatedAlertIDs), AddressesInvolved: fromJSONStrings(r.AddressesInvolved),
			TotalAlerts: r.TotalAlerts, TotalVolumeUSD: r.TotalVolumeUSD,
			SeverityMax: model.Severity(r.SeverityMax), ConfidenceAvg: r.ConfidenceAvg,
		})
	}
	return out, nil
}
