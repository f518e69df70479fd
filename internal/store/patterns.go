package store

import (
	"gorm.io/gorm"

	"chainanalytics/internal/model"
)

func toHeaderRow(h model.PatternHeader) patternHeaderColumns {
	return patternHeaderColumns{
		Network: h.Network, WindowDays: h.WindowDays, ProcessingDate: h.ProcessingDate,
		PatternID: h.PatternID, PatternType: string(h.PatternType), PatternHash: h.PatternHash,
		AddressesInvolved: toJSON(h.AddressesInvolved), AddressRoles: toJSON(h.AddressRoles),
		DetectionTimestamp: h.DetectionTimestamp, EvidenceTransactionCount: h.EvidenceTransactionCount,
		EvidenceVolumeUSD: h.EvidenceVolumeUSD, DetectionMethod: h.DetectionMethod,
	}
}

func fromHeaderRow(c patternHeaderColumns, network string, windowDays int64, processingDate string) model.PatternHeader {
	return model.PatternHeader{
		PatternID: c.PatternID, PatternType: model.PatternType(c.PatternType), PatternHash: c.PatternHash,
		AddressesInvolved: fromJSONStrings(c.AddressesInvolved), AddressRoles: fromJSONStrings(c.AddressRoles),
		DetectionTimestamp: c.DetectionTimestamp, EvidenceTransactionCount: c.EvidenceTransactionCount,
		EvidenceVolumeUSD: c.EvidenceVolumeUSD, DetectionMethod: c.DetectionMethod,
		Network: network, WindowDays: windowDays, ProcessingDate: processingDate,
	}
}

// ReplaceCyclePatterns deletes and reinserts the partition's cycle
// patterns (spec §4.4.1 / §4.5).
func (gw *Gateway) ReplaceCyclePatterns(p Partition, patterns []model.CyclePattern) error {
	return gw.db.Transaction(func(tx *gorm.DB) error {
		if err := p.where(tx).Delete(&CyclePatternRow{}).Error; err != nil {
			return model.NewError(model.KindTransientDB, "store", "delete cycle partition", err)
		}
		if len(patterns) == 0 {
			return nil
		}
		rows := make([]CyclePatternRow, 0, len(patterns))
		for _, pat := range patterns {
			rows = append(rows, CyclePatternRow{
				patternHeaderColumns: toHeaderRow(pat.PatternHeader),
				CyclePath:            toJSON(pat.CyclePath),
				CycleLength:          pat.CycleLength,
				CycleVolumeUSD:       pat.CycleVolumeUSD,
			})
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}

func (gw *Gateway) LoadCyclePatterns(p Partition) ([]model.CyclePattern, error) {
	var rows []CyclePatternRow
	if err := p.where(gw.db).Find(&rows).Error; err != nil {
		return nil, model.NewError(model.KindTransientDB, "store", "load cycle patterns", err)
	}
	out := make([]model.CyclePattern, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.CyclePattern{
			PatternHeader:  fromHeaderRow(r.patternHeaderColumns, p.Network, p.WindowDays, p.ProcessingDate),
			CyclePath:      fromJSONStrings(r.CyclePath),
			CycleLength:    r.CycleLength,
			CycleVolumeUSD: r.CycleVolumeUSD,
		})
	}
	return out, nil
}

// ReplaceLayeringPatterns deletes and reinserts the partition's layering
// patterns (spec §4.4.2).
func (gw *Gateway) ReplaceLayeringPatterns(p Partition, patterns []model.LayeringPattern) error {
	return gw.db.Transaction(func(tx *gorm.DB) error {
		if err := p.where(tx).Delete(&LayeringPatternRow{}).Error; err != nil {
			return model.NewError(model.KindTransientDB, "store", "delete layering partition", err)
		}
		if len(patterns) == 0 {
			return nil
		}
		rows := make([]LayeringPatternRow, 0, len(patterns))
		for _, pat := range patterns {
			rows = append(rows, LayeringPatternRow{
				patternHeaderColumns: toHeaderRow(pat.PatternHeader),
				PathDepth:            pat.PathDepth, SourceAddress: pat.SourceAddress,
				DestinationAddress: pat.DestinationAddress, AmountCV: pat.AmountCV,
			})
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}

func (gw *Gateway) LoadLayeringPatterns(p Partition) ([]model.LayeringPattern, error) {
	var rows []LayeringPatternRow
	if err := p.where(gw.db).Find(&rows).Error; err != nil {
		return nil, model.NewError(model.KindTransientDB, "store", "load layering patterns", err)
	}
	out := make([]model.LayeringPattern, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.LayeringPattern{
			PatternHeader: fromHeaderRow(r.patternHeaderColumns, p.Network, p.WindowDays, p.ProcessingDate),
			PathDepth:     r.PathDepth, SourceAddress: r.SourceAddress,
			DestinationAddress: r.DestinationAddress, AmountCV: r.AmountCV,
		})
	}
	return out, nil
}

// ReplaceNetworkPatterns deletes and reinserts the partition's network
// patterns; covers both sub-detectors (anomalous_scc, smurfing_community)
// that both write to this table (spec §4.4.3).
func (gw *Gateway) ReplaceNetworkPatterns(p Partition, patterns []model.NetworkPattern) error {
	return gw.db.Transaction(func(tx *gorm.DB) error {
		if err := p.where(tx).Delete(&NetworkPatternRow{}).Error; err != nil {
			return model.NewError(model.KindTransientDB, "store", "delete network partition", err)
		}
		if len(patterns) == 0 {
			return nil
		}
		rows := make([]NetworkPatternRow, 0, len(patterns))
		for _, pat := range patterns {
			rows = append(rows, NetworkPatternRow{
				patternHeaderColumns: toHeaderRow(pat.PatternHeader),
				SubTag:               pat.SubTag, NetworkMembers: toJSON(pat.NetworkMembers),
				NetworkSize: pat.NetworkSize, NetworkDensity: pat.NetworkDensity,
				HubAddresses: toJSON(pat.HubAddresses), SeverityScore: pat.SeverityScore,
			})
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}

func (gw *Gateway) LoadNetworkPatterns(p Partition) ([]model.NetworkPattern, error) {
	var rows []NetworkPatternRow
	if err := p.where(gw.db).Find(&rows).Error; err != nil {
		return nil, model.NewError(model.KindTransientDB, "store", "load network patterns", err)
	}
	out := make([]model.NetworkPattern, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.NetworkPattern{
			PatternHeader: fromHeaderRow(r.patternHeaderColumns, p.Network, p.WindowDays, p.ProcessingDate),
			SubTag:        r.SubTag, NetworkMembers: fromJSONStrings(r.NetworkMembers),
			NetworkSize: r.NetworkSize, NetworkDensity: r.NetworkDensity,
			HubAddresses: fromJSONStrings(r.HubAddresses), SeverityScore: r.SeverityScore,
		})
	}
	return out, nil
}

// ReplaceProximityPatterns deletes and reinserts the partition's
// proximity-risk patterns (spec §4.4.4).
func (gw *Gateway) ReplaceProximityPatterns(p Partition, patterns []model.ProximityPattern) error {
	return gw.db.Transaction(func(tx *gorm.DB) error {
		if err := p.where(tx).Delete(&ProximityPatternRow{}).Error; err != nil {
			return model.NewError(model.KindTransientDB, "store", "delete proximity partition", err)
		}
		if len(patterns) == 0 {
			return nil
		}
		rows := make([]ProximityPatternRow, 0, len(patterns))
		for _, pat := range patterns {
			rows = append(rows, ProximityPatternRow{
				patternHeaderColumns: toHeaderRow(pat.PatternHeader),
				RiskSource:           pat.RiskSource, Suspect: pat.Suspect,
				DistanceToRisk: pat.DistanceToRisk, RiskPropagationScore: pat.RiskPropagationScore,
				SeverityScore: pat.SeverityScore,
			})
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}

func (gw *Gateway) LoadProximityPatterns(p Partition) ([]model.ProximityPattern, error) {
	var rows []ProximityPatternRow
	if err := p.where(gw.db).Find(&rows).Error; err != nil {
		return nil, model.NewError(model.KindTransientDB, "store", "load proximity patterns", err)
	}
	out := make([]model.ProximityPattern, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.ProximityPattern{
			PatternHeader: fromHeaderRow(r.patternHeaderColumns, p.Network, p.WindowDays, p.ProcessingDate),
			RiskSource:    r.RiskSource, Suspect: r.Suspect,
			DistanceToRisk: r.DistanceToRisk, RiskPropagationScore: r.RiskPropagationScore,
			SeverityScore: r.SeverityScore,
		})
	}
	return out, nil
}

// ReplaceMotifPatterns deletes and reinserts the partition's motif
// patterns (spec §4.4.5).
func (gw *Gateway) ReplaceMotifPatterns(p Partition, patterns []model.MotifPattern) error {
	return gw.db.Transaction(func(tx *gorm.DB) error {
		if err := p.where(tx).Delete(&MotifPatternRow{}).Error; err != nil {
			return model.NewError(model.KindTransientDB, "store", "delete motif partition", err)
		}
		if len(patterns) == 0 {
			return nil
		}
		rows := make([]MotifPatternRow, 0, len(patterns))
		for _, pat := range patterns {
			rows = append(rows, MotifPatternRow{
				patternHeaderColumns: toHeaderRow(pat.PatternHeader),
				MotifType:            pat.MotifType, MotifCenterAddress: pat.MotifCenterAddress,
				MotifParticipantCount: pat.MotifParticipantCount,
			})
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}

func (gw *Gateway) LoadMotifPatterns(p Partition) ([]model.MotifPattern, error) {
	var rows []MotifPatternRow
	if err := p.where(gw.db).Find(&rows).Error; err != nil {
		return nil, model.NewError(model.KindTransientDB, "store", "load motif patterns", err)
	}
	out := make([]model.MotifPattern, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.MotifPattern{
			PatternHeader: fromHeaderRow(r.patternHeaderColumns, p.Network, p.WindowDays, p.ProcessingDate),
			MotifType:     r.MotifType, MotifCenterAddress: r.MotifCenterAddress,
			MotifParticipantCount: r.MotifParticipantCount,
		})
	}
	return out, nil
}

// ReplaceBurstPatterns deletes and reinserts the partition's burst
// patterns (spec §4.4.6).
func (gw *Gateway) ReplaceBurstPatterns(p Partition, patterns []model.BurstPattern) error {
	return gw.db.Transaction(func(tx *gorm.DB) error {
		if err := p.where(tx).Delete(&BurstPatternRow{}).Error; err != nil {
			return model.NewError(model.KindTransientDB, "store", "delete burst partition", err)
		}
		if len(patterns) == 0 {
			return nil
		}
		rows := make([]BurstPatternRow, 0, len(patterns))
		for _, pat := range patterns {
			rows = append(rows, BurstPatternRow{
				patternHeaderColumns: toHeaderRow(pat.PatternHeader),
				BurstAddress:         pat.BurstAddress,
				BurstStartTimestamp:  pat.BurstStartTimestamp, BurstEndTimestamp: pat.BurstEndTimestamp,
				BurstDurationSeconds: pat.BurstDurationSeconds, BurstTransactionCount: pat.BurstTransactionCount,
				BurstVolumeUSD: pat.BurstVolumeUSD, NormalTxRate: pat.NormalTxRate, BurstTxRate: pat.BurstTxRate,
				BurstIntensity: pat.BurstIntensity, ZScore: pat.ZScore,
				HourlyDistribution: toJSON(pat.HourlyDistribution), PeakHours: toJSON(pat.PeakHours),
			})
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}

func (gw *Gateway) LoadBurstPatterns(p Partition) ([]model.BurstPattern, error) {
	var rows []BurstPatternRow
	if err := p.where(gw.db).Find(&rows).Error; err != nil {
		return nil, model.NewError(model.KindTransientDB, "store", "load burst patterns", err)
	}
	out := make([]model.BurstPattern, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.BurstPattern{
			PatternHeader:       fromHeaderRow(r.patternHeaderColumns, p.Network, p.WindowDays, p.ProcessingDate),
			BurstAddress:        r.BurstAddress,
			BurstStartTimestamp: r.BurstStartTimestamp, BurstEndTimestamp: r.BurstEndTimestamp,
			BurstDurationSeconds: r.BurstDurationSeconds, BurstTransactionCount: r.BurstTransactionCount,
			BurstVolumeUSD: r.BurstVolumeUSD, NormalTxRate: r.NormalTxRate, BurstTxRate: r.BurstTxRate,
			BurstIntensity: r.BurstIntensity, ZScore: r.ZScore,
			HourlyDistribution: fromJSONInt64Array24(r.HourlyDistribution), PeakHours: fromJSONInts(r.PeakHours),
		})
	}
	return out, nil
}

// ReplaceThresholdPatterns deletes and reinserts the partition's
// threshold-evasion patterns (spec §4.4.7).
func (gw *Gateway) ReplaceThresholdPatterns(p Partition, patterns []model.ThresholdPattern) error {
	return gw.db.Transaction(func(tx *gorm.DB) error {
		if err := p.where(tx).Delete(&ThresholdPatternRow{}).Error; err != nil {
			return model.NewError(model.KindTransientDB, "store", "delete threshold partition", err)
		}
		if len(patterns) == 0 {
			return nil
		}
		rows := make([]ThresholdPatternRow, 0, len(patterns))
		for _, pat := range patterns {
			rows = append(rows, ThresholdPatternRow{
				patternHeaderColumns: toHeaderRow(pat.PatternHeader),
				ThresholdType:        pat.ThresholdType, ThresholdValue: pat.ThresholdValue,
				TransactionsNearThreshold: pat.TransactionsNearThreshold, ClusteringScore: pat.ClusteringScore,
				SizeConsistency: pat.SizeConsistency, AvoidanceScore: pat.AvoidanceScore,
				PrimaryAddress: pat.PrimaryAddress,
			})
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}

func (gw *Gateway) LoadThresholdPatterns(p Partition) ([]model.ThresholdPattern, error) {
	var rows []ThresholdPatternRow
	if err := p.where(gw.db).Find(&rows).Error; err != nil {
		return nil, model.NewError(model.KindTransientDB, "store", "load threshold patterns", err)
	}
	out := make([]model.ThresholdPattern, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.ThresholdPattern{
			PatternHeader: fromHeaderRow(r.patternHeaderColumns, p.Network, p.WindowDays, p.ProcessingDate),
			ThresholdType: r.ThresholdType, ThresholdValue: r.ThresholdValue,
			TransactionsNearThreshold: r.TransactionsNearThreshold, ClusteringScore: r.ClusteringScore,
			SizeConsistency: r.SizeConsistency, AvoidanceScore: r.AvoidanceScore,
			PrimaryAddress: r.PrimaryAddress,
		})
	}
	return out, nil
}

// LoadAllPatternHeaders reads the header columns across every pattern
// table in a partition, the unified view the typology detector's
// fan-out rule and the alert clustering stage read (spec §4.6).
func (gw *Gateway) LoadAllPatternHeaders(p Partition) ([]model.PatternHeader, error) {
	var all []model.PatternHeader

	if rows, err := gw.LoadCyclePatterns(p); err == nil {
		for _, r := range rows {
			all = append(all, r.PatternHeader)
		}
	}
	if rows, err := gw.LoadLayeringPatterns(p); err == nil {
		for _, r := range rows {
			all = append(all, r.PatternHeader)
		}
	}
	if rows, err := gw.LoadNetworkPatterns(p); err == nil {
		for _, r := range rows {
			all = append(all, r.PatternHeader)
		}
	}
	if rows, err := gw.LoadProximityPatterns(p); err == nil {
		for _, r := range rows {
			all = append(all, r.PatternHeader)
		}
	}
	if rows, err := gw.LoadMotifPatterns(p); err == nil {
		for _, r := range rows {
			all = append(all, r.PatternHeader)
		}
	}
	if rows, err := gw.LoadBurstPatterns(p); err == nil {
		for _, r := range rows {
			all = append(all, r.PatternHeader)
		}
	}
	if rows, err := gw.LoadThresholdPatterns(p); err == nil {
		for _, r := range rows {
			all = append(all, r.PatternHeader)
		}
	}
	return all, nil
}
