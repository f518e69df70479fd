package store

import (
	"gorm.io/gorm"

	"chainanalytics/internal/model"
)

// ResetPartition deletes every analyzer row owned by (network, window_days,
// processing_date) across all tables, ahead of a fresh run. Individual
// Replace* calls already delete their own table; this is for the
// orchestrator's upfront "idempotent re-run" reset (spec §4.7 step 2,
// §6) when a run is restarted from scratch rather than resumed stage by
// stage.
func (gw *Gateway) ResetPartition(p Partition) error {
	tables := []any{
		&FlowRow{}, &FeatureRow{},
		&CyclePatternRow{}, &LayeringPatternRow{}, &NetworkPatternRow{},
		&ProximityPatternRow{}, &MotifPatternRow{}, &BurstPatternRow{}, &ThresholdPatternRow{},
		&AlertRow{}, &AlertClusterRow{}, &AuditRow{},
	}
	return gw.db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			if err := p.where(tx).Delete(table).Error; err != nil {
				return model.NewError(model.KindTransientDB, "store", "reset partition", err)
			}
		}
		return nil
	})
}
