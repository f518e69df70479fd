package store

import "chainanalytics/internal/model"

// AuditRecord is one row of the computation_audit table: written exactly
// once per successful run (spec §4.7 step 6, §7).
type AuditRecord struct {
	Network        string
	WindowDays     int64
	ProcessingDate string
	StartedAtMs    int64
	EndedAtMs      int64
	DurationS      float64
}

// WriteAudit inserts the single audit row marking a successful run. The
// orchestrator calls this only after every prior stage has returned
// without a fatal error (spec §7's "a partial run never reaches the audit
// stage").
func (gw *Gateway) WriteAudit(rec AuditRecord) error {
	row := AuditRow{
		Network: rec.Network, WindowDays: rec.WindowDays, ProcessingDate: rec.ProcessingDate,
		StartedAt: rec.StartedAtMs, EndedAt: rec.EndedAtMs, DurationS: rec.DurationS,
	}
	if err := gw.db.Create(&row).Error; err != nil {
		return model.NewError(model.KindTransientDB, "store", "write audit row", err)
	}
	return nil
}

// HasAudit reports whether a partition already has a completed run
// recorded, letting the orchestrator skip redundant reprocessing.
func (gw *Gateway) HasAudit(p Partition) (bool, error) {
	var count int64
	if err := p.where(gw.db.Model(&AuditRow{})).Count(&count).Error; err != nil {
		return false, model.NewError(model.KindTransientDB, "store", "check audit row", err)
	}
	return count > 0, nil
}
