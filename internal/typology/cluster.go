package typology

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"chainanalytics/internal/model"
)

// ClusterSameEntity groups alerts by address and emits a same_entity
// cluster whenever an address accumulated at least min_alerts distinct
// (address, typology) alerts (spec §4.6, invariant §8(10)).
func (d *Detector) ClusterSameEntity(network, processingDate string, alerts []model.Alert, featuresByAddress map[string]decimal.Decimal) []model.AlertCluster {
	minAlerts := d.clustering.Values["min_alerts"]

	byAddress := make(map[string][]model.Alert)
	for _, a := range alerts {
		byAddress[a.Address] = append(byAddress[a.Address], a)
	}

	addrs := make([]string, 0, len(byAddress))
	for addr := range byAddress {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	var out []model.AlertCluster
	for _, addr := range addrs {
		group := dedupByAlertID(byAddress[addr])
		if float64(len(group)) < minAlerts {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].AlertID < group[j].AlertID })

		var relatedIDs []string
		severityMax := model.SeverityLow
		var confidenceSum float64
		for _, a := range group {
			relatedIDs = append(relatedIDs, a.AlertID)
			severityMax = model.MaxSeverity(severityMax, a.Severity)
			confidenceSum += a.ConfidenceScore
		}

		totalVolume := featuresByAddress[addr]

		clusterID := uuid.NewSHA1(uuid.NameSpaceDNS, []byte("same_entity-"+addr+"-"+processingDate)).String()
		out = append(out, model.AlertCluster{
			ClusterID:         clusterID,
			ClusterType:       "same_entity",
			PrimaryAlertID:    group[0].AlertID,
			RelatedAlertIDs:   relatedIDs,
			AddressesInvolved: []string{addr},
			TotalAlerts:       int64(len(group)),
			TotalVolumeUSD:    totalVolume,
			SeverityMax:       severityMax,
			ConfidenceAvg:     confidenceSum / float64(len(group)),
		})
	}
	return out
}

// dedupByAlertID collapses alerts sharing an AlertID (structuralFanOut can
// emit several for the same (address, typology) pair) so counts and
// related-ID lists reflect distinct (address, typology) pairs, per
// invariant §8(10).
func dedupByAlertID(alerts []model.Alert) []model.Alert {
	seen := make(map[string]bool, len(alerts))
	out := make([]model.Alert, 0, len(alerts))
	for _, a := range alerts {
		if seen[a.AlertID] {
			continue
		}
		seen[a.AlertID] = true
		out = append(out, a)
	}
	return out
}
