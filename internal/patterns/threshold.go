package patterns

import (
	"strconv"

	"github.com/shopspring/decimal"

	"chainanalytics/internal/config"
	"chainanalytics/internal/model"
	"chainanalytics/internal/store"
)

// ThresholdDetector implements spec §4.4.7: per-address outgoing amounts
// clustered just below configured reporting thresholds.
type ThresholdDetector struct {
	gw      *store.Gateway
	section config.Section
}

func NewThresholdDetector(gw *store.Gateway, cfg *config.DetectorConfig) (*ThresholdDetector, error) {
	section, err := requireSection(cfg, config.SectionThresholdDetection)
	if err != nil {
		return nil, err
	}
	return &ThresholdDetector{gw: gw, section: section}, nil
}

func (d *ThresholdDetector) Detect(network string, addresses []string, t0, t1, now int64) ([]model.ThresholdPattern, error) {
	nearLowerPct, err := d.section.Require(config.SectionThresholdDetection, network, "near_lower_pct")
	if err != nil {
		return nil, err
	}
	nearUpperPct, err := d.section.Require(config.SectionThresholdDetection, network, "near_upper_pct")
	if err != nil {
		return nil, err
	}
	minNear, err := d.section.Require(config.SectionThresholdDetection, network, "min_transactions_near_threshold")
	if err != nil {
		return nil, err
	}
	clusteringThreshold, err := d.section.Require(config.SectionThresholdDetection, network, "clustering_score_threshold")
	if err != nil {
		return nil, err
	}
	consistencyThreshold, err := d.section.Require(config.SectionThresholdDetection, network, "consistency_threshold")
	if err != nil {
		return nil, err
	}
	wCluster, err := d.section.Require(config.SectionThresholdDetection, network, "w_cluster")
	if err != nil {
		return nil, err
	}
	wConsistency, err := d.section.Require(config.SectionThresholdDetection, network, "w_consistency")
	if err != nil {
		return nil, err
	}
	wTemporal, err := d.section.Require(config.SectionThresholdDetection, network, "w_temporal")
	if err != nil {
		return nil, err
	}
	thresholds, ok := d.section.GetList("thresholds")
	if !ok || len(thresholds) == 0 {
		return nil, model.NewError(model.KindConfigMissing, "config", "threshold_detection.thresholds", nil)
	}
	if len(addresses) == 0 {
		return nil, nil
	}

	events, err := d.gw.IncidentEvents(network, addresses, t0, t1)
	if err != nil {
		return nil, err
	}

	var out []model.ThresholdPattern
	for _, addr := range addresses {
		evs := events[addr]
		var outgoing []store.IncidentEvent
		for _, e := range evs {
			if e.IsOutgoing {
				outgoing = append(outgoing, e)
			}
		}
		if len(outgoing) == 0 {
			continue
		}

		for _, threshold := range thresholds {
			lower := threshold * nearLowerPct
			upper := threshold * nearUpperPct

			var near []float64
			var nearTimestamps []int64
			for _, e := range outgoing {
				if e.AmountUSD >= lower && e.AmountUSD <= upper {
					near = append(near, e.AmountUSD)
					nearTimestamps = append(nearTimestamps, e.TimestampMs)
				}
			}
			if int64(len(near)) < int64(minNear) {
				continue
			}

			clusteringScore := float64(len(near)) / float64(len(outgoing))
			if clusteringScore < clusteringThreshold {
				continue
			}

			mean, std := meanStd(near)
			consistency := 0.0
			if mean > 0 {
				consistency = clip01(1 - std/mean)
			}
			if consistency < consistencyThreshold {
				continue
			}

			temporalSpread := temporalSpreadScore(nearTimestamps)
			avoidanceScore := wCluster*clusteringScore + wConsistency*consistency + wTemporal*temporalSpread

			header := model.NewHeader(model.PatternThresholdEvasion, []string{addr}, []string{"primary"}, now)
			header.PatternID = string(model.PatternThresholdEvasion) + "_" + model.PatternHash(
				model.PatternThresholdEvasion, []string{addr, "reporting", strconv.FormatFloat(threshold, 'f', -1, 64)})
			header.DetectionMethod = "near_threshold_clustering"
			header.EvidenceTransactionCount = int64(len(near))
			var volume decimal.Decimal
			for _, v := range near {
				volume = volume.Add(decimal.NewFromFloat(v))
			}
			header.EvidenceVolumeUSD = volume

			out = append(out, model.ThresholdPattern{
				PatternHeader: header, ThresholdType: "reporting",
				ThresholdValue: decimal.NewFromFloat(threshold), TransactionsNearThreshold: int64(len(near)),
				ClusteringScore: clusteringScore, SizeConsistency: consistency,
				AvoidanceScore: avoidanceScore, PrimaryAddress: addr,
			})
		}
	}
	return out, nil
}

// temporalSpreadScore rewards evasive behavior spread across a wider time
// range rather than bunched in one moment: the normalized span of
// near-threshold timestamps relative to the full observation window.
func temporalSpreadScore(timestampsMs []int64) float64 {
	if len(timestampsMs) < 2 {
		return 0
	}
	minTs, maxTs := timestampsMs[0], timestampsMs[0]
	for _, t := range timestampsMs {
		if t < minTs {
			minTs = t
		}
		if t > maxTs {
			maxTs = t
		}
	}
	spanDays := float64(maxTs-minTs) / 86_400_000
	return clip01(spanDays / 30)
}
