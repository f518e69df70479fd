// Package typology implements spec §4.6's address-level typology rules,
// the batched fresh_to_exchange rule, the structural-pattern fan-out rule,
// severity mapping and same_entity alert clustering.
package typology

import (
	"chainanalytics/internal/config"
	"chainanalytics/internal/model"
)

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func minRatio(v, cap float64) float64 {
	if cap <= 0 {
		return 0
	}
	r := v / cap
	if r > 1 {
		return 1
	}
	return r
}

// RuleHit is one address-level typology match pending conversion to an
// Alert.
type RuleHit struct {
	TypologyType string
	Confidence   float64
}

// addressRule evaluates one per-address typology against a feature vector
// and its resolved thresholds, returning (confidence, true) if the
// predicate holds.
type addressRule struct {
	typologyType string
	predicate    func(f model.FeatureVector, t map[string]float64) bool
	confidence   func(f model.FeatureVector, t map[string]float64) float64
	emitAt       float64
}

func dailyVelocity(f model.FeatureVector) float64 {
	days := f.ActivityDays
	if days < 1 {
		days = 1
	}
	return float64(f.TxTotalCount) / float64(days)
}

// velocityScore is a derived metric: FeatureVector carries no dedicated
// velocity field, so this normalizes daily transaction velocity the same
// way the velocity_anomaly rule's confidence blend does (spec §4.6).
func velocityScore(f model.FeatureVector) float64 {
	return minRatio(dailyVelocity(f), 20)
}

var addressRules = []addressRule{
	{
		typologyType: "peel_chain",
		predicate: func(f model.FeatureVector, t map[string]float64) bool {
			volUSD, _ := f.TotalVolumeUSD.Float64()
			return float64(f.DegreeTotal) >= t["min_recipients"] && volUSD >= t["min_volume_usd"] && f.BurstFactor < 0.3
		},
		confidence: func(f model.FeatureVector, _ map[string]float64) float64 {
			volUSD, _ := f.TotalVolumeUSD.Float64()
			return 0.4*minRatio(float64(f.DegreeTotal), 20) +
				0.3*minRatio(volUSD, 50000) +
				0.3*(1-f.BurstFactor)
		},
		emitAt: 0.6,
	},
	{
		typologyType: "structuring",
		predicate: func(f model.FeatureVector, t map[string]float64) bool {
			avgUSD, _ := f.AvgTxUSD.Float64()
			return f.StructuringScore > t["min_score"] && float64(f.TxTotalCount) >= t["min_tx"] && avgUSD < t["max_amount_usd"]
		},
		confidence: func(f model.FeatureVector, _ map[string]float64) float64 {
			avgUSD, _ := f.AvgTxUSD.Float64()
			return 0.5*f.StructuringScore +
				0.3*minRatio(float64(f.TxTotalCount), 50) +
				0.2*(1-minRatio(avgUSD, 10000))
		},
		emitAt: 0.6,
	},
	{
		typologyType: "ping_pong",
		predicate: func(f model.FeatureVector, t map[string]float64) bool {
			volUSD, _ := f.TotalVolumeUSD.Float64()
			return f.ReciprocityRatio > t["min_reciprocity"] && float64(f.DegreeTotal) < t["max_counterparties"] && volUSD >= t["min_volume_usd"]
		},
		confidence: func(f model.FeatureVector, _ map[string]float64) float64 {
			volUSD, _ := f.TotalVolumeUSD.Float64()
			return 0.5*f.ReciprocityRatio +
				0.3*(1-float64(f.DegreeTotal)/20) +
				0.2*minRatio(volUSD, 10000)
		},
		emitAt: 0.7,
	},
	{
		typologyType: "rapid_fanout",
		predicate: func(f model.FeatureVector, t map[string]float64) bool {
			volUSD, _ := f.TotalVolumeUSD.Float64()
			return float64(f.DegreeTotal) >= t["min_recipients"] && f.BurstFactor > t["min_burst"] && volUSD >= t["min_volume_usd"]
		},
		confidence: func(f model.FeatureVector, _ map[string]float64) float64 {
			volUSD, _ := f.TotalVolumeUSD.Float64()
			return 0.4*minRatio(float64(f.DegreeTotal), 50) +
				0.4*f.BurstFactor +
				0.2*minRatio(volUSD, 25000)
		},
		emitAt: 0.6,
	},
	{
		typologyType: "velocity_anomaly",
		predicate: func(f model.FeatureVector, t map[string]float64) bool {
			volUSD, _ := f.TotalVolumeUSD.Float64()
			return velocityScore(f) > t["min_velocity"] && volUSD >= t["min_volume_usd"] && f.BurstFactor > 0.7
		},
		confidence: func(f model.FeatureVector, _ map[string]float64) float64 {
			return 0.4*velocityScore(f) + 0.3*f.BurstFactor + 0.3*minRatio(dailyVelocity(f), 20)
		},
		emitAt: 0.7,
	},
}

// EvaluateAddressRules runs every per-address rule against one feature
// vector, emitting at most one alert per typology (spec §4.6). thresholds
// is the resolved typology_rules config section's values for the network.
func EvaluateAddressRules(f model.FeatureVector, section config.Section, network string) []RuleHit {
	thresholds := resolveThresholds(section, network)
	var out []RuleHit
	for _, r := range addressRules {
		if !r.predicate(f, thresholds) {
			continue
		}
		confidence := clip01(r.confidence(f, thresholds))
		if confidence < r.emitAt {
			continue
		}
		out = append(out, RuleHit{TypologyType: r.typologyType, Confidence: confidence})
	}
	return out
}

func resolveThresholds(section config.Section, network string) map[string]float64 {
	keys := []string{
		"min_recipients", "min_volume_usd", "min_score", "min_tx", "max_amount_usd",
		"min_reciprocity", "max_counterparties", "min_burst", "min_velocity",
	}
	out := make(map[string]float64, len(keys))
	for _, k := range keys {
		if v, ok := section.Get(network, k); ok {
			out[k] = v
		}
	}
	return out
}

// suspectedAddressType is the closed mapping from spec §4.6: typology and
// pattern shape decide the suspected address type on the emitted alert.
func suspectedAddressType(typologyType string, participantCount int) model.AddressType {
	switch typologyType {
	case "structuring", "peel_chain", "ping_pong", "velocity_anomaly":
		return model.AddressWallet
	case "mixing_behavior":
		return model.AddressUnknown
	case "rapid_fanout", "motif_fanin", "motif_fanout":
		if participantCount > 50 {
			return model.AddressInstitutional
		}
		return model.AddressWallet
	case "fresh_to_exchange":
		return model.AddressExchange
	default:
		return model.AddressUnknown
	}
}
