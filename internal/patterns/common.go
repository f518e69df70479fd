// Package patterns implements the seven structural-pattern detectors of
// spec §4.4: cycle, layering, network (anomalous_scc + smurfing_community),
// proximity, motif, temporal burst and threshold evasion. Every detector
// validates its configuration section on construction and returns
// ConfigMissing otherwise; every detector supports network_overrides.
package patterns

import (
	"math"
	"sort"

	"chainanalytics/internal/config"
	"chainanalytics/internal/model"
)

// percentile computes the p-th percentile (0-100) of a float64 slice using
// linear interpolation between closest ranks, the common definition the
// teacher's risk/statistics code in internal/server assumes elsewhere.
func percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func zScore(value, mean, std float64) float64 {
	if std == 0 {
		return 0
	}
	return (value - mean) / std
}

func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	std = math.Sqrt(sq / float64(len(xs)))
	return mean, std
}

// adjustSeverity applies the trust/fraud sensitivity spec §4.4 requires of
// the network and proximity detectors only.
func adjustSeverity(base float64, participants []string, labels *model.LabelCache) float64 {
	if labels == nil {
		return base
	}
	trusted, fraudulent := labels.TrustFraudFraction(participants)
	return model.AdjustSeverity(base, trusted, fraudulent)
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// sortedCopy returns a sorted copy without mutating the input, for
// canonical pattern identity (spec §3/§8(3)).
func sortedCopy(xs []string) []string {
	out := append([]string(nil), xs...)
	sort.Strings(out)
	return out
}

// requireSection is the construction-time validation every detector runs:
// missing section is ConfigMissing (spec §4.4).
func requireSection(cfg *config.DetectorConfig, name string) (config.Section, error) {
	return cfg.Section(name)
}
