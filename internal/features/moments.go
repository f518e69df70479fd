// Package features builds the per-address FeatureVector of spec §3/§4.3:
// statistical moments, temporal entropy, flow-structure ratios and graph
// analytics folded over the windowed transaction graph. Moments follow the
// teacher's gonum/stat usage (internal/server/risk_assessor.go).
package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Moments holds the distributional summary of one address's outgoing
// transaction amounts, derived from the store's raw (n, Σx, Σx², Σx³, Σx⁴)
// sums.
type Moments struct {
	Variance float64
	StdDev   float64
	Skewness float64
	Kurtosis float64
	CV       float64
}

// FromRawSums derives variance/skewness/kurtosis from the raw power sums
// the store computed server-side, avoiding a second pass over the raw
// amounts. volumeCV = std / max(mean, 1.0) per spec §4.3.
func FromRawSums(n int64, sumX, sumX2, sumX3, sumX4 float64) Moments {
	if n < 2 {
		return Moments{}
	}
	fn := float64(n)
	mean := sumX / fn
	variance := sumX2/fn - mean*mean
	if variance < 0 {
		variance = 0
	}
	std := math.Sqrt(variance)

	var skew, kurt float64
	if std > 0 {
		m3 := sumX3/fn - 3*mean*sumX2/fn + 2*mean*mean*mean
		m4 := sumX4/fn - 4*mean*sumX3/fn + 6*mean*mean*sumX2/fn - 3*mean*mean*mean*mean
		skew = m3 / (std * std * std)
		kurt = m4/(variance*variance) - 3
	}

	cv := std / math.Max(mean, 1.0)
	return Moments{Variance: variance, StdDev: std, Skewness: skew, Kurtosis: kurt, CV: cv}
}

// FromSamples computes the same moments directly from a sample slice,
// using gonum/stat where a direct formula isn't simpler (mean/variance),
// and the closed-form factorial adjustment gonum doesn't provide for
// skewness/kurtosis.
func FromSamples(xs []float64) Moments {
	if len(xs) < 2 {
		return Moments{}
	}
	mean := stat.Mean(xs, nil)
	variance := stat.Variance(xs, nil)
	std := math.Sqrt(variance)

	var skew, kurt float64
	if std > 0 {
		n := float64(len(xs))
		var m3, m4 float64
		for _, x := range xs {
			d := x - mean
			m3 += d * d * d
			m4 += d * d * d * d
		}
		m3 /= n
		m4 /= n
		skew = m3 / (std * std * std)
		kurt = m4/(variance*variance) - 3
	}
	cv := std / math.Max(mean, 1.0)
	return Moments{Variance: variance, StdDev: std, Skewness: skew, Kurtosis: kurt, CV: cv}
}

// Gini computes the Gini coefficient of a non-negative distribution
// (volume concentration across counterparties, spec §4.3's
// flow_concentration family).
func Gini(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	var sumX, weighted float64
	for i, x := range sorted {
		sumX += x
		weighted += float64(i+1) * x
	}
	if sumX == 0 {
		return 0
	}
	return (2*weighted)/(float64(n)*sumX) - float64(n+1)/float64(n)
}

// Burstiness is the Goh-Barabasi burstiness parameter over inter-event
// intervals: (std-mean)/(std+mean) when mean+std>0, clipped to [0,1]
// (spec §4.3).
func Burstiness(n int64, meanInterEvent, stdInterEvent float64) float64 {
	if n < 2 {
		return 0
	}
	denom := stdInterEvent + meanInterEvent
	if denom <= 0 {
		return 0
	}
	b := (stdInterEvent - meanInterEvent) / denom
	if b < 0 {
		return 0
	}
	if b > 1 {
		return 1
	}
	return b
}
