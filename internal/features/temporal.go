package features

import "math"

// ShannonEntropyBits is the Shannon entropy, in bits, of a nonnegative
// activity-count histogram (spec §4.3's hourly/daily entropy).
func ShannonEntropyBits(counts []int64) float64 {
	var total int64
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(total)
		h -= p * math.Log2(p)
	}
	return h
}

// RegularityScore is 1 - hourly_entropy/log2(24), per spec §4.3; clipped
// to [0,1] since a degenerate histogram can drive entropy slightly above
// log2(24) only through floating point error.
func RegularityScore(hourlyEntropyBits float64) float64 {
	score := 1 - hourlyEntropyBits/math.Log2(24)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// StructuringScore is small_count/total, amplified by 1.5x when the small
// fraction exceeds 0.5 with at least 3 small transactions, clipped to 1
// (spec §4.3).
func StructuringScore(smallCount, totalCount int64) float64 {
	if totalCount == 0 {
		return 0
	}
	ratio := float64(smallCount) / float64(totalCount)
	score := ratio
	if ratio > 0.5 && smallCount >= 3 {
		score *= 1.5
	}
	if score > 1 {
		return 1
	}
	return score
}

// PeakIndex returns the index of the largest bucket, 0 if all buckets
// are zero.
func PeakIndex(counts []int64) int {
	peak, peakIdx := int64(-1), 0
	for i, c := range counts {
		if c > peak {
			peak, peakIdx = c, i
		}
	}
	return peakIdx
}

// FlowReciprocityEntropy is the binary Shannon entropy of the reciprocity
// ratio against its complement, clipped to [0,1] bits (spec §4.3).
func FlowReciprocityEntropy(reciprocityRatio float64) float64 {
	p := reciprocityRatio
	if p <= 0 || p >= 1 {
		return 0
	}
	q := 1 - p
	return -(p*math.Log2(p) + q*math.Log2(q))
}
