package model

import "github.com/shopspring/decimal"

// Flow aggregates transfers between one ordered address pair within a
// window. One Flow per (From, To) pair: the graph builder rejects a
// second Flow for the same pair as DuplicateFlow.
type Flow struct {
	From                string
	To                  string
	TxCount             int64
	AmountSum           decimal.Decimal
	AmountUSDSum        decimal.Decimal
	FirstSeenTimestamp  int64
	LastSeenTimestamp   int64
	UniqueAssets        int64
	DominantAsset       string
	HourlyPattern       [24]int64
	WeeklyPattern       [7]int64
	ReciprocityRatio    float64
	IsBidirectional     bool
}

// Reciprocity computes min(volUV, volVU)/max(volUV, volVU) for the two
// directions of a pair, 0 when either direction has non-positive USD
// volume, per spec §3.
func Reciprocity(volUV, volVU decimal.Decimal) float64 {
	if volUV.Sign() <= 0 || volVU.Sign() <= 0 {
		return 0
	}
	lo, hi := volUV, volVU
	if hi.LessThan(lo) {
		lo, hi = hi, lo
	}
	if hi.IsZero() {
		return 0
	}
	f, _ := lo.Div(hi).Float64()
	return f
}
