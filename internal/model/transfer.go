package model

import "github.com/shopspring/decimal"

// Transfer is an immutable ledger row. Keys are unique on
// (TxID, EventIndex, EdgeIndex).
type Transfer struct {
	TxID             string
	EventIndex       int64
	EdgeIndex        int64
	BlockHeight      int64
	BlockTimestampMs int64
	FromAddress      string
	ToAddress        string
	AssetSymbol      string
	AssetContract    string
	Amount           decimal.Decimal
	Fee              decimal.Decimal
	AmountUSD        decimal.Decimal
}

// Window is a half-open millisecond interval [Start, End).
type Window struct {
	Start int64
	End   int64
}

// WindowDays reports the window's length in whole days per the glossary's
// window_days = (t1 - t0) / 86_400_000 definition.
func (w Window) WindowDays() int64 {
	const dayMs = 86_400_000
	return (w.End - w.Start) / dayMs
}

func (w Window) Validate() error {
	if w.End <= w.Start {
		return NewError(KindBadInput, "window", "end must be strictly after start", nil)
	}
	return nil
}
