package store

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"chainanalytics/internal/model"
)

// InsertTransfers bulk-inserts transfer rows. Ingestion ("move raw
// transfers into the local columnar store") is an external collaborator
// per spec §1/§4.7 step 1; this is the typed write side of that contract.
func (gw *Gateway) InsertTransfers(network string, transfers []model.Transfer, batchSize int) error {
	if len(transfers) == 0 {
		return model.NewError(model.KindBadInput, "store", "empty transfer batch", nil)
	}
	if batchSize <= 0 {
		batchSize = 1000
	}
	rows := make([]TransferRow, 0, len(transfers))
	for _, t := range transfers {
		rows = append(rows, TransferRow{
			Network: network, TxID: t.TxID, EventIndex: t.EventIndex, EdgeIndex: t.EdgeIndex,
			BlockHeight: t.BlockHeight, BlockTimestampMs: t.BlockTimestampMs,
			FromAddress: t.FromAddress, ToAddress: t.ToAddress,
			AssetSymbol: t.AssetSymbol, AssetContract: t.AssetContract,
			Amount: t.Amount, Fee: t.Fee, AmountUSD: t.AmountUSD,
		})
	}
	if err := gw.db.CreateInBatches(rows, batchSize).Error; err != nil {
		return model.NewError(model.KindTransientDB, "store", "insert transfers", err)
	}
	return nil
}

// flowAccumulator accumulates one ordered pair's transfers before the
// final Flow is assembled. Server-side GROUP BY would need per-DB window
// functions for the histogram columns that GORM's portable query builder
// can't express identically across MySQL/SQLite; this gateway instead
// streams rows once (server-side filtered by the window, never fetching
// more than the window needs) and folds them in memory, which keeps the
// aggregation logic backend-portable while still issuing a single query.
type flowAccumulator struct {
	txCount      int64
	amountSum    decimal.Decimal
	amountUSDSum decimal.Decimal
	first, last  int64
	assets       map[string]decimal.Decimal
	hourly       [24]int64
	weekly       [7]int64
}

// WindowedPairwiseFlows runs the windowed pairwise flow aggregation
// (spec §4.1): tx_count, amount sums, first/last seen, unique assets,
// dominant asset and hourly/weekly activity pattern per ordered address
// pair, in a single query over the window.
func (gw *Gateway) WindowedPairwiseFlows(network string, t0, t1 int64) ([]model.Flow, error) {
	if t1 <= t0 {
		return nil, model.NewError(model.KindBadInput, "store", "malformed window", nil)
	}

	var rows []TransferRow
	if err := gw.db.Where("network = ? AND block_timestamp_ms >= ? AND block_timestamp_ms < ?", network, t0, t1).
		Find(&rows).Error; err != nil {
		return nil, model.NewError(model.KindTransientDB, "store", "windowed pairwise flows", err)
	}

	acc := make(map[[2]string]*flowAccumulator)
	for _, r := range rows {
		key := [2]string{r.FromAddress, r.ToAddress}
		a, ok := acc[key]
		if !ok {
			a = &flowAccumulator{assets: make(map[string]decimal.Decimal), first: r.BlockTimestampMs, last: r.BlockTimestampMs}
			acc[key] = a
		}
		a.txCount++
		a.amountSum = a.amountSum.Add(r.Amount)
		a.amountUSDSum = a.amountUSDSum.Add(r.AmountUSD)
		if r.BlockTimestampMs < a.first {
			a.first = r.BlockTimestampMs
		}
		if r.BlockTimestampMs > a.last {
			a.last = r.BlockTimestampMs
		}
		a.assets[r.AssetSymbol] = a.assets[r.AssetSymbol].Add(r.AmountUSD)
		hour := int((r.BlockTimestampMs / 3_600_000) % 24)
		weekday := int((r.BlockTimestampMs/86_400_000 + 4) % 7) // epoch day 0 = Thursday
		a.hourly[hour]++
		a.weekly[weekday]++
	}

	volByPair := make(map[[2]string]decimal.Decimal, len(acc))
	for key, a := range acc {
		volByPair[key] = a.amountUSDSum
	}

	flows := make([]model.Flow, 0, len(acc))
	for key, a := range acc {
		from, to := key[0], key[1]
		dominant, dominantVol := "", decimal.Zero
		for asset, vol := range a.assets {
			if vol.GreaterThan(dominantVol) {
				dominant, dominantVol = asset, vol
			}
		}
		reverseVol, hasReverse := volByPair[[2]string{to, from}]
		reciprocity := 0.0
		if hasReverse {
			reciprocity = model.Reciprocity(a.amountUSDSum, reverseVol)
		}
		flows = append(flows, model.Flow{
			From: from, To: to,
			TxCount: a.txCount, AmountSum: a.amountSum, AmountUSDSum: a.amountUSDSum,
			FirstSeenTimestamp: a.first, LastSeenTimestamp: a.last,
			UniqueAssets: int64(len(a.assets)), DominantAsset: dominant,
			HourlyPattern: a.hourly, WeeklyPattern: a.weekly,
			ReciprocityRatio: reciprocity, IsBidirectional: hasReverse,
		})
	}

	sort.Slice(flows, func(i, j int) bool {
		if flows[i].From != flows[j].From {
			return flows[i].From < flows[j].From
		}
		return flows[i].To < flows[j].To
	})
	return flows, nil
}

// MomentStats are the raw statistical-moment sums spec §4.1 requires the
// store to compute: (n, Σx, Σx², Σx³, Σx⁴) over an address's outgoing
// transaction amounts in the window.
type MomentStats struct {
	N     int64
	SumX  float64
	SumX2 float64
	SumX3 float64
	SumX4 float64
}

// momentAggRow is the shape of AmountMoments' GROUP BY projection.
type momentAggRow struct {
	FromAddress string
	N           int64
	SumX        float64
	SumX2       float64
	SumX3       float64
	SumX4       float64
}

// AmountMoments computes the amount statistical moments per address for a
// chunk of addresses within the window (spec §4.3 step 5). The sums are
// computed by the database's own SUM() aggregate, grouped by from_address,
// rather than pulled row-by-row and reduced in Go (spec §4.1).
func (gw *Gateway) AmountMoments(network string, addresses []string, t0, t1 int64) (map[string]MomentStats, error) {
	if len(addresses) == 0 {
		return nil, model.NewError(model.KindBadInput, "store", "empty address list", nil)
	}
	var rows []momentAggRow
	if err := gw.db.Model(&TransferRow{}).
		Select("from_address AS from_address, COUNT(*) AS n, "+
			"SUM(amount_usd) AS sum_x, SUM(amount_usd * amount_usd) AS sum_x2, "+
			"SUM(amount_usd * amount_usd * amount_usd) AS sum_x3, "+
			"SUM(amount_usd * amount_usd * amount_usd * amount_usd) AS sum_x4").
		Where("network = ? AND block_timestamp_ms >= ? AND block_timestamp_ms < ? AND from_address IN ?",
			network, t0, t1, addresses).
		Group("from_address").
		Scan(&rows).Error; err != nil {
		return nil, model.NewError(model.KindTransientDB, "store", "amount moments", err)
	}
	out := make(map[string]MomentStats, len(rows))
	for _, r := range rows {
		out[r.FromAddress] = MomentStats{N: r.N, SumX: r.SumX, SumX2: r.SumX2, SumX3: r.SumX3, SumX4: r.SumX4}
	}
	return out, nil
}

// BehavioralCounters holds the round-number/small/unusual-timing counters
// spec §4.1 asks the store to compute server-side.
type BehavioralCounters struct {
	TotalCount     int64
	RoundCount     int64
	SmallCount     int64
	NightCount     int64
	WeekendCount   int64
}

// round-number and small-transaction thresholds are expressed as USD; a
// transaction is "round" when its integer-dollar amount is a multiple of
// 100 and "small" when below smallTxUSD.
func (gw *Gateway) BehavioralCounts(network string, addresses []string, t0, t1 int64, smallTxUSD decimal.Decimal) (map[string]BehavioralCounters, error) {
	if len(addresses) == 0 {
		return nil, model.NewError(model.KindBadInput, "store", "empty address list", nil)
	}
	var rows []TransferRow
	if err := gw.db.Where("network = ? AND block_timestamp_ms >= ? AND block_timestamp_ms < ? AND from_address IN ?",
		network, t0, t1, addresses).Find(&rows).Error; err != nil {
		return nil, model.NewError(model.KindTransientDB, "store", "behavioral counters", err)
	}
	out := make(map[string]BehavioralCounters, len(addresses))
	for _, r := range rows {
		c := out[r.FromAddress]
		c.TotalCount++
		amt, _ := r.AmountUSD.Float64()
		if math.Mod(amt, 100) == 0 {
			c.RoundCount++
		}
		if r.AmountUSD.LessThan(smallTxUSD) {
			c.SmallCount++
		}
		hour := int((r.BlockTimestampMs / 3_600_000) % 24)
		weekday := int((r.BlockTimestampMs/86_400_000 + 4) % 7)
		if hour < 6 {
			c.NightCount++
		}
		if weekday == 5 || weekday == 6 {
			c.WeekendCount++
		}
		out[r.FromAddress] = c
	}
	return out, nil
}

// InterEventStats is the mean/stddev of inter-event (inter-transaction)
// time per address, used by amount_predictability/transaction_regularity.
type InterEventStats struct {
	MeanSeconds   float64
	StdDevSeconds float64
}

// interEventAggRow is the shape of InterEventStats' aggregated projection.
type interEventAggRow struct {
	FromAddress string
	N           int64
	MeanSeconds float64
	Variance    float64
}

// InterEventStats computes per-address inter-transaction-time mean/stddev
// server-side: a window-function CTE turns each row's gap to the previous
// same-address transaction into delta_seconds, and the outer query reduces
// those deltas with AVG() (spec §4.1 requires this aggregation run in the
// store, not client-side).
func (gw *Gateway) InterEventStats(network string, addresses []string, t0, t1 int64) (map[string]InterEventStats, error) {
	if len(addresses) == 0 {
		return nil, model.NewError(model.KindBadInput, "store", "empty address list", nil)
	}
	const query = `
		WITH deltas AS (
			SELECT from_address,
				(block_timestamp_ms - LAG(block_timestamp_ms) OVER (
					PARTITION BY from_address ORDER BY block_timestamp_ms
				)) / 1000.0 AS delta_seconds
			FROM transfers
			WHERE network = ? AND block_timestamp_ms >= ? AND block_timestamp_ms < ? AND from_address IN ?
		)
		SELECT from_address, COUNT(delta_seconds) AS n, AVG(delta_seconds) AS mean_seconds,
			AVG(delta_seconds * delta_seconds) - AVG(delta_seconds) * AVG(delta_seconds) AS variance
		FROM deltas
		WHERE delta_seconds IS NOT NULL
		GROUP BY from_address`
	var rows []interEventAggRow
	if err := gw.db.Raw(query, network, t0, t1, addresses).Scan(&rows).Error; err != nil {
		return nil, model.NewError(model.KindTransientDB, "store", "inter-event stats", err)
	}
	out := make(map[string]InterEventStats, len(rows))
	for _, r := range rows {
		variance := r.Variance
		if variance < 0 {
			variance = 0
		}
		out[r.FromAddress] = InterEventStats{MeanSeconds: r.MeanSeconds, StdDevSeconds: math.Sqrt(variance)}
	}
	return out, nil
}

// OutlierCounts counts, per address, outgoing transactions whose USD
// amount exceeds that address's own p99 within the window.
func (gw *Gateway) OutlierCounts(network string, addresses []string, t0, t1 int64) (map[string]int64, error) {
	moments, err := gw.amountsByAddress(network, addresses, t0, t1)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(moments))
	for addr, amounts := range moments {
		if len(amounts) == 0 {
			continue
		}
		sorted := append([]float64(nil), amounts...)
		sort.Float64s(sorted)
		idx := int(float64(len(sorted)-1) * 0.99)
		p99 := sorted[idx]
		var count int64
		for _, a := range amounts {
			if a > p99 {
				count++
			}
		}
		out[addr] = count
	}
	return out, nil
}

// MedianAmounts reports each address's median outgoing USD transaction
// amount in the window, feeding FeatureVector's median_tx_usd.
func (gw *Gateway) MedianAmounts(network string, addresses []string, t0, t1 int64) (map[string]float64, error) {
	amounts, err := gw.amountsByAddress(network, addresses, t0, t1)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(amounts))
	for addr, xs := range amounts {
		if len(xs) == 0 {
			continue
		}
		sorted := append([]float64(nil), xs...)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 1 {
			out[addr] = sorted[mid]
		} else {
			out[addr] = (sorted[mid-1] + sorted[mid]) / 2
		}
	}
	return out, nil
}

// AmountRange reports each address's min/max outgoing USD transaction
// amount in the window, feeding FeatureVector's max_tx_usd/min_tx_usd.
func (gw *Gateway) AmountRange(network string, addresses []string, t0, t1 int64) (map[string][2]float64, error) {
	amounts, err := gw.amountsByAddress(network, addresses, t0, t1)
	if err != nil {
		return nil, err
	}
	out := make(map[string][2]float64, len(amounts))
	for addr, xs := range amounts {
		if len(xs) == 0 {
			continue
		}
		lo, hi := xs[0], xs[0]
		for _, x := range xs {
			if x < lo {
				lo = x
			}
			if x > hi {
				hi = x
			}
		}
		out[addr] = [2]float64{lo, hi}
	}
	return out, nil
}

func (gw *Gateway) amountsByAddress(network string, addresses []string, t0, t1 int64) (map[string][]float64, error) {
	if len(addresses) == 0 {
		return nil, model.NewError(model.KindBadInput, "store", "empty address list", nil)
	}
	var rows []TransferRow
	if err := gw.db.Where("network = ? AND block_timestamp_ms >= ? AND block_timestamp_ms < ? AND from_address IN ?",
		network, t0, t1, addresses).Find(&rows).Error; err != nil {
		return nil, model.NewError(model.KindTransientDB, "store", "amounts by address", err)
	}
	out := make(map[string][]float64)
	for _, r := range rows {
		a, _ := r.AmountUSD.Float64()
		out[r.FromAddress] = append(out[r.FromAddress], a)
	}
	return out, nil
}

// FreshToExchangeVolume joins a set of "fresh" addresses against the
// address-label table and sums their outgoing USD volume to labeled
// exchanges, for the fresh_to_exchange typology rule (spec §4.6).
func (gw *Gateway) FreshToExchangeVolume(network string, freshAddresses []string, t0, t1 int64) (map[string]decimal.Decimal, error) {
	if len(freshAddresses) == 0 {
		return nil, model.NewError(model.KindBadInput, "store", "empty address list", nil)
	}
	var exchangeAddrs []string
	if err := gw.db.Model(&AddressLabelRow{}).
		Where("network = ? AND address_type = ?", network, "exchange").
		Pluck("address", &exchangeAddrs).Error; err != nil {
		return nil, model.NewError(model.KindTransientDB, "store", "exchange label lookup", err)
	}
	if len(exchangeAddrs) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	var rows []TransferRow
	if err := gw.db.Where("network = ? AND block_timestamp_ms >= ? AND block_timestamp_ms < ? AND from_address IN ? AND to_address IN ?",
		network, t0, t1, freshAddresses, exchangeAddrs).Find(&rows).Error; err != nil {
		return nil, model.NewError(model.KindTransientDB, "store", "fresh to exchange volume", err)
	}

	out := make(map[string]decimal.Decimal)
	for _, r := range rows {
		out[r.FromAddress] = out[r.FromAddress].Add(r.AmountUSD)
	}
	return out, nil
}

// IncidentEvent is one transfer timestamp/amount pair incident to an
// address, for the temporal burst detector (spec §4.4.6).
type IncidentEvent struct {
	TimestampMs int64
	AmountUSD   float64
	IsOutgoing  bool
}

// IncidentEvents returns, per address, every transfer the address was a
// sender or receiver of in the window. Returned slices are unsorted;
// callers sort by TimestampMs as needed. An empty result (no per-edge
// timestamps available) signals the burst detector to return no patterns.
func (gw *Gateway) IncidentEvents(network string, addresses []string, t0, t1 int64) (map[string][]IncidentEvent, error) {
	if len(addresses) == 0 {
		return nil, model.NewError(model.KindBadInput, "store", "empty address list", nil)
	}
	var rows []TransferRow
	if err := gw.db.Where("network = ? AND block_timestamp_ms >= ? AND block_timestamp_ms < ? AND (from_address IN ? OR to_address IN ?)",
		network, t0, t1, addresses, addresses).Find(&rows).Error; err != nil {
		return nil, model.NewError(model.KindTransientDB, "store", "incident events", err)
	}
	out := make(map[string][]IncidentEvent)
	for _, r := range rows {
		amt, _ := r.AmountUSD.Float64()
		out[r.FromAddress] = append(out[r.FromAddress], IncidentEvent{TimestampMs: r.BlockTimestampMs, AmountUSD: amt, IsOutgoing: true})
		out[r.ToAddress] = append(out[r.ToAddress], IncidentEvent{TimestampMs: r.BlockTimestampMs, AmountUSD: amt, IsOutgoing: false})
	}
	return out, nil
}
