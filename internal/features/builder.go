package features

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"chainanalytics/internal/graphbuild"
	"chainanalytics/internal/model"
	"chainanalytics/internal/store"
)

// Thresholds are the construction-time-validated numeric knobs the
// feature builder needs beyond what the store computes itself: the small
// transaction cutoff feeds both round/small counters and the
// structuring_score behavioral feature (spec §4.3/§4.4).
type Thresholds struct {
	SmallTxUSD decimal.Decimal
	ChunkSize  int
}

// Builder orchestrates spec §4.3's six-step feature-building process.
type Builder struct {
	gw         *store.Gateway
	thresholds Thresholds
}

func NewBuilder(gw *store.Gateway, thresholds Thresholds) *Builder {
	if thresholds.ChunkSize <= 0 {
		thresholds.ChunkSize = 10000
	}
	return &Builder{gw: gw, thresholds: thresholds}
}

// Build runs the full feature-building pipeline for one partition: load
// flows, build the graph, compute global analytics once, process address
// chunks in parallel, and write the result (spec §4.3 steps 1-6).
func (b *Builder) Build(ctx context.Context, network string, window model.Window, p store.Partition) ([]model.FeatureVector, error) {
	flows, err := b.gw.LoadFlows(p)
	if err != nil {
		return nil, err
	}

	gr, err := graphbuild.Build(flows)
	if err != nil {
		return nil, err
	}

	global, err := ComputeGlobalAnalytics(gr)
	if err != nil {
		return nil, err
	}

	addresses := gr.Addresses()
	sort.Strings(addresses)

	flowsByAddr := indexFlowsByAddress(flows)

	chunks := chunk(addresses, b.thresholds.ChunkSize)
	results := make([][]model.FeatureVector, len(chunks))

	group, gctx := errgroup.WithContext(ctx)
	for i, c := range chunks {
		i, c := i, c
		group.Go(func() error {
			built, err := b.buildChunk(gctx, network, window, p, gr, global, flowsByAddr, c)
			if err != nil {
				return err
			}
			results[i] = built
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var out []model.FeatureVector
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

func chunk(addresses []string, size int) [][]string {
	var chunks [][]string
	for i := 0; i < len(addresses); i += size {
		end := i + size
		if end > len(addresses) {
			end = len(addresses)
		}
		chunks = append(chunks, addresses[i:end])
	}
	return chunks
}

func indexFlowsByAddress(flows []model.Flow) map[string][]model.Flow {
	idx := make(map[string][]model.Flow)
	for _, f := range flows {
		idx[f.From] = append(idx[f.From], f)
		idx[f.To] = append(idx[f.To], f)
	}
	return idx
}

func (b *Builder) buildChunk(
	ctx context.Context, network string, window model.Window, p store.Partition,
	gr *model.Graph, global GlobalAnalytics, flowsByAddr map[string][]model.Flow, addresses []string,
) ([]model.FeatureVector, error) {
	moments, err := b.gw.AmountMoments(network, addresses, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	behavioral, err := b.gw.BehavioralCounts(network, addresses, window.Start, window.End, b.thresholds.SmallTxUSD)
	if err != nil {
		return nil, err
	}
	interEvent, err := b.gw.InterEventStats(network, addresses, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	outliers, err := b.gw.OutlierCounts(network, addresses, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	ranges, err := b.gw.AmountRange(network, addresses, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	medians, err := b.gw.MedianAmounts(network, addresses, window.Start, window.End)
	if err != nil {
		return nil, err
	}

	out := make([]model.FeatureVector, 0, len(addresses))
	for _, addr := range addresses {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		out = append(out, b.buildOne(p, gr, global, flowsByAddr[addr], addr, moments[addr], behavioral[addr], interEvent[addr], outliers[addr], ranges[addr], medians[addr]))
	}
	return out, nil
}

func (b *Builder) buildOne(
	p store.Partition, gr *model.Graph, global GlobalAnalytics, flows []model.Flow, addr string,
	m store.MomentStats, behav store.BehavioralCounters, interEvent store.InterEventStats, outlierCount int64, amountRange [2]float64, medianTxUSD float64,
) model.FeatureVector {
	var totalIn, totalOut decimal.Decimal
	var txIn, txOut int64
	hourly := [24]int64{}
	weekly := [7]int64{}
	senders := map[string]bool{}
	recipients := map[string]bool{}
	counterpartyVolume := map[string]decimal.Decimal{}

	for _, f := range flows {
		if f.From == addr {
			totalOut = totalOut.Add(f.AmountUSDSum)
			txOut += f.TxCount
			recipients[f.To] = true
			counterpartyVolume[f.To] = counterpartyVolume[f.To].Add(f.AmountUSDSum)
		}
		if f.To == addr {
			totalIn = totalIn.Add(f.AmountUSDSum)
			txIn += f.TxCount
			senders[f.From] = true
			counterpartyVolume[f.From] = counterpartyVolume[f.From].Add(f.AmountUSDSum)
		}
		for h := 0; h < 24; h++ {
			hourly[h] += f.HourlyPattern[h]
		}
		for d := 0; d < 7; d++ {
			weekly[d] += f.WeeklyPattern[d]
		}
	}

	moments := FromRawSums(m.N, m.SumX, m.SumX2, m.SumX3, m.SumX4)
	totalVolume := totalIn.Add(totalOut)
	counterparties := unionCount(senders, recipients)

	var firstSeen, lastSeen int64
	for i, f := range flows {
		if i == 0 || f.FirstSeenTimestamp < firstSeen {
			firstSeen = f.FirstSeenTimestamp
		}
		if f.LastSeenTimestamp > lastSeen {
			lastSeen = f.LastSeenTimestamp
		}
	}
	activitySpanDays := int64(0)
	if lastSeen > firstSeen {
		activitySpanDays = (lastSeen - firstSeen) / 86_400_000
	}
	activityDays := activitySpanDays + 1
	if totalTx := txIn + txOut; activityDays > totalTx && totalTx > 0 {
		activityDays = totalTx
	}
	var avgDailyVolume decimal.Decimal
	if activitySpanDays > 0 {
		avgDailyVolume = totalVolume.Div(decimal.NewFromInt(activitySpanDays + 1))
	} else {
		avgDailyVolume = totalVolume
	}

	hourlyEntropy := ShannonEntropyBits(hourly[:])
	dailyEntropy := ShannonEntropyBits(weekly[:])

	var volumes []float64
	for _, v := range counterpartyVolume {
		f, _ := v.Float64()
		volumes = append(volumes, f)
	}
	flowConcentration := Gini(volumes)
	concentrationRatio := maxShareOf(volumes)

	dominantDirection := model.FlowBalanced
	switch {
	case totalOut.GreaterThan(totalIn):
		dominantDirection = model.FlowOutgoing
	case totalIn.GreaterThan(totalOut):
		dominantDirection = model.FlowIncoming
	}

	totalTx := txIn + txOut
	var roundRatio, smallRatio, unusualTiming float64
	if behav.TotalCount > 0 {
		roundRatio = float64(behav.RoundCount) / float64(behav.TotalCount)
		smallRatio = float64(behav.SmallCount) / float64(behav.TotalCount)
		unusualTiming = float64(behav.NightCount+behav.WeekendCount) / float64(behav.TotalCount)
	}
	structuringScore := StructuringScore(behav.SmallCount, behav.TotalCount)

	burstiness := Burstiness(m.N, interEvent.MeanSeconds, interEvent.StdDevSeconds)
	reciprocity := averageReciprocity(flows, addr)

	id, _ := gr.NodeID(addr)
	k1c, k1v := KHopNeighborhood(gr, addr, 1)
	k2c, k2v := KHopNeighborhood(gr, addr, 2)
	k3c, k3v := KHopNeighborhood(gr, addr, 3)

	var inOutRatio float64
	if !totalOut.IsZero() {
		v, _ := totalIn.Div(totalOut).Float64()
		inOutRatio = v
	}

	return model.FeatureVector{
		Address: addr, Network: p.Network, WindowDays: p.WindowDays, ProcessingDate: p.ProcessingDate,

		TotalInUSD: totalIn, TotalOutUSD: totalOut, NetFlowUSD: totalIn.Sub(totalOut),
		TotalVolumeUSD: totalVolume, AvgTxUSD: avgTx(totalVolume, totalTx),
		MedianTxUSD: decimal.NewFromFloat(medianTxUSD),
		MaxTxUSD:    decimal.NewFromFloat(amountRange[1]), MinTxUSD: decimal.NewFromFloat(amountRange[0]),

		DegreeIn: int64(gr.InDegree(addr)), DegreeOut: int64(gr.OutDegree(addr)),
		DegreeTotal: int64(gr.InDegree(addr) + gr.OutDegree(addr)),
		UniqueCounterparties: counterparties, UniqueSendersCount: int64(len(senders)),
		UniqueRecipientsCount: int64(len(recipients)),

		AmountVariance: moments.Variance, VolumeStd: moments.StdDev, VolumeCV: moments.CV,
		AmountSkewness: moments.Skewness, AmountKurtosis: moments.Kurtosis,

		ActivityDays: activityDays, ActivitySpanDays: activitySpanDays, AvgDailyVolumeUSD: avgDailyVolume,
		HourlyEntropy: hourlyEntropy, DailyEntropy: dailyEntropy,
		RegularityScore: RegularityScore(hourlyEntropy),
		BurstFactor: burstiness,
		WeekendTransactionRatio: safeRatio(behav.WeekendCount, behav.TotalCount),
		NightTransactionRatio:   safeRatio(behav.NightCount, behav.TotalCount),
		ConsistencyScore:        clip01(1 - moments.CV),
		IsNewAddress:            activitySpanDays == 0,
		HourlyActivity:          hourly, DailyActivity: weekly,
		PeakHour: PeakIndex(hourly[:]), PeakDay: PeakIndex(weekly[:]),

		ReciprocityRatio: reciprocity, FlowConcentration: flowConcentration,
		FlowDiversity:             clip01(1 - flowConcentration),
		CounterpartyConcentration: concentrationRatio,
		ConcentrationRatio:        concentrationRatio, InOutRatio: inOutRatio,
		FlowAsymmetry:             clip01(absFloat(1 - inOutRatio)),
		DominantFlowDirection:     dominantDirection,
		FlowDirectionEntropy:      FlowReciprocityEntropy(reciprocity),
		CounterpartyOverlapRatio:  overlapRatio(senders, recipients),
		CentralityScore:           clip01(0.4*global.PageRank[id] + 0.3*global.Betweenness[id] + 0.3*global.ClusteringCoefficient[id]),

		RoundNumberRatio: roundRatio, UnusualTimingScore: unusualTiming,
		StructuringScore: structuringScore, SmallTransactionRatio: smallRatio,

		PageRank: global.PageRank[id], Betweenness: global.Betweenness[id],
		Closeness: global.Closeness[id], ClusteringCoefficient: global.ClusteringCoefficient[id],
		KCore: global.KCore[id], CommunityID: global.CommunityID[id],
		Degree: int64(gr.InDegree(addr) + gr.OutDegree(addr)),

		Khop1Count: k1c, Khop1VolumeUSD: decimal.NewFromFloat(k1v),
		Khop2Count: k2c, Khop2VolumeUSD: decimal.NewFromFloat(k2v),
		Khop3Count: k3c, Khop3VolumeUSD: decimal.NewFromFloat(k3v),

		FlowReciprocityEntropy: FlowReciprocityEntropy(reciprocity),
		FlowBurstiness:         burstiness,
		CounterpartyStability:  clip01(1 - flowConcentration),
		TransactionRegularity:  clip01(1 - burstiness),
		AmountPredictability:   clip01(1 - safeRatio(outlierCount, totalTx)),

		TxInCount: txIn, TxOutCount: txOut, TxTotalCount: totalTx,
	}
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

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// overlapRatio is the Jaccard overlap between an address's sender set and
// recipient set: how often the same counterparties appear on both sides
// of the ledger (spec §4.3 flow-structure family).
func overlapRatio(senders, recipients map[string]bool) float64 {
	if len(senders) == 0 || len(recipients) == 0 {
		return 0
	}
	var overlap int
	for s := range senders {
		if recipients[s] {
			overlap++
		}
	}
	union := unionCount(senders, recipients)
	if union == 0 {
		return 0
	}
	return float64(overlap) / float64(union)
}

func unionCount(a, b map[string]bool) int64 {
	union := make(map[string]bool, len(a)+len(b))
	for k := range a {
		union[k] = true
	}
	for k := range b {
		union[k] = true
	}
	return int64(len(union))
}

func maxShareOf(volumes []float64) float64 {
	if len(volumes) == 0 {
		return 0
	}
	var total, max float64
	for _, v := range volumes {
		total += v
		if v > max {
			max = v
		}
	}
	if total == 0 {
		return 0
	}
	return max / total
}

func avgTx(total decimal.Decimal, count int64) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(count))
}

func safeRatio(n, d int64) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func averageReciprocity(flows []model.Flow, addr string) float64 {
	var sum float64
	var count int
	for _, f := range flows {
		if f.From == addr || f.To == addr {
			sum += f.ReciprocityRatio
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
