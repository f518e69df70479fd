package patterns

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"chainanalytics/internal/config"
	"chainanalytics/internal/model"
	"chainanalytics/internal/store"
)

// BurstDetector implements spec §4.4.6: per-address rolling-window
// transaction rate anomalies. Returns no patterns if the window has no
// per-transfer timestamps to work from.
type BurstDetector struct {
	gw      *store.Gateway
	section config.Section
}

func NewBurstDetector(gw *store.Gateway, cfg *config.DetectorConfig) (*BurstDetector, error) {
	section, err := requireSection(cfg, config.SectionBurstDetection)
	if err != nil {
		return nil, err
	}
	return &BurstDetector{gw: gw, section: section}, nil
}

func (d *BurstDetector) Detect(network string, addresses []string, t0, t1, now int64) ([]model.BurstPattern, error) {
	windowSeconds, err := d.section.Require(config.SectionBurstDetection, network, "time_window_seconds")
	if err != nil {
		return nil, err
	}
	minIntensity, err := d.section.Require(config.SectionBurstDetection, network, "min_burst_intensity")
	if err != nil {
		return nil, err
	}
	minTransactions, err := d.section.Require(config.SectionBurstDetection, network, "min_burst_transactions")
	if err != nil {
		return nil, err
	}
	zThreshold, err := d.section.Require(config.SectionBurstDetection, network, "z_score_threshold")
	if err != nil {
		return nil, err
	}
	if len(addresses) == 0 {
		return nil, nil
	}

	events, err := d.gw.IncidentEvents(network, addresses, t0, t1)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	windowMs := int64(windowSeconds * 1000)
	var out []model.BurstPattern

	for _, addr := range addresses {
		evs := events[addr]
		if len(evs) < int(minTransactions) {
			continue
		}
		sort.Slice(evs, func(i, j int) bool { return evs[i].TimestampMs < evs[j].TimestampMs })

		totalDurationSeconds := float64(evs[len(evs)-1].TimestampMs-evs[0].TimestampMs) / 1000
		baselineRate := 0.0
		if totalDurationSeconds > 0 {
			baselineRate = float64(len(evs)) / totalDurationSeconds
		}

		type windowStat struct {
			startIdx, endIdx int
			rate             float64
		}
		var stats []windowStat
		end := 0
		for start := 0; start < len(evs); start++ {
			if end < start {
				end = start
			}
			for end < len(evs) && evs[end].TimestampMs < evs[start].TimestampMs+windowMs {
				end++
			}
			count := end - start
			rate := float64(count) / windowSeconds
			stats = append(stats, windowStat{startIdx: start, endIdx: end - 1, rate: rate})
		}

		rates := make([]float64, len(stats))
		for i, s := range stats {
			rates[i] = s.rate
		}
		mean, std := meanStd(rates)

		consumedUntil := -1
		for _, s := range stats {
			if s.startIdx <= consumedUntil {
				continue
			}
			count := s.endIdx - s.startIdx + 1
			if count < int(minTransactions) {
				continue
			}
			z := zScore(s.rate, mean, std)
			intensity := 0.0
			if baselineRate > 0 {
				intensity = s.rate / baselineRate
			} else if s.rate > 0 {
				intensity = s.rate
			}
			if intensity < minIntensity || z < zThreshold {
				continue
			}

			startTs := evs[s.startIdx].TimestampMs
			endTs := evs[s.endIdx].TimestampMs
			var volume decimal.Decimal
			var hourly [24]int64
			for i := s.startIdx; i <= s.endIdx; i++ {
				volume = volume.Add(decimal.NewFromFloat(evs[i].AmountUSD))
				hour := (evs[i].TimestampMs / 3_600_000) % 24
				hourly[hour]++
			}

			header := model.NewHeader(model.PatternTemporalBurst, []string{addr}, []string{"burst_address"}, now)
			header.PatternID = string(model.PatternTemporalBurst) + "_" + model.PatternHash(model.PatternTemporalBurst, []string{addr, strconv.FormatInt(startTs, 10)})
			header.DetectionMethod = "rolling_window_zscore"
			header.EvidenceTransactionCount = int64(count)
			header.EvidenceVolumeUSD = volume

			out = append(out, model.BurstPattern{
				PatternHeader: header, BurstAddress: addr,
				BurstStartTimestamp: startTs, BurstEndTimestamp: endTs,
				BurstDurationSeconds: (endTs - startTs) / 1000, BurstTransactionCount: int64(count),
				BurstVolumeUSD: volume, NormalTxRate: baselineRate, BurstTxRate: s.rate,
				BurstIntensity: intensity, ZScore: z, HourlyDistribution: hourly,
				PeakHours: peakHours(hourly),
			})
			consumedUntil = s.endIdx
		}
	}
	return out, nil
}

func peakHours(hourly [24]int64) []int {
	var max int64
	for _, c := range hourly {
		if c > max {
			max = c
		}
	}
	if max == 0 {
		return nil
	}
	var out []int
	for h, c := range hourly {
		if c == max {
			out = append(out, h)
		}
	}
	return out
}
