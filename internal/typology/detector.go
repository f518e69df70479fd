package typology

import (
	"github.com/shopspring/decimal"

	"chainanalytics/internal/config"
	"chainanalytics/internal/model"
	"chainanalytics/internal/store"
)

// PatternBundle holds one run's structural-detector output, passed
// straight from the detection stage rather than re-read from the unified
// view, so each pattern's type-specific severity/risk field survives
// (spec §4.6's "risk_score or equivalent").
type PatternBundle struct {
	Cycles      []model.CyclePattern
	Layerings   []model.LayeringPattern
	Networks    []model.NetworkPattern
	Proximities []model.ProximityPattern
	Motifs      []model.MotifPattern
	Bursts      []model.BurstPattern
	Thresholds  []model.ThresholdPattern
}

// Detector runs every spec §4.6 typology rule and produces the alert set
// for one partition.
type Detector struct {
	gw             *store.Gateway
	typologySection config.Section
	clustering      config.Section
}

func NewDetector(gw *store.Gateway, cfg *config.DetectorConfig) (*Detector, error) {
	typologySection, err := cfg.Section(config.SectionTypologyRules)
	if err != nil {
		return nil, err
	}
	clustering, err := cfg.Section(config.SectionClustering)
	if err != nil {
		return nil, err
	}
	return &Detector{gw: gw, typologySection: typologySection, clustering: clustering}, nil
}

// Detect runs address rules, the fresh_to_exchange batch rule and the
// structural-pattern fan-out rule, over one feature set and pattern
// bundle, returning the full alert list (spec §4.6).
func (d *Detector) Detect(network string, windowDays int64, processingDate string, features []model.FeatureVector, patterns PatternBundle, t0, t1 int64) ([]model.Alert, error) {
	var alerts []model.Alert

	for _, f := range features {
		for _, hit := range EvaluateAddressRules(f, d.typologySection, network) {
			alerts = append(alerts, d.buildAlert(f.Address, network, windowDays, processingDate, hit.TypologyType, hit.Confidence, f.TotalVolumeUSD, 1, nil))
		}
	}

	freshAlerts, err := d.freshToExchangeAlerts(network, windowDays, processingDate, features, t0, t1)
	if err != nil {
		return nil, err
	}
	alerts = append(alerts, freshAlerts...)

	alerts = append(alerts, d.structuralFanOut(network, windowDays, processingDate, patterns)...)

	return alerts, nil
}

func (d *Detector) freshToExchangeAlerts(network string, windowDays int64, processingDate string, features []model.FeatureVector, t0, t1 int64) ([]model.Alert, error) {
	minVolumeUSD := d.typologySection.Values["min_volume_usd"]

	var fresh []string
	for _, f := range features {
		outUSD, _ := f.TotalOutUSD.Float64()
		if f.IsNewAddress && outUSD >= minVolumeUSD {
			fresh = append(fresh, f.Address)
		}
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	volumes, err := d.gw.FreshToExchangeVolume(network, fresh, t0, t1)
	if err != nil {
		return nil, err
	}

	var out []model.Alert
	for addr, vol := range volumes {
		volUSD, _ := vol.Float64()
		if volUSD < minVolumeUSD {
			continue
		}
		out = append(out, d.buildAlert(addr, network, windowDays, processingDate, "fresh_to_exchange", 0.9, vol, 1, []string{"new_address", "exchange_destination"}))
	}
	return out, nil
}

func (d *Detector) structuralFanOut(network string, windowDays int64, processingDate string, patterns PatternBundle) []model.Alert {
	var out []model.Alert

	emit := func(typologyType string, addrs []string, riskScore float64, volumeUSD decimal.Decimal, evidenceCount int) {
		if riskScore < 0.5 {
			return
		}
		for _, addr := range addrs {
			out = append(out, d.buildAlert(addr, network, windowDays, processingDate, typologyType, riskScore, volumeUSD, evidenceCount, []string{typologyType}))
		}
	}

	for _, p := range patterns.Cycles {
		emit("cycle", p.AddressesInvolved, 0.65, p.EvidenceVolumeUSD, len(p.AddressesInvolved))
	}
	for _, p := range patterns.Layerings {
		emit("layering_path", p.AddressesInvolved, clip01(1-p.AmountCV), p.EvidenceVolumeUSD, len(p.AddressesInvolved))
	}
	for _, p := range patterns.Networks {
		emit("smurfing_network", p.AddressesInvolved, p.SeverityScore, p.EvidenceVolumeUSD, len(p.AddressesInvolved))
	}
	for _, p := range patterns.Proximities {
		emit("proximity_risk", p.AddressesInvolved, p.SeverityScore, p.EvidenceVolumeUSD, len(p.AddressesInvolved))
	}
	for _, p := range patterns.Motifs {
		typ := "motif_fanin"
		if p.MotifType == "fanout" {
			typ = "motif_fanout"
		}
		emit(typ, p.AddressesInvolved, clip01(float64(p.MotifParticipantCount)/50), p.EvidenceVolumeUSD, len(p.AddressesInvolved))
	}
	for _, p := range patterns.Bursts {
		emit("temporal_burst", p.AddressesInvolved, clip01(p.BurstIntensity/5), p.BurstVolumeUSD, len(p.AddressesInvolved))
	}
	for _, p := range patterns.Thresholds {
		emit("threshold_evasion", p.AddressesInvolved, p.AvoidanceScore, p.EvidenceVolumeUSD, len(p.AddressesInvolved))
	}

	return out
}

func (d *Detector) buildAlert(address, network string, windowDays int64, processingDate, typologyType string, confidence float64, volumeUSD decimal.Decimal, participantCount int, riskIndicators []string) model.Alert {
	severity := model.SeverityFromConfidence(confidence)
	return model.Alert{
		AlertID:              model.AlertID(address, typologyType, processingDate),
		Address:              address,
		Network:              network,
		WindowDays:           windowDays,
		ProcessingDate:       processingDate,
		TypologyType:         typologyType,
		ConfidenceScore:      confidence,
		Severity:             severity,
		SuspectedAddressType: string(suspectedAddressType(typologyType, participantCount)),
		Description:          typologyType + " typology match",
		VolumeUSD:            volumeUSD,
		RiskIndicators:       riskIndicators,
	}
}
