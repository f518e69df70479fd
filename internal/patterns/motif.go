package patterns

import (
	"github.com/shopspring/decimal"

	"chainanalytics/internal/config"
	"chainanalytics/internal/model"
)

// MotifDetector implements spec §4.4.5: fan-in/fan-out hub detection from
// per-node in/out degree percentile thresholds.
type MotifDetector struct {
	section config.Section
}

func NewMotifDetector(cfg *config.DetectorConfig) (*MotifDetector, error) {
	section, err := requireSection(cfg, config.SectionMotifDetection)
	if err != nil {
		return nil, err
	}
	return &MotifDetector{section: section}, nil
}

func (d *MotifDetector) Detect(gr *model.Graph, network string, now int64) ([]model.MotifPattern, error) {
	degreePercentile, err := d.section.Require(config.SectionMotifDetection, network, "degree_percentile_threshold")
	if err != nil {
		return nil, err
	}
	faninMaxOut, err := d.section.Require(config.SectionMotifDetection, network, "fanin_max_out_degree")
	if err != nil {
		return nil, err
	}
	fanoutMaxIn, err := d.section.Require(config.SectionMotifDetection, network, "fanout_max_in_degree")
	if err != nil {
		return nil, err
	}

	addrs := gr.Addresses()
	var inDegrees, outDegrees []float64
	for _, a := range addrs {
		inDegrees = append(inDegrees, float64(gr.InDegree(a)))
		outDegrees = append(outDegrees, float64(gr.OutDegree(a)))
	}
	thresholdIn := percentile(inDegrees, degreePercentile)
	thresholdOut := percentile(outDegrees, degreePercentile)

	var out []model.MotifPattern
	for _, a := range addrs {
		inDeg := gr.InDegree(a)
		outDeg := gr.OutDegree(a)

		if float64(inDeg) >= thresholdIn && float64(outDeg) <= faninMaxOut {
			if p := d.buildFanIn(gr, a, now); p != nil {
				out = append(out, *p)
			}
		}
		if float64(outDeg) >= thresholdOut && float64(inDeg) <= fanoutMaxIn {
			if p := d.buildFanOut(gr, a, now); p != nil {
				out = append(out, *p)
			}
		}
	}
	return out, nil
}

func (d *MotifDetector) buildFanIn(gr *model.Graph, center string, now int64) *model.MotifPattern {
	sources := gr.Predecessors(center)
	if len(sources) == 0 {
		return nil
	}
	participants := append([]string{center}, sources...)
	sorted := sortedCopy(participants)
	roles := make([]string, len(sorted))
	for i, a := range sorted {
		if a == center {
			roles[i] = "center"
		} else {
			roles[i] = "source"
		}
	}

	var volume decimal.Decimal
	for _, s := range sources {
		if e := gr.EdgeAttrsBetween(s, center); e != nil {
			volume = volume.Add(e.AmountUSDSum)
		}
	}

	header := model.NewHeader(model.PatternMotifFanIn, sorted, roles, now)
	header.DetectionMethod = "degree_percentile"
	header.EvidenceTransactionCount = int64(len(sources))
	header.EvidenceVolumeUSD = volume

	return &model.MotifPattern{
		PatternHeader: header, MotifType: "fanin", MotifCenterAddress: center,
		MotifParticipantCount: gr.InDegree(center) + gr.OutDegree(center),
	}
}

func (d *MotifDetector) buildFanOut(gr *model.Graph, center string, now int64) *model.MotifPattern {
	targets := gr.Successors(center)
	if len(targets) == 0 {
		return nil
	}
	participants := append([]string{center}, targets...)
	sorted := sortedCopy(participants)
	roles := make([]string, len(sorted))
	for i, a := range sorted {
		if a == center {
			roles[i] = "center"
		} else {
			roles[i] = "destination"
		}
	}

	var volume decimal.Decimal
	for _, t := range targets {
		if e := gr.EdgeAttrsBetween(center, t); e != nil {
			volume = volume.Add(e.AmountUSDSum)
		}
	}

	header := model.NewHeader(model.PatternMotifFanOut, sorted, roles, now)
	header.DetectionMethod = "degree_percentile"
	header.EvidenceTransactionCount = int64(len(targets))
	header.EvidenceVolumeUSD = volume

	return &model.MotifPattern{
		PatternHeader: header, MotifType: "fanout", MotifCenterAddress: center,
		MotifParticipantCount: gr.InDegree(center) + gr.OutDegree(center),
	}
}
