package patterns

import (
	"sort"

	"chainanalytics/internal/config"
	"chainanalytics/internal/model"
)

// ProximityDetector implements spec §4.4.4: unweighted BFS hop-distance
// propagation of risk from labeled-fraudulent addresses (or a volume/degree
// heuristic fallback) across the undirected adjacency.
type ProximityDetector struct {
	proximitySection config.Section
	riskSection      config.Section
	labels           *model.LabelCache
}

func NewProximityDetector(cfg *config.DetectorConfig, labels *model.LabelCache) (*ProximityDetector, error) {
	proximitySection, err := requireSection(cfg, config.SectionProximityAnalysis)
	if err != nil {
		return nil, err
	}
	riskSection, err := requireSection(cfg, config.SectionRiskIdentification)
	if err != nil {
		return nil, err
	}
	return &ProximityDetector{proximitySection: proximitySection, riskSection: riskSection, labels: labels}, nil
}

func (d *ProximityDetector) Detect(gr *model.Graph, network string, now int64) ([]model.ProximityPattern, error) {
	maxDistance, err := d.proximitySection.Require(config.SectionProximityAnalysis, network, "max_distance")
	if err != nil {
		return nil, err
	}
	decayFactor, err := d.proximitySection.Require(config.SectionProximityAnalysis, network, "distance_decay_factor")
	if err != nil {
		return nil, err
	}
	highVolumeThreshold, err := d.riskSection.Require(config.SectionRiskIdentification, network, "high_volume_threshold")
	if err != nil {
		return nil, err
	}
	highDegreeThreshold, err := d.riskSection.Require(config.SectionRiskIdentification, network, "high_degree_threshold")
	if err != nil {
		return nil, err
	}

	riskSources := d.riskSources(gr, highVolumeThreshold, highDegreeThreshold)
	if len(riskSources) == 0 {
		return nil, nil
	}

	var out []model.ProximityPattern
	seen := make(map[string]bool)

	for _, risk := range riskSources {
		distances := bfsHopDistances(gr, risk)
		for _, a := range gr.Addresses() {
			if a == risk {
				continue
			}
			distance, ok := distances[a]
			if !ok || distance < 1 || float64(distance) > maxDistance {
				continue
			}

			participants := []string{risk, a}
			pid := model.PatternID(model.PatternProximityRisk, participants)
			if seen[pid] {
				continue
			}
			seen[pid] = true

			propagation := decayFactor / float64(distance+1)
			severity := adjustSeverity(propagation, participants, d.labels)

			sorted := sortedCopy(participants)
			roles := []string{"risk_source", "suspect"}
			header := model.NewHeader(model.PatternProximityRisk, sorted, roles, now)
			header.DetectionMethod = "bfs_hop_distance"

			out = append(out, model.ProximityPattern{
				PatternHeader: header, RiskSource: risk, Suspect: a,
				DistanceToRisk: distance, RiskPropagationScore: propagation, SeverityScore: severity,
			})
		}
	}
	return out, nil
}

// riskSources returns labeled-fraudulent addresses; if the label cache is
// empty or has none, falls back to the high-volume/high-degree heuristic
// (spec §4.4.4).
func (d *ProximityDetector) riskSources(gr *model.Graph, highVolumeThreshold, highDegreeThreshold float64) []string {
	var labeled []string
	if d.labels != nil {
		for _, a := range gr.Addresses() {
			if l, ok := d.labels.Lookup(a); ok && l.IsFraudulent() {
				labeled = append(labeled, a)
			}
		}
	}
	if len(labeled) > 0 {
		sort.Strings(labeled)
		return labeled
	}

	var heuristic []string
	for _, a := range gr.Addresses() {
		vol, _ := gr.NodeAttrs(a).TotalVolumeUSD.Float64()
		degree := gr.InDegree(a) + gr.OutDegree(a)
		if vol > highVolumeThreshold && float64(degree) > highDegreeThreshold {
			heuristic = append(heuristic, a)
		}
	}
	sort.Strings(heuristic)
	return heuristic
}

// bfsHopDistances returns unweighted hop counts from src to every address
// reachable over the undirected adjacency (successor and predecessor edges
// both count as one hop), per spec §4.4.4's hop-distance propagation.
func bfsHopDistances(gr *model.Graph, src string) map[string]int {
	distances := map[string]int{src: 0}
	frontier := []string{src}
	for len(frontier) > 0 {
		var next []string
		for _, addr := range frontier {
			for _, nb := range append(gr.Successors(addr), gr.Predecessors(addr)...) {
				if _, seen := distances[nb]; !seen {
					distances[nb] = distances[addr] + 1
					next = append(next, nb)
				}
			}
		}
		frontier = next
	}
	return distances
}
