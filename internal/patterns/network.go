package patterns

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/topo"

	"chainanalytics/internal/config"
	"chainanalytics/internal/model"
)

// NetworkDetector implements spec §4.4.3's two sub-detectors, both
// emitting pattern_type=smurfing_network: anomalous_scc and
// smurfing_community.
type NetworkDetector struct {
	sccSection     config.Section
	networkSection config.Section
	labels         *model.LabelCache
}

func NewNetworkDetector(cfg *config.DetectorConfig, labels *model.LabelCache) (*NetworkDetector, error) {
	sccSection, err := requireSection(cfg, config.SectionSCCAnalysis)
	if err != nil {
		return nil, err
	}
	networkSection, err := requireSection(cfg, config.SectionNetworkAnalysis)
	if err != nil {
		return nil, err
	}
	return &NetworkDetector{sccSection: sccSection, networkSection: networkSection, labels: labels}, nil
}

func (d *NetworkDetector) Detect(gr *model.Graph, network string, now int64) ([]model.NetworkPattern, error) {
	var out []model.NetworkPattern

	anomalous, err := d.detectAnomalousSCC(gr, network, now)
	if err != nil {
		return nil, err
	}
	out = append(out, anomalous...)

	smurfing, err := d.detectSmurfingCommunities(gr, network, now)
	if err != nil {
		return nil, err
	}
	out = append(out, smurfing...)

	return out, nil
}

func (d *NetworkDetector) detectAnomalousSCC(gr *model.Graph, network string, now int64) ([]model.NetworkPattern, error) {
	minSize, err := d.sccSection.Require(config.SectionSCCAnalysis, network, "min_scc_size")
	if err != nil {
		return nil, err
	}
	zNorm, err := d.sccSection.Require(config.SectionSCCAnalysis, network, "z_score_normalization")
	if err != nil {
		return nil, err
	}
	anomalyThreshold, err := d.sccSection.Require(config.SectionSCCAnalysis, network, "anomaly_threshold")
	if err != nil {
		return nil, err
	}

	sccs := topo.TarjanSCC(gr.Directed())
	var qualifying [][]graph.Node
	var sizes []float64
	for _, scc := range sccs {
		if len(scc) >= int(minSize) {
			qualifying = append(qualifying, scc)
			sizes = append(sizes, float64(len(scc)))
		}
	}
	if len(qualifying) == 0 {
		return nil, nil
	}
	mean, std := meanStd(sizes)

	var out []model.NetworkPattern
	for _, scc := range qualifying {
		z := zScore(float64(len(scc)), mean, std)
		normalized := clip01(z / zNorm)

		members := make([]string, len(scc))
		for i, n := range scc {
			members[i] = gr.Address(n.ID())
		}
		severity := adjustSeverity(normalized, members, d.labels)
		if severity < anomalyThreshold {
			continue
		}

		sorted := sortedCopy(members)
		roles := make([]string, len(sorted))
		for i := range roles {
			roles[i] = "participant"
		}
		header := model.NewHeader(model.PatternSmurfingNetwork, sorted, roles, now)
		header.DetectionMethod = "anomalous_scc"
		header.EvidenceTransactionCount = int64(len(sorted))

		out = append(out, model.NetworkPattern{
			PatternHeader: header, SubTag: "anomalous_scc",
			NetworkMembers: sorted, NetworkSize: len(sorted), SeverityScore: severity,
		})
	}
	return out, nil
}

func (d *NetworkDetector) detectSmurfingCommunities(gr *model.Graph, network string, now int64) ([]model.NetworkPattern, error) {
	minSize, err := d.networkSection.Require(config.SectionNetworkAnalysis, network, "min_community_size")
	if err != nil {
		return nil, err
	}
	maxSize, err := d.networkSection.Require(config.SectionNetworkAnalysis, network, "max_community_size")
	if err != nil {
		return nil, err
	}
	smallTxThreshold, err := d.networkSection.Require(config.SectionNetworkAnalysis, network, "small_transaction_threshold")
	if err != nil {
		return nil, err
	}
	smallRatioThreshold, err := d.networkSection.Require(config.SectionNetworkAnalysis, network, "small_transaction_ratio_threshold")
	if err != nil {
		return nil, err
	}
	densityThreshold, err := d.networkSection.Require(config.SectionNetworkAnalysis, network, "density_threshold")
	if err != nil {
		return nil, err
	}

	ug := gr.UndirectedProjection()
	if ug.Nodes().Len() == 0 {
		return nil, nil
	}
	reduced := community.Modularize(ug, 1.0, nil)
	if reduced == nil {
		return nil, model.NewError(model.KindCommunityDetectionFailed, "patterns", "modularize returned nil", nil)
	}

	var out []model.NetworkPattern
	for _, members := range reduced.Communities() {
		if len(members) < int(minSize) || len(members) > int(maxSize) {
			continue
		}
		addrs := make([]string, len(members))
		memberSet := make(map[int64]bool, len(members))
		for i, n := range members {
			addrs[i] = gr.Address(n.ID())
			memberSet[n.ID()] = true
		}

		var totalEdges, smallEdges int
		var possibleEdges = len(members) * (len(members) - 1) / 2
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				a, b := gr.Address(members[i].ID()), gr.Address(members[j].ID())
				e1 := gr.EdgeAttrsBetween(a, b)
				e2 := gr.EdgeAttrsBetween(b, a)
				if e1 == nil && e2 == nil {
					continue
				}
				totalEdges++
				if edgeIsSmall(e1, smallTxThreshold) || edgeIsSmall(e2, smallTxThreshold) {
					smallEdges++
				}
			}
		}
		if totalEdges == 0 {
			continue
		}
		smallRatio := float64(smallEdges) / float64(totalEdges)
		density := 0.0
		if possibleEdges > 0 {
			density = float64(totalEdges) / float64(possibleEdges)
		}
		if smallRatio <= smallRatioThreshold || density <= densityThreshold {
			continue
		}

		hubs := topDegreeHubs(gr, addrs)
		sorted := sortedCopy(addrs)
		roles := make([]string, len(sorted))
		hubSet := make(map[string]bool, len(hubs))
		for _, h := range hubs {
			hubSet[h] = true
		}
		for i, a := range sorted {
			if hubSet[a] {
				roles[i] = "hub"
			} else {
				roles[i] = "participant"
			}
		}

		severity := adjustSeverity(smallRatio, addrs, d.labels)

		header := model.NewHeader(model.PatternSmurfingNetwork, sorted, roles, now)
		header.DetectionMethod = "smurfing_community"
		header.EvidenceTransactionCount = int64(totalEdges)

		out = append(out, model.NetworkPattern{
			PatternHeader: header, SubTag: "smurfing_community",
			NetworkMembers: sorted, NetworkSize: len(sorted), NetworkDensity: density,
			HubAddresses: hubs, SeverityScore: severity,
		})
	}
	return out, nil
}

func edgeIsSmall(e *model.EdgeAttrs, threshold float64) bool {
	if e == nil {
		return false
	}
	v, _ := e.AmountUSDSum.Float64()
	return v < threshold
}

// topDegreeHubs returns the top 20% of members by undirected degree,
// minimum 1 (spec §4.4.3).
func topDegreeHubs(gr *model.Graph, addrs []string) []string {
	type degreeEntry struct {
		addr   string
		degree int
	}
	entries := make([]degreeEntry, len(addrs))
	for i, a := range addrs {
		entries[i] = degreeEntry{a, gr.InDegree(a) + gr.OutDegree(a)}
	}
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[j].degree > entries[i].degree {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}
	n := len(entries) / 5
	if n < 1 {
		n = 1
	}
	if n > len(entries) {
		n = len(entries)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = entries[i].addr
	}
	return out
}
