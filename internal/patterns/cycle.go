package patterns

import (
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/topo"

	"chainanalytics/internal/config"
	"chainanalytics/internal/model"
)

// CycleDetector implements spec §4.4.1: enumerate simple cycles within
// each strongly connected component of size ≥2.
type CycleDetector struct {
	section config.Section
}

func NewCycleDetector(cfg *config.DetectorConfig) (*CycleDetector, error) {
	section, err := requireSection(cfg, config.SectionCycleDetection)
	if err != nil {
		return nil, err
	}
	return &CycleDetector{section: section}, nil
}

// Detect enumerates cycle patterns across every SCC of size ≥2. A failure
// enumerating one SCC is skipped; others continue (spec §4.4.1). Thresholds
// are read per call so cycle_detection.network_overrides apply like every
// other detector.
func (d *CycleDetector) Detect(gr *model.Graph, network string, now int64) ([]model.CyclePattern, error) {
	minLen, err := d.section.Require(config.SectionCycleDetection, network, "min_cycle_length")
	if err != nil {
		return nil, err
	}
	maxLen, err := d.section.Require(config.SectionCycleDetection, network, "max_cycle_length")
	if err != nil {
		return nil, err
	}
	maxPerSCC, err := d.section.Require(config.SectionCycleDetection, network, "max_cycles_per_scc")
	if err != nil {
		return nil, err
	}
	bounds := cycleBounds{minLen: int(minLen), maxLen: int(maxLen), maxPerSCC: int(maxPerSCC)}

	sccs := topo.TarjanSCC(gr.Directed())

	var out []model.CyclePattern
	seen := make(map[string]bool)

	for _, scc := range sccs {
		if len(scc) < 2 {
			continue
		}
		members := make(map[int64]bool, len(scc))
		for _, n := range scc {
			members[n.ID()] = true
		}
		cycles := bounds.enumerateCycles(gr, scc, members)
		for _, path := range cycles {
			addrs := make([]string, len(path))
			for i, id := range path {
				addrs[i] = gr.Address(id)
			}
			id := model.PatternID(model.PatternCycle, addrs)
			if seen[id] {
				continue
			}
			seen[id] = true

			roles := make([]string, len(addrs))
			for i := range roles {
				roles[i] = "participant"
			}
			header := model.NewHeader(model.PatternCycle, addrs, roles, now)
			header.DetectionMethod = "dfs_cycle_enumeration"

			volume := cycleVolume(gr, path)
			header.EvidenceVolumeUSD = volume
			header.EvidenceTransactionCount = int64(len(path))

			out = append(out, model.CyclePattern{
				PatternHeader: header, CyclePath: addrs,
				CycleLength: len(path), CycleVolumeUSD: volume,
			})
		}
	}
	return out, nil
}

// cycleBounds are the per-call, possibly network-overridden enumeration
// limits threaded through enumerateCycles/dfs.
type cycleBounds struct {
	minLen, maxLen int
	maxPerSCC      int
}

// enumerateCycles runs a depth-bounded DFS from every SCC member,
// capped at maxPerSCC cycles, looking only at edges internal to the SCC.
func (b cycleBounds) enumerateCycles(gr *model.Graph, scc []graph.Node, members map[int64]bool) [][]int64 {
	var found [][]int64
	for _, start := range scc {
		if len(found) >= b.maxPerSCC {
			break
		}
		visited := map[int64]bool{start.ID(): true}
		path := []int64{start.ID()}
		b.dfs(gr, start.ID(), start.ID(), members, visited, path, &found)
	}
	return found
}

func (b cycleBounds) dfs(gr *model.Graph, start, current int64, members map[int64]bool, visited map[int64]bool, path []int64, found *[][]int64) {
	if len(*found) >= b.maxPerSCC {
		return
	}
	if len(path) > b.maxLen {
		return
	}
	for _, nb := range gr.Successors(gr.Address(current)) {
		nbID, ok := gr.NodeID(nb)
		if !ok || !members[nbID] {
			continue
		}
		if nbID == start && len(path) >= b.minLen {
			cp := append([]int64(nil), path...)
			*found = append(*found, cp)
			if len(*found) >= b.maxPerSCC {
				return
			}
			continue
		}
		if visited[nbID] {
			continue
		}
		visited[nbID] = true
		b.dfs(gr, start, nbID, members, visited, append(path, nbID), found)
		delete(visited, nbID)
		if len(*found) >= b.maxPerSCC {
			return
		}
	}
}

func cycleVolume(gr *model.Graph, path []int64) decimal.Decimal {
	var out decimal.Decimal
	for i := 0; i < len(path); i++ {
		from := gr.Address(path[i])
		to := gr.Address(path[(i+1)%len(path)])
		if e := gr.EdgeAttrsBetween(from, to); e != nil {
			out = out.Add(e.AmountUSDSum)
		}
	}
	return out
}
