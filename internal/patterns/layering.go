package patterns

import (
	"github.com/shopspring/decimal"

	"chainanalytics/internal/config"
	"chainanalytics/internal/features"
	"chainanalytics/internal/model"
)

// LayeringDetector implements spec §4.4.2: simple paths among high-volume
// nodes with low edge-amount variation, signalling layered fund movement.
type LayeringDetector struct {
	section config.Section
}

func NewLayeringDetector(cfg *config.DetectorConfig) (*LayeringDetector, error) {
	section, err := requireSection(cfg, config.SectionPathAnalysis)
	if err != nil {
		return nil, err
	}
	return &LayeringDetector{section: section}, nil
}

func (d *LayeringDetector) Detect(gr *model.Graph, network string, now int64) ([]model.LayeringPattern, error) {
	highVolumePct, err := d.section.Require(config.SectionPathAnalysis, network, "high_volume_percentile")
	if err != nil {
		return nil, err
	}
	maxSourceF, err := d.section.Require(config.SectionPathAnalysis, network, "max_source_nodes")
	if err != nil {
		return nil, err
	}
	maxTargetF, err := d.section.Require(config.SectionPathAnalysis, network, "max_target_nodes")
	if err != nil {
		return nil, err
	}
	maxPathLenF, err := d.section.Require(config.SectionPathAnalysis, network, "max_path_length")
	if err != nil {
		return nil, err
	}
	maxPathsToCheckF, err := d.section.Require(config.SectionPathAnalysis, network, "max_paths_to_check")
	if err != nil {
		return nil, err
	}
	minPathLenF, err := d.section.Require(config.SectionPathAnalysis, network, "min_path_length")
	if err != nil {
		return nil, err
	}
	cvThreshold, err := d.section.Require(config.SectionPathAnalysis, network, "layering_cv_threshold")
	if err != nil {
		return nil, err
	}
	minVolume, err := d.section.Require(config.SectionPathAnalysis, network, "layering_min_volume")
	if err != nil {
		return nil, err
	}

	addrs := gr.Addresses()
	volumes := make(map[string]float64, len(addrs))
	var allVolumes []float64
	for _, a := range addrs {
		v, _ := gr.NodeAttrs(a).TotalVolumeUSD.Float64()
		volumes[a] = v
		allVolumes = append(allVolumes, v)
	}
	threshold := percentile(allVolumes, highVolumePct)

	var highVolume []string
	for _, a := range addrs {
		if volumes[a] >= threshold {
			highVolume = append(highVolume, a)
		}
	}
	if len(highVolume) > int(maxSourceF) {
		highVolume = topNByVolume(highVolume, volumes, int(maxSourceF))
	}
	sources := highVolume
	targets := highVolume
	if len(targets) > int(maxTargetF) {
		targets = targets[:int(maxTargetF)]
	}

	var out []model.LayeringPattern
	seen := make(map[string]bool)
	checked := 0

	for _, src := range sources {
		if checked >= int(maxPathsToCheckF) {
			break
		}
		for _, dst := range targets {
			if src == dst || checked >= int(maxPathsToCheckF) {
				continue
			}
			paths := enumerateSimplePaths(gr, src, dst, int(maxPathLenF))
			for _, path := range paths {
				checked++
				if checked > int(maxPathsToCheckF) {
					break
				}
				if len(path) < int(minPathLenF) {
					continue
				}
				amounts := edgeAmounts(gr, path)
				_, cv := cvOf(amounts)
				total := sumFloat(amounts)
				if cv >= cvThreshold || total < minVolume {
					continue
				}

				id := model.PatternID(model.PatternLayeringPath, path)
				if seen[id] {
					continue
				}
				seen[id] = true

				roles := make([]string, len(path))
				roles[0] = "source"
				for i := 1; i < len(path)-1; i++ {
					roles[i] = "intermediary"
				}
				roles[len(path)-1] = "destination"

				header := model.NewHeader(model.PatternLayeringPath, path, roles, now)
				header.DetectionMethod = "simple_path_cv"
				header.EvidenceTransactionCount = int64(len(path) - 1)
				header.EvidenceVolumeUSD = decimal.NewFromFloat(total)

				out = append(out, model.LayeringPattern{
					PatternHeader: header, PathDepth: len(path),
					SourceAddress: path[0], DestinationAddress: path[len(path)-1], AmountCV: cv,
				})
			}
		}
	}
	return out, nil
}

func topNByVolume(addrs []string, volumes map[string]float64, n int) []string {
	out := append([]string(nil), addrs...)
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if volumes[out[j]] > volumes[out[i]] {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if n > len(out) {
		n = len(out)
	}
	return out[:n]
}

// enumerateSimplePaths DFS-enumerates simple directed paths from src to
// dst up to maxLen nodes.
func enumerateSimplePaths(gr *model.Graph, src, dst string, maxLen int) [][]string {
	var out [][]string
	visited := map[string]bool{src: true}
	var dfs func(current string, path []string)
	dfs = func(current string, path []string) {
		if len(path) > maxLen {
			return
		}
		if current == dst && len(path) > 1 {
			out = append(out, append([]string(nil), path...))
			return
		}
		for _, nb := range gr.Successors(current) {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			dfs(nb, append(path, nb))
			delete(visited, nb)
		}
	}
	dfs(src, []string{src})
	return out
}

func edgeAmounts(gr *model.Graph, path []string) []float64 {
	out := make([]float64, 0, len(path)-1)
	for i := 0; i < len(path)-1; i++ {
		if e := gr.EdgeAttrsBetween(path[i], path[i+1]); e != nil {
			v, _ := e.AmountUSDSum.Float64()
			out = append(out, v)
		}
	}
	return out
}

func cvOf(xs []float64) (variance, cv float64) {
	m := features.FromSamples(xs)
	return m.Variance, m.CV
}

func sumFloat(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum
}
