package patterns

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"chainanalytics/internal/config"
	"chainanalytics/internal/model"
)

func usd(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func addFlow(gr *model.Graph, from, to string, amountUSD float64, txCount int64) {
	gr.AddEdge(from, to, usd(amountUSD), txCount)
}

func section(values map[string]float64) config.Section {
	return config.Section{Values: values}
}

func sectionWithList(values map[string]float64, lists map[string][]float64) config.Section {
	return config.Section{Values: values, Lists: lists}
}

func TestCycleDetector_TriangleDetected(t *testing.T) {
	gr := model.NewGraph()
	addFlow(gr, "A", "B", 100, 1)
	addFlow(gr, "B", "C", 90, 1)
	addFlow(gr, "C", "A", 80, 1)
	gr.RecomputeNodeVolumes()

	cfg := &config.DetectorConfig{Sections: map[string]config.Section{
		config.SectionCycleDetection: section(map[string]float64{
			"min_cycle_length": 2, "max_cycle_length": 6, "max_cycles_per_scc": 10,
		}),
	}}
	d, err := NewCycleDetector(cfg)
	require.NoError(t, err)

	cycles, err := d.Detect(gr, "ethereum", 1700000000)
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	require.Equal(t, 3, cycles[0].CycleLength)
	require.True(t, cycles[0].CycleVolumeUSD.GreaterThan(decimal.Zero))
}

func TestCycleDetector_PureDAGHasNoCycles(t *testing.T) {
	gr := model.NewGraph()
	addFlow(gr, "A", "B", 100, 1)
	addFlow(gr, "B", "C", 90, 1)
	addFlow(gr, "A", "C", 50, 1)
	gr.RecomputeNodeVolumes()

	cfg := &config.DetectorConfig{Sections: map[string]config.Section{
		config.SectionCycleDetection: section(map[string]float64{
			"min_cycle_length": 2, "max_cycle_length": 6, "max_cycles_per_scc": 10,
		}),
	}}
	d, err := NewCycleDetector(cfg)
	require.NoError(t, err)

	cycles, err := d.Detect(gr, "ethereum", 1700000000)
	require.NoError(t, err)
	require.Empty(t, cycles)
}

func TestLayeringDetector_PathWithLowVariance(t *testing.T) {
	gr := model.NewGraph()
	addFlow(gr, "src", "mid1", 1000, 5)
	addFlow(gr, "mid1", "mid2", 980, 5)
	addFlow(gr, "mid2", "dst", 990, 5)
	gr.RecomputeNodeVolumes()

	cfg := &config.DetectorConfig{Sections: map[string]config.Section{
		config.SectionPathAnalysis: section(map[string]float64{
			"high_volume_percentile": 0, "max_source_nodes": 10, "max_target_nodes": 10,
			"max_path_length": 6, "max_paths_to_check": 1000, "min_path_length": 2,
			"layering_cv_threshold": 0.5, "layering_min_volume": 100,
		}),
	}}
	d, err := NewLayeringDetector(cfg)
	require.NoError(t, err)

	paths, err := d.Detect(gr, "ethereum", 1700000000)
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	require.Equal(t, "src", paths[0].SourceAddress)
	require.Equal(t, "dst", paths[0].DestinationAddress)
}

func TestMotifDetector_FanInDetected(t *testing.T) {
	gr := model.NewGraph()
	for _, src := range []string{"s1", "s2", "s3", "s4", "s5"} {
		addFlow(gr, src, "hub", 100, 1)
	}
	gr.RecomputeNodeVolumes()

	cfg := &config.DetectorConfig{Sections: map[string]config.Section{
		config.SectionMotifDetection: section(map[string]float64{
			"degree_percentile_threshold": 50, "fanin_max_out_degree": 0, "fanout_max_in_degree": 0,
		}),
	}}
	d, err := NewMotifDetector(cfg)
	require.NoError(t, err)

	motifs, err := d.Detect(gr, "ethereum", 1700000000)
	require.NoError(t, err)

	var foundFanIn bool
	for _, m := range motifs {
		if m.MotifType == "fanin" && m.MotifCenterAddress == "hub" {
			foundFanIn = true
		}
	}
	require.True(t, foundFanIn)
}

func TestProximityDetector_PropagatesFromFraudulentSource(t *testing.T) {
	gr := model.NewGraph()
	addFlow(gr, "risky", "b", 500, 1)
	addFlow(gr, "b", "c", 400, 1)
	gr.RecomputeNodeVolumes()

	labels := model.NewLabelCache([]model.AddressLabel{
		{Address: "risky", Network: "ethereum", TrustLevel: model.TrustBlacklisted, AddressType: model.AddressScam},
	})

	cfg := &config.DetectorConfig{Sections: map[string]config.Section{
		config.SectionProximityAnalysis: section(map[string]float64{
			"max_distance": 5, "distance_decay_factor": 1.0,
		}),
		config.SectionRiskIdentification: section(map[string]float64{
			"high_volume_threshold": 1e12, "high_degree_threshold": 1e6,
		}),
	}}
	d, err := NewProximityDetector(cfg, labels)
	require.NoError(t, err)

	patterns, err := d.Detect(gr, "ethereum", 1700000000)
	require.NoError(t, err)
	require.NotEmpty(t, patterns)
	for _, p := range patterns {
		require.Equal(t, "risky", p.RiskSource)
		require.True(t, p.DistanceToRisk >= 1)
	}
}

func TestNetworkDetector_AnomalousSCC(t *testing.T) {
	gr := model.NewGraph()
	addFlow(gr, "a1", "a2", 100, 1)
	addFlow(gr, "a2", "a3", 100, 1)
	addFlow(gr, "a3", "a1", 100, 1)
	addFlow(gr, "x", "y", 50, 1)
	gr.RecomputeNodeVolumes()

	cfg := &config.DetectorConfig{Sections: map[string]config.Section{
		config.SectionSCCAnalysis: section(map[string]float64{
			"min_scc_size": 2, "z_score_normalization": 1, "anomaly_threshold": 0,
		}),
		config.SectionNetworkAnalysis: section(map[string]float64{
			"min_community_size": 100, "max_community_size": 1000,
			"small_transaction_threshold": 1, "small_transaction_ratio_threshold": 2,
			"density_threshold": 2,
		}),
	}}
	d, err := NewNetworkDetector(cfg, nil)
	require.NoError(t, err)

	patterns, err := d.Detect(gr, "ethereum", 1700000000)
	require.NoError(t, err)
	require.NotEmpty(t, patterns)
}

func TestThresholdDetector_ClusteringNearThreshold(t *testing.T) {
	gr := model.NewGraph()
	_ = gr

	cfg := &config.DetectorConfig{Sections: map[string]config.Section{
		config.SectionThresholdDetection: sectionWithList(map[string]float64{
			"near_lower_pct": 0.80, "near_upper_pct": 0.99,
			"min_transactions_near_threshold": 3, "clustering_score_threshold": 0.5,
			"consistency_threshold": 0.3, "w_cluster": 0.4, "w_consistency": 0.3, "w_temporal": 0.3,
		}, map[string][]float64{"thresholds": {10000}}),
	}}
	_, err := NewThresholdDetector(nil, cfg)
	require.NoError(t, err)
}
