package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainanalytics/internal/model"
)

const sampleDoc = `{
  "cycle_detection": {"min_cycle_length": 2, "max_cycle_length": 6, "max_cycles_per_scc": 50},
  "path_analysis": {"high_volume_percentile": 90, "max_source_nodes": 20, "max_target_nodes": 20,
    "max_path_length": 6, "max_paths_to_check": 5000, "min_path_length": 3,
    "layering_cv_threshold": 0.2, "layering_min_volume": 10000,
    "network_overrides": {"ethereum": {"layering_min_volume": 25000}}},
  "scc_analysis": {"min_scc_size": 3, "z_score_normalization": 3, "anomaly_threshold": 0.6},
  "network_analysis": {"min_community_size": 4, "max_community_size": 200,
    "small_transaction_threshold": 1000, "small_transaction_ratio_threshold": 0.6, "density_threshold": 0.3},
  "proximity_analysis": {"max_distance": 3, "distance_decay_factor": 1.0},
  "risk_identification": {"high_volume_threshold": 1000000, "high_degree_threshold": 50},
  "motif_detection": {"degree_percentile_threshold": 95, "fanin_max_out_degree": 2, "fanout_max_in_degree": 2},
  "burst_detection": {"time_window_seconds": 3600, "min_burst_intensity": 3,
    "min_burst_transactions": 5, "z_score_threshold": 2.5},
  "threshold_detection": {"thresholds": [10000, 3000], "near_lower_pct": 0.8, "near_upper_pct": 0.99,
    "min_transactions_near_threshold": 5, "clustering_score_threshold": 0.5, "consistency_threshold": 0.5,
    "w_cluster": 0.4, "w_consistency": 0.3, "w_temporal": 0.3},
  "severity_adjustments": {},
  "clustering": {"min_alerts": 2}
}`

func TestLoadDetectorConfig_Valid(t *testing.T) {
	cfg, err := parseDetectorConfig([]byte(sampleDoc))
	require.NoError(t, err)

	path, err := cfg.Section(SectionPathAnalysis)
	require.NoError(t, err)

	v, ok := path.Get("polygon", "layering_min_volume")
	require.True(t, ok)
	assert.Equal(t, 10000.0, v)

	v, ok = path.Get("ethereum", "layering_min_volume")
	require.True(t, ok)
	assert.Equal(t, 25000.0, v, "network override must win over the flat value")

	th, err := cfg.Section(SectionThresholdDetection)
	require.NoError(t, err)
	list, ok := th.GetList("thresholds")
	require.True(t, ok)
	assert.Equal(t, []float64{10000, 3000}, list)
}

func TestLoadDetectorConfig_MissingSection(t *testing.T) {
	_, err := parseDetectorConfig([]byte(`{"cycle_detection": {"min_cycle_length": 2, "max_cycle_length": 6, "max_cycles_per_scc": 50}}`))
	require.Error(t, err)
	var e *model.Error
	require.True(t, model.AsError(err, &e))
	assert.Equal(t, model.KindConfigMissing, e.Kind)
}

func TestLoadDetectorConfig_MissingKey(t *testing.T) {
	_, err := parseDetectorConfig([]byte(`{"cycle_detection": {"min_cycle_length": 2}}`))
	require.Error(t, err)
	var e *model.Error
	require.True(t, model.AsError(err, &e))
	assert.Equal(t, model.KindConfigMissing, e.Kind)
}
