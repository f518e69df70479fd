package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/go-resty/resty/v2"

	"chainanalytics/internal/model"
)

// Section names, spec §6.
const (
	SectionCycleDetection     = "cycle_detection"
	SectionPathAnalysis       = "path_analysis"
	SectionProximityAnalysis  = "proximity_analysis"
	SectionNetworkAnalysis    = "network_analysis"
	SectionMotifDetection     = "motif_detection"
	SectionBurstDetection     = "burst_detection"
	SectionThresholdDetection = "threshold_detection"
	SectionSeverityAdjustments = "severity_adjustments"
	SectionRiskIdentification = "risk_identification"
	SectionSCCAnalysis        = "scc_analysis"
	SectionClustering         = "clustering"
	SectionTypologyRules      = "typology_rules"
)

// requiredKeys enumerates every required key per section per spec §4.4/§9:
// missing keys are construction-time errors, never silent zeros.
var requiredKeys = map[string][]string{
	SectionCycleDetection: {
		"min_cycle_length", "max_cycle_length", "max_cycles_per_scc",
	},
	SectionPathAnalysis: {
		"high_volume_percentile", "max_source_nodes", "max_target_nodes",
		"max_path_length", "max_paths_to_check", "min_path_length",
		"layering_cv_threshold", "layering_min_volume",
	},
	SectionSCCAnalysis: {
		"min_scc_size", "z_score_normalization", "anomaly_threshold",
	},
	SectionNetworkAnalysis: {
		"min_community_size", "max_community_size", "small_transaction_threshold",
		"small_transaction_ratio_threshold", "density_threshold",
	},
	SectionProximityAnalysis: {
		"max_distance", "distance_decay_factor",
	},
	SectionRiskIdentification: {
		"high_volume_threshold", "high_degree_threshold",
	},
	SectionMotifDetection: {
		"degree_percentile_threshold", "fanin_max_out_degree", "fanout_max_in_degree",
	},
	SectionBurstDetection: {
		"time_window_seconds", "min_burst_intensity", "min_burst_transactions", "z_score_threshold",
	},
	SectionThresholdDetection: {
		"near_lower_pct", "near_upper_pct", "min_transactions_near_threshold",
		"clustering_score_threshold", "consistency_threshold",
		"w_cluster", "w_consistency", "w_temporal",
	},
	SectionSeverityAdjustments: {},
	SectionClustering: {
		"min_alerts",
	},
	SectionTypologyRules: {
		"min_recipients", "min_volume_usd", "min_score", "min_tx", "max_amount_usd",
		"min_reciprocity", "max_counterparties", "min_burst", "min_velocity",
	},
}

// requiredLists enumerates keys that hold a []float64 instead of a scalar.
var requiredLists = map[string][]string{
	SectionThresholdDetection: {"thresholds"},
}

// Section is one detector's flat threshold map plus optional per-network
// overrides. Get resolves an effective value by checking
// network_overrides[network][key] before the flat value, per spec §4.4.
type Section struct {
	Values           map[string]float64
	Lists            map[string][]float64
	NetworkOverrides map[string]map[string]float64
}

func (s Section) Get(network, key string) (float64, bool) {
	if nm, ok := s.NetworkOverrides[network]; ok {
		if v, ok := nm[key]; ok {
			return v, true
		}
	}
	v, ok := s.Values[key]
	return v, ok
}

// Require is the construction-time-validated accessor detectors should use
// for any key enumerated in requiredKeys; a missing key here indicates the
// loader's own validation has a gap, so it is still an error rather than a
// silent default (spec §9).
func (s Section) Require(section, network, key string) (float64, error) {
	v, ok := s.Get(network, key)
	if !ok {
		return 0, model.NewError(model.KindConfigMissing, "config", section+"."+key, nil)
	}
	return v, nil
}

func (s Section) GetList(key string) ([]float64, bool) {
	v, ok := s.Lists[key]
	return v, ok
}

// DetectorConfig is the full JSON document: one Section per top-level key.
type DetectorConfig struct {
	Sections map[string]Section
}

// Section looks up a section, returning ConfigMissing if absent. Every
// detector calls this once at construction time (spec §4.4's "every
// detector must validate its configuration section on construction").
func (c *DetectorConfig) Section(name string) (Section, error) {
	s, ok := c.Sections[name]
	if !ok {
		return Section{}, model.NewError(model.KindConfigMissing, "config", name, nil)
	}
	return s, nil
}

type rawDoc map[string]json.RawMessage

// LoadDetectorConfig reads the JSON detector-threshold document from path.
// If the file is absent or fails to parse and fallbackURL is non-empty, it
// fetches the document via resty and persists it to path for next time,
// per spec §4.8.
func LoadDetectorConfig(path, fallbackURL string) (*DetectorConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil || !json.Valid(raw) {
		if fallbackURL == "" {
			if err != nil {
				return nil, fmt.Errorf("read detector config %s: %w", path, err)
			}
			return nil, fmt.Errorf("detector config %s is not valid JSON", path)
		}
		fetched, ferr := fetchRemoteConfig(fallbackURL)
		if ferr != nil {
			return nil, fmt.Errorf("load detector config: local read failed (%v) and remote fetch failed: %w", err, ferr)
		}
		raw = fetched
		if werr := os.WriteFile(path, raw, 0o644); werr != nil {
			return nil, fmt.Errorf("persist fetched detector config to %s: %w", path, werr)
		}
	}
	return parseDetectorConfig(raw)
}

func fetchRemoteConfig(url string) ([]byte, error) {
	client := resty.New().SetTimeout(10 * time.Second)
	resp, err := client.R().Get(url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("remote config fetch returned status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

func parseDetectorConfig(raw []byte) (*DetectorConfig, error) {
	var doc rawDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse detector config: %w", err)
	}

	cfg := &DetectorConfig{Sections: make(map[string]Section, len(doc))}
	for name, rawSection := range doc {
		section, err := decodeSection(rawSection)
		if err != nil {
			return nil, fmt.Errorf("decode section %s: %w", name, err)
		}
		cfg.Sections[name] = section
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeSection(raw json.RawMessage) (Section, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Section{}, err
	}

	section := Section{
		Values: make(map[string]float64),
		Lists:  make(map[string][]float64),
	}

	for key, val := range fields {
		if key == "network_overrides" {
			var overrides map[string]map[string]float64
			if err := json.Unmarshal(val, &overrides); err != nil {
				return Section{}, fmt.Errorf("network_overrides: %w", err)
			}
			section.NetworkOverrides = overrides
			continue
		}
		trimmed := bytes.TrimSpace(val)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var list []float64
			if err := json.Unmarshal(val, &list); err != nil {
				return Section{}, fmt.Errorf("%s: %w", key, err)
			}
			section.Lists[key] = list
			continue
		}
		var num float64
		if err := json.Unmarshal(val, &num); err != nil {
			return Section{}, fmt.Errorf("%s: %w", key, err)
		}
		section.Values[key] = num
	}
	return section, nil
}

func validate(cfg *DetectorConfig) error {
	for name, keys := range requiredKeys {
		section, ok := cfg.Sections[name]
		if !ok {
			return model.NewError(model.KindConfigMissing, "config", name, nil)
		}
		for _, key := range keys {
			if _, ok := section.Values[key]; !ok {
				return model.NewError(model.KindConfigMissing, "config", name+"."+key, nil)
			}
		}
	}
	for name, lists := range requiredLists {
		section, ok := cfg.Sections[name]
		if !ok {
			return model.NewError(model.KindConfigMissing, "config", name, nil)
		}
		for _, key := range lists {
			if _, ok := section.Lists[key]; !ok {
				return model.NewError(model.KindConfigMissing, "config", name+"."+key, nil)
			}
		}
	}
	return nil
}
