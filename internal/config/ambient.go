// Package config loads the two configuration layers the pipeline needs:
// an ambient YAML config (database, cache, logging) in this file, and the
// JSON per-detector threshold config in detector.go.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Ambient mirrors the teacher's internal/config/config.go nesting style,
// trimmed to what the analytics engine's surrounding collaborators need:
// a database to read/write partitions from, an optional Redis label
// cache, and where to find the JSON detector config.
type Ambient struct {
	Database struct {
		DSN             string `yaml:"dsn"`
		Driver          string `yaml:"driver"` // "mysql" or "sqlite"
		Automigrate     bool   `yaml:"automigrate"`
		MaxOpenConns    int    `yaml:"max_open_conns"`
		MaxIdleConns    int    `yaml:"max_idle_conns"`
	} `yaml:"database"`

	Redis struct {
		Enable   bool   `yaml:"enable"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	Metrics struct {
		Port int `yaml:"port"`
	} `yaml:"metrics"`

	Networks []string `yaml:"networks"`

	DetectorConfig struct {
		Path        string `yaml:"path"`
		FallbackURL string `yaml:"fallback_url"`
	} `yaml:"detector_config"`
}

func LoadAmbient(path string) (*Ambient, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ambient config %s: %w", path, err)
	}
	var cfg Ambient
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse ambient config %s: %w", path, err)
	}
	return &cfg, nil
}
