package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the batch command's YAML configuration.
type Config struct {
	Input   InputConfig   `yaml:"input"`
	Output  OutputConfig  `yaml:"output"`
	Band    BandConfig    `yaml:"band"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// InputConfig names the chunk files to merge.
type InputConfig struct {
	Chunks []string `yaml:"chunks"`
}

// OutputConfig names the directory per-band artifacts are written to.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// BandConfig tunes the classifier, quantiser, and tier builder.
type BandConfig struct {
	GridTolerance float64 `yaml:"grid_tolerance"`
	ReservoirCap  int     `yaml:"reservoir_cap"`
	TierCap       int     `yaml:"tier_cap"`
	Seed          int64   `yaml:"seed"`
}

// MetricsConfig controls the Prometheus exposition the batch command
// writes out as a textfile-collector snapshot (no HTTP server: the
// façade is out of scope).
type MetricsConfig struct {
	Enabled      bool   `yaml:"enabled"`
	TextfilePath string `yaml:"textfile_path"`
}

// LoadConfig loads and validates the batch command's configuration.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the fields the batch command cannot proceed without.
func (c *Config) Validate() error {
	if len(c.Input.Chunks) == 0 {
		return fmt.Errorf("input.chunks must name at least one chunk file")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must be set")
	}
	return nil
}
