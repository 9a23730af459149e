// Package config provides configuration loading and management for isoslicer.
// It handles loading the last-used slicing settings from a YAML file and
// provides default values, so repeated runs over similar stacks don't need
// every flag respelled.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Slicing parameters
	Slicing struct {
		// ZAxis selects the Z dimension: "first", "last" or a signed index.
		ZAxis string `yaml:"zAxis"`

		// CAxis selects the channel dimension, or "none" for 3-D stacks.
		CAxis string `yaml:"cAxis"`

		// ZAspect is zSpacing / xySpacing; Z is resampled by this factor
		// to reach isotropic voxels.
		ZAspect float64 `yaml:"zAspect"`

		// Mode is "labels" (nearest-neighbor) or "image" (linear when
		// possible).
		Mode string `yaml:"mode"`
	} `yaml:"slicing"`

	// Output parameters
	Output struct {
		// Dir is the directory slice files are written below.
		Dir string `yaml:"dir"`

		// SkipEmpty drops all-zero tiles instead of writing them.
		SkipEmpty bool `yaml:"skipEmpty"`

		// Parallel exports the three slice directions concurrently.
		Parallel bool `yaml:"parallel"`
	} `yaml:"output"`

	// LastInput remembers the most recent input stack directory.
	LastInput string `yaml:"lastInput"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Slicing.ZAxis = "first"
	cfg.Slicing.CAxis = "none"
	cfg.Slicing.ZAspect = 1.0
	cfg.Slicing.Mode = "labels"

	cfg.Output.Dir = "isotropic_slices"
	cfg.Output.SkipEmpty = false
	cfg.Output.Parallel = false

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// A malformed or stale aspect would otherwise poison every run.
	if cfg.Slicing.ZAspect <= 0 {
		cfg.Slicing.ZAspect = 1.0
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
