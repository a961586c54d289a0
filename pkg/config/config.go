// Package config provides configuration loading and management for lungprep.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"lungprep/pkg/normalize"
	"lungprep/pkg/segmentation"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// Workers bounds how many patients are processed concurrently.
		// Isotropic CT/PET volumes are large, so this should track
		// available memory rather than core count on small machines.
		Workers int `yaml:"workers"`

		// TargetSpacing is the requested isotropic spacing in mm.
		TargetSpacing [3]float64 `yaml:"targetSpacing"`

		// StackingAxis is the slice-stacking axis of loaded volumes.
		StackingAxis int `yaml:"stackingAxis"`
	} `yaml:"processing"`

	// Segmentation parameters
	Segmentation struct {
		// FillLungStructures folds enclosed solid structures into the mask
		FillLungStructures bool `yaml:"fillLungStructures"`

		// AirThreshold is the air/tissue boundary in HU
		AirThreshold float64 `yaml:"airThreshold"`

		// ClosingHalfWidth is the sealing structuring element half-width
		ClosingHalfWidth int `yaml:"closingHalfWidth"`

		// DilationHalfWidth is the margin structuring element half-width
		DilationHalfWidth int `yaml:"dilationHalfWidth"`

		// CornerVoting picks the exterior-air label by majority over all
		// eight corners instead of the single origin corner
		CornerVoting bool `yaml:"cornerVoting"`
	} `yaml:"segmentation"`

	// Normalization parameters
	Normalization struct {
		// Enabled controls whether a normalized CT copy is produced
		Enabled bool `yaml:"enabled"`

		// MinBound and MaxBound are the clipping bounds in HU
		MinBound float64 `yaml:"minBound"`
		MaxBound float64 `yaml:"maxBound"`

		// ZeroCenter subtracts PixelMean after normalization
		ZeroCenter bool    `yaml:"zeroCenter"`
		PixelMean  float64 `yaml:"pixelMean"`
	} `yaml:"normalization"`

	// Output parameters
	Output struct {
		// Dir is the root directory for processed patient data
		Dir string `yaml:"dir"`

		// SavePreviews renders per-slice PNG previews of the segmented CT
		SavePreviews bool `yaml:"savePreviews"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.Workers = runtime.NumCPU()
	cfg.Processing.TargetSpacing = [3]float64{1, 1, 1}
	cfg.Processing.StackingAxis = 0

	cfg.Segmentation.FillLungStructures = true
	cfg.Segmentation.AirThreshold = segmentation.DefaultAirThreshold
	cfg.Segmentation.ClosingHalfWidth = segmentation.DefaultClosingHalfWidth
	cfg.Segmentation.DilationHalfWidth = segmentation.DefaultDilationHalfWidth
	cfg.Segmentation.CornerVoting = false

	cfg.Normalization.Enabled = false
	cfg.Normalization.MinBound = normalize.DefaultMinBound
	cfg.Normalization.MaxBound = normalize.DefaultMaxBound
	cfg.Normalization.ZeroCenter = false
	cfg.Normalization.PixelMean = normalize.DefaultPixelMean

	cfg.Output.Dir = "processed_data"
	cfg.Output.SavePreviews = false
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
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

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
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
