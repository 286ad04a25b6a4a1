package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// AlgorithmConfig selects a registered maker by name and carries its params.
type AlgorithmConfig struct {
	Name   string `json:"name" yaml:"name"`
	Params Params `json:"params,omitempty" yaml:"params,omitempty"`
}

// PipelineConfig describes one TA -> TC pipeline run.
type PipelineConfig struct {
	Activity  AlgorithmConfig `json:"activity" yaml:"activity"`
	Candidate AlgorithmConfig `json:"candidate" yaml:"candidate"`

	// Partitions is the number of parallel pipelines. Primitives are
	// sharded between them by detector element.
	Partitions *int `json:"partitions,omitempty" yaml:"partitions,omitempty"`
	// ReportInterval is how often telemetry is sampled, as a duration
	// string like "1s".
	ReportInterval *string `json:"report_interval,omitempty" yaml:"report_interval,omitempty"`
}

// DefaultPipelineConfig returns a single-partition prescale-1 pipeline,
// which passes every primitive through.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		Activity:       AlgorithmConfig{Name: "prescale"},
		Candidate:      AlgorithmConfig{Name: "prescale"},
		Partitions:     ptrInt(1),
		ReportInterval: ptrString("1s"),
	}
}

// LoadPipelineConfig loads a PipelineConfig from a .json, .yaml or .yml file.
// The file must be under the max file size. Omitted fields keep the
// defaults applied by the Get* accessors.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &PipelineConfig{}
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid. Maker params
// are checked later, when each maker is configured.
func (c *PipelineConfig) Validate() error {
	if c.Activity.Name == "" {
		return fmt.Errorf("activity.name must be set")
	}
	if c.Candidate.Name == "" {
		return fmt.Errorf("candidate.name must be set")
	}
	if c.Partitions != nil && *c.Partitions < 1 {
		return fmt.Errorf("partitions must be at least 1, got %d", *c.Partitions)
	}
	if c.ReportInterval != nil && *c.ReportInterval != "" {
		if _, err := time.ParseDuration(*c.ReportInterval); err != nil {
			return fmt.Errorf("invalid report_interval '%s': %w", *c.ReportInterval, err)
		}
	}
	return nil
}

// GetPartitions returns the partitions value or the default.
func (c *PipelineConfig) GetPartitions() int {
	if c.Partitions == nil {
		return 1
	}
	return *c.Partitions
}

// GetReportInterval parses and returns the ReportInterval as a time.Duration.
func (c *PipelineConfig) GetReportInterval() time.Duration {
	if c.ReportInterval == nil || *c.ReportInterval == "" {
		return time.Second // default
	}
	d, err := time.ParseDuration(*c.ReportInterval)
	if err != nil {
		return time.Second // default on parse error
	}
	return d
}
