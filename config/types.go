// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the full riskfile configuration. Values resolve in three
// layers: built-in defaults, then the YAML file, then RISKFILE_*
// environment overrides.
type Config struct {
	// Storage: where record files and the secondary index live
	Storage StorageConfig `yaml:"storage"`

	// Backup: snapshot directory and retention
	Backup BackupConfig `yaml:"backup"`

	// Assessment: which scoring strategy new assessments use
	Assessment AssessmentConfig `yaml:"assessment"`

	// Logging: level and output shape
	Logging LoggingConfig `yaml:"logging"`

	// Telemetry: trace and metric exporters
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type StorageConfig struct {
	RecordsDir      string `yaml:"records_dir" split_words:"true" validate:"required"`
	IndexDir        string `yaml:"index_dir" split_words:"true"`
	IndexEnabled    bool   `yaml:"index_enabled" split_words:"true"`
	WatchDebounceMS int    `yaml:"watch_debounce_ms" split_words:"true" validate:"gte=0"` // e.g. 100
}

// WatchDebounce returns the watch debounce window as a duration.
func (c StorageConfig) WatchDebounce() time.Duration {
	return time.Duration(c.WatchDebounceMS) * time.Millisecond
}

type BackupConfig struct {
	Dir  string `yaml:"dir" split_words:"true" validate:"required"`
	Keep int    `yaml:"keep" split_words:"true" validate:"gte=0"` // snapshots retained by prune
}

type AssessmentConfig struct {
	// Strategy can be "standard", "weighted", or "safety-margin".
	Strategy string `yaml:"strategy" split_words:"true" validate:"required,oneof=standard weighted safety-margin"`

	// DeviceClass, when set, selects the strategy mandated for that
	// class at startup and wins over Strategy.
	DeviceClass string `yaml:"device_class" split_words:"true" validate:"omitempty,oneof=I II III 1 2 3"`
}

type LoggingConfig struct {
	Level string `yaml:"level" split_words:"true" validate:"required,oneof=debug info warn error"`
	JSON  bool   `yaml:"json" split_words:"true"`
	Dir   string `yaml:"dir" split_words:"true"` // optional log file directory
}

type TelemetryConfig struct {
	// Traces can be "off", "stdout", or "otlp".
	Traces string `yaml:"traces" split_words:"true" validate:"required,oneof=off stdout otlp"`

	// Metrics can be "off", "stdout", or "prometheus".
	Metrics string `yaml:"metrics" split_words:"true" validate:"required,oneof=off stdout prometheus"`

	OTLPEndpoint     string `yaml:"otlp_endpoint" split_words:"true" validate:"omitempty,hostname_port"`
	PrometheusListen string `yaml:"prometheus_listen" split_words:"true" validate:"omitempty,hostname_port"`
}

// configValidate is the validator instance for configuration structs.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
}

// Validate checks the resolved configuration against its constraints.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// defaultBaseDir is ~/.riskfile, falling back to a relative directory
// when the home directory cannot be determined.
func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".riskfile"
	}
	return filepath.Join(home, ".riskfile")
}

// Default returns the built-in configuration, rooted under ~/.riskfile.
func Default() Config {
	base := defaultBaseDir()
	return Config{
		Storage: StorageConfig{
			RecordsDir:      filepath.Join(base, "records"),
			IndexDir:        filepath.Join(base, "index"),
			IndexEnabled:    true,
			WatchDebounceMS: 100,
		},
		Backup: BackupConfig{
			Dir:  filepath.Join(base, "backups"),
			Keep: 5,
		},
		Assessment: AssessmentConfig{
			Strategy: "standard",
		},
		Logging: LoggingConfig{
			Level: "info",
			JSON:  false,
		},
		Telemetry: TelemetryConfig{
			Traces:           "off",
			Metrics:          "off",
			OTLPEndpoint:     "localhost:4317",
			PrometheusListen: ":9464",
		},
	}
}
