// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package config resolves the runner's own startup configuration: its CLI
// flags, environment variables, and an optional local override file. This is
// distinct from config.json, which is the parent-orchestrator-authored
// handshake file read by pkg/runner from the working directory.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Flags holds the runner's CLI surface: --name, --ipc-url, --working-dir.
type Flags struct {
	Name       string
	IPCURL     string
	WorkingDir string
}

// Config is the runner's resolved ambient configuration.
type Config struct {
	Flags Flags

	Logging LoggingConfig `yaml:"logging"`
	Weights WeightsConfig `yaml:"weights"`
	Runner  RunnerTuning  `yaml:"runner"`
}

// LoggingConfig controls pkg/logging. Level is normally taken from
// COG_LOG_LEVEL; Format is a local-development convenience only reachable
// through the optional override file.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info" (default), "warn", "error"
	Format string `yaml:"format"` // "json" (default) or "text"
}

// WeightsConfig describes how the predictor adapter resolves a weights blob.
type WeightsConfig struct {
	// Type selects the pkg/filestore backend used when COG_WEIGHTS_URL
	// names a remote location: "filesystem" (default) or "s3".
	Type       string `yaml:"type"`
	BaseDir    string `yaml:"base_dir"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Region   string `yaml:"s3_region"`
	S3Prefix   string `yaml:"s3_prefix"`
	S3Endpoint string `yaml:"s3_endpoint"`
}

// RunnerTuning holds knobs the spec fixes by default (the 100ms poll
// interval, the 60s config wait) but that local development may want to
// shorten; production parents never need to set these.
type RunnerTuning struct {
	PollInterval    time.Duration `yaml:"poll_interval"`
	ConfigWaitLimit time.Duration `yaml:"config_wait_limit"`
}

// Default returns the configuration the spec mandates: 100ms poll, 60s
// config wait, info-level JSON logging, filesystem-backed weights under
// ./weights.
func Default() *Config {
	cfg := &Config{
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Weights: WeightsConfig{Type: "filesystem", BaseDir: "./weights"},
		Runner: RunnerTuning{
			PollInterval:    100 * time.Millisecond,
			ConfigWaitLimit: 60 * time.Second,
		},
	}
	applyEnv(cfg)
	return cfg
}

// Load reads an optional YAML override file layered on top of Default, then
// re-applies environment variable overrides so COG_LOG_LEVEL always wins
// regardless of file content. A missing file is not an error: the runner
// is expected to operate correctly with no override file present at all.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read runner config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse runner config %s: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("COG_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("COG_WEIGHTS_STORE_TYPE"); v != "" {
		cfg.Weights.Type = v
	}
}
