package bootstrap

import (
	"errors"
	"fmt"
	"os"

	"exchanges_gateway/internal/config"
)

// Config is an alias for the project's main configuration struct
type Config = config.Config

// LoadConfig reads path when it exists and falls back to the environment
// otherwise. An optional .env file is loaded first in both cases.
func LoadConfig(path string) (*Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	var (
		cfg *Config
		err error
	)
	if path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			cfg, err = config.LoadConfig(path)
		} else if !errors.Is(statErr, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", statErr)
		}
	}
	if cfg == nil && err == nil {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return nil, err
	}

	if err := checkPreFlight(cfg); err != nil {
		return nil, fmt.Errorf("pre-flight checks failed: %w", err)
	}
	return cfg, nil
}

// checkPreFlight performs checks beyond schema validation
func checkPreFlight(cfg *Config) error {
	if cfg.Telemetry.EnableMetrics && cfg.Telemetry.MetricsPort == cfg.Server.HTTPPort {
		return fmt.Errorf("metrics_port %d collides with http_port", cfg.Telemetry.MetricsPort)
	}
	return nil
}
