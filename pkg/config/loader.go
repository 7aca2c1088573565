package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Load reads ProcessConfig from the environment, using the given prefix
// (celerity-core hosts use "CELERITY").
func Load(prefix string) (*ProcessConfig, error) {
	var cfg ProcessConfig
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
