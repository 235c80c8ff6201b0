package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads, expands, parses, and validates the configuration file at
// path. This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Read the YAML file.
//  2. Expand environment variables.
//  3. Parse YAML on top of Default().
//  4. Validate all configuration.
func Load(_ context.Context, path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(ExpandEnv(raw), cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	cfg.configPath = path

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, err
	}
	return cfg, nil
}
