package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at path, expands ${VAR} references against
// the process environment, and unmarshals the result into a
// ServiceConfig. Fields left unset in the file stay at their zero
// value — callers that need a runnable config should use
// LoadWithDefaults or LoadAndValidate instead.
func Load(path string) (*ServiceConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg ServiceConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadWithDefaults loads path and fills every field the file left
// unset with its documented default, so a minimal file naming only
// instance.id and feed.url still produces a config the rest of the
// pipeline can work with.
func LoadWithDefaults(path string) (*ServiceConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads path, applies defaults, and rejects the
// result if anything required to start the service is still missing
// or out of range. cmd/priceserver calls this and only this: a bad
// config fails at startup instead of surfacing later as a confusing
// connection or query error.
func LoadAndValidate(path string) (*ServiceConfig, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s is invalid: %w", path, err)
	}
	return cfg, nil
}
