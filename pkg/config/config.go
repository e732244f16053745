// Package config holds the runtime switches consulted by the component
// resolver and the instance initializer.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration shared by every instance created
// from one environment.
type Config struct {
	// Silent suppresses all warnings.
	Silent bool `yaml:"silent,omitempty"`
	// Performance enables init-time performance marks in development builds.
	Performance bool `yaml:"performance,omitempty"`
	// Production disables the development render proxy and performance marks.
	Production bool `yaml:"production,omitempty"`
	// ReservedTags lists tag names that may not be used as component names.
	ReservedTags []string `yaml:"reservedTags,omitempty"`
}

// Default returns the development configuration.
func Default() *Config {
	return &Config{}
}

// Load reads a YAML configuration file. A missing file yields Default().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration bytes.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// IsReservedTag reports whether tag is reserved and cannot name a component.
func (c *Config) IsReservedTag(tag string) bool {
	if c == nil {
		return false
	}
	return slices.Contains(c.ReservedTags, tag)
}

// DevMode reports whether development diagnostics are active.
func (c *Config) DevMode() bool {
	return c == nil || !c.Production
}

// MeasurePerformance reports whether init performance brackets should be opened.
func (c *Config) MeasurePerformance() bool {
	return c != nil && c.Performance && !c.Production
}
