package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all powerlift configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Successor generation
	Successor SuccessorConfig `yaml:"successor"`

	// Search front end
	Search SearchConfig `yaml:"search"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// SearchConfig configures the CLI search driver.
type SearchConfig struct {
	Heuristic string `yaml:"heuristic"` // blind, goalcount
	Depth     int    `yaml:"depth"`     // expansion layers for `expand`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "powerlift",
		Version: "0.3.0",

		Successor: SuccessorConfig{
			Join:              "nested-loop",
			JoinOrder:         "given",
			StaticLookup:      "fallback",
			SemiJoinReduction: false,
			Deduplicate:       false,
			Workers:           0,
		},

		Search: SearchConfig{
			Heuristic: "goalcount",
			Depth:     1,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("POWERLIFT_JOIN"); v != "" {
		c.Successor.Join = v
	}
	if v := os.Getenv("POWERLIFT_JOIN_ORDER"); v != "" {
		c.Successor.JoinOrder = v
	}
	if v := os.Getenv("POWERLIFT_STATIC_LOOKUP"); v != "" {
		c.Successor.StaticLookup = v
	}
	if v := os.Getenv("POWERLIFT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("POWERLIFT_WORKERS: %w", err)
		}
		c.Successor.Workers = n
	}
	if v := os.Getenv("POWERLIFT_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	return nil
}

// ValidLevels lists the accepted log levels.
var ValidLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Successor.Validate(); err != nil {
		return fmt.Errorf("successor: %w", err)
	}
	if c.Search.Depth < 0 {
		return fmt.Errorf("search: negative depth %d", c.Search.Depth)
	}

	validLevel := false
	for _, l := range ValidLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLevels)
	}

	return nil
}
