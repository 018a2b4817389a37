package config

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	Format     string          `yaml:"format"`     // json, console
	File       string          `yaml:"file"`       // extra output path; stderr is always written
	DebugMode  bool            `yaml:"debug_mode"` // master toggle for category loggers
	Categories map[string]bool `yaml:"categories"` // per-category toggles, default on
}

// IsCategoryEnabled reports whether a category logger should emit anything.
// With debug_mode off every category is silent; with it on, a category is
// enabled unless the categories map turns it off.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	if enabled, ok := c.Categories[category]; ok {
		return enabled
	}
	return true
}

// ZapLevel parses Level. An empty level means info.
func (c *LoggingConfig) ZapLevel() (zapcore.Level, error) {
	if c.Level == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return lvl, fmt.Errorf("log level %q: %w", c.Level, err)
	}
	return lvl, nil
}
