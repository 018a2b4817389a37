// Package logging builds the zap loggers used across powerlift.
// Every subsystem logs through a named category logger; debug entries of a
// category are only written when debug_mode is on and the category is enabled
// in the logging config.
package logging

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"powerlift/internal/config"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // Config loading, start-up
	CategoryTask      Category = "task"      // Task decoding and validation
	CategorySuccessor Category = "successor" // Applicable actions, successor states
	CategoryExpand    Category = "expand"    // Parallel batch expansion
	CategoryOracle    Category = "oracle"    // Datalog cross-check
	CategoryHeuristic Category = "heuristic" // State evaluation
)

// Categories lists every category in declaration order.
func Categories() []Category {
	return []Category{CategoryBoot, CategoryTask, CategorySuccessor, CategoryExpand, CategoryOracle, CategoryHeuristic}
}

// New builds the root logger described by cfg. debug_mode lowers the level to
// debug so that enabled categories can emit their debug entries.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := cfg.ZapLevel()
	if err != nil {
		return nil, err
	}
	if cfg.DebugMode {
		level = zapcore.DebugLevel
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Sampling = nil
	switch cfg.Format {
	case "", "json":
	case "console":
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	if cfg.File != "" {
		zc.OutputPaths = append(zc.OutputPaths, cfg.File)
	}

	logger, err := zc.Build(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return newCategoryCore(core, cfg)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// For returns the category logger derived from base.
func For(base *zap.Logger, category Category) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base.Named(string(category))
}

// categoryCore drops debug entries of disabled categories. The category is
// the first segment of the logger name; unnamed loggers are never filtered.
type categoryCore struct {
	zapcore.Core
	cfg config.LoggingConfig
}

func newCategoryCore(core zapcore.Core, cfg config.LoggingConfig) zapcore.Core {
	return &categoryCore{Core: core, cfg: cfg}
}

func (c *categoryCore) With(fields []zapcore.Field) zapcore.Core {
	return &categoryCore{Core: c.Core.With(fields), cfg: c.cfg}
}

func (c *categoryCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if ent.Level == zapcore.DebugLevel && ent.LoggerName != "" {
		category, _, _ := strings.Cut(ent.LoggerName, ".")
		if !c.cfg.IsCategoryEnabled(category) {
			return ce
		}
	}
	return c.Core.Check(ent, ce)
}

// Timer helps measure operation duration
type Timer struct {
	logger *zap.Logger
	op     string
	start  time.Time
}

// StartTimer begins timing an operation
func StartTimer(logger *zap.Logger, operation string) *Timer {
	return &Timer{logger: logger, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	t.logger.Debug("operation completed", zap.String("op", t.op), zap.Duration("elapsed", elapsed))
	return elapsed
}

// StopWithThreshold logs a warning if the duration exceeds threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		t.logger.Warn("operation slow",
			zap.String("op", t.op),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", threshold))
	} else {
		t.logger.Debug("operation completed", zap.String("op", t.op), zap.Duration("elapsed", elapsed))
	}
	return elapsed
}
