package config

import (
	"fmt"

	"go.uber.org/zap"

	"powerlift/internal/successor"
)

// SuccessorConfig configures the successor generator.
type SuccessorConfig struct {
	Join              string `yaml:"join"`                // nested-loop, hash
	JoinOrder         string `yaml:"join_order"`          // given, smallest-first
	StaticLookup      string `yaml:"static_lookup"`       // fallback, static-first
	SemiJoinReduction bool   `yaml:"semi_join_reduction"` // reduce tables before joining
	Deduplicate       bool   `yaml:"deduplicate"`         // drop repeated bindings
	Workers           int    `yaml:"workers"`             // 0 = GOMAXPROCS
}

// Validate checks every strategy name.
func (s SuccessorConfig) Validate() error {
	_, err := s.options()
	if err != nil {
		return err
	}
	if s.Workers < 0 {
		return fmt.Errorf("negative worker count %d", s.Workers)
	}
	return nil
}

func (s SuccessorConfig) options() ([]successor.Option, error) {
	joiner, err := successor.ParseJoiner(s.Join)
	if err != nil {
		return nil, err
	}
	order, err := successor.ParseJoinOrder(s.JoinOrder)
	if err != nil {
		return nil, err
	}
	lookup, err := successor.ParseStaticLookup(s.StaticLookup)
	if err != nil {
		return nil, err
	}
	return []successor.Option{
		successor.WithJoiner(joiner),
		successor.WithJoinOrder(order),
		successor.WithStaticLookup(lookup),
		successor.WithSemiJoinReduction(s.SemiJoinReduction),
		successor.WithDeduplication(s.Deduplicate),
	}, nil
}

// GeneratorOptions converts the successor settings into generator options.
func (c *Config) GeneratorOptions(logger *zap.Logger) ([]successor.Option, error) {
	opts, err := c.Successor.options()
	if err != nil {
		return nil, fmt.Errorf("successor: %w", err)
	}
	if logger != nil {
		opts = append(opts, successor.WithLogger(logger))
	}
	return opts, nil
}
