package successor

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"powerlift/internal/database"
)

// JoinOrder selects the order in which per-atom tables are joined.
type JoinOrder int

const (
	// OrderGiven joins tables in precondition order.
	OrderGiven JoinOrder = iota
	// OrderSmallestFirst joins tables by ascending row count (stable).
	OrderSmallestFirst
)

func (o JoinOrder) String() string {
	switch o {
	case OrderSmallestFirst:
		return "smallest-first"
	default:
		return "given"
	}
}

// ParseJoinOrder parses "given" or "smallest-first".
func ParseJoinOrder(s string) (JoinOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "given":
		return OrderGiven, nil
	case "smallest-first", "smallest_first":
		return OrderSmallestFirst, nil
	default:
		return OrderGiven, fmt.Errorf("unknown join order %q", s)
	}
}

// StaticLookup selects where lifted preconditions read their tuples from.
type StaticLookup int

const (
	// StaticFallback reads the state's relation and falls back to the static
	// relation when the state's relation is empty.
	StaticFallback StaticLookup = iota
	// StaticFirst reads the static relation for every predicate with a
	// non-empty static extension, and the state's relation otherwise.
	StaticFirst
)

func (l StaticLookup) String() string {
	switch l {
	case StaticFirst:
		return "static-first"
	default:
		return "fallback"
	}
}

// ParseStaticLookup parses "fallback" or "static-first".
func ParseStaticLookup(s string) (StaticLookup, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fallback":
		return StaticFallback, nil
	case "static-first", "static_first":
		return StaticFirst, nil
	default:
		return StaticFallback, fmt.Errorf("unknown static lookup %q", s)
	}
}

// ParseJoiner returns the join strategy named s ("nested-loop" or "hash").
func ParseJoiner(s string) (database.Joiner, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nested-loop", "nested_loop", "nested":
		return database.NestedLoop{}, nil
	case "hash":
		return database.Hash{}, nil
	default:
		return nil, fmt.Errorf("unknown join strategy %q", s)
	}
}

// Option configures a Generator.
type Option func(*Generator)

// WithJoiner sets the join strategy. The default is nested-loop.
func WithJoiner(j database.Joiner) Option {
	return func(g *Generator) {
		if j != nil {
			g.joiner = j
		}
	}
}

// WithJoinOrder sets the join order. The default is OrderGiven.
func WithJoinOrder(o JoinOrder) Option {
	return func(g *Generator) { g.order = o }
}

// WithStaticLookup sets the relation source policy. The default is StaticFallback.
func WithStaticLookup(l StaticLookup) Option {
	return func(g *Generator) { g.lookup = l }
}

// WithSemiJoinReduction enables a semi-join pass over the per-atom tables
// before they are joined, pruning dangling tuples early.
func WithSemiJoinReduction(enabled bool) Option {
	return func(g *Generator) { g.semiJoin = enabled }
}

// WithDeduplication drops repeated bindings of a schema. By default duplicates
// are returned and left to the caller.
func WithDeduplication(enabled bool) Option {
	return func(g *Generator) { g.dedup = enabled }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}
