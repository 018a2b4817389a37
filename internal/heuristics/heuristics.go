// Package heuristics evaluates states for search. Heuristics are a closed set
// selected by name.
package heuristics

import (
	"fmt"
	"strings"

	"powerlift/internal/states"
	"powerlift/internal/task"
)

// Kind tags the heuristic variant.
type Kind int

const (
	Blind Kind = iota
	GoalCount
)

func (k Kind) String() string {
	switch k {
	case Blind:
		return "blind"
	case GoalCount:
		return "goalcount"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Methods lists the accepted heuristic names.
func Methods() []string {
	return []string{Blind.String(), GoalCount.String()}
}

// ParseKind maps a method name, case-insensitively, to its Kind.
func ParseKind(method string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case "blind":
		return Blind, nil
	case "goalcount", "goal-count", "goal_count":
		return GoalCount, nil
	default:
		return 0, fmt.Errorf("unknown heuristic %q (want one of %s)", method, strings.Join(Methods(), ", "))
	}
}

// Heuristic is a state evaluator bound to one task.
type Heuristic struct {
	kind Kind
	task *task.Task
}

// New returns the heuristic named method for t.
func New(method string, t *task.Task) (*Heuristic, error) {
	kind, err := ParseKind(method)
	if err != nil {
		return nil, fmt.Errorf("heuristic factory: %w", err)
	}
	if kind == GoalCount && t == nil {
		return nil, fmt.Errorf("heuristic factory: %s needs a task", kind)
	}
	return &Heuristic{kind: kind, task: t}, nil
}

// Kind returns the variant tag.
func (h *Heuristic) Kind() Kind { return h.kind }

// Evaluate returns the estimated distance from state to the goal.
func (h *Heuristic) Evaluate(state *states.DBState) int {
	switch h.kind {
	case GoalCount:
		return h.task.UnsatisfiedGoals(state)
	default:
		return 0
	}
}

// IsDeadEnd reports whether the goal is provably unreachable from state.
// Neither variant detects dead ends.
func (h *Heuristic) IsDeadEnd(*states.DBState) bool { return false }
