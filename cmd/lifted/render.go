package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"powerlift/internal/states"
	"powerlift/internal/task"
	"powerlift/internal/types"
)

var (
	accent = lipgloss.Color("#8BC34A")
	muted  = lipgloss.Color("#6b7280")
	danger = lipgloss.Color("#e53935")

	headingStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	errorStyle   = lipgloss.NewStyle().Foreground(danger).Bold(true)
)

func heading(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf(format, args...)))
}

// operatorName renders op as schema(obj, ...) using task names.
func operatorName(t *task.Task, op types.LiftedOperatorID) string {
	args := make([]string, len(op.Instantiation))
	for i, o := range op.Instantiation {
		args[i] = t.Objects[o].Name
	}
	return fmt.Sprintf("%s(%s)", t.Schemas[op.SchemaIndex].Name, strings.Join(args, ", "))
}

// stateAtoms renders the dynamic atoms of s, sorted, using task names.
func stateAtoms(t *task.Task, s *states.DBState) string {
	var atoms []string
	for p, pred := range t.Predicates {
		if pred.Arity == 0 {
			if s.HasNullary(types.PredicateSymbol(p)) {
				atoms = append(atoms, pred.Name)
			}
			continue
		}
		for _, g := range s.Tuples(types.PredicateSymbol(p)) {
			args := make([]string, len(g))
			for i, o := range g {
				args[i] = t.Objects[o].Name
			}
			atoms = append(atoms, fmt.Sprintf("%s(%s)", pred.Name, strings.Join(args, ", ")))
		}
	}
	sort.Strings(atoms)
	return strings.Join(atoms, " ")
}
