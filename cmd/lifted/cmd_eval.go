package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"powerlift/internal/heuristics"
	"powerlift/internal/logging"
	"powerlift/internal/successor"
)

var heuristicFlag string

// evalCmd evaluates the initial state and its successors with a heuristic.
var evalCmd = &cobra.Command{
	Use:   "eval <task.yaml>",
	Short: "Evaluate the initial state and its successors",
	Long: `Prints the heuristic value of the initial state and of every state
reachable by one applicable action.

Heuristics: blind, goalcount.`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringVar(&heuristicFlag, "heuristic", "", "Heuristic name (default from config)")
}

func runEval(cmd *cobra.Command, args []string) error {
	t, err := loadTask(args[0])
	if err != nil {
		return err
	}
	method := cfg.Search.Heuristic
	if heuristicFlag != "" {
		method = heuristicFlag
	}
	h, err := heuristics.New(method, t)
	if err != nil {
		return err
	}
	opts, err := cfg.GeneratorOptions(logging.For(logger, logging.CategorySuccessor))
	if err != nil {
		return err
	}
	gen := successor.New(t, opts...)

	out := cmd.OutOrStdout()
	value := h.Evaluate(t.Initial)
	heading(out, "%s: h_%s(initial) = %d", t.Name, h.Kind(), value)
	if t.IsGoal(t.Initial) {
		fmt.Fprintln(out, "  initial state is a goal state")
	}

	ops := gen.ApplicableActions(t.Schemas, t.Initial)
	for _, op := range ops {
		next := gen.Successor(op, t.Initial)
		fmt.Fprintf(out, "  %-32s h=%d\n", operatorName(t, op), h.Evaluate(next))
	}
	logging.For(logger, logging.CategoryHeuristic).Debug("evaluated successors",
		zap.String("heuristic", h.Kind().String()),
		zap.Int("initial", value),
		zap.Int("successors", len(ops)))
	return nil
}
