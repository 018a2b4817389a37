package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"powerlift/internal/logging"
	"powerlift/internal/successor"
	"powerlift/internal/task"
)

var depthFlag int

// expandCmd lists the applicable operators of the initial state and expands
// the reachable states layer by layer.
var expandCmd = &cobra.Command{
	Use:   "expand <task.yaml>",
	Short: "Enumerate applicable actions and expand successor layers",
	Long: `Loads a task, prints the applicable ground actions of its initial
state and expands --depth layers of successors on the worker pool.

Example:
  lifted expand gripper.yaml --depth 3`,
	Args: cobra.ExactArgs(1),
	RunE: runExpand,
}

func init() {
	expandCmd.Flags().IntVarP(&depthFlag, "depth", "d", 1, "Number of layers to expand (default from config)")
	verifyCmd.Flags().IntVarP(&depthFlag, "depth", "d", 1, "Number of layers to cross-check (default from config)")
}

// depth returns --depth when given, the configured depth otherwise.
func depth(cmd *cobra.Command) int {
	if cmd.Flags().Changed("depth") {
		return depthFlag
	}
	return cfg.Search.Depth
}

func newExpander(t *task.Task) (*successor.Expander, error) {
	opts, err := cfg.GeneratorOptions(logging.For(logger, logging.CategorySuccessor))
	if err != nil {
		return nil, err
	}
	return successor.NewExpander(t, cfg.Successor.Workers, logging.For(logger, logging.CategoryExpand), opts...), nil
}

func runExpand(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	t, err := loadTask(args[0])
	if err != nil {
		return err
	}
	exp, err := newExpander(t)
	if err != nil {
		return err
	}

	d := depth(cmd)
	timer := logging.StartTimer(logging.For(logger, logging.CategoryExpand), "expand layers")
	layers, err := exp.ExpandLayers(ctx, t.Initial, d)
	if err != nil {
		return fmt.Errorf("expand %s: %w", t.Name, err)
	}
	timer.StopWithThreshold(timeout / 2)

	out := cmd.OutOrStdout()
	heading(out, "%s: initial state", t.Name)
	fmt.Fprintln(out, mutedStyle.Render(stateAtoms(t, t.Initial)))

	total := 0
	for i, layer := range layers {
		ops := 0
		for _, x := range layer {
			ops += len(x.Operators)
		}
		total += ops
		heading(out, "layer %d: %d states, %d operators", i, len(layer), ops)
		if i == 0 {
			for _, op := range layer[0].Operators {
				fmt.Fprintf(out, "  %s\n", operatorName(t, op))
			}
		}
	}

	logger.Info("expansion finished",
		zap.String("task", t.Name),
		zap.Int("layers", len(layers)),
		zap.Int("operators", total),
		zap.Int("workers", exp.Workers()))
	return nil
}
