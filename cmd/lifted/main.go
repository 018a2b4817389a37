package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"powerlift/internal/config"
	"powerlift/internal/logging"
	"powerlift/internal/task"
	"powerlift/internal/taskio"
)

var (
	// Global flags
	verbose    bool
	configPath string
	timeout    time.Duration

	// Set up by PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
	runID  string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "lifted",
	Short: "lifted - successor generation for lifted planning tasks",
	Long: `lifted enumerates the applicable ground actions of a planning task
without grounding it first. Action preconditions are evaluated as joins over
the state's relations and the task's static atoms.

Tasks are YAML documents; see internal/taskio for the layout.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
			cfg.Logging.DebugMode = true
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		base, err := logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		runID = uuid.NewString()
		logger = base.With(zap.String("run", runID))
		logging.For(logger, logging.CategoryBoot).Debug("configuration loaded",
			zap.String("config", configPath),
			zap.String("join", cfg.Successor.Join),
			zap.String("join_order", cfg.Successor.JoinOrder),
			zap.String("static_lookup", cfg.Successor.StaticLookup),
			zap.Int("workers", cfg.Successor.Workers))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "powerlift.yaml", "Config file (missing file = defaults)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	rootCmd.AddCommand(expandCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(evalCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// commandContext bounds a command by --timeout and cancels it on SIGINT/SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func loadTask(path string) (*task.Task, error) {
	timer := logging.StartTimer(logging.For(logger, logging.CategoryTask), "load task")
	t, err := taskio.Load(path)
	if err != nil {
		return nil, err
	}
	timer.Stop()
	logging.For(logger, logging.CategoryTask).Info("task loaded",
		zap.String("task", t.Name),
		zap.Int("objects", len(t.Objects)),
		zap.Int("predicates", len(t.Predicates)),
		zap.Int("schemas", len(t.Schemas)),
		zap.Int("static_atoms", t.Static.FactCount()))
	return t, nil
}
