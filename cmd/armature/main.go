package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"armature/internal/config"
	"armature/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool
	mockRobot  bool
	speed      float64

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "armature",
	Short: "armature - assembly plan sequencer for a follower arm",
	Long: `armature executes robotic assembly plans: JSON step graphs dispatched
through parameterized motion primitives or learned policies, verified
against per-step success criteria, with retries, human escalation, and
per-step analytics.

Plans live as JSON files in the assembly catalog directory; run history
is kept in SQLite.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("mock") {
			cfg.Robot.Mock = mockRobot
		}
		if cmd.Flags().Changed("speed") {
			cfg.Execution.SpeedFactor = speed
		}

		if err := logging.Initialize(logging.Options{
			Enabled:    cfg.Logging.Enabled,
			Dir:        cfg.Logging.Dir,
			Level:      cfg.Logging.Level,
			Categories: cfg.Logging.Categories,
		}); err != nil {
			return err
		}
		logging.Boot("armature starting: config=%s mock=%t speed=%.2f",
			configPath, cfg.Robot.Mock, cfg.Execution.SpeedFactor)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "armature.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&mockRobot, "mock", true, "Use the in-process mock follower")
	rootCmd.PersistentFlags().Float64Var(&speed, "speed", 1.0, "Speed factor for synthetic execution paths")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(primitivesCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
