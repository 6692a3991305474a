package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"armature/internal/analytics"
	"armature/internal/assembly"
	"armature/internal/control"
)

var primitivesCmd = &cobra.Command{
	Use:   "primitives",
	Short: "List the registered motion primitives",
	RunE: func(cmd *cobra.Command, args []string) error {
		library := control.NewLibrary(cfg.Execution.SpeedFactor)
		for _, name := range library.Available() {
			fmt.Println(name)
		}
		return nil
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics [assembly-id]",
	Short: "Show per-step success metrics for an assembly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := analytics.Open(cfg.Analytics.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open analytics store: %w", err)
		}
		defer store.Close()

		metrics, err := store.GetStepMetrics(args[0])
		if err != nil {
			return err
		}
		if len(metrics) == 0 {
			fmt.Printf("no recorded runs for assembly %q\n", args[0])
			return nil
		}
		fmt.Printf("%-16s %8s %10s %8s\n", "STEP", "RATE", "AVG(ms)", "RUNS")
		for _, m := range metrics {
			fmt.Printf("%-16s %7.1f%% %10.1f %8d\n",
				m.StepID, m.SuccessRate*100, m.AvgDurationMs, m.TotalAttempts)
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate an assembly graph file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		graph, err := assembly.LoadGraph(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: ok (%s, %d parts, %d steps)\n",
			args[0], graph.ID, len(graph.Parts), len(graph.Steps))
		for _, id := range graph.StepOrder {
			step := graph.Steps[id]
			detail := step.PrimitiveType
			if step.Handler == assembly.HandlerPolicy {
				detail = "policy " + step.PolicyID
			}
			fmt.Printf("  %-12s %-10s %s\n", id, step.Handler, detail)
		}
		return nil
	},
}
