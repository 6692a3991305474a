package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"armature/internal/analytics"
	"armature/internal/assembly"
	"armature/internal/control"
	"armature/internal/execution"
	"armature/internal/robot"
)

var (
	autoApprove bool
	dryRun      bool
)

var runCmd = &cobra.Command{
	Use:   "run [assembly-id]",
	Short: "Execute an assembly plan from the catalog",
	Long: `Run loads the named assembly graph from the catalog, then executes its
steps in order: primitive steps through the motion primitive library,
policy steps through the policy router. Step outcomes are verified,
retried up to each step's retry budget, and recorded to analytics.

When a policy step exhausts its retries the run pauses for operator
intervention; answer the prompt (or pass --auto-approve) to continue.`,
	Args: cobra.ExactArgs(1),
	RunE: runAssembly,
}

func init() {
	runCmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "Mark human-intervention steps successful without prompting")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Execute synthetic primitive paths without a robot")
}

func runAssembly(cmd *cobra.Command, args []string) error {
	assemblyID := args[0]

	overrides := assembly.NewOverrideStore(filepath.Join(cfg.Catalog.Dir, "overrides"))
	catalog, err := assembly.NewCatalog(cfg.Catalog.Dir, overrides)
	if err != nil {
		return fmt.Errorf("failed to open catalog %s: %w", cfg.Catalog.Dir, err)
	}
	graph, ok := catalog.Get(assemblyID)
	if !ok {
		return fmt.Errorf("assembly %q not found in %s (available: %s)",
			assemblyID, cfg.Catalog.Dir, strings.Join(catalog.List(), ", "))
	}

	store, err := analytics.Open(cfg.Analytics.DatabasePath,
		analytics.WithMaxStoredRuns(cfg.Analytics.MaxStoredRuns))
	if err != nil {
		return fmt.Errorf("failed to open analytics store: %w", err)
	}
	defer store.Close()

	var rb robot.Robot
	switch {
	case dryRun:
		rb = nil
	case cfg.Robot.Mock:
		rb = robot.NewMockRobot()
	default:
		return fmt.Errorf("hardware follower on %s is not supported yet; set robot.mock or pass --dry-run", cfg.Robot.Port)
	}

	library := control.NewLibrary(cfg.Execution.SpeedFactor)
	router := execution.NewPolicyRouter(library, rb, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Catalog.Watch {
		if err := catalog.Watch(ctx); err != nil {
			return fmt.Errorf("failed to watch catalog: %w", err)
		}
	}

	events := make(chan execution.ExecutionState, 64)
	seq := execution.NewSequencer(graph, router, execution.SequencerOptions{
		Analytics:         store,
		DefaultMaxRetries: cfg.Execution.DefaultMaxRetries,
		Observer: func(st execution.ExecutionState) {
			select {
			case events <- st:
			default:
			}
		},
	})

	fmt.Printf("Running %s (%s): %d steps\n", graph.Name, graph.ID, len(graph.StepOrder))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer seq.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case st := <-events:
				printState(st)
				switch st.Phase {
				case "teaching":
					if err := resolveHumanStep(seq, st); err != nil {
						return err
					}
				case "complete":
					return nil
				case "error":
					return fmt.Errorf("assembly %s failed at step %s", st.AssemblyID, st.CurrentStepID)
				}
			}
		}
	})
	if err := seq.Start(); err != nil {
		stop()
		_ = g.Wait()
		return err
	}
	if err := g.Wait(); err != nil {
		return err
	}

	printSummary(seq.GetExecutionState())
	return nil
}

// resolveHumanStep answers a WAITING_FOR_HUMAN pause, either automatically
// or by asking the operator on stdin.
func resolveHumanStep(seq *execution.Sequencer, st execution.ExecutionState) error {
	stepID := st.CurrentStepID
	if autoApprove {
		fmt.Printf("  step %s needs intervention; auto-approving\n", stepID)
		return seq.CompleteHumanStep(true)
	}
	fmt.Printf("  step %s exhausted its retries and needs operator attention.\n", stepID)
	fmt.Print("  complete the step manually, then mark it successful? [y/N] ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return seq.CompleteHumanStep(false)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return seq.CompleteHumanStep(answer == "y" || answer == "yes")
}

func printState(st execution.ExecutionState) {
	switch st.Phase {
	case "running":
		if st.CurrentStepID != "" {
			rt := st.StepStates[st.CurrentStepID]
			fmt.Printf("  [%s] %-10s attempt=%d\n", st.CurrentStepID, rt.Status, rt.Attempt)
		}
	case "paused":
		fmt.Println("  paused")
	case "complete":
		fmt.Println("  complete")
	case "error":
		if rt, ok := st.StepStates[st.CurrentStepID]; ok && rt.ErrorMessage != "" {
			fmt.Printf("  [%s] failed: %s\n", st.CurrentStepID, rt.ErrorMessage)
		}
	}
}

func printSummary(st execution.ExecutionState) {
	fmt.Printf("\nRun %s finished in %.0fms, success rate %.0f%%\n",
		st.RunID, st.ElapsedMs, st.SuccessRate*100)
	for id, rt := range st.StepStates {
		fmt.Printf("  %-12s %-8s %.0fms\n", id, rt.Status, rt.DurationMs)
	}
}
