package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show the ready queue",
	Long: `Show active tasks whose hard dependencies are all satisfied, in
pull order: priority first, then downstream weight (heavier unblocks
more work), then age. Downstream weights are recomputed before listing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Graph == nil {
			return fmt.Errorf("task graph not initialized")
		}
		tasks, err := Graph.ReadyQueue()
		if err != nil {
			return fmt.Errorf("building ready queue: %w", err)
		}
		if len(tasks) == 0 {
			fmt.Println("Ready queue is empty.")
			return nil
		}
		printTaskTable(tasks)
		return nil
	},
}

var reweightCmd = &cobra.Command{
	Use:   "reweight",
	Short: "Recompute downstream weights for all tasks",
	Long: `Recompute every task's downstream weight: the number of distinct
tasks that transitively depend on it. Changed weights are persisted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Graph == nil {
			return fmt.Errorf("task graph not initialized")
		}
		weights, err := Graph.RecomputeWeights()
		if err != nil {
			return fmt.Errorf("recomputing weights: %w", err)
		}
		fmt.Printf("Recomputed weights for %d task(s)\n", len(weights))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(reweightCmd)
}
