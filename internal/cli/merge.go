package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nicsuzor/aops/internal/core"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge verified task branches into main",
	Long: `Discover task branches, squash-merge each merge_ready task into
main one at a time, run the verification command, and either finish the
task (push, delete branch, mark done) or roll the merge back and move
the task to review with the literal failure output.

Exits non-zero if any candidate fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if NewMerger == nil {
			return fmt.Errorf("merge orchestrator not initialized")
		}

		repoPath, _ := cmd.Flags().GetString("repo")
		if repoPath == "" {
			var err error
			repoPath, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("getting working directory: %w", err)
			}
		}

		results, err := NewMerger(repoPath).Run()
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No merge candidates found.")
			return nil
		}

		failed := 0
		for _, r := range results {
			fmt.Printf("%-28s %-20s %s\n", r.TaskID, r.Branch, describeResult(r))
			if r.Failed() {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d merge candidate(s) failed", failed)
		}
		return nil
	},
}

func describeResult(r core.MergeResult) string {
	switch r.Phase {
	case core.PhaseCleaned:
		return "merged, verified, branch cleaned"
	case core.PhaseVerified:
		if r.Detail != "" {
			return "merged and verified (" + r.Detail + ")"
		}
		return "merged and verified"
	case core.PhaseAlreadyMerged:
		return "already merged, nothing to do"
	case core.PhaseSkipped:
		return "skipped: " + r.Detail
	case core.PhaseFailed:
		return fmt.Sprintf("FAILED (%s), task moved to review", r.Reason)
	default:
		return string(r.Phase)
	}
}

func init() {
	mergeCmd.Flags().String("repo", "", "Git repository path (defaults to current directory)")
	rootCmd.AddCommand(mergeCmd)
}
