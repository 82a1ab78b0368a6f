package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nicsuzor/aops/internal/hooks"
)

var hookStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Handle Stop hook events (blocking)",
	Long: `Gate session termination. Reads session_id and the structured
handover from stdin JSON.

The handover is validated structurally (task, summary, outcome,
next_steps all required) before the stop gates are evaluated. A denial
(exit 2) names every missing flag so the session knows exactly what to
do before it may terminate.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Gates == nil {
			return nil
		}

		input, err := hooks.ParseStdin[hooks.StopInput](os.Stdin)
		if err != nil || input.SessionID == "" {
			return nil
		}

		s, err := loadOrCreateSession(input.SessionID)
		if err != nil {
			return nil
		}

		if missing := Gates.ApplyHandover(s, input.Handover); len(missing) > 0 {
			fmt.Fprintf(os.Stderr, "handover incomplete: missing %s\n", strings.Join(missing, ", "))
		}

		decision := Gates.CheckStop(s)
		_ = SessionStore.Save(s)

		if decision.Denied() {
			fmt.Fprintf(os.Stderr, "%s (missing: %s)\n", decision.Reason, decision.MissingList())
			os.Exit(2)
		}
		return nil
	},
}

func init() {
	hookCmd.AddCommand(hookStopCmd)
}
