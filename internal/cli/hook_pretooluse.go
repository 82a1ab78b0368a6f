package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nicsuzor/aops/internal/hooks"
)

var hookPreToolUseCmd = &cobra.Command{
	Use:   "pre-tool-use",
	Short: "Handle PreToolUse hook events (blocking)",
	Long: `Gate a tool invocation before it executes. Reads session_id and
tool_name from stdin JSON.

Blocks the tool (exit 2) when a destructive operation runs without a
bound task, or when custodiet finds compliance drift in block mode.
Non-blocking reminders are printed to stderr and the tool proceeds.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Gates == nil {
			return nil
		}

		input, err := hooks.ParseStdin[hooks.ToolUseInput](os.Stdin)
		if err != nil || input.SessionID == "" {
			return nil // Swallow parse errors, don't block.
		}

		s, err := loadOrCreateSession(input.SessionID)
		if err != nil {
			return nil
		}

		decision := Gates.CheckToolUse(s, input.ToolName)
		_ = SessionStore.Save(s)

		if decision.Denied() {
			fmt.Fprintln(os.Stderr, decision.Reason)
			os.Exit(2)
		}
		if decision.Reminder != "" {
			fmt.Fprintln(os.Stderr, decision.Reminder)
		}
		return nil
	},
}

func init() {
	hookCmd.AddCommand(hookPreToolUseCmd)
}
