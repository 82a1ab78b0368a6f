package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nicsuzor/aops/internal/hooks"
)

var hookPostToolUseCmd = &cobra.Command{
	Use:   "post-tool-use",
	Short: "Handle PostToolUse hook events (non-blocking)",
	Long: `Record a tool result's flag side effects: planning steps hydrate
the session, successful verification and review runs set their flags,
and successful destructive work marks did_work and invalidates any
earlier QA pass.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Gates == nil {
			return nil
		}

		input, err := hooks.ParseStdin[hooks.ToolResultInput](os.Stdin)
		if err != nil || input.SessionID == "" {
			return nil
		}

		s, err := loadOrCreateSession(input.SessionID)
		if err != nil {
			return nil
		}

		Gates.RecordToolResult(s, input.ToolName, input.Success)
		_ = SessionStore.Save(s)
		return nil
	},
}

func init() {
	hookCmd.AddCommand(hookPostToolUseCmd)
}
