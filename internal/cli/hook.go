package cli

import (
	"github.com/spf13/cobra"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Handle agent runtime hook events",
	Long: `Process agent runtime hook events against the session gate engine.

Each subcommand reads one JSON event from stdin, loads the session
state, evaluates the gates, and persists the updated session. A denial
exits with code 2 and prints the reason to stderr; the agent runtime
treats exit code 2 as a block.

These commands are called by the hook wrappers the agent runtime is
configured with.`,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}
