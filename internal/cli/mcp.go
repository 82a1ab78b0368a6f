package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	aopsmcp "github.com/nicsuzor/aops/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the aops MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the aops MCP server on stdio",
	Long: `Start the aops MCP server on stdio transport.

The server exposes the task graph as MCP tools that AI coding agents
can call: create_task, get_task, list_tasks, update_task, claim_task,
complete_task, get_task_tree, ready_queue.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Graph == nil {
			return fmt.Errorf("task graph not initialized")
		}

		srv := aopsmcp.NewServer(Graph, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
