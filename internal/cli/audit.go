package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nicsuzor/aops/internal/observability"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Read the audit trail",
	Long: `Read the append-only audit trail of graph mutations, gate denials,
bypasses, and merge outcomes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if AuditLog == nil {
			return fmt.Errorf("audit log not initialized")
		}

		taskFlag, _ := cmd.Flags().GetString("task")
		actorFlag, _ := cmd.Flags().GetString("actor")
		actionFlag, _ := cmd.Flags().GetString("action")
		sinceFlag, _ := cmd.Flags().GetDuration("since")

		filter := observability.AuditFilter{
			TaskID: taskFlag,
			Actor:  actorFlag,
			Action: actionFlag,
		}
		if sinceFlag > 0 {
			since := time.Now().UTC().Add(-sinceFlag)
			filter.Since = &since
		}

		entries, err := AuditLog.Read(filter)
		if err != nil {
			return fmt.Errorf("reading audit trail: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("No audit entries found.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s %-24s %-28s %-22s %s\n",
				e.Time.Format("2006-01-02 15:04:05"), e.Actor, orNone(e.TaskID), e.Action, e.Detail)
		}
		return nil
	},
}

// auditEntry builds a timestamped entry for direct CLI-level writes.
func auditEntry(actor, taskID, action, detail string) observability.AuditEntry {
	return observability.AuditEntry{
		Time:   time.Now().UTC(),
		Actor:  actor,
		TaskID: taskID,
		Action: action,
		Detail: detail,
	}
}

func init() {
	auditCmd.Flags().String("task", "", "Filter by task ID")
	auditCmd.Flags().String("actor", "", "Filter by actor")
	auditCmd.Flags().String("action", "", "Filter by action")
	auditCmd.Flags().Duration("since", 0, "Only entries within this window (e.g. 24h)")
	rootCmd.AddCommand(auditCmd)
}
