package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nicsuzor/aops/pkg/models"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and manage gate sessions",
	Long: `Manage the per-session gate state tracked across hook invocations.

Each agent session carries flags (task_bound, hydrated, qa_verified,
critic_reviewed, handover_complete) that the gate engine checks before
destructive tool use and before the session may terminate.`,
}

// loadOrCreateSession fetches the session record, creating a fresh one
// on first sight. Hooks arrive as separate processes, so the session
// file is the only continuity between them.
func loadOrCreateSession(id string) (*models.Session, error) {
	if SessionStore == nil {
		return nil, fmt.Errorf("session store not initialized")
	}
	s, err := SessionStore.Load(id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		now := time.Now().UTC()
		s = &models.Session{
			ID:       id,
			Workflow: models.WorkflowDevelop,
			Started:  now,
			Updated:  now,
		}
	}
	return s, nil
}

var sessionBindCmd = &cobra.Command{
	Use:   "bind <session-id> <task-id>",
	Short: "Bind a session to a task",
	Long: `Claim the task and bind it to the session, satisfying the
task_bound gate. The claim is atomic: if another session already holds
the task, binding fails.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Graph == nil {
			return fmt.Errorf("task graph not initialized")
		}
		sessionID, taskID := args[0], args[1]

		s, err := loadOrCreateSession(sessionID)
		if err != nil {
			return err
		}

		assignee, _ := cmd.Flags().GetString("assignee")
		task, err := Graph.Claim(taskID, assignee)
		if err != nil {
			return fmt.Errorf("claiming task: %w", err)
		}

		s.CurrentTask = task.ID
		s.Updated = time.Now().UTC()
		if err := SessionStore.Save(s); err != nil {
			return err
		}
		fmt.Printf("Session %s bound to task %s\n", s.ID, task.ID)
		return nil
	},
}

var sessionStartCmd = &cobra.Command{
	Use:   "start [session-id]",
	Short: "Register a session with a workflow class and risk score",
	Long: `Register a session record. When no id is given a fresh UUID is
minted; hooks invoked later with the same session id pick up this
record.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := uuid.NewString()
		if len(args) > 0 {
			id = args[0]
		}
		s, err := loadOrCreateSession(id)
		if err != nil {
			return err
		}
		workflow, _ := cmd.Flags().GetString("workflow")
		risk, _ := cmd.Flags().GetInt("risk")
		s.Workflow = models.WorkflowClass(workflow)
		s.RiskScore = risk
		s.Updated = time.Now().UTC()
		if err := SessionStore.Save(s); err != nil {
			return err
		}
		fmt.Printf("Session %s started (workflow=%s risk=%d)\n", s.ID, s.Workflow, s.RiskScore)
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session's gate flags",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if SessionStore == nil {
			return fmt.Errorf("session store not initialized")
		}
		s, err := SessionStore.Load(args[0])
		if err != nil {
			return err
		}
		if s == nil {
			return fmt.Errorf("session %s not found", args[0])
		}

		fmt.Printf("Session %s\n", s.ID)
		fmt.Printf("  Workflow:   %s\n", s.Workflow)
		fmt.Printf("  Risk:       %d\n", s.RiskScore)
		fmt.Printf("  Task:       %s\n", orNone(s.CurrentTask))
		fmt.Printf("  Tool calls: %d\n", s.ToolCalls)
		fmt.Printf("  Did work:   %v\n", s.DidWork)
		fmt.Printf("  Bypassed:   %v\n", s.GatesBypassed)
		fmt.Println("  Flags:")
		for _, flag := range []models.GateFlag{
			models.FlagTaskBound,
			models.FlagHydrated,
			models.FlagQAVerified,
			models.FlagCriticReviewed,
			models.FlagHandoverComplete,
		} {
			fmt.Printf("    %-18s %v\n", flag, s.Flags()[flag])
		}
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known sessions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if SessionStore == nil {
			return fmt.Errorf("session store not initialized")
		}
		sessions, err := SessionStore.List()
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}
		fmt.Printf("%-38s %-10s %-28s %s\n", "ID", "WORKFLOW", "TASK", "UPDATED")
		for _, s := range sessions {
			fmt.Printf("%-38s %-10s %-28s %s\n", s.ID, s.Workflow, orNone(s.CurrentTask),
				s.Updated.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var sessionBypassCmd = &cobra.Command{
	Use:   "bypass <session-id>",
	Short: "Disable gate enforcement for one session",
	Long: `Set the gates_bypassed override on a session. Gates stop blocking
but every bypassed denial is still written to the audit trail. This is
an operator action; it is never set automatically.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadOrCreateSession(args[0])
		if err != nil {
			return err
		}
		reason, _ := cmd.Flags().GetString("reason")
		if reason == "" {
			return fmt.Errorf("--reason is required for a gate bypass")
		}
		s.GatesBypassed = true
		s.Updated = time.Now().UTC()
		if err := SessionStore.Save(s); err != nil {
			return err
		}
		if AuditLog != nil {
			_ = AuditLog.Write(auditEntry("operator", s.CurrentTask, "gate.bypass_enabled",
				fmt.Sprintf("session=%s reason=%s", s.ID, reason)))
		}
		fmt.Printf("Gates bypassed for session %s\n", s.ID)
		return nil
	},
}

var sessionPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove stale session records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if SessionStore == nil {
			return fmt.Errorf("session store not initialized")
		}
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		removed, err := SessionStore.Prune(time.Now().UTC().Add(-olderThan))
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d session(s)\n", removed)
		return nil
	},
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	sessionBindCmd.Flags().String("assignee", models.AssigneeWorker, "Assignee recorded on the claimed task")
	sessionStartCmd.Flags().String("workflow", string(models.WorkflowDevelop), "Workflow class (develop, debug, refactor, chat, docs)")
	sessionStartCmd.Flags().Int("risk", 0, "Session risk score")
	sessionBypassCmd.Flags().String("reason", "", "Why gates are being bypassed (required)")
	sessionPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "Remove sessions not updated within this window")

	sessionCmd.AddCommand(sessionBindCmd)
	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionBypassCmd)
	sessionCmd.AddCommand(sessionPruneCmd)
	rootCmd.AddCommand(sessionCmd)
}
