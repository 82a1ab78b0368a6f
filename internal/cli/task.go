package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nicsuzor/aops/internal/core"
	"github.com/nicsuzor/aops/pkg/models"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks (create, show, list, update, claim, complete)",
	Long: `Unified task management commands.

Create new tasks with typed dependency edges, inspect and list them,
apply partial updates, claim work for a session, and drive tasks
through the status lifecycle.`,
}

var taskCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a new task",
	Long: `Create a new task with the given title.

The task starts in inbox unless --active is set. Dependencies declared
with --depends-on are hard edges: the task is not ready until every one
of them reaches a terminal status. --soft-depends-on edges only affect
ordering.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Graph == nil {
			return fmt.Errorf("task graph not initialized")
		}

		typeFlag, _ := cmd.Flags().GetString("type")
		priorityFlag, _ := cmd.Flags().GetInt("priority")
		bodyFlag, _ := cmd.Flags().GetString("body")
		parentFlag, _ := cmd.Flags().GetString("parent")
		projectFlag, _ := cmd.Flags().GetString("project")
		branchFlag, _ := cmd.Flags().GetString("branch")
		dependsFlag, _ := cmd.Flags().GetStringSlice("depends-on")
		softFlag, _ := cmd.Flags().GetStringSlice("soft-depends-on")
		activeFlag, _ := cmd.Flags().GetBool("active")
		actorFlag, _ := cmd.Flags().GetString("actor")

		req := core.CreateTaskRequest{
			Title:         args[0],
			Body:          bodyFlag,
			Type:          models.TaskType(typeFlag),
			Parent:        parentFlag,
			Project:       projectFlag,
			Branch:        branchFlag,
			DependsOn:     dependsFlag,
			SoftDependsOn: softFlag,
			Actor:         actorFlag,
		}
		if cmd.Flags().Changed("priority") {
			p := models.Priority(priorityFlag)
			req.Priority = &p
		}
		if activeFlag {
			req.Status = models.StatusActive
		}

		task, err := Graph.Create(req)
		if err != nil {
			return fmt.Errorf("creating task: %w", err)
		}

		fmt.Printf("Created task %s\n", task.ID)
		fmt.Printf("  Type:     %s\n", task.Type)
		fmt.Printf("  Status:   %s\n", task.Status)
		fmt.Printf("  Priority: P%d\n", task.Priority)
		if len(task.DependsOn) > 0 {
			fmt.Printf("  Depends:  %s\n", strings.Join(task.DependsOn, ", "))
		}
		return nil
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show a task's full state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Graph == nil {
			return fmt.Errorf("task graph not initialized")
		}
		task, err := Graph.Get(args[0])
		if err != nil {
			return err
		}
		printTask(task)
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, optionally filtered",
	Long: `List tasks matching the given filters.

When filtering on status=active alone, results come back in ready-queue
order: priority first, then downstream weight, then age.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Graph == nil {
			return fmt.Errorf("task graph not initialized")
		}

		statusFlag, _ := cmd.Flags().GetStringSlice("status")
		projectFlag, _ := cmd.Flags().GetString("project")
		typeFlag, _ := cmd.Flags().GetString("type")
		assigneeFlag, _ := cmd.Flags().GetString("assignee")
		limitFlag, _ := cmd.Flags().GetInt("limit")

		filter := models.TaskFilter{
			Project:  projectFlag,
			Type:     models.TaskType(typeFlag),
			Assignee: assigneeFlag,
			Limit:    limitFlag,
		}
		for _, s := range statusFlag {
			filter.Status = append(filter.Status, models.TaskStatus(s))
		}

		tasks, err := Graph.List(filter)
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks found.")
			return nil
		}
		printTaskTable(tasks)
		return nil
	},
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update <task-id>",
	Short: "Apply a partial update to a task",
	Long: `Update individual task fields. Only flags you set are changed.

Status changes go through the task state machine; illegal transitions
are rejected. Use --force only for the operator override of reopening a
terminal task back to active. Use --note to append to the task body
without touching anything else.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Graph == nil {
			return fmt.Errorf("task graph not initialized")
		}

		patch := core.TaskPatch{}
		if cmd.Flags().Changed("title") {
			v, _ := cmd.Flags().GetString("title")
			patch.Title = &v
		}
		if cmd.Flags().Changed("status") {
			v, _ := cmd.Flags().GetString("status")
			s := models.TaskStatus(v)
			patch.Status = &s
		}
		if cmd.Flags().Changed("priority") {
			v, _ := cmd.Flags().GetInt("priority")
			p := models.Priority(v)
			patch.Priority = &p
		}
		if cmd.Flags().Changed("assignee") {
			v, _ := cmd.Flags().GetString("assignee")
			patch.Assignee = &v
		}
		if cmd.Flags().Changed("parent") {
			v, _ := cmd.Flags().GetString("parent")
			patch.Parent = &v
		}
		if cmd.Flags().Changed("project") {
			v, _ := cmd.Flags().GetString("project")
			patch.Project = &v
		}
		if cmd.Flags().Changed("branch") {
			v, _ := cmd.Flags().GetString("branch")
			patch.Branch = &v
		}
		if cmd.Flags().Changed("depends-on") {
			patch.DependsOn, _ = cmd.Flags().GetStringSlice("depends-on")
		}
		if cmd.Flags().Changed("soft-depends-on") {
			patch.SoftDependsOn, _ = cmd.Flags().GetStringSlice("soft-depends-on")
		}
		patch.BodyAppend, _ = cmd.Flags().GetString("note")
		patch.Actor, _ = cmd.Flags().GetString("actor")
		force, _ := cmd.Flags().GetBool("force")

		task, err := Graph.Update(args[0], patch, force)
		if err != nil {
			return fmt.Errorf("updating task: %w", err)
		}
		fmt.Printf("Updated task %s (v%d)\n", task.ID, task.Version)
		return nil
	},
}

var taskClaimCmd = &cobra.Command{
	Use:   "claim <task-id>",
	Short: "Claim a task for exclusive work",
	Long: `Atomically claim an active task, moving it to in_progress.

Claiming fails if the task is already claimed, not active, or still has
an open hard dependency. Exactly one claimer wins.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Graph == nil {
			return fmt.Errorf("task graph not initialized")
		}
		assignee, _ := cmd.Flags().GetString("assignee")
		task, err := Graph.Claim(args[0], assignee)
		if err != nil {
			return fmt.Errorf("claiming task: %w", err)
		}
		fmt.Printf("Claimed task %s for %s\n", task.ID, task.Assignee)
		return nil
	},
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Mark a task done",
	Long: `Mark a task done. Refused while the task has incomplete children;
--force overrides that guard (the override is recorded in the audit trail).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Graph == nil {
			return fmt.Errorf("task graph not initialized")
		}
		force, _ := cmd.Flags().GetBool("force")
		task, err := Graph.Complete(args[0], force)
		if err != nil {
			return fmt.Errorf("completing task: %w", err)
		}
		fmt.Printf("Completed task %s\n", task.ID)
		return nil
	},
}

var taskCancelCmd = &cobra.Command{
	Use:   "cancel <task-id>",
	Short: "Cancel a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Graph == nil {
			return fmt.Errorf("task graph not initialized")
		}
		force, _ := cmd.Flags().GetBool("force")
		task, err := Graph.Cancel(args[0], force)
		if err != nil {
			return fmt.Errorf("cancelling task: %w", err)
		}
		fmt.Printf("Cancelled task %s\n", task.ID)
		return nil
	},
}

var taskTreeCmd = &cobra.Command{
	Use:   "tree <task-id>",
	Short: "Show a task and its descendants",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Graph == nil {
			return fmt.Errorf("task graph not initialized")
		}
		node, err := Graph.Tree(args[0])
		if err != nil {
			return fmt.Errorf("building tree: %w", err)
		}
		printTree(node, 0)
		return nil
	},
}

func printTask(t *models.Task) {
	fmt.Printf("%s  %s\n", t.ID, t.Title)
	fmt.Printf("  Type:     %s\n", t.Type)
	fmt.Printf("  Status:   %s\n", t.Status)
	fmt.Printf("  Priority: P%d\n", t.Priority)
	fmt.Printf("  Weight:   %d\n", t.DownstreamWeight)
	if t.Assignee != "" {
		fmt.Printf("  Assignee: %s\n", t.Assignee)
	}
	if t.Parent != "" {
		fmt.Printf("  Parent:   %s\n", t.Parent)
	}
	if t.Project != "" {
		fmt.Printf("  Project:  %s\n", t.Project)
	}
	if t.Branch != "" {
		fmt.Printf("  Branch:   %s\n", t.Branch)
	}
	if len(t.DependsOn) > 0 {
		fmt.Printf("  Depends:  %s\n", strings.Join(t.DependsOn, ", "))
	}
	if len(t.SoftDependsOn) > 0 {
		fmt.Printf("  Soft:     %s\n", strings.Join(t.SoftDependsOn, ", "))
	}
	fmt.Printf("  Created:  %s\n", t.Created.Format("2006-01-02 15:04 UTC"))
	fmt.Printf("  Version:  %d\n", t.Version)
	if t.Body != "" {
		fmt.Printf("\n%s\n", t.Body)
	}
}

func printTaskTable(tasks []*models.Task) {
	fmt.Printf("%-28s %-12s %-3s %-4s %s\n", "ID", "STATUS", "PRI", "WT", "TITLE")
	for _, t := range tasks {
		fmt.Printf("%-28s %-12s P%-2d %-4d %s\n", t.ID, t.Status, t.Priority, t.DownstreamWeight, t.Title)
	}
}

func printTree(node *models.TaskNode, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Printf("%s%s [%s] %s\n", indent, node.Task.ID, node.Task.Status, node.Task.Title)
	for _, child := range node.Children {
		printTree(child, depth+1)
	}
}

func init() {
	taskCreateCmd.Flags().String("type", "task", "Task type (task, bug, feature, epic, project, goal, learn)")
	taskCreateCmd.Flags().Int("priority", 2, "Priority 0-4 (0 is most urgent)")
	taskCreateCmd.Flags().String("body", "", "Initial body text")
	taskCreateCmd.Flags().String("parent", "", "Parent task ID")
	taskCreateCmd.Flags().String("project", "", "Project name")
	taskCreateCmd.Flags().String("branch", "", "Associated git branch")
	taskCreateCmd.Flags().StringSlice("depends-on", nil, "Hard dependency task IDs")
	taskCreateCmd.Flags().StringSlice("soft-depends-on", nil, "Soft dependency task IDs")
	taskCreateCmd.Flags().Bool("active", false, "Create directly in active instead of inbox")
	taskCreateCmd.Flags().String("actor", "cli", "Actor recorded in the audit trail")

	taskListCmd.Flags().StringSlice("status", nil, "Filter by status (repeatable)")
	taskListCmd.Flags().String("project", "", "Filter by project")
	taskListCmd.Flags().String("type", "", "Filter by type")
	taskListCmd.Flags().String("assignee", "", "Filter by assignee")
	taskListCmd.Flags().Int("limit", 0, "Maximum number of results")

	taskUpdateCmd.Flags().String("title", "", "New title")
	taskUpdateCmd.Flags().String("status", "", "New status")
	taskUpdateCmd.Flags().Int("priority", 2, "New priority")
	taskUpdateCmd.Flags().String("assignee", "", "New assignee")
	taskUpdateCmd.Flags().String("parent", "", "New parent task ID")
	taskUpdateCmd.Flags().String("project", "", "New project")
	taskUpdateCmd.Flags().String("branch", "", "New branch")
	taskUpdateCmd.Flags().StringSlice("depends-on", nil, "Replace hard dependencies")
	taskUpdateCmd.Flags().StringSlice("soft-depends-on", nil, "Replace soft dependencies")
	taskUpdateCmd.Flags().String("note", "", "Append a note to the task body")
	taskUpdateCmd.Flags().String("actor", "cli", "Actor recorded in the audit trail")
	taskUpdateCmd.Flags().Bool("force", false, "Operator override for reopening a terminal task")

	taskClaimCmd.Flags().String("assignee", models.AssigneeWorker, "Who is claiming the task")

	taskCompleteCmd.Flags().Bool("force", false, "Complete despite incomplete children")
	taskCancelCmd.Flags().Bool("force", false, "Cancel despite incomplete children")

	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskClaimCmd)
	taskCmd.AddCommand(taskCompleteCmd)
	taskCmd.AddCommand(taskCancelCmd)
	taskCmd.AddCommand(taskTreeCmd)
	rootCmd.AddCommand(taskCmd)
}
