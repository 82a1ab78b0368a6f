// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the task graph as MCP tools for AI coding agents.
package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nicsuzor/aops/internal/core"
	"github.com/nicsuzor/aops/pkg/models"
)

// Server wraps the task graph and exposes it as MCP tools.
type Server struct {
	server *gomcp.Server
	graph  *core.GraphStore
}

// NewServer creates a new MCP server over the given task graph.
func NewServer(graph *core.GraphStore, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{graph: graph}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "aops", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client
// disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type createTaskInput struct {
	Title         string   `json:"title" jsonschema:"required,short task title"`
	Body          string   `json:"body,omitempty" jsonschema:"initial body text"`
	Type          string   `json:"type,omitempty" jsonschema:"task type (task, bug, feature, epic, project, goal, learn)"`
	Priority      *int     `json:"priority,omitempty" jsonschema:"priority 0-4, 0 is most urgent"`
	Parent        string   `json:"parent,omitempty" jsonschema:"parent task id"`
	Project       string   `json:"project,omitempty" jsonschema:"project name"`
	DependsOn     []string `json:"depends_on,omitempty" jsonschema:"hard dependency task ids"`
	SoftDependsOn []string `json:"soft_depends_on,omitempty" jsonschema:"soft dependency task ids"`
	Active        bool     `json:"active,omitempty" jsonschema:"create directly in active instead of inbox"`
}

type taskOutput struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Type             string   `json:"type"`
	Status           string   `json:"status"`
	Priority         int      `json:"priority"`
	Assignee         string   `json:"assignee,omitempty"`
	Parent           string   `json:"parent,omitempty"`
	Project          string   `json:"project,omitempty"`
	Branch           string   `json:"branch,omitempty"`
	DependsOn        []string `json:"depends_on,omitempty"`
	SoftDependsOn    []string `json:"soft_depends_on,omitempty"`
	DownstreamWeight int      `json:"downstream_weight"`
	Created          string   `json:"created"`
	Updated          string   `json:"updated"`
	Version          int64    `json:"version"`
}

type getTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the unique task identifier"`
}

type listTasksInput struct {
	Status   []string `json:"status,omitempty" jsonschema:"filter by status (inbox, active, in_progress, blocked, review, merge_ready, done, cancelled)"`
	Type     string   `json:"type,omitempty" jsonschema:"filter by type (task, bug, feature, epic, project, goal, learn)"`
	Project  string   `json:"project,omitempty" jsonschema:"filter by project"`
	Assignee string   `json:"assignee,omitempty" jsonschema:"filter by assignee"`
	Limit    int      `json:"limit,omitempty" jsonschema:"maximum number of results"`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type updateTaskInput struct {
	TaskID     string  `json:"task_id" jsonschema:"required,the unique task identifier"`
	Title      *string `json:"title,omitempty" jsonschema:"new title"`
	Status     *string `json:"status,omitempty" jsonschema:"new status, checked against the task state machine"`
	Priority   *int    `json:"priority,omitempty" jsonschema:"new priority 0-4"`
	Branch     *string `json:"branch,omitempty" jsonschema:"associated git branch"`
	BodyAppend string  `json:"body_append,omitempty" jsonschema:"note appended to the task body"`
	Actor      string  `json:"actor,omitempty" jsonschema:"who is making the change"`
}

type updateTaskOutput struct {
	Message string `json:"message"`
	Version int64  `json:"version"`
}

type claimTaskInput struct {
	TaskID   string `json:"task_id" jsonschema:"required,the unique task identifier"`
	Assignee string `json:"assignee,omitempty" jsonschema:"who is claiming the task, defaults to worker"`
}

type completeTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the unique task identifier"`
	Force  bool   `json:"force,omitempty" jsonschema:"complete despite incomplete children"`
}

type completeTaskOutput struct {
	Message string `json:"message"`
}

type getTaskTreeInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the root task identifier"`
}

type taskTreeNode struct {
	Task     taskOutput     `json:"task"`
	Children []taskTreeNode `json:"children,omitempty"`
}

// taskTreeNodeSchema builds the output schema for taskTreeNode explicitly:
// the type is recursive, which the SDK's schema inference rejects, so the
// recursion is expressed with a self-reference instead.
func taskTreeNodeSchema() *jsonschema.Schema {
	taskSchema, err := jsonschema.For[taskOutput](nil)
	if err != nil {
		panic(fmt.Sprintf("inferring taskOutput schema: %v", err))
	}
	return &jsonschema.Schema{
		Type:                 "object",
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
		Properties: map[string]*jsonschema.Schema{
			"task": taskSchema,
			"children": {
				Types: []string{"null", "array"},
				Items: &jsonschema.Schema{Ref: "#"},
			},
		},
		Required: []string{"task"},
	}
}

type readyQueueInput struct{}

type readyQueueOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "create_task",
		Description: "Create a new task in the graph, optionally with hard and soft dependency edges. Hard dependency cycles are rejected.",
	}, s.handleCreateTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_task",
		Description: "Get task details by ID, including dependencies, downstream weight, and the append-only body log.",
	}, s.handleGetTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List tasks with optional filters. Filtering on status=active alone returns ready-queue order.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "update_task",
		Description: "Apply a partial update to a task. Status changes are checked against the lifecycle state machine.",
	}, s.handleUpdateTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "claim_task",
		Description: "Atomically claim an active task for exclusive work. Exactly one claimer wins; claiming fails on open hard dependencies.",
	}, s.handleClaimTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "complete_task",
		Description: "Mark a task done. Refused while the task has incomplete children unless force is set.",
	}, s.handleCompleteTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:         "get_task_tree",
		Description:  "Get a task with its descendants resolved into a tree.",
		OutputSchema: taskTreeNodeSchema(),
	}, s.handleGetTaskTree)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "ready_queue",
		Description: "Get the ready queue: active tasks with all hard dependencies satisfied, in pull order (priority, then downstream weight, then age).",
	}, s.handleReadyQueue)
}

// --- Tool handlers ---

func (s *Server) handleCreateTask(_ context.Context, _ *gomcp.CallToolRequest, input createTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.Title == "" {
		return errorResult("title is required"), taskOutput{}, nil
	}

	req := core.CreateTaskRequest{
		Title:         input.Title,
		Body:          input.Body,
		Type:          models.TaskType(input.Type),
		Parent:        input.Parent,
		Project:       input.Project,
		DependsOn:     input.DependsOn,
		SoftDependsOn: input.SoftDependsOn,
		Actor:         "mcp",
	}
	if input.Priority != nil {
		p := models.Priority(*input.Priority)
		req.Priority = &p
	}
	if input.Active {
		req.Status = models.StatusActive
	}

	task, err := s.graph.Create(req)
	if err != nil {
		return errorResult(fmt.Sprintf("creating task: %s", err)), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

func (s *Server) handleGetTask(_ context.Context, _ *gomcp.CallToolRequest, input getTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), taskOutput{}, nil
	}

	task, err := s.graph.Get(input.TaskID)
	if err != nil {
		return errorResult(fmt.Sprintf("getting task %s: %s", input.TaskID, err)), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

func (s *Server) handleListTasks(_ context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	filter := models.TaskFilter{
		Type:     models.TaskType(input.Type),
		Project:  input.Project,
		Assignee: input.Assignee,
		Limit:    input.Limit,
	}
	for _, st := range input.Status {
		filter.Status = append(filter.Status, models.TaskStatus(st))
	}

	tasks, err := s.graph.List(filter)
	if err != nil {
		return errorResult(fmt.Sprintf("listing tasks: %s", err)), listTasksOutput{}, nil
	}

	out := listTasksOutput{
		Tasks: make([]taskOutput, len(tasks)),
		Count: len(tasks),
	}
	for i, t := range tasks {
		out.Tasks[i] = taskToOutput(t)
	}
	return nil, out, nil
}

func (s *Server) handleUpdateTask(_ context.Context, _ *gomcp.CallToolRequest, input updateTaskInput) (*gomcp.CallToolResult, updateTaskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), updateTaskOutput{}, nil
	}

	actor := input.Actor
	if actor == "" {
		actor = "mcp"
	}
	patch := core.TaskPatch{
		Title:      input.Title,
		Branch:     input.Branch,
		BodyAppend: input.BodyAppend,
		Actor:      actor,
	}
	if input.Status != nil {
		st := models.TaskStatus(*input.Status)
		patch.Status = &st
	}
	if input.Priority != nil {
		p := models.Priority(*input.Priority)
		patch.Priority = &p
	}

	task, err := s.graph.Update(input.TaskID, patch, false)
	if err != nil {
		return errorResult(fmt.Sprintf("updating task %s: %s", input.TaskID, err)), updateTaskOutput{}, nil
	}

	out := updateTaskOutput{
		Message: fmt.Sprintf("task %s updated", task.ID),
		Version: task.Version,
	}
	return nil, out, nil
}

func (s *Server) handleClaimTask(_ context.Context, _ *gomcp.CallToolRequest, input claimTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), taskOutput{}, nil
	}

	assignee := input.Assignee
	if assignee == "" {
		assignee = models.AssigneeWorker
	}
	task, err := s.graph.Claim(input.TaskID, assignee)
	if err != nil {
		return errorResult(fmt.Sprintf("claiming task %s: %s", input.TaskID, err)), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

func (s *Server) handleCompleteTask(_ context.Context, _ *gomcp.CallToolRequest, input completeTaskInput) (*gomcp.CallToolResult, completeTaskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), completeTaskOutput{}, nil
	}

	task, err := s.graph.Complete(input.TaskID, input.Force)
	if err != nil {
		return errorResult(fmt.Sprintf("completing task %s: %s", input.TaskID, err)), completeTaskOutput{}, nil
	}

	out := completeTaskOutput{Message: fmt.Sprintf("task %s completed", task.ID)}
	return nil, out, nil
}

func (s *Server) handleGetTaskTree(_ context.Context, _ *gomcp.CallToolRequest, input getTaskTreeInput) (*gomcp.CallToolResult, taskTreeNode, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), taskTreeNode{}, nil
	}

	node, err := s.graph.Tree(input.TaskID)
	if err != nil {
		return errorResult(fmt.Sprintf("building tree for %s: %s", input.TaskID, err)), taskTreeNode{}, nil
	}
	return nil, nodeToOutput(node), nil
}

func (s *Server) handleReadyQueue(_ context.Context, _ *gomcp.CallToolRequest, _ readyQueueInput) (*gomcp.CallToolResult, readyQueueOutput, error) {
	tasks, err := s.graph.ReadyQueue()
	if err != nil {
		return errorResult(fmt.Sprintf("building ready queue: %s", err)), readyQueueOutput{}, nil
	}

	out := readyQueueOutput{
		Tasks: make([]taskOutput, len(tasks)),
		Count: len(tasks),
	}
	for i, t := range tasks {
		out.Tasks[i] = taskToOutput(t)
	}
	return nil, out, nil
}

// --- Helpers ---

func taskToOutput(t *models.Task) taskOutput {
	return taskOutput{
		ID:               t.ID,
		Title:            t.Title,
		Type:             string(t.Type),
		Status:           string(t.Status),
		Priority:         int(t.Priority),
		Assignee:         t.Assignee,
		Parent:           t.Parent,
		Project:          t.Project,
		Branch:           t.Branch,
		DependsOn:        t.DependsOn,
		SoftDependsOn:    t.SoftDependsOn,
		DownstreamWeight: t.DownstreamWeight,
		Created:          t.Created.Format(time.RFC3339),
		Updated:          t.Updated.Format(time.RFC3339),
		Version:          t.Version,
	}
}

func nodeToOutput(n *models.TaskNode) taskTreeNode {
	out := taskTreeNode{Task: taskToOutput(n.Task)}
	for _, child := range n.Children {
		out.Children = append(out.Children, nodeToOutput(child))
	}
	return out
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
