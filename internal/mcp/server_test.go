package mcp

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/nicsuzor/aops/internal/core"
	"github.com/nicsuzor/aops/pkg/models"
)

// memRecords is a minimal in-memory RecordStore for handler tests.
type memRecords struct {
	mu    sync.Mutex
	tasks map[string]*models.Task
}

func (s *memRecords) Put(t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t.Clone()
	return nil
}

func (s *memRecords) Read(id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	return t.Clone(), nil
}

func (s *memRecords) ReadAll() ([]*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	return out, nil
}

func newTestServer() *Server {
	graph := core.NewGraphStore(
		&memRecords{tasks: make(map[string]*models.Task)},
		nil,
		core.NewTaskIDGenerator(),
		core.NewWeightResolver(models.WeightConfig{IncludeSoft: true}),
	)
	return NewServer(graph, "test")
}

func TestHandleCreateTask(t *testing.T) {
	s := newTestServer()

	res, out, err := s.handleCreateTask(context.Background(), nil, createTaskInput{
		Title:  "wire the frobulator",
		Type:   "feature",
		Active: true,
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res != nil {
		t.Fatalf("unexpected error result: %+v", res)
	}
	if out.ID == "" {
		t.Error("created task has no id")
	}
	if out.Status != "active" || out.Type != "feature" {
		t.Errorf("output = %+v", out)
	}
	if out.Version != 1 {
		t.Errorf("version = %d, want 1", out.Version)
	}
}

func TestHandleCreateTaskMissingTitle(t *testing.T) {
	s := newTestServer()

	res, _, err := s.handleCreateTask(context.Background(), nil, createTaskInput{})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res == nil || !res.IsError {
		t.Fatal("missing title should produce an error result")
	}
}

func TestHandleCreateTaskCycle(t *testing.T) {
	s := newTestServer()

	_, a, _ := s.handleCreateTask(context.Background(), nil, createTaskInput{Title: "a"})
	res, _, err := s.handleCreateTask(context.Background(), nil, createTaskInput{
		Title:     "b",
		DependsOn: []string{a.ID, "T-MISSING"},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res == nil || !res.IsError {
		t.Fatal("dangling dependency should produce an error result")
	}
}

func TestHandleGetTask(t *testing.T) {
	s := newTestServer()
	_, created, _ := s.handleCreateTask(context.Background(), nil, createTaskInput{Title: "findable"})

	res, out, err := s.handleGetTask(context.Background(), nil, getTaskInput{TaskID: created.ID})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res != nil {
		t.Fatalf("unexpected error result: %+v", res)
	}
	if out.ID != created.ID || out.Title != "findable" {
		t.Errorf("output = %+v", out)
	}
}

func TestHandleGetTaskNotFound(t *testing.T) {
	s := newTestServer()

	res, _, err := s.handleGetTask(context.Background(), nil, getTaskInput{TaskID: "T-MISSING"})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res == nil || !res.IsError {
		t.Fatal("unknown task should produce an error result")
	}
}

func TestHandleClaimAndComplete(t *testing.T) {
	s := newTestServer()
	_, created, _ := s.handleCreateTask(context.Background(), nil, createTaskInput{Title: "claimed", Active: true})

	res, claimed, err := s.handleClaimTask(context.Background(), nil, claimTaskInput{TaskID: created.ID})
	if err != nil {
		t.Fatalf("claim handler error: %v", err)
	}
	if res != nil {
		t.Fatalf("claim error result: %+v", res)
	}
	if claimed.Status != "in_progress" || claimed.Assignee != models.AssigneeWorker {
		t.Errorf("claimed = %+v", claimed)
	}

	// Second claim must lose.
	res, _, _ = s.handleClaimTask(context.Background(), nil, claimTaskInput{TaskID: created.ID, Assignee: "other"})
	if res == nil || !res.IsError {
		t.Fatal("second claim should produce an error result")
	}

	res, out, err := s.handleCompleteTask(context.Background(), nil, completeTaskInput{TaskID: created.ID})
	if err != nil {
		t.Fatalf("complete handler error: %v", err)
	}
	if res != nil {
		t.Fatalf("complete error result: %+v", res)
	}
	if !strings.Contains(out.Message, created.ID) {
		t.Errorf("message = %q", out.Message)
	}
}

func TestHandleUpdateTaskInvalidStatus(t *testing.T) {
	s := newTestServer()
	_, created, _ := s.handleCreateTask(context.Background(), nil, createTaskInput{Title: "guarded"})

	st := "in_progress"
	res, _, err := s.handleUpdateTask(context.Background(), nil, updateTaskInput{
		TaskID: created.ID,
		Status: &st,
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res == nil || !res.IsError {
		t.Fatal("patching to in_progress should be refused; claiming is the only path")
	}
}

func TestHandleListTasks(t *testing.T) {
	s := newTestServer()
	s.handleCreateTask(context.Background(), nil, createTaskInput{Title: "one", Active: true})
	s.handleCreateTask(context.Background(), nil, createTaskInput{Title: "two"})

	res, out, err := s.handleListTasks(context.Background(), nil, listTasksInput{Status: []string{"active"}})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res != nil {
		t.Fatalf("error result: %+v", res)
	}
	if out.Count != 1 || len(out.Tasks) != 1 || out.Tasks[0].Title != "one" {
		t.Errorf("output = %+v", out)
	}
}

func TestHandleListTasksByType(t *testing.T) {
	s := newTestServer()
	s.handleCreateTask(context.Background(), nil, createTaskInput{Title: "squash it", Type: "bug"})
	s.handleCreateTask(context.Background(), nil, createTaskInput{Title: "build it", Type: "feature"})

	res, out, err := s.handleListTasks(context.Background(), nil, listTasksInput{Type: "bug"})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res != nil {
		t.Fatalf("error result: %+v", res)
	}
	if out.Count != 1 || len(out.Tasks) != 1 || out.Tasks[0].Type != "bug" {
		t.Errorf("output = %+v", out)
	}
}

func TestHandleReadyQueueOrder(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	p2 := 2
	_, low, _ := s.handleCreateTask(ctx, nil, createTaskInput{Title: "later", Active: true, Priority: &p2})
	p0 := 0
	_, urgent, _ := s.handleCreateTask(ctx, nil, createTaskInput{Title: "first", Active: true, Priority: &p0})

	res, out, err := s.handleReadyQueue(ctx, nil, readyQueueInput{})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res != nil {
		t.Fatalf("error result: %+v", res)
	}
	if out.Count != 2 {
		t.Fatalf("count = %d, want 2", out.Count)
	}
	if out.Tasks[0].ID != urgent.ID || out.Tasks[1].ID != low.ID {
		t.Errorf("order = [%s %s], want urgent first", out.Tasks[0].ID, out.Tasks[1].ID)
	}
}

func TestHandleGetTaskTree(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	_, root, _ := s.handleCreateTask(ctx, nil, createTaskInput{Title: "root"})
	_, child, _ := s.handleCreateTask(ctx, nil, createTaskInput{Title: "child", Parent: root.ID})

	res, tree, err := s.handleGetTaskTree(ctx, nil, getTaskTreeInput{TaskID: root.ID})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res != nil {
		t.Fatalf("error result: %+v", res)
	}
	if len(tree.Children) != 1 || tree.Children[0].Task.ID != child.ID {
		t.Errorf("tree = %+v", tree)
	}
}
