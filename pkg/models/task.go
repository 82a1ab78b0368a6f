package models

import "time"

// TaskType represents the kind of work a task captures.
type TaskType string

const (
	TypeTask    TaskType = "task"
	TypeBug     TaskType = "bug"
	TypeFeature TaskType = "feature"
	TypeEpic    TaskType = "epic"
	TypeProject TaskType = "project"
	TypeGoal    TaskType = "goal"
	TypeLearn   TaskType = "learn"
)

// ValidTaskType reports whether t is a known task type.
func ValidTaskType(t TaskType) bool {
	switch t {
	case TypeTask, TypeBug, TypeFeature, TypeEpic, TypeProject, TypeGoal, TypeLearn:
		return true
	}
	return false
}

// TaskStatus represents the current lifecycle state of a task.
type TaskStatus string

const (
	StatusInbox      TaskStatus = "inbox"
	StatusActive     TaskStatus = "active"
	StatusInProgress TaskStatus = "in_progress"
	StatusBlocked    TaskStatus = "blocked"
	StatusReview     TaskStatus = "review"
	StatusMergeReady TaskStatus = "merge_ready"
	StatusDone       TaskStatus = "done"
	StatusCancelled  TaskStatus = "cancelled"
)

// ValidTaskStatus reports whether s is a known status.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case StatusInbox, StatusActive, StatusInProgress, StatusBlocked,
		StatusReview, StatusMergeReady, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether s is a write-once terminal status.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusDone || s == StatusCancelled
}

// Priority is an ordering hint, not a guarantee. P0 is most urgent.
type Priority int

const (
	P0 Priority = 0
	P1 Priority = 1
	P2 Priority = 2 // default
	P3 Priority = 3
	P4 Priority = 4
)

// ValidPriority reports whether p is within the P0..P4 band.
func ValidPriority(p Priority) bool {
	return p >= P0 && p <= P4
}

// AssigneeWorker is the well-known assignee for automated workers.
const AssigneeWorker = "worker"

// Task represents a unit of work in the task graph. The Body field is an
// append-only audit log of receipts and progress notes; Version is the
// optimistic-concurrency token bumped on every mutation.
type Task struct {
	ID               string     `yaml:"id"`
	Title            string     `yaml:"title"`
	Body             string     `yaml:"body,omitempty"`
	Type             TaskType   `yaml:"type"`
	Status           TaskStatus `yaml:"status"`
	Priority         Priority   `yaml:"priority"`
	Assignee         string     `yaml:"assignee,omitempty"`
	Parent           string     `yaml:"parent,omitempty"`
	Project          string     `yaml:"project,omitempty"`
	Branch           string     `yaml:"branch,omitempty"`
	DependsOn        []string   `yaml:"depends_on,omitempty"`
	SoftDependsOn    []string   `yaml:"soft_depends_on,omitempty"`
	DownstreamWeight int        `yaml:"downstream_weight"`
	Created          time.Time  `yaml:"created"`
	Updated          time.Time  `yaml:"updated"`
	Version          int64      `yaml:"version"`
}

// Clone returns a deep copy of the task so callers can mutate the copy
// without aliasing the stored slices.
func (t *Task) Clone() *Task {
	c := *t
	c.DependsOn = append([]string(nil), t.DependsOn...)
	c.SoftDependsOn = append([]string(nil), t.SoftDependsOn...)
	return &c
}

// TaskFilter specifies criteria for listing tasks. All set fields use
// AND logic.
type TaskFilter struct {
	Status   []TaskStatus
	Project  string
	Type     TaskType
	Assignee string
	Limit    int
}

// TaskNode is a task with its children resolved, for tree rendering.
type TaskNode struct {
	Task     *Task
	Children []*TaskNode
}
