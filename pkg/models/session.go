package models

import "time"

// WorkflowClass categorizes what kind of work a session is doing. The
// class determines which gates apply and how aggressively custodiet
// samples.
type WorkflowClass string

const (
	WorkflowDevelop WorkflowClass = "develop"
	WorkflowDebug   WorkflowClass = "debug"
	WorkflowRefac   WorkflowClass = "refactor"
	WorkflowChat    WorkflowClass = "chat"
	WorkflowDocs    WorkflowClass = "docs"
)

// GateFlag names a session precondition tracked by the gate engine.
type GateFlag string

const (
	FlagTaskBound        GateFlag = "task_bound"
	FlagHydrated         GateFlag = "hydrated"
	FlagCriticReviewed   GateFlag = "critic_reviewed"
	FlagQAVerified       GateFlag = "qa_verified"
	FlagHandoverComplete GateFlag = "handover_complete"
)

// Session tracks the per-session state the gate engine reasons about.
// It is an ephemeral value passed by reference through the call chain;
// the CLI layer persists it between hook invocations because each hook
// arrives as a separate process within one agent session.
type Session struct {
	ID               string        `yaml:"id"`
	CurrentTask      string        `yaml:"current_task,omitempty"`
	Workflow         WorkflowClass `yaml:"workflow"`
	RiskScore        int           `yaml:"risk_score"`
	Hydrated         bool          `yaml:"hydrated"`
	CriticReviewed   bool          `yaml:"critic_reviewed"`
	QAVerified       bool          `yaml:"qa_verified"`
	HandoverComplete bool          `yaml:"handover_complete"`
	DidWork          bool          `yaml:"did_work"`
	GatesBypassed    bool          `yaml:"gates_bypassed"`
	ToolCalls        int           `yaml:"tool_calls"`
	Started          time.Time     `yaml:"started"`
	Updated          time.Time     `yaml:"updated"`
}

// TaskBound reports whether a task was claimed or created this session.
func (s *Session) TaskBound() bool {
	return s.CurrentTask != ""
}

// Flags returns the current value of every gate flag.
func (s *Session) Flags() map[GateFlag]bool {
	return map[GateFlag]bool{
		FlagTaskBound:        s.TaskBound(),
		FlagHydrated:         s.Hydrated,
		FlagCriticReviewed:   s.CriticReviewed,
		FlagQAVerified:       s.QAVerified,
		FlagHandoverComplete: s.HandoverComplete,
	}
}

// Handover is the structured session-end reflection. All four fields
// are required; a handover missing any of them does not count as
// complete.
type Handover struct {
	Task      string `json:"task" yaml:"task"`
	Summary   string `json:"summary" yaml:"summary"`
	Outcome   string `json:"outcome" yaml:"outcome"`
	NextSteps string `json:"next_steps" yaml:"next_steps"`
}

// MissingFields returns the names of required handover fields that are
// empty. A nil receiver is treated as everything missing.
func (h *Handover) MissingFields() []string {
	if h == nil {
		return []string{"task", "summary", "outcome", "next_steps"}
	}
	var missing []string
	if h.Task == "" {
		missing = append(missing, "task")
	}
	if h.Summary == "" {
		missing = append(missing, "summary")
	}
	if h.Outcome == "" {
		missing = append(missing, "outcome")
	}
	if h.NextSteps == "" {
		missing = append(missing, "next_steps")
	}
	return missing
}
