package core

import (
	"fmt"
	"time"

	"github.com/nicsuzor/aops/internal/hooks"
	"github.com/nicsuzor/aops/pkg/models"
)

// OpClass categorizes a tool operation for gating purposes.
type OpClass int

const (
	// OpDestructive mutates state that outlives the session: file
	// writes, branch deletes, force operations, arbitrary shell.
	OpDestructive OpClass = iota
	// OpSafe only observes.
	OpSafe
	// OpPlanning is a hydration step (reading the plan, loading task
	// context) taken before execution.
	OpPlanning
	// OpVerify is an independent verification run.
	OpVerify
	// OpReview is an independent critic review pass.
	OpReview
)

// opTaxonomy is the explicit destructive-operation taxonomy. Any tool
// not listed here is treated as destructive: unknown operations fail
// closed.
var opTaxonomy = map[string]OpClass{
	"read":          OpSafe,
	"glob":          OpSafe,
	"grep":          OpSafe,
	"list":          OpSafe,
	"list_tasks":    OpSafe,
	"get_task":      OpSafe,
	"get_task_tree": OpSafe,
	"plan":          OpPlanning,
	"hydrate":       OpPlanning,
	"create_task":   OpDestructive,
	"update_task":   OpDestructive,
	"complete_task": OpDestructive,
	"write":         OpDestructive,
	"edit":          OpDestructive,
	"delete":        OpDestructive,
	"bash":          OpDestructive,
	"shell":         OpDestructive,
	"branch_delete": OpDestructive,
	"force_push":    OpDestructive,
	"qa_verify":     OpVerify,
	"critic_review": OpReview,
}

// ClassifyOp returns the gating class for a tool name, defaulting to
// destructive for anything unrecognized.
func ClassifyOp(toolName string) OpClass {
	if c, ok := opTaxonomy[toolName]; ok {
		return c
	}
	return OpDestructive
}

// GateEngine gates tool invocations and session termination behind the
// session's precondition flags. Denials are always recoverable: they
// name the exact missing flag and there is no bypass other than the
// explicit, logged gates_bypassed override.
type GateEngine struct {
	cfg       models.GateConfig
	custodiet *Custodiet
	audit     AuditSink
	now       func() time.Time
}

// NewGateEngine creates a gate engine. custodiet and audit may be nil.
func NewGateEngine(cfg models.GateConfig, custodiet *Custodiet, audit AuditSink) *GateEngine {
	return &GateEngine{
		cfg:       cfg,
		custodiet: custodiet,
		audit:     audit,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CheckToolUse decides whether the session may run the named tool. It
// increments the session's tool-call counter and lets custodiet audit
// the call before the gate itself is evaluated.
func (e *GateEngine) CheckToolUse(s *models.Session, toolName string) hooks.Decision {
	if !e.cfg.Enabled {
		return hooks.Allow()
	}

	s.ToolCalls++
	s.Updated = e.now()

	var verdict *samplerVerdict
	if e.custodiet != nil {
		verdict = e.custodiet.Observe(s)
	}

	class := ClassifyOp(toolName)
	if class == OpDestructive && !s.TaskBound() {
		if s.GatesBypassed {
			e.record(s, "gate.bypass", fmt.Sprintf("tool=%s without bound task", toolName))
		} else {
			e.record(s, "gate.deny", "tool="+toolName)
			return hooks.Deny(
				fmt.Sprintf("destructive operation %q requires a bound task: claim or create one first", toolName),
				models.FlagTaskBound,
			)
		}
	}

	if verdict != nil {
		if verdict.block {
			// A blocking finding stops further mutation; a safe read
			// still goes through carrying the finding as a reminder.
			if class == OpDestructive {
				e.record(s, "custodiet.block", verdict.finding)
				return hooks.Deny("compliance check failed: " + verdict.finding)
			}
			return hooks.AllowWithReminder("compliance: " + verdict.finding)
		}
		if verdict.reminder != "" {
			return hooks.AllowWithReminder(verdict.reminder)
		}
	}
	return hooks.Allow()
}

// RecordToolResult applies PostToolUse flag side effects: planning ops
// hydrate the session, successful verification and review runs set
// their flags, and any successful destructive op marks the session as
// having done real work.
func (e *GateEngine) RecordToolResult(s *models.Session, toolName string, success bool) {
	s.Updated = e.now()
	switch ClassifyOp(toolName) {
	case OpPlanning:
		s.Hydrated = true
	case OpVerify:
		if success {
			s.QAVerified = true
		}
	case OpReview:
		if success {
			s.CriticReviewed = true
		}
	case OpDestructive:
		if success {
			s.DidWork = true
			// New work invalidates any earlier verification pass.
			s.QAVerified = false
		}
	}
}

// ApplyHandover validates the session-end reflection structurally and
// sets handover_complete only when every required field is present.
// Malformed content counts as incomplete, not complete.
func (e *GateEngine) ApplyHandover(s *models.Session, h *models.Handover) []string {
	missing := h.MissingFields()
	s.HandoverComplete = len(missing) == 0
	s.Updated = e.now()
	return missing
}

// CheckStop decides whether the session may terminate. The denial
// carries the precise set of missing flags.
func (e *GateEngine) CheckStop(s *models.Session) hooks.Decision {
	if !e.cfg.Enabled {
		return hooks.Allow()
	}
	if s.GatesBypassed {
		e.record(s, "gate.bypass", "stop")
		return hooks.Allow()
	}

	var missing []models.GateFlag
	if !s.Hydrated {
		missing = append(missing, models.FlagHydrated)
	}
	if !s.HandoverComplete {
		missing = append(missing, models.FlagHandoverComplete)
	}
	if s.DidWork && !s.QAVerified && !e.cfg.QAExempt(s.Workflow) {
		missing = append(missing, models.FlagQAVerified)
	}
	if s.DidWork && s.RiskScore >= e.cfg.RiskThreshold && !s.CriticReviewed {
		missing = append(missing, models.FlagCriticReviewed)
	}

	if len(missing) > 0 {
		e.record(s, "gate.deny", "stop")
		return hooks.Deny("session cannot terminate yet", missing...)
	}
	return hooks.Allow()
}

func (e *GateEngine) record(s *models.Session, action, detail string) {
	if e.audit == nil {
		return
	}
	e.audit.Record("session:"+s.ID, s.CurrentTask, action, detail)
}
