package core

import (
	"fmt"
	"math/rand"

	"github.com/nicsuzor/aops/pkg/models"
)

// samplerVerdict is what one custodiet observation produced: a block,
// a non-blocking reminder, or nothing.
type samplerVerdict struct {
	block    bool
	finding  string
	reminder string
}

// Custodiet samples session compliance. Every tool call is counted; at
// the configured threshold a full compliance re-check runs, and between
// thresholds a lightweight reminder is injected with fixed probability.
// Quis custodiet ipsos custodes — the sampler watches the session that
// is supposed to be watching itself.
type Custodiet struct {
	cfg  models.CustodietConfig
	risk int // sessions at or above this risk score use the lower threshold
	rng  *rand.Rand
}

// NewCustodiet creates a sampler. rng is injectable so tests can force
// both the reminder and the no-reminder branch deterministically; nil
// uses a default source.
func NewCustodiet(cfg models.CustodietConfig, riskThreshold int, rng *rand.Rand) *Custodiet {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Custodiet{cfg: cfg, risk: riskThreshold, rng: rng}
}

// Observe is called once per tool call, after the session counter was
// incremented. At the threshold it runs the full re-check; otherwise it
// may inject a reminder.
func (c *Custodiet) Observe(s *models.Session) *samplerVerdict {
	if !c.cfg.Enabled {
		return nil
	}

	threshold := c.cfg.Threshold
	if s.RiskScore >= c.risk && c.cfg.HighRiskThreshold > 0 {
		threshold = c.cfg.HighRiskThreshold
	}

	if threshold > 0 && s.ToolCalls%threshold == 0 {
		return c.recheck(s)
	}

	if c.rng.Float64() < c.cfg.ReminderProbability {
		return &samplerVerdict{reminder: c.reminderFor(s)}
	}
	return nil
}

// recheck is the full compliance evaluation. A finding blocks further
// mutating calls only in block mode; warn mode downgrades it to a
// reminder. The mode switch is explicit configuration, never a silent
// degradation.
func (c *Custodiet) recheck(s *models.Session) *samplerVerdict {
	finding := c.drift(s)
	if finding == "" {
		return nil
	}
	if c.cfg.Mode == models.CustodietBlock && !s.GatesBypassed {
		return &samplerVerdict{block: true, finding: finding}
	}
	return &samplerVerdict{reminder: "compliance: " + finding}
}

// drift checks the session against its own stated plan: work happening
// without a bound task, or execution without a prior planning step.
func (c *Custodiet) drift(s *models.Session) string {
	if s.DidWork && !s.TaskBound() {
		return "work performed without a bound task"
	}
	if s.DidWork && !s.Hydrated {
		return "execution started without a planning step"
	}
	return ""
}

// reminderFor builds the lightweight between-threshold reminder.
func (c *Custodiet) reminderFor(s *models.Session) string {
	if !s.TaskBound() {
		return "reminder: no task is bound to this session yet"
	}
	if !s.Hydrated {
		return fmt.Sprintf("reminder: plan before executing (task %s)", s.CurrentTask)
	}
	return fmt.Sprintf("reminder: stay on task %s; record receipts as you go", s.CurrentTask)
}
