package core

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/nicsuzor/aops/pkg/models"
)

func custodietConfig(mode models.CustodietMode) models.CustodietConfig {
	return models.CustodietConfig{
		Enabled:             true,
		Mode:                mode,
		Threshold:           7,
		HighRiskThreshold:   4,
		ReminderProbability: 0, // deterministic: no random reminders
	}
}

// driftedSession did destructive work without binding a task.
func driftedSession(toolCalls int) *models.Session {
	return &models.Session{ID: "s1", ToolCalls: toolCalls, DidWork: true}
}

func TestObserveDisabled(t *testing.T) {
	cfg := custodietConfig(models.CustodietWarn)
	cfg.Enabled = false
	c := NewCustodiet(cfg, 3, rand.New(rand.NewSource(1)))

	if v := c.Observe(driftedSession(7)); v != nil {
		t.Fatalf("disabled sampler produced verdict %+v", v)
	}
}

func TestObserveRecheckAtThreshold(t *testing.T) {
	c := NewCustodiet(custodietConfig(models.CustodietWarn), 3, rand.New(rand.NewSource(1)))

	// Off-threshold calls stay silent with reminder probability zero.
	if v := c.Observe(driftedSession(6)); v != nil {
		t.Fatalf("call 6 produced verdict %+v", v)
	}
	// Call 7 triggers the full re-check; warn mode downgrades the
	// finding to a reminder.
	v := c.Observe(driftedSession(7))
	if v == nil {
		t.Fatal("call 7 should trigger a re-check")
	}
	if v.block {
		t.Error("warn mode must not block")
	}
	if !strings.Contains(v.reminder, "without a bound task") {
		t.Errorf("reminder = %q, want the drift finding", v.reminder)
	}
}

func TestObserveBlockMode(t *testing.T) {
	c := NewCustodiet(custodietConfig(models.CustodietBlock), 3, rand.New(rand.NewSource(1)))

	v := c.Observe(driftedSession(7))
	if v == nil || !v.block {
		t.Fatalf("verdict = %+v, want block", v)
	}
	if !strings.Contains(v.finding, "without a bound task") {
		t.Errorf("finding = %q", v.finding)
	}
}

func TestObserveBlockModeRespectsBypass(t *testing.T) {
	c := NewCustodiet(custodietConfig(models.CustodietBlock), 3, rand.New(rand.NewSource(1)))
	s := driftedSession(7)
	s.GatesBypassed = true

	v := c.Observe(s)
	if v == nil {
		t.Fatal("bypassed session should still get the finding as a reminder")
	}
	if v.block {
		t.Error("bypassed session must not be blocked")
	}
}

func TestObserveCompliantSessionPassesRecheck(t *testing.T) {
	c := NewCustodiet(custodietConfig(models.CustodietBlock), 3, rand.New(rand.NewSource(1)))
	s := &models.Session{ID: "s1", CurrentTask: "T-0001", Hydrated: true, DidWork: true, ToolCalls: 7}

	if v := c.Observe(s); v != nil {
		t.Fatalf("compliant session got verdict %+v", v)
	}
}

func TestObserveHighRiskUsesLowerThreshold(t *testing.T) {
	c := NewCustodiet(custodietConfig(models.CustodietWarn), 3, rand.New(rand.NewSource(1)))

	s := driftedSession(4)
	s.RiskScore = 3
	if v := c.Observe(s); v == nil {
		t.Fatal("high-risk session should re-check at the lower threshold")
	}

	low := driftedSession(4)
	low.RiskScore = 0
	if v := c.Observe(low); v != nil {
		t.Fatalf("low-risk session re-checked early: %+v", v)
	}
}

func TestObserveDriftExecutionWithoutPlanning(t *testing.T) {
	c := NewCustodiet(custodietConfig(models.CustodietWarn), 3, rand.New(rand.NewSource(1)))
	s := &models.Session{ID: "s1", CurrentTask: "T-0001", DidWork: true, ToolCalls: 7}

	v := c.Observe(s)
	if v == nil || !strings.Contains(v.reminder, "planning step") {
		t.Fatalf("verdict = %+v, want planning drift", v)
	}
}

func TestObserveReminderProbability(t *testing.T) {
	cfg := custodietConfig(models.CustodietWarn)
	cfg.ReminderProbability = 1.0 // always remind between thresholds
	c := NewCustodiet(cfg, 3, rand.New(rand.NewSource(1)))

	s := &models.Session{ID: "s1", ToolCalls: 2}
	v := c.Observe(s)
	if v == nil || v.reminder == "" {
		t.Fatalf("verdict = %+v, want a reminder", v)
	}
	if v.block {
		t.Error("reminders never block")
	}
	if !strings.Contains(v.reminder, "no task is bound") {
		t.Errorf("reminder = %q", v.reminder)
	}
}

func TestNewCustodietNilRng(t *testing.T) {
	c := NewCustodiet(custodietConfig(models.CustodietWarn), 3, nil)
	if c.rng == nil {
		t.Fatal("nil rng should be replaced with a default source")
	}
}
