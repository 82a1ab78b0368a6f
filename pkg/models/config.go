package models

import "time"

// GlobalConfig is the root of .aops.yaml. Missing sections fall back to
// the defaults below.
type GlobalConfig struct {
	Task      TaskConfig      `yaml:"task" mapstructure:"task"`
	Gates     GateConfig      `yaml:"gates" mapstructure:"gates"`
	Custodiet CustodietConfig `yaml:"custodiet" mapstructure:"custodiet"`
	Merge     MergeConfig     `yaml:"merge" mapstructure:"merge"`
	Weight    WeightConfig    `yaml:"weight" mapstructure:"weight"`
}

// TaskConfig controls task creation defaults.
type TaskConfig struct {
	DefaultPriority int    `yaml:"default_priority" mapstructure:"default_priority"`
	DefaultType     string `yaml:"default_type" mapstructure:"default_type"`
}

// GateConfig controls the session gate engine.
type GateConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// RiskThreshold is the session risk score at which critic review
	// becomes a required gate.
	RiskThreshold int `yaml:"risk_threshold" mapstructure:"risk_threshold"`
	// ExemptWorkflows lists workflow classes that skip the QA gate.
	ExemptWorkflows []string `yaml:"exempt_workflows" mapstructure:"exempt_workflows"`
}

// QAExempt reports whether the given workflow class skips the QA gate.
func (g GateConfig) QAExempt(w WorkflowClass) bool {
	for _, e := range g.ExemptWorkflows {
		if WorkflowClass(e) == w {
			return true
		}
	}
	return false
}

// CustodietMode selects whether compliance findings warn or deny.
type CustodietMode string

const (
	CustodietWarn  CustodietMode = "warn"
	CustodietBlock CustodietMode = "block"
)

// CustodietConfig controls the compliance sampler.
type CustodietConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Mode    CustodietMode `yaml:"mode" mapstructure:"mode"`
	// Threshold is the tool-call count that triggers a full compliance
	// re-check. HighRiskThreshold applies instead when the session risk
	// score is at or above gates.risk_threshold.
	Threshold           int     `yaml:"threshold" mapstructure:"threshold"`
	HighRiskThreshold   int     `yaml:"high_risk_threshold" mapstructure:"high_risk_threshold"`
	ReminderProbability float64 `yaml:"reminder_probability" mapstructure:"reminder_probability"`
}

// MergeConfig controls the merge orchestrator.
type MergeConfig struct {
	// BranchPrefix is the naming pattern tying branches to task ids;
	// a branch "task/<id>" is a merge candidate for task <id>.
	BranchPrefix string `yaml:"branch_prefix" mapstructure:"branch_prefix"`
	MainBranch   string `yaml:"main_branch" mapstructure:"main_branch"`
	Remote       string `yaml:"remote" mapstructure:"remote"`
	TestCommand  string `yaml:"test_command" mapstructure:"test_command"`
	// TestTimeout bounds the verification run; a hung test command must
	// not wedge the orchestrator.
	TestTimeout time.Duration `yaml:"test_timeout" mapstructure:"test_timeout"`
	Push        bool          `yaml:"push" mapstructure:"push"`
}

// WeightConfig controls downstream-weight computation.
type WeightConfig struct {
	// IncludeSoft determines whether soft dependency edges contribute to
	// downstream weight. Soft edges may legally cycle either way.
	IncludeSoft bool `yaml:"include_soft" mapstructure:"include_soft"`
}

// DefaultGlobalConfig returns the configuration used when .aops.yaml is
// absent or a section is missing.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Task: TaskConfig{
			DefaultPriority: int(P2),
			DefaultType:     string(TypeTask),
		},
		Gates: GateConfig{
			Enabled:         true,
			RiskThreshold:   3,
			ExemptWorkflows: []string{string(WorkflowChat), string(WorkflowDocs)},
		},
		Custodiet: CustodietConfig{
			Enabled:             true,
			Mode:                CustodietWarn,
			Threshold:           7,
			HighRiskThreshold:   4,
			ReminderProbability: 0.3,
		},
		Merge: MergeConfig{
			BranchPrefix: "task/",
			MainBranch:   "main",
			Remote:       "origin",
			TestCommand:  "go test ./...",
			TestTimeout:  10 * time.Minute,
			Push:         true,
		},
		Weight: WeightConfig{
			IncludeSoft: true,
		},
	}
}
