// Package core contains the business logic of the coordination engine:
// the task graph store and its state machine, downstream-weight
// computation, the session gate engine, the custodiet compliance
// sampler, and the merge orchestrator.
package core

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/nicsuzor/aops/pkg/models"
)

// ConfigurationManager loads engine configuration from .aops.yaml.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading YAML configuration files.
type viperConfigManager struct {
	// basePath is the root directory where .aops.yaml resides.
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager that reads
// configuration relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// LoadGlobalConfig reads .aops.yaml from the base path. If the file does
// not exist, defaults are returned.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	cfg := models.DefaultGlobalConfig()

	v := viper.New()
	v.SetConfigName(".aops")
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	// Viper defaults so missing keys fall back gracefully.
	v.SetDefault("task.default_priority", cfg.Task.DefaultPriority)
	v.SetDefault("task.default_type", cfg.Task.DefaultType)
	v.SetDefault("gates.enabled", cfg.Gates.Enabled)
	v.SetDefault("gates.risk_threshold", cfg.Gates.RiskThreshold)
	v.SetDefault("gates.exempt_workflows", cfg.Gates.ExemptWorkflows)
	v.SetDefault("custodiet.enabled", cfg.Custodiet.Enabled)
	v.SetDefault("custodiet.mode", string(cfg.Custodiet.Mode))
	v.SetDefault("custodiet.threshold", cfg.Custodiet.Threshold)
	v.SetDefault("custodiet.high_risk_threshold", cfg.Custodiet.HighRiskThreshold)
	v.SetDefault("custodiet.reminder_probability", cfg.Custodiet.ReminderProbability)
	v.SetDefault("merge.branch_prefix", cfg.Merge.BranchPrefix)
	v.SetDefault("merge.main_branch", cfg.Merge.MainBranch)
	v.SetDefault("merge.remote", cfg.Merge.Remote)
	v.SetDefault("merge.test_command", cfg.Merge.TestCommand)
	v.SetDefault("merge.test_timeout", cfg.Merge.TestTimeout)
	v.SetDefault("merge.push", cfg.Merge.Push)
	v.SetDefault("weight.include_soft", cfg.Weight.IncludeSoft)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading .aops.yaml: %w", err)
	}

	cfg.Task.DefaultPriority = v.GetInt("task.default_priority")
	cfg.Task.DefaultType = v.GetString("task.default_type")
	cfg.Gates.Enabled = v.GetBool("gates.enabled")
	cfg.Gates.RiskThreshold = v.GetInt("gates.risk_threshold")
	cfg.Gates.ExemptWorkflows = v.GetStringSlice("gates.exempt_workflows")
	cfg.Custodiet.Enabled = v.GetBool("custodiet.enabled")
	cfg.Custodiet.Mode = models.CustodietMode(v.GetString("custodiet.mode"))
	cfg.Custodiet.Threshold = v.GetInt("custodiet.threshold")
	cfg.Custodiet.HighRiskThreshold = v.GetInt("custodiet.high_risk_threshold")
	cfg.Custodiet.ReminderProbability = v.GetFloat64("custodiet.reminder_probability")
	cfg.Merge.BranchPrefix = v.GetString("merge.branch_prefix")
	cfg.Merge.MainBranch = v.GetString("merge.main_branch")
	cfg.Merge.Remote = v.GetString("merge.remote")
	cfg.Merge.TestCommand = v.GetString("merge.test_command")
	cfg.Merge.TestTimeout = v.GetDuration("merge.test_timeout")
	cfg.Merge.Push = v.GetBool("merge.push")
	cfg.Weight.IncludeSoft = v.GetBool("weight.include_soft")

	if err := cm.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateConfig rejects configurations the engine cannot honor. The
// custodiet mode in particular must be explicit: an unknown mode is an
// error, never silently degraded to warn.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if !models.ValidPriority(models.Priority(cfg.Task.DefaultPriority)) {
		return fmt.Errorf("task.default_priority %d out of range P0..P4", cfg.Task.DefaultPriority)
	}
	if !models.ValidTaskType(models.TaskType(cfg.Task.DefaultType)) {
		return fmt.Errorf("task.default_type %q is not a known task type", cfg.Task.DefaultType)
	}
	switch cfg.Custodiet.Mode {
	case models.CustodietWarn, models.CustodietBlock:
	default:
		return fmt.Errorf("custodiet.mode %q must be %q or %q",
			cfg.Custodiet.Mode, models.CustodietWarn, models.CustodietBlock)
	}
	if cfg.Custodiet.Threshold < 1 {
		return fmt.Errorf("custodiet.threshold must be >= 1, got %d", cfg.Custodiet.Threshold)
	}
	if p := cfg.Custodiet.ReminderProbability; p < 0 || p > 1 {
		return fmt.Errorf("custodiet.reminder_probability must be in [0,1], got %g", p)
	}
	if cfg.Merge.TestTimeout <= 0 {
		return fmt.Errorf("merge.test_timeout must be positive, got %s", cfg.Merge.TestTimeout)
	}
	if cfg.Merge.TestTimeout < time.Second {
		return fmt.Errorf("merge.test_timeout %s is below one second", cfg.Merge.TestTimeout)
	}
	if cfg.Merge.MainBranch == "" {
		return fmt.Errorf("merge.main_branch must not be empty")
	}
	if cfg.Merge.BranchPrefix == "" {
		return fmt.Errorf("merge.branch_prefix must not be empty")
	}
	return nil
}
