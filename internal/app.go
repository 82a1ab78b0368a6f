// Package internal provides the App struct that wires all components of the
// aops system together and initializes the CLI layer.
package internal

import (
	"os"
	"path/filepath"
	"time"

	"github.com/nicsuzor/aops/internal/cli"
	"github.com/nicsuzor/aops/internal/core"
	"github.com/nicsuzor/aops/internal/integration"
	"github.com/nicsuzor/aops/internal/observability"
	"github.com/nicsuzor/aops/internal/storage"
	"github.com/nicsuzor/aops/pkg/models"
)

// App holds all service dependencies for the aops system.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.GlobalConfig

	// Storage layer
	TaskStore    storage.TaskStoreManager
	SessionStore storage.SessionStoreManager

	// Core services
	Graph     *core.GraphStore
	Gates     *core.GateEngine
	Custodiet *core.Custodiet
	IDGen     core.TaskIDGenerator

	// Observability
	AuditLog observability.AuditLog
}

// NewApp creates and wires all components of the aops system. basePath
// is the root directory where task and session data is stored.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		cfg = models.DefaultGlobalConfig()
	}
	app.Config = cfg

	// --- Observability ---
	auditPath := filepath.Join(basePath, ".aops_audit.jsonl")
	app.AuditLog, err = observability.NewJSONLAuditLog(auditPath)
	if err != nil {
		// Non-fatal: disable the trail if the log can't be created.
		app.AuditLog = nil
	}
	var sink core.AuditSink
	if app.AuditLog != nil {
		sink = &auditSinkAdapter{log: app.AuditLog}
	}

	// --- Storage layer ---
	app.TaskStore = storage.NewTaskStoreManager(basePath)
	app.SessionStore = storage.NewSessionStoreManager(basePath)

	// --- Core services ---
	app.IDGen = core.NewTaskIDGenerator()
	weights := core.NewWeightResolver(cfg.Weight)
	app.Graph = core.NewGraphStore(&recordStoreAdapter{mgr: app.TaskStore}, sink, app.IDGen, weights)

	app.Custodiet = core.NewCustodiet(cfg.Custodiet, cfg.Gates.RiskThreshold, nil)
	app.Gates = core.NewGateEngine(cfg.Gates, app.Custodiet, sink)

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.Graph = app.Graph
	cli.Gates = app.Gates
	cli.TaskStore = app.TaskStore
	cli.SessionStore = app.SessionStore
	cli.AuditLog = app.AuditLog
	cli.NewMerger = func(repoPath string) *core.MergeOrchestrator {
		return core.NewMergeOrchestrator(
			integration.NewGitCLI(repoPath),
			integration.NewShellTestRunner(repoPath),
			app.Graph,
			cfg.Merge,
			sink,
		)
	}

	return app, nil
}

// Close releases resources held by the App, such as the audit log file
// handle. It is safe to call Close on an App whose AuditLog is nil.
func (a *App) Close() error {
	if a.AuditLog != nil {
		return a.AuditLog.Close()
	}
	return nil
}

// ResolveBasePath determines the base path for the aops data directory.
// It checks the AOPS_HOME env var, then walks up from the current
// directory looking for .aops.yaml.
func ResolveBasePath() string {
	if home := os.Getenv("AOPS_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".aops.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}

// --- Adapters ---

// recordStoreAdapter adapts storage.TaskStoreManager to core.RecordStore.
type recordStoreAdapter struct {
	mgr storage.TaskStoreManager
}

func (a *recordStoreAdapter) Put(t *models.Task) error {
	return a.mgr.Put(t)
}

func (a *recordStoreAdapter) Read(id string) (*models.Task, error) {
	return a.mgr.Read(id)
}

func (a *recordStoreAdapter) ReadAll() ([]*models.Task, error) {
	return a.mgr.ReadAll()
}

// auditSinkAdapter adapts observability.AuditLog to core.AuditSink.
type auditSinkAdapter struct {
	log observability.AuditLog
}

func (a *auditSinkAdapter) Record(actor, taskID, action, detail string) {
	_ = a.log.Write(observability.AuditEntry{
		Time:   time.Now().UTC(),
		Actor:  actor,
		TaskID: taskID,
		Action: action,
		Detail: detail,
	})
}
