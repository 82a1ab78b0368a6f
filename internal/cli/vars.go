package cli

import (
	"github.com/nicsuzor/aops/internal/core"
	"github.com/nicsuzor/aops/internal/observability"
	"github.com/nicsuzor/aops/internal/storage"
	"github.com/nicsuzor/aops/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath string
	Config   *models.GlobalConfig

	Graph        *core.GraphStore
	Gates        *core.GateEngine
	SessionStore storage.SessionStoreManager
	TaskStore    storage.TaskStoreManager
	AuditLog     observability.AuditLog

	// NewMerger builds a merge orchestrator rooted at the given git
	// repository. A factory because the repo path is only known at
	// command time.
	NewMerger func(repoPath string) *core.MergeOrchestrator
)
