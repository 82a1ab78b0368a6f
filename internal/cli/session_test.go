package cli

import (
	"testing"
	"time"

	"github.com/nicsuzor/aops/internal/storage"
	"github.com/nicsuzor/aops/pkg/models"
)

func withSessionStore(t *testing.T) storage.SessionStoreManager {
	t.Helper()
	orig := SessionStore
	t.Cleanup(func() { SessionStore = orig })
	SessionStore = storage.NewSessionStoreManager(t.TempDir())
	return SessionStore
}

func TestLoadOrCreateSessionFresh(t *testing.T) {
	withSessionStore(t)

	s, err := loadOrCreateSession("s-new")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.ID != "s-new" {
		t.Errorf("id = %q", s.ID)
	}
	if s.Workflow != models.WorkflowDevelop {
		t.Errorf("workflow = %q, want develop default", s.Workflow)
	}
	if s.Started.IsZero() {
		t.Error("fresh session should have a start time")
	}
}

func TestLoadOrCreateSessionExisting(t *testing.T) {
	store := withSessionStore(t)

	saved := &models.Session{
		ID:        "s-known",
		Workflow:  models.WorkflowDebug,
		ToolCalls: 9,
		Hydrated:  true,
		Updated:   time.Now().UTC(),
	}
	if err := store.Save(saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	s, err := loadOrCreateSession("s-known")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Workflow != models.WorkflowDebug || s.ToolCalls != 9 || !s.Hydrated {
		t.Errorf("loaded = %+v, want persisted state", s)
	}
}

func TestLoadOrCreateSessionNilStore(t *testing.T) {
	orig := SessionStore
	t.Cleanup(func() { SessionStore = orig })
	SessionStore = nil

	if _, err := loadOrCreateSession("s-x"); err == nil {
		t.Fatal("nil store should error, not panic")
	}
}

func TestOrNone(t *testing.T) {
	if got := orNone(""); got != "-" {
		t.Errorf("orNone(\"\") = %q", got)
	}
	if got := orNone("T-0001"); got != "T-0001" {
		t.Errorf("orNone(T-0001) = %q", got)
	}
}
