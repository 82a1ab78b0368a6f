package storage

import (
	"testing"
	"time"

	"github.com/nicsuzor/aops/pkg/models"
)

func sampleSession(id string, updated time.Time) *models.Session {
	return &models.Session{
		ID:          id,
		CurrentTask: "T-0001",
		Workflow:    models.WorkflowDevelop,
		RiskScore:   2,
		Hydrated:    true,
		DidWork:     true,
		ToolCalls:   14,
		Started:     updated.Add(-time.Hour),
		Updated:     updated,
	}
}

func TestSessionStoreRoundTrip(t *testing.T) {
	store := NewSessionStoreManager(t.TempDir())
	now := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	original := sampleSession("s-abc", now)

	if err := store.Save(original); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := store.Load("s-abc")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil {
		t.Fatal("load returned nil for saved session")
	}
	if loaded.ID != original.ID || loaded.CurrentTask != original.CurrentTask ||
		loaded.Workflow != original.Workflow || loaded.ToolCalls != original.ToolCalls ||
		loaded.Hydrated != original.Hydrated || loaded.DidWork != original.DidWork {
		t.Errorf("loaded = %+v, want %+v", loaded, original)
	}
}

func TestSessionStoreLoadMissing(t *testing.T) {
	store := NewSessionStoreManager(t.TempDir())
	s, err := store.Load("never-seen")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s != nil {
		t.Fatalf("load missing = %+v, want nil", s)
	}
}

func TestSessionStoreSaveRejectsBadIDs(t *testing.T) {
	store := NewSessionStoreManager(t.TempDir())
	for _, id := range []string{"", "../escape", "a/b", `a\b`} {
		if err := store.Save(&models.Session{ID: id}); err == nil {
			t.Errorf("save with ID %q should fail", id)
		}
	}
}

func TestSessionStoreListNewestFirst(t *testing.T) {
	store := NewSessionStoreManager(t.TempDir())
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		if err := store.Save(sampleSession(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	sessions, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("len = %d, want 3", len(sessions))
	}
	for i, want := range []string{"new", "mid", "old"} {
		if sessions[i].ID != want {
			t.Errorf("sessions[%d] = %s, want %s", i, sessions[i].ID, want)
		}
	}
}

func TestSessionStorePrune(t *testing.T) {
	store := NewSessionStoreManager(t.TempDir())
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	if err := store.Save(sampleSession("stale", base)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(sampleSession("fresh", base.Add(48*time.Hour))); err != nil {
		t.Fatalf("save: %v", err)
	}

	removed, err := store.Prune(base.Add(24 * time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	stale, err := store.Load("stale")
	if err != nil {
		t.Fatalf("load stale: %v", err)
	}
	if stale != nil {
		t.Error("stale session should be gone")
	}
	fresh, err := store.Load("fresh")
	if err != nil || fresh == nil {
		t.Errorf("fresh session should survive (err=%v)", err)
	}
}
