package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nicsuzor/aops/pkg/models"
)

func sampleTask(id string) *models.Task {
	now := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	return &models.Task{
		ID:        id,
		Title:     "task " + id,
		Type:      models.TypeTask,
		Status:    models.StatusActive,
		Priority:  models.P2,
		DependsOn: []string{"T-0001"},
		Created:   now,
		Updated:   now,
		Version:   1,
	}
}

func TestTaskStoreRoundTrip(t *testing.T) {
	store := NewTaskStoreManager(t.TempDir())
	original := sampleTask("T-0042")
	original.Body = "line one\nline two\n"

	if err := store.Put(original); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, err := store.Read("T-0042")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if loaded == nil {
		t.Fatal("read returned nil for stored task")
	}
	if loaded.ID != original.ID || loaded.Title != original.Title ||
		loaded.Status != original.Status || loaded.Body != original.Body ||
		loaded.Version != original.Version {
		t.Errorf("loaded = %+v, want %+v", loaded, original)
	}
	if !loaded.Created.Equal(original.Created) {
		t.Errorf("created = %v, want %v", loaded.Created, original.Created)
	}
	if len(loaded.DependsOn) != 1 || loaded.DependsOn[0] != "T-0001" {
		t.Errorf("depends_on = %v", loaded.DependsOn)
	}
}

func TestTaskStoreReadMissing(t *testing.T) {
	store := NewTaskStoreManager(t.TempDir())
	task, err := store.Read("T-9999")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if task != nil {
		t.Fatalf("read missing = %+v, want nil", task)
	}
}

func TestTaskStorePutRejectsEmptyID(t *testing.T) {
	store := NewTaskStoreManager(t.TempDir())
	if err := store.Put(&models.Task{}); err == nil {
		t.Fatal("put with empty ID should fail")
	}
	if err := store.Put(nil); err == nil {
		t.Fatal("put nil should fail")
	}
}

func TestTaskStoreReadAllSkipsIndex(t *testing.T) {
	dir := t.TempDir()
	store := NewTaskStoreManager(dir)

	for _, id := range []string{"T-0002", "T-0001", "T-0003"} {
		if err := store.Put(sampleTask(id)); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}
	// A stray non-yaml file must be ignored too.
	if err := os.WriteFile(filepath.Join(dir, "tasks", "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("writing stray file: %v", err)
	}

	tasks, err := store.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("len = %d, want 3", len(tasks))
	}
	for i, want := range []string{"T-0001", "T-0002", "T-0003"} {
		if tasks[i].ID != want {
			t.Errorf("tasks[%d] = %s, want %s (id order)", i, tasks[i].ID, want)
		}
	}
}

func TestTaskStoreReadAllEmptyDir(t *testing.T) {
	store := NewTaskStoreManager(t.TempDir())
	tasks, err := store.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("len = %d, want 0", len(tasks))
	}
}

func TestTaskStoreIndexTracksPuts(t *testing.T) {
	dir := t.TempDir()
	store := NewTaskStoreManager(dir)

	task := sampleTask("T-0042")
	if err := store.Put(task); err != nil {
		t.Fatalf("put: %v", err)
	}
	task.Status = models.StatusDone
	if err := store.Put(task); err != nil {
		t.Fatalf("second put: %v", err)
	}

	idx := readIndex(t, dir)
	if len(idx.Tasks) != 1 {
		t.Fatalf("index entries = %d, want 1 (no duplicate on overwrite)", len(idx.Tasks))
	}
	if idx.Tasks[0].Status != models.StatusDone {
		t.Errorf("index status = %s, want done", idx.Tasks[0].Status)
	}
}

func TestTaskStoreRebuildIndex(t *testing.T) {
	dir := t.TempDir()
	store := NewTaskStoreManager(dir)

	if err := store.Put(sampleTask("T-0001")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(sampleTask("T-0002")); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Corrupt the index, then remove one task file out of band.
	if err := os.WriteFile(filepath.Join(dir, "tasks", "index.yaml"), []byte("version: \"1.0\"\ntasks: []\n"), 0o600); err != nil {
		t.Fatalf("corrupting index: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "tasks", "T-0002.yaml")); err != nil {
		t.Fatalf("removing task file: %v", err)
	}

	if err := store.RebuildIndex(); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	idx := readIndex(t, dir)
	if len(idx.Tasks) != 1 || idx.Tasks[0].ID != "T-0001" {
		t.Fatalf("index = %+v, want exactly T-0001", idx.Tasks)
	}
}

func readIndex(t *testing.T, dir string) taskIndex {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "tasks", "index.yaml"))
	if err != nil {
		t.Fatalf("reading index: %v", err)
	}
	var idx taskIndex
	if err := yaml.Unmarshal(data, &idx); err != nil {
		t.Fatalf("parsing index: %v", err)
	}
	return idx
}
