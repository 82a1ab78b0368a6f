package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/nicsuzor/aops/pkg/models"
	"gopkg.in/yaml.v3"
)

// TaskStoreManager defines the interface for the workspace-level task
// store under tasks/. Each task lives in its own YAML file; index.yaml
// is a derived cache that can always be rebuilt from the per-task files.
type TaskStoreManager interface {
	Put(t *models.Task) error
	Read(id string) (*models.Task, error)
	ReadAll() ([]*models.Task, error)
	RebuildIndex() error
}

// taskIndex is the on-disk shape of tasks/index.yaml.
type taskIndex struct {
	Version string           `yaml:"version"`
	Tasks   []taskIndexEntry `yaml:"tasks"`
}

type taskIndexEntry struct {
	ID       string            `yaml:"id"`
	Status   models.TaskStatus `yaml:"status"`
	Priority models.Priority   `yaml:"priority"`
	Title    string            `yaml:"title"`
}

type fileTaskStore struct {
	basePath string
}

// NewTaskStoreManager creates a TaskStoreManager backed by YAML files
// under tasks/ in the given base directory.
func NewTaskStoreManager(basePath string) TaskStoreManager {
	return &fileTaskStore{basePath: basePath}
}

func (s *fileTaskStore) tasksDir() string {
	return filepath.Join(s.basePath, "tasks")
}

func (s *fileTaskStore) taskPath(id string) string {
	return filepath.Join(s.tasksDir(), id+".yaml")
}

func (s *fileTaskStore) indexPath() string {
	return filepath.Join(s.tasksDir(), "index.yaml")
}

func (s *fileTaskStore) lockPath() string {
	return filepath.Join(s.tasksDir(), ".lock")
}

// lock acquires an exclusive advisory lock on the store, guarding
// against a second aops process writing the same task file.
func (s *fileTaskStore) lock() (unlock func() error, err error) {
	if err := os.MkdirAll(s.tasksDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating tasks directory: %w", err)
	}
	f, err := os.OpenFile(s.lockPath(), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	// syscall.Flock is Unix-specific. On Windows, this will compile but may not work.
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("acquiring task store lock: %w", err)
	}

	return func() error {
		defer f.Close()
		return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}, nil
}

// Put writes the task's YAML file and refreshes its index entry.
func (s *fileTaskStore) Put(t *models.Task) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("putting task: ID must not be empty")
	}

	unlock, err := s.lock()
	if err != nil {
		return fmt.Errorf("putting task %s: %w", t.ID, err)
	}
	defer unlock()

	if err := saveYAML(s.taskPath(t.ID), t); err != nil {
		return fmt.Errorf("putting task %s: %w", t.ID, err)
	}
	if err := s.updateIndexEntry(t); err != nil {
		// The per-task file is the source of truth; a stale index is
		// recoverable via RebuildIndex.
		return fmt.Errorf("putting task %s: updating index: %w", t.ID, err)
	}
	return nil
}

// Read loads one task by ID. Returns (nil, nil) when no record exists.
func (s *fileTaskStore) Read(id string) (*models.Task, error) {
	data, err := os.ReadFile(s.taskPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading task %s: %w", id, err)
	}

	var t models.Task
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing task %s: %w", id, err)
	}
	return &t, nil
}

// ReadAll loads every task from the per-task files, skipping the index
// and lock files. Order is by ID.
func (s *fileTaskStore) ReadAll() ([]*models.Task, error) {
	entries, err := os.ReadDir(s.tasksDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading tasks directory: %w", err)
	}

	var tasks []*models.Task
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yaml") || name == "index.yaml" {
			continue
		}
		id := strings.TrimSuffix(name, ".yaml")
		t, err := s.Read(id)
		if err != nil {
			return nil, err
		}
		if t != nil {
			tasks = append(tasks, t)
		}
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

// RebuildIndex regenerates index.yaml from the per-task files, dropping
// entries whose task file no longer exists.
func (s *fileTaskStore) RebuildIndex() error {
	unlock, err := s.lock()
	if err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}
	defer unlock()

	tasks, err := s.ReadAll()
	if err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}

	idx := taskIndex{Version: "1.0"}
	for _, t := range tasks {
		idx.Tasks = append(idx.Tasks, indexEntry(t))
	}
	if err := saveYAML(s.indexPath(), &idx); err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}
	return nil
}

func (s *fileTaskStore) updateIndexEntry(t *models.Task) error {
	var idx taskIndex
	if err := loadYAML(s.indexPath(), &idx); err != nil {
		return err
	}
	if idx.Version == "" {
		idx.Version = "1.0"
	}

	replaced := false
	for i, entry := range idx.Tasks {
		if entry.ID == t.ID {
			idx.Tasks[i] = indexEntry(t)
			replaced = true
			break
		}
	}
	if !replaced {
		idx.Tasks = append(idx.Tasks, indexEntry(t))
	}
	sort.Slice(idx.Tasks, func(i, j int) bool { return idx.Tasks[i].ID < idx.Tasks[j].ID })

	return saveYAML(s.indexPath(), &idx)
}

func indexEntry(t *models.Task) taskIndexEntry {
	return taskIndexEntry{ID: t.ID, Status: t.Status, Priority: t.Priority, Title: t.Title}
}

func loadYAML(path string, target interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Missing files are initialized to zero values.
		}
		return err
	}
	return yaml.Unmarshal(data, target)
}

func saveYAML(path string, source interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(source)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
