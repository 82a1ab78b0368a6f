package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// AuditEntry is one line of the append-only audit trail: who acted on
// which task, what they did, when.
type AuditEntry struct {
	Time   time.Time `json:"time"`
	Actor  string    `json:"actor"`
	TaskID string    `json:"task_id,omitempty"`
	Action string    `json:"action"` // e.g. "task.create", "merge.failed"
	Detail string    `json:"detail,omitempty"`
}

// AuditFilter specifies criteria for reading audit entries.
type AuditFilter struct {
	Since  *time.Time
	Until  *time.Time
	Actor  string
	TaskID string
	Action string
}

// AuditLog defines the interface for writing and reading the trail.
type AuditLog interface {
	Write(entry AuditEntry) error
	Read(filter AuditFilter) ([]AuditEntry, error)
	Close() error
}

// jsonlAuditLog implements AuditLog using an append-only JSONL file.
type jsonlAuditLog struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewJSONLAuditLog creates an AuditLog backed by a JSONL file at the given path.
func NewJSONLAuditLog(path string) (AuditLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return &jsonlAuditLog{path: path, file: f}, nil
}

// Write appends a JSON-encoded entry followed by a newline.
func (l *jsonlAuditLog) Write(entry AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshalling audit entry: %w", err)
	}
	data = append(data, '\n')

	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("writing audit entry: %w", err)
	}
	return nil
}

// Read scans the log line by line and returns entries matching the filter.
func (l *jsonlAuditLog) Read(filter AuditFilter) ([]AuditEntry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	var entries []AuditEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry AuditEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue // skip malformed lines
		}

		if matchesAuditFilter(entry, filter) {
			entries = append(entries, entry)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning audit log: %w", err)
	}

	return entries, nil
}

// Close closes the underlying log file.
func (l *jsonlAuditLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing audit log: %w", err)
	}
	return nil
}

func matchesAuditFilter(entry AuditEntry, filter AuditFilter) bool {
	if filter.Since != nil && entry.Time.Before(*filter.Since) {
		return false
	}
	if filter.Until != nil && entry.Time.After(*filter.Until) {
		return false
	}
	if filter.Actor != "" && entry.Actor != filter.Actor {
		return false
	}
	if filter.TaskID != "" && entry.TaskID != filter.TaskID {
		return false
	}
	if filter.Action != "" && entry.Action != filter.Action {
		return false
	}
	return true
}
