package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nicsuzor/aops/pkg/models"
	"gopkg.in/yaml.v3"
)

// SessionStoreManager persists gate sessions under sessions/. One YAML
// file per session, keyed by the session ID the agent runtime supplies.
type SessionStoreManager interface {
	Save(session *models.Session) error
	// Load returns (nil, nil) when the session has never been seen.
	Load(id string) (*models.Session, error)
	List() ([]*models.Session, error)
	// Prune removes sessions not updated since the cutoff.
	Prune(olderThan time.Time) (int, error)
}

type fileSessionStore struct {
	basePath string
}

// NewSessionStoreManager creates a SessionStoreManager backed by YAML
// files under sessions/ in the given base directory.
func NewSessionStoreManager(basePath string) SessionStoreManager {
	return &fileSessionStore{basePath: basePath}
}

func (s *fileSessionStore) sessionsDir() string {
	return filepath.Join(s.basePath, "sessions")
}

func (s *fileSessionStore) sessionPath(id string) string {
	return filepath.Join(s.sessionsDir(), id+".yaml")
}

func (s *fileSessionStore) Save(session *models.Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("saving session: ID must not be empty")
	}
	if strings.ContainsAny(session.ID, "/\\") {
		return fmt.Errorf("saving session: invalid ID %q", session.ID)
	}
	if err := saveYAML(s.sessionPath(session.ID), session); err != nil {
		return fmt.Errorf("saving session %s: %w", session.ID, err)
	}
	return nil
}

func (s *fileSessionStore) Load(id string) (*models.Session, error) {
	data, err := os.ReadFile(s.sessionPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}

	var session models.Session
	if err := yaml.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("parsing session %s: %w", id, err)
	}
	return &session, nil
}

func (s *fileSessionStore) List() ([]*models.Session, error) {
	entries, err := os.ReadDir(s.sessionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading sessions directory: %w", err)
	}

	var sessions []*models.Session
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		session, err := s.Load(strings.TrimSuffix(name, ".yaml"))
		if err != nil {
			return nil, err
		}
		if session != nil {
			sessions = append(sessions, session)
		}
	}

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Updated.After(sessions[j].Updated) })
	return sessions, nil
}

func (s *fileSessionStore) Prune(olderThan time.Time) (int, error) {
	sessions, err := s.List()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, session := range sessions {
		if session.Updated.Before(olderThan) {
			if err := os.Remove(s.sessionPath(session.ID)); err != nil && !os.IsNotExist(err) {
				return removed, fmt.Errorf("pruning session %s: %w", session.ID, err)
			}
			removed++
		}
	}
	return removed, nil
}
