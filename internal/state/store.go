// Package state persists the per-workspace DeployConfig and its append-only
// build history as a single JSON document with atomic writes.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/notepress/notepress/internal/config"
)

const stateFileName = "deploy-state.json"

// Store owns the DeployConfig for one workspace. All mutations flow through
// the orchestrator's sequential pipeline; the store only guards against
// concurrent readers.
type Store struct {
	dataDir string
	mu      sync.RWMutex
	cfg     *DeployConfig
}

// NewStore opens (or initializes) the state for a workspace. A missing state
// file yields a fresh not-initialized DeployConfig; a corrupt one is an error
// rather than a silent reset.
func NewStore(dataDir string, cfg *config.Config) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &Store{dataDir: dataDir}
	path := filepath.Join(dataDir, stateFileName)
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		now := time.Now().UTC()
		s.cfg = &DeployConfig{
			ID:        uuid.NewString(),
			Workspace: cfg.Workspace,
			Status:    StatusNotInitialized,
			Site:      cfg.Site,
			Content:   cfg.Content,
			Target:    cfg.Deploy,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.saveLocked(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("read state file: %w", err)
	default:
		var dc DeployConfig
		if err := json.Unmarshal(data, &dc); err != nil {
			return nil, fmt.Errorf("unmarshal state file %s: %w", path, err)
		}
		// Options may have changed since the last run; the persisted
		// snapshot follows the config, history and status stay.
		dc.Site = cfg.Site
		dc.Content = cfg.Content
		dc.Target = cfg.Deploy
		s.cfg = &dc
	}
	return s, nil
}

// Get returns a deep copy so callers cannot mutate persisted state directly.
func (s *Store) Get() DeployConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dc := *s.cfg
	dc.History = append([]BuildRecord(nil), s.cfg.History...)
	return dc
}

// Status returns the current lifecycle status.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Status
}

// SetStatus persists a lifecycle transition.
func (s *Store) SetStatus(status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Status = status
	s.cfg.UpdatedAt = time.Now().UTC()
	return s.saveLocked()
}

// AppendRecord appends a finished build record (history is append-only) and
// stamps lastBuild.
func (s *Store) AppendRecord(rec BuildRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.History = append(s.cfg.History, rec)
	now := time.Now().UTC()
	s.cfg.LastBuildAt = &now
	s.cfg.UpdatedAt = now
	return s.saveLocked()
}

// MarkDeployed records a successful publish.
func (s *Store) MarkDeployed(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	s.cfg.Status = StatusDeployed
	s.cfg.LastDeployAt = &now
	s.cfg.LastDeployURL = url
	s.cfg.UpdatedAt = now
	return s.saveLocked()
}

// saveLocked writes the state atomically; callers hold the write lock.
func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	path := filepath.Join(s.dataDir, stateFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
