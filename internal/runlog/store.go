package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/joshua-d-miller/enrollpipe/internal/stage"
)

// Store persists run logs on disk, one directory per run.
type Store struct {
	baseDir string // defaults to ~/.enrollpipe/runs
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// DefaultStore returns a Store at ~/.enrollpipe/runs, creating the directory if needed.
func DefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".enrollpipe", "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{baseDir: dir}, nil
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// runDir returns the directory path for a given run.
func (s *Store) runDir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

// logPath returns the path to the runlog.json file for a run.
func (s *Store) logPath(runID string) string {
	return filepath.Join(s.runDir(runID), "runlog.json")
}

// Save writes a run log to disk, creating or replacing its run directory entry.
func (s *Store) Save(log *stage.RunLog) error {
	if log.ID == "" {
		return fmt.Errorf("run log has no ID")
	}
	if err := os.MkdirAll(s.runDir(log.ID), 0o755); err != nil {
		return fmt.Errorf("mkdir run dir: %w", err)
	}
	if err := WriteJSON(s.logPath(log.ID), log); err != nil {
		return fmt.Errorf("write runlog.json: %w", err)
	}
	return nil
}

// Get reads the run log for a run ID.
func (s *Store) Get(runID string) (*stage.RunLog, error) {
	var log stage.RunLog
	if err := ReadJSON(s.logPath(runID), &log); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return nil, err
	}
	return &log, nil
}

// List returns all persisted run logs, newest first.
func (s *Store) List() ([]stage.RunLog, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", s.baseDir, err)
	}

	var logs []stage.RunLog
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		log, err := s.Get(entry.Name())
		if err != nil {
			continue // skip broken entries
		}
		logs = append(logs, *log)
	}

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].StartedAt > logs[j].StartedAt
	})
	return logs, nil
}

// Delete removes all data for a run.
func (s *Store) Delete(runID string) error {
	dir := s.runDir(runID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("run %s not found", runID)
	}
	return os.RemoveAll(dir)
}
