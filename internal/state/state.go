// Package state persists the per-client runtime record: the write-ahead
// log, the active session, queue health counters, and usage stats. One
// JSON file per client; cross-process isolation is by clientId suffix,
// in-process serialization is by mutex.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/eva-agent/eva-memory/internal/models"
)

// State is the on-disk record. Field names are a stable contract with
// the state file written by earlier releases.
type State struct {
	WAL     WAL     `json:"wal"`
	Session Session `json:"session"`
	Queue   Queue   `json:"queue"`
	Stats   Stats   `json:"stats"`
}

type WAL struct {
	Pending   []models.Memory `json:"pending"`
	LastFlush string          `json:"lastFlush,omitempty"`
}

type Session struct {
	ID        string `json:"id,omitempty"`
	StartedAt string `json:"startedAt,omitempty"`
	Project   string `json:"project,omitempty"`
	Branch    string `json:"branch,omitempty"`
}

type Queue struct {
	PendingCount        int    `json:"pendingCount"`
	ConsecutiveFailures int    `json:"consecutiveFailures"`
	LastDrainAttempt    string `json:"lastDrainAttempt,omitempty"`
	LastSuccess         string `json:"lastSuccess,omitempty"`
}

type Stats struct {
	TotalMemories int    `json:"totalMemories"`
	TotalRecalls  int    `json:"totalRecalls"`
	TotalSearches int    `json:"totalSearches"`
	LastMemoryAt  string `json:"lastMemoryAt,omitempty"`
}

// Store owns the state file. All mutations go through Mutate so the
// read-modify-write cycle is serialized within the process.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

func defaultState() State {
	return State{WAL: WAL{Pending: []models.Memory{}}}
}

// load reads the state file. Missing or corrupt files yield the zero
// state rather than an error; the record is advisory, not sacred.
func (s *Store) load() State {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return defaultState()
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.Warn("state file corrupt, starting fresh", "path", s.path, "error", err)
		return defaultState()
	}
	if st.WAL.Pending == nil {
		st.WAL.Pending = []models.Memory{}
	}
	return st
}

func (s *Store) save(st State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Mutate applies fn to the current state and persists the result.
func (s *Store) Mutate(fn func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.load()
	fn(&st)
	return s.save(st)
}

// WALAppend adds the memory to the pending list before any store write.
func (s *Store) WALAppend(mem models.Memory) error {
	return s.Mutate(func(st *State) {
		st.WAL.Pending = append(st.WAL.Pending, mem)
	})
}

// WALFlush removes the id from the pending list and stamps lastFlush.
func (s *Store) WALFlush(id string) error {
	return s.Mutate(func(st *State) {
		kept := st.WAL.Pending[:0]
		for _, m := range st.WAL.Pending {
			if m.ID != id {
				kept = append(kept, m)
			}
		}
		st.WAL.Pending = kept
		st.WAL.LastFlush = time.Now().UTC().Format(time.RFC3339)
	})
}

// WALPending returns the memories awaiting replay.
func (s *Store) WALPending() []models.Memory {
	return s.Snapshot().WAL.Pending
}

// Path returns the state file location, used by the backup flow.
func (s *Store) Path() string {
	return s.path
}
