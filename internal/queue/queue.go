// Package queue is the durable pending-embeddings log: memories whose
// vector write could not complete wait here as one JSON object per line
// until a drain succeeds.
package queue

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/eva-agent/eva-memory/internal/embedder"
	"github.com/eva-agent/eva-memory/internal/models"
	"github.com/eva-agent/eva-memory/internal/state"
	"github.com/eva-agent/eva-memory/internal/vector"
)

// MaxFailures gates drain attempts: after this many consecutive failed
// health checks the queue stops probing until a counter reset.
const MaxFailures = 10

// Entry is one queued record. Metadata values are strings because the
// vector store only accepts flat string maps; importance is stringified.
type Entry struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	QueuedAt string            `json:"queuedAt"`
}

// DrainResult reports one drain pass.
type DrainResult struct {
	Processed int    `json:"processed"`
	Remaining int    `json:"remaining"`
	Status    string `json:"status"`
}

// Queue owns the log file and the drain state machine.
type Queue struct {
	path   string
	states *state.Store
	logger *slog.Logger
}

func New(path string, states *state.Store, logger *slog.Logger) *Queue {
	return &Queue{path: path, states: states, logger: logger}
}

// EntryFor builds the queue record for a memory.
func EntryFor(mem models.Memory) Entry {
	return Entry{
		ID:      mem.ID,
		Content: mem.Content,
		Metadata: map[string]string{
			"type":       mem.Type,
			"importance": strconv.Itoa(mem.Importance),
			"project":    mem.Project,
			"created":    mem.Created.UTC().Format(time.RFC3339),
			"summary":    mem.Summary,
		},
		QueuedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// Enqueue appends one record to the log.
func (q *Queue) Enqueue(e Entry) error {
	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		return fmt.Errorf("creating queue dir: %w", err)
	}
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshalling queue entry: %w", err)
	}
	f, err := os.OpenFile(q.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening queue: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending queue entry: %w", err)
	}
	return nil
}

// lines reads the raw non-empty lines of the log in file order.
func (q *Queue) lines() ([]string, error) {
	f, err := os.Open(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if len(line) > 0 {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}

// PendingCount returns the number of queued records.
func (q *Queue) PendingCount() int {
	lines, err := q.lines()
	if err != nil {
		return 0
	}
	return len(lines)
}

// Drain processes queued records: embed, upsert, and rewrite the log
// with exactly the records that did not make it. The rewrite is the
// commit point; a crash mid-drain re-processes at worst (upserts are
// idempotent by id).
func (q *Queue) Drain(ctx context.Context, emb embedder.Embedder, vec vector.Store) DrainResult {
	lines, err := q.lines()
	if err != nil {
		q.logger.Warn("queue read failed", "error", err)
		return DrainResult{Status: "empty"}
	}
	if len(lines) == 0 {
		return DrainResult{Status: "empty"}
	}

	st := q.states.Snapshot()
	if st.Queue.ConsecutiveFailures >= MaxFailures {
		return DrainResult{Remaining: len(lines), Status: "skipped-max-failures"}
	}

	if vec == nil || !vec.Health(ctx) {
		_ = q.states.Mutate(func(s *state.State) {
			s.Queue.ConsecutiveFailures++
			s.Queue.LastDrainAttempt = time.Now().UTC().Format(time.RFC3339)
		})
		return DrainResult{Remaining: len(lines), Status: "vector-offline"}
	}

	processed := 0
	var remaining []string
	for _, line := range lines {
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil || entry.ID == "" {
			// Malformed records are dropped, not retried.
			continue
		}
		if emb == nil {
			remaining = append(remaining, line)
			continue
		}
		embedding, err := emb.Embed(ctx, entry.Content)
		if err != nil || len(embedding) == 0 {
			remaining = append(remaining, line)
			continue
		}
		if err := vec.Add(ctx, entry.ID, embedding, entry.Content, entry.Metadata); err != nil {
			q.logger.Warn("queued vector write failed", "id", entry.ID, "error", err)
			remaining = append(remaining, line)
			continue
		}
		processed++
	}

	if err := q.rewrite(remaining); err != nil {
		q.logger.Warn("queue rewrite failed", "error", err)
		return DrainResult{Processed: processed, Remaining: len(remaining), Status: "ok"}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_ = q.states.Mutate(func(s *state.State) {
		s.Queue.ConsecutiveFailures = 0
		s.Queue.LastSuccess = now
		s.Queue.LastDrainAttempt = now
		s.Queue.PendingCount = len(remaining)
	})

	return DrainResult{Processed: processed, Remaining: len(remaining), Status: "ok"}
}

// rewrite replaces the log with the given lines via temp file + rename.
func (q *Queue) rewrite(lines []string) error {
	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		return err
	}
	tmp := q.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, q.path)
}
