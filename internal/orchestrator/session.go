package orchestrator

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/eva-agent/eva-memory/internal/metrics"
	"github.com/eva-agent/eva-memory/internal/models"
	"github.com/eva-agent/eva-memory/internal/queue"
	"github.com/eva-agent/eva-memory/internal/state"
)

// sessionStateTemplate is the reset content of the hot working-memory
// file. Agents scribble into the sections during a session.
const sessionStateTemplate = "# Session State (Hot RAM)\n\n" +
	"> Active working memory for the current session. Cleared on session reset.\n\n" +
	"## Current Context\n\n\n## Active Tasks\n\n\n## Recent Decisions\n\n\n## Working Notes\n\n"

// SyncStartInput are the session bootstrap arguments.
type SyncStartInput struct {
	SessionID string `json:"sessionId,omitempty"`
	Project   string `json:"project,omitempty"`
	Branch    string `json:"branch,omitempty"`
}

// SyncStartResult reports the bootstrap outcome.
type SyncStartResult struct {
	SessionID    string            `json:"sessionId"`
	WALRecovered int               `json:"walRecovered"`
	QueueDrain   queue.DrainResult `json:"queueDrain"`
	Overview     *models.Overview  `json:"overview"`
}

// replayWAL re-runs the durable layers for every pending memory and
// flushes each entry once either layer holds it.
func (o *Orchestrator) replayWAL(ctx context.Context) int {
	recovered := 0
	for _, mem := range o.states.WALPending() {
		mdOK := o.md.Append(mem) == nil
		graphOK := o.graph.UpsertMemory(ctx, mem) == nil
		if mdOK || graphOK {
			if err := o.states.WALFlush(mem.ID); err != nil {
				o.logger.Warn("wal flush failed during replay", "id", mem.ID, "error", err)
				continue
			}
			recovered++
			metrics.WALReplays.Add(1)
		}
	}
	return recovered
}

// SyncStart begins a session: adopt or mint the session id, replay the
// WAL, drain the embedding queue, link the session in the graph, and
// return a system overview.
func (o *Orchestrator) SyncStart(ctx context.Context, in SyncStartInput) (*SyncStartResult, error) {
	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	now := time.Now().UTC().Format(time.RFC3339)

	if err := o.states.Mutate(func(s *state.State) {
		s.Session = state.Session{ID: sessionID, StartedAt: now, Project: in.Project, Branch: in.Branch}
	}); err != nil {
		o.logger.Warn("session state write failed", "error", err)
	}

	recovered := o.replayWAL(ctx)
	drain := o.queue.Drain(ctx, o.emb, o.vec)
	if drain.Processed > 0 {
		metrics.QueueDrained.Add(int64(drain.Processed))
	}

	err := o.graph.LinkSession(ctx, models.Session{
		ID:        sessionID,
		StartedAt: now,
		Project:   in.Project,
		Branch:    in.Branch,
	})
	if err != nil {
		o.logger.Warn("session link failed", "error", err)
	}

	overview, err := o.graph.Overview(ctx)
	if err != nil {
		o.logger.Warn("overview query failed", "error", err)
		overview = &models.Overview{TopEntities: []models.EntityCount{}, Projects: []string{}}
	}
	overview.PendingEmbeddings = o.queue.PendingCount()

	return &SyncStartResult{
		SessionID:    sessionID,
		WALRecovered: recovered,
		QueueDrain:   drain,
		Overview:     overview,
	}, nil
}

// SyncEndResult reports session close.
type SyncEndResult struct {
	SessionID string `json:"sessionId,omitempty"`
	Closed    bool   `json:"closed"`
}

// SyncEnd closes the current session: stamp it in the graph, clear the
// session record, and reset the hot working-memory file.
func (o *Orchestrator) SyncEnd(ctx context.Context, summary string) (*SyncEndResult, error) {
	sessionID := o.states.Snapshot().Session.ID

	if sessionID != "" {
		now := time.Now().UTC().Format(time.RFC3339)
		if err := o.graph.CloseSession(ctx, sessionID, summary, now); err != nil {
			o.logger.Warn("session close failed", "error", err)
		}
	}

	if err := o.states.Mutate(func(s *state.State) {
		s.Session = state.Session{}
	}); err != nil {
		o.logger.Warn("session state clear failed", "error", err)
	}

	if err := os.WriteFile(o.cfg.SessionStatePath(), []byte(sessionStateTemplate), 0o644); err != nil {
		o.logger.Warn("session state reset failed", "error", err)
	}

	return &SyncEndResult{SessionID: sessionID, Closed: true}, nil
}

// FlushResult reports a pre-compaction snapshot.
type FlushResult struct {
	BackupDir   string   `json:"backupDir"`
	FilesBacked []string `json:"filesBacked"`
	WALFlushed  int      `json:"walFlushed"`
}

// PreCompactionFlush snapshots the per-client files to a timestamped
// backup directory and replays the WAL, so nothing is lost when the
// agent's context window is compacted.
func (o *Orchestrator) PreCompactionFlush(ctx context.Context) (*FlushResult, error) {
	timestamp := time.Now().UTC().Format("20060102-150405")
	backupDir := filepath.Join(o.cfg.BackupsDir(), timestamp)
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return nil, err
	}

	filesBacked := []string{}
	for _, src := range []string{o.cfg.SessionStatePath(), o.cfg.MemoryMDPath(), o.states.Path()} {
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dest := filepath.Join(backupDir, filepath.Base(src))
		if err := copyFile(src, dest); err != nil {
			o.logger.Warn("backup copy failed", "src", src, "error", err)
			continue
		}
		filesBacked = append(filesBacked, filepath.Base(src))
	}

	flushed := o.replayWAL(ctx)

	return &FlushResult{BackupDir: backupDir, FilesBacked: filesBacked, WALFlushed: flushed}, nil
}

// DrainQueue triggers a manual queue drain.
func (o *Orchestrator) DrainQueue(ctx context.Context) queue.DrainResult {
	drain := o.queue.Drain(ctx, o.emb, o.vec)
	if drain.Processed > 0 {
		metrics.QueueDrained.Add(int64(drain.Processed))
	}
	return drain
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
