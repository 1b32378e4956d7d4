package state

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eva-agent/eva-memory/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStore(filepath.Join(t.TempDir(), "state.json"), logger)
}

func TestSnapshotMissingFileReturnsDefaults(t *testing.T) {
	st := testStore(t).Snapshot()

	assert.Empty(t, st.WAL.Pending)
	assert.Empty(t, st.Session.ID)
	assert.Zero(t, st.Queue.ConsecutiveFailures)
	assert.Zero(t, st.Stats.TotalMemories)
}

func TestSnapshotCorruptFileReturnsDefaults(t *testing.T) {
	s := testStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o644))

	st := s.Snapshot()
	assert.Empty(t, st.WAL.Pending)
}

func TestMutatePersists(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.Mutate(func(st *State) {
		st.Stats.TotalMemories = 3
		st.Session.ID = "sess-1"
	}))

	st := s.Snapshot()
	assert.Equal(t, 3, st.Stats.TotalMemories)
	assert.Equal(t, "sess-1", st.Session.ID)
}

func TestWALAppendFlushClosure(t *testing.T) {
	s := testStore(t)
	now := time.Now().UTC()

	require.NoError(t, s.WALAppend(models.Memory{ID: "a", Content: "first", Created: now}))
	require.NoError(t, s.WALAppend(models.Memory{ID: "b", Content: "second", Created: now}))
	require.Len(t, s.WALPending(), 2)

	require.NoError(t, s.WALFlush("a"))

	pending := s.WALPending()
	require.Len(t, pending, 1)
	assert.Equal(t, "b", pending[0].ID)
	assert.NotEmpty(t, s.Snapshot().WAL.LastFlush)
}

func TestWALFlushUnknownIDIsNoop(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.WALAppend(models.Memory{ID: "a"}))

	require.NoError(t, s.WALFlush("does-not-exist"))
	assert.Len(t, s.WALPending(), 1)
}

func TestWALSurvivesReload(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.WALAppend(models.Memory{ID: "a", Content: "crash me"}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reloaded := NewStore(s.Path(), logger)

	pending := reloaded.WALPending()
	require.Len(t, pending, 1)
	assert.Equal(t, "crash me", pending[0].Content)
}
