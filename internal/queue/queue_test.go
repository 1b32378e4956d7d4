package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eva-agent/eva-memory/internal/models"
	"github.com/eva-agent/eva-memory/internal/state"
	"github.com/eva-agent/eva-memory/internal/vector"
)

// stubEmbedder returns a fixed vector, or an error per content string.
type stubEmbedder struct {
	failFor map[string]bool
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if s.failFor[text] {
		return nil, errors.New("embedder down")
	}
	return []float64{0.1, 0.2}, nil
}

func testQueue(t *testing.T) (*Queue, *state.Store) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	states := state.NewStore(filepath.Join(dir, "state.json"), logger)
	return New(filepath.Join(dir, "queue", "pending.jsonl"), states, logger), states
}

func TestEntryForStringifiesImportance(t *testing.T) {
	e := EntryFor(models.Memory{
		ID:         "m1",
		Content:    "text",
		Type:       "note",
		Importance: 7,
		Project:    "billing",
		Summary:    "text",
		Created:    time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
	})

	assert.Equal(t, "m1", e.ID)
	assert.Equal(t, "7", e.Metadata["importance"])
	assert.Equal(t, "note", e.Metadata["type"])
	assert.Equal(t, "2026-08-24T10:00:00Z", e.Metadata["created"])
	assert.NotEmpty(t, e.QueuedAt)
}

func TestEnqueueAppends(t *testing.T) {
	q, _ := testQueue(t)

	require.NoError(t, q.Enqueue(EntryFor(models.Memory{ID: "a", Content: "one"})))
	require.NoError(t, q.Enqueue(EntryFor(models.Memory{ID: "b", Content: "two"})))

	assert.Equal(t, 2, q.PendingCount())
}

func TestDrainEmpty(t *testing.T) {
	q, _ := testQueue(t)

	result := q.Drain(context.Background(), &stubEmbedder{}, vector.NewMockStore())
	assert.Equal(t, DrainResult{Status: "empty"}, result)
}

func TestDrainVectorOfflineIncrementsFailures(t *testing.T) {
	q, states := testQueue(t)
	require.NoError(t, q.Enqueue(EntryFor(models.Memory{ID: "a", Content: "one"})))

	vec := vector.NewMockStore()
	vec.Healthy = false

	result := q.Drain(context.Background(), &stubEmbedder{}, vec)
	assert.Equal(t, "vector-offline", result.Status)
	assert.Equal(t, 1, result.Remaining)
	assert.Zero(t, result.Processed)

	st := states.Snapshot()
	assert.Equal(t, 1, st.Queue.ConsecutiveFailures)
	assert.NotEmpty(t, st.Queue.LastDrainAttempt)
	assert.Equal(t, 1, q.PendingCount(), "offline drain must not touch the log")
}

func TestDrainBackoffGate(t *testing.T) {
	q, states := testQueue(t)
	require.NoError(t, q.Enqueue(EntryFor(models.Memory{ID: "a", Content: "one"})))
	require.NoError(t, states.Mutate(func(s *state.State) {
		s.Queue.ConsecutiveFailures = MaxFailures
	}))

	// A healthy store must not even be probed once the gate is closed.
	vec := vector.NewMockStore()
	result := q.Drain(context.Background(), &stubEmbedder{}, vec)

	assert.Equal(t, "skipped-max-failures", result.Status)
	assert.Equal(t, 1, result.Remaining)
	assert.Zero(t, vec.Len())
}

func TestDrainProcessesAndResets(t *testing.T) {
	q, states := testQueue(t)
	require.NoError(t, q.Enqueue(EntryFor(models.Memory{ID: "a", Content: "one"})))
	require.NoError(t, q.Enqueue(EntryFor(models.Memory{ID: "b", Content: "two"})))
	require.NoError(t, states.Mutate(func(s *state.State) {
		s.Queue.ConsecutiveFailures = 3
	}))

	vec := vector.NewMockStore()
	result := q.Drain(context.Background(), &stubEmbedder{}, vec)

	assert.Equal(t, DrainResult{Processed: 2, Remaining: 0, Status: "ok"}, result)
	assert.True(t, vec.Has("a"))
	assert.True(t, vec.Has("b"))
	assert.Zero(t, q.PendingCount())

	st := states.Snapshot()
	assert.Zero(t, st.Queue.ConsecutiveFailures)
	assert.NotEmpty(t, st.Queue.LastSuccess)
	assert.Zero(t, st.Queue.PendingCount)
}

func TestDrainRetainsFailedEmbeddingsInOrder(t *testing.T) {
	q, _ := testQueue(t)
	require.NoError(t, q.Enqueue(EntryFor(models.Memory{ID: "a", Content: "keep-first"})))
	require.NoError(t, q.Enqueue(EntryFor(models.Memory{ID: "b", Content: "ok"})))
	require.NoError(t, q.Enqueue(EntryFor(models.Memory{ID: "c", Content: "keep-second"})))

	emb := &stubEmbedder{failFor: map[string]bool{"keep-first": true, "keep-second": true}}
	vec := vector.NewMockStore()

	result := q.Drain(context.Background(), emb, vec)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 2, result.Remaining)
	assert.Equal(t, "ok", result.Status)

	data, err := os.ReadFile(filepath.Join(filepath.Dir(q.path), "pending.jsonl"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"id":"a"`)
	assert.Contains(t, lines[1], `"id":"c"`)
}

func TestDrainDropsMalformedRecords(t *testing.T) {
	q, _ := testQueue(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(q.path), 0o755))
	require.NoError(t, os.WriteFile(q.path, []byte("not json at all\n"), 0o644))
	require.NoError(t, q.Enqueue(EntryFor(models.Memory{ID: "a", Content: "ok"})))

	vec := vector.NewMockStore()
	result := q.Drain(context.Background(), &stubEmbedder{}, vec)

	assert.Equal(t, 1, result.Processed)
	assert.Zero(t, result.Remaining)
	assert.Zero(t, q.PendingCount())
}
