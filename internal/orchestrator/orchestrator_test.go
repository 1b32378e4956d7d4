package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eva-agent/eva-memory/internal/config"
	"github.com/eva-agent/eva-memory/internal/embedder"
	"github.com/eva-agent/eva-memory/internal/graph"
	"github.com/eva-agent/eva-memory/internal/markdown"
	"github.com/eva-agent/eva-memory/internal/models"
	"github.com/eva-agent/eva-memory/internal/queue"
	"github.com/eva-agent/eva-memory/internal/state"
	"github.com/eva-agent/eva-memory/internal/vector"
)

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float64{0.1, 0.2, 0.3}, nil
}

type fixture struct {
	orch   *Orchestrator
	graph  *graph.MockGraph
	vec    *vector.MockStore
	states *state.Store
	cfg    *config.Config
}

// newFixture wires the orchestrator against in-memory collaborators.
// vec and emb may be nil to simulate an unconfigured semantic layer.
func newFixture(t *testing.T, vec vector.Store, emb embedder.Embedder) *fixture {
	t.Helper()

	cfg := &config.Config{Store: config.StoreConfig{Path: t.TempDir()}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	g := graph.NewMockGraph()
	states := state.NewStore(cfg.StatePath(), logger)
	sink := markdown.NewSink(cfg.DailyDir(), cfg.ProjectsDir(), logger)
	q := queue.New(cfg.QueuePath(), states, logger)

	f := &fixture{
		orch:   New(cfg, g, vec, emb, sink, states, q, logger),
		graph:  g,
		states: states,
		cfg:    cfg,
	}
	if mock, ok := vec.(*vector.MockStore); ok {
		f.vec = mock
	}
	return f
}

func (f *fixture) dailyLog(t *testing.T) string {
	t.Helper()
	today := time.Now().UTC().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(f.cfg.DailyDir(), today+".md"))
	if err != nil {
		return ""
	}
	return string(data)
}

func TestRememberAllLayers(t *testing.T) {
	f := newFixture(t, vector.NewMockStore(), &stubEmbedder{})
	ctx := context.Background()

	result, err := f.orch.Remember(ctx, RememberInput{
		Content: "Decided to use Postgres over MySQL for ACID guarantees",
		Project: "billing",
	})
	require.NoError(t, err)

	assert.Equal(t, "decision", result.Type)
	assert.Equal(t, 5, result.Importance)
	assert.InDelta(t, 0.8, result.Confidence, 1e-9)
	assert.LessOrEqual(t, len(result.Entities), 5)
	assert.Contains(t, result.Entities, "postgres")

	require.NotNil(t, result.Layers)
	assert.True(t, result.Layers.Markdown)
	assert.True(t, result.Layers.Graph)
	assert.True(t, result.Layers.Vector)
	assert.False(t, result.Layers.Queued)

	// WAL closure: the id is gone once a durable layer holds the record.
	assert.Empty(t, f.states.WALPending())

	mem, ok := f.graph.Memory(result.ID)
	require.True(t, ok)
	assert.Equal(t, "billing", mem.Project)
	assert.True(t, f.vec.Has(result.ID))
	assert.Contains(t, f.dailyLog(t), result.ID)

	st := f.states.Snapshot()
	assert.Equal(t, 1, st.Stats.TotalMemories)
	assert.NotEmpty(t, st.Stats.LastMemoryAt)
}

func TestRememberContentRequired(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, err := f.orch.Remember(context.Background(), RememberInput{})
	require.Error(t, err)
	assert.True(t, IsInputError(err))
}

func TestRememberDedupSkipWritesNothing(t *testing.T) {
	vec := vector.NewMockStore()
	// Distance 0.05 maps to similarity ~0.95, above the skip threshold.
	vec.Hits = []vector.QueryResult{{ID: "existing-1", Distance: 0.05}}
	f := newFixture(t, vec, &stubEmbedder{})

	result, err := f.orch.Remember(context.Background(), RememberInput{Content: "the api key is in vault"})
	require.NoError(t, err)

	assert.True(t, result.Skipped)
	assert.Equal(t, "existing-1", result.ExistingID)
	assert.Greater(t, result.Similarity, VectorSkipThreshold)
	assert.Nil(t, result.Layers)

	assert.Zero(t, f.graph.Count())
	assert.Zero(t, vec.Len())
	assert.Empty(t, f.dailyLog(t))
	assert.Empty(t, f.states.WALPending())
}

func TestRememberDedupReplaceSupersedes(t *testing.T) {
	vec := vector.NewMockStore()
	// Distance 0.5 maps to similarity ~0.67: replace, not skip.
	vec.Hits = []vector.QueryResult{{ID: "old-1", Distance: 0.5}}
	f := newFixture(t, vec, &stubEmbedder{})

	require.NoError(t, f.graph.UpsertMemory(context.Background(), models.Memory{
		ID: "old-1", Content: "the api key is in vault", Type: "info",
	}))

	result, err := f.orch.Remember(context.Background(), RememberInput{Content: "the api key is in vault at secrets/api"})
	require.NoError(t, err)

	assert.False(t, result.Skipped)
	assert.Equal(t, "old-1", result.Supersedes)

	old, ok := f.graph.Memory("old-1")
	require.True(t, ok)
	assert.True(t, old.Forgotten)
	assert.Contains(t, old.DeleteReason, result.ID)
}

func TestRememberFulltextFallbackSkip(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.graph.TopHit = &models.SearchResult{ID: "existing-2", Score: 9.0}

	result, err := f.orch.Remember(context.Background(), RememberInput{Content: "nearly identical text"})
	require.NoError(t, err)

	assert.True(t, result.Skipped)
	assert.Equal(t, "existing-2", result.ExistingID)
	assert.InDelta(t, 0.9, result.Similarity, 1e-9)
}

func TestRememberFulltextFallbackReplace(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.graph.TopHit = &models.SearchResult{ID: "existing-3", Score: 5.0}

	result, err := f.orch.Remember(context.Background(), RememberInput{Content: "similar enough text"})
	require.NoError(t, err)

	assert.False(t, result.Skipped)
	assert.Equal(t, "existing-3", result.Supersedes)
}

func TestRememberVectorFailureQueues(t *testing.T) {
	vec := vector.NewMockStore()
	vec.Fail = true
	f := newFixture(t, vec, &stubEmbedder{})

	result, err := f.orch.Remember(context.Background(), RememberInput{Content: "x"})
	require.NoError(t, err)

	assert.True(t, result.Layers.Markdown)
	assert.True(t, result.Layers.Graph)
	assert.False(t, result.Layers.Vector)
	assert.True(t, result.Layers.Queued)

	data, err := os.ReadFile(f.cfg.QueuePath())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 1)
}

func TestRememberNoEmbedderQueuesDirectly(t *testing.T) {
	f := newFixture(t, vector.NewMockStore(), nil)

	result, err := f.orch.Remember(context.Background(), RememberInput{Content: "defer embedding"})
	require.NoError(t, err)

	assert.False(t, result.Layers.Vector)
	assert.True(t, result.Layers.Queued)
}

func TestRememberNoVectorNeverQueues(t *testing.T) {
	f := newFixture(t, nil, nil)

	result, err := f.orch.Remember(context.Background(), RememberInput{Content: "graph and markdown only"})
	require.NoError(t, err)

	assert.False(t, result.Layers.Vector)
	assert.False(t, result.Layers.Queued)
	assert.NoFileExists(t, f.cfg.QueuePath())
}

func TestRememberBothDurableLayersFailedKeepsWAL(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.graph.Unavailable = true
	// Make the daily dir path unwritable by occupying it with a file.
	require.NoError(t, os.MkdirAll(f.cfg.Store.Path, 0o755))
	require.NoError(t, os.WriteFile(f.cfg.DailyDir(), []byte("x"), 0o644))

	result, err := f.orch.Remember(context.Background(), RememberInput{Content: "crash candidate"})
	require.NoError(t, err)

	assert.False(t, result.Layers.Markdown)
	assert.False(t, result.Layers.Graph)

	pending := f.states.WALPending()
	require.Len(t, pending, 1)
	assert.Equal(t, result.ID, pending[0].ID)
}

func TestSearchQueryRequired(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, err := f.orch.Search(context.Background(), SearchInput{})
	require.Error(t, err)
	assert.True(t, IsInputError(err))
}

func TestSearchGraphOnly(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, f.graph.UpsertMemory(ctx, models.Memory{
		ID: "m1", Content: "database choice rationale", Summary: "db", Type: "decision",
		Created: time.Now().UTC(),
	}))

	result, err := f.orch.Search(ctx, SearchInput{Query: "database"})
	require.NoError(t, err)

	require.Equal(t, 1, result.Count)
	assert.Equal(t, "m1", result.Results[0].ID)
	assert.Equal(t, "graph-fulltext", result.Results[0].Source)
	assert.Equal(t, 1, result.Sources.Graph)
	assert.Zero(t, result.Sources.Vector)

	assert.Equal(t, 1, f.states.Snapshot().Stats.TotalSearches)
}

func TestSearchFiltersInactiveVectorHits(t *testing.T) {
	vec := vector.NewMockStore()
	vec.Hits = []vector.QueryResult{
		{ID: "active-1", Document: "still here", Distance: 0.2},
		{ID: "ghost-1", Document: "forgotten doc", Distance: 0.1},
	}
	f := newFixture(t, vec, &stubEmbedder{})
	ctx := context.Background()

	require.NoError(t, f.graph.UpsertMemory(ctx, models.Memory{ID: "active-1", Content: "unrelated", Created: time.Now().UTC()}))
	require.NoError(t, f.graph.UpsertMemory(ctx, models.Memory{ID: "ghost-1", Content: "unrelated", Created: time.Now().UTC()}))
	require.NoError(t, f.graph.Forget(ctx, "ghost-1", "test"))

	result, err := f.orch.Search(ctx, SearchInput{Query: "zzz-no-fulltext-match"})
	require.NoError(t, err)

	require.Equal(t, 1, result.Count)
	assert.Equal(t, "active-1", result.Results[0].ID)
	assert.Equal(t, "vector-semantic", result.Results[0].Source)
	assert.Equal(t, 1, result.Sources.Vector)
}

func TestSearchDropsLowSimilarityVectorHits(t *testing.T) {
	vec := vector.NewMockStore()
	// Distance 9 maps to similarity 0.1, below the floor.
	vec.Hits = []vector.QueryResult{{ID: "far-1", Distance: 9.0}}
	f := newFixture(t, vec, &stubEmbedder{})

	result, err := f.orch.Search(context.Background(), SearchInput{Query: "anything"})
	require.NoError(t, err)
	assert.Zero(t, result.Count)
}

func TestAutoRecallOrderingAndInstructions(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, f.graph.UpsertMemory(ctx, models.Memory{ID: "low", Content: "c", Type: "note", Importance: 4, Created: now.Add(-time.Hour)}))
	require.NoError(t, f.graph.UpsertMemory(ctx, models.Memory{ID: "high", Content: "c", Type: "note", Importance: 9, Created: now}))
	require.NoError(t, f.graph.UpsertMemory(ctx, models.Memory{ID: "rule", Content: "never force-push", Type: "instruction", Importance: 8, Created: now}))
	require.NoError(t, f.graph.UpsertMemory(ctx, models.Memory{ID: "faint", Content: "c", Type: "note", Importance: 1, Created: now}))

	result, err := f.orch.AutoRecall(ctx, AutoRecallInput{})
	require.NoError(t, err)

	require.Equal(t, 2, result.Count)
	assert.Equal(t, "high", result.Memories[0].ID)
	assert.Equal(t, "low", result.Memories[1].ID)

	require.Len(t, result.Instructions, 1)
	assert.Equal(t, "rule", result.Instructions[0].ID)

	assert.Equal(t, 1, f.states.Snapshot().Stats.TotalRecalls)
}

func TestSyncStartReplaysWAL(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, f.states.WALAppend(models.Memory{
		ID: "wal-1", Content: "survived a crash", Summary: "survived", Type: "note",
		Importance: 5, Created: time.Now().UTC(),
	}))

	result, err := f.orch.SyncStart(ctx, SyncStartInput{Project: "billing"})
	require.NoError(t, err)

	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, 1, result.WALRecovered)
	assert.Empty(t, f.states.WALPending())

	_, ok := f.graph.Memory("wal-1")
	assert.True(t, ok)
	assert.Contains(t, f.dailyLog(t), "wal-1")

	require.NotNil(t, result.Overview)
	assert.Equal(t, "empty", result.QueueDrain.Status)

	st := f.states.Snapshot()
	assert.Equal(t, result.SessionID, st.Session.ID)
	assert.Equal(t, "billing", st.Session.Project)
}

func TestSyncStartAdoptsGivenSessionID(t *testing.T) {
	f := newFixture(t, nil, nil)

	result, err := f.orch.SyncStart(context.Background(), SyncStartInput{SessionID: "sess-42"})
	require.NoError(t, err)
	assert.Equal(t, "sess-42", result.SessionID)
}

func TestSyncEndClearsSessionAndResetsTemplate(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	_, err := f.orch.SyncStart(ctx, SyncStartInput{SessionID: "sess-1"})
	require.NoError(t, err)

	result, err := f.orch.SyncEnd(ctx, "did things")
	require.NoError(t, err)

	assert.Equal(t, "sess-1", result.SessionID)
	assert.True(t, result.Closed)
	assert.Empty(t, f.states.Snapshot().Session.ID)

	data, err := os.ReadFile(f.cfg.SessionStatePath())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Session State (Hot RAM)"))
	assert.Contains(t, string(data), "## Working Notes")
}

func TestPreCompactionFlush(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, f.states.WALAppend(models.Memory{
		ID: "wal-2", Content: "flush me", Summary: "flush", Type: "note", Created: time.Now().UTC(),
	}))

	result, err := f.orch.PreCompactionFlush(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, result.WALFlushed)
	assert.Contains(t, result.FilesBacked, filepath.Base(f.states.Path()))
	assert.DirExists(t, result.BackupDir)

	backedState := filepath.Join(result.BackupDir, filepath.Base(f.states.Path()))
	assert.FileExists(t, backedState)
}

func TestRecallByID(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, f.graph.UpsertMemory(ctx, models.Memory{ID: "m1", Content: "hello", Created: time.Now().UTC()}))

	result, err := f.orch.Recall(ctx, RecallInput{ID: "m1"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Count)
	assert.Equal(t, "m1", result.Results[0]["id"])
}

func TestRecallForgottenReturnsEmpty(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, f.graph.UpsertMemory(ctx, models.Memory{ID: "m1", Content: "hello", Created: time.Now().UTC()}))
	require.NoError(t, f.graph.Forget(ctx, "m1", ""))

	result, err := f.orch.Recall(ctx, RecallInput{ID: "m1"})
	require.NoError(t, err)
	assert.Zero(t, result.Count)
	assert.NotNil(t, result.Results)
}

func TestForgetByQuery(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, f.graph.UpsertMemory(ctx, models.Memory{
		ID: "tmp-1", Content: "temporary note about onboarding", Type: "note", Created: time.Now().UTC(),
	}))

	result, err := f.orch.Forget(ctx, ForgetInput{Query: "onboarding", Reason: "obsolete"})
	require.NoError(t, err)

	assert.Equal(t, "tmp-1", result.ID)
	assert.True(t, result.Forgotten)

	mem, ok := f.graph.Memory("tmp-1")
	require.True(t, ok)
	assert.True(t, mem.Forgotten)
	assert.Empty(t, mem.Content)
}

func TestForgetRequiresIDOrQuery(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, err := f.orch.Forget(context.Background(), ForgetInput{})
	require.Error(t, err)
	assert.True(t, IsInputError(err))
}

func TestForgetNoMatch(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, err := f.orch.Forget(context.Background(), ForgetInput{Query: "nothing matches this"})
	require.Error(t, err)
	assert.True(t, IsInputError(err))
}

func TestUpdateWritesAuditEntry(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, f.graph.UpsertMemory(ctx, models.Memory{ID: "m1", Content: "old text", Type: "note", Created: time.Now().UTC()}))

	content := "new Postgres settings"
	result, err := f.orch.Update(ctx, UpdateInput{ID: "m1", Content: &content})
	require.NoError(t, err)

	assert.True(t, result.Updated)
	assert.Equal(t, []string{"content"}, result.Fields)

	mem, ok := f.graph.Memory("m1")
	require.True(t, ok)
	assert.Equal(t, "new Postgres settings", mem.Content)

	log := f.dailyLog(t)
	assert.Contains(t, log, "[UPDATED] new Postgres settings")
	assert.Contains(t, log, "#updated")
}

func TestUpdateRequiresFields(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, err := f.orch.Update(context.Background(), UpdateInput{ID: "m1"})
	require.Error(t, err)
	assert.True(t, IsInputError(err))

	_, err = f.orch.Update(context.Background(), UpdateInput{})
	require.Error(t, err)
	assert.True(t, IsInputError(err))
}

func TestSummarizeGroupsByType(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, f.graph.UpsertMemory(ctx, models.Memory{ID: "d1", Content: "a", Type: "decision", Importance: 8, Created: now}))
	require.NoError(t, f.graph.UpsertMemory(ctx, models.Memory{ID: "d2", Content: "b", Type: "decision", Importance: 6, Created: now}))
	require.NoError(t, f.graph.UpsertMemory(ctx, models.Memory{ID: "n1", Content: "c", Type: "note", Importance: 5, Created: now}))

	result, err := f.orch.Summarize(ctx, SummarizeInput{})
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalCount)
	assert.Len(t, result.Groups["decision"], 2)
	assert.Len(t, result.Groups["note"], 1)
}

func TestListDefaults(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, f.graph.UpsertMemory(ctx, models.Memory{ID: id, Content: id, Type: "note", Created: time.Now().UTC()}))
	}

	result, err := f.orch.List(ctx, ListInput{})
	require.NoError(t, err)

	assert.Equal(t, int64(3), result.Total)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 20, result.PageSize)
	assert.Equal(t, int64(1), result.TotalPages)
	assert.Len(t, result.Results, 3)
}

func TestFirstNBacksOffToRuneBoundary(t *testing.T) {
	s := "a" + strings.Repeat("é", 120)

	got := firstN(s, 200)
	assert.True(t, utf8.ValidString(got))
	assert.Len(t, got, 199)
	assert.True(t, strings.HasPrefix(s, got))

	assert.Equal(t, "short", firstN("short", 200))
}

func TestListUnknownSortFallsBackToCreatedDesc(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, f.graph.UpsertMemory(ctx, models.Memory{ID: "oldest", Content: "x", Type: "note", Importance: 9, Created: now.Add(-2 * time.Hour)}))
	require.NoError(t, f.graph.UpsertMemory(ctx, models.Memory{ID: "newest", Content: "x", Type: "note", Importance: 1, Created: now}))

	result, err := f.orch.List(ctx, ListInput{
		SortBy:    "created; MATCH (n) DETACH DELETE n",
		SortOrder: "sideways",
	})
	require.NoError(t, err)

	require.Len(t, result.Results, 2)
	assert.Equal(t, "newest", result.Results[0].ID)
	assert.Equal(t, "oldest", result.Results[1].ID)
}

func TestListSortByImportanceAscending(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, f.graph.UpsertMemory(ctx, models.Memory{ID: "high", Content: "x", Type: "note", Importance: 9, Created: now}))
	require.NoError(t, f.graph.UpsertMemory(ctx, models.Memory{ID: "low", Content: "x", Type: "note", Importance: 2, Created: now.Add(-time.Hour)}))

	result, err := f.orch.List(ctx, ListInput{SortBy: "importance", SortOrder: "asc"})
	require.NoError(t, err)

	require.Len(t, result.Results, 2)
	assert.Equal(t, "low", result.Results[0].ID)
	assert.Equal(t, "high", result.Results[1].ID)
}

func TestMaintainPrunesOldLowImportance(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, f.graph.UpsertMemory(ctx, models.Memory{
		ID: "old-low", Content: "x", Type: "note", Importance: 1,
		Created: time.Now().UTC().AddDate(0, 0, -120),
	}))
	require.NoError(t, f.graph.UpsertMemory(ctx, models.Memory{
		ID: "old-high", Content: "x", Type: "note", Importance: 8,
		Created: time.Now().UTC().AddDate(0, 0, -120),
	}))
	require.NoError(t, f.graph.UpsertMemory(ctx, models.Memory{
		ID: "new-low", Content: "x", Type: "note", Importance: 1,
		Created: time.Now().UTC(),
	}))

	result, err := f.orch.Maintain(ctx, MaintainInput{})
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.Pruned)
	assert.Zero(t, result.Compacted)

	pruned, _ := f.graph.Memory("old-low")
	assert.True(t, pruned.Forgotten)
	assert.Equal(t, "maintenance-pruned", pruned.DeleteReason)
}

func TestGraphUnavailableDegrades(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.graph.Unavailable = true

	// Writes report the failed layer instead of erroring out.
	result, err := f.orch.Remember(context.Background(), RememberInput{Content: "degrade gracefully"})
	require.NoError(t, err)
	assert.False(t, result.Layers.Graph)
	assert.True(t, result.Layers.Markdown)

	// Reads come back empty.
	search, err := f.orch.Search(context.Background(), SearchInput{Query: "anything"})
	require.NoError(t, err)
	assert.Zero(t, search.Count)

	_, err = f.orch.Recall(context.Background(), RecallInput{ID: "m1"})
	assert.ErrorIs(t, err, graph.ErrUnavailable)
}

func TestDecayedMemoryExcludedEverywhere(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	decay := 1
	require.NoError(t, f.graph.UpsertMemory(ctx, models.Memory{
		ID: "expired", Content: "short-lived fact", Type: "note", Importance: 9,
		DecayDays: &decay, Created: time.Now().UTC().AddDate(0, 0, -2),
	}))

	search, err := f.orch.Search(ctx, SearchInput{Query: "short-lived"})
	require.NoError(t, err)
	assert.Zero(t, search.Count)

	recall, err := f.orch.AutoRecall(ctx, AutoRecallInput{})
	require.NoError(t, err)
	assert.Zero(t, recall.Count)

	list, err := f.orch.List(ctx, ListInput{})
	require.NoError(t, err)
	assert.Zero(t, list.Total)
}

func TestDrainQueueManualTrigger(t *testing.T) {
	vec := vector.NewMockStore()
	vec.Fail = true
	f := newFixture(t, vec, &stubEmbedder{})
	ctx := context.Background()

	_, err := f.orch.Remember(ctx, RememberInput{Content: "queue me"})
	require.NoError(t, err)

	// Vector recovers; the queued record drains.
	vec.Fail = false
	result := f.orch.DrainQueue(ctx)
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, 1, result.Processed)
	assert.Zero(t, result.Remaining)
}
