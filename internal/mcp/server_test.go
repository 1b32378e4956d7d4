package mcp_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eva-agent/eva-memory/internal/config"
	"github.com/eva-agent/eva-memory/internal/graph"
	"github.com/eva-agent/eva-memory/internal/markdown"
	evamcp "github.com/eva-agent/eva-memory/internal/mcp"
	"github.com/eva-agent/eva-memory/internal/models"
	"github.com/eva-agent/eva-memory/internal/orchestrator"
	"github.com/eva-agent/eva-memory/internal/queue"
	"github.com/eva-agent/eva-memory/internal/state"
)

// newTestServer wires a Server over mock collaborators; no vector layer.
func newTestServer(t *testing.T) (*evamcp.Server, *graph.MockGraph) {
	t.Helper()

	cfg := &config.Config{Store: config.StoreConfig{Path: t.TempDir()}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	g := graph.NewMockGraph()
	states := state.NewStore(cfg.StatePath(), logger)
	sink := markdown.NewSink(cfg.DailyDir(), cfg.ProjectsDir(), logger)
	q := queue.New(cfg.QueuePath(), states, logger)

	orch := orchestrator.New(cfg, g, nil, nil, sink, states, q, logger)
	return evamcp.NewServer(orch, logger), g
}

// makeReq builds a CallToolRequest with the given arguments.
func makeReq(toolName string, args map[string]any) mcpgo.CallToolRequest {
	req := mcpgo.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args
	return req
}

// textContent extracts the first TextContent string from a result.
func textContent(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcpgo.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

func TestMCPRememberStoresMemory(t *testing.T) {
	srv, g := newTestServer(t)

	result, err := srv.HandleRemember(context.Background(), makeReq("remember", map[string]any{
		"content":    "Decided to use Postgres over MySQL",
		"importance": 7,
		"project":    "billing",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "remember returned error: %s", textContent(t, result))

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	id, ok := out["id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	mem, ok := g.Memory(id)
	require.True(t, ok)
	assert.Equal(t, "Decided to use Postgres over MySQL", mem.Content)
	assert.Equal(t, 7, mem.Importance)
	assert.Equal(t, "billing", mem.Project)
	assert.Equal(t, "mcp", mem.Source)
}

func TestMCPRememberRequiresContent(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.HandleRemember(context.Background(), makeReq("remember", map[string]any{
		"content": "   ",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMCPSearchFindsStoredMemory(t *testing.T) {
	srv, g := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, g.UpsertMemory(ctx, models.Memory{
		ID: "m1", Content: "database migration checklist", Type: "note",
		Created: time.Now().UTC(),
	}))

	result, err := srv.HandleSearch(ctx, makeReq("search", map[string]any{
		"query": "migration",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out orchestrator.SearchResult
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "m1", out.Results[0].ID)
}

func TestMCPSearchRequiresQuery(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.HandleSearch(context.Background(), makeReq("search", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMCPAutoRecallSeparatesInstructions(t *testing.T) {
	srv, g := newTestServer(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, g.UpsertMemory(ctx, models.Memory{ID: "imp", Content: "x", Type: "note", Importance: 8, Created: now}))
	require.NoError(t, g.UpsertMemory(ctx, models.Memory{ID: "rule", Content: "never force-push", Type: "instruction", Importance: 8, Created: now}))

	result, err := srv.HandleAutoRecall(ctx, makeReq("auto_recall", map[string]any{}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out orchestrator.AutoRecallResult
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "imp", out.Memories[0].ID)
	require.Len(t, out.Instructions, 1)
	assert.Equal(t, "rule", out.Instructions[0].ID)
}

func TestMCPForgetByID(t *testing.T) {
	srv, g := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, g.UpsertMemory(ctx, models.Memory{
		ID: "m1", Content: "obsolete note", Type: "note", Created: time.Now().UTC(),
	}))

	result, err := srv.HandleForget(ctx, makeReq("forget", map[string]any{
		"id":     "m1",
		"reason": "stale",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	mem, ok := g.Memory("m1")
	require.True(t, ok)
	assert.True(t, mem.Forgotten)
	assert.Equal(t, "stale", mem.DeleteReason)
}

func TestMCPForgetRequiresIDOrQuery(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.HandleForget(context.Background(), makeReq("forget", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
