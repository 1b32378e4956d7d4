// Package mcp exposes the memory system over the Model Context Protocol
// so agents can call it as tools instead of shelling out to the CLI.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/eva-agent/eva-memory/internal/orchestrator"
)

// Server wraps an MCPServer around the orchestrator.
type Server struct {
	mcp    *mcpserver.MCPServer
	orch   *orchestrator.Orchestrator
	logger *slog.Logger
}

// NewServer creates the MCP server and registers the memory tools.
func NewServer(orch *orchestrator.Orchestrator, logger *slog.Logger) *Server {
	s := &Server{orch: orch, logger: logger}

	mcpSrv := mcpserver.NewMCPServer(
		"eva-memory",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildRememberTool(), s.handleRemember)
	mcpSrv.AddTool(buildSearchTool(), s.handleSearch)
	mcpSrv.AddTool(buildAutoRecallTool(), s.handleAutoRecall)
	mcpSrv.AddTool(buildForgetTool(), s.handleForget)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go server for ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// HandleRemember is exposed for direct testing without the transport.
func (s *Server) HandleRemember(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleRemember(ctx, req)
}

// HandleSearch is exposed for direct testing without the transport.
func (s *Server) HandleSearch(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleSearch(ctx, req)
}

// HandleAutoRecall is exposed for direct testing without the transport.
func (s *Server) HandleAutoRecall(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleAutoRecall(ctx, req)
}

// HandleForget is exposed for direct testing without the transport.
func (s *Server) HandleForget(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleForget(ctx, req)
}

func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// --- tool definitions ---

func buildRememberTool() mcpgo.Tool {
	return mcpgo.NewTool("remember",
		mcpgo.WithDescription("Store a memory across the markdown, graph, and vector layers with dedup and crash safety."),
		mcpgo.WithString("content",
			mcpgo.Required(),
			mcpgo.Description("The text content to remember"),
		),
		mcpgo.WithString("type",
			mcpgo.Description("Memory type (instruction, decision, preference, learning, task, question, note, progress, info); classified from content when omitted"),
		),
		mcpgo.WithNumber("importance",
			mcpgo.Description("Importance 1-10 (default: 5)"),
		),
		mcpgo.WithString("project",
			mcpgo.Description("Project this memory belongs to"),
		),
	)
}

func buildSearchTool() mcpgo.Tool {
	return mcpgo.NewTool("search",
		mcpgo.WithDescription("Search memories across graph fulltext and semantic similarity, merged by score."),
		mcpgo.WithString("query",
			mcpgo.Required(),
			mcpgo.Description("The query to search for"),
		),
		mcpgo.WithNumber("limit",
			mcpgo.Description("Maximum number of results (default: 10)"),
		),
		mcpgo.WithString("project",
			mcpgo.Description("Filter results by project"),
		),
		mcpgo.WithString("type",
			mcpgo.Description("Filter results by memory type"),
		),
	)
}

func buildAutoRecallTool() mcpgo.Tool {
	return mcpgo.NewTool("auto_recall",
		mcpgo.WithDescription("Fast per-turn context injection: important memories plus standing instructions. Graph-only."),
		mcpgo.WithString("project",
			mcpgo.Description("Project context"),
		),
		mcpgo.WithNumber("minImportance",
			mcpgo.Description("Minimum importance to include (default: 3)"),
		),
		mcpgo.WithNumber("limit",
			mcpgo.Description("Maximum number of memories (default: 5)"),
		),
	)
}

func buildForgetTool() mcpgo.Tool {
	return mcpgo.NewTool("forget",
		mcpgo.WithDescription("Soft-delete a memory by id or by query (top fulltext match)."),
		mcpgo.WithString("id",
			mcpgo.Description("The id of the memory to forget"),
		),
		mcpgo.WithString("query",
			mcpgo.Description("Query whose top match is forgotten when no id is given"),
		),
		mcpgo.WithString("reason",
			mcpgo.Description("Reason recorded on the tombstone"),
		),
	)
}

// --- tool handlers ---

func (s *Server) handleRemember(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	content := req.GetString("content", "")
	if strings.TrimSpace(content) == "" {
		return mcpgo.NewToolResultError("content is required and must not be empty"), nil
	}

	in := orchestrator.RememberInput{
		Content: content,
		Type:    req.GetString("type", ""),
		Project: req.GetString("project", ""),
		Source:  "mcp",
	}
	if imp := req.GetInt("importance", 0); imp > 0 {
		in.Importance = &imp
	}

	result, err := s.orch.Remember(ctx, in)
	if err != nil {
		return mcpgo.NewToolResultErrorf("remember failed: %s", err.Error()), nil
	}
	return toolResultJSON(result)
}

func (s *Server) handleSearch(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	query := req.GetString("query", "")
	if strings.TrimSpace(query) == "" {
		return mcpgo.NewToolResultError("query is required and must not be empty"), nil
	}

	result, err := s.orch.Search(ctx, orchestrator.SearchInput{
		Query:   query,
		Limit:   req.GetInt("limit", 10),
		Project: req.GetString("project", ""),
		Type:    req.GetString("type", ""),
	})
	if err != nil {
		return mcpgo.NewToolResultErrorf("search failed: %s", err.Error()), nil
	}
	return toolResultJSON(result)
}

func (s *Server) handleAutoRecall(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	result, err := s.orch.AutoRecall(ctx, orchestrator.AutoRecallInput{
		Project:       req.GetString("project", ""),
		MinImportance: req.GetInt("minImportance", 3),
		Limit:         req.GetInt("limit", 5),
	})
	if err != nil {
		return mcpgo.NewToolResultErrorf("auto-recall failed: %s", err.Error()), nil
	}
	return toolResultJSON(result)
}

func (s *Server) handleForget(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	in := orchestrator.ForgetInput{
		ID:     req.GetString("id", ""),
		Query:  req.GetString("query", ""),
		Reason: req.GetString("reason", ""),
	}
	if in.ID == "" && in.Query == "" {
		return mcpgo.NewToolResultError("id or query is required"), nil
	}

	result, err := s.orch.Forget(ctx, in)
	if err != nil {
		return mcpgo.NewToolResultErrorf("forget failed: %s", err.Error()), nil
	}
	return toolResultJSON(result)
}
