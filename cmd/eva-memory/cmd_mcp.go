package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/eva-agent/eva-memory/internal/mcp"
)

func mcpCmd() *cobra.Command {
	var debugAddr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run as an MCP server over stdio",
		Long:  "Serves the memory tools (remember, search, auto_recall, forget) over the Model Context Protocol on stdio.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			orch, g := newOrchestrator(logger)
			defer func() { _ = g.Close(cmd.Context()) }()

			if debugAddr != "" {
				// expvar registers itself on the default mux.
				go func() {
					if err := http.ListenAndServe(debugAddr, nil); err != nil {
						logger.Warn("debug listener failed", "addr", debugAddr, "error", err)
					}
				}()
			}

			srv := mcp.NewServer(orch, logger)
			if err := mcpserver.ServeStdio(srv.MCPServer()); err != nil {
				return fmt.Errorf("mcp server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&debugAddr, "debug-addr", "", "address for the expvar debug endpoint (disabled when empty)")
	return cmd
}
