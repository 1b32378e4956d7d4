package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eva-agent/eva-memory/internal/config"
	"github.com/eva-agent/eva-memory/internal/embedder"
	"github.com/eva-agent/eva-memory/internal/graph"
	"github.com/eva-agent/eva-memory/internal/markdown"
	"github.com/eva-agent/eva-memory/internal/orchestrator"
	"github.com/eva-agent/eva-memory/internal/queue"
	"github.com/eva-agent/eva-memory/internal/state"
	"github.com/eva-agent/eva-memory/internal/vector"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "eva-memory",
		Short: "Layered persistent memory for AI agents",
		Long: "eva-memory keeps agent knowledge in three layers: an append-only markdown log,\n" +
			"a Neo4j knowledge graph, and an optional Chroma semantic index, with WAL crash\n" +
			"safety and an offline embedding queue.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		rememberCmd(),
		searchCmd(),
		autoRecallCmd(),
		syncStartCmd(),
		syncEndCmd(),
		preCompactionFlushCmd(),
		drainQueueCmd(),
		recallCmd(),
		forgetCmd(),
		updateCmd("update"),
		updateCmd("evolve"),
		summarizeCmd(),
		listCmd(),
		instructionsCmd(),
		entitiesCmd(),
		maintainCmd(),
		initSchemaCmd(),
		mcpCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// warnWriter prefixes every log line so warnings are greppable in the
// stderr stream without touching the JSON contract on stdout.
type warnWriter struct {
	out io.Writer
}

func (w warnWriter) Write(p []byte) (int, error) {
	for _, line := range bytes.SplitAfter(p, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if _, err := w.out.Write(append([]byte("[eva-memory WARN] "), line...)); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if cfg != nil && cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	// Both formats go through warnWriter: the stderr prefix is part of
	// the CLI contract regardless of log encoding.
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(warnWriter{out: os.Stderr}, opts))
	}
	return slog.New(slog.NewTextHandler(warnWriter{out: os.Stderr}, opts))
}

func newGraphStore(logger *slog.Logger) *graph.Neo4jStore {
	return graph.NewNeo4jStore(
		cfg.Neo4j.URI,
		cfg.Neo4j.User,
		cfg.Neo4j.Password,
		cfg.Neo4j.Database,
		logger,
	)
}

// newOrchestrator wires the full stack. Vector and embedder stay nil
// when their endpoints are not configured; every layer degrades.
func newOrchestrator(logger *slog.Logger) (*orchestrator.Orchestrator, *graph.Neo4jStore) {
	g := newGraphStore(logger)

	var vec vector.Store
	if cfg.Chroma.BaseURL != "" && cfg.Chroma.Collection != "" {
		vec = vector.NewChromaStore(cfg.Chroma.BaseURL, cfg.Chroma.Collection, logger)
	}

	var emb embedder.Embedder
	if cfg.Ollama.BaseURL != "" {
		emb = embedder.NewOllamaEmbedder(cfg.Ollama.BaseURL, cfg.Ollama.Model, logger)
	}

	states := state.NewStore(cfg.StatePath(), logger)
	sink := markdown.NewSink(cfg.DailyDir(), cfg.ProjectsDir(), logger)
	q := queue.New(cfg.QueuePath(), states, logger)

	return orchestrator.New(cfg, g, vec, emb, sink, states, q, logger), g
}

// parseJSONArg decodes the optional single JSON argument into v.
// A decode failure is a usage error and exits non-zero.
func parseJSONArg(args []string, v any) error {
	if len(args) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(args[0])))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("parsing JSON argument: %w", err)
	}
	return nil
}

// emit writes one JSON object to stdout.
func emit(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[eva-memory WARN] marshalling output: %v\n", err)
		return
	}
	fmt.Println(string(b))
}

// emitError reports a handler failure in the payload, keeping exit 0.
func emitError(err error, extra map[string]any) {
	payload := map[string]any{"error": err.Error()}
	for k, v := range extra {
		payload[k] = v
	}
	emit(payload)
}
