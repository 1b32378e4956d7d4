// Package orchestrator coordinates the three storage layers. Writes fan
// out to markdown, graph, and vector under WAL protection; reads merge
// graph and vector hits with the graph as the authority on activeness.
package orchestrator

import (
	"log/slog"
	"unicode/utf8"

	"github.com/eva-agent/eva-memory/internal/config"
	"github.com/eva-agent/eva-memory/internal/embedder"
	"github.com/eva-agent/eva-memory/internal/graph"
	"github.com/eva-agent/eva-memory/internal/markdown"
	"github.com/eva-agent/eva-memory/internal/queue"
	"github.com/eva-agent/eva-memory/internal/state"
	"github.com/eva-agent/eva-memory/internal/vector"
)

// Dedup thresholds. The vector pair operates on 1/(1+L2) similarity;
// the fulltext pair operates on raw BM25-style scores and is engine
// specific, so both are tunable rather than hard-wired.
const (
	VectorSkipThreshold    = 0.92
	VectorReplaceThreshold = 0.5

	FulltextSkipScore    = 8.0
	FulltextReplaceScore = 4.0

	// MinVectorScore drops far-away neighbours from search results.
	MinVectorScore = 0.15
)

// Orchestrator wires the layers together. Vector and Embedder may be
// nil when the deployment has no semantic index.
type Orchestrator struct {
	cfg    *config.Config
	graph  graph.Store
	vec    vector.Store
	emb    embedder.Embedder
	md     *markdown.Sink
	states *state.Store
	queue  *queue.Queue
	logger *slog.Logger
}

func New(cfg *config.Config, g graph.Store, vec vector.Store, emb embedder.Embedder,
	md *markdown.Sink, states *state.Store, q *queue.Queue, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		graph:  g,
		vec:    vec,
		emb:    emb,
		md:     md,
		states: states,
		queue:  q,
		logger: logger,
	}
}

// vectorConfigured reports whether a vector store is wired in at all.
func (o *Orchestrator) vectorConfigured() bool {
	return o.vec != nil
}

// embedderConfigured reports whether an embedding endpoint is wired in.
func (o *Orchestrator) embedderConfigured() bool {
	return o.emb != nil
}

// firstN returns the byte prefix of s capped at n, backed off to a rune
// boundary so a multi-byte rune is never split.
func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
