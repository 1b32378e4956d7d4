package orchestrator

import (
	"context"
	"sort"

	"github.com/eva-agent/eva-memory/internal/graph"
	"github.com/eva-agent/eva-memory/internal/metrics"
	"github.com/eva-agent/eva-memory/internal/models"
	"github.com/eva-agent/eva-memory/internal/state"
)

// SearchInput are the arguments of a merged search.
type SearchInput struct {
	Query   string `json:"query"`
	Limit   int    `json:"limit,omitempty"`
	Project string `json:"project,omitempty"`
	Type    string `json:"type,omitempty"`
}

// SearchResult is the merged, scored result set.
type SearchResult struct {
	Results []models.SearchResult `json:"results"`
	Count   int                   `json:"count"`
	Sources SourceCounts          `json:"sources"`
}

// SourceCounts reports how many hits each backend contributed before
// the merge.
type SourceCounts struct {
	Graph  int `json:"graph"`
	Vector int `json:"vector"`
}

// graphSearch merges the two graph fulltext surfaces, deduplicating by
// id with the content index taking precedence over the entity index.
func (o *Orchestrator) graphSearch(ctx context.Context, query string, f graph.Filters, limit int) []models.SearchResult {
	var merged []models.SearchResult
	seen := map[string]bool{}

	fulltext, err := o.graph.FulltextMemory(ctx, query, f, limit)
	if err != nil {
		o.logger.Warn("fulltext search failed", "error", err)
		metrics.GraphErrors.Add(1)
	}
	for _, r := range fulltext {
		if !seen[r.ID] {
			seen[r.ID] = true
			merged = append(merged, r)
		}
	}

	entity, err := o.graph.FulltextEntity(ctx, query, f, limit)
	if err != nil {
		o.logger.Warn("entity search failed", "error", err)
		metrics.GraphErrors.Add(1)
	}
	for _, r := range entity {
		if !seen[r.ID] {
			seen[r.ID] = true
			merged = append(merged, r)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// vectorSearch embeds the query and maps nearest neighbours to scored
// results. Returns nil when the semantic layer is not configured or the
// call fails; search degrades to graph-only.
func (o *Orchestrator) vectorSearch(ctx context.Context, query string, limit int) []models.SearchResult {
	if !o.vectorConfigured() || !o.embedderConfigured() {
		return nil
	}
	embedding, err := o.emb.Embed(ctx, query)
	if err != nil || len(embedding) == 0 {
		return nil
	}
	hits, err := o.vec.Query(ctx, embedding, limit, nil)
	if err != nil {
		o.logger.Warn("vector search failed", "error", err)
		metrics.VectorErrors.Add(1)
		return nil
	}

	var results []models.SearchResult
	for _, hit := range hits {
		score := 1 / (1 + hit.Distance)
		if score < MinVectorScore {
			continue
		}
		r := models.SearchResult{
			ID:      hit.ID,
			Content: hit.Document,
			Score:   score,
			Source:  "vector-semantic",
		}
		if v, ok := hit.Metadata["type"].(string); ok {
			r.Type = v
		}
		if v, ok := hit.Metadata["project"].(string); ok {
			r.Project = v
		}
		if v, ok := hit.Metadata["summary"].(string); ok {
			r.Summary = v
		}
		if v, ok := hit.Metadata["created"].(string); ok {
			r.Created = v
		}
		results = append(results, r)
	}
	return results
}

// Search merges graph and vector hits. Vector results are post-filtered
// through the graph's active set because the semantic index does not
// know about forgotten or expired memories.
func (o *Orchestrator) Search(ctx context.Context, in SearchInput) (*SearchResult, error) {
	if in.Query == "" {
		return nil, errQueryRequired
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}

	graphResults := o.graphSearch(ctx, in.Query, graph.Filters{Project: in.Project, Type: in.Type}, limit)
	vectorResults := o.vectorSearch(ctx, in.Query, limit)

	if len(vectorResults) > 0 {
		ids := make([]string, len(vectorResults))
		for i, r := range vectorResults {
			ids[i] = r.ID
		}
		active := map[string]bool{}
		for _, id := range o.graph.FilterActive(ctx, ids) {
			active[id] = true
		}
		kept := vectorResults[:0]
		for _, r := range vectorResults {
			if active[r.ID] {
				kept = append(kept, r)
			}
		}
		vectorResults = kept
	}

	seen := map[string]bool{}
	merged := make([]models.SearchResult, 0, len(graphResults)+len(vectorResults))
	for _, r := range graphResults {
		if !seen[r.ID] {
			seen[r.ID] = true
			merged = append(merged, r)
		}
	}
	for _, r := range vectorResults {
		if !seen[r.ID] {
			seen[r.ID] = true
			merged = append(merged, r)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > limit {
		merged = merged[:limit]
	}

	if err := o.states.Mutate(func(s *state.State) {
		s.Stats.TotalSearches++
	}); err != nil {
		o.logger.Warn("stats update failed", "error", err)
	}
	metrics.Searches.Add(1)

	return &SearchResult{
		Results: merged,
		Count:   len(merged),
		Sources: SourceCounts{Graph: len(graphResults), Vector: len(vectorResults)},
	}, nil
}

// AutoRecallInput are the arguments of the per-turn fast path.
type AutoRecallInput struct {
	Project       string `json:"project,omitempty"`
	MinImportance int    `json:"minImportance,omitempty"`
	Limit         int    `json:"limit,omitempty"`
}

// AutoRecallResult carries the context-injection payload.
type AutoRecallResult struct {
	Memories     []models.SearchResult `json:"memories"`
	Instructions []models.SearchResult `json:"instructions"`
	Count        int                   `json:"count"`
}

// AutoRecall is graph-only: two queries, no embedding round trip. It is
// called on every agent turn and must stay cheap.
func (o *Orchestrator) AutoRecall(ctx context.Context, in AutoRecallInput) (*AutoRecallResult, error) {
	minImportance := in.MinImportance
	if minImportance == 0 {
		minImportance = 3
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 5
	}

	memories, err := o.graph.AutoRecall(ctx, in.Project, minImportance, limit)
	if err != nil {
		o.logger.Warn("auto-recall query failed", "error", err)
	}
	instructions, err := o.graph.Instructions(ctx, in.Project)
	if err != nil {
		o.logger.Warn("instructions query failed", "error", err)
	}

	if err := o.states.Mutate(func(s *state.State) {
		s.Stats.TotalRecalls++
	}); err != nil {
		o.logger.Warn("stats update failed", "error", err)
	}
	metrics.Recalls.Add(1)

	if memories == nil {
		memories = []models.SearchResult{}
	}
	if instructions == nil {
		instructions = []models.SearchResult{}
	}
	return &AutoRecallResult{Memories: memories, Instructions: instructions, Count: len(memories)}, nil
}
