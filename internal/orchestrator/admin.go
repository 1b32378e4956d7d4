package orchestrator

import (
	"context"
	"strconv"
	"time"

	"github.com/eva-agent/eva-memory/internal/extract"
	"github.com/eva-agent/eva-memory/internal/graph"
	"github.com/eva-agent/eva-memory/internal/models"
)

// RecallInput selects memories by id or by type/project filter.
type RecallInput struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type,omitempty"`
	Project string `json:"project,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// RecallResult carries full property maps straight from the graph.
type RecallResult struct {
	Results []map[string]any `json:"results"`
	Count   int              `json:"count"`
}

// Recall fetches memories by id or recency. Unlike Search it returns
// whole records, not scored excerpts.
func (o *Orchestrator) Recall(ctx context.Context, in RecallInput) (*RecallResult, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}

	var records []map[string]any
	if in.ID != "" {
		props, err := o.graph.GetByID(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		if props != nil {
			records = append(records, props)
		}
	} else {
		var err error
		records, err = o.graph.Recent(ctx, in.Type, in.Project, limit)
		if err != nil {
			return nil, err
		}
	}

	if records == nil {
		records = []map[string]any{}
	}
	return &RecallResult{Results: records, Count: len(records)}, nil
}

// ForgetInput identifies the memory by id or by query (top fulltext
// match wins).
type ForgetInput struct {
	ID     string `json:"id,omitempty"`
	Query  string `json:"query,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// ForgetResult reports the soft delete.
type ForgetResult struct {
	ID        string `json:"id"`
	Forgotten bool   `json:"forgotten"`
	Reason    string `json:"reason,omitempty"`
}

// Forget soft-deletes a memory. The node survives as a tombstone; only
// content and summary are erased.
func (o *Orchestrator) Forget(ctx context.Context, in ForgetInput) (*ForgetResult, error) {
	if in.ID == "" && in.Query == "" {
		return nil, errIDOrQuery
	}

	id := in.ID
	if id == "" {
		matches := o.graphSearch(ctx, in.Query, graph.Filters{}, 1)
		if len(matches) == 0 {
			return nil, errNoMatch
		}
		id = matches[0].ID
	}

	forgotten := true
	if err := o.graph.Forget(ctx, id, in.Reason); err != nil {
		o.logger.Warn("forget failed", "id", id, "error", err)
		forgotten = false
	}
	return &ForgetResult{ID: id, Forgotten: forgotten, Reason: in.Reason}, nil
}

// UpdateInput carries the mutable fields of an update; nil means leave
// the field alone.
type UpdateInput struct {
	ID         string   `json:"id"`
	Content    *string  `json:"content,omitempty"`
	Summary    *string  `json:"summary,omitempty"`
	Type       *string  `json:"type,omitempty"`
	Importance *int     `json:"importance,omitempty"`
	Project    *string  `json:"project,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	DecayDays  *int     `json:"decayDays,omitempty"`
}

// UpdateResult reports which fields changed.
type UpdateResult struct {
	ID      string   `json:"id"`
	Updated bool     `json:"updated"`
	Fields  []string `json:"fields"`
}

// Update mutates an existing memory in the graph and, when content
// changes, re-embeds it in the vector store and appends an audit entry
// to the markdown log.
func (o *Orchestrator) Update(ctx context.Context, in UpdateInput) (*UpdateResult, error) {
	if in.ID == "" {
		return nil, errIDRequired
	}

	fields := graph.UpdateFields{
		Content:    in.Content,
		Summary:    in.Summary,
		Type:       in.Type,
		Importance: in.Importance,
		Project:    in.Project,
		Confidence: in.Confidence,
		DecayDays:  in.DecayDays,
	}
	var changed []string
	for _, f := range []struct {
		name string
		set  bool
	}{
		{"content", in.Content != nil},
		{"summary", in.Summary != nil},
		{"type", in.Type != nil},
		{"importance", in.Importance != nil},
		{"project", in.Project != nil},
		{"confidence", in.Confidence != nil},
		{"decayDays", in.DecayDays != nil},
	} {
		if f.set {
			changed = append(changed, f.name)
		}
	}
	if len(changed) == 0 {
		return nil, errNoUpdates
	}

	var entities []string
	if in.Content != nil {
		entities = extract.Entities(extract.Plain(*in.Content))
	}

	updated := true
	if err := o.graph.Update(ctx, in.ID, fields, entities); err != nil {
		o.logger.Warn("graph update failed", "id", in.ID, "error", err)
		updated = false
	}

	if in.Content != nil && updated {
		o.reembed(ctx, in)
		o.auditUpdate(in, entities)
	}

	return &UpdateResult{ID: in.ID, Updated: updated, Fields: changed}, nil
}

// reembed rewrites the vector store document after a content change.
func (o *Orchestrator) reembed(ctx context.Context, in UpdateInput) {
	if !o.vectorConfigured() || !o.embedderConfigured() {
		return
	}
	embedding, err := o.emb.Embed(ctx, *in.Content)
	if err != nil || len(embedding) == 0 {
		return
	}

	memType := "info"
	if in.Type != nil {
		memType = *in.Type
	}
	importance := 5
	if in.Importance != nil {
		importance = *in.Importance
	}
	summary := firstN(*in.Content, 200)
	if in.Summary != nil {
		summary = *in.Summary
	}
	meta := map[string]string{
		"type":       memType,
		"importance": strconv.Itoa(importance),
		"summary":    summary,
	}
	if in.Project != nil {
		meta["project"] = *in.Project
	}
	if err := o.vec.Update(ctx, in.ID, embedding, *in.Content, meta); err != nil {
		o.logger.Warn("vector re-embed failed", "id", in.ID, "error", err)
	}
}

// auditUpdate appends the [UPDATED] marker entry to the markdown log so
// the human-readable history shows the mutation.
func (o *Orchestrator) auditUpdate(in UpdateInput, entities []string) {
	memType := "update"
	if in.Type != nil {
		memType = *in.Type
	}
	importance := 5
	if in.Importance != nil {
		importance = *in.Importance
	}
	summary := firstN(*in.Content, 200)
	if in.Summary != nil {
		summary = *in.Summary
	}
	project := ""
	if in.Project != nil {
		project = *in.Project
	}

	mem := models.Memory{
		ID:         in.ID,
		Content:    "[UPDATED] " + *in.Content,
		Summary:    summary,
		Type:       memType,
		Importance: importance,
		Project:    project,
		Entities:   entities,
		Tags:       []string{"updated"},
		Created:    time.Now().UTC(),
	}
	if err := o.md.Append(mem); err != nil {
		o.logger.Warn("update audit entry failed", "id", in.ID, "error", err)
	}
}

// SummarizeInput selects memories for the grouped digest.
type SummarizeInput struct {
	Topic   string `json:"topic,omitempty"`
	Project string `json:"project,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// SummarizeResult groups memories by type.
type SummarizeResult struct {
	Groups     map[string][]models.SearchResult `json:"groups"`
	TotalCount int                              `json:"totalCount"`
}

// Summarize returns memories grouped by type, selected by fulltext
// topic relevance or by importance when no topic is given.
func (o *Orchestrator) Summarize(ctx context.Context, in SummarizeInput) (*SummarizeResult, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = 50
	}

	var (
		selected []models.SearchResult
		err      error
	)
	if in.Topic != "" {
		selected, err = o.graph.FulltextMemory(ctx, in.Topic, graph.Filters{Project: in.Project}, limit)
	} else {
		selected, err = o.graph.TopByImportance(ctx, in.Project, limit)
	}
	if err != nil {
		return nil, err
	}

	groups := map[string][]models.SearchResult{}
	for _, r := range selected {
		memType := r.Type
		if memType == "" {
			memType = models.TypeInfo
		}
		groups[memType] = append(groups[memType], r)
	}
	return &SummarizeResult{Groups: groups, TotalCount: len(selected)}, nil
}

// ListInput are the pagination arguments.
type ListInput struct {
	Page      int    `json:"page,omitempty"`
	PageSize  int    `json:"pageSize,omitempty"`
	SortBy    string `json:"sortBy,omitempty"`
	SortOrder string `json:"sortOrder,omitempty"`
	Project   string `json:"project,omitempty"`
	Type      string `json:"type,omitempty"`
}

// ListResult is one page plus pagination bookkeeping.
type ListResult struct {
	Results    []models.MemoryRow `json:"results"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
	TotalPages int64              `json:"totalPages"`
}

// List returns a page of active memories.
func (o *Orchestrator) List(ctx context.Context, in ListInput) (*ListResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	pageSize := in.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	rows, total, err := o.graph.Page(ctx, graph.PageOptions{
		Project:   in.Project,
		Type:      in.Type,
		SortBy:    in.SortBy,
		SortOrder: in.SortOrder,
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.MemoryRow{}
	}

	totalPages := (total + int64(pageSize) - 1) / int64(pageSize)
	return &ListResult{
		Results:    rows,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// InstructionsResult carries the standing instructions.
type InstructionsResult struct {
	Instructions []models.SearchResult `json:"instructions"`
	Count        int                   `json:"count"`
}

// Instructions returns every active standing instruction.
func (o *Orchestrator) Instructions(ctx context.Context, project string) (*InstructionsResult, error) {
	instructions, err := o.graph.Instructions(ctx, project)
	if err != nil {
		o.logger.Warn("instructions query failed", "error", err)
	}
	if instructions == nil {
		instructions = []models.SearchResult{}
	}
	return &InstructionsResult{Instructions: instructions, Count: len(instructions)}, nil
}

// EntitiesResult lists entities with their mention counts.
type EntitiesResult struct {
	Entities []models.EntityCount `json:"entities"`
	Count    int                  `json:"count"`
}

// Entities lists known entities ordered by mention count.
func (o *Orchestrator) Entities(ctx context.Context, limit int) (*EntitiesResult, error) {
	if limit <= 0 {
		limit = 50
	}
	entities, err := o.graph.ListEntities(ctx, limit)
	if err != nil {
		o.logger.Warn("entities query failed", "error", err)
	}
	if entities == nil {
		entities = []models.EntityCount{}
	}
	return &EntitiesResult{Entities: entities, Count: len(entities)}, nil
}

// MaintainInput tunes the pruning pass.
type MaintainInput struct {
	MaxAgeDays    int `json:"maxAgeDays,omitempty"`
	MinImportance int `json:"minImportance,omitempty"`
}

// MaintainResult reports the maintenance pass. Compacted is reserved
// for a future daily-log rollup and is always 0 today.
type MaintainResult struct {
	Pruned    int64 `json:"pruned"`
	Compacted int64 `json:"compacted"`
}

// Maintain soft-deletes old low-importance memories.
func (o *Orchestrator) Maintain(ctx context.Context, in MaintainInput) (*MaintainResult, error) {
	maxAgeDays := in.MaxAgeDays
	if maxAgeDays <= 0 {
		maxAgeDays = 90
	}
	minImportance := in.MinImportance
	if minImportance <= 0 {
		minImportance = 3
	}

	pruned, err := o.graph.PruneOld(ctx, minImportance, maxAgeDays)
	if err != nil {
		o.logger.Warn("maintenance prune failed", "error", err)
	}
	return &MaintainResult{Pruned: pruned}, nil
}
