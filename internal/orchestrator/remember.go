package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/eva-agent/eva-memory/internal/extract"
	"github.com/eva-agent/eva-memory/internal/metrics"
	"github.com/eva-agent/eva-memory/internal/models"
	"github.com/eva-agent/eva-memory/internal/queue"
	"github.com/eva-agent/eva-memory/internal/state"
)

// RememberInput carries the caller-supplied fields of a new memory.
// Everything except Content is optional and backfilled by the extractor.
type RememberInput struct {
	Content         string   `json:"content"`
	Type            string   `json:"type,omitempty"`
	Importance      *int     `json:"importance,omitempty"`
	Project         string   `json:"project,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Summary         string   `json:"summary,omitempty"`
	Entities        []string `json:"entities,omitempty"`
	Confidence      *float64 `json:"confidence,omitempty"`
	DecayDays       *int     `json:"decayDays,omitempty"`
	Supersedes      string   `json:"supersedes,omitempty"`
	Source          string   `json:"source,omitempty"`
	SourceChannel   string   `json:"sourceChannel,omitempty"`
	SourceMessageID string   `json:"sourceMessageId,omitempty"`
}

// LayerOutcome reports which storage layers accepted the write.
type LayerOutcome struct {
	Markdown bool `json:"markdown"`
	Graph    bool `json:"graph"`
	Vector   bool `json:"vector"`
	Queued   bool `json:"queued"`
}

// RememberResult is the outcome of one remember call. A skipped
// duplicate carries Skipped/ExistingID/Similarity and nothing else.
type RememberResult struct {
	ID         string        `json:"id,omitempty"`
	Type       string        `json:"type,omitempty"`
	Importance int           `json:"importance,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
	DecayDays  *int          `json:"decayDays,omitempty"`
	Supersedes string        `json:"supersedes,omitempty"`
	Entities   []string      `json:"entities,omitempty"`
	Layers     *LayerOutcome `json:"layers,omitempty"`

	Skipped    bool    `json:"skipped,omitempty"`
	ExistingID string  `json:"existingId,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`
}

type dupDecision struct {
	action     string // "allow", "skip", "replace"
	existingID string
	similarity float64
}

// checkDuplicates walks the dedup ladder: vector similarity first,
// graph fulltext as fallback, allow when both layers are silent.
// Project is deliberately not a filter; duplicates cross projects.
func (o *Orchestrator) checkDuplicates(ctx context.Context, content, memType string) dupDecision {
	if o.vectorConfigured() && o.embedderConfigured() {
		if embedding, err := o.emb.Embed(ctx, content); err == nil && len(embedding) > 0 {
			where := map[string]string{}
			if memType != "" {
				where["type"] = memType
			}
			hits, err := o.vec.Query(ctx, embedding, 1, where)
			if err == nil && len(hits) > 0 {
				similarity := 1 / (1 + hits[0].Distance)
				switch {
				case similarity > VectorSkipThreshold:
					return dupDecision{action: "skip", existingID: hits[0].ID, similarity: similarity}
				case similarity > VectorReplaceThreshold:
					return dupDecision{action: "replace", existingID: hits[0].ID, similarity: similarity}
				}
			}
		}
	}

	top, err := o.graph.TopFulltext(ctx, firstN(content, 200), memType)
	if err == nil && top != nil {
		switch {
		case top.Score > FulltextSkipScore:
			return dupDecision{action: "skip", existingID: top.ID, similarity: min(top.Score/10, 1.0)}
		case top.Score > FulltextReplaceScore:
			return dupDecision{action: "replace", existingID: top.ID, similarity: top.Score / 10}
		}
	}

	return dupDecision{action: "allow"}
}

// Remember stores one memory through all layers with WAL crash safety.
func (o *Orchestrator) Remember(ctx context.Context, in RememberInput) (*RememberResult, error) {
	if in.Content == "" {
		return nil, errContentRequired
	}

	memType := in.Type
	if memType == "" {
		memType = extract.Classify(extract.Plain(in.Content))
	}
	importance := 5
	if in.Importance != nil {
		importance = *in.Importance
	}
	confidence := 0.8
	if in.Confidence != nil {
		confidence = *in.Confidence
	}
	summary := in.Summary
	if summary == "" {
		summary = extract.Summarize(in.Content)
	}
	entities := in.Entities
	if len(entities) == 0 {
		entities = extract.Entities(extract.Plain(in.Content))
	}

	now := time.Now().UTC()
	mem := models.Memory{
		ID:              uuid.NewString(),
		Content:         in.Content,
		Summary:         summary,
		Type:            memType,
		Importance:      importance,
		Confidence:      confidence,
		DecayDays:       in.DecayDays,
		Supersedes:      in.Supersedes,
		Project:         in.Project,
		Tags:            in.Tags,
		Entities:        entities,
		Created:         now,
		Updated:         now,
		SessionID:       o.states.Snapshot().Session.ID,
		Source:          in.Source,
		SourceChannel:   in.SourceChannel,
		SourceMessageID: in.SourceMessageID,
	}
	if mem.Source == "" {
		mem.Source = "agent"
	}

	// Dedup runs before the WAL write; a skipped duplicate must leave
	// no trace in any layer.
	dup := o.checkDuplicates(ctx, in.Content, memType)
	switch dup.action {
	case "skip":
		metrics.MemoriesSkipped.Add(1)
		return &RememberResult{Skipped: true, ExistingID: dup.existingID, Similarity: dup.similarity}, nil
	case "replace":
		mem.Supersedes = dup.existingID
		metrics.MemoriesReplaced.Add(1)
	}

	if err := o.states.WALAppend(mem); err != nil {
		o.logger.Warn("wal append failed", "id", mem.ID, "error", err)
	}

	mdOK := true
	if err := o.md.Append(mem); err != nil {
		o.logger.Warn("markdown write failed", "id", mem.ID, "error", err)
		mdOK = false
	}

	graphOK := true
	if err := o.graph.UpsertMemory(ctx, mem); err != nil {
		o.logger.Warn("graph write failed", "id", mem.ID, "error", err)
		metrics.GraphErrors.Add(1)
		graphOK = false
	}

	vecOK := false
	queued := false
	switch {
	case o.vectorConfigured() && o.embedderConfigured():
		if embedding, err := o.emb.Embed(ctx, mem.Content); err == nil && len(embedding) > 0 {
			if err := o.vec.Add(ctx, mem.ID, embedding, mem.Content, vectorMetadata(mem)); err == nil {
				vecOK = true
			} else {
				o.logger.Warn("vector write failed", "id", mem.ID, "error", err)
				metrics.VectorErrors.Add(1)
			}
		}
		if !vecOK {
			if err := o.queue.Enqueue(queue.EntryFor(mem)); err == nil {
				queued = true
				metrics.QueueEnqueued.Add(1)
			}
		}
	case o.vectorConfigured():
		// No embedder in-process; park the record for a later drain.
		if err := o.queue.Enqueue(queue.EntryFor(mem)); err == nil {
			queued = true
			metrics.QueueEnqueued.Add(1)
		}
	}

	// The WAL entry clears once any durable layer holds the record.
	if mdOK || graphOK {
		if err := o.states.WALFlush(mem.ID); err != nil {
			o.logger.Warn("wal flush failed", "id", mem.ID, "error", err)
		}
	}

	if err := o.states.Mutate(func(s *state.State) {
		s.Stats.TotalMemories++
		s.Stats.LastMemoryAt = now.Format(time.RFC3339)
	}); err != nil {
		o.logger.Warn("stats update failed", "error", err)
	}
	metrics.MemoriesStored.Add(1)

	resultEntities := entities
	if len(resultEntities) > 5 {
		resultEntities = resultEntities[:5]
	}
	return &RememberResult{
		ID:         mem.ID,
		Type:       memType,
		Importance: importance,
		Confidence: confidence,
		DecayDays:  in.DecayDays,
		Supersedes: mem.Supersedes,
		Entities:   resultEntities,
		Layers:     &LayerOutcome{Markdown: mdOK, Graph: graphOK, Vector: vecOK, Queued: queued},
	}, nil
}

// vectorMetadata builds the flat string metadata map for the vector
// store. Empty values are stripped downstream.
func vectorMetadata(mem models.Memory) map[string]string {
	e := queue.EntryFor(mem)
	return e.Metadata
}
