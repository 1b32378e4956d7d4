package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/eva-agent/eva-memory/internal/models"
)

// Cypher fragments for the active-memory predicate. Every read surface
// that returns memories must apply activeMemory; writes never touch it.
const (
	notForgotten = "NOT coalesce(m.forgotten, false)"
	notExpired   = "(m.decayDays IS NULL OR datetime(m.created) + duration({days: coalesce(m.decayDays, 36500)}) > datetime())"
	activeMemory = notForgotten + " AND " + notExpired
)

// sortAllowlist guards the ORDER BY interpolation in Page.
var sortAllowlist = map[string]bool{
	"created":    true,
	"importance": true,
	"confidence": true,
	"updated":    true,
}

// normalizeSort validates caller-supplied sort options. Both values end
// up interpolated into cypher, so anything outside the allowlists falls
// back to created DESC.
func normalizeSort(by, order string) (string, string) {
	if !sortAllowlist[by] {
		by = "created"
	}
	order = strings.ToUpper(order)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	return by, order
}

// Neo4jStore implements Store against a Neo4j server. The driver is a
// lazily-initialized singleton; an unreachable server degrades every
// operation to ErrUnavailable instead of failing the process.
type Neo4jStore struct {
	uri      string
	user     string
	password string
	database string
	logger   *slog.Logger

	mu  sync.Mutex
	drv neo4j.DriverWithContext
}

// NewNeo4jStore creates a graph store. No connection is attempted until
// the first operation.
func NewNeo4jStore(uri, user, password, database string, logger *slog.Logger) *Neo4jStore {
	return &Neo4jStore{
		uri:      uri,
		user:     user,
		password: password,
		database: database,
		logger:   logger,
	}
}

// conn returns the shared driver, dialing on first use.
func (g *Neo4jStore) conn(ctx context.Context) (neo4j.DriverWithContext, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.drv != nil {
		return g.drv, nil
	}
	if g.password == "" {
		return nil, ErrUnavailable
	}

	drv, err := neo4j.NewDriverWithContext(g.uri, neo4j.BasicAuth(g.user, g.password, ""))
	if err != nil {
		g.logger.Warn("graph driver construction failed", "uri", g.uri, "error", err)
		return nil, ErrUnavailable
	}
	if err := drv.VerifyConnectivity(ctx); err != nil {
		_ = drv.Close(ctx)
		g.logger.Warn("graph unreachable", "uri", g.uri, "error", err)
		return nil, ErrUnavailable
	}

	g.drv = drv
	return g.drv, nil
}

// run executes one cypher statement and feeds each record to collect.
func (g *Neo4jStore) run(ctx context.Context, cypher string, params map[string]any, collect func(*db.Record)) error {
	drv, err := g.conn(ctx)
	if err != nil {
		return err
	}

	sess := drv.NewSession(ctx, neo4j.SessionConfig{DatabaseName: g.database})
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, cypher, params)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	for result.Next(ctx) {
		if collect != nil {
			collect(result.Record())
		}
	}
	return result.Err()
}

func (g *Neo4jStore) Close(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.drv != nil {
		err := g.drv.Close(ctx)
		g.drv = nil
		return err
	}
	return nil
}

func (g *Neo4jStore) UpsertMemory(ctx context.Context, mem models.Memory) error {
	drv, err := g.conn(ctx)
	if err != nil {
		return err
	}

	sess := drv.NewSession(ctx, neo4j.SessionConfig{DatabaseName: g.database})
	defer sess.Close(ctx)

	exec := func(cypher string, params map[string]any) error {
		result, err := sess.Run(ctx, cypher, params)
		if err != nil {
			return err
		}
		_, err = result.Consume(ctx)
		return err
	}

	source := mem.Source
	if source == "" {
		source = "agent"
	}

	err = exec(`
		MERGE (m:Memory {id: $id})
		SET m.content = $content,
		    m.summary = $summary,
		    m.type = $type,
		    m.importance = $importance,
		    m.project = $project,
		    m.created = $created,
		    m.updated = $updated,
		    m.sessionId = $sessionId,
		    m.source = $source,
		    m.confidence = $confidence,
		    m.decayDays = $decayDays,
		    m.sourceChannel = $sourceChannel,
		    m.sourceMessageId = $sourceMessageId`,
		map[string]any{
			"id":              mem.ID,
			"content":         mem.Content,
			"summary":         mem.Summary,
			"type":            mem.Type,
			"importance":      mem.Importance,
			"project":         nullable(mem.Project),
			"created":         mem.Created.UTC().Format(time.RFC3339),
			"updated":         mem.Updated.UTC().Format(time.RFC3339),
			"sessionId":       nullable(mem.SessionID),
			"source":          source,
			"confidence":      mem.Confidence,
			"decayDays":       nullableInt(mem.DecayDays),
			"sourceChannel":   nullable(mem.SourceChannel),
			"sourceMessageId": nullable(mem.SourceMessageID),
		})
	if err != nil {
		return fmt.Errorf("merging memory node: %w", err)
	}

	// Tombstone the predecessor in the same operation as the edge.
	if mem.Supersedes != "" {
		err = exec(`
			MATCH (m:Memory {id: $newId}), (old:Memory {id: $oldId})
			MERGE (m)-[:SUPERSEDES]->(old)
			SET old.forgotten = true, old.deleteReason = 'superseded by ' + $newId`,
			map[string]any{"newId": mem.ID, "oldId": mem.Supersedes})
		if err != nil {
			return fmt.Errorf("linking supersedes: %w", err)
		}
	}

	for _, name := range mem.Entities {
		err = exec(`
			MERGE (e:Entity {name: $name})
			WITH e
			MATCH (m:Memory {id: $memId})
			MERGE (m)-[:MENTIONS]->(e)`,
			map[string]any{"name": name, "memId": mem.ID})
		if err != nil {
			return fmt.Errorf("linking entity %q: %w", name, err)
		}
	}

	for _, name := range mem.Tags {
		err = exec(`
			MERGE (t:Tag {name: $name})
			WITH t
			MATCH (m:Memory {id: $memId})
			MERGE (m)-[:TAGGED]->(t)`,
			map[string]any{"name": name, "memId": mem.ID})
		if err != nil {
			return fmt.Errorf("linking tag %q: %w", name, err)
		}
	}

	if mem.Project != "" {
		err = exec(`
			MERGE (p:Project {name: $name})
			WITH p
			MATCH (m:Memory {id: $memId})
			MERGE (m)-[:BELONGS_TO]->(p)`,
			map[string]any{"name": mem.Project, "memId": mem.ID})
		if err != nil {
			return fmt.Errorf("linking project: %w", err)
		}
	}

	if mem.SessionID != "" {
		err = exec(`
			MERGE (s:Session {id: $sid})
			WITH s
			MATCH (m:Memory {id: $memId})
			MERGE (m)-[:RECORDED_IN]->(s)`,
			map[string]any{"sid": mem.SessionID, "memId": mem.ID})
		if err != nil {
			return fmt.Errorf("linking session: %w", err)
		}
	}

	return nil
}

func (g *Neo4jStore) Forget(ctx context.Context, id, reason string) error {
	return g.run(ctx, `
		MATCH (m:Memory {id: $id})
		SET m.forgotten = true, m.forgottenAt = $now, m.deleteReason = $reason
		REMOVE m.content, m.summary`,
		map[string]any{"id": id, "now": nowISO(), "reason": nullable(reason)},
		nil)
}

func (g *Neo4jStore) Update(ctx context.Context, id string, fields UpdateFields, entities []string) error {
	setClauses := []string{"m.updated = $now"}
	params := map[string]any{"id": id, "now": nowISO()}

	set := func(key string, val any) {
		setClauses = append(setClauses, fmt.Sprintf("m.%s = $%s", key, key))
		params[key] = val
	}
	if fields.Content != nil {
		set("content", *fields.Content)
	}
	if fields.Summary != nil {
		set("summary", *fields.Summary)
	}
	if fields.Type != nil {
		set("type", *fields.Type)
	}
	if fields.Importance != nil {
		set("importance", *fields.Importance)
	}
	if fields.Project != nil {
		set("project", *fields.Project)
	}
	if fields.Confidence != nil {
		set("confidence", *fields.Confidence)
	}
	if fields.DecayDays != nil {
		set("decayDays", *fields.DecayDays)
	}

	cypher := fmt.Sprintf("MATCH (m:Memory {id: $id}) SET %s", strings.Join(setClauses, ", "))
	if err := g.run(ctx, cypher, params, nil); err != nil {
		return err
	}

	// Entity history is monotonic: new MENTIONS edges are merged in,
	// existing ones are kept.
	for _, name := range entities {
		err := g.run(ctx, `
			MERGE (e:Entity {name: $name})
			WITH e
			MATCH (m:Memory {id: $memId})
			MERGE (m)-[:MENTIONS]->(e)`,
			map[string]any{"name": name, "memId": id}, nil)
		if err != nil {
			return fmt.Errorf("linking entity %q: %w", name, err)
		}
	}
	return nil
}

func (g *Neo4jStore) FulltextMemory(ctx context.Context, query string, f Filters, limit int) ([]models.SearchResult, error) {
	safe := EscapeFulltext(query)
	if strings.TrimSpace(safe) == "" {
		return nil, nil
	}

	var results []models.SearchResult
	err := g.run(ctx, `
		CALL db.index.fulltext.queryNodes('memory_fulltext', $searchQuery)
		YIELD node AS m, score
		WHERE (`+activeMemory+`)
		  AND ($project IS NULL OR m.project = $project)
		  AND ($type IS NULL OR m.type = $type)
		RETURN m.id AS id, m.content AS content, m.summary AS summary,
		       m.type AS type, m.importance AS importance,
		       m.project AS project, m.created AS created,
		       m.confidence AS confidence,
		       score
		ORDER BY score DESC, m.importance DESC
		LIMIT $limit`,
		map[string]any{
			"searchQuery": safe,
			"project":     nullable(f.Project),
			"type":        nullable(f.Type),
			"limit":       limit,
		},
		func(rec *db.Record) {
			r := searchResultFrom(rec)
			r.Source = "graph-fulltext"
			results = append(results, r)
		})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (g *Neo4jStore) FulltextEntity(ctx context.Context, query string, f Filters, limit int) ([]models.SearchResult, error) {
	safe := EscapeFulltext(query)
	if strings.TrimSpace(safe) == "" {
		return nil, nil
	}

	var results []models.SearchResult
	err := g.run(ctx, `
		CALL db.index.fulltext.queryNodes('entity_fulltext', $searchQuery)
		YIELD node AS entity, score AS entityScore
		WITH entity, entityScore
		MATCH (m:Memory)-[:MENTIONS]->(entity)
		WHERE (`+activeMemory+`)
		  AND ($project IS NULL OR m.project = $project)
		  AND ($type IS NULL OR m.type = $type)
		RETURN DISTINCT m.id AS id, m.content AS content, m.summary AS summary,
		       m.type AS type, m.importance AS importance,
		       m.project AS project, m.created AS created,
		       m.confidence AS confidence,
		       entityScore * 0.8 AS score
		ORDER BY score DESC
		LIMIT $limit`,
		map[string]any{
			"searchQuery": safe,
			"project":     nullable(f.Project),
			"type":        nullable(f.Type),
			"limit":       limit,
		},
		func(rec *db.Record) {
			r := searchResultFrom(rec)
			r.Source = "graph-entity"
			results = append(results, r)
		})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (g *Neo4jStore) TopFulltext(ctx context.Context, query, memType string) (*models.SearchResult, error) {
	safe := EscapeFulltext(query)
	if strings.TrimSpace(safe) == "" {
		return nil, nil
	}

	var top *models.SearchResult
	err := g.run(ctx, `
		CALL db.index.fulltext.queryNodes('memory_fulltext', $searchQuery)
		YIELD node AS m, score
		WHERE `+activeMemory+`
		  AND ($type IS NULL OR m.type = $type)
		RETURN m.id AS id, score
		ORDER BY score DESC
		LIMIT 1`,
		map[string]any{"searchQuery": safe, "type": nullable(memType)},
		func(rec *db.Record) {
			top = &models.SearchResult{
				ID:    recString(rec, "id"),
				Score: recFloat(rec, "score"),
			}
		})
	if err != nil {
		return nil, err
	}
	return top, nil
}

func (g *Neo4jStore) AutoRecall(ctx context.Context, project string, minImportance, limit int) ([]models.SearchResult, error) {
	var results []models.SearchResult
	err := g.run(ctx, `
		MATCH (m:Memory)
		WHERE `+activeMemory+`
		  AND m.importance >= $minImp
		  AND m.type <> 'instruction'
		  AND ($project IS NULL OR m.project = $project)
		RETURN m.id AS id, m.content AS content, m.summary AS summary,
		       m.type AS type, m.importance AS importance,
		       m.confidence AS confidence,
		       m.project AS project, m.created AS created
		ORDER BY m.importance DESC, m.created DESC
		LIMIT $limit`,
		map[string]any{"minImp": minImportance, "project": nullable(project), "limit": limit},
		func(rec *db.Record) {
			results = append(results, searchResultFrom(rec))
		})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (g *Neo4jStore) Instructions(ctx context.Context, project string) ([]models.SearchResult, error) {
	var results []models.SearchResult
	err := g.run(ctx, `
		MATCH (m:Memory)
		WHERE m.type = 'instruction'
		  AND `+activeMemory+`
		  AND ($project IS NULL OR m.project = $project)
		RETURN m.id AS id, m.content AS content, m.summary AS summary,
		       m.importance AS importance, m.confidence AS confidence,
		       m.project AS project, m.created AS created
		ORDER BY m.importance DESC`,
		map[string]any{"project": nullable(project)},
		func(rec *db.Record) {
			r := searchResultFrom(rec)
			r.Type = models.TypeInstruction
			results = append(results, r)
		})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (g *Neo4jStore) ListEntities(ctx context.Context, limit int) ([]models.EntityCount, error) {
	var entities []models.EntityCount
	err := g.run(ctx, `
		MATCH (e:Entity)<-[:MENTIONS]-(m:Memory)
		RETURN e.name AS name, count(m) AS memoryCount,
		       collect(DISTINCT m.type)[..5] AS types
		ORDER BY memoryCount DESC
		LIMIT $limit`,
		map[string]any{"limit": limit},
		func(rec *db.Record) {
			ec := models.EntityCount{
				Name:        recString(rec, "name"),
				MemoryCount: recInt64(rec, "memoryCount"),
			}
			if v, ok := rec.Get("types"); ok {
				if list, ok := v.([]any); ok {
					for _, t := range list {
						if s, ok := t.(string); ok {
							ec.Types = append(ec.Types, s)
						}
					}
				}
			}
			entities = append(entities, ec)
		})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// FilterActive fails open: under graph outage the full input set comes
// back, trading precision for not hiding vector hits entirely.
func (g *Neo4jStore) FilterActive(ctx context.Context, ids []string) []string {
	if len(ids) == 0 {
		return nil
	}

	active := map[string]bool{}
	err := g.run(ctx, `
		MATCH (m:Memory)
		WHERE m.id IN $ids AND `+activeMemory+`
		RETURN m.id AS id`,
		map[string]any{"ids": ids},
		func(rec *db.Record) {
			active[recString(rec, "id")] = true
		})
	if err != nil {
		g.logger.Warn("filter-active failed open", "error", err)
		return ids
	}

	kept := make([]string, 0, len(ids))
	for _, id := range ids {
		if active[id] {
			kept = append(kept, id)
		}
	}
	return kept
}

func (g *Neo4jStore) Page(ctx context.Context, opts PageOptions) ([]models.MemoryRow, int64, error) {
	sortBy, sortOrder := normalizeSort(opts.SortBy, opts.SortOrder)
	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	var total int64
	err := g.run(ctx, `
		MATCH (m:Memory)
		WHERE `+activeMemory+`
		  AND ($type IS NULL OR m.type = $type)
		  AND ($project IS NULL OR m.project = $project)
		RETURN count(m) AS total`,
		map[string]any{"type": nullable(opts.Type), "project": nullable(opts.Project)},
		func(rec *db.Record) {
			total = recInt64(rec, "total")
		})
	if err != nil {
		return nil, 0, err
	}

	var rows []models.MemoryRow
	err = g.run(ctx, fmt.Sprintf(`
		MATCH (m:Memory)
		WHERE `+activeMemory+`
		  AND ($type IS NULL OR m.type = $type)
		  AND ($project IS NULL OR m.project = $project)
		RETURN m.id AS id, m.content AS content, m.summary AS summary,
		       m.type AS type, m.importance AS importance,
		       m.confidence AS confidence, m.project AS project,
		       m.created AS created, m.updated AS updated,
		       m.decayDays AS decayDays
		ORDER BY m.%s %s
		SKIP $skip
		LIMIT $pageSize`, sortBy, sortOrder),
		map[string]any{
			"type":     nullable(opts.Type),
			"project":  nullable(opts.Project),
			"skip":     (page - 1) * pageSize,
			"pageSize": pageSize,
		},
		func(rec *db.Record) {
			row := models.MemoryRow{
				ID:         recString(rec, "id"),
				Content:    recString(rec, "content"),
				Summary:    recString(rec, "summary"),
				Type:       recString(rec, "type"),
				Importance: int(recInt64(rec, "importance")),
				Confidence: recFloat(rec, "confidence"),
				Project:    recString(rec, "project"),
				Created:    recString(rec, "created"),
				Updated:    recString(rec, "updated"),
			}
			if v, ok := rec.Get("decayDays"); ok && v != nil {
				if d, ok := v.(int64); ok {
					dd := int(d)
					row.DecayDays = &dd
				}
			}
			rows = append(rows, row)
		})
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (g *Neo4jStore) GetByID(ctx context.Context, id string) (map[string]any, error) {
	var props map[string]any
	err := g.run(ctx, `
		MATCH (m:Memory {id: $id}) WHERE `+activeMemory+` RETURN m`,
		map[string]any{"id": id},
		func(rec *db.Record) {
			if v, ok := rec.Get("m"); ok {
				if node, ok := v.(dbtype.Node); ok {
					props = node.Props
				}
			}
		})
	if err != nil {
		return nil, err
	}
	return props, nil
}

func (g *Neo4jStore) Recent(ctx context.Context, memType, project string, limit int) ([]map[string]any, error) {
	var records []map[string]any
	err := g.run(ctx, `
		MATCH (m:Memory)
		WHERE `+activeMemory+`
		  AND ($type IS NULL OR m.type = $type)
		  AND ($project IS NULL OR m.project = $project)
		RETURN m
		ORDER BY m.created DESC
		LIMIT $limit`,
		map[string]any{"type": nullable(memType), "project": nullable(project), "limit": limit},
		func(rec *db.Record) {
			if v, ok := rec.Get("m"); ok {
				if node, ok := v.(dbtype.Node); ok {
					records = append(records, node.Props)
				}
			}
		})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (g *Neo4jStore) TopByImportance(ctx context.Context, project string, limit int) ([]models.SearchResult, error) {
	var results []models.SearchResult
	err := g.run(ctx, `
		MATCH (m:Memory)
		WHERE `+activeMemory+`
		  AND ($project IS NULL OR m.project = $project)
		RETURN m.id AS id, m.content AS content, m.summary AS summary,
		       m.type AS type, m.importance AS importance,
		       m.confidence AS confidence, m.created AS created
		ORDER BY m.importance DESC
		LIMIT $limit`,
		map[string]any{"project": nullable(project), "limit": limit},
		func(rec *db.Record) {
			results = append(results, searchResultFrom(rec))
		})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (g *Neo4jStore) PruneOld(ctx context.Context, minImportance, maxAgeDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -maxAgeDays).Format(time.RFC3339)

	var pruned int64
	err := g.run(ctx, `
		MATCH (m:Memory)
		WHERE m.importance < $minImp
		  AND m.created < $cutoff
		  AND `+activeMemory+`
		SET m.forgotten = true, m.forgottenAt = $now, m.deleteReason = 'maintenance-pruned'
		REMOVE m.content, m.summary
		RETURN count(m) AS pruned`,
		map[string]any{"minImp": minImportance, "cutoff": cutoff, "now": nowISO()},
		func(rec *db.Record) {
			pruned = recInt64(rec, "pruned")
		})
	if err != nil {
		return 0, err
	}
	return pruned, nil
}

func (g *Neo4jStore) LinkSession(ctx context.Context, s models.Session) error {
	err := g.run(ctx, `
		MERGE (s:Session {id: $id})
		SET s.startedAt = $start, s.project = $project, s.branch = $branch`,
		map[string]any{
			"id":      s.ID,
			"start":   s.StartedAt,
			"project": nullable(s.Project),
			"branch":  nullable(s.Branch),
		}, nil)
	if err != nil {
		return err
	}

	if s.Project != "" {
		return g.run(ctx, `
			MERGE (p:Project {name: $name})
			WITH p
			MATCH (s:Session {id: $sid})
			MERGE (s)-[:BELONGS_TO]->(p)`,
			map[string]any{"name": s.Project, "sid": s.ID}, nil)
	}
	return nil
}

func (g *Neo4jStore) CloseSession(ctx context.Context, id, summary, endedAt string) error {
	return g.run(ctx, `
		MATCH (s:Session {id: $id})
		SET s.endedAt = $end, s.summary = $summary`,
		map[string]any{"id": id, "end": endedAt, "summary": summary}, nil)
}

func (g *Neo4jStore) Overview(ctx context.Context) (*models.Overview, error) {
	overview := &models.Overview{TopEntities: []models.EntityCount{}, Projects: []string{}}

	err := g.run(ctx, `
		MATCH (m:Memory) WHERE `+activeMemory+` RETURN count(m) AS total`,
		nil,
		func(rec *db.Record) {
			overview.TotalMemories = recInt64(rec, "total")
		})
	if err != nil {
		return nil, err
	}

	err = g.run(ctx, `
		MATCH (e:Entity)<-[:MENTIONS]-(m:Memory)
		WHERE `+activeMemory+`
		RETURN e.name AS name, count(m) AS count
		ORDER BY count DESC
		LIMIT 10`,
		nil,
		func(rec *db.Record) {
			overview.TopEntities = append(overview.TopEntities, models.EntityCount{
				Name:        recString(rec, "name"),
				MemoryCount: recInt64(rec, "count"),
			})
		})
	if err != nil {
		return nil, err
	}

	err = g.run(ctx, `MATCH (p:Project) RETURN p.name AS name ORDER BY p.name`,
		nil,
		func(rec *db.Record) {
			overview.Projects = append(overview.Projects, recString(rec, "name"))
		})
	if err != nil {
		return nil, err
	}

	return overview, nil
}

// --- record helpers ---

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// nullable maps the empty string to a cypher null parameter.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func searchResultFrom(rec *db.Record) models.SearchResult {
	return models.SearchResult{
		ID:         recString(rec, "id"),
		Content:    recString(rec, "content"),
		Summary:    recString(rec, "summary"),
		Type:       recString(rec, "type"),
		Importance: int(recInt64(rec, "importance")),
		Confidence: recFloat(rec, "confidence"),
		Project:    recString(rec, "project"),
		Created:    recString(rec, "created"),
		Score:      recFloat(rec, "score"),
	}
}

func recString(rec *db.Record, key string) string {
	if v, ok := rec.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func recInt64(rec *db.Record, key string) int64 {
	if v, ok := rec.Get(key); ok {
		switch n := v.(type) {
		case int64:
			return n
		case float64:
			return int64(n)
		}
	}
	return 0
}

func recFloat(rec *db.Record, key string) float64 {
	if v, ok := rec.Get(key); ok {
		switch n := v.(type) {
		case float64:
			return n
		case int64:
			return float64(n)
		}
	}
	return 0
}
