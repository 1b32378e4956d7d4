package graph

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eva-agent/eva-memory/internal/models"
)

// MockGraph is an in-memory Store for tests. It keeps full Memory values
// and applies the same activeness rules as the real store.
type MockGraph struct {
	mu       sync.Mutex
	memories map[string]*models.Memory
	sessions map[string]*models.Session

	// Unavailable makes every operation fail like an unreachable server.
	Unavailable bool

	// TopHit is returned by TopFulltext when set.
	TopHit *models.SearchResult
}

func NewMockGraph() *MockGraph {
	return &MockGraph{
		memories: make(map[string]*models.Memory),
		sessions: make(map[string]*models.Session),
	}
}

// Memory returns a copy of the stored memory, forgotten or not.
func (m *MockGraph) Memory(id string) (models.Memory, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.memories[id]
	if !ok {
		return models.Memory{}, false
	}
	return *mem, true
}

func (m *MockGraph) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.memories)
}

func (m *MockGraph) active(mem *models.Memory) bool {
	if mem.Forgotten {
		return false
	}
	if mem.DecayDays != nil {
		if time.Now().After(mem.Created.AddDate(0, 0, *mem.DecayDays)) {
			return false
		}
	}
	return true
}

func (m *MockGraph) UpsertMemory(ctx context.Context, mem models.Memory) error {
	if m.Unavailable {
		return ErrUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := mem
	m.memories[mem.ID] = &stored
	if mem.Supersedes != "" {
		if old, ok := m.memories[mem.Supersedes]; ok {
			old.Forgotten = true
			old.DeleteReason = "superseded by " + mem.ID
		}
	}
	return nil
}

func (m *MockGraph) Forget(ctx context.Context, id, reason string) error {
	if m.Unavailable {
		return ErrUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if mem, ok := m.memories[id]; ok {
		mem.Forgotten = true
		mem.ForgottenAt = time.Now().UTC().Format(time.RFC3339)
		mem.DeleteReason = reason
		mem.Content = ""
		mem.Summary = ""
	}
	return nil
}

func (m *MockGraph) Update(ctx context.Context, id string, fields UpdateFields, entities []string) error {
	if m.Unavailable {
		return ErrUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	mem, ok := m.memories[id]
	if !ok {
		return nil
	}
	if fields.Content != nil {
		mem.Content = *fields.Content
	}
	if fields.Summary != nil {
		mem.Summary = *fields.Summary
	}
	if fields.Type != nil {
		mem.Type = *fields.Type
	}
	if fields.Importance != nil {
		mem.Importance = *fields.Importance
	}
	if fields.Project != nil {
		mem.Project = *fields.Project
	}
	if fields.Confidence != nil {
		mem.Confidence = *fields.Confidence
	}
	if fields.DecayDays != nil {
		mem.DecayDays = fields.DecayDays
	}
	mem.Updated = time.Now().UTC()
	mem.Entities = append(mem.Entities, entities...)
	return nil
}

func (m *MockGraph) matches(mem *models.Memory, f Filters) bool {
	if !m.active(mem) {
		return false
	}
	if f.Project != "" && mem.Project != f.Project {
		return false
	}
	if f.Type != "" && mem.Type != f.Type {
		return false
	}
	return true
}

func toResult(mem *models.Memory, score float64, source string) models.SearchResult {
	return models.SearchResult{
		ID:         mem.ID,
		Content:    mem.Content,
		Summary:    mem.Summary,
		Type:       mem.Type,
		Importance: mem.Importance,
		Confidence: mem.Confidence,
		Project:    mem.Project,
		Created:    mem.Created.UTC().Format(time.RFC3339),
		Score:      score,
		Source:     source,
	}
}

func (m *MockGraph) FulltextMemory(ctx context.Context, query string, f Filters, limit int) ([]models.SearchResult, error) {
	if m.Unavailable {
		return nil, ErrUnavailable
	}
	if strings.TrimSpace(EscapeFulltext(query)) == "" {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var results []models.SearchResult
	q := strings.ToLower(query)
	for _, mem := range m.memories {
		if !m.matches(mem, f) {
			continue
		}
		if strings.Contains(strings.ToLower(mem.Content), q) ||
			strings.Contains(strings.ToLower(mem.Summary), q) {
			results = append(results, toResult(mem, 5.0, "graph-fulltext"))
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MockGraph) FulltextEntity(ctx context.Context, query string, f Filters, limit int) ([]models.SearchResult, error) {
	if m.Unavailable {
		return nil, ErrUnavailable
	}
	if strings.TrimSpace(EscapeFulltext(query)) == "" {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var results []models.SearchResult
	q := strings.ToLower(query)
	for _, mem := range m.memories {
		if !m.matches(mem, f) {
			continue
		}
		for _, e := range mem.Entities {
			if strings.Contains(strings.ToLower(e), q) {
				results = append(results, toResult(mem, 4.0, "graph-entity"))
				break
			}
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MockGraph) TopFulltext(ctx context.Context, query, memType string) (*models.SearchResult, error) {
	if m.Unavailable {
		return nil, ErrUnavailable
	}
	return m.TopHit, nil
}

func (m *MockGraph) AutoRecall(ctx context.Context, project string, minImportance, limit int) ([]models.SearchResult, error) {
	if m.Unavailable {
		return nil, ErrUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var results []models.SearchResult
	for _, mem := range m.memories {
		if !m.active(mem) || mem.Type == models.TypeInstruction || mem.Importance < minImportance {
			continue
		}
		if project != "" && mem.Project != project {
			continue
		}
		results = append(results, toResult(mem, 0, ""))
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Importance != results[j].Importance {
			return results[i].Importance > results[j].Importance
		}
		return results[i].Created > results[j].Created
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MockGraph) Instructions(ctx context.Context, project string) ([]models.SearchResult, error) {
	if m.Unavailable {
		return nil, ErrUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var results []models.SearchResult
	for _, mem := range m.memories {
		if !m.active(mem) || mem.Type != models.TypeInstruction {
			continue
		}
		if project != "" && mem.Project != project {
			continue
		}
		results = append(results, toResult(mem, 0, ""))
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Importance > results[j].Importance })
	return results, nil
}

func (m *MockGraph) ListEntities(ctx context.Context, limit int) ([]models.EntityCount, error) {
	if m.Unavailable {
		return nil, ErrUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := map[string]*models.EntityCount{}
	for _, mem := range m.memories {
		for _, e := range mem.Entities {
			ec, ok := counts[e]
			if !ok {
				ec = &models.EntityCount{Name: e}
				counts[e] = ec
			}
			ec.MemoryCount++
		}
	}
	var out []models.EntityCount
	for _, ec := range counts {
		out = append(out, *ec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MemoryCount != out[j].MemoryCount {
			return out[i].MemoryCount > out[j].MemoryCount
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockGraph) FilterActive(ctx context.Context, ids []string) []string {
	if m.Unavailable {
		return ids
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var kept []string
	for _, id := range ids {
		if mem, ok := m.memories[id]; ok && m.active(mem) {
			kept = append(kept, id)
		}
	}
	return kept
}

func (m *MockGraph) Page(ctx context.Context, opts PageOptions) ([]models.MemoryRow, int64, error) {
	if m.Unavailable {
		return nil, 0, ErrUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var rows []models.MemoryRow
	for _, mem := range m.memories {
		if !m.matches(mem, Filters{Project: opts.Project, Type: opts.Type}) {
			continue
		}
		rows = append(rows, models.MemoryRow{
			ID:         mem.ID,
			Content:    mem.Content,
			Summary:    mem.Summary,
			Type:       mem.Type,
			Importance: mem.Importance,
			Confidence: mem.Confidence,
			Project:    mem.Project,
			Created:    mem.Created.UTC().Format(time.RFC3339),
			Updated:    mem.Updated.UTC().Format(time.RFC3339),
			DecayDays:  mem.DecayDays,
		})
	}
	by, order := normalizeSort(opts.SortBy, opts.SortOrder)
	less := func(a, b models.MemoryRow) bool {
		switch by {
		case "importance":
			return a.Importance < b.Importance
		case "confidence":
			return a.Confidence < b.Confidence
		case "updated":
			return a.Updated < b.Updated
		default:
			return a.Created < b.Created
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if order == "ASC" {
			return less(rows[i], rows[j])
		}
		return less(rows[j], rows[i])
	})
	total := int64(len(rows))

	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start >= len(rows) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], total, nil
}

func (m *MockGraph) GetByID(ctx context.Context, id string) (map[string]any, error) {
	if m.Unavailable {
		return nil, ErrUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	mem, ok := m.memories[id]
	if !ok || !m.active(mem) {
		return nil, nil
	}
	return map[string]any{
		"id":         mem.ID,
		"content":    mem.Content,
		"summary":    mem.Summary,
		"type":       mem.Type,
		"importance": int64(mem.Importance),
		"confidence": mem.Confidence,
		"project":    mem.Project,
		"created":    mem.Created.UTC().Format(time.RFC3339),
	}, nil
}

func (m *MockGraph) Recent(ctx context.Context, memType, project string, limit int) ([]map[string]any, error) {
	if m.Unavailable {
		return nil, ErrUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var mems []*models.Memory
	for _, mem := range m.memories {
		if m.matches(mem, Filters{Project: project, Type: memType}) {
			mems = append(mems, mem)
		}
	}
	sort.Slice(mems, func(i, j int) bool { return mems[i].Created.After(mems[j].Created) })
	if limit > 0 && len(mems) > limit {
		mems = mems[:limit]
	}

	var out []map[string]any
	for _, mem := range mems {
		out = append(out, map[string]any{
			"id":         mem.ID,
			"content":    mem.Content,
			"summary":    mem.Summary,
			"type":       mem.Type,
			"importance": int64(mem.Importance),
			"confidence": mem.Confidence,
			"project":    mem.Project,
			"created":    mem.Created.UTC().Format(time.RFC3339),
		})
	}
	return out, nil
}

func (m *MockGraph) TopByImportance(ctx context.Context, project string, limit int) ([]models.SearchResult, error) {
	if m.Unavailable {
		return nil, ErrUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var results []models.SearchResult
	for _, mem := range m.memories {
		if !m.active(mem) {
			continue
		}
		if project != "" && mem.Project != project {
			continue
		}
		results = append(results, toResult(mem, 0, ""))
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Importance > results[j].Importance })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MockGraph) PruneOld(ctx context.Context, minImportance, maxAgeDays int) (int64, error) {
	if m.Unavailable {
		return 0, ErrUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -maxAgeDays)
	var pruned int64
	for _, mem := range m.memories {
		if !m.active(mem) || mem.Importance >= minImportance || !mem.Created.Before(cutoff) {
			continue
		}
		mem.Forgotten = true
		mem.DeleteReason = "maintenance-pruned"
		mem.Content = ""
		mem.Summary = ""
		pruned++
	}
	return pruned, nil
}

func (m *MockGraph) LinkSession(ctx context.Context, s models.Session) error {
	if m.Unavailable {
		return ErrUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := s
	m.sessions[s.ID] = &stored
	return nil
}

func (m *MockGraph) CloseSession(ctx context.Context, id, summary, endedAt string) error {
	if m.Unavailable {
		return ErrUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.EndedAt = endedAt
		s.Summary = summary
	}
	return nil
}

func (m *MockGraph) Overview(ctx context.Context) (*models.Overview, error) {
	if m.Unavailable {
		return nil, ErrUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	overview := &models.Overview{TopEntities: []models.EntityCount{}, Projects: []string{}}
	projects := map[string]bool{}
	for _, mem := range m.memories {
		if m.active(mem) {
			overview.TotalMemories++
		}
		if mem.Project != "" {
			projects[mem.Project] = true
		}
	}
	for p := range projects {
		overview.Projects = append(overview.Projects, p)
	}
	sort.Strings(overview.Projects)
	return overview, nil
}

func (m *MockGraph) Close(ctx context.Context) error { return nil }
