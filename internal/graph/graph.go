// Package graph persists memory nodes and their entity/tag/project/session
// relationships, and provides the full-text search surfaces. The graph is
// authoritative for which memories are active.
package graph

import (
	"context"
	"errors"

	"github.com/eva-agent/eva-memory/internal/models"
)

// ErrUnavailable is returned when the graph database cannot be reached or
// is not configured.
var ErrUnavailable = errors.New("graph unavailable")

// Filters narrows a search surface. Empty fields mean no filter.
type Filters struct {
	Project string
	Type    string
}

// PageOptions controls the paginated listing. SortBy and SortOrder are
// validated against allowlists before being interpolated into the query.
type PageOptions struct {
	Project   string
	Type      string
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// UpdateFields carries the mutable fields of an update; nil pointers are
// left untouched.
type UpdateFields struct {
	Content    *string
	Summary    *string
	Type       *string
	Importance *int
	Project    *string
	Confidence *float64
	DecayDays  *int
}

// Store is the graph layer contract.
type Store interface {
	// UpsertMemory merges the memory node, its relationships, and the
	// supersedes tombstone when set.
	UpsertMemory(ctx context.Context, mem models.Memory) error

	// Forget soft-deletes a memory: content and summary are erased, the
	// node stays for the audit trail.
	Forget(ctx context.Context, id, reason string) error

	// Update sets the given fields and stamps updated. When entities is
	// non-empty, MENTIONS edges are merged (existing edges are kept).
	Update(ctx context.Context, id string, fields UpdateFields, entities []string) error

	// FulltextMemory searches the content+summary index. Active only.
	FulltextMemory(ctx context.Context, query string, f Filters, limit int) ([]models.SearchResult, error)

	// FulltextEntity searches entity names and returns the memories that
	// mention them, score scaled by 0.8. Active only.
	FulltextEntity(ctx context.Context, query string, f Filters, limit int) ([]models.SearchResult, error)

	// TopFulltext returns the single best fulltext hit, optionally
	// restricted by type. Returns nil when there is no hit.
	TopFulltext(ctx context.Context, query, memType string) (*models.SearchResult, error)

	// AutoRecall returns active non-instruction memories of at least
	// minImportance, ordered by importance desc then created desc.
	AutoRecall(ctx context.Context, project string, minImportance, limit int) ([]models.SearchResult, error)

	// Instructions returns all active instruction memories, importance desc.
	Instructions(ctx context.Context, project string) ([]models.SearchResult, error)

	// ListEntities returns top entities by MENTIONS count.
	ListEntities(ctx context.Context, limit int) ([]models.EntityCount, error)

	// FilterActive returns the subset of ids that are active. It fails
	// open: on graph unavailability the full input set is returned.
	FilterActive(ctx context.Context, ids []string) []string

	// Page returns one page of active memories plus the total count.
	Page(ctx context.Context, opts PageOptions) ([]models.MemoryRow, int64, error)

	// GetByID returns the full property map of one active memory, or nil.
	GetByID(ctx context.Context, id string) (map[string]any, error)

	// Recent returns full property maps of active memories, newest first.
	Recent(ctx context.Context, memType, project string, limit int) ([]map[string]any, error)

	// TopByImportance returns active memories ordered by importance desc.
	TopByImportance(ctx context.Context, project string, limit int) ([]models.SearchResult, error)

	// PruneOld soft-deletes active memories below minImportance created
	// before the cutoff, with deleteReason "maintenance-pruned".
	PruneOld(ctx context.Context, minImportance, maxAgeDays int) (int64, error)

	// LinkSession merges the session node and its project link.
	LinkSession(ctx context.Context, s models.Session) error

	// CloseSession stamps endedAt and the summary on the session node.
	CloseSession(ctx context.Context, id, summary, endedAt string) error

	// Overview returns the totals shown on sync-start.
	Overview(ctx context.Context) (*models.Overview, error)

	// Close releases the underlying driver.
	Close(ctx context.Context) error
}
