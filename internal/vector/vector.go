// Package vector provides the semantic index layer. The graph remains
// authoritative for activeness; this layer only stores embeddings and
// answers similarity queries.
package vector

import "context"

// QueryResult is one similarity hit. Distance is the raw L2 distance from
// the index; callers map it to a similarity score.
type QueryResult struct {
	ID       string
	Document string
	Distance float64
	Metadata map[string]any
}

// Store is the contract for the semantic index.
type Store interface {
	// Health reports whether the store answers within the health-check budget.
	Health(ctx context.Context) bool

	// Add inserts a document with a pre-computed embedding.
	Add(ctx context.Context, id string, embedding []float64, document string, metadata map[string]string) error

	// Update re-writes an existing document and its embedding.
	Update(ctx context.Context, id string, embedding []float64, document string, metadata map[string]string) error

	// Query returns up to n nearest neighbours of the embedding. A non-nil
	// where map restricts matches by metadata equality.
	Query(ctx context.Context, embedding []float64, n int, where map[string]string) ([]QueryResult, error)
}

// SanitizeMetadata drops nil and empty values; vector stores reject them.
func SanitizeMetadata(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
