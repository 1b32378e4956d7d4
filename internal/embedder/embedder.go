// Package embedder turns text into fixed-dimension vectors via an external
// embedding service.
package embedder

import "context"

// Embedder generates vector embeddings from text.
type Embedder interface {
	// Embed returns a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float64, error)
}
