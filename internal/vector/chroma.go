package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	healthTimeout = 500 * time.Millisecond
	writeTimeout  = 10 * time.Second
	queryTimeout  = 10 * time.Second
)

// ChromaStore implements Store using the Chroma v2 HTTP API.
type ChromaStore struct {
	baseURL    string
	collection string
	client     *http.Client
	logger     *slog.Logger
}

// NewChromaStore creates a new Chroma-backed store. baseURL is the server
// root; collection is the collection id.
func NewChromaStore(baseURL, collection string, logger *slog.Logger) *ChromaStore {
	return &ChromaStore{
		baseURL:    baseURL,
		collection: collection,
		client:     &http.Client{},
		logger:     logger,
	}
}

func (c *ChromaStore) collectionURL(op string) string {
	return fmt.Sprintf("%s/api/v2/tenants/default_tenant/databases/default_database/collections/%s/%s",
		c.baseURL, c.collection, op)
}

// Health issues a heartbeat request with a tight timeout.
func (c *ChromaStore) Health(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v2/heartbeat", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type chromaWriteRequest struct {
	IDs        []string            `json:"ids"`
	Embeddings [][]float64         `json:"embeddings"`
	Documents  []string            `json:"documents"`
	Metadatas  []map[string]string `json:"metadatas,omitempty"`
}

func (c *ChromaStore) write(ctx context.Context, op, id string, embedding []float64, document string, metadata map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	body := chromaWriteRequest{
		IDs:        []string{id},
		Embeddings: [][]float64{embedding},
		Documents:  []string{document},
	}
	if meta := SanitizeMetadata(metadata); len(meta) > 0 {
		body.Metadatas = []map[string]string{meta}
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.collectionURL(op), bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling vector API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("vector API %s returned %d: %s", op, resp.StatusCode, string(respBody))
	}

	c.logger.Debug("vector write ok", "op", op, "id", id)
	return nil
}

func (c *ChromaStore) Add(ctx context.Context, id string, embedding []float64, document string, metadata map[string]string) error {
	return c.write(ctx, "add", id, embedding, document, metadata)
}

func (c *ChromaStore) Update(ctx context.Context, id string, embedding []float64, document string, metadata map[string]string) error {
	return c.write(ctx, "update", id, embedding, document, metadata)
}

type chromaQueryRequest struct {
	QueryEmbeddings [][]float64       `json:"query_embeddings"`
	NResults        int               `json:"n_results"`
	Include         []string          `json:"include"`
	Where           map[string]string `json:"where,omitempty"`
}

type chromaQueryResponse struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]string         `json:"documents"`
	Distances [][]float64        `json:"distances"`
	Metadatas [][]map[string]any `json:"metadatas"`
}

func (c *ChromaStore) Query(ctx context.Context, embedding []float64, n int, where map[string]string) ([]QueryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	body := chromaQueryRequest{
		QueryEmbeddings: [][]float64{embedding},
		NResults:        n,
		Include:         []string{"documents", "metadatas", "distances"},
		Where:           where,
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.collectionURL("query"), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling vector API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("vector API query returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result chromaQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(result.IDs) == 0 || len(result.IDs[0]) == 0 {
		return nil, nil
	}

	hits := make([]QueryResult, 0, len(result.IDs[0]))
	for i, id := range result.IDs[0] {
		hit := QueryResult{ID: id, Distance: 1.0}
		if len(result.Documents) > 0 && i < len(result.Documents[0]) {
			hit.Document = result.Documents[0][i]
		}
		if len(result.Distances) > 0 && i < len(result.Distances[0]) {
			hit.Distance = result.Distances[0][i]
		}
		if len(result.Metadatas) > 0 && i < len(result.Metadatas[0]) {
			hit.Metadata = result.Metadatas[0][i]
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
