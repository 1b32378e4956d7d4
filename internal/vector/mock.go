package vector

import (
	"context"
	"errors"
	"sync"
)

var errMockDown = errors.New("vector store down")

// MockStore is an in-memory Store for tests.
type MockStore struct {
	mu   sync.Mutex
	docs map[string]mockDoc

	// Healthy controls the health check; Fail makes writes and queries
	// error like an unreachable server.
	Healthy bool
	Fail    bool

	// Hits is returned by Query when set, bypassing the stored docs.
	Hits []QueryResult
}

type mockDoc struct {
	embedding []float64
	document  string
	metadata  map[string]string
}

func NewMockStore() *MockStore {
	return &MockStore{docs: make(map[string]mockDoc), Healthy: true}
}

// Len returns the number of stored documents.
func (m *MockStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

// Has reports whether an id has been written.
func (m *MockStore) Has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[id]
	return ok
}

func (m *MockStore) Health(ctx context.Context) bool {
	return m.Healthy
}

func (m *MockStore) Add(ctx context.Context, id string, embedding []float64, document string, metadata map[string]string) error {
	if m.Fail {
		return errMockDown
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = mockDoc{embedding: embedding, document: document, metadata: SanitizeMetadata(metadata)}
	return nil
}

func (m *MockStore) Update(ctx context.Context, id string, embedding []float64, document string, metadata map[string]string) error {
	return m.Add(ctx, id, embedding, document, metadata)
}

func (m *MockStore) Query(ctx context.Context, embedding []float64, n int, where map[string]string) ([]QueryResult, error) {
	if m.Fail {
		return nil, errMockDown
	}
	hits := m.Hits
	if n > 0 && len(hits) > n {
		hits = hits[:n]
	}
	return hits, nil
}
