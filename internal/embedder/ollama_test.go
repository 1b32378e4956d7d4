package embedder

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOllamaEmbed(t *testing.T) {
	var got ollamaEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float64{{0.1, 0.2, 0.3}}})
	}))
	defer srv.Close()

	emb := NewOllamaEmbedder(srv.URL, "nomic-embed-text", testLogger())
	vec, err := emb.Embed(context.Background(), "hello world")
	require.NoError(t, err)

	assert.Equal(t, "nomic-embed-text", got.Model)
	assert.Equal(t, "hello world", got.Input)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
}

func TestOllamaEmbedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusInternalServerError)
	}))
	defer srv.Close()

	emb := NewOllamaEmbedder(srv.URL, "nomic-embed-text", testLogger())
	_, err := emb.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestOllamaEmbedEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{})
	}))
	defer srv.Close()

	emb := NewOllamaEmbedder(srv.URL, "nomic-embed-text", testLogger())
	_, err := emb.Embed(context.Background(), "hello")
	require.Error(t, err)
}

func TestOllamaEmbedUnreachable(t *testing.T) {
	emb := NewOllamaEmbedder("http://127.0.0.1:1", "nomic-embed-text", testLogger())
	_, err := emb.Embed(context.Background(), "hello")
	require.Error(t, err)
}
