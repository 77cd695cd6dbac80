package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbed_Batch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req.Model)
		assert.Equal(t, []string{"a", "b"}, req.Input)
		w.Write([]byte(`{"embeddings":[[0.5,1],[0,-1]]}`)) //nolint:errcheck
	}))
	defer server.Close()

	p := NewEmbeddingProvider(Config{BaseURL: server.URL})
	got, err := p.Embed(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5, 1}, {0, -1}}, got)
	assert.Equal(t, DefaultDimensions, p.Dimensions())
}

func TestEmbed_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"embeddings":[[1]]}`)) //nolint:errcheck
	}))
	defer server.Close()

	_, err := NewEmbeddingProvider(Config{BaseURL: server.URL}).Embed(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestEmbed_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	p := NewEmbeddingProvider(Config{BaseURL: server.URL})
	_, err := p.Embed(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, "model not found")
	assert.Error(t, p.Ping(context.Background()))
}
