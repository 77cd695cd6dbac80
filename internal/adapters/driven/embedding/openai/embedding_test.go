package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbeddingProvider_RequiresKey(t *testing.T) {
	_, err := NewEmbeddingProvider(Config{})
	assert.Error(t, err)
}

func TestEmbed_OrdersByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 1536, req.Dimensions)
		w.Write([]byte(`{"data":[{"index":1,"embedding":[2]},{"index":0,"embedding":[1]}]}`)) //nolint:errcheck
	}))
	defer server.Close()

	p, err := NewEmbeddingProvider(Config{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	got, err := p.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, got)
}

func TestEmbed_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"auth"}}`)) //nolint:errcheck
	}))
	defer server.Close()

	p, err := NewEmbeddingProvider(Config{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, "bad key")
}

func TestEmbed_MissingIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":[{"index":0,"embedding":[1]}]}`)) //nolint:errcheck
	}))
	defer server.Close()

	p, err := NewEmbeddingProvider(Config{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}
