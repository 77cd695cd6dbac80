package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/custodia-labs/veritas/internal/core/ports/driven"
)

var _ driven.EmbeddingProvider = (*EmbeddingProvider)(nil)

// EmbeddingProvider generates embeddings with the Gemini embedding models.
type EmbeddingProvider struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewEmbeddingProvider creates a Gemini embedding provider.
func NewEmbeddingProvider(ctx context.Context, cfg Config) (*EmbeddingProvider, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultEmbeddingModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	c, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &EmbeddingProvider{client: c, model: cfg.Model, dimensions: cfg.Dimensions}, nil
}

// Embed generates one embedding per text in a single batch call.
func (p *EmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	resp, err := p.client.Models.EmbedContent(ctx, p.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(int32(p.dimensions)),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = append([]float32(nil), e.Values...)
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (p *EmbeddingProvider) Dimensions() int {
	return p.dimensions
}

// Ping checks that the configured model is reachable with the API key.
func (p *EmbeddingProvider) Ping(ctx context.Context) error {
	return ping(ctx, p.client, p.model)
}
