package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
)

var _ driven.LLMProvider = (*LLMProvider)(nil)

// LLMProvider generates answer drafts with a Gemini model in JSON mode.
type LLMProvider struct {
	client *genai.Client
	model  string
}

// NewLLMProvider creates a Gemini LLM provider.
func NewLLMProvider(ctx context.Context, cfg Config) (*LLMProvider, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	c, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &LLMProvider{client: c, model: cfg.Model}, nil
}

// Generate sends prompt and returns the model's JSON text.
func (p *LLMProvider) Generate(ctx context.Context, prompt string, _ []domain.EvidenceItem) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("gemini: empty response")
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini: model returned empty text")
	}
	return text, nil
}

// ModelName returns the model in use.
func (p *LLMProvider) ModelName() string {
	return p.model
}

// Ping checks that the configured model is reachable with the API key.
func (p *LLMProvider) Ping(ctx context.Context) error {
	return ping(ctx, p.client, p.model)
}
