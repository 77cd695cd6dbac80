// Package gemini provides embedding and LLM provider adapters backed by the
// Google Gemini API.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Default configuration values.
const (
	DefaultEmbeddingModel = "text-embedding-004"
	DefaultLLMModel       = "gemini-2.5-flash"
	DefaultDimensions     = 768
)

// Config holds configuration shared by the Gemini providers.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the model name. Each provider has its own default.
	Model string

	// BaseURL overrides the API endpoint. Used by tests.
	BaseURL string

	// Dimensions is the embedding output size (embedding provider only).
	Dimensions int
}

func newClient(ctx context.Context, cfg Config) (*genai.Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	c, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return c, nil
}

func ping(ctx context.Context, c *genai.Client, model string) error {
	if _, err := c.Models.Get(ctx, model, nil); err != nil {
		return fmt.Errorf("gemini: ping failed: %w", err)
	}
	return nil
}
