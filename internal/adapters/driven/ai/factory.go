// Package ai provides factory functions for creating AI provider adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	detembed "github.com/custodia-labs/veritas/internal/adapters/driven/embedding/deterministic"
	ollamaembed "github.com/custodia-labs/veritas/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/veritas/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/veritas/internal/adapters/driven/gemini"
	anthropicllm "github.com/custodia-labs/veritas/internal/adapters/driven/llm/anthropic"
	detllm "github.com/custodia-labs/veritas/internal/adapters/driven/llm/deterministic"
	ollamallm "github.com/custodia-labs/veritas/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/veritas/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/veritas/internal/adapters/driven/llm/ratelimit"
	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
	"github.com/custodia-labs/veritas/internal/core/services"
	"github.com/custodia-labs/veritas/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// pinger is implemented by providers that can check connectivity cheaply.
type pinger interface {
	Ping(ctx context.Context) error
}

// NewProviderRegistry returns a registry whose providers are built from
// settings on first use.
func NewProviderRegistry(settings *domain.AppSettings) *services.ProviderRegistry {
	embed := settings.Embedding
	llm := settings.LLM
	return services.NewProviderRegistry(
		func() (driven.EmbeddingProvider, error) {
			logger.Debug("building %s embedding provider", embed.Provider)
			return CreateEmbeddingProvider(&embed)
		},
		func() (driven.LLMProvider, error) {
			logger.Debug("building %s LLM provider", llm.Provider)
			p, err := CreateLLMProvider(&llm)
			if err != nil || p == nil {
				return p, err
			}
			return ratelimit.Wrap(p, llm.RequestsPerMinute), nil
		},
	)
}

// CreateEmbeddingProvider creates the embedding provider selected by settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingProvider(settings *domain.EmbeddingSettings) (driven.EmbeddingProvider, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderDeterministic:
		return detembed.NewEmbeddingProvider(settings.Dimensions), nil

	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingProvider(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: embeddingDimensions(settings),
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingProvider(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: embeddingDimensions(settings),
		})

	case domain.AIProviderGemini:
		return gemini.NewEmbeddingProvider(context.Background(), gemini.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: embeddingDimensions(settings),
		})

	default:
		return nil, fmt.Errorf("%w: embedding provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateLLMProvider creates the LLM provider selected by settings.
// Returns nil if the provider is not configured.
func CreateLLMProvider(settings *domain.LLMSettings) (driven.LLMProvider, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderDeterministic:
		return detllm.NewLLMProvider(), nil

	case domain.AIProviderOllama:
		return ollamallm.NewLLMProvider(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMProvider(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMProvider(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderGemini:
		return gemini.NewLLMProvider(context.Background(), gemini.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("%w: LLM provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}

// ValidateEmbeddingConfig creates the configured embedding provider and pings it.
// This is intended for use by the settings command to validate credentials.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	p, err := CreateEmbeddingProvider(settings)
	if err != nil {
		return fmt.Errorf("%w: %w. Run 'veritas settings' to fix", domain.ErrEmbeddingUnavailable, err)
	}
	return pingProvider(p)
}

// ValidateLLMConfig creates the configured LLM provider and pings it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	p, err := CreateLLMProvider(settings)
	if err != nil {
		return fmt.Errorf("%w: %w. Run 'veritas settings' to fix", domain.ErrLLMUnavailable, err)
	}
	return pingProvider(p)
}

// pingProvider pings p if it supports it. Offline providers pass trivially.
func pingProvider(p any) error {
	pg, ok := p.(pinger)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return pg.Ping(ctx)
}

// embeddingDimensions prefers the configured size, then the model's known size.
func embeddingDimensions(settings *domain.EmbeddingSettings) int {
	if settings.Dimensions > 0 && settings.Dimensions != domain.DefaultEmbeddingDimensions {
		return settings.Dimensions
	}
	if d, ok := domain.EmbeddingDimensions()[settings.Model]; ok {
		return d
	}
	return settings.Dimensions
}
