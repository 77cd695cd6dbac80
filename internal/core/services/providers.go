package services

import (
	"fmt"
	"sync"

	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
)

// EmbeddingFactory builds an embedding provider on first use.
type EmbeddingFactory func() (driven.EmbeddingProvider, error)

// LLMFactory builds an LLM provider on first use.
type LLMFactory func() (driven.LLMProvider, error)

// ProviderRegistry owns the process-wide embedding and LLM providers.
// Each provider is built at most once, on first use, even under concurrent
// first calls. A failed build is remembered and returned on every call.
type ProviderRegistry struct {
	embedFactory EmbeddingFactory
	llmFactory   LLMFactory

	embedOnce sync.Once
	embedder  driven.EmbeddingProvider
	embedErr  error

	llmOnce sync.Once
	llm     driven.LLMProvider
	llmErr  error
}

// NewProviderRegistry creates a registry from factories. A nil factory makes
// the corresponding provider unavailable.
func NewProviderRegistry(embed EmbeddingFactory, llm LLMFactory) *ProviderRegistry {
	return &ProviderRegistry{embedFactory: embed, llmFactory: llm}
}

// StaticProviders wraps already constructed providers in a registry.
func StaticProviders(embed driven.EmbeddingProvider, llm driven.LLMProvider) *ProviderRegistry {
	r := &ProviderRegistry{}
	if embed != nil {
		r.embedFactory = func() (driven.EmbeddingProvider, error) { return embed, nil }
	}
	if llm != nil {
		r.llmFactory = func() (driven.LLMProvider, error) { return llm, nil }
	}
	return r
}

// Embedding returns the embedding provider, building it on first call.
func (r *ProviderRegistry) Embedding() (driven.EmbeddingProvider, error) {
	r.embedOnce.Do(func() {
		if r.embedFactory == nil {
			r.embedErr = domain.ErrEmbeddingUnavailable
			return
		}
		p, err := r.embedFactory()
		switch {
		case err != nil:
			r.embedErr = fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		case p == nil:
			r.embedErr = domain.ErrEmbeddingUnavailable
		default:
			r.embedder = p
		}
	})
	return r.embedder, r.embedErr
}

// LLM returns the LLM provider, building it on first call.
func (r *ProviderRegistry) LLM() (driven.LLMProvider, error) {
	r.llmOnce.Do(func() {
		if r.llmFactory == nil {
			r.llmErr = domain.ErrLLMUnavailable
			return
		}
		p, err := r.llmFactory()
		switch {
		case err != nil:
			r.llmErr = fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
		case p == nil:
			r.llmErr = domain.ErrLLMUnavailable
		default:
			r.llm = p
		}
	})
	return r.llm, r.llmErr
}
