package services

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
)

func TestProviderRegistry_BuildsOnceUnderConcurrency(t *testing.T) {
	var embedBuilds, llmBuilds atomic.Int32
	registry := NewProviderRegistry(
		func() (driven.EmbeddingProvider, error) {
			embedBuilds.Add(1)
			return zeroEmbedder(), nil
		},
		func() (driven.LLMProvider, error) {
			llmBuilds.Add(1)
			return &scriptedLLM{}, nil
		},
	)

	var wg sync.WaitGroup
	embedders := make([]driven.EmbeddingProvider, 32)
	llms := make([]driven.LLMProvider, 32)
	for i := range embedders {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			embedders[i], _ = registry.Embedding()
			llms[i], _ = registry.LLM()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), embedBuilds.Load())
	assert.Equal(t, int32(1), llmBuilds.Load())
	for i := range embedders {
		assert.Same(t, embedders[0], embedders[i])
		assert.Same(t, llms[0], llms[i])
	}
}

func TestProviderRegistry_NilFactories(t *testing.T) {
	registry := NewProviderRegistry(nil, nil)

	embedder, err := registry.Embedding()
	assert.Nil(t, embedder)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	llm, err := registry.LLM()
	assert.Nil(t, llm)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestProviderRegistry_FactoryErrorIsRemembered(t *testing.T) {
	var builds atomic.Int32
	boom := errors.New("no api key")
	registry := NewProviderRegistry(nil, func() (driven.LLMProvider, error) {
		builds.Add(1)
		return nil, boom
	})

	for range 3 {
		_, err := registry.LLM()
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, int32(1), builds.Load())
}

func TestStaticProviders(t *testing.T) {
	embedder := zeroEmbedder()
	registry := StaticProviders(embedder, nil)

	got, err := registry.Embedding()
	require.NoError(t, err)
	assert.Same(t, embedder, got)

	_, err = registry.LLM()
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}
