package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
)

func TestNewConfigValidator(t *testing.T) {
	validator := NewConfigValidator()

	require.NotNil(t, validator)
}

func TestConfigValidator_ImplementsInterface(t *testing.T) {
	var _ driven.AIConfigValidator = (*ConfigValidator)(nil)
}

func TestConfigValidator_NilConfig(t *testing.T) {
	validator := NewConfigValidator()

	// nil config returns nil (nothing to validate)
	assert.NoError(t, validator.ValidateEmbedding(nil))
	assert.NoError(t, validator.ValidateLLM(nil))
}

func TestConfigValidator_UnconfiguredProvider(t *testing.T) {
	validator := NewConfigValidator()

	assert.NoError(t, validator.ValidateEmbedding(&domain.EmbeddingSettings{Model: "test-model"}))
	assert.NoError(t, validator.ValidateLLM(&domain.LLMSettings{Model: "test-model"}))
}

func TestConfigValidator_Deterministic(t *testing.T) {
	validator := NewConfigValidator()

	assert.NoError(t, validator.ValidateEmbedding(&domain.EmbeddingSettings{Provider: domain.AIProviderDeterministic}))
	assert.NoError(t, validator.ValidateLLM(&domain.LLMSettings{Provider: domain.AIProviderDeterministic}))
}
