package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/veritas/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
)

func TestNewSettingsService(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding, settings.Embedding)
	assert.Equal(t, defaults.LLM, settings.LLM)
	assert.Equal(t, defaults.Storage, settings.Storage)
	assert.Equal(t, defaults.Answer, settings.Answer)
	assert.Equal(t, map[string]any{}, settings.Policy)
}

func TestSettingsService_Get_ReadsAllFields(t *testing.T) {
	store := memory.NewConfigStore()
	values := map[string]any{
		"embedding.provider":          "openai",
		"embedding.model":             "text-embedding-3-small",
		"embedding.api_key":           "sk-embed",
		"embedding.dimensions":        1536,
		"llm.provider":                "anthropic",
		"llm.model":                   "claude-3-5-sonnet-latest",
		"llm.api_key":                 "sk-llm",
		"llm.requests_per_minute":     30,
		"storage.backend":             "postgres",
		"storage.database_url":        "postgres://localhost/veritas",
		"answer.min_merged_score":     0.5,
		"answer.grounding":            "soft",
		"answer.min_overlap":          0.2,
		"answer.min_claim_confidence": 0.7,
		"answer.fuzzy_overlap":        false,
		"answer.cache_ttl":            "10m",
		"policy.allowed_domains":      []string{"acme.test"},
		"policy.max_depth":            3,
	}
	for k, v := range values {
		require.NoError(t, store.Set(k, v))
	}

	settings, err := NewSettingsService(store, nil).Get()

	require.NoError(t, err)
	assert.Equal(t, domain.EmbeddingSettings{
		Provider: domain.AIProviderOpenAI, Model: "text-embedding-3-small", APIKey: "sk-embed", Dimensions: 1536,
	}, settings.Embedding)
	assert.Equal(t, domain.LLMSettings{
		Provider: domain.AIProviderAnthropic, Model: "claude-3-5-sonnet-latest", APIKey: "sk-llm", RequestsPerMinute: 30,
	}, settings.LLM)
	assert.Equal(t, domain.StoragePostgres, settings.Storage.Backend)
	assert.Equal(t, "postgres://localhost/veritas", settings.Storage.DatabaseURL)
	assert.Equal(t, domain.AnswerSettings{
		MinMergedScore: 0.5,
		Grounding:      domain.GroundingSoft,
		Thresholds:     domain.GroundingThresholds{MinOverlap: 0.2, MinClaimConfidence: 0.7},
		FuzzyOverlap:   false,
		CacheTTL:       10 * time.Minute,
	}, settings.Answer)
	assert.Equal(t, map[string]any{"allowed_domains": []string{"acme.test"}, "max_depth": 3}, settings.Policy)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	require.NoError(t, store.Set("embedding.provider", "invalid_provider"))
	require.NoError(t, store.Set("storage.backend", "mongodb"))
	require.NoError(t, store.Set("answer.grounding", "lenient"))
	require.NoError(t, store.Set("answer.cache_ttl", "forever"))

	settings, err := NewSettingsService(store, nil).Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.Storage.Backend, settings.Storage.Backend)
	assert.Equal(t, defaults.Answer.Grounding, settings.Answer.Grounding)
	assert.Zero(t, settings.Answer.CacheTTL)
}

func TestSettingsService_Get_ZeroThresholdIsKept(t *testing.T) {
	store := memory.NewConfigStore()
	require.NoError(t, store.Set("answer.min_merged_score", 0))

	settings, err := NewSettingsService(store, nil).Get()

	require.NoError(t, err)
	assert.Zero(t, settings.Answer.MinMergedScore, "an explicit zero must not fall back to the default")
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)
	want := domain.DefaultAppSettings()
	want.LLM = domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.2", BaseURL: "http://gpu:11434", RequestsPerMinute: 12}
	want.Storage.DataDir = "/var/lib/veritas"
	want.Answer.Grounding = domain.GroundingSoft
	want.Answer.CacheTTL = time.Hour

	require.NoError(t, service.Save(&want))
	got, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, want.LLM, got.LLM)
	assert.Equal(t, want.Storage, got.Storage)
	assert.Equal(t, want.Answer, got.Answer)
}

func TestSettingsService_Save_EmptySecretsAreNotWritten(t *testing.T) {
	store := memory.NewConfigStore()
	require.NoError(t, store.Set("llm.api_key", "keep-me"))
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	require.NoError(t, service.Save(&settings))

	assert.Equal(t, "keep-me", store.GetString("llm.api_key"))
	_, exists := store.Get("storage.database_url")
	assert.False(t, exists)
}

// failingConfigStore fails Set for one key.
type failingConfigStore struct {
	driven.ConfigStore
	failOn string
}

func (f *failingConfigStore) Set(key string, value any) error {
	if key == f.failOn {
		return assert.AnError
	}
	return f.ConfigStore.Set(key, value)
}

func TestSettingsService_Save_PropagatesStoreErrors(t *testing.T) {
	for _, key := range []string{"embedding.provider", "llm.model", "storage.backend", "answer.grounding", "answer.cache_ttl"} {
		t.Run(key, func(t *testing.T) {
			store := &failingConfigStore{ConfigStore: memory.NewConfigStore(), failOn: key}
			settings := domain.DefaultAppSettings()

			err := NewSettingsService(store, nil).Save(&settings)

			assert.ErrorIs(t, err, assert.AnError)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	t.Run("ollama gets default url and dimensions", func(t *testing.T) {
		store := memory.NewConfigStore()
		service := NewSettingsService(store, nil)

		require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOllama, "nomic-embed-text", ""))

		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
		assert.Equal(t, defaultOllamaURL, settings.Embedding.BaseURL)
		assert.Equal(t, 768, settings.Embedding.Dimensions)
	})

	t.Run("preserves existing ollama url", func(t *testing.T) {
		store := memory.NewConfigStore()
		require.NoError(t, store.Set("embedding.base_url", "http://custom:11434"))
		service := NewSettingsService(store, nil)

		require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOllama, "", ""))

		assert.Equal(t, "http://custom:11434", store.GetString("embedding.base_url"))
		assert.Equal(t, "all-minilm", store.GetString("embedding.model"))
	})

	t.Run("cloud provider clears url", func(t *testing.T) {
		store := memory.NewConfigStore()
		require.NoError(t, store.Set("embedding.base_url", "http://custom:11434"))
		service := NewSettingsService(store, nil)

		require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderGemini, "", "key"))

		assert.Empty(t, store.GetString("embedding.base_url"))
		assert.Equal(t, "text-embedding-004", store.GetString("embedding.model"))
		assert.Equal(t, 768, store.GetInt("embedding.dimensions"))
	})

	t.Run("rejections", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)
		assert.Error(t, service.SetEmbeddingProvider("bogus", "", ""))
		assert.Error(t, service.SetEmbeddingProvider(domain.AIProviderAnthropic, "", "key"))
		assert.Error(t, service.SetEmbeddingProvider(domain.AIProviderOpenAI, "", ""))
	})
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderAnthropic, "", "sk-ant"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderAnthropic, settings.LLM.Provider)
	assert.Equal(t, "claude-3-5-sonnet-latest", settings.LLM.Model)
	assert.Equal(t, "sk-ant", settings.LLM.APIKey)
	assert.Empty(t, settings.LLM.BaseURL)

	assert.Error(t, service.SetLLMProvider("bogus", "", ""))
	assert.Error(t, service.SetLLMProvider(domain.AIProviderOpenAI, "", ""))
	assert.NoError(t, service.SetLLMProvider(domain.AIProviderDeterministic, "", ""))
}

func TestSettingsService_SetGroundingMode(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	require.NoError(t, service.SetGroundingMode(domain.GroundingSoft))
	assert.Equal(t, "soft", store.GetString("answer.grounding"))

	assert.Error(t, service.SetGroundingMode("lenient"))
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.AppSettings)
		wantErr error
	}{
		{"defaults", func(*domain.AppSettings) {}, nil},
		{"embedding key missing", func(s *domain.AppSettings) {
			s.Embedding.Provider = domain.AIProviderOpenAI
		}, domain.ErrEmbeddingUnavailable},
		{"anthropic cannot embed", func(s *domain.AppSettings) {
			s.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"}
		}, domain.ErrEmbeddingUnavailable},
		{"llm key missing", func(s *domain.AppSettings) {
			s.LLM.Provider = domain.AIProviderGemini
		}, domain.ErrLLMUnavailable},
		{"unknown backend", func(s *domain.AppSettings) {
			s.Storage.Backend = "mongodb"
		}, domain.ErrUnsupportedType},
		{"postgres without url", func(s *domain.AppSettings) {
			s.Storage.Backend = domain.StoragePostgres
		}, domain.ErrInvalidInput},
		{"unknown grounding mode", func(s *domain.AppSettings) {
			s.Answer.Grounding = "lenient"
		}, domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := domain.DefaultAppSettings()
			tt.mutate(&settings)
			err := ValidateSettings(&settings)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSettingsService_Validate_UsesStoredSettings(t *testing.T) {
	store := memory.NewConfigStore()
	require.NoError(t, store.Set("storage.backend", "postgres"))

	err := NewSettingsService(store, nil).Validate()

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)
	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}

// mockAIConfigValidator implements driven.AIConfigValidator for testing.
type mockAIConfigValidator struct {
	embedErr error
	llmErr   error
	calls    int
}

func (m *mockAIConfigValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error {
	m.calls++
	return m.embedErr
}

func (m *mockAIConfigValidator) ValidateLLM(_ *domain.LLMSettings) error {
	m.calls++
	return m.llmErr
}

func TestSettingsService_ValidateProviderConfigs(t *testing.T) {
	t.Run("nil validator", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)
		assert.NoError(t, service.ValidateEmbeddingConfig())
		assert.NoError(t, service.ValidateLLMConfig())
	})

	t.Run("delegates", func(t *testing.T) {
		validator := &mockAIConfigValidator{embedErr: assert.AnError}
		service := NewSettingsService(memory.NewConfigStore(), validator)
		assert.ErrorIs(t, service.ValidateEmbeddingConfig(), assert.AnError)
		assert.NoError(t, service.ValidateLLMConfig())
		assert.Equal(t, 2, validator.calls)
	})
}
