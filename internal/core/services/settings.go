package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
	"github.com/custodia-labs/veritas/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider      = "embedding.provider"
	keyEmbedModel         = "embedding.model"
	keyEmbedBaseURL       = "embedding.base_url"
	keyEmbedAPIKey        = "embedding.api_key"
	keyEmbedDimensions    = "embedding.dimensions"
	keyLLMProvider        = "llm.provider"
	keyLLMModel           = "llm.model"
	keyLLMBaseURL         = "llm.base_url"
	keyLLMAPIKey          = "llm.api_key"
	keyLLMRequestsPerMin  = "llm.requests_per_minute"
	keyStorageBackend     = "storage.backend"
	keyStorageDataDir     = "storage.data_dir"
	keyStorageDatabaseURL = "storage.database_url"
	keyMinMergedScore     = "answer.min_merged_score"
	keyGroundingMode      = "answer.grounding"
	keyMinOverlap         = "answer.min_overlap"
	keyMinConfidence      = "answer.min_claim_confidence"
	keyFuzzyOverlap       = "answer.fuzzy_overlap"
	keyCacheTTL           = "answer.cache_ttl"
	keyPolicy             = "policy"
)

const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.getInt(keyEmbedDimensions, defaults.Embedding.Dimensions),
		},
		LLM: domain.LLMSettings{
			Provider:          s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:             s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:           s.configStore.GetString(keyLLMBaseURL),
			APIKey:            s.configStore.GetString(keyLLMAPIKey),
			RequestsPerMinute: s.configStore.GetInt(keyLLMRequestsPerMin),
		},
		Storage: domain.StorageSettings{
			Backend:     s.getBackend(defaults.Storage.Backend),
			DataDir:     s.configStore.GetString(keyStorageDataDir),
			DatabaseURL: s.configStore.GetString(keyStorageDatabaseURL),
		},
		Answer: domain.AnswerSettings{
			MinMergedScore: s.getFloat(keyMinMergedScore, defaults.Answer.MinMergedScore),
			Grounding:      s.getGroundingMode(defaults.Answer.Grounding),
			Thresholds: domain.GroundingThresholds{
				MinOverlap:         s.getFloat(keyMinOverlap, defaults.Answer.Thresholds.MinOverlap),
				MinClaimConfidence: s.getFloat(keyMinConfidence, defaults.Answer.Thresholds.MinClaimConfidence),
			},
			FuzzyOverlap: s.getBool(keyFuzzyOverlap, defaults.Answer.FuzzyOverlap),
			CacheTTL:     s.getDuration(keyCacheTTL, defaults.Answer.CacheTTL),
		},
		Policy: defaults.Policy,
	}
	if policy := s.configStore.GetMap(keyPolicy); policy != nil {
		settings.Policy = policy
	}

	return settings, nil
}

// Save persists application settings. The crawl policy is edited in the
// config file directly and is not written back.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
		skip  bool
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String(), false},
		{keyEmbedModel, settings.Embedding.Model, false},
		{keyEmbedBaseURL, settings.Embedding.BaseURL, false},
		{keyEmbedAPIKey, settings.Embedding.APIKey, settings.Embedding.APIKey == ""},
		{keyEmbedDimensions, settings.Embedding.Dimensions, false},
		{keyLLMProvider, settings.LLM.Provider.String(), false},
		{keyLLMModel, settings.LLM.Model, false},
		{keyLLMBaseURL, settings.LLM.BaseURL, false},
		{keyLLMAPIKey, settings.LLM.APIKey, settings.LLM.APIKey == ""},
		{keyLLMRequestsPerMin, settings.LLM.RequestsPerMinute, false},
		{keyStorageBackend, string(settings.Storage.Backend), false},
		{keyStorageDataDir, settings.Storage.DataDir, false},
		{keyStorageDatabaseURL, settings.Storage.DatabaseURL, settings.Storage.DatabaseURL == ""},
		{keyMinMergedScore, settings.Answer.MinMergedScore, false},
		{keyGroundingMode, settings.Answer.Grounding.String(), false},
		{keyMinOverlap, settings.Answer.Thresholds.MinOverlap, false},
		{keyMinConfidence, settings.Answer.Thresholds.MinClaimConfidence, false},
		{keyFuzzyOverlap, settings.Answer.FuzzyOverlap, false},
		{keyCacheTTL, settings.Answer.CacheTTL.String(), false},
	}

	for _, v := range values {
		if v.skip {
			continue
		}
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if provider == domain.AIProviderAnthropic {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	if model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	if provider == domain.AIProviderOllama {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaURL
		}
	} else {
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.APIKey = apiKey

	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.Embedding.Dimensions = d
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = model
	if model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}

	if provider == domain.AIProviderOllama {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = defaultOllamaURL
		}
	} else {
		settings.LLM.BaseURL = ""
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetGroundingMode selects strict or soft claim validation.
func (s *SettingsService) SetGroundingMode(mode domain.GroundingMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("invalid grounding mode: %s", mode)
	}
	return s.configStore.Set(keyGroundingMode, mode.String())
}

// Validate checks that the configured providers and storage are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return ValidateSettings(settings)
}

// ValidateSettings checks a resolved settings value. Callers that layer
// environment overrides on top of Get use it directly.
func ValidateSettings(settings *domain.AppSettings) error {
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not configured",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: LLM provider %q is not configured",
			domain.ErrLLMUnavailable, settings.LLM.Provider)
	}
	if !settings.Storage.Backend.IsValid() {
		return fmt.Errorf("%w: storage backend %q", domain.ErrUnsupportedType, settings.Storage.Backend)
	}
	if settings.Storage.Backend == domain.StoragePostgres && settings.Storage.DatabaseURL == "" {
		return fmt.Errorf("%w: postgres backend requires a database url", domain.ErrInvalidInput)
	}
	if !settings.Answer.Grounding.IsValid() {
		return fmt.Errorf("%w: grounding mode %q", domain.ErrInvalidInput, settings.Answer.Grounding)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	backend := domain.StorageBackend(s.configStore.GetString(keyStorageBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getGroundingMode(defaultVal domain.GroundingMode) domain.GroundingMode {
	mode := domain.GroundingMode(s.configStore.GetString(keyGroundingMode))
	if !mode.IsValid() {
		return defaultVal
	}
	return mode
}
