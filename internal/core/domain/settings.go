package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderDeterministic is the built-in, network-free provider.
	AIProviderDeterministic AIProvider = "deterministic"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is Google Gemini cloud API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderDeterministic, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// IsLocal returns true if this provider runs without a hosted service.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderDeterministic
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderDeterministic:
		return "Deterministic (offline, for tests)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI and Gemini).
	APIKey string

	// Dimensions is the embedding vector size.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI, Anthropic and Gemini).
	APIKey string

	// RequestsPerMinute caps outbound generate calls. Zero disables the limit.
	RequestsPerMinute int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// StorageBackend selects the storage adapter.
type StorageBackend string

// Available storage backends.
const (
	StorageSQLite   StorageBackend = "sqlite"
	StoragePostgres StorageBackend = "postgres"
	StorageMemory   StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageSQLite, StoragePostgres, StorageMemory:
		return true
	default:
		return false
	}
}

// StorageSettings holds storage backend configuration.
type StorageSettings struct {
	Backend StorageBackend

	// DataDir is the SQLite data directory. Empty means ~/.veritas/data.
	DataDir string

	// DatabaseURL is the Postgres connection string.
	DatabaseURL string
}

// AnswerSettings tunes the answer pipeline.
type AnswerSettings struct {
	// MinMergedScore is the retrieval confidence gate. A top merged score
	// equal to the threshold passes.
	MinMergedScore float64

	// Grounding selects strict or soft claim validation.
	Grounding GroundingMode

	// Thresholds are the per-claim grounding minimums.
	Thresholds GroundingThresholds

	// FuzzyOverlap enables the fuzzy ratio in the overlap score.
	FuzzyOverlap bool

	// CacheTTL is the answer cache lifetime. Zero means no expiry.
	CacheTTL time.Duration
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Storage   StorageSettings
	Answer    AnswerSettings

	// Policy is the crawl policy whose fingerprint is part of every cache key.
	Policy map[string]any
}

// Default answer pipeline values.
const (
	DefaultMinMergedScore      = 0.35
	DefaultEmbeddingDimensions = 384
)

// DefaultAppSettings returns settings with sensible defaults.
// Both providers default to the deterministic implementation so a fresh
// install works offline.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:   AIProviderDeterministic,
			Dimensions: DefaultEmbeddingDimensions,
		},
		LLM: LLMSettings{
			Provider: AIProviderDeterministic,
		},
		Storage: StorageSettings{
			Backend: StorageSQLite,
		},
		Answer: AnswerSettings{
			MinMergedScore: DefaultMinMergedScore,
			Grounding:      GroundingStrict,
			FuzzyOverlap:   true,
		},
		Policy: map[string]any{},
	}
}

// AllEmbeddingProviders returns the providers that can produce embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderDeterministic, AIProviderOllama, AIProviderOpenAI, AIProviderGemini}
}

// AllLLMProviders returns the providers that can generate answers.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderDeterministic, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "all-minilm",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderGemini: "text-embedding-004",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-2.5-flash",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"all-minilm":             384,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-004":     768,
	}
}
