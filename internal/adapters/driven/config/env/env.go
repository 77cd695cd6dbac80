// Package env layers environment variables over the file configuration.
//
// A .env file in the working directory is loaded first. Variables already
// set in the process environment win over the file.
package env

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/logger"
)

// Recognised environment variables.
//
//nolint:gosec // G101: variable names, not credentials.
const (
	SoftGrounding          = "ANSWER_SOFT_GROUNDING"
	MinMergedScore         = "MIN_MERGED_SCORE"
	GroundingMinConfidence = "GROUNDING_MIN_CONFIDENCE"
	GroundingMinOverlap    = "GROUNDING_MIN_OVERLAP"
	AnswerCacheTTL         = "ANSWER_CACHE_TTL"
	DatabaseURL            = "VERITAS_DATABASE_URL"
	StorageBackend         = "VERITAS_STORAGE"
	EmbedProvider          = "EMBED_PROVIDER"
	LLMProvider            = "LLM_PROVIDER"
	OllamaHost             = "OLLAMA_HOST"
	OpenAIKey              = "OPENAI_API_KEY"
	AnthropicKey           = "ANTHROPIC_API_KEY"
	GeminiKey              = "GEMINI_API_KEY"
	Environment            = "ENV"
	EnvironmentAlt         = "ENVIRONMENT"
	TestTenantHeader       = "ENABLE_TEST_TENANT_HEADER"
	CORSAllowOrigins       = "CORS_ALLOW_ORIGINS"
	GitSHA                 = "GIT_SHA"
	Tenant                 = "VERITAS_TENANT"
)

// DefaultCORSOrigins are allowed when CORS_ALLOW_ORIGINS is unset.
var DefaultCORSOrigins = []string{"http://localhost:3000", "http://localhost:8501"}

// LoadDotEnv reads .env files into the process environment without
// overriding existing variables. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Apply overrides settings with any recognised variables that are set.
// Malformed values are logged and skipped.
func Apply(settings *domain.AppSettings) {
	if v, ok := lookup(SoftGrounding); ok {
		if truthy(v) {
			settings.Answer.Grounding = domain.GroundingSoft
		} else {
			settings.Answer.Grounding = domain.GroundingStrict
		}
	}
	applyFloat(MinMergedScore, &settings.Answer.MinMergedScore)
	applyFloat(GroundingMinConfidence, &settings.Answer.Thresholds.MinClaimConfidence)
	applyFloat(GroundingMinOverlap, &settings.Answer.Thresholds.MinOverlap)

	if v, ok := lookup(AnswerCacheTTL); ok {
		secs, err := strconv.Atoi(v)
		if err != nil || secs < 0 {
			logger.Warn("ignoring %s=%q: want whole seconds", AnswerCacheTTL, v)
		} else {
			settings.Answer.CacheTTL = time.Duration(secs) * time.Second
		}
	}

	if v, ok := lookup(StorageBackend); ok {
		if b := domain.StorageBackend(v); b.IsValid() {
			settings.Storage.Backend = b
		} else {
			logger.Warn("ignoring %s=%q: unknown backend", StorageBackend, v)
		}
	}
	if v, ok := lookup(DatabaseURL); ok {
		settings.Storage.DatabaseURL = v
	}

	if v, ok := lookup(EmbedProvider); ok {
		if p := domain.AIProvider(v); p.IsValid() {
			settings.Embedding.Provider = p
		} else {
			logger.Warn("ignoring %s=%q: unknown provider", EmbedProvider, v)
		}
	}
	if v, ok := lookup(LLMProvider); ok {
		if p := domain.AIProvider(v); p.IsValid() {
			settings.LLM.Provider = p
		} else {
			logger.Warn("ignoring %s=%q: unknown provider", LLMProvider, v)
		}
	}

	settings.Embedding.APIKey = providerKey(settings.Embedding.Provider, settings.Embedding.APIKey)
	settings.LLM.APIKey = providerKey(settings.LLM.Provider, settings.LLM.APIKey)
	if v, ok := lookup(OllamaHost); ok {
		if settings.Embedding.Provider == domain.AIProviderOllama {
			settings.Embedding.BaseURL = v
		}
		if settings.LLM.Provider == domain.AIProviderOllama {
			settings.LLM.BaseURL = v
		}
	}
}

// Deployment returns the lowercased ENV, falling back to ENVIRONMENT.
func Deployment() string {
	if v, ok := lookup(Environment); ok {
		return strings.ToLower(v)
	}
	v, _ := lookup(EnvironmentAlt)
	return strings.ToLower(v)
}

// IsTest reports whether the deployment is a test deployment.
func IsTest() bool {
	return Deployment() == "test"
}

// TestTenantHeaderEnabled reports whether the X-Tenant-Debug header may be
// trusted. Production never trusts it.
func TestTenantHeaderEnabled() bool {
	if Deployment() == "production" || !IsTest() {
		return false
	}
	v, _ := lookup(TestTenantHeader)
	return truthy(v)
}

// AllowedOrigins returns the comma-separated CORS_ALLOW_ORIGINS list.
func AllowedOrigins() []string {
	v, ok := lookup(CORSAllowOrigins)
	if !ok {
		return append([]string(nil), DefaultCORSOrigins...)
	}
	var out []string
	for _, o := range strings.Split(v, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Version returns GIT_SHA or "dev".
func Version() string {
	if v, ok := lookup(GitSHA); ok {
		return v
	}
	return "dev"
}

// providerKey returns the configured key, or the provider's variable when
// the config has none.
func providerKey(p domain.AIProvider, current string) string {
	if current != "" {
		return current
	}
	var name string
	switch p {
	case domain.AIProviderOpenAI:
		name = OpenAIKey
	case domain.AIProviderAnthropic:
		name = AnthropicKey
	case domain.AIProviderGemini:
		name = GeminiKey
	default:
		return current
	}
	if v, ok := lookup(name); ok {
		return v
	}
	return current
}

func applyFloat(name string, dst *float64) {
	v, ok := lookup(name)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logger.Warn("ignoring %s=%q: not a number", name, v)
		return
	}
	*dst = f
}

// lookup returns a trimmed variable. Empty values count as unset.
func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true
	}
	return false
}
