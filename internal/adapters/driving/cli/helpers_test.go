package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driving"
)

type mockRetrievalService struct {
	resp   domain.RetrieveResponse
	err    error
	tenant domain.TenantID
	k      int
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context, tenant domain.TenantID, _ string, k int,
) (domain.RetrieveResponse, error) {
	m.tenant, m.k = tenant, k
	return m.resp, m.err
}

type mockAnswerService struct {
	resp   domain.AnswerResponse
	err    error
	tenant domain.TenantID
}

func (m *mockAnswerService) Answer(_ context.Context, tenant domain.TenantID, _ string) (domain.AnswerResponse, error) {
	m.tenant = tenant
	return m.resp, m.err
}

type mockIndexingService struct {
	mu    sync.Mutex
	pages []domain.Page
	fail  map[string]error
}

func (m *mockIndexingService) IndexPage(
	_ context.Context, _ domain.TenantID, page domain.Page,
) (driving.IndexResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[page.URL]; err != nil {
		return driving.IndexResult{}, err
	}
	m.pages = append(m.pages, page)
	return driving.IndexResult{URL: page.URL, Sections: 1, ACVersionHash: "ac"}, nil
}

type mockSettingsService struct {
	settings  domain.AppSettings
	grounding domain.GroundingMode
	validErr  error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(p domain.AIProvider, model, apiKey string) error {
	m.settings.Embedding = domain.EmbeddingSettings{Provider: p, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettingsService) SetLLMProvider(p domain.AIProvider, model, apiKey string) error {
	m.settings.LLM = domain.LLMSettings{Provider: p, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettingsService) SetGroundingMode(mode domain.GroundingMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("invalid grounding mode: %s", mode)
	}
	m.grounding = mode
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validErr }
func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }
func (m *mockSettingsService) ValidateEmbeddingConfig() error { return nil }
func (m *mockSettingsService) ValidateLLMConfig() error { return nil }

// setupTestServices installs mocks and resets command flags. The returned
// func restores the previous state.
func setupTestServices() func() {
	oldRetrieval, oldAnswer, oldIndexing, oldSettings := retrievalService, answerService, indexingService, settingsService
	oldNewIndexer, oldTenant := newIndexer, tenantFlag

	settings := domain.DefaultAppSettings()
	settings.Embedding = domain.EmbeddingSettings{
		Provider: domain.AIProviderOpenAI, Model: "text-embedding-3-small", APIKey: "sk-test-1234567890", Dimensions: 1536,
	}
	retrievalService = &mockRetrievalService{}
	answerService = &mockAnswerService{}
	indexingService = &mockIndexingService{}
	settingsService = &mockSettingsService{settings: settings}
	newIndexer = nil
	tenantFlag = ""
	retrieveK, retrieveJSON, answerJSON = domain.DefaultRetrieveK, false, false
	indexSectionizer, indexWatch, indexExtensions = "", false, nil

	return func() {
		retrievalService, answerService, indexingService, settingsService = oldRetrieval, oldAnswer, oldIndexing, oldSettings
		newIndexer, tenantFlag = oldNewIndexer, oldTenant
	}
}
