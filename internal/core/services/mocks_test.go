package services

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/veritas/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
)

// --- Mock implementations ---

// stubEmbedder implements driven.EmbeddingProvider with fixed vectors.
type stubEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	short    bool
	err      error
	calls    atomic.Int32
}

func (m *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		if v, ok := m.vectors[t]; ok {
			out = append(out, v)
			continue
		}
		out = append(out, m.fallback)
	}
	if m.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

// scriptedLLM implements driven.LLMProvider. respond builds the raw output
// from the evidence items; the default quotes the first item verbatim.
type scriptedLLM struct {
	respond func(ctx context.Context, items []domain.EvidenceItem) (string, error)
	calls   atomic.Int32

	mu      sync.Mutex
	prompts []string
}

func (m *scriptedLLM) Generate(ctx context.Context, prompt string, items []domain.EvidenceItem) (string, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.respond != nil {
		return m.respond(ctx, items)
	}
	return quoteFirst(items), nil
}

func (m *scriptedLLM) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

type testClaim struct {
	Text        string   `json:"text"`
	EvidenceIDs []string `json:"evidence_ids"`
	Confidence  float64  `json:"confidence"`
}

func draftJSONFor(answer string, claims ...testClaim) string {
	if claims == nil {
		claims = []testClaim{}
	}
	data, err := json.Marshal(map[string]any{"answer": answer, "claims": claims})
	if err != nil {
		panic(err)
	}
	return string(data)
}

func quoteFirst(items []domain.EvidenceItem) string {
	if len(items) == 0 {
		return draftJSONFor("")
	}
	return draftJSONFor(items[0].QuoteSpan, testClaim{
		Text:        items[0].QuoteSpan,
		EvidenceIDs: []string{items[0].EvidenceID},
		Confidence:  0.9,
	})
}

// recordingMetrics implements driven.Metrics.
type recordingMetrics struct {
	mu         sync.Mutex
	answers    []string
	cache      []string
	retrievals []int
	dropped    int
}

func (m *recordingMetrics) ObserveRetrieval(_ time.Duration, candidates int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retrievals = append(m.retrievals, candidates)
}

func (m *recordingMetrics) ObserveAnswer(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers = append(m.answers, outcome)
}

func (m *recordingMetrics) ObserveCache(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = append(m.cache, result)
}

func (m *recordingMetrics) ObserveDroppedClaims(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped += n
}

// hookedScopes wraps every scope handed out by a provider.
type hookedScopes struct {
	driven.ScopeProvider
	wrap func(driven.TenantScope) driven.TenantScope
}

func (h *hookedScopes) ForTenant(tenant domain.TenantID) (driven.TenantScope, error) {
	scope, err := h.ScopeProvider.ForTenant(tenant)
	if err != nil {
		return nil, err
	}
	return h.wrap(scope), nil
}

// faultyScope overrides selected TenantScope methods with fixed errors.
type faultyScope struct {
	driven.TenantScope
	getSectionErr     error
	insertEvidenceErr error
	lexicalErr        error
	versionsErr       error
}

func (f *faultyScope) GetSection(ctx context.Context, id string) (*domain.Section, error) {
	if f.getSectionErr != nil {
		return nil, f.getSectionErr
	}
	return f.TenantScope.GetSection(ctx, id)
}

func (f *faultyScope) InsertEvidence(ctx context.Context, records []domain.Evidence) error {
	if f.insertEvidenceErr != nil {
		return f.insertEvidenceErr
	}
	return f.TenantScope.InsertEvidence(ctx, records)
}

func (f *faultyScope) QueryLexical(ctx context.Context, query string, k int) ([]domain.IndexHit, error) {
	if f.lexicalErr != nil {
		return nil, f.lexicalErr
	}
	return f.TenantScope.QueryLexical(ctx, query, k)
}

func (f *faultyScope) GetIndexVersions(ctx context.Context) (domain.IndexVersions, error) {
	if f.versionsErr != nil {
		return domain.IndexVersions{}, f.versionsErr
	}
	return f.TenantScope.GetIndexVersions(ctx)
}

// --- Test helpers ---

const (
	hoursQuery = "opening hours"
	hoursText  = "Opening hours are nine to five on weekdays. We are closed on Sundays."
	parkText   = "Parking is available behind the building."
)

// seedHours stores two sections for tenant. With a zero query vector the
// hours section is the nearest neighbour and the only lexical match.
func seedHours(t *testing.T, store *memory.Store, tenant domain.TenantID) {
	t.Helper()
	scope, err := store.ForTenant(tenant)
	require.NoError(t, err)
	page := domain.RawPageMeta{URL: "https://acme.test/faq", Title: "FAQ", Version: 1}
	require.NoError(t, scope.SaveSections(context.Background(), page, []domain.Section{
		{
			ID: "sec-hours", URL: page.URL, Text: hoursText, PageType: domain.PageTypeFAQ,
			VersionHash: "vh-hours", Embedding: []float32{0, 0},
		},
		{
			ID: "sec-park", URL: page.URL, Text: parkText, PageType: domain.PageTypeUnknown,
			VersionHash: "vh-park", Embedding: []float32{1, 0},
		},
	}))
}

func zeroEmbedder() *stubEmbedder {
	return &stubEmbedder{fallback: []float32{0, 0}}
}

func defaultAnswerSettings() domain.AnswerSettings {
	return domain.AnswerSettings{
		MinMergedScore: domain.DefaultMinMergedScore,
		Grounding:      domain.GroundingStrict,
	}
}

type answerFixture struct {
	store   *memory.Store
	llm     *scriptedLLM
	metrics *recordingMetrics
	service *AnswerService
}

func newAnswerFixture(
	t *testing.T, scopes driven.ScopeProvider, settings domain.AnswerSettings, ropts ...RetrievalOption,
) *answerFixture {
	t.Helper()
	f := &answerFixture{llm: &scriptedLLM{}, metrics: &recordingMetrics{}}
	if scopes == nil {
		f.store = memory.NewStore()
		scopes = f.store
	}
	providers := StaticProviders(zeroEmbedder(), f.llm)
	retrieval := NewRetrievalService(scopes, providers, ropts...)
	svc, err := NewAnswerService(scopes, retrieval, providers, settings,
		map[string]any{"allowed_domains": []string{"acme.test"}},
		WithAnswerMetrics(f.metrics))
	require.NoError(t, err)
	f.service = svc
	return f
}
