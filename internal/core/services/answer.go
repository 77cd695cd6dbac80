package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/veritas/internal/contentaddr"
	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
	"github.com/custodia-labs/veritas/internal/core/ports/driving"
	"github.com/custodia-labs/veritas/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

const (
	answerRetrieveK  = 5
	maxEvidenceItems = 5
	maxAnswerLen     = 400
	answerEllipsis   = "..."
)

// DefaultAnswerPrompt opens every answer prompt unless a PromptStore
// overrides it.
const DefaultAnswerPrompt = `You are a grounded answer assistant. Given a query and evidence, return ONLY a valid JSON object.
Schema: {"answer": "<concise answer string>", "claims": [{"text": "<claim>", "evidence_ids": ["<id>", ...], "confidence": <0-1>}]}
Rules: Use ONLY evidence_ids from the provided evidence. Do not invent IDs. Return JSON only, no markdown or other text.`

// Answer outcomes reported to metrics besides refusal reasons.
const (
	outcomeAnswered = "answered"
	outcomeCached   = "cached"
	outcomeError    = "error"
)

// AnswerOption configures an AnswerService.
type AnswerOption func(*AnswerService)

// WithAnswerCache replaces the default answer cache.
func WithAnswerCache(c *AnswerCache) AnswerOption {
	return func(s *AnswerService) {
		s.cache = c
	}
}

// WithAnswerMetrics records answer outcomes.
func WithAnswerMetrics(m driven.Metrics) AnswerOption {
	return func(s *AnswerService) {
		s.metrics = m
	}
}

// WithPromptStore loads the answer instruction from store.
func WithPromptStore(store driven.PromptStore) AnswerOption {
	return func(s *AnswerService) {
		s.prompts = store
	}
}

// AnswerService is the answer orchestrator. It drives a request through
// cache lookup, retrieval, evidence building, generation, parsing and
// grounding validation.
type AnswerService struct {
	scopes        driven.ScopeProvider
	retrieval     *RetrievalService
	providers     *ProviderRegistry
	validator     *GroundingValidator
	cache         *AnswerCache
	settings      domain.AnswerSettings
	policyVersion string
	prompts       driven.PromptStore
	metrics       driven.Metrics
	now           func() time.Time
}

// NewAnswerService creates a new answer orchestrator. policy is the crawl
// policy whose fingerprint joins every cache key.
func NewAnswerService(
	scopes driven.ScopeProvider,
	retrieval *RetrievalService,
	providers *ProviderRegistry,
	settings domain.AnswerSettings,
	policy map[string]any,
	opts ...AnswerOption,
) (*AnswerService, error) {
	policyVersion, err := contentaddr.PolicyVersion(policy)
	if err != nil {
		return nil, fmt.Errorf("crawl policy version: %w", err)
	}

	s := &AnswerService{
		scopes:        scopes,
		retrieval:     retrieval,
		providers:     providers,
		validator:     NewGroundingValidator(settings.Grounding, settings.Thresholds, settings.FuzzyOverlap),
		cache:         NewAnswerCache(),
		settings:      settings,
		policyVersion: policyVersion,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PolicyVersion returns the crawl policy fingerprint used in cache keys.
func (s *AnswerService) PolicyVersion() string {
	return s.policyVersion
}

// Answer returns a grounded answer or a structured refusal for query.
// The returned error is reserved for pipeline failures: tenant validation,
// storage, provider transport and context cancellation.
func (s *AnswerService) Answer(
	ctx context.Context, tenant domain.TenantID, query string,
) (domain.AnswerResponse, error) {
	start := time.Now()
	scope, err := s.scopes.ForTenant(tenant)
	if err != nil {
		return domain.AnswerResponse{}, err
	}
	log := logger.ForTenant(tenant.String())
	logger.Section("Answer")
	log.Debug("state %s: query=%q", domain.StateStart, query)

	queryHash := contentaddr.QueryHash(query)
	key, cacheable := s.cacheKey(ctx, scope, queryHash, log)
	if cacheable {
		if resp, hit := s.cachedAnswer(ctx, scope, key, log); hit {
			log.Debug("state %s: cache hit", domain.StateDone)
			s.observe(outcomeCached, start)
			return resp, nil
		}
	}

	resp, err := s.run(ctx, scope, query, log)
	if err != nil {
		s.observe(outcomeError, start)
		return domain.AnswerResponse{}, err
	}
	if err := ctx.Err(); err != nil {
		s.observe(outcomeError, start)
		return domain.AnswerResponse{}, err
	}

	if cacheable && !resp.Refused {
		s.storeAnswer(ctx, scope, key, queryHash, resp, log)
	}

	outcome := outcomeAnswered
	if resp.RefusalReason != nil {
		outcome = resp.RefusalReason.String()
	}
	log.Debug("state %s: %s", domain.StateDone, outcome)
	s.observe(outcome, start)
	return resp, nil
}

// cacheKey builds the versioned cache key. Any failure disables caching for
// the request.
func (s *AnswerService) cacheKey(
	ctx context.Context, scope driven.TenantScope, queryHash string, log logger.Scope,
) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	versions, err := scope.GetIndexVersions(ctx)
	if err != nil {
		log.Warn("index versions unavailable, skipping cache: %v", err)
		s.observeCache("error")
		return "", false
	}
	key, err := MakeCacheKey(scope.Tenant(), queryHash, versions.ACVersionHash, versions.ECVersionHash, s.policyVersion)
	if err != nil {
		log.Warn("cache key: %v", err)
		s.observeCache("error")
		return "", false
	}
	return key, true
}

func (s *AnswerService) cachedAnswer(
	ctx context.Context, scope driven.TenantScope, key string, log logger.Scope,
) (domain.AnswerResponse, bool) {
	payload, hit, err := s.cache.Get(ctx, scope, scope.Tenant(), key)
	if err != nil {
		log.Warn("cache read failed: %v", err)
		s.observeCache("error")
		return domain.AnswerResponse{}, false
	}
	if !hit {
		s.observeCache("miss")
		return domain.AnswerResponse{}, false
	}

	var resp domain.AnswerResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		log.Warn("cached payload unreadable, treating as miss: %v", err)
		s.observeCache("error")
		return domain.AnswerResponse{}, false
	}
	s.observeCache("hit")
	return resp, true
}

func (s *AnswerService) storeAnswer(
	ctx context.Context,
	scope driven.TenantScope,
	key, queryHash string,
	resp domain.AnswerResponse,
	log logger.Scope,
) {
	payload, err := json.Marshal(resp)
	if err != nil {
		log.Warn("encode answer for cache: %v", err)
		return
	}
	if err := s.cache.Set(ctx, scope, scope.Tenant(), key, queryHash, payload, s.settings.CacheTTL); err != nil {
		log.Warn("cache write failed: %v", err)
		s.observeCache("error")
	}
}

// run executes the uncached pipeline from RETRIEVE to VALIDATE.
func (s *AnswerService) run(
	ctx context.Context, scope driven.TenantScope, query string, log logger.Scope,
) (domain.AnswerResponse, error) {
	tenant := scope.Tenant()

	if err := s.enter(ctx, log, domain.StateRetrieve); err != nil {
		return domain.AnswerResponse{}, err
	}
	retrieved, err := s.retrieval.retrieve(ctx, scope, query, answerRetrieveK)
	if err != nil {
		return domain.AnswerResponse{}, fmt.Errorf("retrieve: %w", err)
	}
	candidates := retrieved.Candidates
	if len(candidates) == 0 {
		return domain.Refusal(domain.RefusalNoEvidence, nil), nil
	}

	top := candidates[0].MergedScore
	debug := &domain.AnswerDebug{Threshold: s.settings.MinMergedScore, TopScore: &top}
	if top < s.settings.MinMergedScore {
		log.Info("top merged score %.6f below threshold %.2f", top, s.settings.MinMergedScore)
		return domain.Refusal(domain.RefusalLowRetrievalConfidence, debug), nil
	}

	if err := s.enter(ctx, log, domain.StateBuildEvidence); err != nil {
		return domain.AnswerResponse{}, err
	}
	if len(candidates) > maxEvidenceItems {
		candidates = candidates[:maxEvidenceItems]
	}
	inputs := make([]EvidenceInput, 0, len(candidates))
	for _, c := range candidates {
		sec, err := scope.GetSection(ctx, c.SectionID)
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("section %s vanished before evidence was built", c.SectionID)
			return domain.Refusal(domain.RefusalEvidenceError, nil), nil
		}
		if err != nil {
			return domain.AnswerResponse{}, fmt.Errorf("load section %s: %w", c.SectionID, err)
		}
		inputs = append(inputs, EvidenceInput{
			SectionID:   c.SectionID,
			URL:         c.URL,
			VersionHash: sec.VersionHash,
			Quote:       SelectQuoteSpan(sec.Text, query, DefaultQuoteMaxLen),
		})
	}
	evidence := BuildEvidenceMap(tenant, inputs)
	records := EvidenceRecords(tenant, inputs, s.now().UTC())
	if err := scope.InsertEvidence(ctx, records); err != nil {
		log.Warn("evidence insert failed: %v", err)
		return domain.Refusal(domain.RefusalEvidenceError, nil), nil
	}

	if err := s.enter(ctx, log, domain.StateGenerate); err != nil {
		return domain.AnswerResponse{}, err
	}
	items := evidenceItems(records)
	prompt, err := s.buildPrompt(query, items)
	if err != nil {
		return domain.AnswerResponse{}, err
	}
	llm, err := s.providers.LLM()
	if err != nil {
		return domain.AnswerResponse{}, err
	}
	raw, err := llm.Generate(ctx, prompt, items)
	if err != nil {
		return domain.AnswerResponse{}, fmt.Errorf("generate: %w", err)
	}

	if err := s.enter(ctx, log, domain.StateParse); err != nil {
		return domain.AnswerResponse{}, err
	}
	draft, err := ParseAnswerDraft(raw)
	if err != nil {
		log.Warn("answer draft parse failed: %v", err)
		return domain.Refusal(domain.RefusalLLMParseError, nil), nil
	}

	if err := s.enter(ctx, log, domain.StateValidate); err != nil {
		return domain.AnswerResponse{}, err
	}
	result := s.validator.Validate(draft.Claims, evidence)
	if s.metrics != nil && len(result.DroppedClaims) > 0 {
		s.metrics.ObserveDroppedClaims(len(result.DroppedClaims))
	}
	for _, d := range result.DroppedClaims {
		log.Debug("dropped claim (%s): %q", d.Reason, d.Claim.Text)
	}
	if !result.OK {
		return domain.Refusal(result.RefusalReason, nil), nil
	}
	if len(result.ValidatedClaims) == 0 {
		return domain.Refusal(domain.RefusalNoValidatedClaims, nil), nil
	}

	return domain.AnswerResponse{
		Answer:    composeAnswer(result.ValidatedClaims),
		Claims:    result.ValidatedClaims,
		Citations: citationsFor(result.ValidatedClaims, evidence),
		Debug:     debug,
	}, nil
}

// enter logs a state transition and aborts if ctx is done.
func (s *AnswerService) enter(ctx context.Context, log logger.Scope, state domain.AnswerState) error {
	if err := ctx.Err(); err != nil {
		log.Debug("cancelled before state %s", state)
		return err
	}
	log.Debug("state %s", state)
	return nil
}

func (s *AnswerService) buildPrompt(query string, items []domain.EvidenceItem) (string, error) {
	instruction := DefaultAnswerPrompt
	if s.prompts != nil {
		if p, err := s.prompts.Load(driven.PromptAnswer); err == nil && p != "" {
			instruction = p
		}
	}
	evidenceJSON, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode evidence: %w", err)
	}
	return instruction + "\n\nQuery: " + query + "\n\nEvidence: " + string(evidenceJSON) + "\n\nJSON:", nil
}

func (s *AnswerService) observe(outcome string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveAnswer(outcome, time.Since(start))
	}
}

func (s *AnswerService) observeCache(result string) {
	if s.metrics != nil {
		s.metrics.ObserveCache(result)
	}
}

func evidenceItems(records []domain.Evidence) []domain.EvidenceItem {
	items := make([]domain.EvidenceItem, len(records))
	for i, r := range records {
		items[i] = domain.EvidenceItem{EvidenceID: r.ID, QuoteSpan: r.QuoteSpan, SectionID: r.SectionID}
	}
	return items
}

// composeAnswer joins validated claim texts, capped at maxAnswerLen runes.
func composeAnswer(claims []domain.Claim) string {
	texts := make([]string, len(claims))
	for i, c := range claims {
		texts[i] = c.Text
	}
	runes := []rune(strings.Join(texts, " "))
	if len(runes) > maxAnswerLen {
		runes = runes[:maxAnswerLen]
	}
	answer := strings.TrimSpace(string(runes))
	if runes = []rune(answer); len(runes) >= maxAnswerLen {
		answer = strings.TrimRight(string(runes[:maxAnswerLen-len(answerEllipsis)]), " \t\n\r") + answerEllipsis
	}
	return answer
}

// citationsFor returns one citation per evidence id referenced by claims.
func citationsFor(claims []domain.Claim, evidence map[string]domain.EvidenceRef) map[string]domain.Citation {
	out := make(map[string]domain.Citation)
	for _, c := range claims {
		for _, id := range c.EvidenceIDs {
			ref, ok := evidence[id]
			if !ok {
				continue
			}
			out[id] = domain.Citation{URL: ref.URL, SectionID: ref.SectionID, QuoteSpan: ref.QuoteSpan}
		}
	}
	return out
}
