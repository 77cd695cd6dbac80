package services

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
	"github.com/custodia-labs/veritas/internal/core/ports/driving"
	"github.com/custodia-labs/veritas/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// Retrieval tuning defaults.
const (
	DefaultKVector       = 50
	DefaultKLexical      = 50
	DefaultVectorWeight  = 0.6
	DefaultLexicalWeight = 0.4

	normEpsilon    = 1e-9
	snippetLen     = 240
	debugTopScores = 5
)

// Rerank boosts.
const (
	exactPhraseBoost = 0.2
	proximityBoost   = 0.2
)

var pageTypeBoosts = map[domain.PageType]float64{
	domain.PageTypeFAQ:           0.30,
	domain.PageTypeService:       0.25,
	domain.PageTypeInformational: 0.15,
	domain.PageTypeBlog:          0.05,
}

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// MergeWeights are the channel weights of the merged score.
type MergeWeights struct {
	Vector  float64
	Lexical float64
}

// RetrievalOption configures a RetrievalService.
type RetrievalOption func(*RetrievalService)

// WithChannelK overrides how many hits each channel fetches.
func WithChannelK(vector, lexical int) RetrievalOption {
	return func(s *RetrievalService) {
		if vector > 0 {
			s.kVector = vector
		}
		if lexical > 0 {
			s.kLexical = lexical
		}
	}
}

// WithMergeWeights overrides the merge weights.
func WithMergeWeights(w MergeWeights) RetrievalOption {
	return func(s *RetrievalService) {
		s.weights = w
	}
}

// WithRetrievalMetrics records retrieval timings.
func WithRetrievalMetrics(m driven.Metrics) RetrievalOption {
	return func(s *RetrievalService) {
		s.metrics = m
	}
}

// RetrievalService is the hybrid retrieval engine. It merges a vector and a
// lexical channel into one ranked list of candidates.
type RetrievalService struct {
	scopes    driven.ScopeProvider
	providers *ProviderRegistry
	metrics   driven.Metrics
	kVector   int
	kLexical  int
	weights   MergeWeights
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(
	scopes driven.ScopeProvider,
	providers *ProviderRegistry,
	opts ...RetrievalOption,
) *RetrievalService {
	s := &RetrievalService{
		scopes:    scopes,
		providers: providers,
		kVector:   DefaultKVector,
		kLexical:  DefaultKLexical,
		weights:   MergeWeights{Vector: DefaultVectorWeight, Lexical: DefaultLexicalWeight},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Retrieve returns the reranked top-k candidates for query within tenant.
func (s *RetrievalService) Retrieve(
	ctx context.Context, tenant domain.TenantID, query string, k int,
) (domain.RetrieveResponse, error) {
	scope, err := s.scopes.ForTenant(tenant)
	if err != nil {
		return domain.RetrieveResponse{}, err
	}
	return s.retrieve(ctx, scope, query, k)
}

// channelHits is the raw output of one retrieval channel.
type channelHits struct {
	hits   []domain.IndexHit
	scores map[string]float64
}

func (s *RetrievalService) retrieve(
	ctx context.Context, scope driven.TenantScope, query string, k int,
) (domain.RetrieveResponse, error) {
	start := time.Now()
	log := logger.ForTenant(scope.Tenant().String())
	logger.Section("Retrieval")

	if k <= 0 {
		k = domain.DefaultRetrieveK
	}
	resp := domain.RetrieveResponse{
		Candidates: []domain.RetrievalCandidate{},
		Debug:      s.emptyDebug(scope.Tenant()),
	}

	query = strings.TrimSpace(query)
	if query == "" {
		log.Debug("empty query, returning no candidates")
		return resp, nil
	}

	vec, lex, err := s.fetchChannels(ctx, scope, query)
	if err != nil {
		return domain.RetrieveResponse{}, err
	}
	log.Debug("channels: vector=%d lexical=%d", len(vec.hits), len(lex.hits))

	merged := MergeScores(vec.hits, lex.hits, vec.scores, lex.scores, s.weights)
	if len(merged) > k {
		merged = merged[:k]
	}
	reranked := Rerank(query, merged, k)

	resp.Candidates = reranked
	resp.Debug.Vector = channelDebug(s.kVector, vec.scores)
	resp.Debug.BM25 = channelDebug(s.kLexical, lex.scores)
	resp.Debug.Merge.DedupedCount = dedupedCount(vec.hits, lex.hits)
	resp.Debug.Merge.FinalK = len(reranked)

	if s.metrics != nil {
		s.metrics.ObserveRetrieval(time.Since(start), len(reranked))
	}
	log.Info("retrieved %d candidates", len(reranked))
	return resp, nil
}

// fetchChannels runs the vector and lexical queries concurrently.
// Either channel failing fails the request.
func (s *RetrievalService) fetchChannels(
	ctx context.Context, scope driven.TenantScope, query string,
) (vec, lex channelHits, err error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		embedder, err := s.providers.Embedding()
		if err != nil {
			return err
		}
		vectors, err := embedder.Embed(gctx, []string{query})
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		if len(vectors) != 1 {
			return fmt.Errorf("embed query: %w: got %d vectors", domain.ErrEmbeddingUnavailable, len(vectors))
		}
		hits, err := scope.QueryVector(gctx, vectors[0], s.kVector)
		if err != nil {
			return fmt.Errorf("vector query: %w", err)
		}
		vec.hits = hits
		vec.scores = make(map[string]float64, len(hits))
		for _, h := range hits {
			vec.scores[h.SectionID] = 1.0 / (1.0 + h.Score)
		}
		return nil
	})

	g.Go(func() error {
		hits, err := scope.QueryLexical(gctx, query, s.kLexical)
		if err != nil {
			return fmt.Errorf("lexical query: %w", err)
		}
		lex.hits = hits
		lex.scores = make(map[string]float64, len(hits))
		for _, h := range hits {
			lex.scores[h.SectionID] = h.Score
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return channelHits{}, channelHits{}, err
	}
	return vec, lex, nil
}

func (s *RetrievalService) emptyDebug(tenant domain.TenantID) domain.RetrieveDebug {
	return domain.RetrieveDebug{
		TenantID: tenant.String(),
		Vector:   channelDebug(s.kVector, nil),
		BM25:     channelDebug(s.kLexical, nil),
		Merge: domain.MergeDebug{
			Weights: map[string]float64{"vector": s.weights.Vector, "bm25": s.weights.Lexical},
		},
	}
}

// Normalize min-max scales scores to [0, 1]. A single score, or a channel
// whose scores are all equal, normalizes to 0.
func Normalize(scores map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range scores {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	for id, v := range scores {
		out[id] = (v - lo) / (hi - lo + normEpsilon)
	}
	return out
}

// MergeScores unions the two channels into candidates sorted by merged score
// descending, then section id ascending. vecScores and lexScores are the raw
// channel scores keyed by section id.
func MergeScores(
	vecHits, lexHits []domain.IndexHit,
	vecScores, lexScores map[string]float64,
	w MergeWeights,
) []domain.RetrievalCandidate {
	vNorm := Normalize(vecScores)
	bNorm := Normalize(lexScores)

	meta := make(map[string]domain.IndexHit, len(vecHits)+len(lexHits))
	for _, h := range lexHits {
		meta[h.SectionID] = h
	}
	// Vector metadata wins over lexical metadata.
	for _, h := range vecHits {
		meta[h.SectionID] = h
	}

	out := make([]domain.RetrievalCandidate, 0, len(meta))
	for id, h := range meta {
		v := vNorm[id]
		b := bNorm[id]
		out = append(out, domain.RetrievalCandidate{
			SectionID:     id,
			MergedScore:   round6(w.Vector*v + w.Lexical*b),
			VectorScore:   round6(v),
			LexicalScore:  round6(b),
			RerankReasons: []string{},
			URL:           h.URL,
			VersionHash:   h.VersionHash,
			Snippet:       truncateRunes(h.Text, snippetLen),
			Text:          h.Text,
			PageType:      h.PageType,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].MergedScore != out[j].MergedScore {
			return out[i].MergedScore > out[j].MergedScore
		}
		return out[i].SectionID < out[j].SectionID
	})
	return out
}

// Rerank boosts candidates by page type, exact phrase match and query term
// proximity, then returns the topN sorted by rerank score descending and
// section id ascending. The input slice is not modified.
func Rerank(query string, candidates []domain.RetrievalCandidate, topN int) []domain.RetrievalCandidate {
	out := make([]domain.RetrievalCandidate, len(candidates))
	for i, c := range candidates {
		reasons := []string{}
		pt := pageTypeBoosts[c.PageType]
		if pt > 0 {
			reasons = append(reasons, "page_type:"+c.PageType.String())
		}
		ex := exactPhraseScore(query, c.Text)
		if ex > 0 {
			reasons = append(reasons, "exact_phrase")
		}
		prox, gap := proximityScore(query, c.Text)
		if prox > 0 {
			reasons = append(reasons, "proximity_gap="+strconv.Itoa(gap))
		}

		c.RerankScore = round6(c.MergedScore + pt + ex + prox)
		c.RerankReasons = reasons
		out[i] = c
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RerankScore != out[j].RerankScore {
			return out[i].RerankScore > out[j].RerankScore
		}
		return out[i].SectionID < out[j].SectionID
	})
	if topN >= 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

func exactPhraseScore(query, text string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || text == "" {
		return 0
	}
	if strings.Contains(strings.ToLower(text), q) {
		return exactPhraseBoost
	}
	return 0
}

// queryTerms splits query on non-word runs and returns the distinct terms
// in first-seen order.
func queryTerms(query string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, t := range nonWord.Split(strings.ToLower(query), -1) {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		terms = append(terms, t)
	}
	return terms
}

// termHit is one occurrence of query term index term at byte offset pos.
type termHit struct {
	pos  int
	term int
}

// proximityScore returns the proximity boost and the length of the smallest
// window of text that contains one occurrence of every query term.
func proximityScore(query, text string) (float64, int) {
	terms := queryTerms(query)
	if len(terms) < 2 || text == "" {
		return 0, 0
	}
	lower := strings.ToLower(text)

	var hits []termHit
	for ti, term := range terms {
		found := false
		for off := 0; off <= len(lower); {
			idx := strings.Index(lower[off:], term)
			if idx < 0 {
				break
			}
			hits = append(hits, termHit{pos: off + idx, term: ti})
			found = true
			off += idx + len(term)
		}
		if !found {
			return 0, 0
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		return hits[i].term < hits[j].term
	})

	// Sliding window over positions; a window ending at hit r spans
	// [hits[l].pos, hits[r].pos+1).
	counts := make([]int, len(terms))
	covered := 0
	gap := math.MaxInt
	l := 0
	for r := range hits {
		if counts[hits[r].term] == 0 {
			covered++
		}
		counts[hits[r].term]++
		for covered == len(terms) {
			if w := hits[r].pos + 1 - hits[l].pos; w < gap {
				gap = w
			}
			counts[hits[l].term]--
			if counts[hits[l].term] == 0 {
				covered--
			}
			l++
		}
	}
	if gap == math.MaxInt {
		return 0, 0
	}
	return round6(proximityBoost / float64(1+gap)), gap
}

func channelDebug(requested int, scores map[string]float64) domain.ChannelDebug {
	d := domain.ChannelDebug{
		RequestedK: requested,
		ReturnedK:  len(scores),
		TopScores:  []float64{},
	}
	if len(scores) == 0 {
		return d
	}
	vals := make([]float64, 0, len(scores))
	for _, v := range scores {
		vals = append(vals, v)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(vals)))
	d.Max = vals[0]
	d.Min = vals[len(vals)-1]
	if len(vals) > debugTopScores {
		vals = vals[:debugTopScores]
	}
	d.TopScores = vals
	return d
}

func dedupedCount(vecHits, lexHits []domain.IndexHit) int {
	union := make(map[string]struct{}, len(vecHits)+len(lexHits))
	for _, h := range vecHits {
		union[h.SectionID] = struct{}{}
	}
	for _, h := range lexHits {
		union[h.SectionID] = struct{}{}
	}
	return max(0, len(vecHits)+len(lexHits)-len(union))
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// truncateRunes returns at most n bytes of s without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
