package memory

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
)

// Ensure Store and Scope implement the interfaces.
var (
	_ driven.ScopeProvider = (*Store)(nil)
	_ driven.TenantScope   = (*Scope)(nil)
)

// BM25 parameters for the in-memory lexical index.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

var lexicalToken = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Store is an in-memory, tenant-partitioned implementation of every storage
// port. Tenants never share a partition.
type Store struct {
	mu      sync.RWMutex
	tenants map[domain.TenantID]*partition
}

type partition struct {
	sections     map[string]domain.Section
	terms        map[string]map[string]int
	lengths      map[string]int
	pages        map[string]domain.RawPageMeta
	pageSections map[string][]string
	evidence     map[string]domain.Evidence
	cache        map[string]domain.CacheEntry
	versions     domain.IndexVersions
}

func newPartition() *partition {
	return &partition{
		sections:     make(map[string]domain.Section),
		terms:        make(map[string]map[string]int),
		lengths:      make(map[string]int),
		pages:        make(map[string]domain.RawPageMeta),
		pageSections: make(map[string][]string),
		evidence:     make(map[string]domain.Evidence),
		cache:        make(map[string]domain.CacheEntry),
	}
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{tenants: make(map[domain.TenantID]*partition)}
}

// ForTenant returns a scope bound to tenant.
func (s *Store) ForTenant(tenant domain.TenantID) (driven.TenantScope, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	return &Scope{store: s, tenant: tenant}, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// read returns the tenant's partition, or nil if it holds no data.
// Callers must hold s.mu.
func (s *Store) read(tenant domain.TenantID) *partition {
	return s.tenants[tenant]
}

// write returns the tenant's partition, creating it if needed.
// Callers must hold s.mu for writing.
func (s *Store) write(tenant domain.TenantID) *partition {
	p, ok := s.tenants[tenant]
	if !ok {
		p = newPartition()
		s.tenants[tenant] = p
	}
	return p
}

// Scope is a tenant-bound view of a Store.
type Scope struct {
	store  *Store
	tenant domain.TenantID
}

// Tenant returns the scope's tenant.
func (sc *Scope) Tenant() domain.TenantID {
	return sc.tenant
}

// GetSection retrieves a section by ID.
func (sc *Scope) GetSection(_ context.Context, sectionID string) (*domain.Section, error) {
	sc.store.mu.RLock()
	defer sc.store.mu.RUnlock()
	p := sc.store.read(sc.tenant)
	if p == nil {
		return nil, domain.ErrNotFound
	}
	sec, ok := p.sections[sectionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sec, nil
}

// SaveSections replaces the sections of page.URL.
func (sc *Scope) SaveSections(_ context.Context, page domain.RawPageMeta, sections []domain.Section) error {
	sc.store.mu.Lock()
	defer sc.store.mu.Unlock()
	p := sc.store.write(sc.tenant)

	for _, id := range p.pageSections[page.URL] {
		delete(p.sections, id)
		delete(p.terms, id)
		delete(p.lengths, id)
	}

	ids := make([]string, 0, len(sections))
	for _, sec := range sections {
		if sec.Embedding != nil {
			sec.Embedding = append([]float32(nil), sec.Embedding...)
		}
		p.sections[sec.ID] = sec
		tf, n := termFrequencies(sec.Text)
		p.terms[sec.ID] = tf
		p.lengths[sec.ID] = n
		ids = append(ids, sec.ID)
	}
	p.pageSections[page.URL] = ids
	page.SectionCount = len(sections)
	p.pages[page.URL] = page
	return nil
}

// GetRawPageMeta returns the stored metadata for url.
func (sc *Scope) GetRawPageMeta(_ context.Context, url string) (*domain.RawPageMeta, error) {
	sc.store.mu.RLock()
	defer sc.store.mu.RUnlock()
	p := sc.store.read(sc.tenant)
	if p == nil {
		return nil, domain.ErrNotFound
	}
	meta, ok := p.pages[url]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &meta, nil
}

// ListSectionVersions returns every section of the tenant without text or embedding.
func (sc *Scope) ListSectionVersions(_ context.Context) ([]domain.Section, error) {
	sc.store.mu.RLock()
	defer sc.store.mu.RUnlock()
	p := sc.store.read(sc.tenant)
	if p == nil {
		return nil, nil
	}
	out := make([]domain.Section, 0, len(p.sections))
	for _, sec := range p.sections {
		out = append(out, domain.Section{ID: sec.ID, URL: sec.URL, VersionHash: sec.VersionHash})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// QueryVector returns the k sections nearest to embedding by L2 distance.
func (sc *Scope) QueryVector(_ context.Context, embedding []float32, k int) ([]domain.IndexHit, error) {
	sc.store.mu.RLock()
	defer sc.store.mu.RUnlock()
	p := sc.store.read(sc.tenant)
	if p == nil || k <= 0 {
		return nil, nil
	}

	hits := make([]domain.IndexHit, 0, len(p.sections))
	for _, sec := range p.sections {
		if sec.Embedding == nil {
			continue
		}
		if len(sec.Embedding) != len(embedding) {
			return nil, fmt.Errorf("%w: section %s has %d dimensions, query has %d",
				domain.ErrDimensionMismatch, sec.ID, len(sec.Embedding), len(embedding))
		}
		hits = append(hits, hitFor(sec, l2Distance(sec.Embedding, embedding)))
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score < hits[j].Score
		}
		return hits[i].SectionID < hits[j].SectionID
	})
	return truncateHits(hits, k), nil
}

// QueryLexical ranks sections against query with BM25. Sections matching no
// query term are not returned.
func (sc *Scope) QueryLexical(_ context.Context, query string, k int) ([]domain.IndexHit, error) {
	sc.store.mu.RLock()
	defer sc.store.mu.RUnlock()
	p := sc.store.read(sc.tenant)
	if p == nil || k <= 0 || len(p.sections) == 0 {
		return nil, nil
	}

	qterms, _ := termFrequencies(query)
	if len(qterms) == 0 {
		return nil, nil
	}

	total := 0
	for _, n := range p.lengths {
		total += n
	}
	n := float64(len(p.sections))
	avgLen := float64(total) / n
	if avgLen == 0 {
		avgLen = 1
	}

	df := make(map[string]int, len(qterms))
	for term := range qterms {
		for _, tf := range p.terms {
			if tf[term] > 0 {
				df[term]++
			}
		}
	}

	var hits []domain.IndexHit
	for id, tf := range p.terms {
		score := 0.0
		docLen := float64(p.lengths[id])
		for term := range qterms {
			f := float64(tf[term])
			if f == 0 {
				continue
			}
			idf := math.Log(1 + (n-float64(df[term])+0.5)/(float64(df[term])+0.5))
			score += idf * f * (bm25K1 + 1) / (f + bm25K1*(1-bm25B+bm25B*docLen/avgLen))
		}
		if score > 0 {
			hits = append(hits, hitFor(p.sections[id], score))
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].SectionID < hits[j].SectionID
	})
	return truncateHits(hits, k), nil
}

// InsertEvidence stores records. Existing ids are left untouched.
func (sc *Scope) InsertEvidence(_ context.Context, records []domain.Evidence) error {
	if len(records) == 0 {
		return nil
	}
	sc.store.mu.Lock()
	defer sc.store.mu.Unlock()
	p := sc.store.write(sc.tenant)
	for _, rec := range records {
		if _, exists := p.evidence[rec.ID]; exists {
			continue
		}
		rec.TenantID = sc.tenant.String()
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now().UTC()
		}
		p.evidence[rec.ID] = rec
	}
	return nil
}

// GetEvidenceByIDs returns the records with the given ids, in id order.
func (sc *Scope) GetEvidenceByIDs(_ context.Context, ids []string) ([]domain.Evidence, error) {
	sc.store.mu.RLock()
	defer sc.store.mu.RUnlock()
	p := sc.store.read(sc.tenant)
	if p == nil {
		return nil, nil
	}
	var out []domain.Evidence
	for _, id := range ids {
		if rec, ok := p.evidence[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// GetCacheEntry returns the entry stored under key.
func (sc *Scope) GetCacheEntry(_ context.Context, key string) (*domain.CacheEntry, error) {
	sc.store.mu.RLock()
	defer sc.store.mu.RUnlock()
	p := sc.store.read(sc.tenant)
	if p == nil {
		return nil, domain.ErrNotFound
	}
	entry, ok := p.cache[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &entry, nil
}

// PutCacheEntry upserts entry by key.
func (sc *Scope) PutCacheEntry(_ context.Context, entry domain.CacheEntry) error {
	sc.store.mu.Lock()
	defer sc.store.mu.Unlock()
	p := sc.store.write(sc.tenant)
	entry.TenantID = sc.tenant.String()
	entry.Payload = append([]byte(nil), entry.Payload...)
	if existing, ok := p.cache[entry.Key]; ok && !existing.CreatedAt.IsZero() {
		entry.CreatedAt = existing.CreatedAt
	}
	p.cache[entry.Key] = entry
	return nil
}

// GetIndexVersions returns the tenant's index fingerprints.
func (sc *Scope) GetIndexVersions(_ context.Context) (domain.IndexVersions, error) {
	sc.store.mu.RLock()
	defer sc.store.mu.RUnlock()
	p := sc.store.read(sc.tenant)
	if p == nil {
		return domain.IndexVersions{}, nil
	}
	return p.versions, nil
}

// SetIndexVersions updates the non-empty fields of versions.
func (sc *Scope) SetIndexVersions(_ context.Context, versions domain.IndexVersions) error {
	sc.store.mu.Lock()
	defer sc.store.mu.Unlock()
	p := sc.store.write(sc.tenant)
	if versions.ACVersionHash != "" {
		p.versions.ACVersionHash = versions.ACVersionHash
	}
	if versions.ECVersionHash != "" {
		p.versions.ECVersionHash = versions.ECVersionHash
	}
	p.versions.UpdatedAt = versions.UpdatedAt
	if p.versions.UpdatedAt.IsZero() {
		p.versions.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func hitFor(sec domain.Section, score float64) domain.IndexHit {
	return domain.IndexHit{
		SectionID:   sec.ID,
		VersionHash: sec.VersionHash,
		URL:         sec.URL,
		Text:        sec.Text,
		PageType:    sec.PageType,
		Score:       score,
	}
}

func truncateHits(hits []domain.IndexHit, k int) []domain.IndexHit {
	if len(hits) > k {
		return hits[:k]
	}
	return hits
}

// termFrequencies tokenizes text and returns term counts and token total.
func termFrequencies(text string) (map[string]int, int) {
	tokens := lexicalToken.FindAllString(strings.ToLower(text), -1)
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf, len(tokens)
}

func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
