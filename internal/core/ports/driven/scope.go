package driven

import (
	"context"

	"github.com/custodia-labs/veritas/internal/core/domain"
)

// ScopeProvider hands out tenant-bound views of a storage backend.
type ScopeProvider interface {
	// ForTenant validates tenant and returns a scope bound to it.
	// Returns domain.ErrTenantRequired for a blank tenant without touching storage.
	ForTenant(tenant domain.TenantID) (TenantScope, error)

	// Close releases the backend's resources.
	Close() error
}

// TenantScope is the single storage-access type. All of its methods read and
// write rows belonging to Tenant() only.
type TenantScope interface {
	Tenant() domain.TenantID

	SectionStore
	VectorIndex
	LexicalIndex
	EvidenceStore
	AnswerCacheStore
	IndexVersionStore
}

// SectionStore persists sections.
type SectionStore interface {
	// GetSection returns a section by id, or domain.ErrNotFound.
	GetSection(ctx context.Context, sectionID string) (*domain.Section, error)

	// SaveSections replaces the sections of page.URL with sections and
	// records the page metadata. Sections carry their embeddings.
	SaveSections(ctx context.Context, page domain.RawPageMeta, sections []domain.Section) error

	// GetRawPageMeta returns the stored metadata for a page URL, or domain.ErrNotFound.
	GetRawPageMeta(ctx context.Context, url string) (*domain.RawPageMeta, error)

	// ListSectionVersions returns id and version hash of every section.
	ListSectionVersions(ctx context.Context) ([]domain.Section, error)
}

// VectorIndex answers nearest-neighbour queries.
type VectorIndex interface {
	// QueryVector returns up to k hits ordered by ascending L2 distance.
	// Hit.Score is the distance.
	QueryVector(ctx context.Context, embedding []float32, k int) ([]domain.IndexHit, error)
}

// LexicalIndex answers ranked full-text queries.
type LexicalIndex interface {
	// QueryLexical returns up to k hits ordered by descending rank.
	// Hit.Score is the rank.
	QueryLexical(ctx context.Context, query string, k int) ([]domain.IndexHit, error)
}

// EvidenceStore persists evidence records.
type EvidenceStore interface {
	// InsertEvidence stores records. Re-inserting an existing id is a no-op.
	InsertEvidence(ctx context.Context, records []domain.Evidence) error

	// GetEvidenceByIDs returns the records with the given ids. Unknown ids are skipped.
	GetEvidenceByIDs(ctx context.Context, ids []string) ([]domain.Evidence, error)
}

// AnswerCacheStore persists cached answers.
type AnswerCacheStore interface {
	// GetCacheEntry returns the entry stored under key, or domain.ErrNotFound.
	// Expiry is not evaluated here.
	GetCacheEntry(ctx context.Context, key string) (*domain.CacheEntry, error)

	// PutCacheEntry upserts entry by key.
	PutCacheEntry(ctx context.Context, entry domain.CacheEntry) error
}

// IndexVersionStore persists the tenant's index fingerprints.
type IndexVersionStore interface {
	// GetIndexVersions returns the current versions. A tenant that was never
	// indexed yields empty hashes and no error.
	GetIndexVersions(ctx context.Context) (domain.IndexVersions, error)

	// SetIndexVersions upserts the tenant's versions. Empty fields are left unchanged.
	SetIndexVersions(ctx context.Context, versions domain.IndexVersions) error
}
