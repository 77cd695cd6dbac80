package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/veritas/internal/contentaddr"
	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
	"github.com/custodia-labs/veritas/internal/core/ports/driving"
	"github.com/custodia-labs/veritas/internal/logger"
)

// Ensure IndexingService implements the interface.
var _ driving.IndexingService = (*IndexingService)(nil)

// IndexingService turns pages into stored, embedded sections.
type IndexingService struct {
	scopes      driven.ScopeProvider
	providers   *ProviderRegistry
	sectionizer driven.Sectionizer
}

// NewIndexingService creates a new indexing service.
func NewIndexingService(
	scopes driven.ScopeProvider,
	providers *ProviderRegistry,
	sectionizer driven.Sectionizer,
) *IndexingService {
	return &IndexingService{
		scopes:      scopes,
		providers:   providers,
		sectionizer: sectionizer,
	}
}

// IndexPage replaces the sections of page.URL within tenant and recomputes
// the tenant's AC version hash. A page without an explicit version gets the
// stored version plus one, or 1 on first index.
func (s *IndexingService) IndexPage(
	ctx context.Context, tenant domain.TenantID, page domain.Page,
) (driving.IndexResult, error) {
	scope, err := s.scopes.ForTenant(tenant)
	if err != nil {
		return driving.IndexResult{}, err
	}
	page.URL = strings.TrimSpace(page.URL)
	if page.URL == "" {
		return driving.IndexResult{}, fmt.Errorf("%w: page url is required", domain.ErrInvalidInput)
	}
	if s.sectionizer == nil {
		return driving.IndexResult{}, fmt.Errorf("%w: no sectionizer configured", domain.ErrInvalidInput)
	}
	log := logger.ForTenant(tenant.String())
	logger.Section("Indexing")

	version, err := s.nextVersion(ctx, scope, page)
	if err != nil {
		return driving.IndexResult{}, err
	}

	drafts := s.sectionizer.Sectionize(page)
	log.Debug("sectionized %s into %d drafts (version %d)", page.URL, len(drafts), version)

	sections := make([]domain.Section, 0, len(drafts))
	seen := make(map[string]bool, len(drafts))
	for _, d := range drafts {
		sec := BuildSection(page, d, version)
		if seen[sec.ID] {
			log.Debug("skipping duplicate section %s", sec.ID)
			continue
		}
		seen[sec.ID] = true
		sections = append(sections, sec)
	}

	if err := s.embedSections(ctx, sections); err != nil {
		return driving.IndexResult{}, err
	}

	meta := domain.RawPageMeta{
		URL:          page.URL,
		Title:        page.Title,
		Version:      version,
		SectionCount: len(sections),
	}
	if err := scope.SaveSections(ctx, meta, sections); err != nil {
		return driving.IndexResult{}, fmt.Errorf("save sections: %w", err)
	}

	acVersion, err := RefreshCorpusVersion(ctx, scope)
	if err != nil {
		return driving.IndexResult{}, err
	}

	log.Info("indexed %s: %d sections, ac_version=%s", page.URL, len(sections), acVersion)
	return driving.IndexResult{URL: page.URL, Sections: len(sections), ACVersionHash: acVersion}, nil
}

func (s *IndexingService) nextVersion(ctx context.Context, scope driven.TenantScope, page domain.Page) (int, error) {
	if page.Version > 0 {
		return page.Version, nil
	}
	meta, err := scope.GetRawPageMeta(ctx, page.URL)
	if errors.Is(err, domain.ErrNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load page meta: %w", err)
	}
	return meta.Version + 1, nil
}

func (s *IndexingService) embedSections(ctx context.Context, sections []domain.Section) error {
	if len(sections) == 0 {
		return nil
	}
	embedder, err := s.providers.Embedding()
	if err != nil {
		return err
	}
	texts := make([]string, len(sections))
	for i, sec := range sections {
		texts[i] = sec.Text
	}
	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed sections: %w", err)
	}
	if len(vectors) != len(sections) {
		return fmt.Errorf("embed sections: got %d vectors for %d sections", len(vectors), len(sections))
	}
	for i := range sections {
		sections[i].Embedding = vectors[i]
	}
	return nil
}

// BuildSection assigns the content-addressed id and hashes to a draft.
// Positional drafts are identified by chunk index, heading drafts by
// heading path and normalised text.
func BuildSection(page domain.Page, d domain.SectionDraft, pageVersion int) domain.Section {
	normalized := contentaddr.NormalizeForHashing(d.Text)
	id := contentaddr.SectionID(page.URL, d.HeadingPath, normalized)
	if d.Positional() {
		id = contentaddr.PositionalSectionID(page.URL, d.ChunkIndex)
	}
	hash := contentaddr.SHA256Hex(normalized)
	return domain.Section{
		ID:          id,
		URL:         page.URL,
		HeadingPath: d.HeadingPath,
		Text:        d.Text,
		PageType:    domain.InferPageType(page.URL, page.Title, pageText(page, d)),
		SectionHash: hash,
		VersionHash: contentaddr.VersionHash(id, hash, pageVersion),
		StartChar:   0,
		EndChar:     len(d.Text),
	}
}

func pageText(page domain.Page, d domain.SectionDraft) string {
	if page.Text != "" {
		return page.Text
	}
	return d.Text
}

// RefreshCorpusVersion recomputes the tenant's AC version hash from its
// stored sections and persists it.
func RefreshCorpusVersion(ctx context.Context, scope driven.TenantScope) (string, error) {
	stored, err := scope.ListSectionVersions(ctx)
	if err != nil {
		return "", fmt.Errorf("list section versions: %w", err)
	}
	versions := make([]contentaddr.SectionVersion, len(stored))
	for i, sec := range stored {
		versions[i] = contentaddr.SectionVersion{SectionID: sec.ID, VersionHash: sec.VersionHash}
	}
	ac := contentaddr.CorpusVersion(versions)
	if err := scope.SetIndexVersions(ctx, domain.IndexVersions{ACVersionHash: ac}); err != nil {
		return "", fmt.Errorf("set index versions: %w", err)
	}
	return ac, nil
}
