package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
)

var _ driven.TenantScope = (*scope)(nil)

type scope struct {
	pool   *pgxpool.Pool
	tenant domain.TenantID
}

func (s *scope) Tenant() domain.TenantID {
	return s.tenant
}

// ==================== SectionStore Implementation ====================

func (s *scope) GetSection(ctx context.Context, sectionID string) (*domain.Section, error) {
	var sec domain.Section
	var pageType string
	var embedding *string
	err := s.pool.QueryRow(ctx, `
		SELECT section_id, url, heading_path, text, page_type, section_hash, version_hash,
		       start_char, end_char, embedding::text
		FROM sections
		WHERE tenant_id = $1 AND section_id = $2
	`, s.tenant.String(), sectionID).Scan(&sec.ID, &sec.URL, &sec.HeadingPath, &sec.Text, &pageType,
		&sec.SectionHash, &sec.VersionHash, &sec.StartChar, &sec.EndChar, &embedding)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting section: %w", err)
	}
	sec.PageType = domain.PageType(pageType)
	if sec.Embedding, err = parseVector(embedding); err != nil {
		return nil, err
	}
	return &sec, nil
}

func (s *scope) SaveSections(ctx context.Context, page domain.RawPageMeta, sections []domain.Section) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tenant := s.tenant.String()
	if _, err := tx.Exec(ctx, "DELETE FROM sections WHERE tenant_id = $1 AND url = $2", tenant, page.URL); err != nil {
		return fmt.Errorf("deleting sections: %w", err)
	}

	batch := &pgx.Batch{}
	for _, sec := range sections {
		var embedding any
		if sec.Embedding != nil {
			embedding = pgvector.NewVector(sec.Embedding)
		}
		cfg := textSearchConfig(sec.Text)
		batch.Queue(`
			INSERT INTO sections (
				tenant_id, section_id, url, heading_path, text, page_type, section_hash,
				version_hash, start_char, end_char, embedding, ts_config, tsv
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::text, to_tsvector($12::text::regconfig, $5))
			ON CONFLICT (tenant_id, section_id) DO UPDATE SET
				url = EXCLUDED.url,
				heading_path = EXCLUDED.heading_path,
				text = EXCLUDED.text,
				page_type = EXCLUDED.page_type,
				section_hash = EXCLUDED.section_hash,
				version_hash = EXCLUDED.version_hash,
				start_char = EXCLUDED.start_char,
				end_char = EXCLUDED.end_char,
				embedding = EXCLUDED.embedding,
				ts_config = EXCLUDED.ts_config,
				tsv = EXCLUDED.tsv
		`, tenant, sec.ID, sec.URL, sec.HeadingPath, sec.Text, string(sec.PageType), sec.SectionHash,
			sec.VersionHash, sec.StartChar, sec.EndChar, embedding, cfg)
	}
	batch.Queue(`
		INSERT INTO raw_pages (tenant_id, url, title, version, section_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (tenant_id, url) DO UPDATE SET
			title = EXCLUDED.title,
			version = EXCLUDED.version,
			section_count = EXCLUDED.section_count,
			updated_at = EXCLUDED.updated_at
	`, tenant, page.URL, page.Title, page.Version, len(sections))

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("saving sections: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *scope) GetRawPageMeta(ctx context.Context, url string) (*domain.RawPageMeta, error) {
	var meta domain.RawPageMeta
	err := s.pool.QueryRow(ctx, `
		SELECT url, title, version, section_count
		FROM raw_pages
		WHERE tenant_id = $1 AND url = $2
	`, s.tenant.String(), url).Scan(&meta.URL, &meta.Title, &meta.Version, &meta.SectionCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting page metadata: %w", err)
	}
	return &meta, nil
}

func (s *scope) ListSectionVersions(ctx context.Context) ([]domain.Section, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT section_id, url, version_hash
		FROM sections
		WHERE tenant_id = $1
		ORDER BY section_id
	`, s.tenant.String())
	if err != nil {
		return nil, fmt.Errorf("listing section versions: %w", err)
	}
	defer rows.Close()

	var out []domain.Section
	for rows.Next() {
		var sec domain.Section
		if err := rows.Scan(&sec.ID, &sec.URL, &sec.VersionHash); err != nil {
			return nil, fmt.Errorf("scanning section version: %w", err)
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}

// ==================== VectorIndex Implementation ====================

func (s *scope) QueryVector(ctx context.Context, embedding []float32, k int) ([]domain.IndexHit, error) {
	if k <= 0 {
		return nil, nil
	}
	tenant := s.tenant.String()

	var mismatched string
	err := s.pool.QueryRow(ctx, `
		SELECT section_id FROM sections
		WHERE tenant_id = $1 AND embedding IS NOT NULL AND vector_dims(embedding) <> $2
		LIMIT 1
	`, tenant, len(embedding)).Scan(&mismatched)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: section %s does not have %d dimensions",
			domain.ErrDimensionMismatch, mismatched, len(embedding))
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("checking embedding dimensions: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT section_id, version_hash, url, text, page_type, embedding <-> $2 AS distance
		FROM sections
		WHERE tenant_id = $1 AND embedding IS NOT NULL
		ORDER BY distance, section_id
		LIMIT $3
	`, tenant, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("querying vector index: %w", err)
	}
	return scanHits(rows)
}

// ==================== LexicalIndex Implementation ====================

// QueryLexical matches query with websearch syntax against each section's own
// text search configuration and ranks by cover density.
func (s *scope) QueryLexical(ctx context.Context, query string, k int) ([]domain.IndexHit, error) {
	if strings.TrimSpace(query) == "" || k <= 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT s.section_id, s.version_hash, s.url, s.text, s.page_type,
		       ts_rank_cd(s.tsv, q)::float8 AS rank
		FROM sections s,
		     LATERAL websearch_to_tsquery(s.ts_config::regconfig, $2) AS q
		WHERE s.tenant_id = $1 AND s.tsv @@ q
		ORDER BY rank DESC, s.section_id
		LIMIT $3
	`, s.tenant.String(), query, k)
	if err != nil {
		return nil, fmt.Errorf("querying lexical index: %w", err)
	}
	return scanHits(rows)
}

func scanHits(rows pgx.Rows) ([]domain.IndexHit, error) {
	defer rows.Close()
	var hits []domain.IndexHit
	for rows.Next() {
		var hit domain.IndexHit
		var pageType string
		if err := rows.Scan(&hit.SectionID, &hit.VersionHash, &hit.URL, &hit.Text, &pageType, &hit.Score); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		hit.PageType = domain.PageType(pageType)
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// ==================== EvidenceStore Implementation ====================

func (s *scope) InsertEvidence(ctx context.Context, records []domain.Evidence) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		created := rec.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		batch.Queue(`
			INSERT INTO evidence (
				tenant_id, evidence_id, section_id, url, quote_span,
				start_char, end_char, version_hash, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (tenant_id, evidence_id) DO NOTHING
		`, s.tenant.String(), rec.ID, rec.SectionID, rec.URL, rec.QuoteSpan,
			rec.StartChar, rec.EndChar, rec.VersionHash, created)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting evidence: %w", err)
	}
	return nil
}

func (s *scope) GetEvidenceByIDs(ctx context.Context, ids []string) ([]domain.Evidence, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT evidence_id, tenant_id, section_id, url, quote_span,
		       start_char, end_char, version_hash, created_at
		FROM evidence
		WHERE tenant_id = $1 AND evidence_id = ANY($2)
	`, s.tenant.String(), ids)
	if err != nil {
		return nil, fmt.Errorf("querying evidence: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]domain.Evidence, len(ids))
	for rows.Next() {
		var rec domain.Evidence
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.SectionID, &rec.URL, &rec.QuoteSpan,
			&rec.StartChar, &rec.EndChar, &rec.VersionHash, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning evidence: %w", err)
		}
		byID[rec.ID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []domain.Evidence
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
			delete(byID, id)
		}
	}
	return out, nil
}

// ==================== AnswerCacheStore Implementation ====================

func (s *scope) GetCacheEntry(ctx context.Context, key string) (*domain.CacheEntry, error) {
	var entry domain.CacheEntry
	err := s.pool.QueryRow(ctx, `
		SELECT cache_key, tenant_id, query_hash, payload, expires_at, created_at
		FROM answer_cache
		WHERE tenant_id = $1 AND cache_key = $2
	`, s.tenant.String(), key).Scan(&entry.Key, &entry.TenantID, &entry.QueryHash, &entry.Payload,
		&entry.ExpiresAt, &entry.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting cache entry: %w", err)
	}
	return &entry, nil
}

func (s *scope) PutCacheEntry(ctx context.Context, entry domain.CacheEntry) error {
	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO answer_cache (tenant_id, cache_key, query_hash, payload, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, cache_key) DO UPDATE SET
			query_hash = EXCLUDED.query_hash,
			payload = EXCLUDED.payload,
			expires_at = EXCLUDED.expires_at
	`, s.tenant.String(), entry.Key, entry.QueryHash, entry.Payload, entry.ExpiresAt, created)
	if err != nil {
		return fmt.Errorf("saving cache entry: %w", err)
	}
	return nil
}

// ==================== IndexVersionStore Implementation ====================

func (s *scope) GetIndexVersions(ctx context.Context) (domain.IndexVersions, error) {
	var v domain.IndexVersions
	err := s.pool.QueryRow(ctx, `
		SELECT ac_version_hash, ec_version_hash, updated_at
		FROM tenant_index_versions
		WHERE tenant_id = $1
	`, s.tenant.String()).Scan(&v.ACVersionHash, &v.ECVersionHash, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.IndexVersions{}, nil
	}
	if err != nil {
		return domain.IndexVersions{}, fmt.Errorf("getting index versions: %w", err)
	}
	return v, nil
}

func (s *scope) SetIndexVersions(ctx context.Context, versions domain.IndexVersions) error {
	updated := versions.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tenant_index_versions (tenant_id, ac_version_hash, ec_version_hash, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id) DO UPDATE SET
			ac_version_hash = COALESCE(NULLIF(EXCLUDED.ac_version_hash, ''), tenant_index_versions.ac_version_hash),
			ec_version_hash = COALESCE(NULLIF(EXCLUDED.ec_version_hash, ''), tenant_index_versions.ec_version_hash),
			updated_at = EXCLUDED.updated_at
	`, s.tenant.String(), versions.ACVersionHash, versions.ECVersionHash, updated)
	if err != nil {
		return fmt.Errorf("saving index versions: %w", err)
	}
	return nil
}

// parseVector decodes pgvector's text form. A NULL embedding yields nil.
func parseVector(text *string) ([]float32, error) {
	if text == nil {
		return nil, nil
	}
	var v pgvector.Vector
	if err := v.Scan(*text); err != nil {
		return nil, fmt.Errorf("decoding embedding: %w", err)
	}
	return v.Slice(), nil
}
