package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
)

// Ensure scope implements the interface.
var _ driven.TenantScope = (*scope)(nil)

var lexicalToken = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// scope is a tenant-bound view of the database.
type scope struct {
	db     *sql.DB
	tenant domain.TenantID
}

// Tenant returns the scope's tenant.
func (s *scope) Tenant() domain.TenantID {
	return s.tenant
}

// ==================== SectionStore Implementation ====================

// GetSection retrieves a section by ID.
func (s *scope) GetSection(ctx context.Context, sectionID string) (*domain.Section, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT section_id, url, heading_path, text, page_type, section_hash, version_hash,
		       start_char, end_char, embedding
		FROM sections
		WHERE tenant_id = ? AND section_id = ?
	`, s.tenant.String(), sectionID)

	var sec domain.Section
	var pageType string
	var embedding []byte
	err := row.Scan(&sec.ID, &sec.URL, &sec.HeadingPath, &sec.Text, &pageType,
		&sec.SectionHash, &sec.VersionHash, &sec.StartChar, &sec.EndChar, &embedding)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting section: %w", err)
	}
	sec.PageType = domain.PageType(pageType)
	sec.Embedding = bytesToFloat32Slice(embedding)
	return &sec, nil
}

// SaveSections replaces the sections of page.URL in one transaction.
func (s *scope) SaveSections(ctx context.Context, page domain.RawPageMeta, sections []domain.Section) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	tenant := s.tenant.String()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM sections_fts
		WHERE tenant_id = ? AND section_id IN (
			SELECT section_id FROM sections WHERE tenant_id = ? AND url = ?
		)
	`, tenant, tenant, page.URL)
	if err != nil {
		return fmt.Errorf("deleting lexical rows: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM sections WHERE tenant_id = ? AND url = ?", tenant, page.URL); err != nil {
		return fmt.Errorf("deleting sections: %w", err)
	}

	secStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO sections (
			tenant_id, section_id, url, heading_path, text, page_type,
			section_hash, version_hash, start_char, end_char, embedding
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing section insert: %w", err)
	}
	defer secStmt.Close()

	ftsDelete, err := tx.PrepareContext(ctx, "DELETE FROM sections_fts WHERE tenant_id = ? AND section_id = ?")
	if err != nil {
		return fmt.Errorf("preparing lexical delete: %w", err)
	}
	defer ftsDelete.Close()

	ftsInsert, err := tx.PrepareContext(ctx, "INSERT INTO sections_fts (text, tenant_id, section_id) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing lexical insert: %w", err)
	}
	defer ftsInsert.Close()

	for _, sec := range sections {
		_, err := secStmt.ExecContext(ctx,
			tenant, sec.ID, sec.URL, sec.HeadingPath, sec.Text, string(sec.PageType),
			sec.SectionHash, sec.VersionHash, sec.StartChar, sec.EndChar,
			float32SliceToBytes(sec.Embedding),
		)
		if err != nil {
			return fmt.Errorf("inserting section %s: %w", sec.ID, err)
		}
		// A section id reused from another page must not leave a stale lexical row.
		if _, err := ftsDelete.ExecContext(ctx, tenant, sec.ID); err != nil {
			return fmt.Errorf("clearing lexical row %s: %w", sec.ID, err)
		}
		if _, err := ftsInsert.ExecContext(ctx, sec.Text, tenant, sec.ID); err != nil {
			return fmt.Errorf("indexing section %s: %w", sec.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO raw_pages (tenant_id, url, title, version, section_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, url) DO UPDATE SET
			title = excluded.title,
			version = excluded.version,
			section_count = excluded.section_count,
			updated_at = excluded.updated_at
	`, tenant, page.URL, page.Title, page.Version, len(sections), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("saving page metadata: %w", err)
	}

	return tx.Commit()
}

// GetRawPageMeta returns the stored metadata for url.
func (s *scope) GetRawPageMeta(ctx context.Context, url string) (*domain.RawPageMeta, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT url, title, version, section_count
		FROM raw_pages
		WHERE tenant_id = ? AND url = ?
	`, s.tenant.String(), url)

	var meta domain.RawPageMeta
	err := row.Scan(&meta.URL, &meta.Title, &meta.Version, &meta.SectionCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting page metadata: %w", err)
	}
	return &meta, nil
}

// ListSectionVersions returns every section of the tenant without text or embedding.
func (s *scope) ListSectionVersions(ctx context.Context) ([]domain.Section, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT section_id, url, version_hash
		FROM sections
		WHERE tenant_id = ?
		ORDER BY section_id
	`, s.tenant.String())
	if err != nil {
		return nil, fmt.Errorf("listing section versions: %w", err)
	}
	defer rows.Close()

	var out []domain.Section //nolint:prealloc
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

// QueryVector returns the k sections nearest to embedding by L2 distance.
func (s *scope) QueryVector(ctx context.Context, embedding []float32, k int) ([]domain.IndexHit, error) {
	if k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT section_id, version_hash, url, text, page_type, embedding
		FROM sections
		WHERE tenant_id = ? AND embedding IS NOT NULL
	`, s.tenant.String())
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	var hits []domain.IndexHit //nolint:prealloc
	for rows.Next() {
		var hit domain.IndexHit
		var pageType string
		var blob []byte
		if err := rows.Scan(&hit.SectionID, &hit.VersionHash, &hit.URL, &hit.Text, &pageType, &blob); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		vec := bytesToFloat32Slice(blob)
		if vec == nil {
			continue
		}
		if len(vec) != len(embedding) {
			return nil, fmt.Errorf("%w: section %s has %d dimensions, query has %d",
				domain.ErrDimensionMismatch, hit.SectionID, len(vec), len(embedding))
		}
		hit.PageType = domain.PageType(pageType)
		hit.Score = l2Distance(vec, embedding)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score < hits[j].Score
		}
		return hits[i].SectionID < hits[j].SectionID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// ==================== LexicalIndex Implementation ====================

// QueryLexical ranks the tenant's sections against query with FTS5 bm25.
// Any query token may match; sections matching none are not returned.
func (s *scope) QueryLexical(ctx context.Context, query string, k int) ([]domain.IndexHit, error) {
	match := matchExpression(query)
	if match == "" || k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.section_id, s.version_hash, s.url, s.text, s.page_type,
		       -bm25(sections_fts) AS rank
		FROM sections_fts
		JOIN sections s
		  ON s.tenant_id = sections_fts.tenant_id AND s.section_id = sections_fts.section_id
		WHERE sections_fts MATCH ? AND sections_fts.tenant_id = ? AND s.tenant_id = ?
		ORDER BY rank DESC, s.section_id
		LIMIT ?
	`, match, s.tenant.String(), s.tenant.String(), k)
	if err != nil {
		return nil, fmt.Errorf("querying lexical index: %w", err)
	}
	defer rows.Close()

	var hits []domain.IndexHit //nolint:prealloc
	for rows.Next() {
		var hit domain.IndexHit
		var pageType string
		if err := rows.Scan(&hit.SectionID, &hit.VersionHash, &hit.URL, &hit.Text, &pageType, &hit.Score); err != nil {
			return nil, fmt.Errorf("scanning lexical hit: %w", err)
		}
		hit.PageType = domain.PageType(pageType)
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// matchExpression turns free text into an FTS5 query of quoted tokens joined by OR.
func matchExpression(query string) string {
	tokens := lexicalToken.FindAllString(strings.ToLower(query), -1)
	seen := make(map[string]bool, len(tokens))
	quoted := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		quoted = append(quoted, `"`+tok+`"`)
	}
	return strings.Join(quoted, " OR ")
}

// ==================== EvidenceStore Implementation ====================

// InsertEvidence stores records. Existing ids are left untouched.
func (s *scope) InsertEvidence(ctx context.Context, records []domain.Evidence) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO evidence (
			tenant_id, evidence_id, section_id, url, quote_span,
			start_char, end_char, version_hash, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, evidence_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("preparing evidence insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		created := rec.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		_, err := stmt.ExecContext(ctx,
			s.tenant.String(), rec.ID, rec.SectionID, rec.URL, rec.QuoteSpan,
			rec.StartChar, rec.EndChar, rec.VersionHash, formatTime(created),
		)
		if err != nil {
			return fmt.Errorf("inserting evidence %s: %w", rec.ID, err)
		}
	}

	return tx.Commit()
}

// GetEvidenceByIDs returns the records with the given ids, in request order.
func (s *scope) GetEvidenceByIDs(ctx context.Context, ids []string) ([]domain.Evidence, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, s.tenant.String())
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT evidence_id, tenant_id, section_id, url, quote_span,
		       start_char, end_char, version_hash, created_at
		FROM evidence
		WHERE tenant_id = ? AND evidence_id IN (`+placeholders(len(ids))+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying evidence: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]domain.Evidence, len(ids))
	for rows.Next() {
		var rec domain.Evidence
		var created string
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.SectionID, &rec.URL, &rec.QuoteSpan,
			&rec.StartChar, &rec.EndChar, &rec.VersionHash, &created); err != nil {
			return nil, fmt.Errorf("scanning evidence: %w", err)
		}
		rec.CreatedAt = parseTime(created)
		byID[rec.ID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []domain.Evidence //nolint:prealloc
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
			delete(byID, id)
		}
	}
	return out, nil
}

// ==================== AnswerCacheStore Implementation ====================

// GetCacheEntry returns the entry stored under key.
func (s *scope) GetCacheEntry(ctx context.Context, key string) (*domain.CacheEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT cache_key, tenant_id, query_hash, payload, expires_at, created_at
		FROM answer_cache
		WHERE tenant_id = ? AND cache_key = ?
	`, s.tenant.String(), key)

	var entry domain.CacheEntry
	var expires sql.NullString
	var created string
	err := row.Scan(&entry.Key, &entry.TenantID, &entry.QueryHash, &entry.Payload, &expires, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting cache entry: %w", err)
	}
	if expires.Valid && expires.String != "" {
		t := parseTime(expires.String)
		entry.ExpiresAt = &t
	}
	entry.CreatedAt = parseTime(created)
	return &entry, nil
}

// PutCacheEntry upserts entry by key. The original creation time is kept.
func (s *scope) PutCacheEntry(ctx context.Context, entry domain.CacheEntry) error {
	var expires any
	if entry.ExpiresAt != nil {
		expires = formatTime(*entry.ExpiresAt)
	}
	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO answer_cache (tenant_id, cache_key, query_hash, payload, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, cache_key) DO UPDATE SET
			query_hash = excluded.query_hash,
			payload = excluded.payload,
			expires_at = excluded.expires_at
	`, s.tenant.String(), entry.Key, entry.QueryHash, entry.Payload, expires, formatTime(created))
	if err != nil {
		return fmt.Errorf("saving cache entry: %w", err)
	}
	return nil
}

// ==================== IndexVersionStore Implementation ====================

// GetIndexVersions returns the tenant's index fingerprints.
func (s *scope) GetIndexVersions(ctx context.Context) (domain.IndexVersions, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT ac_version_hash, ec_version_hash, updated_at
		FROM tenant_index_versions
		WHERE tenant_id = ?
	`, s.tenant.String())

	var v domain.IndexVersions
	var updated string
	err := row.Scan(&v.ACVersionHash, &v.ECVersionHash, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.IndexVersions{}, nil
	}
	if err != nil {
		return domain.IndexVersions{}, fmt.Errorf("getting index versions: %w", err)
	}
	v.UpdatedAt = parseTime(updated)
	return v, nil
}

// SetIndexVersions updates the non-empty fields of versions.
func (s *scope) SetIndexVersions(ctx context.Context, versions domain.IndexVersions) error {
	updated := versions.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenant_index_versions (tenant_id, ac_version_hash, ec_version_hash, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET
			ac_version_hash = CASE WHEN excluded.ac_version_hash = '' THEN ac_version_hash ELSE excluded.ac_version_hash END,
			ec_version_hash = CASE WHEN excluded.ec_version_hash = '' THEN ec_version_hash ELSE excluded.ec_version_hash END,
			updated_at = excluded.updated_at
	`, s.tenant.String(), versions.ACVersionHash, versions.ECVersionHash, formatTime(updated))
	if err != nil {
		return fmt.Errorf("saving index versions: %w", err)
	}
	return nil
}

// ==================== Time Helpers ====================

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
