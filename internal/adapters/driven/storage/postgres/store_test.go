package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
)

// startStore runs a pgvector container for the test. It is skipped in short
// mode and when no container runtime is available.
func startStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"pgvector/pgvector:pg17",
		tcpostgres.WithDatabase("veritas"),
		tcpostgres.WithUsername("veritas"),
		tcpostgres.WithPassword("veritas"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { testcontainers.TerminateContainer(container) }) //nolint:errcheck

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func scopeFor(t *testing.T, store *Store, tenant domain.TenantID) driven.TenantScope {
	t.Helper()
	scope, err := store.ForTenant(tenant)
	require.NoError(t, err)
	return scope
}

func section(id, url, text string, emb ...float32) domain.Section {
	return domain.Section{
		ID:          id,
		URL:         url,
		Text:        text,
		PageType:    domain.PageTypeFAQ,
		SectionHash: "h-" + id,
		VersionHash: "v-" + id,
		EndChar:     len(text),
		Embedding:   emb,
	}
}

func TestNewStore_RejectsEmptyURL(t *testing.T) {
	_, err := NewStore(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_ForTenant_RejectsBlank(t *testing.T) {
	var store Store
	_, err := store.ForTenant(" ")
	assert.ErrorIs(t, err, domain.ErrTenantRequired)
}

func TestTextSearchConfig(t *testing.T) {
	assert.Equal(t, "english", textSearchConfig("The opening hours of the library are posted on the front door every week."))
	assert.Equal(t, "spanish", textSearchConfig("El horario de apertura de la biblioteca se publica en la puerta principal cada semana."))
	assert.Equal(t, "simple", textSearchConfig("9f3k"))
}

func TestPostgres_Scope(t *testing.T) {
	store := startStore(t)
	ctx := context.Background()
	a := scopeFor(t, store, "tenant-a")
	b := scopeFor(t, store, "tenant-b")

	page := domain.RawPageMeta{URL: "https://a.test/faq", Title: "FAQ", Version: 1}
	require.NoError(t, a.SaveSections(ctx, page, []domain.Section{
		section("hours", page.URL, "Our opening hours are nine to five on weekdays.", 1, 0),
		section("parking", page.URL, "Parking is available behind the building.", 3, 0),
		section("secret", page.URL, "alpha_only_phrase_9f3k lives here", 10, 10),
	}))

	t.Run("sections round trip", func(t *testing.T) {
		got, err := a.GetSection(ctx, "hours")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 0}, got.Embedding)
		assert.Equal(t, domain.PageTypeFAQ, got.PageType)

		meta, err := a.GetRawPageMeta(ctx, page.URL)
		require.NoError(t, err)
		assert.Equal(t, 3, meta.SectionCount)
	})

	t.Run("vector orders by distance", func(t *testing.T) {
		hits, err := a.QueryVector(ctx, []float32{0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "hours", hits[0].SectionID)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
		assert.Equal(t, "parking", hits[1].SectionID)

		_, err = a.QueryVector(ctx, []float32{0, 0, 0}, 2)
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})

	t.Run("lexical matches", func(t *testing.T) {
		hits, err := a.QueryLexical(ctx, "opening hours", 10)
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		assert.Equal(t, "hours", hits[0].SectionID)
		assert.Greater(t, hits[0].Score, 0.0)
	})

	t.Run("tenant isolation", func(t *testing.T) {
		own, err := a.QueryLexical(ctx, "alpha_only_phrase_9f3k", 10)
		require.NoError(t, err)
		assert.Len(t, own, 1)

		lex, err := b.QueryLexical(ctx, "alpha_only_phrase_9f3k", 10)
		require.NoError(t, err)
		assert.Empty(t, lex)

		vec, err := b.QueryVector(ctx, []float32{1, 1}, 10)
		require.NoError(t, err)
		assert.Empty(t, vec)

		_, err = b.GetSection(ctx, "secret")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("replace page", func(t *testing.T) {
		page.Version = 2
		require.NoError(t, a.SaveSections(ctx, page, []domain.Section{section("hours", page.URL, "Closed today.", 1, 1)}))

		_, err := a.GetSection(ctx, "parking")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		versions, err := a.ListSectionVersions(ctx)
		require.NoError(t, err)
		assert.Len(t, versions, 1)
	})

	t.Run("evidence is idempotent", func(t *testing.T) {
		require.NoError(t, a.InsertEvidence(ctx, []domain.Evidence{{ID: "ev1", SectionID: "hours", QuoteSpan: "first"}}))
		require.NoError(t, a.InsertEvidence(ctx, []domain.Evidence{{ID: "ev1", SectionID: "hours", QuoteSpan: "second"}}))

		got, err := a.GetEvidenceByIDs(ctx, []string{"ev1", "missing"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "first", got[0].QuoteSpan)

		other, err := b.GetEvidenceByIDs(ctx, []string{"ev1"})
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("cache upserts", func(t *testing.T) {
		require.NoError(t, a.PutCacheEntry(ctx, domain.CacheEntry{Key: "k", QueryHash: "q", Payload: []byte("one")}))
		expires := time.Now().Add(time.Hour)
		require.NoError(t, a.PutCacheEntry(ctx, domain.CacheEntry{Key: "k", QueryHash: "q", Payload: []byte("two"), ExpiresAt: &expires}))

		entry, err := a.GetCacheEntry(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "two", string(entry.Payload))
		require.NotNil(t, entry.ExpiresAt)

		_, err = b.GetCacheEntry(ctx, "k")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("index versions keep empty fields", func(t *testing.T) {
		require.NoError(t, a.SetIndexVersions(ctx, domain.IndexVersions{ACVersionHash: "ac1", ECVersionHash: "ec1"}))
		require.NoError(t, a.SetIndexVersions(ctx, domain.IndexVersions{ACVersionHash: "ac2"}))

		v, err := a.GetIndexVersions(ctx)
		require.NoError(t, err)
		assert.Equal(t, "ac2", v.ACVersionHash)
		assert.Equal(t, "ec1", v.ECVersionHash)

		none, err := b.GetIndexVersions(ctx)
		require.NoError(t, err)
		assert.Empty(t, none.ACVersionHash)
	})
}
