package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
)

// MakeCacheKey builds the answer cache key. It is exactly five
// colon-joined fields: tenant, query hash, AC version, EC version and crawl
// policy version.
func MakeCacheKey(tenant domain.TenantID, queryHash, acVersion, ecVersion, policyVersion string) (string, error) {
	if err := tenant.Validate(); err != nil {
		return "", err
	}
	return strings.Join([]string{tenant.String(), queryHash, acVersion, ecVersion, policyVersion}, ":"), nil
}

// AnswerCache reads and writes versioned answer payloads through a tenant
// scope. Invalidation is implicit: a re-index or policy change moves the key.
type AnswerCache struct {
	now func() time.Time
}

// NewAnswerCache creates an answer cache using the wall clock.
func NewAnswerCache() *AnswerCache {
	return &AnswerCache{now: time.Now}
}

// WithClock returns a copy of the cache that reads time from now.
func (c *AnswerCache) WithClock(now func() time.Time) *AnswerCache {
	return &AnswerCache{now: now}
}

// Get returns the payload stored under key. A missing entry, an expired
// entry and a row owned by another tenant are all misses (nil, false, nil).
func (c *AnswerCache) Get(ctx context.Context, scope driven.AnswerCacheStore, tenant domain.TenantID, key string) ([]byte, bool, error) {
	entry, err := scope.GetCacheEntry(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", domain.ErrCacheUnavailable, err)
	}
	if entry.TenantID != tenant.String() {
		return nil, false, nil
	}
	if entry.Expired(c.now()) {
		return nil, false, nil
	}
	return entry.Payload, true, nil
}

// Set upserts payload under key. An expiry is recorded only when ttl > 0.
func (c *AnswerCache) Set(
	ctx context.Context,
	scope driven.AnswerCacheStore,
	tenant domain.TenantID,
	key, queryHash string,
	payload []byte,
	ttl time.Duration,
) error {
	now := c.now().UTC()
	entry := domain.CacheEntry{
		Key:       key,
		TenantID:  tenant.String(),
		QueryHash: queryHash,
		Payload:   payload,
		CreatedAt: now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		entry.ExpiresAt = &expires
	}
	if err := scope.PutCacheEntry(ctx, entry); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCacheUnavailable, err)
	}
	return nil
}
