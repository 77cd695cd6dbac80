package domain

import "time"

// CacheEntry is a persisted answer payload.
// Key is tenant:query_hash:ac_version_hash:ec_version_hash:crawl_policy_version.
type CacheEntry struct {
	Key       string
	TenantID  string
	QueryHash string
	Payload   []byte
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// Expired reports whether the entry's expiry is strictly before now.
// An entry without an expiry never expires.
func (e CacheEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && e.ExpiresAt.Before(now)
}

// IndexVersions holds a tenant's current index fingerprints.
type IndexVersions struct {
	ACVersionHash string
	ECVersionHash string
	UpdatedAt     time.Time
}
