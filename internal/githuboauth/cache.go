package githuboauth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/liatrio/fastmcp-github-oauth/internal/logging"
)

// Cache defaults. The TTL trades claim freshness against GitHub API quota;
// profile fields change rarely so a few minutes is plenty.
const (
	DefaultCacheTTL        = 5 * time.Minute
	DefaultCacheMaxEntries = 1000
)

// cacheEntry holds cached claims with their expiry deadline.
type cacheEntry struct {
	claims    *Claims
	expiresAt time.Time
}

// ClaimsCache memoizes FetchClaims results keyed by a token fingerprint.
// Concurrent lookups for the same token are collapsed into a single API
// call via singleflight.
type ClaimsCache struct {
	client     *Client
	ttl        time.Duration
	maxEntries int
	logger     *slog.Logger

	mu      sync.Mutex
	entries map[string]cacheEntry
	group   singleflight.Group

	// now is overridable for expiry tests.
	now func() time.Time
}

// NewClaimsCache creates a claims cache in front of the given client.
// Non-positive ttl or maxEntries select the defaults.
func NewClaimsCache(client *Client, ttl time.Duration, maxEntries int, logger *slog.Logger) *ClaimsCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultCacheMaxEntries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ClaimsCache{
		client:     client,
		ttl:        ttl,
		maxEntries: maxEntries,
		logger:     logger,
		entries:    make(map[string]cacheEntry),
		now:        time.Now,
	}
}

// Get returns the claims for an access token, fetching from the GitHub API
// on a cache miss. The second return value reports whether the claims came
// from the cache.
func (c *ClaimsCache) Get(ctx context.Context, accessToken string) (*Claims, bool, error) {
	key := tokenFingerprint(accessToken)

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && c.now().Before(entry.expiresAt) {
		c.mu.Unlock()
		return entry.claims, true, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check under singleflight: a concurrent caller may have
		// populated the entry while this one waited.
		c.mu.Lock()
		if entry, ok := c.entries[key]; ok && c.now().Before(entry.expiresAt) {
			c.mu.Unlock()
			return entry.claims, nil
		}
		c.mu.Unlock()

		claims, err := c.client.FetchClaims(ctx, accessToken)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.evictLocked()
		c.entries[key] = cacheEntry{
			claims:    claims,
			expiresAt: c.now().Add(c.ttl),
		}
		size := len(c.entries)
		c.mu.Unlock()

		c.logger.Debug("cached github claims",
			logging.UserHash(claims.Email),
			slog.Int("cache_size", size))
		return claims, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*Claims), false, nil
}

// Invalidate drops the cached claims for an access token, for use after
// token revocation.
func (c *ClaimsCache) Invalidate(accessToken string) {
	key := tokenFingerprint(accessToken)
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of cached entries, expired ones included.
func (c *ClaimsCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictLocked removes expired entries, then the soonest-expiring entries if
// the cache is still at capacity. Callers must hold c.mu.
func (c *ClaimsCache) evictLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
		}
	}

	for len(c.entries) >= c.maxEntries {
		var oldestKey string
		var oldestExpiry time.Time
		for key, entry := range c.entries {
			if oldestKey == "" || entry.expiresAt.Before(oldestExpiry) {
				oldestKey = key
				oldestExpiry = entry.expiresAt
			}
		}
		delete(c.entries, oldestKey)
	}
}

// tokenFingerprint derives the cache key from a token without storing the
// token itself.
func tokenFingerprint(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return hex.EncodeToString(sum[:])
}
