package billing

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"
)

// catalogKey is the Redis key holding the serialized catalog.
const catalogKey = "kelvin:billing:catalog"

// DefaultCatalogTTL bounds how stale a cached pricing page may be.
const DefaultCatalogTTL = 5 * time.Minute

// CacheStats receives cache hit/miss notifications. Implementations are
// typically prometheus counters; a nil Stats is a no-op.
type CacheStats interface {
	Hit(cache string)
	Miss(cache string)
}

type catalogEntry struct {
	Plans     []Plan    `json:"plans"`
	FetchedAt time.Time `json:"fetched_at"`
}

// CatalogCache is a two-level plan-catalog cache: an in-process LRU (L1) and
// an optional Redis tier (L2) shared across instances. The catalog cookie of
// earlier revisions is replaced by this cache.
type CatalogCache struct {
	ttl   time.Duration
	l1    *lru.Cache[string, catalogEntry]
	redis *redis.Client
	stats CacheStats
}

// NewCatalogCache creates a cache. redisClient may be nil for L1-only
// operation; ttl of zero uses DefaultCatalogTTL.
func NewCatalogCache(redisClient *redis.Client, ttl time.Duration, stats CacheStats) (*CatalogCache, error) {
	if ttl == 0 {
		ttl = DefaultCatalogTTL
	}
	// The catalog is a single entry today; a small LRU keeps room for
	// per-currency catalogs later without a structural change.
	l1, err := lru.New[string, catalogEntry](8)
	if err != nil {
		return nil, err
	}
	return &CatalogCache{ttl: ttl, l1: l1, redis: redisClient, stats: stats}, nil
}

func (c *CatalogCache) hit() {
	if c.stats != nil {
		c.stats.Hit("catalog")
	}
}

func (c *CatalogCache) miss() {
	if c.stats != nil {
		c.stats.Miss("catalog")
	}
}

// Get returns the cached catalog if present and fresh.
func (c *CatalogCache) Get(ctx context.Context) ([]Plan, bool) {
	if entry, ok := c.l1.Get(catalogKey); ok {
		if time.Since(entry.FetchedAt) < c.ttl {
			c.hit()
			return entry.Plans, true
		}
		c.l1.Remove(catalogKey)
	}

	if c.redis != nil {
		raw, err := c.redis.Get(ctx, catalogKey).Bytes()
		if err == nil {
			var entry catalogEntry
			if json.Unmarshal(raw, &entry) == nil && time.Since(entry.FetchedAt) < c.ttl {
				c.l1.Add(catalogKey, entry)
				c.hit()
				return entry.Plans, true
			}
		}
	}

	c.miss()
	return nil, false
}

// Set stores the catalog in both tiers. Redis errors are ignored: the cache
// degrades to L1-only rather than failing the caller.
func (c *CatalogCache) Set(ctx context.Context, plans []Plan) {
	entry := catalogEntry{Plans: plans, FetchedAt: time.Now()}
	c.l1.Add(catalogKey, entry)

	if c.redis != nil {
		if raw, err := json.Marshal(entry); err == nil {
			c.redis.Set(ctx, catalogKey, raw, c.ttl)
		}
	}
}

// Invalidate drops the cached catalog from both tiers.
func (c *CatalogCache) Invalidate(ctx context.Context) {
	c.l1.Remove(catalogKey)
	if c.redis != nil {
		c.redis.Del(ctx, catalogKey)
	}
}

// CachingClient wraps a Client so ListPlans is served from the catalog
// cache. All other operations pass through to the upstream backend.
type CachingClient struct {
	Client
	cache *CatalogCache
}

// NewCachingClient wraps upstream with the given cache.
func NewCachingClient(upstream Client, cache *CatalogCache) *CachingClient {
	return &CachingClient{Client: upstream, cache: cache}
}

// ListPlans serves the catalog from cache, pulling from the backend on miss.
func (c *CachingClient) ListPlans(ctx context.Context) ([]Plan, error) {
	if plans, ok := c.cache.Get(ctx); ok {
		return plans, nil
	}
	return c.refresh(ctx)
}

// Refresh re-pulls the catalog from the backend and repopulates the cache.
func (c *CachingClient) Refresh(ctx context.Context) error {
	_, err := c.refresh(ctx)
	return err
}

func (c *CachingClient) refresh(ctx context.Context) ([]Plan, error) {
	plans, err := c.Client.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(ctx, plans)
	return plans, nil
}
