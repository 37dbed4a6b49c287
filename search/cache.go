package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/foursight-ai/foursight/log"
)

// DefaultCacheTTL is how long cached search results stay fresh.
const DefaultCacheTTL = 6 * time.Hour

// CachedSource wraps a Source with a Redis read-through cache. Cache
// failures are logged and absorbed: a broken cache never fails a search.
type CachedSource struct {
	inner  Source
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger log.Logger
}

// CacheOption configures a CachedSource.
type CacheOption func(*CachedSource)

// WithCacheTTL sets the entry lifetime.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *CachedSource) { c.ttl = ttl }
}

// WithCachePrefix sets the key namespace.
func WithCachePrefix(prefix string) CacheOption {
	return func(c *CachedSource) { c.prefix = prefix }
}

// WithCacheLogger sets the logger used for cache misses and failures.
func WithCacheLogger(logger log.Logger) CacheOption {
	return func(c *CachedSource) { c.logger = logger }
}

// NewCachedSource wraps inner with a read-through cache on client.
func NewCachedSource(inner Source, client redis.UniversalClient, opts ...CacheOption) *CachedSource {
	c := &CachedSource{
		inner:  inner,
		client: client,
		ttl:    DefaultCacheTTL,
		prefix: "foursight:search",
		logger: log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Source.
func (c *CachedSource) Name() string { return c.inner.Name() }

func (c *CachedSource) key(query string, maxResults int) string {
	return fmt.Sprintf("%s:%s:%d:%s", c.prefix, c.inner.Name(), maxResults, strings.ToLower(strings.TrimSpace(query)))
}

// Search implements Source.
func (c *CachedSource) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	key := c.key(query, maxResults)

	raw, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var cached []Result
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			c.logger.Debug("search cache hit: %s", key)
			return cached, nil
		}
		c.logger.Warn("search cache entry corrupt, refetching: %s", key)
	} else if err != redis.Nil {
		c.logger.Warn("search cache read failed: %v", err)
	}

	results, err := c.inner.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(results); err == nil {
		if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.logger.Warn("search cache write failed: %v", err)
		}
	}
	return results, nil
}
