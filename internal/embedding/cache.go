package embedding

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	// DefaultCacheTTL is how long a cached query embedding stays valid.
	DefaultCacheTTL = 30 * time.Minute

	// cacheCleanupInterval is how often expired entries are purged.
	cacheCleanupInterval = 10 * time.Minute
)

// Cached memoizes embeddings by text. It is meant for query embeddings, which
// repeat across assistant modes and CLI invocations within one process.
type Cached struct {
	provider Provider
	cache    *cache.Cache
}

// NewCached wraps provider with an in-memory TTL cache.
func NewCached(provider Provider, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{
		provider: provider,
		cache:    cache.New(ttl, cacheCleanupInterval),
	}
}

// Embed returns the cached embedding for text, computing it on a miss.
// Failures are not cached.
func (c *Cached) Embed(ctx context.Context, text string) (Embedding, error) {
	if v, ok := c.cache.Get(text); ok {
		return v.(Embedding), nil
	}

	emb, err := c.provider.Embed(ctx, text)
	if err != nil {
		return Embedding{}, err
	}
	c.cache.Set(text, emb, cache.DefaultExpiration)
	return emb, nil
}

// Len returns the number of cached embeddings.
func (c *Cached) Len() int {
	return c.cache.ItemCount()
}

// ModelName returns the name of the wrapped embedding model.
func (c *Cached) ModelName() string {
	return c.provider.ModelName()
}

// Dimensions returns the wrapped provider's vector dimensions.
func (c *Cached) Dimensions() int {
	return c.provider.Dimensions()
}
