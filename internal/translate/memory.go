package translate

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryCache keeps translations in process. It is the fallback when Redis
// is not configured.
type MemoryCache struct {
	c *cache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{c: cache.New(ttl, 10*time.Minute)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	if v, ok := m.c.Get(key); ok {
		s, ok := v.(string)
		return s, ok
	}
	return "", false
}

func (m *MemoryCache) Set(_ context.Context, key, value string) {
	m.c.Set(key, value, cache.DefaultExpiration)
}
