package common

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryCache is the in-process cache used when Redis is not configured
type MemoryCache struct {
	cache *cache.Cache
}

// Ensure MemoryCache implements CacheInterface
var _ CacheInterface = (*MemoryCache)(nil)

func NewMemoryCache(defaultExpiration, cleanUpInterval time.Duration) *MemoryCache {
	c := cache.New(defaultExpiration, cleanUpInterval)
	return &MemoryCache{cache: c}
}

func (mc *MemoryCache) Set(key string, value []byte, duration time.Duration) {
	mc.cache.Set(key, value, duration)
}

func (mc *MemoryCache) Get(key string) ([]byte, bool) {
	val, found := mc.cache.Get(key)
	if !found {
		return nil, false
	}
	data, ok := val.([]byte)
	return data, ok
}

func (mc *MemoryCache) Delete(key string) {
	mc.cache.Delete(key)
}

// Close is a no-op for the in-memory cache
func (mc *MemoryCache) Close() error {
	return nil
}

// ItemCount includes expired items not yet cleaned up
func (mc *MemoryCache) ItemCount() int {
	return mc.cache.ItemCount()
}
