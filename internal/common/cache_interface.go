package common

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// CacheInterface defines the contract for cache implementations. Values are
// opaque bytes so that the in-memory and Redis caches behave the same.
type CacheInterface interface {
	// Set stores a value in cache with the given key and duration
	Set(key string, value []byte, duration time.Duration)

	// Get retrieves a value from cache by key
	// Returns the value and true if found, nil and false otherwise
	Get(key string) ([]byte, bool)

	// Delete removes a value from cache by key
	Delete(key string)

	// Close closes any underlying connections (for Redis, etc.)
	Close() error
}

// SetValue msgpack-encodes v and stores it under key.
func SetValue(c CacheInterface, key string, v interface{}, duration time.Duration) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache value for %s: %w", key, err)
	}
	c.Set(key, data, duration)
	return nil
}

// GetValue decodes the value stored under key into out. It reports false
// when the key is absent.
func GetValue(c CacheInterface, key string, out interface{}) (bool, error) {
	data, found := c.Get(key)
	if !found {
		return false, nil
	}
	if err := msgpack.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to decode cache value for %s: %w", key, err)
	}
	return true, nil
}

// GetOrSet decodes the cached value of key into out, or calls loader, caches
// its result and decodes that. A corrupt entry is treated as a miss.
func GetOrSet[T any](c CacheInterface, key string, duration time.Duration, loader func() (T, error)) (T, bool, error) {
	var cached T
	if found, err := GetValue(c, key, &cached); err == nil && found {
		return cached, true, nil
	}

	val, err := loader()
	if err != nil {
		var zero T
		return zero, false, err
	}

	if err := SetValue(c, key, val, duration); err != nil {
		return val, false, err
	}
	return val, false, nil
}
