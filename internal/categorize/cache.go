package categorize

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds how long AI responses are reused. Merchant
// descriptors are stable, so a month is safe.
const DefaultCacheTTL = 30 * 24 * time.Hour

// Cache stores AI responses keyed by a content hash. Concurrent writes
// for the same key carry the same value, so plain set semantics are
// enough.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// cacheKey hashes the input so arbitrary merchant strings make valid
// keys.
func cacheKey(prefix, text string) string {
	sum := md5.Sum([]byte(strings.ToLower(text)))
	return "ai:" + prefix + ":" + hex.EncodeToString(sum[:])
}

// RedisCache backs the Cache with Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps an existing Redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// MemoryCache is a process-local Cache for tests and cache-less
// deployments. TTLs are honored on read.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryCacheEntry
}

type memoryCacheEntry struct {
	value     string
	expiresAt time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryCacheEntry)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// ttl 0 means no expiry; negative values expire immediately.
	var expires time.Time
	if ttl != 0 {
		expires = time.Now().Add(ttl)
	}
	c.entries[key] = memoryCacheEntry{value: value, expiresAt: expires}
	return nil
}
