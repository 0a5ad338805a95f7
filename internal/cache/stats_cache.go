package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a Redis-backed read cache for the statistics queries. Staleness
// here is a correctness issue, not just a performance one, so the engine
// invalidates whole key groups on every successful write; the per-entry
// TTL is only a backstop.
type Cache struct {
	rdb    *redis.Client
	prefix string
}

// New connects to Redis and returns the cache, or nil when the address is
// empty or the server is unreachable. A nil *Cache is a valid "no cache".
func New(addr, password string, db int) *Cache {
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("redis at %s unreachable, statistics cache disabled: %v", addr, err)
		return nil
	}
	return &Cache{rdb: rdb, prefix: "progress:"}
}

// GetJSON loads key into v, reporting whether a usable entry existed.
func (c *Cache) GetJSON(ctx context.Context, key string, v interface{}) bool {
	if c == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Printf("cache entry %s is corrupt, dropping: %v", key, err)
		c.rdb.Del(ctx, c.prefix+key)
		return false
	}
	return true
}

// SetJSON stores v under key. Failures are logged, never surfaced; the
// cache is best-effort.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if c == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("cache marshal for %s failed: %v", key, err)
		return
	}
	if err := c.rdb.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		log.Printf("cache set for %s failed: %v", key, err)
	}
}

// Invalidate removes every entry of the given key groups (e.g. "stats",
// "weak", "progress").
func (c *Cache) Invalidate(ctx context.Context, groups ...string) {
	if c == nil {
		return
	}
	for _, group := range groups {
		pattern := c.prefix + group + ":*"
		iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			log.Printf("cache scan %s failed: %v", pattern, err)
			continue
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				log.Printf("cache invalidate %s failed: %v", pattern, err)
			}
		}
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
