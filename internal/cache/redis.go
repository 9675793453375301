package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTLs per cached view
const (
	ConfigsTTL = 24 * time.Hour
	BatchesTTL = 5 * time.Minute
	StatsTTL   = 5 * time.Minute
)

// Cache is a thin Redis wrapper. Every method is a no-op on a nil Cache or
// when Redis is unreachable, so callers fall through to the database.
type Cache struct {
	client *redis.Client
}

// Options for connecting.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// New connects and pings. A failed ping closes the client and returns the error.
func New(ctx context.Context, opts Options) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &Cache{client: client}, nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// Keys

func ConfigsKey(userID string) string { return fmt.Sprintf("configs:%s", userID) }
func BatchesKey(userID string) string { return fmt.Sprintf("batches:%s", userID) }
func StatsKey(userID, filter string) string {
	return fmt.Sprintf("stats:%s:%s", userID, filter)
}
func statsPattern(userID string) string { return fmt.Sprintf("stats:%s:*", userID) }

// GetCached returns cached data for a key
func (c *Cache) GetCached(ctx context.Context, key string) ([]byte, bool) {
	if !c.enabled() {
		return nil, false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL
func (c *Cache) SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if !c.enabled() {
		return
	}
	c.client.Set(ctx, key, data, ttl)
}

// InvalidatePattern removes all keys matching a glob pattern
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) {
	if !c.enabled() {
		return
	}
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if iter.Err() == nil && len(keys) > 0 {
		c.client.Del(ctx, keys...)
	}
}

// InvalidateKeys removes specific cache keys
func (c *Cache) InvalidateKeys(ctx context.Context, keys ...string) {
	if !c.enabled() || len(keys) == 0 {
		return
	}
	c.client.Del(ctx, keys...)
}

// InvalidateBatchCaches clears everything derived from the batch list.
// Called after every batch write.
func (c *Cache) InvalidateBatchCaches(ctx context.Context, userID string) {
	c.InvalidateKeys(ctx, BatchesKey(userID))
	c.InvalidatePattern(ctx, statsPattern(userID))
}

// InvalidateConfigCaches clears configs and stats, whose species filter
// resolves against configs.
func (c *Cache) InvalidateConfigCaches(ctx context.Context, userID string) {
	c.InvalidateKeys(ctx, ConfigsKey(userID))
	c.InvalidatePattern(ctx, statsPattern(userID))
}

// Incr bumps a counter, setting ttl on first use. Returns 0 when disabled.
func (c *Cache) Incr(ctx context.Context, key string, ttl time.Duration) int64 {
	if !c.enabled() {
		return 0
	}
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0
	}
	if n == 1 {
		c.client.Expire(ctx, key, ttl)
	}
	return n
}

// Count reads a counter set by Incr.
func (c *Cache) Count(ctx context.Context, key string) int64 {
	if !c.enabled() {
		return 0
	}
	n, err := c.client.Get(ctx, key).Int64()
	if err != nil {
		return 0
	}
	return n
}

// IsHealthy returns true if Redis connection is working
func (c *Cache) IsHealthy(ctx context.Context) bool {
	if !c.enabled() {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.client.Ping(ctx).Err() == nil
}

// Enabled reports whether a Redis client is configured.
func (c *Cache) Enabled() bool {
	return c.enabled()
}

func (c *Cache) Close() error {
	if !c.enabled() {
		return nil
	}
	return c.client.Close()
}
