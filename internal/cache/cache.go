package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a JSON value cache on Redis with tag-based invalidation. A Cache
// built without a client is a no-op: every Get misses and writes are dropped.
type Cache struct {
	rdb    *redis.Client
	prefix string
}

func New(rdb *redis.Client, prefix string) *Cache {
	return &Cache{rdb: rdb, prefix: prefix}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opt.ReadTimeout == 0 {
		opt.ReadTimeout = 2 * time.Second
	}
	if opt.WriteTimeout == 0 {
		opt.WriteTimeout = 2 * time.Second
	}
	if opt.DialTimeout == 0 {
		opt.DialTimeout = 5 * time.Second
	}
	if opt.PoolSize == 0 {
		opt.PoolSize = 20
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

func (c *Cache) tagKey(tag string) string {
	return c.prefix + "tag:" + tag
}

// Get decodes the cached value for key into out. It reports false on a miss.
func (c *Cache) Get(ctx context.Context, key string, out any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	raw, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) genKey(tag string) string {
	return c.prefix + "gen:" + tag
}

// Generation returns the invalidation count of tag. Read it before computing
// a value and hand it to SetAt.
func (c *Cache) Generation(ctx context.Context, tag string) (int64, error) {
	if !c.Enabled() {
		return 0, nil
	}
	n, err := c.rdb.Get(ctx, c.genKey(tag)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// SetAt stores value under key for ttl and records key under tag, unless tag
// was invalidated after gen was read. It reports whether the value was stored.
func (c *Cache) SetAt(ctx context.Context, gen int64, key string, value any, ttl time.Duration, tag string) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	full, gk, tk := c.key(key), c.genKey(tag), c.tagKey(tag)
	stored := false
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Int64()
		if errors.Is(err, redis.Nil) {
			cur, err = 0, nil
		}
		if err != nil {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, full, raw, ttl)
			p.SAdd(ctx, tk, full)
			p.Expire(ctx, tk, ttl*2)
			return nil
		})
		stored = err == nil
		return err
	}, gk)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return stored, err
}

// InvalidateTag bumps the tag generation, then removes every key recorded
// under tag and the tag itself.
func (c *Cache) InvalidateTag(ctx context.Context, tag string) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.rdb.Incr(ctx, c.genKey(tag)).Err(); err != nil {
		return err
	}
	tk := c.tagKey(tag)
	members, err := c.rdb.SMembers(ctx, tk).Result()
	if err != nil {
		return err
	}
	keys := append(members, tk)
	return c.rdb.Del(ctx, keys...).Err()
}
