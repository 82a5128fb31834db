// Package corpus caches the per-tenant duplicate-detection corpus in Redis.
package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"pcrm/api/internal/duplicate"
)

const (
	DefaultTTL = 60 * time.Second
	// loadTimeout bounds a shared load, which outlives any single caller.
	loadTimeout = 5 * time.Second
)

// RedisCache implements duplicate.CorpusFetcher in front of another fetcher.
// One list per tenant is cached without exclusion; excludeID is filtered on
// read so creation and re-analysis share the entry. Redis failures fall
// through to the wrapped fetcher.
type RedisCache struct {
	client *redis.Client
	next   duplicate.CorpusFetcher
	ttl    time.Duration
	prefix string
	group  singleflight.Group
}

func NewRedisCache(redisURL string, ttl time.Duration, next duplicate.CorpusFetcher) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisCacheWithClient(client, ttl, next), nil
}

func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration, next duplicate.CorpusFetcher) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{
		client: client,
		next:   next,
		ttl:    ttl,
		prefix: "corpus:",
	}
}

func (c *RedisCache) key(tenantID string) string {
	return c.prefix + tenantID
}

func (c *RedisCache) RecentDescriptions(ctx context.Context, tenantID, excludeID string, limit int) ([]duplicate.Candidate, error) {
	if limit <= 0 || limit > duplicate.CorpusLimit {
		limit = duplicate.CorpusLimit
	}

	items, err := c.cached(ctx, tenantID)
	if err != nil {
		log.Printf("corpus: redis read failed for tenant %s: %v", tenantID, err)
		return c.next.RecentDescriptions(ctx, tenantID, excludeID, limit)
	}
	if items == nil {
		ch := c.group.DoChan(tenantID, func() (any, error) {
			lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
			defer cancel()
			return c.load(lctx, tenantID)
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
			items = res.Val.([]duplicate.Candidate)
		}
	}
	return trim(items, excludeID, limit), nil
}

// cached returns nil items on a cache miss.
func (c *RedisCache) cached(ctx context.Context, tenantID string) ([]duplicate.Candidate, error) {
	raw, err := c.client.Get(ctx, c.key(tenantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	items := make([]duplicate.Candidate, 0)
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("unmarshal corpus: %w", err)
	}
	return items, nil
}

// load fetches duplicate.MaxFetch rows so that excluding a single
// complaint still leaves a full corpus.
func (c *RedisCache) load(ctx context.Context, tenantID string) ([]duplicate.Candidate, error) {
	items, err := c.next.RecentDescriptions(ctx, tenantID, "", duplicate.MaxFetch)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []duplicate.Candidate{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal corpus: %w", err)
	}
	if err := c.client.Set(ctx, c.key(tenantID), payload, c.ttl).Err(); err != nil {
		log.Printf("corpus: redis write failed for tenant %s: %v", tenantID, err)
	}
	return items, nil
}

func trim(items []duplicate.Candidate, excludeID string, limit int) []duplicate.Candidate {
	out := make([]duplicate.Candidate, 0, min(len(items), limit))
	for _, item := range items {
		if len(out) == limit {
			break
		}
		if excludeID != "" && item.ID == excludeID {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Invalidate drops the cached corpus of a tenant.
func (c *RedisCache) Invalidate(ctx context.Context, tenantID string) error {
	if err := c.client.Del(ctx, c.key(tenantID)).Err(); err != nil {
		return fmt.Errorf("invalidate corpus: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
