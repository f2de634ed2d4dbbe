// Package cache stores resolved pages in Redis.
//
// Keys embed a generation number. A mutation bumps the generation instead of
// scanning for keys, so every page cached before it becomes unreachable and
// simply expires.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/user-directory/internal/query"
)

const defaultPrefix = "users"

// PageCache caches page results keyed by the normalized request.
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// NewPageCache returns nil when client is nil or ttl is not positive; every
// method on a nil *PageCache is a no-op miss.
func NewPageCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *PageCache {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &PageCache{client: client, ttl: ttl, prefix: defaultPrefix, logger: logger}
}

func (c *PageCache) generationKey() string {
	return c.prefix + ":generation"
}

func (c *PageCache) pageKey(gen int64, req query.PageRequest) string {
	return fmt.Sprintf("%s:page:%d:%d:%d:%s:%s:%s",
		c.prefix, gen, req.Page, req.PageSize, req.SortField, req.SortDirection, url.QueryEscape(req.Search))
}

func (c *PageCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// setIfGeneration writes the page only while the generation is still the
// one observed before storage was read.
var setIfGeneration = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current ~= tonumber(ARGV[1]) then
  return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// Get returns the cached page for req together with the generation it was
// looked up under. Pass that generation to Set after reading storage. Redis
// failures are logged and reported as a miss with a negative generation.
func (c *PageCache) Get(ctx context.Context, req query.PageRequest) (query.PageResult, int64, bool) {
	if c == nil {
		return query.PageResult{}, -1, false
	}
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Debug("page cache generation lookup failed", zap.Error(err))
		return query.PageResult{}, -1, false
	}
	raw, err := c.client.Get(ctx, c.pageKey(gen, req)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("page cache read failed", zap.Error(err))
		}
		return query.PageResult{}, gen, false
	}
	var result query.PageResult
	if err := json.Unmarshal(raw, &result); err != nil {
		c.logger.Warn("page cache entry corrupt", zap.Error(err))
		return query.PageResult{}, gen, false
	}
	return result, gen, true
}

// Set stores a page read from storage under gen, the generation returned by
// the Get that preceded the read. A page read before an invalidation is
// dropped instead of being filed under the newer generation.
func (c *PageCache) Set(ctx context.Context, gen int64, req query.PageRequest, result query.PageResult) {
	if c == nil || gen < 0 {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	keys := []string{c.generationKey(), c.pageKey(gen, req)}
	stored, err := setIfGeneration.Run(ctx, c.client, keys, gen, raw, c.ttl.Milliseconds()).Int()
	if err != nil {
		c.logger.Debug("page cache write failed", zap.Error(err))
		return
	}
	if stored == 0 {
		c.logger.Debug("page cache write skipped; generation moved", zap.Int64("generation", gen))
	}
}

// Invalidate makes every cached page unreachable.
func (c *PageCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Incr(ctx, c.generationKey()).Err()
}
