package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const versionKeyPrefix = "taxdesk:cache:version"

// Cache wraps Redis JSON caching with per-scope version counters. Bumping a
// scope orphans every key built under the previous version.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache instantiates the cache helper. A nil client yields a pass-through cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// WithLogger sets the logger used to report Redis failures.
func (c *Cache) WithLogger(logger *slog.Logger) *Cache {
	if c != nil {
		c.logger = logger
	}
	return c
}

func (c *Cache) warn(ctx context.Context, msg, key string, err error) {
	logger := c.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(ctx, msg, slog.String("key", key), slog.Any("error", err))
}

func versionKey(scope string) string {
	return versionKeyPrefix + ":" + scope
}

// Version returns the current version of scope, initialising it when missing.
func (c *Cache) Version(ctx context.Context, scope string) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, versionKey(scope)).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, versionKey(scope), 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, versionKey(scope), ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// BuildKey composes the cache key for scope with its current version.
func (c *Cache) BuildKey(ctx context.Context, scope string, parts ...string) (string, error) {
	joined := strings.Join(append([]string{scope}, parts...), ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx, scope)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d", joined, ver), nil
}

// FetchJSON loads a cached value or populates it using the loader. Redis
// failures are logged and treated as misses; only loader and encoding errors
// are returned.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c != nil && c.client != nil {
		payload, err := c.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			if err := json.Unmarshal(payload, dest); err == nil {
				return nil
			}
			c.warn(ctx, "cache entry unreadable", key, err)
		case !errors.Is(err, redis.Nil):
			c.warn(ctx, "cache read failed", key, err)
		}
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c != nil && c.client != nil {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.warn(ctx, "cache write failed", key, err)
		}
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates every key of scope by incrementing its version.
func (c *Cache) Bump(ctx context.Context, scope string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, versionKey(scope)).Err()
}

// BusinessScope names the invalidation scope shared by every cached view of
// one business.
func BusinessScope(businessID string) string {
	return "business:" + businessID
}
