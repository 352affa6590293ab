package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/talkcircle/sentinel/internal/cache"
)

const sessionKeyPrefix = "sentinel:session:"

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) cache.SessionCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, sessionID string) ([]byte, bool) {
	payload, err := c.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("session cache read failed", "error", err, "session_id", sessionID)
		}
		return nil, false
	}
	return payload, true
}

func (c *RedisCache) Set(ctx context.Context, sessionID string, payload []byte) {
	if err := c.client.Set(ctx, sessionKeyPrefix+sessionID, payload, c.ttl).Err(); err != nil {
		slog.Warn("session cache write failed", "error", err, "session_id", sessionID)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, sessionID string) {
	if err := c.client.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
		slog.Warn("session cache invalidation failed", "error", err, "session_id", sessionID)
	}
}

// NoopCache is used when no Redis URL is configured.
type NoopCache struct{}

func NewNoopCache() cache.SessionCache { return &NoopCache{} }

func (*NoopCache) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (*NoopCache) Set(context.Context, string, []byte)        {}
func (*NoopCache) Invalidate(context.Context, string)         {}
