package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "lead-followup:lock:"

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a best-effort advisory lock shared between processes.
type RedisLocker struct {
	client client
	ttl    time.Duration
	logger *slog.Logger
}

// client is the part of *redis.Client the locker uses.
type client interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

func NewRedisLocker(c client, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	return &RedisLocker{client: c, ttl: ttl, logger: logger.With(slog.String("component", "redis_lock"))}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), bool, error) {
	c := l.client
	token := uuid.NewString()
	full := keyPrefix + key

	ok, err := c.SetNX(ctx, full, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// the caller's context may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, c, []string{full}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Warn("lock release failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	return release, true, nil
}
