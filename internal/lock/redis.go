package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Redis locks keys through a Redis server so several processes sharing one
// database file exclude each other.
type Redis struct {
	client *redislock.Client
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// DefaultTTL bounds how long a crashed holder can keep an item locked.
const DefaultTTL = 30 * time.Second

// NewRedis returns a Redis locker. Locks expire after ttl if their holder
// dies without releasing them. A zero ttl uses DefaultTTL.
func NewRedis(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{
		client: redislock.New(rdb),
		ttl:    ttl,
		prefix: "najdeno:lock:",
		logger: logger,
	}
}

// Lock retries until the key is obtained or ctx is done.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	l, err := r.client.Obtain(ctx, r.prefix+key, r.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(25 * time.Millisecond),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, fmt.Errorf("lock %s is busy", key)
		}
		return nil, fmt.Errorf("obtaining lock %s: %w", key, err)
	}

	return func() {
		// Release with a fresh context so a cancelled request still frees the key.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := l.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			r.logger.Warn("releasing lock", "key", key, "error", err)
		}
	}, nil
}

// Connect opens a Redis client for addr and verifies it answers.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis %s: %w", addr, err)
	}
	return rdb, nil
}
