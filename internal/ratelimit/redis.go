package ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/OneTus27/site/internal/config"
)

var _ Limiter = (*RedisLimiter)(nil)

// RedisLimiter counts requests in a fixed window with INCR + EXPIRE, so the
// limit holds across process restarts and replicas.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// Dial connects to Redis and verifies the connection with a ping.
func Dial(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return c, nil
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	key = "rate_limit:" + key

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(r.limit), nil
}
