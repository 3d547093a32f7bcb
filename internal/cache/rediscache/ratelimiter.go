package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	c   *redis.Client
	now func() time.Time
}

func NewRateLimiter(addr string) *RateLimiter {
	return NewRateLimiterWithClient(redis.NewClient(&redis.Options{Addr: addr}))
}

func NewRateLimiterWithClient(c *redis.Client) *RateLimiter {
	return &RateLimiter{c: c, now: time.Now}
}

// Allow делает INCR по ключу и ставит TTL окна.
// Возвращает (allowed, currentCount).
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	pipe := rl.c.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return false, 0, errors.Wrap(err, "redis ratelimit")
	}
	n := incr.Val()
	return n <= limit, n, nil
}

// AllowPerMinute считает попытки subject в текущей минуте (ключ вида rl:<scope>:<subject>:200601021504).
func (rl *RateLimiter) AllowPerMinute(ctx context.Context, scope, subject string, limit int64) (bool, int64, error) {
	key := fmt.Sprintf("rl:%s:%s:%s", scope, subject, rl.now().UTC().Format("200601021504"))
	return rl.Allow(ctx, key, limit, 70*time.Second)
}
