package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisRateCounter 是固定窗口计数所需的 Redis 能力，*redis.Client 满足该接口。
type redisRateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// allowInWindow 对 key 计数一次，窗口从第一次计数开始。超过 limit 时返回 false。
func allowInWindow(ctx context.Context, counter redisRateCounter, key string, limit int, window time.Duration) (bool, error) {
	count, err := counter.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("incr %q: %w", key, err)
	}
	if count == 1 {
		if err := counter.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("expire %q: %w", key, err)
		}
	}
	return count <= int64(limit), nil
}
