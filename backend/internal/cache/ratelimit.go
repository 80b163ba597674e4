package cache

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"

	"wallServer/backend/internal/wall"
)

// RateLimiter 固定窗口限流：同一个用户在一个窗口内
// 最多提交 maxEdits 次像素编辑。实现 wall.EditPolicy。
type RateLimiter struct {
	rdb      *redis.Client
	maxEdits int
	window   time.Duration
}

func NewRateLimiter(rdb *redis.Client, maxEdits int, window time.Duration) *RateLimiter {
	if maxEdits <= 0 {
		maxEdits = 50
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &RateLimiter{rdb: rdb, maxEdits: maxEdits, window: window}
}

func (l *RateLimiter) Allow(ctx context.Context, editorID uint64) error {
	// 以窗口起点编号做键，窗口过了键自然过期
	windowSecs := int64(l.window.Seconds())
	if windowSecs < 1 {
		windowSecs = 1
	}
	windowStart := time.Now().Unix() / windowSecs
	key := rateKey(editorID, windowStart)

	pipe := l.rdb.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		// Redis 不可用时放行，编辑链路不能因为限流器挂掉而不可用
		return nil
	}
	if incr.Val() > int64(l.maxEdits) {
		return wall.ErrRateLimited
	}
	return nil
}
