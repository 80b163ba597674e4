package feed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	BaseTTL          = 24 * time.Hour   // 基础过期时间
	Jitter           = 60 * time.Minute // 随机抖动范围
	EmptyCacheMarker = -1               // 空值标记
)

// 获取随机TTL，防止缓存雪崩
func getRandomTTL() time.Duration {
	return BaseTTL + time.Duration(rand.Int63n(int64(Jitter)))
}

func viewKey(wallID uint64) string {
	return fmt.Sprintf("feed:views:{wallID:%d}", wallID)
}

// CachedStats 在 gorm 仓库外面套一层 Redis 读缓存：
// 浏览计数直接打在 Redis 上，miss 回源数据库时用
// singleflight 合并并发请求。
type CachedStats struct {
	rdb  *redis.Client
	repo Repo
	sf   singleflight.Group
}

func NewCachedStats(rdb *redis.Client, repo Repo) *CachedStats {
	return &CachedStats{rdb: rdb, repo: repo}
}

// IncrView 记一次浏览，返回新的计数
func (c *CachedStats) IncrView(ctx context.Context, wallID uint64) (uint64, error) {
	key := viewKey(wallID)
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	c.rdb.Expire(ctx, key, getRandomTTL())
	if n <= 0 {
		// 之前写过空值标记，INCR 会从 -1 往上加，重置掉
		c.rdb.Set(ctx, key, 1, getRandomTTL())
		return 1, nil
	}
	return uint64(n), nil
}

func (c *CachedStats) readCache(ctx context.Context, key string) (uint64, bool, error) {
	res, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	// 不能使用ParseUint，遇到 -1 会报错 invalid syntax
	v, err := strconv.ParseInt(res, 10, 64)
	if err != nil {
		return 0, false, err
	}
	// 空值标记
	if v == EmptyCacheMarker {
		return 0, false, nil
	}
	return uint64(v), true, nil
}

func (c *CachedStats) writeCache(ctx context.Context, key string, val uint64) error {
	return c.rdb.Set(ctx, key, val, getRandomTTL()).Err()
}

// 标记空值缓存，防止缓存穿透
func (c *CachedStats) writeNullCache(ctx context.Context, key string) error {
	return c.rdb.Set(ctx, key, EmptyCacheMarker, 5*time.Minute).Err()
}

// GetViews 读浏览计数（Singleflight + 缓存 + 回源）
func (c *CachedStats) GetViews(ctx context.Context, wallID uint64) (uint64, error) {
	key := viewKey(wallID)

	if v, ok, err := c.readCache(ctx, key); err == nil && ok {
		return v, nil
	}

	// 并发 miss 合并成一次回源
	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		stats, err := c.repo.GetWallStats(ctx, wallID)
		if err != nil {
			return uint64(0), err
		}
		if stats == nil {
			_ = c.writeNullCache(ctx, key)
			return uint64(0), nil
		}
		_ = c.writeCache(ctx, key, stats.ViewCount)
		return stats.ViewCount, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(uint64), nil
}
