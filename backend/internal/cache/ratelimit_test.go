package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"

	"wallServer/backend/internal/wall"
)

func TestRateLimiter(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	// 若 Redis 未启动则跳过
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("skip: redis not available: %v", err)
	}
	defer rdb.FlushAll(context.Background())

	ctx := context.Background()
	limiter := NewRateLimiter(rdb, 3, time.Minute)

	// 窗口内前 3 次放行
	for i := 0; i < 3; i++ {
		if err := limiter.Allow(ctx, 42); err != nil {
			t.Fatalf("Allow() #%d error = %v", i+1, err)
		}
	}
	// 第 4 次拒绝
	if err := limiter.Allow(ctx, 42); !errors.Is(err, wall.ErrRateLimited) {
		t.Fatalf("Allow() #4 error = %v, want ErrRateLimited", err)
	}

	// 不同用户互不影响
	if err := limiter.Allow(ctx, 43); err != nil {
		t.Fatalf("Allow(other user) error = %v", err)
	}
}

func TestPresence_AddAndList(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("skip: redis not available: %v", err)
	}
	defer rdb.FlushAll(context.Background())

	ctx := context.Background()
	p := NewRedisPresence(rdb)

	if err := p.AddViewer(ctx, 1, 7, "bob", time.Minute); err != nil {
		t.Fatalf("AddViewer() error = %v", err)
	}
	if err := p.AddViewer(ctx, 1, 8, "alice", time.Minute); err != nil {
		t.Fatalf("AddViewer() error = %v", err)
	}

	members, err := p.GetAliveViewersWithNames(ctx, 1)
	if err != nil {
		t.Fatalf("GetAliveViewersWithNames() error = %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}
	names := map[uint64]string{}
	for _, m := range members {
		names[m.UserID] = m.Username
	}
	if names[7] != "bob" || names[8] != "alice" {
		t.Fatalf("names = %v", names)
	}

	if err := p.RemoveViewer(ctx, 1, 7); err != nil {
		t.Fatalf("RemoveViewer() error = %v", err)
	}
	members, err = p.GetAliveViewersWithNames(ctx, 1)
	if err != nil {
		t.Fatalf("GetAliveViewersWithNames() error = %v", err)
	}
	if len(members) != 1 || members[0].UserID != 8 {
		t.Fatalf("after remove: members = %v", members)
	}
}
