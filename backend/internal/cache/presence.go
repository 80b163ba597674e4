package cache

import (
	"context"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type PresenceCache interface {
	AddViewer(ctx context.Context, wallID uint64, userID uint64, username string, ttl time.Duration) error
	GetViewers(ctx context.Context, wallID uint64) ([]uint64, error)
	GetAliveViewersWithNames(ctx context.Context, wallID uint64) ([]PresenceMember, error)
	RemoveViewer(ctx context.Context, wallID uint64, userID uint64) error
}

type PresenceMember struct {
	UserID   uint64
	Username string
}

// 具体实现：基于 redis 的 PresenceCache
type redisPresence struct {
	rdb *redis.Client
}

func NewRedisPresence(rdb *redis.Client) PresenceCache {
	return &redisPresence{rdb: rdb}
}

func (p *redisPresence) AddViewer(ctx context.Context, wallID uint64, userID uint64, username string, ttl time.Duration) error {
	pipe := p.rdb.Pipeline()
	// 观众集合
	pipe.SAdd(ctx, roomKey(wallID), userID)
	// 观众心跳键
	pipe.Set(ctx, memberKey(wallID, userID), "1", ttl)
	// 名字表(哈希)
	pipe.HSet(ctx, namesKey(wallID), userID, username)
	_, err := pipe.Exec(ctx)
	return err
}

func (p *redisPresence) RemoveViewer(ctx context.Context, wallID uint64, userID uint64) error {
	pipe := p.rdb.Pipeline()
	pipe.SRem(ctx, roomKey(wallID), userID)
	pipe.Del(ctx, memberKey(wallID, userID))
	pipe.HDel(ctx, namesKey(wallID), strconv.FormatUint(userID, 10))
	_, err := pipe.Exec(ctx)
	return err
}

func (p *redisPresence) GetViewers(ctx context.Context, wallID uint64) ([]uint64, error) {
	members, err := p.rdb.SMembers(ctx, roomKey(wallID)).Result()
	if err != nil {
		return nil, err
	}
	viewers := make([]uint64, len(members))
	for i, member := range members {
		viewers[i], err = strconv.ParseUint(member, 10, 64)
		if err != nil {
			return nil, err
		}
	}
	return viewers, nil
}

func (p *redisPresence) GetAliveViewersWithNames(ctx context.Context, wallID uint64) ([]PresenceMember, error) {
	// step1: 取集合成员
	userIDs, err := p.rdb.SMembers(ctx, roomKey(wallID)).Result()
	if err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return nil, nil
	}

	// step2: 管道批量检查心跳键
	existsCmds := make([]*redis.IntCmd, 0, len(userIDs))
	pipe := p.rdb.Pipeline()
	for _, userID := range userIDs {
		uid, err := strconv.ParseUint(userID, 10, 64)
		if err != nil {
			return nil, err
		}
		existsCmds = append(existsCmds, pipe.Exists(ctx, memberKey(wallID, uid)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	// 心跳键还在的就是 TTL 未过期的观众
	aliveIDs := make([]uint64, 0, len(userIDs))
	aliveKeyFields := make([]string, 0, len(userIDs))
	for i, cmd := range existsCmds {
		if cmd.Val() == 1 {
			uid, err := strconv.ParseUint(userIDs[i], 10, 64)
			if err != nil {
				return nil, err
			}
			aliveIDs = append(aliveIDs, uid)
			aliveKeyFields = append(aliveKeyFields, userIDs[i])
		}
	}
	if len(aliveIDs) == 0 {
		return nil, nil
	}

	// step3: 批量取名字
	names, err := p.rdb.HMGet(ctx, namesKey(wallID), aliveKeyFields...).Result()
	if err != nil {
		return nil, err
	}
	members := make([]PresenceMember, 0, len(aliveIDs))
	for i, v := range names {
		name := ""
		if v != nil {
			name, _ = v.(string)
		}
		members = append(members, PresenceMember{UserID: aliveIDs[i], Username: name})
	}
	return members, nil
}
