package cache

import "fmt"

// 键语义：
// - roomKey(wallID):        墙的在线观众集合（Set<userId>）
// - memberKey(wallID, uid): 单个观众的心跳键（String，带 TTL）
// - namesKey(wallID):       墙内 userId→username 映射（Hash）
// - rateKey(uid, window):   编辑限流的固定窗口计数（String，带 TTL）

const (
	keyRoomFmt   = "presence:wall:{wallID:%d}"       // Set<userId>
	keyMemberFmt = "presence:wall:{wallID:%d}:%d"    // 心跳键
	keyNamesFmt  = "presence:wall:names:{wallID:%d}" // Hash<userId -> username>
	keyRateFmt   = "ratelimit:edit:{userID:%d}:%d"   // 窗口计数
)

func roomKey(wallID uint64) string { return fmt.Sprintf(keyRoomFmt, wallID) }

func memberKey(wallID, userID uint64) string { return fmt.Sprintf(keyMemberFmt, wallID, userID) }

func namesKey(wallID uint64) string { return fmt.Sprintf(keyNamesFmt, wallID) }

func rateKey(userID uint64, window int64) string { return fmt.Sprintf(keyRateFmt, userID, window) }
