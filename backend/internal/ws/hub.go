package ws

import (
	"log"
	"sync"

	"wallServer/backend/internal/cache"
	"wallServer/backend/internal/wall"
)

// Hub 是每面墙的广播组注册表：wallID -> 当前订阅这面墙的连接集合。
// 实现 wall.Broadcaster，引擎在墙锁内调用 BroadcastEdit，
// 所以这里的入队全部是非阻塞的。
type Hub struct {
	presence cache.PresenceCache
	// 读写锁保护 rooms，加入/离开/广播都先拿锁
	mu sync.RWMutex
	// wallID -> set of connections
	rooms map[uint64]map[*Conn]struct{}
}

func NewHub(p cache.PresenceCache) *Hub {
	return &Hub{presence: p, rooms: make(map[uint64]map[*Conn]struct{})}
}

// Join 将连接加入指定墙的广播组
func (h *Hub) Join(wallID uint64, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[wallID] == nil {
		// 房间里存的是连接而不是 userID：
		// 同一个用户可以开多个标签页，广播要逐连接投递
		h.rooms[wallID] = make(map[*Conn]struct{})
	}
	h.rooms[wallID][c] = struct{}{}
}

// Leave 将连接从指定墙移除；重复调用无副作用
func (h *Hub) Leave(wallID uint64, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[wallID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.rooms, wallID)
		}
	}
}

// SubscribersOf 返回当前订阅该墙的连接快照
func (h *Hub) SubscribersOf(wallID uint64) []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := make([]*Conn, 0, len(h.rooms[wallID]))
	for c := range h.rooms[wallID] {
		conns = append(conns, c)
	}
	return conns
}

// BroadcastEdit 把一条确认编辑投递给发布时刻的全部订阅者。
// 单个慢连接/死连接不允许拖住别人：入队失败就把它踢出房间并关闭。
func (h *Hub) BroadcastEdit(edit wall.ConfirmedEdit) {
	conns := h.SubscribersOf(edit.WallID)
	var dead []*Conn
	for _, c := range conns {
		if !c.EnqueueEdit(edit) {
			dead = append(dead, c)
		}
	}
	for _, c := range dead {
		log.Printf("ws: drop slow subscriber (user=%d wall=%d seq=%d)", c.userID, edit.WallID, edit.Seq)
		h.Kick(edit.WallID, c)
	}
}

// BroadcastPresence 把在线观众列表发给整个房间
func (h *Hub) BroadcastPresence(wallID uint64, members []PresenceMember) {
	msg := ServerMessage{Type: "presence", Members: members}
	for _, c := range h.SubscribersOf(wallID) {
		c.Enqueue(msg)
	}
}

// Kick 把连接移出房间并关闭底层连接
func (h *Hub) Kick(wallID uint64, c *Conn) {
	h.Leave(wallID, c)
	c.Close()
}
