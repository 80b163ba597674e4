package ws

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"wallServer/backend/internal/wall"
)

type Conn struct {
	ws       *websocket.Conn
	hub      *Hub
	userID   uint64
	username string
	// 像素墙引擎
	svc wall.Service

	// mu 保护订阅状态。快照和广播流必须拼成一个
	// 无缝无重复的视图，靠的就是这把锁 + joinSeq 过滤：
	// - joined=false 期间到达的广播先进 pending
	// - 快照落地后以 snap.Seq 为界回放 pending，再放行后续广播
	mu      sync.Mutex
	wallID  uint64
	joined  bool
	joinSeq uint64
	pending []wall.ConfirmedEdit
	closed  bool

	send chan OutboundMessage
	done chan struct{}
}

func NewConn(wsc *websocket.Conn, hub *Hub, userID uint64, username string, svc wall.Service) *Conn {
	return &Conn{
		ws:       wsc,
		hub:      hub,
		userID:   userID,
		username: username,
		svc:      svc,
		send:     make(chan OutboundMessage, 32),
		done:     make(chan struct{}),
	}
}

// trySend 非阻塞入队，调用方必须已持有 c.mu
func (c *Conn) trySend(msg OutboundMessage) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Enqueue 给连接发一条普通消息，队列满了直接丢
func (c *Conn) Enqueue(msg OutboundMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.trySend(msg)
}

// EnqueueEdit 投递一条确认编辑。返回 false 表示队列已满，
// 调用方（Hub）应当把该连接踢出房间。
func (c *Conn) EnqueueEdit(edit wall.ConfirmedEdit) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || edit.WallID != c.wallID {
		return true
	}
	if !c.joined {
		// 快照还没落地，先攒着，joinWall 末尾统一回放
		c.pending = append(c.pending, edit)
		return true
	}
	if edit.Seq <= c.joinSeq {
		// 快照已经包含这条编辑，投递会造成重复
		return true
	}
	return c.trySend(EditBroadcastMessage{
		Type:     "pixel-edit",
		X:        edit.X,
		Y:        edit.Y,
		Color:    edit.Color,
		EditorID: edit.EditorID,
		Seq:      edit.Seq,
	})
}

// joinWall 订阅一面墙：先进房间再取快照，订阅窗口内的并发编辑
// 会落进 pending，按快照序号过滤后回放，不丢也不重。
// 一条连接同时只在一面墙上，切墙会隐式退订旧墙。
func (c *Conn) joinWall(ctx context.Context, wallID uint64) error {
	c.mu.Lock()
	old := c.wallID
	c.wallID = wallID
	c.joined = false
	c.joinSeq = 0
	c.pending = nil
	c.mu.Unlock()

	if old != 0 && old != wallID {
		c.hub.Leave(old, c)
	}
	c.hub.Join(wallID, c)

	snap, err := c.svc.Snapshot(ctx, wallID)
	if err != nil {
		c.hub.Leave(wallID, c)
		c.mu.Lock()
		c.wallID = 0
		c.pending = nil
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.joinSeq = snap.Seq
	c.trySend(ConnectedMessage{
		Type:   "connected",
		WallID: snap.WallID,
		Width:  snap.Width,
		Height: snap.Height,
		Seq:    snap.Seq,
		Pixels: snap.Pixels,
	})
	for _, e := range c.pending {
		if e.Seq > snap.Seq {
			c.trySend(EditBroadcastMessage{
				Type:     "pixel-edit",
				X:        e.X,
				Y:        e.Y,
				Color:    e.Color,
				EditorID: e.EditorID,
				Seq:      e.Seq,
			})
		}
	}
	c.pending = nil
	c.joined = true
	c.mu.Unlock()

	if c.hub.presence != nil {
		if err := c.hub.presence.AddViewer(ctx, wallID, c.userID, c.username, 600*time.Second); err != nil {
			log.Printf("ws: add viewer failed (user=%d wall=%d): %v", c.userID, wallID, err)
		}
	}
	return nil
}

func (c *Conn) handleEdit(ctx context.Context, msg ClientMessage) {
	c.mu.Lock()
	wallID := c.wallID
	c.mu.Unlock()
	if wallID == 0 {
		c.Enqueue(ServerMessage{Type: "error", Code: "NO_WALL", Content: "join a wall before editing"})
		return
	}

	submitCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()

	// 墙和身份来自连接上下文，客户端只发坐标和颜色。
	// 成功的编辑通过房间广播送达所有人（包括提交者自己），
	// 这里只需要把拒绝原因回给提交者。
	if _, err := c.svc.Submit(submitCtx, wallID, c.userID, msg.X, msg.Y, msg.Color); err != nil {
		c.Enqueue(ServerMessage{Type: "error", Code: editErrorCode(err), Content: err.Error()})
	}
}

func editErrorCode(err error) string {
	switch {
	case errors.Is(err, wall.ErrWallNotFound):
		return "WALL_NOT_FOUND"
	case errors.Is(err, wall.ErrOutOfBounds):
		return "OUT_OF_BOUNDS"
	case errors.Is(err, wall.ErrInvalidColor):
		return "INVALID_COLOR"
	case errors.Is(err, wall.ErrRateLimited):
		return "RATE_LIMITED"
	case errors.Is(err, wall.ErrForbidden):
		return "FORBIDDEN"
	default:
		return "INTERNAL"
	}
}

func (c *Conn) readLoop(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		wallID := c.wallID
		c.mu.Unlock()
		if wallID != 0 {
			c.hub.Leave(wallID, c)
			if c.hub.presence != nil {
				if err := c.hub.presence.RemoveViewer(context.Background(), wallID, c.userID); err != nil {
					log.Printf("ws: remove viewer failed (user=%d wall=%d): %v", c.userID, wallID, err)
				}
			}
		}
		c.Close()
	}()

	for {
		var clientMessage ClientMessage
		if err := c.ws.ReadJSON(&clientMessage); err != nil {
			log.Printf("read json error (user=%d, wall=%d): %v", c.userID, c.wallID, err)
			return
		}
		switch clientMessage.Type {
		case "pixel-edit":
			c.handleEdit(ctx, clientMessage)

		case "joinWall":
			if clientMessage.WallID == 0 {
				c.Enqueue(ServerMessage{Type: "error", Code: "BAD_REQUEST", Content: "missing wallId"})
				continue
			}
			if err := c.joinWall(ctx, clientMessage.WallID); err != nil {
				log.Printf("join wall error (user=%d wall=%d): %v", c.userID, clientMessage.WallID, err)
				c.Enqueue(ServerMessage{Type: "error", Code: editErrorCode(err), Content: err.Error()})
			}

		case "heartbeat":
			c.mu.Lock()
			wallID := c.wallID
			c.mu.Unlock()
			if wallID == 0 || c.hub.presence == nil {
				c.Enqueue(ServerMessage{Type: "feedback", Content: "Heartbeat received"})
				continue
			}
			if err := c.hub.presence.AddViewer(ctx, wallID, c.userID, c.username, 600*time.Second); err != nil {
				log.Printf("add viewer error: %v", err)
			}
			members, err := c.hub.presence.GetAliveViewersWithNames(ctx, wallID)
			if err != nil {
				log.Printf("get viewers error: %v", err)
			}
			out := make([]PresenceMember, len(members))
			for i, m := range members {
				out[i] = PresenceMember{UserID: m.UserID, Username: m.Username}
			}
			c.Enqueue(ServerMessage{Type: "presence", Members: out})
			c.Enqueue(ServerMessage{Type: "feedback", Content: "Heartbeat received"})

		default:
			// 忽略未知类型，回一条提示
			c.Enqueue(ServerMessage{Type: "ignored", Content: "Unknown message type"})
		}
	}
}

func (c *Conn) writeLoop() {
	for {
		select {
		case msg := <-c.send:
			if err := c.ws.WriteJSON(msg); err != nil {
				log.Printf("write json error (user=%d, wall=%d): %v", c.userID, c.wallID, err)
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close 幂等关闭：挂断写循环并关闭底层连接。
// send 通道从不 close，避免广播方往已关闭通道写入
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()
	if c.ws != nil {
		_ = c.ws.Close()
	}
}
