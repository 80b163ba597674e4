package ws

import (
	"context"
	"testing"

	"wallServer/backend/internal/wall"
)

// 测试用引擎桩：只实现订阅路径需要的 Snapshot
type stubEngine struct {
	wall.Service
	snapFn func(wallID uint64) (wall.Snapshot, error)
}

func (s *stubEngine) Snapshot(ctx context.Context, wallID uint64) (wall.Snapshot, error) {
	return s.snapFn(wallID)
}

func plainSnapshot(wallID uint64, seq uint64) wall.Snapshot {
	return wall.Snapshot{
		WallID: wallID,
		Width:  2,
		Height: 2,
		Seq:    seq,
		Pixels: []wall.Pixel{
			{X: 0, Y: 0, Color: "#FFFFFF"},
			{X: 1, Y: 0, Color: "#FFFFFF"},
			{X: 0, Y: 1, Color: "#FFFFFF"},
			{X: 1, Y: 1, Color: "#FFFFFF"},
		},
	}
}

func edit(wallID, seq uint64) wall.ConfirmedEdit {
	return wall.ConfirmedEdit{WallID: wallID, X: 0, Y: 0, Color: "#FF0000", EditorID: 9, Seq: seq}
}

// 非阻塞取一条出站消息，没有就返回 nil
func tryRecv(c *Conn) OutboundMessage {
	select {
	case msg := <-c.send:
		return msg
	default:
		return nil
	}
}

func TestJoin_SnapshotThenBroadcast(t *testing.T) {
	hub := NewHub(nil)
	svc := &stubEngine{snapFn: func(wallID uint64) (wall.Snapshot, error) {
		return plainSnapshot(wallID, 5), nil
	}}
	c := NewConn(nil, hub, 1, "bob", svc)

	if err := c.joinWall(context.Background(), 1); err != nil {
		t.Fatalf("joinWall() error = %v", err)
	}

	msg := tryRecv(c)
	connected, ok := msg.(ConnectedMessage)
	if !ok {
		t.Fatalf("first message = %T, want ConnectedMessage", msg)
	}
	if connected.Seq != 5 || connected.Width != 2 || len(connected.Pixels) != 4 {
		t.Fatalf("connected = %+v", connected)
	}

	// 快照已包含 seq<=5，旧广播必须被过滤
	hub.BroadcastEdit(edit(1, 5))
	if msg := tryRecv(c); msg != nil {
		t.Fatalf("got duplicate broadcast %+v", msg)
	}

	// 快照之后的广播正常送达
	hub.BroadcastEdit(edit(1, 6))
	msg = tryRecv(c)
	eb, ok := msg.(EditBroadcastMessage)
	if !ok {
		t.Fatalf("message = %T, want EditBroadcastMessage", msg)
	}
	if eb.Seq != 6 {
		t.Fatalf("eb.Seq = %d, want 6", eb.Seq)
	}
}

func TestJoin_ConcurrentEditsReplayedOnce(t *testing.T) {
	hub := NewHub(nil)
	var c *Conn
	// Snapshot 执行期间有并发编辑进来：seq 5 已在快照里，seq 6 不在。
	// 订阅完成后客户端应该恰好收到 seq 6 一次。
	svc := &stubEngine{snapFn: func(wallID uint64) (wall.Snapshot, error) {
		hub.BroadcastEdit(edit(wallID, 5))
		hub.BroadcastEdit(edit(wallID, 6))
		return plainSnapshot(wallID, 5), nil
	}}
	c = NewConn(nil, hub, 1, "bob", svc)

	if err := c.joinWall(context.Background(), 1); err != nil {
		t.Fatalf("joinWall() error = %v", err)
	}

	if _, ok := tryRecv(c).(ConnectedMessage); !ok {
		t.Fatal("first message is not ConnectedMessage")
	}
	eb, ok := tryRecv(c).(EditBroadcastMessage)
	if !ok || eb.Seq != 6 {
		t.Fatalf("replayed message = %+v, want seq 6", eb)
	}
	if msg := tryRecv(c); msg != nil {
		t.Fatalf("unexpected extra message %+v", msg)
	}
}

func TestJoin_SwitchWallLeavesOldRoom(t *testing.T) {
	hub := NewHub(nil)
	svc := &stubEngine{snapFn: func(wallID uint64) (wall.Snapshot, error) {
		return plainSnapshot(wallID, 0), nil
	}}
	c := NewConn(nil, hub, 1, "bob", svc)

	if err := c.joinWall(context.Background(), 1); err != nil {
		t.Fatalf("joinWall(1) error = %v", err)
	}
	if err := c.joinWall(context.Background(), 2); err != nil {
		t.Fatalf("joinWall(2) error = %v", err)
	}

	if n := len(hub.SubscribersOf(1)); n != 0 {
		t.Fatalf("wall 1 has %d subscribers, want 0", n)
	}
	if n := len(hub.SubscribersOf(2)); n != 1 {
		t.Fatalf("wall 2 has %d subscribers, want 1", n)
	}

	// 清掉两条 connected
	tryRecv(c)
	tryRecv(c)

	// 别的墙的编辑不会串进来
	hub.BroadcastEdit(edit(1, 1))
	if msg := tryRecv(c); msg != nil {
		t.Fatalf("received edit for wall 1 after switching: %+v", msg)
	}
}

func TestLeave_Idempotent(t *testing.T) {
	hub := NewHub(nil)
	svc := &stubEngine{snapFn: func(wallID uint64) (wall.Snapshot, error) {
		return plainSnapshot(wallID, 0), nil
	}}
	c := NewConn(nil, hub, 1, "bob", svc)
	if err := c.joinWall(context.Background(), 1); err != nil {
		t.Fatalf("joinWall() error = %v", err)
	}
	hub.Leave(1, c)
	hub.Leave(1, c)
	if n := len(hub.SubscribersOf(1)); n != 0 {
		t.Fatalf("wall 1 has %d subscribers, want 0", n)
	}
}

func TestBroadcast_SlowSubscriberKicked(t *testing.T) {
	hub := NewHub(nil)
	svc := &stubEngine{snapFn: func(wallID uint64) (wall.Snapshot, error) {
		return plainSnapshot(wallID, 0), nil
	}}
	slow := NewConn(nil, hub, 1, "slow", svc)
	healthy := NewConn(nil, hub, 2, "ok", svc)

	if err := slow.joinWall(context.Background(), 1); err != nil {
		t.Fatalf("joinWall() error = %v", err)
	}
	if err := healthy.joinWall(context.Background(), 1); err != nil {
		t.Fatalf("joinWall() error = %v", err)
	}

	// 没人消费 slow 的出站队列，灌满之后它必须被踢掉，
	// 而 healthy 的投递不受影响
	for seq := uint64(1); seq <= 64; seq++ {
		hub.BroadcastEdit(edit(1, seq))
		// healthy 侧一直在消费
		for tryRecv(healthy) != nil {
		}
	}

	subs := hub.SubscribersOf(1)
	if len(subs) != 1 || subs[0] != healthy {
		t.Fatalf("subscribers = %d, want only the healthy conn", len(subs))
	}
	slow.mu.Lock()
	closed := slow.closed
	slow.mu.Unlock()
	if !closed {
		t.Fatal("slow conn not closed after being kicked")
	}
}
