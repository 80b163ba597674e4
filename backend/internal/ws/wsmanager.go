package ws

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"wallServer/backend/internal/wall"
)

// 全局的WebSocket upgrader（允许本地开发环境的来源）
var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "null" { // 一些环境可能不发送 Origin，或为 "null"
		return true
	}
	allowedPrefixes := []string{
		"http://localhost",
		"http://127.0.0.1",
		"https://localhost",
		"https://127.0.0.1",
	}
	for _, p := range allowedPrefixes {
		if strings.HasPrefix(origin, p) {
			return true
		}
	}
	return false
}}

type Manager struct {
	h   *Hub
	svc wall.Service
}

func NewManager(h *Hub, svc wall.Service) *Manager {
	return &Manager{h: h, svc: svc}
}

// WebSocketConnect 升级连接并完成首次订阅。
// 墙来自 ?wallId= 查询参数，身份来自鉴权中间件写入的上下文。
func (m *Manager) WebSocketConnect(c *gin.Context) {
	userID := c.GetUint64("userId")
	username := c.GetString("username")

	wallID, err := strconv.ParseUint(c.Query("wallId"), 10, 64)
	if err != nil || wallID == 0 {
		c.String(http.StatusBadRequest, "missing or bad wallId")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v (origin=%s)", err, c.Request.Header.Get("Origin"))
		return
	}

	wsConn := NewConn(conn, m.h, userID, username, m.svc)

	// 先启动写循环，确保快照和后续广播能被及时发出去
	go wsConn.writeLoop()

	// 订阅：进房间 → 全量快照（"connected"）→ 广播流
	if err := wsConn.joinWall(c.Request.Context(), wallID); err != nil {
		log.Printf("join wall error (user=%d wall=%d): %v", userID, wallID, err)
		wsConn.Enqueue(ServerMessage{Type: "error", Code: editErrorCode(err), Content: err.Error()})
		wsConn.Close()
		return
	}

	// 最后进读循环（阻塞至连接关闭）
	wsConn.readLoop(c.Request.Context())
}
