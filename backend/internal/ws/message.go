package ws

import "wallServer/backend/internal/wall"

type ClientMessage struct {
	Type   string `json:"type"`
	WallID uint64 `json:"wallId,omitempty"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Color  string `json:"color,omitempty"`
}

type PresenceMember struct {
	UserID   uint64 `json:"userId"`
	Username string `json:"username,omitempty"`
}

// 通用服务端消息（error / feedback / presence）
type ServerMessage struct {
	Type    string           `json:"type"`
	Code    string           `json:"code,omitempty"`
	Content string           `json:"content,omitempty"`
	Members []PresenceMember `json:"members,omitempty"`
}

// 订阅成功后下发一次的全量快照
type ConnectedMessage struct {
	Type   string       `json:"type"` // "connected"
	WallID uint64       `json:"id"`
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Seq    uint64       `json:"seq"`
	Pixels []wall.Pixel `json:"pixels"`
}

// 广播给全房间的确认编辑
type EditBroadcastMessage struct {
	Type     string `json:"type"` // "pixel-edit"
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Color    string `json:"color"`
	EditorID uint64 `json:"editorId"`
	Seq      uint64 `json:"seq"`
}

// 出站消息接口
type OutboundMessage interface {
	MessageType() string
}

func (m ServerMessage) MessageType() string        { return m.Type }
func (m ConnectedMessage) MessageType() string     { return m.Type }
func (m EditBroadcastMessage) MessageType() string { return m.Type }
