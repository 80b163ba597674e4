package wall

import "time"

type WallEditEvent struct {
	EventType string    `json:"eventType"` // 固定 "EDIT_APPLIED"
	WallID    uint64    `json:"wallId"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Color     string    `json:"color"`
	EditorID  uint64    `json:"editorId"`
	Seq       uint64    `json:"seq"` // 墙内单调递增序号
	AppliedAt time.Time `json:"appliedAt"`
}
