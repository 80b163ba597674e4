package feed

import "time"

// WallCard 是 feed 列表里的一张卡片，直接映射 walls 表。
// 预览图本体不走这里（单独的接口按需取 blob）。
type WallCard struct {
	WallID     uint64     `gorm:"primaryKey;column:id" json:"id"`
	OwnerID    uint64     `gorm:"column:owner_id" json:"ownerId"`
	Title      string     `gorm:"column:title" json:"title"`
	Width      int        `gorm:"column:width" json:"width"`
	Height     int        `gorm:"column:height" json:"height"`
	CreatedAt  time.Time  `gorm:"column:created_at" json:"createdAt"`
	LastEditAt *time.Time `gorm:"column:last_edit_at" json:"lastEditAt,omitempty"`
	PreviewAt  *time.Time `gorm:"column:preview_at" json:"previewAt,omitempty"`
}

func (WallCard) TableName() string { return "walls" }

type WallStats struct {
	WallID    uint64 `gorm:"primaryKey;type:bigint unsigned" json:"wallId"`
	ViewCount uint64 `gorm:"default:0" json:"viewCount"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (WallStats) TableName() string { return "wall_stats" }
