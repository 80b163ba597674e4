package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"time"

	"wallServer/backend/internal/wall"
)

// 预览图存储边界（store 包的 WallStore 实现）
type Store interface {
	SetWallPreview(ctx context.Context, wallID uint64, blob []byte, at time.Time) error
}

// Render 把一份墙快照栅格化成 PNG。
// 一个源像素对应一个输出像素，不做任何插值；
// 相同的快照必须得到逐字节相同的输出（feed 侧拿它做缓存键）。
func Render(snap wall.Snapshot) ([]byte, error) {
	if snap.Width <= 0 || snap.Height <= 0 {
		return nil, fmt.Errorf("render wall %d: bad dimensions %dx%d", snap.WallID, snap.Width, snap.Height)
	}
	img := image.NewRGBA(image.Rect(0, 0, snap.Width, snap.Height))
	for _, p := range snap.Pixels {
		if p.X < 0 || p.X >= snap.Width || p.Y < 0 || p.Y >= snap.Height {
			return nil, fmt.Errorf("render wall %d: pixel (%d,%d) out of bounds", snap.WallID, p.X, p.Y)
		}
		r, g, b, err := wall.ParseColor(p.Color)
		if err != nil {
			return nil, fmt.Errorf("render wall %d: pixel (%d,%d): %w", snap.WallID, p.X, p.Y, err)
		}
		img.SetRGBA(p.X, p.Y, color.RGBA{R: r, G: g, B: b, A: 0xFF})
	}

	var buf bytes.Buffer
	// 固定压缩级别，保证确定性输出
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
