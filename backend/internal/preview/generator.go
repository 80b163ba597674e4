package preview

import (
	"context"
	"log"
	"time"

	"wallServer/backend/internal/wall"
)

// Generator 周期性地把每面墙的当前状态渲染成预览图。
// 完全在编辑链路之外运行：先取一份时间点快照，渲染和编码时
// 不持有引擎的任何锁，所以慢渲染不会挡住编辑。
type Generator struct {
	svc      wall.Service
	store    Store
	interval time.Duration
}

func NewGenerator(svc wall.Service, store Store, interval time.Duration) *Generator {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Generator{svc: svc, store: store, interval: interval}
}

// Run 启动刷新循环，ctx 取消后返回。启动时先刷一轮，
// 和原来服务启动就生成一遍的行为保持一致。
func (g *Generator) Run(ctx context.Context) {
	g.RenderAll(ctx)
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			g.RenderAll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RenderAll 逐墙刷新。单面墙失败只打日志，不影响其它墙，
// 也不会覆盖那面墙已有的预览图。
func (g *Generator) RenderAll(ctx context.Context) {
	ids, err := g.svc.WallIDs(ctx)
	if err != nil {
		log.Printf("preview: list walls failed: %v", err)
		return
	}
	for _, wallID := range ids {
		if ctx.Err() != nil {
			return
		}
		if err := g.RenderWall(ctx, wallID); err != nil {
			log.Printf("preview: wall %d render failed: %v", wallID, err)
		}
	}
}

// RenderWall 按需刷新一面墙的预览图
func (g *Generator) RenderWall(ctx context.Context, wallID uint64) error {
	snap, err := g.svc.Snapshot(ctx, wallID)
	if err != nil {
		return err
	}
	blob, err := Render(snap)
	if err != nil {
		// 渲染失败就保留旧预览，不写半成品
		return err
	}
	return g.store.SetWallPreview(ctx, wallID, blob, time.Now())
}
