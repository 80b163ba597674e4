package feed

import "context"

// Repo 定义 feed 读模型的业务契约
type Repo interface {
	// ListWalls 按最近编辑时间倒序分页
	ListWalls(ctx context.Context, page, pageSize int) ([]WallCard, error)
	GetWallStats(ctx context.Context, wallID uint64) (*WallStats, error)
}
