package feed

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type mysqlFeedRepo struct {
	db *gorm.DB
}

func NewMySQLFeedRepo(db *gorm.DB) Repo {
	return &mysqlFeedRepo{db: db}
}

func (r *mysqlFeedRepo) ListWalls(ctx context.Context, page, pageSize int) ([]WallCard, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	var cards []WallCard
	err := r.db.WithContext(ctx).
		Order("last_edit_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&cards).Error
	if err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *mysqlFeedRepo) GetWallStats(ctx context.Context, wallID uint64) (*WallStats, error) {
	var stats WallStats
	err := r.db.WithContext(ctx).Where("wall_id = ?", wallID).First(&stats).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // 没找到，返回 nil, nil
		}
		return nil, err
	}
	return &stats, nil
}
