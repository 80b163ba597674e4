package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"wallServer/backend/internal/wall"
)

// WallStore 是墙/像素/预览图的 MySQL 落地层，实现 wall.Store
// 和 preview.Store。建表语句（参考）：
//
//	CREATE TABLE walls (
//	  id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
//	  owner_id BIGINT UNSIGNED NOT NULL,
//	  title VARCHAR(128) NOT NULL,
//	  width INT NOT NULL,
//	  height INT NOT NULL,
//	  created_at DATETIME NOT NULL,
//	  last_edit_at DATETIME NULL,
//	  preview MEDIUMBLOB NULL,
//	  preview_at DATETIME NULL
//	);
//	CREATE TABLE pixels (
//	  wall_id BIGINT UNSIGNED NOT NULL,
//	  x INT NOT NULL,
//	  y INT NOT NULL,
//	  color CHAR(7) NOT NULL,
//	  editor_id BIGINT UNSIGNED NOT NULL,
//	  edited_at DATETIME NOT NULL,
//	  PRIMARY KEY (wall_id, x, y)
//	);
type WallStore struct{ db *sql.DB }

func NewWallStore(db *sql.DB) *WallStore {
	return &WallStore{db: db}
}

func (s *WallStore) GetAllWallIDs(ctx context.Context) ([]uint64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM walls`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *WallStore) GetWallMetadata(ctx context.Context, wallID uint64) (wall.Metadata, error) {
	var meta wall.Metadata
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, width, height FROM walls WHERE id = ?`,
		wallID,
	).Scan(&meta.WallID, &meta.OwnerID, &meta.Title, &meta.Width, &meta.Height)
	if errors.Is(err, sql.ErrNoRows) {
		return wall.Metadata{}, wall.ErrWallNotFound
	}
	return meta, err
}

func (s *WallStore) GetWallPixels(ctx context.Context, wallID uint64) ([]wall.Pixel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT x, y, color, editor_id, edited_at FROM pixels WHERE wall_id = ?`,
		wallID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pixels []wall.Pixel
	for rows.Next() {
		var p wall.Pixel
		if err := rows.Scan(&p.X, &p.Y, &p.Color, &p.EditorID, &p.EditedAt); err != nil {
			return nil, err
		}
		pixels = append(pixels, p)
	}
	return pixels, rows.Err()
}

// SetWallPixel 按 (wall_id, x, y) 覆盖写，后写者胜
func (s *WallStore) SetWallPixel(ctx context.Context, wallID uint64, p wall.Pixel) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pixels (wall_id, x, y, color, editor_id, edited_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE color = VALUES(color), editor_id = VALUES(editor_id), edited_at = VALUES(edited_at)`,
		wallID, p.X, p.Y, p.Color, p.EditorID, p.EditedAt,
	)
	return err
}

func (s *WallStore) TouchWall(ctx context.Context, wallID uint64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE walls SET last_edit_at = ? WHERE id = ?`,
		at, wallID,
	)
	return err
}

func (s *WallStore) CreateWall(ctx context.Context, ownerID uint64, title string, width, height int) (uint64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO walls (owner_id, title, width, height, created_at) VALUES (?, ?, ?, ?, ?)`,
		ownerID, title, width, height, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// SetWallPreview 覆盖缓存的预览图（preview.Store 实现）
func (s *WallStore) SetWallPreview(ctx context.Context, wallID uint64, blob []byte, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE walls SET preview = ?, preview_at = ? WHERE id = ?`,
		blob, at, wallID,
	)
	return err
}

// GetWallPreview 给 feed 侧取预览图；没有预览时返回 sql.ErrNoRows
func (s *WallStore) GetWallPreview(ctx context.Context, wallID uint64) ([]byte, time.Time, error) {
	var blob []byte
	var at sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT preview, preview_at FROM walls WHERE id = ?`,
		wallID,
	).Scan(&blob, &at)
	if err != nil {
		return nil, time.Time{}, err
	}
	if blob == nil {
		return nil, time.Time{}, sql.ErrNoRows
	}
	return blob, at.Time, nil
}
