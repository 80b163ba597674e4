package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wallServer/backend/internal/feed"
	"wallServer/backend/internal/preview"
	"wallServer/backend/internal/store"
	"wallServer/backend/internal/wall"
)

type WallHandlers struct {
	svc   wall.Service
	repo  feed.Repo
	stats *feed.CachedStats
	walls *store.WallStore
	gen   *preview.Generator
}

func NewWallHandlers(svc wall.Service, repo feed.Repo, stats *feed.CachedStats, walls *store.WallStore, gen *preview.Generator) *WallHandlers {
	return &WallHandlers{svc: svc, repo: repo, stats: stats, walls: walls, gen: gen}
}

type createWallReq struct {
	Title  string `json:"title"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (h *WallHandlers) CreateWall(c *gin.Context) {
	// 从gin.Context获取用户信息；鉴权中间件写入
	ownerID := c.GetUint64("userId")
	if ownerID == 0 {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "user context missing"})
		return
	}

	var req createWallReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
		return
	}

	wallID, err := h.svc.CreateWall(c.Request.Context(), ownerID, req.Title, req.Width, req.Height)
	if err != nil {
		if errors.Is(err, wall.ErrBadDimension) {
			c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_DIMENSION", "message": "width/height out of range"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": err.Error()})
		return
	}

	// 新墙立刻生成一张底色预览，feed 不用等下一轮刷新
	if h.gen != nil {
		if err := h.gen.RenderWall(c.Request.Context(), wallID); err != nil {
			log.Printf("initial preview for wall %d failed: %v", wallID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"wallId": wallID, "ownerId": ownerID, "title": req.Title, "width": req.Width, "height": req.Height})
}

func (h *WallHandlers) ListWalls(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	cards, err := h.repo.ListWalls(c.Request.Context(), page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": err.Error()})
		return
	}

	type cardResp struct {
		feed.WallCard
		ViewCount uint64 `json:"viewCount"`
	}
	out := make([]cardResp, 0, len(cards))
	for _, card := range cards {
		views, err := h.stats.GetViews(c.Request.Context(), card.WallID)
		if err != nil {
			// 计数拿不到不挡列表
			log.Printf("get views for wall %d failed: %v", card.WallID, err)
		}
		out = append(out, cardResp{WallCard: card, ViewCount: views})
	}
	c.JSON(http.StatusOK, gin.H{"walls": out, "page": page, "pageSize": pageSize})
}

func (h *WallHandlers) GetWall(c *gin.Context) {
	wallID, err := strconv.ParseUint(c.Param("wallID"), 10, 64)
	if err != nil || wallID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": "bad wall id"})
		return
	}

	snap, err := h.svc.Snapshot(c.Request.Context(), wallID)
	if err != nil {
		if errors.Is(err, wall.ErrWallNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "WALL_NOT_FOUND", "message": "wall not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": err.Error()})
		return
	}

	if _, err := h.stats.IncrView(c.Request.Context(), wallID); err != nil {
		log.Printf("incr view for wall %d failed: %v", wallID, err)
	}
	c.JSON(http.StatusOK, snap)
}

// GetPreview 返回缓存的 PNG 预览；还没有预览时现渲染一张
func (h *WallHandlers) GetPreview(c *gin.Context) {
	wallID, err := strconv.ParseUint(c.Param("wallID"), 10, 64)
	if err != nil || wallID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": "bad wall id"})
		return
	}

	blob, _, err := h.walls.GetWallPreview(c.Request.Context(), wallID)
	if err != nil {
		if h.gen != nil {
			if rerr := h.gen.RenderWall(c.Request.Context(), wallID); rerr == nil {
				blob, _, err = h.walls.GetWallPreview(c.Request.Context(), wallID)
			}
		}
	}
	if err != nil || blob == nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "PREVIEW_NOT_FOUND", "message": "no preview for this wall"})
		return
	}
	c.Data(http.StatusOK, "image/png", blob)
}
