package wall

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// 像素墙引擎接口
type Service interface {
	// Submit 校验并应用一次像素编辑，返回带序号的确认事件
	Submit(ctx context.Context, wallID uint64, editorID uint64, x, y int, color string) (ConfirmedEdit, error)

	// Snapshot 返回整面墙的一致性快照（含当前序号）
	Snapshot(ctx context.Context, wallID uint64) (Snapshot, error)

	GetPixel(ctx context.Context, wallID uint64, x, y int) (Pixel, error)

	CurrentSeq(ctx context.Context, wallID uint64) (uint64, error)

	CreateWall(ctx context.Context, ownerID uint64, title string, width, height int) (uint64, error)

	// WallIDs 给预览生成器用，列出所有已知墙
	WallIDs(ctx context.Context) ([]uint64, error)
}

// 持久化边界：墙的元数据和像素都落在这里，
// 引擎内存态是唯一权威，store 只做落地与冷启动加载
type Store interface {
	GetAllWallIDs(ctx context.Context) ([]uint64, error)
	GetWallMetadata(ctx context.Context, wallID uint64) (Metadata, error)
	GetWallPixels(ctx context.Context, wallID uint64) ([]Pixel, error)
	SetWallPixel(ctx context.Context, wallID uint64, p Pixel) error
	TouchWall(ctx context.Context, wallID uint64, at time.Time) error
	CreateWall(ctx context.Context, ownerID uint64, title string, width, height int) (uint64, error)
}

// 编辑策略（限流/封禁），由 cache 包的 Redis 限流器实现
type EditPolicy interface {
	// 通过返回 nil；拒绝返回 ErrRateLimited 或 ErrForbidden
	Allow(ctx context.Context, editorID uint64) error
}

// 广播出口。Submit 持有墙锁时调用，实现方不允许阻塞
// （ws.Hub 的入队是非阻塞的，满了就踢掉慢连接）
type Broadcaster interface {
	BroadcastEdit(edit ConfirmedEdit)
}

type Metadata struct {
	WallID  uint64
	OwnerID uint64
	Title   string
	Width   int
	Height  int
}

type Pixel struct {
	X        int       `json:"x"`
	Y        int       `json:"y"`
	Color    string    `json:"color"`
	EditorID uint64    `json:"editorId,omitempty"`
	EditedAt time.Time `json:"-"`
}

type ConfirmedEdit struct {
	WallID    uint64    `json:"wallId"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Color     string    `json:"color"`
	EditorID  uint64    `json:"editorId"`
	Seq       uint64    `json:"seq"`
	AppliedAt time.Time `json:"appliedAt"`
}

type Snapshot struct {
	WallID uint64  `json:"id"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Seq    uint64  `json:"seq"`
	Pixels []Pixel `json:"pixels"`
}

var (
	ErrWallNotFound = errors.New("WALL_NOT_FOUND")
	ErrOutOfBounds  = errors.New("OUT_OF_BOUNDS")
	ErrInvalidColor = errors.New("INVALID_COLOR")
	ErrRateLimited  = errors.New("RATE_LIMITED")
	ErrForbidden    = errors.New("FORBIDDEN")
	ErrBadDimension = errors.New("BAD_DIMENSION")
)

// 单面墙的内存态。width/height 创建后不再变，
// 读它们不需要加锁；grid/seq/lastEditAt 由 mu 保护。
// 墙与墙之间互不相干，没有任何跨墙的锁。
type wallState struct {
	mu     sync.RWMutex
	width  int
	height int
	// 扁平存储，下标 y*width+x，每个坐标恰好一格
	grid       []Pixel
	seq        uint64
	lastEditAt time.Time
}

// 内存实现：持有所有墙的状态
type InMemoryService struct {
	mu    sync.RWMutex
	walls map[uint64]*wallState

	// 依赖注入
	store       Store
	policy      EditPolicy
	broadcaster Broadcaster
	dispatcher  *KafkaDispatcher

	defaultColor string
	maxDimension int
}

func NewInMemoryService(store Store, policy EditPolicy, dispatcher *KafkaDispatcher, defaultColor string, maxDimension int) *InMemoryService {
	if defaultColor == "" {
		defaultColor = "#FFFFFF"
	}
	if maxDimension <= 0 {
		maxDimension = 256
	}
	return &InMemoryService{
		walls:        make(map[uint64]*wallState),
		store:        store,
		policy:       policy,
		dispatcher:   dispatcher,
		defaultColor: defaultColor,
		maxDimension: maxDimension,
	}
}

// SetBroadcaster 在装配阶段注入 ws.Hub（Hub 反过来依赖本包的类型，
// 所以不能在构造函数里传）
func (s *InMemoryService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

func newWallState(width, height int, defaultColor string) *wallState {
	st := &wallState{
		width:  width,
		height: height,
		grid:   make([]Pixel, width*height),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			st.grid[y*width+x] = Pixel{X: x, Y: y, Color: defaultColor}
		}
	}
	return st
}

// 获取墙的内存态；不在内存时从 store 冷加载（双重检查）
func (s *InMemoryService) getWall(ctx context.Context, wallID uint64) (*wallState, error) {
	s.mu.RLock()
	st := s.walls[wallID]
	s.mu.RUnlock()
	if st != nil {
		return st, nil
	}

	meta, err := s.store.GetWallMetadata(ctx, wallID)
	if err != nil {
		return nil, err
	}
	pixels, err := s.store.GetWallPixels(ctx, wallID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st = s.walls[wallID]; st != nil {
		return st, nil
	}
	st = newWallState(meta.Width, meta.Height, s.defaultColor)
	// 像素表里只有被编辑过的格子，其余保持默认底色
	for _, p := range pixels {
		if p.X < 0 || p.X >= meta.Width || p.Y < 0 || p.Y >= meta.Height {
			log.Printf("wall %d: skip stored pixel out of bounds (%d,%d)", wallID, p.X, p.Y)
			continue
		}
		st.grid[p.Y*meta.Width+p.X] = p
	}
	s.walls[wallID] = st
	return st, nil
}

// 提交编辑。校验顺序：墙存在 → 坐标在界内 → 策略放行 → 颜色合法。
// 任何一步拒绝都发生在序号自增之前，被拒的编辑不会占用序号。
func (s *InMemoryService) Submit(ctx context.Context, wallID uint64, editorID uint64, x, y int, color string) (ConfirmedEdit, error) {
	st, err := s.getWall(ctx, wallID)
	if err != nil {
		return ConfirmedEdit{}, err
	}

	if x < 0 || x >= st.width || y < 0 || y >= st.height {
		return ConfirmedEdit{}, ErrOutOfBounds
	}

	if editorID == 0 {
		return ConfirmedEdit{}, ErrForbidden
	}
	if s.policy != nil {
		// 限流查询走 Redis，放在墙锁外面
		if err := s.policy.Allow(ctx, editorID); err != nil {
			return ConfirmedEdit{}, err
		}
	}

	if _, _, _, err := ParseColor(color); err != nil {
		return ConfirmedEdit{}, err
	}

	st.mu.Lock()
	st.seq++
	now := time.Now()
	px := Pixel{X: x, Y: y, Color: color, EditorID: editorID, EditedAt: now}
	st.grid[y*st.width+x] = px
	st.lastEditAt = now
	edit := ConfirmedEdit{
		WallID:    wallID,
		X:         x,
		Y:         y,
		Color:     color,
		EditorID:  editorID,
		Seq:       st.seq,
		AppliedAt: now,
	}
	// 广播必须在墙锁内，保证各订阅者看到的序号顺序
	// 和引擎应用顺序一致
	if s.broadcaster != nil {
		s.broadcaster.BroadcastEdit(edit)
	}
	st.mu.Unlock()

	// 落地与事件投递都在锁外异步进行，编辑已经生效，
	// 即使提交方马上断线也照常完成
	go s.persistEdit(wallID, px, now)
	if s.dispatcher != nil {
		evt := WallEditEvent{
			EventType: "EDIT_APPLIED",
			WallID:    wallID,
			X:         x,
			Y:         y,
			Color:     color,
			EditorID:  editorID,
			Seq:       edit.Seq,
			AppliedAt: now,
		}
		enqCtx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		if err := s.dispatcher.Enqueue(enqCtx, evt); err != nil {
			log.Printf("wall %d: kafka enqueue dropped seq=%d: %v", wallID, edit.Seq, err)
		}
		cancel()
	}

	return edit, nil
}

func (s *InMemoryService) persistEdit(wallID uint64, px Pixel, at time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.store.SetWallPixel(ctx, wallID, px); err != nil {
		log.Printf("wall %d: persist pixel (%d,%d) failed: %v", wallID, px.X, px.Y, err)
	}
	if err := s.store.TouchWall(ctx, wallID, at); err != nil {
		log.Printf("wall %d: touch last edit failed: %v", wallID, err)
	}
}

func (s *InMemoryService) Snapshot(ctx context.Context, wallID uint64) (Snapshot, error) {
	st, err := s.getWall(ctx, wallID)
	if err != nil {
		return Snapshot{}, err
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	// 拷贝一份，裸的 grid 引用不允许离开本包
	pixels := make([]Pixel, len(st.grid))
	copy(pixels, st.grid)
	return Snapshot{
		WallID: wallID,
		Width:  st.width,
		Height: st.height,
		Seq:    st.seq,
		Pixels: pixels,
	}, nil
}

func (s *InMemoryService) GetPixel(ctx context.Context, wallID uint64, x, y int) (Pixel, error) {
	st, err := s.getWall(ctx, wallID)
	if err != nil {
		return Pixel{}, err
	}
	if x < 0 || x >= st.width || y < 0 || y >= st.height {
		return Pixel{}, ErrOutOfBounds
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.grid[y*st.width+x], nil
}

func (s *InMemoryService) CurrentSeq(ctx context.Context, wallID uint64) (uint64, error) {
	st, err := s.getWall(ctx, wallID)
	if err != nil {
		return 0, err
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.seq, nil
}

func (s *InMemoryService) CreateWall(ctx context.Context, ownerID uint64, title string, width, height int) (uint64, error) {
	if width <= 0 || height <= 0 || width > s.maxDimension || height > s.maxDimension {
		return 0, ErrBadDimension
	}
	wallID, err := s.store.CreateWall(ctx, ownerID, title, width, height)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.walls[wallID] = newWallState(width, height, s.defaultColor)
	s.mu.Unlock()
	return wallID, nil
}

func (s *InMemoryService) WallIDs(ctx context.Context) ([]uint64, error) {
	return s.store.GetAllWallIDs(ctx)
}
