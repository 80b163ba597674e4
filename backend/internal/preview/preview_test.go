package preview

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"sync"
	"testing"
	"time"

	"wallServer/backend/internal/wall"
)

func testSnapshot() wall.Snapshot {
	return wall.Snapshot{
		WallID: 1,
		Width:  2,
		Height: 2,
		Seq:    1,
		Pixels: []wall.Pixel{
			{X: 0, Y: 0, Color: "#FF0000"},
			{X: 1, Y: 0, Color: "#FFFFFF"},
			{X: 0, Y: 1, Color: "#FFFFFF"},
			{X: 1, Y: 1, Color: "#FFFFFF"},
		},
	}
}

func TestRender_Dimensions(t *testing.T) {
	blob, err := Render(testSnapshot())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	img, err := png.Decode(bytes.NewReader(blob))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 2 || b.Dy() != 2 {
		t.Fatalf("decoded size = %dx%d, want 2x2", b.Dx(), b.Dy())
	}

	// (0,0) 应该是纯红
	r, g, bl, _ := img.At(0, 0).RGBA()
	if r>>8 != 0xFF || g>>8 != 0x00 || bl>>8 != 0x00 {
		t.Fatalf("pixel (0,0) = (%d,%d,%d), want (255,0,0)", r>>8, g>>8, bl>>8)
	}
	r, g, bl, _ = img.At(1, 1).RGBA()
	if r>>8 != 0xFF || g>>8 != 0xFF || bl>>8 != 0xFF {
		t.Fatalf("pixel (1,1) = (%d,%d,%d), want (255,255,255)", r>>8, g>>8, bl>>8)
	}
}

func TestRender_Deterministic(t *testing.T) {
	snap := testSnapshot()
	first, err := Render(snap)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	second, err := Render(snap)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	// 同一份快照渲染两次必须逐字节一致
	if !bytes.Equal(first, second) {
		t.Fatalf("renders differ: %d bytes vs %d bytes", len(first), len(second))
	}
}

func TestRender_BadSnapshot(t *testing.T) {
	snap := testSnapshot()
	snap.Pixels[0].Color = "oops"
	if _, err := Render(snap); !errors.Is(err, wall.ErrInvalidColor) {
		t.Fatalf("Render(bad color) error = %v, want ErrInvalidColor", err)
	}

	snap = wall.Snapshot{WallID: 2, Width: 0, Height: 3}
	if _, err := Render(snap); err == nil {
		t.Fatal("Render(zero width) error = nil, want error")
	}
}

// 只实现生成器用到的两个方法，其余直接报未实现
type stubService struct {
	wall.Service
	snap wall.Snapshot
	err  error
}

func (s *stubService) WallIDs(ctx context.Context) ([]uint64, error) {
	return []uint64{s.snap.WallID}, nil
}

func (s *stubService) Snapshot(ctx context.Context, wallID uint64) (wall.Snapshot, error) {
	if s.err != nil {
		return wall.Snapshot{}, s.err
	}
	return s.snap, nil
}

type recordingPreviewStore struct {
	mu    sync.Mutex
	blobs map[uint64][]byte
}

func (r *recordingPreviewStore) SetWallPreview(ctx context.Context, wallID uint64, blob []byte, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.blobs == nil {
		r.blobs = make(map[uint64][]byte)
	}
	r.blobs[wallID] = blob
	return nil
}

func TestGenerator_RenderWall(t *testing.T) {
	store := &recordingPreviewStore{}
	gen := NewGenerator(&stubService{snap: testSnapshot()}, store, time.Minute)

	if err := gen.RenderWall(context.Background(), 1); err != nil {
		t.Fatalf("RenderWall() error = %v", err)
	}
	if store.blobs[1] == nil {
		t.Fatal("preview not stored")
	}
	if _, err := png.Decode(bytes.NewReader(store.blobs[1])); err != nil {
		t.Fatalf("stored blob is not a png: %v", err)
	}
}

func TestGenerator_FailureKeepsOldPreview(t *testing.T) {
	store := &recordingPreviewStore{}
	good := &stubService{snap: testSnapshot()}
	gen := NewGenerator(good, store, time.Minute)
	if err := gen.RenderWall(context.Background(), 1); err != nil {
		t.Fatalf("RenderWall() error = %v", err)
	}
	old := store.blobs[1]

	// 快照坏掉时渲染失败，旧预览必须原样保留
	bad := testSnapshot()
	bad.Pixels[0].Color = "nope"
	good.snap = bad
	if err := gen.RenderWall(context.Background(), 1); err == nil {
		t.Fatal("RenderWall(bad snapshot) error = nil, want error")
	}
	if !bytes.Equal(store.blobs[1], old) {
		t.Fatal("old preview was overwritten after a failed render")
	}
}
