package wall

import (
	"errors"
	"testing"
)

func TestParseColor_Valid(t *testing.T) {
	r, g, b, err := ParseColor("#FF8001")
	if err != nil {
		t.Fatalf("ParseColor() error = %v", err)
	}
	if r != 0xFF || g != 0x80 || b != 0x01 {
		t.Fatalf("ParseColor() = (%d,%d,%d), want (255,128,1)", r, g, b)
	}

	// 小写也要能解析
	r, g, b, err = ParseColor("#aabbcc")
	if err != nil {
		t.Fatalf("ParseColor() error = %v", err)
	}
	if r != 0xAA || g != 0xBB || b != 0xCC {
		t.Fatalf("ParseColor() = (%d,%d,%d), want (170,187,204)", r, g, b)
	}
}

func TestParseColor_Invalid(t *testing.T) {
	bad := []string{
		"",
		"FFFFFF",    // 缺 #
		"#FFF",      // 短格式不支持
		"#GGGGGG",   // 非法字符
		"#FFFFFFF",  // 太长
		"#12 456",   // 空格
		"red",       // 颜色名不支持
	}
	for _, s := range bad {
		if _, _, _, err := ParseColor(s); !errors.Is(err, ErrInvalidColor) {
			t.Fatalf("ParseColor(%q) error = %v, want ErrInvalidColor", s, err)
		}
	}
}
