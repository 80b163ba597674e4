package wall

// 颜色统一使用 "#RRGGBB" 形式的 24 位 RGB 字符串，
// 和前端画布发来的格式保持一致。

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// ParseColor 校验并解析 "#RRGGBB"，返回三个分量。
// 非法格式返回 ErrInvalidColor。
func ParseColor(s string) (r, g, b uint8, err error) {
	if len(s) != 7 || s[0] != '#' {
		return 0, 0, 0, ErrInvalidColor
	}
	for i := 1; i < 7; i++ {
		if !isHexDigit(s[i]) {
			return 0, 0, 0, ErrInvalidColor
		}
	}
	r = hexVal(s[1])<<4 | hexVal(s[2])
	g = hexVal(s[3])<<4 | hexVal(s[4])
	b = hexVal(s[5])<<4 | hexVal(s[6])
	return r, g, b, nil
}
