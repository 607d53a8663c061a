package palette

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultBase 是输入非法时使用的基色。
const DefaultBase = "#3B82F6"

const hexDigits = "0123456789abcdefABCDEF"

// RGB 是一个 8 位通道的颜色。
type RGB struct {
	R, G, B uint8
}

// Valid 判断字符串是否为 3 位或 6 位的十六进制颜色（带 #）。
func Valid(hex string) bool {
	_, err := Parse(hex)
	return err == nil
}

// Parse 解析十六进制颜色，3 位写法按位翻倍。
func Parse(hex string) (RGB, error) {
	hex = strings.TrimSpace(hex)
	// colorful.Hex 基于 Sscanf，会容忍多余字符与空白，先卡住形状。
	if (len(hex) != 4 && len(hex) != 7) || hex[0] != '#' || strings.Trim(hex[1:], hexDigits) != "" {
		return RGB{}, fmt.Errorf("invalid hex color %q", hex)
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return RGB{}, fmt.Errorf("parse hex color %q: %w", hex, err)
	}
	return fromColor(c), nil
}

// Hex 编码为大写 #RRGGBB。
func (c RGB) Hex() string {
	return strings.ToUpper(c.color().Hex())
}

// Lightness 返回通道之和，用于比较明暗。
func (c RGB) Lightness() int {
	return int(c.R) + int(c.G) + int(c.B)
}

func (c RGB) color() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

func fromColor(c colorful.Color) RGB {
	r, g, b := c.Clamped().RGB255()
	return RGB{R: r, G: g, B: b}
}

// Normalize 把合法颜色规范成 #RRGGBB，非法时 ok 为 false。
func Normalize(hex string) (string, bool) {
	c, err := Parse(hex)
	if err != nil {
		return "", false
	}
	return c.Hex(), true
}
