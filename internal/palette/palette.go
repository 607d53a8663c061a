package palette

import (
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultSteps 是 shades/tints 的默认数量。
const DefaultSteps = 5

// Palette 是从单一基色推导出的完整配色。
// 除 Primary 原样回显输入外，其余颜色均为 #RRGGBB。
type Palette struct {
	Primary   string    `json:"primary"`
	Secondary string    `json:"secondary"`
	Accent    string    `json:"accent"`
	Analogous [2]string `json:"analogous"`
	Triadic   [2]string `json:"triadic"`
	Shades    []string  `json:"shades"`
	Tints     []string  `json:"tints"`
}

// 色相旋转使用线性 RGB 混合近似：角度/360 作为向白或向黑的混合比例。
const (
	analogousRatio   = 30.0 / 360.0
	triadicNearRatio = 120.0 / 360.0
	triadicFarRatio  = 240.0 / 360.0
)

// Derive 使用默认步数推导配色。
func Derive(base string) Palette {
	return DeriveSteps(base, DefaultSteps)
}

// DeriveSteps 推导配色，steps <= 0 时使用默认步数。
// 非法输入回退到 DefaultBase，不返回错误。
func DeriveSteps(base string, steps int) Palette {
	if steps <= 0 {
		steps = DefaultSteps
	}

	c, err := Parse(base)
	primary := strings.TrimSpace(base)
	if err != nil {
		primary = DefaultBase
		c, _ = Parse(DefaultBase)
	}

	triadic := [2]string{
		towardWhite(c, triadicNearRatio).Hex(),
		towardBlack(c, triadicFarRatio).Hex(),
	}

	p := Palette{
		Primary:   primary,
		Secondary: Complement(c).Hex(),
		Accent:    triadic[0],
		Analogous: [2]string{
			towardWhite(c, analogousRatio).Hex(),
			towardBlack(c, analogousRatio).Hex(),
		},
		Triadic: triadic,
		Shades:  make([]string, 0, steps),
		Tints:   make([]string, 0, steps),
	}

	for i := 1; i <= steps; i++ {
		keep := 1 - float64(i)/float64(steps+1)
		p.Shades = append(p.Shades, shade(c, keep).Hex())
		p.Tints = append(p.Tints, towardWhite(c, 1-keep).Hex())
	}
	return p
}

// Complement 按通道取反。
func Complement(c RGB) RGB {
	return RGB{R: 255 - c.R, G: 255 - c.G, B: 255 - c.B}
}

// shade 直接在整数通道上按比例缩放并向下取整。
func shade(c RGB, keep float64) RGB {
	scale := func(v uint8) uint8 {
		return uint8(math.Floor(float64(v) * keep))
	}
	return RGB{R: scale(c.R), G: scale(c.G), B: scale(c.B)}
}

var (
	white = colorful.Color{R: 1, G: 1, B: 1}
	black = colorful.Color{}
)

// towardWhite 与 towardBlack 在线性 RGB 上混合，结果四舍五入到 8 位通道。
func towardWhite(c RGB, ratio float64) RGB {
	return fromColor(c.color().BlendRgb(white, ratio))
}

func towardBlack(c RGB, ratio float64) RGB {
	return fromColor(c.color().BlendRgb(black, ratio))
}
