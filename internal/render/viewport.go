package render

import "strings"

// Viewport 是模拟的设备宽度档位。
type Viewport string

const (
	Mobile  Viewport = "mobile"
	Tablet  Viewport = "tablet"
	Desktop Viewport = "desktop"
)

// Viewports 返回全部档位。
func Viewports() []Viewport {
	return []Viewport{Mobile, Tablet, Desktop}
}

// ParseViewport 解析档位名称（忽略大小写）。
func ParseViewport(s string) (Viewport, bool) {
	switch v := Viewport(strings.ToLower(strings.TrimSpace(s))); v {
	case Mobile, Tablet, Desktop:
		return v, true
	default:
		return "", false
	}
}

// Profile 是档位对应的布局参数，只影响排版，不影响数据。
type Profile struct {
	Viewport Viewport `json:"viewport"`
	WidthPx  int      `json:"widthPx"`
	HeightPx int      `json:"heightPx"`
	Columns  int      `json:"columns"`
	GutterPx int      `json:"gutterPx"`
	// Frame 是预览外框样式：phone/tablet/browser。
	Frame string `json:"frame"`
}

// ProfileFor 返回档位的布局参数，未知档位按 desktop 处理。
func ProfileFor(v Viewport) Profile {
	switch v {
	case Mobile:
		return Profile{Viewport: Mobile, WidthPx: 375, HeightPx: 812, Columns: 1, GutterPx: 16, Frame: "phone"}
	case Tablet:
		return Profile{Viewport: Tablet, WidthPx: 768, HeightPx: 1024, Columns: 2, GutterPx: 24, Frame: "tablet"}
	default:
		return Profile{Viewport: Desktop, WidthPx: 1280, HeightPx: 800, Columns: 3, GutterPx: 32, Frame: "browser"}
	}
}

// Stacked 判断是否单列堆叠布局。
func (p Profile) Stacked() bool {
	return p.Columns <= 1
}
