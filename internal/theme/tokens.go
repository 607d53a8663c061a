package theme

// Animation 描述主题的动效档位。
type Animation string

const (
	AnimationNone   Animation = "none"
	AnimationSubtle Animation = "subtle"
	AnimationLively Animation = "lively"
)

// Valid 判断动效档位是否受支持。
func (a Animation) Valid() bool {
	switch a {
	case AnimationNone, AnimationSubtle, AnimationLively:
		return true
	default:
		return false
	}
}

// Colors 是主题的颜色 token，均为 3 或 6 位十六进制颜色。
type Colors struct {
	Primary    string `json:"primary" yaml:"primary"`
	Secondary  string `json:"secondary" yaml:"secondary"`
	Accent     string `json:"accent" yaml:"accent"`
	Background string `json:"background" yaml:"background"`
	Text       string `json:"text" yaml:"text"`
	Heading    string `json:"heading" yaml:"heading"`
}

// Fonts 是标题与正文字体。
type Fonts struct {
	Heading string `json:"heading" yaml:"heading"`
	Body    string `json:"body" yaml:"body"`
}

// Tokens 是一组完整的样式 token。
type Tokens struct {
	Colors         Colors    `json:"colors" yaml:"colors"`
	Fonts          Fonts     `json:"fonts" yaml:"fonts"`
	BorderRadius   string    `json:"borderRadius" yaml:"border_radius"`
	ShadowsEnabled bool      `json:"shadowsEnabled" yaml:"shadows_enabled"`
	Animation      Animation `json:"animation" yaml:"animation"`
}

func (t Tokens) colorFields() []colorField {
	return []colorField{
		{"primary", t.Colors.Primary},
		{"secondary", t.Colors.Secondary},
		{"accent", t.Colors.Accent},
		{"background", t.Colors.Background},
		{"text", t.Colors.Text},
		{"heading", t.Colors.Heading},
	}
}

type colorField struct {
	name  string
	value string
}

// Overrides 是部分 token；nil 字段表示不覆盖。
// 文档级与 section 级共用同一结构。
type Overrides struct {
	CustomBaseColor *string    `json:"customBaseColor,omitempty"`
	Primary         *string    `json:"primary,omitempty"`
	Secondary       *string    `json:"secondary,omitempty"`
	Accent          *string    `json:"accent,omitempty"`
	Background      *string    `json:"background,omitempty"`
	Text            *string    `json:"text,omitempty"`
	Heading         *string    `json:"heading,omitempty"`
	HeadingFont     *string    `json:"headingFont,omitempty"`
	BodyFont        *string    `json:"bodyFont,omitempty"`
	BorderRadius    *string    `json:"borderRadius,omitempty"`
	ShadowsEnabled  *bool      `json:"shadowsEnabled,omitempty"`
	Animation       *Animation `json:"animation,omitempty"`
}

// IsZero 判断是否没有任何覆盖项。
func (o *Overrides) IsZero() bool {
	return o == nil || *o == Overrides{}
}

// Merge 返回 o 与 next 的合并结果，next 中非 nil 的字段优先。
func (o *Overrides) Merge(next *Overrides) *Overrides {
	if o == nil && next == nil {
		return nil
	}
	out := Overrides{}
	if o != nil {
		out = *o
	}
	if next == nil {
		return &out
	}
	pick(&out.CustomBaseColor, next.CustomBaseColor)
	pick(&out.Primary, next.Primary)
	pick(&out.Secondary, next.Secondary)
	pick(&out.Accent, next.Accent)
	pick(&out.Background, next.Background)
	pick(&out.Text, next.Text)
	pick(&out.Heading, next.Heading)
	pick(&out.HeadingFont, next.HeadingFont)
	pick(&out.BodyFont, next.BodyFont)
	pick(&out.BorderRadius, next.BorderRadius)
	pick(&out.ShadowsEnabled, next.ShadowsEnabled)
	pick(&out.Animation, next.Animation)
	return &out
}

func pick[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

// String 返回指向 s 的指针，便于构造 Overrides。
func String(s string) *string { return &s }

// Bool 返回指向 b 的指针。
func Bool(b bool) *bool { return &b }
