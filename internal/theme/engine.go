package theme

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"phFolio/internal/palette"
)

// Engine 将主题 id 与覆盖项解析为具体 token。无内部可变状态。
type Engine struct {
	catalog *Catalog
}

// NewEngine 基于目录构造 Engine；catalog 为 nil 时使用内置目录。
func NewEngine(catalog *Catalog) *Engine {
	if catalog == nil {
		catalog = Builtin()
	}
	return &Engine{catalog: catalog}
}

// Catalog 返回引擎使用的目录。
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// ResolvedTheme 是解析后的不可变主题值，可在并发渲染间共享。
type ResolvedTheme struct {
	ThemeID string           `json:"themeId"`
	Name    string           `json:"name"`
	Tokens  Tokens           `json:"tokens"`
	Palette *palette.Palette `json:"palette,omitempty"`
	// Diagnostics 记录被回退或忽略的输入，由调用方决定是否记录日志。
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// Resolve 查找主题（未命中回退默认主题）并应用覆盖项。
func (e *Engine) Resolve(themeID string, overrides *Overrides) ResolvedTheme {
	t, ok := e.catalog.Lookup(themeID)
	var diags []string
	if !ok {
		t = e.catalog.Default()
		if themeID != "" {
			diags = append(diags, fmt.Sprintf("unknown theme %q, using %q", themeID, t.ID))
		}
	}

	base := ResolvedTheme{
		ThemeID:     t.ID,
		Name:        t.Name,
		Tokens:      t.Tokens,
		Diagnostics: diags,
	}
	return base.Apply(overrides)
}

// Apply 在已解析主题上叠加覆盖项，返回新值，接收者不变。
// customBaseColor 先推导调色板并写入 primary/secondary/accent，随后逐项覆盖。
func (r ResolvedTheme) Apply(o *Overrides) ResolvedTheme {
	out := r
	out.Diagnostics = append([]string(nil), r.Diagnostics...)
	if o.IsZero() {
		return out
	}

	if o.CustomBaseColor != nil {
		base := strings.TrimSpace(*o.CustomBaseColor)
		if palette.Valid(base) {
			p := palette.Derive(base)
			out.Palette = &p
			out.Tokens.Colors.Primary = p.Primary
			out.Tokens.Colors.Secondary = p.Secondary
			out.Tokens.Colors.Accent = p.Accent
		} else {
			out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("invalid customBaseColor %q ignored", base))
		}
	}

	colors := &out.Tokens.Colors
	out.setColor("primary", &colors.Primary, o.Primary)
	out.setColor("secondary", &colors.Secondary, o.Secondary)
	out.setColor("accent", &colors.Accent, o.Accent)
	out.setColor("background", &colors.Background, o.Background)
	out.setColor("text", &colors.Text, o.Text)
	out.setColor("heading", &colors.Heading, o.Heading)

	if o.HeadingFont != nil && cssValue(*o.HeadingFont) != "" {
		out.Tokens.Fonts.Heading = cssValue(*o.HeadingFont)
	}
	if o.BodyFont != nil && cssValue(*o.BodyFont) != "" {
		out.Tokens.Fonts.Body = cssValue(*o.BodyFont)
	}
	if o.BorderRadius != nil {
		out.Tokens.BorderRadius = cssValue(*o.BorderRadius)
	}
	if o.ShadowsEnabled != nil {
		out.Tokens.ShadowsEnabled = *o.ShadowsEnabled
	}
	if o.Animation != nil {
		if o.Animation.Valid() {
			out.Tokens.Animation = *o.Animation
		} else {
			out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("unsupported animation %q ignored", *o.Animation))
		}
	}
	if len(out.Diagnostics) == 0 {
		out.Diagnostics = nil
	}
	return out
}

func (r *ResolvedTheme) setColor(name string, dst *string, value *string) {
	if value == nil {
		return
	}
	v := strings.TrimSpace(*value)
	if !palette.Valid(v) {
		r.Diagnostics = append(r.Diagnostics, fmt.Sprintf("invalid %s color %q ignored", name, v))
		return
	}
	*dst = v
}

// cssValue 去掉会破坏声明块的字符。
func cssValue(v string) string {
	v = strings.Map(func(r rune) rune {
		switch r {
		case ';', '{', '}', '<', '>', '"', '\\':
			return -1
		}
		return r
	}, v)
	return strings.TrimSpace(v)
}

// Vars 返回扁平的样式变量表，供前端设置为运行时 CSS 变量。
func (r ResolvedTheme) Vars() map[string]string {
	c := r.Tokens.Colors
	vars := map[string]string{
		"color-primary":    c.Primary,
		"color-secondary":  c.Secondary,
		"color-accent":     c.Accent,
		"color-background": c.Background,
		"color-text":       c.Text,
		"color-heading":    c.Heading,
		"font-heading":     r.Tokens.Fonts.Heading,
		"font-body":        r.Tokens.Fonts.Body,
		"border-radius":    r.Tokens.BorderRadius,
		"shadows":          strconv.FormatBool(r.Tokens.ShadowsEnabled),
		"animation":        string(r.Tokens.Animation),
	}
	if r.Palette != nil {
		for i, s := range r.Palette.Shades {
			vars["color-shade-"+strconv.Itoa(i+1)] = s
		}
		for i, s := range r.Palette.Tints {
			vars["color-tint-"+strconv.Itoa(i+1)] = s
		}
	}
	return vars
}

// CSS 将 Vars 序列化为 :root 声明，键按字典序排列。
func (r ResolvedTheme) CSS() string {
	return DeclarationBlock(":root", r.Vars())
}

// DeclarationBlock 把变量表写成 selector{--k:v;...}。
func DeclarationBlock(selector string, vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(selector)
	b.WriteByte('{')
	for _, k := range keys {
		b.WriteString("--")
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(vars[k])
		b.WriteByte(';')
	}
	b.WriteByte('}')
	return b.String()
}
