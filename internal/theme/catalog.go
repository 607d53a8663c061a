package theme

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"phFolio/internal/palette"
)

// DefaultThemeID 是内置目录的默认主题。
const DefaultThemeID = "default"

// Theme 是目录中的一个具名主题。
type Theme struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Tokens Tokens `json:"tokens" yaml:"tokens"`
}

// Validate 校验主题的颜色与动效档位。
func (t Theme) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("theme id is required")
	}
	for _, f := range t.Tokens.colorFields() {
		if !palette.Valid(f.value) {
			return fmt.Errorf("theme %q: color %s has invalid hex value %q", t.ID, f.name, f.value)
		}
	}
	if !t.Tokens.Animation.Valid() {
		return fmt.Errorf("theme %q: unsupported animation %q", t.ID, t.Tokens.Animation)
	}
	return nil
}

// sanitized 清理会直接写进样式块的自由文本 token（字体与圆角）。
func (t Theme) sanitized() Theme {
	t.Tokens.Fonts.Heading = cssValue(t.Tokens.Fonts.Heading)
	t.Tokens.Fonts.Body = cssValue(t.Tokens.Fonts.Body)
	t.Tokens.BorderRadius = cssValue(t.Tokens.BorderRadius)
	return t
}

// Catalog 是不可变的主题目录，可安全并发读取。
type Catalog struct {
	themes    map[string]Theme
	defaultID string
}

// NewCatalog 校验并构造目录；defaultID 必须存在于 themes 中。
func NewCatalog(defaultID string, themes ...Theme) (*Catalog, error) {
	c := &Catalog{themes: make(map[string]Theme, len(themes)), defaultID: defaultID}
	for _, t := range themes {
		t = t.sanitized()
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.themes[t.ID]; dup {
			return nil, fmt.Errorf("duplicate theme id %q", t.ID)
		}
		c.themes[t.ID] = t
	}
	if _, ok := c.themes[defaultID]; !ok {
		return nil, fmt.Errorf("default theme %q not in catalog", defaultID)
	}
	return c, nil
}

// Lookup 按 id 查找主题。
func (c *Catalog) Lookup(id string) (Theme, bool) {
	t, ok := c.themes[id]
	return t, ok
}

// Default 返回默认主题。
func (c *Catalog) Default() Theme {
	return c.themes[c.defaultID]
}

// DefaultID 返回默认主题 id。
func (c *Catalog) DefaultID() string {
	return c.defaultID
}

// Themes 按 id 排序返回全部主题。
func (c *Catalog) Themes() []Theme {
	out := make([]Theme, 0, len(c.themes))
	for _, t := range c.themes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// With 返回追加（或替换）了 extra 的新目录。
func (c *Catalog) With(extra ...Theme) (*Catalog, error) {
	merged := make(map[string]Theme, len(c.themes)+len(extra))
	for id, t := range c.themes {
		merged[id] = t
	}
	for _, t := range extra {
		merged[t.ID] = t
	}
	all := make([]Theme, 0, len(merged))
	for _, t := range merged {
		all = append(all, t)
	}
	return NewCatalog(c.defaultID, all...)
}

type catalogFile struct {
	Themes []Theme `yaml:"themes"`
}

// LoadFile 读取 YAML 主题文件并合并进 base。
func LoadFile(base *Catalog, path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read theme catalog %q: %w", path, err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode theme catalog %q: %w", path, err)
	}
	catalog, err := base.With(file.Themes...)
	if err != nil {
		return nil, fmt.Errorf("load theme catalog %q: %w", path, err)
	}
	return catalog, nil
}

// Builtin 返回内置主题目录。
func Builtin() *Catalog {
	c, err := NewCatalog(DefaultThemeID, builtinThemes...)
	if err != nil {
		panic(err)
	}
	return c
}

var builtinThemes = []Theme{
	{
		ID:   DefaultThemeID,
		Name: "Modern",
		Tokens: Tokens{
			Colors: Colors{
				Primary:    "#3B82F6",
				Secondary:  "#64748B",
				Accent:     "#F59E0B",
				Background: "#FFFFFF",
				Text:       "#1F2937",
				Heading:    "#111827",
			},
			Fonts:          Fonts{Heading: "Inter", Body: "Inter"},
			BorderRadius:   "8px",
			ShadowsEnabled: true,
			Animation:      AnimationSubtle,
		},
	},
	{
		ID:   "minimal",
		Name: "Minimal",
		Tokens: Tokens{
			Colors: Colors{
				Primary:    "#000",
				Secondary:  "#555",
				Accent:     "#999",
				Background: "#FFF",
				Text:       "#222",
				Heading:    "#000",
			},
			Fonts:          Fonts{Heading: "Helvetica Neue", Body: "Helvetica Neue"},
			BorderRadius:   "0",
			ShadowsEnabled: false,
			Animation:      AnimationNone,
		},
	},
	{
		ID:   "midnight",
		Name: "Midnight",
		Tokens: Tokens{
			Colors: Colors{
				Primary:    "#8B5CF6",
				Secondary:  "#A78BFA",
				Accent:     "#22D3EE",
				Background: "#0F172A",
				Text:       "#CBD5E1",
				Heading:    "#F8FAFC",
			},
			Fonts:          Fonts{Heading: "Space Grotesk", Body: "Inter"},
			BorderRadius:   "12px",
			ShadowsEnabled: true,
			Animation:      AnimationLively,
		},
	},
	{
		ID:   "ocean",
		Name: "Ocean",
		Tokens: Tokens{
			Colors: Colors{
				Primary:    "#0EA5E9",
				Secondary:  "#0369A1",
				Accent:     "#14B8A6",
				Background: "#F0F9FF",
				Text:       "#0C4A6E",
				Heading:    "#082F49",
			},
			Fonts:          Fonts{Heading: "Poppins", Body: "Open Sans"},
			BorderRadius:   "16px",
			ShadowsEnabled: true,
			Animation:      AnimationSubtle,
		},
	},
	{
		ID:   "sunset",
		Name: "Sunset",
		Tokens: Tokens{
			Colors: Colors{
				Primary:    "#F97316",
				Secondary:  "#DB2777",
				Accent:     "#FACC15",
				Background: "#FFF7ED",
				Text:       "#431407",
				Heading:    "#7C2D12",
			},
			Fonts:          Fonts{Heading: "Playfair Display", Body: "Lato"},
			BorderRadius:   "6px",
			ShadowsEnabled: false,
			Animation:      AnimationLively,
		},
	},
}

// Load 以内置目录为基础，合并可选的 YAML 文件，并切换默认主题。
func Load(path, defaultID string) (*Catalog, error) {
	catalog := Builtin()
	if path != "" {
		loaded, err := LoadFile(catalog, path)
		if err != nil {
			return nil, err
		}
		catalog = loaded
	}
	if defaultID == "" || defaultID == catalog.DefaultID() {
		return catalog, nil
	}
	switched, err := NewCatalog(defaultID, catalog.Themes()...)
	if err != nil {
		return nil, fmt.Errorf("switch default theme: %w", err)
	}
	return switched, nil
}
