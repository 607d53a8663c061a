package render

import (
	"fmt"

	"phFolio/internal/portfolio"
	"phFolio/internal/theme"
)

// Renderer 把文档按档位转为节点列表。除依赖外无内部状态，可并发使用。
type Renderer struct {
	engine   *theme.Engine
	registry *Registry
}

// NewRenderer 构造渲染器；engine 为 nil 时使用内置主题目录。
func NewRenderer(engine *theme.Engine) *Renderer {
	if engine == nil {
		engine = theme.NewEngine(nil)
	}
	return &Renderer{engine: engine, registry: NewRegistry()}
}

// Engine 返回渲染器使用的主题引擎。
func (r *Renderer) Engine() *theme.Engine {
	return r.engine
}

// Registry 返回 section 注册表。
func (r *Renderer) Registry() *Registry {
	return r.registry
}

// Render 按 order 稳定排序、跳过隐藏 section，每个可见 section 产出一个根节点。
// 文档级主题只解析一次，section 级覆盖在其上叠加。
func (r *Renderer) Render(doc *portfolio.Document, vp Viewport) []Node {
	if doc == nil {
		return nil
	}
	resolved := r.engine.Resolve(doc.ThemeID, doc.ThemeOverrides)
	return r.renderWith(doc, resolved, ProfileFor(vp))
}

func (r *Renderer) renderWith(doc *portfolio.Document, resolved theme.ResolvedTheme, p Profile) []Node {
	ordered := doc.Ordered()
	nodes := make([]Node, 0, len(ordered))
	for _, s := range ordered {
		if !s.Visible {
			continue
		}
		t := resolved
		if !s.StyleOverrides.IsZero() {
			t = resolved.Apply(s.StyleOverrides)
		}
		nodes = append(nodes, r.registry.RenderSection(s, t, p))
	}
	return nodes
}

// Preview 是一次完整预览的结果：布局参数、主题变量与节点树。
type Preview struct {
	Profile     Profile           `json:"profile"`
	ThemeID     string            `json:"themeId"`
	Vars        map[string]string `json:"vars"`
	CSS         string            `json:"css"`
	Nodes       []Node            `json:"nodes"`
	Diagnostics []string          `json:"diagnostics,omitempty"`
}

// Preview 渲染文档并收集主题变量与诊断信息。
func (r *Renderer) Preview(doc *portfolio.Document, vp Viewport) Preview {
	p := ProfileFor(vp)
	if doc == nil {
		resolved := r.engine.Resolve("", nil)
		return Preview{Profile: p, ThemeID: resolved.ThemeID, Vars: resolved.Vars(), CSS: resolved.CSS()}
	}

	resolved := r.engine.Resolve(doc.ThemeID, doc.ThemeOverrides)
	nodes := r.renderWith(doc, resolved, p)

	diags := append([]string(nil), resolved.Diagnostics...)
	for _, s := range doc.Ordered() {
		if !s.Visible || s.StyleOverrides.IsZero() {
			continue
		}
		for _, d := range resolved.Apply(s.StyleOverrides).Diagnostics[len(resolved.Diagnostics):] {
			diags = append(diags, fmt.Sprintf("section %s: %s", s.ID, d))
		}
	}
	Walk(nodes, func(n Node) bool {
		if n.Diagnostic != nil {
			diags = append(diags, fmt.Sprintf("section %s: %s", n.SectionID, n.Diagnostic.Message))
		}
		return n.Diagnostic == nil
	})
	if len(diags) == 0 {
		diags = nil
	}

	return Preview{
		Profile:     p,
		ThemeID:     resolved.ThemeID,
		Vars:        resolved.Vars(),
		CSS:         resolved.CSS(),
		Nodes:       nodes,
		Diagnostics: diags,
	}
}

// MoveSection 调整 section 位置，渲染侧拖拽排序的入口。
func (r *Renderer) MoveSection(doc *portfolio.Document, id portfolio.ID, newIndex int) error {
	if doc == nil {
		return portfolio.ErrSectionNotFound
	}
	return doc.MoveSection(id, newIndex)
}
