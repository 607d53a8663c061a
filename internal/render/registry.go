package render

import (
	"fmt"
	"strconv"
	"strings"

	"phFolio/internal/errcode"
	"phFolio/internal/portfolio"
	"phFolio/internal/theme"
)

// Registry 负责把单个 section 转为节点树。每种已知类型由 sectionVisitor
// 的对应方法处理，未知或损坏的负载落到 Raw 返回占位节点。
type Registry struct{}

// NewRegistry 创建注册表。
func NewRegistry() *Registry {
	return &Registry{}
}

// CanRender 判断类型是否有对应的渲染方法。
func (r *Registry) CanRender(kind portfolio.Kind) bool {
	return kind.Known()
}

// RenderSection 渲染单个 section，从不 panic：任何无法渲染的情况都返回占位节点。
func (r *Registry) RenderSection(s portfolio.Section, t theme.ResolvedTheme, p Profile) Node {
	if s.Data == nil {
		return placeholder(s, errcode.MalformedSection, "section data missing")
	}
	if _, raw := s.Data.(portfolio.RawData); !raw && s.Data.Kind() != s.Type {
		return placeholder(s, errcode.MalformedSection,
			fmt.Sprintf("section type %q does not match data %q", s.Type, s.Data.Kind()))
	}

	v := &sectionVisitor{section: s, tokens: t.Tokens, profile: p}
	s.Data.Accept(v)
	return v.node
}

func placeholder(s portfolio.Section, code int, message string) Node {
	return Node{
		Type:       NodePlaceholder,
		SectionID:  s.ID,
		Kind:       s.Type,
		Text:       message,
		Diagnostic: &Diagnostic{Code: code, Message: message},
	}
}

type sectionVisitor struct {
	section portfolio.Section
	tokens  theme.Tokens
	profile Profile
	node    Node
}

var _ portfolio.Visitor = (*sectionVisitor)(nil)

// wrap 生成 section 根节点，背景、字体、圆角与阴影来自主题。
func (v *sectionVisitor) wrap(children ...Node) {
	t := v.tokens
	style := map[string]string{
		"background":    t.Colors.Background,
		"color":         t.Colors.Text,
		"font-family":   t.Fonts.Body,
		"border-radius": t.BorderRadius,
		"padding":       strconv.Itoa(v.profile.GutterPx) + "px",
	}
	if t.ShadowsEnabled {
		style["box-shadow"] = "0 1px 3px rgba(0,0,0,0.12)"
	}
	n := Node{
		Type:      NodeSection,
		SectionID: v.section.ID,
		Kind:      v.section.Type,
		Style:     style,
		Children:  compact(children),
	}
	v.node = withProps(n, "anchor", string(v.section.Type), "animation", string(t.Animation))
}

func (v *sectionVisitor) heading(text string, level int) Node {
	if text == "" {
		return Node{}
	}
	size := map[int]string{1: "2.5rem", 2: "1.75rem", 3: "1.25rem"}[level]
	if v.profile.Stacked() && level == 1 {
		size = "2rem"
	}
	n := textNode(NodeHeading, text, map[string]string{
		"color":       v.tokens.Colors.Heading,
		"font-family": v.tokens.Fonts.Heading,
		"font-size":   size,
	})
	return withProps(n, "level", strconv.Itoa(level))
}

func (v *sectionVisitor) text(s string) Node {
	if s == "" {
		return Node{}
	}
	return textNode(NodeText, s, nil)
}

func (v *sectionVisitor) muted(s string) Node {
	if s == "" {
		return Node{}
	}
	return textNode(NodeText, s, map[string]string{"color": v.tokens.Colors.Secondary})
}

func (v *sectionVisitor) image(url, alt string) Node {
	if url == "" {
		return Node{}
	}
	return withProps(Node{Type: NodeImage, Style: map[string]string{"border-radius": v.tokens.BorderRadius}},
		"src", url, "alt", alt)
}

func (v *sectionVisitor) link(l portfolio.Link) Node {
	if l.URL == "" {
		return Node{}
	}
	label := l.Label
	if label == "" {
		label = l.URL
	}
	return withProps(textNode(NodeLink, label, map[string]string{"color": v.tokens.Colors.Primary}), "href", l.URL)
}

func (v *sectionVisitor) tags(items []string) Node {
	children := make([]Node, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it == "" {
			continue
		}
		children = append(children, textNode(NodeTag, it, map[string]string{
			"background":    v.tokens.Colors.Accent,
			"border-radius": v.tokens.BorderRadius,
		}))
	}
	if len(children) == 0 {
		return Node{}
	}
	return Node{Type: NodeStack, Props: map[string]string{"direction": "row", "wrap": "true"}, Children: children}
}

// grid 按档位列数排布；单列时退化为纵向堆叠。
func (v *sectionVisitor) grid(maxColumns int, children []Node) Node {
	children = compact(children)
	if len(children) == 0 {
		return Node{}
	}
	cols := v.profile.Columns
	if maxColumns > 0 && cols > maxColumns {
		cols = maxColumns
	}
	if cols > len(children) {
		cols = len(children)
	}
	if cols <= 1 {
		return Node{Type: NodeStack, Props: map[string]string{"direction": "column"}, Children: children}
	}
	return Node{
		Type:     NodeGrid,
		Props:    map[string]string{"columns": strconv.Itoa(cols), "gap": strconv.Itoa(v.profile.GutterPx) + "px"},
		Children: children,
	}
}

func (v *sectionVisitor) card(children ...Node) Node {
	style := map[string]string{"border-radius": v.tokens.BorderRadius}
	if v.tokens.ShadowsEnabled {
		style["box-shadow"] = "0 1px 2px rgba(0,0,0,0.08)"
	}
	return Node{Type: NodeCard, Style: style, Children: compact(children)}
}

func (v *sectionVisitor) Hero(d portfolio.HeroData) {
	align := "left"
	if v.profile.Stacked() {
		align = "center"
	}
	body := []Node{
		v.heading(d.Title, 1),
		v.muted(d.Subtitle),
		v.text(d.Description),
	}
	if d.CTA != nil && d.CTA.URL != "" {
		body = append(body, withProps(textNode(NodeButton, d.CTA.Label, map[string]string{
			"background":    v.tokens.Colors.Primary,
			"border-radius": v.tokens.BorderRadius,
		}), "href", d.CTA.URL))
	}
	content := withProps(Node{Type: NodeStack, Children: compact(body)}, "direction", "column", "align", align)

	img := v.image(d.ImageURL, d.Title)
	if img.Type == "" {
		v.wrap(content)
		return
	}
	if v.profile.Stacked() {
		v.wrap(img, content)
		return
	}
	v.wrap(v.grid(2, []Node{content, img}))
}

func (v *sectionVisitor) About(d portfolio.AboutData) {
	heading := d.Heading
	if heading == "" {
		heading = "About"
	}
	img := v.image(d.ImageURL, heading)
	bio := v.text(d.Bio)
	if img.Type == "" || v.profile.Stacked() {
		v.wrap(v.heading(heading, 2), img, bio)
		return
	}
	v.wrap(v.heading(heading, 2), v.grid(2, []Node{img, bio}))
}

func (v *sectionVisitor) Skills(d portfolio.SkillsData) {
	cards := make([]Node, 0, len(d.Groups))
	for _, g := range d.Groups {
		items := make([]Node, 0, len(g.Skills))
		for _, s := range g.Skills {
			if s.Name == "" {
				continue
			}
			item := textNode(NodeTag, s.Name, map[string]string{
				"background":    v.tokens.Colors.Accent,
				"border-radius": v.tokens.BorderRadius,
			})
			if s.Level > 0 {
				level := min(s.Level, 100)
				item.Children = []Node{withProps(Node{Type: NodeProgress, Style: map[string]string{
					"background": v.tokens.Colors.Primary,
				}}, "value", strconv.Itoa(level), "max", "100")}
			}
			items = append(items, item)
		}
		if len(items) == 0 {
			continue
		}
		list := Node{Type: NodeStack, Props: map[string]string{"direction": "row", "wrap": "true"}, Children: items}
		cards = append(cards, v.card(v.heading(g.Category, 3), list))
	}
	v.wrap(v.heading(orDefault(d.Heading, "Skills"), 2), v.grid(0, cards))
}

func (v *sectionVisitor) Projects(d portfolio.ProjectsData) {
	cards := make([]Node, 0, len(d.Projects))
	for _, p := range d.Projects {
		links := make([]Node, 0, len(p.Links))
		for _, l := range p.Links {
			links = append(links, v.link(l))
		}
		var linkRow Node
		if links = compact(links); len(links) > 0 {
			linkRow = Node{Type: NodeStack, Props: map[string]string{"direction": "row"}, Children: links}
		}
		cards = append(cards, v.card(
			v.image(p.ImageURL, p.Title),
			v.heading(p.Title, 3),
			v.text(p.Description),
			v.tags(p.Technologies),
			linkRow,
		))
	}
	v.wrap(v.heading(orDefault(d.Heading, "Projects"), 2), v.grid(0, cards))
}

func (v *sectionVisitor) Experience(d portfolio.ExperienceData) {
	items := make([]Node, 0, len(d.Roles))
	for _, r := range d.Roles {
		title := r.Title
		if r.Company != "" {
			title = strings.TrimSpace(title + " · " + r.Company)
		}
		meta := strings.Join(nonEmpty(r.Period, r.Location), " | ")
		highlights := make([]Node, 0, len(r.Highlights))
		for _, h := range r.Highlights {
			highlights = append(highlights, v.text(h))
		}
		var list Node
		if highlights = compact(highlights); len(highlights) > 0 {
			list = Node{Type: NodeList, Children: highlights}
		}
		items = append(items, v.card(v.heading(title, 3), v.muted(meta), v.text(r.Description), list))
	}
	// 时间线在任何宽度下都是单列。
	v.wrap(v.heading(orDefault(d.Heading, "Experience"), 2), v.grid(1, items))
}

func (v *sectionVisitor) Education(d portfolio.EducationData) {
	items := make([]Node, 0, len(d.Schools))
	for _, s := range d.Schools {
		degree := strings.Join(nonEmpty(s.Degree, s.Field), ", ")
		items = append(items, v.card(v.heading(s.Institution, 3), v.text(degree), v.muted(s.Period)))
	}
	v.wrap(v.heading(orDefault(d.Heading, "Education"), 2), v.grid(2, items))
}

func (v *sectionVisitor) Contact(d portfolio.ContactData) {
	rows := []Node{}
	if d.Email != "" {
		rows = append(rows, v.link(portfolio.Link{Label: d.Email, URL: "mailto:" + d.Email}))
	}
	if d.Phone != "" {
		rows = append(rows, v.link(portfolio.Link{Label: d.Phone, URL: "tel:" + strings.ReplaceAll(d.Phone, " ", "")}))
	}
	rows = append(rows, v.muted(d.Location))
	socials := make([]Node, 0, len(d.Socials))
	for _, s := range d.Socials {
		socials = append(socials, v.link(s))
	}
	var socialRow Node
	if socials = compact(socials); len(socials) > 0 {
		dir := "row"
		if v.profile.Stacked() {
			dir = "column"
		}
		socialRow = Node{Type: NodeStack, Props: map[string]string{"direction": dir}, Children: socials}
	}
	rows = append(rows, socialRow)
	v.wrap(v.heading(orDefault(d.Heading, "Contact"), 2),
		Node{Type: NodeStack, Props: map[string]string{"direction": "column"}, Children: compact(rows)})
}

func (v *sectionVisitor) Interests(d portfolio.InterestsData) {
	v.wrap(v.heading(orDefault(d.Heading, "Interests"), 2), v.tags(d.Interests))
}

func (v *sectionVisitor) Links(d portfolio.LinksData) {
	buttons := make([]Node, 0, len(d.Links))
	for _, l := range d.Links {
		n := v.link(l)
		if n.Type == "" {
			continue
		}
		n.Type = NodeButton
		n.Style["border-radius"] = v.tokens.BorderRadius
		buttons = append(buttons, n)
	}
	dir := "row"
	if v.profile.Stacked() {
		dir = "column"
	}
	v.wrap(v.heading(d.Heading, 2), Node{Type: NodeStack, Props: map[string]string{"direction": dir}, Children: buttons})
}

func (v *sectionVisitor) Raw(d portfolio.RawData) {
	if d.Malformed() {
		v.node = placeholder(v.section, errcode.MalformedSection,
			fmt.Sprintf("section %q could not be read: %s", d.Type, d.Problem))
		return
	}
	v.node = placeholder(v.section, errcode.UnknownSection,
		fmt.Sprintf("section type %q is not supported", d.Type))
}

// compact 去掉零值节点。
func compact(nodes []Node) []Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		if n.Type != "" {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
