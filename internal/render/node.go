package render

import "phFolio/internal/portfolio"

// 节点类型。
const (
	NodeSection     = "section"
	NodeHeading     = "heading"
	NodeText        = "text"
	NodeImage       = "image"
	NodeButton      = "button"
	NodeLink        = "link"
	NodeGrid        = "grid"
	NodeStack       = "stack"
	NodeCard        = "card"
	NodeList        = "list"
	NodeTag         = "tag"
	NodeProgress    = "progress"
	NodePlaceholder = "placeholder"
)

// Node 是数据描述的可视树节点，由预览端负责实际排版。
type Node struct {
	Type       string            `json:"type"`
	SectionID  portfolio.ID      `json:"sectionId,omitempty"`
	Kind       portfolio.Kind    `json:"kind,omitempty"`
	Text       string            `json:"text,omitempty"`
	Props      map[string]string `json:"props,omitempty"`
	Style      map[string]string `json:"style,omitempty"`
	Children   []Node            `json:"children,omitempty"`
	Diagnostic *Diagnostic       `json:"diagnostic,omitempty"`
}

// Diagnostic 标记占位节点的原因。
type Diagnostic struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// IsPlaceholder 判断是否占位节点。
func (n Node) IsPlaceholder() bool {
	return n.Type == NodePlaceholder
}

// Walk 深度优先遍历，fn 返回 false 时停止进入子节点。
func Walk(nodes []Node, fn func(Node) bool) {
	for _, n := range nodes {
		if fn(n) {
			Walk(n.Children, fn)
		}
	}
}

// CountPlaceholders 统计树中的占位节点数量。
func CountPlaceholders(nodes []Node) int {
	count := 0
	Walk(nodes, func(n Node) bool {
		if n.IsPlaceholder() {
			count++
			return false
		}
		return true
	})
	return count
}

func textNode(typ, text string, style map[string]string) Node {
	return Node{Type: typ, Text: text, Style: style}
}

func withProps(n Node, kv ...string) Node {
	if n.Props == nil {
		n.Props = make(map[string]string, len(kv)/2)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			n.Props[kv[i]] = kv[i+1]
		}
	}
	return n
}
