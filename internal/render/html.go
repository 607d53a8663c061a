package render

import (
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"
)

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width={{.Profile.WidthPx}}">
<style>{{css .CSS}}
body{margin:0;width:{{.Profile.WidthPx}}px;background:var(--color-background);color:var(--color-text);font-family:var(--font-body)}
.grid{display:grid;gap:{{.Profile.GutterPx}}px}
.stack{display:flex;gap:8px}
</style>
</head>
<body data-viewport="{{.Profile.Viewport}}" data-frame="{{.Profile.Frame}}">
{{range .Nodes}}{{template "node" .}}{{end}}
</body>
</html>
{{define "node"}}{{if eq .Type "heading"}}{{template "heading" .}}
{{else if eq .Type "link"}}<a href="{{index .Props "href"}}" style="{{style .Style}}">{{.Text}}</a>
{{else if eq .Type "button"}}<a class="button" href="{{index .Props "href"}}" style="{{style .Style}}">{{.Text}}</a>
{{else if eq .Type "image"}}<img src="{{index .Props "src"}}" alt="{{index .Props "alt"}}" style="{{style .Style}}">
{{else if eq .Type "progress"}}<progress value="{{index .Props "value"}}" max="100"></progress>
{{else if eq .Type "placeholder"}}<div class="placeholder" data-section="{{.SectionID}}"{{with .Diagnostic}} data-code="{{.Code}}"{{end}}>{{.Text}}</div>
{{else}}<div class="{{.Type}}"{{if .SectionID}} id="{{index .Props "anchor"}}-{{.SectionID}}" data-kind="{{.Kind}}"{{end}} style="{{layout .}}{{style .Style}}">{{.Text}}{{range .Children}}{{template "node" .}}{{end}}</div>
{{end}}{{end}}
{{define "heading"}}{{$l := level .}}{{if eq $l "1"}}<h1 style="{{style .Style}}">{{.Text}}</h1>{{else if eq $l "3"}}<h3 style="{{style .Style}}">{{.Text}}</h3>{{else}}<h2 style="{{style .Style}}">{{.Text}}</h2>{{end}}{{end}}`

var page = template.Must(template.New("page").Funcs(template.FuncMap{
	"css":    func(s string) template.CSS { return template.CSS(s) },
	"style":  styleAttr,
	"layout": layoutAttr,
	"level":  headingLevel,
}).Option("missingkey=zero").Parse(pageTemplate))

// WriteHTML 把预览结果写成独立的 HTML 页面，供无头浏览器截图与静态导出使用。
func WriteHTML(w io.Writer, p Preview) error {
	if err := page.Execute(w, p); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

// HTML 返回 WriteHTML 的字符串结果。
func HTML(p Preview) (string, error) {
	var b strings.Builder
	if err := WriteHTML(&b, p); err != nil {
		return "", err
	}
	return b.String(), nil
}

// styleAttr 输出按键排序的内联样式，值来自已校验的主题 token。
func styleAttr(style map[string]string) template.CSS {
	if len(style) == 0 {
		return ""
	}
	keys := make([]string, 0, len(style))
	for k := range style {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		v := style[k]
		if v == "" || strings.ContainsAny(v, ";{}<>\"") {
			continue
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(v)
		b.WriteByte(';')
	}
	return template.CSS(b.String())
}

func layoutAttr(n Node) template.CSS {
	switch n.Type {
	case NodeGrid:
		return template.CSS(fmt.Sprintf("grid-template-columns:repeat(%s,1fr);", digits(n.Props["columns"], "1")))
	case NodeStack:
		dir := "column"
		if n.Props["direction"] == "row" {
			dir = "row"
		}
		wrap := "nowrap"
		if n.Props["wrap"] == "true" {
			wrap = "wrap"
		}
		return template.CSS("flex-direction:" + dir + ";flex-wrap:" + wrap + ";")
	}
	return ""
}

func headingLevel(n Node) string {
	switch l := n.Props["level"]; l {
	case "1", "2", "3":
		return l
	default:
		return "2"
	}
}

func digits(s, def string) string {
	if s == "" {
		return def
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return def
		}
	}
	return s
}
