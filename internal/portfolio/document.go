package portfolio

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"phFolio/internal/theme"
)

// ErrSectionNotFound 表示文档中不存在指定 section。
var ErrSectionNotFound = errors.New("section not found")

// Document 是作品集的聚合根。
//
// 不变量：Sections 的 Order 在每次经由本类型方法修改后都是 0..n-1 的连续序列，
// 且 Sections 切片按 Order 排列。
type Document struct {
	ID             ID               `json:"id"`
	Slug           string           `json:"slug"`
	ThemeID        string           `json:"themeId"`
	ThemeOverrides *theme.Overrides `json:"themeOverrides,omitempty"`
	Sections       []Section        `json:"sections"`
}

// New 创建使用指定主题、没有 section 的文档。
func New(slug, themeID string) *Document {
	if themeID == "" {
		themeID = theme.DefaultThemeID
	}
	return &Document{
		ID:       NewID(),
		Slug:     slug,
		ThemeID:  themeID,
		Sections: []Section{},
	}
}

// Decode 解析 JSON 文档。不会重排 Order，保证往返一致。
func Decode(raw []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode portfolio document: %w", err)
	}
	if doc.Sections == nil {
		doc.Sections = []Section{}
	}
	return &doc, nil
}

// Encode 序列化文档。
func (d *Document) Encode() ([]byte, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode portfolio document: %w", err)
	}
	return b, nil
}

// Section 按 id 查找 section。
func (d *Document) Section(id ID) (Section, bool) {
	i := d.indexOf(id)
	if i < 0 {
		return Section{}, false
	}
	return d.Sections[i], true
}

// Ordered 返回按 Order 稳定排序后的副本，不修改文档。
// Order 重复或不连续时保持原切片中的相对顺序。
func (d *Document) Ordered() []Section {
	out := make([]Section, len(d.Sections))
	copy(out, d.Sections)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Normalize 按 Order 稳定排序并重新编号为 0..n-1。
func (d *Document) Normalize() {
	d.Sections = d.Ordered()
	d.renumber()
}

// AddSection 把 section 追加到末尾并返回分配好 Order 的副本。
// 空 ID 会被自动生成。
func (d *Document) AddSection(s Section) Section {
	d.Normalize()
	if s.ID == "" {
		s.ID = NewID()
	}
	if s.Type == "" && s.Data != nil {
		s.Type = s.Data.Kind()
	}
	d.Sections = append(d.Sections, s)
	d.renumber()
	return d.Sections[len(d.Sections)-1]
}

// RemoveSection 删除 section 并重新编号。
func (d *Document) RemoveSection(id ID) error {
	d.Normalize()
	i := d.indexOf(id)
	if i < 0 {
		return fmt.Errorf("remove section %s: %w", id, ErrSectionNotFound)
	}
	d.Sections = append(d.Sections[:i], d.Sections[i+1:]...)
	d.renumber()
	return nil
}

// MoveSection 把 section 移动到 newIndex（越界时夹到两端）并重新编号。
// 这是唯一会改变相对顺序的修改路径。
func (d *Document) MoveSection(id ID, newIndex int) error {
	d.Normalize()
	from := d.indexOf(id)
	if from < 0 {
		return fmt.Errorf("move section %s: %w", id, ErrSectionNotFound)
	}

	moved := d.Sections[from]
	rest := make([]Section, 0, len(d.Sections))
	rest = append(rest, d.Sections[:from]...)
	rest = append(rest, d.Sections[from+1:]...)

	switch {
	case newIndex < 0:
		newIndex = 0
	case newIndex > len(rest):
		newIndex = len(rest)
	}

	out := make([]Section, 0, len(d.Sections))
	out = append(out, rest[:newIndex]...)
	out = append(out, moved)
	out = append(out, rest[newIndex:]...)
	d.Sections = out
	d.renumber()
	return nil
}

// SetVisible 切换可见性；隐藏的 section 保留其 Order。
func (d *Document) SetVisible(id ID, visible bool) error {
	i := d.indexOf(id)
	if i < 0 {
		return fmt.Errorf("set section %s visibility: %w", id, ErrSectionNotFound)
	}
	d.Sections[i].Visible = visible
	return nil
}

// UpdateSection 替换 section 的负载与样式覆盖，ID 与 Order 保持不变。
func (d *Document) UpdateSection(id ID, data Data, style *theme.Overrides) error {
	i := d.indexOf(id)
	if i < 0 {
		return fmt.Errorf("update section %s: %w", id, ErrSectionNotFound)
	}
	if data != nil {
		d.Sections[i].Data = data
		d.Sections[i].Type = data.Kind()
	}
	d.Sections[i].StyleOverrides = style
	return nil
}

func (d *Document) indexOf(id ID) int {
	for i := range d.Sections {
		if d.Sections[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *Document) renumber() {
	for i := range d.Sections {
		d.Sections[i].Order = i
	}
}

// Fork 复制文档并为文档与每个 section 生成新的 ID，slug 置空。
// 用于从模板实例化作品集。
func (d *Document) Fork() (*Document, error) {
	raw, err := d.Encode()
	if err != nil {
		return nil, err
	}
	out, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	out.ID = NewID()
	out.Slug = ""
	for i := range out.Sections {
		out.Sections[i].ID = NewID()
	}
	return out, nil
}
