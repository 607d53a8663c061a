package portfolio

import (
	"bytes"
	"encoding/json"
	"fmt"

	"phFolio/internal/theme"
)

// Section 是文档中一个可排序、可独立隐藏的内容块。
type Section struct {
	ID             ID
	Type           Kind
	Order          int
	Visible        bool
	Data           Data
	StyleOverrides *theme.Overrides
}

// NewSection 基于负载创建可见的 section，Order 由文档在插入时分配。
func NewSection(data Data) Section {
	return Section{
		ID:      NewID(),
		Type:    data.Kind(),
		Visible: true,
		Data:    data,
	}
}

type sectionJSON struct {
	ID             ID               `json:"id"`
	Type           Kind             `json:"type"`
	Order          int              `json:"order"`
	Visible        *bool            `json:"visible,omitempty"`
	Data           json.RawMessage  `json:"data,omitempty"`
	StyleOverrides *theme.Overrides `json:"styleOverrides,omitempty"`
}

// MarshalJSON 输出 { id, type, order, visible, data, styleOverrides }。
func (s Section) MarshalJSON() ([]byte, error) {
	kind := s.Type
	if kind == "" && s.Data != nil {
		kind = s.Data.Kind()
	}

	var payload json.RawMessage
	switch d := s.Data.(type) {
	case nil:
		payload = json.RawMessage("null")
	case RawData:
		payload = d.Payload
		if len(payload) == 0 {
			payload = json.RawMessage("null")
		}
	default:
		b, err := json.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("marshal section %s data: %w", s.ID, err)
		}
		payload = b
	}

	visible := s.Visible
	return json.Marshal(sectionJSON{
		ID:             s.ID,
		Type:           kind,
		Order:          s.Order,
		Visible:        &visible,
		Data:           payload,
		StyleOverrides: s.StyleOverrides,
	})
}

// UnmarshalJSON 按 type 解码负载；未知类型或结构不符时保存为 RawData，不返回错误。
// 缺省的 visible 视为 true。
func (s *Section) UnmarshalJSON(b []byte) error {
	var wire sectionJSON
	if err := json.Unmarshal(b, &wire); err != nil {
		return fmt.Errorf("decode section: %w", err)
	}

	*s = Section{
		ID:             wire.ID,
		Type:           wire.Type,
		Order:          wire.Order,
		Visible:        wire.Visible == nil || *wire.Visible,
		StyleOverrides: wire.StyleOverrides,
		Data:           DecodeData(wire.Type, wire.Data),
	}
	return nil
}

// DecodeData 把原始 JSON 解码为 kind 对应的负载。
func DecodeData(kind Kind, raw json.RawMessage) Data {
	target, ok := newData(kind)
	if !ok {
		return RawData{Type: kind, Payload: raw}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return RawData{Type: kind, Payload: raw, Problem: "data missing"}
	}
	if trimmed[0] != '{' {
		return RawData{Type: kind, Payload: raw, Problem: "data must be a JSON object"}
	}
	if err := json.Unmarshal(trimmed, target); err != nil {
		return RawData{Type: kind, Payload: raw, Problem: err.Error()}
	}
	return deref(target)
}
