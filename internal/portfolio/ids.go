package portfolio

import (
	"fmt"

	"github.com/google/uuid"
)

// ID 是文档与 section 的标识。
//
// 格式：小写、带连字符的 RFC 9562 UUIDv7 字符串（48 位毫秒时间戳 + 随机位），
// 例如 "01890a5d-ac96-774b-bcce-b302099a8057"。生成策略只通过 NewID 暴露。
type ID string

// NewID 生成新的标识。UUIDv7 生成失败时退回 UUIDv4。
func NewID() ID {
	u, err := uuid.NewV7()
	if err != nil {
		u = uuid.New()
	}
	return ID(u.String())
}

// ParseID 校验外部传入的标识格式。
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("parse id %q: %w", s, err)
	}
	return ID(u.String()), nil
}

func (id ID) String() string { return string(id) }
