package database

import (
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"phFolio/internal/portfolio"
)

// 作品集导出状态。
const (
	StatusDraft     = "draft"
	StatusExporting = "exporting"
	StatusExported  = "exported"
	StatusFailed    = "failed"
)

// maxUsernameLength 与 User.Username 的列宽一致。
const maxUsernameLength = 64

// User 是外部身份服务账号在本地的镜像，ID 与访问令牌中的 user_id 一致。
type User struct {
	gorm.Model
	Username   string      `gorm:"uniqueIndex;size:64"`
	Portfolios []Portfolio `gorm:"constraint:OnDelete:CASCADE"`
}

// Portfolio 保存一份作品集文档。Content 为文档 JSON，Slug 与文档内 slug 保持一致。
type Portfolio struct {
	gorm.Model
	PublicID        string         `gorm:"uniqueIndex;size:36"`
	Slug            string         `gorm:"uniqueIndex;size:128"`
	Title           string         `gorm:"size:255"`
	ThemeID         string         `gorm:"size:64"`
	Content         datatypes.JSON `gorm:"type:jsonb"`
	UserID          uint           `gorm:"index"`
	User            User           `gorm:"constraint:OnDelete:CASCADE"`
	ExportKey       string         `gorm:"size:512"`
	Status          string         `gorm:"size:32"`
	PreviewImageURL string         `gorm:"size:512"`
	PDFKey          string         `gorm:"size:512"`
}

// Document 解码文档内容。
func (p *Portfolio) Document() (*portfolio.Document, error) {
	doc, err := portfolio.Decode(p.Content)
	if err != nil {
		return nil, fmt.Errorf("decode portfolio %d: %w", p.ID, err)
	}
	return doc, nil
}

// Template 是可复用的作品集模板。
// 支持私有与公开模板（IsPublic），并归属于创建者（UserID）。
type Template struct {
	gorm.Model
	Slug            string         `gorm:"uniqueIndex;size:128"`
	Title           string         `gorm:"size:255"`
	PreviewImageURL string         `gorm:"size:512"`
	Content         datatypes.JSON `gorm:"type:jsonb"` // 文档 JSON，instantiate 时复制并重新生成 id
	IsPublic        bool           `gorm:"default:false"`
	UserID          uint           `gorm:"index"`
	User            User           `gorm:"constraint:OnDelete:CASCADE"`
}

// Document 解码模板内容。
func (t *Template) Document() (*portfolio.Document, error) {
	doc, err := portfolio.Decode(t.Content)
	if err != nil {
		return nil, fmt.Errorf("decode template %d: %w", t.ID, err)
	}
	return doc, nil
}

// Models 返回需要迁移的模型列表。
func Models() []any {
	return []any{&User{}, &Portfolio{}, &Template{}}
}
