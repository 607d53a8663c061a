package storage

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ExportPrefix 返回某个作品集全部导出包的前缀，删除作品集时整体清理。
func ExportPrefix(userID uint, portfolioID string) string {
	return fmt.Sprintf("exports/%d/%s/", userID, portfolioID)
}

// NewExportKey 生成一次导出的对象 key：exports/<user>/<portfolio>/<uuid>.json。
func NewExportKey(userID uint, portfolioID string) string {
	return ExportPrefix(userID, portfolioID) + uuid.NewString() + ".json"
}

// NewTemplatePreviewKey 生成模板缩略图的对象 key。
func NewTemplatePreviewKey(templateID uint, viewport string) string {
	return fmt.Sprintf("templates/%d/%s-%s.jpg", templateID, viewport, uuid.NewString())
}

// OwnsKey 判断对象 key 是否位于用户自己的导出目录下。
func OwnsKey(userID uint, key string) bool {
	prefix := fmt.Sprintf("exports/%d/", userID)
	return strings.HasPrefix(key, prefix) && !strings.Contains(key, "..")
}

// NewPortfolioPreviewKey 生成作品集缩略图的对象 key，与导出包同目录，删除作品集时一并清理。
func NewPortfolioPreviewKey(userID uint, portfolioID string) string {
	return ExportPrefix(userID, portfolioID) + "preview-" + uuid.NewString() + ".jpg"
}

// NewExportPDFKey 生成导出 PDF 的对象 key。
func NewExportPDFKey(userID uint, portfolioID string) string {
	return ExportPrefix(userID, portfolioID) + uuid.NewString() + ".pdf"
}
