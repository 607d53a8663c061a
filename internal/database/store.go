package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"phFolio/internal/portfolio"
	"phFolio/internal/slug"
)

// DefaultSlugAttempts 是唯一约束冲突后的最大重试次数。
const DefaultSlugAttempts = 5

var (
	// ErrSlugConflict 表示多次重试后仍无法写入唯一 slug。
	ErrSlugConflict = errors.New("slug conflict")
	// ErrNotFound 表示记录不存在或不属于当前用户。
	ErrNotFound = errors.New("record not found")
)

// Store 封装作品集与模板的持久化。slug 分配基于已有 slug 的快照，
// 写入时由唯一索引兜底，冲突后重新取快照再分配。
type Store struct {
	db          *gorm.DB
	slugs       *slug.Allocator
	maxAttempts int
}

// StoreOption 配置 Store。
type StoreOption func(*Store)

// WithAllocator 替换 slug 分配器，测试中用于固定时钟。
func WithAllocator(a *slug.Allocator) StoreOption {
	return func(s *Store) { s.slugs = a }
}

// WithSlugAttempts 设置冲突重试次数。
func WithSlugAttempts(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// NewStore 构造 Store。db 需以 TranslateError 打开。
func NewStore(db *gorm.DB, opts ...StoreOption) *Store {
	s := &Store{db: db, slugs: slug.New(), maxAttempts: DefaultSlugAttempts}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB 返回底层连接。
func (s *Store) DB() *gorm.DB {
	return s.db
}

// EnsureUser 确保本地存在对应的用户镜像记录。
// 只有 id 冲突视为已存在；用户名被其他账号占用时改用带 id 后缀的用户名。
func (s *Store) EnsureUser(ctx context.Context, userID uint, username string) error {
	if username == "" {
		username = fmt.Sprintf("user-%d", userID)
	}
	err := s.insertUser(ctx, userID, username)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		suffix := fmt.Sprintf("-%d", userID)
		if limit := maxUsernameLength - len(suffix); len(username) > limit {
			username = username[:limit]
		}
		err = s.insertUser(ctx, userID, username+suffix)
	}
	if err != nil {
		return fmt.Errorf("ensure user %d: %w", userID, err)
	}
	return nil
}

func (s *Store) insertUser(ctx context.Context, userID uint, username string) error {
	user := User{Model: gorm.Model{ID: userID}, Username: username}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&user).Error
}

// slugSnapshot 读取与 base 同前缀的已用 slug。软删除的记录仍占用唯一索引，一并计入。
func (s *Store) slugSnapshot(ctx context.Context, model any, base string) (slug.Set, error) {
	var taken []string
	err := s.db.WithContext(ctx).Unscoped().
		Model(model).
		Where("slug = ? OR slug LIKE ?", base, base+"-%").
		Pluck("slug", &taken).Error
	if err != nil {
		return nil, fmt.Errorf("load slug snapshot: %w", err)
	}
	return slug.NewSet(taken...), nil
}

// allocate 反复取快照、分配、写入，直到写入成功或次数耗尽。
func (s *Store) allocate(ctx context.Context, model any, text string, write func(tx *gorm.DB, candidate string) error) (string, error) {
	base := s.slugs.Base(text)
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		existing, err := s.slugSnapshot(ctx, model, base)
		if err != nil {
			return "", err
		}
		candidate := s.slugs.Allocate(base, existing)

		err = write(s.db.WithContext(ctx), candidate)
		switch {
		case err == nil:
			return candidate, nil
		case errors.Is(err, gorm.ErrDuplicatedKey):
			continue
		default:
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %q after %d attempts", ErrSlugConflict, base, s.maxAttempts)
}

// CreatePortfolio 为用户创建作品集。slug 由 title 分配并写回文档。
func (s *Store) CreatePortfolio(ctx context.Context, userID uint, title string, doc *portfolio.Document) (*Portfolio, error) {
	if doc == nil {
		doc = portfolio.New("", "")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = portfolio.DefaultTitle
	}
	source := doc.Slug
	if source == "" {
		source = title
	}

	var model Portfolio
	_, err := s.allocate(ctx, &Portfolio{}, source, func(tx *gorm.DB, candidate string) error {
		doc.Slug = candidate
		content, err := doc.Encode()
		if err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
		model = Portfolio{
			PublicID: string(doc.ID),
			Slug:     candidate,
			Title:    title,
			ThemeID:  doc.ThemeID,
			Content:  content,
			UserID:   userID,
			Status:   StatusDraft,
		}
		return tx.Create(&model).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create portfolio: %w", err)
	}
	return &model, nil
}

// GetPortfolio 按公开 id 读取用户自己的作品集。
func (s *Store) GetPortfolio(ctx context.Context, userID uint, publicID string) (*Portfolio, error) {
	var model Portfolio
	err := s.db.WithContext(ctx).
		Where("public_id = ? AND user_id = ?", publicID, userID).
		First(&model).Error
	if err != nil {
		return nil, notFound(err, "get portfolio")
	}
	return &model, nil
}

// GetPortfolioByID 按主键读取，供 worker 使用。
func (s *Store) GetPortfolioByID(ctx context.Context, id uint) (*Portfolio, error) {
	var model Portfolio
	if err := s.db.WithContext(ctx).First(&model, id).Error; err != nil {
		return nil, notFound(err, "get portfolio")
	}
	return &model, nil
}

// GetPortfolioBySlug 按 slug 读取，供公开访问使用。
func (s *Store) GetPortfolioBySlug(ctx context.Context, value string) (*Portfolio, error) {
	var model Portfolio
	if err := s.db.WithContext(ctx).Where("slug = ?", value).First(&model).Error; err != nil {
		return nil, notFound(err, "get portfolio by slug")
	}
	return &model, nil
}

// ListPortfolios 按更新时间倒序列出用户的作品集。
func (s *Store) ListPortfolios(ctx context.Context, userID uint) ([]Portfolio, error) {
	var items []Portfolio
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list portfolios: %w", err)
	}
	return items, nil
}

// SaveDocument 覆盖作品集文档，slug 以数据库为准，不随文档修改。
func (s *Store) SaveDocument(ctx context.Context, model *Portfolio, doc *portfolio.Document, title string) error {
	doc.ID = portfolio.ID(model.PublicID)
	doc.Slug = model.Slug
	content, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	updates := map[string]any{
		"content":  content,
		"theme_id": doc.ThemeID,
	}
	if title = strings.TrimSpace(title); title != "" {
		updates["title"] = title
	}
	if err := s.db.WithContext(ctx).Model(model).Updates(updates).Error; err != nil {
		return fmt.Errorf("save portfolio %d: %w", model.ID, err)
	}
	return s.reload(ctx, model)
}

// RenameSlug 按新文本重新分配 slug，并同步文档内容。
func (s *Store) RenameSlug(ctx context.Context, model *Portfolio, text string) error {
	doc, err := model.Document()
	if err != nil {
		return err
	}
	if slug.Normalize(text) == model.Slug && model.Slug != "" {
		return nil
	}

	_, err = s.allocate(ctx, &Portfolio{}, text, func(tx *gorm.DB, candidate string) error {
		doc.Slug = candidate
		content, err := doc.Encode()
		if err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
		return tx.Model(model).Updates(map[string]any{"slug": candidate, "content": content}).Error
	})
	if err != nil {
		return fmt.Errorf("rename slug: %w", err)
	}
	return s.reload(ctx, model)
}

// DeletePortfolio 软删除作品集。
func (s *Store) DeletePortfolio(ctx context.Context, model *Portfolio) error {
	if err := s.db.WithContext(ctx).Delete(model).Error; err != nil {
		return fmt.Errorf("delete portfolio %d: %w", model.ID, err)
	}
	return nil
}

// SetExportStatus 更新导出状态；key 为空时保留原有对象 key。
func (s *Store) SetExportStatus(ctx context.Context, id uint, status, key string) error {
	updates := map[string]any{"status": status}
	if key != "" {
		updates["export_key"] = key
	}
	if err := s.db.WithContext(ctx).Model(&Portfolio{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("update export status: %w", err)
	}
	return nil
}

// SetPortfolioPreview 记录作品集缩略图的对象 key。
func (s *Store) SetPortfolioPreview(ctx context.Context, id uint, key string) error {
	err := s.db.WithContext(ctx).Model(&Portfolio{}).Where("id = ?", id).Update("preview_image_url", key).Error
	if err != nil {
		return fmt.Errorf("set portfolio preview: %w", err)
	}
	return nil
}

// SetPortfolioPDF 记录最近一次导出的 PDF 对象 key。
func (s *Store) SetPortfolioPDF(ctx context.Context, id uint, key string) error {
	err := s.db.WithContext(ctx).Model(&Portfolio{}).Where("id = ?", id).Update("pdf_key", key).Error
	if err != nil {
		return fmt.Errorf("set portfolio pdf: %w", err)
	}
	return nil
}

// CreateTemplate 从文档创建模板，slug 与作品集 slug 独立分配。
func (s *Store) CreateTemplate(ctx context.Context, userID uint, title string, doc *portfolio.Document, public bool) (*Template, error) {
	title = strings.TrimSpace(title)
	var model Template
	_, err := s.allocate(ctx, &Template{}, title, func(tx *gorm.DB, candidate string) error {
		doc.Slug = candidate
		content, err := doc.Encode()
		if err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
		model = Template{
			Slug:     candidate,
			Title:    title,
			Content:  content,
			IsPublic: public,
			UserID:   userID,
		}
		return tx.Create(&model).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	return &model, nil
}

// ListTemplates 返回用户自己的模板与全部公开模板。
func (s *Store) ListTemplates(ctx context.Context, userID uint) ([]Template, error) {
	var items []Template
	err := s.db.WithContext(ctx).
		Where("user_id = ? OR is_public = ?", userID, true).
		Order("updated_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return items, nil
}

// GetTemplate 读取模板，仅允许创建者或公开模板。
func (s *Store) GetTemplate(ctx context.Context, userID, id uint) (*Template, error) {
	model, err := s.GetTemplateByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if model.UserID != userID && !model.IsPublic {
		return nil, fmt.Errorf("get template: %w", ErrNotFound)
	}
	return model, nil
}

// GetTemplateByID 按主键读取模板，不校验归属。
func (s *Store) GetTemplateByID(ctx context.Context, id uint) (*Template, error) {
	var model Template
	if err := s.db.WithContext(ctx).First(&model, id).Error; err != nil {
		return nil, notFound(err, "get template")
	}
	return &model, nil
}

// SetTemplatePreview 记录模板缩略图地址。
func (s *Store) SetTemplatePreview(ctx context.Context, id uint, url string) error {
	err := s.db.WithContext(ctx).Model(&Template{}).Where("id = ?", id).Update("preview_image_url", url).Error
	if err != nil {
		return fmt.Errorf("set template preview: %w", err)
	}
	return nil
}

func (s *Store) reload(ctx context.Context, model *Portfolio) error {
	if err := s.db.WithContext(ctx).First(model, model.ID).Error; err != nil {
		return fmt.Errorf("reload portfolio %d: %w", model.ID, err)
	}
	return nil
}

func notFound(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
