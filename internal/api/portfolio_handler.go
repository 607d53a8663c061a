package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"phFolio/internal/api/middleware"
	"phFolio/internal/config"
	"phFolio/internal/database"
	"phFolio/internal/errcode"
	"phFolio/internal/metrics"
	"phFolio/internal/portfolio"
	"phFolio/internal/render"
	"phFolio/internal/slug"
	"phFolio/internal/storage"
	"phFolio/internal/tasks"
	"phFolio/internal/theme"
)

// TaskEnqueuer 是任务入队能力，*asynq.Client 满足该接口。
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ObjectStorage 是 API 侧需要的对象存储能力，*storage.Client 满足该接口。
type ObjectStorage interface {
	PresignGet(ctx context.Context, objectKey string, duration time.Duration, filename string) (string, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

// PortfolioHandler 负责作品集的编辑、预览与导出。
type PortfolioHandler struct {
	store         *database.Store
	renderer      *render.Renderer
	queue         TaskEnqueuer
	objects       ObjectStorage
	counter       redisRateCounter
	maxPortfolios int
	export        config.ExportConfig
}

// NewPortfolioHandler 构造 PortfolioHandler。counter 为 nil 时不限流。
func NewPortfolioHandler(
	store *database.Store,
	renderer *render.Renderer,
	queue TaskEnqueuer,
	objects ObjectStorage,
	counter redisRateCounter,
	maxPortfolios int,
	export config.ExportConfig,
) *PortfolioHandler {
	if renderer == nil {
		renderer = render.NewRenderer(nil)
	}
	return &PortfolioHandler{
		store:         store,
		renderer:      renderer,
		queue:         queue,
		objects:       objects,
		counter:       counter,
		maxPortfolios: maxPortfolios,
		export:        export,
	}
}

type createPortfolioRequest struct {
	Title    string          `json:"title"`
	ThemeID  string          `json:"theme_id"`
	Document json.RawMessage `json:"document"`
}

type updatePortfolioRequest struct {
	Title    string          `json:"title"`
	Document json.RawMessage `json:"document" binding:"required"`
}

type renameSlugRequest struct {
	Slug string `json:"slug" binding:"required"`
}

type updateThemeRequest struct {
	ThemeID   string           `json:"theme_id"`
	Overrides *theme.Overrides `json:"overrides"`
}

type addSectionRequest struct {
	Type           string           `json:"type" binding:"required"`
	Data           json.RawMessage  `json:"data"`
	Visible        *bool            `json:"visible"`
	Index          *int             `json:"index"`
	StyleOverrides *theme.Overrides `json:"style_overrides"`
}

type updateSectionRequest struct {
	Data           json.RawMessage  `json:"data"`
	StyleOverrides *theme.Overrides `json:"style_overrides"`
}

type moveSectionRequest struct {
	Index *int `json:"index" binding:"required"`
}

type visibilityRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

type portfolioListItem struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	ThemeID    string    `json:"theme_id"`
	Status     string    `json:"status"`
	PreviewKey string    `json:"preview_key,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type portfolioResponse struct {
	portfolioListItem
	Document  json.RawMessage `json:"document"`
	CreatedAt time.Time       `json:"created_at"`
}

// ListPortfolios 列出当前用户的作品集。
func (h *PortfolioHandler) ListPortfolios(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	items, err := h.store.ListPortfolios(c.Request.Context(), userID)
	if err != nil {
		Internal(c, "failed to list portfolios")
		return
	}

	out := make([]portfolioListItem, 0, len(items))
	for i := range items {
		out = append(out, newPortfolioListItem(&items[i]))
	}
	c.JSON(http.StatusOK, out)
}

// CreatePortfolio 创建作品集；未提供文档时使用起始模板，超过限额返回 403。
func (h *PortfolioHandler) CreatePortfolio(c *gin.Context) {
	var req createPortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := middleware.UserID(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	if !h.ensureCapacity(c, userID) {
		return
	}

	var doc *portfolio.Document
	if len(req.Document) > 0 && string(req.Document) != "null" {
		decoded, err := portfolio.Decode(req.Document)
		if err != nil {
			BadRequest(c, "invalid document")
			return
		}
		doc = decoded
		doc.ID = portfolio.NewID()
		doc.Normalize()
		if req.ThemeID != "" {
			doc.ThemeID = req.ThemeID
		}
		if doc.ThemeID == "" {
			doc.ThemeID = h.renderer.Engine().Catalog().DefaultID()
		}
		if err := validateWithSlug(doc, firstNonEmpty(doc.Slug, req.Title)); err != nil {
			Unprocessable(c, err.Error())
			return
		}
	} else {
		themeID := req.ThemeID
		if themeID == "" {
			themeID = h.renderer.Engine().Catalog().DefaultID()
		}
		doc = portfolio.NewStarter("", themeID)
	}

	model, err := h.store.CreatePortfolio(ctx, userID, req.Title, doc)
	if err != nil {
		h.writeStoreError(c, err, "failed to create portfolio")
		return
	}

	c.JSON(http.StatusCreated, newPortfolioResponse(model))
}

// GetPortfolio 返回完整文档。
func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	model, ok := h.portfolioForUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newPortfolioResponse(model))
}

// UpdatePortfolio 覆盖文档。slug 以服务端为准，修改 slug 需走 rename 接口。
func (h *PortfolioHandler) UpdatePortfolio(c *gin.Context) {
	var req updatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	model, ok := h.portfolioForUser(c)
	if !ok {
		return
	}

	doc, err := portfolio.Decode(req.Document)
	if err != nil {
		BadRequest(c, "invalid document")
		return
	}
	h.save(c, model, doc, req.Title)
}

// DeletePortfolio 软删除作品集并清理导出文件。
func (h *PortfolioHandler) DeletePortfolio(c *gin.Context) {
	model, ok := h.portfolioForUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.store.DeletePortfolio(ctx, model); err != nil {
		Internal(c, "failed to delete portfolio")
		return
	}

	if h.objects != nil {
		prefix := storage.ExportPrefix(model.UserID, model.PublicID)
		if err := h.objects.DeletePrefix(ctx, prefix); err != nil {
			middleware.LoggerFromContext(c).Warn("cleanup export objects failed",
				slog.String("prefix", prefix),
				slog.Any("error", err),
			)
		}
	}

	c.Status(http.StatusNoContent)
}

// RenameSlug 按新文本重新分配 slug，冲突时自动追加后缀。
func (h *PortfolioHandler) RenameSlug(c *gin.Context) {
	var req renameSlugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	model, ok := h.portfolioForUser(c)
	if !ok {
		return
	}

	if err := h.store.RenameSlug(c.Request.Context(), model, req.Slug); err != nil {
		h.writeStoreError(c, err, "failed to rename slug")
		return
	}
	c.JSON(http.StatusOK, newPortfolioResponse(model))
}

// UpdateTheme 切换主题并替换文档级覆盖。
func (h *PortfolioHandler) UpdateTheme(c *gin.Context) {
	var req updateThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	model, doc, ok := h.documentForUser(c)
	if !ok {
		return
	}

	if req.ThemeID != "" {
		doc.ThemeID = req.ThemeID
	}
	doc.ThemeOverrides = req.Overrides
	h.save(c, model, doc, "")
}

// AddSection 追加一个 section，可选插入位置。
func (h *PortfolioHandler) AddSection(c *gin.Context) {
	var req addSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	data, ok := decodeSectionData(c, portfolio.Kind(req.Type), req.Data)
	if !ok {
		return
	}

	model, doc, ok := h.documentForUser(c)
	if !ok {
		return
	}

	s := portfolio.NewSection(data)
	if req.Visible != nil {
		s.Visible = *req.Visible
	}
	s.StyleOverrides = req.StyleOverrides
	added := doc.AddSection(s)
	if req.Index != nil {
		if err := doc.MoveSection(added.ID, *req.Index); err != nil {
			Internal(c, "failed to place section")
			return
		}
	}
	h.save(c, model, doc, "")
}

// UpdateSection 替换 section 负载与样式覆盖。
func (h *PortfolioHandler) UpdateSection(c *gin.Context) {
	var req updateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	model, doc, ok := h.documentForUser(c)
	if !ok {
		return
	}
	id := portfolio.ID(c.Param("sid"))
	current, found := doc.Section(id)
	if !found {
		NotFound(c, "section not found")
		return
	}

	var data portfolio.Data
	if len(req.Data) > 0 {
		data, ok = decodeSectionData(c, current.Type, req.Data)
		if !ok {
			return
		}
	}
	if err := doc.UpdateSection(id, data, req.StyleOverrides); err != nil {
		writeSectionError(c, err)
		return
	}
	h.save(c, model, doc, "")
}

// MoveSection 调整 section 位置。
func (h *PortfolioHandler) MoveSection(c *gin.Context) {
	var req moveSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	model, doc, ok := h.documentForUser(c)
	if !ok {
		return
	}
	if err := h.renderer.MoveSection(doc, portfolio.ID(c.Param("sid")), *req.Index); err != nil {
		writeSectionError(c, err)
		return
	}
	h.save(c, model, doc, "")
}

// SetSectionVisibility 显示或隐藏 section。
func (h *PortfolioHandler) SetSectionVisibility(c *gin.Context) {
	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	model, doc, ok := h.documentForUser(c)
	if !ok {
		return
	}
	if err := doc.SetVisible(portfolio.ID(c.Param("sid")), *req.Visible); err != nil {
		writeSectionError(c, err)
		return
	}
	h.save(c, model, doc, "")
}

// RemoveSection 删除 section。
func (h *PortfolioHandler) RemoveSection(c *gin.Context) {
	model, doc, ok := h.documentForUser(c)
	if !ok {
		return
	}
	if err := doc.RemoveSection(portfolio.ID(c.Param("sid"))); err != nil {
		writeSectionError(c, err)
		return
	}
	h.save(c, model, doc, "")
}

// Preview 渲染指定视口的预览，format=html 时返回独立页面。
func (h *PortfolioHandler) Preview(c *gin.Context) {
	vp, ok := viewportFromQuery(c)
	if !ok {
		return
	}
	_, doc, ok := h.documentForUser(c)
	if !ok {
		return
	}
	h.writePreview(c, doc, vp, c.Query("format") == "html")
}

// PublicPreview 通过 slug 公开访问作品集，默认返回 HTML。
func (h *PortfolioHandler) PublicPreview(c *gin.Context) {
	vp, ok := viewportFromQuery(c)
	if !ok {
		return
	}

	model, err := h.store.GetPortfolioBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			NotFound(c, "portfolio not found")
			return
		}
		Internal(c, "failed to query portfolio")
		return
	}
	doc, err := model.Document()
	if err != nil {
		Internal(c, "failed to decode portfolio")
		return
	}
	h.writePreview(c, doc, vp, c.Query("format") != "json")
}

// Theme 返回文档解析后的主题变量，format=css 时返回样式表。
func (h *PortfolioHandler) Theme(c *gin.Context) {
	_, doc, ok := h.documentForUser(c)
	if !ok {
		return
	}

	resolved := h.renderer.Engine().Resolve(doc.ThemeID, doc.ThemeOverrides)
	if c.Query("format") == "css" {
		c.Data(http.StatusOK, "text/css; charset=utf-8", []byte(resolved.CSS()))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"theme_id":    resolved.ThemeID,
		"tokens":      resolved.Tokens,
		"vars":        resolved.Vars(),
		"diagnostics": resolved.Diagnostics,
	})
}

// Export 将导出任务入队并立即返回 202，每用户每小时限流。
func (h *PortfolioHandler) Export(c *gin.Context) {
	model, ok := h.portfolioForUser(c)
	if !ok {
		return
	}
	if h.queue == nil {
		Internal(c, "export queue is not configured")
		return
	}

	ctx := c.Request.Context()
	if h.counter != nil && h.export.RateLimitPerHour > 0 {
		key := fmt.Sprintf("export_rate:%d", model.UserID)
		allowed, err := allowInWindow(ctx, h.counter, key, h.export.RateLimitPerHour, time.Hour)
		if err != nil {
			middleware.LoggerFromContext(c).Error("check export rate failed", slog.Any("error", err))
			Internal(c, "failed to check export rate")
			return
		}
		if !allowed {
			metrics.ObserveExport("limited")
			TooManyRequests(c, "export rate limit exceeded")
			return
		}
	}

	task, err := tasks.NewPortfolioExportTask(model.ID, model.UserID, middleware.GetCorrelationID(c))
	if err != nil {
		Internal(c, "failed to create task")
		return
	}

	opts := []asynq.Option{}
	if h.export.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(h.export.MaxRetry))
	}
	info, err := h.queue.EnqueueContext(ctx, task, opts...)
	if err != nil {
		middleware.LoggerFromContext(c).Error("enqueue export failed", slog.Any("error", err))
		Internal(c, "failed to enqueue export")
		return
	}
	metrics.ObserveExport("enqueued")

	c.JSON(http.StatusAccepted, gin.H{
		"message": "export request accepted",
		"task_id": info.ID,
	})
}

// ExportLink 生成最近一次导出包的预签名下载链接，format=pdf 时返回 PDF。
func (h *PortfolioHandler) ExportLink(c *gin.Context) {
	model, ok := h.portfolioForUser(c)
	if !ok {
		return
	}

	key, filename := model.ExportKey, model.Slug+".json"
	if c.Query("format") == "pdf" {
		key, filename = model.PDFKey, model.Slug+".pdf"
	}

	if key == "" {
		Conflict(c, "export not ready")
		return
	}
	if !storage.OwnsKey(model.UserID, key) {
		Forbidden(c, "access denied")
		return
	}
	if h.objects == nil {
		Internal(c, "object storage is not configured")
		return
	}

	signedURL, err := h.objects.PresignGet(c.Request.Context(), key, h.export.PresignTTL, filename)
	if err != nil {
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL, "status": model.Status})
}

func (h *PortfolioHandler) writePreview(c *gin.Context, doc *portfolio.Document, vp render.Viewport, asHTML bool) {
	preview := h.renderer.Preview(doc, vp)
	metrics.ObservePreview(string(vp), render.CountPlaceholders(preview.Nodes), len(preview.Diagnostics))

	if !asHTML {
		c.JSON(http.StatusOK, preview)
		return
	}
	page, err := render.HTML(preview)
	if err != nil {
		Internal(c, "failed to render preview")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func (h *PortfolioHandler) ensureCapacity(c *gin.Context, userID uint) bool {
	if h.maxPortfolios <= 0 {
		return true
	}
	items, err := h.store.ListPortfolios(c.Request.Context(), userID)
	if err != nil {
		Internal(c, "failed to count portfolios")
		return false
	}
	if len(items) >= h.maxPortfolios {
		Forbidden(c, "portfolio limit reached")
		return false
	}
	return true
}

func (h *PortfolioHandler) portfolioForUser(c *gin.Context) (*database.Portfolio, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		AbortUnauthorized(c)
		return nil, false
	}

	id, err := portfolio.ParseID(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid portfolio id")
		return nil, false
	}

	model, err := h.store.GetPortfolio(c.Request.Context(), userID, string(id))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			NotFound(c, "portfolio not found")
			return nil, false
		}
		Internal(c, "failed to query portfolio")
		return nil, false
	}
	return model, true
}

func (h *PortfolioHandler) documentForUser(c *gin.Context) (*database.Portfolio, *portfolio.Document, bool) {
	model, ok := h.portfolioForUser(c)
	if !ok {
		return nil, nil, false
	}
	doc, err := model.Document()
	if err != nil {
		Internal(c, "failed to decode portfolio")
		return nil, nil, false
	}
	return model, doc, true
}

// save 校验并写回文档，成功时返回最新的作品集。
func (h *PortfolioHandler) save(c *gin.Context, model *database.Portfolio, doc *portfolio.Document, title string) {
	doc.ID = portfolio.ID(model.PublicID)
	doc.Slug = model.Slug
	// 客户端提交的 order 可能重复或有空洞，落库前统一重排为 0..n-1。
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		Unprocessable(c, err.Error())
		return
	}
	if err := h.store.SaveDocument(c.Request.Context(), model, doc, title); err != nil {
		Internal(c, "failed to save portfolio")
		return
	}
	c.JSON(http.StatusOK, newPortfolioResponse(model))
}

func (h *PortfolioHandler) writeStoreError(c *gin.Context, err error, msg string) {
	if errors.Is(err, database.ErrSlugConflict) {
		Conflict(c, "slug is busy, try again")
		return
	}
	middleware.LoggerFromContext(c).Error(msg, slog.Any("error", err))
	Internal(c, msg)
}

// decodeSectionData 解码请求中的负载；未知类型与结构不符的负载在入口处拒绝。
func decodeSectionData(c *gin.Context, kind portfolio.Kind, raw json.RawMessage) (portfolio.Data, bool) {
	data := portfolio.DecodeData(kind, raw)
	if rd, ok := data.(portfolio.RawData); ok {
		if rd.Malformed() {
			ErrorCode(c, http.StatusUnprocessableEntity, errcode.MalformedSection,
				fmt.Sprintf("section %q could not be read: %s", kind, rd.Problem))
			return nil, false
		}
		ErrorCode(c, http.StatusUnprocessableEntity, errcode.UnknownSection,
			fmt.Sprintf("section type %q is not supported", kind))
		return nil, false
	}
	return data, true
}

func writeSectionError(c *gin.Context, err error) {
	if errors.Is(err, portfolio.ErrSectionNotFound) {
		NotFound(c, "section not found")
		return
	}
	Internal(c, "failed to update section")
}

func viewportFromQuery(c *gin.Context) (render.Viewport, bool) {
	raw := c.Query("viewport")
	if raw == "" {
		return render.Desktop, true
	}
	vp, ok := render.ParseViewport(raw)
	if !ok {
		BadRequest(c, "invalid viewport")
		return "", false
	}
	return vp, true
}

// validateWithSlug 在 slug 尚未分配时用规范化后的候选值校验文档。
func validateWithSlug(doc *portfolio.Document, text string) error {
	probe := *doc
	probe.Slug = slug.Normalize(text)
	if probe.Slug == "" {
		probe.Slug = "draft"
	}
	return probe.Validate()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func newPortfolioListItem(p *database.Portfolio) portfolioListItem {
	return portfolioListItem{
		ID:         p.PublicID,
		Slug:       p.Slug,
		Title:      p.Title,
		ThemeID:    p.ThemeID,
		Status:     p.Status,
		PreviewKey: p.PreviewImageURL,
		UpdatedAt:  p.UpdatedAt,
	}
}

func newPortfolioResponse(p *database.Portfolio) portfolioResponse {
	return portfolioResponse{
		portfolioListItem: newPortfolioListItem(p),
		Document:          json.RawMessage(p.Content),
		CreatedAt:         p.CreatedAt,
	}
}
