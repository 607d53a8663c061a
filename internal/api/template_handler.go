package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"phFolio/internal/api/middleware"
	"phFolio/internal/database"
	"phFolio/internal/portfolio"
	"phFolio/internal/render"
	"phFolio/internal/tasks"
)

// templatePreviewTTL 是模板缩略图预签名链接的有效期。
const templatePreviewTTL = 24 * time.Hour

// TemplateHandler 负责模板相关的 API。
type TemplateHandler struct {
	store      *database.Store
	queue      TaskEnqueuer
	objects    ObjectStorage
	portfolios *PortfolioHandler
}

func NewTemplateHandler(store *database.Store, queue TaskEnqueuer, objects ObjectStorage, portfolios *PortfolioHandler) *TemplateHandler {
	return &TemplateHandler{store: store, queue: queue, objects: objects, portfolios: portfolios}
}

type createTemplateRequest struct {
	Title       string `json:"title" binding:"required"`
	PortfolioID string `json:"portfolio_id" binding:"required"`
	// 目前创建默认私有，公开模板由管理工具导入
}

type instantiateRequest struct {
	Title string `json:"title"`
}

type templateListItem struct {
	ID              uint   `json:"id"`
	Slug            string `json:"slug"`
	Title           string `json:"title"`
	IsPublic        bool   `json:"is_public"`
	PreviewImageURL string `json:"preview_image_url,omitempty"`
}

type templateDetailResponse struct {
	templateListItem
	Document json.RawMessage `json:"document"`
}

// POST /v1/templates
// 从自己的作品集创建模板：默认私有，Owner 为当前用户，随后异步生成缩略图。
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req createTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	id, err := portfolio.ParseID(req.PortfolioID)
	if err != nil {
		BadRequest(c, "invalid portfolio id")
		return
	}

	ctx := c.Request.Context()
	source, err := h.store.GetPortfolio(ctx, userID, string(id))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			NotFound(c, "portfolio not found")
			return
		}
		Internal(c, "failed to query portfolio")
		return
	}
	doc, err := source.Document()
	if err != nil {
		Internal(c, "failed to decode portfolio")
		return
	}
	fork, err := doc.Fork()
	if err != nil {
		Internal(c, "failed to copy portfolio")
		return
	}

	model, err := h.store.CreateTemplate(ctx, userID, req.Title, fork, false)
	if err != nil {
		if errors.Is(err, database.ErrSlugConflict) {
			Conflict(c, "slug is busy, try again")
			return
		}
		Internal(c, "failed to create template")
		return
	}

	if h.queue != nil {
		task, err := tasks.NewTemplatePreviewTask(model.ID, userID, string(render.Desktop), middleware.GetCorrelationID(c))
		if err == nil {
			_, err = h.queue.EnqueueContext(ctx, task)
		}
		if err != nil {
			middleware.LoggerFromContext(c).Warn("enqueue template preview failed", slog.Any("error", err))
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":    model.ID,
		"slug":  model.Slug,
		"title": model.Title,
	})
}

// GET /v1/templates
// 列表：返回当前用户模板 ∪ 所有公开模板。
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	templates, err := h.store.ListTemplates(c.Request.Context(), userID)
	if err != nil {
		Internal(c, "failed to list templates")
		return
	}

	items := make([]templateListItem, 0, len(templates))
	for i := range templates {
		items = append(items, h.listItem(c, &templates[i]))
	}
	c.JSON(http.StatusOK, items)
}

// GET /v1/templates/:id
// 详情：允许 Owner 访问，或公开模板允许任何已登录用户访问。
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	model, ok := h.templateForUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, templateDetailResponse{
		templateListItem: h.listItem(c, model),
		Document:         json.RawMessage(model.Content),
	})
}

// POST /v1/templates/:id/instantiate
// 以模板为起点创建新的作品集，section 重新生成 id。
func (h *TemplateHandler) Instantiate(c *gin.Context) {
	var req instantiateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(c, err.Error())
		return
	}

	model, ok := h.templateForUser(c)
	if !ok {
		return
	}
	userID, _ := middleware.UserID(c)
	if !h.portfolios.ensureCapacity(c, userID) {
		return
	}

	doc, err := model.Document()
	if err != nil {
		Internal(c, "failed to decode template")
		return
	}
	fork, err := doc.Fork()
	if err != nil {
		Internal(c, "failed to copy template")
		return
	}

	title := firstNonEmpty(req.Title, model.Title)
	created, err := h.store.CreatePortfolio(c.Request.Context(), userID, title, fork)
	if err != nil {
		h.portfolios.writeStoreError(c, err, "failed to create portfolio")
		return
	}
	c.JSON(http.StatusCreated, newPortfolioResponse(created))
}

func (h *TemplateHandler) templateForUser(c *gin.Context) (*database.Template, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		AbortUnauthorized(c)
		return nil, false
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "invalid template id")
		return nil, false
	}

	model, err := h.store.GetTemplate(c.Request.Context(), userID, uint(id))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			NotFound(c, "template not found")
			return nil, false
		}
		Internal(c, "failed to query template")
		return nil, false
	}
	return model, true
}

// listItem 将缩略图对象 key 转为预签名链接，失败时省略。
func (h *TemplateHandler) listItem(c *gin.Context, t *database.Template) templateListItem {
	item := templateListItem{
		ID:       t.ID,
		Slug:     t.Slug,
		Title:    t.Title,
		IsPublic: t.IsPublic,
	}
	if t.PreviewImageURL == "" || h.objects == nil {
		return item
	}
	url, err := h.objects.PresignGet(c.Request.Context(), t.PreviewImageURL, templatePreviewTTL, "")
	if err != nil {
		middleware.LoggerFromContext(c).Warn("presign template preview failed", slog.Any("error", err))
		return item
	}
	item.PreviewImageURL = url
	return item
}
