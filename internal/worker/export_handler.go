package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"phFolio/internal/database"
	"phFolio/internal/errcode"
	"phFolio/internal/metrics"
	"phFolio/internal/render"
	"phFolio/internal/storage"
	"phFolio/internal/tasks"
)

// BundleVersion 是导出包格式版本。
const BundleVersion = 1

// PortfolioStore 是导出任务需要的持久化能力，*database.Store 满足该接口。
type PortfolioStore interface {
	GetPortfolioByID(ctx context.Context, id uint) (*database.Portfolio, error)
	SetExportStatus(ctx context.Context, id uint, status, key string) error
	SetPortfolioPreview(ctx context.Context, id uint, key string) error
	SetPortfolioPDF(ctx context.Context, id uint, key string) error
}

// ObjectWriter 是对象存储的写入能力，*storage.Client 满足该接口。
type ObjectWriter interface {
	PutBytes(ctx context.Context, objectName string, data []byte, contentType string) error
}

// ExportBundle 是上传到对象存储的导出包。
type ExportBundle struct {
	Version     int             `json:"version"`
	PortfolioID string          `json:"portfolioId"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	ExportedAt  time.Time       `json:"exportedAt"`
	Document    json.RawMessage `json:"document"`
	Views       []ExportView    `json:"views"`
}

// ExportView 是单个视口的渲染结果。
type ExportView struct {
	render.Preview
	HTML string `json:"html"`
}

// ExportTaskHandler 负责消费作品集导出任务。
type ExportTaskHandler struct {
	store     PortfolioStore
	objects   ObjectWriter
	renderer  *render.Renderer
	capturer  Capturer
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewExportTaskHandler 创建任务处理器。capturer 为 nil 时不生成缩略图。
func NewExportTaskHandler(
	store PortfolioStore,
	objects ObjectWriter,
	renderer *render.Renderer,
	capturer Capturer,
	publisher Publisher,
	logger *slog.Logger,
) *ExportTaskHandler {
	if renderer == nil {
		renderer = render.NewRenderer(nil)
	}
	return &ExportTaskHandler{
		store:     store,
		objects:   objects,
		renderer:  renderer,
		capturer:  capturer,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ExportTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	payload, err := tasks.Decode[tasks.PortfolioExportPayload](t)
	if err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Int("portfolio_id", int(payload.PortfolioID)),
	)
	log.Info("Starting portfolio export task...")

	model, err := h.store.GetPortfolioByID(ctx, payload.PortfolioID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			log.Warn("portfolio not found, skipping task")
			return nil
		}
		log.Error("query portfolio failed", slog.Any("error", err))
		return err
	}
	if payload.UserID != 0 && model.UserID != payload.UserID {
		log.Warn("portfolio owner mismatch, skipping task", slog.Uint64("payload_user_id", uint64(payload.UserID)))
		return nil
	}

	log = log.With(slog.Uint64("user_id", uint64(model.UserID)))

	defer func() {
		if retErr == nil {
			return
		}
		if !errors.Is(retErr, asynq.SkipRetry) && !isFinalAsynqAttempt(ctx) {
			return
		}

		metrics.ObserveExport("failed")
		if err := h.store.SetExportStatus(ctx, model.ID, database.StatusFailed, ""); err != nil {
			log.Error("mark export failed", slog.Any("error", err))
		}
		notify := NotifyMessage{
			Type:          NotifyExport,
			Status:        StatusError,
			PortfolioID:   model.PublicID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := publishNotify(ctx, h.publisher, model.UserID, notify); err != nil {
			log.Error("publish export error notification failed", slog.Any("error", err))
		}
	}()

	if err := h.store.SetExportStatus(ctx, model.ID, database.StatusExporting, ""); err != nil {
		log.Error("mark export started failed", slog.Any("error", err))
		return err
	}

	bundle, err := h.buildBundle(model)
	if err != nil {
		log.Error("build export bundle failed", slog.Any("error", err))
		return err
	}
	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("marshal export bundle: %w", err)
	}

	objectName := storage.NewExportKey(model.UserID, model.PublicID)
	if err := h.objects.PutBytes(ctx, objectName, data, "application/json"); err != nil {
		log.Error("upload export bundle failed", slog.Any("error", err))
		return err
	}

	if err := h.store.SetExportStatus(ctx, model.ID, database.StatusExported, objectName); err != nil {
		log.Error("update portfolio failed", slog.Any("error", err))
		return err
	}

	if err := h.generatePreviewImage(ctx, model, bundle); err != nil {
		log.Warn("generate portfolio preview failed", slog.Any("error", err))
	}
	if err := h.generatePDF(ctx, model, bundle); err != nil {
		log.Warn("generate portfolio pdf failed", slog.Any("error", err))
	}

	desktop := bundle.Views[len(bundle.Views)-1]
	notify := NotifyMessage{
		Type:          NotifyExport,
		Status:        StatusCompleted,
		PortfolioID:   model.PublicID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
		Placeholders:  render.CountPlaceholders(desktop.Nodes),
	}
	if code, ok := firstDiagnostic(desktop.Nodes); ok {
		notify.ErrorCode = code
		notify.ErrorMessage = "部分 section 无法渲染，已以占位块导出"
		log.Warn("portfolio exported with placeholders", slog.Int("placeholders", notify.Placeholders))
	}
	if err := publishNotify(ctx, h.publisher, model.UserID, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
	}

	metrics.ObserveExport("succeeded")
	log.Info("Portfolio export task completed successfully.", slog.String("object", objectName))
	return nil
}

// buildBundle 依次渲染全部视口。文档无法解码时不再重试。
func (h *ExportTaskHandler) buildBundle(model *database.Portfolio) (*ExportBundle, error) {
	doc, err := model.Document()
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	bundle := &ExportBundle{
		Version:     BundleVersion,
		PortfolioID: model.PublicID,
		Slug:        model.Slug,
		Title:       model.Title,
		ExportedAt:  h.now().UTC(),
		Document:    json.RawMessage(model.Content),
	}
	for _, vp := range render.Viewports() {
		preview := h.renderer.Preview(doc, vp)
		html, err := render.HTML(preview)
		if err != nil {
			return nil, fmt.Errorf("render %s html: %w", vp, err)
		}
		bundle.Views = append(bundle.Views, ExportView{Preview: preview, HTML: html})
	}
	return bundle, nil
}

func (h *ExportTaskHandler) generatePreviewImage(ctx context.Context, model *database.Portfolio, bundle *ExportBundle) error {
	if h.capturer == nil {
		return nil
	}
	view := bundle.Views[len(bundle.Views)-1]

	previewBytes, err := h.capturer.Capture(ctx, view.HTML, view.Profile)
	if err != nil {
		return fmt.Errorf("capture preview screenshot: %w", err)
	}

	objectName := storage.NewPortfolioPreviewKey(model.UserID, model.PublicID)
	if err := h.objects.PutBytes(ctx, objectName, previewBytes, "image/jpeg"); err != nil {
		return fmt.Errorf("upload preview image: %w", err)
	}
	if err := h.store.SetPortfolioPreview(ctx, model.ID, objectName); err != nil {
		return fmt.Errorf("update portfolio preview: %w", err)
	}
	return nil
}

// generatePDF 在截图器支持打印时把桌面视图导出为 PDF。
func (h *ExportTaskHandler) generatePDF(ctx context.Context, model *database.Portfolio, bundle *ExportBundle) error {
	printer, ok := h.capturer.(Printer)
	if !ok {
		return nil
	}
	view := bundle.Views[len(bundle.Views)-1]

	pdfBytes, err := printer.PrintPDF(ctx, view.HTML, view.Profile)
	if err != nil {
		return fmt.Errorf("print pdf: %w", err)
	}

	objectName := storage.NewExportPDFKey(model.UserID, model.PublicID)
	if err := h.objects.PutBytes(ctx, objectName, pdfBytes, "application/pdf"); err != nil {
		return fmt.Errorf("upload pdf: %w", err)
	}
	if err := h.store.SetPortfolioPDF(ctx, model.ID, objectName); err != nil {
		return fmt.Errorf("update portfolio pdf: %w", err)
	}
	return nil
}

func firstDiagnostic(nodes []render.Node) (int, bool) {
	code, found := 0, false
	render.Walk(nodes, func(n render.Node) bool {
		if found {
			return false
		}
		if n.Diagnostic != nil {
			code, found = n.Diagnostic.Code, true
			return false
		}
		return true
	})
	return code, found
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
