package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"phFolio/internal/database"
	"phFolio/internal/errcode"
	"phFolio/internal/render"
	"phFolio/internal/storage"
	"phFolio/internal/tasks"
)

// TemplateStore 是模板缩略图任务需要的持久化能力。
type TemplateStore interface {
	GetTemplateByID(ctx context.Context, id uint) (*database.Template, error)
	SetTemplatePreview(ctx context.Context, id uint, key string) error
}

// TemplatePreviewHandler 负责模板缩略图生成任务。
type TemplatePreviewHandler struct {
	store     TemplateStore
	objects   ObjectWriter
	renderer  *render.Renderer
	capturer  Capturer
	publisher Publisher
	logger    *slog.Logger
}

func NewTemplatePreviewHandler(
	store TemplateStore,
	objects ObjectWriter,
	renderer *render.Renderer,
	capturer Capturer,
	publisher Publisher,
	logger *slog.Logger,
) *TemplatePreviewHandler {
	if renderer == nil {
		renderer = render.NewRenderer(nil)
	}
	return &TemplatePreviewHandler{
		store:     store,
		objects:   objects,
		renderer:  renderer,
		capturer:  capturer,
		publisher: publisher,
		logger:    logger,
	}
}

func (h *TemplatePreviewHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	payload, err := tasks.Decode[tasks.TemplatePreviewPayload](t)
	if err != nil {
		log.Error("unmarshal template preview payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.Int("template_id", int(payload.TemplateID)),
		slog.String("correlation_id", payload.CorrelationID),
	)
	log.Info("Starting template preview generation task...")

	template, err := h.store.GetTemplateByID(ctx, payload.TemplateID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			log.Warn("template not found, skipping task")
			return nil
		}
		log.Error("query template failed", slog.Any("error", err))
		return err
	}

	defer func() {
		if retErr == nil || payload.UserID == 0 {
			return
		}
		if !errors.Is(retErr, asynq.SkipRetry) && !isFinalAsynqAttempt(ctx) {
			return
		}
		notify := NotifyMessage{
			Type:          NotifyTemplatePreview,
			Status:        StatusError,
			TemplateID:    template.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := publishNotify(ctx, h.publisher, payload.UserID, notify); err != nil {
			log.Error("publish template preview error notification failed", slog.Any("error", err))
		}
	}()

	if h.capturer == nil {
		return fmt.Errorf("template preview capturer not configured: %w", asynq.SkipRetry)
	}

	vp, ok := render.ParseViewport(payload.Viewport)
	if !ok {
		vp = render.Desktop
	}

	doc, err := template.Document()
	if err != nil {
		log.Error("decode template failed", slog.Any("error", err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	preview := h.renderer.Preview(doc, vp)
	html, err := render.HTML(preview)
	if err != nil {
		log.Error("render template html failed", slog.Any("error", err))
		return err
	}

	previewBytes, err := h.capturer.Capture(ctx, html, preview.Profile)
	if err != nil {
		log.Error("capture template screenshot failed", slog.Any("error", err))
		return err
	}

	objectName := storage.NewTemplatePreviewKey(template.ID, string(vp))
	if err := h.objects.PutBytes(ctx, objectName, previewBytes, "image/jpeg"); err != nil {
		log.Error("upload template preview failed", slog.Any("error", err))
		return err
	}

	if err := h.store.SetTemplatePreview(ctx, template.ID, objectName); err != nil {
		log.Error("update template preview failed", slog.Any("error", err))
		return err
	}

	if payload.UserID != 0 {
		notify := NotifyMessage{
			Type:          NotifyTemplatePreview,
			Status:        StatusCompleted,
			TemplateID:    template.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.OK,
			Placeholders:  render.CountPlaceholders(preview.Nodes),
		}
		if err := publishNotify(ctx, h.publisher, payload.UserID, notify); err != nil {
			log.Error("publish redis notification failed", slog.Any("error", err))
		}
	}

	log.Info("Template preview generation completed.")
	return nil
}
