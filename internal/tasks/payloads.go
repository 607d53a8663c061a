package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypePortfolioExport = "portfolio:export"
	TypeTemplatePreview = "template:preview"
)

// PortfolioExportPayload 描述导出作品集所需的最小信息。
type PortfolioExportPayload struct {
	PortfolioID   uint   `json:"portfolio_id"`
	UserID        uint   `json:"user_id"`
	CorrelationID string `json:"correlation_id"`
}

// TemplatePreviewPayload 描述生成模板缩略图所需的信息。
type TemplatePreviewPayload struct {
	TemplateID    uint   `json:"template_id"`
	UserID        uint   `json:"user_id"`
	Viewport      string `json:"viewport,omitempty"`
	CorrelationID string `json:"correlation_id"`
}

// NewPortfolioExportTask 构造一个作品集导出任务。
func NewPortfolioExportTask(portfolioID, userID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(PortfolioExportPayload{
		PortfolioID:   portfolioID,
		UserID:        userID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePortfolioExport, payload), nil
}

// NewTemplatePreviewTask 构造一个模板缩略图任务。
func NewTemplatePreviewTask(templateID, userID uint, viewport, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(TemplatePreviewPayload{
		TemplateID:    templateID,
		UserID:        userID,
		Viewport:      viewport,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTemplatePreview, payload), nil
}

// Decode 解析任务负载，失败时返回包装了 asynq.SkipRetry 的错误，格式错误的任务不再重试。
func Decode[T any](task *asynq.Task) (T, error) {
	var payload T
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decode %s payload: %v: %w", task.Type(), err, asynq.SkipRetry)
	}
	return payload, nil
}

// NotifyChannel 返回用户的 Redis 通知频道，worker 发布、API 的 WebSocket 订阅。
func NotifyChannel(userID uint) string {
	return fmt.Sprintf("user_notify:%d", userID)
}
