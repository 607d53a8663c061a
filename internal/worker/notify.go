package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"phFolio/internal/tasks"
)

// 通知类型与状态。
const (
	NotifyExport          = "export"
	NotifyTemplatePreview = "template_preview"

	StatusCompleted = "completed"
	StatusError     = "error"
)

// NotifyMessage 是通过 Redis Pub/Sub 转发给编辑器的统一消息。
// 注意：这里的字段名与前端解析保持一致。
type NotifyMessage struct {
	Type          string `json:"type"`
	Status        string `json:"status"`
	PortfolioID   string `json:"portfolio_id,omitempty"`
	TemplateID    uint   `json:"template_id,omitempty"`
	CorrelationID string `json:"correlation_id"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
	Placeholders  int    `json:"placeholders,omitempty"`
}

// Publisher 是 Redis 发布能力的最小接口，*redis.Client 满足该接口。
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

func publishNotify(ctx context.Context, pub Publisher, userID uint, msg NotifyMessage) error {
	if pub == nil {
		return nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := tasks.NotifyChannel(userID)
	if err := pub.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}
