package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	taskProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phfolio",
			Subsystem: "asynq",
			Name:      "tasks_processed_total",
			Help:      "任务处理总数，按 outcome 区分。",
		},
		[]string{"task_type", "outcome"},
	)

	taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "phfolio",
			Subsystem: "asynq",
			Name:      "task_duration_seconds",
			Help:      "任务处理耗时（秒）。",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"task_type"},
	)

	taskInProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "phfolio",
			Subsystem: "asynq",
			Name:      "tasks_in_progress",
			Help:      "当前正在处理的任务数量。",
		},
		[]string{"task_type"},
	)
)

// AsynqMetricsMiddleware 按任务类型统计处理次数、耗时与并发数。
// outcome 取值 ok、retry、skipped 与 failed，failed 表示最后一次重试仍然失败。
func AsynqMetricsMiddleware() asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			kind := task.Type()
			gauge := taskInProgress.WithLabelValues(kind)
			gauge.Inc()
			defer gauge.Dec()

			began := time.Now()
			err := next.ProcessTask(ctx, task)
			taskDuration.WithLabelValues(kind).Observe(time.Since(began).Seconds())
			taskProcessedTotal.WithLabelValues(kind, classify(ctx, err)).Inc()
			return err
		})
	}
}

func classify(ctx context.Context, err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, asynq.SkipRetry) {
		return "skipped"
	}
	retried, ok1 := asynq.GetRetryCount(ctx)
	limit, ok2 := asynq.GetMaxRetry(ctx)
	if ok1 && ok2 && retried >= limit {
		return "failed"
	}
	return "retry"
}
