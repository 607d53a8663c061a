package metrics

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObservePreview(t *testing.T) {
	before := testutil.ToFloat64(placeholdersTotal.WithLabelValues("tablet"))
	ObservePreview("tablet", 2, 0)
	ObservePreview("tablet", 0, 1)

	assert.Equal(t, before+2, testutil.ToFloat64(placeholdersTotal.WithLabelValues("tablet")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(previewsTotal.WithLabelValues("tablet")), 2.0)
}

func TestGinMiddlewareLabelsUnmatched(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/ok", "/random/1", "/random/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(requestTotal.WithLabelValues(http.MethodGet, "/ok", "200")))
	assert.Equal(t, 2.0, testutil.ToFloat64(requestTotal.WithLabelValues(http.MethodGet, "unmatched", "404")))
}

func TestAsynqMiddlewareOutcome(t *testing.T) {
	handler := AsynqMetricsMiddleware()(asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		if string(task.Payload()) == "bad" {
			return fmt.Errorf("decode: %w", asynq.SkipRetry)
		}
		return nil
	}))

	_ = handler.ProcessTask(context.Background(), asynq.NewTask("test:metrics", []byte("ok")))
	_ = handler.ProcessTask(context.Background(), asynq.NewTask("test:metrics", []byte("bad")))

	assert.Equal(t, 1.0, testutil.ToFloat64(taskProcessedTotal.WithLabelValues("test:metrics", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(taskProcessedTotal.WithLabelValues("test:metrics", "skipped")))
	assert.Equal(t, 0.0, testutil.ToFloat64(taskInProgress.WithLabelValues("test:metrics")))
}

func TestClassifyWithoutRetryMetadata(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "ok", classify(ctx, nil))
	assert.Equal(t, "skipped", classify(ctx, fmt.Errorf("wrap: %w", asynq.SkipRetry)))
	assert.Equal(t, "retry", classify(ctx, fmt.Errorf("boom")))
}
