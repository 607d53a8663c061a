package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// unmatchedRoute 是未命中任何路由时使用的 path 标签。
const unmatchedRoute = "unmatched"

var httpLabels = []string{"method", "path", "status"}

var (
	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phfolio",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "按路由模板与状态码统计的请求数。",
	}, httpLabels)

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "phfolio",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "请求处理耗时（秒）。",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, httpLabels)

	responseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "phfolio",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "响应体大小（字节），预览 HTML 与主题 CSS 是主要来源。",
		Buckets:   prometheus.ExponentialBuckets(256, 4, 7),
	}, []string{"path"})

	inFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "phfolio",
		Subsystem: "http",
		Name:      "in_flight_requests",
		Help:      "正在处理中的请求数。",
	})
)

// GinMiddleware 记录每个请求的次数、耗时与响应大小。path 使用路由模板而不是原始 URL。
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		inFlight.Inc()
		defer inFlight.Dec()
		began := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		values := []string{c.Request.Method, route, strconv.Itoa(c.Writer.Status())}
		requestTotal.WithLabelValues(values...).Inc()
		requestDuration.WithLabelValues(values...).Observe(time.Since(began).Seconds())
		if size := c.Writer.Size(); size > 0 {
			responseSize.WithLabelValues(route).Observe(float64(size))
		}
	}
}
