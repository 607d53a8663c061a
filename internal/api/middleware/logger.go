package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

const requestLoggerKey = "requestLogger"

// quietPaths 成功时不写访问日志，探针与抓取请求过于频繁。
var quietPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// RequestLogger 为每个请求派生带 correlation_id 的 logger 并放入上下文，请求结束后写一条访问日志。
// 5xx 记 Error，4xx 记 Warn，其余记 Info。
func RequestLogger(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		began := time.Now()
		reqLog := base.With(
			slog.String("correlation_id", GetCorrelationID(c)),
			slog.String("method", c.Request.Method),
			slog.String("uri", c.Request.URL.Path),
		)
		c.Set(requestLoggerKey, reqLog)

		c.Next()

		status := c.Writer.Status()
		if _, quiet := quietPaths[c.Request.URL.Path]; quiet && status < 400 {
			return
		}

		attrs := []slog.Attr{
			slog.String("route", c.FullPath()),
			slog.Int("status", status),
			slog.Duration("took", time.Since(began)),
			slog.Int("bytes", c.Writer.Size()),
		}
		if uid, ok := UserID(c); ok {
			attrs = append(attrs, slog.Uint64("user_id", uint64(uid)))
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			attrs = append(attrs, slog.String("errors", errs.String()))
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		reqLog.LogAttrs(c.Request.Context(), level, "http request", attrs...)
	}
}

// LoggerFromContext 取出 RequestLogger 注入的 logger，没有时回退到 slog.Default()。
func LoggerFromContext(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(requestLoggerKey); ok {
		if l, ok := v.(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}
