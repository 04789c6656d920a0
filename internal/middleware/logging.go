package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dumeirei/edu-backoffice/internal/common/response"
)

// AccessLogConfig 访问日志配置
type AccessLogConfig struct {
	Logger *zap.Logger
	// SkipPrefixes 不记录的路径前缀
	SkipPrefixes []string
}

// DefaultAccessLogConfig 跳过探活、指标与文档路径
func DefaultAccessLogConfig(logger *zap.Logger) AccessLogConfig {
	return AccessLogConfig{
		Logger:       logger,
		SkipPrefixes: []string{"/health", "/ping", "/ready", "/metrics", "/swagger/"},
	}
}

// AccessLog 访问日志
//
// 路由按注册模板记录；错误响应附带信封里的错误类别。4xx 记为 warn，5xx 记为 error。
func AccessLog(cfg AccessLogConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range cfg.SkipPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", GetRequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if kind := response.KindOf(c); kind != "" {
			fields = append(fields, zap.String("error_kind", kind))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			log.Error("access", fields...)
		case status >= 400:
			log.Warn("access", fields...)
		default:
			log.Info("access", fields...)
		}
	}
}
