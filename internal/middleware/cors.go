package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/edu-backoffice/internal/common/config"
)

// CORS 跨域中间件
//
// allowed_origins 为 ["*"] 时允许所有源；此时不能同时允许携带凭证。
func CORS(cfg *config.CORSConfig) gin.HandlerFunc {
	c := cors.DefaultConfig()
	if cfg == nil {
		c.AllowAllOrigins = true
		c.AddAllowHeaders(HeaderRequestID)
		c.AddExposeHeaders(HeaderRequestID)
		return cors.New(c)
	}

	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
		c.AllowCredentials = cfg.AllowCredentials
	}
	if len(cfg.AllowedMethods) > 0 {
		c.AllowMethods = cfg.AllowedMethods
	}
	if len(cfg.AllowedHeaders) > 0 {
		c.AllowHeaders = cfg.AllowedHeaders
	}
	c.ExposeHeaders = append(c.ExposeHeaders, cfg.ExposedHeaders...)
	if cfg.MaxAge > 0 {
		c.MaxAge = time.Duration(cfg.MaxAge) * time.Second
	}
	return cors.New(c)
}
