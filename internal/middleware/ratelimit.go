package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/dumeirei/edu-backoffice/internal/common/response"
)

// KindRateLimited 限流响应的错误类别
const KindRateLimited = "rate_limited"

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	RedisClient *redis.Client
	KeyPrefix   string
	Limit       int
	Window      time.Duration
	// KeyFunc 自定义限流键，默认使用客户端 IP
	KeyFunc func(*gin.Context) string
	// Methods 只对这些方法限流，为空时全部限流
	Methods []string
}

// WriteRateLimit 写接口按 IP 固定窗口限流
func WriteRateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return RateLimit(&RateLimitConfig{
		RedisClient: rdb,
		KeyPrefix:   "ratelimit:write:",
		Limit:       limit,
		Window:      window,
		Methods:     []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
	})
}

// RateLimit 限流中间件，Redis 不可用时放行
func RateLimit(config *RateLimitConfig) gin.HandlerFunc {
	methods := make(map[string]struct{}, len(config.Methods))
	for _, m := range config.Methods {
		methods[m] = struct{}{}
	}

	return func(c *gin.Context) {
		if len(methods) > 0 {
			if _, ok := methods[c.Request.Method]; !ok {
				c.Next()
				return
			}
		}

		var key string
		if config.KeyFunc != nil {
			key = config.KeyPrefix + config.KeyFunc(c)
		} else {
			key = config.KeyPrefix + c.ClientIP()
		}

		ctx := c.Request.Context()
		count, err := config.RedisClient.Incr(ctx, key).Result()
		if err != nil {
			c.Next()
			return
		}
		// 首次请求设置过期时间
		if count == 1 {
			config.RedisClient.Expire(ctx, key, config.Window)
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", config.Limit))
		if int(count) > config.Limit {
			ttl, _ := config.RedisClient.TTL(ctx, key).Result()
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
			response.Error(c, http.StatusTooManyRequests, 429, KindRateLimited, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", config.Limit-int(count)))
		c.Next()
	}
}
