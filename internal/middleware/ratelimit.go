package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/dailypen/internal/pkg/errcode"
	"github.com/xxxsen/dailypen/internal/pkg/response"
)

// Limiter counts hits per key and reports whether the current one is within budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit rejects requests over budget for the (client ip, user, route) key with 429.
// The user part is only known when JWTAuth ran earlier in the chain. Limiter backend
// errors let the request through.
func RateLimit(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		ip := c.ClientIP()
		uid := "0"
		if v, ok := c.Get(ContextUserIDKey); ok {
			if id, ok := v.(string); ok && id != "" {
				uid = id
			}
		}
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		key := strings.Join([]string{ip, uid, path}, "|")

		ctx := c.Request.Context()
		ok, err := limiter.Allow(ctx, key)
		if err != nil {
			logutil.GetLogger(ctx).Warn("rate limiter unavailable",
				zap.String("key", key),
				zap.Error(err),
			)
			c.Next()
			return
		}
		if !ok {
			logutil.GetLogger(ctx).Warn("rate limit hit",
				zap.String("ip", ip),
				zap.String("user_id", uid),
				zap.String("path", path),
			)
			response.Error(c, http.StatusTooManyRequests, errcode.ErrTooMany, "too many requests, please try again later")
			c.Abort()
			return
		}
		c.Next()
	}
}
