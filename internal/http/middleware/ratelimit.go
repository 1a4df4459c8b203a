package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/campus-backend/internal/platform/ctxutil"
	"github.com/yungbote/campus-backend/internal/platform/ratelimiter"
)

// RateLimit throttles per authenticated user, or per client IP before auth.
// A nil limiter disables throttling.
func RateLimit(l *ratelimiter.MapLimiter, now func() time.Time) gin.HandlerFunc {
	if l == nil {
		return func(c *gin.Context) { c.Next() }
	}
	if now == nil {
		now = time.Now
	}
	return func(c *gin.Context) {
		if l.Allow(clientKey(c), now()) {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": gin.H{"message": "rate limit exceeded", "code": "rate_limited"},
		})
	}
}

func clientKey(c *gin.Context) string {
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
		return "user:" + rd.UserID.String()
	}
	return "ip:" + c.ClientIP()
}
