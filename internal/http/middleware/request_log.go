package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/campus-backend/internal/platform/ctxutil"
	"github.com/yungbote/campus-backend/internal/platform/logger"
)

// RequestLogger writes one line per request. The last private gin error is
// attached to 5xx lines; RespondDomainError records it there.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx := c.Request.Context()
		kv := append([]interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}, ctxutil.LogFields(ctx)...)
		if rd := ctxutil.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
			kv = append(kv, "user_id", rd.UserID.String())
		}

		switch {
		case status >= 500:
			if last := c.Errors.ByType(gin.ErrorTypePrivate).Last(); last != nil {
				kv = append(kv, "error", last.Error())
			}
			log.Error("Request failed", kv...)
		case status >= 400:
			log.Warn("Request rejected", kv...)
		default:
			log.Debug("Request served", kv...)
		}
	}
}
