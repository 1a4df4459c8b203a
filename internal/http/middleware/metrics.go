package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/campus-backend/internal/observability"
)

// Metrics records request count, latency and in-flight gauge. A nil *Metrics
// disables it.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		done := m.TrackInflight()
		start := time.Now()
		c.Next()
		done()
		m.ObserveAPI(c.Request.Method, observability.RouteLabel(c.FullPath()), c.Writer.Status(), time.Since(start))
	}
}
