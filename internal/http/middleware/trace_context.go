package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/campus-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// TraceContext stamps every request with a trace id and a request id. The
// active otel span wins over a client-supplied trace header so log lines and
// exported spans agree.
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var spanTrace string
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			spanTrace = sc.TraceID().String()
		}
		td := &ctxutil.TraceData{
			TraceID:   firstNonEmpty(spanTrace, c.GetHeader(headerTraceID), uuid.NewString()),
			RequestID: firstNonEmpty(c.GetHeader(headerRequestID), uuid.NewString()),
		}
		c.Request = c.Request.WithContext(ctxutil.WithTraceData(ctx, td))
		c.Header(headerTraceID, td.TraceID)
		c.Header(headerRequestID, td.RequestID)
		c.Next()
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
