package ctxutil

import "context"

type traceDataKey struct{}

// TraceData correlates one inbound request with the scopes and deferred tasks
// it produces.
type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(Default(ctx), traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	td, _ := ctx.Value(traceDataKey{}).(*TraceData)
	return td
}

// TraceID is "" outside a traced request.
func TraceID(ctx context.Context) string {
	if td := GetTraceData(ctx); td != nil {
		return td.TraceID
	}
	return ""
}

// LogFields returns the trace_id/request_id pairs present on ctx.
func LogFields(ctx context.Context) []interface{} {
	td := GetTraceData(ctx)
	if td == nil {
		return nil
	}
	var kv []interface{}
	if td.TraceID != "" {
		kv = append(kv, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		kv = append(kv, "request_id", td.RequestID)
	}
	return kv
}
