package observability

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/yungbote/campus-backend/internal/platform/config"
	"github.com/yungbote/campus-backend/internal/platform/logger"
)

type ServiceInfo struct {
	Name        string
	Environment string
	Version     string
}

// InitOTel installs a global tracer provider for scope and request spans and
// returns its shutdown. Disabled tracing keeps otel's no-op provider.
// Exporter or resource failures degrade to fewer spans, never to a startup
// error.
func InitOTel(ctx context.Context, log *logger.Logger, cfg config.OtelConfig, svc ServiceInfo) func(context.Context) error {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }
	}
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With("component", "otel")
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		log.Warn("otel error", "error", err)
	}))

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(clampRatio(cfg.SampleRatio)))),
	}
	if res, err := serviceResource(ctx, svc); err != nil {
		log.Warn("otel resource incomplete", "error", err)
	} else {
		opts = append(opts, sdktrace.WithResource(res))
	}
	if exp, err := spanExporter(ctx, cfg); err != nil {
		log.Warn("otel exporter disabled", "error", err)
	} else {
		opts = append(opts, sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(5*time.Second)))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	log.Info("Tracing enabled", "endpoint", cfg.Endpoint, "sample_ratio", clampRatio(cfg.SampleRatio))
	return tp.Shutdown
}

func serviceResource(ctx context.Context, svc ServiceInfo) (*resource.Resource, error) {
	name := strings.TrimSpace(svc.Name)
	if name == "" {
		name = "campus"
	}
	return resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(name),
		semconv.ServiceVersionKey.String(strings.TrimSpace(svc.Version)),
		attribute.String("deployment.environment", strings.TrimSpace(svc.Environment)),
	))
}

// spanExporter ships to the OTLP endpoint when one is set, otherwise to stdout.
func spanExporter(ctx context.Context, cfg config.OtelConfig) (sdktrace.SpanExporter, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	return otlptracehttp.New(ctx, opts...)
}

func clampRatio(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
