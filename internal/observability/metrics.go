package observability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/campus-backend/internal/data/txscope"
	"github.com/yungbote/campus-backend/internal/jobs"
	"github.com/yungbote/campus-backend/internal/platform/logger"
)

const namespace = "campus"

// Metrics owns a private registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	scopeTotal    *prometheus.CounterVec
	scopeDuration *prometheus.HistogramVec
	scopeConflict *prometheus.CounterVec
	scopeRetry    *prometheus.CounterVec

	taskDispatch *prometheus.CounterVec
	taskHandle   *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	queueDepth   prometheus.Gauge

	redisUp   prometheus.Gauge
	redisPing prometheus.Gauge
}

var (
	_ txscope.Hooks = (*Metrics)(nil)
	_ jobs.Hooks    = (*Metrics)(nil)
)

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		scopeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "tx_scopes_total",
			Help: "Finished transaction scopes by op and outcome.",
		}, []string{"op", "status"}),
		scopeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "tx_scope_duration_seconds",
			Help:    "Transaction scope duration in seconds by op.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		scopeConflict: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "tx_conflicts_total",
			Help: "Scopes rolled back by a persistence conflict.",
		}, []string{"op"}),
		scopeRetry: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "tx_retryable_total",
			Help: "Scopes rolled back by a retryable engine error.",
		}, []string{"op"}),
		taskDispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "deferred_dispatch_total",
			Help: "Deferred task submissions by kind and status.",
		}, []string{"kind", "status"}),
		taskHandle: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "deferred_handled_total",
			Help: "Deferred task executions by kind and status.",
		}, []string{"kind", "status"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "deferred_handle_duration_seconds",
			Help:    "Deferred task handler latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "deferred_queue_depth",
			Help: "Tasks waiting in the in-process queue.",
		}),
		redisUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "redis_up",
			Help: "1 when the last redis ping succeeded.",
		}),
		redisPing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "redis_ping_seconds",
			Help: "Latency of the last redis ping.",
		}),
	}
	reg.MustRegister(
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.scopeTotal, m.scopeDuration, m.scopeConflict, m.scopeRetry,
		m.taskDispatch, m.taskHandle, m.taskDuration, m.queueDepth,
		m.redisUp, m.redisPing,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	code := strconv.Itoa(status)
	m.apiRequests.WithLabelValues(method, route, code).Inc()
	m.apiLatency.WithLabelValues(method, route, code).Observe(dur.Seconds())
}

// TrackInflight bumps the in-flight gauge; call the returned func when the
// request completes.
func (m *Metrics) TrackInflight() func() {
	if m == nil {
		return func() {}
	}
	m.apiInflight.Inc()
	return m.apiInflight.Dec
}

func (m *Metrics) ObserveScope(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.scopeTotal.WithLabelValues(op, status).Inc()
	m.scopeDuration.WithLabelValues(op).Observe(dur.Seconds())
}

func (m *Metrics) IncConflict(op string) {
	if m == nil {
		return
	}
	m.scopeConflict.WithLabelValues(op).Inc()
}

func (m *Metrics) IncRetry(op string) {
	if m == nil {
		return
	}
	m.scopeRetry.WithLabelValues(op).Inc()
}

func (m *Metrics) IncDispatch(kind, status string) {
	if m == nil {
		return
	}
	m.taskDispatch.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) ObserveHandle(kind, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.taskHandle.WithLabelValues(kind, status).Inc()
	m.taskDuration.WithLabelValues(kind).Observe(dur.Seconds())
}

// RegisterDBStats exports database/sql pool statistics for db.
func (m *Metrics) RegisterDBStats(db *gorm.DB, name string) error {
	if m == nil || db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return m.reg.Register(collectors.NewDBStatsCollector(sqlDB, name))
}

// StartQueueCollector samples depth every interval until ctx is done.
func (m *Metrics) StartQueueCollector(ctx context.Context, interval time.Duration, depth func() int) {
	if m == nil || depth == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.queueDepth.Set(float64(depth()))
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

// RouteLabel keeps label cardinality bounded for unmatched routes.
func RouteLabel(fullPath string) string {
	fullPath = strings.TrimSpace(fullPath)
	if fullPath == "" {
		return "unmatched"
	}
	return fullPath
}
