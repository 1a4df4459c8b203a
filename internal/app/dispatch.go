package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/campus-backend/internal/jobs"
	"github.com/yungbote/campus-backend/internal/observability"
	"github.com/yungbote/campus-backend/internal/platform/config"
	"github.com/yungbote/campus-backend/internal/platform/logger"
	"github.com/yungbote/campus-backend/internal/platform/sendgrid"
	"github.com/yungbote/campus-backend/internal/temporalx"
	"github.com/yungbote/campus-backend/internal/temporalx/temporalworker"
)

const collectorInterval = 15 * time.Second

// Dispatch is the deferred-work backend: where services submit tasks and the
// loops that execute them.
type Dispatch struct {
	Backend    string
	Dispatcher jobs.Dispatcher
	Registry   *jobs.Registry
	Background []func(ctx context.Context) error
	Collectors []func(ctx context.Context)
	Closers    []func()
}

func wireDispatch(ctx context.Context, log *logger.Logger, cfg config.Config, metrics *observability.Metrics) (Dispatch, error) {
	mailer, err := wireMailer(log, cfg.Mail)
	if err != nil {
		return Dispatch{}, err
	}
	registry := jobs.NewRegistry()
	if err := jobs.RegisterMailHandlers(registry, mailer); err != nil {
		return Dispatch{}, fmt.Errorf("register handlers: %w", err)
	}
	workerCfg := jobs.WorkerConfig{
		Concurrency: cfg.Worker.Concurrency,
		MaxAttempts: cfg.Worker.MaxAttempts,
		RetryDelay:  cfg.Worker.RetryDelay,
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Dispatch.Backend))
	d := Dispatch{Backend: backend, Registry: registry}
	log.Info("Wiring deferred dispatch...", "backend", backend)

	switch backend {
	case "", "inproc":
		d.Backend = "inproc"
		queue := jobs.NewInProcDispatcher(cfg.Dispatch.QueueSize)
		worker := jobs.NewWorker(log, queue, registry, metrics, workerCfg)
		d.Dispatcher = queue
		d.Background = append(d.Background, worker.Run)
		d.Collectors = append(d.Collectors, func(ctx context.Context) {
			metrics.StartQueueCollector(ctx, collectorInterval, queue.Len)
		})

	case "redis":
		rdb, err := jobs.NewRedisClient(ctx, cfg.Dispatch.RedisAddr)
		if err != nil {
			return Dispatch{}, fmt.Errorf("init redis: %w", err)
		}
		source := jobs.NewRedisSource(rdb, cfg.Dispatch.RedisQueue, log)
		if _, err := source.Recover(ctx); err != nil {
			_ = rdb.Close()
			return Dispatch{}, err
		}
		worker := jobs.NewWorker(log, source, registry, metrics, workerCfg)
		d.Dispatcher = jobs.NewRedisDispatcher(rdb, cfg.Dispatch.RedisQueue)
		d.Background = append(d.Background, worker.Run)
		d.Collectors = append(d.Collectors, func(ctx context.Context) {
			metrics.StartRedisCollector(ctx, log, rdb, collectorInterval)
		})
		d.Closers = append(d.Closers, func() { _ = rdb.Close() })

	case "temporal":
		tc, err := temporalx.NewClient(ctx, cfg.Temporal, log)
		if err != nil {
			return Dispatch{}, fmt.Errorf("init temporal: %w", err)
		}
		runner, err := temporalworker.NewRunner(log, tc, cfg.Temporal, cfg.Worker, registry, metrics)
		if err != nil {
			if tc != nil {
				tc.Close()
			}
			return Dispatch{}, err
		}
		d.Dispatcher = temporalx.NewDispatcher(tc, cfg.Temporal.TaskQueue)
		d.Background = append(d.Background, func(ctx context.Context) error {
			if err := runner.Start(ctx); err != nil {
				return fmt.Errorf("temporal worker: %w", err)
			}
			<-ctx.Done()
			return nil
		})
		d.Closers = append(d.Closers, tc.Close)

	default:
		return Dispatch{}, fmt.Errorf("unsupported dispatch backend %q", cfg.Dispatch.Backend)
	}
	return d, nil
}

func wireMailer(log *logger.Logger, cfg config.MailConfig) (jobs.Mailer, error) {
	if strings.TrimSpace(cfg.SendGridAPIKey) == "" {
		log.Info("No SENDGRID_API_KEY; mail goes to the log")
		return jobs.NewLogMailer(log, cfg.From), nil
	}
	client, err := sendgrid.New(log, sendgrid.Config{
		APIKey:           cfg.SendGridAPIKey,
		BaseURL:          cfg.SendGridBaseURL,
		DefaultFromEmail: cfg.From,
		DefaultFromName:  cfg.FromName,
		Timeout:          cfg.SendGridTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init sendgrid: %w", err)
	}
	return jobs.NewSendGridMailer(client, cfg.From), nil
}
