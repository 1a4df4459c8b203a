package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/campus-backend/internal/jobs"
	"github.com/yungbote/campus-backend/internal/platform/config"
	"github.com/yungbote/campus-backend/internal/platform/logger"
	"github.com/yungbote/campus-backend/internal/temporalx"
	"github.com/yungbote/campus-backend/internal/temporalx/deferred"
)

type Runner struct {
	log *logger.Logger

	tc       temporalsdkclient.Client
	cfg      config.TemporalConfig
	wcfg     config.WorkerConfig
	registry *jobs.Registry
	hooks    jobs.Hooks
}

func NewRunner(
	log *logger.Logger,
	tc temporalsdkclient.Client,
	cfg config.TemporalConfig,
	wcfg config.WorkerConfig,
	registry *jobs.Registry,
	hooks jobs.Hooks,
) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if registry == nil {
		return nil, fmt.Errorf("temporal worker missing registry")
	}
	if log == nil {
		log = logger.NewNop()
	}
	if hooks == nil {
		hooks = jobs.NoopHooks()
	}
	return &Runner{
		log:      log.With("component", "temporal_worker"),
		tc:       tc,
		cfg:      cfg,
		wcfg:     wcfg,
		registry: registry,
		hooks:    hooks,
	}, nil
}

// Start polls the task queue until ctx is done. Startup is retried with
// backoff for DialMaxWait.
func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}
	r.log.Info("Starting Temporal worker", "address", r.cfg.Address, "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)

	deadline := time.Now().Add(r.cfg.DialMaxWait)
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "task_queue", r.cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) && r.cfg.AutoRegister {
			if err := temporalx.EnsureNamespace(ctx, r.cfg, r.log); err != nil {
				r.log.Warn("Temporal namespace ensure failed", "namespace", r.cfg.Namespace, "error", err)
			}
		}

		if r.cfg.DialMaxWait <= 0 || time.Now().After(deadline) {
			if errors.As(startErr, &nfe) {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", r.cfg.Namespace, startErr)
			}
			return startErr
		}
		r.log.Warn("Temporal worker failed to start; retrying", "task_queue", r.cfg.TaskQueue, "attempt", attempt, "error", startErr)
		time.Sleep(temporalx.Backoff(r.cfg.DialBackoff, r.cfg.DialBackoffMax, attempt))
	}
}

func (r *Runner) newWorker() worker.Worker {
	concurrency := r.wcfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})
	Register(w, deferred.Options{
		MaxAttempts:  int32(r.wcfg.MaxAttempts),
		RetryBackoff: r.wcfg.RetryDelay,
	}, &deferred.Activities{Log: r.log, Registry: r.registry, Hooks: r.hooks})
	return w
}

// Register binds the deferred workflow and its activity to w.
func Register(w worker.Registry, opts deferred.Options, acts *deferred.Activities) {
	w.RegisterWorkflowWithOptions(deferred.NewWorkflow(opts), workflow.RegisterOptions{Name: deferred.WorkflowName})
	w.RegisterActivityWithOptions(acts.Handle, activity.RegisterOptions{Name: deferred.ActivityHandle})
}
