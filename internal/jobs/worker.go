package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yungbote/campus-backend/internal/platform/logger"
)

type WorkerConfig struct {
	Concurrency int
	MaxAttempts int
	RetryDelay  time.Duration
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	return c
}

// Worker drains a Source with a fixed pool of goroutines. Failed tasks are
// retried in place with exponential backoff up to MaxAttempts.
type Worker struct {
	log      *logger.Logger
	source   Source
	registry *Registry
	hooks    Hooks
	cfg      WorkerConfig
	done     *seenSet
}

func NewWorker(baseLog *logger.Logger, source Source, registry *Registry, hooks Hooks, cfg WorkerConfig) *Worker {
	if baseLog == nil {
		baseLog = logger.NewNop()
	}
	if hooks == nil {
		hooks = noopHooks{}
	}
	return &Worker{
		log:      baseLog.With("component", "DeferredWorker"),
		source:   source,
		registry: registry,
		hooks:    hooks,
		cfg:      cfg.withDefaults(),
		done:     newSeenSet(4096),
	}
}

// Run blocks until ctx is done and every loop has returned.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Starting deferred worker pool", "concurrency", w.cfg.Concurrency, "max_attempts", w.cfg.MaxAttempts)
	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.runLoop(ctx, workerID)
		}(i + 1)
	}
	wg.Wait()
	return nil
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	for {
		task, err := w.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.log.Info("Worker loop stopped", "worker_id", workerID)
				return
			}
			w.log.Warn("Source.Next failed", "worker_id", workerID, "error", err)
			if !sleepCtx(ctx, time.Second) {
				return
			}
			continue
		}
		w.settle(ctx, task, w.Process(ctx, task))
	}
}

const settleTimeout = 5 * time.Second

func (w *Worker) settle(ctx context.Context, task Task, err error) {
	s, ok := w.source.(Settler)
	if !ok {
		return
	}
	if err != nil && ctx.Err() != nil {
		return
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	var permanent *PermanentError
	if err == nil || errors.As(err, &permanent) {
		err = s.Ack(sctx, task)
	} else {
		err = s.Park(sctx, task)
	}
	if err != nil {
		w.log.Warn("Settling task failed", "task_id", task.ID, "kind", task.Kind, "error", err)
	}
}

// Process runs task to completion or exhaustion. Tasks already completed by
// this worker are skipped.
func (w *Worker) Process(ctx context.Context, task Task) error {
	if w.done.has(task.ID.String()) {
		w.log.Debug("Skipping duplicate task", "task_id", task.ID, "kind", task.Kind)
		return nil
	}
	var err error
	for attempt := task.Attempt + 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		task.Attempt = attempt
		start := time.Now()
		err = w.registry.Handle(ctx, task)
		if err == nil {
			w.hooks.ObserveHandle(task.Kind, "ok", time.Since(start))
			w.done.add(task.ID.String())
			return nil
		}

		var missing *MissingHandlerError
		if errors.As(err, &missing) {
			w.hooks.ObserveHandle(task.Kind, "missing_handler", time.Since(start))
			w.log.Warn("No handler registered for kind", "task_id", task.ID, "kind", task.Kind)
			return err
		}
		var permanent *PermanentError
		if errors.As(err, &permanent) {
			w.hooks.ObserveHandle(task.Kind, "permanent", time.Since(start))
			w.log.Error("Deferred task failed permanently", "task_id", task.ID, "kind", task.Kind, "trace_id", task.TraceID, "attempt", attempt, "error", err)
			return err
		}
		w.hooks.ObserveHandle(task.Kind, "error", time.Since(start))
		w.log.Warn("Deferred task failed", "task_id", task.ID, "kind", task.Kind, "trace_id", task.TraceID, "attempt", attempt, "error", err)

		if attempt < w.cfg.MaxAttempts && !sleepCtx(ctx, backoff(w.cfg.RetryDelay, attempt)) {
			return ctx.Err()
		}
	}
	w.log.Error("Deferred task exhausted retries", "task_id", task.ID, "kind", task.Kind, "trace_id", task.TraceID, "attempts", w.cfg.MaxAttempts, "error", err)
	return err
}

func backoff(base time.Duration, attempt int) time.Duration {
	const maxDelay = time.Minute
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxDelay {
			return maxDelay
		}
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// seenSet remembers the most recent completed task IDs, evicting oldest first.
type seenSet struct {
	mu    sync.Mutex
	max   int
	order []string
	set   map[string]struct{}
}

func newSeenSet(max int) *seenSet {
	return &seenSet{max: max, set: make(map[string]struct{}, max)}
}

func (s *seenSet) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.set[id]
	return ok
}

func (s *seenSet) add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.set[id]; ok {
		return
	}
	if len(s.order) >= s.max {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.set, oldest)
	}
	s.order = append(s.order, id)
	s.set[id] = struct{}{}
}
