package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/yungbote/campus-backend/internal/data/txscope"
	"github.com/yungbote/campus-backend/internal/platform/logger"
)

var ErrQueueFull = errors.New("deferred queue is full")

// Dispatcher submits a task for asynchronous execution. Delivery is
// at-least-once; handlers must tolerate duplicates.
type Dispatcher interface {
	Dispatch(ctx context.Context, task Task) error
}

// Source yields tasks for a Worker. Next blocks until a task is available or
// ctx is done.
type Source interface {
	Next(ctx context.Context) (Task, error)
}

// Settler is implemented by sources that hold a task until the worker is done
// with it. Ack is called after success or a permanent failure, Park after
// retries run out. A task interrupted by shutdown is settled by neither.
type Settler interface {
	Ack(ctx context.Context, task Task) error
	Park(ctx context.Context, task Task) error
}

// Hooks captures deferred-work observability events.
type Hooks interface {
	IncDispatch(kind, status string)
	ObserveHandle(kind, status string, dur time.Duration)
}

type noopHooks struct{}

func (noopHooks) IncDispatch(string, string)                  {}
func (noopHooks) ObserveHandle(string, string, time.Duration) {}

func NoopHooks() Hooks { return noopHooks{} }

const dispatchTimeout = 5 * time.Second

// Enqueue submits task once scope commits. Without a scope the task is
// submitted immediately. Dispatch failures are logged and counted, never
// returned: the primary mutation has already happened.
func Enqueue(scope *txscope.Scope, d Dispatcher, log *logger.Logger, hooks Hooks, task Task) {
	if d == nil {
		return
	}
	if log == nil {
		log = logger.NewNop()
	}
	if hooks == nil {
		hooks = noopHooks{}
	}
	send := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
		defer cancel()
		if err := d.Dispatch(ctx, task); err != nil {
			hooks.IncDispatch(task.Kind, "error")
			log.Error("Deferred task dispatch failed", "task_id", task.ID, "kind", task.Kind, "error", err)
			return
		}
		hooks.IncDispatch(task.Kind, "ok")
	}
	if scope == nil {
		send(context.Background())
		return
	}
	scope.AfterCommit(send)
}
