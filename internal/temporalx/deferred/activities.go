package deferred

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/campus-backend/internal/jobs"
	"github.com/yungbote/campus-backend/internal/platform/logger"
)

const (
	ErrTypeMissingHandler = "MissingHandler"
	ErrTypePermanent      = "PermanentFailure"
)

type Activities struct {
	Log      *logger.Logger
	Registry *jobs.Registry
	Hooks    jobs.Hooks
}

// Handle runs the registered jobs.Handler for task. Retries are driven by the
// workflow's retry policy.
func (a *Activities) Handle(ctx context.Context, task jobs.Task) error {
	if a == nil || a.Registry == nil {
		return fmt.Errorf("deferred: activity not configured")
	}
	hooks := a.Hooks
	if hooks == nil {
		hooks = jobs.NoopHooks()
	}
	task.Attempt = int(activity.GetInfo(ctx).Attempt)

	start := time.Now()
	err := a.Registry.Handle(ctx, task)
	if err == nil {
		hooks.ObserveHandle(task.Kind, "ok", time.Since(start))
		return nil
	}
	var missing *jobs.MissingHandlerError
	if errors.As(err, &missing) {
		hooks.ObserveHandle(task.Kind, "missing_handler", time.Since(start))
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeMissingHandler, err)
	}
	var permanent *jobs.PermanentError
	if errors.As(err, &permanent) {
		hooks.ObserveHandle(task.Kind, "permanent", time.Since(start))
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypePermanent, err)
	}
	hooks.ObserveHandle(task.Kind, "error", time.Since(start))
	if a.Log != nil {
		a.Log.Warn("Deferred task failed", "task_id", task.ID, "kind", task.Kind, "attempt", task.Attempt, "error", err)
	}
	return err
}
