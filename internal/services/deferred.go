package services

import (
	"context"

	"github.com/yungbote/campus-backend/internal/data/txscope"
	"github.com/yungbote/campus-backend/internal/jobs"
	"github.com/yungbote/campus-backend/internal/platform/ctxutil"
	"github.com/yungbote/campus-backend/internal/platform/logger"
)

// Deferred submits follow-up work once the surrounding scope commits.
// A zero Deferred drops tasks.
type Deferred struct {
	Dispatcher jobs.Dispatcher
	Hooks      jobs.Hooks
	Log        *logger.Logger
}

func (d Deferred) schedule(ctx context.Context, kind string, payload any) {
	if d.Dispatcher == nil {
		return
	}
	task, err := jobs.NewTask(kind, payload)
	if err != nil {
		if d.Log != nil {
			d.Log.Error("Deferred task encode failed", "kind", kind, "error", err)
		}
		return
	}
	task.TraceID = ctxutil.TraceID(ctx)
	jobs.Enqueue(txscope.Active(ctx), d.Dispatcher, d.Log, d.Hooks, task)
}
