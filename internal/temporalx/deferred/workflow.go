// Package deferred runs jobs.Task values as Temporal workflows. The workflow ID
// is derived from the task ID, so a task submitted twice executes once.
package deferred

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/campus-backend/internal/jobs"
)

const (
	WorkflowName   = "deferred_task"
	ActivityHandle = "deferred_task_handle"
)

// WorkflowID is the Temporal workflow ID for task.
func WorkflowID(task jobs.Task) string {
	return "deferred-" + task.ID.String()
}

// Options tunes activity retries.
type Options struct {
	MaxAttempts  int32
	RetryBackoff time.Duration
}

// NewWorkflow returns the workflow function bound to opts.
func NewWorkflow(opts Options) func(ctx workflow.Context, task jobs.Task) error {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 5
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	return func(ctx workflow.Context, task jobs.Task) error {
		if task.Kind == "" {
			return fmt.Errorf("deferred: missing task kind")
		}
		ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
			StartToCloseTimeout: 5 * time.Minute,
			RetryPolicy: &temporal.RetryPolicy{
				InitialInterval:        opts.RetryBackoff,
				BackoffCoefficient:     2,
				MaximumInterval:        time.Minute,
				MaximumAttempts:        opts.MaxAttempts,
				NonRetryableErrorTypes: []string{ErrTypeMissingHandler, ErrTypePermanent},
			},
		})
		return workflow.ExecuteActivity(ctx, ActivityHandle, task).Get(ctx, nil)
	}
}
