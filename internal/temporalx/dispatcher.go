package temporalx

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/campus-backend/internal/jobs"
	"github.com/yungbote/campus-backend/internal/temporalx/deferred"
)

// Dispatcher starts one workflow per task. Resubmitting a task that already
// ran or is running is a no-op.
type Dispatcher struct {
	tc        temporalsdkclient.Client
	taskQueue string
}

func NewDispatcher(tc temporalsdkclient.Client, taskQueue string) *Dispatcher {
	return &Dispatcher{tc: tc, taskQueue: taskQueue}
}

func (d *Dispatcher) Dispatch(ctx context.Context, task jobs.Task) error {
	if d == nil || d.tc == nil {
		return fmt.Errorf("temporal dispatcher not initialized")
	}
	_, err := d.tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                    deferred.WorkflowID(task),
		TaskQueue:             d.taskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}, deferred.WorkflowName, task)
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		return nil
	}
	return err
}

var _ jobs.Dispatcher = (*Dispatcher)(nil)
