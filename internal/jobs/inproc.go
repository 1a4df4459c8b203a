package jobs

import "context"

// InProcDispatcher is a bounded in-memory queue. It is both the Dispatcher
// services write to and the Source a Worker reads from.
type InProcDispatcher struct {
	ch chan Task
}

func NewInProcDispatcher(size int) *InProcDispatcher {
	if size < 1 {
		size = 1
	}
	return &InProcDispatcher{ch: make(chan Task, size)}
}

// Dispatch never blocks; a full queue is reported as ErrQueueFull.
func (d *InProcDispatcher) Dispatch(ctx context.Context, task Task) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case d.ch <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *InProcDispatcher) Next(ctx context.Context) (Task, error) {
	select {
	case <-ctx.Done():
		return Task{}, ctx.Err()
	case t := <-d.ch:
		return t, nil
	}
}

func (d *InProcDispatcher) Len() int { return len(d.ch) }
