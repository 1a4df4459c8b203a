package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type Handler interface {
	Kind() string
	Handle(ctx context.Context, task Task) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc struct {
	K  string
	Fn func(ctx context.Context, task Task) error
}

func (h HandlerFunc) Kind() string { return h.K }
func (h HandlerFunc) Handle(ctx context.Context, task Task) error {
	return h.Fn(ctx, task)
}

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	k := h.Kind()
	if k == "" {
		return fmt.Errorf("handler Kind() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[k]; exists {
		return fmt.Errorf("handler already registered for kind=%s", k)
	}
	r.handlers[k] = h
	return nil
}

func (r *Registry) Get(kind string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[kind]
	return h, ok
}

func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Handle runs the handler for task.Kind once. A panicking handler is
// reported as an error.
func (r *Registry) Handle(ctx context.Context, task Task) (err error) {
	h, ok := r.Get(task.Kind)
	if !ok {
		return &MissingHandlerError{Kind: task.Kind}
	}
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Val: p}
		}
	}()
	return h.Handle(ctx, task)
}

type MissingHandlerError struct{ Kind string }

func (e *MissingHandlerError) Error() string { return "no handler registered for kind=" + e.Kind }

type PanicError struct{ Val any }

func (e *PanicError) Error() string { return fmt.Sprintf("handler panic: %v", e.Val) }

// PermanentError marks a handler failure that retrying cannot fix.
type PermanentError struct{ Err error }

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so workers stop retrying the task.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}
