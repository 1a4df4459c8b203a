package txscope

import "time"

// Hooks captures scope-level observability events.
type Hooks interface {
	ObserveScope(op, status string, dur time.Duration)
	IncConflict(op string)
	IncRetry(op string)
}

type noopHooks struct{}

func (noopHooks) ObserveScope(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                         {}
func (noopHooks) IncRetry(string)                            {}

// NoopHooks discards every event.
func NoopHooks() Hooks { return noopHooks{} }
