package txscopetest

import (
	"sync"
	"time"

	"github.com/yungbote/campus-backend/internal/data/txscope"
)

// HooksRecorder captures scope hook signals in tests.
type HooksRecorder struct {
	mu sync.Mutex

	Scopes    []ScopeEvent
	Conflicts []string
	Retries   []string
}

type ScopeEvent struct {
	Op       string
	Status   string
	Duration time.Duration
}

var _ txscope.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveScope(op, status string, dur time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Scopes = append(h.Scopes, ScopeEvent{Op: op, Status: status, Duration: dur})
}

func (h *HooksRecorder) IncConflict(op string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Conflicts = append(h.Conflicts, op)
}

func (h *HooksRecorder) IncRetry(op string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Retries = append(h.Retries, op)
}

// Statuses returns the recorded scope statuses in order.
func (h *HooksRecorder) Statuses() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.Scopes))
	for _, s := range h.Scopes {
		out = append(out, s.Status)
	}
	return out
}
