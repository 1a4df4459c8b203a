package txscope

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/campus-backend/internal/platform/dbctx"
)

type State int32

const (
	Open State = iota
	Committed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Scope is one unit of work. It is shared by every call that joins it.
type Scope struct {
	id uuid.UUID
	op string
	tx *gorm.DB

	mu           sync.Mutex
	state        State
	depth        int
	rollbackOnly bool
	cause        error
	afterCommit  []func(ctx context.Context)
}

func newScope(op string, tx *gorm.DB) *Scope {
	return &Scope{id: uuid.New(), op: op, tx: tx, state: Open, depth: 1}
}

func (s *Scope) ID() uuid.UUID { return s.id }

// Op is the operation name of the outermost call.
func (s *Scope) Op() string { return s.op }

func (s *Scope) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Depth is the number of InTx calls currently sharing the scope.
func (s *Scope) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depth
}

// DBC binds ctx to the scope's transaction for repository calls.
func (s *Scope) DBC(ctx context.Context) dbctx.Context {
	return dbctx.Context{Ctx: ctx, Tx: s.tx}
}

// AfterCommit registers fn to run after the outermost commit. Callbacks are
// dropped if the scope rolls back.
func (s *Scope) AfterCommit(fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.afterCommit = append(s.afterCommit, fn)
}

// MarkRollbackOnly forces the scope to roll back even if the outermost call
// returns nil. The first cause wins.
func (s *Scope) MarkRollbackOnly(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollbackOnly = true
	if s.cause == nil {
		s.cause = cause
	}
}

func (s *Scope) RollbackOnly() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rollbackOnly, s.cause
}

func (s *Scope) enter() {
	s.mu.Lock()
	s.depth++
	s.mu.Unlock()
}

func (s *Scope) leave() {
	s.mu.Lock()
	s.depth--
	s.mu.Unlock()
}

func (s *Scope) finish(state State) []func(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.depth = 0
	if state != Committed {
		s.afterCommit = nil
		return nil
	}
	hooks := s.afterCommit
	s.afterCommit = nil
	return hooks
}

type scopeKey struct{}

func withScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext returns the scope attached to ctx, if any.
func FromContext(ctx context.Context) *Scope {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}

// Active returns the scope in ctx only while it is still open.
func Active(ctx context.Context) *Scope {
	s := FromContext(ctx)
	if s == nil || s.State() != Open {
		return nil
	}
	return s
}

// Reader returns the repository context a read should use. Inside an open
// scope reads go through its transaction and see its uncommitted writes;
// otherwise they go to the base handle and see committed data only.
func Reader(ctx context.Context) dbctx.Context {
	if s := Active(ctx); s != nil {
		return s.DBC(ctx)
	}
	return dbctx.Context{Ctx: ctx}
}
