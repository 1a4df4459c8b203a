package txscope

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/campus-backend/internal/domain/domainerr"
	"github.com/yungbote/campus-backend/internal/platform/ctxutil"
	"github.com/yungbote/campus-backend/internal/platform/logger"
)

// StatusCommitted is reported to Hooks for scopes that committed.
const StatusCommitted = "committed"

var errRollbackOnly = errors.New("scope marked rollback-only")

// Runner opens or joins a transaction scope around fn.
type Runner interface {
	InTx(ctx context.Context, op string, fn func(ctx context.Context) error) error
}

type gormRunner struct {
	db    *gorm.DB
	log   *logger.Logger
	hooks Hooks
}

// NewRunner returns a Runner backed by gorm transactions.
func NewRunner(db *gorm.DB, log *logger.Logger, hooks Hooks) Runner {
	if log == nil {
		log = logger.NewNop()
	}
	if hooks == nil {
		hooks = noopHooks{}
	}
	return &gormRunner{db: db, log: log.With("component", "TxScope"), hooks: hooks}
}

// InTx runs fn inside a scope. With no open scope in ctx it begins a
// transaction, commits when fn succeeds and rolls back otherwise, returning
// TransactionAborted around the cause. With an open scope it joins: an error
// marks the shared scope rollback-only and is returned unchanged.
func (r *gormRunner) InTx(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if fn == nil {
		return nil
	}
	op = strings.TrimSpace(op)
	if op == "" {
		op = "txscope"
	}
	if parent := Active(ctx); parent != nil {
		return r.join(ctx, parent, fn)
	}
	if r == nil || r.db == nil {
		return domainerr.New(domainerr.CodeInternal, op, "transaction runner has nil db", nil)
	}
	return r.begin(ctx, op, fn)
}

func (r *gormRunner) join(ctx context.Context, parent *Scope, fn func(ctx context.Context) error) error {
	parent.enter()
	defer parent.leave()
	if err := fn(ctx); err != nil {
		parent.MarkRollbackOnly(err)
		return err
	}
	return nil
}

func (r *gormRunner) begin(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	scope := newScope(op, nil)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (txErr error) {
		scope.tx = tx
		defer func() {
			if p := recover(); p != nil {
				r.log.Error("panic inside transaction scope", "op", op, "scope_id", scope.ID(), "panic", p, "stack", string(debug.Stack()))
				txErr = domainerr.New(domainerr.CodeInternal, op, fmt.Sprintf("panic: %v", p), nil)
			}
		}()
		if err := fn(withScope(ctx, scope)); err != nil {
			return err
		}
		if marked, cause := scope.RollbackOnly(); marked {
			if cause == nil {
				cause = errRollbackOnly
			}
			return cause
		}
		return nil
	})

	if err != nil {
		scope.finish(RolledBack)
		mapped := MapError(op, err)
		r.observe(op, mapped, time.Since(start))
		r.log.Debug("Transaction scope rolled back", append([]interface{}{
			"op", op, "scope_id", scope.ID(), "code", domainerr.CodeOf(mapped),
		}, ctxutil.LogFields(ctx)...)...)
		return domainerr.TransactionAborted(op, mapped)
	}

	callbacks := scope.finish(Committed)
	r.observe(op, nil, time.Since(start))
	r.runAfterCommit(ctx, scope, callbacks)
	return nil
}

func (r *gormRunner) observe(op string, err error, dur time.Duration) {
	if err == nil {
		r.hooks.ObserveScope(op, StatusCommitted, dur)
		return
	}
	code := domainerr.Classify(err)
	switch code {
	case domainerr.CodeConflict:
		r.hooks.IncConflict(op)
	case domainerr.CodeRetryable:
		r.hooks.IncRetry(op)
	}
	r.hooks.ObserveScope(op, string(code), dur)
}

// runAfterCommit runs callbacks in registration order on a context that
// outlives the caller's cancellation. A panicking callback is logged and skipped.
func (r *gormRunner) runAfterCommit(ctx context.Context, scope *Scope, callbacks []func(ctx context.Context)) {
	if len(callbacks) == 0 {
		return
	}
	detached := context.WithoutCancel(ctx)
	for i, cb := range callbacks {
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.log.Error("after-commit callback panicked", "op", scope.Op(), "scope_id", scope.ID(), "index", i, "panic", p)
				}
			}()
			cb(detached)
		}()
	}
}
