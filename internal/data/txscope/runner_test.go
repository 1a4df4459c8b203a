package txscope

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/campus-backend/internal/data/db/dbtest"
	"github.com/yungbote/campus-backend/internal/domain/course"
	"github.com/yungbote/campus-backend/internal/domain/domainerr"
)

func insertEnrollment(t *testing.T, ctx context.Context) *course.Enrollment {
	t.Helper()
	s := FromContext(ctx)
	if s == nil {
		t.Fatalf("expected scope in ctx")
	}
	e := course.NewEnrollment(uuid.New(), uuid.New())
	if err := s.DBC(ctx).Tx.Create(e).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	return e
}

func countEnrollments(t *testing.T, gdb *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := gdb.Model(&course.Enrollment{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestInTxCommits(t *testing.T) {
	gdb := dbtest.Open(t)
	r := NewRunner(gdb, nil, nil)

	var seen *Scope
	err := r.InTx(context.Background(), "test.commit", func(ctx context.Context) error {
		seen = FromContext(ctx)
		insertEnrollment(t, ctx)
		return nil
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if seen.State() != Committed {
		t.Fatalf("state: want=%s got=%s", Committed, seen.State())
	}
	if n := countEnrollments(t, gdb); n != 1 {
		t.Fatalf("rows: want=1 got=%d", n)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	gdb := dbtest.Open(t)
	r := NewRunner(gdb, nil, nil)
	boom := domainerr.Conflict("inner", "boom", nil)

	var seen *Scope
	ran := false
	err := r.InTx(context.Background(), "test.rollback", func(ctx context.Context) error {
		seen = FromContext(ctx)
		seen.AfterCommit(func(context.Context) { ran = true })
		insertEnrollment(t, ctx)
		return boom
	})
	if !domainerr.IsCode(err, domainerr.CodeTransactionAborted) {
		t.Fatalf("expected transaction_aborted, got=%v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("cause not preserved: %v", err)
	}
	if got := domainerr.Classify(err); got != domainerr.CodeConflict {
		t.Fatalf("classify: want=%s got=%s", domainerr.CodeConflict, got)
	}
	if seen.State() != RolledBack {
		t.Fatalf("state: want=%s got=%s", RolledBack, seen.State())
	}
	if ran {
		t.Fatalf("after-commit callback ran on rollback")
	}
	if n := countEnrollments(t, gdb); n != 0 {
		t.Fatalf("rows: want=0 got=%d", n)
	}
}

func TestNestedInTxJoinsOuterScope(t *testing.T) {
	gdb := dbtest.Open(t)
	r := NewRunner(gdb, nil, nil)

	err := r.InTx(context.Background(), "outer", func(ctx context.Context) error {
		outer := FromContext(ctx)
		return r.InTx(ctx, "inner", func(ctx context.Context) error {
			inner := FromContext(ctx)
			if inner != outer {
				t.Fatalf("nested call opened a new scope")
			}
			if inner.Depth() != 2 {
				t.Fatalf("depth: want=2 got=%d", inner.Depth())
			}
			if inner.Op() != "outer" {
				t.Fatalf("op: want=outer got=%s", inner.Op())
			}
			insertEnrollment(t, ctx)
			return nil
		})
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if n := countEnrollments(t, gdb); n != 1 {
		t.Fatalf("rows: want=1 got=%d", n)
	}
}

func TestNestedErrorRollsBackEverything(t *testing.T) {
	gdb := dbtest.Open(t)
	r := NewRunner(gdb, nil, nil)
	inner := domainerr.Invalid("inner", "name", "bad")

	var innerErr error
	err := r.InTx(context.Background(), "outer", func(ctx context.Context) error {
		insertEnrollment(t, ctx)
		innerErr = r.InTx(ctx, "inner", func(ctx context.Context) error {
			insertEnrollment(t, ctx)
			return inner
		})
		if innerErr != inner {
			t.Fatalf("joined scope must return the error unchanged, got=%v", innerErr)
		}
		// the outer call swallows the error; the scope still rolls back
		return nil
	})
	if !domainerr.IsCode(err, domainerr.CodeTransactionAborted) {
		t.Fatalf("expected transaction_aborted, got=%v", err)
	}
	var de *domainerr.Error
	if !errors.As(err, &de) || de.Cause != inner {
		t.Fatalf("expected single wrap around inner error, got=%v", err)
	}
	if n := countEnrollments(t, gdb); n != 0 {
		t.Fatalf("rows: want=0 got=%d", n)
	}
}

func TestPanicRollsBack(t *testing.T) {
	gdb := dbtest.Open(t)
	r := NewRunner(gdb, nil, nil)

	err := r.InTx(context.Background(), "test.panic", func(ctx context.Context) error {
		insertEnrollment(t, ctx)
		panic("kaboom")
	})
	if !domainerr.IsCode(err, domainerr.CodeTransactionAborted) {
		t.Fatalf("expected transaction_aborted, got=%v", err)
	}
	if n := countEnrollments(t, gdb); n != 0 {
		t.Fatalf("rows: want=0 got=%d", n)
	}
}

func TestAfterCommitOrderAndDetachedContext(t *testing.T) {
	gdb := dbtest.Open(t)
	r := NewRunner(gdb, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var order []int
	var lateErr error
	err := r.InTx(ctx, "test.after", func(ctx context.Context) error {
		s := FromContext(ctx)
		s.AfterCommit(func(context.Context) {
			order = append(order, 1)
			cancel()
		})
		s.AfterCommit(func(context.Context) { panic("callback failure") })
		s.AfterCommit(func(cbCtx context.Context) {
			order = append(order, 3)
			lateErr = cbCtx.Err()
		})
		return nil
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 3 {
		t.Fatalf("order: want=[1 3] got=%v", order)
	}
	if lateErr != nil {
		t.Fatalf("after-commit context must not inherit cancellation, got=%v", lateErr)
	}
}

func TestReaderSeesScopeWritesOnlyInsideScope(t *testing.T) {
	gdb := dbtest.Open(t)
	r := NewRunner(gdb, nil, nil)
	sentinel := errors.New("sentinel")

	err := r.InTx(context.Background(), "test.reader", func(ctx context.Context) error {
		e := insertEnrollment(t, ctx)

		var inside int64
		if err := Reader(ctx).DB(gdb).Model(&course.Enrollment{}).Where("id = ?", e.ID).Count(&inside).Error; err != nil {
			t.Fatalf("inside count: %v", err)
		}
		if inside != 1 {
			t.Fatalf("reader inside scope: want=1 got=%d", inside)
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got=%v", err)
	}
	var outside int64
	if err := Reader(context.Background()).DB(gdb).Model(&course.Enrollment{}).Count(&outside).Error; err != nil {
		t.Fatalf("outside count: %v", err)
	}
	if outside != 0 {
		t.Fatalf("reader outside scope: want=0 got=%d", outside)
	}
}
