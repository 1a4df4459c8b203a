package txscope

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/campus-backend/internal/domain/domainerr"
)

// MapError maps infrastructure failures into domain error codes. Errors that
// already carry a domain code pass through untouched.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *domainerr.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainerr.Wrap(domainerr.CodeNotFound, op, err)
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return domainerr.Wrap(domainerr.CodeConflict, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domainerr.Wrap(domainerr.CodeRetryable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505", "23503":
			return domainerr.Wrap(domainerr.CodeConflict, op, err) // unique / foreign key violation
		case "40001", "40P01", "55P03":
			return domainerr.Wrap(domainerr.CodeRetryable, op, err) // serialization/deadlock/lock_not_available
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "unique constraint failed"),
		strings.Contains(msg, "already exists"):
		return domainerr.Wrap(domainerr.CodeConflict, op, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "temporar"):
		return domainerr.Wrap(domainerr.CodeRetryable, op, err)
	default:
		return domainerr.Wrap(domainerr.CodeInternal, op, err)
	}
}
