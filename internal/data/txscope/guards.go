package txscope

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/campus-backend/internal/domain/domainerr"
	"github.com/yungbote/campus-backend/internal/platform/dbctx"
)

// CASGuard provides optimistic concurrency helpers for versioned rows.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

// UpdateByVersion updates a row only when id+version match and bumps the
// version in the same statement. It reports whether a row was changed.
func (g CASGuard) UpdateByVersion(dbc dbctx.Context, table string, id uuid.UUID, expectedVersion int, updates map[string]any) (bool, error) {
	if dbc.Tx == nil && g.db == nil {
		return false, domainerr.New(domainerr.CodeInternal, "cas.update", "missing db handle", nil)
	}
	table = strings.TrimSpace(table)
	if table == "" || id == uuid.Nil {
		return false, domainerr.New(domainerr.CodeInternal, "cas.update", "table and id are required", nil)
	}
	if expectedVersion < 0 {
		return false, domainerr.Invalid("cas.update", "version", "expected version must be >= 0")
	}
	values := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		values[k] = v
	}
	values["version"] = gorm.Expr("version + 1")
	res := dbc.DB(g.db).Table(table).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RequireCASSuccess converts a failed compare-and-set into a typed conflict.
func RequireCASSuccess(op string, ok bool, message string) error {
	if ok {
		return nil
	}
	return domainerr.Conflict(op, strings.TrimSpace(message), nil)
}

// RequireVersionMatch checks a caller-supplied version for optimistic updates.
func RequireVersionMatch(op string, current, expected int) error {
	if expected < 0 {
		return domainerr.Invalid(op, "version", "expected version must be >= 0")
	}
	if current != expected {
		return domainerr.Conflict(op, "version mismatch", nil)
	}
	return nil
}
