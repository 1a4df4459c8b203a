package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
// Repositories prefer Tx when set and fall back to their base handle otherwise.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// DB returns the handle a repository should run statements on.
func (c Context) DB(base *gorm.DB) *gorm.DB {
	db := c.Tx
	if db == nil {
		db = base
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return db.WithContext(ctx)
}
