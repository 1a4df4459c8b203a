// Package dbtest opens throwaway migrated databases for tests.
package dbtest

import (
	"path/filepath"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/campus-backend/internal/data/db"
	"github.com/yungbote/campus-backend/internal/platform/logger"
)

// Open returns a migrated SQLite database stored under t.TempDir().
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "campus_test.db")
	gdb, err := gorm.Open(sqlite.Open(db.SQLiteDSN(path)), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   db.NewGormLogger(logger.NewNop()),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrateAll(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// WriteCounter counts create, update and delete statements issued through a gorm handle.
type WriteCounter struct {
	creates atomic.Int64
	updates atomic.Int64
	deletes atomic.Int64
	raw     atomic.Int64
}

// CountWrites registers callbacks on gdb. Register once per handle.
func CountWrites(t testing.TB, gdb *gorm.DB) *WriteCounter {
	t.Helper()
	wc := &WriteCounter{}
	cb := gdb.Callback()
	if err := cb.Create().Before("gorm:create").Register("dbtest:count_create", func(*gorm.DB) { wc.creates.Add(1) }); err != nil {
		t.Fatalf("register create callback: %v", err)
	}
	if err := cb.Update().Before("gorm:update").Register("dbtest:count_update", func(*gorm.DB) { wc.updates.Add(1) }); err != nil {
		t.Fatalf("register update callback: %v", err)
	}
	if err := cb.Delete().Before("gorm:delete").Register("dbtest:count_delete", func(*gorm.DB) { wc.deletes.Add(1) }); err != nil {
		t.Fatalf("register delete callback: %v", err)
	}
	if err := cb.Raw().Before("gorm:raw").Register("dbtest:count_raw", func(*gorm.DB) { wc.raw.Add(1) }); err != nil {
		t.Fatalf("register raw callback: %v", err)
	}
	return wc
}

func (w *WriteCounter) Creates() int64 { return w.creates.Load() }
func (w *WriteCounter) Updates() int64 { return w.updates.Load() }
func (w *WriteCounter) Deletes() int64 { return w.deletes.Load() }

// Total is every write, including raw Exec statements.
func (w *WriteCounter) Total() int64 {
	return w.creates.Load() + w.updates.Load() + w.deletes.Load() + w.raw.Load()
}

func (w *WriteCounter) Reset() {
	w.creates.Store(0)
	w.updates.Store(0)
	w.deletes.Store(0)
	w.raw.Store(0)
}
