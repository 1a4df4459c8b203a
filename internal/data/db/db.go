package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/campus-backend/internal/platform/config"
	"github.com/yungbote/campus-backend/internal/platform/logger"
)

// Open connects to the configured engine. Driver errors are translated into gorm
// sentinels (ErrDuplicatedKey and friends) so the data layer can classify them.
func Open(cfg config.DBConfig, log *logger.Logger) (*gorm.DB, error) {
	if log == nil {
		log = logger.NewNop()
	}
	dbLog := log.With("service", "Database")

	var dialector gorm.Dialector
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "postgres":
		dialector = postgres.Open(cfg.PostgresDSN)
	case "sqlite":
		dialector = sqlite.Open(SQLiteDSN(cfg.SQLitePath))
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   NewGormLogger(dbLog),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	if cfg.MaxOpen > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	}
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	dbLog.Info("Database connected", "driver", driver)
	return db, nil
}

// SQLiteDSN enables WAL and a busy timeout so readers and a writer can overlap.
func SQLiteDSN(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "campus.db"
	}
	return "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
}

// NewGormLogger bridges gorm's statement logger into zap at Warn level.
func NewGormLogger(log *logger.Logger) gormLogger.Interface {
	return gormLogger.New(
		gormWriter{log: log},
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

type gormWriter struct {
	log *logger.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
