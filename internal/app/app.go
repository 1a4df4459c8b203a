package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/campus-backend/internal/data/db"
	"github.com/yungbote/campus-backend/internal/data/repos"
	"github.com/yungbote/campus-backend/internal/data/txscope"
	campushttp "github.com/yungbote/campus-backend/internal/http"
	"github.com/yungbote/campus-backend/internal/observability"
	"github.com/yungbote/campus-backend/internal/platform/config"
	"github.com/yungbote/campus-backend/internal/platform/logger"
	"github.com/yungbote/campus-backend/internal/selectors"
	"github.com/yungbote/campus-backend/internal/services"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	Log       *logger.Logger
	DB        *gorm.DB
	Cfg       config.Config
	Metrics   *observability.Metrics
	Repos     repos.Set
	Selectors Selectors
	Services  services.Services
	Server    *campushttp.Server

	dispatch     Dispatch
	otelShutdown func(context.Context) error
}

type Selectors struct {
	Courses selectors.CourseSelector
	Users   selectors.UserSelector
}

// New loads configuration from the environment and wires the process.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode, logger.WithRedaction(cfg.LogRedaction), logger.WithHashSalt(cfg.LogHashSalt))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a, err := NewWithConfig(ctx, cfg, log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}

// NewWithConfig wires config -> otel -> db -> repos -> selectors -> services ->
// dispatcher/worker -> router.
func NewWithConfig(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.NewNop()
	}
	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel, observability.ServiceInfo{
		Name:        cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.ServiceVersion,
	})

	theDB, err := db.Open(cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}
	if cfg.DB.AutoMigrate {
		log.Info("Running auto migration...")
		if err := db.AutoMigrateAll(theDB); err != nil {
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}

	metrics := observability.NewMetrics()
	if err := metrics.RegisterDBStats(theDB, cfg.ServiceName); err != nil {
		log.Warn("DB stats collector not registered", "error", err)
	}

	reposet := repos.NewSet(theDB, log)
	runner := txscope.NewRunner(theDB, log, metrics)
	selectorset := Selectors{
		Courses: selectors.NewCourseSelector(log, reposet, nil),
		Users:   selectors.NewUserSelector(log, reposet, nil),
	}

	dispatch, err := wireDispatch(ctx, log, cfg, metrics)
	if err != nil {
		return nil, err
	}

	serviceset := services.New(services.Deps{
		Log:      log,
		Runner:   runner,
		Repos:    reposet,
		Courses:  selectorset.Courses,
		Users:    selectorset.Users,
		Deferred: services.Deferred{Dispatcher: dispatch.Dispatcher, Hooks: metrics, Log: log},
		Config:   services.ConfigFromAuth(cfg.Auth, cfg.ServiceName),
	})

	server := wireServer(log, cfg, theDB, metrics, serviceset, selectorset)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Metrics:      metrics,
		Repos:        reposet,
		Selectors:    selectorset,
		Services:     serviceset,
		Server:       server,
		dispatch:     dispatch,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP and drains deferred work until ctx is cancelled or one of
// them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, start := range a.dispatch.Collectors {
		start(gctx)
	}
	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTPAddr)
		return a.Server.Run(gctx, shutdownTimeout)
	})
	for _, bg := range a.dispatch.Background {
		bg := bg
		g.Go(func() error { return bg(gctx) })
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) Close() {
	if a == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, closer := range a.dispatch.Closers {
		closer()
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("OTel shutdown failed", "error", err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	a.Log.Sync()
}
