package app

import (
	"context"

	"gorm.io/gorm"

	campushttp "github.com/yungbote/campus-backend/internal/http"
	httpH "github.com/yungbote/campus-backend/internal/http/handlers"
	httpMW "github.com/yungbote/campus-backend/internal/http/middleware"
	"github.com/yungbote/campus-backend/internal/observability"
	"github.com/yungbote/campus-backend/internal/platform/config"
	"github.com/yungbote/campus-backend/internal/platform/logger"
	"github.com/yungbote/campus-backend/internal/platform/ratelimiter"
	"github.com/yungbote/campus-backend/internal/services"
)

func wireServer(
	log *logger.Logger,
	cfg config.Config,
	theDB *gorm.DB,
	metrics *observability.Metrics,
	serviceset services.Services,
	selectorset Selectors,
) *campushttp.Server {
	log.Info("Wiring handlers...")
	ping := func(ctx context.Context) error {
		sqlDB, err := theDB.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
	return campushttp.NewServer(cfg.HTTPAddr, campushttp.RouterConfig{
		Log:            log,
		ServiceName:    cfg.ServiceName,
		CORSOrigins:    cfg.CORSAllowOrigins,
		Metrics:        metrics,
		Limiter:        ratelimiter.New(cfg.Limits.RPS, cfg.Limits.Burst, cfg.Limits.IdleTTL),
		HealthHandler:  httpH.NewHealthHandler(ping),
		AuthHandler:    httpH.NewAuthHandler(serviceset.Auth),
		AuthMiddleware: httpMW.NewAuthMiddleware(log, serviceset.Auth),
		UserHandler:    httpH.NewUserHandler(log, serviceset.Users, selectorset.Users),
		CourseHandler:  httpH.NewCourseHandler(log, serviceset.Courses, serviceset.Enrollments, selectorset.Courses),
	})
}
