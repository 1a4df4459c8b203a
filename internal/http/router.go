package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/campus-backend/internal/http/handlers"
	httpMW "github.com/yungbote/campus-backend/internal/http/middleware"
	"github.com/yungbote/campus-backend/internal/observability"
	"github.com/yungbote/campus-backend/internal/platform/logger"
	"github.com/yungbote/campus-backend/internal/platform/ratelimiter"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Metrics     *observability.Metrics
	Limiter     *ratelimiter.MapLimiter
	// Now drives the rate limiter; defaults to time.Now.
	Now func() time.Time

	AuthHandler    *httpH.AuthHandler
	AuthMiddleware *httpMW.AuthMiddleware
	UserHandler    *httpH.UserHandler
	CourseHandler  *httpH.CourseHandler
	HealthHandler  *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Log == nil {
		cfg.Log = logger.NewNop()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "campus"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMW.TraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	api.Use(httpMW.RateLimit(cfg.Limiter, cfg.Now))
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/auth/login", cfg.AuthHandler.Login)
			api.POST("/auth/refresh", cfg.AuthHandler.Refresh)
		}

		if cfg.UserHandler != nil {
			api.POST("/users", cfg.UserHandler.Create)
			api.GET("/users/:id", cfg.UserHandler.Get)
			api.GET("/users/:id/courses", cfg.UserHandler.Courses)
			api.DELETE("/users/:id", cfg.UserHandler.Delete)
		}

		if cfg.CourseHandler != nil {
			api.GET("/courses", cfg.CourseHandler.List)
			api.GET("/courses/:id", cfg.CourseHandler.Get)
			api.POST("/courses", cfg.CourseHandler.Create)
			api.PATCH("/courses/:id", cfg.CourseHandler.Update)
			api.DELETE("/courses/:id", cfg.CourseHandler.Delete)
			api.GET("/courses/:id/enrollments", cfg.CourseHandler.Enrollments)
			api.POST("/courses/:id/enrollments", cfg.CourseHandler.Enroll)
			api.DELETE("/courses/:id/enrollments/:user_id", cfg.CourseHandler.Unenroll)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}
		if cfg.AuthHandler != nil {
			protected.POST("/logout", cfg.AuthHandler.Logout)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "route not found", "code": "not_found"}})
	})
	return r
}
