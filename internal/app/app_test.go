package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/campus-backend/internal/jobs"
	"github.com/yungbote/campus-backend/internal/platform/config"
	"github.com/yungbote/campus-backend/internal/platform/logger"
	"github.com/yungbote/campus-backend/internal/services"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		LogMode:     "development",
		HTTPAddr:    "127.0.0.1:0",
		ServiceName: "campus-test",
		DB: config.DBConfig{
			Driver:      "sqlite",
			SQLitePath:  filepath.Join(t.TempDir(), "app.db"),
			AutoMigrate: true,
			MaxOpen:     4,
		},
		Auth: config.AuthConfig{
			JWTSecretKey:    "app-test",
			AccessTokenTTL:  time.Minute,
			RefreshTokenTTL: time.Hour,
		},
		Dispatch: config.DispatchConfig{Backend: "inproc", QueueSize: 8},
		Worker:   config.WorkerConfig{Concurrency: 1, MaxAttempts: 2, RetryDelay: 10 * time.Millisecond},
		Limits:   config.RateLimitConfig{RPS: 10, Burst: 10},
	}
}

func TestNewWithConfigWiresAndShutsDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := NewWithConfig(ctx, testConfig(t), logger.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()

	if a.dispatch.Backend != "inproc" {
		t.Fatalf("backend: want=inproc got=%s", a.dispatch.Backend)
	}
	if kinds := a.dispatch.Registry.Kinds(); len(kinds) != 2 {
		t.Fatalf("registered kinds: want=2 got=%v", kinds)
	}

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	u, err := a.Services.Users.Create(ctx, services.UserCreateInput{
		Email: "app@example.com", FirstName: "App", LastName: "Test", Password: "long-enough",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	view, err := a.Selectors.Users.Get(ctx, u.ID)
	if err != nil || view.User.Email != "app@example.com" {
		t.Fatalf("read back: view=%+v err=%v", view, err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: want=nil got=%v", err)
		}
	case <-time.After(20 * time.Second):
		t.Fatalf("run did not return after cancel")
	}
}

func TestWireDispatchRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dispatch.Backend = "carrier-pigeon"
	if _, err := wireDispatch(context.Background(), logger.NewNop(), cfg, nil); err == nil {
		t.Fatalf("expected an error for an unknown backend")
	}
}

func TestWireDispatchRedisNeedsAddress(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dispatch.Backend = "redis"
	if _, err := wireDispatch(context.Background(), logger.NewNop(), cfg, nil); err == nil {
		t.Fatalf("expected an error without REDIS_ADDR")
	}
}

func TestWireMailerSelectsBackend(t *testing.T) {
	log := logger.NewNop()
	m, err := wireMailer(log, config.MailConfig{From: "a@campus.local"})
	if err != nil {
		t.Fatalf("log mailer: %v", err)
	}
	if _, ok := m.(*jobs.LogMailer); !ok {
		t.Fatalf("mailer: want=*jobs.LogMailer got=%T", m)
	}
	m, err = wireMailer(log, config.MailConfig{From: "a@campus.local", SendGridAPIKey: "sg-key", SendGridTimeout: time.Second})
	if err != nil {
		t.Fatalf("sendgrid mailer: %v", err)
	}
	if _, ok := m.(*jobs.SendGridMailer); !ok {
		t.Fatalf("mailer: want=*jobs.SendGridMailer got=%T", m)
	}
}
