package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.AccessTokenTTL != time.Hour {
		t.Fatalf("access ttl: want=1h got=%s", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Auth.RefreshTokenTTL != 24*time.Hour {
		t.Fatalf("refresh ttl: want=24h got=%s", cfg.Auth.RefreshTokenTTL)
	}
	if cfg.Dispatch.Backend != "inproc" {
		t.Fatalf("dispatch backend: want=inproc got=%s", cfg.Dispatch.Backend)
	}
	if len(cfg.CORSAllowOrigins) != 2 {
		t.Fatalf("cors origins: %v", cfg.CORSAllowOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REFRESH_TOKEN_TTL", "2h")
	t.Setenv("DB_DRIVER", "sqlite")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.RefreshTokenTTL != 2*time.Hour {
		t.Fatalf("refresh ttl: want=2h got=%s", cfg.Auth.RefreshTokenTTL)
	}
	if cfg.DB.Driver != "sqlite" {
		t.Fatalf("driver: got=%s", cfg.DB.Driver)
	}
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "many")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestCheckRejectsRedisWithoutAddr(t *testing.T) {
	t.Setenv("DISPATCH_BACKEND", "redis")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for redis backend without REDIS_ADDR")
	}
}

func TestCheckRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
