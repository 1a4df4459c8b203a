package services

import (
	"strings"
	"time"

	"github.com/yungbote/campus-backend/internal/platform/config"
)

// Config holds the knobs services need at construction. Nothing in this
// package reads the environment.
type Config struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	RefreshGrace    time.Duration
	JWTSecret       string
	Issuer          string
	Now             func() time.Time
}

func ConfigFromAuth(auth config.AuthConfig, issuer string) Config {
	return Config{
		AccessTokenTTL:  auth.AccessTokenTTL,
		RefreshTokenTTL: auth.RefreshTokenTTL,
		RefreshGrace:    auth.RefreshGrace,
		JWTSecret:       auth.JWTSecretKey,
		Issuer:          strings.TrimSpace(issuer),
	}
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}
