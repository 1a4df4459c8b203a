package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/campus-backend/internal/domain/validation"
)

const (
	RuleTokenUser          = "token_user_required"
	RuleTokenRefresh       = "refresh_token_required"
	RuleTokenExpiryOrdered = "expires_after_created"
)

// UserToken is a persisted refresh credential. Access tokens are stateless JWTs
// and are never stored.
type UserToken struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	RefreshToken string    `gorm:"not null;uniqueIndex" json:"-"`
	ExpiresAt    time.Time `gorm:"not null" json:"expires_at"`
	RotatedAt    time.Time `json:"rotated_at"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`

	// PreviousToken is the stored refresh token a pending rotation replaces.
	PreviousToken string `gorm:"-" json:"-"`
}

func (UserToken) TableName() string { return "user_token" }

var pipeline = validation.NewPipeline(
	validation.Rule[*UserToken]{
		Name: RuleTokenUser, Field: "user_id", Reason: "user is required",
		Check: func(t *UserToken) bool { return t.UserID != uuid.Nil },
	},
	validation.Rule[*UserToken]{
		Name: RuleTokenRefresh, Field: "refresh_token", Reason: "refresh token is required",
		Check: func(t *UserToken) bool { return strings.TrimSpace(t.RefreshToken) != "" },
	},
	validation.Rule[*UserToken]{
		Name: RuleTokenExpiryOrdered, Field: "expires_at", Reason: "expiry must be after creation",
		Check: func(t *UserToken) bool { return t.ExpiresAt.After(t.CreatedAt) },
	},
)

func (t *UserToken) Validate() validation.Result {
	if t == nil {
		return validation.Check(nil)
	}
	return pipeline.Validate(t)
}

// NewUserToken issues a fresh refresh credential for userID valid for ttl.
func NewUserToken(userID uuid.UUID, ttl time.Duration, now time.Time) *UserToken {
	now = now.UTC()
	return &UserToken{
		ID:           uuid.New(),
		UserID:       userID,
		RefreshToken: newRefreshToken(),
		ExpiresAt:    now.Add(ttl),
		RotatedAt:    now,
		CreatedAt:    now,
	}
}

// Refresh rotates the refresh token and pushes the expiry to now+ttl.
// A non-positive ttl leaves the previous expiry so the token stays valid.
func (t *UserToken) Refresh(ttl time.Duration, now time.Time) {
	now = now.UTC()
	if t.PreviousToken == "" {
		t.PreviousToken = t.RefreshToken
	}
	t.RefreshToken = newRefreshToken()
	t.RotatedAt = now
	if ttl > 0 {
		t.ExpiresAt = now.Add(ttl)
	}
}

func (t *UserToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Within reports whether the token is still usable, allowing grace past expiry.
func (t *UserToken) Within(grace time.Duration, now time.Time) bool {
	if grace < 0 {
		grace = 0
	}
	return now.Before(t.ExpiresAt.Add(grace))
}

func newRefreshToken() string {
	return uuid.New().String()
}
