package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/yungbote/campus-backend/internal/domain/auth"
	"github.com/yungbote/campus-backend/internal/domain/domainerr"
	"github.com/yungbote/campus-backend/internal/platform/dbctx"
	"github.com/yungbote/campus-backend/internal/platform/logger"
)

type UserTokenRepo interface {
	Save(dbc dbctx.Context, t *domain.UserToken) error
	GetByRefreshToken(dbc dbctx.Context, refreshToken string) (*domain.UserToken, error)
	DeleteByUser(dbc dbctx.Context, userID uuid.UUID) error
}

type userTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	repoLog := baseLog.With("repo", "UserTokenRepo")
	return &userTokenRepo{db: db, log: repoLog}
}

func (utr *userTokenRepo) Save(dbc dbctx.Context, t *domain.UserToken) error {
	if t == nil {
		return nil
	}
	if t.PreviousToken != "" {
		return utr.rotate(dbc, t)
	}
	var existing int64
	if err := dbc.DB(utr.db).Model(&domain.UserToken{}).Where("id = ?", t.ID).Count(&existing).Error; err != nil {
		return err
	}
	if existing == 0 {
		return dbc.DB(utr.db).Create(t).Error
	}
	return dbc.DB(utr.db).Save(t).Error
}

// rotate replaces the refresh token only while the row still holds the one
// the caller read, so a replayed token loses to whoever rotated first.
func (utr *userTokenRepo) rotate(dbc dbctx.Context, t *domain.UserToken) error {
	res := dbc.DB(utr.db).Model(&domain.UserToken{}).
		Where("id = ? AND refresh_token = ?", t.ID, t.PreviousToken).
		Updates(map[string]interface{}{
			"refresh_token": t.RefreshToken,
			"expires_at":    t.ExpiresAt,
			"rotated_at":    t.RotatedAt,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainerr.Conflict("user_token_repo.rotate", "refresh token was already used", nil)
	}
	t.PreviousToken = ""
	return nil
}

func (utr *userTokenRepo) GetByRefreshToken(dbc dbctx.Context, refreshToken string) (*domain.UserToken, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	var t domain.UserToken
	if err := dbc.DB(utr.db).Where("refresh_token = ?", refreshToken).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerr.New(domainerr.CodeNotFound, "user_token_repo.get", "refresh token not found", nil)
		}
		return nil, err
	}
	return &t, nil
}

func (utr *userTokenRepo) DeleteByUser(dbc dbctx.Context, userID uuid.UUID) error {
	return dbc.DB(utr.db).Where("user_id = ?", userID).Delete(&domain.UserToken{}).Error
}
