package user

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/campus-backend/internal/domain/domainerr"
	domain "github.com/yungbote/campus-backend/internal/domain/user"
	"github.com/yungbote/campus-backend/internal/platform/dbctx"
	"github.com/yungbote/campus-backend/internal/platform/logger"
)

type ProfileRepo interface {
	Save(dbc dbctx.Context, p *domain.Profile) error
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*domain.Profile, error)
	DeleteByUserID(dbc dbctx.Context, userID uuid.UUID) error
}

type profileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	repoLog := baseLog.With("repo", "ProfileRepo")
	return &profileRepo{db: db, log: repoLog}
}

func (pr *profileRepo) Save(dbc dbctx.Context, p *domain.Profile) error {
	if p == nil {
		return nil
	}
	if p.CreatedAt.IsZero() {
		return dbc.DB(pr.db).Create(p).Error
	}
	return dbc.DB(pr.db).Save(p).Error
}

func (pr *profileRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*domain.Profile, error) {
	var p domain.Profile
	if err := dbc.DB(pr.db).Where("user_id = ?", userID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerr.NotFound("profile_repo.get", "profile", userID)
		}
		return nil, err
	}
	return &p, nil
}

func (pr *profileRepo) DeleteByUserID(dbc dbctx.Context, userID uuid.UUID) error {
	return dbc.DB(pr.db).Where("user_id = ?", userID).Delete(&domain.Profile{}).Error
}
