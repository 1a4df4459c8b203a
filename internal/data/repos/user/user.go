package user

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/campus-backend/internal/domain/domainerr"
	domain "github.com/yungbote/campus-backend/internal/domain/user"
	"github.com/yungbote/campus-backend/internal/platform/dbctx"
	"github.com/yungbote/campus-backend/internal/platform/logger"
)

type UserCriteria struct {
	IDs        []uuid.UUID
	Search     string
	ActiveOnly bool
	Limit      int
	Offset     int
}

type UserRepo interface {
	Save(dbc dbctx.Context, u *domain.User) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(dbc dbctx.Context, email string) (*domain.User, error)
	Query(dbc dbctx.Context, criteria UserCriteria) ([]*domain.User, error)
	Count(dbc dbctx.Context, criteria UserCriteria) (int64, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (ur *userRepo) Save(dbc dbctx.Context, u *domain.User) error {
	if u == nil {
		return nil
	}
	if u.CreatedAt.IsZero() {
		return dbc.DB(ur.db).Create(u).Error
	}
	return dbc.DB(ur.db).Save(u).Error
}

func (ur *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := dbc.DB(ur.db).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerr.NotFound("user_repo.get", "user", id)
		}
		return nil, err
	}
	return &u, nil
}

func (ur *userRepo) GetByEmail(dbc dbctx.Context, email string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	var u domain.User
	if err := dbc.DB(ur.db).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerr.NotFound("user_repo.get_by_email", "user", email)
		}
		return nil, err
	}
	return &u, nil
}

func (ur *userRepo) Query(dbc dbctx.Context, criteria UserCriteria) ([]*domain.User, error) {
	var results []*domain.User
	q := applyUserCriteria(dbc.DB(ur.db).Model(&domain.User{}), criteria).
		Order("last_name ASC, first_name ASC, id ASC")
	if criteria.Limit > 0 {
		q = q.Limit(criteria.Limit)
	}
	if criteria.Offset > 0 {
		q = q.Offset(criteria.Offset)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *userRepo) Count(dbc dbctx.Context, criteria UserCriteria) (int64, error) {
	var n int64
	if err := applyUserCriteria(dbc.DB(ur.db).Model(&domain.User{}), criteria).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (ur *userRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	res := dbc.DB(ur.db).Where("id = ?", id).Delete(&domain.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainerr.NotFound("user_repo.delete", "user", id)
	}
	return nil
}

func applyUserCriteria(q *gorm.DB, c UserCriteria) *gorm.DB {
	if len(c.IDs) > 0 {
		q = q.Where("id IN ?", c.IDs)
	}
	if s := strings.ToLower(strings.TrimSpace(c.Search)); s != "" {
		like := "%" + s + "%"
		q = q.Where("LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", like, like, like)
	}
	if c.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	return q
}
