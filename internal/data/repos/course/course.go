package course

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/campus-backend/internal/data/txscope"
	domain "github.com/yungbote/campus-backend/internal/domain/course"
	"github.com/yungbote/campus-backend/internal/domain/domainerr"
	"github.com/yungbote/campus-backend/internal/platform/dbctx"
	"github.com/yungbote/campus-backend/internal/platform/logger"
)

// CourseCriteria filters course queries. Zero values mean "no filter".
type CourseCriteria struct {
	IDs          []uuid.UUID
	NameContains string
	StartsAfter  *time.Time
	StartsBefore *time.Time
	RunningAt    *time.Time
	OrderBy      string
	Desc         bool
	Limit        int
	Offset       int
}

type CourseRepo interface {
	Save(dbc dbctx.Context, c *domain.Course) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Course, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Course, error)
	Query(dbc dbctx.Context, criteria CourseCriteria) ([]*domain.Course, error)
	Count(dbc dbctx.Context, criteria CourseCriteria) (int64, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type courseRepo struct {
	db    *gorm.DB
	log   *logger.Logger
	guard txscope.CASGuard
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	repoLog := baseLog.With("repo", "CourseRepo")
	return &courseRepo{db: db, log: repoLog, guard: txscope.NewCASGuard(db)}
}

// Save inserts a new course or updates an existing one when its version still
// matches the stored row. On update the in-memory version is bumped.
func (cr *courseRepo) Save(dbc dbctx.Context, c *domain.Course) error {
	if c == nil {
		return nil
	}
	if c.CreatedAt.IsZero() {
		if c.Version <= 0 {
			c.Version = 1
		}
		return dbc.DB(cr.db).Create(c).Error
	}

	now := time.Now().UTC()
	ok, err := cr.guard.UpdateByVersion(dbc, domain.Course{}.TableName(), c.ID, c.Version, map[string]any{
		"name":       c.Name,
		"slug":       c.Slug,
		"start_date": c.StartDate,
		"end_date":   c.EndDate,
		"capacity":   c.Capacity,
		"metadata":   c.Metadata,
		"updated_at": now,
	})
	if err != nil {
		return err
	}
	if err := txscope.RequireCASSuccess("course_repo.save", ok, "course was modified concurrently"); err != nil {
		cr.log.Warn("Course version conflict", "course_id", c.ID, "version", c.Version)
		return err
	}
	c.Version++
	c.UpdatedAt = now
	return nil
}

func (cr *courseRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Course, error) {
	var c domain.Course
	if err := dbc.DB(cr.db).Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerr.NotFound("course_repo.get", "course", id)
		}
		return nil, err
	}
	return &c, nil
}

func (cr *courseRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Course, error) {
	var results []*domain.Course
	if len(ids) == 0 {
		return results, nil
	}
	if err := dbc.DB(cr.db).
		Where("id IN ?", ids).
		Order("start_date ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *courseRepo) Query(dbc dbctx.Context, criteria CourseCriteria) ([]*domain.Course, error) {
	var results []*domain.Course
	q := applyCourseCriteria(dbc.DB(cr.db).Model(&domain.Course{}), criteria)
	q = q.Order(courseOrder(criteria))
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

// Count ignores paging and ordering.
func (cr *courseRepo) Count(dbc dbctx.Context, criteria CourseCriteria) (int64, error) {
	var n int64
	if err := applyCourseCriteria(dbc.DB(cr.db).Model(&domain.Course{}), criteria).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (cr *courseRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	res := dbc.DB(cr.db).Where("id = ?", id).Delete(&domain.Course{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainerr.NotFound("course_repo.delete", "course", id)
	}
	return nil
}

func applyCourseCriteria(q *gorm.DB, c CourseCriteria) *gorm.DB {
	if len(c.IDs) > 0 {
		q = q.Where("id IN ?", c.IDs)
	}
	if name := strings.ToLower(strings.TrimSpace(c.NameContains)); name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+name+"%")
	}
	if c.StartsAfter != nil {
		q = q.Where("start_date > ?", domain.Date(*c.StartsAfter))
	}
	if c.StartsBefore != nil {
		q = q.Where("start_date < ?", domain.Date(*c.StartsBefore))
	}
	if c.RunningAt != nil {
		day := domain.Date(*c.RunningAt)
		q = q.Where("start_date <= ? AND end_date > ?", day, day)
	}
	return q
}

func courseOrder(c CourseCriteria) string {
	col := "start_date"
	switch strings.ToLower(strings.TrimSpace(c.OrderBy)) {
	case "name":
		col = "name"
	case "created_at":
		col = "created_at"
	case "end_date":
		col = "end_date"
	}
	dir := "ASC"
	if c.Desc {
		dir = "DESC"
	}
	return col + " " + dir + ", id ASC"
}
