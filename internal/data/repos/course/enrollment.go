package course

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/yungbote/campus-backend/internal/domain/course"
	"github.com/yungbote/campus-backend/internal/domain/domainerr"
	"github.com/yungbote/campus-backend/internal/platform/dbctx"
	"github.com/yungbote/campus-backend/internal/platform/logger"
)

type EnrollmentRepo interface {
	Save(dbc dbctx.Context, e *domain.Enrollment) error
	GetByCourseAndUser(dbc dbctx.Context, courseID, userID uuid.UUID) (*domain.Enrollment, error)
	ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*domain.Enrollment, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*domain.Enrollment, error)
	CountByCourses(dbc dbctx.Context, courseIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
	DeleteByCourse(dbc dbctx.Context, courseID uuid.UUID) error
	DeleteByUser(dbc dbctx.Context, userID uuid.UUID) error
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	repoLog := baseLog.With("repo", "EnrollmentRepo")
	return &enrollmentRepo{db: db, log: repoLog}
}

// Save inserts the enrollment. Enrollments are immutable once stored.
func (er *enrollmentRepo) Save(dbc dbctx.Context, e *domain.Enrollment) error {
	if e == nil {
		return nil
	}
	return dbc.DB(er.db).Create(e).Error
}

func (er *enrollmentRepo) GetByCourseAndUser(dbc dbctx.Context, courseID, userID uuid.UUID) (*domain.Enrollment, error) {
	var e domain.Enrollment
	if err := dbc.DB(er.db).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerr.NotFound("enrollment_repo.get", "enrollment", courseID.String()+"/"+userID.String())
		}
		return nil, err
	}
	return &e, nil
}

func (er *enrollmentRepo) ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*domain.Enrollment, error) {
	var results []*domain.Enrollment
	if err := dbc.DB(er.db).
		Where("course_id = ?", courseID).
		Order("created_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (er *enrollmentRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*domain.Enrollment, error) {
	var results []*domain.Enrollment
	if err := dbc.DB(er.db).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// CountByCourses counts enrollments for many courses in one grouped query.
// Courses without enrollments are present with a zero count.
func (er *enrollmentRepo) CountByCourses(dbc dbctx.Context, courseIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(courseIDs))
	if len(courseIDs) == 0 {
		return out, nil
	}
	for _, id := range courseIDs {
		out[id] = 0
	}
	var rows []struct {
		CourseID uuid.UUID
		N        int64
	}
	if err := dbc.DB(er.db).
		Model(&domain.Enrollment{}).
		Select("course_id, COUNT(*) AS n").
		Where("course_id IN ?", courseIDs).
		Group("course_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.CourseID] = r.N
	}
	return out, nil
}

func (er *enrollmentRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	res := dbc.DB(er.db).Where("id = ?", id).Delete(&domain.Enrollment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainerr.NotFound("enrollment_repo.delete", "enrollment", id)
	}
	return nil
}

func (er *enrollmentRepo) DeleteByCourse(dbc dbctx.Context, courseID uuid.UUID) error {
	return dbc.DB(er.db).Where("course_id = ?", courseID).Delete(&domain.Enrollment{}).Error
}

func (er *enrollmentRepo) DeleteByUser(dbc dbctx.Context, userID uuid.UUID) error {
	return dbc.DB(er.db).Where("user_id = ?", userID).Delete(&domain.Enrollment{}).Error
}
