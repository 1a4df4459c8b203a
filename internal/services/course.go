package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"

	"github.com/yungbote/campus-backend/internal/data/repos"
	"github.com/yungbote/campus-backend/internal/data/txscope"
	"github.com/yungbote/campus-backend/internal/domain/course"
	"github.com/yungbote/campus-backend/internal/domain/domainerr"
	"github.com/yungbote/campus-backend/internal/platform/logger"
	"github.com/yungbote/campus-backend/internal/selectors"
)

type CourseCreateInput struct {
	Name      string
	Slug      string
	StartDate time.Time
	EndDate   time.Time
	Capacity  int
	Metadata  datatypes.JSON
}

// CourseUpdateInput changes only the fields that are set. ExpectedVersion,
// when set, must match the stored version.
type CourseUpdateInput struct {
	Name            *string
	StartDate       *time.Time
	EndDate         *time.Time
	Capacity        *int
	ExpectedVersion *int
}

type CourseService interface {
	Create(ctx context.Context, in CourseCreateInput) (*course.Course, error)
	Update(ctx context.Context, id uuid.UUID, in CourseUpdateInput) (*course.Course, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type courseService struct {
	log     *logger.Logger
	runner  txscope.Runner
	repos   repos.Set
	courses selectors.CourseSelector
}

func NewCourseService(log *logger.Logger, runner txscope.Runner, set repos.Set, courses selectors.CourseSelector) CourseService {
	serviceLog := log.With("service", "CourseService")
	return &courseService{
		log:     serviceLog,
		runner:  runner,
		repos:   set,
		courses: courses,
	}
}

func (cs *courseService) Create(ctx context.Context, in CourseCreateInput) (_ *course.Course, err error) {
	const op = "course.create"
	ctx, span := startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	c := course.New(in.Name, in.Slug, in.StartDate, in.EndDate, in.Capacity)
	c.Metadata = in.Metadata
	if err := validate(op, c); err != nil {
		return nil, err
	}
	if err := cs.runner.InTx(ctx, op, func(ctx context.Context) error {
		return commit(ctx, op, c, cs.repos.Courses.Save)
	}); err != nil {
		return nil, err
	}
	cs.log.Info("Course created", "course_id", c.ID, "slug", c.Slug)
	return c, nil
}

func (cs *courseService) Update(ctx context.Context, id uuid.UUID, in CourseUpdateInput) (_ *course.Course, err error) {
	const op = "course.update"
	ctx, span := startSpan(ctx, op, attribute.String("course_id", id.String()))
	defer func() { endSpan(span, err) }()

	var updated *course.Course
	err = cs.runner.InTx(ctx, op, func(ctx context.Context) error {
		view, err := cs.courses.Get(ctx, id)
		if err != nil {
			return err
		}
		c := view.Course
		if in.ExpectedVersion != nil {
			if err := txscope.RequireVersionMatch(op, c.Version, *in.ExpectedVersion); err != nil {
				return err
			}
		}
		if in.Name != nil {
			c.Rename(*in.Name)
		}
		start, end := c.StartDate, c.EndDate
		if in.StartDate != nil {
			start = *in.StartDate
		}
		if in.EndDate != nil {
			end = *in.EndDate
		}
		c.Reschedule(start, end)
		if in.Capacity != nil {
			c.SetCapacity(*in.Capacity)
			if err := cs.checkCapacity(ctx, op, c); err != nil {
				return err
			}
		}
		if err := commit(ctx, op, c, cs.repos.Courses.Save); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// checkCapacity rejects a capacity below the number of current enrollments.
// The count is safe against concurrent enrolls because both paths save the
// course row under its version.
func (cs *courseService) checkCapacity(ctx context.Context, op string, c *course.Course) error {
	if c.Unlimited() || c.Capacity < 0 {
		return nil
	}
	counts, err := cs.courses.EnrollmentCounts(ctx, []uuid.UUID{c.ID})
	if err != nil {
		return err
	}
	if counts[c.ID] > int64(c.Capacity) {
		return domainerr.Invalid(op, "capacity", "capacity is below the number of enrolled users")
	}
	return nil
}

// Delete removes the course and its enrollments in one scope.
func (cs *courseService) Delete(ctx context.Context, id uuid.UUID) (err error) {
	const op = "course.delete"
	ctx, span := startSpan(ctx, op, attribute.String("course_id", id.String()))
	defer func() { endSpan(span, err) }()

	err = cs.runner.InTx(ctx, op, func(ctx context.Context) error {
		if _, err := cs.courses.Get(ctx, id); err != nil {
			return err
		}
		if err := remove(ctx, op, id, cs.repos.Enrollments.DeleteByCourse); err != nil {
			return err
		}
		return remove(ctx, op, id, cs.repos.Courses.Delete)
	})
	if err == nil {
		cs.log.Info("Course deleted", "course_id", id)
	}
	return err
}
