package services

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/campus-backend/internal/data/repos"
	"github.com/yungbote/campus-backend/internal/data/txscope"
	"github.com/yungbote/campus-backend/internal/domain/course"
	"github.com/yungbote/campus-backend/internal/domain/domainerr"
	"github.com/yungbote/campus-backend/internal/domain/validation"
	"github.com/yungbote/campus-backend/internal/jobs"
	"github.com/yungbote/campus-backend/internal/platform/logger"
	"github.com/yungbote/campus-backend/internal/selectors"
)

type EnrollmentService interface {
	Enroll(ctx context.Context, courseID, userID uuid.UUID) (*course.Enrollment, error)
	Unenroll(ctx context.Context, courseID, userID uuid.UUID) error
	// EnrollMany enrolls every user or none of them.
	EnrollMany(ctx context.Context, courseID uuid.UUID, userIDs []uuid.UUID) ([]*course.Enrollment, error)
}

type enrollmentService struct {
	log      *logger.Logger
	runner   txscope.Runner
	repos    repos.Set
	courses  selectors.CourseSelector
	users    selectors.UserSelector
	deferred Deferred
}

func NewEnrollmentService(
	log *logger.Logger,
	runner txscope.Runner,
	set repos.Set,
	courses selectors.CourseSelector,
	users selectors.UserSelector,
	deferred Deferred,
) EnrollmentService {
	serviceLog := log.With("service", "EnrollmentService")
	return &enrollmentService{
		log:      serviceLog,
		runner:   runner,
		repos:    set,
		courses:  courses,
		users:    users,
		deferred: deferred,
	}
}

func (es *enrollmentService) Enroll(ctx context.Context, courseID, userID uuid.UUID) (_ *course.Enrollment, err error) {
	const op = "enrollment.enroll"
	ctx, span := startSpan(ctx, op,
		attribute.String("course_id", courseID.String()),
		attribute.String("user_id", userID.String()),
	)
	defer func() { endSpan(span, err) }()

	var enrolled *course.Enrollment
	err = es.runner.InTx(ctx, op, func(ctx context.Context) error {
		view, err := es.courses.Get(ctx, courseID)
		if err != nil {
			return err
		}
		if view.HasFinished {
			return domainerr.Invalid(op, validation.Global, "course has already finished")
		}
		member, err := es.users.Get(ctx, userID)
		if err != nil {
			return err
		}
		if !member.User.IsActive {
			return domainerr.Invalid(op, "user_id", "user is not active")
		}
		if _, err := es.courses.Enrollment(ctx, courseID, userID); err == nil {
			return domainerr.Conflict(op, "user is already enrolled", nil)
		} else if !domainerr.IsCode(err, domainerr.CodeNotFound) {
			return err
		}
		// Claiming a seat bumps the course version, so a concurrent enroll or
		// capacity change on the same course fails with a conflict.
		if err := commit(ctx, op, view.Course, es.repos.Courses.Save); err != nil {
			return err
		}
		left, err := es.courses.SeatsLeft(ctx, courseID)
		if err != nil {
			return err
		}
		if left == 0 {
			return domainerr.Conflict(op, "course is full", nil)
		}

		e := course.NewEnrollment(courseID, userID)
		if err := commit(ctx, op, e, es.repos.Enrollments.Save); err != nil {
			return err
		}
		es.deferred.schedule(ctx, jobs.KindEnrollmentConfirmation, jobs.EnrollmentConfirmationPayload{
			EnrollmentID: e.ID,
			CourseID:     courseID,
			CourseName:   view.Course.Name,
			StartDate:    view.Course.StartDate,
			UserID:       userID,
			Email:        member.User.Email,
		})
		txscope.Active(ctx).AfterCommit(func(context.Context) {
			es.log.Info("User enrolled", "course_id", courseID, "user_id", userID)
		})
		enrolled = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return enrolled, nil
}

func (es *enrollmentService) Unenroll(ctx context.Context, courseID, userID uuid.UUID) (err error) {
	const op = "enrollment.unenroll"
	ctx, span := startSpan(ctx, op, attribute.String("course_id", courseID.String()))
	defer func() { endSpan(span, err) }()

	return es.runner.InTx(ctx, op, func(ctx context.Context) error {
		e, err := es.courses.Enrollment(ctx, courseID, userID)
		if err != nil {
			return err
		}
		return remove(ctx, op, e.ID, es.repos.Enrollments.Delete)
	})
}

func (es *enrollmentService) EnrollMany(ctx context.Context, courseID uuid.UUID, userIDs []uuid.UUID) (_ []*course.Enrollment, err error) {
	const op = "enrollment.enroll_many"
	ctx, span := startSpan(ctx, op,
		attribute.String("course_id", courseID.String()),
		attribute.Int("users", len(userIDs)),
	)
	defer func() { endSpan(span, err) }()

	out := make([]*course.Enrollment, 0, len(userIDs))
	err = es.runner.InTx(ctx, op, func(ctx context.Context) error {
		for _, userID := range userIDs {
			e, err := es.Enroll(ctx, courseID, userID)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
