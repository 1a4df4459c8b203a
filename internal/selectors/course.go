package selectors

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/campus-backend/internal/data/repos"
	"github.com/yungbote/campus-backend/internal/data/txscope"
	"github.com/yungbote/campus-backend/internal/domain/course"
	"github.com/yungbote/campus-backend/internal/platform/logger"
)

// CourseView is a course plus its date-derived state at read time.
type CourseView struct {
	Course      *course.Course `json:"course"`
	HasStarted  bool           `json:"has_started"`
	HasFinished bool           `json:"has_finished"`
	IsRunning   bool           `json:"is_running"`
}

// CourseEnrollmentView adds enrollment figures to a CourseView.
// SeatsLeft is -1 for unlimited courses.
type CourseEnrollmentView struct {
	CourseView
	Enrolled  int64 `json:"enrolled"`
	SeatsLeft int64 `json:"seats_left"`
}

type CourseFilter struct {
	NameContains string
	RunningAt    *time.Time
	StartsAfter  *time.Time
	StartsBefore *time.Time
	OrderBy      string
	Desc         bool
	Page         int
	PageSize     int
}

type CourseSelector interface {
	Get(ctx context.Context, id uuid.UUID) (CourseView, error)
	List(ctx context.Context, filter CourseFilter) (Page[CourseView], error)
	ListWithEnrollment(ctx context.Context, filter CourseFilter) (Page[CourseEnrollmentView], error)
	EnrollmentCounts(ctx context.Context, courseIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	SeatsLeft(ctx context.Context, id uuid.UUID) (int64, error)
	Enrollment(ctx context.Context, courseID, userID uuid.UUID) (*course.Enrollment, error)
	Enrollments(ctx context.Context, courseID uuid.UUID) ([]*course.Enrollment, error)
}

type courseSelector struct {
	log         *logger.Logger
	courses     repos.CourseRepo
	enrollments repos.EnrollmentRepo
	now         func() time.Time
}

func NewCourseSelector(log *logger.Logger, set repos.Set, now func() time.Time) CourseSelector {
	if now == nil {
		now = time.Now
	}
	return &courseSelector{
		log:         log.With("selector", "CourseSelector"),
		courses:     set.Courses,
		enrollments: set.Enrollments,
		now:         now,
	}
}

func newCourseView(c *course.Course, now time.Time) CourseView {
	return CourseView{
		Course:      c,
		HasStarted:  c.HasStarted(now),
		HasFinished: c.HasFinished(now),
		IsRunning:   c.IsRunning(now),
	}
}

func (s *courseSelector) Get(ctx context.Context, id uuid.UUID) (CourseView, error) {
	c, err := s.courses.GetByID(txscope.Reader(ctx), id)
	if err != nil {
		return CourseView{}, readErr(s.log, "course.get", err)
	}
	return newCourseView(c, s.now()), nil
}

func (s *courseSelector) List(ctx context.Context, filter CourseFilter) (Page[CourseView], error) {
	page, size := normalizePage(filter.Page, filter.PageSize)
	dbc := txscope.Reader(ctx)
	criteria := repos.CourseCriteria{
		NameContains: filter.NameContains,
		RunningAt:    filter.RunningAt,
		StartsAfter:  filter.StartsAfter,
		StartsBefore: filter.StartsBefore,
		OrderBy:      filter.OrderBy,
		Desc:         filter.Desc,
	}
	total, err := s.courses.Count(dbc, criteria)
	if err != nil {
		return Page[CourseView]{}, readErr(s.log, "course.list", err)
	}
	criteria.Limit = size
	criteria.Offset = (page - 1) * size
	rows, err := s.courses.Query(dbc, criteria)
	if err != nil {
		return Page[CourseView]{}, readErr(s.log, "course.list", err)
	}
	now := s.now()
	items := make([]CourseView, 0, len(rows))
	for _, c := range rows {
		items = append(items, newCourseView(c, now))
	}
	return newPage(items, total, page, size), nil
}

// ListWithEnrollment pages courses and attaches enrollment counts using one
// grouped count query for the whole page.
func (s *courseSelector) ListWithEnrollment(ctx context.Context, filter CourseFilter) (Page[CourseEnrollmentView], error) {
	base, err := s.List(ctx, filter)
	if err != nil {
		return Page[CourseEnrollmentView]{}, err
	}
	ids := make([]uuid.UUID, 0, len(base.Items))
	for _, v := range base.Items {
		ids = append(ids, v.Course.ID)
	}
	counts, err := s.EnrollmentCounts(ctx, ids)
	if err != nil {
		return Page[CourseEnrollmentView]{}, err
	}
	items := make([]CourseEnrollmentView, 0, len(base.Items))
	for _, v := range base.Items {
		n := counts[v.Course.ID]
		items = append(items, CourseEnrollmentView{CourseView: v, Enrolled: n, SeatsLeft: seatsLeft(v.Course, n)})
	}
	return Page[CourseEnrollmentView]{
		Items:    items,
		Total:    base.Total,
		Page:     base.Page,
		PageSize: base.PageSize,
		NextPage: base.NextPage,
	}, nil
}

func (s *courseSelector) EnrollmentCounts(ctx context.Context, courseIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts, err := s.enrollments.CountByCourses(txscope.Reader(ctx), courseIDs)
	if err != nil {
		return nil, readErr(s.log, "course.enrollment_counts", err)
	}
	return counts, nil
}

func (s *courseSelector) SeatsLeft(ctx context.Context, id uuid.UUID) (int64, error) {
	dbc := txscope.Reader(ctx)
	c, err := s.courses.GetByID(dbc, id)
	if err != nil {
		return 0, readErr(s.log, "course.seats_left", err)
	}
	counts, err := s.enrollments.CountByCourses(dbc, []uuid.UUID{id})
	if err != nil {
		return 0, readErr(s.log, "course.seats_left", err)
	}
	return seatsLeft(c, counts[id]), nil
}

func (s *courseSelector) Enrollment(ctx context.Context, courseID, userID uuid.UUID) (*course.Enrollment, error) {
	e, err := s.enrollments.GetByCourseAndUser(txscope.Reader(ctx), courseID, userID)
	if err != nil {
		return nil, readErr(s.log, "course.enrollment", err)
	}
	return e, nil
}

func (s *courseSelector) Enrollments(ctx context.Context, courseID uuid.UUID) ([]*course.Enrollment, error) {
	dbc := txscope.Reader(ctx)
	if _, err := s.courses.GetByID(dbc, courseID); err != nil {
		return nil, readErr(s.log, "course.enrollments", err)
	}
	rows, err := s.enrollments.ListByCourse(dbc, courseID)
	if err != nil {
		return nil, readErr(s.log, "course.enrollments", err)
	}
	if rows == nil {
		rows = []*course.Enrollment{}
	}
	return rows, nil
}

func seatsLeft(c *course.Course, enrolled int64) int64 {
	if c.Unlimited() {
		return -1
	}
	left := int64(c.Capacity) - enrolled
	if left < 0 {
		return 0
	}
	return left
}
