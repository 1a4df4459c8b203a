package selectors

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/campus-backend/internal/data/repos"
	"github.com/yungbote/campus-backend/internal/data/txscope"
	"github.com/yungbote/campus-backend/internal/domain/auth"
	"github.com/yungbote/campus-backend/internal/domain/domainerr"
	"github.com/yungbote/campus-backend/internal/domain/user"
	"github.com/yungbote/campus-backend/internal/platform/logger"
)

// UserView is a user with its profile. Profile is nil when none exists.
type UserView struct {
	User    *user.User    `json:"user"`
	Profile *user.Profile `json:"profile,omitempty"`
}

type UserFilter struct {
	Search     string
	ActiveOnly bool
	Page       int
	PageSize   int
}

type UserSelector interface {
	Get(ctx context.Context, id uuid.UUID) (UserView, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	List(ctx context.Context, filter UserFilter) (Page[*user.User], error)
	CoursesForUser(ctx context.Context, userID uuid.UUID) ([]CourseView, error)
	RefreshToken(ctx context.Context, token string) (*auth.UserToken, error)
}

type userSelector struct {
	log         *logger.Logger
	users       repos.UserRepo
	profiles    repos.ProfileRepo
	tokens      repos.UserTokenRepo
	courses     repos.CourseRepo
	enrollments repos.EnrollmentRepo
	now         func() time.Time
}

func NewUserSelector(log *logger.Logger, set repos.Set, now func() time.Time) UserSelector {
	if now == nil {
		now = time.Now
	}
	return &userSelector{
		log:         log.With("selector", "UserSelector"),
		users:       set.Users,
		profiles:    set.Profiles,
		tokens:      set.UserTokens,
		courses:     set.Courses,
		enrollments: set.Enrollments,
		now:         now,
	}
}

func (s *userSelector) Get(ctx context.Context, id uuid.UUID) (UserView, error) {
	dbc := txscope.Reader(ctx)
	u, err := s.users.GetByID(dbc, id)
	if err != nil {
		return UserView{}, readErr(s.log, "user.get", err)
	}
	p, err := s.profiles.GetByUserID(dbc, id)
	if err != nil && !domainerr.IsCode(err, domainerr.CodeNotFound) {
		return UserView{}, readErr(s.log, "user.get", err)
	}
	return UserView{User: u, Profile: p}, nil
}

func (s *userSelector) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	u, err := s.users.GetByEmail(txscope.Reader(ctx), email)
	if err != nil {
		return nil, readErr(s.log, "user.get_by_email", err)
	}
	return u, nil
}

func (s *userSelector) List(ctx context.Context, filter UserFilter) (Page[*user.User], error) {
	page, size := normalizePage(filter.Page, filter.PageSize)
	dbc := txscope.Reader(ctx)
	criteria := repos.UserCriteria{Search: filter.Search, ActiveOnly: filter.ActiveOnly}
	total, err := s.users.Count(dbc, criteria)
	if err != nil {
		return Page[*user.User]{}, readErr(s.log, "user.list", err)
	}
	criteria.Limit = size
	criteria.Offset = (page - 1) * size
	rows, err := s.users.Query(dbc, criteria)
	if err != nil {
		return Page[*user.User]{}, readErr(s.log, "user.list", err)
	}
	return newPage(rows, total, page, size), nil
}

// CoursesForUser resolves the user's enrollments to courses with two queries
// regardless of how many courses the user is enrolled in.
func (s *userSelector) CoursesForUser(ctx context.Context, userID uuid.UUID) ([]CourseView, error) {
	dbc := txscope.Reader(ctx)
	if _, err := s.users.GetByID(dbc, userID); err != nil {
		return nil, readErr(s.log, "user.courses", err)
	}
	enrollments, err := s.enrollments.ListByUser(dbc, userID)
	if err != nil {
		return nil, readErr(s.log, "user.courses", err)
	}
	if len(enrollments) == 0 {
		return []CourseView{}, nil
	}
	ids := make([]uuid.UUID, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.CourseID)
	}
	rows, err := s.courses.GetByIDs(dbc, ids)
	if err != nil {
		return nil, readErr(s.log, "user.courses", err)
	}
	now := s.now()
	out := make([]CourseView, 0, len(rows))
	for _, c := range rows {
		out = append(out, newCourseView(c, now))
	}
	return out, nil
}

func (s *userSelector) RefreshToken(ctx context.Context, token string) (*auth.UserToken, error) {
	t, err := s.tokens.GetByRefreshToken(txscope.Reader(ctx), token)
	if err != nil {
		return nil, readErr(s.log, "user.refresh_token", err)
	}
	return t, nil
}
