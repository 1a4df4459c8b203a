package services

import (
	"github.com/yungbote/campus-backend/internal/data/repos"
	"github.com/yungbote/campus-backend/internal/data/txscope"
	"github.com/yungbote/campus-backend/internal/platform/logger"
	"github.com/yungbote/campus-backend/internal/selectors"
)

type Deps struct {
	Log      *logger.Logger
	Runner   txscope.Runner
	Repos    repos.Set
	Courses  selectors.CourseSelector
	Users    selectors.UserSelector
	Deferred Deferred
	Config   Config
}

// Services is every command service, wired against one Deps.
type Services struct {
	Courses     CourseService
	Enrollments EnrollmentService
	Users       UserService
	Profiles    ProfileService
	Auth        AuthService
}

func New(d Deps) Services {
	if d.Log == nil {
		d.Log = logger.NewNop()
	}
	if d.Deferred.Log == nil {
		d.Deferred.Log = d.Log
	}
	profiles := NewProfileService(d.Log, d.Runner, d.Repos, d.Users)
	return Services{
		Courses:     NewCourseService(d.Log, d.Runner, d.Repos, d.Courses),
		Enrollments: NewEnrollmentService(d.Log, d.Runner, d.Repos, d.Courses, d.Users, d.Deferred),
		Users:       NewUserService(d.Log, d.Runner, d.Repos, d.Users, profiles, d.Deferred),
		Profiles:    profiles,
		Auth:        NewAuthService(d.Log, d.Runner, d.Repos, d.Users, d.Config),
	}
}
