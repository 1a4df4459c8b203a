package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/campus-backend/internal/data/repos/auth"
	"github.com/yungbote/campus-backend/internal/data/repos/course"
	"github.com/yungbote/campus-backend/internal/data/repos/user"
	"github.com/yungbote/campus-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type ProfileRepo = user.ProfileRepo
type UserTokenRepo = auth.UserTokenRepo

type CourseRepo = course.CourseRepo
type EnrollmentRepo = course.EnrollmentRepo

type CourseCriteria = course.CourseCriteria
type UserCriteria = user.UserCriteria

// Set bundles every table repo so constructors can take one argument.
type Set struct {
	Users       UserRepo
	Profiles    ProfileRepo
	UserTokens  UserTokenRepo
	Courses     CourseRepo
	Enrollments EnrollmentRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) Set {
	return Set{
		Users:       NewUserRepo(db, baseLog),
		Profiles:    NewProfileRepo(db, baseLog),
		UserTokens:  NewUserTokenRepo(db, baseLog),
		Courses:     NewCourseRepo(db, baseLog),
		Enrollments: NewEnrollmentRepo(db, baseLog),
	}
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	return user.NewProfileRepo(db, baseLog)
}
func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return auth.NewUserTokenRepo(db, baseLog)
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return course.NewCourseRepo(db, baseLog)
}
func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return course.NewEnrollmentRepo(db, baseLog)
}
