package course

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/campus-backend/internal/domain/validation"
)

const (
	RuleEnrollmentCourse = "enrollment_course_required"
	RuleEnrollmentUser   = "enrollment_user_required"
)

type Enrollment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_course_user" json:"course_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_course_user;index" json:"user_id"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Enrollment) TableName() string { return "enrollment" }

var enrollmentPipeline = validation.NewPipeline(
	validation.Rule[*Enrollment]{
		Name: RuleEnrollmentCourse, Field: "course_id", Reason: "course is required",
		Check: func(e *Enrollment) bool { return e.CourseID != uuid.Nil },
	},
	validation.Rule[*Enrollment]{
		Name: RuleEnrollmentUser, Field: "user_id", Reason: "user is required",
		Check: func(e *Enrollment) bool { return e.UserID != uuid.Nil },
	},
)

func (e *Enrollment) Validate() validation.Result {
	if e == nil {
		return validation.Check(nil)
	}
	return enrollmentPipeline.Validate(e)
}

func NewEnrollment(courseID, userID uuid.UUID) *Enrollment {
	return &Enrollment{ID: uuid.New(), CourseID: courseID, UserID: userID}
}
