package user

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/campus-backend/internal/domain/validation"
)

const (
	RuleProfileUser     = "profile_user_required"
	RuleProfileBio      = "profile_bio_length"
	RuleProfileTimezone = "profile_timezone_known"

	MaxBioLength = 1000
)

// Profile holds optional, user-editable details. One per user.
type Profile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Bio       string    `gorm:"column:bio" json:"bio"`
	Timezone  string    `gorm:"column:timezone;not null;default:'UTC'" json:"timezone"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Profile) TableName() string { return "user_profile" }

var profilePipeline = validation.NewPipeline(
	validation.Rule[*Profile]{
		Name: RuleProfileUser, Field: "user_id", Reason: "user is required",
		Check: func(p *Profile) bool { return p.UserID != uuid.Nil },
	},
	validation.Rule[*Profile]{
		Name: RuleProfileBio, Field: "bio", Reason: "bio must be at most 1000 characters",
		Check: func(p *Profile) bool { return len([]rune(p.Bio)) <= MaxBioLength },
	},
	validation.Rule[*Profile]{
		Name: RuleProfileTimezone, Field: "timezone", Reason: "timezone is not a known IANA zone",
		Check: func(p *Profile) bool {
			if p.Timezone == "" {
				return false
			}
			_, err := time.LoadLocation(p.Timezone)
			return err == nil
		},
	},
)

func (p *Profile) Validate() validation.Result {
	if p == nil {
		return validation.Check(nil)
	}
	return profilePipeline.Validate(p)
}

func NewProfile(userID uuid.UUID, bio, timezone string) *Profile {
	tz := strings.TrimSpace(timezone)
	if tz == "" {
		tz = "UTC"
	}
	return &Profile{ID: uuid.New(), UserID: userID, Bio: strings.TrimSpace(bio), Timezone: tz}
}

