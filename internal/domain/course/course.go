package course

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/campus-backend/internal/domain/validation"
)

const (
	RuleNameRequired     = "name_required"
	RuleNameLength       = "name_length"
	RuleSlugFormat       = "slug_format"
	RuleEndAfterStart    = "end_date_after_start_date"
	RuleCapacityPositive = "capacity_non_negative"

	MaxNameLength = 255
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type Course struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"column:name;not null" json:"name"`
	Slug      string         `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	StartDate time.Time      `gorm:"column:start_date;not null;index" json:"start_date"`
	EndDate   time.Time      `gorm:"column:end_date;not null;index" json:"end_date"`
	Capacity  int            `gorm:"column:capacity;not null;default:0" json:"capacity"`
	Version   int            `gorm:"column:version;not null;default:1" json:"version"`
	Metadata  datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Course) TableName() string { return "course" }

var pipeline = validation.NewPipeline(
	validation.Rule[*Course]{
		Name: RuleNameRequired, Field: "name", Reason: "name is required",
		Check: func(c *Course) bool { return strings.TrimSpace(c.Name) != "" },
	},
	validation.Rule[*Course]{
		Name: RuleNameLength, Field: "name", Reason: "name must be at most 255 characters",
		Check: func(c *Course) bool { return len([]rune(c.Name)) <= MaxNameLength },
	},
	validation.Rule[*Course]{
		Name: RuleSlugFormat, Field: "slug", Reason: "slug must be lowercase letters, digits and single dashes",
		Check: func(c *Course) bool { return slugPattern.MatchString(c.Slug) },
	},
	validation.Rule[*Course]{
		Name: RuleEndAfterStart, Field: "end_date", Reason: "end date must be after start date",
		Check: func(c *Course) bool { return Date(c.EndDate).After(Date(c.StartDate)) },
	},
	validation.Rule[*Course]{
		Name: RuleCapacityPositive, Field: "capacity", Reason: "capacity must be zero (unlimited) or positive",
		Check: func(c *Course) bool { return c.Capacity >= 0 },
	},
)

// Rules lists the course rule names in evaluation order.
func Rules() []string { return pipeline.Rules() }

func (c *Course) Validate() validation.Result {
	if c == nil {
		return validation.Check(nil)
	}
	return pipeline.Validate(c)
}

// New builds an unsaved course with a fresh identity. It does not validate.
func New(name, slug string, start, end time.Time, capacity int) *Course {
	c := &Course{
		ID:       uuid.New(),
		Name:     strings.TrimSpace(name),
		Slug:     strings.TrimSpace(slug),
		Capacity: capacity,
		Version:  1,
	}
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	c.Reschedule(start, end)
	return c
}

// Reschedule moves the course window. Dates are kept at day precision.
func (c *Course) Reschedule(start, end time.Time) {
	c.StartDate = Date(start)
	c.EndDate = Date(end)
}

func (c *Course) Rename(name string) {
	c.Name = strings.TrimSpace(name)
}

func (c *Course) SetCapacity(capacity int) {
	c.Capacity = capacity
}

// HasStarted reports whether the start date is today or earlier.
func (c *Course) HasStarted(now time.Time) bool {
	return !Date(c.StartDate).After(Date(now))
}

// HasFinished reports whether the end date is today or earlier.
func (c *Course) HasFinished(now time.Time) bool {
	return !Date(c.EndDate).After(Date(now))
}

func (c *Course) IsRunning(now time.Time) bool {
	return c.HasStarted(now) && !c.HasFinished(now)
}

// Duration is the number of days between start and end.
func (c *Course) Duration() int {
	return int(Date(c.EndDate).Sub(Date(c.StartDate)).Hours() / 24)
}

// Unlimited reports whether the course accepts any number of enrollments.
func (c *Course) Unlimited() bool { return c.Capacity == 0 }

// Date truncates t to midnight UTC of its calendar day.
func Date(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Slugify derives a slug from a display name.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
