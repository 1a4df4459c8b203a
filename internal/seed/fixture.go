// Package seed loads YAML fixtures and creates their records through the
// command services, so fixtures obey the same validation as API callers.
package seed

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

type Fixture struct {
	Users       []UserFixture       `yaml:"users"`
	Courses     []CourseFixture     `yaml:"courses"`
	Enrollments []EnrollmentFixture `yaml:"enrollments"`
}

type UserFixture struct {
	Email     string `yaml:"email"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Password  string `yaml:"password"`
	Bio       string `yaml:"bio"`
	Timezone  string `yaml:"timezone"`
}

type CourseFixture struct {
	Name      string         `yaml:"name"`
	Slug      string         `yaml:"slug"`
	StartDate time.Time      `yaml:"start_date"`
	EndDate   time.Time      `yaml:"end_date"`
	Capacity  int            `yaml:"capacity"`
	Metadata  map[string]any `yaml:"metadata"`
}

// EnrollmentFixture enrolls users, by email, into a course by slug. Both must be
// declared in the same fixture.
type EnrollmentFixture struct {
	Course string   `yaml:"course"`
	Users  []string `yaml:"users"`
}

// Parse decodes a fixture. Unknown keys are rejected.
func Parse(r io.Reader) (Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return Fixture{}, nil
		}
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}
	return f, nil
}
