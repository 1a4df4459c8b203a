package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/campus-backend/internal/domain/domainerr"
	"github.com/yungbote/campus-backend/internal/domain/validation"
	"github.com/yungbote/campus-backend/internal/platform/logger"
	"github.com/yungbote/campus-backend/internal/services"
)

// RecordFailure is one fixture record the services refused.
type RecordFailure struct {
	Kind     string
	Key      string
	Code     domainerr.Code
	Failures []validation.Failure
	Err      error
}

func (f RecordFailure) String() string {
	if len(f.Failures) == 0 {
		return fmt.Sprintf("%s %q: %s: %v", f.Kind, f.Key, f.Code, f.Err)
	}
	parts := make([]string, 0, len(f.Failures))
	for _, v := range f.Failures {
		parts = append(parts, v.Field+": "+v.Reason)
	}
	return fmt.Sprintf("%s %q: %s", f.Kind, f.Key, strings.Join(parts, "; "))
}

type Report struct {
	Users       int
	Courses     int
	Enrollments int
	Failed      []RecordFailure
}

type Seeder struct {
	log *logger.Logger
	svc services.Services
}

func NewSeeder(log *logger.Logger, svc services.Services) *Seeder {
	if log == nil {
		log = logger.NewNop()
	}
	return &Seeder{log: log.With("component", "Seeder"), svc: svc}
}

// Apply creates every record it can. A refused record is reported and does not
// stop the rest; enrollments for a refused user or course are skipped.
func (s *Seeder) Apply(ctx context.Context, f Fixture) Report {
	var rep Report
	users := make(map[string]uuid.UUID, len(f.Users))
	courses := make(map[string]uuid.UUID, len(f.Courses))

	for _, uf := range f.Users {
		u, err := s.svc.Users.Create(ctx, services.UserCreateInput{
			Email:     uf.Email,
			FirstName: uf.FirstName,
			LastName:  uf.LastName,
			Password:  uf.Password,
			Bio:       uf.Bio,
			Timezone:  uf.Timezone,
		})
		if err != nil {
			rep.fail("user", uf.Email, err)
			continue
		}
		users[strings.ToLower(strings.TrimSpace(uf.Email))] = u.ID
		rep.Users++
	}

	for _, cf := range f.Courses {
		in := services.CourseCreateInput{
			Name:      cf.Name,
			Slug:      cf.Slug,
			StartDate: cf.StartDate,
			EndDate:   cf.EndDate,
			Capacity:  cf.Capacity,
		}
		if len(cf.Metadata) > 0 {
			raw, err := json.Marshal(cf.Metadata)
			if err != nil {
				rep.fail("course", cf.Slug, err)
				continue
			}
			in.Metadata = datatypes.JSON(raw)
		}
		c, err := s.svc.Courses.Create(ctx, in)
		if err != nil {
			rep.fail("course", cf.Slug, err)
			continue
		}
		courses[c.Slug] = c.ID
		if key := strings.TrimSpace(cf.Slug); key != "" {
			courses[key] = c.ID
		}
		rep.Courses++
	}

	for _, ef := range f.Enrollments {
		courseID, ok := courses[strings.TrimSpace(ef.Course)]
		if !ok {
			s.log.Warn("Skipping enrollments for unknown course", "course", ef.Course)
			continue
		}
		for _, email := range ef.Users {
			userID, ok := users[strings.ToLower(strings.TrimSpace(email))]
			if !ok {
				s.log.Warn("Skipping enrollment for unknown user", "course", ef.Course, "email", email)
				continue
			}
			if _, err := s.svc.Enrollments.Enroll(ctx, courseID, userID); err != nil {
				rep.fail("enrollment", ef.Course+"/"+email, err)
				continue
			}
			rep.Enrollments++
		}
	}
	return rep
}

func (r *Report) fail(kind, key string, err error) {
	rf := RecordFailure{Kind: kind, Key: key, Code: domainerr.Classify(err), Err: err}
	if res, ok := domainerr.ResultOf(err); ok {
		rf.Failures = res.Failures
	}
	r.Failed = append(r.Failed, rf)
}
