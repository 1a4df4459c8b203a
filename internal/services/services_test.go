package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/campus-backend/internal/data/db/dbtest"
	"github.com/yungbote/campus-backend/internal/data/repos"
	"github.com/yungbote/campus-backend/internal/data/txscope"
	"github.com/yungbote/campus-backend/internal/data/txscope/txscopetest"
	"github.com/yungbote/campus-backend/internal/domain/course"
	"github.com/yungbote/campus-backend/internal/domain/user"
	"github.com/yungbote/campus-backend/internal/jobs"
	"github.com/yungbote/campus-backend/internal/platform/logger"
	"github.com/yungbote/campus-backend/internal/selectors"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

type dispatchSpy struct {
	mu    sync.Mutex
	tasks []jobs.Task
}

func (d *dispatchSpy) Dispatch(_ context.Context, task jobs.Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, task)
	return nil
}

func (d *dispatchSpy) kinds() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.tasks))
	for _, t := range d.tasks {
		out = append(out, t.Kind)
	}
	return out
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	db        *gorm.DB
	runner    txscope.Runner
	hooks     *txscopetest.HooksRecorder
	spy       *dispatchSpy
	clock     *clock
	set       repos.Set
	courseSel selectors.CourseSelector
	userSel   selectors.UserSelector
	svc       Services
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		db:    dbtest.Open(t),
		hooks: &txscopetest.HooksRecorder{},
		spy:   &dispatchSpy{},
		clock: &clock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
	}
	log := logger.NewNop()
	h.runner = txscope.NewRunner(h.db, log, h.hooks)
	h.set = repos.NewSet(h.db, log)
	h.courseSel = selectors.NewCourseSelector(log, h.set, h.clock.Now)
	h.userSel = selectors.NewUserSelector(log, h.set, h.clock.Now)
	h.svc = New(Deps{
		Log:      log,
		Runner:   h.runner,
		Repos:    h.set,
		Courses:  h.courseSel,
		Users:    h.userSel,
		Deferred: Deferred{Dispatcher: h.spy},
		Config: Config{
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
			RefreshGrace:    5 * time.Minute,
			JWTSecret:       "test-secret",
			Issuer:          "campus-test",
			Now:             h.clock.Now,
		},
	})
	return h
}

func (h *harness) course(t *testing.T, name string, start, end time.Time, capacity int) *course.Course {
	t.Helper()
	c, err := h.svc.Courses.Create(context.Background(), CourseCreateInput{
		Name: name, StartDate: start, EndDate: end, Capacity: capacity,
	})
	if err != nil {
		t.Fatalf("create course %q: %v", name, err)
	}
	return c
}

func (h *harness) user(t *testing.T, email string) *user.User {
	t.Helper()
	u, err := h.svc.Users.Create(context.Background(), UserCreateInput{
		Email: email, FirstName: "Grace", LastName: "Hopper", Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("create user %q: %v", email, err)
	}
	return u
}

func (h *harness) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	if err := h.db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
