package selectors

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/yungbote/campus-backend/internal/data/db/dbtest"
	"github.com/yungbote/campus-backend/internal/data/repos"
	"github.com/yungbote/campus-backend/internal/data/txscope"
	"github.com/yungbote/campus-backend/internal/domain/course"
	"github.com/yungbote/campus-backend/internal/domain/domainerr"
	"github.com/yungbote/campus-backend/internal/domain/user"
	"github.com/yungbote/campus-backend/internal/platform/dbctx"
	"github.com/yungbote/campus-backend/internal/platform/logger"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

type fixture struct {
	db    *gorm.DB
	set   repos.Set
	dbc   dbctx.Context
	now   time.Time
	users UserSelector
	cours CourseSelector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := dbtest.Open(t)
	set := repos.NewSet(gdb, logger.NewNop())
	now := day(2024, 6, 1)
	clock := func() time.Time { return now }
	return &fixture{
		db:    gdb,
		set:   set,
		dbc:   dbctx.Context{Ctx: context.Background()},
		now:   now,
		users: NewUserSelector(logger.NewNop(), set, clock),
		cours: NewCourseSelector(logger.NewNop(), set, clock),
	}
}

func (f *fixture) course(t *testing.T, name string, start, end time.Time, capacity int) *course.Course {
	t.Helper()
	c := course.New(name, "", start, end, capacity)
	if err := f.set.Courses.Save(f.dbc, c); err != nil {
		t.Fatalf("save course: %v", err)
	}
	return c
}

func (f *fixture) user(t *testing.T, email string) *user.User {
	t.Helper()
	u := user.New(email, "Ada", "Lovelace")
	if err := u.SetPassword("correct horse"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if err := f.set.Users.Save(f.dbc, u); err != nil {
		t.Fatalf("save user: %v", err)
	}
	return u
}

func (f *fixture) enroll(t *testing.T, c *course.Course, u *user.User) {
	t.Helper()
	if err := f.set.Enrollments.Save(f.dbc, course.NewEnrollment(c.ID, u.ID)); err != nil {
		t.Fatalf("save enrollment: %v", err)
	}
}

func TestCourseGetDerivesDateState(t *testing.T) {
	f := newFixture(t)
	running := f.course(t, "Running", day(2024, 5, 1), day(2024, 7, 1), 0)
	future := f.course(t, "Future", day(2024, 9, 1), day(2024, 10, 1), 0)
	past := f.course(t, "Past", day(2024, 1, 1), day(2024, 6, 1), 0)

	cases := []struct {
		id                           uuid.UUID
		started, finished, isRunning bool
	}{
		{running.ID, true, false, true},
		{future.ID, false, false, false},
		{past.ID, true, true, false},
	}
	for _, c := range cases {
		v, err := f.cours.Get(context.Background(), c.id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if v.HasStarted != c.started || v.HasFinished != c.finished || v.IsRunning != c.isRunning {
			t.Fatalf("%s: want started=%v finished=%v running=%v got %+v", v.Course.Name, c.started, c.finished, c.isRunning, v)
		}
	}

	if _, err := f.cours.Get(context.Background(), uuid.New()); !domainerr.IsCode(err, domainerr.CodeNotFound) {
		t.Fatalf("missing course: expected not_found, got=%v", err)
	}
}

func TestCourseListPagesAndFilters(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.course(t, "Course "+string(rune('A'+i)), day(2024, 1, 1+i), day(2024, 12, 1), 0)
	}
	f.course(t, "Later", day(2025, 1, 1), day(2025, 2, 1), 0)

	page, err := f.cours.List(context.Background(), CourseFilter{PageSize: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 6 || len(page.Items) != 2 || page.NextPage != 2 {
		t.Fatalf("page 1: total=%d items=%d next=%d", page.Total, len(page.Items), page.NextPage)
	}
	if page.Items[0].Course.Name != "Course A" {
		t.Fatalf("default order by start_date: got first=%s", page.Items[0].Course.Name)
	}

	last, err := f.cours.List(context.Background(), CourseFilter{Page: 3, PageSize: 2})
	if err != nil {
		t.Fatalf("List page 3: %v", err)
	}
	if last.NextPage != 0 || len(last.Items) != 2 {
		t.Fatalf("page 3: items=%d next=%d", len(last.Items), last.NextPage)
	}

	at := f.now
	running, err := f.cours.List(context.Background(), CourseFilter{RunningAt: &at})
	if err != nil {
		t.Fatalf("List running: %v", err)
	}
	if running.Total != 5 {
		t.Fatalf("running: want=5 got=%d", running.Total)
	}
}

func TestListWithEnrollmentCountsSeats(t *testing.T) {
	f := newFixture(t)
	capped := f.course(t, "Capped", day(2024, 5, 1), day(2024, 7, 1), 2)
	open := f.course(t, "Open", day(2024, 5, 2), day(2024, 7, 1), 0)
	empty := f.course(t, "Empty", day(2024, 5, 3), day(2024, 7, 1), 3)
	a, b := f.user(t, "a@x.io"), f.user(t, "b@x.io")
	f.enroll(t, capped, a)
	f.enroll(t, capped, b)
	f.enroll(t, open, a)

	page, err := f.cours.ListWithEnrollment(context.Background(), CourseFilter{})
	if err != nil {
		t.Fatalf("ListWithEnrollment: %v", err)
	}
	got := map[uuid.UUID]CourseEnrollmentView{}
	for _, v := range page.Items {
		got[v.Course.ID] = v
	}
	if v := got[capped.ID]; v.Enrolled != 2 || v.SeatsLeft != 0 {
		t.Fatalf("capped: enrolled=%d seats=%d", v.Enrolled, v.SeatsLeft)
	}
	if v := got[open.ID]; v.Enrolled != 1 || v.SeatsLeft != -1 {
		t.Fatalf("open: enrolled=%d seats=%d", v.Enrolled, v.SeatsLeft)
	}
	if v := got[empty.ID]; v.Enrolled != 0 || v.SeatsLeft != 3 {
		t.Fatalf("empty: enrolled=%d seats=%d", v.Enrolled, v.SeatsLeft)
	}

	left, err := f.cours.SeatsLeft(context.Background(), empty.ID)
	if err != nil || left != 3 {
		t.Fatalf("SeatsLeft: want=3 got=%d err=%v", left, err)
	}
}

func TestSelectorsIssueNoWrites(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, "Go", day(2024, 5, 1), day(2024, 7, 1), 10)
	u := f.user(t, "reader@x.io")
	f.enroll(t, c, u)

	wc := dbtest.CountWrites(t, f.db)
	ctx := context.Background()

	first, err := f.cours.ListWithEnrollment(ctx, CourseFilter{})
	if err != nil {
		t.Fatalf("ListWithEnrollment: %v", err)
	}

	const readers = 8
	results := make([]Page[CourseEnrollmentView], readers)
	errs := make([]error, readers)
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.cours.ListWithEnrollment(ctx, CourseFilter{})
		}(i)
	}
	wg.Wait()
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("reader %d: %v", i, errs[i])
		}
		if !reflect.DeepEqual(results[i], first) {
			t.Fatalf("reader %d saw a different result", i)
		}
	}

	if _, err := f.users.Get(ctx, u.ID); err != nil {
		t.Fatalf("users.Get: %v", err)
	}
	if _, err := f.users.CoursesForUser(ctx, u.ID); err != nil {
		t.Fatalf("CoursesForUser: %v", err)
	}
	if _, err := f.users.List(ctx, UserFilter{Search: "reader"}); err != nil {
		t.Fatalf("users.List: %v", err)
	}
	if n := wc.Total(); n != 0 {
		t.Fatalf("selectors wrote %d statements", n)
	}
}

func TestUserSelector(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "Mixed.Case@X.io")
	ctx := context.Background()

	v, err := f.users.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.Profile != nil {
		t.Fatalf("expected nil profile, got=%+v", v.Profile)
	}

	got, err := f.users.GetByEmail(ctx, "  mixed.case@x.io ")
	if err != nil || got.ID != u.ID {
		t.Fatalf("GetByEmail: got=%v err=%v", got, err)
	}

	c1 := f.course(t, "Second", day(2024, 8, 1), day(2024, 9, 1), 0)
	c2 := f.course(t, "First", day(2024, 2, 1), day(2024, 9, 1), 0)
	f.enroll(t, c1, u)
	f.enroll(t, c2, u)
	views, err := f.users.CoursesForUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("CoursesForUser: %v", err)
	}
	if len(views) != 2 || views[0].Course.ID != c2.ID {
		t.Fatalf("courses for user: %+v", views)
	}
	if _, err := f.users.CoursesForUser(ctx, uuid.New()); !domainerr.IsCode(err, domainerr.CodeNotFound) {
		t.Fatalf("unknown user: expected not_found, got=%v", err)
	}

	e, err := f.cours.Enrollment(ctx, c1.ID, u.ID)
	if err != nil || e.UserID != u.ID {
		t.Fatalf("Enrollment: got=%v err=%v", e, err)
	}
	if _, err := f.cours.Enrollment(ctx, c1.ID, uuid.New()); !domainerr.IsCode(err, domainerr.CodeNotFound) {
		t.Fatalf("missing enrollment: expected not_found, got=%v", err)
	}
	list, err := f.cours.Enrollments(ctx, c1.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("Enrollments: got=%d err=%v", len(list), err)
	}
}

func TestSelectorReadsThroughOpenScope(t *testing.T) {
	f := newFixture(t)
	r := txscope.NewRunner(f.db, nil, nil)
	ctx := context.Background()

	var inside, outside int64
	err := r.InTx(ctx, "test.read_own_writes", func(ctx context.Context) error {
		c := course.New("Draft", "", day(2024, 5, 1), day(2024, 7, 1), 0)
		if err := f.set.Courses.Save(txscope.FromContext(ctx).DBC(ctx), c); err != nil {
			return err
		}
		p, err := f.cours.List(ctx, CourseFilter{})
		if err != nil {
			return err
		}
		inside = p.Total
		return nil
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	p, err := f.cours.List(ctx, CourseFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	outside = p.Total
	if inside != 1 || outside != 1 {
		t.Fatalf("inside=%d outside=%d", inside, outside)
	}
}

func TestPageNormalization(t *testing.T) {
	page, size := normalizePage(0, 1000)
	if page != 1 || size != MaxPageSize {
		t.Fatalf("normalize: page=%d size=%d", page, size)
	}
	p := newPage[int](nil, 0, 1, 20)
	if p.Items == nil || p.NextPage != 0 {
		t.Fatalf("empty page: %+v", p)
	}
}

func TestSelectorLogsFailuresButNotMisses(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zap.WarnLevel)
	sel := NewCourseSelector(&logger.Logger{SugaredLogger: zap.New(core).Sugar()}, f.set, func() time.Time { return f.now })

	if _, err := sel.Get(context.Background(), uuid.New()); !domainerr.IsCode(err, domainerr.CodeNotFound) {
		t.Fatalf("missing course: want not_found got=%v", err)
	}
	if n := logs.Len(); n != 0 {
		t.Fatalf("miss logged: want=0 got=%d", n)
	}

	sqlDB, err := f.db.DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	_ = sqlDB.Close()
	if _, err := sel.Get(context.Background(), uuid.New()); err == nil {
		t.Fatalf("closed database: want error")
	}
	entries := logs.FilterMessage("Read failed").All()
	if len(entries) != 1 || entries[0].ContextMap()["op"] != "course.get" {
		t.Fatalf("failure log: %+v", entries)
	}
}
