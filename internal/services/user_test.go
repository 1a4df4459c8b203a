package services

import (
	"context"
	"testing"

	"github.com/yungbote/campus-backend/internal/domain/auth"
	"github.com/yungbote/campus-backend/internal/domain/course"
	"github.com/yungbote/campus-backend/internal/domain/domainerr"
	"github.com/yungbote/campus-backend/internal/domain/user"
	"github.com/yungbote/campus-backend/internal/jobs"
	"github.com/yungbote/campus-backend/internal/platform/ctxutil"
)

func TestUserCreateWithProfileAndWelcomeEmail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	u, err := h.svc.Users.Create(ctx, UserCreateInput{
		Email: " Ada@Example.COM ", FirstName: "Ada", LastName: "Lovelace",
		Password: "analytical", Bio: "first programmer", Timezone: "Europe/London",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Email != "ada@example.com" || u.PasswordHash == "" || u.PasswordHash == "analytical" {
		t.Fatalf("user: %+v", u)
	}
	view, err := h.userSel.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if view.Profile == nil || view.Profile.Timezone != "Europe/London" {
		t.Fatalf("profile: %+v", view.Profile)
	}
	kinds := h.spy.kinds()
	if len(kinds) != 1 || kinds[0] != jobs.KindWelcomeEmail {
		t.Fatalf("dispatched: %v", kinds)
	}
	// the nested profile call joins the user scope
	if got := h.hooks.Statuses(); len(got) != 1 {
		t.Fatalf("scopes: want=1 got=%v", got)
	}
}

func TestUserCreateValidation(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Users.Create(context.Background(), UserCreateInput{
		Email: "not-an-email", FirstName: "", Password: "short",
	})
	res, ok := domainerr.ResultOf(err)
	if !ok {
		t.Fatalf("expected validation failure, got=%v", err)
	}
	for _, rule := range []string{user.RulePasswordLength, user.RuleEmailFormat, user.RuleFirstNameRequired} {
		if !res.HasRule(rule) {
			t.Fatalf("missing %s in %v", rule, res)
		}
	}
	if res.HasRule(user.RulePasswordSet) {
		t.Fatalf("password reported twice: %v", res)
	}
	if len(h.hooks.Scopes) != 0 || len(h.spy.kinds()) != 0 {
		t.Fatalf("invalid input reached the engine or the queue")
	}
}

func TestUserCreateRollsBackWhenProfileFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Users.Create(ctx, UserCreateInput{
		Email: "tz@x.io", FirstName: "T", LastName: "Z", Password: "long enough", Timezone: "Mars/Olympus",
	})
	res, ok := domainerr.ResultOf(err)
	if !ok || !res.HasRule(user.RuleProfileTimezone) {
		t.Fatalf("expected timezone failure, got=%v", err)
	}
	if !domainerr.IsCode(err, domainerr.CodeTransactionAborted) {
		t.Fatalf("expected abort, got=%v", err)
	}
	if _, err := h.userSel.GetByEmail(ctx, "tz@x.io"); !domainerr.IsCode(err, domainerr.CodeNotFound) {
		t.Fatalf("user persisted despite rollback: %v", err)
	}
	if n := h.count(t, &user.User{}); n != 0 {
		t.Fatalf("users: want=0 got=%d", n)
	}
	if len(h.spy.kinds()) != 0 {
		t.Fatalf("welcome email scheduled for rolled back user")
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	h := newHarness(t)
	h.user(t, "dup@x.io")
	_, err := h.svc.Users.Create(context.Background(), UserCreateInput{
		Email: "DUP@x.io", FirstName: "D", Password: "long enough",
	})
	if domainerr.Classify(err) != domainerr.CodeConflict {
		t.Fatalf("want conflict, got=%v", err)
	}
}

func TestUserUpdateNameAndDeactivate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t, "n@x.io")

	renamed, err := h.svc.Users.UpdateName(ctx, u.ID, " Anita ", "Borg")
	if err != nil {
		t.Fatalf("UpdateName: %v", err)
	}
	if renamed.FullName() != "Anita Borg" {
		t.Fatalf("name: %q", renamed.FullName())
	}
	if _, err := h.svc.Users.UpdateName(ctx, u.ID, "", "Borg"); domainerr.Classify(err) != domainerr.CodeValidation {
		t.Fatalf("empty first name: want validation_failed got=%v", err)
	}

	if _, err := h.svc.Auth.Login(ctx, "n@x.io", "correct horse"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	off, err := h.svc.Users.Deactivate(ctx, u.ID)
	if err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if off.IsActive {
		t.Fatalf("user still active")
	}
	if n := h.count(t, &auth.UserToken{}); n != 0 {
		t.Fatalf("tokens survived deactivation: %d", n)
	}
}

func TestProfileServiceUpdate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t, "p@x.io")

	p, err := h.svc.Profiles.Update(ctx, u.ID, ProfileInput{Bio: "  hello ", Timezone: "Asia/Tokyo"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if p.Bio != "hello" || p.Timezone != "Asia/Tokyo" {
		t.Fatalf("profile: %+v", p)
	}
	if _, err := h.svc.Profiles.Create(ctx, u.ID, ProfileInput{}); domainerr.Classify(err) != domainerr.CodeConflict {
		t.Fatalf("second profile: want conflict got=%v", err)
	}
}

func TestDeferredTaskCarriesTraceID(t *testing.T) {
	h := newHarness(t)
	ctx := ctxutil.WithTraceData(context.Background(), &ctxutil.TraceData{TraceID: "trace-7", RequestID: "req-7"})

	if _, err := h.svc.Users.Create(ctx, UserCreateInput{
		Email: "grace@example.com", FirstName: "Grace", Password: "compilers", Timezone: "UTC",
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	h.spy.mu.Lock()
	defer h.spy.mu.Unlock()
	if len(h.spy.tasks) != 1 || h.spy.tasks[0].TraceID != "trace-7" {
		t.Fatalf("task trace id: want=trace-7 got=%+v", h.spy.tasks)
	}
}

func TestUserDeleteRemovesOwnedRows(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.course(t, "Go", day(2024, 7, 1), day(2024, 8, 1), 3)
	gone := h.user(t, "gone@x.io")
	kept := h.user(t, "kept@x.io")
	for _, u := range []*user.User{gone, kept} {
		if _, err := h.svc.Enrollments.Enroll(ctx, c.ID, u.ID); err != nil {
			t.Fatalf("Enroll: %v", err)
		}
	}
	if _, err := h.svc.Auth.Login(ctx, "gone@x.io", "correct horse"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := h.svc.Users.Delete(ctx, gone.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := h.userSel.Get(ctx, gone.ID); domainerr.Classify(err) != domainerr.CodeNotFound {
		t.Fatalf("deleted user: want not_found got=%v", err)
	}
	counts := map[string][2]int64{
		"users":       {1, h.count(t, &user.User{})},
		"profiles":    {1, h.count(t, &user.Profile{})},
		"enrollments": {1, h.count(t, &course.Enrollment{})},
		"tokens":      {0, h.count(t, &auth.UserToken{})},
	}
	for name, c := range counts {
		if c[0] != c[1] {
			t.Fatalf("%s: want=%d got=%d", name, c[0], c[1])
		}
	}
	if err := h.svc.Users.Delete(ctx, gone.ID); domainerr.Classify(err) != domainerr.CodeNotFound {
		t.Fatalf("second delete: want not_found got=%v", err)
	}
}
