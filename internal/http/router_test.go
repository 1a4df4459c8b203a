package http

import (
	"bytes"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/campus-backend/internal/data/db/dbtest"
	"github.com/yungbote/campus-backend/internal/data/repos"
	"github.com/yungbote/campus-backend/internal/data/txscope"
	httpH "github.com/yungbote/campus-backend/internal/http/handlers"
	httpMW "github.com/yungbote/campus-backend/internal/http/middleware"
	"github.com/yungbote/campus-backend/internal/jobs"
	"github.com/yungbote/campus-backend/internal/observability"
	"github.com/yungbote/campus-backend/internal/platform/logger"
	"github.com/yungbote/campus-backend/internal/selectors"
	"github.com/yungbote/campus-backend/internal/services"
)

type testAPI struct {
	t      *testing.T
	engine *gin.Engine
	queue  *jobs.InProcDispatcher
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb := dbtest.Open(t)
	log := logger.NewNop()
	now := func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	metrics := observability.NewMetrics()
	set := repos.NewSet(gdb, log)
	courseSel := selectors.NewCourseSelector(log, set, now)
	userSel := selectors.NewUserSelector(log, set, now)
	queue := jobs.NewInProcDispatcher(16)
	svc := services.New(services.Deps{
		Log:      log,
		Runner:   txscope.NewRunner(gdb, log, metrics),
		Repos:    set,
		Courses:  courseSel,
		Users:    userSel,
		Deferred: services.Deferred{Dispatcher: queue, Hooks: metrics},
		Config: services.Config{
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
			JWTSecret:       "router-test",
			Issuer:          "campus",
			Now:             now,
		},
	})

	engine := NewRouter(RouterConfig{
		Log:            log,
		Metrics:        metrics,
		AuthHandler:    httpH.NewAuthHandler(svc.Auth),
		AuthMiddleware: httpMW.NewAuthMiddleware(log, svc.Auth),
		UserHandler:    httpH.NewUserHandler(log, svc.Users, userSel),
		CourseHandler:  httpH.NewCourseHandler(log, svc.Courses, svc.Enrollments, courseSel),
		HealthHandler:  httpH.NewHealthHandler(nil),
	})
	return &testAPI{t: t, engine: engine, queue: queue}
}

func (a *testAPI) do(method, path string, body any, header ...string) (int, map[string]any) {
	a.t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			a.t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			a.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return rec.Code, out
}

func dig(m map[string]any, keys ...string) any {
	var cur any = m
	for _, k := range keys {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[k]
	}
	return cur
}

func TestCreateCourseRejectsEndBeforeStart(t *testing.T) {
	api := newTestAPI(t)
	code, body := api.do(nethttp.MethodPost, "/api/courses", map[string]any{
		"name": "Algebra", "start_date": "2024-01-10", "end_date": "2024-01-05",
	})
	if code != nethttp.StatusUnprocessableEntity {
		t.Fatalf("status: want=422 got=%d body=%v", code, body)
	}
	if got := dig(body, "error", "code"); got != "validation_failed" {
		t.Fatalf("code: want=validation_failed got=%v", got)
	}
	failures, _ := dig(body, "error", "failures").([]any)
	found := false
	for _, f := range failures {
		if fm, ok := f.(map[string]any); ok && fm["field"] == "end_date" {
			found = true
		}
	}
	if !found {
		t.Fatalf("end_date failure missing: %v", failures)
	}

	code, body = api.do(nethttp.MethodGet, "/api/courses", nil)
	if code != nethttp.StatusOK || dig(body, "total") != float64(0) {
		t.Fatalf("list after rejected create: status=%d body=%v", code, body)
	}
}

func TestCourseEnrollmentFlow(t *testing.T) {
	api := newTestAPI(t)

	code, body := api.do(nethttp.MethodPost, "/api/courses", map[string]any{
		"name": "Compilers", "slug": "compilers", "start_date": "2024-05-01", "end_date": "2024-08-01", "capacity": 1,
	})
	if code != nethttp.StatusCreated {
		t.Fatalf("create course: want=201 got=%d body=%v", code, body)
	}
	courseID, _ := dig(body, "course", "id").(string)

	code, body = api.do(nethttp.MethodPost, "/api/users", map[string]any{
		"email": "ada@example.com", "first_name": "Ada", "last_name": "Lovelace", "password": "analytical1",
	})
	if code != nethttp.StatusCreated {
		t.Fatalf("create user: want=201 got=%d body=%v", code, body)
	}
	userID, _ := dig(body, "user", "id").(string)

	code, body = api.do(nethttp.MethodPost, "/api/courses/"+courseID+"/enrollments", map[string]any{"user_id": userID})
	if code != nethttp.StatusCreated {
		t.Fatalf("enroll: want=201 got=%d body=%v", code, body)
	}
	code, body = api.do(nethttp.MethodPost, "/api/courses/"+courseID+"/enrollments", map[string]any{"user_id": userID})
	if code != nethttp.StatusConflict {
		t.Fatalf("re-enroll: want=409 got=%d body=%v", code, body)
	}

	code, body = api.do(nethttp.MethodGet, "/api/courses/"+courseID, nil)
	if code != nethttp.StatusOK {
		t.Fatalf("get course: want=200 got=%d", code)
	}
	if dig(body, "seats_left") != float64(0) || dig(body, "course", "is_running") != true {
		t.Fatalf("course view: got=%v", body)
	}

	code, body = api.do(nethttp.MethodGet, "/api/users/"+userID+"/courses", nil)
	courses, _ := dig(body, "courses").([]any)
	if code != nethttp.StatusOK || len(courses) != 1 {
		t.Fatalf("user courses: status=%d body=%v", code, body)
	}

	// welcome email + enrollment confirmation
	if got := api.queue.Len(); got != 2 {
		t.Fatalf("queued tasks: want=2 got=%d", got)
	}

	code, _ = api.do(nethttp.MethodDelete, "/api/courses/"+courseID+"/enrollments/"+userID, nil)
	if code != nethttp.StatusNoContent {
		t.Fatalf("unenroll: want=204 got=%d", code)
	}
	code, _ = api.do(nethttp.MethodDelete, "/api/courses/"+courseID, nil)
	if code != nethttp.StatusNoContent {
		t.Fatalf("delete: want=204 got=%d", code)
	}
	if code, _ = api.do(nethttp.MethodDelete, "/api/users/"+userID, nil); code != nethttp.StatusNoContent {
		t.Fatalf("delete user: want=204 got=%d", code)
	}
	if code, _ = api.do(nethttp.MethodGet, "/api/users/"+userID, nil); code != nethttp.StatusNotFound {
		t.Fatalf("get deleted user: want=404 got=%d", code)
	}
	code, body = api.do(nethttp.MethodGet, "/api/courses/"+courseID, nil)
	if code != nethttp.StatusNotFound || dig(body, "error", "code") != "not_found" {
		t.Fatalf("get deleted: status=%d body=%v", code, body)
	}
}

func TestLoginLogout(t *testing.T) {
	api := newTestAPI(t)
	code, _ := api.do(nethttp.MethodPost, "/api/users", map[string]any{
		"email": "linus@example.com", "first_name": "Linus", "last_name": "T", "password": "penguins!",
	})
	if code != nethttp.StatusCreated {
		t.Fatalf("create user: want=201 got=%d", code)
	}

	code, _ = api.do(nethttp.MethodPost, "/api/auth/login", map[string]any{"email": "linus@example.com", "password": "wrong-one"})
	if code != nethttp.StatusUnauthorized {
		t.Fatalf("bad login: want=401 got=%d", code)
	}

	code, body := api.do(nethttp.MethodPost, "/api/auth/login", map[string]any{"email": "linus@example.com", "password": "penguins!"})
	if code != nethttp.StatusOK {
		t.Fatalf("login: want=200 got=%d body=%v", code, body)
	}
	access, _ := body["access_token"].(string)
	refresh, _ := body["refresh_token"].(string)

	code, body = api.do(nethttp.MethodPost, "/api/auth/refresh", map[string]any{"refresh_token": refresh})
	if code != nethttp.StatusOK || body["refresh_token"] == refresh {
		t.Fatalf("refresh: status=%d body=%v", code, body)
	}

	if code, _ = api.do(nethttp.MethodPost, "/api/logout", nil); code != nethttp.StatusUnauthorized {
		t.Fatalf("logout without token: want=401 got=%d", code)
	}
	if code, _ = api.do(nethttp.MethodPost, "/api/logout", nil, "Authorization", "Bearer "+access); code != nethttp.StatusOK {
		t.Fatalf("logout: want=200 got=%d", code)
	}
	if code, _ = api.do(nethttp.MethodPost, "/api/auth/refresh", map[string]any{"refresh_token": body["refresh_token"]}); code != nethttp.StatusUnauthorized {
		t.Fatalf("refresh after logout: want=401 got=%d", code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)
	if code, _ := api.do(nethttp.MethodGet, "/healthcheck", nil); code != nethttp.StatusOK {
		t.Fatalf("healthcheck: want=200 got=%d", code)
	}

	req := httptest.NewRequest(nethttp.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	api.engine.ServeHTTP(rec, req)
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("metrics: want=200 got=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "campus_api_requests_total") {
		t.Fatalf("metrics body missing api counter")
	}
}

func TestBadPathParam(t *testing.T) {
	api := newTestAPI(t)
	code, body := api.do(nethttp.MethodGet, "/api/courses/not-a-uuid", nil)
	if code != nethttp.StatusBadRequest || dig(body, "error", "code") != "invalid_request" {
		t.Fatalf("bad id: status=%d body=%v", code, body)
	}
}
