package temporalx

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/campus-backend/internal/jobs"
	"github.com/yungbote/campus-backend/internal/platform/config"
)

func TestBackoffDoublesAndCaps(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{6, time.Second},
	}
	for _, c := range cases {
		if got := Backoff(100*time.Millisecond, time.Second, c.attempt); got != c.want {
			t.Fatalf("attempt %d: want=%v got=%v", c.attempt, c.want, got)
		}
	}
	if got := Backoff(0, 0, 1); got != 250*time.Millisecond {
		t.Fatalf("default base: want=250ms got=%v", got)
	}
}

func TestIsRetryableRPC(t *testing.T) {
	if !isRetryableRPC(status.Error(codes.Unavailable, "down")) {
		t.Fatalf("Unavailable should be retryable")
	}
	if isRetryableRPC(status.Error(codes.PermissionDenied, "no")) {
		t.Fatalf("PermissionDenied should not be retryable")
	}
	if !isRetryableRPC(context.DeadlineExceeded) {
		t.Fatalf("deadline should be retryable")
	}
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	c, err := NewClient(context.Background(), config.TemporalConfig{}, nil)
	if err != nil || c != nil {
		t.Fatalf("want nil client and nil error, got client=%v err=%v", c, err)
	}
}

func TestTLSRequiresCertAndKey(t *testing.T) {
	if _, err := loadTLSConfig(config.TemporalConfig{ClientCAPath: "ca.pem"}); err == nil {
		t.Fatalf("expected error without cert/key")
	}
}

func TestDispatcherWithoutClient(t *testing.T) {
	task, _ := jobs.NewTask(jobs.KindWelcomeEmail, jobs.WelcomeEmailPayload{})
	if err := NewDispatcher(nil, "q").Dispatch(context.Background(), task); err == nil {
		t.Fatalf("expected error from unconfigured dispatcher")
	}
}

func TestRetryStopsAtDeadline(t *testing.T) {
	calls := 0
	err := retry(context.Background(), time.Now().Add(15*time.Millisecond), 10*time.Millisecond, 10*time.Millisecond, func(int) (bool, error) {
		calls++
		return false, errors.New("unreachable")
	})
	if err == nil || err.Error() != "unreachable" {
		t.Fatalf("err: want=unreachable got=%v", err)
	}
	if calls < 1 || calls > 2 {
		t.Fatalf("calls: want 1..2 got=%d", calls)
	}
}

func TestRetryReturnsOnSuccess(t *testing.T) {
	calls := 0
	err := retry(context.Background(), time.Time{}, time.Millisecond, time.Millisecond, func(attempt int) (bool, error) {
		calls++
		return attempt == 3, nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("want 3 calls and nil, got calls=%d err=%v", calls, err)
	}
}
