package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/campus-backend/internal/platform/sendgrid"
)

type mailSpy struct{ sent []Message }

func (m *mailSpy) Send(_ context.Context, msg Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

func TestMailHandlers(t *testing.T) {
	reg := NewRegistry()
	spy := &mailSpy{}
	if err := RegisterMailHandlers(reg, spy); err != nil {
		t.Fatalf("RegisterMailHandlers: %v", err)
	}

	welcome, _ := NewTask(KindWelcomeEmail, WelcomeEmailPayload{UserID: uuid.New(), Email: "ada@example.com", Name: "Ada"})
	if err := reg.Handle(context.Background(), welcome); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	confirm, _ := NewTask(KindEnrollmentConfirmation, EnrollmentConfirmationPayload{
		CourseName: "Go 101",
		StartDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Email:      "ada@example.com",
	})
	if err := reg.Handle(context.Background(), confirm); err != nil {
		t.Fatalf("confirmation: %v", err)
	}

	if len(spy.sent) != 2 {
		t.Fatalf("sent: want=2 got=%d", len(spy.sent))
	}
	if !strings.Contains(spy.sent[0].Body, "Ada") {
		t.Fatalf("welcome body: %q", spy.sent[0].Body)
	}
	if !strings.Contains(spy.sent[1].Subject, "Go 101") || !strings.Contains(spy.sent[1].Body, "2024-01-01") {
		t.Fatalf("confirmation: %+v", spy.sent[1])
	}
}

func TestMailHandlerRejectsMissingPayload(t *testing.T) {
	reg := NewRegistry()
	_ = RegisterMailHandlers(reg, &mailSpy{})
	task, _ := NewTask(KindWelcomeEmail, nil)
	if err := reg.Handle(context.Background(), task); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestLogMailerRequiresRecipient(t *testing.T) {
	m := NewLogMailer(nil, "from@campus.local")
	if err := m.Send(context.Background(), Message{Subject: "x"}); err == nil {
		t.Fatalf("expected error for missing recipient")
	}
	if err := m.Send(context.Background(), Message{To: "a@b.co"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

type sendgridStub struct{ reqs []sendgrid.SendEmailRequest }

func (s *sendgridStub) Send(_ context.Context, req sendgrid.SendEmailRequest) (*sendgrid.SendEmailResult, error) {
	s.reqs = append(s.reqs, req)
	return &sendgrid.SendEmailResult{StatusCode: 202}, nil
}

func TestSendGridMailerMapsMessage(t *testing.T) {
	stub := &sendgridStub{}
	m := NewSendGridMailer(stub, "no-reply@campus.local")
	if err := m.Send(context.Background(), Message{To: "ada@example.com", Subject: "Hi", Body: "body"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(stub.reqs) != 1 {
		t.Fatalf("requests: want=1 got=%d", len(stub.reqs))
	}
	req := stub.reqs[0]
	if req.From.Email != "no-reply@campus.local" || req.To[0].Email != "ada@example.com" || req.Text != "body" {
		t.Fatalf("request: got=%+v", req)
	}
	if err := m.Send(context.Background(), Message{Subject: "no recipient"}); err == nil {
		t.Fatalf("expected missing recipient error")
	}
}

type failingSendGrid struct{ status int }

func (f failingSendGrid) Send(context.Context, sendgrid.SendEmailRequest) (*sendgrid.SendEmailResult, error) {
	return nil, &sendgrid.HTTPError{StatusCode: f.status}
}

func TestSendGridMailerClassifiesFailures(t *testing.T) {
	msg := Message{To: "ada@example.com", Subject: "Hi", Body: "body"}
	var permanent *PermanentError

	err := NewSendGridMailer(failingSendGrid{status: 400}, "a@campus.local").Send(context.Background(), msg)
	if !errors.As(err, &permanent) {
		t.Fatalf("400: want permanent got=%v", err)
	}
	err = NewSendGridMailer(failingSendGrid{status: 503}, "a@campus.local").Send(context.Background(), msg)
	if err == nil || errors.As(err, &permanent) {
		t.Fatalf("503: want retryable error got=%v", err)
	}
}
