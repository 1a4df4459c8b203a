package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/campus-backend/internal/platform/logger"
	"github.com/yungbote/campus-backend/internal/platform/sendgrid"
)

type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	log  *logger.Logger
	from string
}

func NewLogMailer(log *logger.Logger, from string) *LogMailer {
	if log == nil {
		log = logger.NewNop()
	}
	return &LogMailer{log: log.With("component", "LogMailer"), from: from}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("mail: missing recipient")
	}
	if msg.From == "" {
		msg.From = m.from
	}
	m.log.Info("Mail sent", "from", msg.From, "email", msg.To, "subject", msg.Subject)
	return nil
}

// SendGridMailer delivers through the SendGrid mail send API.
type SendGridMailer struct {
	client sendgrid.Client
	from   string
}

func NewSendGridMailer(client sendgrid.Client, from string) *SendGridMailer {
	return &SendGridMailer{client: client, from: strings.TrimSpace(from)}
}

func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("mail: missing recipient")
	}
	from := msg.From
	if from == "" {
		from = m.from
	}
	_, err := m.client.Send(ctx, sendgrid.SendEmailRequest{
		From:       sendgrid.EmailAddress{Email: from},
		To:         []sendgrid.EmailAddress{{Email: msg.To}},
		Subject:    msg.Subject,
		Text:       msg.Body,
		Categories: []string{"campus"},
	})
	var httpErr *sendgrid.HTTPError
	if errors.As(err, &httpErr) && !httpErr.Temporary() {
		return Permanent(fmt.Errorf("mail to %s: %w", msg.To, err))
	}
	if err != nil {
		return fmt.Errorf("mail: %w", err)
	}
	return nil
}

// RegisterMailHandlers registers the mail-backed handlers on r.
func RegisterMailHandlers(r *Registry, mailer Mailer) error {
	for _, h := range []Handler{
		HandlerFunc{K: KindWelcomeEmail, Fn: welcomeEmail(mailer)},
		HandlerFunc{K: KindEnrollmentConfirmation, Fn: enrollmentConfirmation(mailer)},
	} {
		if err := r.Register(h); err != nil {
			return err
		}
	}
	return nil
}

func welcomeEmail(mailer Mailer) func(ctx context.Context, task Task) error {
	return func(ctx context.Context, task Task) error {
		var p WelcomeEmailPayload
		if err := task.Decode(&p); err != nil {
			return err
		}
		name := strings.TrimSpace(p.Name)
		if name == "" {
			name = "there"
		}
		return mailer.Send(ctx, Message{
			To:      p.Email,
			Subject: "Welcome to Campus",
			Body:    fmt.Sprintf("Hi %s,\n\nYour account is ready.\n", name),
		})
	}
}

func enrollmentConfirmation(mailer Mailer) func(ctx context.Context, task Task) error {
	return func(ctx context.Context, task Task) error {
		var p EnrollmentConfirmationPayload
		if err := task.Decode(&p); err != nil {
			return err
		}
		return mailer.Send(ctx, Message{
			To:      p.Email,
			Subject: "Enrollment confirmed: " + p.CourseName,
			Body:    fmt.Sprintf("You are enrolled in %s, starting %s.\n", p.CourseName, p.StartDate.Format("2006-01-02")),
		})
	}
}
