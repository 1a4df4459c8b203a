package jobs

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	KindWelcomeEmail           = "send_welcome_email"
	KindEnrollmentConfirmation = "enrollment_confirmation"
)

// Task is one unit of deferred work. ID doubles as the idempotency key.
type Task struct {
	ID         uuid.UUID       `json:"id"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	Attempt    int             `json:"attempt"`
	// TraceID links the task back to the request that scheduled it.
	TraceID string `json:"trace_id,omitempty"`
}

func NewTask(kind string, payload any) (Task, error) {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return Task{}, fmt.Errorf("task kind is required")
	}
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Task{}, fmt.Errorf("encode %s payload: %w", kind, err)
		}
		raw = b
	}
	return Task{ID: uuid.New(), Kind: kind, Payload: raw, EnqueuedAt: time.Now().UTC()}, nil
}

// Decode unmarshals the payload into v.
func (t Task) Decode(v any) error {
	if len(t.Payload) == 0 {
		return fmt.Errorf("task %s has no payload", t.ID)
	}
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", t.Kind, err)
	}
	return nil
}

type WelcomeEmailPayload struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
}

type EnrollmentConfirmationPayload struct {
	EnrollmentID uuid.UUID `json:"enrollment_id"`
	CourseID     uuid.UUID `json:"course_id"`
	CourseName   string    `json:"course_name"`
	StartDate    time.Time `json:"start_date"`
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
}
