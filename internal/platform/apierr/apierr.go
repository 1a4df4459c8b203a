package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/campus-backend/internal/domain/domainerr"
	"github.com/yungbote/campus-backend/internal/domain/validation"
)

type Error struct {
	Status int
	Code   string
	Err    error
	// Failures is set for validation errors.
	Failures []validation.Failure
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FromDomain maps an error returned by a service or selector to its transport form.
// An *Error already in the chain wins; anything untyped is internal.
func FromDomain(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	code := domainerr.Classify(err)
	out := &Error{Status: StatusFor(code), Code: string(code), Err: err}
	if code == domainerr.CodeValidation {
		if res, ok := domainerr.ResultOf(err); ok {
			out.Failures = res.Failures
			if len(res.Failures) == 1 && res.Failures[0].Field == validation.Global {
				out.Status = http.StatusBadRequest
			}
		}
	}
	return out
}

// StatusFor is the HTTP status of a domain code. Field-level validation failures
// are 422; FromDomain downgrades global-only ones to 400.
func StatusFor(code domainerr.Code) int {
	switch code {
	case domainerr.CodeValidation:
		return http.StatusUnprocessableEntity
	case domainerr.CodeNotFound:
		return http.StatusNotFound
	case domainerr.CodeConflict:
		return http.StatusConflict
	case domainerr.CodeRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
