// Package domainerr is the error taxonomy shared by services, selectors and the
// boundary adapters. Errors travel up unmodified; only the boundary decides how
// to present them.
package domainerr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/campus-backend/internal/domain/validation"
)

// Code standardizes failure semantics across domains.
type Code string

const (
	CodeValidation         Code = "validation_failed"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeTransactionAborted Code = "transaction_aborted"
	CodeRetryable          Code = "retryable"
	CodeInternal           Code = "internal"
)

// Error is the canonical domain error wrapper.
type Error struct {
	Code    Code
	Op      string
	Message string
	Cause   error
	// Result is set for CodeValidation.
	Result validation.Result
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a domain error with explicit code and operation.
func New(code Code, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with a code. Nil stays nil.
func Wrap(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(code, op, err.Error(), err)
}

// ValidationFailed reports a failed validation run. It is never retried.
func ValidationFailed(op string, res validation.Result) error {
	return &Error{
		Code:    CodeValidation,
		Op:      strings.TrimSpace(op),
		Message: res.String(),
		Result:  res,
	}
}

// Invalid is a shortcut for a single-reason validation failure.
func Invalid(op, field, reason string) error {
	var res validation.Result
	res.Add(field, reason)
	return ValidationFailed(op, res)
}

// NotFound reports a missing entity on load-by-id.
func NotFound(op, kind string, id any) error {
	return New(CodeNotFound, op, fmt.Sprintf("%s %v not found", strings.TrimSpace(kind), id), nil)
}

// Conflict reports a persistence constraint or concurrency conflict.
func Conflict(op, message string, cause error) error {
	return New(CodeConflict, op, message, cause)
}

// TransactionAborted wraps the error that forced a scope to roll back.
// The inner error stays reachable through errors.Is/As.
func TransactionAborted(op string, cause error) error {
	msg := "rolled back"
	if cause != nil {
		msg = "rolled back: " + cause.Error()
	}
	return New(CodeTransactionAborted, op, msg, cause)
}

// IsCode reports whether any domain error in err's chain carries code.
func IsCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Cause
	}
	return false
}

// CodeOf returns the code of the outermost domain error in err's chain.
func CodeOf(err error) Code {
	var de *Error
	if !errors.As(err, &de) {
		return ""
	}
	return de.Code
}

// Classify returns the code a boundary should present for err. An aborted
// transaction presents the code of the typed error that caused it.
func Classify(err error) Code {
	if err == nil {
		return ""
	}
	var de *Error
	if !errors.As(err, &de) {
		return CodeInternal
	}
	if de.Code == CodeTransactionAborted && de.Cause != nil {
		if inner := Classify(de.Cause); inner != CodeInternal {
			return inner
		}
	}
	return de.Code
}

// ResultOf extracts the validation result carried by err, if any.
func ResultOf(err error) (validation.Result, bool) {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return validation.Result{}, false
		}
		if de.Code == CodeValidation {
			return de.Result, true
		}
		err = de.Cause
	}
	return validation.Result{}, false
}
