package domainerr

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/yungbote/campus-backend/internal/domain/validation"
)

func TestValidationFailedCarriesResult(t *testing.T) {
	var res validation.Result
	res.Add("end_date", "end date must be after start date")
	err := ValidationFailed("course.create", res)

	if !IsCode(err, CodeValidation) {
		t.Fatalf("expected validation code, got=%v", err)
	}
	got, ok := ResultOf(err)
	if !ok || len(got.Failures) != 1 || got.Failures[0].Field != "end_date" {
		t.Fatalf("result not carried: ok=%v res=%+v", ok, got)
	}
	if !strings.Contains(err.Error(), "course.create") {
		t.Fatalf("op missing from message: %s", err.Error())
	}
}

func TestTransactionAbortedPreservesCause(t *testing.T) {
	inner := Conflict("enrollment.save", "already enrolled", nil)
	err := TransactionAborted("enrollment.enroll", inner)

	if CodeOf(err) != CodeTransactionAborted {
		t.Fatalf("outer code: got=%s", CodeOf(err))
	}
	if !errors.Is(err, inner) {
		t.Fatalf("cause not reachable via errors.Is")
	}
	if !IsCode(err, CodeConflict) {
		t.Fatalf("IsCode must walk the cause chain")
	}
	if Classify(err) != CodeConflict {
		t.Fatalf("classify: want=conflict got=%s", Classify(err))
	}
}

func TestClassify(t *testing.T) {
	if Classify(nil) != "" {
		t.Fatalf("nil classify must be empty")
	}
	if Classify(errors.New("boom")) != CodeInternal {
		t.Fatalf("untyped error must classify internal")
	}
	aborted := TransactionAborted("op", errors.New("driver exploded"))
	if Classify(aborted) != CodeTransactionAborted {
		t.Fatalf("abort with untyped cause keeps its own code, got=%s", Classify(aborted))
	}
	wrapped := fmt.Errorf("handler: %w", NotFound("course.get", "course", 7))
	if Classify(wrapped) != CodeNotFound {
		t.Fatalf("fmt-wrapped domain error must classify, got=%s", Classify(wrapped))
	}
}

func TestResultOfInsideAbort(t *testing.T) {
	err := TransactionAborted("user.create", Invalid("profile.create", "timezone", "unknown timezone"))
	res, ok := ResultOf(err)
	if !ok || res.Failures[0].Field != "timezone" {
		t.Fatalf("expected nested validation result, ok=%v res=%+v", ok, res)
	}
	if _, ok := ResultOf(errors.New("x")); ok {
		t.Fatalf("plain error has no result")
	}
}

func TestErrorStringForms(t *testing.T) {
	cases := []struct {
		err  *Error
		want string
	}{
		{&Error{Code: CodeInternal, Op: "op", Message: "msg"}, "op: msg (internal)"},
		{&Error{Code: CodeInternal, Op: "op"}, "op (internal)"},
		{&Error{Code: CodeInternal, Message: "msg"}, "msg (internal)"},
		{&Error{Code: CodeInternal}, "internal"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Fatalf("want=%q got=%q", tc.want, got)
		}
	}
	if Wrap(CodeInternal, "op", nil) != nil {
		t.Fatalf("Wrap(nil) must be nil")
	}
}
