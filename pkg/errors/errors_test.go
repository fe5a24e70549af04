package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := Wrap(internal, "failed")

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}
	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}
	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestCopiesStillMatchSentinel(t *testing.T) {
	sentinel := New("QUOTE_EXPIRED", "Quote has expired", http.StatusGone)
	wrapped := fmt.Errorf("quote service: respond: %w", sentinel.WithMessage("expired yesterday"))

	if !stdErrors.Is(wrapped, sentinel) {
		t.Fatal("expected wrapped copy to match sentinel by code")
	}
	if stdErrors.Is(wrapped, ErrNotFound) {
		t.Fatal("expected different codes not to match")
	}
	if !HasCode(wrapped, "QUOTE_EXPIRED") {
		t.Fatal("expected HasCode to see through wrapping")
	}
}

func TestFromError(t *testing.T) {
	appErr := ErrNotFound
	if out := FromError(appErr); out != appErr {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("invalid payload")
	if err.Code != ErrBadRequest.Code {
		t.Fatalf("expected %s, got %s", ErrBadRequest.Code, err.Code)
	}
	if err.Message != "invalid payload" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
	if err.StatusCode != ErrBadRequest.StatusCode {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("invoice")
	if err.StatusCode != http.StatusNotFound || err.Message != "invoice not found" {
		t.Fatalf("unexpected error: %+v", err)
	}
}
