package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeAPIRequest, "test error message")

	if err.Code != ErrCodeAPIRequest {
		t.Errorf("expected code %s, got %s", ErrCodeAPIRequest, err.Code)
	}

	if err.Message != "test error message" {
		t.Errorf("expected message 'test error message', got '%s'", err.Message)
	}

	if err.Cause != nil {
		t.Errorf("expected nil cause, got %v", err.Cause)
	}
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := Wrap(ErrCodeFileReadFailed, "failed to read file", cause)

	if err.Code != ErrCodeFileReadFailed {
		t.Errorf("expected code %s, got %s", ErrCodeFileReadFailed, err.Code)
	}

	if !errors.Is(err, cause) {
		t.Errorf("Wrap should support errors.Is")
	}
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		wantCode string
		wantMsg  string
	}{
		{
			name:     "simple error",
			err:      New(ErrCodeStreamEvent, "generation failed"),
			wantCode: "STREAM-003",
			wantMsg:  "generation failed",
		},
		{
			name:     "error with cause",
			err:      Wrap(ErrCodeAPIRequest, "send request", fmt.Errorf("connection refused")),
			wantCode: "API-001",
			wantMsg:  "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()

			if !strings.Contains(errStr, tt.wantCode) {
				t.Errorf("error string should contain code %s, got: %s", tt.wantCode, errStr)
			}

			if !strings.Contains(errStr, tt.wantMsg) {
				t.Errorf("error string should contain message '%s', got: %s", tt.wantMsg, errStr)
			}
		})
	}
}

func TestWithSuggestions(t *testing.T) {
	err := New(ErrCodeConfigInvalid, "bad config").
		WithSuggestion("first").
		WithSuggestions("second", "third").
		WithDocs("https://example.com/docs")

	if len(err.Suggestions) != 3 {
		t.Fatalf("expected 3 suggestions, got %d", len(err.Suggestions))
	}

	errStr := err.Error()
	for _, want := range []string{"Suggestions:", "first", "third", "Documentation: https://example.com/docs"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("error string should contain %q, got: %s", want, errStr)
		}
	}
}

func TestMatchAndCodeOf(t *testing.T) {
	err := fmt.Errorf("fetch roadmap: %w", NewUnauthorizedError())

	if !errors.Is(err, Match(ErrCodeAuthExpired)) {
		t.Error("errors.Is should match on code through wrapping")
	}
	if errors.Is(err, Match(ErrCodeAPIStatus)) {
		t.Error("errors.Is should not match a different code")
	}
	if got := CodeOf(err); got != ErrCodeAuthExpired {
		t.Errorf("CodeOf() = %s, want %s", got, ErrCodeAuthExpired)
	}
	if got := CodeOf(fmt.Errorf("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
}

func TestNewStatusError(t *testing.T) {
	tests := []struct {
		status   int
		wantCode ErrorCode
		wantSugg bool
	}{
		{status: 400, wantCode: ErrCodeAPIStatus},
		{status: 404, wantCode: ErrCodeAPINotFound},
		{status: 429, wantCode: ErrCodeAPIRateLimited},
		{status: 503, wantCode: ErrCodeAPIStatus, wantSugg: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := NewStatusError(tt.status, "")
			if err.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", err.Code, tt.wantCode)
			}
			if !strings.Contains(err.Message, fmt.Sprintf("%d", tt.status)) {
				t.Errorf("default message should mention status, got %q", err.Message)
			}
			if (len(err.Suggestions) > 0) != tt.wantSugg {
				t.Errorf("suggestions = %v, want present=%v", err.Suggestions, tt.wantSugg)
			}
		})
	}
}

func TestNewAnswerRequiredError(t *testing.T) {
	err := NewAnswerRequiredError("q1", "q3")

	if err.Code != ErrCodeInterviewAnswerRequired {
		t.Errorf("expected code %s, got %s", ErrCodeInterviewAnswerRequired, err.Code)
	}
	if !strings.Contains(err.Message, "q1, q3") {
		t.Errorf("message should list questions, got %q", err.Message)
	}

	if bare := NewAnswerRequiredError(); !strings.Contains(bare.Message, "every question") {
		t.Errorf("unexpected bare message %q", bare.Message)
	}
}

func TestNewStreamEventError(t *testing.T) {
	if err := NewStreamEventError(""); err.Message != "generation failed" {
		t.Errorf("empty message should default, got %q", err.Message)
	}
	if err := NewStreamEventError("quota exceeded"); err.Message != "quota exceeded" {
		t.Errorf("message = %q", err.Message)
	}
}
