package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Auth errors (AUTH-001 to AUTH-099)
	ErrCodeAuthRequired      ErrorCode = "AUTH-001"
	ErrCodeAuthInvalid       ErrorCode = "AUTH-002"
	ErrCodeAuthExpired       ErrorCode = "AUTH-003"
	ErrCodeAuthRefreshFailed ErrorCode = "AUTH-004"

	// API transport errors (API-001 to API-099)
	ErrCodeAPIRequest     ErrorCode = "API-001"
	ErrCodeAPIStatus      ErrorCode = "API-002"
	ErrCodeAPIDecode      ErrorCode = "API-003"
	ErrCodeAPINotFound    ErrorCode = "API-004"
	ErrCodeAPIRateLimited ErrorCode = "API-005"

	// Stream errors (STREAM-001 to STREAM-099)
	ErrCodeStreamOpen       ErrorCode = "STREAM-001"
	ErrCodeStreamRead       ErrorCode = "STREAM-002"
	ErrCodeStreamEvent      ErrorCode = "STREAM-003"
	ErrCodeStreamIncomplete ErrorCode = "STREAM-004"

	// Interview errors (INTERVIEW-001 to INTERVIEW-099)
	ErrCodeInterviewNotStarted     ErrorCode = "INTERVIEW-001"
	ErrCodeInterviewAnswerRequired ErrorCode = "INTERVIEW-002"
	ErrCodeInterviewNotReady       ErrorCode = "INTERVIEW-003"
	ErrCodeInterviewState          ErrorCode = "INTERVIEW-004"

	// Config errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid    ErrorCode = "CONFIG-001"
	ErrCodeConfigUnknownKey ErrorCode = "CONFIG-002"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileReadFailed  ErrorCode = "IO-001"
	ErrCodeFileWriteFailed ErrorCode = "IO-002"
	ErrCodeFileUnmarshal   ErrorCode = "IO-003"

	// Mock backend errors (MOCK-001 to MOCK-099)
	ErrCodeMockContract ErrorCode = "MOCK-001"
	ErrCodeMockServe    ErrorCode = "MOCK-002"

	// Diagnostics (HEALTH-001 to HEALTH-099)
	ErrCodeHealthCheckFailed ErrorCode = "HEALTH-001"
)

// Error is a coded error carrying recovery suggestions and a docs link.
type Error struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)

	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			fmt.Fprintf(&b, "\n  • %s", suggestion)
		}
	}

	if e.DocsURL != "" {
		fmt.Fprintf(&b, "\n\nDocumentation: %s", e.DocsURL)
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a bare code matcher (see Match) for this error's code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == ""
}

// New creates a new coded error
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new coded error wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *Error) WithSuggestions(suggestions ...string) *Error {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *Error) WithDocs(url string) *Error {
	e.DocsURL = url
	return e
}

// CodeOf returns the code of the first coded error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var coded *Error
	if stderrors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// Match returns a bare error with the given code, usable as an errors.Is target.
func Match(code ErrorCode) *Error {
	return &Error{Code: code}
}

const docsBase = "https://github.com/felixgeelhaar/studyplan#"

// Common error constructors for frequently used errors

// NewUnauthorizedError reports a 401 from the backend.
func NewUnauthorizedError() *Error {
	return New(ErrCodeAuthExpired, "session expired or not authenticated").
		WithSuggestion("Run 'studyplan login' to sign in again").
		WithDocs(docsBase + "authentication")
}

// NewLoginRequiredError is returned when a command needs a token and none is stored.
func NewLoginRequiredError() *Error {
	return New(ErrCodeAuthRequired, "not logged in").
		WithSuggestion("Run 'studyplan login' first").
		WithSuggestion("Or run with --mock to use the built-in mock backend")
}

// NewStatusError creates an error for a non-2xx response.
func NewStatusError(status int, message string) *Error {
	code := ErrCodeAPIStatus
	switch status {
	case 404:
		code = ErrCodeAPINotFound
	case 429:
		code = ErrCodeAPIRateLimited
	}
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
	}
	e := New(code, message)
	if status >= 500 {
		e.WithSuggestion("The server failed to handle the request; retry in a moment")
	}
	return e
}

// NewStreamEventError wraps an error event emitted inside an otherwise healthy stream.
func NewStreamEventError(message string) *Error {
	if message == "" {
		message = "generation failed"
	}
	return New(ErrCodeStreamEvent, message).
		WithSuggestion("Re-run the command to retry the generation")
}

// NewAnswerRequiredError creates a required answer error
func NewAnswerRequiredError(questions ...string) *Error {
	msg := "every question needs an answer"
	if len(questions) > 0 {
		msg = fmt.Sprintf("answer is required for: %s", strings.Join(questions, ", "))
	}
	return New(ErrCodeInterviewAnswerRequired, msg).
		WithSuggestion("Provide a non-empty answer for each displayed question")
}

// NewUnknownConfigKeyError reports an unsupported dot-notation key.
func NewUnknownConfigKeyError(key string) *Error {
	return New(ErrCodeConfigUnknownKey, fmt.Sprintf("unknown configuration key: %s", key)).
		WithSuggestion("Run 'studyplan config view' to list available keys")
}

// NewFileUnmarshalError creates an unmarshal error
func NewFileUnmarshalError(path string, format string, cause error) *Error {
	return Wrap(ErrCodeFileUnmarshal, fmt.Sprintf("failed to parse %s file: %s", format, path), cause).
		WithSuggestion("Check the file syntax and format").
		WithSuggestion(fmt.Sprintf("Ensure the file is valid %s", format))
}
