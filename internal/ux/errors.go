package ux

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/studyplan/internal/errors"
)

// ErrorWithSuggestion wraps an error with helpful recovery suggestions
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\n💡 Suggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap provides access to the underlying error
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// NewErrorWithSuggestion creates a new error with a suggestion
func NewErrorWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// EnhanceError analyzes an error and adds contextual suggestions. Coded
// errors that already carry suggestions are returned unchanged.
func EnhanceError(err error) error {
	if err == nil {
		return nil
	}

	var coded *errors.Error
	if stderrors.As(err, &coded) && len(coded.Suggestions) > 0 {
		return err
	}

	if stderrors.Is(err, context.Canceled) {
		return err
	}

	errMsg := err.Error()

	// Backend unreachable
	if strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "no such host") ||
		strings.Contains(errMsg, "no route to host") {
		return NewErrorWithSuggestion(err,
			"Check api.url (or STUDYPLAN_API_URL), or run with --mock to use the built-in backend")
	}

	if stderrors.Is(err, context.DeadlineExceeded) || strings.Contains(errMsg, "Client.Timeout") {
		return NewErrorWithSuggestion(err,
			"The backend is slow to answer; raise api.timeout_sec with 'studyplan config set api.timeout_sec 60'")
	}

	if coded != nil {
		switch coded.Code {
		case errors.ErrCodeAuthRequired, errors.ErrCodeAuthExpired, errors.ErrCodeAuthRefreshFailed:
			return NewErrorWithSuggestion(err, "Run 'studyplan login' to sign in")
		case errors.ErrCodeAPINotFound:
			return NewErrorWithSuggestion(err, "Run 'studyplan roadmaps list' to see your roadmaps")
		case errors.ErrCodeAPIRateLimited:
			return NewErrorWithSuggestion(err, "Wait a moment, or lower api.rate_limit")
		}
	}

	// Permission errors
	if strings.Contains(errMsg, "permission denied") {
		return NewErrorWithSuggestion(err,
			"Check the permissions of the settings directory (~/.studyplan or $STUDYPLAN_HOME)")
	}

	// Generic suggestion based on error type
	if strings.Contains(errMsg, "failed to") {
		return NewErrorWithSuggestion(err,
			fmt.Sprintf("Next steps: %s", SuggestNextSteps(NewPathDefaults())))
	}

	return err
}

// FormatError provides consistent error formatting with context
func FormatError(err error, context string) error {
	if err == nil {
		return nil
	}

	enhanced := EnhanceError(err)
	if context != "" {
		return fmt.Errorf("%s: %w", context, enhanced)
	}
	return enhanced
}
