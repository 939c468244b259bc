// Package health runs named checks against what studyplan depends on: its
// settings, the saved session, the backend and the mock contract.
//
// Example usage:
//
//	manager := health.NewManager()
//	manager.AddChecker(health.ConfigCheck(cfg))
//	manager.AddChecker(health.EndpointCheck(http.DefaultClient, cfg.API.URL))
//
//	for _, r := range manager.Check(ctx) {
//	    logger.Info("health check", "name", r.Name, "status", r.Status)
//	}
package health

import (
	"context"
	"time"
)

// Checker is one named health check.
type Checker interface {
	// Name is lowercase with hyphens, e.g. "api" or "mock-contract".
	Name() string

	// Check must respect the context deadline.
	Check(ctx context.Context) *Result
}

// Status is the outcome of a check.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

func (s Status) rank() int {
	switch s {
	case StatusUnhealthy:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

// Result is what a check found.
type Result struct {
	Status     Status         `json:"status" yaml:"status"`
	Message    string         `json:"message" yaml:"message"`
	Suggestion string         `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
	Details    map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	Latency    time.Duration  `json:"latency" yaml:"latency"`
}

// NewResult creates a result with the given status and message.
func NewResult(status Status, message string) *Result {
	return &Result{
		Status:  status,
		Message: message,
		Details: make(map[string]any),
	}
}

// WithDetail adds a detail and returns the result for chaining.
func (r *Result) WithDetail(key string, value any) *Result {
	r.Details[key] = value
	return r
}

// WithSuggestion sets what the user can do about the finding.
func (r *Result) WithSuggestion(s string) *Result {
	r.Suggestion = s
	return r
}

// Healthy creates a healthy result.
func Healthy(message string) *Result {
	return NewResult(StatusHealthy, message)
}

// Degraded creates a degraded result.
func Degraded(message string) *Result {
	return NewResult(StatusDegraded, message)
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string) *Result {
	return NewResult(StatusUnhealthy, message)
}

type funcChecker struct {
	name string
	fn   func(context.Context) *Result
}

func (f funcChecker) Name() string {
	return f.name
}

func (f funcChecker) Check(ctx context.Context) *Result {
	return f.fn(ctx)
}

// Func adapts fn to a Checker called name.
func Func(name string, fn func(ctx context.Context) *Result) Checker {
	return funcChecker{name: name, fn: fn}
}
