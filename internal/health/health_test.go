package health

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/studyplan/internal/config"
)

// stubChecker is a test double for health checks
type stubChecker struct {
	name   string
	result *Result
	delay  time.Duration
}

func (s *stubChecker) Name() string {
	return s.name
}

func (s *stubChecker) Check(ctx context.Context) *Result {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Unhealthy("check cancelled").WithDetail("error", ctx.Err().Error())
		}
	}
	return s.result
}

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("unable to start test server: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts
}

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager.timeout != 5*time.Second {
		t.Errorf("timeout = %v, want %v", manager.timeout, 5*time.Second)
	}
	if manager.Count() != 0 {
		t.Errorf("Count() = %d, want 0", manager.Count())
	}
	if manager.WithTimeout(time.Second) != manager {
		t.Error("WithTimeout should return same manager for chaining")
	}
}

func TestCheckKeepsOrder(t *testing.T) {
	manager := NewManager()
	manager.AddChecker(&stubChecker{name: "slow", result: Healthy("ok"), delay: 20 * time.Millisecond})
	manager.AddChecker(&stubChecker{name: "fast", result: Degraded("meh")})
	manager.AddChecker(&stubChecker{name: "nil"})

	reports := manager.Check(context.Background())
	if len(reports) != 3 {
		t.Fatalf("got %d reports, want 3", len(reports))
	}
	for i, want := range []string{"slow", "fast", "nil"} {
		if reports[i].Name != want {
			t.Errorf("reports[%d].Name = %s, want %s", i, reports[i].Name, want)
		}
	}
	if reports[0].Latency < 20*time.Millisecond {
		t.Errorf("latency = %v, want at least the check delay", reports[0].Latency)
	}
	if reports[2].Status != StatusUnhealthy {
		t.Errorf("nil result status = %s, want unhealthy", reports[2].Status)
	}
}

func TestCheckTimeout(t *testing.T) {
	manager := NewManager().WithTimeout(10 * time.Millisecond)
	manager.AddChecker(&stubChecker{name: "hang", result: Healthy("never"), delay: time.Second})

	start := time.Now()
	reports := manager.Check(context.Background())
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Check should give up after the timeout")
	}
	if reports[0].Status != StatusUnhealthy {
		t.Errorf("status = %s, want unhealthy", reports[0].Status)
	}
}

func TestOverall(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy wins", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reports []Report
			for _, s := range tt.statuses {
				reports = append(reports, Report{Result: *NewResult(s, "")})
			}
			if got := Overall(reports); got != tt.want {
				t.Errorf("Overall() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestConfigCheck(t *testing.T) {
	cfg := config.Default()
	if r := ConfigCheck(cfg).Check(context.Background()); r.Status != StatusHealthy {
		t.Errorf("default config: status = %s (%s)", r.Status, r.Message)
	}

	cfg.Display.Theme = "neon"
	r := ConfigCheck(cfg).Check(context.Background())
	if r.Status != StatusUnhealthy {
		t.Fatalf("invalid theme: status = %s", r.Status)
	}
	if !strings.Contains(r.Message, "display.theme") || r.Suggestion == "" {
		t.Errorf("result = %+v", r)
	}
}

func TestCredentialsCheck(t *testing.T) {
	dir := t.TempDir()
	store := config.NewCredentialStore(filepath.Join(dir, "credentials.yaml"))
	check := CredentialsCheck(store)

	if r := check.Check(context.Background()); r.Status != StatusDegraded || r.Message != "not signed in" {
		t.Errorf("no session: %+v", r)
	}

	if err := store.Save(config.Credentials{RefreshToken: "r1", Email: "ada@example.com"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	r := check.Check(context.Background())
	if r.Status != StatusHealthy || !strings.Contains(r.Message, "ada@example.com") {
		t.Errorf("saved session: %+v", r)
	}

	if err := os.Chmod(store.Path(), 0o644); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	if r := check.Check(context.Background()); r.Status != StatusDegraded || !strings.Contains(r.Suggestion, "chmod 600") {
		t.Errorf("world readable: %+v", r)
	}
}

func TestEndpointCheck(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   Status
	}{
		{"api answers 401", http.StatusUnauthorized, StatusHealthy},
		{"not an api", http.StatusNotFound, StatusDegraded},
		{"server error", http.StatusBadGateway, StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/v1/users/me" {
					t.Errorf("path = %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			}))

			r := EndpointCheck(ts.Client(), ts.URL+"/api/v1/").Check(context.Background())
			if r.Status != tt.want {
				t.Errorf("status = %s, want %s (%s)", r.Status, tt.want, r.Message)
			}
			if r.Details["status"] != tt.status {
				t.Errorf("details = %v", r.Details)
			}
		})
	}
}

func TestEndpointCheckUnreachable(t *testing.T) {
	ts := newTestServer(t, http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	r := EndpointCheck(http.DefaultClient, url).Check(context.Background())
	if r.Status != StatusUnhealthy {
		t.Errorf("status = %s, want unhealthy", r.Status)
	}
	if !strings.Contains(r.Suggestion, "--mock") {
		t.Errorf("suggestion = %q", r.Suggestion)
	}
}
