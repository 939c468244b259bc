// Package mock serves an in-memory imitation of the studyplan backend. It
// answers every endpoint the client uses, streams canned interview and
// generation events, and checks its routes and request bodies against an
// embedded OpenAPI contract.
package mock

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/log"
	"github.com/felixgeelhaar/studyplan/internal/metrics"
)

// BasePath is the API root the mock serves under.
const BasePath = "/api/v1"

// Option configures a Server.
type Option func(*Server)

// WithDelay sets the pause before each streamed event.
func WithDelay(d time.Duration) Option {
	return func(s *Server) { s.delay = d }
}

// WithLogger sets the server logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics counts served requests.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMetricsEndpoint exposes g on GET /metrics.
func WithMetricsEndpoint(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithDemoRoadmap seeds the demo account with a roadmap on topic.
func WithDemoRoadmap(topic string, months int) Option {
	return func(s *Server) {
		s.seed = &api.GenerateRequest{Topic: topic, DurationMonths: months}
	}
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// Server is the mock backend.
type Server struct {
	router   *mux.Router
	store    *store
	contract *Contract
	delay    time.Duration
	seed     *api.GenerateRequest
	logger   *log.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	now      func() time.Time
}

type userKey struct{}

// New builds a mock backend. It fails when the registered routes drift from
// the embedded contract.
func New(opts ...Option) (*Server, error) {
	contract, err := LoadContract()
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:   mux.NewRouter(),
		contract: contract,
		logger:   log.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.store = newStore(s.now)
	if s.seed != nil {
		s.store.saveRoadmap(DemoEmail, buildRoadmap(*s.seed, s.now()))
	}
	s.routes()

	if drift := s.Drift(); len(drift) > 0 {
		return nil, errors.New(errors.ErrCodeMockContract, "mock routes drift from the API contract: "+strings.Join(drift, "; "))
	}
	return s, nil
}

func (s *Server) routes() {
	s.router.Use(s.observe)
	if s.gatherer != nil {
		s.router.Handle("/metrics", metrics.HandlerFor(s.gatherer)).Methods(http.MethodGet)
	}
	s.router.HandleFunc("/openapi.json", s.handleContract).Methods(http.MethodGet)

	base := s.router.PathPrefix(BasePath).Subrouter()
	base.Use(s.contractMiddleware)
	base.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	base.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	base.HandleFunc("/auth/refresh", s.handleRefresh).Methods(http.MethodPost)

	authed := base.NewRoute().Subrouter()
	authed.Use(s.requireAuth)
	authed.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	authed.HandleFunc("/users/me", s.handleMe).Methods(http.MethodGet)

	authed.HandleFunc("/roadmaps", s.handleListRoadmaps).Methods(http.MethodGet)
	authed.HandleFunc("/roadmaps/generate-stream", s.handleGenerateStream(true)).Methods(http.MethodPost)
	authed.HandleFunc("/roadmaps/{id}", s.handleGetRoadmap).Methods(http.MethodGet)
	authed.HandleFunc("/roadmaps/{id}", s.handleUpdateRoadmap).Methods(http.MethodPatch)
	authed.HandleFunc("/roadmaps/{id}", s.handleDeleteRoadmap).Methods(http.MethodDelete)
	authed.HandleFunc("/roadmaps/{id}/daily-tasks/{task_id}", s.handleUpdateTask).Methods(http.MethodPatch)
	authed.HandleFunc("/roadmaps/{id}/progress", s.handleProgress).Methods(http.MethodGet)
	authed.HandleFunc("/roadmaps/{id}/quizzes", s.handleListQuizzes).Methods(http.MethodGet)
	authed.HandleFunc("/quizzes/{id}/submit", s.handleSubmitQuiz).Methods(http.MethodPost)

	authed.HandleFunc("/interviews", s.handleStartInterview).Methods(http.MethodPost)
	authed.HandleFunc("/interviews/{id}/answers", s.handleSubmitAnswers).Methods(http.MethodPost)

	authed.HandleFunc("/stream/interviews/start", s.handleInterviewStartStream).Methods(http.MethodPost)
	authed.HandleFunc("/stream/interviews/{id}/submit", s.handleInterviewSubmitStream).Methods(http.MethodPost)
	authed.HandleFunc("/stream/roadmaps/generate", s.handleGenerateStream(false)).Methods(http.MethodPost)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Contract returns the contract the server was checked against.
func (s *Server) Contract() *Contract {
	return s.contract
}

// Drift lists the differences between the served routes and the contract.
func (s *Server) Drift() []string {
	return s.contract.Drift(s.router)
}

// ExpireSessions invalidates every issued access token. Refresh tokens keep
// working.
func (s *Server) ExpireSessions() {
	s.store.expire()
}

// observe records one MockRequests sample per matched route.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		if s.metrics != nil {
			s.metrics.MockRequests.WithLabelValues(r.Method, route).Inc()
		}
		s.logger.Debug("mock request", "method", r.Method, "route", route)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		user, ok := s.store.userForToken(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentUser(r *http.Request) *api.User {
	u, _ := r.Context().Value(userKey{}).(*api.User)
	return u
}

func (s *Server) handleContract(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.contract.Document())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError uses the {"detail": ...} body of the real backend.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, api.ErrorResponse{Detail: msg})
}

func decodeBody(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}
