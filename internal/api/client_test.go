package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/studyplan/internal/appstate"
	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/metrics"
	"github.com/felixgeelhaar/studyplan/internal/roadmap"
	"github.com/felixgeelhaar/studyplan/internal/stream"
)

// newTestServer starts an HTTP server bound to IPv4-only loopback so tests work
// inside restricted sandboxes that forbid IPv6 listeners.
func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("unable to start test server: %v", err)
	}

	server := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	server.Start()
	t.Cleanup(server.Close)
	return server
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func signedIn() *appstate.State {
	s := appstate.New()
	s.SetAuth(appstate.Auth{AccessToken: "token-1", RefreshToken: "refresh-1"})
	return s
}

func TestBearerTokenIsAttached(t *testing.T) {
	var gotAuth, gotUA string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		writeJSON(w, http.StatusOK, User{ID: "u1", Email: "a@b.c", Username: "ann"})
	})
	srv := newTestServer(t, mux)

	state := signedIn()
	c := NewClient(srv.URL+"/api/v1/", state)

	user, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-1", gotAuth)
	assert.Contains(t, gotUA, "studyplan/")
	assert.Equal(t, "ann", user.Username)
	assert.Equal(t, "u1", state.Auth().User.ID)
}

func TestUnauthorizedLogsOut(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Detail: "token expired"})
	}))

	state := signedIn()
	var reasons []string
	state.OnLogout(func(reason string) { reasons = append(reasons, reason) })

	_, m := metrics.NewRegistry()
	c := NewClient(srv.URL, state, WithMetrics(m))

	_, err := c.ListRoadmaps(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.Match(errors.ErrCodeAuthExpired))
	assert.False(t, state.Auth().Authenticated())
	assert.Equal(t, []string{"unauthorized"}, reasons)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APILogouts))
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    errors.ErrorCode
		message string
	}{
		{name: "json message", status: 400, body: `{"message":"title too long"}`, code: errors.ErrCodeAPIStatus, message: "title too long"},
		{name: "json detail", status: 422, body: `{"detail":"invalid id"}`, code: errors.ErrCodeAPIStatus, message: "invalid id"},
		{name: "not found", status: 404, body: `{}`, code: errors.ErrCodeAPINotFound, message: "request failed with status 404"},
		{name: "rate limited", status: 429, body: ``, code: errors.ErrCodeAPIRateLimited, message: "request failed with status 429"},
		{name: "plain text", status: 502, body: `bad gateway`, code: errors.ErrCodeAPIStatus, message: "request failed with status 502: bad gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			_, err := NewClient(srv.URL, signedIn()).GetProgress(context.Background(), "r1")
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.CodeOf(err))

			var coded *errors.Error
			require.ErrorAs(t, err, &coded)
			assert.Equal(t, tt.message, coded.Message)
		})
	}
}

func TestTransportError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", signedIn())
	_, err := c.ListRoadmaps(context.Background())
	assert.Equal(t, errors.ErrCodeAPIRequest, errors.CodeOf(err))
}

func TestLogin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Detail: "bad credentials"})
			return
		}
		writeJSON(w, http.StatusOK, AuthResponse{
			TokenPair: TokenPair{AccessToken: "at", RefreshToken: "rt"},
			User:      &User{ID: "u1", Email: req.Email},
		})
	})
	srv := newTestServer(t, mux)

	state := appstate.New()
	c := NewClient(srv.URL, state)

	_, err := c.Login(context.Background(), "a@b.c", "wrong")
	assert.Equal(t, errors.ErrCodeAuthInvalid, errors.CodeOf(err))

	auth, err := c.Login(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	assert.Equal(t, "rt", auth.RefreshToken)
	assert.Equal(t, "at", state.AccessToken())
	assert.Equal(t, "a@b.c", state.Auth().User.Email)
}

func TestRegisterFallsBackToLogin(t *testing.T) {
	var logins int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"user": User{ID: "u9"}})
	})
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&logins, 1)
		writeJSON(w, http.StatusOK, AuthResponse{TokenPair: TokenPair{AccessToken: "at", RefreshToken: "rt"}})
	})
	srv := newTestServer(t, mux)

	state := appstate.New()
	_, err := NewClient(srv.URL, state).Register(context.Background(), RegisterRequest{Email: "n@b.c", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), logins)
	assert.Equal(t, "at", state.AccessToken())
}

func TestRefreshAndLogout(t *testing.T) {
	var loggedOut int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["refresh_token"] != "refresh-1" {
			writeJSON(w, http.StatusUnauthorized, nil)
			return
		}
		writeJSON(w, http.StatusOK, TokenPair{AccessToken: "token-2"})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&loggedOut, 1)
		w.WriteHeader(http.StatusNoContent)
	})
	srv := newTestServer(t, mux)

	state := appstate.New()
	c := NewClient(srv.URL, state)

	pair, err := c.Refresh(context.Background(), "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "token-2", state.AccessToken())
	assert.Equal(t, "refresh-1", pair.RefreshToken, "refresh token is kept when not rotated")

	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, int32(1), loggedOut)
	assert.False(t, state.Auth().Authenticated())

	_, err = c.Refresh(context.Background(), "stale")
	assert.Equal(t, errors.ErrCodeAuthRefreshFailed, errors.CodeOf(err))
}

func TestRoadmapCache(t *testing.T) {
	var gets, patches int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /roadmaps/{id}", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&gets, 1)
		writeJSON(w, http.StatusOK, Roadmap{ID: r.PathValue("id"), Title: "Go"})
	})
	mux.HandleFunc("PATCH /roadmaps/{id}/daily-tasks/{task}", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&patches, 1)
		var req UpdateTaskRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, http.StatusOK, DailyTask{ID: r.PathValue("task"), IsCompleted: req.IsCompleted})
	})
	mux.HandleFunc("DELETE /roadmaps/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := newTestServer(t, mux)

	_, m := metrics.NewRegistry()
	c := NewClient(srv.URL, signedIn(), WithCacheSize(4), WithMetrics(m))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		r, err := c.GetRoadmap(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, "r1", r.ID)
	}
	assert.Equal(t, int32(1), gets)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheHits.WithLabelValues("roadmap")))

	task, err := c.SetTaskCompleted(ctx, "r1", "t1", true)
	require.NoError(t, err)
	assert.True(t, task.IsCompleted)

	_, err = c.GetRoadmap(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), gets, "toggle invalidates the cached roadmap")

	require.NoError(t, c.DeleteRoadmap(ctx, "r1"))
	_, err = c.GetRoadmap(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, int32(3), gets)
}

func TestRoadmapCacheReturnsCopies(t *testing.T) {
	var gets int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /roadmaps/{id}", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&gets, 1)
		writeJSON(w, http.StatusOK, Roadmap{ID: r.PathValue("id"), MonthlyGoals: []MonthlyGoal{{
			MonthNumber: 1,
			WeeklyTasks: []WeeklyTask{{WeekNumber: 1, DailyTasks: []DailyTask{{ID: "t1"}}}},
		}}})
	})
	srv := newTestServer(t, mux)

	c := NewClient(srv.URL, signedIn())
	ctx := context.Background()

	first, err := c.GetRoadmap(ctx, "r1")
	require.NoError(t, err)
	task, _, _, ok := first.FindTask("t1")
	require.True(t, ok)
	task.IsCompleted = true
	first.Title = "changed"

	second, err := c.GetRoadmap(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), gets)
	assert.Empty(t, second.Title)
	cached, _, _, ok := second.FindTask("t1")
	require.True(t, ok)
	assert.False(t, cached.IsCompleted, "edits to a returned roadmap must not reach the cache")
}

func TestMutationEvictsRacingRead(t *testing.T) {
	var (
		gets int32
		c    *Client
	)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /roadmaps/{id}", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&gets, 1)
		writeJSON(w, http.StatusOK, Roadmap{ID: r.PathValue("id")})
	})
	mux.HandleFunc("PATCH /roadmaps/{id}/daily-tasks/{task}", func(w http.ResponseWriter, r *http.Request) {
		// Another reader caches the roadmap while the toggle is in flight.
		_, err := c.GetRoadmap(r.Context(), r.PathValue("id"))
		assert.NoError(t, err)
		writeJSON(w, http.StatusOK, DailyTask{ID: r.PathValue("task"), IsCompleted: true})
	})
	mux.HandleFunc("PATCH /roadmaps/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, err := c.GetRoadmap(r.Context(), r.PathValue("id"))
		assert.NoError(t, err)
		writeJSON(w, http.StatusOK, Roadmap{ID: r.PathValue("id"), Title: "renamed"})
	})
	srv := newTestServer(t, mux)

	c = NewClient(srv.URL, signedIn())
	ctx := context.Background()

	_, err := c.SetTaskCompleted(ctx, "r1", "t1", true)
	require.NoError(t, err)
	require.Equal(t, int32(1), gets)

	_, err = c.GetRoadmap(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), gets, "the copy cached during the toggle is stale")

	_, err = c.UpdateRoadmap(ctx, "r1", UpdateRoadmapRequest{})
	require.NoError(t, err)
	_, err = c.GetRoadmap(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, int32(4), gets, "the copy cached during the rename is stale")
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []RoadmapSummary{})
	}))

	c := NewClient(srv.URL, signedIn(), WithRateLimit(1, 1))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := c.ListRoadmaps(ctx)
	require.NoError(t, err)

	_, err = c.ListRoadmaps(ctx)
	assert.Equal(t, errors.ErrCodeAPIRequest, errors.CodeOf(err), "second call cannot get a token before the deadline")
}

func TestQuizzes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /roadmaps/r1/quizzes", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []Quiz{{ID: "q1", RoadmapID: "r1", Questions: []QuizQuestion{{ID: "x"}}}})
	})
	mux.HandleFunc("POST /quizzes/q1/submit", func(w http.ResponseWriter, r *http.Request) {
		var sub QuizSubmission
		_ = json.NewDecoder(r.Body).Decode(&sub)
		writeJSON(w, http.StatusOK, QuizResult{QuizID: "q1", Correct: len(sub.Answers), Total: 1, Score: 100, Passed: true})
	})
	srv := newTestServer(t, mux)
	c := NewClient(srv.URL, signedIn())

	quizzes, err := c.ListQuizzes(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, quizzes, 1)

	res, err := c.SubmitQuiz(context.Background(), "q1", []QuizAnswer{{QuestionID: "x", Answer: "a"}})
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Equal(t, 1, res.Correct)
}

func TestGenerateStream_EndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /stream/roadmaps/generate", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, frame := range []string{
			`{"type":"start","progress":0}`,
			`{"type":"analyzing_goals","progress":20}`,
			`{"type":"goals_analyzed","progress":30,"data":{"title":"나의 학습 로드맵","description":"체계적인 학습 계획"}}`,
			`{"type":"complete","progress":100,"data":{"roadmap_id":"r1"}}`,
		} {
			fmt.Fprintf(w, "data: %s\n\n", frame)
			flusher.Flush()
		}
	})
	srv := newTestServer(t, mux)
	c := NewClient(srv.URL, signedIn())

	reducer := roadmap.NewReducer()
	s := stream.NewSession(stream.WithHandler(reducer))

	res, err := s.Start(context.Background(), c.GenerateStream(GenerateRequest{Topic: "Go", DurationMonths: 3}))
	require.NoError(t, err)
	assert.Equal(t, "r1", res.RoadmapID())

	snap := s.Snapshot()
	assert.False(t, snap.IsStreaming)
	assert.Equal(t, 100.0, snap.Progress)
	assert.Len(t, snap.Events, 4)
	assert.Equal(t, "체계적인 학습 계획", reducer.Snapshot().Description)
}

func TestGenerateStreamLegacy_EventLines(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: month_ready\r\ndata: {\"month_number\":1,\"title\":\"기초\"}\r\n\r\n")
		fmt.Fprint(w, "event: complete\r\ndata: {\"roadmap_id\":\"r7\"}\r\n\r\n")
	}))
	c := NewClient(srv.URL, signedIn())

	reducer := roadmap.NewReducer()
	s := stream.NewSession(stream.WithHandler(reducer))

	res, err := s.Start(context.Background(), c.GenerateStreamLegacy(GenerateRequest{Topic: "Go"}))
	require.NoError(t, err)
	assert.Equal(t, "r7", res.RoadmapID())
	require.Len(t, reducer.Snapshot().MonthlyGoals, 1)
	assert.Equal(t, "기초", reducer.Snapshot().MonthlyGoals[0].Title)
}

func TestStreamOpenFailure(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Message: "generator offline"})
	}))
	c := NewClient(srv.URL, signedIn())
	s := stream.NewSession()

	_, err := s.Start(context.Background(), c.GenerateStream(GenerateRequest{Topic: "Go"}))
	require.Error(t, err)
	assert.Equal(t, stream.StatusError, s.Status())
	assert.Equal(t, "generator offline", s.Snapshot().Error)
}

func TestStreamCancelDuringBlockedRead(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"start\"}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	c := NewClient(srv.URL, signedIn())
	s := stream.NewSession()

	go func() {
		assert.Eventually(t, func() bool { return len(s.Snapshot().Events) == 1 }, 2*time.Second, 5*time.Millisecond)
		s.Cancel()
	}()

	_, err := s.Start(context.Background(), c.GenerateStream(GenerateRequest{Topic: "Go"}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, stream.StatusCancelled, s.Status())
}

func TestFindTask(t *testing.T) {
	r := &Roadmap{MonthlyGoals: []MonthlyGoal{{
		MonthNumber: 2,
		WeeklyTasks: []WeeklyTask{{WeekNumber: 3, DailyTasks: []DailyTask{{ID: "d1"}, {ID: "d2"}}}},
	}}}

	task, m, w, ok := r.FindTask("d2")
	require.True(t, ok)
	assert.Equal(t, "d2", task.ID)
	assert.Equal(t, 2, m)
	assert.Equal(t, 3, w)

	_, _, _, ok = r.FindTask("zz")
	assert.False(t, ok)
}
