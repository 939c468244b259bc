package mock

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/studyplan/internal/api"
)

// Demo account seeded into every mock backend.
const (
	DemoEmail    = "demo@studyplan.dev"
	DemoPassword = "demo-password"
)

type account struct {
	user     api.User
	password string
}

type interviewState struct {
	id      string
	email   string
	goal    api.InterviewStartRequest
	round   int
	answers [][]api.InterviewAnswer
}

type quizEntry struct {
	quiz api.Quiz
	key  map[string]string
}

// store holds the mock backend's data in memory.
type store struct {
	mu         sync.Mutex
	now        func() time.Time
	accounts   map[string]*account // by email
	access     map[string]string   // token -> email
	refresh    map[string]string   // token -> email
	roadmaps   map[string]*api.Roadmap
	owners     map[string]string // roadmap id -> email
	interviews map[string]*interviewState
	quizzes    map[string]*quizEntry
}

func newStore(now func() time.Time) *store {
	s := &store{
		now:        now,
		accounts:   make(map[string]*account),
		access:     make(map[string]string),
		refresh:    make(map[string]string),
		roadmaps:   make(map[string]*api.Roadmap),
		owners:     make(map[string]string),
		interviews: make(map[string]*interviewState),
		quizzes:    make(map[string]*quizEntry),
	}
	_, _ = s.register(DemoEmail, "demo", DemoPassword)
	return s
}

func (s *store) register(email, username, password string) (*api.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	if _, ok := s.accounts[email]; ok {
		return nil, false
	}
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}
	a := &account{
		user: api.User{
			ID:        uuid.NewString(),
			Email:     email,
			Username:  username,
			CreatedAt: s.now(),
		},
		password: password,
	}
	s.accounts[email] = a
	u := a.user
	return &u, true
}

func (s *store) login(email, password string) (*api.AuthResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	a, ok := s.accounts[email]
	if !ok || a.password != password {
		return nil, false
	}
	u := a.user
	return &api.AuthResponse{TokenPair: s.issue(email), User: &u}, true
}

// issue must be called with mu held.
func (s *store) issue(email string) api.TokenPair {
	access := "mock-access-" + uuid.NewString()
	refresh := "mock-refresh-" + uuid.NewString()
	s.access[access] = email
	s.refresh[refresh] = email
	return api.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    3600,
	}
}

// rotate exchanges a refresh token. The old token stops working.
func (s *store) rotate(refresh string) (api.TokenPair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email, ok := s.refresh[refresh]
	if !ok {
		return api.TokenPair{}, false
	}
	delete(s.refresh, refresh)
	return s.issue(email), true
}

func (s *store) revoke(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.access, access)
	delete(s.refresh, refresh)
}

// expire invalidates every access token so the next request gets 401.
func (s *store) expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = make(map[string]string)
}

func (s *store) userForToken(token string) (*api.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.access[token]
	if !ok {
		return nil, false
	}
	u := s.accounts[email].user
	return &u, true
}

func (s *store) startInterview(email string, goal api.InterviewStartRequest) *interviewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	iv := &interviewState{id: uuid.NewString(), email: email, goal: goal, round: 1}
	s.interviews[iv.id] = iv
	return iv
}

// answerInterview records a round and reports the outcome.
func (s *store) answerInterview(email, id string, answers []api.InterviewAnswer) (*api.InterviewSubmitResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	iv, ok := s.interviews[id]
	if !ok || iv.email != email {
		return nil, false
	}
	iv.answers = append(iv.answers, answers)
	answered := iv.round

	resp := &api.InterviewSubmitResponse{
		SessionID: iv.id,
		MaxRounds: MaxRounds,
	}
	if needsFollowup(answered, answers) {
		iv.round++
		resp.Status = api.InterviewStatusFollowup
		resp.Round = iv.round
		resp.Questions = roundQuestions(iv.round, iv.goal.Topic)
		resp.InformationLevel = informationLevel(iv.round)
		resp.AIRecommendsComplete = iv.round >= 2
		resp.Evaluation = evaluationFor(answered, false)
		return resp, true
	}
	resp.Status = api.InterviewStatusComplete
	resp.Round = answered
	resp.InformationLevel = "high"
	resp.AIRecommendsComplete = true
	resp.Evaluation = evaluationFor(answered, true)
	return resp, true
}

func (s *store) interviewGoal(id string) (api.InterviewStartRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	iv, ok := s.interviews[id]
	if !ok {
		return api.InterviewStartRequest{}, false
	}
	return iv.goal, true
}

func (s *store) saveRoadmap(email string, r *api.Roadmap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roadmaps[r.ID] = r
	s.owners[r.ID] = email
	for _, q := range buildQuizzes(r) {
		entry := q
		s.quizzes[q.quiz.ID] = &entry
	}
}

// roadmap returns a deep copy of the caller's roadmap.
func (s *store) roadmap(email, id string) (*api.Roadmap, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roadmaps[id]
	if !ok || s.owners[id] != email {
		return nil, false
	}
	return copyRoadmap(r), true
}

func (s *store) listRoadmaps(email string) []api.RoadmapSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []api.RoadmapSummary{}
	for id, r := range s.roadmaps {
		if s.owners[id] != email {
			continue
		}
		p := progressOf(r)
		out = append(out, api.RoadmapSummary{
			ID:             r.ID,
			Title:          r.Title,
			Description:    r.Description,
			DurationMonths: r.DurationMonths,
			LearningMode:   r.LearningMode,
			Progress:       p.Percentage,
			CreatedAt:      r.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *store) updateRoadmap(email, id string, patch api.UpdateRoadmapRequest) (*api.Roadmap, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roadmaps[id]
	if !ok || s.owners[id] != email {
		return nil, false
	}
	if patch.Title != nil {
		r.Title = *patch.Title
	}
	if patch.Description != nil {
		r.Description = *patch.Description
	}
	r.UpdatedAt = s.now()
	return copyRoadmap(r), true
}

func (s *store) deleteRoadmap(email, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roadmaps[id]; !ok || s.owners[id] != email {
		return false
	}
	delete(s.roadmaps, id)
	delete(s.owners, id)
	for qid, q := range s.quizzes {
		if q.quiz.RoadmapID == id {
			delete(s.quizzes, qid)
		}
	}
	return true
}

func (s *store) setTask(email, roadmapID, taskID string, done bool) (*api.DailyTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roadmaps[roadmapID]
	if !ok || s.owners[roadmapID] != email {
		return nil, false
	}
	task, _, _, ok := r.FindTask(taskID)
	if !ok {
		return nil, false
	}
	task.IsCompleted = done
	r.UpdatedAt = s.now()
	t := *task
	return &t, true
}

func (s *store) progress(email, id string) (*api.LearningProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roadmaps[id]
	if !ok || s.owners[id] != email {
		return nil, false
	}
	p := progressOf(r)
	return &p, true
}

func (s *store) listQuizzes(email, roadmapID string) ([]api.Quiz, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roadmaps[roadmapID]; !ok || s.owners[roadmapID] != email {
		return nil, false
	}
	out := []api.Quiz{}
	for _, q := range s.quizzes {
		if q.quiz.RoadmapID == roadmapID {
			out = append(out, q.quiz)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, true
}

func (s *store) gradeQuiz(email, quizID string, answers []api.QuizAnswer) (*api.QuizResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[quizID]
	if !ok || s.owners[q.quiz.RoadmapID] != email {
		return nil, false
	}

	given := make(map[string]string, len(answers))
	for _, a := range answers {
		given[a.QuestionID] = a.Answer
	}
	res := &api.QuizResult{QuizID: quizID, Total: len(q.quiz.Questions)}
	for _, question := range q.quiz.Questions {
		want := q.key[question.ID]
		fb := api.QuestionFeedback{
			QuestionID: question.ID,
			Correct:    strings.EqualFold(strings.TrimSpace(given[question.ID]), want),
		}
		if fb.Correct {
			res.Correct++
		} else {
			fb.Explanation = "The expected answer was " + want + "."
		}
		res.Feedback = append(res.Feedback, fb)
	}
	if res.Total > 0 {
		res.Score = float64(res.Correct) / float64(res.Total) * 100
	}
	res.Passed = res.Score >= 60
	return res, true
}

// progressOf locates the first unfinished week as the current position.
func progressOf(r *api.Roadmap) api.LearningProgress {
	p := api.LearningProgress{RoadmapID: r.ID}
	for _, m := range r.MonthlyGoals {
		for _, w := range m.WeeklyTasks {
			for _, d := range w.DailyTasks {
				p.TotalTasks++
				if d.IsCompleted {
					p.CompletedTasks++
				} else if p.CurrentMonth == 0 {
					p.CurrentMonth = m.MonthNumber
					p.CurrentWeek = w.WeekNumber
				}
			}
		}
	}
	if p.TotalTasks > 0 {
		p.Percentage = float64(p.CompletedTasks) / float64(p.TotalTasks) * 100
	}
	return p
}

func copyRoadmap(r *api.Roadmap) *api.Roadmap {
	out := *r
	out.MonthlyGoals = make([]api.MonthlyGoal, len(r.MonthlyGoals))
	for i, m := range r.MonthlyGoals {
		m.WeeklyTasks = append([]api.WeeklyTask(nil), m.WeeklyTasks...)
		for j, w := range m.WeeklyTasks {
			w.DailyTasks = append([]api.DailyTask(nil), w.DailyTasks...)
			m.WeeklyTasks[j] = w
		}
		out.MonthlyGoals[i] = m
	}
	return &out
}
