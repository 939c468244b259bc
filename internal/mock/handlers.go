package mock

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/felixgeelhaar/studyplan/internal/api"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !decodeBody(r, &req) {
		writeError(w, http.StatusUnprocessableEntity, "invalid login request")
		return
	}
	auth, ok := s.store.login(req.Email, req.Password)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	writeJSON(w, http.StatusOK, auth)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !decodeBody(r, &req) || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "email and password are required")
		return
	}
	if _, ok := s.store.register(req.Email, req.Username, req.Password); !ok {
		writeError(w, http.StatusConflict, "Email already registered")
		return
	}
	auth, _ := s.store.login(req.Email, req.Password)
	writeJSON(w, http.StatusCreated, auth)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeBody(r, &req) {
		writeError(w, http.StatusUnprocessableEntity, "invalid refresh request")
		return
	}
	pair, ok := s.store.rotate(req.RefreshToken)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = decodeBody(r, &req)
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.store.revoke(token, req.RefreshToken)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (s *Server) handleListRoadmaps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.listRoadmaps(currentUser(r).Email))
}

func (s *Server) handleGetRoadmap(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.store.roadmap(currentUser(r).Email, mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "Roadmap not found")
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

func (s *Server) handleUpdateRoadmap(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateRoadmapRequest
	if !decodeBody(r, &req) {
		writeError(w, http.StatusUnprocessableEntity, "invalid roadmap update")
		return
	}
	rm, ok := s.store.updateRoadmap(currentUser(r).Email, mux.Vars(r)["id"], req)
	if !ok {
		writeError(w, http.StatusNotFound, "Roadmap not found")
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

func (s *Server) handleDeleteRoadmap(w http.ResponseWriter, r *http.Request) {
	if !s.store.deleteRoadmap(currentUser(r).Email, mux.Vars(r)["id"]) {
		writeError(w, http.StatusNotFound, "Roadmap not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateTaskRequest
	if !decodeBody(r, &req) {
		writeError(w, http.StatusUnprocessableEntity, "invalid task update")
		return
	}
	vars := mux.Vars(r)
	task, ok := s.store.setTask(currentUser(r).Email, vars["id"], vars["task_id"], req.IsCompleted)
	if !ok {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	p, ok := s.store.progress(currentUser(r).Email, mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "Roadmap not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, ok := s.store.listQuizzes(currentUser(r).Email, mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "Roadmap not found")
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (s *Server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var req api.QuizSubmission
	if !decodeBody(r, &req) {
		writeError(w, http.StatusUnprocessableEntity, "invalid quiz submission")
		return
	}
	res, ok := s.store.gradeQuiz(currentUser(r).Email, mux.Vars(r)["id"], req.Answers)
	if !ok {
		writeError(w, http.StatusNotFound, "Quiz not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStartInterview(w http.ResponseWriter, r *http.Request) {
	var req api.InterviewStartRequest
	if !decodeBody(r, &req) || strings.TrimSpace(req.Topic) == "" {
		writeError(w, http.StatusUnprocessableEntity, "topic is required")
		return
	}
	iv := s.store.startInterview(currentUser(r).Email, req)
	writeJSON(w, http.StatusOK, firstRound(iv))
}

func (s *Server) handleSubmitAnswers(w http.ResponseWriter, r *http.Request) {
	var req api.AnswerSubmission
	if !decodeBody(r, &req) || len(req.Answers) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "answers are required")
		return
	}
	resp, ok := s.store.answerInterview(currentUser(r).Email, mux.Vars(r)["id"], req.Answers)
	if !ok {
		writeError(w, http.StatusNotFound, "Interview session not found")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func firstRound(iv *interviewState) api.InterviewSession {
	return api.InterviewSession{
		SessionID:        iv.id,
		Round:            1,
		MaxRounds:        MaxRounds,
		Questions:        roundQuestions(1, iv.goal.Topic),
		InformationLevel: informationLevel(1),
	}
}
