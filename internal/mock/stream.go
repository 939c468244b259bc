package mock

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/stream"
)

// eventWriter writes server-sent events. Legacy streams name the event on an
// "event:" line and send the bare payload; the default format wraps type,
// data and progress in one JSON object.
type eventWriter struct {
	ctx     context.Context
	w       http.ResponseWriter
	flusher http.Flusher
	delay   time.Duration
	legacy  bool
	seq     int
}

type wireEvent struct {
	Type     stream.EventType `json:"type"`
	Data     any              `json:"data,omitempty"`
	Progress *float64         `json:"progress,omitempty"`
	Message  string           `json:"message,omitempty"`
}

func (s *Server) openEvents(w http.ResponseWriter, r *http.Request, legacy bool) (*eventWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return nil, false
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": stream open\n\n")
	flusher.Flush()

	return &eventWriter{ctx: r.Context(), w: w, flusher: flusher, delay: s.delay, legacy: legacy}, true
}

// emit waits for the configured delay and writes one event. It fails once
// the client has gone away.
func (e *eventWriter) emit(typ stream.EventType, data any, progress float64, message string) error {
	if e.delay > 0 {
		t := time.NewTimer(e.delay)
		select {
		case <-e.ctx.Done():
			t.Stop()
			return e.ctx.Err()
		case <-t.C:
		}
	} else if err := e.ctx.Err(); err != nil {
		return err
	}

	e.seq++
	var err error
	if e.legacy {
		if data == nil {
			data = map[string]string{"message": message}
		}
		var payload []byte
		if payload, err = json.Marshal(data); err != nil {
			return err
		}
		_, err = fmt.Fprintf(e.w, "id: %d\nevent: %s\ndata: %s\n\n", e.seq, typ, payload)
	} else {
		ev := wireEvent{Type: typ, Data: data, Message: message}
		if progress >= 0 {
			ev.Progress = &progress
		}
		var payload []byte
		if payload, err = json.Marshal(ev); err != nil {
			return err
		}
		_, err = fmt.Fprintf(e.w, "id: %d\ndata: %s\n\n", e.seq, payload)
	}
	if err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}

func (s *Server) handleInterviewStartStream(w http.ResponseWriter, r *http.Request) {
	var req api.InterviewStartRequest
	if !decodeBody(r, &req) || strings.TrimSpace(req.Topic) == "" {
		writeError(w, http.StatusUnprocessableEntity, "topic is required")
		return
	}
	iv := s.store.startInterview(currentUser(r).Email, req)
	session := firstRound(iv)

	ev, ok := s.openEvents(w, r, false)
	if !ok {
		return
	}
	_ = s.streamQuestions(ev, session.Questions, stream.EventQuestionsReady, session, 0, func() error {
		return ev.emit(stream.EventComplete, session, 100, "")
	})
}

func (s *Server) handleInterviewSubmitStream(w http.ResponseWriter, r *http.Request) {
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

	ev, ok := s.openEvents(w, r, false)
	if !ok {
		return
	}
	if ev.emit(stream.EventEvaluating, nil, 10, "Evaluating your answers") != nil {
		return
	}
	if ev.emit(stream.EventEvaluation, map[string]any{
		"evaluation":        resp.Evaluation,
		"information_level": resp.InformationLevel,
	}, 40, "") != nil {
		return
	}
	done := func() error { return ev.emit(stream.EventComplete, resp, 100, "") }

	if resp.Status == api.InterviewStatusComplete {
		if ev.emit(stream.EventInterviewComplete, resp, 90, "Interview complete") != nil {
			return
		}
		_ = done()
		return
	}
	_ = s.streamQuestions(ev, resp.Questions, stream.EventFollowup, resp, 40, done)
}

// streamQuestions announces questions one by one, then the round summary.
func (s *Server) streamQuestions(ev *eventWriter, questions []api.InterviewQuestion, summary stream.EventType, payload any, base float64, done func() error) error {
	if err := ev.emit(stream.EventQuestionsGenerating, nil, base, "Preparing questions"); err != nil {
		return err
	}
	step := (90 - base) / float64(len(questions)+1)
	for i, q := range questions {
		if err := ev.emit(stream.EventQuestion, q, base+step*float64(i+1), ""); err != nil {
			return err
		}
	}
	if err := ev.emit(summary, payload, 90, ""); err != nil {
		return err
	}
	return done()
}

func (s *Server) handleGenerateStream(legacy bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.GenerateRequest
		if !decodeBody(r, &req) {
			writeError(w, http.StatusUnprocessableEntity, "invalid generation request")
			return
		}
		if req.SessionID != "" {
			if goal, ok := s.store.interviewGoal(req.SessionID); ok {
				req.Topic = firstNonEmpty(req.Topic, goal.Topic)
				req.Goal = firstNonEmpty(req.Goal, goal.Goal)
				req.CurrentLevel = firstNonEmpty(req.CurrentLevel, goal.CurrentLevel)
				if req.DurationMonths == 0 {
					req.DurationMonths = goal.DurationMonths
				}
			}
		}
		if strings.TrimSpace(req.Topic) == "" {
			writeError(w, http.StatusUnprocessableEntity, "topic is required")
			return
		}

		ev, ok := s.openEvents(w, r, legacy)
		if !ok {
			return
		}
		roadmap := buildRoadmap(req, s.now())
		if err := s.streamRoadmap(ev, req, roadmap); err != nil {
			s.logger.Debug("generation stream ended early", "error", err)
			return
		}
		s.store.saveRoadmap(currentUser(r).Email, roadmap)
		_ = ev.emit(stream.EventComplete, map[string]string{
			"roadmap_id": roadmap.ID,
			"title":      roadmap.Title,
		}, 100, "Roadmap ready")
	}
}

var errGenerationFailed = stderrors.New("generation failed on request")

// streamRoadmap emits the generation phases for r, month by month.
func (s *Server) streamRoadmap(ev *eventWriter, req api.GenerateRequest, r *api.Roadmap) error {
	steps := 6 + len(r.MonthlyGoals)*(2+len(weekThemes))
	done := 0
	next := func() float64 {
		done++
		return float64(done) / float64(steps+1) * 100
	}

	if err := ev.emit(stream.EventStart, nil, next(), "Starting generation"); err != nil {
		return err
	}
	if err := ev.emit(stream.EventAnalyzingGoals, nil, next(), "Analyzing your goals"); err != nil {
		return err
	}
	if err := ev.emit(stream.EventTitleReady, map[string]string{
		"title":       r.Title,
		"description": r.Description,
	}, next(), ""); err != nil {
		return err
	}
	if strings.Contains(strings.ToLower(req.Topic), FailTopic) {
		_ = ev.emit(stream.EventError, map[string]string{"message": "the model could not plan this topic"}, -1, "the model could not plan this topic")
		return errGenerationFailed
	}

	if err := ev.emit(stream.EventGeneratingMonthly, nil, next(), "Planning months"); err != nil {
		return err
	}
	for _, m := range r.MonthlyGoals {
		if err := ev.emit(stream.EventMonthlyGenerated, map[string]any{
			"month_number": m.MonthNumber,
			"title":        m.Title,
			"description":  m.Description,
		}, next(), ""); err != nil {
			return err
		}
	}

	if err := ev.emit(stream.EventGeneratingWeekly, nil, next(), "Planning weeks"); err != nil {
		return err
	}
	for _, m := range r.MonthlyGoals {
		weeks := make([]map[string]any, 0, len(m.WeeklyTasks))
		for _, wk := range m.WeeklyTasks {
			weeks = append(weeks, map[string]any{
				"week_number": wk.WeekNumber,
				"title":       wk.Title,
				"description": wk.Description,
			})
		}
		if err := ev.emit(stream.EventWeeklyGenerated, map[string]any{
			"month_number": m.MonthNumber,
			"weeks":        weeks,
		}, next(), ""); err != nil {
			return err
		}
	}

	if err := ev.emit(stream.EventGeneratingDaily, nil, next(), "Planning days"); err != nil {
		return err
	}
	for _, m := range r.MonthlyGoals {
		for _, wk := range m.WeeklyTasks {
			days := make([]map[string]any, 0, len(wk.DailyTasks))
			for _, d := range wk.DailyTasks {
				days = append(days, map[string]any{
					"day_number":  d.DayNumber,
					"title":       d.Title,
					"description": d.Description,
				})
			}
			if err := ev.emit(stream.EventDailyGenerated, map[string]any{
				"month_number": m.MonthNumber,
				"week_number":  wk.WeekNumber,
				"days":         days,
			}, next(), ""); err != nil {
				return err
			}
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
