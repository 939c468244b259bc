// Package interview drives the multi-round learner interview that precedes
// roadmap generation.
//
// The server decides how many rounds are asked and when enough is known; a
// Flow only mirrors that decision. Transitions happen on explicit calls to
// Start, Submit and Generate; there are no timers.
package interview

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/log"
	"github.com/felixgeelhaar/studyplan/internal/metrics"
)

// Backend talks to the interview service.
type Backend interface {
	Start(ctx context.Context, goal Goal) (*Round, error)
	Submit(ctx context.Context, sessionID string, answers []Answer) (*Outcome, error)
	Generate(ctx context.Context, sessionID string, goal Goal) (roadmapID string, err error)
}

// Option configures a Flow.
type Option func(*Flow)

// WithLogger sets the flow logger.
func WithLogger(l *log.Logger) Option {
	return func(f *Flow) { f.logger = l }
}

// WithMetrics counts submitted rounds.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Flow) { f.metrics = m }
}

// Flow is the interview state machine.
type Flow struct {
	backend Backend
	goal    Goal
	id      string
	logger  *log.Logger
	metrics *metrics.Metrics

	mu         sync.RWMutex
	state      State
	round      Round
	answers    map[string]string
	history    []Transcript
	evaluation string
	roadmapID  string
	lastErr    error
}

// NewFlow creates an idle flow for goal.
func NewFlow(backend Backend, goal Goal, opts ...Option) *Flow {
	f := &Flow{
		backend: backend,
		goal:    goal,
		id:      uuid.NewString(),
		logger:  log.Discard(),
		state:   StateIdle,
		answers: make(map[string]string),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("interview", f.id)
	return f
}

// ID is a client-side identifier used to correlate log lines.
func (f *Flow) ID() string {
	return f.id
}

// Goal returns the goal the flow was created with.
func (f *Flow) Goal() Goal {
	return f.goal
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// Round returns the round currently displayed.
func (f *Flow) Round() Round {
	f.mu.RLock()
	defer f.mu.RUnlock()
	r := f.round
	r.Questions = append([]Question(nil), f.round.Questions...)
	return r
}

// History returns the answered rounds, oldest first.
func (f *Flow) History() []Transcript {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]Transcript(nil), f.history...)
}

// Evaluation returns the server's last free-text assessment, if any.
func (f *Flow) Evaluation() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.evaluation
}

// RoadmapID returns the generated roadmap, set once the flow is done.
func (f *Flow) RoadmapID() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.roadmapID
}

// Err returns the error of the last failed call.
func (f *Flow) Err() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastErr
}

// Start asks the backend for the first round.
func (f *Flow) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateIdle {
		state := f.state
		f.mu.Unlock()
		return stateError("start", state)
	}
	f.mu.Unlock()

	f.logger.Debug("starting interview", "topic", f.goal.Topic)
	round, err := f.backend.Start(ctx, f.goal)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.lastErr = err
		return err
	}
	f.lastErr = nil
	f.setRound(*round)
	f.state = StateCollecting
	return nil
}

// SetAnswer records the answer to a displayed question.
func (f *Flow) SetAnswer(questionID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateCollecting {
		return stateError("answer", f.state)
	}
	for _, q := range f.round.Questions {
		if q.ID == questionID {
			f.answers[questionID] = text
			return nil
		}
	}
	return errors.New(errors.ErrCodeInterviewState, fmt.Sprintf("question %q is not part of round %d", questionID, f.round.Number))
}

// Answer returns the recorded answer for questionID.
func (f *Flow) Answer(questionID string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.answers[questionID]
}

// Missing returns the displayed questions without a non-blank answer.
func (f *Flow) Missing() []Question {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.missing()
}

func (f *Flow) missing() []Question {
	var out []Question
	for _, q := range f.round.Questions {
		if strings.TrimSpace(f.answers[q.ID]) == "" {
			out = append(out, q)
		}
	}
	return out
}

// CanSubmit reports whether every displayed question has a non-blank answer.
func (f *Flow) CanSubmit() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state == StateCollecting && len(f.missing()) == 0
}

// Submit sends the current round. On a follow-up the flow stays in
// StateCollecting with the new round; on completion it moves to StateReady.
// A failed call keeps the round and answers so it can be retried.
func (f *Flow) Submit(ctx context.Context) (State, error) {
	f.mu.Lock()
	if f.state != StateCollecting {
		state := f.state
		f.mu.Unlock()
		return state, stateError("submit", state)
	}
	if missing := f.missing(); len(missing) > 0 {
		ids := make([]string, 0, len(missing))
		for _, q := range missing {
			ids = append(ids, q.ID)
		}
		f.mu.Unlock()
		return StateCollecting, errors.NewAnswerRequiredError(ids...)
	}

	sessionID := f.round.SessionID
	answers := make([]Answer, 0, len(f.round.Questions))
	for _, q := range f.round.Questions {
		answers = append(answers, Answer{QuestionID: q.ID, Value: strings.TrimSpace(f.answers[q.ID])})
	}
	f.mu.Unlock()

	out, err := f.backend.Submit(ctx, sessionID, answers)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.lastErr = err
		f.logger.WithError(err).Warn("submit failed")
		return f.state, err
	}
	f.lastErr = nil

	f.history = append(f.history, Transcript{
		Round:     f.round.Number,
		Questions: f.round.Questions,
		Answers:   f.answers,
	})
	if out.Evaluation != "" {
		f.evaluation = out.Evaluation
	}

	if out.Complete || out.Next == nil {
		f.answers = make(map[string]string)
		f.state = StateReady
		f.countRound("complete")
		f.logger.Info("interview complete", "rounds", len(f.history))
		return f.state, nil
	}

	next := *out.Next
	if next.SessionID == "" {
		next.SessionID = sessionID
	}
	f.setRound(next)
	f.countRound("followup")
	f.logger.Debug("follow-up round", "round", next.Number, "max_rounds", next.MaxRounds)
	return f.state, nil
}

// Generate requests the roadmap. It is only valid in StateReady.
// Cancelling ctx leaves the flow in StateCancelled.
func (f *Flow) Generate(ctx context.Context) (string, error) {
	f.mu.Lock()
	if f.state != StateReady {
		state := f.state
		f.mu.Unlock()
		if state == StateCollecting {
			return "", errors.New(errors.ErrCodeInterviewNotReady, "the interview still has open questions").
				WithSuggestion("Answer and submit the current round first")
		}
		return "", stateError("generate", state)
	}
	f.state = StateGenerating
	sessionID := f.round.SessionID
	f.mu.Unlock()

	id, err := f.backend.Generate(ctx, sessionID, f.goal)

	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case stderrors.Is(err, context.Canceled):
		f.state = StateCancelled
		f.lastErr = nil
	case err != nil:
		f.state = StateFailed
		f.lastErr = err
	default:
		f.state = StateDone
		f.roadmapID = id
		f.lastErr = nil
	}
	return id, err
}

// Retry returns a failed or cancelled generation to StateReady.
func (f *Flow) Retry() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateFailed && f.state != StateCancelled {
		return stateError("retry", f.state)
	}
	f.state = StateReady
	f.lastErr = nil
	return nil
}

func (f *Flow) setRound(r Round) {
	f.round = r
	f.answers = make(map[string]string, len(r.Questions))
}

func (f *Flow) countRound(outcome string) {
	if f.metrics != nil {
		f.metrics.InterviewRounds.WithLabelValues(outcome).Inc()
	}
}

func stateError(action string, state State) error {
	if state == StateIdle {
		return errors.New(errors.ErrCodeInterviewNotStarted, "interview has not started").
			WithSuggestion("Call Start before answering questions")
	}
	return errors.New(errors.ErrCodeInterviewState, fmt.Sprintf("cannot %s while %s", action, state))
}
