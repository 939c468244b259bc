package interview

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/stream"
)

// APIBackend runs the interview against the studyplan API.
type APIBackend struct {
	Client *api.Client
	// Streaming selects the event-stream interview endpoints over the plain
	// REST ones.
	Streaming bool
	// Legacy selects /roadmaps/generate-stream for generation.
	Legacy bool
	// Questions runs interview streams. Created on first use when nil.
	Questions *stream.Session
	// Generation runs the roadmap stream. Attach a roadmap reducer to it to
	// follow the roadmap as it is built. Created on first use when nil.
	Generation *stream.Session

	once sync.Once
}

func (b *APIBackend) init() {
	b.once.Do(func() {
		if b.Questions == nil {
			b.Questions = stream.NewSession(stream.WithName("interview"))
		}
		if b.Generation == nil {
			b.Generation = stream.NewSession(stream.WithName("roadmap"))
		}
	})
}

// Start implements Backend.
func (b *APIBackend) Start(ctx context.Context, goal Goal) (*Round, error) {
	req := api.InterviewStartRequest{
		Topic:          goal.Topic,
		Goal:           goal.Goal,
		CurrentLevel:   goal.CurrentLevel,
		DurationMonths: goal.DurationMonths,
		DailyMinutes:   goal.DailyMinutes,
	}

	if !b.Streaming {
		s, err := b.Client.StartInterview(ctx, req)
		if err != nil {
			return nil, err
		}
		return roundFromSession(s), nil
	}

	b.init()
	res, err := b.Questions.Start(ctx, b.Client.InterviewStartStream(req))
	if err != nil {
		return nil, err
	}
	var s api.InterviewSession
	if err := res.Decode(&s); err != nil {
		return nil, errors.Wrap(errors.ErrCodeAPIDecode, "invalid interview payload", err)
	}
	if len(s.Questions) == 0 {
		s.Questions = streamedQuestions(b.Questions.Snapshot().Events)
	}
	return roundFromSession(&s), nil
}

// Submit implements Backend.
func (b *APIBackend) Submit(ctx context.Context, sessionID string, answers []Answer) (*Outcome, error) {
	payload := make([]api.InterviewAnswer, 0, len(answers))
	for _, a := range answers {
		payload = append(payload, api.InterviewAnswer{QuestionID: a.QuestionID, Answer: a.Value})
	}

	var resp *api.InterviewSubmitResponse
	if !b.Streaming {
		r, err := b.Client.SubmitAnswers(ctx, sessionID, payload)
		if err != nil {
			return nil, err
		}
		resp = r
	} else {
		b.init()
		res, err := b.Questions.Start(ctx, b.Client.InterviewSubmitStream(sessionID, payload))
		if err != nil {
			return nil, err
		}
		var r api.InterviewSubmitResponse
		if err := res.Decode(&r); err != nil {
			return nil, errors.Wrap(errors.ErrCodeAPIDecode, "invalid interview payload", err)
		}
		if r.Status == api.InterviewStatusFollowup && len(r.Questions) == 0 {
			r.Questions = streamedQuestions(b.Questions.Snapshot().Events)
		}
		resp = &r
	}

	out := &Outcome{
		Complete:   resp.Status == api.InterviewStatusComplete,
		Evaluation: resp.Evaluation,
	}
	if !out.Complete {
		out.Next = &Round{
			SessionID:            firstNonEmpty(resp.SessionID, sessionID),
			Number:               resp.Round,
			MaxRounds:            resp.MaxRounds,
			Questions:            questionsFromAPI(resp.Questions),
			InformationLevel:     resp.InformationLevel,
			AIRecommendsComplete: resp.AIRecommendsComplete,
		}
	}
	return out, nil
}

// Generate implements Backend.
func (b *APIBackend) Generate(ctx context.Context, sessionID string, goal Goal) (string, error) {
	b.init()
	req := api.GenerateRequest{
		SessionID:      sessionID,
		Topic:          goal.Topic,
		Goal:           goal.Goal,
		CurrentLevel:   goal.CurrentLevel,
		DurationMonths: goal.DurationMonths,
		DailyMinutes:   goal.DailyMinutes,
		LearningMode:   goal.LearningMode,
	}

	open := b.Client.GenerateStream(req)
	if b.Legacy {
		open = b.Client.GenerateStreamLegacy(req)
	}
	res, err := b.Generation.Start(ctx, open)
	if err != nil {
		return "", err
	}
	id := res.RoadmapID()
	if id == "" {
		return "", errors.New(errors.ErrCodeStreamIncomplete, "generation finished without a roadmap id")
	}
	return id, nil
}

// streamedQuestions collects questions announced one by one with "question"
// events.
func streamedQuestions(events []stream.Event) []api.InterviewQuestion {
	var out []api.InterviewQuestion
	for _, ev := range events {
		if ev.Type != stream.EventQuestion {
			continue
		}
		var q api.InterviewQuestion
		if ev.Decode(&q) == nil && q.ID != "" {
			out = append(out, q)
		}
	}
	return out
}

func roundFromSession(s *api.InterviewSession) *Round {
	return &Round{
		SessionID:            s.SessionID,
		Number:               s.Round,
		MaxRounds:            s.MaxRounds,
		Questions:            questionsFromAPI(s.Questions),
		InformationLevel:     s.InformationLevel,
		AIRecommendsComplete: s.AIRecommendsComplete,
	}
}

func questionsFromAPI(in []api.InterviewQuestion) []Question {
	out := make([]Question, 0, len(in))
	for _, q := range in {
		t := QuestionType(q.Type)
		if t == "" {
			t = QuestionTypeText
			if len(q.Options) > 0 {
				t = QuestionTypeSelect
			}
		}
		out = append(out, Question{
			ID:          q.ID,
			Text:        q.Question,
			Category:    q.Category,
			Type:        t,
			Options:     q.Options,
			Placeholder: q.Placeholder,
		})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
