// Package stream runs one server-sent-event stream at a time and tracks its
// lifecycle, progress and events.
package stream

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/log"
	"github.com/felixgeelhaar/studyplan/internal/metrics"
	"github.com/felixgeelhaar/studyplan/internal/sse"
	"github.com/felixgeelhaar/studyplan/internal/telemetry"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusStreaming  Status = "streaming"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
	StatusCancelled  Status = "cancelled"
)

// Active reports whether a stream is in flight.
func (s Status) Active() bool {
	return s == StatusConnecting || s == StatusStreaming
}

// OpenFunc opens the response body of a streaming request. The session
// closes the returned body.
type OpenFunc func(ctx context.Context) (io.ReadCloser, error)

// Handler receives every known event in arrival order. Reset is called when
// a new stream starts.
type Handler interface {
	HandleEvent(Event)
	Reset()
}

// Result is the payload of the complete event.
type Result struct {
	Data json.RawMessage
}

// RoadmapID extracts data.roadmap_id, empty when absent.
func (r *Result) RoadmapID() string {
	if r == nil || len(r.Data) == 0 {
		return ""
	}
	var v struct {
		RoadmapID string `json:"roadmap_id"`
	}
	_ = json.Unmarshal(r.Data, &v)
	return v.RoadmapID
}

// Decode unmarshals the completion payload into v.
func (r *Result) Decode(v any) error {
	return json.Unmarshal(r.Data, v)
}

// Snapshot is a point-in-time copy of session state.
type Snapshot struct {
	Status      Status
	Progress    float64
	Events      []Event
	Message     string
	Error       string
	Result      *Result
	Dropped     int
	IsStreaming bool
}

// Option configures a Session.
type Option func(*Session)

// WithName labels logs and metrics for this session.
func WithName(name string) Option {
	return func(s *Session) { s.name = name }
}

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMetrics records events and outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithHandler adds an event handler, typically a roadmap reducer.
func WithHandler(h Handler) Option {
	return func(s *Session) { s.handlers = append(s.handlers, h) }
}

// OnEvent is called for every known event after handlers ran.
func OnEvent(fn func(Event)) Option {
	return func(s *Session) { s.onEvent = fn }
}

// OnComplete is called at most once per stream with the completion payload.
func OnComplete(fn func(*Result)) Option {
	return func(s *Session) { s.onComplete = fn }
}

// OnError is called when a stream ends in StatusError.
func OnError(fn func(error)) Option {
	return func(s *Session) { s.onError = fn }
}

// Session owns at most one in-flight stream. Starting a new stream aborts
// the previous one.
type Session struct {
	name       string
	logger     *log.Logger
	metrics    *metrics.Metrics
	handlers   []Handler
	onEvent    func(Event)
	onComplete func(*Result)
	onError    func(error)

	mu     sync.RWMutex
	gen    uint64
	cancel context.CancelFunc
	state  Snapshot
}

// NewSession returns an idle session.
func NewSession(opts ...Option) *Session {
	s := &Session{
		name:   "stream",
		logger: log.Discard(),
		state:  Snapshot{Status: StatusIdle},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// errTerminal stops reading once a terminal event was handled.
var errTerminal = stderrors.New("terminal event")

// Start aborts any in-flight stream, resets state and handlers, opens a new
// stream and consumes it until a terminal event, EOF, or cancellation.
//
// It returns the completion payload on success. An error event yields a
// STREAM-003 error, a stream that ends without a terminal event yields
// STREAM-004, and cancellation returns the context error with the session in
// StatusCancelled.
func (s *Session) Start(ctx context.Context, open OpenFunc) (*Result, error) {
	ctx, span := telemetry.StartStreamSpan(ctx, s.name)
	result, err := s.run(ctx, span, open)
	if stderrors.Is(err, context.Canceled) {
		span.AddEvent("cancelled")
		telemetry.Finish(span, nil)
	} else {
		telemetry.Finish(span, err)
	}
	return result, err
}

func (s *Session) run(ctx context.Context, span trace.Span, open OpenFunc) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.state = Snapshot{Status: StatusConnecting, IsStreaming: true}
	for _, h := range s.handlers {
		h.Reset()
	}
	s.mu.Unlock()

	started := time.Now()
	logger := s.logger.With("stream", s.name)
	logger.Debug("opening stream")

	body, err := open(ctx)
	if err != nil {
		return nil, s.finish(gen, logger, started, nil, s.classify(ctx, err))
	}
	defer body.Close()

	s.update(gen, func(st *Snapshot) { st.Status = StatusStreaming })

	var (
		result   *Result
		eventErr error
	)
	readErr := sse.Read(ctx, body, func(f sse.Frame) error {
		ev, err := ParseFrame(f)
		if err != nil {
			logger.Debug("dropping frame", "error", err.Error())
			s.update(gen, func(st *Snapshot) { st.Dropped++ })
			if s.metrics != nil {
				s.metrics.StreamFramesDropped.WithLabelValues(s.name).Inc()
			}
			return nil
		}
		if !ev.Type.Known() {
			logger.Debug("ignoring unknown event", "type", string(ev.Type))
			return nil
		}

		if !s.apply(gen, ev) {
			return context.Canceled
		}
		span.AddEvent(string(ev.Type))
		if s.onEvent != nil {
			s.onEvent(ev)
		}

		switch ev.Type {
		case EventComplete:
			result = &Result{Data: ev.Data}
			return errTerminal
		case EventError:
			msg := ev.ErrorMessage()
			eventErr = errors.NewStreamEventError(msg)
			return errTerminal
		}
		return nil
	})

	switch {
	case result != nil:
		return result, s.finish(gen, logger, started, result, nil)
	case eventErr != nil:
		return nil, s.finish(gen, logger, started, nil, eventErr)
	case readErr != nil && !stderrors.Is(readErr, errTerminal):
		return nil, s.finish(gen, logger, started, nil, s.classify(ctx, readErr))
	case ctx.Err() != nil:
		return nil, s.finish(gen, logger, started, nil, s.classify(ctx, ctx.Err()))
	default:
		return nil, s.finish(gen, logger, started, nil,
			errors.New(errors.ErrCodeStreamIncomplete, "stream ended before completion").
				WithSuggestion("Retry the request; the server closed the connection early"))
	}
}

// classify turns a context error into a cancellation, anything else into a
// transport error.
func (s *Session) classify(ctx context.Context, err error) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(ctx.Err(), context.Canceled) {
		return context.Canceled
	}
	var coded *errors.Error
	if stderrors.As(err, &coded) {
		return err
	}
	return errors.Wrap(errors.ErrCodeStreamRead, "stream interrupted", err)
}

// apply records ev and runs handlers. It reports false when the stream has
// been superseded by a newer Start.
func (s *Session) apply(gen uint64, ev Event) bool {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return false
	}
	s.state.Events = append(s.state.Events, ev)
	if ev.Progress != nil {
		s.state.Progress = *ev.Progress
	}
	if ev.Type == EventComplete {
		s.state.Progress = 100
	}
	if ev.Message != "" && ev.Type != EventError {
		s.state.Message = ev.Message
	}
	for _, h := range s.handlers {
		h.HandleEvent(ev)
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.StreamEvents.WithLabelValues(s.name, string(ev.Type)).Inc()
	}
	return true
}

// finish settles the final status of stream gen and fires callbacks. A
// stream superseded by a newer Start leaves state alone.
func (s *Session) finish(gen uint64, logger *log.Logger, started time.Time, result *Result, err error) error {
	status := StatusCompleted
	switch {
	case stderrors.Is(err, context.Canceled):
		status = StatusCancelled
	case err != nil:
		status = StatusError
	}

	s.mu.Lock()
	current := gen == s.gen
	if current {
		s.state.Status = status
		s.state.IsStreaming = false
		s.state.Result = result
		if status == StatusError {
			s.state.Error = err.Error()
			var coded *errors.Error
			if stderrors.As(err, &coded) {
				s.state.Error = coded.Message
			}
		}
		s.cancel = nil
	}
	s.mu.Unlock()

	if current && s.metrics != nil {
		s.metrics.ObserveStream(s.name, string(status), time.Since(started))
		if status == StatusError {
			s.metrics.RecordError(string(errors.CodeOf(err)), "stream")
		}
	}

	switch status {
	case StatusCompleted:
		logger.Info("stream completed", "duration", time.Since(started).String())
		if current && s.onComplete != nil {
			s.onComplete(result)
		}
	case StatusCancelled:
		logger.Debug("stream cancelled")
	case StatusError:
		logger.WithError(err).Warn("stream failed")
		if current && s.onError != nil {
			s.onError(err)
		}
	}
	return err
}

func (s *Session) update(gen uint64, fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen {
		fn(&s.state)
	}
}

// Cancel aborts the in-flight stream, if any. The session ends in
// StatusCancelled and no completion callback fires.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Reset aborts any in-flight stream and returns the session to idle with
// empty state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.state = Snapshot{Status: StatusIdle}
	for _, h := range s.handlers {
		h.Reset()
	}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.state
	snap.Events = append([]Event(nil), s.state.Events...)
	return snap
}

// Status returns the current status.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Status
}
