package stream

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/metrics"
	"github.com/felixgeelhaar/studyplan/internal/sse"
	"github.com/felixgeelhaar/studyplan/internal/telemetry"
)

func body(frames ...string) OpenFunc {
	return func(context.Context) (io.ReadCloser, error) {
		var b strings.Builder
		for _, f := range frames {
			fmt.Fprintf(&b, "data: %s\n\n", f)
		}
		return io.NopCloser(strings.NewReader(b.String())), nil
	}
}

// pipeBody returns an opener whose body stays open until ctx ends, plus the
// writer feeding it.
func pipeBody() (OpenFunc, *io.PipeWriter) {
	pr, pw := io.Pipe()
	return func(ctx context.Context) (io.ReadCloser, error) {
		go func() {
			<-ctx.Done()
			_ = pw.CloseWithError(ctx.Err())
		}()
		return pr, nil
	}, pw
}

type recorder struct {
	events []Event
	resets int
}

func (r *recorder) HandleEvent(ev Event) { r.events = append(r.events, ev) }
func (r *recorder) Reset()               { r.resets++; r.events = nil }

func TestSession_EndToEnd(t *testing.T) {
	var completions int32
	s := NewSession(OnComplete(func(*Result) { atomic.AddInt32(&completions, 1) }))

	res, err := s.Start(context.Background(), body(
		`{"type":"start","progress":0}`,
		`{"type":"analyzing_goals","progress":20}`,
		`{"type":"goals_analyzed","progress":30,"data":{"title":"나의 학습 로드맵","description":"체계적인 학습 계획"}}`,
		`{"type":"complete","progress":100,"data":{"roadmap_id":"r1"}}`,
	))
	require.NoError(t, err)
	assert.Equal(t, "r1", res.RoadmapID())

	snap := s.Snapshot()
	assert.False(t, snap.IsStreaming)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 100.0, snap.Progress)
	assert.Equal(t, "r1", snap.Result.RoadmapID())
	require.Len(t, snap.Events, 4)
	assert.Equal(t,
		[]EventType{EventStart, EventAnalyzingGoals, EventGoalsAnalyzed, EventComplete},
		[]EventType{snap.Events[0].Type, snap.Events[1].Type, snap.Events[2].Type, snap.Events[3].Type})

	var title struct {
		Title string `json:"title"`
	}
	require.NoError(t, snap.Events[2].Decode(&title))
	assert.Equal(t, "나의 학습 로드맵", title.Title)
	assert.Equal(t, int32(1), completions)
}

func TestSession_CompleteDeliveredOnce(t *testing.T) {
	var completions int32
	s := NewSession(OnComplete(func(*Result) { atomic.AddInt32(&completions, 1) }))

	res, err := s.Start(context.Background(), body(
		`{"type":"complete","data":{"roadmap_id":"first"}}`,
		`{"type":"complete","data":{"roadmap_id":"second"}}`,
		`{"type":"monthly_generated","data":{"month_number":9}}`,
	))
	require.NoError(t, err)

	assert.Equal(t, "first", res.RoadmapID())
	assert.Equal(t, int32(1), completions)
	assert.Len(t, s.Snapshot().Events, 1)
}

func TestSession_CancelInFlight(t *testing.T) {
	open, pw := pipeBody()
	var completions, failures int32
	s := NewSession(
		OnComplete(func(*Result) { atomic.AddInt32(&completions, 1) }),
		OnError(func(error) { atomic.AddInt32(&failures, 1) }),
	)

	done := make(chan error, 1)
	go func() {
		_, err := s.Start(context.Background(), open)
		done <- err
	}()

	_, err := pw.Write([]byte("data: {\"type\":\"start\",\"progress\":5}\n\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(s.Snapshot().Events) == 1 }, time.Second, 5*time.Millisecond)

	s.Cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after Cancel")
	}

	snap := s.Snapshot()
	assert.Equal(t, StatusCancelled, snap.Status)
	assert.False(t, snap.IsStreaming)
	assert.Empty(t, snap.Error)
	assert.Nil(t, snap.Result)
	assert.Equal(t, int32(0), completions)
	assert.Equal(t, int32(0), failures)
}

func TestSession_ParentContextCancelled(t *testing.T) {
	open, _ := pipeBody()
	s := NewSession()
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		assert.Eventually(t, func() bool { return s.Status() == StatusStreaming }, time.Second, time.Millisecond)
		cancel()
	}()

	_, err := s.Start(ctx, open)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusCancelled, s.Status())
}

func TestSession_ErrorEvent(t *testing.T) {
	rec := &recorder{}
	var gotErr error
	s := NewSession(WithHandler(rec), OnError(func(err error) { gotErr = err }))

	_, err := s.Start(context.Background(), body(
		`{"type":"monthly_generated","progress":40,"data":{"month_number":1,"title":"basics"}}`,
		`{"type":"error","message":"model overloaded"}`,
	))

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeStreamEvent, errors.CodeOf(err))
	assert.Equal(t, gotErr, err)

	snap := s.Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, "model overloaded", snap.Error)
	assert.Equal(t, 40.0, snap.Progress)
	assert.Len(t, rec.events, 2, "handlers keep partial state")
}

func TestSession_OpenFailure(t *testing.T) {
	s := NewSession()
	openErr := errors.NewStatusError(503, "")

	_, err := s.Start(context.Background(), func(context.Context) (io.ReadCloser, error) {
		return nil, openErr
	})

	assert.ErrorIs(t, err, openErr)
	assert.Equal(t, StatusError, s.Status())
}

func TestSession_TransportFailureMidStream(t *testing.T) {
	s := NewSession()
	_, err := s.Start(context.Background(), func(context.Context) (io.ReadCloser, error) {
		r := io.MultiReader(
			strings.NewReader("data: {\"type\":\"start\"}\n\n"),
			readerFunc(func([]byte) (int, error) { return 0, stderrors.New("connection reset by peer") }),
		)
		return io.NopCloser(r), nil
	})

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeStreamRead, errors.CodeOf(err))
	assert.Equal(t, StatusError, s.Status())
}

func TestSession_EndsWithoutTerminalEvent(t *testing.T) {
	s := NewSession()
	_, err := s.Start(context.Background(), body(`{"type":"start"}`))

	assert.Equal(t, errors.ErrCodeStreamIncomplete, errors.CodeOf(err))
	assert.Equal(t, StatusError, s.Status())
}

func TestSession_DropsMalformedAndUnknownFrames(t *testing.T) {
	_, m := metrics.NewRegistry()
	s := NewSession(WithName("roadmap"), WithMetrics(m))

	_, err := s.Start(context.Background(), body(
		`{"type":"start"}`,
		`{not json`,
		`{"type":"shiny_new_thing"}`,
		`{"type":"complete","data":{"roadmap_id":"r9"}}`,
	))
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Len(t, snap.Events, 2)
	assert.Equal(t, 1, snap.Dropped)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StreamFramesDropped.WithLabelValues("roadmap")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StreamOutcomes.WithLabelValues("roadmap", "completed")))
}

func TestSession_StartResetsHandlersAndSupersedes(t *testing.T) {
	rec := &recorder{}
	s := NewSession(WithHandler(rec))

	first, pw := pipeBody()
	firstDone := make(chan error, 1)
	go func() {
		_, err := s.Start(context.Background(), first)
		firstDone <- err
	}()
	_, err := pw.Write([]byte("data: {\"type\":\"start\"}\n\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(s.Snapshot().Events) == 1 }, time.Second, 5*time.Millisecond)

	res, err := s.Start(context.Background(), body(`{"type":"complete","data":{"roadmap_id":"r2"}}`))
	require.NoError(t, err)
	assert.Equal(t, "r2", res.RoadmapID())

	assert.ErrorIs(t, <-firstDone, context.Canceled)
	assert.Equal(t, StatusCompleted, s.Status(), "superseded stream must not overwrite state")
	assert.Equal(t, 2, rec.resets)
	assert.Len(t, rec.events, 1)
}

func TestSession_Reset(t *testing.T) {
	rec := &recorder{}
	s := NewSession(WithHandler(rec))
	_, err := s.Start(context.Background(), body(`{"type":"complete","progress":100}`))
	require.NoError(t, err)

	s.Reset()

	snap := s.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Empty(t, snap.Events)
	assert.Zero(t, snap.Progress)
	assert.Empty(t, rec.events)
}

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name    string
		frame   sse.Frame
		want    EventType
		data    string
		wantErr bool
	}{
		{name: "type in payload", frame: sse.Frame{Data: `{"type":"start","progress":0}`}, want: EventStart},
		{name: "event field in payload", frame: sse.Frame{Data: `{"event":"progress","progress":10}`}, want: EventProgress},
		{
			name:  "event line with bare data",
			frame: sse.Frame{Event: "month_ready", Data: `{"month_number":1,"title":"a"}`},
			want:  EventMonthReady,
			data:  `{"month_number":1,"title":"a"}`,
		},
		{
			name:  "event line with wrapped data",
			frame: sse.Frame{Event: "complete", Data: `{"data":{"roadmap_id":"r1"}}`},
			want:  EventComplete,
			data:  `{"roadmap_id":"r1"}`,
		},
		{
			name:  "event line with data carrying its own type",
			frame: sse.Frame{Event: "question", Data: `{"id":"q1","type":"text","question":"why?"}`},
			want:  EventQuestion,
			data:  `{"id":"q1","type":"text","question":"why?"}`,
		},
		{
			name:  "event line with matching wrapped type",
			frame: sse.Frame{Event: "progress", Data: `{"type":"progress","progress":40,"data":{"step":2}}`},
			want:  EventProgress,
			data:  `{"step":2}`,
		},
		{
			name:  "event line with bare progress",
			frame: sse.Frame{Event: "progress", Data: `{"progress":40}`},
			want:  EventProgress,
			data:  `{"progress":40}`,
		},
		{name: "not json", frame: sse.Frame{Data: "{oops"}, wantErr: true},
		{name: "no type", frame: sse.Frame{Data: `{"progress":1}`}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseFrame(tt.frame)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev.Type)
			if tt.data != "" {
				assert.JSONEq(t, tt.data, string(ev.Data))
			}
		})
	}
}

func TestEventType_Known(t *testing.T) {
	assert.True(t, EventDailyGenerated.Known())
	assert.True(t, EventFollowup.Known())
	assert.False(t, EventType("mystery").Known())
	assert.True(t, EventError.Terminal())
	assert.False(t, EventProgress.Terminal())
}

func TestEvent_ErrorMessage(t *testing.T) {
	assert.Equal(t, "a", Event{Message: "a"}.ErrorMessage())
	assert.Equal(t, "b", Event{Data: []byte(`{"error":"b"}`)}.ErrorMessage())
	assert.Equal(t, "", Event{}.ErrorMessage())
}

type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

func TestSession_TracesEvents(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	cfg := telemetry.DefaultConfig()
	cfg.Enabled = true
	_, err := telemetry.InitProvider(context.Background(), cfg, sr)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = telemetry.InitProvider(context.Background(), telemetry.DefaultConfig())
	})

	s := NewSession(WithName("generation"))
	_, err = s.Start(context.Background(), body(
		`{"type":"start","progress":0}`,
		`{"type":"complete","progress":100,"data":{"roadmap_id":"r1"}}`,
	))
	require.NoError(t, err)

	require.Len(t, sr.Ended(), 1)
	span := sr.Ended()[0]
	assert.Equal(t, "stream generation", span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)
	var names []string
	for _, ev := range span.Events() {
		names = append(names, ev.Name)
	}
	assert.Equal(t, []string{"start", "complete"}, names)
}
