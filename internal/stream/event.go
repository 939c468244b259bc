package stream

import (
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/studyplan/internal/sse"
)

// EventType is the discriminator carried by every stream payload.
type EventType string

// Roadmap generation events
const (
	EventStart             EventType = "start"
	EventProgress          EventType = "progress"
	EventAnalyzingGoals    EventType = "analyzing_goals"
	EventGoalsAnalyzed     EventType = "goals_analyzed"
	EventTitleReady        EventType = "title_ready"
	EventGeneratingMonthly EventType = "generating_monthly"
	EventMonthlyGenerated  EventType = "monthly_generated"
	EventMonthReady        EventType = "month_ready"
	EventGeneratingWeekly  EventType = "generating_weekly"
	EventWeeklyGenerated   EventType = "weekly_generated"
	EventWeeksReady        EventType = "weeks_ready"
	EventGeneratingDaily   EventType = "generating_daily"
	EventDailyGenerated    EventType = "daily_generated"
	EventComplete          EventType = "complete"
	EventError             EventType = "error"
)

// Interview events
const (
	EventQuestionsGenerating EventType = "questions_generating"
	EventQuestion            EventType = "question"
	EventQuestionsReady      EventType = "questions_ready"
	EventEvaluating          EventType = "evaluating"
	EventEvaluation          EventType = "evaluation"
	EventFollowup            EventType = "followup"
	EventInterviewComplete   EventType = "interview_complete"
)

var knownTypes = map[EventType]struct{}{
	EventStart: {}, EventProgress: {}, EventAnalyzingGoals: {}, EventGoalsAnalyzed: {},
	EventTitleReady: {}, EventGeneratingMonthly: {}, EventMonthlyGenerated: {}, EventMonthReady: {},
	EventGeneratingWeekly: {}, EventWeeklyGenerated: {}, EventWeeksReady: {}, EventGeneratingDaily: {},
	EventDailyGenerated: {}, EventComplete: {}, EventError: {},
	EventQuestionsGenerating: {}, EventQuestion: {}, EventQuestionsReady: {}, EventEvaluating: {},
	EventEvaluation: {}, EventFollowup: {}, EventInterviewComplete: {},
}

// Known reports whether t belongs to the closed set of event types.
func (t EventType) Known() bool {
	_, ok := knownTypes[t]
	return ok
}

// Terminal reports whether t ends a stream.
func (t EventType) Terminal() bool {
	return t == EventComplete || t == EventError
}

// Event is one decoded stream payload.
type Event struct {
	Type     EventType       `json:"type"`
	Data     json.RawMessage `json:"data,omitempty"`
	Progress *float64        `json:"progress,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// Decode unmarshals the event's data payload into v.
func (e Event) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %s has no data", e.Type)
	}
	return json.Unmarshal(e.Data, v)
}

// ErrorMessage returns the human-readable message of an error event. It
// looks at the top-level message first, then data.message / data.error.
func (e Event) ErrorMessage() string {
	if e.Message != "" {
		return e.Message
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if len(e.Data) > 0 && json.Unmarshal(e.Data, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		return payload.Error
	}
	return ""
}

// wireEvent accepts both payload shapes seen on the wire: the discriminator
// inside the JSON ({"type": ...}), or in a separate "event:" line with the
// JSON being the bare data object.
type wireEvent struct {
	Type     EventType       `json:"type"`
	Event    EventType       `json:"event"`
	Data     json.RawMessage `json:"data"`
	Progress *float64        `json:"progress"`
	Message  string          `json:"message"`
	Error    string          `json:"error"`
}

// ParseFrame converts an SSE frame into an Event. A frame whose payload is
// not JSON returns an error; callers treat that as a dropped frame.
//
// An "event:" line always names the type. Its payload is unwrapped as
// {"type","data","progress"} only when it repeats that type, names another
// known type, or carries a data field without a type of its own. Anything
// else is the bare data object, whose own "type" field belongs to the data.
func ParseFrame(f sse.Frame) (Event, error) {
	var w wireEvent
	if err := f.JSON(&w); err != nil {
		return Event{}, fmt.Errorf("decode frame: %w", err)
	}

	inner := w.Type
	if inner == "" {
		inner = w.Event
	}
	ev := Event{
		Type:     inner,
		Data:     w.Data,
		Progress: w.Progress,
		Message:  w.Message,
	}
	if f.Event != "" {
		ev.Type = EventType(f.Event)
		wrapped := inner == ev.Type || inner.Known() || (inner == "" && len(w.Data) > 0)
		if !wrapped {
			ev.Data = json.RawMessage(f.Data)
		}
	}
	if ev.Message == "" {
		ev.Message = w.Error
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("decode frame: missing event type")
	}
	return ev, nil
}
