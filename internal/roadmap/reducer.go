package roadmap

import (
	"encoding/json"
	"sync"

	"github.com/felixgeelhaar/studyplan/internal/stream"
)

// MonthPolicy controls what happens when a monthly goal arrives for a month
// that is already present.
type MonthPolicy int

const (
	// ReplaceByMonth keeps the first position of the month and overwrites its
	// content with the latest event.
	ReplaceByMonth MonthPolicy = iota
	// AppendAlways appends every monthly event, duplicates included.
	AppendAlways
)

func (p MonthPolicy) String() string {
	if p == AppendAlways {
		return "append"
	}
	return "replace"
}

// WeekPolicy controls how a weekly event combines with earlier weeks of the
// same month.
type WeekPolicy int

const (
	// ReplaceWeeks swaps the month's list for the event's list.
	ReplaceWeeks WeekPolicy = iota
	// AppendWeeks extends the month's list.
	AppendWeeks
)

func (p WeekPolicy) String() string {
	if p == AppendWeeks {
		return "append"
	}
	return "replace"
}

// Outcome describes what Apply did with one event.
type Outcome int

const (
	// Ignored means the event carried no roadmap content.
	Ignored Outcome = iota
	// Updated means the partial roadmap changed.
	Updated
	// Finished means a complete event was seen.
	Finished
	// Failed means an error event was seen.
	Failed
)

// CompletionResult is the payload of the complete event.
type CompletionResult struct {
	RoadmapID string          `json:"roadmap_id"`
	Title     string          `json:"title,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

type titlePayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type weeksPayload struct {
	MonthNumber int          `json:"month_number"`
	Weeks       []WeeklyTask `json:"weeks"`
	WeeklyTasks []WeeklyTask `json:"weekly_tasks"`
}

func (w weeksPayload) list() []WeeklyTask {
	if w.Weeks != nil {
		return w.Weeks
	}
	return w.WeeklyTasks
}

type daysPayload struct {
	MonthNumber int         `json:"month_number"`
	WeekNumber  int         `json:"week_number"`
	Days        []DailyTask `json:"days"`
	DailyTasks  []DailyTask `json:"daily_tasks"`
}

func (d daysPayload) list() []DailyTask {
	if d.Days != nil {
		return d.Days
	}
	return d.DailyTasks
}

// Option configures a Reducer.
type Option func(*Reducer)

// WithMonthPolicy sets the duplicate-month policy.
func WithMonthPolicy(p MonthPolicy) Option {
	return func(r *Reducer) { r.months = p }
}

// WithWeekPolicy sets the weekly merge policy.
func WithWeekPolicy(p WeekPolicy) Option {
	return func(r *Reducer) { r.weeks = p }
}

// Reducer folds generation events into a PartialRoadmap. It is safe for
// concurrent use: a stream goroutine applies events while a view reads
// snapshots.
type Reducer struct {
	mu       sync.RWMutex
	months   MonthPolicy
	weeks    WeekPolicy
	partial  *PartialRoadmap
	result   *CompletionResult
	errMsg   string
	finished bool
}

// NewReducer returns a reducer over an empty roadmap.
func NewReducer(opts ...Option) *Reducer {
	r := &Reducer{partial: NewPartialRoadmap()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply folds one event into the roadmap. Unknown event types and payloads
// that do not decode leave the roadmap untouched.
func (r *Reducer) Apply(ev stream.Event) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Type {
	case stream.EventGoalsAnalyzed, stream.EventTitleReady:
		var p titlePayload
		if ev.Decode(&p) != nil {
			return Ignored
		}
		r.partial.Title = p.Title
		r.partial.Description = p.Description
		return Updated

	case stream.EventMonthlyGenerated, stream.EventMonthReady:
		var goal MonthlyGoal
		if ev.Decode(&goal) != nil {
			return Ignored
		}
		r.addMonth(goal)
		return Updated

	case stream.EventWeeklyGenerated, stream.EventWeeksReady:
		var p weeksPayload
		if ev.Decode(&p) != nil {
			return Ignored
		}
		if r.weeks == AppendWeeks {
			r.partial.WeeklyTasks[p.MonthNumber] = append(r.partial.WeeklyTasks[p.MonthNumber], p.list()...)
		} else {
			r.partial.WeeklyTasks[p.MonthNumber] = append([]WeeklyTask{}, p.list()...)
		}
		return Updated

	case stream.EventDailyGenerated:
		var p daysPayload
		if ev.Decode(&p) != nil {
			return Ignored
		}
		r.partial.DailyTasks[DayKey(p.MonthNumber, p.WeekNumber)] = append([]DailyTask{}, p.list()...)
		return Updated

	case stream.EventComplete:
		res := &CompletionResult{Raw: ev.Data}
		if len(ev.Data) > 0 {
			_ = json.Unmarshal(ev.Data, res)
		}
		r.result = res
		r.finished = true
		return Finished

	case stream.EventError:
		r.errMsg = ev.ErrorMessage()
		if r.errMsg == "" {
			r.errMsg = "generation failed"
		}
		return Failed
	}
	return Ignored
}

// HandleEvent lets a stream session drive the reducer.
func (r *Reducer) HandleEvent(ev stream.Event) {
	r.Apply(ev)
}

func (r *Reducer) addMonth(goal MonthlyGoal) {
	if r.months == ReplaceByMonth {
		for i := range r.partial.MonthlyGoals {
			if r.partial.MonthlyGoals[i].MonthNumber == goal.MonthNumber {
				r.partial.MonthlyGoals[i] = goal
				return
			}
		}
	}
	r.partial.MonthlyGoals = append(r.partial.MonthlyGoals, goal)
}

// Reset replaces the roadmap with an empty one and clears the outcome.
func (r *Reducer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.partial = NewPartialRoadmap()
	r.result = nil
	r.errMsg = ""
	r.finished = false
}

// Snapshot returns a copy of the roadmap built so far.
func (r *Reducer) Snapshot() *PartialRoadmap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.partial.Clone()
}

// Result returns the completion payload, or nil before complete.
func (r *Reducer) Result() *CompletionResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.result
}

// Err returns the message of the last error event.
func (r *Reducer) Err() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.errMsg
}

// Finished reports whether a complete event was applied.
func (r *Reducer) Finished() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.finished
}
