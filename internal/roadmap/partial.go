// Package roadmap accumulates a learning roadmap from generation stream
// events.
package roadmap

import (
	"fmt"
	"sort"
)

// MonthlyGoal is one month of the roadmap.
type MonthlyGoal struct {
	MonthNumber int    `json:"month_number" yaml:"month_number"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// WeeklyTask is one week inside a month.
type WeeklyTask struct {
	WeekNumber  int    `json:"week_number" yaml:"week_number"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// DailyTask is one day inside a week.
type DailyTask struct {
	DayNumber   int    `json:"day_number" yaml:"day_number"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// DayKey is the composite key of a (month, week) pair used for daily tasks.
func DayKey(month, week int) string {
	return fmt.Sprintf("%d_%d", month, week)
}

// PartialRoadmap is the client-side view of a roadmap while it is being
// generated. Months appear in arrival order; producer ordering is trusted.
type PartialRoadmap struct {
	Title        string                 `json:"title,omitempty" yaml:"title,omitempty"`
	Description  string                 `json:"description,omitempty" yaml:"description,omitempty"`
	MonthlyGoals []MonthlyGoal          `json:"monthly_goals" yaml:"monthly_goals"`
	WeeklyTasks  map[int][]WeeklyTask   `json:"weekly_tasks" yaml:"weekly_tasks"`
	DailyTasks   map[string][]DailyTask `json:"daily_tasks" yaml:"daily_tasks"`
}

// NewPartialRoadmap returns an empty roadmap.
func NewPartialRoadmap() *PartialRoadmap {
	return &PartialRoadmap{
		MonthlyGoals: []MonthlyGoal{},
		WeeklyTasks:  map[int][]WeeklyTask{},
		DailyTasks:   map[string][]DailyTask{},
	}
}

// Clone returns a deep copy.
func (p *PartialRoadmap) Clone() *PartialRoadmap {
	out := &PartialRoadmap{
		Title:        p.Title,
		Description:  p.Description,
		MonthlyGoals: append([]MonthlyGoal{}, p.MonthlyGoals...),
		WeeklyTasks:  make(map[int][]WeeklyTask, len(p.WeeklyTasks)),
		DailyTasks:   make(map[string][]DailyTask, len(p.DailyTasks)),
	}
	for k, v := range p.WeeklyTasks {
		out.WeeklyTasks[k] = append([]WeeklyTask{}, v...)
	}
	for k, v := range p.DailyTasks {
		out.DailyTasks[k] = append([]DailyTask{}, v...)
	}
	return out
}

// Empty reports whether nothing has been generated yet.
func (p *PartialRoadmap) Empty() bool {
	return p.Title == "" && p.Description == "" && len(p.MonthlyGoals) == 0 &&
		len(p.WeeklyTasks) == 0 && len(p.DailyTasks) == 0
}

// Months returns the month numbers with weekly tasks, ascending.
func (p *PartialRoadmap) Months() []int {
	months := make([]int, 0, len(p.WeeklyTasks))
	for m := range p.WeeklyTasks {
		months = append(months, m)
	}
	sort.Ints(months)
	return months
}

// Counts returns the number of months, weeks and days generated so far.
func (p *PartialRoadmap) Counts() (months, weeks, days int) {
	months = len(p.MonthlyGoals)
	for _, w := range p.WeeklyTasks {
		weeks += len(w)
	}
	for _, d := range p.DailyTasks {
		days += len(d)
	}
	return months, weeks, days
}
