package mock

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/studyplan/internal/api"
)

// MaxRounds is the number of interview rounds the mock asks at most.
const MaxRounds = 3

// FailTopic makes generation emit an error event when it appears in the
// requested topic.
const FailTopic = "trigger-error"

var phases = []string{
	"Foundations",
	"Core concepts",
	"Building projects",
	"Tooling and workflow",
	"Depth and performance",
	"Real-world practice",
}

var weekThemes = []string{
	"Read and take notes",
	"Guided exercises",
	"Small project",
	"Review and reflect",
}

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// roundQuestions returns the canned questions for round n.
func roundQuestions(n int, topic string) []api.InterviewQuestion {
	switch n {
	case 1:
		return []api.InterviewQuestion{
			{
				ID:       "experience",
				Question: fmt.Sprintf("How much experience do you have with %s?", topic),
				Category: "background",
				Type:     "select",
				Options:  []string{"None", "Some", "Comfortable"},
			},
			{
				ID:          "motivation",
				Question:    fmt.Sprintf("Why do you want to learn %s?", topic),
				Category:    "goals",
				Type:        "text",
				Placeholder: "For a new job, a side project, curiosity...",
			},
		}
	case 2:
		return []api.InterviewQuestion{
			{
				ID:          "projects",
				Question:    "What would you like to build once you are done?",
				Category:    "goals",
				Type:        "text",
				Placeholder: "Describe one project",
			},
			{
				ID:       "style",
				Question: "How do you learn best?",
				Category: "preferences",
				Type:     "select",
				Options:  []string{"Reading", "Videos", "Hands-on"},
			},
		}
	default:
		return []api.InterviewQuestion{
			{
				ID:          "constraints",
				Question:    "Is there anything that could get in the way of your schedule?",
				Category:    "preferences",
				Type:        "text",
				Placeholder: "Travel, exams, work peaks...",
			},
		}
	}
}

func informationLevel(round int) string {
	switch {
	case round <= 1:
		return "low"
	case round == 2:
		return "medium"
	default:
		return "high"
	}
}

// needsFollowup reports whether the answers of a round are too thin to stop.
// Round 1 always gets a follow-up; later rounds stop unless an answer is
// shorter than three characters.
func needsFollowup(round int, answers []api.InterviewAnswer) bool {
	if round >= MaxRounds {
		return false
	}
	if round == 1 {
		return true
	}
	for _, a := range answers {
		if len(strings.TrimSpace(a.Answer)) < 3 {
			return true
		}
	}
	return false
}

func evaluationFor(round int, complete bool) string {
	if complete {
		return fmt.Sprintf("After %d rounds there is enough information to plan your roadmap.", round)
	}
	return fmt.Sprintf("Round %d helped; a few more details will sharpen the plan.", round)
}

func clampMonths(n int) int {
	switch {
	case n <= 0:
		return 3
	case n > 12:
		return 12
	default:
		return n
	}
}

// buildRoadmap produces the deterministic roadmap streamed for req.
func buildRoadmap(req api.GenerateRequest, now time.Time) *api.Roadmap {
	months := clampMonths(req.DurationMonths)
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = "your topic"
	}
	mode := req.LearningMode
	if mode == "" {
		mode = "checklist"
	}

	span := fmt.Sprintf("%d months", months)
	if months == 1 {
		span = "1 month"
	}

	description := fmt.Sprintf("A %d-month plan to learn %s.", months, topic)
	if req.Goal != "" {
		description = fmt.Sprintf("A %d-month plan to learn %s: %s", months, topic, req.Goal)
	}

	r := &api.Roadmap{
		ID:             uuid.NewString(),
		Title:          fmt.Sprintf("%s in %s", topic, span),
		Description:    description,
		DurationMonths: months,
		LearningMode:   mode,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	for m := 1; m <= months; m++ {
		phase := phases[(m-1)%len(phases)]
		goal := api.MonthlyGoal{
			ID:          uuid.NewString(),
			MonthNumber: m,
			Title:       fmt.Sprintf("%s: %s", phase, topic),
			Description: fmt.Sprintf("Month %d focuses on %s.", m, strings.ToLower(phase)),
		}
		for w := 1; w <= len(weekThemes); w++ {
			week := api.WeeklyTask{
				ID:          uuid.NewString(),
				WeekNumber:  w,
				Title:       weekThemes[w-1],
				Description: fmt.Sprintf("%s for %s.", weekThemes[w-1], strings.ToLower(phase)),
			}
			for d := 1; d <= len(weekdays); d++ {
				week.DailyTasks = append(week.DailyTasks, api.DailyTask{
					ID:          uuid.NewString(),
					DayNumber:   d,
					Title:       fmt.Sprintf("%s session %d.%d.%d", topic, m, w, d),
					Description: fmt.Sprintf("%s: %s", weekdays[d-1], strings.ToLower(weekThemes[w-1])),
				})
			}
			goal.WeeklyTasks = append(goal.WeeklyTasks, week)
		}
		r.MonthlyGoals = append(r.MonthlyGoals, goal)
	}
	return r
}

// buildQuizzes creates one quiz per month of r. The first option is always
// the correct one.
func buildQuizzes(r *api.Roadmap) []quizEntry {
	var out []quizEntry
	for _, m := range r.MonthlyGoals {
		q := api.Quiz{
			ID:        uuid.NewString(),
			RoadmapID: r.ID,
			Title:     fmt.Sprintf("Month %d check-in", m.MonthNumber),
		}
		key := make(map[string]string)
		for i, w := range m.WeeklyTasks {
			if i >= 3 {
				break
			}
			qid := fmt.Sprintf("q%d", i+1)
			q.Questions = append(q.Questions, api.QuizQuestion{
				ID:           qid,
				Question:     fmt.Sprintf("Which activity belongs to week %d?", w.WeekNumber),
				QuestionType: "multiple_choice",
				Options:      []string{w.Title, "Skip the week", "Start over"},
			})
			key[qid] = w.Title
		}
		out = append(out, quizEntry{quiz: q, key: key})
	}
	return out
}
