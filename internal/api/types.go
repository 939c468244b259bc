package api

import "time"

// User represents an account
type User struct {
	ID        string    `json:"id" yaml:"id"`
	Email     string    `json:"email" yaml:"email"`
	Username  string    `json:"username" yaml:"username"`
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// TokenPair is returned by login, register and refresh
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents a sign-up request
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is the body of a successful login or register call
type AuthResponse struct {
	TokenPair
	User *User `json:"user,omitempty"`
}

// RoadmapSummary is one entry of the roadmap list
type RoadmapSummary struct {
	ID             string    `json:"id" yaml:"id"`
	Title          string    `json:"title" yaml:"title"`
	Description    string    `json:"description,omitempty" yaml:"description,omitempty"`
	DurationMonths int       `json:"duration_months" yaml:"duration_months"`
	LearningMode   string    `json:"learning_mode,omitempty" yaml:"learning_mode,omitempty"`
	Progress       float64   `json:"progress" yaml:"progress"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
}

// Roadmap is a generated learning plan with its full task tree
type Roadmap struct {
	ID             string        `json:"id" yaml:"id"`
	Title          string        `json:"title" yaml:"title"`
	Description    string        `json:"description,omitempty" yaml:"description,omitempty"`
	DurationMonths int           `json:"duration_months" yaml:"duration_months"`
	LearningMode   string        `json:"learning_mode,omitempty" yaml:"learning_mode,omitempty"`
	MonthlyGoals   []MonthlyGoal `json:"monthly_goals" yaml:"monthly_goals"`
	CreatedAt      time.Time     `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" yaml:"updated_at"`
}

// MonthlyGoal is one month of a stored roadmap
type MonthlyGoal struct {
	ID          string       `json:"id" yaml:"id"`
	MonthNumber int          `json:"month_number" yaml:"month_number"`
	Title       string       `json:"title" yaml:"title"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	WeeklyTasks []WeeklyTask `json:"weekly_tasks" yaml:"weekly_tasks"`
}

// WeeklyTask is one week of a stored roadmap
type WeeklyTask struct {
	ID          string      `json:"id" yaml:"id"`
	WeekNumber  int         `json:"week_number" yaml:"week_number"`
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	DailyTasks  []DailyTask `json:"daily_tasks" yaml:"daily_tasks"`
}

// DailyTask is one checklist item
type DailyTask struct {
	ID          string `json:"id" yaml:"id"`
	DayNumber   int    `json:"day_number" yaml:"day_number"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	IsCompleted bool   `json:"is_completed" yaml:"is_completed"`
}

// Clone returns a deep copy of r.
func (r *Roadmap) Clone() *Roadmap {
	out := *r
	out.MonthlyGoals = make([]MonthlyGoal, len(r.MonthlyGoals))
	for mi, m := range r.MonthlyGoals {
		m.WeeklyTasks = make([]WeeklyTask, len(m.WeeklyTasks))
		for wi, w := range r.MonthlyGoals[mi].WeeklyTasks {
			w.DailyTasks = append([]DailyTask(nil), w.DailyTasks...)
			m.WeeklyTasks[wi] = w
		}
		out.MonthlyGoals[mi] = m
	}
	return &out
}

// FindTask returns the daily task with id and its position.
func (r *Roadmap) FindTask(id string) (task *DailyTask, month, week int, ok bool) {
	for mi := range r.MonthlyGoals {
		m := &r.MonthlyGoals[mi]
		for wi := range m.WeeklyTasks {
			w := &m.WeeklyTasks[wi]
			for di := range w.DailyTasks {
				if w.DailyTasks[di].ID == id {
					return &w.DailyTasks[di], m.MonthNumber, w.WeekNumber, true
				}
			}
		}
	}
	return nil, 0, 0, false
}

// UpdateRoadmapRequest patches roadmap metadata
type UpdateRoadmapRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// UpdateTaskRequest toggles a checklist item
type UpdateTaskRequest struct {
	IsCompleted bool `json:"is_completed"`
}

// LearningProgress summarises checklist completion
type LearningProgress struct {
	RoadmapID      string  `json:"roadmap_id" yaml:"roadmap_id"`
	TotalTasks     int     `json:"total_tasks" yaml:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks" yaml:"completed_tasks"`
	Percentage     float64 `json:"percentage" yaml:"percentage"`
	CurrentMonth   int     `json:"current_month" yaml:"current_month"`
	CurrentWeek    int     `json:"current_week" yaml:"current_week"`
}

// Quiz belongs to a roadmap
type Quiz struct {
	ID          string         `json:"id" yaml:"id"`
	RoadmapID   string         `json:"roadmap_id" yaml:"roadmap_id"`
	DailyTaskID string         `json:"daily_task_id,omitempty" yaml:"daily_task_id,omitempty"`
	Title       string         `json:"title" yaml:"title"`
	Questions   []QuizQuestion `json:"questions" yaml:"questions"`
}

// QuizQuestion is a single quiz item
type QuizQuestion struct {
	ID           string   `json:"id" yaml:"id"`
	Question     string   `json:"question" yaml:"question"`
	QuestionType string   `json:"question_type" yaml:"question_type"` // multiple_choice, short_answer
	Options      []string `json:"options,omitempty" yaml:"options,omitempty"`
}

// QuizAnswer is the learner's answer to one question
type QuizAnswer struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// QuizSubmission is sent to grade a quiz
type QuizSubmission struct {
	Answers []QuizAnswer `json:"answers"`
}

// QuestionFeedback explains the grading of one answer
type QuestionFeedback struct {
	QuestionID  string `json:"question_id" yaml:"question_id"`
	Correct     bool   `json:"correct" yaml:"correct"`
	Explanation string `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// QuizResult is the grading outcome
type QuizResult struct {
	QuizID   string             `json:"quiz_id" yaml:"quiz_id"`
	Score    float64            `json:"score" yaml:"score"`
	Correct  int                `json:"correct" yaml:"correct"`
	Total    int                `json:"total" yaml:"total"`
	Passed   bool               `json:"passed" yaml:"passed"`
	Feedback []QuestionFeedback `json:"feedback,omitempty" yaml:"feedback,omitempty"`
}

// InterviewQuestion is one AI-generated question
type InterviewQuestion struct {
	ID          string   `json:"id"`
	Question    string   `json:"question"`
	Category    string   `json:"category,omitempty"`
	Type        string   `json:"type,omitempty"` // text, select
	Options     []string `json:"options,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
}

// InterviewStartRequest describes the learner's goal
type InterviewStartRequest struct {
	Topic          string `json:"topic"`
	Goal           string `json:"goal,omitempty"`
	CurrentLevel   string `json:"current_level,omitempty"`
	DurationMonths int    `json:"duration_months"`
	DailyMinutes   int    `json:"daily_minutes,omitempty"`
}

// InterviewSession is the server's view of an interview round
type InterviewSession struct {
	SessionID            string              `json:"session_id"`
	Round                int                 `json:"round"`
	MaxRounds            int                 `json:"max_rounds"`
	Questions            []InterviewQuestion `json:"questions"`
	InformationLevel     string              `json:"information_level,omitempty"`
	AIRecommendsComplete bool                `json:"ai_recommends_complete,omitempty"`
}

// InterviewAnswer answers one question
type InterviewAnswer struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// AnswerSubmission carries the answers of one round
type AnswerSubmission struct {
	Answers []InterviewAnswer `json:"answers"`
}

// Interview submit statuses
const (
	InterviewStatusFollowup = "followup"
	InterviewStatusComplete = "complete"
)

// InterviewSubmitResponse is the outcome of submitting a round. Status is
// "followup" with new questions, or "complete".
type InterviewSubmitResponse struct {
	SessionID            string              `json:"session_id"`
	Status               string              `json:"status"`
	Round                int                 `json:"round"`
	MaxRounds            int                 `json:"max_rounds"`
	Questions            []InterviewQuestion `json:"questions,omitempty"`
	InformationLevel     string              `json:"information_level,omitempty"`
	AIRecommendsComplete bool                `json:"ai_recommends_complete,omitempty"`
	Evaluation           string              `json:"evaluation,omitempty"`
}

// GenerateRequest asks for a roadmap
type GenerateRequest struct {
	SessionID      string `json:"session_id,omitempty"`
	Topic          string `json:"topic"`
	Goal           string `json:"goal,omitempty"`
	CurrentLevel   string `json:"current_level,omitempty"`
	DurationMonths int    `json:"duration_months"`
	DailyMinutes   int    `json:"daily_minutes,omitempty"`
	LearningMode   string `json:"learning_mode,omitempty"` // checklist, quiz
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}
