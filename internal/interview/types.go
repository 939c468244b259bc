package interview

// State is the position of a Flow in the interview lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateCollecting State = "collecting"
	StateReady      State = "ready"
	StateGenerating State = "generating"
	StateDone       State = "done"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// Goal is what the learner wants to study.
type Goal struct {
	Topic          string `json:"topic" yaml:"topic"`
	Goal           string `json:"goal,omitempty" yaml:"goal,omitempty"`
	CurrentLevel   string `json:"current_level,omitempty" yaml:"current_level,omitempty"`
	DurationMonths int    `json:"duration_months" yaml:"duration_months"`
	DailyMinutes   int    `json:"daily_minutes,omitempty" yaml:"daily_minutes,omitempty"`
	LearningMode   string `json:"learning_mode,omitempty" yaml:"learning_mode,omitempty"`
}

// QuestionType selects how a question is rendered.
type QuestionType string

const (
	QuestionTypeText   QuestionType = "text"
	QuestionTypeSelect QuestionType = "select"
)

// Question is one server-generated question.
type Question struct {
	ID          string       `json:"id"`
	Text        string       `json:"question"`
	Category    string       `json:"category,omitempty"`
	Type        QuestionType `json:"type,omitempty"`
	Options     []string     `json:"options,omitempty"`
	Placeholder string       `json:"placeholder,omitempty"`
}

// Answer pairs a question with the learner's reply.
type Answer struct {
	QuestionID string `json:"question_id"`
	Value      string `json:"answer"`
}

// Round is one batch of questions. Number, MaxRounds, InformationLevel and
// AIRecommendsComplete are echoed from the server and never computed here.
type Round struct {
	SessionID            string
	Number               int
	MaxRounds            int
	Questions            []Question
	InformationLevel     string
	AIRecommendsComplete bool
}

// Outcome is the server's reply to a submitted round.
type Outcome struct {
	// Complete means the server has enough information to generate.
	Complete bool
	// Next holds the follow-up round when Complete is false.
	Next       *Round
	Evaluation string
}

// Transcript is one answered round.
type Transcript struct {
	Round     int
	Questions []Question
	Answers   map[string]string
}
