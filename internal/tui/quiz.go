package tui

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/felixgeelhaar/studyplan/internal/api"
)

// quizForm builds one form group per question. The returned map holds the
// bound answer of each question id.
func quizForm(quiz api.Quiz) (*huh.Form, map[string]*string) {
	answers := make(map[string]*string, len(quiz.Questions))
	groups := make([]*huh.Group, 0, len(quiz.Questions))

	for i, q := range quiz.Questions {
		value := ""
		answers[q.ID] = &value

		var field huh.Field
		if len(q.Options) > 0 {
			field = huh.NewSelect[string]().
				Key(q.ID).
				Title(q.Question).
				Options(huh.NewOptions(q.Options...)...).
				Value(&value)
		} else {
			field = huh.NewInput().
				Key(q.ID).
				Title(q.Question).
				Value(&value)
		}
		groups = append(groups, huh.NewGroup(field).
			Title(fmt.Sprintf("%s (%d/%d)", quiz.Title, i+1, len(quiz.Questions))))
	}
	return huh.NewForm(groups...), answers
}

// quizAnswers returns the answers in question order.
func quizAnswers(quiz api.Quiz, bound map[string]*string) []api.QuizAnswer {
	out := make([]api.QuizAnswer, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		a := api.QuizAnswer{QuestionID: q.ID}
		if v, ok := bound[q.ID]; ok {
			a.Answer = *v
		}
		out = append(out, a)
	}
	return out
}

// RunQuiz asks every question of quiz and returns the answers.
func RunQuiz(quiz api.Quiz) ([]api.QuizAnswer, error) {
	if len(quiz.Questions) == 0 {
		return nil, fmt.Errorf("quiz %s has no questions", quiz.ID)
	}
	form, bound := quizForm(quiz)
	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("prompt failed: %w", err)
	}
	return quizAnswers(quiz, bound), nil
}
