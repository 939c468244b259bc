package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/progress"
	"github.com/felixgeelhaar/studyplan/internal/tui"
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Check what you learned with the roadmap's quizzes",
	Long: `List and take the quizzes that come with a roadmap.

Examples:
  studyplan quiz list
  studyplan quiz take <roadmap-id>
  studyplan quiz take <roadmap-id> <quiz-id>
`,
}

var quizListCmd = &cobra.Command{
	Use:   "list [roadmap-id]",
	Short: "List a roadmap's quizzes",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runQuizList,
}

var quizTakeCmd = &cobra.Command{
	Use:   "take [roadmap-id] [quiz-id]",
	Short: "Answer a quiz and get it graded",
	Args:  cobra.MaximumNArgs(2),
	RunE:  runQuizTake,
}

func init() {
	quizCmd.AddCommand(quizListCmd)
	quizCmd.AddCommand(quizTakeCmd)

	rootCmd.AddCommand(quizCmd)
}

func runQuizList(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	client, err := cc.AuthedClient(ctx)
	if err != nil {
		return err
	}
	id, err := resolveRoadmapID(ctx, client, args)
	if err != nil {
		return err
	}

	quizzes, err := client.ListQuizzes(ctx, id)
	if err != nil {
		return err
	}

	formatter, err := cc.Formatter()
	if err != nil {
		return err
	}
	if cc.Structured() {
		return formatter.Format(quizzes)
	}
	if len(quizzes) == 0 {
		fmt.Fprintln(cc.Out, "This roadmap has no quizzes.")
		return nil
	}
	table := tableOf("ID", "TITLE", "QUESTIONS")
	for _, q := range quizzes {
		table.Rows = append(table.Rows, []string{q.ID, q.Title, fmt.Sprint(len(q.Questions))})
	}
	return formatter.Format(table)
}

func runQuizTake(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	client, err := cc.AuthedClient(ctx)
	if err != nil {
		return err
	}
	roadmapID, err := resolveRoadmapID(ctx, client, args)
	if err != nil {
		return err
	}

	quizzes, err := client.ListQuizzes(ctx, roadmapID)
	if err != nil {
		return err
	}
	var quizID string
	if len(args) > 1 {
		quizID = args[1]
	}
	quiz, err := pickQuiz(cc, quizzes, quizID)
	if err != nil {
		return err
	}

	var answers []api.QuizAnswer
	if cc.Interactive() {
		answers, err = tui.RunQuiz(quiz)
	} else {
		answers, err = askQuiz(cc, quiz)
	}
	if err != nil {
		return err
	}

	result, err := client.SubmitQuiz(ctx, quiz.ID, answers)
	if err != nil {
		return err
	}
	return printQuizResult(cc, quiz, result)
}

// pickQuiz returns the quiz with id, the only quiz, or the one the user
// chooses.
func pickQuiz(cc *CommandContext, quizzes []api.Quiz, id string) (api.Quiz, error) {
	if id != "" {
		for _, q := range quizzes {
			if q.ID == id {
				return q, nil
			}
		}
		return api.Quiz{}, errors.New(errors.ErrCodeAPINotFound, fmt.Sprintf("quiz %s not found", id)).
			WithSuggestion("List the quizzes with 'studyplan quiz list'")
	}
	switch len(quizzes) {
	case 0:
		return api.Quiz{}, errors.New(errors.ErrCodeAPINotFound, "this roadmap has no quizzes")
	case 1:
		return quizzes[0], nil
	}

	titles := make([]string, len(quizzes))
	for i, q := range quizzes {
		titles[i] = q.Title
	}
	_, idx := cc.Choose("Which quiz?", titles)
	return quizzes[idx], nil
}

// askQuiz asks each question on a plain line.
func askQuiz(cc *CommandContext, quiz api.Quiz) ([]api.QuizAnswer, error) {
	answers := make([]api.QuizAnswer, 0, len(quiz.Questions))
	for i, q := range quiz.Questions {
		message := fmt.Sprintf("%d/%d %s", i+1, len(quiz.Questions), q.Question)
		var answer string
		if len(q.Options) > 0 {
			answer, _ = cc.Choose(message, q.Options)
		} else {
			v, err := cc.Ask(tui.Prompt{Message: message, Required: true})
			if err != nil {
				return nil, err
			}
			answer = v
		}
		answers = append(answers, api.QuizAnswer{QuestionID: q.ID, Answer: answer})
	}
	return answers, nil
}

func printQuizResult(cc *CommandContext, quiz api.Quiz, result *api.QuizResult) error {
	if cc.Structured() {
		formatter, err := cc.Formatter()
		if err != nil {
			return err
		}
		return formatter.Format(result)
	}

	fmt.Fprintf(cc.Out, "\n%s\n", quiz.Title)
	b := progress.NewBarIndicator(cc.Out, result.Total)
	for _, f := range result.Feedback {
		b.Increment(f.Correct)
	}
	b.Finish()

	questions := make(map[string]string, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questions[q.ID] = q.Question
	}
	for _, f := range result.Feedback {
		if f.Correct || f.Explanation == "" {
			continue
		}
		fmt.Fprintf(cc.Out, "✗ %s\n  %s\n", questions[f.QuestionID], f.Explanation)
	}

	verdict := "Not passed yet, review the month and try again."
	if result.Passed {
		verdict = "Passed!"
	}
	fmt.Fprintf(cc.Out, "Score: %.0f%% (%d/%d). %s\n", result.Score, result.Correct, result.Total, verdict)
	return nil
}
