package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/interview"
	"github.com/felixgeelhaar/studyplan/internal/tui"
)

// goalFlags are the learning-goal flags shared by interview and generate.
type goalFlags struct {
	preset  string
	topic   string
	goal    string
	level   string
	months  int
	minutes int
	mode    string
	legacy  bool
}

func (f *goalFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.preset, "preset", "", "start from a preset goal ("+strings.Join(interview.PresetNames(), ", ")+")")
	cmd.Flags().StringVarP(&f.topic, "topic", "t", "", "what to learn (prompted when empty)")
	cmd.Flags().StringVar(&f.goal, "goal", "", "what you want to be able to do afterwards")
	cmd.Flags().StringVar(&f.level, "level", "", "current level, e.g. beginner")
	cmd.Flags().IntVar(&f.months, "months", 0, "roadmap length in months (default 3)")
	cmd.Flags().IntVar(&f.minutes, "minutes", 0, "study minutes per day")
	cmd.Flags().StringVar(&f.mode, "mode", "", "learning mode: checklist or quiz")
	cmd.Flags().BoolVar(&f.legacy, "legacy", false, "generate through the older line-based stream endpoint")
}

// resolve merges the preset, the flags and, for a missing topic, a prompt.
func (f *goalFlags) resolve(cc *CommandContext) (interview.Goal, error) {
	var goal interview.Goal
	if f.preset != "" {
		p, ok := interview.GetPresets()[f.preset]
		if !ok {
			return goal, errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("unknown preset: %s", f.preset)).
				WithSuggestion("Available presets: " + strings.Join(interview.PresetNames(), ", "))
		}
		goal = p.Goal
	}

	if f.topic != "" {
		goal.Topic = f.topic
	}
	if f.goal != "" {
		goal.Goal = f.goal
	}
	if f.level != "" {
		goal.CurrentLevel = f.level
	}
	if f.months > 0 {
		goal.DurationMonths = f.months
	}
	if f.minutes > 0 {
		goal.DailyMinutes = f.minutes
	}
	if f.mode != "" {
		if f.mode != "checklist" && f.mode != "quiz" {
			return goal, errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("unknown learning mode: %s", f.mode)).
				WithSuggestion("Use --mode checklist or --mode quiz")
		}
		goal.LearningMode = f.mode
	}

	if strings.TrimSpace(goal.Topic) == "" {
		topic, err := cc.Ask(tui.Prompt{
			Message:     "What do you want to learn?",
			Placeholder: "e.g. Rust, watercolor painting, Spanish",
			Required:    true,
		})
		if err != nil {
			return goal, err
		}
		goal.Topic = topic
	}
	if goal.DurationMonths <= 0 {
		goal.DurationMonths = 3
	}
	return goal, nil
}
