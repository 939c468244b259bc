package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/studyplan/internal/interview"
	"github.com/felixgeelhaar/studyplan/internal/stream"
	"github.com/felixgeelhaar/studyplan/internal/tui"
)

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Answer a few rounds of questions and generate a roadmap",
	Long: `Start a guided interview about your learning goal.

The backend asks a handful of questions per round and decides after each
round whether it knows enough. Once it does, the roadmap is generated and
streamed month by month.

Examples:
  # Interactive interview with the live generation view
  studyplan interview --topic "Rust" --months 4

  # Start from a preset
  studyplan interview --preset go-backend

  # Line-based prompts, e.g. over SSH or in a pipe
  studyplan interview --plain --topic "Spanish"

  # List presets
  studyplan interview --list-presets
`,
	RunE: runInterview,
}

var (
	interviewGoal        goalFlags
	interviewStream      bool
	interviewListPresets bool
)

func init() {
	interviewGoal.bind(interviewCmd)
	interviewCmd.Flags().BoolVar(&interviewStream, "stream", true, "receive interview questions as an event stream")
	interviewCmd.Flags().BoolVar(&interviewListPresets, "list-presets", false, "list goal presets and exit")

	rootCmd.AddCommand(interviewCmd)
}

func runInterview(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if interviewListPresets {
		return printPresets(cc)
	}

	ctx := cmd.Context()
	client, err := cc.AuthedClient(ctx)
	if err != nil {
		return err
	}
	goal, err := interviewGoal.resolve(cc)
	if err != nil {
		return err
	}

	gen := newGeneration(cc, goal.Topic)
	backend := &interview.APIBackend{
		Client:    client,
		Streaming: interviewStream,
		Legacy:    interviewGoal.legacy,
		Questions: stream.NewSession(
			stream.WithName("interview"),
			stream.WithLogger(cc.Logger.With("stream", "interview")),
			stream.WithMetrics(cc.Metrics),
		),
		Generation: gen.session,
	}
	flow := interview.NewFlow(backend, goal,
		interview.WithLogger(cc.Logger.With("interview", goal.Topic)),
		interview.WithMetrics(cc.Metrics),
	)

	if cc.Interactive() {
		err = tui.RunInterview(ctx, flow, cc.Styles())
	} else {
		err = runPlainInterview(ctx, cc, flow)
	}
	if err != nil {
		return err
	}

	id, err := gen.run(ctx, flow.Generate)
	if err != nil {
		return err
	}
	return gen.report(ctx, client, id)
}

// runPlainInterview asks every round on plain lines until the backend has
// enough information.
func runPlainInterview(ctx context.Context, cc *CommandContext, flow *interview.Flow) error {
	if err := flow.Start(ctx); err != nil {
		return err
	}

	out := cc.ErrOut
	for flow.State() == interview.StateCollecting {
		round := flow.Round()
		printRoundHeader(out, round)

		for _, q := range round.Questions {
			var answer string
			if q.Type == interview.QuestionTypeSelect && len(q.Options) > 0 {
				answer, _ = cc.Choose(q.Text, q.Options)
			} else {
				v, err := cc.Ask(tui.Prompt{
					Message:     q.Text,
					Placeholder: q.Placeholder,
					Required:    true,
				})
				if err != nil {
					return err
				}
				answer = v
			}
			if err := flow.SetAnswer(q.ID, answer); err != nil {
				return err
			}
		}

		fmt.Fprintln(out, "Thinking about your answers...")
		if _, err := flow.Submit(ctx); err != nil {
			return err
		}
	}

	if eval := flow.Evaluation(); eval != "" {
		fmt.Fprintf(out, "\n%s\n", eval)
	}
	fmt.Fprintf(out, "Interview complete after %d round(s).\n\n", len(flow.History()))
	return nil
}

func printRoundHeader(w io.Writer, round interview.Round) {
	fmt.Fprintln(w)
	if round.MaxRounds > 0 {
		fmt.Fprintf(w, "Round %d of %d", round.Number, round.MaxRounds)
	} else {
		fmt.Fprintf(w, "Round %d", round.Number)
	}
	if round.InformationLevel != "" {
		fmt.Fprintf(w, " (information: %s)", round.InformationLevel)
	}
	fmt.Fprintln(w)
}

// presetRow is the structured form of a preset.
type presetRow struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Goal        interview.Goal `json:"goal" yaml:"goal"`
}

func printPresets(cc *CommandContext) error {
	presets := interview.GetPresets()
	names := interview.PresetNames()

	formatter, err := cc.Formatter()
	if err != nil {
		return err
	}
	if cc.Structured() {
		rows := make([]presetRow, 0, len(names))
		for _, n := range names {
			p := presets[n]
			rows = append(rows, presetRow{Name: p.Name, Description: p.Description, Goal: p.Goal})
		}
		return formatter.Format(rows)
	}

	table := tableOf("NAME", "MONTHS", "DESCRIPTION")
	for _, n := range names {
		p := presets[n]
		table.Rows = append(table.Rows, []string{p.Name, fmt.Sprint(p.Goal.DurationMonths), p.Description})
	}
	return formatter.Format(table)
}
