package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/studyplan/internal/interview"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a roadmap without the interview",
	Long: `Generate a roadmap straight from a goal, skipping the interview.

The roadmap is streamed as it is written: the live view in a terminal, or a
line per phase with --plain and in CI.

Examples:
  studyplan generate --topic "Kubernetes" --months 2
  studyplan generate --preset data-analysis --format json > roadmap.json
  studyplan generate --topic "Piano" --legacy
`,
	RunE: runGenerate,
}

var generateGoal goalFlags

func init() {
	generateGoal.bind(generateCmd)

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client, err := cc.AuthedClient(ctx)
	if err != nil {
		return err
	}
	goal, err := generateGoal.resolve(cc)
	if err != nil {
		return err
	}

	gen := newGeneration(cc, goal.Topic)
	backend := &interview.APIBackend{
		Client:     client,
		Legacy:     generateGoal.legacy,
		Generation: gen.session,
	}

	id, err := gen.run(ctx, func(ctx context.Context) (string, error) {
		return backend.Generate(ctx, "", goal)
	})
	if err != nil {
		return err
	}
	return gen.report(ctx, client, id)
}
