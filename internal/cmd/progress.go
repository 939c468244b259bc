package cmd

import (
	"fmt"

	bar "github.com/charmbracelet/bubbles/progress"
	"github.com/spf13/cobra"
)

var progressCmd = &cobra.Command{
	Use:   "progress [roadmap-id]",
	Short: "Show how far along a roadmap you are",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProgress,
}

func init() {
	rootCmd.AddCommand(progressCmd)
}

func runProgress(cmd *cobra.Command, args []string) error {
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

	p, err := client.GetProgress(ctx, id)
	if err != nil {
		return err
	}

	if cc.Structured() {
		formatter, err := cc.Formatter()
		if err != nil {
			return err
		}
		return formatter.Format(p)
	}

	opts := []bar.Option{bar.WithWidth(40), bar.WithoutPercentage()}
	if cc.NoColor {
		opts = append(opts, bar.WithSolidFill("7"))
	} else {
		opts = append(opts, bar.WithDefaultGradient())
	}
	b := bar.New(opts...)

	fmt.Fprintf(cc.Out, "%s %.0f%%\n", b.ViewAs(p.Percentage/100), p.Percentage)
	fmt.Fprintf(cc.Out, "%d of %d tasks done\n", p.CompletedTasks, p.TotalTasks)
	if p.CompletedTasks < p.TotalTasks && p.CurrentMonth > 0 {
		fmt.Fprintf(cc.Out, "Up next: month %d, week %d\n", p.CurrentMonth, p.CurrentWeek)
	}
	return nil
}
