package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/appstate"
	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/tui"
	"github.com/felixgeelhaar/studyplan/internal/ux"
)

var roadmapsCmd = &cobra.Command{
	Use:     "roadmaps",
	Aliases: []string{"roadmap", "rm"},
	Short:   "List, inspect and manage your roadmaps",
	Long: `Manage generated roadmaps.

Commands that take a roadmap id use your most recent roadmap when the id is
left out.

Examples:
  studyplan roadmaps list
  studyplan roadmaps show --expand
  studyplan roadmaps browse 3f2a...
  studyplan roadmaps rename 3f2a... "Rust for embedded"
  studyplan roadmaps delete 3f2a...
`,
}

var roadmapsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your roadmaps",
	Args:  cobra.NoArgs,
	RunE:  runRoadmapsList,
}

var roadmapsShowCmd = &cobra.Command{
	Use:   "show [roadmap-id]",
	Short: "Show a roadmap as a month/week tree",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRoadmapsShow,
}

var roadmapsBrowseCmd = &cobra.Command{
	Use:   "browse [roadmap-id]",
	Short: "Walk through the daily checklist and tick off tasks",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRoadmapsBrowse,
}

var roadmapsRenameCmd = &cobra.Command{
	Use:   "rename <roadmap-id> <title>",
	Short: "Change a roadmap's title",
	Args:  cobra.ExactArgs(2),
	RunE:  runRoadmapsRename,
}

var roadmapsDeleteCmd = &cobra.Command{
	Use:   "delete <roadmap-id>",
	Short: "Delete a roadmap",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoadmapsDelete,
}

var (
	roadmapsExpand      bool
	roadmapsDescription string
	roadmapsYes         bool
)

func init() {
	roadmapsShowCmd.Flags().BoolVarP(&roadmapsExpand, "expand", "e", false, "list every daily task")
	roadmapsRenameCmd.Flags().StringVar(&roadmapsDescription, "description", "", "also replace the description")
	roadmapsDeleteCmd.Flags().BoolVarP(&roadmapsYes, "yes", "y", false, "skip the confirmation")

	roadmapsCmd.AddCommand(roadmapsListCmd)
	roadmapsCmd.AddCommand(roadmapsShowCmd)
	roadmapsCmd.AddCommand(roadmapsBrowseCmd)
	roadmapsCmd.AddCommand(roadmapsRenameCmd)
	roadmapsCmd.AddCommand(roadmapsDeleteCmd)

	rootCmd.AddCommand(roadmapsCmd)
}

func tableOf(headers ...string) *ux.Table {
	return &ux.Table{Headers: headers}
}

// resolveRoadmapID returns the id in args or, when absent, the most
// recently created roadmap.
func resolveRoadmapID(ctx context.Context, client *api.Client, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}

	list, err := client.ListRoadmaps(ctx)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "", errors.New(errors.ErrCodeAPINotFound, "you have no roadmaps yet").
			WithSuggestion("Start one with 'studyplan interview'")
	}
	latest := list[0]
	for _, r := range list[1:] {
		if r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	return latest.ID, nil
}

func runRoadmapsList(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	client, err := cc.AuthedClient(cmd.Context())
	if err != nil {
		return err
	}

	list, err := client.ListRoadmaps(cmd.Context())
	if err != nil {
		return err
	}

	formatter, err := cc.Formatter()
	if err != nil {
		return err
	}
	if cc.Structured() {
		return formatter.Format(list)
	}
	if len(list) == 0 {
		fmt.Fprintln(cc.Out, "No roadmaps yet. Start one with 'studyplan interview'.")
		return nil
	}

	table := tableOf("ID", "TITLE", "MONTHS", "PROGRESS", "CREATED")
	for _, r := range list {
		table.Rows = append(table.Rows, []string{
			r.ID,
			r.Title,
			fmt.Sprint(r.DurationMonths),
			fmt.Sprintf("%.0f%%", r.Progress),
			r.CreatedAt.Format("2006-01-02"),
		})
	}
	return formatter.Format(table)
}

func runRoadmapsShow(cmd *cobra.Command, args []string) error {
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

	r, err := client.GetRoadmap(ctx, id)
	if err != nil {
		return err
	}

	if cc.Structured() {
		formatter, err := cc.Formatter()
		if err != nil {
			return err
		}
		return formatter.Format(r)
	}
	fmt.Fprint(cc.Out, tui.RenderRoadmap(r, cc.Styles(), roadmapsExpand))
	return nil
}

func runRoadmapsBrowse(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if !cc.Interactive() {
		return errors.New(errors.ErrCodeConfigInvalid, "browse needs an interactive terminal").
			WithSuggestions(
				"Use 'studyplan roadmaps show --expand' to list the tasks",
				"Use 'studyplan task done <roadmap-id> <task-id>' to tick one off",
			)
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
	r, err := client.GetRoadmap(ctx, id)
	if err != nil {
		return err
	}

	changed, err := tui.RunRoadmapBrowser(r, func(taskID string, completed bool) error {
		_, err := client.SetTaskCompleted(ctx, id, taskID, completed)
		return err
	}, cc.Styles())
	if err != nil {
		return err
	}
	if changed > 0 {
		cc.State.Notify(appstate.ToastSuccess, fmt.Sprintf("Updated %d task(s)", changed))
	}
	return nil
}

func runRoadmapsRename(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	client, err := cc.AuthedClient(cmd.Context())
	if err != nil {
		return err
	}

	title := args[1]
	req := api.UpdateRoadmapRequest{Title: &title}
	if cmd.Flags().Changed("description") {
		req.Description = &roadmapsDescription
	}
	r, err := client.UpdateRoadmap(cmd.Context(), args[0], req)
	if err != nil {
		return err
	}

	if cc.Structured() {
		formatter, err := cc.Formatter()
		if err != nil {
			return err
		}
		return formatter.Format(r)
	}
	cc.State.Notify(appstate.ToastSuccess, fmt.Sprintf("Renamed to %q", r.Title))
	return nil
}

func runRoadmapsDelete(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	client, err := cc.AuthedClient(ctx)
	if err != nil {
		return err
	}
	id := args[0]

	if !roadmapsYes {
		ok, err := cc.Confirm(fmt.Sprintf("Delete roadmap %s and its progress?", id), false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cc.ErrOut, "Nothing deleted.")
			return nil
		}
	}

	if err := client.DeleteRoadmap(ctx, id); err != nil {
		return err
	}
	cc.State.Notify(appstate.ToastSuccess, "Roadmap deleted")
	return nil
}
