package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/studyplan/internal/appstate"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Tick daily tasks off the checklist",
	Long: `Mark daily tasks done or open again.

Task ids are listed by 'studyplan roadmaps show --expand'.

Examples:
  studyplan task done <roadmap-id> <task-id>
  studyplan task undo <roadmap-id> <task-id>
`,
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <roadmap-id> <task-id>",
	Short: "Mark a task done",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTaskSet(cmd, args, true)
	},
}

var taskUndoCmd = &cobra.Command{
	Use:   "undo <roadmap-id> <task-id>",
	Short: "Mark a task open again",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTaskSet(cmd, args, false)
	},
}

func init() {
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskUndoCmd)

	rootCmd.AddCommand(taskCmd)
}

func runTaskSet(cmd *cobra.Command, args []string, completed bool) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	client, err := cc.AuthedClient(cmd.Context())
	if err != nil {
		return err
	}

	task, err := client.SetTaskCompleted(cmd.Context(), args[0], args[1], completed)
	if err != nil {
		return err
	}

	if cc.Structured() {
		formatter, err := cc.Formatter()
		if err != nil {
			return err
		}
		return formatter.Format(task)
	}
	state := "open"
	if task.IsCompleted {
		state = "done"
	}
	cc.State.Notify(appstate.ToastSuccess, fmt.Sprintf("Day %d %q is %s", task.DayNumber, task.Title, state))
	return nil
}
