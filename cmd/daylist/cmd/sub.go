package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
)

// newSubCmd creates the 'sub' subcommand group for checklist items
func newSubCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sub",
		Short: "Manage a task's checklist",
	}

	cmd.AddCommand(newSubAddCmd(stdout, cfg))
	cmd.AddCommand(newSubDoneCmd(stdout, cfg))
	cmd.AddCommand(newSubRmCmd(stdout, cfg))
	cmd.AddCommand(newSubMoveCmd(stdout, cfg))
	return cmd
}

func newSubAddCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "add <task> <text>",
		Short: "Add a checklist item to a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			task, err := resolveTask(a, args[0])
			if err != nil {
				return err
			}
			st, err := a.tasks.AddSubTask(task.ID, args[1])
			if err != nil {
				return err
			}

			if cfg.JSON {
				return printJSON(stdout, st)
			}
			fmt.Fprintf(stdout, "Added %q to %q\n", st.Text, task.Title)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newSubDoneCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "done <task> <item>",
		Short: "Toggle a checklist item",
		Long:  "Toggle a checklist item. Checking off the last open item completes the whole task.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			task, err := resolveTask(a, args[0])
			if err != nil {
				return err
			}
			st, err := resolveSubTask(task, args[1])
			if err != nil {
				return err
			}
			if err := a.tasks.ToggleSubTask(task.ID, st.ID); err != nil {
				return err
			}

			updated, _ := a.tasks.Get(task.ID)
			if cfg.JSON {
				return printJSON(stdout, updated)
			}
			if updated.Completed && !task.Completed {
				fmt.Fprintf(stdout, "Checked %q. All done: %q is complete.\n", st.Text, updated.Title)
			} else {
				fmt.Fprintf(stdout, "Toggled %q\n", st.Text)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newSubRmCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <task> <item>",
		Short: "Remove a checklist item (permanent)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			task, err := resolveTask(a, args[0])
			if err != nil {
				return err
			}
			st, err := resolveSubTask(task, args[1])
			if err != nil {
				return err
			}
			if err := a.tasks.DeleteSubTask(task.ID, st.ID); err != nil {
				return err
			}

			if cfg.JSON {
				updated, _ := a.tasks.Get(task.ID)
				return printJSON(stdout, updated)
			}
			fmt.Fprintf(stdout, "Removed %q from %q\n", st.Text, task.Title)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newSubMoveCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "move <task> <from> <to>",
		Short: "Move a checklist item to a new position (0-based)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid position: %s", args[1])
			}
			to, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid position: %s", args[2])
			}

			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			task, err := resolveTask(a, args[0])
			if err != nil {
				return err
			}
			if from < 0 || from >= len(task.SubTasks) {
				return fmt.Errorf("position %d out of range (task has %d items)", from, len(task.SubTasks))
			}
			if err := a.tasks.ReorderSubTasks(task.ID, from, to); err != nil {
				return err
			}

			updated, _ := a.tasks.Get(task.ID)
			if cfg.JSON {
				return printJSON(stdout, updated)
			}
			fmt.Fprintf(stdout, "Moved item %d to %d in %q\n", from, to, updated.Title)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}
