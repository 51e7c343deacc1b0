package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"daylist/internal/taskstore"
	"daylist/internal/utils"
)

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(strings.TrimSpace(needle)))
}

// newAddCmd creates the 'add' subcommand
func newAddCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	var description string
	var priorityFlag string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a new task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			priority, err := utils.ParsePriority(priorityFlag)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			task, err := a.tasks.AddTask(args[0], description, priority)
			if err != nil {
				return err
			}

			if cfg.JSON {
				return printJSON(stdout, task)
			}
			fmt.Fprintf(stdout, "Added %q (%s)\n", task.Title, task.Priority)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	cmd.Flags().StringVarP(&priorityFlag, "priority", "p", "", "Task priority (low, medium, high)")
	return cmd
}

// newListCmd creates the 'list' subcommand
func newListCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show tasks to do and tasks done today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), cfg, stdout, all)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().BoolVar(&all, "all", false, "Also show completed tasks from prior days awaiting archive")
	return cmd
}

// newDoneCmd creates the 'done' subcommand
func newDoneCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "done <task>",
		Short: "Toggle a task's completion",
		Long:  "Toggle a task between to-do and done. Completing a task also checks off its remaining checklist items.",
		Args:  cobra.ExactArgs(1),
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
			if err := a.tasks.ToggleTask(task.ID); err != nil {
				return err
			}

			updated, _ := a.tasks.Get(task.ID)
			if cfg.JSON {
				return printJSON(stdout, updated)
			}
			if updated.Completed {
				fmt.Fprintf(stdout, "Done: %q\n", updated.Title)
			} else {
				fmt.Fprintf(stdout, "Reopened: %q\n", updated.Title)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newEditCmd creates the 'edit' subcommand
func newEditCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	var title, description, priorityFlag string

	cmd := &cobra.Command{
		Use:   "edit <task>",
		Short: "Edit a task's title, description or priority",
		Args:  cobra.ExactArgs(1),
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

			upd := taskstore.TaskUpdate{}
			if cmd.Flags().Changed("title") {
				upd.Title = &title
			}
			if cmd.Flags().Changed("description") {
				upd.Description = &description
			}
			if cmd.Flags().Changed("priority") {
				p, err := utils.ParsePriority(priorityFlag)
				if err != nil {
					return err
				}
				upd.Priority = &p
			}
			if upd.Title == nil && upd.Description == nil && upd.Priority == nil {
				return fmt.Errorf("nothing to change: pass --title, --description or --priority")
			}

			if err := a.tasks.UpdateTask(task.ID, upd); err != nil {
				return err
			}

			updated, _ := a.tasks.Get(task.ID)
			if cfg.JSON {
				return printJSON(stdout, updated)
			}
			fmt.Fprintf(stdout, "Updated %q\n", updated.Title)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVarP(&priorityFlag, "priority", "p", "", "New priority (low, medium, high)")
	return cmd
}

// newRmCmd creates the 'rm' subcommand
func newRmCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <task>",
		Short: "Delete a task (undoable for a few seconds)",
		Args:  cobra.ExactArgs(1),
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
			if err := a.tasks.RequestDeleteTask(task.ID); err != nil {
				return err
			}

			if cfg.JSON {
				return printJSON(stdout, task)
			}
			fmt.Fprintf(stdout, "Deleted %q. Restore it with 'daylist undo'.\n", task.Title)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newUndoCmd creates the 'undo' subcommand
func newUndoCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "undo [task]",
		Short: "Restore a just-deleted task",
		Long:  "Restore the most recent deletion, or a specific one by title, while its grace window is open.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			id := ""
			if len(args) == 1 {
				for _, item := range a.tasks.PendingTrash() {
					if item.Snapshot.ID == args[0] || containsFold(item.Snapshot.Title, args[0]) {
						id = item.Snapshot.ID
						break
					}
				}
				if id == "" {
					return utils.ErrNothingToUndo()
				}
			} else {
				id = a.tasks.LatestTrashed()
				if id == "" {
					return utils.ErrNothingToUndo()
				}
			}

			if err := a.tasks.UndoDelete(id); err != nil {
				return err
			}

			restored, _ := a.tasks.Get(id)
			if cfg.JSON {
				return printJSON(stdout, restored)
			}
			fmt.Fprintf(stdout, "Restored %q\n", restored.Title)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newMaintainCmd creates the 'maintain' subcommand
func newMaintainCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "maintain",
		Short: "Archive tasks completed on prior days now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.sched.Run(cmd.Context())
			if err != nil {
				return err
			}

			if cfg.JSON {
				return printJSON(stdout, res)
			}
			if res.Archived == 0 {
				fmt.Fprintln(stdout, "Nothing to archive.")
				return nil
			}
			fmt.Fprintf(stdout, "Archived %d task(s) into %d day(s): %s\n",
				res.Archived, len(res.Dates), strings.Join(res.Dates, ", "))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}
