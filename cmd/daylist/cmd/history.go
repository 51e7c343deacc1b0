package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"daylist/internal/render"
	"daylist/internal/utils"
)

// newHistoryCmd creates the 'history' subcommand
func newHistoryCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [query]",
		Short: "Browse archived tasks from prior days",
		Long:  "Browse the archive of completed tasks, most recent day first. An optional query filters by date, title or description.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			query := ""
			if len(args) == 1 {
				query = args[0]
			}

			entries, err := a.hist.Search(cmd.Context(), query)
			if err != nil {
				return err
			}
			stats, err := a.hist.Stats(cmd.Context())
			if err != nil {
				return err
			}

			if cfg.JSON {
				return printJSON(stdout, entries)
			}
			render.History(stdout, entries, stats)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newHistoryClearCmd(stdout, cfg))
	return cmd
}

// newHistoryClearCmd creates the 'history clear' subcommand
func newHistoryClearCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the entire archive (unrecoverable)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			stats, err := a.hist.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if stats.Tasks == 0 {
				fmt.Fprintln(stdout, "History is already empty.")
				return nil
			}

			if !cfg.NoPrompt {
				prompt := fmt.Sprintf("Delete %d archived task(s) across %d day(s)?", stats.Tasks, stats.Days)
				if !utils.PromptYesNo(prompt) {
					fmt.Fprintln(stdout, "Cancelled.")
					return nil
				}
			}

			if err := a.hist.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "History cleared.")
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}
