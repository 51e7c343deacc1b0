// Package cmd implements the daylist command line interface.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"daylist/internal/config"
	"daylist/internal/history"
	"daylist/internal/maintenance"
	"daylist/internal/render"
	"daylist/internal/taskstore"
	"daylist/internal/utils"
	"daylist/store"
	"daylist/store/sqlite"
)

// Version is set at build time
var Version = "dev"

// Config holds CLI-level configuration
type Config struct {
	NoPrompt   bool
	Verbose    bool
	JSON       bool
	DBPath     string // Path to database file (overrides config, for testing)
	ConfigPath string // Path to config file (for testing)
}

// Execute runs the CLI with the given arguments and IO writers
func Execute(args []string, stdout, stderr io.Writer, cfg *Config) int {
	rootCmd := NewDaylist(stdout, stderr, cfg)

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

// NewDaylist creates the root command with injectable IO
func NewDaylist(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	if cfg == nil {
		cfg = &Config{}
	}

	cmd := &cobra.Command{
		Use:     "daylist",
		Short:   "A daily task tracker",
		Long:    "daylist tracks today's tasks, checklists and a history of what you finished on prior days.",
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if v, _ := cmd.Flags().GetBool("verbose"); v {
				cfg.Verbose = true
			}
			if j, _ := cmd.Flags().GetBool("json"); j {
				cfg.JSON = true
			}
			if y, _ := cmd.Flags().GetBool("no-prompt"); y {
				cfg.NoPrompt = true
			}
			utils.SetVerboseMode(cfg.Verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Bare 'daylist' shows the list
			return runList(cmd.Context(), cfg, stdout, false)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("no-prompt", "y", false, "Disable interactive prompts")
	cmd.PersistentFlags().BoolP("verbose", "V", false, "Enable verbose/debug output")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().StringVar(&cfg.DBPath, "db", "", "Path to the database file")
	cmd.PersistentFlags().StringVar(&cfg.ConfigPath, "config", "", "Path to the config file")

	cmd.AddCommand(newAddCmd(stdout, cfg))
	cmd.AddCommand(newListCmd(stdout, cfg))
	cmd.AddCommand(newDoneCmd(stdout, cfg))
	cmd.AddCommand(newEditCmd(stdout, cfg))
	cmd.AddCommand(newRmCmd(stdout, cfg))
	cmd.AddCommand(newUndoCmd(stdout, cfg))
	cmd.AddCommand(newSubCmd(stdout, cfg))
	cmd.AddCommand(newHistoryCmd(stdout, cfg))
	cmd.AddCommand(newMaintainCmd(stdout, cfg))
	cmd.AddCommand(newWatchCmd(stdout, stderr, cfg))

	return cmd
}

// app bundles the wired-up core for one command invocation.
type app struct {
	cfg   *config.Config
	db    *sqlite.Store
	tasks *taskstore.Store
	sched *maintenance.Scheduler
	hist  *history.Reader
}

// openApp loads configuration, opens the database and constructs the
// core. A maintenance pass runs on startup when configured, so stale
// completed tasks disappear into history before anything is displayed.
func openApp(ctx context.Context, cliCfg *Config) (*app, error) {
	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	path := cfg.Storage.Path
	if cliCfg.DBPath != "" {
		path = cliCfg.DBPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sqlite.New(path)
	if err != nil {
		return nil, err
	}

	tasks := taskstore.New(db,
		taskstore.WithGraceWindow(cfg.GraceWindow()),
		taskstore.WithDebounce(cfg.Debounce()),
	)
	if err := tasks.Load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &app{
		cfg:   cfg,
		db:    db,
		tasks: tasks,
		hist:  history.New(db),
	}
	a.sched = maintenance.New(db, maintenance.WithOnArchived(func() {
		if err := tasks.Reload(context.Background()); err != nil {
			utils.Warnf("failed to reload after archive: %v", err)
		}
	}))

	if cfg.MaintenanceEnabled() && cfg.MaintenanceOnStart() {
		if _, err := a.sched.Run(ctx); err != nil {
			// Non-fatal: retried on the next invocation or manual run.
			utils.Warnf("%v", err)
		}
	}
	return a, nil
}

// close flushes pending writes and releases the database.
func (a *app) close() {
	if err := a.tasks.Close(); err != nil {
		utils.Warnf("%v", err)
	}
	_ = a.db.Close()
}

// resolveTask finds a task from user input (id, exact title or unique
// substring) or returns a not-found error.
func resolveTask(a *app, query string) (store.Task, error) {
	if t, ok := a.tasks.Resolve(query); ok {
		return t, nil
	}
	return store.Task{}, utils.ErrTaskNotFound(query)
}

// resolveSubTask finds a subtask of t by id, exact text or unique
// case-insensitive substring.
func resolveSubTask(t store.Task, query string) (store.SubTask, error) {
	for _, st := range t.SubTasks {
		if st.ID == query {
			return st, nil
		}
	}
	for _, st := range t.SubTasks {
		if equalFold(st.Text, query) {
			return st, nil
		}
	}
	match := -1
	for i, st := range t.SubTasks {
		if containsFold(st.Text, query) {
			if match >= 0 {
				return store.SubTask{}, utils.ErrSubTaskNotFound(query)
			}
			match = i
		}
	}
	if match >= 0 {
		return t.SubTasks[match], nil
	}
	return store.SubTask{}, utils.ErrSubTaskNotFound(query)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// runList displays the to-do and done-today views.
func runList(ctx context.Context, cfg *Config, stdout io.Writer, showAll bool) error {
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if cfg.JSON {
		return printJSON(stdout, struct {
			Todo      []store.Task `json:"todo"`
			DoneToday []store.Task `json:"doneToday"`
		}{
			Todo:      a.tasks.Incomplete(),
			DoneToday: a.tasks.CompletedToday(),
		})
	}

	render.Tasks(stdout, a.tasks.Incomplete(), a.tasks.CompletedToday(), a.tasks.Tasks(), showAll)
	render.Trash(stdout, a.tasks.PendingTrash())
	return nil
}
