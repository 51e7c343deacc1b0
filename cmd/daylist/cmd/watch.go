package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"daylist/internal/shutdown"
	"daylist/internal/utils"
	"daylist/internal/watcher"
)

// shutdownTimeout bounds how long cleanup may take on exit.
const shutdownTimeout = 5 * time.Second

// newWatchCmd creates the 'watch' subcommand: a long-running mode that
// owns the midnight maintenance timer and reloads when another daylist
// process writes the database.
func newWatchCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run in the background, archiving at midnight",
		Long:  "Stay running, archive completed tasks at each local midnight and pick up changes written by other daylist commands.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			blog, err := utils.NewBackgroundLoggerWithEnabled(a.cfg.IsBackgroundLoggingEnabled())
			if err != nil {
				utils.Warnf("background log unavailable: %v", err)
			}
			blog.Printf("daylist watch started (db=%s)", a.db.Path())

			mgr := shutdown.NewManager()
			mgr.RegisterCleanup("database", func(ctx context.Context) error {
				return a.db.Close()
			})
			mgr.RegisterCleanup("taskstore", func(ctx context.Context) error {
				return a.tasks.Close()
			})

			if a.cfg.MaintenanceEnabled() {
				a.sched.Start(cmd.Context())
				mgr.RegisterCleanup("maintenance", func(ctx context.Context) error {
					a.sched.Stop()
					return nil
				})
			}

			w, err := watcher.New(&watcher.Config{
				Path: a.db.Path(),
				OnChange: func() {
					if err := a.tasks.Reload(context.Background()); err != nil {
						blog.Printf("reload failed: %v", err)
						return
					}
					blog.Printf("reloaded after external change")
				},
			})
			if err != nil {
				utils.Warnf("file watching unavailable: %v", err)
			} else if err := w.Start(); err != nil {
				utils.Warnf("file watching unavailable: %v", err)
			} else {
				mgr.RegisterCleanup("watcher", func(ctx context.Context) error {
					w.Stop()
					return nil
				})
			}

			if blog.IsEnabled() {
				fmt.Fprintf(stdout, "Watching. Log: %s\n", blog.GetLogPath())
			} else {
				fmt.Fprintln(stdout, "Watching.")
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-sigCh:
				blog.Printf("received %s, shutting down", sig)
			case <-mgr.Context().Done():
			}

			mgr.Shutdown()
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			err = mgr.Wait(ctx)
			blog.Println("daylist watch stopped")
			blog.Close()
			return err
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}
