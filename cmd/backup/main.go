package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KMINALI2005/School-management-system/internal/app"
	"github.com/KMINALI2005/School-management-system/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "backup",
		Short: "Back up and restore the school database",
		Long: `Creates, restores, validates and prunes archives of the school database.

Run "backup run" to keep automatic backups going in the background, or use
the other commands for one-off operations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to config file (defaults and SCHOOL_BACKUP_* env when empty)")

	root.AddCommand(
		newRunCmd(flags),
		newCreateCmd(flags),
		newRestoreCmd(flags),
		newListCmd(flags),
		newDeleteCmd(flags),
		newValidateCmd(flags),
		newSettingsCmd(flags),
		newDriveAuthCmd(flags),
	)
	return root
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// withApp loads the config, builds the manager and shuts it down afterwards.
// The scheduler only starts when the command calls Run.
func withApp(ctx context.Context, flags *globalFlags, fn func(*app.App) error) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	application, err := app.New(ctx, cfg, app.WithSchedulerOnRun())
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer application.Shutdown()

	return fn(application)
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the automatic backup scheduler until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			return withApp(ctx, flags, func(a *app.App) error {
				return a.Run(ctx)
			})
		},
	}
}
