package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/KMINALI2005/School-management-system/internal/app"
	"github.com/KMINALI2005/School-management-system/internal/config"
	"github.com/KMINALI2005/School-management-system/internal/domain"
	"github.com/KMINALI2005/School-management-system/internal/infrastructure/logger"
	"github.com/KMINALI2005/School-management-system/internal/usecase"
)

// follow prints job events until the job finishes and turns a failed
// result into an error.
func follow(out io.Writer, job *usecase.Job) error {
	for ev := range job.Events() {
		switch ev.Type {
		case domain.EventProgress:
			fmt.Fprintf(out, "[%3d%%]\n", ev.Percent)
		case domain.EventStatus:
			fmt.Fprintf(out, "       %s\n", ev.Message)
		case domain.EventFinished:
			fmt.Fprintln(out, ev.Message)
		}
	}

	res := job.Result()
	if res.Success {
		return nil
	}
	if res.Err != nil {
		return res.Err
	}
	return errors.New(res.Message)
}

func newCreateCmd(flags *globalFlags) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "create [destination.zip]",
		Short: "Create a backup archive now",
		Long: `Creates a backup archive of the database. Without a destination the
archive is written to the backup directory as backup_<timestamp>.zip.
Use --full to include the configuration file and resources directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			var dest string
			if len(args) == 1 {
				dest = args[0]
			}

			return withApp(ctx, flags, func(a *app.App) error {
				job, err := a.CreateBackup(ctx, dest, full)
				if err != nil {
					return err
				}
				return follow(cmd.OutOrStdout(), job)
			})
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "include configuration file and resources")
	return cmd
}

func newRestoreCmd(flags *globalFlags) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "restore <archive.zip>",
		Short: "Replace the database with the contents of an archive",
		Long: `Restores the database (and, for full backups, the configuration file and
resources) from an archive. The current database is first copied next to
itself as <database>.backup_<timestamp>. Restart the school application
afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("restore replaces the live database; re-run with --yes to confirm")
			}

			ctx, cancel := signalContext()
			defer cancel()

			return withApp(ctx, flags, func(a *app.App) error {
				if ok, reason := a.ValidateBackup(args[0]); !ok {
					return fmt.Errorf("refusing to restore %s: %s", args[0], reason)
				}
				job, err := a.RestoreBackup(ctx, args[0])
				if err != nil {
					return err
				}
				return follow(cmd.OutOrStdout(), job)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm replacing the live database")
	return cmd
}

func newListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archives in the backup directory, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(a *app.App) error {
				backups, err := a.ListBackups(cmd.Context())
				if err != nil {
					return err
				}
				printBackups(cmd.OutOrStdout(), backups)
				return nil
			})
		},
	}
}

func printBackups(out io.Writer, backups []domain.BackupEntry) {
	if len(backups) == 0 {
		fmt.Fprintln(out, "No backups found")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tCREATED\tTYPE")
	for _, b := range backups {
		kind := "manual"
		if b.IsAuto {
			kind = "auto"
		}
		fmt.Fprintf(w, "%s\t%s\t%s (%s)\t%s\n",
			b.Filename,
			humanize.Bytes(uint64(b.Size)),
			b.CreatedAt.Format(time.DateTime),
			humanize.Time(b.CreatedAt),
			kind)
	}
	w.Flush()
}

func newDeleteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <archive.zip>",
		Short: "Delete one archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(a *app.App) error {
				if err := a.DeleteBackup(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newValidateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <archive.zip>",
		Short: "Check that an archive can be restored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(a *app.App) error {
				ok, reason := a.ValidateBackup(args[0])
				if !ok {
					return fmt.Errorf("%s: %s", args[0], reason)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s: %s\n", args[0], reason)
				if m, err := a.ReadManifest(args[0]); err == nil {
					fmt.Fprintf(out, "  created:  %s\n  version:  %s\n  type:     %s\n  database: %s\n",
						m.CreatedAt.Local().Format(time.DateTime), m.Version, m.BackupType,
						humanize.Bytes(uint64(m.DatabaseSize)))
				}
				return nil
			})
		},
	}
}

func newSettingsCmd(flags *globalFlags) *cobra.Command {
	var auto, location string
	var interval int

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change automatic backup settings",
		Example: `  backup settings
  backup settings --auto=true --interval 12
  backup settings --location /mnt/usb/school-backups`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(a *app.App) error {
				if cmd.Flags().Changed("interval") {
					if err := a.SetInterval(interval); err != nil {
						return err
					}
				}
				if cmd.Flags().Changed("location") {
					if err := a.SetLocation(location); err != nil {
						return err
					}
				}
				if cmd.Flags().Changed("auto") {
					enabled, err := cast.ToBoolE(auto)
					if err != nil {
						return fmt.Errorf("--auto must be true or false: %w", err)
					}
					if err := a.SetAutoBackup(enabled); err != nil {
						return err
					}
				}

				bc := a.BackupConfig()
				fmt.Fprintf(cmd.OutOrStdout(), "database:          %s\nsettings file:     %s\nautomatic backups: %t\ninterval:          %dh\nlocation:          %s\n",
					a.DatabasePath(), a.SettingsPath(), bc.AutoBackupEnabled, bc.IntervalHours, bc.Directory)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&auto, "auto", "", "enable or disable automatic backups (true|false)")
	cmd.Flags().IntVar(&interval, "interval", 0, "hours between automatic backups")
	cmd.Flags().StringVar(&location, "location", "", "backup directory")
	return cmd
}

func newDriveAuthCmd(flags *globalFlags) *cobra.Command {
	var clientSecret, addr string

	cmd := &cobra.Command{
		Use:   "drive-auth",
		Short: "Obtain a Google Drive refresh token for the gdrive upload target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer log.Close()

			auth, err := app.NewDriveAuth(log, clientSecret, uuid.NewString())
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()
			return auth.Serve(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&clientSecret, "client-secret", "client_secret.json", "OAuth client secret downloaded from Google Cloud")
	cmd.Flags().StringVar(&addr, "addr", ":8085", "listen address for the OAuth callback")
	return cmd
}
