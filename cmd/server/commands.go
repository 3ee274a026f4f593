package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/revision-scheduler/internal/platform/sqlstore"
	"github.com/phrazzld/revision-scheduler/internal/platform/tracing"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. Every subcommand reads the same
// configuration: config.yaml (or --config) overlaid by REVISE_* variables.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "revise",
		Short:        "Spaced-repetition revision scheduler",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newMigrateCmd(&configPath),
		newRecalculateCmd(&configPath),
		newSyncTopicColorsCmd(&configPath),
	)
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, logger, err := initialize(*configPath)
			if err != nil {
				return err
			}

			shutdownTracing, err := tracing.Setup(tracing.Config{
				Enabled:     cfg.Telemetry.TracingEnabled,
				ServiceName: cfg.Telemetry.ServiceName,
			}, logger)
			if err != nil {
				return fmt.Errorf("failed to set up tracing: %w", err)
			}
			defer func() {
				if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
					logger.Error("failed to flush traces", "error", err)
				}
			}()

			db, err := openDatabase(ctx, cfg.Database, logger)
			if err != nil {
				return err
			}

			app, err := newApplication(ctx, cfg, logger, db)
			if err != nil {
				_ = db.Close()
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return app.Run(ctx)
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|redo|reset|status|version]",
		Short:     "Run database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "redo", "reset", "status", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}

			cfg, logger, err := initialize(*configPath)
			if err != nil {
				return err
			}

			// Leave PostgreSQL as it is so the command decides what runs.
			dbCfg := cfg.Database
			dbCfg.AutoMigrate = false
			db, err := openDatabase(cmd.Context(), dbCfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := sqlstore.RunMigrations(cmd.Context(), db.DB, db.Dialect, db.Migrations, command, logger); err != nil {
				return fmt.Errorf("migrate %s: %w", command, err)
			}
			logger.Info("migrations finished", "command", command)
			return nil
		},
	}
}

func newRecalculateCmd(configPath *string) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "recalculate",
		Short: "Rebuild every card schedule under the current retention target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd.Context(), *configPath, func(ctx context.Context, app *application) error {
				var bar *progressbar.ProgressBar
				progress := func(done, total int) {
					if quiet {
						return
					}
					if bar == nil {
						bar = progressbar.NewOptions(total,
							progressbar.OptionSetWriter(os.Stderr),
							progressbar.OptionSetDescription("recalculating"),
							progressbar.OptionShowCount(),
							progressbar.OptionClearOnFinish(),
						)
					}
					_ = bar.Set(done)
				}

				result, err := app.reviewService.RecalculateAll(ctx, progress)
				if bar != nil {
					_ = bar.Finish()
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %d of %d cards\n", result.Updated, result.Total)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not draw a progress bar")
	return cmd
}

func newSyncTopicColorsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-topic-colors",
		Short: "Copy every topic's color onto the cards of that topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd.Context(), *configPath, func(ctx context.Context, app *application) error {
				updated, err := app.topicService.SyncAllTopicColors(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %d cards\n", updated)
				return nil
			})
		},
	}
}

// withApplication wires the application for a one-shot command, runs fn and
// releases everything afterwards. The task runner is not started.
func withApplication(ctx context.Context, configPath string, fn func(context.Context, *application) error) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := initialize(configPath)
	if err != nil {
		return err
	}

	db, err := openDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, cfg, logger, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.cleanup()

	return fn(ctx, app)
}
