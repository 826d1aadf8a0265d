// Copyright (c) 2025 The centralised-logging Authors
//
// This file is part of centralised-logging.
//
// centralised-logging is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact the centralised-logging maintainers for commercial licensing options.


package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jtp-saini-harmit/centralised-logging/pkg/adapters"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/backfill"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/cli"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/config"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/delivery"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/version"
)

var renameCmd = &cobra.Command{
	Use:   "rename <bucket> <key>",
	Short: "Rename one object",
	Long: `Copy one object to its canonical key and delete the original.
The key is the stored key, not the URL-encoded form used in notifications.`,
	Example: `  logrelay rename central-logs firehose/2024/05/06/batch-1.gz
  logrelay rename central-logs firehose/batch-1.gz --naming-policy wallclock -o json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newCommandContext()
		if err != nil {
			return err
		}
		defer func() { _ = ctx.Close() }()

		result, err := ctx.RenameCommand(cmd.Context(), args[0], args[1])
		return printBatch(result, err)
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay [event-file]",
	Short: "Process a saved S3 or SQS event",
	Long: `Run the rename pipeline over a saved S3 event notification, or an SQS
event whose messages carry S3 notifications. Reads stdin when event-file is
omitted or '-'.`,
	Example: `  logrelay replay event.json
  aws s3api ... | logrelay replay -`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "-"
		if len(args) > 0 {
			path = args[0]
		}

		ctx, err := newCommandContext()
		if err != nil {
			return err
		}
		defer func() { _ = ctx.Close() }()

		result, err := ctx.ReplayCommand(cmd.Context(), path)
		return printBatch(result, err)
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill <bucket> [prefix]",
	Short: "Rename objects left behind by failed deliveries",
	Long: `List a bucket and rename every object that is not already a renamed
object or a dead letter and is older than --min-age. Objects are renamed in
the same way as on delivery, so running backfill twice is safe.`,
	Example: `  logrelay backfill central-logs firehose/ --dry-run
  logrelay backfill central-logs firehose/2024/ --min-age 1h --limit 500`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := ""
		if len(args) > 1 {
			prefix = args[1]
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")    //nolint:errcheck // flags are validated by cobra
		limit, _ := cmd.Flags().GetInt("limit")        //nolint:errcheck // flags are validated by cobra
		pageSize, _ := cmd.Flags().GetInt("page-size") //nolint:errcheck // flags are validated by cobra

		ctx, err := newCommandContext()
		if err != nil {
			return err
		}
		defer func() { _ = ctx.Close() }()

		report, err := ctx.BackfillCommand(cmd.Context(), backfill.Config{
			Bucket:   args[0],
			Prefix:   prefix,
			PageSize: pageSize,
			Limit:    limit,
			DryRun:   dryRun,
		})
		fmt.Print(cli.FormatBackfillReport(report, dryRun, err, format))
		return err
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Receive bucket notifications over HTTP",
	Long: `Start an HTTP server that accepts S3-style bucket notifications on
POST /events, as sent by MinIO webhook targets, and renames the objects they
name. A failed batch answers 500 so the sender retries.

The log level follows changes to the config file without a restart.`,
	Example: `  logrelay serve --backend minio --endpoint http://minio:9000 --auth-token s3cret`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newCommandContext()
		if err != nil {
			return err
		}
		defer func() { _ = ctx.Close() }()

		srv, err := ctx.WebhookServer()
		if err != nil {
			return err
		}

		config.Watch(viperConfig, func(cfg *config.Config, err error) {
			if err != nil {
				ctx.Logger.Warn(context.Background(), "ignoring invalid config change", adapters.Err(err))
				return
			}
			ctx.Logger.SetLevel(cfg.Level())
			ctx.Logger.Info(context.Background(), "config reloaded",
				adapters.Field{Key: "log_level", Value: cfg.Level().String()})
		})

		sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-sigCtx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after flags, environment and config file are merged. Secrets are masked.`,
	Example: `  logrelay config
  LOGRELAY_TARGET_BUCKET=archive logrelay config -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := globalConfig.Validate(); err != nil {
			fmt.Fprint(os.Stderr, cli.FormatError(err, format))
			return err
		}
		fmt.Print(cli.DisplayConfig(globalConfig, format))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Get())
	},
}

// printBatch writes the batch summary to stdout and returns err so the exit
// status reflects failed objects.
func printBatch(result *delivery.BatchResult, err error) error {
	if result == nil && err != nil {
		fmt.Fprint(os.Stderr, cli.FormatError(err, format))
		return err
	}
	fmt.Print(cli.FormatBatchResult(result, err, format))
	return err
}

func init() {
	backfillCmd.Flags().Bool("dry-run", false, "list eligible objects without renaming them")
	backfillCmd.Flags().Int("limit", 0, "stop after this many eligible objects (0: no limit)")
	backfillCmd.Flags().Int("page-size", 0, "objects listed per page and renamed per batch")
	backfillCmd.Flags().Duration(config.KeyMinAge, backfill.DefaultMinAge, "skip objects modified more recently")

	serveCmd.Flags().String(config.KeyListen, ":8080", "listen address")
	serveCmd.Flags().String(config.KeyAuthToken, "", "bearer token required on POST /events")
	serveCmd.Flags().Int64(config.KeyMaxBodyBytes, 1<<20, "maximum notification body size")
}
