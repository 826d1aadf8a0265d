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
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jtp-saini-harmit/centralised-logging/pkg/adapters"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/cli"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/config"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/delivery"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/naming"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/rename"
)

var (
	cfgFile      string
	outputFormat string
	viperConfig  *viper.Viper
	globalConfig *config.Config
	format       cli.OutputFormat
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "logrelay",
	Short: "Rename delivered log batches to canonical keys",
	Long: `logrelay copies objects delivered by a batching stream (for example
Kinesis Firehose) to canonical keys under a destination prefix and then
deletes the originals.

Supported Storage Backends:
  - s3     : AWS S3 (optionally assuming a role for a cross-account target)
  - minio  : MinIO and other S3-compatible stores
  - memory : In-process store for dry runs

Configuration can be provided via:
  - Command-line flags (highest priority)
  - Environment variables (LOGRELAY_*)
  - Configuration file (./logrelay.yaml or /etc/logrelay/logrelay.yaml)
  - Default values (lowest priority)`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		format, err = cli.ParseOutputFormat(outputFormat)
		if err != nil {
			return err
		}

		viperConfig, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Bind flags to viper
		if err := viperConfig.BindPFlags(cmd.Flags()); err != nil {
			return fmt.Errorf("failed to bind flags: %w", err)
		}

		globalConfig = config.FromViper(viperConfig)
		return nil
	},
}

// newCommandContext builds the pipeline with logs on stderr so command
// output on stdout stays parseable.
func newCommandContext() (*cli.CommandContext, error) {
	logger := adapters.NewJSONLogger(os.Stderr, adapters.InfoLevel)
	ctx, err := cli.NewCommandContext(globalConfig, logger)
	if err != nil {
		fmt.Fprint(os.Stderr, cli.FormatError(err, format))
		return nil, err
	}
	return ctx, nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./logrelay.yaml)")
	flags.StringVarP(&outputFormat, "output", "o", "text", "output format: text, json, table")

	// Storage
	flags.String(config.KeyBackend, "s3", "storage backend: s3, minio, memory")
	flags.String(config.KeyRegion, "", "AWS region")
	flags.String(config.KeyEndpoint, "", "S3-compatible endpoint URL")
	flags.String(config.KeyAccessKey, "", "access key id")
	flags.String(config.KeySecretKey, "", "secret access key")
	flags.String(config.KeySessionToken, "", "session token")
	flags.String(config.KeyRoleARN, "", "role to assume for a cross-account target")
	flags.String(config.KeyExternalID, "", "external id for the assumed role")
	flags.Bool(config.KeyUsePathStyle, false, "use path-style addressing")
	flags.String(config.KeyBuckets, "", "buckets to create (memory backend)")
	flags.Float64(config.KeyRateLimit, 0, "store requests per second (0 disables)")
	flags.Int(config.KeyRateBurst, 10, "store request burst")

	// Renaming
	flags.String(config.KeyTargetBucket, "", "bucket for renamed objects (default: source bucket)")
	flags.String(config.KeyDestinationPrefix, naming.DefaultPrefix, "prefix for renamed objects")
	flags.String(config.KeyDestinationSuffix, naming.DefaultSuffix, "suffix for renamed objects")
	flags.String(config.KeyNamingPolicy, string(naming.DefaultPolicy), "naming policy: wallclock, source, content")
	flags.String(config.KeyContentType, rename.DefaultContentType, "content type of renamed objects")
	flags.String(config.KeyDestinationACL, "", "canned ACL for renamed objects")
	flags.Int(config.KeyConcurrency, delivery.DefaultConcurrency, "objects renamed in parallel")
	flags.Duration(config.KeyBudgetMargin, delivery.DefaultBudgetMargin, "stop starting objects this long before the deadline")
	flags.String(config.KeyDeadLetterBucket, "", "bucket for undecodable notifications (default: log only)")
	flags.String(config.KeyDeadLetterPrefix, delivery.DefaultDeadLetterPrefix, "prefix for dead letters")
	flags.String(config.KeyLogLevel, "info", "log level: debug, info, warn, error")
	flags.Bool(config.KeyAudit, false, "write an audit trail of renames and webhook requests to stderr")

	rootCmd.AddCommand(renameCmd, replayCmd, backfillCmd, serveCmd, configCmd, versionCmd)
}
