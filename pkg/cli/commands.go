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


package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/adapters"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/audit"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/backfill"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/common"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/config"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/delivery"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/factory"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/naming"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/notification"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/rename"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/server/webhook"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/throttle"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/trigger"
)

// EventNameManual marks refs created by the rename command.
const EventNameManual = "Manual"

// CommandContext holds the pipeline assembled from one configuration.
type CommandContext struct {
	Config      *config.Config
	Store       common.ObjectStore
	Namer       *naming.Namer
	Worker      *rename.Worker
	Coordinator *delivery.Coordinator
	Logger      adapters.Logger

	// Audit is nil unless the audit trail is enabled.
	Audit audit.AuditLogger
}

// NewCommandContext validates cfg and builds the store, namer, worker and
// coordinator. A nil logger selects the default JSON logger on stdout.
func NewCommandContext(cfg *config.Config, logger adapters.Logger) (*CommandContext, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = adapters.NewDefaultLogger()
	}
	logger.SetLevel(cfg.Level())

	store, err := factory.NewStore(cfg.Backend, cfg.StoreSettings())
	if err != nil {
		return nil, err
	}
	return newCommandContext(cfg, store, logger)
}

func newCommandContext(cfg *config.Config, store common.ObjectStore, logger adapters.Logger) (*CommandContext, error) {
	store = throttle.Wrap(store, cfg.RateLimit, cfg.RateBurst)

	namer, err := naming.New(cfg.DestinationPrefix, cfg.DestinationSuffix, cfg.Policy())
	if err != nil {
		return nil, err
	}

	worker, err := rename.New(store, namer, rename.Config{
		TargetBucket:     cfg.TargetBucket,
		ContentType:      cfg.ContentType,
		ACL:              cfg.DestinationACL,
		DeadLetterPrefix: cfg.DeadLetterPrefix,
	}, logger)
	if err != nil {
		return nil, err
	}

	var auditLogger audit.AuditLogger
	if cfg.Audit {
		auditLogger = audit.NewAuditLogger(&audit.Config{
			Enabled:         true,
			Format:          audit.FormatJSON,
			Output:          os.Stderr,
			IncludeMetadata: true,
		})
	}

	var sink delivery.DeadLetterSink
	if cfg.DeadLetterBucket != "" {
		sink, err = delivery.NewStoreDeadLetterSink(store, cfg.DeadLetterBucket, cfg.DeadLetterPrefix, logger)
		if err != nil {
			return nil, err
		}
	}

	coord, err := delivery.New(worker, sink, delivery.Config{
		Concurrency:  cfg.Concurrency,
		BudgetMargin: cfg.BudgetMargin,
		Audit:        auditLogger,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		Config:      cfg,
		Store:       store,
		Namer:       namer,
		Worker:      worker,
		Coordinator: coord,
		Logger:      logger,
		Audit:       auditLogger,
	}, nil
}

// Close releases resources held by the context.
func (ctx *CommandContext) Close() error {
	// Stores hold no connections that need closing.
	return nil
}

// withCorrelation tags commands run outside Lambda or HTTP with a fresh id.
func withCorrelation(ctx context.Context) context.Context {
	if adapters.CorrelationID(ctx) != "" {
		return ctx
	}
	return adapters.WithCorrelationID(ctx, uuid.NewString())
}

// RenameCommand renames one object. key is the stored key, not the
// notification encoding. The object's LastModified stands in for the event
// time so repeated runs target the same destination.
func (ctx *CommandContext) RenameCommand(c context.Context, bucket, key string) (*delivery.BatchResult, error) {
	if bucket == "" {
		return nil, ErrBucketRequired
	}
	if key == "" {
		return nil, ErrKeyRequired
	}
	c = withCorrelation(c)

	ref := notification.ObjectRef{Bucket: bucket, Key: key, EventName: EventNameManual}
	if meta, err := ctx.Store.HeadObject(c, bucket, key); err == nil {
		ref.Size = meta.Size
		ref.ETag = meta.ETag
		ref.EventTime = meta.LastModified
	}

	return ctx.Coordinator.Process(c, []notification.ObjectRef{ref})
}

// ReplayCommand reads an S3 event, or an SQS event wrapping S3 events, from
// path and renames every created object it names. A path of "-" reads
// stdin.
func (ctx *CommandContext) ReplayCommand(c context.Context, path string) (*delivery.BatchResult, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}

	refs, err := refsFromEvent(data)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, ErrNoObjects
	}

	return ctx.Coordinator.Process(withCorrelation(c), refs)
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path) // #nosec G304 -- User-provided path for CLI file operations, intended behavior
}

// refsFromEvent accepts a direct S3 event first and falls back to an SQS
// event whose message bodies are S3 events.
func refsFromEvent(data []byte) ([]notification.ObjectRef, error) {
	ev, err := notification.ParseS3Event(data)
	if err != nil {
		return nil, err
	}
	if refs := notification.FromS3Event(ev); len(refs) > 0 {
		return refs, nil
	}

	var sqsEvent events.SQSEvent
	if err := json.Unmarshal(data, &sqsEvent); err != nil {
		return nil, fmt.Errorf("%w: %w", notification.ErrMalformedEvent, err)
	}
	var refs []notification.ObjectRef
	for _, msg := range sqsEvent.Records {
		if msg.Body == "" {
			continue
		}
		msgRefs, err := notification.FromSQSMessage(msg)
		if err != nil {
			return nil, err
		}
		refs = append(refs, msgRefs...)
	}
	return refs, nil
}

// BackfillCommand re-drives leftover source objects. The destination and
// dead-letter prefixes are always excluded.
func (ctx *CommandContext) BackfillCommand(c context.Context, cfg backfill.Config) (*backfill.Report, error) {
	if cfg.MinAge == 0 {
		cfg.MinAge = ctx.Config.MinAge
	}
	cfg.Exclude = append(cfg.Exclude, ctx.Namer.Prefix())
	if ctx.Config.DeadLetterPrefix != "" {
		cfg.Exclude = append(cfg.Exclude, ctx.Config.DeadLetterPrefix)
	}

	b, err := backfill.New(ctx.Store, ctx.Coordinator, ctx.Logger)
	if err != nil {
		return nil, err
	}
	return b.Run(withCorrelation(c), cfg)
}

// TriggerHandler returns the Lambda entry points over the coordinator.
func (ctx *CommandContext) TriggerHandler() (*trigger.Handler, error) {
	return trigger.New(ctx.Coordinator, ctx.Coordinator.Sink(), ctx.Logger)
}

// WebhookServer builds the HTTP notification receiver.
func (ctx *CommandContext) WebhookServer() (*webhook.Server, error) {
	serverCfg := webhook.DefaultServerConfig()
	serverCfg.Addr = ctx.Config.Listen
	serverCfg.Logger = ctx.Logger
	serverCfg.AuditLogger = ctx.Audit
	if ctx.Config.MaxBodyBytes > 0 {
		serverCfg.MaxRequestSize = ctx.Config.MaxBodyBytes
	}
	if ctx.Config.AuthToken != "" {
		serverCfg.Authenticator = adapters.NewStaticTokenAuthenticator(ctx.Config.AuthToken)
	}
	return webhook.NewServer(ctx.Coordinator, serverCfg)
}

// ShutdownTimeout bounds how long serve waits for in-flight batches.
const ShutdownTimeout = 30 * time.Second
