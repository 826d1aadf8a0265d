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

// Package backfill re-drives source objects that were never renamed, for
// example because every redelivery of their notification failed. It only
// runs the normal rename; nothing is deleted without first being copied.
package backfill

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jtp-saini-harmit/centralised-logging/pkg/adapters"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/common"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/delivery"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/notification"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/trigger"
)

// DefaultMinAge keeps backfill away from objects whose notification may
// still be in flight.
const DefaultMinAge = 15 * time.Minute

// EventName marks references produced by a backfill listing.
const EventName = "Backfill"

// ErrBucketRequired is returned when no bucket is configured.
var ErrBucketRequired = errors.New("backfill: bucket is required")

// Config selects the objects to re-drive.
type Config struct {
	Bucket string
	Prefix string

	// MinAge skips objects modified more recently. Zero selects DefaultMinAge;
	// a negative value disables the check.
	MinAge time.Duration

	// Exclude lists key prefixes never re-driven, normally the destination
	// and dead-letter prefixes.
	Exclude []string

	// PageSize bounds each listing page and therefore each batch.
	PageSize int

	// Limit stops after this many eligible objects. Zero means no limit.
	Limit int

	// DryRun lists eligible objects without renaming them.
	DryRun bool

	Now func() time.Time
}

// Report summarises a backfill run.
type Report struct {
	Listed    int                      `json:"listed"`
	Excluded  int                      `json:"excluded"`
	TooRecent int                      `json:"too_recent"`
	Eligible  int                      `json:"eligible"`
	Metrics   delivery.MetricsSnapshot `json:"metrics"`
	Eligibles []string                 `json:"eligible_keys,omitempty"`
}

// Backfiller lists a bucket and feeds eligible objects to a processor.
type Backfiller struct {
	store     common.ObjectStore
	processor trigger.Processor
	logger    adapters.Logger
}

// New creates a Backfiller.
func New(store common.ObjectStore, processor trigger.Processor, logger adapters.Logger) (*Backfiller, error) {
	if store == nil {
		return nil, common.ErrStoreRequired
	}
	if processor == nil {
		return nil, trigger.ErrProcessorRequired
	}
	if logger == nil {
		logger = adapters.NewNoOpLogger()
	}
	return &Backfiller{store: store, processor: processor, logger: logger}, nil
}

// Run lists cfg.Bucket under cfg.Prefix page by page and renames each
// page's eligible objects as one batch. Failing keys from every page are
// collected into a single *delivery.BatchError.
func (b *Backfiller) Run(ctx context.Context, cfg Config) (*Report, error) {
	if cfg.Bucket == "" {
		return nil, ErrBucketRequired
	}
	if cfg.MinAge == 0 {
		cfg.MinAge = DefaultMinAge
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cutoff := cfg.Now().Add(-cfg.MinAge)

	report := &Report{}
	batchErr := &delivery.BatchError{}
	token := ""

	for {
		page, err := b.store.ListObjects(ctx, cfg.Bucket, &common.ListOptions{
			Prefix:       cfg.Prefix,
			MaxResults:   cfg.PageSize,
			ContinueFrom: token,
		})
		if err != nil {
			return report, err
		}

		var refs []notification.ObjectRef
		for _, obj := range page.Objects {
			if cfg.Limit > 0 && report.Eligible >= cfg.Limit {
				break
			}
			report.Listed++
			if excluded(obj.Key, cfg.Exclude) {
				report.Excluded++
				continue
			}
			ref := toRef(cfg.Bucket, obj)
			if cfg.MinAge > 0 && ref.EventTime.After(cutoff) {
				report.TooRecent++
				continue
			}
			report.Eligible++
			refs = append(refs, ref)
		}

		if len(refs) > 0 {
			if cfg.DryRun {
				for _, ref := range refs {
					report.Eligibles = append(report.Eligibles, ref.Key)
				}
			} else if err := b.process(ctx, refs, report, batchErr); err != nil {
				return report, err
			}
		}

		if !page.Truncated || page.NextToken == "" || (cfg.Limit > 0 && report.Eligible >= cfg.Limit) {
			break
		}
		token = page.NextToken
	}

	b.logger.Info(ctx, "backfill finished",
		adapters.Field{Key: "bucket", Value: cfg.Bucket},
		adapters.Field{Key: "prefix", Value: cfg.Prefix},
		adapters.Field{Key: "listed", Value: report.Listed},
		adapters.Field{Key: "eligible", Value: report.Eligible},
		adapters.Field{Key: "dry_run", Value: cfg.DryRun},
	)

	if len(batchErr.Failures) > 0 {
		return report, batchErr
	}
	return report, nil
}

// process runs one page. Only errors other than a *delivery.BatchError
// abort the run.
func (b *Backfiller) process(ctx context.Context, refs []notification.ObjectRef, report *Report, batchErr *delivery.BatchError) error {
	result, err := b.processor.Process(ctx, refs)
	if result != nil {
		report.Metrics = addSnapshots(report.Metrics, result.Metrics)
	}
	batchErr.Total += len(refs)
	if err == nil {
		return nil
	}
	var be *delivery.BatchError
	if !errors.As(err, &be) {
		return err
	}
	batchErr.Failures = append(batchErr.Failures, be.Failures...)
	return nil
}

func toRef(bucket string, obj *common.ObjectInfo) notification.ObjectRef {
	ref := notification.ObjectRef{Bucket: bucket, Key: obj.Key, EventName: EventName}
	if obj.Metadata != nil {
		ref.Size = obj.Metadata.Size
		ref.ETag = obj.Metadata.ETag
		ref.EventTime = obj.Metadata.LastModified
	}
	return ref
}

func excluded(key string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func addSnapshots(a, b delivery.MetricsSnapshot) delivery.MetricsSnapshot {
	return delivery.MetricsSnapshot{
		Renamed:         a.Renamed + b.Renamed,
		AlreadyRenamed:  a.AlreadyRenamed + b.AlreadyRenamed,
		Skipped:         a.Skipped + b.Skipped,
		CopyFailed:      a.CopyFailed + b.CopyFailed,
		DeleteFailed:    a.DeleteFailed + b.DeleteFailed,
		DecodeFailed:    a.DecodeFailed + b.DecodeFailed,
		BudgetExhausted: a.BudgetExhausted + b.BudgetExhausted,
		DeadLettered:    a.DeadLettered + b.DeadLettered,
		Bytes:           a.Bytes + b.Bytes,
		Duration:        a.Duration + b.Duration,
	}
}
