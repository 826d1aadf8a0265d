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

// Package rename moves one delivered log batch to its canonical key.
//
// A rename is an idempotent transition: copy the source to the destination
// with replaced metadata, and only after the copy is acknowledged delete the
// source. A missing source on copy means an earlier delivery already did the
// work. Every failure leaves the source in place so that redelivery of the
// notification can finish the job.
package rename

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jtp-saini-harmit/centralised-logging/pkg/adapters"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/common"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/naming"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/notification"
)

// Metadata keys written on every canonical object.
const (
	MetaSourceBucket = "source-bucket"
	MetaSourceKey    = "source-key"
	MetaSourceETag   = "source-etag"
)

// DefaultContentType is applied to canonical objects.
const DefaultContentType = "application/gzip"

// Config holds the worker settings.
type Config struct {
	// TargetBucket receives canonical objects. Empty means the bucket the
	// notification came from.
	TargetBucket string

	// ContentType for canonical objects. Defaults to DefaultContentType.
	ContentType string

	// ACL is an optional canned ACL, e.g. "bucket-owner-full-control".
	ACL string

	// DeadLetterPrefix is never renamed, whichever bucket receives canonical
	// objects.
	DeadLetterPrefix string

	// Clock supplies the observation time under the wallclock policy and
	// when a notification carries no event time. Defaults to time.Now.
	Clock func() time.Time
}

// Worker renames single objects. It holds no per-object state and is safe
// for concurrent use.
type Worker struct {
	store  common.ObjectStore
	namer  *naming.Namer
	cfg    Config
	logger adapters.Logger
}

// New creates a Worker.
func New(store common.ObjectStore, namer *naming.Namer, cfg Config, logger adapters.Logger) (*Worker, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if namer == nil {
		return nil, ErrNamerRequired
	}
	if cfg.ContentType == "" {
		cfg.ContentType = DefaultContentType
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if logger == nil {
		logger = adapters.NewNoOpLogger()
	}
	return &Worker{store: store, namer: namer, cfg: cfg, logger: logger}, nil
}

// Handle renames the object referenced by ref. It never panics on store
// errors; failures are reported in Outcome.Err as an *Error.
func (w *Worker) Handle(ctx context.Context, ref notification.ObjectRef) Outcome {
	out := Outcome{Bucket: ref.Bucket, SourceKey: ref.Key, Bytes: ref.Size}

	key, err := ref.DecodedKey()
	if err != nil {
		return w.fail(ctx, out, OpDecode, err)
	}
	out.SourceKey = key

	destBucket := w.cfg.TargetBucket
	if destBucket == "" {
		destBucket = ref.Bucket
	}
	out.DestinationBucket = destBucket

	if w.isOwnOutput(key, ref.Bucket == destBucket) {
		out.Status = StatusSkipped
		w.logger.Debug(ctx, "skipping object under managed prefix",
			adapters.Field{Key: "bucket", Value: ref.Bucket},
			adapters.Field{Key: "source_key", Value: key},
		)
		return out
	}

	observedAt := ref.EventTime
	if observedAt.IsZero() || w.namer.Policy() == naming.PolicyWallClock {
		observedAt = w.cfg.Clock()
	}
	src := naming.Source{Bucket: ref.Bucket, Key: key, ETag: ref.ETag}
	out.DestinationKey = w.namer.DestinationKey(src, observedAt)

	present, err := w.destinationPresent(ctx, ref.Bucket, key, destBucket, out.DestinationKey)
	if err != nil {
		return w.fail(ctx, out, OpCopy, err)
	}

	if present {
		out.Copied = true
		_, err = w.store.HeadObject(ctx, ref.Bucket, key)
		if common.IsNotFound(err) {
			out.Deleted = true
			out.Status = StatusAlreadyRenamed
			w.logger.Info(ctx, "already renamed", w.fields(out)...)
			return out
		}
		if err != nil {
			w.logger.Debug(ctx, "source head failed, deleting",
				append(w.fields(out), adapters.Err(err))...,
			)
		}
		w.logger.Info(ctx, "destination already holds this source", w.fields(out)...)
	} else {
		err = w.store.CopyObject(ctx, &common.CopyInput{
			SourceBucket:      ref.Bucket,
			SourceKey:         key,
			DestBucket:        destBucket,
			DestKey:           out.DestinationKey,
			MetadataDirective: common.MetadataReplace,
			Metadata:          w.destinationMetadata(ref, key),
			ACL:               w.cfg.ACL,
		})
		if common.IsNotFound(err) {
			out.Status = StatusAlreadyRenamed
			w.logger.Info(ctx, "source already gone, nothing to rename", w.fields(out)...)
			return out
		}
		if err != nil {
			return w.fail(ctx, out, OpCopy, err)
		}
		out.Copied = true
		w.logger.Info(ctx, "copied object", w.fields(out)...)
	}

	if err := w.store.DeleteObject(ctx, ref.Bucket, key); err != nil && !common.IsNotFound(err) {
		return w.fail(ctx, out, OpDelete, err)
	}
	out.Deleted = true
	out.Status = StatusRenamed
	w.logger.Info(ctx, "deleted source object", w.fields(out)...)
	return out
}

// isOwnOutput reports whether key was produced by this pipeline. Dead
// letters can share the source bucket with live batches, so that prefix is
// excluded for every destination bucket.
func (w *Worker) isOwnOutput(key string, sameBucket bool) bool {
	if w.cfg.DeadLetterPrefix != "" && strings.HasPrefix(key, w.cfg.DeadLetterPrefix) {
		return true
	}
	return sameBucket && strings.HasPrefix(key, w.namer.Prefix())
}

// destinationPresent checks whether an earlier delivery already copied this
// source. A destination written from another source is a conflict; copying
// over it would lose that object.
func (w *Worker) destinationPresent(ctx context.Context, srcBucket, srcKey, destBucket, destKey string) (bool, error) {
	meta, err := w.store.HeadObject(ctx, destBucket, destKey)
	if err != nil {
		if !common.IsNotFound(err) {
			w.logger.Debug(ctx, "destination head failed, copying",
				adapters.Field{Key: "destination_key", Value: destKey},
				adapters.Err(err),
			)
		}
		return false, nil
	}
	if meta.Custom[MetaSourceBucket] == srcBucket && meta.Custom[MetaSourceKey] == escapeMetadata(srcKey) {
		return true, nil
	}
	return false, fmt.Errorf("%w: %s/%s", ErrDestinationConflict, destBucket, destKey)
}

func (w *Worker) destinationMetadata(ref notification.ObjectRef, key string) *common.Metadata {
	custom := map[string]string{
		MetaSourceBucket: ref.Bucket,
		MetaSourceKey:    escapeMetadata(key),
	}
	if ref.ETag != "" {
		custom[MetaSourceETag] = strings.Trim(ref.ETag, `"`)
	}
	return &common.Metadata{
		ContentType: w.cfg.ContentType,
		Custom:      custom,
	}
}

func (w *Worker) fail(ctx context.Context, out Outcome, op Op, cause error) Outcome {
	out.Status = StatusFailed
	out.Err = &Error{
		Op:             op,
		Bucket:         out.Bucket,
		Key:            out.SourceKey,
		DestinationKey: out.DestinationKey,
		Err:            cause,
	}
	w.logger.Error(ctx, "rename failed",
		append(w.fields(out),
			adapters.Field{Key: "op", Value: string(op)},
			adapters.Err(cause),
		)...,
	)
	return out
}

func (w *Worker) fields(out Outcome) []adapters.Field {
	return []adapters.Field{
		{Key: "bucket", Value: out.Bucket},
		{Key: "source_key", Value: out.SourceKey},
		{Key: "destination_bucket", Value: out.DestinationBucket},
		{Key: "destination_key", Value: out.DestinationKey},
	}
}

// escapeMetadata keeps user metadata values within the ASCII range that
// object store headers accept.
func escapeMetadata(s string) string {
	return url.PathEscape(s)
}
