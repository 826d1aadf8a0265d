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

// Package delivery processes batches of object-creation notifications.
//
// Each object in a batch is renamed independently on a bounded pool of
// workers. The batch fails, so that the invoker redelivers it, when any
// object hit a retryable failure; objects that succeeded stay renamed and a
// redelivery finds them already gone. Malformed keys are handed to a
// dead-letter sink instead of failing the batch forever.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jtp-saini-harmit/centralised-logging/pkg/adapters"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/audit"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/notification"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/rename"
)

const (
	// DefaultConcurrency is the number of objects renamed in parallel.
	DefaultConcurrency = 4

	// DefaultBudgetMargin is kept free before the invocation deadline.
	DefaultBudgetMargin = 500 * time.Millisecond
)

var (
	// ErrBudgetExhausted marks objects left unprocessed because the
	// invocation deadline was too close.
	ErrBudgetExhausted = errors.New("invocation budget exhausted")

	// ErrRenamerRequired is returned by New without a renamer.
	ErrRenamerRequired = errors.New("delivery: renamer is required")
)

// Renamer handles one object. *rename.Worker implements it.
type Renamer interface {
	Handle(ctx context.Context, ref notification.ObjectRef) rename.Outcome
}

// Config holds coordinator settings.
type Config struct {
	// Concurrency bounds parallel renames. Defaults to DefaultConcurrency.
	Concurrency int

	// BudgetMargin is reserved before the context deadline. No new object
	// is started inside the margin. Defaults to DefaultBudgetMargin.
	BudgetMargin time.Duration

	// Now defaults to time.Now.
	Now func() time.Time

	// Audit receives every outcome. Defaults to a no-op logger.
	Audit audit.AuditLogger
}

// Coordinator runs batches through a Renamer.
type Coordinator struct {
	renamer Renamer
	sink    DeadLetterSink
	cfg     Config
	logger  adapters.Logger
}

// New creates a Coordinator. A nil sink logs dead letters.
func New(renamer Renamer, sink DeadLetterSink, cfg Config, logger adapters.Logger) (*Coordinator, error) {
	if renamer == nil {
		return nil, ErrRenamerRequired
	}
	if logger == nil {
		logger = adapters.NewNoOpLogger()
	}
	if sink == nil {
		sink = NewLogDeadLetterSink(logger)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.BudgetMargin <= 0 {
		cfg.BudgetMargin = DefaultBudgetMargin
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.NewNoOpAuditLogger()
	}
	return &Coordinator{renamer: renamer, sink: sink, cfg: cfg, logger: logger}, nil
}

// Sink returns the dead-letter sink in use.
func (c *Coordinator) Sink() DeadLetterSink {
	return c.sink
}

// Process renames every referenced object. It always returns a result with
// one outcome per ref in input order, and a *BatchError when any object must
// be retried.
func (c *Coordinator) Process(ctx context.Context, refs []notification.ObjectRef) (*BatchResult, error) {
	start := c.cfg.Now()
	metrics := NewMetrics()
	result := &BatchResult{
		Outcomes: make([]rename.Outcome, len(refs)),
		retry:    make([]bool, len(refs)),
	}

	if len(refs) > 0 {
		c.run(ctx, refs, result.Outcomes)
	}

	var failures []Failure
	for i, out := range result.Outcomes {
		if out.Err != nil && errors.Is(out.Err, rename.ErrDecodeFailed) {
			if err := c.deadLetter(ctx, refs[i], out); err != nil {
				out.Err = fmt.Errorf("%w; dead letter: %w", out.Err, err)
				result.Outcomes[i] = out
				result.retry[i] = true
				failures = append(failures, Failure{Bucket: out.Bucket, Key: out.SourceKey, Err: out.Err})
			} else {
				metrics.RecordDeadLetter()
				result.DeadLettered++
			}
		} else if out.Err != nil && rename.IsRetryable(out.Err) {
			result.retry[i] = true
			failures = append(failures, Failure{Bucket: out.Bucket, Key: out.SourceKey, Err: out.Err})
		}
		metrics.Record(out)
		_ = c.cfg.Audit.LogOutcome(ctx, result.Outcomes[i]) // #nosec G104 -- audit errors must not fail the batch
	}

	metrics.RecordDuration(c.cfg.Now().Sub(start))
	result.Metrics = metrics.Snapshot()

	fields := append(result.Metrics.Fields(),
		adapters.Field{Key: "objects", Value: len(refs)},
		adapters.Field{Key: "failed", Value: len(failures)},
	)
	if len(failures) > 0 {
		c.logger.Error(ctx, "batch completed with failures", fields...)
		return result, &BatchError{Total: len(refs), Failures: failures}
	}
	c.logger.Info(ctx, "batch completed", fields...)
	return result, nil
}

// run fills outcomes using the worker pool. Slots the pool never reached are
// marked as retryable failures.
func (c *Coordinator) run(ctx context.Context, refs []notification.ObjectRef, outcomes []rename.Outcome) {
	workers := c.cfg.Concurrency
	if workers > len(refs) {
		workers = len(refs)
	}

	pool := NewWorkerPool(ctx, WorkerPoolConfig{
		WorkerCount: workers,
		QueueSize:   len(refs),
		Logger:      c.logger,
	})
	pool.Start(func(ctx context.Context, item WorkItem) WorkResult {
		if c.budgetExhausted(ctx) {
			return WorkResult{Index: item.Index, Outcome: unprocessed(item.Ref, ErrBudgetExhausted)}
		}
		return WorkResult{Index: item.Index, Outcome: c.renamer.Handle(ctx, item.Ref)}
	})

	for i, ref := range refs {
		if err := pool.Submit(WorkItem{Index: i, Ref: ref}); err != nil {
			break
		}
	}
	pool.Shutdown()

	done := make([]bool, len(refs))
	for res := range pool.Results() {
		outcomes[res.Index] = res.Outcome
		done[res.Index] = true
	}

	for i, ok := range done {
		if ok {
			continue
		}
		cause := ctx.Err()
		if cause == nil {
			cause = ErrBudgetExhausted
		}
		outcomes[i] = unprocessed(refs[i], cause)
	}
}

func (c *Coordinator) budgetExhausted(ctx context.Context) bool {
	deadline, ok := ctx.Deadline()
	if !ok {
		return false
	}
	return !c.cfg.Now().Add(c.cfg.BudgetMargin).Before(deadline)
}

func (c *Coordinator) deadLetter(ctx context.Context, ref notification.ObjectRef, out rename.Outcome) error {
	return c.sink.Send(ctx, DeadLetter{
		Bucket:        ref.Bucket,
		Key:           ref.Key,
		Reason:        rename.ErrDecodeFailed.Error(),
		Error:         out.Err.Error(),
		CorrelationID: adapters.CorrelationID(ctx),
		ReceivedAt:    c.cfg.Now().UTC(),
	})
}

func unprocessed(ref notification.ObjectRef, cause error) rename.Outcome {
	return rename.Outcome{
		Bucket:    ref.Bucket,
		SourceKey: ref.Key,
		Status:    rename.StatusFailed,
		Err:       fmt.Errorf("%s: %w", ref.String(), cause),
	}
}

// BatchResult is the per-object view of one Process call.
type BatchResult struct {
	Outcomes     []rename.Outcome `json:"outcomes"`
	Metrics      MetricsSnapshot  `json:"metrics"`
	DeadLettered int              `json:"dead_lettered"`

	retry []bool
}

// NeedsRetry reports whether the object at index i must be redelivered.
func (r *BatchResult) NeedsRetry(i int) bool {
	return i >= 0 && i < len(r.retry) && r.retry[i]
}

// Failure names one object that must be retried.
type Failure struct {
	Bucket string
	Key    string
	Err    error
}

// BatchError reports every object of a batch that must be retried.
type BatchError struct {
	Total    int
	Failures []Failure
}

// Error lists the failing source keys and causes.
func (e *BatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d objects failed", len(e.Failures), e.Total)
	for i, f := range e.Failures {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %v", f.Key, f.Err)
	}
	return b.String()
}

// Unwrap exposes every cause to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Keys returns the failing source keys.
func (e *BatchError) Keys() []string {
	keys := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		keys[i] = f.Key
	}
	return keys
}

// FailedKeys returns the failing keys for any error. It is empty when err
// is not a *BatchError.
func FailedKeys(err error) []string {
	var be *BatchError
	if errors.As(err, &be) {
		return be.Keys()
	}
	return nil
}
