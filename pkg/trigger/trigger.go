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

// Package trigger adapts Lambda invocations to the delivery coordinator.
package trigger

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/adapters"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/delivery"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/notification"
)

// ErrProcessorRequired is returned by New without a processor.
var ErrProcessorRequired = errors.New("trigger: processor is required")

// Processor renames a batch of objects. *delivery.Coordinator implements it.
type Processor interface {
	Process(ctx context.Context, refs []notification.ObjectRef) (*delivery.BatchResult, error)
}

// Handler holds the Lambda entry points.
type Handler struct {
	processor Processor
	sink      delivery.DeadLetterSink
	logger    adapters.Logger
}

// New creates a Handler. A nil sink logs malformed messages.
func New(processor Processor, sink delivery.DeadLetterSink, logger adapters.Logger) (*Handler, error) {
	if processor == nil {
		return nil, ErrProcessorRequired
	}
	if logger == nil {
		logger = adapters.NewNoOpLogger()
	}
	if sink == nil {
		sink = delivery.NewLogDeadLetterSink(logger)
	}
	return &Handler{processor: processor, sink: sink, logger: logger}, nil
}

// withCorrelation tags ctx with the Lambda request id, or a new UUID when
// running outside Lambda.
func withCorrelation(ctx context.Context) context.Context {
	if adapters.CorrelationID(ctx) != "" {
		return ctx
	}
	id := ""
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		id = lc.AwsRequestID
	}
	if id == "" {
		id = uuid.NewString()
	}
	return adapters.WithCorrelationID(ctx, id)
}

// HandleS3 processes an S3 event delivered directly to the function. A
// non-nil error makes Lambda retry the whole event.
func (h *Handler) HandleS3(ctx context.Context, ev events.S3Event) error {
	ctx = withCorrelation(ctx)

	refs := notification.FromS3Event(ev)
	if ignored := len(ev.Records) - len(refs); ignored > 0 {
		h.logger.Debug(ctx, "ignoring non-creation records",
			adapters.Field{Key: "ignored", Value: ignored})
	}
	if len(refs) == 0 {
		return nil
	}

	_, err := h.processor.Process(ctx, refs)
	return err
}

// HandleSQS processes S3 events queued through SQS and reports partial
// batch failures. Only messages with an object that must be retried are
// returned; malformed messages are dead-lettered.
func (h *Handler) HandleSQS(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	ctx = withCorrelation(ctx)

	var (
		resp   events.SQSEventResponse
		failed = make(map[string]bool)
		refs   []notification.ObjectRef
		owners []string
	)

	fail := func(messageID string) {
		if !failed[messageID] {
			failed[messageID] = true
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: messageID})
		}
	}

	for _, msg := range ev.Records {
		msgRefs, err := notification.FromSQSMessage(msg)
		if err != nil {
			letter := delivery.DeadLetter{
				MessageID:     msg.MessageId,
				Reason:        notification.ErrMalformedEvent.Error(),
				Error:         err.Error(),
				Body:          msg.Body,
				CorrelationID: adapters.CorrelationID(ctx),
				ReceivedAt:    time.Now().UTC(),
			}
			if sinkErr := h.sink.Send(ctx, letter); sinkErr != nil {
				h.logger.Error(ctx, "dead letter failed",
					adapters.Field{Key: "message_id", Value: msg.MessageId},
					adapters.Err(sinkErr))
				fail(msg.MessageId)
			}
			continue
		}
		for _, ref := range msgRefs {
			refs = append(refs, ref)
			owners = append(owners, msg.MessageId)
		}
	}

	if len(refs) > 0 {
		result, err := h.processor.Process(ctx, refs)
		if result == nil {
			// Without per-object results every message carrying work is retried.
			for _, id := range owners {
				fail(id)
			}
			return resp, nil
		}
		if err != nil {
			for i, id := range owners {
				if result.NeedsRetry(i) {
					fail(id)
				}
			}
		}
	}

	if len(resp.BatchItemFailures) > 0 {
		h.logger.Warn(ctx, "reporting partial batch failure",
			adapters.Field{Key: "messages", Value: len(ev.Records)},
			adapters.Field{Key: "failed_messages", Value: len(resp.BatchItemFailures)})
	}
	return resp, nil
}
