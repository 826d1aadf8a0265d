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

package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/adapters"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/common"
)

// DefaultDeadLetterPrefix is where StoreDeadLetterSink writes records.
const DefaultDeadLetterPrefix = "dead-letter/"

// DeadLetter is a notification that cannot succeed on redelivery.
type DeadLetter struct {
	ID            string    `json:"id"`
	Bucket        string    `json:"bucket,omitempty"`
	Key           string    `json:"key,omitempty"`
	MessageID     string    `json:"message_id,omitempty"`
	Reason        string    `json:"reason"`
	Error         string    `json:"error"`
	Body          string    `json:"body,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	ReceivedAt    time.Time `json:"received_at"`
}

// DeadLetterSink records dead letters for operator attention.
type DeadLetterSink interface {
	Send(ctx context.Context, letter DeadLetter) error
}

// LogDeadLetterSink writes dead letters to the structured log only.
type LogDeadLetterSink struct {
	logger adapters.Logger
}

// NewLogDeadLetterSink creates a log-only sink.
func NewLogDeadLetterSink(logger adapters.Logger) *LogDeadLetterSink {
	if logger == nil {
		logger = adapters.NewDefaultLogger()
	}
	return &LogDeadLetterSink{logger: logger}
}

// Send logs the dead letter at error level.
func (s *LogDeadLetterSink) Send(ctx context.Context, letter DeadLetter) error {
	s.logger.Error(ctx, "dead letter",
		adapters.Field{Key: "dead_letter_id", Value: letter.ID},
		adapters.Field{Key: "bucket", Value: letter.Bucket},
		adapters.Field{Key: "source_key", Value: letter.Key},
		adapters.Field{Key: "message_id", Value: letter.MessageID},
		adapters.Field{Key: "reason", Value: letter.Reason},
		adapters.Field{Key: "error", Value: letter.Error},
	)
	return nil
}

// StoreDeadLetterSink writes each dead letter as a JSON object.
type StoreDeadLetterSink struct {
	store  common.ObjectStore
	bucket string
	prefix string
	logger adapters.Logger
}

// NewStoreDeadLetterSink creates a sink writing to <prefix><id>.json in bucket.
func NewStoreDeadLetterSink(store common.ObjectStore, bucket, prefix string, logger adapters.Logger) (*StoreDeadLetterSink, error) {
	if store == nil {
		return nil, common.ErrStoreRequired
	}
	if bucket == "" {
		return nil, common.ErrBucketNotSet
	}
	if prefix == "" {
		prefix = DefaultDeadLetterPrefix
	}
	if logger == nil {
		logger = adapters.NewNoOpLogger()
	}
	return &StoreDeadLetterSink{store: store, bucket: bucket, prefix: prefix, logger: logger}, nil
}

// Key returns the object key for a dead letter id.
func (s *StoreDeadLetterSink) Key(id string) string {
	return s.prefix + id + ".json"
}

// Send stores the dead letter. An empty ID is replaced with a new UUID.
func (s *StoreDeadLetterSink) Send(ctx context.Context, letter DeadLetter) error {
	if letter.ID == "" {
		letter.ID = uuid.NewString()
	}
	if letter.ReceivedAt.IsZero() {
		letter.ReceivedAt = time.Now().UTC()
	}

	data, err := json.Marshal(letter)
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}

	key := s.Key(letter.ID)
	if err := s.store.PutObject(ctx, s.bucket, key, bytes.NewReader(data), &common.Metadata{
		ContentType: "application/json",
	}); err != nil {
		return fmt.Errorf("write dead letter %s/%s: %w", s.bucket, key, err)
	}

	s.logger.Warn(ctx, "dead letter stored",
		adapters.Field{Key: "dead_letter_bucket", Value: s.bucket},
		adapters.Field{Key: "dead_letter_key", Value: key},
		adapters.Field{Key: "source_key", Value: letter.Key},
		adapters.Field{Key: "reason", Value: letter.Reason},
	)
	return nil
}
