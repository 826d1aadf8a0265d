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

// Package notification turns object-creation notifications into object
// references for the rename pipeline. It understands S3 events delivered
// directly, S3 events wrapped in SQS messages, and the identical Records
// payload that S3-compatible stores post to webhook targets.
package notification

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
)

const (
	// ObjectCreatedPrefix matches every object-creation event name
	// (s3:ObjectCreated:Put, ObjectCreated:CompleteMultipartUpload, ...).
	ObjectCreatedPrefix = "ObjectCreated:"

	// TestEventName is sent once when a bucket notification is configured.
	TestEventName = "s3:TestEvent"
)

var (
	// ErrMalformedEvent is returned when a notification body cannot be parsed.
	ErrMalformedEvent = errors.New("malformed notification")

	// ErrMalformedKey is returned when an object key has invalid escaping.
	ErrMalformedKey = errors.New("malformed key encoding")
)

// ObjectRef identifies one delivered object.
type ObjectRef struct {
	Bucket string `json:"bucket"`

	// Key is the object key. When KeyEncoded is set it still carries the
	// notification's form-encoding and must go through DecodeKey.
	Key        string `json:"key"`
	KeyEncoded bool   `json:"key_encoded,omitempty"`

	Size      int64     `json:"size,omitempty"`
	ETag      string    `json:"etag,omitempty"`
	EventName string    `json:"event_name,omitempty"`
	EventTime time.Time `json:"event_time,omitzero"`
	Sequencer string    `json:"sequencer,omitempty"`
}

// String returns bucket/key for logs and error messages.
func (r ObjectRef) String() string {
	return r.Bucket + "/" + r.Key
}

// DecodedKey returns the usable object key.
func (r ObjectRef) DecodedKey() (string, error) {
	if !r.KeyEncoded {
		return r.Key, nil
	}
	return DecodeKey(r.Key)
}

// DecodeKey undoes the form-encoding S3 applies to keys in notifications:
// '+' stands for a space and other reserved bytes are percent-escaped.
// "a+b.gz" decodes to "a b.gz" and "a%2Bb.gz" to "a+b.gz".
func DecodeKey(raw string) (string, error) {
	key, err := url.QueryUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrMalformedKey, raw, err)
	}
	return key, nil
}

// IsObjectCreated reports whether eventName is an object-creation event.
// Both "ObjectCreated:Put" and "s3:ObjectCreated:Put" forms are accepted.
func IsObjectCreated(eventName string) bool {
	return strings.HasPrefix(strings.TrimPrefix(eventName, "s3:"), ObjectCreatedPrefix)
}

// FromRecord converts a single event record into an ObjectRef.
func FromRecord(rec events.S3EventRecord) ObjectRef {
	return ObjectRef{
		Bucket:     rec.S3.Bucket.Name,
		Key:        rec.S3.Object.Key,
		KeyEncoded: true,
		Size:       rec.S3.Object.Size,
		ETag:       rec.S3.Object.ETag,
		EventName:  rec.EventName,
		EventTime:  rec.EventTime,
		Sequencer:  rec.S3.Object.Sequencer,
	}
}

// FromS3Event returns a reference for every object-creation record in ev.
// Other records, such as ObjectRemoved events, are dropped.
func FromS3Event(ev events.S3Event) []ObjectRef {
	refs := make([]ObjectRef, 0, len(ev.Records))
	for _, rec := range ev.Records {
		if !IsObjectCreated(rec.EventName) {
			continue
		}
		refs = append(refs, FromRecord(rec))
	}
	return refs
}

// envelope is the superset of an S3 event and the one-off test event.
type envelope struct {
	Event   string                 `json:"Event"`
	Records []events.S3EventRecord `json:"Records"`
}

// ParseS3Event parses a JSON S3 event body. The configuration test event
// parses to an event with no records.
func ParseS3Event(body []byte) (events.S3Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return events.S3Event{}, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if env.Event == TestEventName {
		return events.S3Event{}, nil
	}
	if env.Records == nil {
		return events.S3Event{}, fmt.Errorf("%w: no Records", ErrMalformedEvent)
	}
	return events.S3Event{Records: env.Records}, nil
}

// FromSQSMessage extracts references from an SQS message whose body is an
// S3 event.
func FromSQSMessage(msg events.SQSMessage) ([]ObjectRef, error) {
	ev, err := ParseS3Event([]byte(msg.Body))
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", msg.MessageId, err)
	}
	return FromS3Event(ev), nil
}
