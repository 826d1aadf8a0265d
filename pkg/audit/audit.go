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


// Package audit records an audit trail of object mutations made by the
// rename pipeline and of notification requests received over HTTP.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jtp-saini-harmit/centralised-logging/pkg/adapters"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/rename"
)

// EventType represents the type of audit event
type EventType string

const (
	// EventAuthFailure indicates a rejected notification request
	EventAuthFailure EventType = "AUTH_FAILURE"

	// EventNotificationReceived indicates a notification request was handled
	EventNotificationReceived EventType = "NOTIFICATION_RECEIVED"

	// EventObjectRenamed indicates a source was copied and removed
	EventObjectRenamed EventType = "OBJECT_RENAMED"

	// EventObjectAlreadyRenamed indicates a redelivery found nothing to do
	EventObjectAlreadyRenamed EventType = "OBJECT_ALREADY_RENAMED"

	// EventObjectSkipped indicates a pipeline product was not renamed
	EventObjectSkipped EventType = "OBJECT_SKIPPED"

	// EventRenameFailed indicates the object is left for redelivery
	EventRenameFailed EventType = "RENAME_FAILED"
)

// Result represents the outcome of an audited operation
type Result string

const (
	// ResultSuccess indicates the operation succeeded
	ResultSuccess Result = "SUCCESS"

	// ResultFailure indicates the operation failed
	ResultFailure Result = "FAILURE"
)

// AuditEvent represents a single audit log entry
type AuditEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType EventType `json:"event_type"`

	// Principal is the authenticated caller, empty for Lambda triggers
	Principal string `json:"principal,omitempty"`

	Bucket            string `json:"bucket,omitempty"`
	SourceKey         string `json:"source_key,omitempty"`
	DestinationBucket string `json:"destination_bucket,omitempty"`
	DestinationKey    string `json:"destination_key,omitempty"`

	// Action describes what was attempted
	Action string `json:"action"`

	Result       Result `json:"result"`
	ErrorMessage string `json:"error_message,omitempty"`

	IPAddress     string `json:"ip_address,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	StatusCode    int    `json:"status_code,omitempty"`

	BytesTransferred int64         `json:"bytes_transferred,omitempty"`
	Duration         time.Duration `json:"duration,omitempty"`

	// Metadata contains additional event-specific data
	Metadata map[string]any `json:"metadata,omitempty"`
}

// AuditLogger defines the interface for audit logging
type AuditLogger interface {
	// LogEvent logs a generic audit event
	LogEvent(ctx context.Context, event *AuditEvent) error

	// LogAuthFailure logs a rejected request
	LogAuthFailure(ctx context.Context, ipAddress, reason string) error

	// LogOutcome logs the terminal state of one rename
	LogOutcome(ctx context.Context, out rename.Outcome) error
}

// OutputFormat specifies the format for audit log output
type OutputFormat string

const (
	// FormatJSON outputs audit logs in JSON format
	FormatJSON OutputFormat = "json"

	// FormatText outputs audit logs in human-readable text format
	FormatText OutputFormat = "text"
)

// Config holds configuration for the audit logger
type Config struct {
	// Enabled determines if audit logging is active
	Enabled bool

	// Format specifies the output format (JSON or text)
	Format OutputFormat

	// Output specifies where to write logs (defaults to stdout)
	Output io.Writer

	// IncludeMetadata determines if extra metadata should be logged
	IncludeMetadata bool
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		Format:          FormatJSON,
		Output:          os.Stdout,
		IncludeMetadata: true,
	}
}

// DefaultAuditLogger implements AuditLogger using slog
type DefaultAuditLogger struct {
	config *Config
	logger *slog.Logger
}

// NewDefaultAuditLogger creates a new audit logger with default configuration
func NewDefaultAuditLogger() AuditLogger {
	return NewAuditLogger(DefaultConfig())
}

// NewAuditLogger creates a new audit logger with the specified configuration
func NewAuditLogger(config *Config) AuditLogger {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Output == nil {
		config.Output = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var handler slog.Handler
	if config.Format == FormatText {
		handler = slog.NewTextHandler(config.Output, opts)
	} else {
		handler = slog.NewJSONHandler(config.Output, opts)
	}

	return &DefaultAuditLogger{
		config: config,
		logger: slog.New(handler),
	}
}

// LogEvent logs a generic audit event
func (a *DefaultAuditLogger) LogEvent(ctx context.Context, event *AuditEvent) error {
	if !a.config.Enabled || event == nil {
		return nil
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.CorrelationID == "" {
		event.CorrelationID = adapters.CorrelationID(ctx)
	}

	attrs := []slog.Attr{
		slog.Time("timestamp", event.Timestamp),
		slog.String("event_type", string(event.EventType)),
		slog.String("action", event.Action),
		slog.String("result", string(event.Result)),
	}

	optional := []struct{ key, value string }{
		{"principal", event.Principal},
		{"bucket", event.Bucket},
		{"source_key", event.SourceKey},
		{"destination_bucket", event.DestinationBucket},
		{"destination_key", event.DestinationKey},
		{"error", event.ErrorMessage},
		{"ip_address", event.IPAddress},
		{adapters.CorrelationField, event.CorrelationID},
	}
	for _, f := range optional {
		if f.value != "" {
			attrs = append(attrs, slog.String(f.key, f.value))
		}
	}
	if event.StatusCode > 0 {
		attrs = append(attrs, slog.Int("status_code", event.StatusCode))
	}
	if event.BytesTransferred > 0 {
		attrs = append(attrs, slog.Int64("bytes_transferred", event.BytesTransferred))
	}
	if event.Duration > 0 {
		attrs = append(attrs, slog.Duration("duration", event.Duration))
	}
	if a.config.IncludeMetadata && len(event.Metadata) > 0 {
		metadataJSON, _ := json.Marshal(event.Metadata) //nolint:errcheck // marshaling simple map types is safe
		attrs = append(attrs, slog.String("metadata", string(metadataJSON)))
	}

	a.logger.LogAttrs(ctx, slog.LevelInfo, "Audit event: "+event.Action, attrs...)
	return nil
}

// LogAuthFailure logs a rejected request
func (a *DefaultAuditLogger) LogAuthFailure(ctx context.Context, ipAddress, reason string) error {
	return a.LogEvent(ctx, &AuditEvent{
		EventType:    EventAuthFailure,
		Action:       "authenticate",
		Result:       ResultFailure,
		ErrorMessage: reason,
		IPAddress:    ipAddress,
	})
}

// LogOutcome logs the terminal state of one rename
func (a *DefaultAuditLogger) LogOutcome(ctx context.Context, out rename.Outcome) error {
	event := &AuditEvent{
		Bucket:            out.Bucket,
		SourceKey:         out.SourceKey,
		DestinationBucket: out.DestinationBucket,
		DestinationKey:    out.DestinationKey,
		Action:            "rename_object",
		Result:            ResultSuccess,
		BytesTransferred:  out.Bytes,
		Metadata: map[string]any{
			"copied":  out.Copied,
			"deleted": out.Deleted,
		},
	}

	switch out.Status {
	case rename.StatusRenamed:
		event.EventType = EventObjectRenamed
	case rename.StatusAlreadyRenamed:
		event.EventType = EventObjectAlreadyRenamed
	case rename.StatusSkipped:
		event.EventType = EventObjectSkipped
	default:
		event.EventType = EventRenameFailed
		event.Result = ResultFailure
	}
	if out.Err != nil {
		event.Result = ResultFailure
		event.ErrorMessage = out.Err.Error()
	}

	return a.LogEvent(ctx, event)
}

// NoOpAuditLogger is an audit logger that discards all events
type NoOpAuditLogger struct{}

// NewNoOpAuditLogger creates a new no-op audit logger
func NewNoOpAuditLogger() AuditLogger {
	return &NoOpAuditLogger{}
}

func (n *NoOpAuditLogger) LogEvent(ctx context.Context, event *AuditEvent) error {
	return nil
}

func (n *NoOpAuditLogger) LogAuthFailure(ctx context.Context, ipAddress, reason string) error {
	return nil
}

func (n *NoOpAuditLogger) LogOutcome(ctx context.Context, out rename.Outcome) error {
	return nil
}
