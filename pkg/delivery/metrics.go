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
	"errors"
	"sync/atomic"
	"time"

	"github.com/jtp-saini-harmit/centralised-logging/pkg/adapters"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/rename"
)

// Metrics counts per-invocation rename results. All fields use atomic
// operations and may be updated from any worker.
type Metrics struct {
	renamed         atomic.Int64
	alreadyRenamed  atomic.Int64
	skipped         atomic.Int64
	copyFailed      atomic.Int64
	deleteFailed    atomic.Int64
	decodeFailed    atomic.Int64
	budgetExhausted atomic.Int64
	deadLettered    atomic.Int64
	bytes           atomic.Int64
	duration        atomic.Int64 // nanoseconds
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Record counts one outcome.
func (m *Metrics) Record(out rename.Outcome) {
	switch out.Status {
	case rename.StatusRenamed:
		m.renamed.Add(1)
		m.bytes.Add(out.Bytes)
	case rename.StatusAlreadyRenamed:
		m.alreadyRenamed.Add(1)
	case rename.StatusSkipped:
		m.skipped.Add(1)
	}
	if out.Err == nil {
		return
	}
	switch {
	case errors.Is(out.Err, rename.ErrDecodeFailed):
		m.decodeFailed.Add(1)
	case errors.Is(out.Err, rename.ErrDeleteFailed):
		m.deleteFailed.Add(1)
	case errors.Is(out.Err, rename.ErrCopyFailed):
		m.copyFailed.Add(1)
	case errors.Is(out.Err, ErrBudgetExhausted):
		m.budgetExhausted.Add(1)
	}
}

// RecordDeadLetter counts one item handed to a dead-letter sink.
func (m *Metrics) RecordDeadLetter() {
	m.deadLettered.Add(1)
}

// RecordDuration stores the invocation duration.
func (m *Metrics) RecordDuration(d time.Duration) {
	m.duration.Store(d.Nanoseconds())
}

// Snapshot returns a point-in-time copy of the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Renamed:         m.renamed.Load(),
		AlreadyRenamed:  m.alreadyRenamed.Load(),
		Skipped:         m.skipped.Load(),
		CopyFailed:      m.copyFailed.Load(),
		DeleteFailed:    m.deleteFailed.Load(),
		DecodeFailed:    m.decodeFailed.Load(),
		BudgetExhausted: m.budgetExhausted.Load(),
		DeadLettered:    m.deadLettered.Load(),
		Bytes:           m.bytes.Load(),
		Duration:        time.Duration(m.duration.Load()),
	}
}

// MetricsSnapshot represents a point-in-time snapshot of batch metrics.
type MetricsSnapshot struct {
	Renamed         int64         `json:"renamed"`
	AlreadyRenamed  int64         `json:"already_renamed"`
	Skipped         int64         `json:"skipped"`
	CopyFailed      int64         `json:"copy_failed"`
	DeleteFailed    int64         `json:"delete_failed"`
	DecodeFailed    int64         `json:"decode_failed"`
	BudgetExhausted int64         `json:"budget_exhausted"`
	DeadLettered    int64         `json:"dead_lettered"`
	Bytes           int64         `json:"bytes"`
	Duration        time.Duration `json:"duration"`
}

// Fields renders the snapshot as log fields.
func (s MetricsSnapshot) Fields() []adapters.Field {
	return []adapters.Field{
		{Key: "renamed", Value: s.Renamed},
		{Key: "already_renamed", Value: s.AlreadyRenamed},
		{Key: "skipped", Value: s.Skipped},
		{Key: "copy_failed", Value: s.CopyFailed},
		{Key: "delete_failed", Value: s.DeleteFailed},
		{Key: "decode_failed", Value: s.DecodeFailed},
		{Key: "budget_exhausted", Value: s.BudgetExhausted},
		{Key: "dead_lettered", Value: s.DeadLettered},
		{Key: "bytes", Value: s.Bytes},
		{Key: "duration_ms", Value: s.Duration.Milliseconds()},
	}
}
