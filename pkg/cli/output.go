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


// Package cli implements the logrelay commands and renders their results as
// text, JSON or boxed tables.
package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jtp-saini-harmit/centralised-logging/pkg/backfill"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/delivery"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/rename"
)

// OutputFormat defines the output format type.
type OutputFormat string

const (
	FormatText  OutputFormat = "text"
	FormatJSON  OutputFormat = "json"
	FormatTable OutputFormat = "table"
)

// ParseOutputFormat validates s. An empty string selects text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatTable:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedOutputFormat, s)
	}
}

// OperationResult holds the result of an operation.
type OperationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// FormatOperationResult formats an operation result in the specified format.
func FormatOperationResult(result *OperationResult, format OutputFormat) string {
	switch format {
	case FormatJSON:
		return formatJSON(result)
	case FormatTable:
		return formatResultTable(result)
	default:
		return formatResultText(result)
	}
}

// FormatError formats an error message in the specified format.
func FormatError(err error, format OutputFormat) string {
	result := &OperationResult{
		Success: false,
		Error:   err.Error(),
	}
	if keys := delivery.FailedKeys(err); len(keys) > 0 {
		result.Data = map[string]any{"failed_keys": keys}
	}
	return FormatOperationResult(result, format)
}

func formatResultText(result *OperationResult) string {
	if result.Success {
		if result.Message != "" {
			return result.Message + "\n"
		}
		return "Operation completed successfully\n"
	}
	return fmt.Sprintf("Error: %s\n", result.Error)
}

func formatResultTable(result *OperationResult) string {
	status, text := "SUCCESS", result.Message
	if !result.Success {
		status, text = "FAILED", result.Error
	}

	var b strings.Builder
	b.WriteString("┌────────────────────────────────────────────────────────┐\n")
	b.WriteString("│ Operation Result                                       │\n")
	b.WriteString("├────────────────────────────────────────────────────────┤\n")
	fmt.Fprintf(&b, "│ Status: %-47s │\n", status)
	if text != "" {
		for _, line := range wrapText(text, 54) {
			fmt.Fprintf(&b, "│ %-54s │\n", line)
		}
	}
	b.WriteString("└────────────────────────────────────────────────────────┘\n")
	return b.String()
}

func formatJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": \"failed to marshal JSON: %s\"}\n", err)
	}
	return string(data) + "\n"
}

// outcomeView is the printable form of rename.Outcome, which hides its error
// from encoding/json.
type outcomeView struct {
	rename.Outcome
	Error string `json:"error,omitempty"`
}

type batchView struct {
	Objects      int                      `json:"objects"`
	Outcomes     []outcomeView            `json:"outcomes"`
	Metrics      delivery.MetricsSnapshot `json:"metrics"`
	DeadLettered int                      `json:"dead_lettered"`
	FailedKeys   []string                 `json:"failed_keys,omitempty"`
}

func newBatchView(result *delivery.BatchResult, err error) batchView {
	v := batchView{FailedKeys: delivery.FailedKeys(err)}
	if result == nil {
		return v
	}
	v.Objects = len(result.Outcomes)
	v.Metrics = result.Metrics
	v.DeadLettered = result.DeadLettered
	v.Outcomes = make([]outcomeView, len(result.Outcomes))
	for i, out := range result.Outcomes {
		v.Outcomes[i] = outcomeView{Outcome: out}
		if out.Err != nil {
			v.Outcomes[i].Error = out.Err.Error()
		}
	}
	return v
}

// FormatBatchResult formats the per-object outcomes of a batch together
// with the error Process returned, if any.
func FormatBatchResult(result *delivery.BatchResult, err error, format OutputFormat) string {
	v := newBatchView(result, err)
	switch format {
	case FormatJSON:
		return formatJSON(v)
	case FormatTable:
		return formatBatchTable(v)
	default:
		return formatBatchText(v)
	}
}

func formatBatchText(v batchView) string {
	if v.Objects == 0 {
		return "No objects processed\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Processed %d object(s):\n\n", v.Objects)
	for _, out := range v.Outcomes {
		fmt.Fprintf(&b, "%s/%s\n", out.Bucket, out.SourceKey)
		fmt.Fprintf(&b, "  Status: %s\n", out.Status)
		if out.DestinationKey != "" {
			fmt.Fprintf(&b, "  Destination: %s/%s\n", out.DestinationBucket, out.DestinationKey)
		}
		if out.Bytes > 0 {
			fmt.Fprintf(&b, "  Size: %s\n", formatSize(out.Bytes))
		}
		if out.Error != "" {
			fmt.Fprintf(&b, "  Error: %s\n", out.Error)
		}
		b.WriteString("\n")
	}
	b.WriteString(formatMetricsLine(v.Metrics))
	if len(v.FailedKeys) > 0 {
		fmt.Fprintf(&b, "Retry required for: %s\n", strings.Join(v.FailedKeys, ", "))
	}
	return b.String()
}

func formatBatchTable(v batchView) string {
	if v.Objects == 0 {
		return "No objects processed\n"
	}

	var b strings.Builder
	b.WriteString("┌────────────────────────────────┬─────────────────┬────────────────────────────────────┐\n")
	b.WriteString("│ Source                         │ Status          │ Destination                        │\n")
	b.WriteString("├────────────────────────────────┼─────────────────┼────────────────────────────────────┤\n")
	for _, out := range v.Outcomes {
		fmt.Fprintf(&b, "│ %-30s │ %-15s │ %-34s │\n",
			truncate(out.SourceKey, 30), truncate(string(out.Status), 15), truncate(out.DestinationKey, 34))
	}
	b.WriteString("└────────────────────────────────┴─────────────────┴────────────────────────────────────┘\n")
	b.WriteString(formatMetricsLine(v.Metrics))
	if len(v.FailedKeys) > 0 {
		fmt.Fprintf(&b, "Retry required for: %s\n", strings.Join(v.FailedKeys, ", "))
	}
	return b.String()
}

func formatMetricsLine(m delivery.MetricsSnapshot) string {
	failed := m.CopyFailed + m.DeleteFailed + m.DecodeFailed + m.BudgetExhausted
	return fmt.Sprintf("Renamed: %d, Already renamed: %d, Skipped: %d, Failed: %d, Dead-lettered: %d, Bytes: %s, Duration: %s\n",
		m.Renamed, m.AlreadyRenamed, m.Skipped, failed, m.DeadLettered, formatSize(m.Bytes), m.Duration.Round(time.Millisecond))
}

type backfillView struct {
	*backfill.Report
	DryRun     bool     `json:"dry_run"`
	FailedKeys []string `json:"failed_keys,omitempty"`
}

// FormatBackfillReport formats a backfill report together with the error
// the run returned, if any.
func FormatBackfillReport(report *backfill.Report, dryRun bool, err error, format OutputFormat) string {
	if report == nil {
		report = &backfill.Report{}
	}
	v := backfillView{Report: report, DryRun: dryRun, FailedKeys: delivery.FailedKeys(err)}
	switch format {
	case FormatJSON:
		return formatJSON(v)
	case FormatTable:
		return formatBackfillTable(v)
	default:
		return formatBackfillText(v)
	}
}

func formatBackfillText(v backfillView) string {
	var b strings.Builder
	if v.DryRun {
		b.WriteString("Backfill (dry run):\n")
	} else {
		b.WriteString("Backfill:\n")
	}
	fmt.Fprintf(&b, "  Listed: %d\n", v.Listed)
	fmt.Fprintf(&b, "  Excluded: %d\n", v.Excluded)
	fmt.Fprintf(&b, "  Too recent: %d\n", v.TooRecent)
	fmt.Fprintf(&b, "  Eligible: %d\n", v.Eligible)
	if v.DryRun {
		for _, key := range v.Eligibles {
			fmt.Fprintf(&b, "    %s\n", key)
		}
	} else {
		b.WriteString("  " + formatMetricsLine(v.Metrics))
	}
	if len(v.FailedKeys) > 0 {
		fmt.Fprintf(&b, "  Retry required for: %s\n", strings.Join(v.FailedKeys, ", "))
	}
	return b.String()
}

func formatBackfillTable(v backfillView) string {
	rows := [][2]string{
		{"Listed", fmt.Sprint(v.Listed)},
		{"Excluded", fmt.Sprint(v.Excluded)},
		{"Too recent", fmt.Sprint(v.TooRecent)},
		{"Eligible", fmt.Sprint(v.Eligible)},
	}
	if !v.DryRun {
		rows = append(rows,
			[2]string{"Renamed", fmt.Sprint(v.Metrics.Renamed)},
			[2]string{"Already renamed", fmt.Sprint(v.Metrics.AlreadyRenamed)},
			[2]string{"Failed", fmt.Sprint(len(v.FailedKeys))},
		)
	}

	var b strings.Builder
	b.WriteString("┌──────────────────┬────────────────────────────────────────┐\n")
	b.WriteString("│ Backfill         │ Count                                  │\n")
	b.WriteString("├──────────────────┼────────────────────────────────────────┤\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "│ %-16s │ %-38s │\n", row[0], row[1])
	}
	b.WriteString("└──────────────────┴────────────────────────────────────────┘\n")
	return b.String()
}

// formatSize formats a byte size into a human-readable string.
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}

// truncate truncates a string to maxLen characters.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// wrapText wraps text to fit within maxWidth characters.
func wrapText(text string, maxWidth int) []string {
	if len(text) <= maxWidth {
		return []string{text}
	}

	var lines []string
	var current string
	for _, word := range strings.Fields(text) {
		for len(word) > maxWidth {
			if current != "" {
				lines = append(lines, current)
				current = ""
			}
			lines = append(lines, word[:maxWidth])
			word = word[maxWidth:]
		}
		switch {
		case current == "":
			current = word
		case len(current)+1+len(word) <= maxWidth:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
