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
	"fmt"
	"strconv"
	"strings"

	"github.com/jtp-saini-harmit/centralised-logging/pkg/config"
)

// setting is one displayed configuration row.
type setting struct {
	Key   string
	Value string
}

// settings lists the non-empty configuration values in display order with
// credentials masked.
func settings(cfg *config.Config) []setting {
	rows := []setting{
		{config.KeyBackend, cfg.Backend},
		{config.KeyRegion, cfg.Region},
		{config.KeyEndpoint, cfg.Endpoint},
		{config.KeyAccessKey, maskSecret(cfg.AccessKey)},
		{config.KeySecretKey, maskSecret(cfg.SecretKey)},
		{config.KeySessionToken, maskSecret(cfg.SessionToken)},
		{config.KeyRoleARN, cfg.RoleARN},
		{config.KeyExternalID, maskSecret(cfg.ExternalID)},
		{config.KeyTargetBucket, cfg.TargetBucket},
		{config.KeyDestinationPrefix, cfg.DestinationPrefix},
		{config.KeyDestinationSuffix, cfg.DestinationSuffix},
		{config.KeyNamingPolicy, cfg.NamingPolicy},
		{config.KeyContentType, cfg.ContentType},
		{config.KeyDestinationACL, cfg.DestinationACL},
		{config.KeyConcurrency, strconv.Itoa(cfg.Concurrency)},
		{config.KeyBudgetMargin, cfg.BudgetMargin.String()},
		{config.KeyDeadLetterBucket, cfg.DeadLetterBucket},
		{config.KeyDeadLetterPrefix, cfg.DeadLetterPrefix},
		{config.KeyLogLevel, cfg.LogLevel},
		{config.KeyListen, cfg.Listen},
		{config.KeyAuthToken, maskSecret(cfg.AuthToken)},
	}
	if cfg.RateLimit > 0 {
		rows = append(rows,
			setting{config.KeyRateLimit, strconv.FormatFloat(cfg.RateLimit, 'f', -1, 64)},
			setting{config.KeyRateBurst, strconv.Itoa(cfg.RateBurst)},
		)
	}
	if cfg.Audit {
		rows = append(rows, setting{config.KeyAudit, "true"})
	}
	if cfg.UsePathStyle {
		rows = append(rows, setting{config.KeyUsePathStyle, "true"})
	}

	out := rows[:0]
	for _, row := range rows {
		if row.Value != "" {
			out = append(out, row)
		}
	}
	return out
}

// DisplayConfig formats the effective configuration.
func DisplayConfig(cfg *config.Config, format OutputFormat) string {
	rows := settings(cfg)
	switch format {
	case FormatJSON:
		m := make(map[string]string, len(rows))
		for _, row := range rows {
			m[row.Key] = row.Value
		}
		return formatJSON(m)
	case FormatTable:
		var b strings.Builder
		b.WriteString("┌────────────────────┬────────────────────────────────────────┐\n")
		b.WriteString("│ Setting            │ Value                                  │\n")
		b.WriteString("├────────────────────┼────────────────────────────────────────┤\n")
		for _, row := range rows {
			fmt.Fprintf(&b, "│ %-18s │ %-38s │\n", row.Key, truncate(row.Value, 38))
		}
		b.WriteString("└────────────────────┴────────────────────────────────────────┘\n")
		return b.String()
	default:
		var b strings.Builder
		for _, row := range rows {
			fmt.Fprintf(&b, "%s: %s\n", row.Key, row.Value)
		}
		return b.String()
	}
}

// maskSecret masks sensitive information, showing only first 4 characters.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) < 5 {
		return "****"
	}
	return s[:4] + "****"
}
