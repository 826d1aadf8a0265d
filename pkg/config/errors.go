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

package config

import "errors"

var (
	// ErrUnsupportedBackend is returned when an unsupported backend is specified.
	ErrUnsupportedBackend = errors.New("unsupported backend")

	// ErrInvalidConcurrency is returned when concurrency is below one.
	ErrInvalidConcurrency = errors.New("concurrency must be at least 1")

	// ErrInvalidBudgetMargin is returned for a negative budget margin.
	ErrInvalidBudgetMargin = errors.New("budget-margin cannot be negative")

	// ErrInvalidRateLimit is returned for a negative rate limit or burst.
	ErrInvalidRateLimit = errors.New("rate-limit and rate-burst cannot be negative")

	// ErrDestinationPrefixRequired is returned when destination-prefix is empty.
	ErrDestinationPrefixRequired = errors.New("destination-prefix is required")

	// ErrPrefixOverlap is returned when the destination and dead-letter
	// prefixes contain one another.
	ErrPrefixOverlap = errors.New("destination-prefix and dead-letter-prefix overlap")

	// ErrEndpointRequired is returned when the minio backend has no endpoint.
	ErrEndpointRequired = errors.New("endpoint is required for the minio backend")
)
