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

import "errors"

var (
	// ErrUnsupportedOutputFormat is returned when an unsupported output format is specified.
	ErrUnsupportedOutputFormat = errors.New("unsupported output format")

	// ErrBucketRequired is returned when a command needs a bucket and none was given.
	ErrBucketRequired = errors.New("bucket is required")

	// ErrKeyRequired is returned when a command needs an object key and none was given.
	ErrKeyRequired = errors.New("key is required")

	// ErrNoObjects is returned when an event file names no created objects.
	ErrNoObjects = errors.New("event contains no created objects")
)
