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

package rename

import (
	"errors"
	"fmt"
)

var (
	// ErrCopyFailed means the destination write could not be confirmed.
	// The source is untouched.
	ErrCopyFailed = errors.New("copy failed")

	// ErrDeleteFailed means the destination exists but the source could
	// not be removed.
	ErrDeleteFailed = errors.New("delete failed")

	// ErrDecodeFailed means the notification carried a malformed key.
	// Retrying cannot fix it.
	ErrDecodeFailed = errors.New("decode failed")

	// ErrDestinationConflict is returned when the destination key already
	// holds an object copied from a different source.
	ErrDestinationConflict = errors.New("destination holds another source")

	// ErrStoreRequired is returned by New without an object store.
	ErrStoreRequired = errors.New("rename: object store is required")

	// ErrNamerRequired is returned by New without a naming policy.
	ErrNamerRequired = errors.New("rename: namer is required")
)

// Op names the step that failed.
type Op string

const (
	OpDecode Op = "decode"
	OpCopy   Op = "copy"
	OpDelete Op = "delete"
)

// Error describes a failed rename step for a single source object.
type Error struct {
	Op             Op
	Bucket         string
	Key            string
	DestinationKey string
	Err            error
}

func (e *Error) sentinel() error {
	switch e.Op {
	case OpDecode:
		return ErrDecodeFailed
	case OpDelete:
		return ErrDeleteFailed
	default:
		return ErrCopyFailed
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.DestinationKey != "" {
		return fmt.Sprintf("%s: %s/%s -> %s: %v", e.sentinel(), e.Bucket, e.Key, e.DestinationKey, e.Err)
	}
	return fmt.Sprintf("%s: %s/%s: %v", e.sentinel(), e.Bucket, e.Key, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the failed step, so
// errors.Is(err, ErrDeleteFailed) works on a delete failure.
func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

// IsRetryable reports whether redelivering the notification can succeed.
// Decode failures are permanent; everything else, including errors this
// package does not classify, is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrDecodeFailed)
}
