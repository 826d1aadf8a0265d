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

package common

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MaxKeyLength is the maximum allowed length for object keys
	MaxKeyLength = 1024

	// MinBucketLength is the minimum allowed length for bucket names
	MinBucketLength = 3

	// MaxBucketLength is the maximum allowed length for bucket names
	MaxBucketLength = 63

	// MaxMetadataKeyLength is the maximum allowed length for metadata keys
	MaxMetadataKeyLength = 256

	// MaxMetadataValueLength is the maximum allowed length for metadata values
	MaxMetadataValueLength = 2048

	// MaxMetadataEntries is the maximum number of custom metadata entries
	MaxMetadataEntries = 100
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidateKey validates an object key against object store key rules.
// Returns error if the key:
// - Is empty
// - Exceeds maximum length
// - Contains null bytes
// - Is not valid UTF-8
//
// Object store keys are opaque, so slashes, spaces and dots are allowed.
func ValidateKey(key string) error {
	if key == "" {
		return &ValidationError{
			Field:   "key",
			Message: "key cannot be empty",
		}
	}

	if len(key) > MaxKeyLength {
		return &ValidationError{
			Field:   "key",
			Message: fmt.Sprintf("key length exceeds maximum of %d bytes", MaxKeyLength),
		}
	}

	if strings.IndexByte(key, '\x00') >= 0 {
		return &ValidationError{
			Field:   "key",
			Message: "key cannot contain null bytes",
		}
	}

	if !utf8.ValidString(key) {
		return &ValidationError{
			Field:   "key",
			Message: "key must be valid UTF-8",
		}
	}

	return nil
}

// ValidateBucket validates a bucket name using S3 naming rules:
// 3-63 characters of lowercase letters, digits, dots and hyphens,
// beginning and ending with a letter or digit.
func ValidateBucket(bucket string) error {
	n := len(bucket)
	if n < MinBucketLength || n > MaxBucketLength {
		return &ValidationError{
			Field:   "bucket",
			Message: fmt.Sprintf("bucket name must be between %d and %d characters", MinBucketLength, MaxBucketLength),
		}
	}

	for i := 0; i < n; i++ {
		c := bucket[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '.' || c == '-':
			if i == 0 || i == n-1 {
				return &ValidationError{
					Field:   "bucket",
					Message: "bucket name must begin and end with a letter or digit",
				}
			}
			if c == '.' && bucket[i-1] == '.' {
				return &ValidationError{
					Field:   "bucket",
					Message: `bucket name cannot contain ".."`,
				}
			}
		default:
			return &ValidationError{
				Field:   "bucket",
				Message: fmt.Sprintf("bucket name contains invalid character %q", c),
			}
		}
	}

	return nil
}

// ValidateMetadata validates metadata for security and size constraints
// Returns error if metadata:
// - Has too many entries
// - Has keys or values that are too long
// - Contains null bytes
// - Contains invalid UTF-8
func ValidateMetadata(metadata map[string]string) error {
	if metadata == nil {
		return nil
	}

	if len(metadata) > MaxMetadataEntries {
		return &ValidationError{
			Field:   "metadata",
			Message: fmt.Sprintf("metadata cannot have more than %d entries", MaxMetadataEntries),
		}
	}

	for key, value := range metadata {
		if key == "" {
			return &ValidationError{
				Field:   "metadata.key",
				Message: "metadata key cannot be empty",
			}
		}

		if len(key) > MaxMetadataKeyLength {
			return &ValidationError{
				Field:   "metadata.key",
				Message: fmt.Sprintf("metadata key '%s' exceeds maximum length of %d bytes", key, MaxMetadataKeyLength),
			}
		}

		if strings.ContainsRune(key, '\x00') {
			return &ValidationError{
				Field:   "metadata.key",
				Message: "metadata key cannot contain null bytes",
			}
		}

		if !utf8.ValidString(key) {
			return &ValidationError{
				Field:   "metadata.key",
				Message: "metadata key must be valid UTF-8",
			}
		}

		if len(value) > MaxMetadataValueLength {
			return &ValidationError{
				Field:   "metadata.value",
				Message: fmt.Sprintf("metadata value for key '%s' exceeds maximum length of %d bytes", key, MaxMetadataValueLength),
			}
		}

		if strings.ContainsRune(value, '\x00') {
			return &ValidationError{
				Field:   "metadata.value",
				Message: "metadata value cannot contain null bytes",
			}
		}

		if !utf8.ValidString(value) {
			return &ValidationError{
				Field:   "metadata.value",
				Message: "metadata value must be valid UTF-8",
			}
		}
	}

	return nil
}
