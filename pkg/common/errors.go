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

import "errors"

var (
	// Configuration errors

	// ErrNotConfigured is returned when a store is used before Configure.
	ErrNotConfigured = errors.New("not configured")

	// ErrBucketNotSet is returned when the required bucket is not set.
	ErrBucketNotSet = errors.New("bucket not set")

	// ErrRegionNotSet is returned when the required region is not set.
	ErrRegionNotSet = errors.New("region not set")

	// ErrEndpointNotSet is returned when the required endpoint is not set.
	ErrEndpointNotSet = errors.New("endpoint not set")

	// ErrAccessKeyNotSet is returned when the required access key is not set.
	ErrAccessKeyNotSet = errors.New("accessKey not set")

	// ErrSecretKeyNotSet is returned when the required secret key is not set.
	ErrSecretKeyNotSet = errors.New("secretKey not set")

	// Object store operation errors

	// ErrStoreRequired is returned when an object store is required but not provided.
	ErrStoreRequired = errors.New("object store is required")

	// ErrKeyNotFound is returned when a key is not found in a bucket.
	// Backends translate their native not-found errors to this value.
	ErrKeyNotFound = errors.New("key not found")

	// ErrBucketNotFound is returned when a bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrInvalidMetadataDirective is returned for an unknown copy metadata directive.
	ErrInvalidMetadataDirective = errors.New("invalid metadata directive")

	// ErrCopyInputNil is returned when CopyObject is called without input.
	ErrCopyInputNil = errors.New("copy input cannot be nil")
)

// IsNotFound reports whether err means the object does not exist. A missing
// bucket is a configuration problem and is not reported as not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}
