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
	"time"
)

// MetadataDirective controls whether a copy inherits the source metadata.
type MetadataDirective string

const (
	// MetadataCopy keeps the source object's metadata on the destination.
	MetadataCopy MetadataDirective = "COPY"

	// MetadataReplace discards the source metadata and applies CopyInput.Metadata.
	MetadataReplace MetadataDirective = "REPLACE"
)

// Valid reports whether d is a known directive.
func (d MetadataDirective) Valid() bool {
	return d == MetadataCopy || d == MetadataReplace
}

// Metadata represents metadata associated with an object in storage.
type Metadata struct {
	// ContentType is the MIME type of the object (e.g., "application/gzip")
	ContentType string `json:"content_type,omitempty"`

	// ContentEncoding is the encoding applied to the object (e.g., "gzip")
	ContentEncoding string `json:"content_encoding,omitempty"`

	// Size is the size of the object in bytes
	Size int64 `json:"size"`

	// LastModified is the timestamp when the object was last modified
	LastModified time.Time `json:"last_modified"`

	// ETag is the entity tag for the object
	ETag string `json:"etag,omitempty"`

	// Custom is a map of user metadata key-value pairs
	Custom map[string]string `json:"custom,omitempty"`
}

// Clone returns a deep copy of the metadata.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	c := *m
	if m.Custom != nil {
		c.Custom = make(map[string]string, len(m.Custom))
		for k, v := range m.Custom {
			c.Custom[k] = v
		}
	}
	return &c
}

// ObjectInfo represents complete information about a stored object.
type ObjectInfo struct {
	// Key is the object's storage key/path
	Key string `json:"key"`

	// Metadata contains the object's metadata
	Metadata *Metadata `json:"metadata,omitempty"`
}

// CopyInput describes a server-side copy between two bucket/key locations.
type CopyInput struct {
	SourceBucket string
	SourceKey    string
	DestBucket   string
	DestKey      string

	// MetadataDirective defaults to MetadataCopy when empty.
	MetadataDirective MetadataDirective

	// Metadata is applied to the destination when the directive is REPLACE.
	Metadata *Metadata

	// ACL is an optional canned ACL for the destination, for example
	// "bucket-owner-full-control" when writing into another account's bucket.
	ACL string
}

// ListOptions specifies options for listing objects.
type ListOptions struct {
	// Prefix filters objects to those starting with this prefix
	Prefix string

	// MaxResults specifies the maximum number of results per page
	// 0 means use backend default
	MaxResults int

	// ContinueFrom is a pagination token from a previous ListResult
	ContinueFrom string
}

// ListResult contains one page of a list operation.
type ListResult struct {
	// Objects contains the list of objects matching the criteria
	Objects []*ObjectInfo

	// NextToken is the pagination token for the next page of results
	// Empty string means no more results available
	NextToken string

	// Truncated indicates whether more results are available
	Truncated bool
}
