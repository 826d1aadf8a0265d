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
	"context"
	"io"
	"net/url"
	"strings"
)

// ObjectStore is the bucket-aware interface every storage backend implements.
// All operations act on a single key; backends must translate their native
// not-found errors to ErrKeyNotFound.
type ObjectStore interface {
	// Configure sets up the backend with the necessary credentials and settings.
	Configure(settings map[string]string) error

	// PutObject stores an object with optional metadata.
	PutObject(ctx context.Context, bucket, key string, data io.Reader, metadata *Metadata) error

	// GetObject retrieves an object's content.
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// HeadObject retrieves only the metadata for an object.
	HeadObject(ctx context.Context, bucket, key string) (*Metadata, error)

	// CopyObject performs a server-side copy. It returns only once the
	// destination write has been acknowledged by the backend.
	CopyObject(ctx context.Context, input *CopyInput) error

	// DeleteObject removes an object. Deleting a missing key is not an error.
	DeleteObject(ctx context.Context, bucket, key string) error

	// ListObjects returns one page of objects under a prefix.
	ListObjects(ctx context.Context, bucket string, opts *ListOptions) (*ListResult, error)
}

// ListAll pages through ListObjects until the listing is exhausted.
func ListAll(ctx context.Context, store ObjectStore, bucket, prefix string) ([]*ObjectInfo, error) {
	var (
		all   []*ObjectInfo
		token string
	)
	for {
		page, err := store.ListObjects(ctx, bucket, &ListOptions{
			Prefix:       prefix,
			ContinueFrom: token,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page.Objects...)
		if !page.Truncated || page.NextToken == "" {
			return all, nil
		}
		token = page.NextToken
	}
}

// EncodeCopySource builds the URL-encoded copy source ("bucket/key") used by
// S3-compatible copy requests. Slashes in the key stay path separators;
// spaces become %20 and '+' becomes %2B so the value is unambiguous.
func EncodeCopySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = strings.ReplaceAll(url.QueryEscape(seg), "+", "%20")
	}
	return bucket + "/" + strings.Join(segments, "/")
}
