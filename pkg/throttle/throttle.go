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

// Package throttle wraps an object store with a token-bucket rate limit so a
// large batch or backfill does not exceed the store's request rate.
package throttle

import (
	"context"
	"io"

	"github.com/jtp-saini-harmit/centralised-logging/pkg/common"
	"golang.org/x/time/rate"
)

// Store is a rate limited common.ObjectStore. It is safe for concurrent use.
type Store struct {
	next    common.ObjectStore
	limiter *rate.Limiter
}

// Wrap returns store limited to requestsPerSecond with the given burst.
// A non-positive rate disables limiting and returns store unchanged.
func Wrap(store common.ObjectStore, requestsPerSecond float64, burst int) common.ObjectStore {
	if requestsPerSecond <= 0 {
		return store
	}
	if burst < 1 {
		burst = 1
	}
	return &Store{
		next:    store,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Limiter exposes the underlying limiter.
func (s *Store) Limiter() *rate.Limiter {
	return s.limiter
}

// Configure passes settings through without consuming a token.
func (s *Store) Configure(settings map[string]string) error {
	return s.next.Configure(settings)
}

// PutObject waits for a token, then stores the object.
func (s *Store) PutObject(ctx context.Context, bucket, key string, data io.Reader, metadata *common.Metadata) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.next.PutObject(ctx, bucket, key, data, metadata)
}

// GetObject waits for a token, then fetches the object.
func (s *Store) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.next.GetObject(ctx, bucket, key)
}

// HeadObject waits for a token, then fetches metadata.
func (s *Store) HeadObject(ctx context.Context, bucket, key string) (*common.Metadata, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.next.HeadObject(ctx, bucket, key)
}

// CopyObject waits for a token, then copies.
func (s *Store) CopyObject(ctx context.Context, input *common.CopyInput) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.next.CopyObject(ctx, input)
}

// DeleteObject waits for a token, then deletes.
func (s *Store) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.next.DeleteObject(ctx, bucket, key)
}

// ListObjects waits for a token, then lists one page.
func (s *Store) ListObjects(ctx context.Context, bucket string, opts *common.ListOptions) (*common.ListResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.next.ListObjects(ctx, bucket, opts)
}
