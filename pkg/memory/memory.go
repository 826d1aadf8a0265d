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

// Package memory provides an in-memory implementation of the object store interface.
// It follows S3 semantics for copies and deletes and is used by tests and local runs.
package memory

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // ETag only, not a security boundary
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jtp-saini-harmit/centralised-logging/pkg/common"
)

// object represents a stored object with its data and metadata.
type object struct {
	data     []byte
	metadata *common.Metadata
}

// Memory is a storage backend that stores objects in memory, grouped by bucket.
type Memory struct {
	mu      sync.RWMutex
	buckets map[string]map[string]*object
	now     func() time.Time
}

// New creates a new Memory storage backend.
func New() common.ObjectStore {
	return &Memory{
		buckets: make(map[string]map[string]*object),
		now:     time.Now,
	}
}

// Configure sets up the backend with the necessary settings.
// Optional settings:
//   - buckets: comma-separated bucket names to create
func (m *Memory) Configure(settings map[string]string) error {
	for _, name := range strings.Split(settings["buckets"], ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if err := m.CreateBucket(name); err != nil {
			return err
		}
	}
	return nil
}

// CreateBucket creates an empty bucket. Creating an existing bucket is a no-op.
func (m *Memory) CreateBucket(bucket string) error {
	if err := common.ValidateBucket(bucket); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.buckets[bucket]; !exists {
		m.buckets[bucket] = make(map[string]*object)
	}
	return nil
}

// bucketLocked returns the named bucket. Callers must hold m.mu.
func (m *Memory) bucketLocked(bucket string) (map[string]*object, error) {
	b, exists := m.buckets[bucket]
	if !exists {
		return nil, fmt.Errorf("%w: %s", common.ErrBucketNotFound, bucket)
	}
	return b, nil
}

func validateRef(bucket, key string) error {
	if bucket == "" {
		return common.ErrBucketNotSet
	}
	return common.ValidateKey(key)
}

// PutObject stores an object with associated metadata.
func (m *Memory) PutObject(ctx context.Context, bucket, key string, data io.Reader, metadata *common.Metadata) error {
	if err := validateRef(bucket, key); err != nil {
		return err
	}
	if metadata != nil {
		if err := common.ValidateMetadata(metadata.Custom); err != nil {
			return err
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	dataBytes, err := io.ReadAll(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.bucketLocked(bucket)
	if err != nil {
		return err
	}
	b[key] = m.newObject(dataBytes, metadata.Clone())
	return nil
}

// newObject stamps size, modification time and ETag onto the metadata.
func (m *Memory) newObject(data []byte, metadata *common.Metadata) *object {
	if metadata == nil {
		metadata = &common.Metadata{}
	}
	sum := md5.Sum(data) //nolint:gosec // ETag only
	metadata.Size = int64(len(data))
	metadata.LastModified = m.now()
	metadata.ETag = hex.EncodeToString(sum[:])
	return &object{data: data, metadata: metadata}
}

// GetObject retrieves an object from the backend.
func (m *Memory) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if err := validateRef(bucket, key); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	b, err := m.bucketLocked(bucket)
	if err != nil {
		return nil, err
	}
	obj, exists := b[key]
	if !exists {
		return nil, fmt.Errorf("%w: %s", common.ErrKeyNotFound, key)
	}

	// Return a copy of the data to prevent mutation
	dataCopy := make([]byte, len(obj.data))
	copy(dataCopy, obj.data)

	return io.NopCloser(bytes.NewReader(dataCopy)), nil
}

// HeadObject retrieves only the metadata for an object.
func (m *Memory) HeadObject(ctx context.Context, bucket, key string) (*common.Metadata, error) {
	if err := validateRef(bucket, key); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	b, err := m.bucketLocked(bucket)
	if err != nil {
		return nil, err
	}
	obj, exists := b[key]
	if !exists {
		return nil, fmt.Errorf("%w: %s", common.ErrKeyNotFound, key)
	}
	return obj.metadata.Clone(), nil
}

// CopyObject copies an object between buckets or keys. With MetadataReplace
// the destination receives input.Metadata instead of the source metadata.
func (m *Memory) CopyObject(ctx context.Context, input *common.CopyInput) error {
	if input == nil {
		return common.ErrCopyInputNil
	}
	if err := validateRef(input.SourceBucket, input.SourceKey); err != nil {
		return err
	}
	if err := validateRef(input.DestBucket, input.DestKey); err != nil {
		return err
	}
	directive := input.MetadataDirective
	if directive == "" {
		directive = common.MetadataCopy
	}
	if !directive.Valid() {
		return fmt.Errorf("%w: %s", common.ErrInvalidMetadataDirective, directive)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	src, err := m.bucketLocked(input.SourceBucket)
	if err != nil {
		return err
	}
	obj, exists := src[input.SourceKey]
	if !exists {
		return fmt.Errorf("%w: %s", common.ErrKeyNotFound, input.SourceKey)
	}
	dst, err := m.bucketLocked(input.DestBucket)
	if err != nil {
		return err
	}

	var metadata *common.Metadata
	if directive == common.MetadataReplace {
		metadata = input.Metadata.Clone()
		if metadata != nil {
			if err := common.ValidateMetadata(metadata.Custom); err != nil {
				return err
			}
		}
	} else {
		metadata = obj.metadata.Clone()
	}

	dataCopy := make([]byte, len(obj.data))
	copy(dataCopy, obj.data)
	dst[input.DestKey] = m.newObject(dataCopy, metadata)
	return nil
}

// DeleteObject removes an object. Like S3, deleting a missing key succeeds.
func (m *Memory) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := validateRef(bucket, key); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.bucketLocked(bucket)
	if err != nil {
		return err
	}
	delete(b, key)
	return nil
}

// ListObjects returns a page of objects under a prefix, sorted by key.
func (m *Memory) ListObjects(ctx context.Context, bucket string, opts *common.ListOptions) (*common.ListResult, error) {
	if bucket == "" {
		return nil, common.ErrBucketNotSet
	}
	if opts == nil {
		opts = &common.ListOptions{}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	b, err := m.bucketLocked(bucket)
	if err != nil {
		return nil, err
	}

	var matchingKeys []string
	for key := range b {
		if strings.HasPrefix(key, opts.Prefix) && key > opts.ContinueFrom {
			matchingKeys = append(matchingKeys, key)
		}
	}
	sort.Strings(matchingKeys)

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 1000
	}

	result := &common.ListResult{Objects: []*common.ObjectInfo{}}
	for i, key := range matchingKeys {
		if i == maxResults {
			result.Truncated = true
			result.NextToken = matchingKeys[i-1]
			break
		}
		result.Objects = append(result.Objects, &common.ObjectInfo{
			Key:      key,
			Metadata: b[key].metadata.Clone(),
		})
	}
	return result, nil
}

// SetClock overrides the time source used for LastModified. Useful for testing.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// Keys returns the sorted keys in a bucket. Useful for testing.
func (m *Memory) Keys(bucket string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.buckets[bucket]))
	for key := range m.buckets[bucket] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Count returns the number of objects in a bucket. Useful for testing.
func (m *Memory) Count(bucket string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.buckets[bucket])
}
