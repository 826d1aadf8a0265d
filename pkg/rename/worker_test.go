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
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jtp-saini-harmit/centralised-logging/pkg/adapters"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/common"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/memory"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/naming"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bucket = "central-logs"

var eventTime = time.Date(2024, 1, 2, 3, 4, 5, 678_000_000, time.UTC)

// faultStore wraps the memory store with per-operation error injection.
type faultStore struct {
	common.ObjectStore

	mu        sync.Mutex
	copyErr   error
	deleteErr error
	headErr   map[string]error
	copies    []*common.CopyInput
	deletes   int
}

func (f *faultStore) HeadObject(ctx context.Context, b, key string) (*common.Metadata, error) {
	f.mu.Lock()
	err := f.headErr[b+"/"+key]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.ObjectStore.HeadObject(ctx, b, key)
}

func (f *faultStore) CopyObject(ctx context.Context, in *common.CopyInput) error {
	f.mu.Lock()
	f.copies = append(f.copies, in)
	err := f.copyErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.ObjectStore.CopyObject(ctx, in)
}

func (f *faultStore) DeleteObject(ctx context.Context, b, key string) error {
	f.mu.Lock()
	f.deletes++
	err := f.deleteErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.ObjectStore.DeleteObject(ctx, b, key)
}

func newFixture(t *testing.T, cfg Config, policy naming.Policy) (*Worker, *faultStore) {
	t.Helper()
	backend := memory.New()
	require.NoError(t, backend.Configure(map[string]string{"buckets": bucket + ",target-logs"}))
	store := &faultStore{ObjectStore: backend}
	namer, err := naming.New("", "", policy)
	require.NoError(t, err)
	w, err := New(store, namer, cfg, nil)
	require.NoError(t, err)
	return w, store
}

func put(t *testing.T, store common.ObjectStore, key, body string) {
	t.Helper()
	require.NoError(t, store.PutObject(context.Background(), bucket, key, bytes.NewReader([]byte(body)), &common.Metadata{
		ContentType: "application/octet-stream",
		Custom:      map[string]string{"firehose-stream": "app"},
	}))
}

func read(t *testing.T, store common.ObjectStore, b, key string) string {
	t.Helper()
	rc, err := store.GetObject(context.Background(), b, key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func exists(t *testing.T, store common.ObjectStore, b, key string) bool {
	t.Helper()
	_, err := store.HeadObject(context.Background(), b, key)
	if common.IsNotFound(err) {
		return false
	}
	require.NoError(t, err)
	return true
}

func ref(key string) notification.ObjectRef {
	return notification.ObjectRef{Bucket: bucket, Key: key, KeyEncoded: true, Size: 7, EventTime: eventTime}
}

func TestNewRequiresDependencies(t *testing.T) {
	namer, err := naming.New("", "", naming.PolicySource)
	require.NoError(t, err)

	_, err = New(nil, namer, Config{}, nil)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = New(memory.New(), nil, Config{}, nil)
	assert.ErrorIs(t, err, ErrNamerRequired)
}

func TestHandleRenames(t *testing.T) {
	w, store := newFixture(t, Config{}, naming.PolicySource)
	put(t, store, "2024/01/02/batch-1", "payload")

	out := w.Handle(context.Background(), ref("2024/01/02/batch-1"))
	require.NoError(t, out.Err)
	assert.Equal(t, StatusRenamed, out.Status)
	assert.True(t, out.Copied)
	assert.True(t, out.Deleted)
	assert.Equal(t, bucket, out.DestinationBucket)
	assert.Regexp(t, `^renamed-logs/renamed-20240102T030405678Z-[0-9a-f]{16}\.gz$`, out.DestinationKey)

	assert.False(t, exists(t, store, bucket, "2024/01/02/batch-1"))
	assert.Equal(t, "payload", read(t, store, bucket, out.DestinationKey))

	meta, err := store.HeadObject(context.Background(), bucket, out.DestinationKey)
	require.NoError(t, err)
	assert.Equal(t, DefaultContentType, meta.ContentType)
	assert.Equal(t, bucket, meta.Custom[MetaSourceBucket])
	assert.Equal(t, "2024%2F01%2F02%2Fbatch-1", meta.Custom[MetaSourceKey])
	assert.NotContains(t, meta.Custom, "firehose-stream")

	require.Len(t, store.copies, 1)
	assert.Equal(t, common.MetadataReplace, store.copies[0].MetadataDirective)
}

func TestHandleDecodesPlusAsSpace(t *testing.T) {
	w, store := newFixture(t, Config{}, naming.PolicySource)
	put(t, store, "a b.gz", "spaced")

	out := w.Handle(context.Background(), ref("a+b.gz"))
	require.NoError(t, out.Err)
	assert.Equal(t, "a b.gz", out.SourceKey)
	require.Len(t, store.copies, 1)
	assert.Equal(t, "a b.gz", store.copies[0].SourceKey)
	assert.False(t, exists(t, store, bucket, "a b.gz"))
	assert.Equal(t, "spaced", read(t, store, bucket, out.DestinationKey))
}

func TestHandleDecodeFailure(t *testing.T) {
	w, store := newFixture(t, Config{}, naming.PolicySource)

	out := w.Handle(context.Background(), ref("bad%zz"))
	assert.Equal(t, StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, ErrDecodeFailed)
	assert.ErrorIs(t, out.Err, notification.ErrMalformedKey)
	assert.False(t, IsRetryable(out.Err))
	assert.Empty(t, store.copies)
	assert.Zero(t, store.deletes)
}

func TestHandleCopyFailureLeavesSource(t *testing.T) {
	w, store := newFixture(t, Config{}, naming.PolicySource)
	put(t, store, "batch.gz", "payload")
	cause := errors.New("access denied")
	store.copyErr = cause

	out := w.Handle(context.Background(), ref("batch.gz"))
	assert.Equal(t, StatusFailed, out.Status)
	assert.False(t, out.Copied)
	assert.ErrorIs(t, out.Err, ErrCopyFailed)
	assert.ErrorIs(t, out.Err, cause)
	assert.True(t, IsRetryable(out.Err))

	var rerr *Error
	require.ErrorAs(t, out.Err, &rerr)
	assert.Equal(t, OpCopy, rerr.Op)
	assert.Equal(t, "batch.gz", rerr.Key)

	assert.Zero(t, store.deletes, "delete must not follow a failed copy")
	assert.True(t, exists(t, store, bucket, "batch.gz"))
	assert.False(t, exists(t, store, bucket, out.DestinationKey))
}

func TestHandleDeleteFailureThenRetry(t *testing.T) {
	w, store := newFixture(t, Config{}, naming.PolicySource)
	put(t, store, "batch.gz", "payload")
	store.deleteErr = errors.New("throttled")

	first := w.Handle(context.Background(), ref("batch.gz"))
	assert.Equal(t, StatusFailed, first.Status)
	assert.True(t, first.Copied)
	assert.False(t, first.Deleted)
	assert.ErrorIs(t, first.Err, ErrDeleteFailed)
	assert.True(t, IsRetryable(first.Err))
	assert.True(t, exists(t, store, bucket, "batch.gz"))
	assert.Equal(t, "payload", read(t, store, bucket, first.DestinationKey))

	destBefore, err := store.HeadObject(context.Background(), bucket, first.DestinationKey)
	require.NoError(t, err)

	store.deleteErr = nil
	second := w.Handle(context.Background(), ref("batch.gz"))
	require.NoError(t, second.Err)
	assert.Equal(t, StatusRenamed, second.Status)
	assert.Equal(t, first.DestinationKey, second.DestinationKey)
	assert.Len(t, store.copies, 1, "retry must not copy again")
	assert.False(t, exists(t, store, bucket, "batch.gz"))

	destAfter, err := store.HeadObject(context.Background(), bucket, second.DestinationKey)
	require.NoError(t, err)
	assert.Equal(t, destBefore, destAfter)
	assert.Equal(t, 1, len(memoryKeys(t, store, "renamed-logs/")))

	third := w.Handle(context.Background(), ref("batch.gz"))
	require.NoError(t, third.Err)
	assert.Equal(t, StatusAlreadyRenamed, third.Status)
	assert.Len(t, store.copies, 1)
}

func memoryKeys(t *testing.T, store common.ObjectStore, prefix string) []*common.ObjectInfo {
	t.Helper()
	objs, err := common.ListAll(context.Background(), store, bucket, prefix)
	require.NoError(t, err)
	return objs
}

func TestHandleAlreadyRenamed(t *testing.T) {
	w, store := newFixture(t, Config{}, naming.PolicySource)

	out := w.Handle(context.Background(), ref("gone.gz"))
	require.NoError(t, out.Err)
	assert.Equal(t, StatusAlreadyRenamed, out.Status)
	assert.Zero(t, store.deletes)
	assert.Empty(t, memoryKeys(t, store, ""))
}

func TestHandleDeleteNotFoundIsSuccess(t *testing.T) {
	w, store := newFixture(t, Config{}, naming.PolicySource)
	put(t, store, "batch.gz", "payload")
	store.deleteErr = common.ErrKeyNotFound

	out := w.Handle(context.Background(), ref("batch.gz"))
	require.NoError(t, out.Err)
	assert.Equal(t, StatusRenamed, out.Status)
}

func TestHandleSkipsOwnOutput(t *testing.T) {
	w, store := newFixture(t, Config{DeadLetterPrefix: "dead-letter/"}, naming.PolicySource)

	for _, key := range []string{"renamed-logs/renamed-20240102T030405678Z.gz", "dead-letter/abc.json"} {
		out := w.Handle(context.Background(), ref(key))
		require.NoError(t, out.Err)
		assert.Equal(t, StatusSkipped, out.Status, key)
	}
	assert.Empty(t, store.copies)
}

func TestHandleSkipsDeadLettersWithTargetBucket(t *testing.T) {
	w, store := newFixture(t, Config{TargetBucket: "target-logs", DeadLetterPrefix: "dead-letter/"}, naming.PolicySource)
	put(t, store, "dead-letter/abc.json", `{"reason":"decode failed"}`)

	out := w.Handle(context.Background(), ref("dead-letter/abc.json"))
	require.NoError(t, out.Err)
	assert.Equal(t, StatusSkipped, out.Status)
	assert.Empty(t, store.copies)
	assert.Zero(t, store.deletes)
	assert.True(t, exists(t, store, bucket, "dead-letter/abc.json"))
	targets, err := common.ListAll(context.Background(), store, "target-logs", "")
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestHandleTargetBucket(t *testing.T) {
	clock := func() time.Time { return eventTime }
	w, store := newFixture(t, Config{TargetBucket: "target-logs", ACL: "bucket-owner-full-control", Clock: clock}, naming.PolicyWallClock)
	put(t, store, "renamed-logs/looks-like-output.gz", "payload")

	out := w.Handle(context.Background(), ref("renamed-logs/looks-like-output.gz"))
	require.NoError(t, out.Err)
	assert.Equal(t, StatusRenamed, out.Status)
	assert.Equal(t, "target-logs", out.DestinationBucket)
	assert.Equal(t, "renamed-logs/renamed-20240102T030405678Z.gz", out.DestinationKey)
	assert.Equal(t, "payload", read(t, store, "target-logs", out.DestinationKey))
	require.Len(t, store.copies, 1)
	assert.Equal(t, "bucket-owner-full-control", store.copies[0].ACL)
}

func TestHandleUsesClockWithoutEventTime(t *testing.T) {
	now := time.Date(2025, 6, 7, 8, 9, 10, 0, time.UTC)
	w, store := newFixture(t, Config{Clock: func() time.Time { return now }}, naming.PolicyWallClock)
	put(t, store, "batch.gz", "payload")

	r := ref("batch.gz")
	r.EventTime = time.Time{}
	out := w.Handle(context.Background(), r)
	require.NoError(t, out.Err)
	assert.Equal(t, "renamed-logs/renamed-20250607T080910000Z.gz", out.DestinationKey)
}

func TestHandleWallClockIgnoresEventTime(t *testing.T) {
	now := time.Date(2025, 6, 7, 8, 9, 10, 11_000_000, time.UTC)
	w, store := newFixture(t, Config{Clock: func() time.Time { return now }}, naming.PolicyWallClock)
	put(t, store, "batch.gz", "payload")

	out := w.Handle(context.Background(), ref("batch.gz"))
	require.NoError(t, out.Err)
	assert.Equal(t, "renamed-logs/renamed-20250607T080910011Z.gz", out.DestinationKey)
}

func TestHandleConflictingDestinationConverges(t *testing.T) {
	now := eventTime
	w, store := newFixture(t, Config{Clock: func() time.Time { return now }}, naming.PolicyWallClock)
	put(t, store, "one.gz", "first")
	put(t, store, "two.gz", "second")

	first := w.Handle(context.Background(), ref("one.gz"))
	require.NoError(t, first.Err)

	second := w.Handle(context.Background(), ref("two.gz"))
	assert.ErrorIs(t, second.Err, ErrCopyFailed)
	assert.ErrorIs(t, second.Err, ErrDestinationConflict)
	assert.True(t, IsRetryable(second.Err))
	assert.True(t, exists(t, store, bucket, "two.gz"))
	assert.Equal(t, "first", read(t, store, bucket, first.DestinationKey))

	// redelivery observes a later clock reading
	now = now.Add(time.Millisecond)
	retry := w.Handle(context.Background(), ref("two.gz"))
	require.NoError(t, retry.Err)
	assert.Equal(t, StatusRenamed, retry.Status)
	assert.NotEqual(t, first.DestinationKey, retry.DestinationKey)
	assert.Equal(t, "second", read(t, store, bucket, retry.DestinationKey))
	assert.Equal(t, "first", read(t, store, bucket, first.DestinationKey))
	assert.False(t, exists(t, store, bucket, "two.gz"))
}

func TestHandleLogsSourceHeadFailure(t *testing.T) {
	backend := memory.New()
	require.NoError(t, backend.Configure(map[string]string{"buckets": bucket}))
	store := &faultStore{ObjectStore: backend}
	namer, err := naming.New("", "", naming.PolicySource)
	require.NoError(t, err)
	var logs bytes.Buffer
	w, err := New(store, namer, Config{}, adapters.NewJSONLogger(&logs, adapters.DebugLevel))
	require.NoError(t, err)

	put(t, store, "batch.gz", "payload")
	store.deleteErr = errors.New("throttled")
	first := w.Handle(context.Background(), ref("batch.gz"))
	require.ErrorIs(t, first.Err, ErrDeleteFailed)

	store.deleteErr = nil
	store.headErr = map[string]error{bucket + "/batch.gz": errors.New("access denied")}
	logs.Reset()
	out := w.Handle(context.Background(), ref("batch.gz"))
	require.NoError(t, out.Err)
	assert.Equal(t, StatusRenamed, out.Status)
	assert.False(t, exists(t, backend, bucket, "batch.gz"))
	assert.Contains(t, logs.String(), "source head failed")
	assert.Contains(t, logs.String(), "access denied")
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Op: OpDelete, Bucket: "b", Key: "k", DestinationKey: "d", Err: errors.New("boom")}
	assert.Equal(t, "delete failed: b/k -> d: boom", err.Error())
	assert.NotErrorIs(t, err, ErrCopyFailed)

	err = &Error{Op: OpDecode, Bucket: "b", Key: "k", Err: errors.New("bad")}
	assert.Equal(t, "decode failed: b/k: bad", err.Error())
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(errors.New("unclassified")))
}
