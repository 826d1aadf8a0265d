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

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jtp-saini-harmit/centralised-logging/pkg/adapters"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/backfill"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/common"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/config"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/delivery"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/notification"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/rename"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBucket = "central-logs"

const s3Event = `{"Records":[{
  "eventSource": "aws:s3",
  "eventTime": "2024-05-06T07:08:09.010Z",
  "eventName": "ObjectCreated:Put",
  "s3": {"bucket": {"name": "central-logs"}, "object": {"key": "firehose/2024/05/06/batch+1.gz", "size": 4}}
}]}`

func memoryConfig(t *testing.T, overrides map[string]any) *config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	v.Set(config.KeyBackend, "memory")
	v.Set(config.KeyBuckets, testBucket)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return config.FromViper(v)
}

func newTestContext(t *testing.T, overrides map[string]any) *CommandContext {
	t.Helper()
	ctx, err := NewCommandContext(memoryConfig(t, overrides), adapters.NewNoOpLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx
}

func put(t *testing.T, store common.ObjectStore, key string) {
	t.Helper()
	require.NoError(t, store.PutObject(context.Background(), testBucket, key, bytes.NewReader([]byte("data")), nil))
}

func keys(t *testing.T, store common.ObjectStore) []string {
	t.Helper()
	objs, err := common.ListAll(context.Background(), store, testBucket, "")
	require.NoError(t, err)
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = o.Key
	}
	return out
}

func TestNewCommandContextValidates(t *testing.T) {
	_, err := NewCommandContext(memoryConfig(t, map[string]any{config.KeyConcurrency: 0}), adapters.NewNoOpLogger())
	assert.ErrorIs(t, err, config.ErrInvalidConcurrency)

	_, err = NewCommandContext(memoryConfig(t, map[string]any{config.KeyBackend: "gcs"}), adapters.NewNoOpLogger())
	assert.ErrorIs(t, err, config.ErrUnsupportedBackend)
}

func TestNewCommandContextDeadLetterSink(t *testing.T) {
	ctx := newTestContext(t, nil)
	assert.IsType(t, &delivery.LogDeadLetterSink{}, ctx.Coordinator.Sink())

	ctx = newTestContext(t, map[string]any{config.KeyDeadLetterBucket: testBucket})
	assert.IsType(t, &delivery.StoreDeadLetterSink{}, ctx.Coordinator.Sink())
}

func TestRenameCommand(t *testing.T) {
	ctx := newTestContext(t, nil)
	put(t, ctx.Store, "firehose/a b.gz")

	result, err := ctx.RenameCommand(context.Background(), testBucket, "firehose/a b.gz")
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, rename.StatusRenamed, result.Outcomes[0].Status)

	got := keys(t, ctx.Store)
	require.Len(t, got, 1)
	assert.True(t, strings.HasPrefix(got[0], "renamed-logs/renamed-"))

	// The source is gone, so a second run has nothing left to do.
	result, err = ctx.RenameCommand(context.Background(), testBucket, "firehose/a b.gz")
	require.NoError(t, err)
	assert.Equal(t, rename.StatusAlreadyRenamed, result.Outcomes[0].Status)
}

func TestRenameCommandArgs(t *testing.T) {
	ctx := newTestContext(t, nil)

	_, err := ctx.RenameCommand(context.Background(), "", "k")
	assert.ErrorIs(t, err, ErrBucketRequired)
	_, err = ctx.RenameCommand(context.Background(), testBucket, "")
	assert.ErrorIs(t, err, ErrKeyRequired)
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReplayCommand(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "s3 event", body: s3Event},
		{name: "sqs wrapped", body: sqsWrapped(t, s3Event)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newTestContext(t, nil)
			put(t, ctx.Store, "firehose/2024/05/06/batch 1.gz")

			result, err := ctx.ReplayCommand(context.Background(), writeFile(t, tt.body))
			require.NoError(t, err)
			require.Len(t, result.Outcomes, 1)
			assert.Equal(t, rename.StatusRenamed, result.Outcomes[0].Status)
			assert.True(t, strings.HasPrefix(result.Outcomes[0].DestinationKey, "renamed-logs/renamed-20240506T070809010Z-"))
		})
	}
}

func sqsWrapped(t *testing.T, body string) string {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"Records": []map[string]any{
			{"messageId": "m-1", "eventSource": "aws:sqs", "body": body},
		},
	})
	require.NoError(t, err)
	return string(data)
}

func TestReplayCommandErrors(t *testing.T) {
	ctx := newTestContext(t, nil)

	_, err := ctx.ReplayCommand(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = ctx.ReplayCommand(context.Background(), writeFile(t, "{"))
	assert.ErrorIs(t, err, notification.ErrMalformedEvent)

	_, err = ctx.ReplayCommand(context.Background(), writeFile(t, `{"Records":[]}`))
	assert.ErrorIs(t, err, ErrNoObjects)
}

func TestBackfillCommand(t *testing.T) {
	ctx := newTestContext(t, map[string]any{config.KeyDeadLetterBucket: testBucket})
	put(t, ctx.Store, "firehose/one.gz")
	put(t, ctx.Store, "firehose/two.gz")
	put(t, ctx.Store, "renamed-logs/renamed-20240101T000000000Z.gz")
	put(t, ctx.Store, "dead-letter/x.json")

	report, err := ctx.BackfillCommand(context.Background(), backfill.Config{Bucket: testBucket, MinAge: -1, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Listed)
	assert.Equal(t, 2, report.Excluded)
	assert.ElementsMatch(t, []string{"firehose/one.gz", "firehose/two.gz"}, report.Eligibles)

	report, err = ctx.BackfillCommand(context.Background(), backfill.Config{Bucket: testBucket, MinAge: -1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Metrics.Renamed)
	for _, key := range keys(t, ctx.Store) {
		assert.False(t, strings.HasPrefix(key, "firehose/"), key)
	}
}

func TestTriggerHandlerAndWebhookServer(t *testing.T) {
	ctx := newTestContext(t, map[string]any{config.KeyAuthToken: "token", config.KeyListen: "127.0.0.1:0"})

	h, err := ctx.TriggerHandler()
	require.NoError(t, err)
	assert.NotNil(t, h)

	srv, err := ctx.WebhookServer()
	require.NoError(t, err)
	assert.NotNil(t, srv.Router())
}
