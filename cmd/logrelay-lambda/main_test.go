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


package main

import (
	"context"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtp-saini-harmit/centralised-logging/pkg/adapters"
)

func TestNewHandler(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOGRELAY_BACKEND", "memory")
	t.Setenv("LOGRELAY_BUCKETS", "central-logs")

	h, err := newHandler(adapters.NewNoOpLogger(), "")
	require.NoError(t, err)
	s3Handler, ok := h.(func(context.Context, events.S3Event) error)
	require.True(t, ok)
	assert.NoError(t, s3Handler(context.Background(), events.S3Event{}))

	h, err = newHandler(adapters.NewNoOpLogger(), "SQS")
	require.NoError(t, err)
	_, ok = h.(func(context.Context, events.SQSEvent) (events.SQSEventResponse, error))
	assert.True(t, ok)

	_, err = newHandler(adapters.NewNoOpLogger(), "kinesis")
	assert.ErrorContains(t, err, "LOGRELAY_TRIGGER")
}

func TestNewHandlerInvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOGRELAY_BACKEND", "ftp")

	_, err := newHandler(adapters.NewNoOpLogger(), "s3")
	assert.Error(t, err)
}
