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

package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/adapters"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/audit"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/common"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/delivery"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/memory"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/naming"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/notification"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/rename"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/server/middleware"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bucket = "central-logs"

const minioEvent = `{
  "EventName": "s3:ObjectCreated:Put",
  "Key": "central-logs/a+b.gz",
  "Records": [{
    "eventVersion": "2.0",
    "eventSource": "minio:s3",
    "eventTime": "2024-01-02T03:04:05.678Z",
    "eventName": "s3:ObjectCreated:Put",
    "s3": {
      "bucket": {"name": "central-logs"},
      "object": {"key": "a+b.gz", "size": 7, "eTag": "abc"}
    }
  }]
}`

func testConfig() *ServerConfig {
	cfg := DefaultServerConfig()
	cfg.Mode = gin.TestMode
	cfg.Logger = adapters.NewNoOpLogger()
	return cfg
}

func newTestServer(t *testing.T, cfg *ServerConfig) (*Server, common.ObjectStore) {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.Configure(map[string]string{"buckets": bucket}))
	namer, err := naming.New("", "", naming.PolicySource)
	require.NoError(t, err)
	w, err := rename.New(store, namer, rename.Config{}, nil)
	require.NoError(t, err)
	coord, err := delivery.New(w, nil, delivery.Config{}, nil)
	require.NoError(t, err)
	srv, err := NewServer(coord, cfg)
	require.NoError(t, err)
	return srv, store
}

func post(srv *Server, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestNewServerRequiresProcessor(t *testing.T) {
	_, err := NewServer(nil, testConfig())
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, version.Get(), resp.Version)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestEventsRenames(t *testing.T) {
	srv, store := newTestServer(t, testConfig())
	require.NoError(t, store.PutObject(context.Background(), bucket, "a b.gz", bytes.NewReader([]byte("payload")), nil))

	w := post(srv, minioEvent, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp EventsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Objects)
	assert.Equal(t, int64(1), resp.Metrics.Renamed)

	objs, err := common.ListAll(context.Background(), store, bucket, "")
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.True(t, strings.HasPrefix(objs[0].Key, "renamed-logs/renamed-20240102T030405678Z-"))
}

func TestEventsBadBody(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	w := post(srv, "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventsTestEventIgnored(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	w := post(srv, `{"Event":"s3:TestEvent"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ignored"`)
}

type failingProcessor struct{}

func (failingProcessor) Process(ctx context.Context, refs []notification.ObjectRef) (*delivery.BatchResult, error) {
	return &delivery.BatchResult{}, &delivery.BatchError{Total: len(refs), Failures: []delivery.Failure{
		{Bucket: bucket, Key: "a b.gz", Err: errors.New("copy failed")},
	}}
}

func TestEventsFailureReturns500(t *testing.T) {
	srv, err := NewServer(failingProcessor{}, testConfig())
	require.NoError(t, err)

	w := post(srv, minioEvent, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"a b.gz"}, resp.FailedKeys)
}

func TestEventsAuthentication(t *testing.T) {
	cfg := testConfig()
	cfg.Authenticator = adapters.NewStaticTokenAuthenticator("s3cret")
	srv, _ := newTestServer(t, cfg)

	w := post(srv, `{"Records":[]}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(srv, `{"Records":[]}`, http.Header{"Authorization": {"Bearer wrong"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(srv, `{"Records":[]}`, http.Header{"Authorization": {"Bearer s3cret"}})
	assert.Equal(t, http.StatusOK, w.Code)

	// Health stays public.
	hw := httptest.NewRecorder()
	srv.Router().ServeHTTP(hw, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, hw.Code)
}

func TestEventsSizeLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRequestSize = 16
	srv, _ := newTestServer(t, cfg)

	w := post(srv, minioEvent, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestEventsRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.EnableRateLimit = true
	cfg.RateLimitConfig = &middleware.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}
	srv, _ := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, post(srv, `{"Records":[]}`, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, post(srv, `{"Records":[]}`, nil).Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RecoveryMiddleware(adapters.NewNoOpLogger()))
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestEventsAudited(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig()
	cfg.AuditLogger = audit.NewAuditLogger(&audit.Config{Enabled: true, Format: audit.FormatJSON, Output: &buf})
	srv, _ := newTestServer(t, cfg)

	w := post(srv, `{"Records":[]}`, http.Header{middleware.RequestIDHeader: {"req-42"}})
	require.Equal(t, http.StatusOK, w.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, string(audit.EventNotificationReceived), entry["event_type"])
	assert.Equal(t, "anonymous", entry["principal"])
	assert.Equal(t, "req-42", entry["correlation_id"])
}
