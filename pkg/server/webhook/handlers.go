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
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/adapters"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/delivery"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/notification"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/trigger"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/version"
)

// Handler serves the notification endpoints.
type Handler struct {
	processor trigger.Processor
	logger    adapters.Logger
}

// NewHandler creates a Handler.
func NewHandler(processor trigger.Processor, logger adapters.Logger) (*Handler, error) {
	if processor == nil {
		return nil, trigger.ErrProcessorRequired
	}
	if logger == nil {
		logger = adapters.NewNoOpLogger()
	}
	return &Handler{processor: processor, logger: logger}, nil
}

// HandleEvents accepts an S3 event notification and renames every created
// object before answering. A 5xx answer makes the sender retry the event.
func (h *Handler) HandleEvents(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondWithError(c, http.StatusRequestEntityTooLarge, "request entity too large")
			return
		}
		RespondWithError(c, http.StatusBadRequest, "failed to read body")
		return
	}

	ev, err := notification.ParseS3Event(body)
	if err != nil {
		h.logger.Warn(ctx, "rejecting malformed notification", adapters.Err(err))
		RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	refs := notification.FromS3Event(ev)
	if len(refs) == 0 {
		c.JSON(http.StatusOK, EventsResponse{Status: "ignored"})
		return
	}

	result, err := h.processor.Process(ctx, refs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:      err.Error(),
			Code:       http.StatusInternalServerError,
			FailedKeys: delivery.FailedKeys(err),
		})
		return
	}

	resp := EventsResponse{Status: "ok", Objects: len(refs)}
	if result != nil {
		resp.Metrics = result.Metrics
	}
	c.JSON(http.StatusOK, resp)
}

// HealthCheck reports liveness and the build version.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Version: version.Get()})
}
