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
	"github.com/gin-gonic/gin"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/delivery"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error      string   `json:"error"`
	Code       int      `json:"code"`
	FailedKeys []string `json:"failed_keys,omitempty"`
}

// EventsResponse is returned for an accepted notification.
type EventsResponse struct {
	Status  string                   `json:"status"`
	Objects int                      `json:"objects"`
	Metrics delivery.MetricsSnapshot `json:"metrics"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// RespondWithError sends a JSON error response.
func RespondWithError(c *gin.Context, code int, message string) {
	c.JSON(code, ErrorResponse{Error: message, Code: code})
}
