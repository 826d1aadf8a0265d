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


package audit

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/adapters"
)

// PrincipalKey is the gin context key the authentication middleware stores
// the caller under.
const PrincipalKey = "principal"

// AuditMiddleware creates a Gin middleware that records every notification
// request. Health checks are not audited.
func AuditMiddleware(auditLogger AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		if !shouldAuditRequest(c.Request.URL.Path) {
			return
		}

		statusCode := c.Writer.Status()
		if statusCode == http.StatusUnauthorized {
			_ = auditLogger.LogAuthFailure(c.Request.Context(), c.ClientIP(), "unauthorized") // #nosec G104 -- audit errors must not block requests
			return
		}

		principal := ""
		if value, exists := c.Get(PrincipalKey); exists {
			if p, ok := value.(*adapters.Principal); ok && p != nil {
				principal = p.ID
			}
		}

		result := ResultSuccess
		errorMessage := ""
		if statusCode >= 400 {
			result = ResultFailure
			if len(c.Errors) > 0 {
				errorMessage = c.Errors.Last().Error()
			}
		}

		event := &AuditEvent{
			Timestamp:    startTime,
			EventType:    EventNotificationReceived,
			Principal:    principal,
			Action:       c.Request.Method + " " + c.Request.URL.Path,
			Result:       result,
			ErrorMessage: errorMessage,
			IPAddress:    c.ClientIP(),
			StatusCode:   statusCode,
			Duration:     time.Since(startTime),
		}
		_ = auditLogger.LogEvent(c.Request.Context(), event) // #nosec G104 -- audit errors must not block requests
	}
}

func shouldAuditRequest(path string) bool {
	return path != "/health"
}
