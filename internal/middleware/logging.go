package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"discussion-service/internal/observability"
)

// RequestLogger emits one structured log line per request.
func RequestLogger(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Infow("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", observability.IPFromRequest(c.Request),
			"request_id", observability.RequestIDFromRequest(c.Request),
			"device_id", observability.DeviceIDFromRequest(c.Request),
		)
	}
}
