package server

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	correlationHeader = "X-Correlation-Id"
	correlationKey    = "correlationID"
	loggerKey         = "logger"
)

// correlationMiddleware propagates the caller's correlation id, or mints
// one, and threads a request-scoped logger through the gin context.
func correlationMiddleware(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(correlationHeader)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		c.Header(correlationHeader, correlationID)

		requestLogger := base.With().
			Str("correlation_id", correlationID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Logger()

		c.Set(correlationKey, correlationID)
		c.Set(loggerKey, requestLogger)
		c.Next()
	}
}

func requestCorrelationID(c *gin.Context) string {
	return c.GetString(correlationKey)
}

func requestLogger(c *gin.Context) zerolog.Logger {
	if value, ok := c.Get(loggerKey); ok {
		if log, ok := value.(zerolog.Logger); ok {
			return log
		}
	}
	return zerolog.Nop()
}
