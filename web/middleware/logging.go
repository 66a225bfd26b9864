package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// RequestIDHeader carries the request id in both directions.
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "requestID"
	loggerKey       = "logger"
)

// RequestLogger tags each request with an id and logs its outcome. Handlers
// fetch the tagged logger with Logger.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		reqLogger := logger.With(zap.String("request_id", requestID))
		c.Set(loggerKey, reqLogger)

		c.Next()

		reqLogger.Info("Request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("user_id", c.GetString(UserIDKey)))
	}
}

// Logger returns the request-scoped logger, or fallback outside RequestLogger.
func Logger(c *gin.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := c.Get(loggerKey); ok {
		if zl, ok := l.(*zap.Logger); ok {
			return zl
		}
	}
	return fallback
}
