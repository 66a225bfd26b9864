package handlers

import (
	"net/http"

	apperrors "proposal-ranker/errors"
	"proposal-ranker/web/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// envelope adds an endpoint's failure markers to an error body, e.g.
// {"status":"error"} or {"success":false}.
type envelope gin.H

var (
	statusEnvelope  = envelope{"status": "error"}
	successEnvelope = envelope{"success": false}
	plainEnvelope   = envelope{}
)

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case apperrors.IsInvalidInput(err):
		return http.StatusBadRequest
	case apperrors.IsUnauthorized(err):
		return http.StatusUnauthorized
	case apperrors.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondWithError logs server-side failures and writes the error body.
// Client errors are not logged.
func respondWithError(c *gin.Context, err error, env envelope, logger *zap.Logger, fields ...zap.Field) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		fields = append(fields, zap.Error(err), zap.String("path", c.FullPath()))
		middleware.Logger(c, logger).Error("Request failed", fields...)
	}

	body := gin.H{"error": err.Error()}
	for k, v := range env {
		body[k] = v
	}
	c.JSON(status, body)
}

// respondWithClientError returns a client error (no logging needed for validation errors)
func respondWithClientError(c *gin.Context, statusCode int, userMessage string, env envelope) {
	body := gin.H{"error": userMessage}
	for k, v := range env {
		body[k] = v
	}
	c.JSON(statusCode, body)
}

// bindJSON decodes the request body, answering 400 on malformed input.
func bindJSON(c *gin.Context, dst any, env envelope) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondWithClientError(c, http.StatusBadRequest, "invalid request body", env)
		return false
	}
	return true
}
