// util/http_util.go
package util

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
	logger "github.com/dev-mohitbeniwal/modelgate/logging"
)

const (
	ContextUserID  = "userID"
	ContextIsAdmin = "isAdmin"
)

func RespondWithError(c *gin.Context, code int, message string, err error) {
	fields := []zap.Field{
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.Int("status", code),
	}
	if code >= http.StatusInternalServerError {
		logger.Error(message, fields...)
	} else {
		logger.Warn(message, fields...)
	}
	c.JSON(code, gin.H{"error": message})
}

// StatusFor maps a domain error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, gate_errors.ErrAdmissionDenied),
		errors.Is(err, gate_errors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, gate_errors.ErrPolicyNotFound),
		errors.Is(err, gate_errors.ErrGrantNotFound),
		errors.Is(err, gate_errors.ErrJobNotFound),
		errors.Is(err, gate_errors.ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, gate_errors.ErrPolicyConflict),
		errors.Is(err, gate_errors.ErrGrantConflict):
		return http.StatusConflict
	case errors.Is(err, gate_errors.ErrInvalidPolicyData),
		errors.Is(err, gate_errors.ErrInvalidGrantData),
		errors.Is(err, gate_errors.ErrInvalidInput),
		errors.Is(err, gate_errors.ErrInvalidPagination):
		return http.StatusBadRequest
	case errors.Is(err, gate_errors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, gate_errors.ErrQueueFull),
		errors.Is(err, gate_errors.ErrDispatcherStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithDomainError picks the status code from err.
func RespondWithDomainError(c *gin.Context, message string, err error) {
	code := StatusFor(err)
	if code != http.StatusInternalServerError {
		message = err.Error()
	}
	RespondWithError(c, code, message, err)
}

func GetUserIDFromContext(c *gin.Context) (string, error) {
	userID, exists := c.Get(ContextUserID)
	if !exists {
		return "", gate_errors.ErrUnauthorized
	}
	id, ok := userID.(string)
	if !ok || id == "" {
		return "", gate_errors.ErrUnauthorized
	}
	return id, nil
}
