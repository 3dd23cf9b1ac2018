package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/yourusername/dealership-api/internal/pkg/errors"
	"github.com/yourusername/dealership-api/internal/service"
)

// Context keys filled by middleware.ExtractUintParam on routes with :id.
const (
	ParamUserID    = "targetUserID"
	ParamVehicleID = "vehicleID"
)

// respondError maps a service error to the JSON envelope {error, details?}.
// Unknown errors are logged and hidden behind a 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var held *service.LockHeldError
	switch {
	case errors.As(err, &held):
		body := gin.H{"error": "Vehicle is locked by another user", "error_type": "lock_held"}
		if held.Current != nil {
			body["lock"] = held.Current.Public()
		}
		c.JSON(http.StatusConflict, body)
	case errors.Is(err, service.ErrInvalidOTP):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired OTP code", "error_type": "invalid_otp"})
	case errors.Is(err, service.ErrOTPExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired OTP code", "error_type": "otp_expired"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "error_type": "validation_error", "details": err.Error()})
	case errors.Is(err, apperrors.ErrExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Expired", "error_type": "expired", "details": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found", "error_type": "not_found", "details": err.Error()})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "unauthorized", "details": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden", "error_type": "forbidden", "details": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Conflict", "error_type": "conflict", "details": err.Error()})
	default:
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": "internal_server_error"})
	}
}

// badRequest answers malformed JSON bodies.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "validation_error", "details": err.Error()})
}

func namedLogger(logger *zap.Logger, name string) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.Named(name)
}
