package handlers

import (
	"errors"
	"net/http"
	"vhs_converter/internal/logger"
	"vhs_converter/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps service errors onto HTTP statuses. Unknown errors are
// logged and reported without detail.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidConfiguration):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrPaymentNotCompleted):
		status = http.StatusPaymentRequired
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInvalidTransition), errors.Is(err, services.ErrEmailTaken):
		status = http.StatusConflict
	case errors.Is(err, services.ErrCheckoutExpired):
		status = http.StatusGone
	case errors.Is(err, services.ErrUpstream):
		status = http.StatusBadGateway
	case errors.Is(err, services.ErrNotConfigured):
		status = http.StatusServiceUnavailable
	}

	_ = c.Error(err)
	if status == http.StatusInternalServerError {
		logger.Log.Error("request failed",
			zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	if status == http.StatusBadGateway {
		logger.Log.Warn("upstream failure",
			zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
}
