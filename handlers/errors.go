package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"atrium/services"
	"atrium/utils"
)

// respondError maps classified occupancy errors to HTTP statuses and sends
// the message verbatim; the UI displays it as a notification.
func respondError(c *gin.Context, logger *utils.Logger, err error) {
	if oe, ok := services.AsError(err); ok {
		c.JSON(statusFor(oe.Code), gin.H{"error": oe.Message})
		return
	}

	logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func statusFor(code services.ErrorCode) int {
	switch code {
	case services.CodeNotFound:
		return http.StatusNotFound
	case services.CodeCapacityExceeded:
		return http.StatusConflict
	case services.CodeAccessDenied:
		return http.StatusForbidden
	case services.CodeInvalidState:
		return http.StatusUnprocessableEntity
	case services.CodeTransientConflict:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
