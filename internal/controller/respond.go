package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"taskflow/internal/apperrors"
	"taskflow/pkg/logger"
)

// respondData writes the uniform success envelope.
func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// respondMessage writes a success envelope carrying only a message.
func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": true, "message": message})
}

// respondError maps the error taxonomy to an HTTP status. Unknown errors
// are logged and surfaced as a generic 500.
func respondError(c *gin.Context, err error) {
	status, message := apperrors.StatusOf(err)
	if status == http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "Unexpected error", "error", err, "path", c.FullPath())
	}
	c.JSON(status, gin.H{"success": false, "error": gin.H{"message": message, "statusCode": status}})
}

// respondBindError reports a malformed request body or query.
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": gin.H{
		"message":    "Invalid request",
		"statusCode": http.StatusBadRequest,
		"details":    err.Error(),
	}})
}

// currentUserID returns the authenticated user id set by the middleware.
func currentUserID(c *gin.Context) string {
	id, _ := c.Get("userID")
	s, _ := id.(string)
	return s
}
