package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AbortWithBadRequest sends a 400 Bad Request response and aborts the request.
func AbortWithBadRequest(c *gin.Context, message string, details map[string]interface{}) {
	c.AbortWithStatusJSON(http.StatusBadRequest, NewAPIError(message, details))
}

// AbortWithValidation sends a 400 response carrying the full list of violated
// rules so the caller can show a complete error list.
func AbortWithValidation(c *gin.Context, messages []string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, NewAPIError("validation failed", map[string]interface{}{
		"messages": messages,
	}))
}
