package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ForbiddenReason represents machine-readable reason codes for 403 errors.
type ForbiddenReason string

const (
	// ReasonSessionNotOwned covers both a foreign session and a missing one:
	// the two are reported identically so callers cannot probe for the
	// existence of other users' sessions.
	ReasonSessionNotOwned ForbiddenReason = "session_not_owned"
	// ReasonOriginNotAllowed is returned when a browser origin is outside the allow-list.
	ReasonOriginNotAllowed ForbiddenReason = "origin_not_allowed"
)

// ForbiddenError represents a standardized 403 Forbidden response.
type ForbiddenError struct {
	Error     string                 `json:"error"`             // Technical error message (for logs)
	UIMessage string                 `json:"uiMessage"`         // User-friendly message (for UI display)
	Reason    ForbiddenReason        `json:"reason"`            // Machine-readable reason code
	Details   map[string]interface{} `json:"details,omitempty"` // Optional context data
}

// NewForbiddenError creates a new ForbiddenError with the given parameters.
func NewForbiddenError(reason ForbiddenReason, errorMsg, uiMessage string, details map[string]interface{}) *ForbiddenError {
	return &ForbiddenError{
		Error:     errorMsg,
		UIMessage: uiMessage,
		Reason:    reason,
		Details:   details,
	}
}

// AbortWithForbidden sends a 403 response with the ForbiddenError and aborts the request.
func AbortWithForbidden(c *gin.Context, err *ForbiddenError) {
	c.AbortWithStatusJSON(http.StatusForbidden, err)
}

// SessionNotOwned creates a ForbiddenError for unauthorized session access.
// The session ID is deliberately not echoed back in the details.
func SessionNotOwned() *ForbiddenError {
	return NewForbiddenError(
		ReasonSessionNotOwned,
		"Session not found or access denied",
		"You don't have permission to access this diagnostic session.",
		nil,
	)
}

// OriginNotAllowed creates a ForbiddenError for requests from disallowed browser origins.
func OriginNotAllowed() *ForbiddenError {
	return NewForbiddenError(
		ReasonOriginNotAllowed,
		"Origin not allowed",
		"Requests from this origin are not permitted.",
		nil,
	)
}
