package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Upstream error responses for the AI completion endpoint. The proxy never
// retries on behalf of the caller; these statuses tell the client whether a
// fresh user-initiated attempt makes sense.

// AbortWithUpstreamRateLimit sends a 429 for an upstream rate limit.
// Retryable: the caller decides whether to resubmit.
func AbortWithUpstreamRateLimit(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, NewAPIError(
		"Too many requests. Please retry in a few moments.", nil))
}

// AbortWithUpstreamQuotaExhausted sends a 402 for exhausted upstream credit.
// Terminal: retrying will not help until an administrator tops up the account.
func AbortWithUpstreamQuotaExhausted(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusPaymentRequired, NewAPIError(
		"Insufficient AI credit. Please contact the administrator.", nil))
}
