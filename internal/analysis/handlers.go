package analysis

import (
	"fmt"
	"net/http"

	stderrors "errors"

	"github.com/garagelab/autodiag/internal/auth"
	"github.com/garagelab/autodiag/internal/diagnostic"
	"github.com/garagelab/autodiag/internal/errors"
	"github.com/garagelab/autodiag/internal/logger"
	"github.com/gin-gonic/gin"
)

// Handlers exposes the analysis endpoint.
type Handlers struct {
	logger  *logger.Logger
	service *Service
}

// NewHandlers creates the analysis HTTP handlers.
func NewHandlers(log *logger.Logger, service *Service) *Handlers {
	return &Handlers{
		logger:  log,
		service: service,
	}
}

// Analyze handles POST /diagnostics/:id/analyze. The JSON body is optional;
// an empty body re-runs the analysis on the stored session input. The path
// parameter is authoritative for the session ID.
func (h *Handlers) Analyze(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		errors.AbortWithUnauthorized(c, "authentication required", nil)
		return
	}

	var req Request
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.AbortWithBadRequest(c, "invalid request body", nil)
			return
		}
	}
	req.SessionID = c.Param("id")

	analysis, err := h.service.Analyze(c.Request.Context(), userID, req)
	var upstream *UpstreamError
	switch {
	case err == nil:
	case stderrors.Is(err, diagnostic.ErrAccessDenied):
		errors.AbortWithForbidden(c, errors.SessionNotOwned())
		return
	case stderrors.Is(err, ErrRateLimited):
		errors.AbortWithUpstreamRateLimit(c)
		return
	case stderrors.Is(err, ErrQuotaExhausted):
		errors.AbortWithUpstreamQuotaExhausted(c)
		return
	case stderrors.As(err, &upstream):
		h.logger.LogError(c.Request.Context(), err, "ai gateway returned error status")
		errors.AbortWithInternal(c, fmt.Sprintf("AI API error %d", upstream.Status), nil)
		return
	default:
		h.logger.LogError(c.Request.Context(), err, "ai analysis failed")
		errors.AbortWithInternal(c, "ai analysis failed", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"analysis": analysis,
	})
}
