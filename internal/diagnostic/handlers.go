package diagnostic

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/garagelab/autodiag/internal/auth"
	"github.com/garagelab/autodiag/internal/errors"
	"github.com/garagelab/autodiag/internal/intake"
	"github.com/garagelab/autodiag/internal/logger"
	"github.com/gin-gonic/gin"
)

// maxFormMemory caps the in-memory portion of multipart parsing. Ten photos
// at 5 MB each fit; anything beyond spills to temp files and is rejected by
// validation anyway.
const maxFormMemory = 64 << 20

// Handlers exposes the diagnostic session endpoints.
type Handlers struct {
	logger  *logger.Logger
	service *Service
}

// NewHandlers creates the diagnostic HTTP handlers.
func NewHandlers(log *logger.Logger, service *Service) *Handlers {
	return &Handlers{
		logger:  log,
		service: service,
	}
}

// CreateSession handles POST /diagnostics. The body is a multipart form with
// text fields (vin, make, model, year, engine_code, symptoms, fault_codes,
// tests_done) and up to ten image parts under "images".
func (h *Handlers) CreateSession(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		errors.AbortWithUnauthorized(c, "authentication required", nil)
		return
	}

	if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil {
		errors.AbortWithBadRequest(c, "invalid multipart form", nil)
		return
	}

	in := CreateSessionInput{
		Vehicle: intake.VehicleInput{
			VIN:        c.PostForm("vin"),
			Make:       c.PostForm("make"),
			Model:      c.PostForm("model"),
			EngineCode: c.PostForm("engine_code"),
		},
		SymptomsText:  c.PostForm("symptoms"),
		FaultCodeText: c.PostForm("fault_codes"),
		TestsDoneText: c.PostForm("tests_done"),
	}

	var yearErrs []string
	if yearStr := strings.TrimSpace(c.PostForm("year")); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			yearErrs = append(yearErrs, "year: must be a number")
		} else {
			in.Vehicle.Year = year
		}
	}

	images, err := readImages(c)
	if err != nil {
		h.logger.WithContext(c.Request.Context()).Error("failed to read uploaded images", "error", err)
		errors.AbortWithBadRequest(c, "failed to read uploaded images", nil)
		return
	}
	in.Images = images

	session, validationErrs, err := h.service.CreateSession(c.Request.Context(), userID, in)
	validationErrs = append(yearErrs, validationErrs...)
	if len(validationErrs) > 0 {
		errors.AbortWithValidation(c, validationErrs)
		return
	}
	if err != nil {
		h.logger.LogError(c.Request.Context(), err, "failed to create diagnostic session")
		errors.AbortWithInternal(c, "failed to create diagnostic session", nil)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": session.ID})
}

func readImages(c *gin.Context) ([]ImageUpload, error) {
	form := c.Request.MultipartForm
	if form == nil {
		return nil, nil
	}

	var images []ImageUpload
	for _, header := range form.File["images"] {
		f, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(io.LimitReader(f, maxImageSize+1))
		f.Close()
		if err != nil {
			return nil, err
		}
		images = append(images, ImageUpload{Name: header.Filename, Data: data})
	}
	return images, nil
}

// ListSessions handles GET /diagnostics.
func (h *Handlers) ListSessions(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		errors.AbortWithUnauthorized(c, "authentication required", nil)
		return
	}

	sessions, err := h.service.ListSessions(c.Request.Context(), userID)
	if err != nil {
		h.logger.LogError(c.Request.Context(), err, "failed to list diagnostic sessions")
		errors.AbortWithInternal(c, "failed to list diagnostic sessions", nil)
		return
	}
	if sessions == nil {
		sessions = []SessionSummary{}
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// GetSession handles GET /diagnostics/:id.
func (h *Handlers) GetSession(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		errors.AbortWithUnauthorized(c, "authentication required", nil)
		return
	}

	session, err := h.service.GetSession(c.Request.Context(), userID, c.Param("id"))
	if err == ErrAccessDenied {
		errors.AbortWithForbidden(c, errors.SessionNotOwned())
		return
	}
	if err != nil {
		h.logger.LogError(c.Request.Context(), err, "failed to load diagnostic session")
		errors.AbortWithInternal(c, "failed to load diagnostic session", nil)
		return
	}

	c.JSON(http.StatusOK, session)
}

// SubmitFeedback handles POST /diagnostics/:id/feedback.
func (h *Handlers) SubmitFeedback(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		errors.AbortWithUnauthorized(c, "authentication required", nil)
		return
	}

	var in FeedbackInput
	if err := c.ShouldBindJSON(&in); err != nil {
		errors.AbortWithBadRequest(c, "invalid request body", nil)
		return
	}

	validationErrs, err := h.service.SubmitFeedback(c.Request.Context(), userID, c.Param("id"), in)
	if len(validationErrs) > 0 {
		errors.AbortWithValidation(c, validationErrs)
		return
	}
	if err == ErrAccessDenied {
		errors.AbortWithForbidden(c, errors.SessionNotOwned())
		return
	}
	if err == ErrSessionClosed {
		errors.AbortWithConflict(c, "session is already closed", nil)
		return
	}
	if err != nil {
		h.logger.LogError(c.Request.Context(), err, "failed to record feedback")
		errors.AbortWithInternal(c, "failed to record feedback", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
