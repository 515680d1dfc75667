package diagnostic

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/garagelab/autodiag/internal/intake"
	"github.com/garagelab/autodiag/internal/logger"
	"github.com/google/uuid"
)

// ImageStore persists uploaded photos and returns a URL the client can load.
type ImageStore interface {
	Save(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// AnalysisTrigger kicks off AI analysis for a freshly created session. The
// concrete implementation lives in the analysis package and is injected at
// wiring time; session creation must never block on it.
type AnalysisTrigger interface {
	TriggerAnalysis(sessionID, userID string)
}

// CreateSessionInput is the raw intake form before parsing and validation.
type CreateSessionInput struct {
	Vehicle       intake.VehicleInput
	SymptomsText  string
	FaultCodeText string
	TestsDoneText string
	Images        []ImageUpload
}

// FeedbackInput is the close-out form submitted by the mechanic.
type FeedbackInput struct {
	RootCause     string `json:"rootCause"`
	PartsReplaced string `json:"partsReplaced"`
	Notes         string `json:"notes"`
	Resolved      bool   `json:"resolved"`
}

// Service implements the diagnostic session lifecycle.
type Service struct {
	logger  *logger.Logger
	repo    Repository
	images  ImageStore
	trigger AnalysisTrigger
}

// NewService creates the diagnostic service. trigger may be nil in tests.
func NewService(log *logger.Logger, repo Repository, images ImageStore, trigger AnalysisTrigger) *Service {
	return &Service{
		logger:  log,
		repo:    repo,
		images:  images,
		trigger: trigger,
	}
}

// CreateSession validates the intake form, resolves the vehicle, stores the
// photos and persists a new open session. Validation problems come back as a
// string slice covering every violated rule; the error return is reserved for
// infrastructure failures.
func (s *Service) CreateSession(ctx context.Context, userID string, in CreateSessionInput) (*Session, []string, error) {
	log := s.logger.WithContext(ctx).WithComponent("diagnostic-service")

	var validationErrs []string

	vehicle, vehicleErrs := intake.ValidateVehicle(in.Vehicle)
	validationErrs = append(validationErrs, vehicleErrs...)

	symptoms := intake.ParseLines(in.SymptomsText)
	if len(symptoms) == 0 {
		validationErrs = append(validationErrs, "symptoms: at least one symptom is required")
	}

	imageTypes, imageErrs := ValidateImages(in.Images)
	validationErrs = append(validationErrs, imageErrs...)

	if len(validationErrs) > 0 {
		return nil, validationErrs, nil
	}

	vehicleID, err := s.repo.FindVehicleByVIN(ctx, vehicle.VIN)
	if err == ErrVehicleNotFound {
		vehicleID, err = s.repo.InsertVehicle(ctx, vehicle)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve vehicle: %w", err)
	}

	imageURLs, err := s.storeImages(ctx, userID, in.Images, imageTypes)
	if err != nil {
		return nil, nil, err
	}

	session := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		VehicleID: vehicleID,
		Vehicle:   vehicle,
		Status:    StatusOpen,
		Input: InputPayload{
			Symptoms:         symptoms,
			FaultCodes:       intake.ParseFaultCodes(in.FaultCodeText),
			TestsAlreadyDone: intake.ParseLines(in.TestsDoneText),
			ImageURLs:        imageURLs,
		},
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.InsertSession(ctx, session); err != nil {
		return nil, nil, err
	}

	log.Info("diagnostic session created",
		slog.String("session_id", session.ID),
		slog.String("vin", vehicle.VIN),
		slog.Int("fault_codes", len(session.Input.FaultCodes)),
		slog.Int("images", len(imageURLs)))

	if s.trigger != nil {
		s.trigger.TriggerAnalysis(session.ID, userID)
	}

	return session, nil, nil
}

// storeImages uploads each photo under a caller-scoped key. A single failed
// upload aborts the whole creation; a session without its evidence photos is
// worse than a retried form.
func (s *Service) storeImages(ctx context.Context, userID string, images []ImageUpload, types []string) ([]string, error) {
	var urls []string
	for i, img := range images {
		key := fmt.Sprintf("%s/%d-%s-%s", userID, time.Now().UnixMilli(), uuid.New().String()[:8], sanitizeFilename(img.Name))
		url, err := s.images.Save(ctx, key, types[i], img.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to store image %s: %w", img.Name, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func sanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "photo"
	}
	return strings.ReplaceAll(base, " ", "_")
}

// GetSession returns one session for its owner. Foreign and unknown sessions
// are both reported as ErrAccessDenied so the response does not leak which
// session IDs exist.
func (s *Service) GetSession(ctx context.Context, userID, sessionID string) (*Session, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err == ErrSessionNotFound {
		return nil, ErrAccessDenied
	}
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrAccessDenied
	}
	return session, nil
}

// ListSessions returns the caller's session history, newest first.
func (s *Service) ListSessions(ctx context.Context, userID string) ([]SessionSummary, error) {
	return s.repo.ListSessions(ctx, userID)
}

// SubmitFeedback records the mechanic's resolution and closes the session.
// The status transition is atomic: two concurrent submissions cannot both
// close the same session.
func (s *Service) SubmitFeedback(ctx context.Context, userID, sessionID string, in FeedbackInput) ([]string, error) {
	log := s.logger.WithContext(ctx).WithComponent("diagnostic-service")

	rootCause := strings.TrimSpace(in.RootCause)
	if rootCause == "" {
		return []string{"rootCause: is required"}, nil
	}

	owner, err := s.repo.FindSessionOwner(ctx, sessionID)
	if err == ErrSessionNotFound {
		return nil, ErrAccessDenied
	}
	if err != nil {
		return nil, err
	}
	if owner != userID {
		return nil, ErrAccessDenied
	}

	status := StatusClosedUnresolved
	if in.Resolved {
		status = StatusClosedResolved
	}

	feedback := &MechanicFeedback{
		RootCause:     rootCause,
		PartsReplaced: intake.ParseLines(in.PartsReplaced),
		Notes:         strings.TrimSpace(in.Notes),
		Resolved:      in.Resolved,
	}

	if err := s.repo.CloseSessionWithFeedback(ctx, sessionID, feedback, status, time.Now().UTC()); err != nil {
		return nil, err
	}

	log.Info("mechanic feedback recorded",
		slog.String("session_id", sessionID),
		slog.Bool("resolved", in.Resolved))

	return nil, nil
}
