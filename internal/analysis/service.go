package analysis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/garagelab/autodiag/internal/diagnostic"
	"github.com/garagelab/autodiag/internal/logger"
	"github.com/garagelab/autodiag/internal/metrics"
)

// sessionStore is the slice of the diagnostic repository the gateway needs.
// UpdateSessionAnalysis has no ownership predicate, so this interface stays
// unexported and Analyze verifies ownership before every write.
type sessionStore interface {
	FindSessionOwner(ctx context.Context, id string) (string, error)
	GetSession(ctx context.Context, id string) (*diagnostic.Session, error)
	UpdateSessionAnalysis(ctx context.Context, id string, a *diagnostic.AIAnalysis) error
}

// Service orchestrates one analysis round trip: authorize, assemble the
// prompt, call the gateway, parse, persist.
type Service struct {
	logger         *logger.Logger
	store          sessionStore
	client         *Client
	triggerTimeout time.Duration
}

// NewService creates the analysis service.
func NewService(log *logger.Logger, store sessionStore, client *Client, triggerTimeout time.Duration) *Service {
	return &Service{
		logger:         log,
		store:          store,
		client:         client,
		triggerTimeout: triggerTimeout,
	}
}

// Analyze runs the AI analysis for the caller's session. Fields omitted from
// the request are loaded from the stored session input. The result is
// persisted on the session before returning.
func (s *Service) Analyze(ctx context.Context, userID string, req Request) (*diagnostic.AIAnalysis, error) {
	ctx = logger.WithSessionID(ctx, req.SessionID)
	log := s.logger.WithContext(ctx).WithComponent("analysis-service")

	owner, err := s.store.FindSessionOwner(ctx, req.SessionID)
	if err == diagnostic.ErrSessionNotFound {
		return nil, diagnostic.ErrAccessDenied
	}
	if err != nil {
		return nil, err
	}
	if owner != userID {
		return nil, diagnostic.ErrAccessDenied
	}

	if err := s.fillFromSession(ctx, &req); err != nil {
		return nil, err
	}

	log.Info("starting ai analysis",
		slog.Int("symptoms", len(req.Symptoms)),
		slog.Int("fault_codes", len(req.FaultCodes)),
		slog.Int("images", len(req.ImageURLs)))

	raw, err := s.client.Complete(ctx, BuildUserContent(req))
	if err != nil {
		metrics.ObserveUpstream(upstreamOutcome(err))
		log.Error("ai analysis failed", "error", err)
		return nil, err
	}
	metrics.ObserveUpstream("success")

	analysis, parseErr := ParseAnalysis(raw)
	if parseErr != nil {
		metrics.ObserveAnalysisFallback()
		log.Warn("model output was not valid json, storing degraded analysis", "error", parseErr)
		analysis = FallbackAnalysis(raw)
	}

	if err := s.store.UpdateSessionAnalysis(ctx, req.SessionID, analysis); err != nil {
		return nil, err
	}

	log.Info("ai analysis persisted", slog.Int("probable_causes", len(analysis.ProbableCauses)))

	return analysis, nil
}

// fillFromSession loads the stored intake data for any request field the
// caller left empty. The session is only fetched when something is missing.
func (s *Service) fillFromSession(ctx context.Context, req *Request) error {
	if req.Vehicle != nil && len(req.Symptoms) > 0 && req.FaultCodes != nil &&
		req.TestsAlreadyDone != nil && req.ImageURLs != nil {
		return nil
	}

	session, err := s.store.GetSession(ctx, req.SessionID)
	if err != nil {
		return err
	}

	if req.Vehicle == nil {
		v := session.Vehicle
		req.Vehicle = &v
	}
	if len(req.Symptoms) == 0 {
		req.Symptoms = session.Input.Symptoms
	}
	if req.FaultCodes == nil {
		req.FaultCodes = session.Input.FaultCodes
	}
	if req.TestsAlreadyDone == nil {
		req.TestsAlreadyDone = session.Input.TestsAlreadyDone
	}
	if req.ImageURLs == nil {
		req.ImageURLs = session.Input.ImageURLs
	}

	return nil
}

func upstreamOutcome(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrQuotaExhausted):
		return "quota_exhausted"
	default:
		var upstream *UpstreamError
		if errors.As(err, &upstream) {
			return "upstream_error"
		}
		return "network_error"
	}
}

// TriggerAnalysis runs the analysis in the background, detached from the
// request that created the session. Failures are logged and dropped; the
// mechanic can always re-run the analysis from the session page.
func (s *Service) TriggerAnalysis(sessionID, userID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.triggerTimeout)
		defer cancel()

		ctx = logger.WithUserID(logger.WithSessionID(ctx, sessionID), userID)

		if _, err := s.Analyze(ctx, userID, Request{SessionID: sessionID}); err != nil {
			s.logger.WithContext(ctx).WithComponent("analysis-service").
				Error("background analysis failed", "error", err)
		}
	}()
}
