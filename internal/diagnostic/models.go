package diagnostic

import (
	"context"
	"errors"
	"time"

	"github.com/garagelab/autodiag/internal/intake"
)

// Session lifecycle. A session is created open and moves to exactly one of
// the closed states when mechanic feedback is submitted; it is never reopened.
const (
	StatusOpen             = "open"
	StatusClosedResolved   = "closed-resolved"
	StatusClosedUnresolved = "closed-unresolved"
)

var (
	// ErrVehicleNotFound is returned when no vehicle matches the VIN.
	ErrVehicleNotFound = errors.New("vehicle not found")
	// ErrSessionNotFound is returned when no session matches the ID.
	// Handlers must not distinguish it from ErrAccessDenied in responses.
	ErrSessionNotFound = errors.New("session not found")
	// ErrAccessDenied is returned when the caller does not own the session.
	ErrAccessDenied = errors.New("session access denied")
	// ErrSessionClosed is returned when feedback targets an already-closed session.
	ErrSessionClosed = errors.New("session already closed")
)

// InputPayload is everything the mechanic submitted for one session.
type InputPayload struct {
	Symptoms         []string           `json:"symptoms"`
	FaultCodes       []intake.FaultCode `json:"fault_codes"`
	TestsAlreadyDone []string           `json:"tests_already_done"`
	ImageURLs        []string           `json:"image_urls"`
}

// ProbableCause is one ranked hypothesis from the model. Probability is in
// [0,1]; list order is significance order.
type ProbableCause struct {
	Cause       string  `json:"cause"`
	Probability float64 `json:"probabilite"`
}

// AIAnalysis is the structured diagnostic hypothesis. The wire keys are the
// French field names the model is instructed to emit; they are stored and
// served verbatim so the client schema and the prompt schema stay identical.
type AIAnalysis struct {
	ProblemSummary  string          `json:"resume_probleme"`
	ProbableCauses  []ProbableCause `json:"causes_probables"`
	TestsToDo       []string        `json:"tests_a_faire"`
	DiagnosticLogic string          `json:"logique_diagnostic"`
	Warning         string          `json:"attention,omitempty"`
}

// MechanicFeedback is the post-repair outcome recorded when closing a session.
type MechanicFeedback struct {
	RootCause     string   `json:"root_cause"`
	PartsReplaced []string `json:"parts_replaced"`
	Notes         string   `json:"notes,omitempty"`
	Resolved      bool     `json:"resolved"`
}

// Session is one diagnostic engagement for one vehicle, from intake to
// mechanic resolution.
type Session struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"-"`
	VehicleID string                 `json:"vehicle_id"`
	Vehicle   intake.VehicleIdentity `json:"vehicle"`
	Status    string                 `json:"status"`
	Input     InputPayload           `json:"input_data"`
	Analysis  *AIAnalysis            `json:"ai_analysis,omitempty"`
	Feedback  *MechanicFeedback      `json:"mechanic_feedback,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	ClosedAt  *time.Time             `json:"closed_at,omitempty"`
}

// SessionSummary is the dashboard listing row.
type SessionSummary struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	Make      string     `json:"make"`
	Model     string     `json:"model"`
	Year      int        `json:"year"`
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// Repository is the storage contract for vehicles and sessions. The concrete
// engine is an external collaborator; business rules live in the service.
type Repository interface {
	FindVehicleByVIN(ctx context.Context, vin string) (string, error)
	InsertVehicle(ctx context.Context, v intake.VehicleIdentity) (string, error)
	InsertSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context, userID string) ([]SessionSummary, error)
	FindSessionOwner(ctx context.Context, id string) (string, error)
	UpdateSessionAnalysis(ctx context.Context, id string, a *AIAnalysis) error
	CloseSessionWithFeedback(ctx context.Context, id string, fb *MechanicFeedback, status string, closedAt time.Time) error
}
