// Package analysis calls the AI gateway to produce a structured diagnostic
// hypothesis for a session and persists the result. One request maps to one
// upstream completion call; retry policy belongs to the caller.
package analysis

import (
	"errors"
	"fmt"

	"github.com/garagelab/autodiag/internal/intake"
)

// Request is the analyze payload. All fields except the session ID are
// optional: anything omitted is loaded from the stored session input, so a
// bare {"sessionId": ...} re-runs the analysis on the original intake data.
type Request struct {
	SessionID        string                  `json:"sessionId"`
	Vehicle          *intake.VehicleIdentity `json:"vehicleData,omitempty"`
	Symptoms         []string                `json:"symptoms,omitempty"`
	FaultCodes       []intake.FaultCode      `json:"dtcCodes,omitempty"`
	TestsAlreadyDone []string                `json:"testsAlreadyDone,omitempty"`
	ImageURLs        []string                `json:"imageUrls,omitempty"`
}

var (
	// ErrRateLimited means the upstream returned 429. Retryable by the user.
	ErrRateLimited = errors.New("ai gateway rate limited")
	// ErrQuotaExhausted means the upstream returned 402. Not retryable until
	// the account is topped up.
	ErrQuotaExhausted = errors.New("ai gateway quota exhausted")
)

// UpstreamError is any other non-2xx status from the AI gateway.
type UpstreamError struct {
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("ai gateway returned status %d", e.Status)
}
