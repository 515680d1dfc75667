package diagnostic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/garagelab/autodiag/internal/intake"
	"github.com/garagelab/autodiag/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: slog.LevelError, Format: "text"})
}

// fakeRepo is an in-memory Repository for service tests.
type fakeRepo struct {
	vehicles    map[string]string // vin -> id
	sessions    map[string]*Session
	insertErr   error
	nextVehicle int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		vehicles: make(map[string]string),
		sessions: make(map[string]*Session),
	}
}

func (r *fakeRepo) FindVehicleByVIN(_ context.Context, vin string) (string, error) {
	if id, ok := r.vehicles[vin]; ok {
		return id, nil
	}
	return "", ErrVehicleNotFound
}

func (r *fakeRepo) InsertVehicle(_ context.Context, v intake.VehicleIdentity) (string, error) {
	if id, ok := r.vehicles[v.VIN]; ok {
		return id, nil
	}
	r.nextVehicle++
	id := fmt.Sprintf("vehicle-%d", r.nextVehicle)
	r.vehicles[v.VIN] = id
	return id, nil
}

func (r *fakeRepo) InsertSession(_ context.Context, s *Session) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	copied := *s
	r.sessions[s.ID] = &copied
	return nil
}

func (r *fakeRepo) GetSession(_ context.Context, id string) (*Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeRepo) ListSessions(_ context.Context, userID string) ([]SessionSummary, error) {
	var out []SessionSummary
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, SessionSummary{ID: s.ID, Status: s.Status})
		}
	}
	return out, nil
}

func (r *fakeRepo) FindSessionOwner(_ context.Context, id string) (string, error) {
	s, ok := r.sessions[id]
	if !ok {
		return "", ErrSessionNotFound
	}
	return s.UserID, nil
}

func (r *fakeRepo) UpdateSessionAnalysis(_ context.Context, id string, a *AIAnalysis) error {
	s, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.Analysis = a
	return nil
}

func (r *fakeRepo) CloseSessionWithFeedback(_ context.Context, id string, fb *MechanicFeedback, status string, closedAt time.Time) error {
	s, ok := r.sessions[id]
	if !ok || s.Status != StatusOpen {
		return ErrSessionClosed
	}
	s.Feedback = fb
	s.Status = status
	s.ClosedAt = &closedAt
	return nil
}

type fakeImageStore struct {
	saved   []string
	saveErr error
}

func (f *fakeImageStore) Save(_ context.Context, key, _ string, _ []byte) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.saved = append(f.saved, key)
	return "https://img.test/" + key, nil
}

type fakeTrigger struct {
	sessionIDs []string
}

func (f *fakeTrigger) TriggerAnalysis(sessionID, _ string) {
	f.sessionIDs = append(f.sessionIDs, sessionID)
}

func validCreateInput() CreateSessionInput {
	return CreateSessionInput{
		Vehicle: intake.VehicleInput{
			VIN:   "WVWZZZ1JZ3W386752",
			Make:  "Volkswagen",
			Model: "Golf",
			Year:  2003,
		},
		SymptomsText:  "Ralenti instable\nVoyant moteur allumé",
		FaultCodeText: "P0171 - Mélange trop pauvre\nP0300",
		TestsDoneText: "Lecture OBD",
	}
}

func TestCreateSession(t *testing.T) {
	repo := newFakeRepo()
	trigger := &fakeTrigger{}
	svc := NewService(testLogger(), repo, &fakeImageStore{}, trigger)

	session, validationErrs, err := svc.CreateSession(context.Background(), "user-1", validCreateInput())
	require.NoError(t, err)
	require.Empty(t, validationErrs)

	assert.Equal(t, StatusOpen, session.Status)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, []string{"Ralenti instable", "Voyant moteur allumé"}, session.Input.Symptoms)
	require.Len(t, session.Input.FaultCodes, 2)
	assert.Equal(t, "P0171", session.Input.FaultCodes[0].Code)
	assert.Nil(t, session.Analysis)
	assert.Nil(t, session.Feedback)

	stored, err := repo.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Input, stored.Input)

	assert.Equal(t, []string{session.ID}, trigger.sessionIDs)
}

func TestCreateSessionReusesVehicleByVIN(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(testLogger(), repo, &fakeImageStore{}, nil)

	first, _, err := svc.CreateSession(context.Background(), "user-1", validCreateInput())
	require.NoError(t, err)
	second, _, err := svc.CreateSession(context.Background(), "user-2", validCreateInput())
	require.NoError(t, err)

	assert.Equal(t, first.VehicleID, second.VehicleID)
	assert.Len(t, repo.vehicles, 1)
}

func TestCreateSessionCollectsValidationErrors(t *testing.T) {
	svc := NewService(testLogger(), newFakeRepo(), &fakeImageStore{}, nil)

	in := CreateSessionInput{
		Vehicle: intake.VehicleInput{VIN: "short", Year: 1850},
	}

	session, validationErrs, err := svc.CreateSession(context.Background(), "user-1", in)
	require.NoError(t, err)
	assert.Nil(t, session)
	// vin, make, model, year and the missing symptoms all reported together.
	assert.Len(t, validationErrs, 5)
}

func TestCreateSessionStoresImagesUnderUserPrefix(t *testing.T) {
	store := &fakeImageStore{}
	svc := NewService(testLogger(), newFakeRepo(), store, nil)

	in := validCreateInput()
	in.Images = []ImageUpload{{Name: "moteur avant.png", Data: pngImage()}}

	session, validationErrs, err := svc.CreateSession(context.Background(), "user-1", in)
	require.NoError(t, err)
	require.Empty(t, validationErrs)

	require.Len(t, store.saved, 1)
	assert.Contains(t, store.saved[0], "user-1/")
	assert.Contains(t, store.saved[0], "moteur_avant.png")
	require.Len(t, session.Input.ImageURLs, 1)
	assert.Contains(t, session.Input.ImageURLs[0], "https://img.test/")
}

func TestCreateSessionAbortsWhenImageUploadFails(t *testing.T) {
	repo := newFakeRepo()
	store := &fakeImageStore{saveErr: errors.New("bucket unavailable")}
	svc := NewService(testLogger(), repo, store, nil)

	in := validCreateInput()
	in.Images = []ImageUpload{{Name: "photo.png", Data: pngImage()}}

	_, _, err := svc.CreateSession(context.Background(), "user-1", in)
	require.Error(t, err)
	assert.Empty(t, repo.sessions)
}

func TestGetSessionOwnership(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(testLogger(), repo, &fakeImageStore{}, nil)

	session, _, err := svc.CreateSession(context.Background(), "user-1", validCreateInput())
	require.NoError(t, err)

	got, err := svc.GetSession(context.Background(), "user-1", session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)

	// A foreign session and a missing one both read as access denied.
	_, err = svc.GetSession(context.Background(), "user-2", session.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)
	_, err = svc.GetSession(context.Background(), "user-1", "no-such-session")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestSubmitFeedbackClosesSession(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(testLogger(), repo, &fakeImageStore{}, nil)

	session, _, err := svc.CreateSession(context.Background(), "user-1", validCreateInput())
	require.NoError(t, err)

	validationErrs, err := svc.SubmitFeedback(context.Background(), "user-1", session.ID, FeedbackInput{
		RootCause:     "Fuite d'air à l'admission",
		PartsReplaced: "Joint de collecteur\nDurite PCV",
		Resolved:      true,
	})
	require.NoError(t, err)
	require.Empty(t, validationErrs)

	stored, err := repo.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusClosedResolved, stored.Status)
	require.NotNil(t, stored.Feedback)
	assert.Equal(t, []string{"Joint de collecteur", "Durite PCV"}, stored.Feedback.PartsReplaced)
	assert.NotNil(t, stored.ClosedAt)
}

func TestSubmitFeedbackUnresolved(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(testLogger(), repo, &fakeImageStore{}, nil)

	session, _, err := svc.CreateSession(context.Background(), "user-1", validCreateInput())
	require.NoError(t, err)

	_, err = svc.SubmitFeedback(context.Background(), "user-1", session.ID, FeedbackInput{
		RootCause: "Non trouvé, véhicule reparti",
		Resolved:  false,
	})
	require.NoError(t, err)

	stored, _ := repo.GetSession(context.Background(), session.ID)
	assert.Equal(t, StatusClosedUnresolved, stored.Status)
}

func TestSubmitFeedbackRequiresRootCause(t *testing.T) {
	svc := NewService(testLogger(), newFakeRepo(), &fakeImageStore{}, nil)

	validationErrs, err := svc.SubmitFeedback(context.Background(), "user-1", "any", FeedbackInput{
		RootCause: "   ",
	})
	require.NoError(t, err)
	require.Len(t, validationErrs, 1)
	assert.Contains(t, validationErrs[0], "rootCause: is required")
}

func TestSubmitFeedbackOwnership(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(testLogger(), repo, &fakeImageStore{}, nil)

	session, _, err := svc.CreateSession(context.Background(), "user-1", validCreateInput())
	require.NoError(t, err)

	_, err = svc.SubmitFeedback(context.Background(), "user-2", session.ID, FeedbackInput{RootCause: "x"})
	assert.ErrorIs(t, err, ErrAccessDenied)
	_, err = svc.SubmitFeedback(context.Background(), "user-1", "missing", FeedbackInput{RootCause: "x"})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestSubmitFeedbackTwiceConflicts(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(testLogger(), repo, &fakeImageStore{}, nil)

	session, _, err := svc.CreateSession(context.Background(), "user-1", validCreateInput())
	require.NoError(t, err)

	_, err = svc.SubmitFeedback(context.Background(), "user-1", session.ID, FeedbackInput{RootCause: "bobine", Resolved: true})
	require.NoError(t, err)

	_, err = svc.SubmitFeedback(context.Background(), "user-1", session.ID, FeedbackInput{RootCause: "autre chose"})
	assert.ErrorIs(t, err, ErrSessionClosed)

	// First feedback survives.
	stored, _ := repo.GetSession(context.Background(), session.ID)
	assert.Equal(t, "bobine", stored.Feedback.RootCause)
}
