package diagnostic

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/garagelab/autodiag/internal/intake"
	"github.com/garagelab/autodiag/internal/logger"
	"github.com/google/uuid"
)

// PostgresRepository is the PostgreSQL implementation of Repository.
type PostgresRepository struct {
	logger *logger.Logger
	db     *sql.DB
}

// NewPostgresRepository creates a new repository on the given database.
func NewPostgresRepository(log *logger.Logger, db *sql.DB) *PostgresRepository {
	log.WithComponent("diagnostic-repository").Info("repository initialized")

	return &PostgresRepository{
		logger: log,
		db:     db,
	}
}

// FindVehicleByVIN returns the ID of the vehicle with the given VIN.
func (r *PostgresRepository) FindVehicleByVIN(ctx context.Context, vin string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM vehicles WHERE vin = $1`, vin).Scan(&id)
	if err == sql.ErrNoRows {
		return "", ErrVehicleNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to find vehicle by vin: %w", err)
	}

	return id, nil
}

// InsertVehicle inserts a vehicle row and returns its ID. Two concurrent
// inserts for the same unseen VIN resolve to a single row: the unique
// constraint turns the loser's insert into a read of the winner's row.
func (r *PostgresRepository) InsertVehicle(ctx context.Context, v intake.VehicleIdentity) (string, error) {
	log := r.logger.WithComponent("diagnostic-repository")

	query := `
		INSERT INTO vehicles (id, vin, make, model, year, engine_code)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (vin) DO UPDATE SET vin = EXCLUDED.vin
		RETURNING id
	`

	var id string
	err := r.db.QueryRowContext(ctx, query, uuid.New().String(), v.VIN, v.Make, v.Model, v.Year, v.EngineCode).Scan(&id)
	if err != nil {
		log.Error("failed to insert vehicle",
			slog.String("vin", v.VIN),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("failed to insert vehicle: %w", err)
	}

	log.Debug("vehicle resolved",
		slog.String("vin", v.VIN),
		slog.String("vehicle_id", id))

	return id, nil
}

// InsertSession persists a new session row.
func (r *PostgresRepository) InsertSession(ctx context.Context, s *Session) error {
	log := r.logger.WithComponent("diagnostic-repository")

	inputData, err := json.Marshal(s.Input)
	if err != nil {
		return fmt.Errorf("failed to marshal input payload: %w", err)
	}

	query := `
		INSERT INTO diagnostic_sessions (id, user_id, vehicle_id, status, input_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.ExecContext(ctx, query, s.ID, s.UserID, s.VehicleID, s.Status, inputData, s.CreatedAt)
	if err != nil {
		log.Error("failed to insert session",
			slog.String("session_id", s.ID),
			slog.String("user_id", s.UserID),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to insert session: %w", err)
	}

	log.Debug("session created",
		slog.String("session_id", s.ID),
		slog.String("user_id", s.UserID),
		slog.String("vehicle_id", s.VehicleID))

	return nil
}

// GetSession loads a session with its vehicle. Ownership is not checked
// here; the service decides who may see it.
func (r *PostgresRepository) GetSession(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT s.id, s.user_id, s.vehicle_id, s.status, s.input_data,
		       s.ai_analysis, s.mechanic_feedback, s.created_at, s.closed_at,
		       v.vin, v.make, v.model, v.year, v.engine_code
		FROM diagnostic_sessions s
		JOIN vehicles v ON v.id = s.vehicle_id
		WHERE s.id = $1
	`

	var (
		s          Session
		inputData  []byte
		analysis   []byte
		feedback   []byte
		closedAt   sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.UserID, &s.VehicleID, &s.Status, &inputData,
		&analysis, &feedback, &s.CreatedAt, &closedAt,
		&s.Vehicle.VIN, &s.Vehicle.Make, &s.Vehicle.Model, &s.Vehicle.Year, &s.Vehicle.EngineCode,
	)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := json.Unmarshal(inputData, &s.Input); err != nil {
		return nil, fmt.Errorf("failed to unmarshal input payload: %w", err)
	}
	if len(analysis) > 0 {
		s.Analysis = &AIAnalysis{}
		if err := json.Unmarshal(analysis, s.Analysis); err != nil {
			return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
		}
	}
	if len(feedback) > 0 {
		s.Feedback = &MechanicFeedback{}
		if err := json.Unmarshal(feedback, s.Feedback); err != nil {
			return nil, fmt.Errorf("failed to unmarshal feedback: %w", err)
		}
	}
	if closedAt.Valid {
		s.ClosedAt = &closedAt.Time
	}

	return &s, nil
}

// ListSessions returns the caller's sessions, newest first.
func (r *PostgresRepository) ListSessions(ctx context.Context, userID string) ([]SessionSummary, error) {
	query := `
		SELECT s.id, s.status, v.make, v.model, v.year, s.created_at, s.closed_at
		FROM diagnostic_sessions s
		JOIN vehicles v ON v.id = s.vehicle_id
		WHERE s.user_id = $1
		ORDER BY s.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionSummary
	for rows.Next() {
		var (
			sum      SessionSummary
			closedAt sql.NullTime
		)
		if err := rows.Scan(&sum.ID, &sum.Status, &sum.Make, &sum.Model, &sum.Year, &sum.CreatedAt, &closedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session summary: %w", err)
		}
		if closedAt.Valid {
			sum.ClosedAt = &closedAt.Time
		}
		sessions = append(sessions, sum)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// FindSessionOwner returns the owning user ID for a session. This is the
// credential-scoped read the gateway authorizes against before anything else.
func (r *PostgresRepository) FindSessionOwner(ctx context.Context, id string) (string, error) {
	var owner string
	err := r.db.QueryRowContext(ctx, `SELECT user_id FROM diagnostic_sessions WHERE id = $1`, id).Scan(&owner)
	if err == sql.ErrNoRows {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to find session owner: %w", err)
	}

	return owner, nil
}

// UpdateSessionAnalysis writes the analysis result onto the session row.
// There is no ownership predicate: this is the privileged write reserved for
// the analysis gateway, which verifies ownership before calling it.
func (r *PostgresRepository) UpdateSessionAnalysis(ctx context.Context, id string, a *AIAnalysis) error {
	log := r.logger.WithComponent("diagnostic-repository")

	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE diagnostic_sessions SET ai_analysis = $1 WHERE id = $2`, payload, id)
	if err != nil {
		log.Error("failed to update session analysis",
			slog.String("session_id", id),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to update session analysis: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}

	log.Debug("session analysis persisted", slog.String("session_id", id))

	return nil
}

// CloseSessionWithFeedback stores the feedback and the status transition as
// one atomic update, guarded on the session still being open.
func (r *PostgresRepository) CloseSessionWithFeedback(ctx context.Context, id string, fb *MechanicFeedback, status string, closedAt time.Time) error {
	log := r.logger.WithComponent("diagnostic-repository")

	payload, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}

	query := `
		UPDATE diagnostic_sessions
		SET mechanic_feedback = $1, status = $2, closed_at = $3
		WHERE id = $4 AND status = $5
	`

	result, err := r.db.ExecContext(ctx, query, payload, status, closedAt, id, StatusOpen)
	if err != nil {
		log.Error("failed to close session",
			slog.String("session_id", id),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to close session: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		// Callers verify existence and ownership first, so a zero-row
		// update means the session was already closed.
		return ErrSessionClosed
	}

	log.Info("session closed",
		slog.String("session_id", id),
		slog.String("status", status))

	return nil
}
