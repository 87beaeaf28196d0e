package sessions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pairprep/backend/internal/models"
)

const (
	sessionColumns = `id, problem, difficulty, custom_problem_id, host_id, participant_id, call_id, status, created_at, updated_at`

	uniqueViolation        = "23505"
	callIDUniqueConstraint = "sessions_call_id_key"
)

// Store is the durable record of sessions. Transitions are conditional updates:
// they return ErrStaleState instead of overwriting when their guard does not hold.
type Store interface {
	Create(ctx context.Context, s *models.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	AssignParticipant(ctx context.Context, id, participantID uuid.UUID) (*models.Session, error)
	Complete(ctx context.Context, id, hostID uuid.UUID) (*models.Session, error)
	ListByStatus(ctx context.Context, status models.SessionStatus, limit int) ([]models.Session, error)
	ListForUser(ctx context.Context, userID uuid.UUID, status models.SessionStatus, limit int) ([]models.Session, error)
}

// Repository handles session persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a session repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

func scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.Problem, &s.Difficulty, &s.CustomProblemID, &s.HostID, &s.ParticipantID,
		&s.CallID, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new session. The status is written explicitly.
func (r *Repository) Create(ctx context.Context, s *models.Session) error {
	const q = `INSERT INTO sessions (problem, difficulty, custom_problem_id, host_id, call_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, participant_id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, s.Problem, string(s.Difficulty), s.CustomProblemID, s.HostID, s.CallID, string(s.Status)).
		Scan(&s.ID, &s.ParticipantID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == callIDUniqueConstraint {
			return ErrDuplicateCallID
		}
		return err
	}
	return nil
}

// GetByID returns a session by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s, err := scanSession(r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return s, err
}

// AssignParticipant sets the participant only if the seat is free, the session is
// active and the caller is not the host. Exactly one of several racing callers wins.
func (r *Repository) AssignParticipant(ctx context.Context, id, participantID uuid.UUID) (*models.Session, error) {
	const q = `UPDATE sessions SET participant_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'active' AND participant_id IS NULL AND host_id <> $2
		RETURNING ` + sessionColumns
	s, err := scanSession(r.pool.QueryRow(ctx, q, id, participantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStaleState
	}
	return s, err
}

// Complete moves an active session to completed, guarded on host and status.
func (r *Repository) Complete(ctx context.Context, id, hostID uuid.UUID) (*models.Session, error) {
	const q = `UPDATE sessions SET status = 'completed', updated_at = NOW()
		WHERE id = $1 AND host_id = $2 AND status = 'active'
		RETURNING ` + sessionColumns
	s, err := scanSession(r.pool.QueryRow(ctx, q, id, hostID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStaleState
	}
	return s, err
}

// ListByStatus returns the newest sessions in the given status.
func (r *Repository) ListByStatus(ctx context.Context, status models.SessionStatus, limit int) ([]models.Session, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+sessionColumns+` FROM sessions
		WHERE status = $1 ORDER BY created_at DESC LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

// ListForUser returns the newest sessions in the given status where userID is host or participant.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, status models.SessionStatus, limit int) ([]models.Session, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+sessionColumns+` FROM sessions
		WHERE status = $1 AND (host_id = $2 OR participant_id = $2)
		ORDER BY created_at DESC LIMIT $3`, string(status), userID, limit)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

func collectSessions(rows pgx.Rows) ([]models.Session, error) {
	defer rows.Close()
	list := make([]models.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}
