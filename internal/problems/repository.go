package problems

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pairprep/backend/internal/apperr"
	"github.com/pairprep/backend/internal/models"
)

const problemColumns = `id, title, description, difficulty, examples, constraints, starter_code, created_by, is_custom, created_at, updated_at`

var ErrProblemNotFound = apperr.NotFound("problem_not_found", "problem not found")

// Store persists custom problems.
type Store interface {
	Create(ctx context.Context, p *models.Problem) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Problem, error)
}

// Repository handles problem persistence. Examples, constraints and starter code are jsonb.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a problem repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

// Create inserts a problem.
func (r *Repository) Create(ctx context.Context, p *models.Problem) error {
	const q = `INSERT INTO problems (title, description, difficulty, examples, constraints, starter_code, created_by, is_custom)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, p.Title, p.Description, string(p.Difficulty),
		p.Examples, p.Constraints, p.StarterCode, p.CreatedBy, p.IsCustom).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetByID returns a problem by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Problem, error) {
	var p models.Problem
	err := r.pool.QueryRow(ctx, `SELECT `+problemColumns+` FROM problems WHERE id = $1`, id).
		Scan(&p.ID, &p.Title, &p.Description, &p.Difficulty, &p.Examples, &p.Constraints, &p.StarterCode,
			&p.CreatedBy, &p.IsCustom, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProblemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
