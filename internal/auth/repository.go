package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pairprep/backend/internal/apperr"
	"github.com/pairprep/backend/internal/models"
)

const (
	userColumns         = `id, external_id, email, name, profile_image, created_at, updated_at`
	foreignKeyViolation = "23503"
)

var ErrUserNotFound = apperr.NotFound("user_not_found", "user not found")

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a user repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.ExternalID, &u.Email, &u.Name, &u.ProfileImage, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByExternalID returns a user by the identity provider's id.
func (r *Repository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE external_id = $1`, externalID))
}

// GetMany returns the users with the given IDs keyed by ID. Unknown IDs are absent.
func (r *Repository) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error) {
	out := make(map[uuid.UUID]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}

// Upsert inserts or updates a user by external id.
func (r *Repository) Upsert(ctx context.Context, u *models.User) (*models.User, error) {
	const q = `INSERT INTO users (external_id, email, name, profile_image)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (external_id) DO UPDATE
		SET email = EXCLUDED.email, name = EXCLUDED.name, profile_image = EXCLUDED.profile_image, updated_at = NOW()
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, u.ExternalID, u.Email, u.Name, u.ProfileImage))
}

// DeleteByExternalID removes a user. Users referenced by sessions are kept for
// history and anonymized instead. Deleting an unknown user is not an error.
func (r *Repository) DeleteByExternalID(ctx context.Context, externalID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM users WHERE external_id = $1`, externalID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		_, err = r.pool.Exec(ctx, `UPDATE users
			SET external_id = 'deleted:' || id::text, email = '', name = 'Deleted user', profile_image = '', updated_at = NOW()
			WHERE external_id = $1`, externalID)
	}
	return err
}
