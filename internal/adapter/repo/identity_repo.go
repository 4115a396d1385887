package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookforge/internal/domain"
)

// IdentityRepositoryPG implements domain.IdentityProvider backed by
// PostgreSQL. The credential row and the profile row are written in a single
// statement so provisioning can never leave a credential without a profile.
type IdentityRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewIdentityRepository creates a new IdentityRepositoryPG.
func NewIdentityRepository(pool *pgxpool.Pool) *IdentityRepositoryPG {
	return &IdentityRepositoryPG{pool: pool}
}

// Provision creates the credential and its Basic-plan profile atomically.
func (r *IdentityRepositoryPG) Provision(ctx context.Context, email, passwordHash string) (*domain.Profile, error) {
	userID := uuid.NewString()
	profileID := uuid.NewString()
	row := r.pool.QueryRow(ctx, `
WITH cred AS (
    INSERT INTO credentials (user_id, email, password_hash)
    VALUES ($1, $2, $3)
    RETURNING user_id
)
INSERT INTO profiles (id, user_id, email, plan, usage_count, last_reset_date)
SELECT $4, cred.user_id, $2, 'basic', 0, CURRENT_DATE
FROM cred
RETURNING `+profileColumns, userID, email, passwordHash, profileID)

	p, err := scanProfile(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("provision identity: %w", err)
	}
	return p, nil
}

// Credentials resolves the profile and password hash for an email.
func (r *IdentityRepositoryPG) Credentials(ctx context.Context, email string) (string, string, error) {
	row := r.pool.QueryRow(ctx, `
SELECT p.id, c.password_hash
FROM credentials c
JOIN profiles p ON p.user_id = c.user_id
WHERE c.email = $1
`, email)
	var profileID, hash string
	if err := row.Scan(&profileID, &hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", domain.ErrNotFound
		}
		return "", "", fmt.Errorf("load credentials: %w", err)
	}
	return profileID, hash, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
