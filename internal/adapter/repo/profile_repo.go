package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookforge/internal/domain"
)

const profileColumns = `id, user_id, email, plan, usage_count, last_reset_date, created_at, updated_at`

// ProfileRepositoryPG implements domain.ProfileStore backed by PostgreSQL.
type ProfileRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepositoryPG.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepositoryPG {
	return &ProfileRepositoryPG{pool: pool}
}

// GetByID fetches a profile by UUID.
func (r *ProfileRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	return scanProfile(row)
}

// GetByEmail fetches the unique profile for an email. Zero rows is
// domain.ErrNotFound; more than one is domain.ErrIntegrity, since email is a
// natural key and duplicates are a data problem callers must not paper over.
func (r *ProfileRepositoryPG) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email = $1`, email)
	if err != nil {
		return nil, fmt.Errorf("query profiles by email: %w", err)
	}
	defer rows.Close()

	var matches []*domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles by email: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, domain.ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, domain.ErrIntegrity
	}
}

// UpdatePlan overwrites the plan column and nothing else.
func (r *ProfileRepositoryPG) UpdatePlan(ctx context.Context, id string, plan domain.Plan) (*domain.Profile, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE profiles
SET plan = $2, updated_at = NOW()
WHERE id = $1
RETURNING `+profileColumns, id, plan)
	return scanProfile(row)
}

// UpdateUsage applies a conditional counter write keyed on the observed
// state. A row that moved since the read matches nothing; the caller gets
// domain.ErrConcurrencyConflict and retries from a fresh read.
func (r *ProfileRepositoryPG) UpdateUsage(ctx context.Context, id string, observedCount int, observedReset string, newCount int, newReset string) (*domain.Profile, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE profiles
SET usage_count = $4, last_reset_date = $5::date, updated_at = NOW()
WHERE id = $1 AND usage_count = $2 AND last_reset_date = $3::date
RETURNING `+profileColumns, id, observedCount, observedReset, newCount, newReset)
	p, err := scanProfile(row)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	// No row matched: either the profile is gone or another writer got
	// there first. Re-check so the two are reported distinctly.
	if _, lookupErr := r.GetByID(ctx, id); lookupErr != nil {
		return nil, lookupErr
	}
	return nil, domain.ErrConcurrencyConflict
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	var lastReset time.Time
	if err := row.Scan(&p.ID, &p.UserID, &p.Email, &p.Plan, &p.UsageCount, &lastReset, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.LastResetDate = lastReset.Format(domain.DayFormat)
	return &p, nil
}
