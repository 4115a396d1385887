package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"bookforge/internal/domain"
	"bookforge/internal/entitlement"
)

// PlanChangeRepositoryPG records privileged plan writes in the plan_changes
// audit table.
type PlanChangeRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewPlanChangeRepository creates a new PlanChangeRepositoryPG.
func NewPlanChangeRepository(pool *pgxpool.Pool) *PlanChangeRepositoryPG {
	return &PlanChangeRepositoryPG{pool: pool}
}

// RecordPlanChange appends one audit row. The actor is stored verbatim; no
// authorization semantics are attached to it here.
func (r *PlanChangeRepositoryPG) RecordPlanChange(ctx context.Context, profileID string, from, to domain.Plan, actor entitlement.Actor) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO plan_changes (id, profile_id, old_plan, new_plan, actor)
VALUES (gen_random_uuid(), $1, $2, $3, $4)
`, profileID, from, to, actor)
	if err != nil {
		return fmt.Errorf("insert plan change: %w", err)
	}
	return nil
}
