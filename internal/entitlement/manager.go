// Package entitlement owns the plan-to-ceiling table and the privileged
// plan-write operation. It performs no authorization itself: callers pass an
// opaque actor identifying the capability they hold, and that actor is only
// recorded for audit.
package entitlement

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"bookforge/internal/domain"
)

// Actor identifies the capability invoking a privileged plan write.
type Actor string

const (
	ActorSelfService   Actor = "self-service-upgrade"
	ActorAdminOverride Actor = "admin-override"
	ActorReconciler    Actor = "reconciler"
)

// Daily generation ceilings per plan.
const (
	basicDailyCeiling  = 10
	goldenDailyCeiling = 50
)

// Ceiling returns the daily quota ceiling for a plan. The second result is
// true for plans with no ceiling at all; unknown plans get a zero ceiling so
// an unrepresentable value can never grant access.
func Ceiling(plan domain.Plan) (limit int, unlimited bool) {
	switch plan {
	case domain.PlanBasic:
		return basicDailyCeiling, false
	case domain.PlanGolden:
		return goldenDailyCeiling, false
	case domain.PlanUnlimited:
		return 0, true
	default:
		return 0, false
	}
}

// AuditLog records successful plan overwrites for operator review.
type AuditLog interface {
	RecordPlanChange(ctx context.Context, profileID string, from, to domain.Plan, actor Actor) error
}

// Manager executes privileged plan writes against the profile store.
type Manager struct {
	store  domain.ProfileStore
	audit  AuditLog
	logger zerolog.Logger
}

func NewManager(store domain.ProfileStore, audit AuditLog, logger zerolog.Logger) *Manager {
	return &Manager{store: store, audit: audit, logger: logger.With().Str("component", "entitlement").Logger()}
}

// SetPlan overwrites the profile's plan and nothing else. usage_count and
// last_reset_date are untouched, so replaying the same call converges to the
// same stored state with no cumulative effect.
func (m *Manager) SetPlan(ctx context.Context, profileID string, plan domain.Plan, actor Actor) (*domain.Profile, error) {
	if !plan.Valid() {
		return nil, domain.ErrUnsupportedPlan
	}
	current, err := m.store.GetByID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", profileID, err)
	}
	updated, err := m.store.UpdatePlan(ctx, profileID, plan)
	if err != nil {
		return nil, fmt.Errorf("update plan for %s: %w", profileID, err)
	}
	if m.audit != nil {
		if err := m.audit.RecordPlanChange(ctx, profileID, current.Plan, plan, actor); err != nil {
			// The plan write already committed; a lost audit row is an
			// operator-attention event, not a request failure.
			m.logger.Error().Err(err).Str("profile_id", profileID).Msg("plan change audit write failed")
		}
	}
	m.logger.Info().
		Str("profile_id", profileID).
		Str("actor", string(actor)).
		Str("old_plan", string(current.Plan)).
		Str("new_plan", string(plan)).
		Msg("plan updated")
	return updated, nil
}
