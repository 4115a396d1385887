// Package quota enforces and advances the per-day usage counter on a
// profile.
package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"bookforge/internal/domain"
	"bookforge/internal/entitlement"
)

// recordRetries bounds how often RecordUsage replays its read/conditional
// write loop before surfacing the conflict to the caller.
const recordRetries = 3

// Meter meters generation calls against the profile's plan ceiling.
type Meter struct {
	store  domain.ProfileStore
	clock  domain.Clock
	logger zerolog.Logger
}

func NewMeter(store domain.ProfileStore, clock domain.Clock, logger zerolog.Logger) *Meter {
	return &Meter{store: store, clock: clock, logger: logger.With().Str("component", "quota").Logger()}
}

// CheckQuota reports whether the profile may consume one more generation
// today. Pure predicate: it never mutates anything, however often it runs.
func (m *Meter) CheckQuota(profile *domain.Profile) bool {
	if profile == nil {
		return false
	}
	limit, unlimited := entitlement.Ceiling(profile.Plan)
	if unlimited {
		return true
	}
	return profile.UsedToday(m.clock.Today()) < limit
}

// RecordUsage applies one unit of usage as an atomic read-modify-write. On a
// day rollover the counter restarts at 1; otherwise it increments. The write
// is conditional on the counter state observed during the read, so two
// concurrent calls cannot both apply +1 over the same starting value; the
// loser re-reads and retries, and after recordRetries attempts the conflict
// is returned for the caller to retry.
func (m *Meter) RecordUsage(ctx context.Context, profileID string) (*domain.Profile, error) {
	if profileID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	for attempt := 0; attempt < recordRetries; attempt++ {
		profile, err := m.store.GetByID(ctx, profileID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrNotAuthenticated
			}
			return nil, fmt.Errorf("load profile %s: %w", profileID, err)
		}
		today := m.clock.Today()
		newCount := 1
		if profile.LastResetDate == today {
			newCount = profile.UsageCount + 1
		}
		updated, err := m.store.UpdateUsage(ctx, profileID, profile.UsageCount, profile.LastResetDate, newCount, today)
		if err != nil {
			if errors.Is(err, domain.ErrConcurrencyConflict) {
				m.logger.Debug().Str("profile_id", profileID).Int("attempt", attempt+1).Msg("usage update lost race, retrying")
				continue
			}
			return nil, fmt.Errorf("record usage for %s: %w", profileID, err)
		}
		return updated, nil
	}
	return nil, domain.ErrConcurrencyConflict
}
