package handlers

import (
	"errors"
	"net/http"

	"bookforge/internal/domain"
)

type generationResponse struct {
	Allowed        bool   `json:"allowed"`
	Plan           string `json:"plan"`
	UsedToday      int    `json:"used_today"`
	RemainingToday int    `json:"remaining_today"` // -1 = unlimited
}

// GenerationsCreate is the metering gate in front of the generation
// pipelines: it admits the call under the plan's daily ceiling and advances
// the counter. The pipelines themselves live elsewhere and only run once
// this endpoint has granted a unit.
func (a *App) GenerationsCreate(w http.ResponseWriter, r *http.Request) {
	profileID := a.currentProfileID(r)
	if profileID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing profile context")
		return
	}
	profile, err := a.Store.GetByID(r.Context(), profileID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusUnauthorized, "unauthorized", "profile not found")
			return
		}
		a.Logger.Error().Err(err).Msg("load profile failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load profile")
		return
	}

	if !a.Meter.CheckQuota(profile) {
		if a.Metrics != nil {
			a.Metrics.UsageDenials.Inc()
		}
		a.recordEvent(r.Context(), &profileID, "GENERATION", false, map[string]any{"reason": "quota_exceeded"})
		a.error(w, http.StatusForbidden, "quota_exceeded", "Usage limit reached! Please upgrade your plan.")
		return
	}

	updated, err := a.Meter.RecordUsage(r.Context(), profileID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrConcurrencyConflict):
			if a.Metrics != nil {
				a.Metrics.UsageConflicts.Inc()
			}
			a.error(w, http.StatusConflict, "conflict", "another request updated your usage, please retry")
		case errors.Is(err, domain.ErrNotAuthenticated):
			a.error(w, http.StatusUnauthorized, "unauthorized", "profile not found")
		default:
			a.Logger.Error().Err(err).Msg("record usage failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to record usage")
		}
		return
	}

	if a.Metrics != nil {
		a.Metrics.UsageGrants.Inc()
	}
	a.recordEvent(r.Context(), &profileID, "GENERATION", true, map[string]any{"plan": string(updated.Plan)})

	dto := a.profileDTO(updated)
	a.json(w, http.StatusAccepted, generationResponse{
		Allowed:        true,
		Plan:           dto.Plan,
		UsedToday:      dto.UsedToday,
		RemainingToday: dto.RemainingToday,
	})
}
