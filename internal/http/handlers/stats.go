package handlers

import (
	"net/http"

	"bookforge/internal/sqlinline"
)

func (a *App) StatsSummary(w http.ResponseWriter, r *http.Request) {
	row := a.SQL.QueryRow(r.Context(), sqlinline.QStatsSummary)
	var totalProfiles, grantsTotal, denialsTotal, activationsOK, activationsFailed, planChanges, eventsToday, duplicateEmails int64
	if err := row.Scan(&totalProfiles, &grantsTotal, &denialsTotal, &activationsOK, &activationsFailed, &planChanges, &eventsToday, &duplicateEmails); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}
	if duplicateEmails > 0 {
		// Duplicate natural keys block reconciliation; keep it loud.
		a.Logger.Error().Int64("duplicate_emails", duplicateEmails).Msg("profiles with duplicate emails detected")
	}
	a.json(w, http.StatusOK, map[string]any{
		"total_profiles":      totalProfiles,
		"generations_granted": grantsTotal,
		"generations_denied":  denialsTotal,
		"activations_ok":      activationsOK,
		"activations_failed":  activationsFailed,
		"plan_changes":        planChanges,
		"events_today":        eventsToday,
		"duplicate_emails":    duplicateEmails,
	})
}
