package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"bookforge/internal/auth"
	"bookforge/internal/domain"
	"bookforge/internal/entitlement"
	"bookforge/internal/middleware"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token   string     `json:"token"`
	Profile profileDTO `json:"profile"`
}

type profileDTO struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Plan           string `json:"plan"`
	PlanName       string `json:"plan_name"`
	UsedToday      int    `json:"used_today"`
	DailyCeiling   int    `json:"daily_ceiling"`   // -1 = unlimited
	RemainingToday int    `json:"remaining_today"` // -1 = unlimited
	LastResetDate  string `json:"last_reset_date"`
}

func (a *App) profileDTO(p *domain.Profile) profileDTO {
	today := a.Clock.Today()
	used := p.UsedToday(today)
	limit, unlimited := entitlement.Ceiling(p.Plan)
	ceiling, remaining := limit, limit-used
	if unlimited {
		ceiling, remaining = -1, -1
	} else if remaining < 0 {
		remaining = 0
	}
	return profileDTO{
		ID:             p.ID,
		Email:          p.Email,
		Plan:           string(p.Plan),
		PlanName:       planDisplayName(p.Plan),
		UsedToday:      used,
		DailyCeiling:   ceiling,
		RemainingToday: remaining,
		LastResetDate:  p.LastResetDate,
	}
}

// Register provisions a new identity with a Basic-plan profile.
func (a *App) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	profile, err := a.Auth.Register(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		a.error(w, http.StatusBadRequest, "bad_request", "a valid email and a password of at least 8 characters are required")
		return
	case errors.Is(err, domain.ErrEmailTaken):
		a.error(w, http.StatusConflict, "email_taken", "this email is already registered")
		return
	case err != nil:
		a.Logger.Error().Err(err).Msg("register failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to register")
		return
	}
	a.session(w, http.StatusCreated, profile)
}

// Login authenticates a credential and issues a session token.
func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	profile, err := a.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			a.error(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
			return
		}
		a.Logger.Error().Err(err).Msg("login failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to log in")
		return
	}
	a.session(w, http.StatusOK, profile)
}

func (a *App) session(w http.ResponseWriter, code int, profile *domain.Profile) {
	token, err := middleware.SignSession(a.Config.JWTSecret, profile.ID, string(profile.Plan))
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign session failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}
	a.json(w, code, sessionResponse{Token: token, Profile: a.profileDTO(profile)})
}

// Me returns the authenticated profile and its quota standing.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	profileID := a.currentProfileID(r)
	if profileID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing profile context")
		return
	}
	profile, err := a.Store.GetByID(r.Context(), profileID)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "profile not found")
		return
	}
	a.json(w, http.StatusOK, a.profileDTO(profile))
}

type planChangeRequest struct {
	Plan string `json:"plan"`
}

// ChangePlan is the self-service plan switch behind the upgrade page.
func (a *App) ChangePlan(w http.ResponseWriter, r *http.Request) {
	profileID := a.currentProfileID(r)
	if profileID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing profile context")
		return
	}
	var req planChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	plan, err := domain.ParsePlan(req.Plan)
	if err != nil {
		a.error(w, http.StatusBadRequest, "unknown_plan", "unknown plan")
		return
	}
	updated, err := a.Entitlements.SetPlan(r.Context(), profileID, plan, entitlement.ActorSelfService)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "profile not found")
			return
		}
		a.Logger.Error().Err(err).Msg("self-service plan change failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to change plan")
		return
	}
	a.json(w, http.StatusOK, a.profileDTO(updated))
}
