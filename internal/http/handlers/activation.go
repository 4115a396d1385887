package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bookforge/internal/activation"
)

type activationResponse struct {
	Status   string `json:"status"`
	Plan     string `json:"plan,omitempty"`
	PlanName string `json:"plan_name,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Activate is the unauthenticated landing for payment-processor purchase
// notifications: GET /v1/activate/{plan}?email=...&cust_email=...&tid=...
func (a *App) Activate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tid := q.Get("tid")
	if tid == "" {
		tid = q.Get("transaction_id")
	}
	req := activation.Request{
		PlanSegment:   chi.URLParam(r, "plan"),
		Email:         q.Get("email"),
		CustEmail:     q.Get("cust_email"),
		TransactionID: tid,
		SourceIP:      clientIP(r),
	}

	country := ""
	if a.GeoIP != nil {
		if cc, err := a.GeoIP.CountryCode(req.SourceIP); err == nil {
			country = cc
		}
	}

	outcome := a.Reconciler.Reconcile(r.Context(), req)
	if a.Metrics != nil {
		a.Metrics.observeActivation(outcome)
	}
	a.recordEvent(r.Context(), nil, "ACTIVATION", outcome.Activated, map[string]any{
		"plan":           req.PlanSegment,
		"reason":         string(outcome.Reason),
		"transaction_id": req.TransactionID,
		"country":        country,
	})

	if outcome.Activated {
		a.json(w, http.StatusOK, activationResponse{
			Status:   "ACTIVATED",
			Plan:     string(outcome.Plan),
			PlanName: planDisplayName(outcome.Plan),
		})
		return
	}

	code, message := activationFailure(outcome.Reason)
	a.json(w, code, activationResponse{
		Status:  "FAILED",
		Reason:  string(outcome.Reason),
		Message: message,
	})
}

// activationFailure maps a terminal reason to an HTTP status and a message
// safe to show the purchaser. Integrity and persistence details stay in the
// logs.
func activationFailure(reason activation.Reason) (int, string) {
	switch reason {
	case activation.ReasonUnknownPlan:
		return http.StatusBadRequest, "Unknown plan. Please contact support."
	case activation.ReasonMissingIdentity:
		return http.StatusBadRequest, "No email provided. Please contact support."
	case activation.ReasonUnclaimedPurchase:
		return http.StatusNotFound, "No account found for this purchase email. Please register first, then activate again."
	case activation.ReasonUnverifiedPurchase:
		return http.StatusForbidden, "Failed to activate plan. Please contact support."
	default:
		return http.StatusInternalServerError, "Failed to activate plan. Please contact support."
	}
}
