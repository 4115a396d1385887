// Package activation maps inbound purchase notifications onto profiles.
//
// The notification channel (a payment-processor redirect) carries no
// authenticated session, so reconciliation correlates purely on email and
// fails closed whenever a precondition cannot be verified. The only state in
// which a write has happened is Activated.
package activation

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"bookforge/internal/domain"
	"bookforge/internal/entitlement"
)

// Reason is the single failure cause carried by a failed outcome.
type Reason string

const (
	ReasonUnknownPlan        Reason = "UNKNOWN_PLAN"
	ReasonMissingIdentity    Reason = "MISSING_IDENTITY"
	ReasonIntegrityError     Reason = "INTEGRITY_ERROR"
	ReasonUnclaimedPurchase  Reason = "UNCLAIMED_PURCHASE"
	ReasonUnverifiedPurchase Reason = "UNVERIFIED_PURCHASE"
	ReasonPersistenceError   Reason = "PERSISTENCE_ERROR"
)

// Request is one activation attempt as delivered by the payment processor.
// Email and CustEmail are the two accepted identity parameter spellings;
// TransactionID is an opaque correlation token that is logged but not
// verified against any payment-authenticity signal.
type Request struct {
	PlanSegment   string
	Email         string
	CustEmail     string
	TransactionID string
	SourceIP      string
}

// IdentityEmail returns the first non-empty identity parameter, normalized.
func (r Request) IdentityEmail() string {
	for _, candidate := range []string{r.Email, r.CustEmail} {
		if v := strings.ToLower(strings.TrimSpace(candidate)); v != "" {
			return v
		}
	}
	return ""
}

// Outcome is the terminal, machine-readable result of one activation.
type Outcome struct {
	Activated bool
	Plan      domain.Plan
	Reason    Reason
}

// PurchaseVerifier authenticates a notification against the matched profile
// before any write happens. It is the seam where a signature/amount/plan
// check slots in; a nil verifier accepts everything (the current, known gap).
type PurchaseVerifier interface {
	Verify(ctx context.Context, req Request, profile *domain.Profile) error
}

// Reconciler drives an activation request through its state machine.
type Reconciler struct {
	store        domain.ProfileStore
	entitlements *entitlement.Manager
	verifier     PurchaseVerifier
	logger       zerolog.Logger
}

func NewReconciler(store domain.ProfileStore, entitlements *entitlement.Manager, verifier PurchaseVerifier, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:        store,
		entitlements: entitlements,
		verifier:     verifier,
		logger:       logger.With().Str("component", "activation").Logger(),
	}
}

// Reconcile validates the request, looks the purchaser up by email and
// overwrites the matched profile's plan. Replaying the identical request is
// idempotent because the underlying operation is a pure overwrite. No
// profile is ever auto-provisioned for an unmatched purchase: generating and
// delivering a credential the purchaser has not chosen over an unverified
// channel is a fail-open path this design rejects.
func (r *Reconciler) Reconcile(ctx context.Context, req Request) Outcome {
	log := r.logger.With().
		Str("plan", req.PlanSegment).
		Str("transaction_id", req.TransactionID).
		Logger()

	plan, err := domain.ParsePlan(strings.ToLower(strings.TrimSpace(req.PlanSegment)))
	if err != nil {
		log.Warn().Msg("activation rejected: unknown plan segment")
		return Outcome{Reason: ReasonUnknownPlan}
	}

	email := req.IdentityEmail()
	if email == "" {
		log.Warn().Msg("activation rejected: no identity parameter present")
		return Outcome{Reason: ReasonMissingIdentity}
	}

	profile, err := r.store.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		log.Info().Msg("activation unclaimed: no profile for purchase email")
		return Outcome{Reason: ReasonUnclaimedPurchase}
	case errors.Is(err, domain.ErrIntegrity):
		log.Error().Msg("activation aborted: multiple profiles share purchase email")
		return Outcome{Reason: ReasonIntegrityError}
	case err != nil:
		log.Error().Err(err).Msg("activation aborted: profile lookup failed")
		return Outcome{Reason: ReasonPersistenceError}
	}

	if r.verifier != nil {
		if err := r.verifier.Verify(ctx, req, profile); err != nil {
			log.Warn().Err(err).Str("profile_id", profile.ID).Msg("activation rejected by purchase verifier")
			return Outcome{Reason: ReasonUnverifiedPurchase}
		}
	}

	if _, err := r.entitlements.SetPlan(ctx, profile.ID, plan, entitlement.ActorReconciler); err != nil {
		log.Error().Err(err).Str("profile_id", profile.ID).Msg("activation aborted: plan write failed")
		return Outcome{Reason: ReasonPersistenceError}
	}

	log.Info().Str("profile_id", profile.ID).Msg("plan activated")
	return Outcome{Activated: true, Plan: plan}
}
