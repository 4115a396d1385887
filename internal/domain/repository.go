package domain

import "context"

// ProfileStore defines persistence for profiles.
//
// GetByEmail treats email as a unique natural key: zero rows is ErrNotFound
// and more than one row is ErrIntegrity (a pre-existing data problem the
// caller must not try to repair).
//
// UpdateUsage is a conditional write keyed on the previously observed
// counter state. When the row no longer matches (observedCount,
// observedReset) the store returns ErrConcurrencyConflict and applies
// nothing, so two concurrent increments can never both win with the same
// starting value.
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	UpdatePlan(ctx context.Context, id string, plan Plan) (*Profile, error)
	UpdateUsage(ctx context.Context, id string, observedCount int, observedReset string, newCount int, newReset string) (*Profile, error)
}

// IdentityProvider issues and resolves credentialed identities. Provision
// creates the credential and its Basic-plan profile as one atomic unit and
// returns ErrEmailTaken when the email is already registered.
type IdentityProvider interface {
	Provision(ctx context.Context, email, passwordHash string) (*Profile, error)
	Credentials(ctx context.Context, email string) (profileID, passwordHash string, err error)
}
