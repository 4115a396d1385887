package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"bookforge/internal/activation"
	"bookforge/internal/domain"
	"bookforge/internal/entitlement"
	"bookforge/internal/infra"
	"bookforge/internal/quota"
)

// fakeStore is an in-memory ProfileStore with compare-and-swap usage writes
// and a write counter for zero-write assertions.
type fakeStore struct {
	profiles map[string]*domain.Profile
	writes   int
}

func newFakeStore(profiles ...*domain.Profile) *fakeStore {
	s := &fakeStore{profiles: map[string]*domain.Profile{}}
	for _, p := range profiles {
		cp := *p
		s.profiles[p.ID] = &cp
	}
	return s
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	var matches []*domain.Profile
	for _, p := range s.profiles {
		if p.Email == email {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return nil, domain.ErrNotFound
	case 1:
		cp := *matches[0]
		return &cp, nil
	default:
		return nil, domain.ErrIntegrity
	}
}

func (s *fakeStore) UpdatePlan(ctx context.Context, id string, plan domain.Plan) (*domain.Profile, error) {
	s.writes++
	p, ok := s.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p.Plan = plan
	cp := *p
	return &cp, nil
}

func (s *fakeStore) UpdateUsage(ctx context.Context, id string, observedCount int, observedReset string, newCount int, newReset string) (*domain.Profile, error) {
	s.writes++
	p, ok := s.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p.UsageCount != observedCount || p.LastResetDate != observedReset {
		return nil, domain.ErrConcurrencyConflict
	}
	p.UsageCount = newCount
	p.LastResetDate = newReset
	cp := *p
	return &cp, nil
}

// fakeSQL satisfies infra.SQLExecutor for the event/stats paths.
type fakeSQL struct {
	execs []string
	row   func(query string, args ...any) pgx.Row
}

func (f *fakeSQL) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, query)
	return pgconn.CommandTag{}, nil
}

func (f *fakeSQL) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	if f.row == nil {
		return SimpleRow{}
	}
	return f.row(query, args...)
}

// SimpleRow adapts a scan function to pgx.Row.
type SimpleRow struct {
	scan func(dest ...any) error
}

func (r SimpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

var _ infra.SQLExecutor = (*fakeSQL)(nil)

var errVerifierReject = errors.New("purchase rejected")

type rejectVerifier struct{}

func (rejectVerifier) Verify(ctx context.Context, req activation.Request, profile *domain.Profile) error {
	return errVerifierReject
}

const testDay = "2024-01-01"

func newTestApp(store *fakeStore, verifier activation.PurchaseVerifier) (*App, *fakeSQL) {
	logger := zerolog.Nop()
	clock := domain.FixedClock(testDay)
	entitlements := entitlement.NewManager(store, nil, logger)
	sql := &fakeSQL{}
	app := &App{
		Config: &infra.Config{
			JWTSecret:        "test-secret",
			RateLimitPerMin:  1000,
			HTTPReadTimeout:  time.Second,
			HTTPWriteTimeout: time.Second,
		},
		Logger:       logger,
		Store:        store,
		Meter:        quota.NewMeter(store, clock, logger),
		Entitlements: entitlements,
		Reconciler:   activation.NewReconciler(store, entitlements, verifier, logger),
		Clock:        clock,
		SQL:          sql,
		Metrics:      NewMetrics(),
	}
	return app, sql
}
