package entitlement

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"bookforge/internal/domain"
)

type fakeStore struct {
	profiles  map[string]*domain.Profile
	planWrite int
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
	return nil, domain.ErrNotFound
}

func (s *fakeStore) UpdatePlan(ctx context.Context, id string, plan domain.Plan) (*domain.Profile, error) {
	s.planWrite++
	p, ok := s.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p.Plan = plan
	cp := *p
	return &cp, nil
}

func (s *fakeStore) UpdateUsage(ctx context.Context, id string, observedCount int, observedReset string, newCount int, newReset string) (*domain.Profile, error) {
	return nil, errors.New("unexpected usage write")
}

type auditEntry struct {
	profileID string
	from, to  domain.Plan
	actor     Actor
}

type fakeAudit struct {
	entries []auditEntry
	fail    bool
}

func (a *fakeAudit) RecordPlanChange(ctx context.Context, profileID string, from, to domain.Plan, actor Actor) error {
	if a.fail {
		return errors.New("audit unavailable")
	}
	a.entries = append(a.entries, auditEntry{profileID, from, to, actor})
	return nil
}

func TestCeilingIsTotal(t *testing.T) {
	tests := []struct {
		plan          domain.Plan
		wantLimit     int
		wantUnlimited bool
	}{
		{domain.PlanBasic, 10, false},
		{domain.PlanGolden, 50, false},
		{domain.PlanUnlimited, 0, true},
		{domain.Plan("enterprise"), 0, false}, // unrepresentable plans grant nothing
	}
	for _, tc := range tests {
		limit, unlimited := Ceiling(tc.plan)
		if limit != tc.wantLimit || unlimited != tc.wantUnlimited {
			t.Fatalf("Ceiling(%q) = (%d, %v), want (%d, %v)", tc.plan, limit, unlimited, tc.wantLimit, tc.wantUnlimited)
		}
	}
}

func TestSetPlanOverwritesPlanOnly(t *testing.T) {
	store := &fakeStore{profiles: map[string]*domain.Profile{
		"p-1": {ID: "p-1", Email: "a@x.com", Plan: domain.PlanBasic, UsageCount: 4, LastResetDate: "2024-01-01"},
	}}
	audit := &fakeAudit{}
	mgr := NewManager(store, audit, zerolog.Nop())

	updated, err := mgr.SetPlan(context.Background(), "p-1", domain.PlanGolden, ActorAdminOverride)
	if err != nil {
		t.Fatalf("SetPlan() unexpected error: %v", err)
	}
	if updated.Plan != domain.PlanGolden {
		t.Fatalf("Plan = %q, want golden", updated.Plan)
	}
	if updated.UsageCount != 4 || updated.LastResetDate != "2024-01-01" {
		t.Fatalf("usage state changed: count %d reset %q", updated.UsageCount, updated.LastResetDate)
	}
	if len(audit.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(audit.entries))
	}
	entry := audit.entries[0]
	if entry.from != domain.PlanBasic || entry.to != domain.PlanGolden || entry.actor != ActorAdminOverride {
		t.Fatalf("audit entry = %+v", entry)
	}
}

func TestSetPlanIsIdempotent(t *testing.T) {
	store := &fakeStore{profiles: map[string]*domain.Profile{
		"p-1": {ID: "p-1", Plan: domain.PlanBasic, UsageCount: 9, LastResetDate: "2024-01-01"},
	}}
	mgr := NewManager(store, &fakeAudit{}, zerolog.Nop())

	first, err := mgr.SetPlan(context.Background(), "p-1", domain.PlanUnlimited, ActorReconciler)
	if err != nil {
		t.Fatalf("SetPlan() first call: %v", err)
	}
	second, err := mgr.SetPlan(context.Background(), "p-1", domain.PlanUnlimited, ActorReconciler)
	if err != nil {
		t.Fatalf("SetPlan() second call: %v", err)
	}
	if first.Plan != second.Plan || first.UsageCount != second.UsageCount || first.LastResetDate != second.LastResetDate {
		t.Fatalf("replay diverged: first %+v second %+v", first, second)
	}
}

func TestSetPlanRejectsUnknownPlan(t *testing.T) {
	store := &fakeStore{profiles: map[string]*domain.Profile{
		"p-1": {ID: "p-1", Plan: domain.PlanBasic},
	}}
	mgr := NewManager(store, &fakeAudit{}, zerolog.Nop())

	if _, err := mgr.SetPlan(context.Background(), "p-1", domain.Plan("platinum"), ActorSelfService); !errors.Is(err, domain.ErrUnsupportedPlan) {
		t.Fatalf("SetPlan() error = %v, want ErrUnsupportedPlan", err)
	}
	if store.planWrite != 0 {
		t.Fatalf("plan writes = %d, want 0", store.planWrite)
	}
}

func TestSetPlanMissingProfile(t *testing.T) {
	mgr := NewManager(&fakeStore{profiles: map[string]*domain.Profile{}}, &fakeAudit{}, zerolog.Nop())
	if _, err := mgr.SetPlan(context.Background(), "ghost", domain.PlanGolden, ActorAdminOverride); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("SetPlan() error = %v, want ErrNotFound", err)
	}
}

func TestSetPlanSurvivesAuditFailure(t *testing.T) {
	store := &fakeStore{profiles: map[string]*domain.Profile{
		"p-1": {ID: "p-1", Plan: domain.PlanBasic},
	}}
	mgr := NewManager(store, &fakeAudit{fail: true}, zerolog.Nop())

	updated, err := mgr.SetPlan(context.Background(), "p-1", domain.PlanGolden, ActorAdminOverride)
	if err != nil {
		t.Fatalf("SetPlan() unexpected error: %v", err)
	}
	if updated.Plan != domain.PlanGolden {
		t.Fatalf("Plan = %q, want golden despite audit failure", updated.Plan)
	}
}
