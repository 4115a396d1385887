package quota

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"bookforge/internal/domain"
)

// fakeStore applies UpdateUsage with real compare-and-swap semantics so the
// meter's retry loop is exercised against honest conflicts.
type fakeStore struct {
	profiles    map[string]*domain.Profile
	updateCalls int
	// interleave runs at the top of UpdateUsage, simulating a concurrent
	// writer that commits between the meter's read and its write.
	interleave func(s *fakeStore)
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
	p, ok := s.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p.Plan = plan
	cp := *p
	return &cp, nil
}

func (s *fakeStore) UpdateUsage(ctx context.Context, id string, observedCount int, observedReset string, newCount int, newReset string) (*domain.Profile, error) {
	s.updateCalls++
	if s.interleave != nil {
		s.interleave(s)
	}
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

func newTestMeter(store *fakeStore, today string) *Meter {
	return NewMeter(store, domain.FixedClock(today), zerolog.Nop())
}

func profileFixture(plan domain.Plan, used int, lastReset string) *domain.Profile {
	return &domain.Profile{
		ID:            "p-1",
		UserID:        "u-1",
		Email:         "a@x.com",
		Plan:          plan,
		UsageCount:    used,
		LastResetDate: lastReset,
	}
}

func TestCheckQuota(t *testing.T) {
	tests := []struct {
		name      string
		plan      domain.Plan
		used      int
		lastReset string
		today     string
		want      bool
	}{
		{"basic under ceiling", domain.PlanBasic, 9, "2024-01-01", "2024-01-01", true},
		{"basic at ceiling", domain.PlanBasic, 10, "2024-01-01", "2024-01-01", false},
		{"basic over ceiling", domain.PlanBasic, 11, "2024-01-01", "2024-01-01", false},
		{"basic stale counter resets", domain.PlanBasic, 10, "2024-01-01", "2024-01-02", true},
		{"golden under ceiling", domain.PlanGolden, 49, "2024-01-01", "2024-01-01", true},
		{"golden at ceiling", domain.PlanGolden, 50, "2024-01-01", "2024-01-01", false},
		{"unlimited never caps", domain.PlanUnlimited, 100000, "2024-01-01", "2024-01-01", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{profiles: map[string]*domain.Profile{}}
			meter := newTestMeter(store, tc.today)
			if got := meter.CheckQuota(profileFixture(tc.plan, tc.used, tc.lastReset)); got != tc.want {
				t.Fatalf("CheckQuota() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCheckQuotaNeverMutates(t *testing.T) {
	store := &fakeStore{profiles: map[string]*domain.Profile{
		"p-1": profileFixture(domain.PlanBasic, 5, "2024-01-01"),
	}}
	meter := newTestMeter(store, "2024-01-01")
	p, _ := store.GetByID(context.Background(), "p-1")
	for i := 0; i < 50; i++ {
		meter.CheckQuota(p)
	}
	after, _ := store.GetByID(context.Background(), "p-1")
	if *after != *p {
		t.Fatalf("CheckQuota mutated the profile: before %+v after %+v", p, after)
	}
	if store.updateCalls != 0 {
		t.Fatalf("CheckQuota issued %d store writes, want 0", store.updateCalls)
	}
}

func TestRecordUsageIncrementsSameDay(t *testing.T) {
	store := &fakeStore{profiles: map[string]*domain.Profile{
		"p-1": profileFixture(domain.PlanGolden, 7, "2024-01-01"),
	}}
	meter := newTestMeter(store, "2024-01-01")
	updated, err := meter.RecordUsage(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("RecordUsage() unexpected error: %v", err)
	}
	if updated.UsageCount != 8 {
		t.Fatalf("UsageCount = %d, want 8", updated.UsageCount)
	}
	if updated.LastResetDate != "2024-01-01" {
		t.Fatalf("LastResetDate = %q, want unchanged", updated.LastResetDate)
	}
	if updated.Plan != domain.PlanGolden {
		t.Fatalf("Plan = %q, want unchanged", updated.Plan)
	}
}

func TestRecordUsageResetsOnRollover(t *testing.T) {
	store := &fakeStore{profiles: map[string]*domain.Profile{
		"p-1": profileFixture(domain.PlanBasic, 10, "2024-01-01"),
	}}
	meter := newTestMeter(store, "2024-01-02")
	updated, err := meter.RecordUsage(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("RecordUsage() unexpected error: %v", err)
	}
	if updated.UsageCount != 1 {
		t.Fatalf("UsageCount = %d, want 1 after rollover", updated.UsageCount)
	}
	if updated.LastResetDate != "2024-01-02" {
		t.Fatalf("LastResetDate = %q, want %q", updated.LastResetDate, "2024-01-02")
	}
}

func TestRecordUsageRetriesPastLostRace(t *testing.T) {
	store := &fakeStore{profiles: map[string]*domain.Profile{
		"p-1": profileFixture(domain.PlanGolden, 5, "2024-01-01"),
	}}
	raced := false
	store.interleave = func(s *fakeStore) {
		if raced {
			return
		}
		raced = true
		s.profiles["p-1"].UsageCount++ // concurrent writer lands first
	}
	meter := newTestMeter(store, "2024-01-01")
	updated, err := meter.RecordUsage(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("RecordUsage() unexpected error: %v", err)
	}
	// Both the concurrent writer's unit and ours must be counted.
	if updated.UsageCount != 7 {
		t.Fatalf("UsageCount = %d, want 7 (no lost update)", updated.UsageCount)
	}
	if store.updateCalls != 2 {
		t.Fatalf("UpdateUsage calls = %d, want 2", store.updateCalls)
	}
}

func TestRecordUsageSurfacesConflictWhenRetriesExhaust(t *testing.T) {
	store := &fakeStore{profiles: map[string]*domain.Profile{
		"p-1": profileFixture(domain.PlanGolden, 5, "2024-01-01"),
	}}
	store.interleave = func(s *fakeStore) {
		s.profiles["p-1"].UsageCount++ // always loses the race
	}
	meter := newTestMeter(store, "2024-01-01")
	if _, err := meter.RecordUsage(context.Background(), "p-1"); !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("RecordUsage() error = %v, want ErrConcurrencyConflict", err)
	}
	if store.updateCalls != recordRetries {
		t.Fatalf("UpdateUsage calls = %d, want %d", store.updateCalls, recordRetries)
	}
}

func TestRecordUsageUnresolvableCaller(t *testing.T) {
	store := &fakeStore{profiles: map[string]*domain.Profile{}}
	meter := newTestMeter(store, "2024-01-01")

	if _, err := meter.RecordUsage(context.Background(), ""); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("empty id: error = %v, want ErrNotAuthenticated", err)
	}
	if _, err := meter.RecordUsage(context.Background(), "ghost"); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("missing profile: error = %v, want ErrNotAuthenticated", err)
	}
}

// Walks the documented ceiling scenario across a day boundary.
func TestBasicPlanDayBoundaryScenario(t *testing.T) {
	store := &fakeStore{profiles: map[string]*domain.Profile{
		"p-1": profileFixture(domain.PlanBasic, 9, "2024-01-01"),
	}}

	meter := newTestMeter(store, "2024-01-01")
	updated, err := meter.RecordUsage(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("RecordUsage() day 1: %v", err)
	}
	if updated.UsageCount != 10 {
		t.Fatalf("day 1 UsageCount = %d, want 10", updated.UsageCount)
	}
	if meter.CheckQuota(updated) {
		t.Fatalf("CheckQuota() at ceiling = true, want false")
	}

	nextDay := newTestMeter(store, "2024-01-02")
	if !nextDay.CheckQuota(updated) {
		t.Fatalf("CheckQuota() after rollover = false, want true")
	}
	updated, err = nextDay.RecordUsage(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("RecordUsage() day 2: %v", err)
	}
	if updated.UsageCount != 1 || updated.LastResetDate != "2024-01-02" {
		t.Fatalf("day 2 profile = count %d reset %q, want 1 / 2024-01-02", updated.UsageCount, updated.LastResetDate)
	}
}
