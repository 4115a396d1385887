package domain

import "time"

// Plan enumerates the purchasable subscription tiers.
type Plan string

const (
	PlanBasic     Plan = "basic"
	PlanGolden    Plan = "golden"
	PlanUnlimited Plan = "unlimited"
)

// ParsePlan maps an external plan segment onto the enum. Unknown values are
// rejected so nothing outside the three tiers is ever representable.
func ParsePlan(s string) (Plan, error) {
	switch Plan(s) {
	case PlanBasic, PlanGolden, PlanUnlimited:
		return Plan(s), nil
	default:
		return "", ErrUnsupportedPlan
	}
}

// Valid reports whether p is one of the enumerated plans.
func (p Plan) Valid() bool {
	_, err := ParsePlan(string(p))
	return err == nil
}

// DayFormat is the canonical calendar-day representation (UTC).
const DayFormat = "2006-01-02"

// Profile represents one account's entitlement record.
type Profile struct {
	ID            string
	UserID        string
	Email         string
	Plan          Plan
	UsageCount    int
	LastResetDate string // UTC calendar day, DayFormat
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UsedToday returns the usage count relative to the given day. A profile
// whose counter was last reset on an earlier day counts as zero until the
// next metered write normalizes it.
func (p Profile) UsedToday(today string) int {
	if p.LastResetDate != today {
		return 0
	}
	return p.UsageCount
}
