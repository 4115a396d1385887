package handlers

import (
	"net/http"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"bookforge/internal/domain"
	"bookforge/internal/entitlement"
)

type planInfo struct {
	Plan         domain.Plan `json:"plan"`
	Name         string      `json:"name"`
	Price        string      `json:"price"`
	DailyCeiling int         `json:"daily_ceiling"` // -1 = unlimited
	Features     []string    `json:"features"`
}

var planCatalog = []planInfo{
	{
		Plan:  domain.PlanBasic,
		Name:  "Basic Plan",
		Price: "$14.97",
		Features: []string{
			"10 generations per day",
			"Text to Image",
			"Image to Image",
			"Email support",
		},
	},
	{
		Plan:  domain.PlanGolden,
		Name:  "Golden Edition",
		Price: "$27",
		Features: []string{
			"50 generations per day",
			"All Basic features",
			"Prompt to Book",
			"Priority support",
		},
	},
	{
		Plan:  domain.PlanUnlimited,
		Name:  "Unlimited Access",
		Price: "$47",
		Features: []string{
			"Unlimited generations",
			"All Golden features",
			"Flipbook Creator",
			"Premium support",
		},
	},
}

var planTitle = cases.Title(language.English)

// planDisplayName returns the marketing name for a plan, falling back to a
// title-cased enum value for anything the catalog does not carry.
func planDisplayName(plan domain.Plan) string {
	for _, info := range planCatalog {
		if info.Plan == plan {
			return info.Name
		}
	}
	return planTitle.String(string(plan))
}

// PlansList serves the plan catalog with ceilings taken from the
// entitlement table, so the two can never drift apart.
func (a *App) PlansList(w http.ResponseWriter, r *http.Request) {
	items := make([]planInfo, len(planCatalog))
	for i, info := range planCatalog {
		limit, unlimited := entitlement.Ceiling(info.Plan)
		if unlimited {
			info.DailyCeiling = -1
		} else {
			info.DailyCeiling = limit
		}
		items[i] = info
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
