package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"bookforge/internal/http/handlers"
	"bookforge/internal/middleware"
)

// NewRouter builds the versioned HTTP surface. Activation is deliberately
// outside the authenticated group: the payment processor redirect carries no
// session.
func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Config.CORSOrigins),
		middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/plans", app.PlansList)
	r.Get("/v1/activate/{plan}", app.Activate)
	r.Get("/v1/stats/summary", app.StatsSummary)

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/register", app.Register)
		r.Post("/login", app.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(app.Config.JWTSecret))
		r.Get("/v1/me", app.Me)
		r.Post("/v1/me/plan", app.ChangePlan)
		r.Post("/v1/generations", app.GenerationsCreate)
	})

	if app.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", app.Metrics.Handler())
	}

	return r
}
