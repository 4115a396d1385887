package handlers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/rs/zerolog"

	"bookforge/internal/activation"
	"bookforge/internal/auth"
	"bookforge/internal/domain"
	"bookforge/internal/entitlement"
	"bookforge/internal/infra"
	"bookforge/internal/infra/geoip"
	"bookforge/internal/middleware"
	"bookforge/internal/quota"
	"bookforge/internal/sqlinline"
)

// App bundles the dependencies the HTTP surface needs.
type App struct {
	Config       *infra.Config
	Logger       zerolog.Logger
	Store        domain.ProfileStore
	Auth         *auth.Service
	Meter        *quota.Meter
	Entitlements *entitlement.Manager
	Reconciler   *activation.Reconciler
	Clock        domain.Clock
	SQL          infra.SQLExecutor
	GeoIP        geoip.CountryResolver
	Metrics      *Metrics
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, errorResponse{Error: errCode, Message: message})
}

func (a *App) currentProfileID(r *http.Request) string {
	return middleware.ProfileIDFromContext(r.Context())
}

// recordEvent appends a usage_events audit row. Failures are logged, never
// propagated: the audit trail must not take down the request that fed it.
func (a *App) recordEvent(ctx context.Context, profileID *string, eventType string, success bool, props map[string]any) {
	if a.SQL == nil {
		return
	}
	raw, err := json.Marshal(props)
	if err != nil {
		raw = []byte(`{}`)
	}
	if _, err := a.SQL.Exec(ctx, sqlinline.QInsertUsageEvent, profileID, eventType, success, raw); err != nil {
		a.Logger.Error().Err(err).Str("event_type", eventType).Msg("usage event write failed")
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
