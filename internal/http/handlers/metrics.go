package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bookforge/internal/activation"
)

// Metrics exposes the service counters scraped via /metrics.
type Metrics struct {
	registry *prometheus.Registry

	ActivationOutcomes *prometheus.CounterVec
	UsageGrants        prometheus.Counter
	UsageDenials       prometheus.Counter
	UsageConflicts     prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		ActivationOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bookforge_activation_outcomes_total",
			Help: "Purchase activation attempts by terminal outcome.",
		}, []string{"status", "reason"}),
		UsageGrants: factory.NewCounter(prometheus.CounterOpts{
			Name: "bookforge_usage_grants_total",
			Help: "Metered generation calls admitted under the daily ceiling.",
		}),
		UsageDenials: factory.NewCounter(prometheus.CounterOpts{
			Name: "bookforge_usage_denials_total",
			Help: "Metered generation calls rejected at the daily ceiling.",
		}),
		UsageConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "bookforge_usage_conflicts_total",
			Help: "Usage increments that exhausted their conditional-write retries.",
		}),
	}
}

func (m *Metrics) observeActivation(outcome activation.Outcome) {
	if outcome.Activated {
		m.ActivationOutcomes.WithLabelValues("activated", "").Inc()
		return
	}
	m.ActivationOutcomes.WithLabelValues("failed", string(outcome.Reason)).Inc()
}

// Handler serves the Prometheus exposition endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
