package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/flashquiz/pkg/metrics"
)

// Checker reports whether the service can take traffic.
type Checker interface {
	Ready() error
}

// HealthHandler serves the metrics registry as the liveness endpoint.
type HealthHandler struct {
	check   Checker
	metrics http.Handler
}

// NewHealthHandler creates a health handler. A nil check is always ready.
func NewHealthHandler(check Checker) *HealthHandler {
	return &HealthHandler{
		check:   check,
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleHealth answers GET /healthz with a Prometheus scrape, or 503 while the
// service is stopped.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.check != nil {
		if err := h.check.Ready(); err != nil {
			fail(w, Wrap("health", err))
			return
		}
	}
	h.metrics.ServeHTTP(w, r)
}
