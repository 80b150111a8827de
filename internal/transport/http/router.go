// Package httptransport assembles the HTTP surface: platform middleware,
// health and metrics endpoints, and the feature handlers.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	allochandler "organlink/internal/allocation/handler"
	matchhandler "organlink/internal/matching/handler"
	notifhandler "organlink/internal/notification/handler"
	"organlink/internal/platform/metrics"
	"organlink/internal/platform/middleware"
	"organlink/internal/transport/http/shared"
)

const requestTimeout = 30 * time.Second

// Deps carries everything the router mounts.
type Deps struct {
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	Validator     middleware.TokenValidator
	APIKeyHash    string
	Matching      *matchhandler.Handler
	Allocation    *allochandler.Handler
	Notifications *notifhandler.Handler
}

// NewRouter builds the full middleware chain and mounts every handler.
// Feature routes sit behind hospital authentication; health and metrics do not.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.RequestTime)
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.Latency(deps.Metrics))

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireHospital(deps.Validator, deps.APIKeyHash, deps.Logger))
		deps.Matching.Register(r)
		deps.Allocation.Register(r)
		deps.Notifications.Register(r)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
