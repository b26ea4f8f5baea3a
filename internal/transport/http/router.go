// Package http assembles the admin API: middleware chain, health and
// metrics endpoints, and the domain handlers mounted behind JWT auth.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"certrail/internal/platform/metrics"
	"certrail/internal/platform/middleware"
)

// Handler mounts routes on a chi router.
type Handler interface {
	Register(r chi.Router)
}

// Deps carries everything the router needs. Nil handlers are skipped so a
// deployment can run a subset of the components.
type Deps struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Validator middleware.TokenValidator

	Tokens         Handler
	Assignments    Handler
	Trainings      Handler
	Certifications Handler
	Compliance     Handler
}

// NewRouter builds the full route tree. Health and metrics stay outside the
// auth boundary.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Latency(deps.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if deps.Tokens != nil {
		r.Group(func(r chi.Router) {
			r.Use(middleware.ContentTypeJSON)
			deps.Tokens.Register(r)
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		if deps.Validator != nil {
			r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
		}
		for _, h := range []Handler{deps.Assignments, deps.Trainings, deps.Certifications, deps.Compliance} {
			if h != nil {
				h.Register(r)
			}
		}
	})

	return r
}
