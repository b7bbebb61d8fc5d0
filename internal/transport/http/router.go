// Package httptransport assembles the HTTP surface: public registry routes,
// guarded admin routes, health and metrics.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"registrar/internal/adminauth"
	registryhandler "registrar/internal/registry/handler"
	"registrar/pkg/platform/httputil"
	"registrar/pkg/platform/middleware/metadata"
	"registrar/pkg/platform/middleware/requestid"
	"registrar/pkg/platform/middleware/requesttime"
)

// HealthChecker reports the liveness of one backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router mounts.
type Deps struct {
	Registry *registryhandler.Handler
	Admin    *registryhandler.AdminHandler
	Auth     *adminauth.Service
	Logger   *slog.Logger

	// Optional backends surfaced by /healthz; nil entries are skipped.
	Checks map[string]HealthChecker
}

// NewRouter wires the full route tree.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/healthz", healthHandler(d.Checks))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		d.Registry.Register(r)
	})

	r.Route("/admin", func(r chi.Router) {
		d.Admin.RegisterToken(r)
		r.Group(func(r chi.Router) {
			r.Use(d.Auth.Middleware(d.Logger))
			d.Admin.Register(r)
		})
	})

	return r
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := http.StatusOK
		report := make(map[string]string, len(checks)+1)
		report["status"] = "ok"
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(ctx); err != nil {
				report[name] = "unhealthy"
				report["status"] = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "ok"
		}
		httputil.WriteJSON(w, status, report)
	}
}
