package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"shiftguard/pkg/platform/httputil"
	authmw "shiftguard/pkg/platform/middleware/auth"
	request "shiftguard/pkg/platform/middleware/request"
	"shiftguard/pkg/platform/middleware/requesttime"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// AdminRoutes registers endpoints behind the admin bearer check.
type AdminRoutes interface {
	Register(r chi.Router)
}

type Deps struct {
	Logger    *slog.Logger
	Metrics   http.Handler
	Validator authmw.JWTValidator
	Admin     AdminRoutes
	Checks    map[string]HealthCheck
}

// NewRouter wires the ops surface: health, metrics and the admin routes.
// The admin routes are mounted only when a validator is configured.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(d.Logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", healthHandler(d.Checks))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	if d.Validator != nil && d.Admin != nil {
		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireRole(d.Validator, "admin", d.Logger))
			d.Admin.Register(r)
		})
	}
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
