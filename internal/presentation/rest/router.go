package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bibbank/risk-orchestrator/pkg/auth"
)

// RouterConfig collects the handlers and options mounted by NewRouter.
type RouterConfig struct {
	Risk    *RiskHandler
	Health  *HealthHandler
	Metrics http.Handler
	// JWT enables bearer-token auth on the API routes when non-nil.
	JWT *auth.JWTService
	// RateLimit caps API requests per second. Zero disables limiting.
	RateLimit int
	Logger    *slog.Logger
}

// NewRouter builds the HTTP surface: the versioned API, probes and metrics.
// Probes and /metrics are never authenticated or rate limited.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(RateLimit(NewRateLimiter(cfg.RateLimit)))
		}

		evaluate := r.With()
		alerts := r.With()
		if cfg.JWT != nil {
			evaluate = r.With(auth.HTTPMiddleware(cfg.JWT, []string{auth.RoleAdmin, auth.RoleOperator, auth.RoleAPIClient}))
			alerts = r.With(auth.HTTPMiddleware(cfg.JWT, []string{auth.RoleAdmin, auth.RoleOperator, auth.RoleAPIClient, auth.RoleAuditor}))
		}

		evaluate.Post("/risk/evaluate", cfg.Risk.Evaluate)
		alerts.Get("/alerts/{correlationId}", cfg.Risk.GetAlert)
	})

	return r
}
