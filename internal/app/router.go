package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shohoj-krishi/shohoj-krishi/internal/auth"
	"github.com/shohoj-krishi/shohoj-krishi/internal/authority"
	"github.com/shohoj-krishi/shohoj-krishi/internal/guard"
	"github.com/shohoj-krishi/shohoj-krishi/internal/observability"
	"github.com/shohoj-krishi/shohoj-krishi/internal/registration"
	"github.com/shohoj-krishi/shohoj-krishi/internal/roles"
	"github.com/shohoj-krishi/shohoj-krishi/jobs"
)

// RouterParams collects handlers and infrastructure for route assembly.
type RouterParams struct {
	Middleware          MiddlewareConfig
	Guard               guard.Middleware
	AuthHandler         *auth.Handler
	RegistrationHandler *registration.Handler
	RolesHandler        *roles.Handler
	AuthorityHandler    *authority.Handler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
}

// NewRouter assembles the HTTP router.
func NewRouter(p RouterParams) chi.Router {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(p.Middleware) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())
	}
	if p.JobHandler != nil {
		r.Route("/jobs", p.JobHandler.MountRoutes)
	}

	// Everything below sees the resolved session store.
	r.Group(func(r chi.Router) {
		r.Use(p.Guard.Attach)

		p.AuthHandler.MountPublicRoutes(r)
		p.RolesHandler.MountRoutes(r)

		// Credential and OTP endpoints carry the tight per-IP limit.
		r.Group(func(r chi.Router) {
			r.Use(AuthRateLimiter(p.Middleware.Config))
			p.AuthHandler.MountCredentialRoutes(r)
			p.RegistrationHandler.MountRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(p.Guard.RequireAuth)
			p.AuthHandler.MountProtectedRoutes(r)
		})

		r.Route("/api/admin/authorities", func(r chi.Router) {
			r.Use(p.Guard.RequireRoles(roles.RoleAdmin))
			p.AuthorityHandler.MountRoutes(r)
		})
	})

	return r
}
