package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/inventory-identity/app"
	"github.com/upb/inventory-identity/internal/policy"
	"github.com/upb/inventory-identity/middleware"
	"github.com/upb/inventory-identity/utils"
)

// SetupRoutes configures all application routes and middleware.
// Every route passes its role guard; every declared route id appears here once.
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(deps.Proxies.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(deps.Config.Server.RequestTimeout))
	r.Use(middleware.RequestMeta)

	// The refresh cookie needs credentialed CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	roles := deps.RoleGuard
	limiter := deps.RateLimiter

	r.With(roles.For(policy.RouteLive)).Get("/healthz", deps.HealthHandler.HandleHealth)
	r.With(roles.For(policy.RouteReady)).Get("/readyz", deps.HealthHandler.HandleReadiness)

	r.Route("/auth", func(r chi.Router) {
		r.With(limiter.For(policy.RouteLogin), roles.For(policy.RouteLogin)).
			Post("/login", deps.AuthHandler.HandleLogin)
		r.With(limiter.For(policy.RouteSignup), roles.For(policy.RouteSignup)).
			Post("/signup", deps.AuthHandler.HandleSignup)
		r.With(limiter.For(policy.RouteRefresh), roles.For(policy.RouteRefresh), deps.RefreshGuard.RequireRefresh).
			Post("/refresh", deps.AuthHandler.HandleRefresh)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(deps.AccessGuard.RequireAuth)

		r.With(roles.For(policy.RouteMe)).Get("/users/me", deps.UserHandler.HandleMe)
		r.With(roles.For(policy.RouteCreateStaff)).Post("/users/staff", deps.UserHandler.HandleCreateStaff)
		r.With(roles.For(policy.RouteCreateStore)).Post("/stores", deps.StoreHandler.HandleCreate)
		r.With(roles.For(policy.RouteAuditList)).Get("/audit/logs", deps.AuditHandler.HandleList)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	return r
}
