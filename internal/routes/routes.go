package routes

import (
	"net/http"

	"github.com/BradenHooton/folio/internal/auth"
	"github.com/BradenHooton/folio/internal/handlers"
	"github.com/BradenHooton/folio/internal/middleware"
	"github.com/BradenHooton/folio/internal/models"
	"github.com/go-chi/chi/v5"
)

// Dependencies groups everything the route table needs
type Dependencies struct {
	AuthHandler  *handlers.AuthHandler
	AdminHandler *handlers.AdminHandler
	TokenManager *auth.TokenManager
	UserRepo     auth.UserRepository
	LoginLimit   middleware.RateLimitConfig
	AdminLimit   middleware.RateLimitConfig

	// Metrics is served at /admin/metrics; nil leaves it unmounted
	Metrics http.Handler
}

// RegisterRoutes registers the login and admin routes
func RegisterRoutes(router chi.Router, deps Dependencies) {
	// Public routes - no authentication required
	router.With(middleware.RateLimitByIP(deps.LoginLimit)).Post("/auth/login", deps.AuthHandler.Login)

	// Admin routes - JWT with role admin
	router.Route("/admin", func(r chi.Router) {
		r.Use(auth.AuthMiddleware(deps.TokenManager))
		r.Use(auth.RequireRole(deps.UserRepo, models.RoleAdmin))
		r.Use(middleware.RateLimitByUser(deps.AdminLimit))

		r.Get("/lockouts/stats", deps.AdminHandler.GetLockoutStats)
		r.Get("/lockouts/status", deps.AdminHandler.GetLockoutStatus)
		r.Post("/lockouts/unlock", deps.AdminHandler.UnlockAccount)

		r.Post("/mfa/enroll", deps.AdminHandler.EnrollMFA)
		r.Post("/mfa/confirm", deps.AdminHandler.ConfirmMFA)

		r.Get("/audit", deps.AdminHandler.ListAuditLogs)

		if deps.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", deps.Metrics)
		}
	})
}
