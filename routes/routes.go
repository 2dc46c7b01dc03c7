package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/command-gateway/app"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	// Token exchange
	r.Post("/auth/token", deps.AuthHandler.HandleToken)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Command submission and history
		r.Route("/commands", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Post("/", deps.CommandHandler.HandleSubmit)
			r.Get("/", deps.CommandHandler.HandleList)
			r.With(deps.AuthMiddleware.RequireAdmin).
				Get("/pending", deps.CommandHandler.HandlePending)
			r.Get("/{id}", deps.CommandHandler.HandleGet)
		})

		// Rule management; reads are open to all principals, writes
		// require admin
		r.Route("/rules", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/", deps.RuleHandler.HandleList)
			r.Get("/{id}", deps.RuleHandler.HandleGet)

			r.Group(func(r chi.Router) {
				r.Use(deps.AuthMiddleware.RequireAdmin)
				r.Post("/", deps.RuleHandler.HandleCreate)
				r.Put("/{id}", deps.RuleHandler.HandleUpdate)
				r.Delete("/{id}", deps.RuleHandler.HandleDelete)
			})
		})

		// Principal management
		r.Route("/principals", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/me", deps.PrincipalHandler.HandleMe)
			r.Get("/me/stats", deps.PrincipalHandler.HandleMyStats)

			r.Group(func(r chi.Router) {
				r.Use(deps.AuthMiddleware.RequireAdmin)
				r.Post("/", deps.PrincipalHandler.HandleRegister)
				r.Get("/", deps.PrincipalHandler.HandleList)
				r.Get("/{id}", deps.PrincipalHandler.HandleGet)
				r.Get("/{id}/stats", deps.PrincipalHandler.HandleStats)
				r.Patch("/{id}/credits", deps.PrincipalHandler.HandleAdjustCredits)
			})
		})

		// Audit trail (admin only)
		r.Route("/audit", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.AuthMiddleware.RequireAdmin)
			r.Get("/", deps.AuditHandler.HandleList)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
