/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:       Request logging
  2. Recoverer:    Panic recovery (500 instead of crash)
  3. RequestID:    Unique ID per request for tracing
  4. StripSlashes: The published paths carry trailing slashes
  5. CORS:         Cross-origin requests
  6. Authenticator: Bearer tokens (only under /api/v1)

ROUTE GROUPS:
  /api/v1/promos/*   Promo CRUD + balance operations
  /api/v1/admin/*    Demo seed loader
  /metrics           Prometheus (outside the auth wall)

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Authentication middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loyaltyworks/promo-ledger/promo"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, users promo.UserStore) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// Prometheus metrics, outside the auth wall
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Authenticator(users))

		r.Route("/promos", func(r chi.Router) {
			r.Get("/", h.ListPromos)
			r.Post("/add", h.CreatePromo)
			r.Get("/{id}", h.GetPromo)
			r.Patch("/{id}", h.UpdatePromo)
			r.Put("/{id}", h.UpdatePromo)
			r.Delete("/{id}", h.DeletePromo)
			r.Get("/{id}/points", h.RemainingPoints)
			r.Get("/{id}/use/{amount}", h.ConsumePoints)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/seed", h.SeedDemo)
		})
	})

	return r
}
