package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		// Mirrors the public site's newsletter endpoint verbs:
		// POST subscribes, PUT confirms, DELETE unsubscribes.
		r.Post("/newsletter", h.Subscribe)
		r.Put("/newsletter", h.Confirm)
		r.Delete("/newsletter", h.Unsubscribe)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/stats", h.Stats)
			r.Get("/daily-stats", h.DailyStats)
		})
	})

	return r
}
