/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontends

ROUTE GROUPS:
  /api/stock/*     Stock reads and mutations
  /api/tags/*      Tag table and group queries
  /api/admin/*     Pause/resume, save/load, status
  /healthz         Liveness

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured. allowedOrigins
// feeds the CORS middleware; an empty list allows none.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/stock", func(r chi.Router) {
			r.Get("/", h.GetStock)
			r.Get("/{id}", h.GetItem)
			r.Post("/add", h.AddStock)
			r.Post("/remove", h.RemoveStock)
			r.Post("/force", h.ForceStock)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", h.ListTags)
			r.Put("/", h.SetTags)
			r.Get("/{tag}", h.GetTag)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/status", h.GetStatus)
			r.Post("/pause", h.Pause)
			r.Post("/resume", h.Resume)
			r.Post("/save", h.Save)
			r.Post("/load", h.Load)
		})
	})

	r.Get("/healthz", h.Healthz)

	return r
}
