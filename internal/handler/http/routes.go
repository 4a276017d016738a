package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID)
	router.Use(h.withLogging)

	// routes without authorization
	router.Group(func(r chi.Router) {
		r.Post("/api/auth/register", h.register)
		r.Post("/api/auth/login", h.login)
		r.Get("/api/version", h.getServerVersion)
		r.Method("GET", "/metrics", promhttp.Handler())
	})

	// routes behind the JWT gate
	router.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Post("/api/devices", h.registerDevice)
		r.Post("/api/sync/{table}/pull", h.pull)
		r.Post("/api/sync/{table}/push", h.push)
	})

	return router
}
