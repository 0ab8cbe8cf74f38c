package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bookshelf/backend/internal/books"
	"github.com/bookshelf/backend/internal/middleware"
	"github.com/bookshelf/backend/internal/response"
	"github.com/bookshelf/backend/internal/users"
)

func newRouter(origins []string, logger *slog.Logger, registry *prometheus.Registry, usersHandler *users.Handler, booksHandler *books.Handler) *chi.Mux {
	metrics := middleware.NewMetrics(registry)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	// Metrics wraps the recoverer so panicked requests are counted as 500s.
	r.Use(metrics.Handler)
	r.Use(middleware.Recoverer(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Route("/api/users", usersHandler.Routes)
	r.Route("/api/books", booksHandler.Routes)

	return r
}
