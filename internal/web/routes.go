package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kozaktomas/face-verifier/internal/web/handlers"
	"github.com/kozaktomas/face-verifier/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	identitiesHandler := handlers.NewIdentitiesHandler(s.deps.Service, s.log, s.config.Security.HideAuthFailureReason)

	var indexSizer handlers.IndexSizer
	var rebuilder handlers.IndexRebuilder
	if s.deps.Index != nil {
		indexSizer = s.deps.Index
		rebuilder = s.deps.Index
	}
	statsHandler := handlers.NewStatsHandler(s.deps.Store, indexSizer, handlers.StatsOptions{
		Model:     s.deps.Model,
		Dim:       s.config.Embedding.Dim,
		Threshold: s.config.Matching.Threshold,
	}, s.log)
	adminHandler := handlers.NewAdminHandler(rebuilder, s.deps.Store, statsHandler, s.log)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	if s.deps.Gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/identities", identitiesHandler.Register)
		r.Post("/verify", identitiesHandler.Verify)
		r.Get("/stats", statsHandler.Get)

		// Admin routes exist only when an API key is configured
		if s.config.Security.AdminAPIKey != "" {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAPIKey(s.config.Security.AdminAPIKey))
				r.Post("/admin/index/rebuild", adminHandler.RebuildIndex)
			})
		}
	})

	// Endpoints of the original API
	s.router.Post("/api/register", identitiesHandler.LegacyRegister)
	s.router.Post("/api/enroll", identitiesHandler.LegacyEnroll)
}
