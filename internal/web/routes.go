package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/facewatch/facewatch/internal/web/handlers"
	"github.com/facewatch/facewatch/internal/web/middleware"
)

func (s *Server) setupRoutes(sessionManager *middleware.SessionManager) {
	authHandler := handlers.NewAuthHandler(s.deps.Operators, sessionManager)
	identitiesHandler := handlers.NewIdentitiesHandler(s.deps.Gallery, s.deps.Operators, s.deps.Extractor, s.deps.DupIndex, s.deps.EmbeddingDim)
	recognizeHandler := handlers.NewRecognizeHandler(s.deps.Recognizer, s.deps.Operators, s.deps.Extractor)
	recordsHandler := handlers.NewRecordsHandler(s.deps.Ledger)
	operatorsHandler := handlers.NewOperatorsHandler(s.deps.Operators)
	statsHandler := handlers.NewStatsHandler(s.deps.Gallery, s.deps.Ledger, s.deps.Operators, s.deps.Recognizer)
	activityHandler := handlers.NewActivityHandler(s.deps.Recognizer.Hub())

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth routes
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		// All other routes require authentication
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sessionManager))

			r.Get("/auth/me", authHandler.Me)

			// Identity gallery
			r.Get("/identities", identitiesHandler.List)
			r.Post("/identities", identitiesHandler.Create)
			r.Get("/identities/{id}", identitiesHandler.Get)
			r.Patch("/identities/{id}", identitiesHandler.Update)
			r.Post("/identities/{id}/images", identitiesHandler.AddImage)
			r.Delete("/identities/{id}", identitiesHandler.Delete)

			// Operator accounts
			r.Get("/operators", operatorsHandler.List)

			// Recognition
			r.Post("/recognize", recognizeHandler.Recognize)

			// Match record ledger
			r.Get("/records", recordsHandler.List)
			r.Get("/records/recent", recordsHandler.Recent)
			r.Get("/records/daily", recordsHandler.Daily)

			// Stats
			r.Get("/stats", statsHandler.Get)

			// Live activity stream
			r.Get("/activity/events", activityHandler.Events)
		})
	})
}
