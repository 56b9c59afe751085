package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/facewatch/facewatch/internal/recognition"
	"github.com/facewatch/facewatch/internal/store"
	"github.com/facewatch/facewatch/internal/web/handlers"
	"github.com/facewatch/facewatch/internal/web/middleware"
)

// Deps bundles the services the web server exposes.
type Deps struct {
	Gallery    store.IdentityWriter
	Ledger     store.Ledger
	Operators  store.OperatorStore
	Recognizer *recognition.Recognizer
	Extractor  handlers.EmbeddingExtractor
	DupIndex   *store.DuplicateIndex
	// EmbeddingDim guards enrollment uploads; zero disables the check.
	EmbeddingDim int
	// SessionRepo may be nil for memory-only sessions.
	SessionRepo middleware.SessionRepository
	// AllowedOrigins are the cross-origin dashboards granted CORS access.
	AllowedOrigins []string
}

// Server represents the web server.
type Server struct {
	router         *chi.Mux
	httpServer     *http.Server
	sessionManager *middleware.SessionManager
	deps           Deps
}

// NewServer creates a new web server.
func NewServer(deps Deps, host string, port int, sessionSecret string) *Server {
	r := chi.NewRouter()

	sessionManager := middleware.NewSessionManager(sessionSecret, deps.SessionRepo)

	s := &Server{
		router:         r,
		sessionManager: sessionManager,
		deps:           deps,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(5 * time.Minute))
	r.Use(middleware.CORS(deps.AllowedOrigins))
	r.Use(middleware.SecurityHeaders())

	s.setupRoutes(sessionManager)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Long timeout for SSE and uploads
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")

	if s.sessionManager != nil {
		s.sessionManager.Stop()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
