package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/argoslabs/saga/internal/graph"
	"github.com/argoslabs/saga/internal/storage"
)

// Server represents the API server.
type Server struct {
	router   *chi.Mux
	handlers *Handlers
	store    *storage.Store
	addr     string
	server   *http.Server
}

// NewServer creates a new API server.
func NewServer(store *storage.Store, graphClient *graph.Client, opts HandlerOptions, addr string) *Server {
	handlers := NewHandlers(store, graphClient, opts)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Routes
	r.Route("/api", func(r chi.Router) {
		// Health
		r.Get("/health", handlers.HealthCheck)
		r.Get("/stats", handlers.GetStats)

		// Articles
		r.Route("/articles", func(r chi.Router) {
			r.Get("/", handlers.ListArticles)
			r.Post("/ingest", handlers.IngestArticle)
			r.Post("/check-existence", handlers.CheckExistence)
			r.Post("/search", handlers.SearchArticles)
			r.Get("/{id}", handlers.GetArticle)
		})

		// Reports (proxied to the Graph API)
		r.Get("/reports/{topicID}", handlers.GetReport)
	})

	srv := &Server{
		router:   r,
		handlers: handlers,
		store:    store,
		addr:     addr,
	}

	// Admin routes (no auth for development)
	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/reindex", srv.AdminReindex)
	})

	return srv
}

// Start starts the API server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("Starting API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ============================================================================
// ADMIN HANDLERS
// ============================================================================

// AdminReindex rebuilds the archive indexes from the filesystem.
func (s *Server) AdminReindex(w http.ResponseWriter, r *http.Request) {
	s.store.Rebuild()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"stats":  s.store.GetStats(),
	})
}
