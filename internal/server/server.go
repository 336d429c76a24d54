package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/nlweb/chatpanel/internal/catalog"
	"github.com/nlweb/chatpanel/internal/sites"
)

// Config holds server configuration.
type Config struct {
	Port                int
	AllowAll            bool // allow all CORS origins (dev mode)
	UseTextInputForSite bool
	DefaultSite         string
	DefaultMode         string
	ReadyTimeout        time.Duration // how long a page render waits for the site list
	SessionTTL          time.Duration // idle time before a page is dropped
}

// Server serves the chat debug page, its event socket and the /sites
// endpoint.
type Server struct {
	cfg        Config
	lister     sites.Lister
	catalog    *catalog.Store
	logger     *zap.Logger
	pages      *registry
	router     chi.Router
	httpServer *http.Server
}

// New creates a server. lister feeds the site dropdown of every page;
// catalog, when non-nil, backs the /sites endpoint.
func New(cfg Config, lister sites.Lister, cat *catalog.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	s := &Server{
		cfg:     cfg,
		lister:  lister,
		catalog: cat,
		logger:  logger,
		pages:   newRegistry(cfg.SessionTTL),
	}

	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// The websocket outlives any request timeout.
	r.Get("/ws/panel", s.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Get("/", s.handlePage)
		r.Get("/static/str_chat.html", s.handlePage)
		if s.catalog != nil {
			r.Get("/sites", s.handleSites)
		}
		r.Get("/api/sessions/{id}", s.handleSessionState)
		r.Post("/api/sessions/{id}/results", s.handleAddResults)
		r.Post("/api/sessions/{id}/messages", s.handleAddMessage)
	})

	return r
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("nlchat server listening", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
