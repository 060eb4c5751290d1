package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/shohag/cimonitor/internal/config"
	"github.com/shohag/cimonitor/internal/events"
	"github.com/shohag/cimonitor/internal/storage"
)

type Server struct {
	cfg     config.ServerConfig
	webhook config.WebhookConfig
	store   storage.Storage
	router  *chi.Mux
	log     zerolog.Logger
	http    *http.Server
}

func NewServer(cfg config.ServerConfig, webhook config.WebhookConfig, store storage.Storage, log zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		webhook: webhook,
		store:   store,
		log:     log,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(s.log))

	webhookHandler := NewWebhookHandler(s.store, s.webhook.Secret, s.log)
	eventsHandler := NewEventsHandler(events.NewService(s.store, s.log))
	healthHandler := NewHealthHandler(s.store)

	r.Get("/health", healthHandler.Health)

	r.Get("/api/v1/events", eventsHandler.Recent)
	r.Get("/api/v1/workflows", eventsHandler.Workflows)

	// GitHub can be pointed at any path, so every POST is a webhook.
	r.Post("/", webhookHandler.Receive)
	r.Post("/*", webhookHandler.Receive)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			webhookHandler.Receive(w, r)
			return
		}
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.log.Info().Str("addr", addr).Bool("signature_check", s.webhook.Secret != "").Msg("starting HTTP server")
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(timeout time.Duration) error {
	if s.http == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
