// Package http provides the REST ingress for the relay.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Dmann24/quantina-core/internal/pipeline"
	"github.com/Dmann24/quantina-core/internal/store"
)

// RouterConfig wires the router's collaborators.
type RouterConfig struct {
	Pipeline    *pipeline.Pipeline
	Messages    store.MessageLog
	Preferences store.PreferenceStore

	// Live handles WebSocket upgrades on /ws.
	Live http.Handler

	// JWTSecret enables the login endpoint. Empty disables it.
	JWTSecret     []byte
	TokenValidity time.Duration
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(cfg RouterConfig) http.Handler {
	h := &handlers{
		pipeline:      cfg.Pipeline,
		messages:      cfg.Messages,
		preferences:   cfg.Preferences,
		jwtSecret:     cfg.JWTSecret,
		tokenValidity: cfg.TokenValidity,
	}

	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/peer-message", h.peerMessageHealth)
		r.Post("/peer-message", h.peerMessage)
		r.Get("/history", h.history)
		r.Get("/preference/{userID}", h.getPreference)
		r.Put("/preference/{userID}", h.putPreference)
		r.Post("/login", h.login)
	})

	if cfg.Live != nil {
		r.Get("/ws", cfg.Live.ServeHTTP)
	}

	return r
}
