// Package server exposes the session status over local HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ayusman/airinteract/internal/gesture"
)

// Status is the part of app.Session the server reads and toggles.
type Status interface {
	ID() string
	Latest() gesture.Result
	Enabled() bool
	SetEnabled(enabled bool)
}

// Config holds the server configuration.
type Config struct {
	Status    Status
	Hub       *Hub
	StaticDir string
	Log       *zap.Logger
}

// Server serves /api/health, /api/status, /api/enabled and /api/events.
type Server struct {
	config Config
	router chi.Router
	start  time.Time
	log    *zap.Logger
}

// New creates a Server. Routes whose collaborator is nil are not mounted.
func New(config Config) *Server {
	log := config.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		config: config,
		router: chi.NewRouter(),
		start:  time.Now(),
		log:    log.Named("server"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)

	if s.config.Status != nil {
		r.Get("/api/status", s.handleStatus)
		r.Put("/api/enabled", s.handleEnabled)
	}
	if s.config.Hub != nil {
		r.Get("/api/events", s.handleEvents)
	}
	if s.config.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).Round(time.Second).String(),
	})
}

type statusResponse struct {
	Session string         `json:"session"`
	Enabled bool           `json:"enabled"`
	Result  gesture.Result `json:"result"`
}

func (s *Server) status() statusResponse {
	return statusResponse{
		Session: s.config.Status.ID(),
		Enabled: s.config.Status.Enabled(),
		Result:  s.config.Status.Latest(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleEnabled(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, `body must be {"enabled": true|false}`)
		return
	}

	s.config.Status.SetEnabled(*req.Enabled)
	s.log.Info("processing toggled over http", zap.Bool("enabled", *req.Enabled))
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var first *gesture.Result
	if s.config.Status != nil {
		latest := s.config.Status.Latest()
		first = &latest
	}
	s.config.Hub.Accept(w, r, first)
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("status server listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if s.config.Hub != nil {
		s.config.Hub.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
