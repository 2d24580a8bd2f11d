// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matthewbaird/formlayout/internal/activity"
	"github.com/matthewbaird/formlayout/internal/doctype"
	"github.com/matthewbaird/formlayout/internal/editor"
	"github.com/matthewbaird/formlayout/internal/eventbus"
	"github.com/matthewbaird/formlayout/internal/handler"
	"github.com/matthewbaird/formlayout/internal/repl"
	"github.com/matthewbaird/formlayout/internal/store"
)

// Config holds server configuration.
type Config struct {
	Port            int
	Store           store.Store
	Activity        activity.Store // defaults to an in-memory feed
	Log             *zap.Logger
	MaxAge          time.Duration
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
	ShutdownTimeout time.Duration
	EventBuffer     int
}

// Server wires the session manager, the event bus and the HTTP routes.
type Server struct {
	cfg      Config
	log      *zap.Logger
	sessions *editor.Manager
	bus      *eventbus.Bus
	router   chi.Router
}

// New builds a server. Nothing runs until Run.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("server: store is required")
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	validator, err := doctype.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	if cfg.Activity == nil {
		cfg.Activity = activity.NewMemoryStore()
	}

	sessions := editor.NewManager(cfg.Store, cfg.MaxAge, cfg.IdleTimeout)
	bus := eventbus.New(cfg.EventBuffer, log)
	bus.Subscribe("log", eventbus.NewLogConsumer(log))
	bus.Subscribe("stale", eventbus.NewStaleConsumer(sessions, log))
	bus.Subscribe("activity", activity.NewIndexer(cfg.Activity))

	s := &Server{cfg: cfg, log: log, sessions: sessions, bus: bus}
	s.router = s.routes(validator)
	return s, nil
}

func (s *Server) routes(v *doctype.Validator) chi.Router {
	r := chi.NewRouter()
	r.Use(handler.Recovery(s.log), handler.Logging(s.log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/v1/doctypes", handler.NewDoctypeHandler(s.cfg.Store, v, s.log).Routes)
	r.Route("/v1/sessions", handler.NewSessionHandler(s.sessions, s.cfg.Store, s.bus, s.log).Routes)
	r.Route("/v1/activity", handler.NewActivityHandler(s.cfg.Activity, s.log).Routes)
	repl.RegisterRoutes(r, s.sessions, s.cfg.Store, s.bus, s.log)
	return r
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler { return s.router }

// Sessions returns the editing-session manager.
func (s *Server) Sessions() *editor.Manager { return s.sessions }

// Run starts the event bus, the session janitor and the HTTP server, and
// blocks until ctx is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	busCtx, stopBus := context.WithCancel(context.Background())
	defer stopBus()
	s.bus.Start(busCtx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("server: listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
		defer cancel()
		s.log.Info("server: shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		s.janitor(gctx)
		return nil
	})

	err := g.Wait()
	s.bus.Stop()
	return err
}

// janitor drops expired sessions until ctx is done.
func (s *Server) janitor(ctx context.Context) {
	interval := s.cfg.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.Cleanup(); n > 0 {
				s.log.Info("server: removed expired sessions", zap.Int("count", n))
			}
		}
	}
}

func (s *Server) shutdownTimeout() time.Duration {
	if s.cfg.ShutdownTimeout > 0 {
		return s.cfg.ShutdownTimeout
	}
	return 10 * time.Second
}

// Run builds a server from cfg and runs it until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	s, err := New(cfg)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}
