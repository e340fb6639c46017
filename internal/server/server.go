// Package server is the reference study-session backend: a small REST API
// over the study_sessions table.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/alexanderramin/studyclock/internal/config"
	"github.com/alexanderramin/studyclock/internal/ratelimit"
	"github.com/alexanderramin/studyclock/internal/service"
)

const (
	maxRequestBody    = 64 << 10
	readHeaderTimeout = 10 * time.Second
)

// Server wires the HTTP routes to the study-session service.
type Server struct {
	cfg       config.ServerConfig
	sessions  service.StudySessionService
	validator *requestValidator
	limiter   *ratelimit.KeyedRateLimiter
	router    *chi.Mux
	log       *slog.Logger
	now       func() time.Time
	loc       *time.Location
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides the time source used for stats windows and exports.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithLocation sets the zone calendar windows are computed in. Defaults to
// the process's local zone.
func WithLocation(loc *time.Location) Option {
	return func(s *Server) { s.loc = loc }
}

func NewServer(sessions service.StudySessionService, cfg config.ServerConfig, log *slog.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		sessions:  sessions,
		validator: newRequestValidator(),
		limiter:   ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst),
		router:    chi.NewRouter(),
		log:       log,
		now:       time.Now,
		loc:       time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.log))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	s.router.Use(rateLimit(s.limiter, s.log))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/healthz", s.handleHealthCheck)

		r.Route("/study-sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleCreateSession)
			r.Get("/total", s.handleTotal)
			r.Get("/stats", s.handleStats)
		})

		r.Get("/export/stats", s.handleExportStats)
	})
}

// Run listens on cfg.Addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully within cfg.ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.limiter.Stop()

	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("study-session server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down study-session server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
