// Package api exposes the query pipeline and conversation threads over
// HTTP, with server-sent events for streamed answers.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/poiesic/clinroute/conversation"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "clinical-ai-agent"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Server serves the HTTP API.
type Server struct {
	runner          conversation.Runner
	conversations   *conversation.Service
	metrics         *Metrics
	validate        *validator.Validate
	logger          *slog.Logger
	corsOrigin      string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
	router          chi.Router
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMetrics records HTTP metrics and serves them on /metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(s *Server) error {
		s.metrics = metrics
		return nil
	}
}

// WithCORSOrigin sets the allowed CORS origin. Empty disables CORS headers.
func WithCORSOrigin(origin string) Option {
	return func(s *Server) error {
		s.corsOrigin = origin
		return nil
	}
}

// WithTimeouts sets the server read, write and shutdown timeouts.
// Non-positive values keep the defaults.
func WithTimeouts(read, write, shutdown time.Duration) Option {
	return func(s *Server) error {
		if read > 0 {
			s.readTimeout = read
		}
		if write > 0 {
			s.writeTimeout = write
		}
		if shutdown > 0 {
			s.shutdownTimeout = shutdown
		}
		return nil
	}
}

// NewServer builds the router. conversations may be nil, in which case the
// thread routes are not mounted.
func NewServer(runner conversation.Runner, conversations *conversation.Service, opts ...Option) (*Server, error) {
	if runner == nil {
		return nil, errors.New("api: pipeline is required")
	}
	s := &Server{
		runner:          runner,
		conversations:   conversations,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		logger:          slog.Default(),
		readTimeout:     15 * time.Second,
		writeTimeout:    2 * time.Minute,
		shutdownTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "api")
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	if s.corsOrigin != "" {
		r.Use(cors(s.corsOrigin))
	}

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/query", s.handleQuery)
		r.Post("/query/stream", s.handleQueryStream)

		if s.conversations != nil {
			r.Route("/threads", func(r chi.Router) {
				r.Get("/", s.handleListThreads)
				r.Post("/", s.handleCreateThread)
				r.Get("/{id}", s.handleGetThread)
				r.Patch("/{id}", s.handleRenameThread)
				r.Delete("/{id}", s.handleDeleteThread)
				r.Post("/{id}/query", s.handleThreadQuery)
				r.Post("/{id}/query/stream", s.handleThreadQueryStream)
			})
		}
	})
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully,
// letting in-flight requests finish within the shutdown timeout.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: s.readTimeout,
		ReadTimeout:       s.readTimeout,
		WriteTimeout:      s.writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
