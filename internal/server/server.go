// Package server provides the HTTP API for kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/rag"
)

// Asker answers questions for a loaded application.
type Asker interface {
	Ask(ctx context.Context, question string, appID int) (*rag.Answer, error)
}

// Contexts validates application ids and loads their context on demand.
type Contexts interface {
	Known(id int) bool
	EnsureLoaded(ctx context.Context, id int) error
	Status() []models.ApplicationStatus
}

// Server is the HTTP server for the kotae API.
type Server struct {
	asker    Asker
	contexts Contexts
	config   *config.ServerConfig
	logger   *zap.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	server   *http.Server
}

// NewServer creates a server with the given dependencies. m and gatherer may
// be nil, in which case /metrics is not served.
func NewServer(
	asker Asker,
	contexts Contexts,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
) *Server {
	return &Server{
		asker:    asker,
		contexts: contexts,
		config:   cfg,
		logger:   logger,
		metrics:  m,
		gatherer: gatherer,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	timeout := s.config.RequestTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)

	r.Get("/health", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))
		r.Post("/ask", s.handleAsk)
		r.Get("/api/v1/applications", s.handleApplications)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
