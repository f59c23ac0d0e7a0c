package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fernwall/screentime/internal/metrics"
)

// NewRouter assembles the HTTP routes.
func NewRouter(h *Handlers, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(recoverer(logger))
	r.Use(requestLogger(logger))

	r.Post("/pairing/pair", h.Pair)
	r.Get("/pairing/status/{token}", h.PairingStatus)
	r.Post("/rules/agent/fetch", h.FetchRules)
	r.Post("/reports/agent/report", h.Report)

	r.Get("/healthz", h.Healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}

// Server wraps an http.Server with graceful shutdown.
type Server struct {
	cfg    Config
	srv    *http.Server
	logger *zap.Logger
}

// New builds a Server listening on cfg.ListenAddr.
func New(cfg Config, h *Handlers, logger *zap.Logger) *Server {
	return &Server{
		cfg: cfg,
		srv: &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      NewRouter(h, logger),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests
// for at most cfg.ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
