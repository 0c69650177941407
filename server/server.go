package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	jsoniter "github.com/json-iterator/go"
	"github.com/justinas/alice"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sartorproj/salescast/config"
	"github.com/sartorproj/salescast/logging"
	"github.com/sartorproj/salescast/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const shutdownTimeout = 15 * time.Second

// Server serves the analysis API.
type Server struct {
	httpServer *http.Server
	logger     logrus.FieldLogger
}

// New builds a server listening on cfg.Addr(). collector and logger may be
// nil.
func New(cfg config.Server, analyzer Analyzer, collector *metrics.Collector, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField(logging.FieldComponent, "server")

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           Handler(analyzer, collector, logger, cfg.WriteTimeout),
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 2 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
		},
		logger: logger,
	}
}

// Handler returns the routed API wrapped in the logging and recovery
// middleware. A positive timeout bounds every /api request.
func Handler(analyzer Analyzer, collector *metrics.Collector, logger logrus.FieldLogger, timeout time.Duration) http.Handler {
	h := &handler{analyzer: analyzer, logger: logger}

	r := chi.NewRouter()
	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", collector.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		if timeout > 0 {
			r.Use(middleware.Timeout(timeout))
		}

		r.Get("/shops", h.shops)
		r.Post("/analysis", h.analyze)
		r.Get("/analysis/{shopID}/workbook", h.workbook)
	})

	return alice.New(Logging(logger), Recover(logger)).Then(r)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("address", s.httpServer.Addr).Info("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return errors.Wrap(err, "listen")
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		s.logger.WithError(err).Error("shutdown failed")
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return errors.Wrap(s.httpServer.Shutdown(ctx), "shutdown")
}
