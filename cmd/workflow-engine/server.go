package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/geekdivyxnsh/WorkFlow-Engine/api/handlers"
	"github.com/geekdivyxnsh/WorkFlow-Engine/codereview"
	"github.com/geekdivyxnsh/WorkFlow-Engine/config"
	"github.com/geekdivyxnsh/WorkFlow-Engine/internal/metrics"
	"github.com/geekdivyxnsh/WorkFlow-Engine/internal/server"
	"github.com/geekdivyxnsh/WorkFlow-Engine/registry"
	"github.com/geekdivyxnsh/WorkFlow-Engine/store"
	"github.com/geekdivyxnsh/WorkFlow-Engine/supervisor"
)

// Server wires the registry, graph store, supervisor, and handlers into
// the HTTP and metrics listeners.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	httpManager    *server.Manager
	metricsManager *server.Manager

	registry   *registry.Registry
	graphStore *store.GraphStore
	sup        *supervisor.Supervisor

	healthHandler *handlers.HealthHandler
	graphHandler  *handlers.GraphHandler
	streamHandler *handlers.StreamHandler

	metricsCollector *metrics.Collector
}

// NewServer creates the server from resolved configuration.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// Start brings up all components and both listeners.
func (s *Server) Start() error {
	s.metricsCollector = metrics.NewCollector("workflow", s.logger)

	s.registry = registry.New(s.logger)
	codereview.RegisterTools(s.registry)

	s.graphStore = store.NewGraphStore()
	s.sup = supervisor.New(s.logger,
		supervisor.WithStepDelay(s.cfg.Engine.StepDelay),
		supervisor.WithRetention(s.cfg.Engine.Retention),
		supervisor.WithSweepInterval(s.cfg.Engine.SweepInterval),
		supervisor.WithMetrics(s.metricsCollector),
	)

	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.graphHandler = handlers.NewGraphHandler(s.registry, s.graphStore, s.sup, s.logger)
	s.streamHandler = handlers.NewStreamHandler(s.sup, s.logger)

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
	)
	return nil
}

func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("GET /version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	mux.HandleFunc("POST /graph/create", s.graphHandler.HandleCreate)
	mux.HandleFunc("POST /graph/create_sample", s.graphHandler.HandleCreateSample)
	mux.HandleFunc("POST /graph/run", s.graphHandler.HandleRun)
	mux.HandleFunc("GET /graph/state/{run_id}", s.graphHandler.HandleState)
	mux.HandleFunc("GET /ws/run/{run_id}", s.streamHandler.HandleStream)

	handler := Chain(mux,
		Recovery(s.logger),
		RequestLogger(s.logger),
		MetricsMiddleware(s.metricsCollector),
		RateLimiter(context.Background(), s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
	)

	s.httpManager = server.NewManager(handler, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     s.cfg.Server.IdleTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	return s.httpManager.Start()
}

func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s.metricsManager = server.NewManager(mux, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     s.cfg.Server.IdleTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	return s.metricsManager.Start()
}

// WaitForShutdown blocks until a shutdown signal, then stops everything in
// order: listeners first, then active runs.
func (s *Server) WaitForShutdown() {
	s.httpManager.WaitForShutdown()

	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(context.Background()); err != nil {
			s.logger.Error("metrics server shutdown failed", zap.Error(err))
		}
	}

	s.sup.Close()
}
