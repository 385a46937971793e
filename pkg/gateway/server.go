package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"meterr-hq/io/pkg/config"
	"meterr-hq/io/pkg/costs"
	"meterr-hq/io/pkg/gateway/middleware"
	"meterr-hq/io/pkg/importer"
	"meterr-hq/io/pkg/insights"
	"meterr-hq/io/pkg/ledger"
	"meterr-hq/io/pkg/ledger/recorder"
	"meterr-hq/io/pkg/telemetry/health"
	"meterr-hq/io/pkg/telemetry/metrics"
	"meterr-hq/io/pkg/telemetry/tracing"
	"meterr-hq/io/pkg/upstream"
)

// Server is the HTTP server for the metering gateway. It hosts the
// transparent proxy routes, the ledger read API, and operational
// endpoints.
type Server struct {
	config       *config.Config
	dependencies Dependencies
	httpServer   *http.Server
	logger       *slog.Logger
	health       *health.Checker
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// Dependencies carries the wired components the server routes to.
type Dependencies struct {
	// Store is the usage ledger, used by the read API.
	Store ledger.Store

	// Recorder is the asynchronous event recorder used by the proxy
	// path.
	Recorder *recorder.Recorder

	// Calculator computes per-call costs.
	Calculator *costs.Calculator

	// Forwarders maps provider names to their upstream forwarders.
	Forwarders map[string]*upstream.Forwarder

	// Importer handles CSV reconciliation uploads.
	Importer *importer.Importer

	// Insights generates optimization advisories.
	Insights *insights.Generator

	// Metrics is the Prometheus collector. May be nil when metrics are
	// disabled.
	Metrics *metrics.Collector

	// Tracer spans forwarded requests. May be nil when tracing is not
	// wired; a disabled tracer works too.
	Tracer *tracing.Tracer
}

// NewServer creates a gateway server.
func NewServer(cfg *config.Config, deps Dependencies) *Server {
	return &Server{
		config:       cfg,
		dependencies: deps,
		logger:       slog.Default().With("component", "gateway"),
		health:       newHealthChecker(deps),
		shutdownChan: make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	handler := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           s.config.Server.ListenAddress,
		Handler:        handler,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting gateway server",
			"address", s.config.Server.ListenAddress,
		)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server and drains the recorder so
// in-flight metering events reach the ledger.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown",
			"timeout", s.config.Server.ShutdownTimeout.String(),
		)

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		if s.dependencies.Recorder != nil {
			if err := s.dependencies.Recorder.Close(); err != nil {
				s.logger.Error("error draining recorder", "error", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("gateway server stopped")
	})

	return shutdownErr
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Proxy routes. Customer attribution is enforced here: calls that
	// cannot be attributed are rejected before they reach the upstream,
	// unless a default customer is configured.
	chatHandler := s.meteredRoute(s.proxyHandler(upstream.ProviderOpenAI))
	messagesHandler := s.meteredRoute(s.proxyHandler(upstream.ProviderAnthropic))
	mux.Handle("/v1/chat/completions", chatHandler)
	mux.Handle("/v1/messages", messagesHandler)

	// Ledger read API.
	mux.HandleFunc("/v1/usage/aggregate", s.handleAggregate)
	mux.HandleFunc("/v1/usage/events", s.handleEvents)
	mux.HandleFunc("/v1/insights", s.handleInsights)
	mux.HandleFunc("/v1/imports", s.handleImport)

	// Operational endpoints.
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	if s.dependencies.Metrics != nil && s.config.Telemetry.Metrics.Enabled {
		mux.Handle(s.config.Telemetry.Metrics.Path, s.dependencies.Metrics.Handler())
	}

	var handler http.Handler = mux

	if s.config.Server.CORS.Enabled {
		handler = middleware.CORSMiddleware(s.convertCORSConfig())(handler)
	}
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// meteredRoute enforces customer attribution on a proxy route. With a
// default customer configured, header-less requests fall through to the
// handler, which attributes them to the default.
func (s *Server) meteredRoute(next http.Handler) http.Handler {
	if s.config.Gateway.DefaultCustomerID != "" {
		return next
	}
	return middleware.CustomerIDMiddleware(next)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// convertCORSConfig converts config.CORSConfig to middleware.CORSConfig.
func (s *Server) convertCORSConfig() *middleware.CORSConfig {
	return &middleware.CORSConfig{
		Enabled:        s.config.Server.CORS.Enabled,
		AllowedOrigins: s.config.Server.CORS.AllowedOrigins,
		AllowedMethods: s.config.Server.CORS.AllowedMethods,
		AllowedHeaders: s.config.Server.CORS.AllowedHeaders,
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         s.config.Server.CORS.MaxAge,
	}
}
