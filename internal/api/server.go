package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"teamy/internal/api/health"
	"teamy/internal/metrics"
	"teamy/pkg/errors"
	"teamy/pkg/logger"
)

// WebhookPath is where Telegram delivers updates in webhook mode
const WebhookPath = "/telegram/webhook"

// ServerConfig contains configuration for HTTP server
type ServerConfig struct {
	Port            int
	ServiceName     string
	Version         string
	TelegramWebhook http.Handler // Optional Telegram webhook handler
}

// Server wraps HTTP server with lifecycle management
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer creates and configures HTTP server with all routes
func NewServer(cfg ServerConfig, healthHandler *health.Handler, log *logger.Logger) *Server {
	log = log.With("component", "http_server")

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port(cfg.Port)),
			Handler:      newMux(cfg, healthHandler, log),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: log,
	}
}

func newMux(cfg ServerConfig, healthHandler *health.Handler, log *logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoints (Kubernetes probes)
	mux.HandleFunc("/health", healthHandler.HandleHealth)
	mux.HandleFunc("/ready", healthHandler.HandleReadiness)
	mux.HandleFunc("/live", healthHandler.HandleLiveness)

	mux.Handle("/metrics", metrics.Handler())

	if cfg.TelegramWebhook != nil {
		mux.Handle(WebhookPath, cfg.TelegramWebhook)
		log.Infow("Telegram webhook registered", "path", WebhookPath)
	}

	// Root endpoint (service info)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"service":%q,"version":%q,"status":"running"}`,
			cfg.ServiceName, cfg.Version)
	})

	return mux
}

func port(p int) int {
	if p > 0 {
		return p
	}
	return 8080
}

// Start begins listening for HTTP requests
// Blocks until server is stopped or encounters an error
func (s *Server) Start() error {
	s.log.Infof("Starting HTTP server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
// Waits for active connections to complete within timeout
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Stopping HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "http server shutdown failed")
	}

	s.log.Info("✓ HTTP server stopped")
	return nil
}
