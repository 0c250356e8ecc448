package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/liatrio/fastmcp-github-oauth/internal/instrumentation"
	"github.com/liatrio/fastmcp-github-oauth/internal/logging"
)

// MetricsServerConfig holds configuration for the dedicated metrics server.
// Metrics are served on a separate listener so that the Prometheus endpoint
// is never exposed on the public OAuth/MCP port.
type MetricsServerConfig struct {
	// Addr is the listen address for the metrics server (e.g. ":9090").
	Addr string

	// Enabled controls whether the metrics server starts at all.
	Enabled bool

	// InstrumentationProvider supplies the Prometheus handler.
	InstrumentationProvider *instrumentation.Provider

	// Logger for server lifecycle messages.
	Logger *slog.Logger
}

// MetricsServer serves the Prometheus metrics endpoint on its own port.
type MetricsServer struct {
	config     MetricsServerConfig
	httpServer *http.Server
	logger     *slog.Logger
}

// NewMetricsServer creates a metrics server. Returns an error when metrics
// are enabled but the instrumentation provider has no Prometheus exporter.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if config.Enabled {
		if config.InstrumentationProvider == nil || config.InstrumentationProvider.PrometheusHandler() == nil {
			return nil, fmt.Errorf("metrics server requires the prometheus metrics exporter")
		}
	}

	return &MetricsServer{
		config: config,
		logger: logger,
	}, nil
}

// Start starts the metrics server and blocks until it exits.
// Returns immediately with nil when metrics are disabled.
func (m *MetricsServer) Start() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.config.InstrumentationProvider.PrometheusHandler())

	m.httpServer = &http.Server{
		Addr:              m.config.Addr,
		Handler:           mux,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	m.logger.Info("Starting metrics server", logging.Host(m.config.Addr), logging.Endpoint("/metrics"))

	return m.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the metrics server.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	if m.httpServer == nil {
		return nil
	}
	return m.httpServer.Shutdown(ctx)
}
