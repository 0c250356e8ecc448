package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/liatrio/fastmcp-github-oauth/internal/instrumentation"
	"github.com/liatrio/fastmcp-github-oauth/internal/logging"
	"github.com/liatrio/fastmcp-github-oauth/internal/server"
)

// runOAuthHTTPServer runs the server with OAuth 2.1 authentication delegated
// to GitHub. This is the primary production transport.
func runOAuthHTTPServer(sc *server.ServerContext, mcpSrv *mcpserver.MCPServer, addr string, ctx context.Context, config server.OAuthConfig, metricsConfig MetricsServeConfig) error {
	logger := sc.Logger()

	// Create OAuth HTTP server
	oauthServer, err := server.NewOAuthHTTPServer(sc, mcpSrv, config)
	if err != nil {
		return fmt.Errorf("failed to create OAuth HTTP server: %w", err)
	}

	logger.Info("OAuth-enabled HTTP server starting",
		"addr", addr,
		"base_url", config.BaseURL,
		"mcp_endpoint", "/mcp",
		"health_endpoints", []string{"/health", "/healthz", "/readyz"},
		"oauth_endpoints", []string{
			"/.well-known/oauth-authorization-server",
			"/.well-known/oauth-protected-resource",
			"/oauth/register",
			"/oauth/authorize",
			"/oauth/token",
			"/auth/callback",
			"/oauth/revoke",
			"/oauth/introspect",
		})

	// Start metrics server if enabled (separate from main server for security)
	var metricsServer *server.MetricsServer
	provider := sc.InstrumentationProvider()
	if metricsConfig.Enabled && provider != nil && provider.Enabled() {
		metricsServer, err = startMetricsServer(metricsConfig, provider, sc)
		if err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	// Start server in goroutine
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := oauthServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	// Wait for either shutdown signal or server completion
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping OAuth HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()

		// Shutdown metrics server first
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("Error shutting down metrics server", logging.Err(err))
			}
		}

		if err := oauthServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down OAuth HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("OAuth HTTP server stopped with error: %w", err)
		}
		logger.Info("OAuth HTTP server stopped normally")
	}

	logger.Info("OAuth HTTP server gracefully stopped")
	return nil
}

// startMetricsServer starts the dedicated metrics server on a separate port.
// This isolates Prometheus metrics from the main application traffic.
func startMetricsServer(config MetricsServeConfig, provider *instrumentation.Provider, sc *server.ServerContext) (*server.MetricsServer, error) {
	logger := sc.Logger()

	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    config.Addr,
		Enabled:                 config.Enabled,
		InstrumentationProvider: provider,
		Logger:                  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Start metrics server in background
	go func() {
		if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", logging.Err(err))
		}
	}()

	logger.Info("Metrics server started", "addr", config.Addr, "endpoint", "/metrics")
	return metricsServer, nil
}
