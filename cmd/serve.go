package cmd

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/liatrio/fastmcp-github-oauth/internal/instrumentation"
	"github.com/liatrio/fastmcp-github-oauth/internal/server"
	"github.com/liatrio/fastmcp-github-oauth/internal/tools/identity"
)

// Transport type constants for the MCP server.
const (
	transportStdio          = "stdio"
	transportSSE            = "sse"
	transportStreamableHTTP = "streamable-http"
)

// newServeCmd creates the Cobra command for starting the MCP server.
func newServeCmd() *cobra.Command {
	var (
		debugMode bool
		logFormat string

		// Transport options
		transport       string
		httpAddr        string
		sseEndpoint     string
		messageEndpoint string

		// Server identity options
		baseURL            string
		githubClientID     string
		githubClientSecret string

		// OAuth options
		disableStreaming        bool
		registrationToken       string
		allowPublicRegistration bool
		maxClientsPerIP         int
		oauthEncryptionKey      string

		// OAuth storage options
		oauthStorageType string
		valkeyURL        string
		valkeyPassword   string
		valkeyTLS        bool
		valkeyKeyPrefix  string
		valkeyDB         int

		// Metrics options
		enableMetrics bool
		metricsAddr   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server with GitHub OAuth",
		Long: `Start the MCP server that exposes GitHub identity tools via the
Model Context Protocol, with OAuth 2.1 authentication delegated to GitHub.

Supports multiple transport types:
  - streamable-http: Streamable HTTP transport with OAuth (default)
  - sse: Server-Sent Events over HTTP (unauthenticated, for local development)
  - stdio: Standard input/output (unauthenticated, for local development)

GitHub OAuth app credentials are required and can be provided via the
GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET environment variables or the
corresponding flags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Build OAuth storage config from flags
			storageConfig := server.OAuthStorageConfig{
				Type: server.OAuthStorageType(oauthStorageType),
				Valkey: server.ValkeyStorageConfig{
					URL:        valkeyURL,
					Password:   valkeyPassword,
					TLSEnabled: valkeyTLS,
					KeyPrefix:  valkeyKeyPrefix,
					DB:         valkeyDB,
				},
			}
			// Load env vars only for flags not explicitly set by user
			loadOAuthStorageEnvVars(cmd, &storageConfig)

			// Security warning: CLI password flags may be visible in process listings
			if cmd.Flags().Changed("valkey-password") {
				log.Printf("WARNING: Valkey password provided via CLI flag - password may be visible in process listings (ps aux)")
				log.Printf("         For better security, use the VALKEY_PASSWORD environment variable instead")
			}

			if !cmd.Flags().Changed("http-addr") {
				httpAddr = defaultHTTPAddr()
			}

			config := ServeConfig{
				Transport:          transport,
				HTTPAddr:           httpAddr,
				SSEEndpoint:        sseEndpoint,
				MessageEndpoint:    messageEndpoint,
				BaseURL:            baseURL,
				GitHubClientID:     githubClientID,
				GitHubClientSecret: githubClientSecret,
				DebugMode:          debugMode,
				OAuth: OAuthServeConfig{
					DisableStreaming:        disableStreaming,
					RegistrationToken:       registrationToken,
					AllowPublicRegistration: allowPublicRegistration,
					MaxClientsPerIP:         maxClientsPerIP,
					EncryptionKey:           oauthEncryptionKey,
					Storage:                 storageConfig,
				},
				Metrics: MetricsServeConfig{
					Enabled: enableMetrics,
					Addr:    metricsAddr,
				},
			}
			return runServe(config, logFormat)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging (default: false)")
	cmd.Flags().StringVar(&logFormat, "log-format", "json", "Log format: json or text")

	// Transport flags
	cmd.Flags().StringVar(&transport, "transport", transportStreamableHTTP, "Transport type: streamable-http, sse, or stdio")
	cmd.Flags().StringVar(&httpAddr, "http-addr", defaultHost+":"+defaultPort, "HTTP server address (can also be set via HOST and PORT env vars)")
	cmd.Flags().StringVar(&sseEndpoint, "sse-endpoint", "/sse", "SSE endpoint path (for sse transport)")
	cmd.Flags().StringVar(&messageEndpoint, "message-endpoint", "/message", "Message endpoint path (for sse transport)")

	// Server identity flags
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Public base URL of the server (can also be set via BASE_URL env var, default: http://localhost:8000)")
	cmd.Flags().StringVar(&githubClientID, "github-client-id", "", "GitHub OAuth App Client ID (can also be set via GITHUB_CLIENT_ID env var)")
	cmd.Flags().StringVar(&githubClientSecret, "github-client-secret", "", "GitHub OAuth App Client Secret (can also be set via GITHUB_CLIENT_SECRET env var)")

	// OAuth flags
	cmd.Flags().BoolVar(&disableStreaming, "disable-streaming", false, "Disable streaming for streamable-http transport")
	cmd.Flags().StringVar(&registrationToken, "registration-token", "", "OAuth client registration access token (required if public registration is disabled)")
	cmd.Flags().BoolVar(&allowPublicRegistration, "allow-public-registration", true, "Allow unauthenticated OAuth client registration (required for MCP client auto-discovery)")
	cmd.Flags().IntVar(&maxClientsPerIP, "max-clients-per-ip", 10, "Maximum number of OAuth clients that can be registered per IP address")
	cmd.Flags().StringVar(&oauthEncryptionKey, "oauth-encryption-key", "", "AES-256 encryption key for token encryption (base64, 32 bytes decoded, can also be set via OAUTH_ENCRYPTION_KEY env var)")

	// OAuth storage flags
	cmd.Flags().StringVar(&oauthStorageType, "oauth-storage-type", "memory", "OAuth token storage type: memory or valkey (can also be set via OAUTH_STORAGE_TYPE env var)")
	cmd.Flags().StringVar(&valkeyURL, "valkey-url", "", "Valkey server address (e.g., valkey.namespace.svc:6379, can also be set via VALKEY_URL env var)")
	cmd.Flags().StringVar(&valkeyPassword, "valkey-password", "", "Valkey authentication password (can also be set via VALKEY_PASSWORD env var)")
	cmd.Flags().BoolVar(&valkeyTLS, "valkey-tls", false, "Enable TLS for Valkey connections (can also be set via VALKEY_TLS_ENABLED env var)")
	cmd.Flags().StringVar(&valkeyKeyPrefix, "valkey-key-prefix", "fastmcp-github-oauth:", "Prefix for all Valkey keys (can also be set via VALKEY_KEY_PREFIX env var)")
	cmd.Flags().IntVar(&valkeyDB, "valkey-db", 0, "Valkey database number (can also be set via VALKEY_DB env var)")

	// Metrics flags
	cmd.Flags().BoolVar(&enableMetrics, "enable-metrics", false, "Serve Prometheus metrics on a dedicated listener")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Listen address for the dedicated metrics server")

	return cmd
}

// validateEncryptionKey validates an AES-256 encryption key for security weaknesses
func validateEncryptionKey(key []byte) error {
	if len(key) != 32 {
		return fmt.Errorf("encryption key must be exactly 32 bytes, got %d bytes", len(key))
	}

	// Check for all-zero key
	allZero := true
	for _, b := range key {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return fmt.Errorf("encryption key is all zeros - use a cryptographically secure random key (openssl rand -base64 32)")
	}

	// Count unique bytes - a good key should have high entropy
	uniqueBytes := make(map[byte]bool)
	for _, b := range key {
		uniqueBytes[b] = true
	}
	if len(uniqueBytes) < 16 {
		return fmt.Errorf("encryption key appears to have low entropy (only %d unique bytes) - use a cryptographically secure random key (openssl rand -base64 32)", len(uniqueBytes))
	}

	return nil
}

// runServe contains the main server logic with support for multiple transports
func runServe(config ServeConfig, logFormat string) error {
	// Resolve configuration from environment variables for values not
	// provided via flags.
	loadEnvIfEmpty(&config.GitHubClientID, envGitHubClientID)
	loadEnvIfEmpty(&config.GitHubClientSecret, envGitHubClientSecret)
	loadEnvIfEmpty(&config.BaseURL, envBaseURL)
	loadEnvIfEmpty(&config.OAuth.EncryptionKey, "OAUTH_ENCRYPTION_KEY")

	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8000"
	}

	// GitHub credentials are required regardless of transport. The serve
	// command fails fast so a misconfigured deployment exits non-zero.
	if config.GitHubClientID == "" || config.GitHubClientSecret == "" {
		return fmt.Errorf("GitHub OAuth credentials are required: set %s and %s environment variables (or --github-client-id and --github-client-secret)",
			envGitHubClientID, envGitHubClientSecret)
	}

	logger := newServeLogger(config.DebugMode, logFormat)

	// Setup graceful shutdown - listen for both SIGINT and SIGTERM
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize OpenTelemetry instrumentation provider
	instrumentationConfig := instrumentation.DefaultConfig()
	instrumentationConfig.ServiceVersion = rootCmd.Version
	instrumentationProvider, err := instrumentation.NewProvider(shutdownCtx, instrumentationConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if shutdownErr := instrumentationProvider.Shutdown(context.Background()); shutdownErr != nil {
			if config.Transport != transportStdio {
				logger.Error("Error during instrumentation shutdown", "error", shutdownErr)
			}
		}
	}()

	if instrumentationProvider.Enabled() {
		logger.Info("OpenTelemetry instrumentation enabled",
			"metrics", instrumentationConfig.MetricsExporter,
			"tracing", instrumentationConfig.TracingExporter)
	}

	logLevel := "info"
	if config.DebugMode {
		logLevel = "debug"
	}

	serverContext, err := server.NewServerContext(shutdownCtx,
		server.WithLogger(logger),
		server.WithVersion(rootCmd.Version),
		server.WithBaseURL(config.BaseURL),
		server.WithGitHubCredentials(config.GitHubClientID, config.GitHubClientSecret),
		server.WithLogLevel(logLevel),
		server.WithInstrumentationProvider(instrumentationProvider),
	)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			// Only log shutdown errors for non-stdio transports to avoid output interference
			if config.Transport != transportStdio {
				logger.Error("Error during server context shutdown", "error", err)
			}
		}
	}()

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer("fastmcp-github-oauth", rootCmd.Version,
		mcpserver.WithToolCapabilities(true),
	)

	// Register identity tools
	if err := identity.RegisterIdentityTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register identity tools: %w", err)
	}

	// Start the appropriate server based on transport type
	switch config.Transport {
	case transportStdio:
		// Don't print startup message for stdio mode as it interferes with MCP communication
		return runStdioServer(mcpSrv)
	case transportSSE:
		fmt.Printf("Starting fastmcp-github-oauth server with %s transport...\n", config.Transport)
		return runSSEServer(mcpSrv, config.HTTPAddr, config.SSEEndpoint, config.MessageEndpoint, shutdownCtx, config.DebugMode)
	case transportStreamableHTTP:
		fmt.Printf("Starting fastmcp-github-oauth server with %s transport...\n", config.Transport)

		if !config.OAuth.AllowPublicRegistration && config.OAuth.RegistrationToken == "" {
			return fmt.Errorf("--registration-token is required when public registration is disabled")
		}

		// Prepare encryption key if provided (must be base64 encoded)
		var encryptionKey []byte
		if config.OAuth.EncryptionKey != "" {
			decoded, err := base64.StdEncoding.DecodeString(config.OAuth.EncryptionKey)
			if err != nil {
				return fmt.Errorf("OAuth encryption key must be base64 encoded (use: openssl rand -base64 32): %w", err)
			}

			if err := validateEncryptionKey(decoded); err != nil {
				return fmt.Errorf("OAuth encryption key validation failed: %w", err)
			}

			encryptionKey = decoded
			logger.Info("OAuth token encryption at rest enabled (AES-256-GCM)")
		} else {
			logger.Warn("OAuth encryption key not set - tokens will be stored unencrypted")
		}

		if config.DebugMode {
			logger.Warn("Debug logging is enabled - this may log sensitive information")
		}

		return runOAuthHTTPServer(serverContext, mcpSrv, config.HTTPAddr, shutdownCtx, server.OAuthConfig{
			BaseURL:                       config.BaseURL,
			GitHubClientID:                config.GitHubClientID,
			GitHubClientSecret:            config.GitHubClientSecret,
			DisableStreaming:              config.OAuth.DisableStreaming,
			DebugMode:                     config.DebugMode,
			AllowPublicClientRegistration: config.OAuth.AllowPublicRegistration,
			RegistrationAccessToken:       config.OAuth.RegistrationToken,
			MaxClientsPerIP:               config.OAuth.MaxClientsPerIP,
			EncryptionKey:                 encryptionKey,
			Storage:                       config.OAuth.Storage,
			EnableHSTS:                    os.Getenv("ENABLE_HSTS") == envValueTrue,
			AllowedOrigins:                os.Getenv("ALLOWED_ORIGINS"),
		}, config.Metrics)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s, %s)",
			config.Transport, transportStreamableHTTP, transportSSE, transportStdio)
	}
}

// loadOAuthStorageEnvVars loads OAuth storage configuration from environment variables.
// Environment variables only override flag values when the flag was not explicitly set.
// The cmd parameter is used to check if flags were explicitly set by the user.
func loadOAuthStorageEnvVars(cmd *cobra.Command, config *server.OAuthStorageConfig) {
	if !cmd.Flags().Changed("oauth-storage-type") {
		if storageType := os.Getenv("OAUTH_STORAGE_TYPE"); storageType != "" {
			config.Type = server.OAuthStorageType(storageType)
		}
	}

	if !cmd.Flags().Changed("valkey-url") {
		loadEnvIfEmpty(&config.Valkey.URL, "VALKEY_URL")
	}

	if !cmd.Flags().Changed("valkey-password") {
		loadEnvIfEmpty(&config.Valkey.Password, "VALKEY_PASSWORD")
	}

	if !cmd.Flags().Changed("valkey-key-prefix") {
		if prefix := os.Getenv("VALKEY_KEY_PREFIX"); prefix != "" {
			config.Valkey.KeyPrefix = prefix
		}
	}

	// This properly handles the case where user explicitly sets --valkey-tls=false
	if !cmd.Flags().Changed("valkey-tls") {
		if os.Getenv("VALKEY_TLS_ENABLED") == envValueTrue {
			config.Valkey.TLSEnabled = true
		}
	}

	// This properly handles the case where user explicitly sets --valkey-db=0
	if !cmd.Flags().Changed("valkey-db") {
		if db, ok := parseIntEnv(os.Getenv("VALKEY_DB"), "VALKEY_DB"); ok {
			config.Valkey.DB = db
		}
	}
}
