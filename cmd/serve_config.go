package cmd

import (
	"log"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/liatrio/fastmcp-github-oauth/internal/server"
)

// Environment variable names for the core server configuration, matching the
// documented deployment interface.
const (
	envGitHubClientID     = "GITHUB_CLIENT_ID"
	envGitHubClientSecret = "GITHUB_CLIENT_SECRET"
	envBaseURL            = "BASE_URL"
	envHost               = "HOST"
	envPort               = "PORT"
)

// Default listen configuration when HOST/PORT are not set.
const (
	defaultHost = "0.0.0.0"
	defaultPort = "8000"
)

// envValueTrue is the string value used to enable boolean environment variables.
const envValueTrue = "true"

// ServeConfig holds all configuration for the serve command.
type ServeConfig struct {
	// Transport settings
	Transport string
	HTTPAddr  string

	// Endpoint paths
	SSEEndpoint     string
	MessageEndpoint string

	// Public base URL, used as the OAuth issuer and GitHub redirect base
	BaseURL string

	// GitHub OAuth app credentials
	GitHubClientID     string
	GitHubClientSecret string

	DebugMode bool

	// OAuth server configuration
	OAuth OAuthServeConfig

	// Metrics server configuration
	Metrics MetricsServeConfig
}

// OAuthServeConfig holds OAuth-specific configuration.
type OAuthServeConfig struct {
	DisableStreaming        bool
	RegistrationToken       string
	AllowPublicRegistration bool
	MaxClientsPerIP         int
	EncryptionKey           string

	// Storage configuration
	Storage server.OAuthStorageConfig
}

// MetricsServeConfig holds configuration for the dedicated metrics server.
type MetricsServeConfig struct {
	Enabled bool
	Addr    string
}

// Type aliases for OAuth storage configuration - use server package types directly
// to avoid duplication and ensure consistency across the codebase.
type (
	// OAuthStorageType represents the type of token storage backend.
	OAuthStorageType = server.OAuthStorageType
	// OAuthStorageConfig holds configuration for OAuth token storage backend.
	OAuthStorageConfig = server.OAuthStorageConfig
	// ValkeyStorageConfig holds configuration for Valkey storage backend.
	ValkeyStorageConfig = server.ValkeyStorageConfig
)

// Storage type constants - re-exported from server package for convenience.
const (
	OAuthStorageMemory = server.OAuthStorageMemory
	OAuthStorageValkey = server.OAuthStorageValkey
)

// loadEnvIfEmpty loads an environment variable into a string pointer if it's empty.
func loadEnvIfEmpty(target *string, envKey string) {
	if *target == "" {
		*target = os.Getenv(envKey)
	}
}

// parseIntEnv parses an integer from an environment variable value.
// Returns the parsed int and true if successful, or zero and false if parsing fails.
// Logs a warning if the value is present but invalid.
func parseIntEnv(value, envName string) (int, bool) {
	if value == "" {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid integer for %s=%q: %v", envName, value, err)
		return 0, false
	}
	return n, true
}

// defaultHTTPAddr builds the default listen address from the HOST and PORT
// environment variables, falling back to 0.0.0.0:8000.
func defaultHTTPAddr() string {
	host := os.Getenv(envHost)
	if host == "" {
		host = defaultHost
	}
	port := os.Getenv(envPort)
	if port == "" {
		port = defaultPort
	}
	return net.JoinHostPort(host, port)
}

// newServeLogger creates the structured logger for the serve command.
// Logs go to stderr so they never interfere with stdio MCP communication.
func newServeLogger(debugMode bool, format string) *slog.Logger {
	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
