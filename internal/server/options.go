package server

import (
	"errors"
	"log/slog"

	"github.com/liatrio/fastmcp-github-oauth/internal/githuboauth"
	"github.com/liatrio/fastmcp-github-oauth/internal/instrumentation"
)

// Option is a functional option for configuring ServerContext.
type Option func(*ServerContext) error

// WithLogger sets the logger for the ServerContext.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) error {
		if logger == nil {
			return ErrMissingLogger
		}
		sc.logger = logger
		return nil
	}
}

// WithConfig sets the configuration for the ServerContext.
func WithConfig(config *Config) Option {
	return func(sc *ServerContext) error {
		if config == nil {
			return ErrMissingConfig
		}
		sc.config = config.Clone()
		return nil
	}
}

// WithServerName sets the server name in the configuration.
func WithServerName(name string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.ServerName = name
		return nil
	}
}

// WithVersion sets the server version in the configuration.
func WithVersion(version string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.Version = version
		return nil
	}
}

// WithBaseURL sets the public base URL of the server.
func WithBaseURL(baseURL string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.BaseURL = baseURL
		return nil
	}
}

// WithGitHubCredentials sets the GitHub OAuth app credentials.
func WithGitHubCredentials(clientID, clientSecret string) Option {
	return func(sc *ServerContext) error {
		if clientID == "" || clientSecret == "" {
			return ErrMissingGitHubCredentials
		}
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.GitHubClientID = clientID
		sc.config.GitHubClientSecret = clientSecret
		return nil
	}
}

// WithLogLevel sets the logging level.
func WithLogLevel(level string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.LogLevel = level
		return nil
	}
}

// WithClaimsCache sets the GitHub identity claims cache.
func WithClaimsCache(cache *githuboauth.ClaimsCache) Option {
	return func(sc *ServerContext) error {
		sc.claimsCache = cache
		return nil
	}
}

// WithInstrumentationProvider sets the OpenTelemetry instrumentation provider.
// This enables production-grade observability including metrics and tracing.
func WithInstrumentationProvider(provider *instrumentation.Provider) Option {
	return func(sc *ServerContext) error {
		sc.instrumentationProvider = provider
		return nil
	}
}

// Error definitions for ServerContext validation and operations.
var (
	ErrMissingLogger            = errors.New("logger is required")
	ErrMissingConfig            = errors.New("configuration is required")
	ErrMissingGitHubCredentials = errors.New("GitHub client ID and secret are required")
	ErrServerShutdown           = errors.New("server context has been shutdown")
)
