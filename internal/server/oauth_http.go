package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	oauth "github.com/giantswarm/mcp-oauth"
	"github.com/giantswarm/mcp-oauth/providers"
	githubprovider "github.com/giantswarm/mcp-oauth/providers/github"
	"github.com/giantswarm/mcp-oauth/security"
	oauthserver "github.com/giantswarm/mcp-oauth/server"
	"github.com/giantswarm/mcp-oauth/storage"
	"github.com/giantswarm/mcp-oauth/storage/memory"
	"github.com/giantswarm/mcp-oauth/storage/valkey"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/liatrio/fastmcp-github-oauth/internal/githuboauth"
	"github.com/liatrio/fastmcp-github-oauth/internal/instrumentation"
	"github.com/liatrio/fastmcp-github-oauth/internal/logging"
	"github.com/liatrio/fastmcp-github-oauth/internal/server/middleware"
)

const (
	// DefaultRefreshTokenTTL is the default TTL for refresh tokens (90 days)
	DefaultRefreshTokenTTL = 90 * 24 * time.Hour

	// DefaultIPRateLimit is the default rate limit for requests per IP (requests/second)
	DefaultIPRateLimit = 10

	// DefaultIPBurst is the default burst size for IP rate limiting
	DefaultIPBurst = 20

	// DefaultUserRateLimit is the default rate limit for authenticated users (requests/second)
	DefaultUserRateLimit = 100

	// DefaultUserBurst is the default burst size for authenticated user rate limiting
	DefaultUserBurst = 200

	// DefaultMaxClientsPerIP is the default maximum number of registered clients per IP
	DefaultMaxClientsPerIP = 10

	// DefaultReadHeaderTimeout is the default timeout for reading request headers
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultWriteTimeout is the default timeout for writing responses (increased for long-running MCP operations)
	DefaultWriteTimeout = 120 * time.Second

	// DefaultIdleTimeout is the default idle timeout for keepalive connections
	DefaultIdleTimeout = 120 * time.Second

	// DefaultShutdownTimeout is the default timeout for graceful server shutdown
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultMaxRequestBytes caps request body size. MCP tool calls and
	// OAuth form posts are tiny; 1 MiB leaves generous headroom.
	DefaultMaxRequestBytes = 1 << 20

	// callbackPath is where GitHub redirects after user authorization.
	// Registered as the OAuth app's authorization callback URL.
	callbackPath = "/auth/callback"
)

// OAuthConfig holds configuration for OAuth server creation
type OAuthConfig struct {
	BaseURL            string
	GitHubClientID     string
	GitHubClientSecret string
	DisableStreaming   bool
	DebugMode          bool

	// Security Settings (secure by default)
	AllowPublicClientRegistration bool   // Default: false (requires registration token)
	RegistrationAccessToken       string // Required if AllowPublicClientRegistration=false
	MaxClientsPerIP               int    // Default: 10 (prevents DoS)
	EncryptionKey                 []byte // AES-256 key for token encryption at rest (32 bytes)

	// Storage selects the OAuth state backend (memory or valkey)
	Storage OAuthStorageConfig

	// HTTP Security Settings
	EnableHSTS     bool   // Enable HSTS header (for reverse proxy scenarios)
	AllowedOrigins string // Comma-separated list of allowed CORS origins
}

// OAuthHTTPServer wraps an MCP server with OAuth 2.1 authentication
// delegated to GitHub. It serves the OAuth endpoints, protects the MCP
// endpoint with token validation, and injects GitHub identity claims into
// the request context for the tool handlers.
type OAuthHTTPServer struct {
	serverContext *ServerContext
	mcpServer     *mcpserver.MCPServer
	oauthServer   *oauth.Server
	oauthHandler  *oauth.Handler
	tokenStore    storage.TokenStore
	claimsCache   *githuboauth.ClaimsCache
	healthChecker *HealthChecker
	httpServer    *http.Server
	logger        *slog.Logger
	config        OAuthConfig
}

// NewOAuthHTTPServer creates a new OAuth-enabled HTTP server
func NewOAuthHTTPServer(sc *ServerContext, mcpServer *mcpserver.MCPServer, config OAuthConfig) (*OAuthHTTPServer, error) {
	// Validate HTTPS requirement for OAuth 2.1 compliance
	if err := validateHTTPSRequirement(config.BaseURL); err != nil {
		return nil, err
	}

	logger := sc.Logger()

	oauthSrv, tokenStore, err := createOAuthServer(sc, config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create OAuth server: %w", err)
	}

	oauthHandler := oauth.NewHandler(oauthSrv, oauthSrv.Logger)

	claimsCache := sc.ClaimsCache()
	if claimsCache == nil {
		client := githuboauth.NewClient(githuboauth.DefaultAPIBaseURL, nil, logger)
		claimsCache = githuboauth.NewClaimsCache(client,
			githuboauth.DefaultCacheTTL, githuboauth.DefaultCacheMaxEntries, logger)
	}

	return &OAuthHTTPServer{
		serverContext: sc,
		mcpServer:     mcpServer,
		oauthServer:   oauthSrv,
		oauthHandler:  oauthHandler,
		tokenStore:    tokenStore,
		claimsCache:   claimsCache,
		healthChecker: NewHealthChecker(sc),
		logger:        logger,
		config:        config,
	}, nil
}

// createOAuthServer creates an OAuth server using the mcp-oauth library with
// GitHub as the upstream identity provider.
func createOAuthServer(sc *ServerContext, cfg OAuthConfig, logger *slog.Logger) (*oauth.Server, storage.TokenStore, error) {
	redirectURL := cfg.BaseURL + callbackPath

	provider, err := githubprovider.NewProvider(&githubprovider.Config{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"read:user", "user:email"},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GitHub provider: %w", err)
	}
	logger.Info("Using GitHub OAuth provider",
		"clientID", cfg.GitHubClientID,
		logging.Endpoint(redirectURL))

	// Create storage backend based on configuration
	var tokenStore storage.TokenStore
	var clientStore storage.ClientStore
	var flowStore storage.FlowStore

	switch cfg.Storage.Type {
	case OAuthStorageValkey:
		if cfg.Storage.Valkey.URL == "" {
			return nil, nil, fmt.Errorf("valkey URL is required when using valkey storage")
		}

		valkeyConfig := valkey.Config{
			Address:   cfg.Storage.Valkey.URL,
			Password:  cfg.Storage.Valkey.Password,
			DB:        cfg.Storage.Valkey.DB,
			KeyPrefix: cfg.Storage.Valkey.KeyPrefix,
			Logger:    logger,
		}

		if cfg.Storage.Valkey.TLSEnabled {
			valkeyConfig.TLS = &tls.Config{
				MinVersion: tls.VersionTLS12,
			}
		}

		if valkeyConfig.KeyPrefix == "" {
			valkeyConfig.KeyPrefix = "fastmcp-github-oauth:"
		}

		valkeyStore, err := valkey.New(valkeyConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Valkey storage: %w", err)
		}

		// Set up encryption at rest if key is provided
		if len(cfg.EncryptionKey) > 0 {
			encryptor, err := security.NewEncryptor(cfg.EncryptionKey)
			if err != nil {
				valkeyStore.Close()
				return nil, nil, fmt.Errorf("failed to create encryptor: %w", err)
			}
			valkeyStore.SetEncryptor(encryptor)
			logger.Info("Token encryption at rest enabled for Valkey storage (AES-256-GCM)")
		}

		tokenStore = valkeyStore
		clientStore = valkeyStore
		flowStore = valkeyStore
		logger.Info("Using Valkey storage backend", logging.Host(cfg.Storage.Valkey.URL))

	case OAuthStorageMemory, "":
		memStore := memory.New()
		tokenStore = memStore
		clientStore = memStore
		flowStore = memStore
		logger.Info("Using in-memory storage backend")

	default:
		return nil, nil, fmt.Errorf("unsupported OAuth storage type: %s (supported: %s, %s)",
			cfg.Storage.Type, OAuthStorageMemory, OAuthStorageValkey)
	}

	maxClientsPerIP := cfg.MaxClientsPerIP
	if maxClientsPerIP <= 0 {
		maxClientsPerIP = DefaultMaxClientsPerIP
	}

	serverName := "fastmcp-github-oauth"
	serverVersion := "0.1.0"
	instrumentationEnabled := false
	if sc.Config() != nil {
		serverName = sc.Config().ServerName
		serverVersion = sc.Config().Version
	}
	if p := sc.InstrumentationProvider(); p != nil {
		instrumentationEnabled = p.Enabled()
	}

	// Create server configuration
	serverConfig := &oauthserver.Config{
		Issuer:                        cfg.BaseURL,
		RefreshTokenTTL:               int64(DefaultRefreshTokenTTL.Seconds()),
		AllowRefreshTokenRotation:     true,
		RequirePKCE:                   true,
		AllowPKCEPlain:                false,
		AllowPublicClientRegistration: cfg.AllowPublicClientRegistration,
		RegistrationAccessToken:       cfg.RegistrationAccessToken,
		MaxClientsPerIP:               maxClientsPerIP,

		// Instrumentation
		Instrumentation: oauthserver.InstrumentationConfig{
			Enabled:         instrumentationEnabled,
			ServiceName:     serverName,
			ServiceVersion:  serverVersion,
			MetricsExporter: "prometheus",
		},
	}

	// Create OAuth server
	oauthSrv, err := oauth.NewServer(
		provider,
		tokenStore,
		clientStore,
		flowStore,
		serverConfig,
		logger,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OAuth server: %w", err)
	}

	// Set up encryption if key provided (for memory storage)
	if len(cfg.EncryptionKey) > 0 && cfg.Storage.Type != OAuthStorageValkey {
		encryptor, err := security.NewEncryptor(cfg.EncryptionKey)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create encryptor: %w", err)
		}
		oauthSrv.SetEncryptor(encryptor)
		logger.Info("Token encryption at rest enabled (AES-256-GCM)")
	}

	// Set up audit logging
	auditor := security.NewAuditor(logger, true)
	oauthSrv.SetAuditor(auditor)
	logger.Info("Security audit logging enabled")

	// Set up rate limiting
	ipRateLimiter := security.NewRateLimiter(DefaultIPRateLimit, DefaultIPBurst, logger)
	oauthSrv.SetRateLimiter(ipRateLimiter)
	logger.Info("IP-based rate limiting enabled", "rate", DefaultIPRateLimit, "burst", DefaultIPBurst)

	userRateLimiter := security.NewRateLimiter(DefaultUserRateLimit, DefaultUserBurst, logger)
	oauthSrv.SetUserRateLimiter(userRateLimiter)
	logger.Info("User-based rate limiting enabled", "rate", DefaultUserRateLimit, "burst", DefaultUserBurst)

	clientRegRL := security.NewClientRegistrationRateLimiterWithConfig(
		maxClientsPerIP,
		security.DefaultRegistrationWindow,
		security.DefaultMaxRegistrationEntries,
		logger,
	)
	oauthSrv.SetClientRegistrationRateLimiter(clientRegRL)
	logger.Info("Client registration rate limiting enabled", "maxClientsPerIP", maxClientsPerIP)

	return oauthSrv, tokenStore, nil
}

// setupOAuthRoutes registers OAuth 2.1 endpoints on the mux
func (s *OAuthHTTPServer) setupOAuthRoutes(mux *http.ServeMux) {
	// Protected Resource Metadata endpoint (RFC 9728)
	mux.HandleFunc("/.well-known/oauth-protected-resource", s.oauthHandler.ServeProtectedResourceMetadata)

	// Authorization Server Metadata endpoint (RFC 8414)
	mux.HandleFunc("/.well-known/oauth-authorization-server", s.oauthHandler.ServeAuthorizationServerMetadata)

	// Dynamic Client Registration endpoint (RFC 7591)
	mux.HandleFunc("/oauth/register", s.oauthHandler.ServeClientRegistration)

	// OAuth Authorization endpoint
	mux.HandleFunc("/oauth/authorize", s.oauthHandler.ServeAuthorization)

	// OAuth Token endpoint
	mux.HandleFunc("/oauth/token", s.oauthHandler.ServeToken)

	// OAuth Callback endpoint (from GitHub)
	mux.HandleFunc(callbackPath, s.oauthHandler.ServeCallback)

	// Token Revocation endpoint (RFC 7009)
	mux.HandleFunc("/oauth/revoke", s.oauthHandler.ServeTokenRevocation)

	// Token Introspection endpoint (RFC 7662)
	mux.HandleFunc("/oauth/introspect", s.oauthHandler.ServeTokenIntrospection)

	s.logger.Info("Registered OAuth 2.1 endpoints")
}

// setupMCPRoutes registers the MCP endpoint with OAuth protection
func (s *OAuthHTTPServer) setupMCPRoutes(mux *http.ServeMux) {
	var httpServer http.Handler
	if s.config.DisableStreaming {
		httpServer = mcpserver.NewStreamableHTTPServer(s.mcpServer,
			mcpserver.WithEndpointPath("/mcp"),
			mcpserver.WithDisableStreaming(true),
		)
	} else {
		httpServer = mcpserver.NewStreamableHTTPServer(s.mcpServer,
			mcpserver.WithEndpointPath("/mcp"),
		)
	}

	// Create middleware to resolve GitHub claims for the authenticated user
	claimsInjector := s.createClaimsInjectorMiddleware(httpServer)

	// Wrap MCP endpoint with OAuth middleware (ValidateToken validates and adds user info)
	// Then our injector resolves the GitHub identity claims for the tool handlers
	mux.Handle("/mcp", s.oauthHandler.ValidateToken(claimsInjector))

	s.logger.Info("Protected MCP endpoint with OAuth middleware")
}

// createClaimsInjectorMiddleware creates middleware that resolves the
// authenticated user's GitHub identity claims and injects them into the
// request context for the tool handlers.
//
// ValidateToken has already validated the session token and placed the user
// info in the context. The user's stored GitHub access token is looked up
// under the same key the OAuth library stores it (provider user ID, email as
// fallback) and the claims are fetched from the GitHub API through the cache.
// On any failure the request proceeds without claims; the tool handlers
// report the missing authentication themselves.
func (s *OAuthHTTPServer) createClaimsInjectorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// Get user info from context (set by ValidateToken middleware)
		userInfo, ok := oauth.UserInfoFromContext(ctx)
		key := providerTokenKey(userInfo)
		if !ok || key == "" {
			s.logger.Debug("No user info in context, proceeding without claims")
			next.ServeHTTP(w, r)
			return
		}

		// Retrieve the user's stored GitHub OAuth token
		token, err := s.tokenStore.GetToken(ctx, key)
		if err != nil || token == nil || token.AccessToken == "" {
			s.logger.Debug("No stored GitHub token for user",
				logging.UserHash(key), logging.SanitizedErr(err))
			next.ServeHTTP(w, r)
			return
		}

		metrics := s.serverContext.InstrumentationProvider().Metrics()

		spanCtx, span := instrumentation.StartGitHubSpan(ctx, "claims")
		claims, hit, err := s.claimsCache.Get(spanCtx, token.AccessToken)
		if err != nil {
			instrumentation.SetSpanError(span, err)
			span.End()
			metrics.RecordClaimsLookup(ctx, instrumentation.ClaimsResultError)
			s.logger.Warn("Failed to fetch GitHub claims",
				logging.UserHash(key), logging.SanitizedErr(err))
			next.ServeHTTP(w, r)
			return
		}
		span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithCacheHit(hit).Build()...)
		instrumentation.SetSpanSuccess(span)
		span.End()

		if hit {
			metrics.RecordClaimsLookup(ctx, instrumentation.ClaimsResultHit)
		} else {
			metrics.RecordClaimsLookup(ctx, instrumentation.ClaimsResultFetch)
		}

		ctx = githuboauth.ContextWithClaims(ctx, claims)
		r = r.WithContext(ctx)

		s.logger.Debug("Injected GitHub claims for user",
			logging.UserHash(claims.Email), "cache_hit", hit)

		next.ServeHTTP(w, r)
	})
}

// CreateMux creates the HTTP mux with health, OAuth, and MCP routes.
func (s *OAuthHTTPServer) CreateMux() http.Handler {
	mux := http.NewServeMux()

	// Health check endpoints (unauthenticated)
	s.healthChecker.RegisterHealthEndpoints(mux)

	// Setup OAuth 2.1 endpoints
	s.setupOAuthRoutes(mux)

	// Setup MCP endpoint with OAuth protection
	s.setupMCPRoutes(mux)

	return mux
}

// Start starts the OAuth-enabled HTTP server and blocks until it exits.
func (s *OAuthHTTPServer) Start(addr string) error {
	// Validate and parse allowed CORS origins
	allowedOrigins, err := middleware.ValidateAllowedOrigins(s.config.AllowedOrigins)
	if err != nil {
		return fmt.Errorf("invalid ALLOWED_ORIGINS: %w", err)
	}

	mux := s.CreateMux()

	// Create HTTP server with size-limit, metrics, security, and CORS middleware
	handler := middleware.MaxRequestSize(DefaultMaxRequestBytes)(
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{
			EnableHSTS: s.config.EnableHSTS,
		})(middleware.CORS(allowedOrigins)(
			middleware.HTTPMetrics(s.serverContext.InstrumentationProvider())(mux))))

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	s.logger.Info("Starting OAuth-enabled HTTP server",
		logging.Host(addr), logging.Endpoint(s.config.BaseURL))

	return s.httpServer.ListenAndServe()
}

// HealthChecker returns the health checker for readiness control.
func (s *OAuthHTTPServer) HealthChecker() *HealthChecker {
	return s.healthChecker
}

// TokenStore returns the token store for testing or direct access.
func (s *OAuthHTTPServer) TokenStore() storage.TokenStore {
	return s.tokenStore
}

// Shutdown gracefully shuts down the server
func (s *OAuthHTTPServer) Shutdown(ctx context.Context) error {
	s.healthChecker.SetReady(false)

	// Shutdown OAuth server (handles rate limiters, storage cleanup, etc.)
	if s.oauthServer != nil {
		if err := s.oauthServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown OAuth server: %w", err)
		}
	}

	// Shutdown HTTP server
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// providerTokenKey returns the key under which the OAuth library stores the
// user's GitHub token: the provider user ID when present, the email otherwise.
// An empty result means no token lookup is possible.
func providerTokenKey(userInfo *providers.UserInfo) string {
	if userInfo == nil {
		return ""
	}
	if userInfo.ID != "" {
		return userInfo.ID
	}
	return userInfo.Email
}

// validateHTTPSRequirement ensures OAuth 2.1 HTTPS compliance
// Allows HTTP only for loopback addresses (localhost, 127.0.0.1, ::1)
func validateHTTPSRequirement(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	// Parse URL to properly validate scheme and host
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	// Allow HTTP only for loopback addresses
	if u.Scheme == "http" {
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("OAuth 2.1 requires HTTPS for production (got: %s). Use HTTPS or localhost for development", baseURL)
		}
	} else if u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s. Must be http (localhost only) or https", u.Scheme)
	}

	return nil
}
