package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	oauth "github.com/giantswarm/mcp-oauth"
	"github.com/giantswarm/mcp-oauth/providers"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/liatrio/fastmcp-github-oauth/internal/githuboauth"
)

func TestValidateHTTPSRequirement(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{
			name:    "https URL allowed",
			baseURL: "https://mcp.example.com",
			wantErr: false,
		},
		{
			name:    "http localhost allowed",
			baseURL: "http://localhost:8000",
			wantErr: false,
		},
		{
			name:    "http loopback IPv4 allowed",
			baseURL: "http://127.0.0.1:8000",
			wantErr: false,
		},
		{
			name:    "http loopback IPv6 allowed",
			baseURL: "http://[::1]:8000",
			wantErr: false,
		},
		{
			name:    "http non-localhost rejected",
			baseURL: "http://mcp.example.com",
			wantErr: true,
		},
		{
			name:    "empty URL rejected",
			baseURL: "",
			wantErr: true,
		},
		{
			name:    "unsupported scheme rejected",
			baseURL: "ftp://localhost:8000",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateHTTPSRequirement(tt.baseURL)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func newTestOAuthServer(t *testing.T, config OAuthConfig) *OAuthHTTPServer {
	t.Helper()

	sc := newTestServerContext(t)
	mcpSrv := mcpserver.NewMCPServer("fastmcp-github-oauth", "0.1.0",
		mcpserver.WithToolCapabilities(true))

	srv, err := NewOAuthHTTPServer(sc, mcpSrv, config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func TestNewOAuthHTTPServer(t *testing.T) {
	srv := newTestOAuthServer(t, OAuthConfig{
		BaseURL:            "http://localhost:8000",
		GitHubClientID:     "test-client-id",
		GitHubClientSecret: "test-client-secret",
	})

	assert.NotNil(t, srv.HealthChecker())
	assert.NotNil(t, srv.TokenStore())
}

func TestNewOAuthHTTPServer_RejectsInsecureBaseURL(t *testing.T) {
	sc := newTestServerContext(t)
	mcpSrv := mcpserver.NewMCPServer("fastmcp-github-oauth", "0.1.0")

	srv, err := NewOAuthHTTPServer(sc, mcpSrv, OAuthConfig{
		BaseURL:            "http://mcp.example.com",
		GitHubClientID:     "test-client-id",
		GitHubClientSecret: "test-client-secret",
	})
	require.Error(t, err)
	assert.Nil(t, srv)
	assert.Contains(t, err.Error(), "HTTPS")
}

func TestNewOAuthHTTPServer_RejectsMissingCredentials(t *testing.T) {
	sc := newTestServerContext(t)
	mcpSrv := mcpserver.NewMCPServer("fastmcp-github-oauth", "0.1.0")

	srv, err := NewOAuthHTTPServer(sc, mcpSrv, OAuthConfig{
		BaseURL: "http://localhost:8000",
	})
	require.Error(t, err)
	assert.Nil(t, srv)
}

func TestNewOAuthHTTPServer_RejectsUnsupportedStorage(t *testing.T) {
	sc := newTestServerContext(t)
	mcpSrv := mcpserver.NewMCPServer("fastmcp-github-oauth", "0.1.0")

	srv, err := NewOAuthHTTPServer(sc, mcpSrv, OAuthConfig{
		BaseURL:            "http://localhost:8000",
		GitHubClientID:     "test-client-id",
		GitHubClientSecret: "test-client-secret",
		Storage:            OAuthStorageConfig{Type: "postgres"},
	})
	require.Error(t, err)
	assert.Nil(t, srv)
	assert.Contains(t, err.Error(), "unsupported OAuth storage type")
}

func TestNewOAuthHTTPServer_RejectsValkeyWithoutURL(t *testing.T) {
	sc := newTestServerContext(t)
	mcpSrv := mcpserver.NewMCPServer("fastmcp-github-oauth", "0.1.0")

	srv, err := NewOAuthHTTPServer(sc, mcpSrv, OAuthConfig{
		BaseURL:            "http://localhost:8000",
		GitHubClientID:     "test-client-id",
		GitHubClientSecret: "test-client-secret",
		Storage:            OAuthStorageConfig{Type: OAuthStorageValkey},
	})
	require.Error(t, err)
	assert.Nil(t, srv)
	assert.Contains(t, err.Error(), "valkey URL is required")
}

func TestNewOAuthHTTPServer_MemoryStorageWithEncryption(t *testing.T) {
	key := bytes.Repeat([]byte{0x01, 0x02, 0x03, 0x04}, 8)

	srv := newTestOAuthServer(t, OAuthConfig{
		BaseURL:            "http://localhost:8000",
		GitHubClientID:     "test-client-id",
		GitHubClientSecret: "test-client-secret",
		EncryptionKey:      key,
	})
	assert.NotNil(t, srv.TokenStore())
}

func TestCreateMux_HealthEndpoint(t *testing.T) {
	srv := newTestOAuthServer(t, OAuthConfig{
		BaseURL:            "http://localhost:8000",
		GitHubClientID:     "test-client-id",
		GitHubClientSecret: "test-client-secret",
	})

	mux := srv.CreateMux()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		`{"status":"healthy","service":"fastmcp-github-oauth","version":"0.1.0"}`,
		rec.Body.String())
}

func TestCreateMux_OAuthMetadataEndpoints(t *testing.T) {
	srv := newTestOAuthServer(t, OAuthConfig{
		BaseURL:            "http://localhost:8000",
		GitHubClientID:     "test-client-id",
		GitHubClientSecret: "test-client-secret",
	})

	mux := srv.CreateMux()

	for _, path := range []string{
		"/.well-known/oauth-protected-resource",
		"/.well-known/oauth-authorization-server",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, "endpoint %s", path)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json", "endpoint %s", path)
	}
}

func TestCreateMux_MCPEndpointRequiresToken(t *testing.T) {
	srv := newTestOAuthServer(t, OAuthConfig{
		BaseURL:            "http://localhost:8000",
		GitHubClientID:     "test-client-id",
		GitHubClientSecret: "test-client-secret",
	})

	mux := srv.CreateMux()

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
}

func TestProviderTokenKey(t *testing.T) {
	tests := []struct {
		name     string
		userInfo *providers.UserInfo
		expected string
	}{
		{
			name:     "nil user info",
			userInfo: nil,
			expected: "",
		},
		{
			name:     "ID preferred over email",
			userInfo: &providers.UserInfo{ID: "583231", Email: "octocat@example.com"},
			expected: "583231",
		},
		{
			name:     "email fallback",
			userInfo: &providers.UserInfo{Email: "octocat@example.com"},
			expected: "octocat@example.com",
		},
		{
			name:     "no usable key",
			userInfo: &providers.UserInfo{Name: "The Octocat"},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, providerTokenKey(tt.userInfo))
		})
	}
}

func TestClaimsInjector_ResolvesTokenStoredByProviderUserID(t *testing.T) {
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-OAuth-Scopes", "read:user, user:email")
		_, _ = w.Write([]byte(`{"login": "octocat", "email": "octocat@example.com"}`))
	}))
	t.Cleanup(stub.Close)

	cache := githuboauth.NewClaimsCache(
		githuboauth.NewClient(stub.URL, nil, nil), 0, 0, nil)

	sc, err := NewServerContext(context.Background(),
		WithGitHubCredentials("test-client-id", "test-client-secret"),
		WithClaimsCache(cache),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	mcpSrv := mcpserver.NewMCPServer("fastmcp-github-oauth", "0.1.0")
	srv, err := NewOAuthHTTPServer(sc, mcpSrv, OAuthConfig{
		BaseURL:            "http://localhost:8000",
		GitHubClientID:     "test-client-id",
		GitHubClientSecret: "test-client-secret",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	// The library stores the GitHub token under the provider user ID, not
	// the email.
	require.NoError(t, srv.TokenStore().SaveToken(context.Background(), "583231",
		&oauth2.Token{AccessToken: "gho_stored", TokenType: "Bearer"}))

	var gotClaims *githuboauth.Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = githuboauth.ClaimsFromContext(r.Context())
	})
	handler := srv.createClaimsInjectorMiddleware(next)

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req = req.WithContext(oauth.ContextWithUserInfo(req.Context(),
		&providers.UserInfo{ID: "583231"}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, gotClaims, "claims should be injected for a token stored under the user ID")
	assert.Equal(t, "octocat", gotClaims.Login)
	assert.Equal(t, "octocat@example.com", gotClaims.Email)
}

func TestOAuthHTTPServer_ShutdownMarksNotReady(t *testing.T) {
	srv := newTestOAuthServer(t, OAuthConfig{
		BaseURL:            "http://localhost:8000",
		GitHubClientID:     "test-client-id",
		GitHubClientSecret: "test-client-secret",
	})

	require.True(t, srv.HealthChecker().IsReady())
	require.NoError(t, srv.Shutdown(context.Background()))
	assert.False(t, srv.HealthChecker().IsReady())
}
