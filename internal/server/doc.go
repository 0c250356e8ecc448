// Package server provides the ServerContext pattern and HTTP infrastructure
// for the fastmcp-github-oauth MCP server.
//
// This package implements the core server architecture patterns including:
//
//   - ServerContext: Encapsulates all server dependencies and lifecycle management
//   - Functional Options: Clean dependency injection and configuration
//   - OAuthHTTPServer: OAuth 2.1 front end delegating authentication to GitHub
//   - HealthChecker: Health, liveness, and readiness endpoints
//   - MetricsServer: Dedicated Prometheus metrics listener
//
// The ServerContext Pattern:
//
// The ServerContext struct follows the context pattern commonly used in Go
// applications to encapsulate dependencies and provide clean separation of
// concerns. All dependencies are injected using functional options, making
// the code highly testable and modular.
//
// Example usage:
//
//	serverCtx, err := server.NewServerContext(ctx,
//		server.WithLogger(logger),
//		server.WithBaseURL("http://localhost:8000"),
//		server.WithGitHubCredentials(clientID, clientSecret),
//	)
//	if err != nil {
//		return err
//	}
//	defer serverCtx.Shutdown()
//
// The OAuth flow:
//
// MCP clients discover the authorization server via the RFC 9728 protected
// resource metadata, register dynamically (RFC 7591), and complete an OAuth
// 2.1 authorization code flow with PKCE. The authorization step redirects to
// GitHub; after the user approves, GitHub calls back to /auth/callback and
// the mcp-oauth library issues the client its own tokens. Requests to /mcp
// carry those tokens, which ValidateToken verifies before the claims
// middleware resolves the user's GitHub identity for the tool handlers.
package server
