package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/liatrio/fastmcp-github-oauth/internal/githuboauth"
	"github.com/liatrio/fastmcp-github-oauth/internal/server"
)

const (
	// serverDisplayName is the human-facing server name reported by the
	// get_server_info and ping tools.
	serverDisplayName = "FastMCP GitHub OAuth Example"

	errNoClaims = "authentication required: no user claims in context"
)

// userInfoResponse is the payload of the get_user_info tool, mirroring the
// fields of the GitHub /user endpoint.
type userInfoResponse struct {
	GitHubUser  string `json:"github_user"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatar_url"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	Bio         string `json:"bio"`
	Blog        string `json:"blog"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// serverInfoResponse is the payload of the get_server_info tool.
type serverInfoResponse struct {
	ServerName             string              `json:"server_name"`
	Version                string              `json:"version"`
	AuthProvider           string              `json:"auth_provider"`
	Transport              string              `json:"transport"`
	Container              string              `json:"container"`
	BuildSystem            string              `json:"build_system"`
	Endpoints              serverInfoEndpoints `json:"endpoints"`
	SupportedArchitectures []string            `json:"supported_architectures"`
}

type serverInfoEndpoints struct {
	MCP           string `json:"mcp"`
	Health        string `json:"health"`
	OAuthCallback string `json:"oauth_callback"`
}

// oauthStatusResponse is the payload of the get_oauth_status tool.
type oauthStatusResponse struct {
	Authenticated bool     `json:"authenticated"`
	User          string   `json:"user"`
	Scopes        []string `json:"scopes"`
	TokenType     string   `json:"token_type"`
	AuthProvider  string   `json:"auth_provider"`
	ClientID      string   `json:"client_id"`
	BaseURL       string   `json:"base_url"`
}

// pingResponse is the payload of the ping tool.
type pingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Server    string `json:"server"`
}

// handleGetUserInfo returns the authenticated user's GitHub profile.
func handleGetUserInfo(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	claims, ok := githuboauth.ClaimsFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError(errNoClaims), nil
	}

	response := userInfoResponse{
		GitHubUser:  claims.Login,
		Name:        claims.Name,
		Email:       claims.Email,
		AvatarURL:   claims.AvatarURL,
		Company:     claims.Company,
		Location:    claims.Location,
		PublicRepos: claims.PublicRepos,
		Followers:   claims.Followers,
		Following:   claims.Following,
		Bio:         claims.Bio,
		Blog:        claims.Blog,
		CreatedAt:   claims.CreatedAt,
		UpdatedAt:   claims.UpdatedAt,
	}

	jsonData, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal user info: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonData)), nil
}

// handleGetServerInfo returns static metadata about this server instance.
func handleGetServerInfo(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	version := "0.1.0"
	if cfg := sc.Config(); cfg != nil && cfg.Version != "" {
		version = cfg.Version
	}

	response := serverInfoResponse{
		ServerName:   serverDisplayName,
		Version:      version,
		AuthProvider: "GitHub OAuth",
		Transport:    "HTTP Streamable",
		Container:    "Docker Multi-arch",
		BuildSystem:  "GoReleaser + uv",
		Endpoints: serverInfoEndpoints{
			MCP:           "/mcp/",
			Health:        "/health",
			OAuthCallback: "/auth/callback",
		},
		SupportedArchitectures: []string{"linux/amd64", "linux/arm64"},
	}

	jsonData, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal server info: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonData)), nil
}

// handleGetOAuthStatus reports the OAuth session details. Reaching this
// handler requires a validated token, so authenticated is always true.
func handleGetOAuthStatus(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	claims, ok := githuboauth.ClaimsFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError(errNoClaims), nil
	}

	// A token without scopes reports an empty list, not null.
	scopes := claims.Scopes
	if scopes == nil {
		scopes = []string{}
	}

	response := oauthStatusResponse{
		Authenticated: true,
		User:          claims.Login,
		Scopes:        scopes,
		TokenType:     "Bearer",
		AuthProvider:  "GitHub",
	}

	if cfg := sc.Config(); cfg != nil {
		response.ClientID = cfg.GitHubClientID
		response.BaseURL = cfg.BaseURL
	}

	jsonData, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal OAuth status: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonData)), nil
}

// handlePing responds with a pong and the current server time.
func handlePing(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	response := pingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
		Server:    serverDisplayName,
	}

	jsonData, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal ping response: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonData)), nil
}
