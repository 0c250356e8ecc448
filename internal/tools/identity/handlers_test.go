package identity

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liatrio/fastmcp-github-oauth/internal/githuboauth"
	"github.com/liatrio/fastmcp-github-oauth/internal/server"
)

func newTestServerContext(t *testing.T) *server.ServerContext {
	t.Helper()

	sc, err := server.NewServerContext(context.Background(),
		server.WithGitHubCredentials("test-client-id", "test-client-secret"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func testClaims() *githuboauth.Claims {
	return &githuboauth.Claims{
		Login:       "octocat",
		Name:        "The Octocat",
		Email:       "octocat@example.com",
		AvatarURL:   "https://avatars.githubusercontent.com/u/583231",
		Company:     "GitHub",
		Location:    "San Francisco",
		PublicRepos: 8,
		Followers:   1000,
		Following:   9,
		Bio:         "A mysterious cephalopod",
		Blog:        "https://github.blog",
		CreatedAt:   "2011-01-25T18:44:36Z",
		UpdatedAt:   "2024-01-01T00:00:00Z",
		Scopes:      []string{"read:user", "user:email"},
	}
}

func contextWithTestClaims() context.Context {
	return githuboauth.ContextWithClaims(context.Background(), testClaims())
}

// resultText extracts the text payload from a tool result.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	textContent, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return textContent.Text
}

func TestHandleGetUserInfo(t *testing.T) {
	sc := newTestServerContext(t)

	result, err := handleGetUserInfo(contextWithTestClaims(), mcp.CallToolRequest{}, sc)
	require.NoError(t, err)
	require.False(t, result.IsError)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))

	assert.Equal(t, "octocat", payload["github_user"])
	assert.Equal(t, "The Octocat", payload["name"])
	assert.Equal(t, "octocat@example.com", payload["email"])
	assert.Equal(t, "https://avatars.githubusercontent.com/u/583231", payload["avatar_url"])
	assert.Equal(t, "GitHub", payload["company"])
	assert.Equal(t, "San Francisco", payload["location"])
	assert.Equal(t, float64(8), payload["public_repos"])
	assert.Equal(t, float64(1000), payload["followers"])
	assert.Equal(t, float64(9), payload["following"])
	assert.Equal(t, "A mysterious cephalopod", payload["bio"])
	assert.Equal(t, "https://github.blog", payload["blog"])
	assert.Equal(t, "2011-01-25T18:44:36Z", payload["created_at"])
	assert.Equal(t, "2024-01-01T00:00:00Z", payload["updated_at"])
	assert.Len(t, payload, 13)
}

func TestHandleGetUserInfo_NoClaims(t *testing.T) {
	sc := newTestServerContext(t)

	result, err := handleGetUserInfo(context.Background(), mcp.CallToolRequest{}, sc)
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "authentication required")
}

func TestHandleGetServerInfo(t *testing.T) {
	sc := newTestServerContext(t)

	// Server metadata requires no authentication claims.
	result, err := handleGetServerInfo(context.Background(), mcp.CallToolRequest{}, sc)
	require.NoError(t, err)
	require.False(t, result.IsError)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))

	assert.Equal(t, "FastMCP GitHub OAuth Example", payload["server_name"])
	assert.Equal(t, "0.1.0", payload["version"])
	assert.Equal(t, "GitHub OAuth", payload["auth_provider"])
	assert.Equal(t, "HTTP Streamable", payload["transport"])
	assert.Equal(t, "Docker Multi-arch", payload["container"])
	assert.Equal(t, "GoReleaser + uv", payload["build_system"])

	endpoints, ok := payload["endpoints"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/mcp/", endpoints["mcp"])
	assert.Equal(t, "/health", endpoints["health"])
	assert.Equal(t, "/auth/callback", endpoints["oauth_callback"])

	architectures, ok := payload["supported_architectures"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"linux/amd64", "linux/arm64"}, architectures)
}

func TestHandleGetOAuthStatus(t *testing.T) {
	sc := newTestServerContext(t)

	result, err := handleGetOAuthStatus(contextWithTestClaims(), mcp.CallToolRequest{}, sc)
	require.NoError(t, err)
	require.False(t, result.IsError)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))

	assert.Equal(t, true, payload["authenticated"])
	assert.Equal(t, "octocat", payload["user"])
	assert.Equal(t, []any{"read:user", "user:email"}, payload["scopes"])
	assert.Equal(t, "Bearer", payload["token_type"])
	assert.Equal(t, "GitHub", payload["auth_provider"])
	assert.Equal(t, "test-client-id", payload["client_id"])
	assert.Equal(t, "http://localhost:8000", payload["base_url"])
}

func TestHandleGetOAuthStatus_NoScopes(t *testing.T) {
	sc := newTestServerContext(t)

	claims := testClaims()
	claims.Scopes = nil
	ctx := githuboauth.ContextWithClaims(context.Background(), claims)

	result, err := handleGetOAuthStatus(ctx, mcp.CallToolRequest{}, sc)
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, `"scopes": []`)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &payload))
	assert.Equal(t, []any{}, payload["scopes"])
}

func TestHandleGetOAuthStatus_NoClaims(t *testing.T) {
	sc := newTestServerContext(t)

	result, err := handleGetOAuthStatus(context.Background(), mcp.CallToolRequest{}, sc)
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "authentication required")
}

func TestHandlePing(t *testing.T) {
	sc := newTestServerContext(t)

	before := time.Now().Add(-time.Second)
	result, err := handlePing(context.Background(), mcp.CallToolRequest{}, sc)
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, `"message": "pong"`)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &payload))

	assert.Equal(t, "pong", payload["message"])
	assert.Equal(t, "FastMCP GitHub OAuth Example", payload["server"])

	timestamp, ok := payload["timestamp"].(string)
	require.True(t, ok)
	parsed, err := time.Parse(time.RFC3339, timestamp)
	require.NoError(t, err)
	assert.True(t, parsed.After(before))
}
