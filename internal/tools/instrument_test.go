package tools

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liatrio/fastmcp-github-oauth/internal/githuboauth"
	"github.com/liatrio/fastmcp-github-oauth/internal/instrumentation"
	"github.com/liatrio/fastmcp-github-oauth/internal/server"
)

func newTestServerContext(t *testing.T, opts ...server.Option) *server.ServerContext {
	t.Helper()

	sc, err := server.NewServerContext(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func TestWrapWithInstrumentation_PassesThroughResult(t *testing.T) {
	sc := newTestServerContext(t)

	handler := func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	}

	wrapped := WrapWithInstrumentation("ping", handler, sc)

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	textContent, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "ok", textContent.Text)
}

func TestWrapWithInstrumentation_PassesThroughError(t *testing.T) {
	sc := newTestServerContext(t)

	wantErr := errors.New("handler failed")
	handler := func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
		return nil, wantErr
	}

	wrapped := WrapWithInstrumentation("ping", handler, sc)

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	assert.ErrorIs(t, err, wantErr)
	assert.Nil(t, result)
}

func TestWrapWithInstrumentation_ToolErrorResult(t *testing.T) {
	sc := newTestServerContext(t)

	handler := func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("authentication required"), nil
	}

	wrapped := WrapWithInstrumentation("get_user_info", handler, sc)

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
}

func TestWrapWithInstrumentation_WithClaimsAndProvider(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	provider, err := instrumentation.NewProvider(context.Background(),
		instrumentation.Config{Enabled: false}, logger)
	require.NoError(t, err)

	sc := newTestServerContext(t,
		server.WithLogger(logger),
		server.WithInstrumentationProvider(provider),
	)

	claims := &githuboauth.Claims{
		Login:  "octocat",
		Email:  "octocat@example.com",
		Scopes: []string{"read:user"},
	}
	ctx := githuboauth.ContextWithClaims(context.Background(), claims)

	var gotClaims *githuboauth.Claims
	handler := func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
		gotClaims, _ = githuboauth.ClaimsFromContext(ctx)
		return mcp.NewToolResultText("ok"), nil
	}

	wrapped := WrapWithInstrumentation("get_user_info", handler, sc)

	result, err := wrapped(ctx, mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	// Claims flow through the wrapper unchanged.
	require.NotNil(t, gotClaims)
	assert.Equal(t, "octocat", gotClaims.Login)
}
