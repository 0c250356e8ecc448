// Package identity provides MCP tools that expose the authenticated GitHub
// user's identity and the server's own metadata.
package identity

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/liatrio/fastmcp-github-oauth/internal/server"
	"github.com/liatrio/fastmcp-github-oauth/internal/tools"
)

// RegisterIdentityTools registers the identity and server metadata tools
// with the MCP server.
func RegisterIdentityTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// get_user_info tool
	userInfoTool := mcp.NewTool("get_user_info",
		mcp.WithDescription("Returns information about the authenticated GitHub user."),
	)
	s.AddTool(userInfoTool, tools.WrapWithInstrumentation("get_user_info", handleGetUserInfo, sc))

	// get_server_info tool
	serverInfoTool := mcp.NewTool("get_server_info",
		mcp.WithDescription("Returns information about this MCP server instance."),
	)
	s.AddTool(serverInfoTool, tools.WrapWithInstrumentation("get_server_info", handleGetServerInfo, sc))

	// get_oauth_status tool
	oauthStatusTool := mcp.NewTool("get_oauth_status",
		mcp.WithDescription("Returns the OAuth authentication status for the current session."),
	)
	s.AddTool(oauthStatusTool, tools.WrapWithInstrumentation("get_oauth_status", handleGetOAuthStatus, sc))

	// ping tool
	pingTool := mcp.NewTool("ping",
		mcp.WithDescription("Simple ping tool to test server connectivity."),
	)
	s.AddTool(pingTool, tools.WrapWithInstrumentation("ping", handlePing, sc))

	return nil
}
